// Package auth resolves bearer credentials into identities and issues them.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"campusevents-backend/internal/apperrors"
	"campusevents-backend/internal/model"
)

// Identity is an authenticated caller.
type Identity struct {
	UserID string
	Role   model.Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

// claims is the token payload.
type claims struct {
	jwt.RegisteredClaims
	UserID string     `json:"id"`
	Role   model.Role `json:"role"`
}

// Resolver issues and validates HS256 bearer tokens against one secret.
type Resolver struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewResolver constructs a Resolver. A nil now defaults to time.Now.
func NewResolver(secret string, ttl time.Duration, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue signs a token for the given account.
func (r *Resolver) Issue(userID string, role model.Role) (string, error) {
	now := r.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
		UserID: userID,
		Role:   role,
	})
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates a raw token. Any failure is Unauthenticated.
func (r *Resolver) Authenticate(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, apperrors.New(apperrors.CodeUnauthenticated, "No token, authorization denied")
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperrors.Wrap(apperrors.CodeUnauthenticated, "Token has expired", err)
		}
		return Identity{}, apperrors.Wrap(apperrors.CodeUnauthenticated, "Token is not valid", err)
	}
	if strings.TrimSpace(parsed.UserID) == "" {
		return Identity{}, apperrors.New(apperrors.CodeUnauthenticated, "Token is not valid")
	}
	return Identity{UserID: parsed.UserID, Role: parsed.Role}, nil
}

// Resolve is the lenient path used by endpoints that also serve guests: an
// absent, malformed or expired token yields nil instead of an error.
func (r *Resolver) Resolve(token string) *Identity {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	id, err := r.Authenticate(token)
	if err != nil {
		return nil
	}
	return &id
}

// BearerToken extracts the token from an Authorization header value. Both
// "Bearer <token>" and a bare token are accepted; any other scheme yields "".
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if strings.EqualFold(header, "Bearer") || strings.ContainsAny(header, " \t") {
		return ""
	}
	return header
}
