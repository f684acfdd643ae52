package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"campusevents-backend/internal/apperrors"
	"campusevents-backend/internal/auth"
	"campusevents-backend/internal/model"
	"campusevents-backend/internal/repository"
)

// UserStore is the account persistence.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateEmail(ctx context.Context, id, email string) error
}

// AccountService is the authentication collaborator: it owns accounts and
// issues the bearer tokens the rest of the service resolves.
type AccountService struct {
	users            UserStore
	tokens           *auth.Resolver
	allowAdminSignup bool
	logger           *slog.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(users UserStore, tokens *auth.Resolver, allowAdminSignup bool, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{users: users, tokens: tokens, allowAdminSignup: allowAdminSignup, logger: logger}
}

var errInvalidCredentials = apperrors.New(apperrors.CodeInvalidCredentials, "Invalid Credentials")

// Signup creates an account and returns a token for it.
func (s *AccountService) Signup(ctx context.Context, req model.SignupRequest) (*model.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := model.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "Name, email and password are required")
	}

	role := req.Role
	if role == "" {
		role = model.RoleStudent
	}
	if !role.Valid() {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "role must be 'admin' or 'student'")
	}
	if role == model.RoleAdmin && !s.allowAdminSignup {
		return nil, apperrors.New(apperrors.CodeForbidden, "Admin signup is disabled")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.New(apperrors.CodeEmailTaken, "User already exists")
		}
		return nil, apperrors.Internal(err)
	}
	s.logger.Info("account created", slog.String("user_id", user.ID), slog.String("role", string(role)))
	return s.issue(user)
}

// Login verifies credentials and returns a token.
func (s *AccountService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error) {
	email := model.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, apperrors.Internal(err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, errInvalidCredentials
	}
	return s.issue(user)
}

// Me returns the account behind an identity.
func (s *AccountService) Me(ctx context.Context, identity auth.Identity) (*model.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.New(apperrors.CodeUserNotFound, "User not found")
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *AccountService) issue(user *model.User) (*model.AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.AuthResponse{Token: token, User: user}, nil
}

// NormalizeReport summarises a NormalizeEmails run.
type NormalizeReport struct {
	Scanned   int      `json:"scanned"`
	Updated   int      `json:"updated"`
	Conflicts []string `json:"conflicts"`
	Errors    int      `json:"errors"`
}

// NormalizeEmails trims and lowercases every account email. Accounts whose
// normalized email already belongs to another account are skipped and
// reported for manual resolution.
func (s *AccountService) NormalizeEmails(ctx context.Context) (NormalizeReport, error) {
	var report NormalizeReport

	users, err := s.users.List(ctx)
	if err != nil {
		return report, apperrors.Internal(err)
	}
	report.Scanned = len(users)

	for _, u := range users {
		normalized := model.NormalizeEmail(u.Email)
		if normalized == u.Email {
			continue
		}

		err := s.users.UpdateEmail(ctx, u.ID, normalized)
		switch {
		case err == nil:
			report.Updated++
			s.logger.Info("email normalized", slog.String("user_id", u.ID), slog.String("email", normalized))
		case errors.Is(err, repository.ErrEmailTaken):
			report.Conflicts = append(report.Conflicts, u.ID)
			s.logger.Warn("email normalization conflict",
				slog.String("user_id", u.ID),
				slog.String("email", normalized))
		default:
			report.Errors++
			s.logger.Error("email normalization failed",
				slog.String("user_id", u.ID),
				slog.String("error", err.Error()))
		}
	}
	return report, nil
}
