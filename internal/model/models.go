// Package model defines the persisted entities and request payloads of the
// campus event registration backend.
package model

import (
	"strings"
	"time"
)

// Role is the authorization level carried by an account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// User represents a registered account.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         Role      `json:"role" gorm:"type:varchar(16);not null;default:student"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Event is the core event model. Roster is the denormalized list of
// authenticated registrants; it is only mutated through the roster helpers.
type Event struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" gorm:"not null;index"`
	Venue       string    `json:"venue"`
	CreatedBy   string    `json:"createdBy" gorm:"type:varchar(36)"`
	Roster      []string  `json:"roster" gorm:"serializer:json;type:text"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasRegistrant reports whether userID is on the roster.
func (e *Event) HasRegistrant(userID string) bool {
	for _, id := range e.Roster {
		if id == userID {
			return true
		}
	}
	return false
}

// AddToRoster appends userID unless it is already present.
// It reports whether the roster changed.
func (e *Event) AddToRoster(userID string) bool {
	if userID == "" || e.HasRegistrant(userID) {
		return false
	}
	e.Roster = append(e.Roster, userID)
	return true
}

// RemoveFromRoster drops every occurrence of userID.
// It reports whether the roster changed.
func (e *Event) RemoveFromRoster(userID string) bool {
	kept := make([]string, 0, len(e.Roster))
	for _, id := range e.Roster {
		if id != userID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(e.Roster) {
		return false
	}
	e.Roster = kept
	return true
}

// SyncRoster rewrites the roster so it holds exactly the ids in registered.
// Ids already on the roster keep their position, missing ones are appended
// in the order given, and duplicates are collapsed.
func (e *Event) SyncRoster(registered []string) bool {
	want := make(map[string]bool, len(registered))
	for _, id := range registered {
		if id != "" {
			want[id] = true
		}
	}

	next := make([]string, 0, len(want))
	seen := make(map[string]bool, len(want))
	for _, id := range e.Roster {
		if want[id] && !seen[id] {
			next = append(next, id)
			seen[id] = true
		}
	}
	for _, id := range registered {
		if want[id] && !seen[id] {
			next = append(next, id)
			seen[id] = true
		}
	}

	if equalRoster(e.Roster, next) {
		return false
	}
	e.Roster = next
	return true
}

func equalRoster(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Registration is a ledger entry. UserID is nil for guest registrations.
// The two composite unique indexes back the duplicate-registration rules:
// NULL user ids never collide, so guests are only constrained by email.
type Registration struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EventID      string    `json:"eventId" gorm:"type:varchar(36);not null;uniqueIndex:idx_registrations_event_user;uniqueIndex:idx_registrations_event_email"`
	UserID       *string   `json:"userId" gorm:"type:varchar(36);uniqueIndex:idx_registrations_event_user;index"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"not null;uniqueIndex:idx_registrations_event_email"`
	Department   string    `json:"department" gorm:"not null"`
	PhoneNumber  string    `json:"phoneNumber" gorm:"not null"`
	RegisteredAt time.Time `json:"registeredAt" gorm:"not null;index"`
}

// IsGuest reports whether the registration has no associated account.
func (r *Registration) IsGuest() bool {
	return r.UserID == nil
}

// RegistrationDetails is the caller's own view of a registration.
type RegistrationDetails struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Department   string    `json:"department"`
	PhoneNumber  string    `json:"phoneNumber"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// MyEvent is an event annotated with the caller's registration.
type MyEvent struct {
	Event
	RegistrationDetails RegistrationDetails `json:"registrationDetails"`
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
