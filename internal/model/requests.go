package model

import (
	"strings"
	"time"
)

// RegisterRequest is the payload for POST /events/:id/register.
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Department  string `json:"department"`
	PhoneNumber string `json:"phoneNumber"`
}

// Normalize trims every field and normalizes the email.
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.Department = strings.TrimSpace(r.Department)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
}

// Complete reports whether all contact fields are present.
func (r RegisterRequest) Complete() bool {
	return r.Name != "" && r.Email != "" && r.Department != "" && r.PhoneNumber != ""
}

// EventInput is the payload for creating or editing an event. On edit only
// non-empty fields are applied.
type EventInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"` // RFC3339 or YYYY-MM-DD
	Venue       string `json:"venue"`
}

// SignupRequest is the payload for POST /auth/register.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// EventSearch is the query string accepted by GET /events.
type EventSearch struct {
	Keyword   string `form:"keyword"`
	StartDate string `form:"start_date"` // RFC3339 or YYYY-MM-DD
	EndDate   string `form:"end_date"`   // RFC3339 or YYYY-MM-DD, whole day included
}

// EventFilter is a parsed EventSearch. Zero bounds are open.
type EventFilter struct {
	Keyword string
	From    time.Time
	To      time.Time
}
