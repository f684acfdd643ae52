// Package seed loads demo users and events from a YAML fixture.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"campusevents-backend/internal/auth"
	"campusevents-backend/internal/model"
	"campusevents-backend/internal/repository"
)

//go:embed default.yaml
var defaultFixture []byte

// Fixture is the seed file format.
type Fixture struct {
	Users  []User  `yaml:"users"`
	Events []Event `yaml:"events"`
}

// User is a seeded account. Password is plain text and hashed on load.
type User struct {
	Name     string     `yaml:"name"`
	Email    string     `yaml:"email"`
	Password string     `yaml:"password"`
	Role     model.Role `yaml:"role"`
}

// Event is a seeded event dated relative to the seeding time.
type Event struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	InDays      int    `yaml:"in_days"`
	Venue       string `yaml:"venue"`
	CreatedBy   string `yaml:"created_by"` // email of a seeded or existing user
}

// Default returns the built-in fixture.
func Default() (*Fixture, error) {
	return Parse(defaultFixture)
}

// Load reads a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks required fields and roles.
func (f *Fixture) Validate() error {
	for i, u := range f.Users {
		if strings.TrimSpace(u.Email) == "" || u.Password == "" {
			return fmt.Errorf("users[%d]: email and password are required", i)
		}
		if u.Role != "" && !u.Role.Valid() {
			return fmt.Errorf("users[%d]: unknown role %q", i, u.Role)
		}
	}
	for i, e := range f.Events {
		if strings.TrimSpace(e.Title) == "" {
			return fmt.Errorf("events[%d]: title is required", i)
		}
	}
	return nil
}

// Report summarises a seeding run.
type Report struct {
	UsersCreated  int `json:"usersCreated"`
	UsersSkipped  int `json:"usersSkipped"`
	EventsCreated int `json:"eventsCreated"`
	EventsSkipped int `json:"eventsSkipped"`
}

// Seeder applies fixtures to the database.
type Seeder struct {
	db     *gorm.DB
	users  *repository.UserRepository
	events *repository.EventRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewSeeder constructs a Seeder.
func NewSeeder(db *gorm.DB, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		db:     db,
		users:  repository.NewUserRepository(db),
		events: repository.NewEventRepository(db),
		logger: logger,
		now:    time.Now,
	}
}

// Reset deletes all registrations, events and users.
func (s *Seeder) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, m := range []any{&model.Registration{}, &model.Event{}, &model.User{}} {
			if err := all.Delete(m).Error; err != nil {
				return fmt.Errorf("reset %T: %w", m, err)
			}
		}
		return nil
	})
}

// Apply inserts the fixture. Users whose email exists and events whose title
// exists are skipped, so Apply can be rerun safely.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (Report, error) {
	var report Report

	for _, u := range f.Users {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return report, err
		}
		role := u.Role
		if role == "" {
			role = model.RoleStudent
		}
		user := &model.User{
			ID:           uuid.NewString(),
			Name:         strings.TrimSpace(u.Name),
			Email:        model.NormalizeEmail(u.Email),
			PasswordHash: hash,
			Role:         role,
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrEmailTaken) {
				report.UsersSkipped++
				continue
			}
			return report, err
		}
		report.UsersCreated++
		s.logger.Info("seeded user", slog.String("email", user.Email), slog.String("role", string(role)))
	}

	existing, err := s.events.List(ctx)
	if err != nil {
		return report, err
	}
	titles := make(map[string]bool, len(existing))
	for _, ev := range existing {
		titles[ev.Title] = true
	}

	now := s.now().UTC()
	for _, e := range f.Events {
		title := strings.TrimSpace(e.Title)
		if titles[title] {
			report.EventsSkipped++
			continue
		}

		var creator string
		if e.CreatedBy != "" {
			u, err := s.users.GetByEmail(ctx, model.NormalizeEmail(e.CreatedBy))
			if err != nil {
				return report, fmt.Errorf("event %q creator %q: %w", title, e.CreatedBy, err)
			}
			creator = u.ID
		}

		ev := &model.Event{
			ID:          uuid.NewString(),
			Title:       title,
			Description: e.Description,
			Date:        now.AddDate(0, 0, e.InDays),
			Venue:       e.Venue,
			CreatedBy:   creator,
		}
		if err := s.events.Create(ctx, ev); err != nil {
			return report, err
		}
		titles[title] = true
		report.EventsCreated++
	}
	s.logger.Info("seed complete",
		slog.Int("users_created", report.UsersCreated),
		slog.Int("events_created", report.EventsCreated))
	return report, nil
}
