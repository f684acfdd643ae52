// Package service implements business rules and orchestration between the
// HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campusevents-backend/internal/apperrors"
	"campusevents-backend/internal/auth"
	"campusevents-backend/internal/metrics"
	"campusevents-backend/internal/model"
	"campusevents-backend/internal/notify"
	"campusevents-backend/internal/repository"
)

// RosterStore is the event side of the registration workflow.
type RosterStore interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	ListByIDs(ctx context.Context, ids []string) (map[string]model.Event, error)
	MutateRoster(ctx context.Context, eventID string, mutate func(*model.Event) bool) (*model.Event, error)
	RebuildRoster(ctx context.Context, eventID string) (*model.Event, bool, error)
}

// Ledger is the authoritative store of registrations.
type Ledger interface {
	Create(ctx context.Context, reg *model.Registration) error
	FindConflict(ctx context.Context, eventID, email string, userID *string) (*model.Registration, error)
	FindByUser(ctx context.Context, eventID, userID string) (*model.Registration, error)
	FindGuestByEmail(ctx context.Context, eventID, email string) (*model.Registration, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]model.Registration, error)
}

var (
	errMissingContactFields = apperrors.New(apperrors.CodeInvalidInput,
		"Name, Email, Department, and Phone Number are required")
	errMissingUnregisterKey = apperrors.New(apperrors.CodeInvalidInput,
		"User ID or Email is required to unregister")
)

// RegistrationService keeps the ledger and each event's roster consistent.
//
// The ledger write and the roster write are two separate writes. A failure
// between them leaves the roster out of step with the ledger until Reconcile
// runs; the ledger is always the source of truth.
type RegistrationService struct {
	events    RosterStore
	ledger    Ledger
	publisher notify.Publisher
	metrics   *metrics.Registrations
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures a RegistrationService.
type Option func(*RegistrationService)

// WithPublisher sets the publisher for lifecycle messages.
func WithPublisher(p notify.Publisher) Option {
	return func(s *RegistrationService) { s.publisher = p }
}

// WithMetrics sets the outcome counters.
func WithMetrics(m *metrics.Registrations) Option {
	return func(s *RegistrationService) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *RegistrationService) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *RegistrationService) { s.now = now }
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(events RosterStore, ledger Ledger, opts ...Option) *RegistrationService {
	s := &RegistrationService{
		events:    events,
		ledger:    ledger,
		publisher: notify.Nop{},
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a ledger entry for the caller. identity is nil for guests.
func (s *RegistrationService) Register(ctx context.Context, eventID string, req model.RegisterRequest, identity *auth.Identity) (reg *model.Registration, err error) {
	defer func() { s.metrics.ObserveRegister(err) }()

	req.Normalize()
	if !req.Complete() {
		return nil, errMissingContactFields
	}

	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var userID *string
	if identity != nil {
		id := identity.UserID
		userID = &id
	}

	// Email OR user in one check: closes both the email-collision and the
	// identity-collision avenues.
	_, err = s.ledger.FindConflict(ctx, ev.ID, req.Email, userID)
	switch {
	case err == nil:
		return nil, apperrors.ErrDuplicateRegistration
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.Internal(err)
	}

	reg = &model.Registration{
		ID:           s.newID(),
		EventID:      ev.ID,
		UserID:       userID,
		Name:         req.Name,
		Email:        req.Email,
		Department:   req.Department,
		PhoneNumber:  req.PhoneNumber,
		RegisteredAt: s.now().UTC(),
	}
	if err = s.ledger.Create(ctx, reg); err != nil {
		// The pre-check lost a race; the unique index is the real guard.
		if errors.Is(err, repository.ErrAlreadyRegistered) {
			return nil, apperrors.ErrDuplicateRegistration
		}
		return nil, apperrors.Internal(err)
	}

	if userID != nil {
		if err = s.syncRoster(ctx, ev.ID, func(e *model.Event) bool { return e.AddToRoster(*userID) }); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, notify.KindRegistrationCreated, ev, reg)
	return reg, nil
}

// Unregister removes the caller's ledger entry. Authenticated callers are
// matched by user id only. Guests are matched by email and only against guest
// entries, so an account's entry cannot be cancelled anonymously.
func (s *RegistrationService) Unregister(ctx context.Context, eventID string, identity *auth.Identity, email string) (err error) {
	defer func() { s.metrics.ObserveUnregister(err) }()

	ev, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return err
	}

	var reg *model.Registration
	switch email = model.NormalizeEmail(email); {
	case identity != nil:
		reg, err = s.ledger.FindByUser(ctx, ev.ID, identity.UserID)
	case email != "":
		reg, err = s.ledger.FindGuestByEmail(ctx, ev.ID, email)
	default:
		return errMissingUnregisterKey
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrRegistrationNotFound
		}
		return apperrors.Internal(err)
	}

	if err = s.ledger.Delete(ctx, reg.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrRegistrationNotFound
		}
		return apperrors.Internal(err)
	}

	if identity != nil {
		userID := identity.UserID
		if err = s.syncRoster(ctx, ev.ID, func(e *model.Event) bool { return e.RemoveFromRoster(userID) }); err != nil {
			return err
		}
	}

	s.publish(ctx, notify.KindRegistrationCancelled, ev, reg)
	return nil
}

// MyEvents lists the events the caller registered for, newest registration
// first. Entries whose event was deleted are skipped.
func (s *RegistrationService) MyEvents(ctx context.Context, identity *auth.Identity) ([]model.MyEvent, error) {
	if identity == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	regs, err := s.ledger.ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	ids := make([]string, 0, len(regs))
	for _, r := range regs {
		ids = append(ids, r.EventID)
	}
	events, err := s.events.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	out := make([]model.MyEvent, 0, len(regs))
	for _, r := range regs {
		ev, ok := events[r.EventID]
		if !ok {
			continue
		}
		out = append(out, model.MyEvent{
			Event: ev,
			RegistrationDetails: model.RegistrationDetails{
				Name:         r.Name,
				Email:        r.Email,
				Department:   r.Department,
				PhoneNumber:  r.PhoneNumber,
				RegisteredAt: r.RegisteredAt,
			},
		})
	}
	return out, nil
}

// ReconcileReport summarises a Reconcile run.
type ReconcileReport struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

// Reconcile rebuilds every event roster from the ledger's authenticated
// entries, repairing drift left by a failure between the two writes.
func (s *RegistrationService) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	events, err := s.events.List(ctx)
	if err != nil {
		return report, apperrors.Internal(err)
	}

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		rebuilt, changed, err := s.events.RebuildRoster(ctx, ev.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return report, apperrors.Internal(err)
		}
		if changed {
			report.Updated++
			s.logger.Info("roster reconciled",
				slog.String("event_id", ev.ID),
				slog.Int("registrants", len(rebuilt.Roster)))
		}
	}
	return report, nil
}

func (s *RegistrationService) loadEvent(ctx context.Context, eventID string) (*model.Event, error) {
	if eventID == "" {
		return nil, apperrors.ErrEventNotFound
	}
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, apperrors.Internal(err)
	}
	return ev, nil
}

// syncRoster applies a roster change after the ledger write. An event deleted
// in between is not an error: its ledger entries are orphaned by design.
func (s *RegistrationService) syncRoster(ctx context.Context, eventID string, mutate func(*model.Event) bool) error {
	_, err := s.events.MutateRoster(ctx, eventID, mutate)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		s.logger.Warn("event removed before roster update", slog.String("event_id", eventID))
		return nil
	default:
		s.logger.Error("roster update failed after ledger write; run reconcile",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
		return apperrors.Internal(err)
	}
}

func (s *RegistrationService) publish(ctx context.Context, kind notify.Kind, ev *model.Event, reg *model.Registration) {
	msg := notify.RegistrationMessage{
		Event:          kind,
		Version:        notify.MessageVersion,
		RegistrationID: reg.ID,
		EventID:        ev.ID,
		EventTitle:     ev.Title,
		Name:           reg.Name,
		Email:          reg.Email,
		TS:             s.now().UTC(),
	}
	if reg.UserID != nil {
		msg.UserID = *reg.UserID
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Warn("publish registration message",
			slog.String("kind", string(kind)),
			slog.String("registration_id", reg.ID),
			slog.String("error", err.Error()))
	}
}
