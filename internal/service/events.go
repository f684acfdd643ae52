package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"campusevents-backend/internal/apperrors"
	"campusevents-backend/internal/auth"
	"campusevents-backend/internal/model"
	"campusevents-backend/internal/repository"
)

// EventStore is the persistence the admin console needs.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Search(ctx context.Context, f model.EventFilter) ([]model.Event, error)
	UpdateDetails(ctx context.Context, ev *model.Event) error
	Delete(ctx context.Context, id string) error
}

// RegistrationLister reads an event's ledger entries.
type RegistrationLister interface {
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
}

// EventService implements event administration.
type EventService struct {
	events        EventStore
	registrations RegistrationLister
	logger        *slog.Logger
}

// NewEventService constructs an EventService.
func NewEventService(events EventStore, registrations RegistrationLister, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{events: events, registrations: registrations, logger: logger}
}

// List returns all events ordered by date.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return events, nil
}

// Search lists events matching a keyword and date range. A date-only end
// bound includes the whole day.
func (s *EventService) Search(ctx context.Context, in model.EventSearch) ([]model.Event, error) {
	f := model.EventFilter{Keyword: strings.TrimSpace(in.Keyword)}
	if v := strings.TrimSpace(in.StartDate); v != "" {
		from, err := parseEventDate(v)
		if err != nil {
			return nil, apperrors.New(apperrors.CodeInvalidInput, "invalid start_date format")
		}
		f.From = from
	}
	if v := strings.TrimSpace(in.EndDate); v != "" {
		to, err := parseEventDate(v)
		if err != nil {
			return nil, apperrors.New(apperrors.CodeInvalidInput, "invalid end_date format")
		}
		if len(v) == len(dateOnly) {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = to
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "end_date is before start_date")
	}

	events, err := s.events.Search(ctx, f)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return events, nil
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, eventErr(err)
	}
	return ev, nil
}

// Create stores a new event owned by the admin creating it.
func (s *EventService) Create(ctx context.Context, creator auth.Identity, in model.EventInput) (*model.Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Date) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "Title and date are required")
	}
	date, err := parseEventDate(in.Date)
	if err != nil {
		return nil, err
	}

	ev := &model.Event{
		ID:          uuid.NewString(),
		Title:       title,
		Description: in.Description,
		Date:        date,
		Venue:       strings.TrimSpace(in.Venue),
		CreatedBy:   creator.UserID,
		Roster:      []string{},
	}
	if err := s.events.Create(ctx, ev); err != nil {
		return nil, apperrors.Internal(err)
	}
	s.logger.Info("event created", slog.String("event_id", ev.ID), slog.String("created_by", creator.UserID))
	return ev, nil
}

// Update applies the non-empty fields of in to an event.
func (s *EventService) Update(ctx context.Context, id string, in model.EventInput) (*model.Event, error) {
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, eventErr(err)
	}

	if v := strings.TrimSpace(in.Title); v != "" {
		ev.Title = v
	}
	if in.Description != "" {
		ev.Description = in.Description
	}
	if v := strings.TrimSpace(in.Venue); v != "" {
		ev.Venue = v
	}
	if strings.TrimSpace(in.Date) != "" {
		date, err := parseEventDate(in.Date)
		if err != nil {
			return nil, err
		}
		ev.Date = date
	}

	if err := s.events.UpdateDetails(ctx, ev); err != nil {
		return nil, eventErr(err)
	}
	return ev, nil
}

// Delete removes an event. Its ledger entries are retained and filtered out
// of "my events" at read time.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return eventErr(err)
	}
	s.logger.Info("event deleted", slog.String("event_id", id))
	return nil
}

// Registrations returns the ledger entries for an event.
func (s *EventService) Registrations(ctx context.Context, id string) ([]model.Registration, error) {
	if _, err := s.events.GetByID(ctx, id); err != nil {
		return nil, eventErr(err)
	}
	regs, err := s.registrations.ListByEvent(ctx, id)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return regs, nil
}

func eventErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.ErrEventNotFound
	}
	return apperrors.Internal(err)
}

const dateOnly = "2006-01-02"

// parseEventDate accepts RFC3339 or YYYY-MM-DD.
func parseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.New(apperrors.CodeInvalidInput, "invalid date format (use RFC3339 or YYYY-MM-DD)")
}
