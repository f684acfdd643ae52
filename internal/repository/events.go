package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campusevents-backend/internal/model"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, ev *model.Event) error {
	if ev.Roster == nil {
		ev.Roster = []string{}
	}
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var ev model.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ev).Error; err != nil {
		if err = notFound(err); errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &ev, nil
}

// List returns all events ordered by date ascending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := r.db.WithContext(ctx).Order("date asc").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// likeEscaper makes a keyword match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns events matching f, ordered by date ascending. An empty
// filter matches every event.
func (r *EventRepository) Search(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	q := r.db.WithContext(ctx).Model(&model.Event{})
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(kw)) + "%"
		q = q.Where(`LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(venue) LIKE ? ESCAPE '\'`,
			like, like, like)
	}
	if !f.From.IsZero() {
		q = q.Where("date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("date <= ?", f.To)
	}

	var events []model.Event
	if err := q.Order("date asc").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return events, nil
}

// ListByIDs returns the events that still exist among ids, keyed by id.
func (r *EventRepository) ListByIDs(ctx context.Context, ids []string) (map[string]model.Event, error) {
	out := make(map[string]model.Event, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var events []model.Event
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events by id: %w", err)
	}
	for _, ev := range events {
		out[ev.ID] = ev
	}
	return out, nil
}

// UpdateDetails persists the editable fields of ev. The roster is left
// untouched so admin edits never race the registration projection.
func (r *EventRepository) UpdateDetails(ctx context.Context, ev *model.Event) error {
	res := r.db.WithContext(ctx).
		Model(&model.Event{}).
		Where("id = ?", ev.ID).
		Select("title", "description", "date", "venue").
		Updates(ev)
	if res.Error != nil {
		return fmt.Errorf("update event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an event. Ledger entries referencing it are kept.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Event{})
	if res.Error != nil {
		return fmt.Errorf("delete event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RebuildRoster replaces the event's roster with the account ids in the
// ledger. The ledger is read under the same row lock as the roster write, so
// a registration that commits first is included and one that commits later
// adds itself after the lock is released. Reports whether the roster changed.
func (r *EventRepository) RebuildRoster(ctx context.Context, eventID string) (*model.Event, bool, error) {
	changed := false
	ev, err := r.mutateRoster(ctx, eventID, func(tx *gorm.DB, e *model.Event) (bool, error) {
		ids, err := registeredUserIDs(tx, eventID)
		if err != nil {
			return false, err
		}
		changed = e.SyncRoster(ids)
		return changed, nil
	})
	if err != nil {
		return nil, false, err
	}
	return ev, changed, nil
}

// MutateRoster loads the event under a row lock, applies mutate and, when
// mutate reports a change, persists the full event document before the lock
// is released. Returns ErrNotFound if the event no longer exists.
func (r *EventRepository) MutateRoster(ctx context.Context, eventID string, mutate func(*model.Event) bool) (*model.Event, error) {
	return r.mutateRoster(ctx, eventID, func(_ *gorm.DB, e *model.Event) (bool, error) {
		return mutate(e), nil
	})
}

func (r *EventRepository) mutateRoster(ctx context.Context, eventID string, mutate func(*gorm.DB, *model.Event) (bool, error)) (*model.Event, error) {
	var ev model.Event
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SELECT … FOR UPDATE serialises concurrent roster writers for this
		// event. SQLite ignores the clause and relies on its single writer.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", eventID).
			First(&ev).Error; err != nil {
			return notFound(err)
		}
		changed, err := mutate(tx, &ev)
		if err != nil || !changed {
			return err
		}
		if ev.Roster == nil {
			ev.Roster = []string{}
		}
		res := tx.Model(&ev).Select("*").Omit("created_at").Updates(&ev)
		if res.Error != nil {
			return fmt.Errorf("persist roster: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
