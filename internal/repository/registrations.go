package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"campusevents-backend/internal/model"
)

// RegistrationRepository is the registration ledger.
type RegistrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a ledger entry. A unique index violation, which is how a
// lost check-then-insert race shows up, is reported as ErrAlreadyRegistered.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	if err := r.db.WithContext(ctx).Create(reg).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// FindConflict returns an entry for eventID matching email or, when userID
// is non-nil, matching the user.
func (r *RegistrationRepository) FindConflict(ctx context.Context, eventID, email string, userID *string) (*model.Registration, error) {
	match := r.db.Where("email = ?", email)
	if userID != nil {
		match = match.Or("user_id = ?", *userID)
	}
	return first(r.db.WithContext(ctx).Where("event_id = ?", eventID).Where(match))
}

// FindByUser returns the entry for exactly (eventID, userID).
func (r *RegistrationRepository) FindByUser(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	return first(r.db.WithContext(ctx).Where("event_id = ? AND user_id = ?", eventID, userID))
}

// FindGuestByEmail returns the guest entry for exactly (eventID, email).
// Entries owned by an account are never matched.
func (r *RegistrationRepository) FindGuestByEmail(ctx context.Context, eventID, email string) (*model.Registration, error) {
	return first(r.db.WithContext(ctx).Where("event_id = ? AND email = ? AND user_id IS NULL", eventID, email))
}

func first(q *gorm.DB) (*model.Registration, error) {
	var reg model.Registration
	if err := q.First(&reg).Error; err != nil {
		if err = notFound(err); errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &reg, nil
}

// Delete removes a ledger entry by id. Returns ErrNotFound when a concurrent
// request already removed it.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Registration{})
	if res.Error != nil {
		return fmt.Errorf("delete registration: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser returns a user's entries, most recent first.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	var regs []model.Registration
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("registered_at desc").
		Find(&regs).Error; err != nil {
		return nil, fmt.Errorf("list registrations by user: %w", err)
	}
	return regs, nil
}

// ListByEvent returns an event's entries in registration order.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	var regs []model.Registration
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("registered_at asc").
		Find(&regs).Error; err != nil {
		return nil, fmt.Errorf("list registrations by event: %w", err)
	}
	return regs, nil
}

// ListUserIDsByEvent returns the account ids registered for an event, in
// registration order. Guest entries are excluded.
func (r *RegistrationRepository) ListUserIDsByEvent(ctx context.Context, eventID string) ([]string, error) {
	return registeredUserIDs(r.db.WithContext(ctx), eventID)
}

// registeredUserIDs runs on db so callers holding a transaction read the
// ledger inside it.
func registeredUserIDs(db *gorm.DB, eventID string) ([]string, error) {
	ids := []string{}
	if err := db.
		Model(&model.Registration{}).
		Where("event_id = ? AND user_id IS NOT NULL", eventID).
		Order("registered_at asc").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list registered users: %w", err)
	}
	return ids, nil
}

// CountByEmail returns how many entries exist for (eventID, email).
func (r *RegistrationRepository) CountByEmail(ctx context.Context, eventID, email string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("event_id = ? AND email = ?", eventID, email).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}
