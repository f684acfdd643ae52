package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"campusevents-backend/internal/model"
)

// UserRepository handles persistence for accounts.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account, returning ErrEmailTaken on a duplicate email.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID returns an account or ErrNotFound.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return firstUser(r.db.WithContext(ctx).Where("id = ?", id))
}

// GetByEmail returns an account or ErrNotFound.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return firstUser(r.db.WithContext(ctx).Where("email = ?", email))
}

func firstUser(q *gorm.DB) (*model.User, error) {
	var u model.User
	if err := q.First(&u).Error; err != nil {
		if err = notFound(err); errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// List returns every account ordered by creation time.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateEmail changes an account email, returning ErrEmailTaken on conflict.
func (r *UserRepository) UpdateEmail(ctx context.Context, id, email string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("email", email)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrEmailTaken
		}
		return fmt.Errorf("update user email: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
