// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for staff accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetByUsername returns (nil, nil) when no user has that name.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// List returns users ordered by id. An empty role lists every role.
	List(ctx context.Context, role models.Role, limit, offset int) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context, role models.Role) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (user *models.User, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "GetByID", "users")
	defer func() { done(err) }()

	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, lookupError(err, "User", id)
	}
	return &u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (user *models.User, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "GetByUsername", "users")
	defer func() { done(err) }()

	var u models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewStoreError(err)
	}
	return &u, nil
}

func (r *userRepository) List(ctx context.Context, role models.Role, limit, offset int) (users []models.User, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "List", "users")
	defer func() { done(err) }()

	limit, offset = clampPage(limit, offset)
	q := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, models.NewStoreError(err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "Create", "users")
	defer func() { done(err) }()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Username already taken")
		}
		return models.NewStoreError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) (err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "Update", "users")
	defer func() { done(err) }()

	res := r.db.WithContext(ctx).Model(user).Select("username", "password", "role").Updates(user)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewValidationError("Username already taken")
		}
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uint) (err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "Delete", "users")
	defer func() { done(err) }()

	res := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return models.NewStoreError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context, role models.Role) (n int64, err error) {
	ctx, done := observability.StartRepositorySpan(ctx, "Count", "users")
	defer func() { done(err) }()

	q := r.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, models.NewStoreError(err)
	}
	return n, nil
}
