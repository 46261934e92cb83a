package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, uint) (*models.Post, error)
	listFn         func(context.Context, int, int) ([]models.Post, error)
	popularFn      func(context.Context, int) ([]models.Post, error)
	updateFn       func(context.Context, uint, models.PostPatch) (*models.Post, error)
	deleteFn       func(context.Context, uint) error
	countFn        func(context.Context) (int64, error)
	recordViewFn   func(context.Context, uint, string) (*models.Post, bool, error)
	addCommentFn   func(context.Context, uint, *models.Comment) (*models.Post, error)
	listCommentsFn func(context.Context, uint) ([]models.Comment, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) Popular(ctx context.Context, limit int) ([]models.Post, error) {
	return s.popularFn(ctx, limit)
}
func (s *postRepoStub) Update(ctx context.Context, id uint, patch models.PostPatch) (*models.Post, error) {
	return s.updateFn(ctx, id, patch)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}
func (s *postRepoStub) RecordView(ctx context.Context, id uint, token string) (*models.Post, bool, error) {
	return s.recordViewFn(ctx, id, token)
}
func (s *postRepoStub) AddComment(ctx context.Context, id uint, c *models.Comment) (*models.Post, error) {
	return s.addCommentFn(ctx, id, c)
}
func (s *postRepoStub) ListComments(ctx context.Context, id uint) ([]models.Comment, error) {
	return s.listCommentsFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, p *models.Post) error { p.ID = 1; return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn:    func(_ context.Context, _, _ int) ([]models.Post, error) { return nil, nil },
		popularFn: func(_ context.Context, _ int) ([]models.Post, error) { return nil, nil },
		updateFn: func(_ context.Context, id uint, _ models.PostPatch) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
		deleteFn: func(_ context.Context, _ uint) error { return nil },
		countFn:  func(_ context.Context) (int64, error) { return 0, nil },
		recordViewFn: func(_ context.Context, id uint, _ string) (*models.Post, bool, error) {
			return &models.Post{ID: id, Views: 1}, true, nil
		},
		addCommentFn: func(_ context.Context, id uint, c *models.Comment) (*models.Post, error) {
			c.ID = 1
			c.PostID = id
			return &models.Post{ID: id, Comments: []models.Comment{*c}}, nil
		},
		listCommentsFn: func(_ context.Context, _ uint) ([]models.Comment, error) { return nil, nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	listFn          func(context.Context, models.Role, int, int) ([]models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
	deleteFn        func(context.Context, uint) error
	countFn         func(context.Context, models.Role) (int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) List(ctx context.Context, role models.Role, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, role, limit, offset)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	return s.createFn(ctx, u)
}
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error {
	return s.updateFn(ctx, u)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) Count(ctx context.Context, role models.Role) (int64, error) {
	return s.countFn(ctx, role)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "user", Role: models.RoleEditor}, nil
		},
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		listFn:          func(_ context.Context, _ models.Role, _, _ int) ([]models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, u *models.User) error { u.ID = 1; return nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		countFn:         func(_ context.Context, _ models.Role) (int64, error) { return 1, nil },
	}
}

// revokerStub records revocations in memory.
type revokerStub struct {
	revoked  map[string]time.Duration
	revokeFn func(context.Context, string, time.Duration) error
	checkErr error
}

func newRevokerStub() *revokerStub {
	return &revokerStub{revoked: map[string]time.Duration{}}
}

func (s *revokerStub) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if s.revokeFn != nil {
		return s.revokeFn(ctx, jti, ttl)
	}
	s.revoked[jti] = ttl
	return nil
}

func (s *revokerStub) IsRevoked(_ context.Context, jti string) (bool, error) {
	if s.checkErr != nil {
		return false, s.checkErr
	}
	_, ok := s.revoked[jti]
	return ok, nil
}

// assertAppError asserts that err is an AppError with the given code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}
