package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByID_Mock(t *testing.T) {
	tests := []struct {
		name         string
		userID       uint
		mockBehavior func(mock sqlmock.Sqlmock)
		expectedUser *models.User
		expectedErr  error
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "username", "role"}).
					AddRow(1, "alice", "editor")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedUser: &models.User{ID: 1, Username: "alice", Role: models.RoleEditor},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			expectedErr: models.ErrNotFound,
		},
		{
			name:   "Store Failure",
			userID: 2,
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
					WillReturnError(errors.New("connection reset by peer"))
			},
			expectedErr: models.ErrStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewUserRepository(db)
			tt.mockBehavior(mock)

			user, err := repo.GetByID(context.Background(), tt.userID)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedUser.Username, user.Username)
				assert.Equal(t, tt.expectedUser.Role, user.Role)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	admin := &models.User{Username: "root", Password: "hash", Role: models.RoleAdmin}
	alice := &models.User{Username: "alice", Password: "hash", Role: models.RoleEditor}
	require.NoError(t, repo.Create(ctx, admin))
	require.NoError(t, repo.Create(ctx, alice))

	err := repo.Create(ctx, &models.User{Username: "alice", Password: "x", Role: models.RoleEditor})
	assert.ErrorIs(t, err, models.ErrValidation)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	editors, err := repo.List(ctx, models.RoleEditor, 10, 0)
	require.NoError(t, err)
	require.Len(t, editors, 1)
	assert.Equal(t, "alice", editors[0].Username)

	all, err := repo.List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := repo.Count(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	alice.Username = "alice2"
	require.NoError(t, repo.Update(ctx, alice))
	got, err = repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Username)

	alice.Username = "root"
	assert.ErrorIs(t, repo.Update(ctx, alice), models.ErrValidation)

	require.NoError(t, repo.Delete(ctx, alice.ID))
	assert.ErrorIs(t, repo.Delete(ctx, alice.ID), models.ErrNotFound)
	_, err = repo.GetByID(ctx, alice.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
