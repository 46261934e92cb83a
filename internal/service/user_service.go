package service

import (
	"context"
	"log/slog"
	"strings"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// UserService manages staff accounts. Only admins reach it over HTTP.
type UserService struct {
	userRepo repository.UserRepository
}

type CreateUserInput struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// UpdateUserInput is a partial update. Nil fields are left unchanged.
type UpdateUserInput struct {
	Username *string      `json:"username"`
	Password *string      `json:"password"`
	Role     *models.Role `json:"role"`
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) ListUsers(ctx context.Context, role models.Role, limit, offset int) ([]models.User, error) {
	if role != "" && !role.Valid() {
		return nil, models.NewValidationError("Unknown role")
	}
	return s.userRepo.List(ctx, role, limit, offset)
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetUserByUsername returns NotFound when no account has that name.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

// CreateUser adds a staff account. The role defaults to editor.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	role := in.Role
	if role == "" {
		role = models.RoleEditor
	}
	if !role.Valid() {
		return nil, models.NewValidationError("Unknown role")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Username: username, Password: hash, Role: role}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser renames, re-passwords or re-roles an account. A new username must
// not belong to another account; demoting the last admin is refused.
func (s *UserService) UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	if in.Username == nil && in.Password == nil && in.Role == nil {
		return nil, models.NewValidationError("At least one field is required")
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			return nil, models.NewValidationError("Username already taken")
		}
		user.Username = username
	}

	if in.Password != nil {
		if err := validation.ValidatePassword(*in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.Password = hash
	}

	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, models.NewValidationError("Unknown role")
		}
		if user.Role == models.RoleAdmin && *in.Role != models.RoleAdmin {
			if err := s.ensureAnotherAdmin(ctx); err != nil {
				return nil, err
			}
		}
		user.Role = *in.Role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. The last admin cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}
	return s.userRepo.Delete(ctx, id)
}

func (s *UserService) ensureAnotherAdmin(ctx context.Context) error {
	n, err := s.userRepo.Count(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return models.NewValidationError("Cannot remove the last admin")
	}
	return nil
}

// EnsureRootAdmin creates the admin account if no user has username yet. An
// existing account is left untouched, whatever its role.
func (s *UserService) EnsureRootAdmin(ctx context.Context, username, password string) (created bool, err error) {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	if _, err := s.CreateUser(ctx, CreateUserInput{
		Username: username,
		Password: password,
		Role:     models.RoleAdmin,
	}); err != nil {
		return false, err
	}
	middleware.Logger.InfoContext(ctx, "root admin created", slog.String("username", username))
	return true, nil
}
