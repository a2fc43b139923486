// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"quotely/internal/models"
	"quotely/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository stores accounts. Usernames are unique and compared
// exactly.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts user and fills in its ID. A taken username is a CONFLICT.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("insert", "users")()

	err := r.db.WithContext(ctx).Create(user).Error
	switch {
	case err == nil:
		return nil
	case isUniqueConstraintError(err):
		return models.NewConflictError("User already exists")
	default:
		return models.NewInternalError(err)
	}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := r.findOne(ctx, "id", id)
	if err == nil && user == nil {
		return nil, models.NewNotFoundError("User", id)
	}
	return user, err
}

// GetByUsername returns nil, nil when nobody has that username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username", username)
}

// findOne loads the user whose column equals value, or nil when there is none.
func (r *userRepository) findOne(ctx context.Context, column string, value any) (*models.User, error) {
	defer observability.TrackQuery("select", "users")()

	var user models.User
	err := readDB(r.db).WithContext(ctx).Where(column+" = ?", value).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}
