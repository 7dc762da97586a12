package repositories

import (
	"context"
	"errors"
	"paywave/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
)

// UserRepository is the read side of the user directory owned by the
// registration collaborator. Create exists for seeding and tests.
type UserRepository interface {
	// FindByID retrieves a user by id
	FindByID(ctx context.Context, id uint) (*models.User, error)

	// FindByEmail retrieves a user by email, case-insensitively
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// Create stores a new user with a normalized email
	Create(ctx context.Context, user *models.User) error
}
