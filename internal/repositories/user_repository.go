package repositories

import (
	"errors"

	"journal/internal/models"
)

// ErrNotFound is returned when a record does not exist (or, for entries,
// is not owned by the requesting user).
var ErrNotFound = errors.New("record not found")

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(user *models.User) error
	GetByEmail(email string) (*models.User, error)
	GetByID(id uint) (*models.User, error)
	Delete(id uint) error
}
