package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchchat/internal/db"
)

// UserRepository is the small slice of the account store that login and the
// socket handshake need.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// FindByID returns gorm.ErrRecordNotFound when the user does not exist.
func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Take(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail returns gorm.ErrRecordNotFound when no user has that email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Take(&u, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// TouchLastLogin stamps last_login_at.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Update("last_login_at", at.UTC()).Error
}
