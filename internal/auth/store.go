package auth

import (
	"context"
	"time"
)

// Store describes persistence operations over user records. Email uniqueness
// is enforced here: Create and Update return ErrConflict on a duplicate.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter ListFilter, page Page) ([]*User, int, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, recentSince time.Time) (Stats, error)
}
