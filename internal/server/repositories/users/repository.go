// Package users declares the storage contract for account records.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Repository persists users. Lookups of a missing user return
// common.ErrorNotFound. Conditional writes that match no row return
// common.ErrorConflict.
type Repository interface {
	// Create inserts u. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, u *models.User) error

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// SetEmailVerifyToken overwrites the pending verification token.
	SetEmailVerifyToken(ctx context.Context, id, token string, now time.Time) error

	// MarkEmailVerified moves the user to Verified and clears the token, but
	// only while the stored token still equals expectedToken.
	MarkEmailVerified(ctx context.Context, id, expectedToken string, now time.Time) error

	// SetForgotPasswordToken overwrites the pending reset token.
	SetForgotPasswordToken(ctx context.Context, id, token string, now time.Time) error

	// SetPassword stores hash and clears the reset token, but only while the
	// stored reset token still equals expectedToken.
	SetPassword(ctx context.Context, id, hash, expectedToken string, now time.Time) error

	// ReplacePassword stores hash and clears any reset token unconditionally.
	ReplacePassword(ctx context.Context, id, hash string, now time.Time) error

	// UpdateProfile applies the present fields of patch and returns the result.
	UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch, now time.Time) (*models.User, error)
}
