// Package refreshtokens declares the storage contract for issued refresh
// tokens. A row exists for every live session; logout deletes it.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Repository defines operations for issuing, looking up and revoking refresh tokens.
type Repository interface {
	// Create stores a newly issued refresh token.
	Create(ctx context.Context, t *models.RefreshToken) error

	// Find looks up a refresh token by its token string.
	// It returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token. Deleting an absent token is not an
	// error; the returned flag reports whether a row was removed.
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteByUser removes every refresh token of userID and returns how many.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
