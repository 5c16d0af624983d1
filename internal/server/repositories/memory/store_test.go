package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *Store) *models.User {
	t.Helper()
	u := &models.User{ID: "u-1", Name: "A", Email: "a@x.com", PasswordHash: "h", EmailVerifyToken: "evt", CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func TestUsers_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s)

	got, err := s.Users().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	exists, err := s.Users().EmailExists(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = s.Users().GetByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.Users().GetByEmail(ctx, "b@x.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	err = s.Users().Create(ctx, &models.User{ID: "u-2", Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestUsers_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s)

	got, err := s.Users().GetByID(ctx, "u-1")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := s.Users().GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
}

func TestUsers_MarkEmailVerifiedIsConditional(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s)
	later := t0.Add(time.Hour)

	assert.ErrorIs(t, s.Users().MarkEmailVerified(ctx, "u-1", "other", later), common.ErrorConflict)
	require.NoError(t, s.Users().MarkEmailVerified(ctx, "u-1", "evt", later))
	assert.ErrorIs(t, s.Users().MarkEmailVerified(ctx, "u-1", "evt", later), common.ErrorConflict)
	assert.ErrorIs(t, s.Users().MarkEmailVerified(ctx, "ghost", "evt", later), common.ErrorConflict)

	u, err := s.Users().GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.Verified, u.Verify)
	assert.Empty(t, u.EmailVerifyToken)
	assert.Equal(t, later, u.UpdatedAt)
}

func TestUsers_ConcurrentVerifyAppliesOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Users().MarkEmailVerified(ctx, "u-1", "evt", t0) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
}

func TestUsers_PasswordUpdates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s)
	repo := s.Users()

	assert.ErrorIs(t, repo.SetPassword(ctx, "u-1", "h2", "", t0), common.ErrorConflict, "no pending reset")

	require.NoError(t, repo.SetForgotPasswordToken(ctx, "u-1", "fpt-1", t0))
	require.NoError(t, repo.SetForgotPasswordToken(ctx, "u-1", "fpt-2", t0))
	assert.ErrorIs(t, repo.SetPassword(ctx, "u-1", "h2", "fpt-1", t0), common.ErrorConflict)
	require.NoError(t, repo.SetPassword(ctx, "u-1", "h2", "fpt-2", t0))
	assert.ErrorIs(t, repo.SetPassword(ctx, "u-1", "h3", "fpt-2", t0), common.ErrorConflict)

	u, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "h2", u.PasswordHash)
	assert.Empty(t, u.ForgotPasswordToken)

	require.NoError(t, repo.SetForgotPasswordToken(ctx, "u-1", "fpt-3", t0))
	require.NoError(t, repo.ReplacePassword(ctx, "u-1", "h4", t0))
	u, err = repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "h4", u.PasswordHash)
	assert.Empty(t, u.ForgotPasswordToken)

	assert.ErrorIs(t, repo.ReplacePassword(ctx, "ghost", "h", t0), common.ErrorNotFound)
	assert.ErrorIs(t, repo.SetEmailVerifyToken(ctx, "ghost", "x", t0), common.ErrorNotFound)
	assert.ErrorIs(t, repo.SetForgotPasswordToken(ctx, "ghost", "x", t0), common.ErrorNotFound)
}

func TestUsers_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed(t, s)

	bio := "x"
	u, err := s.Users().UpdateProfile(ctx, "u-1", models.ProfilePatch{Bio: &bio}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "x", u.Bio)
	assert.Equal(t, "A", u.Name)
	assert.Equal(t, t0.Add(time.Minute), u.UpdatedAt)

	_, err = s.Users().UpdateProfile(ctx, "ghost", models.ProfilePatch{Bio: &bio}, t0)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().RefreshTokens()

	require.NoError(t, repo.Create(ctx, &models.RefreshToken{ID: "1", UserID: "u-1", Token: "a"}))
	require.NoError(t, repo.Create(ctx, &models.RefreshToken{ID: "2", UserID: "u-1", Token: "b"}))
	require.NoError(t, repo.Create(ctx, &models.RefreshToken{ID: "3", UserID: "u-2", Token: "c"}))
	assert.ErrorIs(t, repo.Create(ctx, &models.RefreshToken{ID: "4", UserID: "u-2", Token: "c"}), common.ErrorAlreadyExists)

	rt, err := repo.Find(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "u-1", rt.UserID)

	deleted, err := repo.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "a")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.Find(ctx, "a")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	n, err := repo.DeleteByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Find(ctx, "c")
	assert.NoError(t, err)
}
