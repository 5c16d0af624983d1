// Package memory keeps users and refresh tokens in process memory with the
// same semantics as the PostgreSQL repositories, including email uniqueness
// and the conditional token updates. Data is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Store holds both collections behind one lock.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
	tokens  map[string]*models.RefreshToken
}

func NewStore() *Store {
	return &Store{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
		tokens:  make(map[string]*models.RefreshToken),
	}
}

// Users returns the users repository view of s.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// RefreshTokens returns the refresh tokens repository view of s.
func (s *Store) RefreshTokens() *RefreshTokenRepository { return &RefreshTokenRepository{s: s} }

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.byEmail[u.Email]; ok {
		return common.ErrorAlreadyExists
	}
	if _, ok := r.s.byID[u.ID]; ok {
		return common.ErrorAlreadyExists
	}
	cp := *u
	r.s.byID[u.ID] = &cp
	r.s.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byEmail[email]
	r.s.mu.RUnlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.byEmail[email]
	return ok, nil
}

func (r *UserRepository) SetEmailVerifyToken(_ context.Context, id, token string, now time.Time) error {
	return r.update(id, common.ErrorNotFound, now, func(u *models.User) bool {
		u.EmailVerifyToken = token
		return true
	})
}

func (r *UserRepository) MarkEmailVerified(_ context.Context, id, expectedToken string, now time.Time) error {
	return r.update(id, common.ErrorConflict, now, func(u *models.User) bool {
		if u.EmailVerifyToken == "" || u.EmailVerifyToken != expectedToken {
			return false
		}
		u.EmailVerifyToken = ""
		u.Verify = models.Verified
		return true
	})
}

func (r *UserRepository) SetForgotPasswordToken(_ context.Context, id, token string, now time.Time) error {
	return r.update(id, common.ErrorNotFound, now, func(u *models.User) bool {
		u.ForgotPasswordToken = token
		return true
	})
}

func (r *UserRepository) SetPassword(_ context.Context, id, hash, expectedToken string, now time.Time) error {
	return r.update(id, common.ErrorConflict, now, func(u *models.User) bool {
		if u.ForgotPasswordToken == "" || u.ForgotPasswordToken != expectedToken {
			return false
		}
		u.PasswordHash = hash
		u.ForgotPasswordToken = ""
		return true
	})
}

func (r *UserRepository) ReplacePassword(_ context.Context, id, hash string, now time.Time) error {
	return r.update(id, common.ErrorNotFound, now, func(u *models.User) bool {
		u.PasswordHash = hash
		u.ForgotPasswordToken = ""
		return true
	})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, p models.ProfilePatch, now time.Time) (*models.User, error) {
	err := r.update(id, common.ErrorNotFound, now, func(u *models.User) bool {
		p.Apply(u)
		return true
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// update runs fn on a copy of the stored user under the write lock and keeps
// the copy when fn accepts it. A missing user or a rejected change yields miss.
func (r *UserRepository) update(id string, miss error, now time.Time, fn func(*models.User) bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.byID[id]
	if !ok {
		return miss
	}
	cp := *u
	if !fn(&cp) {
		return miss
	}
	cp.UpdatedAt = now
	r.s.byID[id] = &cp
	return nil
}

type RefreshTokenRepository struct {
	s *Store
}

func (r *RefreshTokenRepository) Create(_ context.Context, t *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokens[t.Token]; ok {
		return common.ErrorAlreadyExists
	}
	cp := *t
	r.s.tokens[t.Token] = &cp
	return nil
}

func (r *RefreshTokenRepository) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *RefreshTokenRepository) Delete(_ context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokens[token]; !ok {
		return false, nil
	}
	delete(r.s.tokens, token)
	return true, nil
}

func (r *RefreshTokenRepository) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for k, t := range r.s.tokens {
		if t.UserID == userID {
			delete(r.s.tokens, k)
			n++
		}
	}
	return n, nil
}
