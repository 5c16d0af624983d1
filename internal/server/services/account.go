// Package services contains server-side business logic. AccountService drives
// an account through registration, email verification and password recovery,
// and issues the access/refresh token pairs that make up a session.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterInput is a registration that already passed validation.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	DateOfBirth time.Time
}

type AccountService struct {
	repos  repomanager.RepositoryManager
	tx     dbx.Transactor
	tokens *auth.TokenService
	hasher *cryptox.Hasher
	mailer mailer.Mailer
	logger logging.Logger
	now    func() time.Time
}

type Option func(*AccountService)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AccountService) { s.now = now }
}

func NewAccountService(repos repomanager.RepositoryManager, tx dbx.Transactor, tokens *auth.TokenService,
	hasher *cryptox.Hasher, m mailer.Mailer, l logging.Logger, opts ...Option) *AccountService {
	s := &AccountService{
		repos:  repos,
		tx:     tx,
		tokens: tokens,
		hasher: hasher,
		mailer: m,
		logger: l.With("module", "account_service"),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates an unverified account with a pending email-verify token
// and opens its first session.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*TokenPair, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.NewString()
	verifyToken, err := s.tokens.Sign(auth.EmailVerifyToken, id, models.Unverified)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &models.User{
		ID:               id,
		Name:             in.Name,
		Email:            in.Email,
		PasswordHash:     hash,
		DateOfBirth:      in.DateOfBirth,
		Verify:           models.Unverified,
		EmailVerifyToken: verifyToken,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var pair *TokenPair
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Users(tx).Create(ctx, user); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrEmailTaken
			}
			return err
		}
		var err error
		pair, err = s.issuePair(ctx, tx, id, models.Unverified)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", id, "email", in.Email)
	s.notify(ctx, "verify email", func() error { return s.mailer.SendVerifyEmail(ctx, in.Email, verifyToken) })
	return pair, nil
}

// Login opens a new session for a user whose credentials were already checked.
func (s *AccountService) Login(ctx context.Context, user *models.User) (*TokenPair, error) {
	pair, err := s.issuePair(ctx, s.tx.Conn(), user.ID, user.Verify)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return pair, nil
}

// Logout revokes one refresh token. It reports false when the token was
// already gone.
func (s *AccountService) Logout(ctx context.Context, refreshToken string) (bool, error) {
	return s.repos.RefreshTokens(s.tx.Conn()).Delete(ctx, refreshToken)
}

// VerifyEmail consumes the pending email-verify token and opens a session
// that carries the verified claim. A consumed token on a verified account
// yields common.ErrAlreadyVerified and changes nothing.
func (s *AccountService) VerifyEmail(ctx context.Context, userID, token string) (*TokenPair, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.EmailVerifyToken == "" {
		if user.Verify == models.Verified {
			return nil, common.ErrAlreadyVerified
		}
		return nil, common.ErrTokenConsumed
	}

	var pair *TokenPair
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Users(tx).MarkEmailVerified(ctx, userID, token, s.now().UTC()); err != nil {
			return err
		}
		var err error
		pair, err = s.issuePair(ctx, tx, userID, models.Verified)
		return err
	})
	if errors.Is(err, common.ErrorConflict) {
		// lost a race with another verification or a resend
		current, gerr := s.user(ctx, userID)
		if gerr != nil {
			return nil, gerr
		}
		if current.Verify == models.Verified {
			return nil, common.ErrAlreadyVerified
		}
		return nil, common.ErrTokenConsumed
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "email verified", "user_id", userID)
	return pair, nil
}

// ResendVerifyEmail replaces the pending email-verify token, so earlier links
// stop working.
func (s *AccountService) ResendVerifyEmail(ctx context.Context, userID string) error {
	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if user.Verify == models.Verified {
		return common.ErrAlreadyVerified
	}

	token, err := s.tokens.Sign(auth.EmailVerifyToken, userID, models.Unverified)
	if err != nil {
		return err
	}
	if err := s.repos.Users(s.tx.Conn()).SetEmailVerifyToken(ctx, userID, token, s.now().UTC()); err != nil {
		return s.mapMissing(err)
	}

	s.notify(ctx, "verify email", func() error { return s.mailer.SendVerifyEmail(ctx, user.Email, token) })
	return nil
}

// ForgotPassword issues a reset token, overwriting any earlier one.
func (s *AccountService) ForgotPassword(ctx context.Context, user *models.User) error {
	token, err := s.tokens.Sign(auth.ForgotPasswordToken, user.ID, user.Verify)
	if err != nil {
		return err
	}
	if err := s.repos.Users(s.tx.Conn()).SetForgotPasswordToken(ctx, user.ID, token, s.now().UTC()); err != nil {
		return s.mapMissing(err)
	}

	s.logger.Info(ctx, "password reset requested", "user_id", user.ID)
	s.notify(ctx, "password reset", func() error { return s.mailer.SendPasswordReset(ctx, user.Email, token) })
	return nil
}

// ResetPassword sets a new password and consumes the reset token. Verification
// status is left alone.
func (s *AccountService) ResetPassword(ctx context.Context, userID, token, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.repos.Users(s.tx.Conn()).SetPassword(ctx, userID, hash, token, s.now().UTC())
	if errors.Is(err, common.ErrorConflict) {
		return common.ErrTokenConsumed
	}
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "password reset", "user_id", userID)
	return nil
}

func (s *AccountService) GetMe(ctx context.Context, userID string) (*models.Profile, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := user.Profile()
	return &p, nil
}

// UpdateMe applies the fields present in patch and returns the new profile.
func (s *AccountService) UpdateMe(ctx context.Context, userID string, patch models.ProfilePatch) (*models.Profile, error) {
	if patch.Empty() {
		return s.GetMe(ctx, userID)
	}
	user, err := s.repos.Users(s.tx.Conn()).UpdateProfile(ctx, userID, patch, s.now().UTC())
	if err != nil {
		return nil, s.mapMissing(err)
	}
	p := user.Profile()
	return &p, nil
}

// ResetPasswordByEmail replaces the password of the account without a reset
// token and revokes all of its sessions. It returns the number of revoked
// sessions.
func (s *AccountService) ResetPasswordByEmail(ctx context.Context, email, password string) (int64, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	var revoked int64
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Users(tx).ReplacePassword(ctx, user.ID, hash, s.now().UTC()); err != nil {
			return s.mapMissing(err)
		}
		var err error
		revoked, err = s.repos.RefreshTokens(tx).DeleteByUser(ctx, user.ID)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Warn(ctx, "password replaced by operator", "user_id", user.ID, "revoked", revoked)
	return revoked, nil
}

// RevokeSessions deletes every refresh token of the account.
func (s *AccountService) RevokeSessions(ctx context.Context, email string) (int64, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	n, err := s.repos.RefreshTokens(s.tx.Conn()).DeleteByUser(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	s.logger.Warn(ctx, "sessions revoked by operator", "user_id", user.ID, "revoked", n)
	return n, nil
}

func (s *AccountService) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	p := user.Profile()
	return &p, nil
}

// --- helpers below ---

func (s *AccountService) issuePair(ctx context.Context, db dbx.DBTX, userID string, verify models.VerifyStatus) (*TokenPair, error) {
	access, err := s.tokens.Sign(auth.AccessToken, userID, verify)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Sign(auth.RefreshToken, userID, verify)
	if err != nil {
		return nil, err
	}

	rt := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     refresh,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repos.RefreshTokens(db).Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AccountService) user(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repos.Users(s.tx.Conn()).GetByID(ctx, id)
	if err != nil {
		return nil, s.mapMissing(err)
	}
	return u, nil
}

func (s *AccountService) userByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.repos.Users(s.tx.Conn()).GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, s.mapMissing(err)
	}
	return u, nil
}

func (s *AccountService) mapMissing(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrUserNotFound
	}
	return err
}

// notify sends a link after the state change is stored. Delivery failures are
// logged only.
func (s *AccountService) notify(ctx context.Context, what string, send func() error) {
	if err := send(); err != nil {
		s.logger.Error(ctx, "mail delivery failed", "kind", what, "error", err)
	}
}
