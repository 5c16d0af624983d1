package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type sentMail struct {
	kind, to, token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendVerifyEmail(_ context.Context, to, token string) error {
	return m.record("verify", to, token)
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, token string) error {
	return m.record("reset", to, token)
}

func (m *fakeMailer) record(kind, to, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind: kind, to: to, token: token})
	return m.err
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDeps(t *testing.T) (*auth.TokenService, *cryptox.Hasher) {
	t.Helper()
	var c config.Config
	c.LoadDefaults()
	tokens, err := auth.NewTokenServiceFromConfig(&c)
	require.NoError(t, err)
	hasher, err := cryptox.NewHasher(cryptox.Params{Memory: 64, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	return tokens, hasher
}

type memFixture struct {
	svc    *AccountService
	store  *memory.Store
	tokens *auth.TokenService
	hasher *cryptox.Hasher
	mail   *fakeMailer
}

func newMemFixture(t *testing.T) *memFixture {
	t.Helper()
	tokens, hasher := newTestDeps(t)
	store := memory.NewStore()
	mail := &fakeMailer{}
	svc := NewAccountService(repomanager.NewMemoryRepositoryManager(store), dbx.NoTx{}, tokens, hasher, mail,
		logging.Nop{}, WithClock(func() time.Time { return fixedNow }))
	return &memFixture{svc: svc, store: store, tokens: tokens, hasher: hasher, mail: mail}
}

func (f *memFixture) register(t *testing.T, email string) (*models.User, *TokenPair) {
	t.Helper()
	pair, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "A", Email: email, Password: "Abc123!@", DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	u, err := f.store.Users().GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u, pair
}

func (f *memFixture) sessionAlive(t *testing.T, token string) bool {
	t.Helper()
	_, err := f.store.RefreshTokens().Find(context.Background(), token)
	if errors.Is(err, common.ErrorNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

// --- tests ---

func TestRegister_CreatesUnverifiedAccountWithSession(t *testing.T) {
	f := newMemFixture(t)
	u, pair := f.register(t, "a@x.com")

	assert.Equal(t, models.Unverified, u.Verify)
	assert.NotEmpty(t, u.EmailVerifyToken)
	assert.Empty(t, u.ForgotPasswordToken)
	assert.Equal(t, fixedNow, u.CreatedAt)
	assert.Equal(t, fixedNow, u.UpdatedAt)

	ok, err := f.hasher.Verify("Abc123!@", u.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	access, err := f.tokens.Verify(auth.AccessToken, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, access.UserID)
	assert.Equal(t, models.Unverified, access.Verify)

	refresh, err := f.tokens.Verify(auth.RefreshToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, refresh.UserID)
	assert.True(t, f.sessionAlive(t, pair.RefreshToken))

	claims, err := f.tokens.Verify(auth.EmailVerifyToken, u.EmailVerifyToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	assert.Equal(t, sentMail{kind: "verify", to: "a@x.com", token: u.EmailVerifyToken}, f.mail.last(t))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newMemFixture(t)
	f.register(t, "a@x.com")

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "B", Email: "a@x.com", Password: "Abc123!@"})
	assert.ErrorIs(t, err, common.ErrEmailTaken)
}

func TestRegister_MailFailureDoesNotFail(t *testing.T) {
	f := newMemFixture(t)
	f.mail.err = errors.New("smtp down")

	_, pair := f.register(t, "a@x.com")
	assert.NotEmpty(t, pair.AccessToken)
}

func TestLogin_OpensAnotherSession(t *testing.T) {
	f := newMemFixture(t)
	u, first := f.register(t, "a@x.com")

	second, err := f.svc.Login(context.Background(), u)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.True(t, f.sessionAlive(t, first.RefreshToken))
	assert.True(t, f.sessionAlive(t, second.RefreshToken))
}

func TestLogout_DeletesOnlyThatSession(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	u, first := f.register(t, "a@x.com")
	second, err := f.svc.Login(ctx, u)
	require.NoError(t, err)

	deleted, err := f.svc.Logout(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, f.sessionAlive(t, first.RefreshToken))
	assert.True(t, f.sessionAlive(t, second.RefreshToken))

	deleted, err = f.svc.Logout(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestVerifyEmail_TransitionsOnce(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "a@x.com")

	pair, err := f.svc.VerifyEmail(ctx, u.ID, u.EmailVerifyToken)
	require.NoError(t, err)
	claims, err := f.tokens.Verify(auth.AccessToken, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Verified, claims.Verify)

	after, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Verified, after.Verify)
	assert.Empty(t, after.EmailVerifyToken)

	_, err = f.svc.VerifyEmail(ctx, u.ID, u.EmailVerifyToken)
	assert.ErrorIs(t, err, common.ErrAlreadyVerified)

	again, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, after, again)
}

func TestVerifyEmail_StaleTokenIsConsumed(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "a@x.com")
	require.NoError(t, f.svc.ResendVerifyEmail(ctx, u.ID))

	_, err := f.svc.VerifyEmail(ctx, u.ID, u.EmailVerifyToken)
	assert.ErrorIs(t, err, common.ErrTokenConsumed)

	fresh := f.mail.last(t).token
	_, err = f.svc.VerifyEmail(ctx, u.ID, fresh)
	assert.NoError(t, err)
}

func TestVerifyEmail_ConcurrentCallsApplyOnce(t *testing.T) {
	f := newMemFixture(t)
	u, _ := f.register(t, "a@x.com")

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.VerifyEmail(context.Background(), u.ID, u.EmailVerifyToken)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, common.ErrAlreadyVerified)
	}
	assert.Equal(t, 1, ok)
}

func TestVerifyEmail_UnknownUser(t *testing.T) {
	f := newMemFixture(t)
	_, err := f.svc.VerifyEmail(context.Background(), "ghost", "tok")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestResendVerifyEmail(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "a@x.com")

	require.NoError(t, f.svc.ResendVerifyEmail(ctx, u.ID))
	after, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, u.EmailVerifyToken, after.EmailVerifyToken)
	assert.Equal(t, sentMail{kind: "verify", to: "a@x.com", token: after.EmailVerifyToken}, f.mail.last(t))

	_, err = f.svc.VerifyEmail(ctx, u.ID, after.EmailVerifyToken)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.ResendVerifyEmail(ctx, u.ID), common.ErrAlreadyVerified)
}

func TestForgotPassword_OverwritesPreviousToken(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "a@x.com")

	require.NoError(t, f.svc.ForgotPassword(ctx, u))
	first := f.mail.last(t).token
	require.NoError(t, f.svc.ForgotPassword(ctx, u))
	second := f.mail.last(t)
	assert.Equal(t, "reset", second.kind)
	assert.NotEqual(t, first, second.token)

	stored, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, second.token, stored.ForgotPasswordToken)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, u.ID, first, "Xyz789$%"), common.ErrTokenConsumed)
}

func TestResetPassword_ConsumesToken(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "a@x.com")
	require.NoError(t, f.svc.ForgotPassword(ctx, u))
	token := f.mail.last(t).token

	require.NoError(t, f.svc.ResetPassword(ctx, u.ID, token, "Xyz789$%"))

	after, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, after.ForgotPasswordToken)
	assert.Equal(t, models.Unverified, after.Verify)
	ok, err := f.hasher.Verify("Xyz789$%", after.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, u.ID, token, "Other1!x"), common.ErrTokenConsumed)
}

func TestUpdateMe_PartialPatch(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "a@x.com")

	bio := "x"
	p, err := f.svc.UpdateMe(ctx, u.ID, models.ProfilePatch{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "x", p.Bio)
	assert.Equal(t, "A", p.Name)
	assert.Equal(t, "a@x.com", p.Email)
	assert.Equal(t, u.DateOfBirth, p.DateOfBirth)

	same, err := f.svc.UpdateMe(ctx, u.ID, models.ProfilePatch{})
	require.NoError(t, err)
	assert.Equal(t, p, same)

	_, err = f.svc.UpdateMe(ctx, "ghost", models.ProfilePatch{Bio: &bio})
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestGetMe(t *testing.T) {
	f := newMemFixture(t)
	u, _ := f.register(t, "a@x.com")

	p, err := f.svc.GetMe(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, models.Unverified, p.Verify)

	_, err = f.svc.GetMe(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestResetPasswordByEmail_RevokesSessions(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	u, pair := f.register(t, "a@x.com")
	_, err := f.svc.Login(ctx, u)
	require.NoError(t, err)
	require.NoError(t, f.svc.ForgotPassword(ctx, u))

	revoked, err := f.svc.ResetPasswordByEmail(ctx, " A@X.com ", "Xyz789$%")
	require.NoError(t, err)
	assert.EqualValues(t, 2, revoked)
	assert.False(t, f.sessionAlive(t, pair.RefreshToken))

	after, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, after.ForgotPasswordToken)

	_, err = f.svc.ResetPasswordByEmail(ctx, "ghost@x.com", "Xyz789$%")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestRevokeSessionsAndProfileByEmail(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	u, _ := f.register(t, "a@x.com")

	n, err := f.svc.RevokeSessions(ctx, "a@x.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = f.svc.RevokeSessions(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, n)

	p, err := f.svc.GetProfileByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)

	_, err = f.svc.RevokeSessions(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}
