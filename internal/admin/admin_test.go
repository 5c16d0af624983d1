package admin

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccounts struct {
	email, password string
	revoked         int64
	profile         *models.Profile
	err             error
}

func (f *fakeAccounts) ResetPasswordByEmail(_ context.Context, email, password string) (int64, error) {
	f.email, f.password = email, password
	return f.revoked, f.err
}

func (f *fakeAccounts) RevokeSessions(_ context.Context, email string) (int64, error) {
	f.email = email
	return f.revoked, f.err
}

func (f *fakeAccounts) GetProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	f.email = email
	return f.profile, f.err
}

func defaultPolicy() config.PasswordPolicy {
	var c config.Config
	c.LoadDefaults()
	return c.PasswordPolicy
}

// typed stubs readPassword with the given answers, in order.
func typed(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func TestSplitArgs(t *testing.T) {
	global, cmd := SplitArgs([]string{"-c", "cfg.yaml", "-d", "postgres://x", "show", "-email", "a@x.com"})
	assert.Equal(t, []string{"-c", "cfg.yaml", "-d", "postgres://x"}, global)
	assert.Equal(t, []string{"show", "-email", "a@x.com"}, cmd)

	global, cmd = SplitArgs([]string{"-d", "x"})
	assert.Equal(t, []string{"-d", "x"}, global)
	assert.Nil(t, cmd)
}

func TestRun_Usage(t *testing.T) {
	c := New(&fakeAccounts{}, defaultPolicy(), &bytes.Buffer{}, 0)
	ctx := context.Background()

	assert.ErrorIs(t, c.Run(ctx, nil), ErrUsage)
	assert.ErrorIs(t, c.Run(ctx, []string{"show"}), ErrUsage)
	assert.ErrorIs(t, c.Run(ctx, []string{"explode", "-email", "a@x.com"}), ErrUsage)
	assert.Error(t, c.Run(ctx, []string{"show", "-bogus"}))
}

func TestRun_ResetPassword(t *testing.T) {
	typed(t, "Xyz789$%", "Xyz789$%")
	acc := &fakeAccounts{revoked: 3}
	var out bytes.Buffer

	require.NoError(t, New(acc, defaultPolicy(), &out, 0).Run(context.Background(),
		[]string{"reset-password", "-email", "a@x.com"}))
	assert.Equal(t, "a@x.com", acc.email)
	assert.Equal(t, "Xyz789$%", acc.password)
	assert.Contains(t, out.String(), "3 session(s) revoked")
	assert.NotContains(t, out.String(), "Xyz789")
}

func TestRun_ResetPasswordRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		want    error
	}{
		{name: "mismatch", answers: []string{"Xyz789$%", "Xyz789$&"}, want: ErrPasswordMismatch},
		{name: "weak", answers: []string{"abcdefgh", "abcdefgh"}, want: ErrPasswordWeak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typed(t, tt.answers...)
			acc := &fakeAccounts{}
			err := New(acc, defaultPolicy(), &bytes.Buffer{}, 0).Run(context.Background(),
				[]string{"reset-password", "-email", "a@x.com"})
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, acc.password)
		})
	}
}

func TestRun_ResetPasswordTerminalError(t *testing.T) {
	typed(t)
	err := New(&fakeAccounts{}, defaultPolicy(), &bytes.Buffer{}, 0).Run(context.Background(),
		[]string{"reset-password", "-email", "a@x.com"})
	assert.Error(t, err)
}

func TestRun_RevokeSessions(t *testing.T) {
	acc := &fakeAccounts{revoked: 2}
	var out bytes.Buffer
	require.NoError(t, New(acc, defaultPolicy(), &out, 0).Run(context.Background(),
		[]string{"revoke-sessions", "-email", "a@x.com"}))
	assert.Equal(t, "2 session(s) revoked\n", out.String())

	acc.err = common.ErrUserNotFound
	err := New(acc, defaultPolicy(), &out, 0).Run(context.Background(), []string{"revoke-sessions", "-email", "b@x.com"})
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestRun_Show(t *testing.T) {
	acc := &fakeAccounts{profile: &models.Profile{ID: "u-1", Email: "a@x.com", Verify: models.Verified}}
	var out bytes.Buffer
	require.NoError(t, New(acc, defaultPolicy(), &out, 0).Run(context.Background(),
		[]string{"show", "-email", "a@x.com"}))
	assert.Contains(t, out.String(), `"_id": "u-1"`)
	assert.Contains(t, out.String(), `"verify": "Verified"`)
}

func TestGetPassword_Error(t *testing.T) {
	typed(t)
	var out bytes.Buffer
	_, err := GetPassword(&out, 0, "Password: ")
	if err == nil {
		t.Fatal("expected error")
	}
	if out.String() != "Password: \n" {
		t.Fatalf("unexpected prompt output %q", out.String())
	}
}
