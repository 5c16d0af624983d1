// Package admin implements the operator commands of accountctl. They act on
// accounts directly, bypassing the HTTP surface and its tokens.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

var ErrUsage = errors.New("usage: accountctl [-c config] [-d dsn] <reset-password|revoke-sessions|show> -email <address>")

var commands = []string{"reset-password", "revoke-sessions", "show"}

// Accounts is the part of the account service the commands use.
type Accounts interface {
	ResetPasswordByEmail(ctx context.Context, email, password string) (int64, error)
	RevokeSessions(ctx context.Context, email string) (int64, error)
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
}

type CLI struct {
	accounts Accounts
	policy   config.PasswordPolicy
	out      io.Writer
	fd       int
}

// New builds the command runner. fd is the terminal passwords are read from.
func New(accounts Accounts, policy config.PasswordPolicy, out io.Writer, fd int) *CLI {
	return &CLI{accounts: accounts, policy: policy, out: out, fd: fd}
}

// SplitArgs separates configuration flags from the command and its own flags.
func SplitArgs(args []string) (global []string, cmd []string) {
	for i, a := range args {
		if slices.Contains(commands, a) {
			return args[:i], args[i:]
		}
	}
	return args, nil
}

// Run executes one command. args starts with the command name.
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if strings.TrimSpace(*email) == "" {
		return ErrUsage
	}

	switch args[0] {
	case "reset-password":
		return c.resetPassword(ctx, *email)
	case "revoke-sessions":
		return c.revokeSessions(ctx, *email)
	case "show":
		return c.show(ctx, *email)
	default:
		return ErrUsage
	}
}

func (c *CLI) resetPassword(ctx context.Context, email string) error {
	pw, err := GetNewPassword(c.out, c.fd, c.policy)
	if err != nil {
		return err
	}
	revoked, err := c.accounts.ResetPasswordByEmail(ctx, email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Password replaced, %d session(s) revoked\n", revoked)
	return nil
}

func (c *CLI) revokeSessions(ctx context.Context, email string) error {
	n, err := c.accounts.RevokeSessions(ctx, email)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d session(s) revoked\n", n)
	return nil
}

func (c *CLI) show(ctx context.Context, email string) error {
	p, err := c.accounts.GetProfileByEmail(ctx, email)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
