package admin

import (
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/validation"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordWeak     = errors.New("password does not meet the password policy")
)

// GetPassword prints prompt to w and reads a password from fd without echo.
// A newline is printed after the read to keep the terminal tidy.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(w io.Writer, fd int, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// GetNewPassword asks for a password twice and checks it against policy.
func GetNewPassword(w io.Writer, fd int, policy config.PasswordPolicy) (string, error) {
	first, err := GetPassword(w, fd, "New password: ")
	if err != nil {
		return "", err
	}
	defer cryptox.WipeByteArray(first)

	second, err := GetPassword(w, fd, "Repeat password: ")
	if err != nil {
		return "", err
	}
	defer cryptox.WipeByteArray(second)

	if string(first) != string(second) {
		return "", ErrPasswordMismatch
	}
	pw := string(first)
	if n := len([]rune(pw)); n > 50 || !validation.MeetsPolicy(policy, pw) {
		return "", ErrPasswordWeak
	}
	return pw, nil
}
