// Package validation runs the gates that stand in front of every account
// command.
//
// A gate is an ordered list of fields, each with an ordered list of checks.
// A check either returns a normalized value for the next check or fails.
// Field failures (apperr.FieldError) stop the remaining checks of that field
// only and are aggregated into one apperr.ValidationError. Any other error
// ends the gate immediately and is returned as is.
package validation

import (
	"context"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/apperr"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
)

// Request is what a gate inspects and what it leaves behind for the command.
type Request struct {
	Body          map[string]any
	Authorization string

	values map[string]any

	// Decoded claims, set by the token gates that ran.
	Access         *auth.Claims
	Refresh        *auth.Claims
	EmailVerify    *auth.Claims
	ForgotPassword *auth.Claims

	// User is attached by gates that look the account up.
	User *models.User
}

// NewRequest wraps a decoded JSON body and the Authorization header value.
func NewRequest(body map[string]any, authorization string) *Request {
	if body == nil {
		body = map[string]any{}
	}
	return &Request{Body: body, Authorization: authorization, values: map[string]any{}}
}

// Has reports whether field passed its checks.
func (r *Request) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Value returns the normalized value of a field that passed.
func (r *Request) Value(field string) any {
	return r.values[field]
}

func (r *Request) String(field string) string {
	s, _ := r.values[field].(string)
	return s
}

func (r *Request) Time(field string) time.Time {
	t, _ := r.values[field].(time.Time)
	return t
}

// StringPtr returns nil for a field that was absent.
func (r *Request) StringPtr(field string) *string {
	s, ok := r.values[field].(string)
	if !ok {
		return nil
	}
	return &s
}

func (r *Request) TimePtr(field string) *time.Time {
	t, ok := r.values[field].(time.Time)
	if !ok {
		return nil
	}
	return &t
}

// Check inspects v and returns the value handed to the next check.
type Check func(ctx context.Context, r *Request, v any) (any, error)

// Step runs after all fields passed.
type Step func(ctx context.Context, r *Request) error

type Field struct {
	Name string
	// Header reads the Authorization header instead of the body.
	Header bool
	// Optional fields that are absent skip their checks.
	Optional bool
	// Secret fields are reported without their value.
	Secret bool
	Checks []Check
}

type Gate struct {
	Name   string
	Fields []Field
	Then   []Step
}

func (r *Request) lookup(f Field) (any, bool) {
	if f.Header {
		return r.Authorization, r.Authorization != ""
	}
	v, ok := r.Body[f.Name]
	return v, ok
}

// Run executes g against r.
func (g Gate) Run(ctx context.Context, r *Request) error {
	if r.values == nil {
		r.values = map[string]any{}
	}

	failures := map[string]apperr.FieldFailure{}

	for _, f := range g.Fields {
		raw, present := r.lookup(f)
		if !present && f.Optional {
			continue
		}

		v, ok := raw, true
		for _, check := range f.Checks {
			next, err := check(ctx, r, v)
			if err != nil {
				fe, isField := apperr.IsField(err)
				if !isField {
					return err
				}
				ff := apperr.FieldFailure{Msg: fe.Message}
				if !f.Secret {
					ff.Value = raw
				}
				failures[f.Name] = ff
				ok = false
				break
			}
			v = next
		}
		if ok {
			r.values[f.Name] = v
		}
	}

	if len(failures) > 0 {
		return &apperr.ValidationError{Fields: failures}
	}

	for _, step := range g.Then {
		if err := step(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// Chain runs gates in order and stops at the first error.
func Chain(ctx context.Context, r *Request, gates ...Gate) error {
	for _, g := range gates {
		if err := g.Run(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
