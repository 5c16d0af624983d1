package validation

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/accountkeeper/internal/apperr"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Present fails with err when the value is missing, null or an empty string.
func Present(err error) Check {
	return func(_ context.Context, _ *Request, v any) (any, error) {
		if v == nil {
			return nil, err
		}
		if s, ok := v.(string); ok && s == "" {
			return nil, err
		}
		return v, nil
	}
}

// Required is Present with a field failure.
func Required(msg string) Check {
	return Present(apperr.Field(msg))
}

// IsString fails unless v is a JSON string.
func IsString(msg string) Check {
	return func(_ context.Context, _ *Request, v any) (any, error) {
		if _, ok := v.(string); !ok {
			return nil, apperr.Field(msg)
		}
		return v, nil
	}
}

// Trim strips surrounding whitespace from strings.
func Trim() Check {
	return func(_ context.Context, _ *Request, v any) (any, error) {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s), nil
		}
		return v, nil
	}
}

// Lower lower-cases strings.
func Lower() Check {
	return func(_ context.Context, _ *Request, v any) (any, error) {
		if s, ok := v.(string); ok {
			return strings.ToLower(s), nil
		}
		return v, nil
	}
}

// Rules applies ozzo-validation rules and reports any violation as msg.
func Rules(msg string, rules ...validation.Rule) Check {
	return func(_ context.Context, _ *Request, v any) (any, error) {
		if err := validation.Validate(v, rules...); err != nil {
			return nil, apperr.Field(msg)
		}
		return v, nil
	}
}

// Length bounds the rune length of a string. Empty strings fail too.
func Length(min, max int, msg string) Check {
	return Rules(msg, validation.Required, validation.RuneLength(min, max))
}

// Email fails unless v is a well-formed address.
func Email(msg string) Check {
	return Rules(msg, validation.Required, is.Email)
}

// StrongPassword enforces p.
func StrongPassword(p config.PasswordPolicy, msg string) Check {
	return Rules(msg, validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if !MeetsPolicy(p, s) {
			return apperr.Field(msg)
		}
		return nil
	}))
}

// MeetsPolicy counts character classes in s against p.
// Anything that is neither a letter nor a digit counts as a symbol.
func MeetsPolicy(p config.PasswordPolicy, s string) bool {
	var length, lower, upper, number, symbol int
	for _, c := range s {
		length++
		switch {
		case unicode.IsLower(c):
			lower++
		case unicode.IsUpper(c):
			upper++
		case unicode.IsDigit(c):
			number++
		case !unicode.IsLetter(c):
			symbol++
		}
	}
	return length >= p.MinLength &&
		lower >= p.MinLowercase &&
		upper >= p.MinUppercase &&
		number >= p.MinNumbers &&
		symbol >= p.MinSymbols
}

// EqualsField fails unless v equals the raw body value of other.
func EqualsField(other, msg string) Check {
	return func(_ context.Context, r *Request, v any) (any, error) {
		if v != r.Body[other] {
			return nil, apperr.Field(msg)
		}
		return v, nil
	}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseISO8601 accepts calendar dates and date-times with an optional zone.
// Out-of-range components such as February 30 are rejected. Values without
// a zone are taken as UTC.
func ParseISO8601(s string) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ISODate converts a string to time.Time.
func ISODate(msg string) Check {
	return func(_ context.Context, _ *Request, v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, apperr.Field(msg)
		}
		t, ok := ParseISO8601(s)
		if !ok {
			return nil, apperr.Field(msg)
		}
		return t, nil
	}
}
