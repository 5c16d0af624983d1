package models

import (
	"fmt"
	"time"
)

// VerifyStatus is the email verification state of an account.
// The only transition is Unverified -> Verified.
type VerifyStatus int

const (
	Unverified VerifyStatus = iota
	Verified
)

func (s VerifyStatus) String() string {
	switch s {
	case Unverified:
		return "Unverified"
	case Verified:
		return "Verified"
	}
	return fmt.Sprintf("VerifyStatus(%d)", int(s))
}

func (s VerifyStatus) MarshalText() ([]byte, error) {
	if s != Unverified && s != Verified {
		return nil, fmt.Errorf("unknown verify status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *VerifyStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Unverified":
		*s = Unverified
	case "Verified":
		*s = Verified
	default:
		return fmt.Errorf("unknown verify status %q", b)
	}
	return nil
}

// User is the stored account record. PasswordHash and the two one-time
// token fields never leave the server; use Profile for responses.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	DateOfBirth  time.Time
	Verify       VerifyStatus

	// Empty means nothing is pending.
	EmailVerifyToken    string
	ForgotPasswordToken string

	Bio        string
	Location   string
	Website    string
	Username   string
	Avatar     string
	CoverPhoto string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the client-facing projection of a User.
type Profile struct {
	ID          string       `json:"_id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	DateOfBirth time.Time    `json:"date_of_birth"`
	Verify      VerifyStatus `json:"verify"`
	Bio         string       `json:"bio"`
	Location    string       `json:"location"`
	Website     string       `json:"website"`
	Username    string       `json:"username"`
	Avatar      string       `json:"avatar"`
	CoverPhoto  string       `json:"cover_photo"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Profile strips credentials and token fields from u.
func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		DateOfBirth: u.DateOfBirth,
		Verify:      u.Verify,
		Bio:         u.Bio,
		Location:    u.Location,
		Website:     u.Website,
		Username:    u.Username,
		Avatar:      u.Avatar,
		CoverPhoto:  u.CoverPhoto,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// ProfilePatch is a partial profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	Name        *string
	DateOfBirth *time.Time
	Bio         *string
	Location    *string
	Website     *string
	Username    *string
	Avatar      *string
	CoverPhoto  *string
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.DateOfBirth == nil && p.Bio == nil && p.Location == nil &&
		p.Website == nil && p.Username == nil && p.Avatar == nil && p.CoverPhoto == nil
}

// Apply copies the present fields of p onto u. Timestamps are the caller's concern.
func (p ProfilePatch) Apply(u *User) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&u.Name, p.Name)
	set(&u.Bio, p.Bio)
	set(&u.Location, p.Location)
	set(&u.Website, p.Website)
	set(&u.Username, p.Username)
	set(&u.Avatar, p.Avatar)
	set(&u.CoverPhoto, p.CoverPhoto)
	if p.DateOfBirth != nil {
		u.DateOfBirth = *p.DateOfBirth
	}
}
