package validation

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/accountkeeper/internal/apperr"
	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/users"
)

// Validator builds the concrete gates. Store-backed checks read through the
// transactor's plain connection.
type Validator struct {
	tokens *auth.TokenService
	hasher *cryptox.Hasher
	repos  repomanager.RepositoryManager
	tx     dbx.Transactor
	policy config.PasswordPolicy
}

func NewValidator(tokens *auth.TokenService, hasher *cryptox.Hasher, repos repomanager.RepositoryManager,
	tx dbx.Transactor, policy config.PasswordPolicy) *Validator {
	return &Validator{tokens: tokens, hasher: hasher, repos: repos, tx: tx, policy: policy}
}

func (v *Validator) users() users.Repository {
	return v.repos.Users(v.tx.Conn())
}

func (v *Validator) passwordField(name, required, notString, length, weak string) Field {
	return Field{
		Name:   name,
		Secret: true,
		Checks: []Check{
			Required(required),
			IsString(notString),
			Length(6, 50, length),
			StrongPassword(v.policy, weak),
		},
	}
}

func (v *Validator) confirmPasswordField() Field {
	f := v.passwordField("confirm_password",
		common.MsgConfirmPasswordIsRequired, common.MsgConfirmPasswordMustBeStr,
		common.MsgConfirmPasswordLength, common.MsgConfirmPasswordMustBeStrg)
	f.Checks = append(f.Checks, EqualsField("password", common.MsgConfirmPasswordMismatch))
	return f
}

func (v *Validator) newPasswordFields() []Field {
	return []Field{
		v.passwordField("password",
			common.MsgPasswordIsRequired, common.MsgPasswordMustBeStr,
			common.MsgPasswordLength, common.MsgPasswordMustBeStrng),
		v.confirmPasswordField(),
	}
}

func emailChecks() []Check {
	return []Check{
		Required(common.MsgEmailIsRequired),
		IsString(common.MsgEmailIsInvalid),
		Trim(),
		Lower(),
		Email(common.MsgEmailIsInvalid),
	}
}

// Register checks a new account.
func (v *Validator) Register() Gate {
	return Gate{
		Name: "register",
		Fields: append([]Field{
			{Name: "name", Checks: []Check{
				Required(common.MsgNameIsRequired),
				IsString(common.MsgNameMustBeString),
				Trim(),
				Length(1, 100, common.MsgNameLength),
			}},
			{Name: "email", Checks: append(emailChecks(), v.emailUnique)},
		}, append(v.newPasswordFields(),
			Field{Name: "date_of_birth", Checks: []Check{
				Required(common.MsgDateOfBirthIsRequired),
				ISODate(common.MsgDateOfBirthISO8601),
			}},
		)...),
	}
}

func (v *Validator) emailUnique(ctx context.Context, _ *Request, val any) (any, error) {
	exists, err := v.users().EmailExists(ctx, val.(string))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Field(common.MsgEmailAlreadyExists)
	}
	return val, nil
}

// Login checks credentials and attaches the matching user. Unknown email and
// wrong password fail identically.
func (v *Validator) Login() Gate {
	return Gate{
		Name: "login",
		Fields: []Field{
			{Name: "email", Checks: emailChecks()},
			{Name: "password", Secret: true, Checks: []Check{
				Required(common.MsgPasswordIsRequired),
				IsString(common.MsgPasswordMustBeStr),
				Length(6, 50, common.MsgPasswordLength),
			}},
		},
		Then: []Step{v.credentials},
	}
}

func (v *Validator) credentials(ctx context.Context, r *Request) error {
	bad := apperr.Unauthorized(common.MsgEmailOrPasswordBad)
	password := r.String("password")

	user, err := v.users().GetByEmail(ctx, r.String("email"))
	if errors.Is(err, common.ErrorNotFound) {
		v.hasher.VerifyDummy(password)
		return bad
	}
	if err != nil {
		return err
	}

	ok, err := v.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return bad
	}
	r.User = user
	return nil
}

// AccessToken requires a valid "Bearer" access token and attaches its claims.
func (v *Validator) AccessToken() Gate {
	return Gate{
		Name: "access_token",
		Fields: []Field{{Name: "authorization", Header: true, Secret: true, Checks: []Check{
			Present(apperr.Unauthorized(common.MsgAccessTokenRequired)),
			func(ctx context.Context, r *Request, val any) (any, error) {
				token, err := auth.ParseBearer(val.(string))
				if err != nil {
					return nil, apperr.Unauthorized(common.MsgAccessTokenRequired)
				}
				claims, err := v.verify(auth.AccessToken, token, common.MsgTokenInvalid)
				if err != nil {
					return nil, err
				}
				r.Access = claims
				return token, nil
			},
		}}},
	}
}

// VerifiedUser requires the access token claims to carry Verified.
// It expects AccessToken to have run.
func (v *Validator) VerifiedUser() Gate {
	return Gate{
		Name: "verified_user",
		Then: []Step{func(_ context.Context, r *Request) error {
			if r.Access == nil {
				return apperr.Unauthorized(common.MsgAccessTokenRequired)
			}
			if r.Access.Verify != models.Verified {
				return apperr.Forbidden(common.MsgUserNotVerified)
			}
			return nil
		}},
	}
}

// UnverifiedUser loads the caller and rejects accounts that are already
// verified. It expects AccessToken to have run.
func (v *Validator) UnverifiedUser() Gate {
	return Gate{
		Name: "unverified_user",
		Then: []Step{func(ctx context.Context, r *Request) error {
			if r.Access == nil {
				return apperr.Unauthorized(common.MsgAccessTokenRequired)
			}
			user, err := v.users().GetByID(ctx, r.Access.UserID)
			if errors.Is(err, common.ErrorNotFound) {
				return apperr.NotFound(common.MsgUserNotFound)
			}
			if err != nil {
				return err
			}
			if user.Verify == models.Verified {
				return apperr.NewStatus(http.StatusConflict, common.MsgUserIsVerified)
			}
			r.User = user
			return nil
		}},
	}
}

// RefreshToken requires a live refresh token in the body. A token that
// verifies but is no longer stored fails differently from a forged one.
func (v *Validator) RefreshToken() Gate {
	return Gate{
		Name: "refresh_token",
		Fields: []Field{{Name: "refresh_token", Secret: true, Checks: []Check{
			Present(apperr.Unauthorized(common.MsgRefreshTokenRequired)),
			IsString(common.MsgRefreshTokenInvalid),
			func(ctx context.Context, r *Request, val any) (any, error) {
				token := val.(string)
				claims, err := v.verify(auth.RefreshToken, token, common.MsgRefreshTokenInvalid)
				if err != nil {
					return nil, err
				}
				_, err = v.repos.RefreshTokens(v.tx.Conn()).Find(ctx, token)
				if errors.Is(err, common.ErrorNotFound) {
					return nil, apperr.Unauthorized(common.MsgRefreshTokenUsedOrNotFound)
				}
				if err != nil {
					return nil, err
				}
				r.Refresh = claims
				return token, nil
			},
		}}},
	}
}

// Logout is RefreshToken plus a check that the refresh token belongs to the
// caller. It expects AccessToken to have run.
func (v *Validator) Logout() Gate {
	g := v.RefreshToken()
	g.Name = "logout"
	g.Then = append(g.Then, func(_ context.Context, r *Request) error {
		if r.Access == nil || r.Refresh == nil || r.Access.UserID != r.Refresh.UserID {
			return apperr.Unauthorized(common.MsgRefreshTokenInvalid)
		}
		return nil
	})
	return g
}

// EmailVerifyToken checks a verification token against the stored one.
// An already consumed token on a verified account passes, so the command can
// report that the email was verified before.
func (v *Validator) EmailVerifyToken() Gate {
	return Gate{
		Name: "email_verify_token",
		Fields: []Field{{Name: "email_verify_token", Secret: true, Checks: []Check{
			Present(apperr.Unauthorized(common.MsgEmailVerifyTokenRequired)),
			IsString(common.MsgTokenInvalid),
			func(ctx context.Context, r *Request, val any) (any, error) {
				token := val.(string)
				claims, err := v.verify(auth.EmailVerifyToken, token, common.MsgTokenInvalid)
				if err != nil {
					return nil, err
				}
				user, err := v.users().GetByID(ctx, claims.UserID)
				if errors.Is(err, common.ErrorNotFound) {
					return nil, apperr.NotFound(common.MsgUserNotFound)
				}
				if err != nil {
					return nil, err
				}
				if user.EmailVerifyToken != token && !(user.EmailVerifyToken == "" && user.Verify == models.Verified) {
					return nil, apperr.Unauthorized(common.MsgTokenInvalid)
				}
				r.EmailVerify = claims
				r.User = user
				return token, nil
			},
		}}},
	}
}

// ForgotPassword requires the email of an existing account.
func (v *Validator) ForgotPassword() Gate {
	return Gate{
		Name: "forgot_password",
		Fields: []Field{{Name: "email", Checks: append(emailChecks(),
			func(ctx context.Context, r *Request, val any) (any, error) {
				user, err := v.users().GetByEmail(ctx, val.(string))
				if errors.Is(err, common.ErrorNotFound) {
					return nil, apperr.Field(common.MsgUserNotFound)
				}
				if err != nil {
					return nil, err
				}
				r.User = user
				return val, nil
			},
		)}},
	}
}

func (v *Validator) forgotPasswordTokenField() Field {
	return Field{Name: "forgot_password_token", Secret: true, Checks: []Check{
		Present(apperr.Unauthorized(common.MsgForgotPasswordTokenRequired)),
		IsString(common.MsgTokenInvalid),
		func(ctx context.Context, r *Request, val any) (any, error) {
			token := val.(string)
			claims, err := v.verify(auth.ForgotPasswordToken, token, common.MsgTokenInvalid)
			if err != nil {
				return nil, err
			}
			user, err := v.users().GetByID(ctx, claims.UserID)
			if errors.Is(err, common.ErrorNotFound) {
				return nil, apperr.Unauthorized(common.MsgUserNotFound)
			}
			if err != nil {
				return nil, err
			}
			if user.ForgotPasswordToken == "" || user.ForgotPasswordToken != token {
				return nil, apperr.Unauthorized(common.MsgTokenInvalid)
			}
			r.ForgotPassword = claims
			r.User = user
			return token, nil
		},
	}}
}

// ForgotPasswordToken accepts only the most recently issued, unconsumed
// reset token.
func (v *Validator) ForgotPasswordToken() Gate {
	return Gate{
		Name:   "forgot_password_token",
		Fields: []Field{v.forgotPasswordTokenField()},
	}
}

// ResetPassword is ForgotPasswordToken plus the new password pair.
func (v *Validator) ResetPassword() Gate {
	return Gate{
		Name:   "reset_password",
		Fields: append([]Field{v.forgotPasswordTokenField()}, v.newPasswordFields()...),
	}
}

func optionalText(name string, max int, notString, length string) Field {
	return Field{Name: name, Optional: true, Checks: []Check{
		IsString(notString),
		Trim(),
		Length(1, max, length),
	}}
}

// UpdateMe checks a partial profile. Absent fields are skipped.
func (v *Validator) UpdateMe() Gate {
	return Gate{
		Name: "update_me",
		Fields: []Field{
			optionalText("name", 100, common.MsgNameMustBeString, common.MsgNameLength),
			{Name: "date_of_birth", Optional: true, Checks: []Check{ISODate(common.MsgDateOfBirthISO8601)}},
			optionalText("bio", 200, common.MsgBioMustBeString, common.MsgBioLength),
			optionalText("location", 200, common.MsgLocationMustBeString, common.MsgLocationLength),
			optionalText("website", 400, common.MsgWebsiteMustBeString, common.MsgWebsiteLength),
			optionalText("username", 50, common.MsgUsernameMustBeString, common.MsgUsernameLength),
			optionalText("avatar", 400, common.MsgImageURLMustBeString, common.MsgImageURLLength),
			optionalText("cover_photo", 400, common.MsgImageURLMustBeString, common.MsgImageURLLength),
		},
	}
}

// Patch converts the fields UpdateMe accepted into a ProfilePatch.
func (r *Request) Patch() models.ProfilePatch {
	return models.ProfilePatch{
		Name:        r.StringPtr("name"),
		DateOfBirth: r.TimePtr("date_of_birth"),
		Bio:         r.StringPtr("bio"),
		Location:    r.StringPtr("location"),
		Website:     r.StringPtr("website"),
		Username:    r.StringPtr("username"),
		Avatar:      r.StringPtr("avatar"),
		CoverPhoto:  r.StringPtr("cover_photo"),
	}
}

// verify maps token failures to 401 responses. Expiry has its own message;
// every other failure reports invalid.
func (v *Validator) verify(kind auth.Kind, token, invalid string) (*auth.Claims, error) {
	claims, err := v.tokens.Verify(kind, token)
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, auth.ErrTokenExpired):
		return nil, apperr.Unauthorized(common.MsgTokenExpired)
	default:
		return nil, apperr.Unauthorized(invalid)
	}
}
