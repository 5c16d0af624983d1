package common

// User-facing messages returned by the HTTP surface.
const (
	MsgValidationError = "Validation error"

	MsgNameIsRequired      = "Name is required"
	MsgNameMustBeString    = "Name must be a string"
	MsgNameLength          = "Name length must be from 1 to 100"
	MsgEmailAlreadyExists  = "Email already exists"
	MsgEmailIsInvalid      = "Email is invalid"
	MsgEmailIsRequired     = "Email is required"
	MsgEmailOrPasswordBad  = "Email or password is incorrect"
	MsgPasswordMustBeStr   = "Password must be a string"
	MsgPasswordIsRequired  = "Password is required"
	MsgPasswordLength      = "Password length must be from 6 to 50"
	MsgPasswordMustBeStrng = "Password must be 6-50 characters long and contain at least 1 lowercase letter, 1 uppercase letter, 1 number and 1 symbol"

	MsgConfirmPasswordIsRequired = "Confirm password is required"
	MsgConfirmPasswordMustBeStr  = "Confirm password must be a string"
	MsgConfirmPasswordLength     = "Confirm password length must be from 6 to 50"
	MsgConfirmPasswordMustBeStrg = "Confirm password must be 6-50 characters long and contain at least 1 lowercase letter, 1 uppercase letter, 1 number and 1 symbol"
	MsgConfirmPasswordMismatch   = "Confirm password must be the same as password"

	MsgDateOfBirthIsRequired = "Date of birth is required"
	MsgDateOfBirthISO8601    = "Date of birth must be ISO 8601"

	MsgAccessTokenRequired         = "Access token is required"
	MsgRefreshTokenRequired        = "Refresh token is required"
	MsgRefreshTokenInvalid         = "Refresh token is invalid"
	MsgRefreshTokenUsedOrNotFound  = "Used refresh token or not exist"
	MsgEmailVerifyTokenRequired    = "Email verify token is required"
	MsgForgotPasswordTokenRequired = "Forgot password token is required"
	MsgTokenInvalid                = "Token is invalid"
	MsgTokenExpired                = "Token is expired"
	MsgUserNotFound                = "User not found"
	MsgUserNotVerified             = "User not verified"
	MsgUserIsVerified              = "User is already verified"

	MsgBioMustBeString      = "Bio must be a string"
	MsgBioLength            = "Bio length must be from 1 to 200"
	MsgLocationMustBeString = "Location must be a string"
	MsgLocationLength       = "Location length must be from 1 to 200"
	MsgWebsiteMustBeString  = "Website must be a string"
	MsgWebsiteLength        = "Website length must be from 1 to 400"
	MsgUsernameMustBeString = "Username must be a string"
	MsgUsernameLength       = "Username length must be from 1 to 50"
	MsgImageURLMustBeString = "Image url must be a string"
	MsgImageURLLength       = "Image url length must be from 1 to 400"

	MsgLoginSuccess                = "Login success"
	MsgRegisterSuccess             = "Register success"
	MsgLogoutSuccess               = "Logout success"
	MsgEmailVerifySuccess          = "Email verify success"
	MsgEmailAlreadyVerifiedBefore  = "Email already verified before"
	MsgResendVerifyEmailSuccess    = "Resend verify email success"
	MsgCheckEmailToResetPassword   = "Check email to reset password"
	MsgVerifyForgotPasswordSuccess = "Verify forgot password success"
	MsgResetPasswordSuccess        = "Reset password success"
	MsgGetProfileSuccess           = "Get profile success"
	MsgUpdateProfileSuccess        = "Update profile success"
)
