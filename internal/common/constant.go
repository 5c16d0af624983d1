package common

// AuthorizationHeaderName carries the access token as "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only accepted Authorization scheme.
const BearerScheme = "Bearer"
