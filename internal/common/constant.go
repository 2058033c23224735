// Package common contains shared constants, error kinds and small helpers
// used across chantube components.
package common

// Cookie names used to carry the session token pair over HTTP.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)

// AuthorizationHeaderName and BearerPrefix describe the alternative way of
// presenting an access token on privileged requests.
const (
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
)
