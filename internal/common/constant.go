// Package common contains shared constants and helpers used across the
// caterauth client and the route gate.
package common

// Outbound credential headers.
const (
	// AuthorizationHeaderName carries the bearer credential on HTTP requests.
	AuthorizationHeaderName = "Authorization"
	// AuthorizationMetadataKey carries the bearer credential in gRPC metadata.
	AuthorizationMetadataKey = "authorization"
	// BearerPrefix precedes the access token in both transports.
	BearerPrefix = "Bearer "
)

// Session keys. The same names are used by the page-scoped store and by the
// cookies that server-side middleware reads.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
	RoleKey         = "role"
	PrincipalKey    = "user"
)

// CookiePath scopes session cookies to the whole site.
const CookiePath = "/"
