package common

// AccessTokenHeaderName is the gRPC metadata key that carries the access token.
const AccessTokenHeaderName = "access_token"

// Cookie names set by the HTTP boundary.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// gRPC identity service.
const (
	IdentityServiceName = "exampleapi.v1.Identity"
	WhoAmIMethod        = "/" + IdentityServiceName + "/WhoAmI"
)
