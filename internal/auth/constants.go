package auth

// HTTP header constants for authentication.
const (
	// HeaderAuthorization is the Authorization header name.
	HeaderAuthorization = "Authorization"

	// HeaderWWWAuthenticate is the WWW-Authenticate header name.
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// HeaderProxyAuthorization is the Proxy-Authorization header name.
	HeaderProxyAuthorization = "Proxy-Authorization"

	// HeaderContentType is the Content-Type header name.
	HeaderContentType = "Content-Type"

	// HeaderXForwardedProto is the X-Forwarded-Proto header name.
	HeaderXForwardedProto = "X-Forwarded-Proto"
)

// Content type constants.
const (
	// ContentTypeJSON is the JSON content type.
	ContentTypeJSON = "application/json"
)

// MetadataAuthorization is the gRPC metadata key carrying credentials.
// gRPC metadata keys are always lowercase.
const MetadataAuthorization = "authorization"
