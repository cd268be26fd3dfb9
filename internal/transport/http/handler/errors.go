package handler

const (
	errInternalServer = "Internal server error"
	errInvalidEmail   = "A valid email address is required"
	errLinkInvalid    = "Token is invalid or expired"
	errUnauthorized   = "Unauthorized"
)
