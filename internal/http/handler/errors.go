package handler

const (
	errInternalServer     = "Internal server error"
	errServiceUnavailable = "Service unavailable, please retry"
	errUnauthorized       = "Unauthorized"
	errTokenInvalid       = "Token is invalid or expired"
	errInvalidCredentials = "Invalid email or password"
	errEmailTaken         = "An account with this email already exists"
	errWeakPassword       = "Password must be between 8 and 72 characters"
	errLinkInvalid        = "That link is invalid or has expired. Request a new one."
	errClientNotFound     = "Client not found"
	errNotFound           = "Page not found"
)

// Query value of ?error= on the login page after a failed link exchange.
const loginErrLinkInvalid = "link_invalid"
