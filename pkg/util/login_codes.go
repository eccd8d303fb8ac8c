package util

// LoginErrorCode is the public reason carried back to the login route after a
// failed browser login. Values are stable query-string tokens.
type LoginErrorCode string

const (
	LoginErrMissingToken       LoginErrorCode = "missing_token"
	LoginErrInvalidToken       LoginErrorCode = "invalid_token"
	LoginErrUserNotFound       LoginErrorCode = "user_not_found"
	LoginErrSessionError       LoginErrorCode = "session_error"
	LoginErrSystemError        LoginErrorCode = "system_error"
	LoginErrInvalidCredentials LoginErrorCode = "invalid_credentials"
)

// LoginErrorCodes lists every code in display order.
var LoginErrorCodes = []LoginErrorCode{
	LoginErrMissingToken,
	LoginErrInvalidToken,
	LoginErrUserNotFound,
	LoginErrSessionError,
	LoginErrSystemError,
	LoginErrInvalidCredentials,
}

// ParseLoginErrorCode maps a query value back onto the enumeration.
func ParseLoginErrorCode(raw string) (LoginErrorCode, bool) {
	for _, code := range LoginErrorCodes {
		if string(code) == raw {
			return code, true
		}
	}
	return "", false
}

// Message returns the user-facing text for the code.
func (c LoginErrorCode) Message() string {
	switch c {
	case LoginErrMissingToken:
		return "The login link is incomplete. Please start again from the store admin."
	case LoginErrInvalidToken:
		return "The login link is invalid or has expired. Please start again from the store admin."
	case LoginErrUserNotFound:
		return "No dashboard account is linked to your store account. Contact an administrator."
	case LoginErrSessionError:
		return "We could not start your session. Please try again."
	case LoginErrSystemError:
		return "Something went wrong while signing you in. Please try again later."
	case LoginErrInvalidCredentials:
		return "Username or password is incorrect."
	default:
		return ""
	}
}
