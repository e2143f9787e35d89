package newsroom

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSignedOut is returned when an authorized call is attempted without a
	// token.
	ErrSignedOut = errors.New("unauthorized for authorized call")

	// ErrUnauthorized is returned on a 401 response. Sign in again.
	ErrUnauthorized = errors.New("you need to sign in again")

	// ErrPendingApproval is returned on a 403 response.
	ErrPendingApproval = errors.New("approval for usage is not yet given")
)

// defaultErrorDetail is shown when the server gives no reason.
const defaultErrorDetail = "Something in the request is wrong."

// APIError is a non-2xx response other than 401 and 403.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Detail, e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether repeating the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// errorBody covers both error shapes seen in the wild: FastAPI style
// {"detail": "..."} and {"error": {"code": "...", "message": "..."}}.
type errorBody struct {
	Detail any `json:"detail"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (b errorBody) message() string {
	if detail, ok := b.Detail.(string); ok && detail != "" {
		return detail
	}
	if b.Error != nil && b.Error.Message != "" {
		return b.Error.Message
	}
	return defaultErrorDetail
}

// IsAuthError reports whether err means the session cannot be used as is.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrPendingApproval) ||
		errors.Is(err, ErrSignedOut)
}
