package azureface

import "errors"

// Kind classifies a failed interaction with the Azure Face API.
type Kind string

const (
	// KindInvalidImage marks payloads rejected before any request is made.
	KindInvalidImage Kind = "invalid_image"
	// KindAuthenticationFailed marks a rejected subscription key (HTTP 401).
	KindAuthenticationFailed Kind = "authentication_failed"
	// KindQuotaExceeded marks API throttling (HTTP 429).
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindAPIError marks every other remote or transport failure.
	KindAPIError Kind = "api_error"
	// KindTrainingFailed marks a training run that ended in the failed state.
	KindTrainingFailed Kind = "training_failed"
	// KindTrainingTimeout marks a training run that outlived its deadline.
	KindTrainingTimeout Kind = "training_timeout"
)

// Error is the typed failure returned by all client and trainer operations.
// Callers branch on Kind instead of matching message text.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int // HTTP status of the remote response, 0 if none was received
}

// Error returns the human-readable failure message.
func (e *Error) Error() string {
	return e.Message
}

// newError builds a typed API error.
func newError(kind Kind, statusCode int, message string) *Error {
	return &Error{Kind: kind, Message: message, StatusCode: statusCode}
}

// KindOf extracts the failure kind from err, or "" when err does not
// originate from this package.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsKind reports whether err is an API failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
