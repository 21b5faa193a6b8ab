package errs

import (
	"fmt"
	"net/http"

	"relaychat/internal/pkg/logx"
)

// CustomError is the error structure returned across the HTTP boundary.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code sent with this error.
	Status int
}

// Error implements the error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError returns a copy of the template registered for code.
// Unknown codes are logged and collapse to ErrUnknown. When cause is given for
// ErrUnknown or ErrStorageUnavailable it is logged, never exposed to the client.
func NewError(code int, cause ...error) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)
		templateErr = errorMap[ErrUnknown]
	}

	customErr := templateErr
	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	if len(cause) > 0 && cause[0] != nil && customErr.Status >= http.StatusInternalServerError {
		logx.Error(cause[0], "Internal error mapped to client response", "code", customErr.Code)
	}

	return &customErr
}
