package apierr

import "fmt"

// Error codes surfaced to clients. Validation and generation failures are the
// two classifications a stream consumer can distinguish; the rest map to
// standard HTTP statuses.
const (
	CodeValidation        = "validation_error"
	CodeNotFound          = "not_found"
	CodeGeneration        = "generation_error"
	CodeSourceUnavailable = "source_unavailable"
	CodeCacheCompute      = "cache_compute_error"
	CodeInternal          = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(err error) *Error {
	return &Error{Status: 400, Code: CodeValidation, Err: err}
}

func NotFound(err error) *Error {
	return &Error{Status: 404, Code: CodeNotFound, Err: err}
}
