package apperror

import "errors"

// Sentinel errors for the taxonomy handlers translate to HTTP status codes.
var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	ErrAuth        = errors.New("unauthorized")
	ErrFutureDate  = errors.New("future date")
	ErrUnavailable = errors.New("service unavailable")
)

// AppError carries a user-facing message and optional field-level detail
// alongside the sentinel it wraps.
type AppError struct {
	Err     error
	Message string
	Fields  map[string]string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(message string) *AppError {
	return &AppError{Err: ErrNotFound, Message: message}
}

// Validation reports one or more violated fields. fields maps field name
// to a human-readable message.
func Validation(message string, fields map[string]string) *AppError {
	return &AppError{Err: ErrValidation, Message: message, Fields: fields}
}

func Conflict(message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message}
}

func Auth(message string) *AppError {
	return &AppError{Err: ErrAuth, Message: message}
}

func FutureDate(message string) *AppError {
	return &AppError{Err: ErrFutureDate, Message: message}
}

func Unavailable(message string) *AppError {
	return &AppError{Err: ErrUnavailable, Message: message}
}

// FieldsOf extracts field-level messages if err is an AppError.
func FieldsOf(err error) map[string]string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}
