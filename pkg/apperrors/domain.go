package apperrors

import (
	"net/http"
)

// Factories for the error classes the media pipeline produces.

// ErrNotFound converts a repository miss (e.g. gorm.ErrRecordNotFound)
// into a client-facing 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrSecurity marks a path that resolved outside the storage root.
// Fatal to the operation, never auto-corrected.
func ErrSecurity(message string) *AppError {
	return New(CodeSecurityViolation, "storage", message, http.StatusForbidden)
}

// ErrTranscode wraps corrupt or unsupported image input. Surfaced to
// clients as a validation-class failure.
func ErrTranscode(err error) *AppError {
	return Wrap(err, CodeTranscodeFailed, "transcoder", "Unsupported or corrupt image data", http.StatusUnprocessableEntity)
}

// ErrStorageIO wraps disk failures (full disk, permissions).
func ErrStorageIO(err error) *AppError {
	return Wrap(err, CodeStorageIO, "storage", "Storage operation failed", http.StatusInternalServerError)
}

// ErrInvalidToken is returned for unknown tokens or target mismatches.
var ErrInvalidToken = New(
	CodeInvalidToken,
	"share",
	"Share token is invalid",
	http.StatusUnauthorized,
)

// ErrTokenExpired is returned when a token is past its expiry.
var ErrTokenExpired = New(
	CodeTokenExpired,
	"share",
	"Share token has expired",
	http.StatusUnauthorized,
)

// ErrUnsupportedMediaType rejects non-image uploads before any I/O.
var ErrUnsupportedMediaType = New(
	CodeValidationFailed,
	"upload",
	"Only image uploads are accepted",
	http.StatusBadRequest,
)
