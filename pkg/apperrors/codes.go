package apperrors

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	// System errors
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"
	CodeStorageIO     ErrorCode = "STORAGE_IO_ERROR"

	// Business logic errors
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	CodeTranscodeFailed   ErrorCode = "TRANSCODE_FAILED"
	CodeSecurityViolation ErrorCode = "SECURITY_VIOLATION"

	// Share tokens
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired ErrorCode = "TOKEN_EXPIRED"
)
