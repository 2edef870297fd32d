package cli

// Error codes for structured error responses.
// These codes are stable and can be relied upon by agents.
const (
	// Config errors
	ErrConfigInvalid = "CONFIG_INVALID"
	ErrUserNotFound  = "USER_NOT_FOUND"

	// Saved query errors
	ErrQueryNotFound = "QUERY_NOT_FOUND"
	ErrQueryInvalid  = "QUERY_INVALID"
	ErrDuplicateName = "DUPLICATE_NAME"

	// Composite query errors
	ErrExtractionFailed = "EXTRACTION_FAILED"
	ErrChildQueryFailed = "CHILD_QUERY_FAILED"
	ErrEmptyResult      = "EMPTY_RESULT"
	ErrQueryTimeout     = "QUERY_TIMEOUT"

	// Data source errors
	ErrDataSourceNotFound = "DATA_SOURCE_NOT_FOUND"
	ErrDataSourceError    = "DATA_SOURCE_ERROR"
	ErrDatabaseError      = "DATABASE_ERROR"

	// File errors
	ErrFileReadError  = "FILE_READ_ERROR"
	ErrFileWriteError = "FILE_WRITE_ERROR"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning and notice codes for non-fatal outcomes.
const (
	WarnNoData    = "NO_DATA"
	WarnCancelled = "QUERY_CANCELLED"
)
