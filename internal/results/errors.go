package results

import (
	"errors"
	"fmt"
)

// User-facing messages for the two non-failure outcomes of a run.
const (
	NoDataMessage    = "Query completed but it returned no data."
	CancelledMessage = "Query cancelled by user."
)

var (
	// ErrNoData is returned when the composite statement has no result shape,
	// for example a CREATE TABLE.
	ErrNoData = errors.New(NoDataMessage)

	// ErrCancelled is returned when the caller's context ends during a run.
	ErrCancelled = errors.New(CancelledMessage)
)

// ExtractionError reports SQL that could not be tokenized or a malformed
// query reference. No child query has run when it is returned.
type ExtractionError struct {
	Pos int
	Msg string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid query reference at offset %d: %s: %v", e.Pos, e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid query reference at offset %d: %s", e.Pos, e.Msg)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NotFoundError reports a referenced query that does not exist or that the
// requesting user may not load.
type NotFoundError struct {
	QueryID int
	Err     error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("query %d not found", e.QueryID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ChildQueryExecutionError reports a referenced query that failed to run.
// Index is the reference's position in extraction order.
type ChildQueryExecutionError struct {
	Index   int
	QueryID int
	Err     error
}

func (e *ChildQueryExecutionError) Error() string {
	return fmt.Sprintf("failed loading results for query id %d (reference %d): %v", e.QueryID, e.Index+1, e.Err)
}

func (e *ChildQueryExecutionError) Unwrap() error { return e.Err }

// EmptyResultError reports a referenced query whose result has no columns.
type EmptyResultError struct {
	Index   int
	QueryID int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("query %d (reference %d) returned no columns", e.QueryID, e.Index+1)
}
