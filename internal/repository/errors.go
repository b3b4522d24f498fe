// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and render
// a specific message for each business-rule violation. The lending
// engine never surfaces an opaque error for a rule violation.
package repository

import (
    "errors"
    "fmt"

    "github.com/iliyamo/library-lending/internal/model"
)

// ErrNoCopiesAvailable is returned when a reservation is attempted
// against a book whose available_copies counter is zero. The check is
// an atomic conditional decrement, so under concurrent requests for
// the last copy exactly one caller wins and the rest receive this
// error. Handlers should translate it into an HTTP 409 response.
var ErrNoCopiesAvailable = errors.New("no copies available")

// ErrMembershipInactive is returned when a user whose membership is
// not ACTIVE attempts to start a reservation.
var ErrMembershipInactive = errors.New("membership not active")

// ErrBorrowLimitExceeded is returned when a user already holds the
// maximum number of non-terminal borrow records.
var ErrBorrowLimitExceeded = errors.New("borrow limit exceeded")

// ErrHasOverdueBooks is returned when a user with an overdue loan
// attempts to start a new reservation.
var ErrHasOverdueBooks = errors.New("user has overdue books")

// ErrRecordNotFound is returned when a borrow record with the given ID
// does not exist. Handlers should translate this into an HTTP 404.
var ErrRecordNotFound = errors.New("borrow record not found")

// ErrBookNotFound is returned when a book with the given ID does not
// exist in the catalogue.
var ErrBookNotFound = errors.New("book not found")

// ErrUserNotFound is returned when a user with the given ID does not
// exist.
var ErrUserNotFound = errors.New("user not found")

// ErrForbidden is returned when the caller attempts an operation on a
// borrow record they do not own. Handlers should translate this into
// an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrLedgerInvariant signals that a copy release would have pushed
// available_copies past total_copies. The counter is clamped at
// capacity but the condition indicates a bug (a release with no
// matching reservation), so it is logged and reported to the caller
// rather than swallowed.
var ErrLedgerInvariant = errors.New("copy ledger invariant violation")

// InvalidTransitionError reports an attempt to move a borrow record
// along an edge that does not exist in the lifecycle, for example
// confirming a return twice or cancelling an already collected
// record. Duplicate admin clicks and retried requests land here
// instead of silently succeeding.
type InvalidTransitionError struct {
    Current   model.BorrowStatus // status the record is actually in
    Attempted model.BorrowStatus // status the caller tried to move to
}

func (e *InvalidTransitionError) Error() string {
    return fmt.Sprintf("invalid transition: record is %s, cannot move to %s", e.Current, e.Attempted)
}

// IsInvalidTransition reports whether err wraps an
// InvalidTransitionError and returns it when so.
func IsInvalidTransition(err error) (*InvalidTransitionError, bool) {
    var it *InvalidTransitionError
    if errors.As(err, &it) {
        return it, true
    }
    return nil, false
}
