// Package lending implements the borrow lifecycle engine: the
// eligibility guard, the reservation state machine, the membership
// approval workflow and the time-based expiry sweeper.  It is
// transport-agnostic; HTTP handlers call into Service and the engine
// emits notification intents through a Notifier.
package lending

import (
    "context"
    "time"

    "github.com/iliyamo/library-lending/internal/model"
)

// Store is the persistence boundary of the engine.  Every method that
// moves a borrow record is atomic: the status check, the status write
// and any copy-ledger change commit or roll back together, keyed by
// record id, so overlapping sweeps, retries and duplicate admin clicks
// can never double-release a copy.  The production implementation is
// repository.LendingStore on MySQL; tests use an in-memory fake with
// per-key locking.
type Store interface {
    // EligibilitySnapshot reads membership, borrow counts and copy
    // counters for the fail-fast pre-check.
    EligibilitySnapshot(ctx context.Context, userID, bookID uint64) (model.EligibilitySnapshot, error)

    // CreateReservation atomically re-validates membership and the
    // borrow cap, performs the conditional copy decrement and inserts
    // the RESERVED record.  On any failure no partial state remains.
    CreateReservation(ctx context.Context, userID, bookID uint64, reservedAt, deadline time.Time, maxActive int) (*model.BorrowRecord, error)

    // MarkCollected moves RESERVED to BORROWED and stamps the loan
    // dates.  No ledger change; the copy stays out.
    MarkCollected(ctx context.Context, recordID uint64, borrowDate, dueDate time.Time) (*model.BorrowRecord, error)

    // MarkReturnRequested moves BORROWED or OVERDUE to
    // RETURN_REQUESTED.  No ledger change yet.
    MarkReturnRequested(ctx context.Context, recordID uint64, at time.Time) (*model.BorrowRecord, error)

    // MarkReturned moves RETURN_REQUESTED to RETURNED and releases the
    // copy in the same transaction.
    MarkReturned(ctx context.Context, recordID uint64, at time.Time) (*model.BorrowRecord, error)

    // CancelReservation moves RESERVED to CANCELLED and releases the
    // copy in the same transaction.
    CancelReservation(ctx context.Context, recordID uint64) (*model.BorrowRecord, error)

    // ExpireReservation moves RESERVED to EXPIRED and releases the
    // copy in the same transaction.  Guarded by the source status, so
    // it is safe to call from overlapping sweep passes.
    ExpireReservation(ctx context.Context, recordID uint64) (*model.BorrowRecord, error)

    // MarkOverdue moves BORROWED to OVERDUE.  Classification only.
    MarkOverdue(ctx context.Context, recordID uint64) (*model.BorrowRecord, error)

    // ExpiredReservationIDs lists RESERVED records past their
    // collection deadline at the given instant.
    ExpiredReservationIDs(ctx context.Context, now time.Time) ([]uint64, error)

    // OverdueLoanIDs lists BORROWED records past their due date at the
    // given instant.
    OverdueLoanIDs(ctx context.Context, now time.Time) ([]uint64, error)

    Record(ctx context.Context, recordID uint64) (*model.BorrowRecord, error)
    RecordsByUser(ctx context.Context, userID uint64) ([]model.BorrowRecord, error)
    RecordsByStatus(ctx context.Context, status model.BorrowStatus) ([]model.BorrowRecord, error)

    SetMembership(ctx context.Context, userID uint64, status model.MembershipStatus, note string) error
    User(ctx context.Context, userID uint64) (model.User, error)
}
