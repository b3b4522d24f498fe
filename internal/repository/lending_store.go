package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/library-lending/internal/model"
)

// LendingStore composes the book, borrow and user repositories into
// the atomic operations the lending engine needs.  Every lifecycle
// move runs in one transaction: the record row is locked, the status
// is check-and-set with a guarded UPDATE, and any ledger change
// commits with it.  Per-book serialization comes from the row lock on
// the conditional counter UPDATE; per-record serialization from
// SELECT ... FOR UPDATE on the borrow row; unrelated books and records
// proceed in parallel.
type LendingStore struct {
    db      *sql.DB
    books   *BookRepo
    borrows *BorrowRepo
    users   *UserRepo
}

// NewLendingStore wires the repositories over one database handle.
func NewLendingStore(db *sql.DB, books *BookRepo, borrows *BorrowRepo, users *UserRepo) *LendingStore {
    return &LendingStore{db: db, books: books, borrows: borrows, users: users}
}

// EligibilitySnapshot reads the guard facts in a single read-only
// transaction so they describe one instant.
func (s *LendingStore) EligibilitySnapshot(ctx context.Context, userID, bookID uint64) (model.EligibilitySnapshot, error) {
    var snap model.EligibilitySnapshot
    tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
    if err != nil {
        return snap, err
    }
    defer func() { _ = tx.Rollback() }()

    var status string
    if err := tx.QueryRowContext(ctx, `SELECT membership_status FROM users WHERE id=?`, userID).Scan(&status); err != nil {
        if err == sql.ErrNoRows {
            return snap, ErrUserNotFound
        }
        return snap, err
    }
    snap.Membership = model.MembershipStatus(status)
    if snap.ActiveBorrows, err = s.borrows.CountActiveTx(ctx, tx, userID); err != nil {
        return snap, err
    }
    if snap.HasOverdue, err = s.borrows.HasOverdueTx(ctx, tx, userID); err != nil {
        return snap, err
    }
    if snap.AvailableCopies, snap.TotalCopies, err = s.books.AvailableTx(ctx, tx, bookID); err != nil {
        return snap, err
    }
    return snap, tx.Commit()
}

// CreateReservation performs the authoritative reservation sequence:
// lock the user row, re-validate membership and the borrow cap against
// that consistent snapshot, conditionally decrement the copy counter
// and insert the RESERVED record.  Any failure rolls the whole
// transaction back so the ledger and the record never diverge.
func (s *LendingStore) CreateReservation(ctx context.Context, userID, bookID uint64, reservedAt, deadline time.Time, maxActive int) (*model.BorrowRecord, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    membership, err := s.users.MembershipStatusTx(ctx, tx, userID)
    if err != nil {
        return nil, err
    }
    if membership != model.MembershipActive {
        return nil, ErrMembershipInactive
    }
    active, err := s.borrows.CountActiveTx(ctx, tx, userID)
    if err != nil {
        return nil, err
    }
    if active >= maxActive {
        return nil, ErrBorrowLimitExceeded
    }
    overdue, err := s.borrows.HasOverdueTx(ctx, tx, userID)
    if err != nil {
        return nil, err
    }
    if overdue {
        return nil, ErrHasOverdueBooks
    }
    if err := s.books.ReserveCopyTx(ctx, tx, bookID); err != nil {
        return nil, err
    }
    rec := &model.BorrowRecord{
        BookID:             bookID,
        UserID:             userID,
        ReservedAt:         reservedAt.UTC(),
        CollectionDeadline: deadline.UTC(),
    }
    if err := s.borrows.CreateReservedTx(ctx, tx, rec); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return rec, nil
}

// transition is the shared shape of every lifecycle move: lock the
// record, attempt the guarded update, optionally release the copy,
// commit.  When the guarded update touches no row the record was not
// in the required source status, which is reported as
// InvalidTransitionError carrying the actual current status.
func (s *LendingStore) transition(
    ctx context.Context,
    recordID uint64,
    attempted model.BorrowStatus,
    update func(tx *sql.Tx) (bool, error),
    releaseCopy bool,
    stamp func(rec *model.BorrowRecord),
) (*model.BorrowRecord, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    rec, err := s.borrows.GetForUpdateTx(ctx, tx, recordID)
    if err != nil {
        return nil, err
    }
    moved, err := update(tx)
    if err != nil {
        return nil, err
    }
    if !moved {
        return nil, &InvalidTransitionError{Current: rec.Status, Attempted: attempted}
    }
    if releaseCopy {
        if err := s.books.ReleaseCopyTx(ctx, tx, rec.BookID); err != nil {
            return nil, err
        }
    }
    rec.Status = attempted
    if stamp != nil {
        stamp(rec)
    }
    // The guarded UPDATE bumped updated_at; re-read it so the returned
    // record reflects the row as committed, not the pre-lock snapshot.
    if err := tx.QueryRowContext(ctx,
        `SELECT updated_at FROM borrow_records WHERE id = ?`, recordID,
    ).Scan(&rec.UpdatedAt); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return rec, nil
}

// MarkCollected moves RESERVED to BORROWED and stamps the loan dates.
func (s *LendingStore) MarkCollected(ctx context.Context, recordID uint64, borrowDate, dueDate time.Time) (*model.BorrowRecord, error) {
    borrowDate, dueDate = borrowDate.UTC(), dueDate.UTC()
    return s.transition(ctx, recordID, model.StatusBorrowed,
        func(tx *sql.Tx) (bool, error) {
            return s.borrows.MarkCollectedTx(ctx, tx, recordID, borrowDate, dueDate)
        },
        false,
        func(rec *model.BorrowRecord) {
            rec.BorrowDate = &borrowDate
            rec.DueDate = &dueDate
        })
}

// MarkReturnRequested moves BORROWED or OVERDUE to RETURN_REQUESTED.
func (s *LendingStore) MarkReturnRequested(ctx context.Context, recordID uint64, at time.Time) (*model.BorrowRecord, error) {
    at = at.UTC()
    return s.transition(ctx, recordID, model.StatusReturnRequested,
        func(tx *sql.Tx) (bool, error) {
            return s.borrows.MarkReturnRequestedTx(ctx, tx, recordID, at)
        },
        false,
        func(rec *model.BorrowRecord) { rec.ReturnRequestedAt = &at })
}

// MarkReturned moves RETURN_REQUESTED to RETURNED and releases the
// copy in the same transaction.
func (s *LendingStore) MarkReturned(ctx context.Context, recordID uint64, at time.Time) (*model.BorrowRecord, error) {
    at = at.UTC()
    return s.transition(ctx, recordID, model.StatusReturned,
        func(tx *sql.Tx) (bool, error) {
            return s.borrows.MarkReturnedTx(ctx, tx, recordID, at)
        },
        true,
        func(rec *model.BorrowRecord) { rec.ReturnDate = &at })
}

// CancelReservation moves RESERVED to CANCELLED and releases the copy.
func (s *LendingStore) CancelReservation(ctx context.Context, recordID uint64) (*model.BorrowRecord, error) {
    return s.transition(ctx, recordID, model.StatusCancelled,
        func(tx *sql.Tx) (bool, error) {
            return s.borrows.MarkCancelledTx(ctx, tx, recordID)
        },
        true, nil)
}

// ExpireReservation moves RESERVED to EXPIRED and releases the copy.
// The status guard means a record makes this move exactly once, so an
// overlapping sweep pass cannot double-release.
func (s *LendingStore) ExpireReservation(ctx context.Context, recordID uint64) (*model.BorrowRecord, error) {
    return s.transition(ctx, recordID, model.StatusExpired,
        func(tx *sql.Tx) (bool, error) {
            return s.borrows.MarkExpiredTx(ctx, tx, recordID)
        },
        true, nil)
}

// MarkOverdue moves BORROWED to OVERDUE.  No ledger change.
func (s *LendingStore) MarkOverdue(ctx context.Context, recordID uint64) (*model.BorrowRecord, error) {
    return s.transition(ctx, recordID, model.StatusOverdue,
        func(tx *sql.Tx) (bool, error) {
            return s.borrows.MarkOverdueTx(ctx, tx, recordID)
        },
        false, nil)
}

// ExpiredReservationIDs lists reservations past their collection
// deadline.
func (s *LendingStore) ExpiredReservationIDs(ctx context.Context, now time.Time) ([]uint64, error) {
    return s.borrows.ExpiredReservationIDs(ctx, now)
}

// OverdueLoanIDs lists loans past their due date.
func (s *LendingStore) OverdueLoanIDs(ctx context.Context, now time.Time) ([]uint64, error) {
    return s.borrows.OverdueLoanIDs(ctx, now)
}

// Record fetches one borrow record.
func (s *LendingStore) Record(ctx context.Context, recordID uint64) (*model.BorrowRecord, error) {
    return s.borrows.GetByID(ctx, recordID)
}

// RecordsByUser returns the user's borrow history, newest first.
func (s *LendingStore) RecordsByUser(ctx context.Context, userID uint64) ([]model.BorrowRecord, error) {
    return s.borrows.ListByUser(ctx, userID)
}

// RecordsByStatus returns records in one status, oldest first.
func (s *LendingStore) RecordsByStatus(ctx context.Context, status model.BorrowStatus) ([]model.BorrowRecord, error) {
    return s.borrows.ListByStatus(ctx, status)
}

// SetMembership flips a user's membership standing.
func (s *LendingStore) SetMembership(ctx context.Context, userID uint64, status model.MembershipStatus, note string) error {
    return s.users.SetMembership(ctx, userID, status, note)
}

// User fetches one user.
func (s *LendingStore) User(ctx context.Context, userID uint64) (model.User, error) {
    return s.users.GetByID(ctx, userID)
}
