package repository

import (
    "context"
    "database/sql"
    "fmt"
    "time"

    "github.com/iliyamo/library-lending/internal/model"
)

// BorrowRepo provides data access to the borrow_records table.  Every
// status mutation is a guarded UPDATE whose WHERE clause names the
// required source status, so a record can make each transition exactly
// once no matter how many callers race for it.  Records are never
// deleted; terminal rows remain as borrowing history.  All timestamps
// are stored in UTC.
type BorrowRepo struct {
    db *sql.DB
}

// NewBorrowRepo returns a new BorrowRepo bound to the provided database.
func NewBorrowRepo(db *sql.DB) *BorrowRepo { return &BorrowRepo{db: db} }

const borrowColumns = `id, book_id, user_id, status, reserved_at, collection_deadline,
       borrow_date, due_date, return_requested_at, return_date, created_at, updated_at`

func scanBorrow(row interface{ Scan(...interface{}) error }) (*model.BorrowRecord, error) {
    var rec model.BorrowRecord
    var status string
    var borrowDate, dueDate, returnReq, returnDate sql.NullTime
    err := row.Scan(
        &rec.ID, &rec.BookID, &rec.UserID, &status, &rec.ReservedAt, &rec.CollectionDeadline,
        &borrowDate, &dueDate, &returnReq, &returnDate, &rec.CreatedAt, &rec.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    rec.Status = model.BorrowStatus(status)
    if !rec.Status.Valid() {
        return nil, fmt.Errorf("borrow record %d: unknown status %q", rec.ID, status)
    }
    if borrowDate.Valid {
        t := borrowDate.Time
        rec.BorrowDate = &t
    }
    if dueDate.Valid {
        t := dueDate.Time
        rec.DueDate = &t
    }
    if returnReq.Valid {
        t := returnReq.Time
        rec.ReturnRequestedAt = &t
    }
    if returnDate.Valid {
        t := returnDate.Time
        rec.ReturnDate = &t
    }
    return &rec, nil
}

// CreateReservedTx inserts a new record in RESERVED state within the
// scope of an existing transaction and populates the generated ID and
// timestamps.  The caller pairs this with BookRepo.ReserveCopyTx in
// the same transaction so the ledger decrement and the record insert
// commit or roll back together.
func (r *BorrowRepo) CreateReservedTx(ctx context.Context, tx *sql.Tx, rec *model.BorrowRecord) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO borrow_records (book_id, user_id, status, reserved_at, collection_deadline)
         VALUES (?, ?, ?, ?, ?)`,
        rec.BookID, rec.UserID, string(model.StatusReserved),
        rec.ReservedAt.UTC(), rec.CollectionDeadline.UTC())
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    rec.ID = uint64(id)
    rec.Status = model.StatusReserved
    return tx.QueryRowContext(ctx,
        `SELECT created_at, updated_at FROM borrow_records WHERE id = ?`, rec.ID,
    ).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

// GetByID fetches a single record.  Returns ErrRecordNotFound when no
// row exists.
func (r *BorrowRepo) GetByID(ctx context.Context, id uint64) (*model.BorrowRecord, error) {
    rec, err := scanBorrow(r.db.QueryRowContext(ctx,
        `SELECT `+borrowColumns+` FROM borrow_records WHERE id = ?`, id))
    if err == sql.ErrNoRows {
        return nil, ErrRecordNotFound
    }
    return rec, err
}

// GetForUpdateTx fetches a record with a row lock so that a manual
// confirm/cancel and a sweep pass touching the same record serialize
// instead of interleaving.  Returns ErrRecordNotFound when no row
// exists.
func (r *BorrowRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.BorrowRecord, error) {
    rec, err := scanBorrow(tx.QueryRowContext(ctx,
        `SELECT `+borrowColumns+` FROM borrow_records WHERE id = ? FOR UPDATE`, id))
    if err == sql.ErrNoRows {
        return nil, ErrRecordNotFound
    }
    return rec, err
}

// transitionTx runs a guarded status UPDATE and reports whether the
// row actually moved.  Zero affected rows means the record was not in
// the required source status when the UPDATE ran.
func (r *BorrowRepo) transitionTx(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) (bool, error) {
    res, err := tx.ExecContext(ctx, query, args...)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// MarkCollectedTx moves RESERVED to BORROWED, starting the loan clock.
func (r *BorrowRepo) MarkCollectedTx(ctx context.Context, tx *sql.Tx, id uint64, borrowDate, dueDate time.Time) (bool, error) {
    return r.transitionTx(ctx, tx,
        `UPDATE borrow_records SET status = ?, borrow_date = ?, due_date = ? WHERE id = ? AND status = ?`,
        string(model.StatusBorrowed), borrowDate.UTC(), dueDate.UTC(), id, string(model.StatusReserved))
}

// MarkReturnRequestedTx moves BORROWED or OVERDUE to RETURN_REQUESTED.
// The copy is not yet back on the shelf, so there is no ledger change.
func (r *BorrowRepo) MarkReturnRequestedTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) (bool, error) {
    return r.transitionTx(ctx, tx,
        `UPDATE borrow_records SET status = ?, return_requested_at = ? WHERE id = ? AND status IN (?, ?)`,
        string(model.StatusReturnRequested), at.UTC(), id,
        string(model.StatusBorrowed), string(model.StatusOverdue))
}

// MarkReturnedTx moves RETURN_REQUESTED to RETURNED.  The caller
// releases the copy in the same transaction.
func (r *BorrowRepo) MarkReturnedTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) (bool, error) {
    return r.transitionTx(ctx, tx,
        `UPDATE borrow_records SET status = ?, return_date = ? WHERE id = ? AND status = ?`,
        string(model.StatusReturned), at.UTC(), id, string(model.StatusReturnRequested))
}

// MarkCancelledTx moves RESERVED to CANCELLED.  The caller releases
// the copy in the same transaction.
func (r *BorrowRepo) MarkCancelledTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    return r.transitionTx(ctx, tx,
        `UPDATE borrow_records SET status = ? WHERE id = ? AND status = ?`,
        string(model.StatusCancelled), id, string(model.StatusReserved))
}

// MarkExpiredTx moves RESERVED to EXPIRED.  The guard on the source
// status makes the sweep idempotent: an overlapping pass or a retry
// finds zero affected rows and does not release the copy twice.
func (r *BorrowRepo) MarkExpiredTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    return r.transitionTx(ctx, tx,
        `UPDATE borrow_records SET status = ? WHERE id = ? AND status = ?`,
        string(model.StatusExpired), id, string(model.StatusReserved))
}

// MarkOverdueTx moves BORROWED to OVERDUE.  Classification only; the
// copy stays checked out so the ledger is untouched.
func (r *BorrowRepo) MarkOverdueTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    return r.transitionTx(ctx, tx,
        `UPDATE borrow_records SET status = ? WHERE id = ? AND status = ?`,
        string(model.StatusOverdue), id, string(model.StatusBorrowed))
}

// ExpiredReservationIDs lists RESERVED records whose collection
// deadline has passed.  Read outside any transaction; the per-record
// guarded transition is what makes acting on a stale list safe.
func (r *BorrowRepo) ExpiredReservationIDs(ctx context.Context, now time.Time) ([]uint64, error) {
    return r.idList(ctx,
        `SELECT id FROM borrow_records WHERE status = ? AND collection_deadline < ? ORDER BY id`,
        string(model.StatusReserved), now.UTC())
}

// OverdueLoanIDs lists BORROWED records whose due date has passed.
func (r *BorrowRepo) OverdueLoanIDs(ctx context.Context, now time.Time) ([]uint64, error) {
    return r.idList(ctx,
        `SELECT id FROM borrow_records WHERE status = ? AND due_date IS NOT NULL AND due_date < ? ORDER BY id`,
        string(model.StatusBorrowed), now.UTC())
}

func (r *BorrowRepo) idList(ctx context.Context, query string, args ...interface{}) ([]uint64, error) {
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    ids := make([]uint64, 0)
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return ids, nil
}

// CountActiveTx returns how many non-terminal records the user holds.
// Runs inside the reservation transaction so the borrow cap is checked
// against a consistent snapshot, not an as-you-go tally.
func (r *BorrowRepo) CountActiveTx(ctx context.Context, tx *sql.Tx, userID uint64) (int, error) {
    var n int
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM borrow_records WHERE user_id = ? AND status IN (?, ?, ?, ?)`,
        userID,
        string(model.StatusReserved), string(model.StatusBorrowed),
        string(model.StatusOverdue), string(model.StatusReturnRequested),
    ).Scan(&n)
    return n, err
}

// HasOverdueTx reports whether the user currently holds an OVERDUE
// record.
func (r *BorrowRepo) HasOverdueTx(ctx context.Context, tx *sql.Tx, userID uint64) (bool, error) {
    var exists bool
    err := tx.QueryRowContext(ctx,
        `SELECT EXISTS(SELECT 1 FROM borrow_records WHERE user_id = ? AND status = ?)`,
        userID, string(model.StatusOverdue),
    ).Scan(&exists)
    return exists, err
}

// ListByUser returns all of the user's borrow records, newest first.
func (r *BorrowRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BorrowRecord, error) {
    return r.list(ctx,
        `SELECT `+borrowColumns+` FROM borrow_records WHERE user_id = ? ORDER BY reserved_at DESC, id DESC`,
        userID)
}

// ListByStatus returns all records in the given status, oldest first,
// which is the order a librarian works through pending reservations.
func (r *BorrowRepo) ListByStatus(ctx context.Context, status model.BorrowStatus) ([]model.BorrowRecord, error) {
    return r.list(ctx,
        `SELECT `+borrowColumns+` FROM borrow_records WHERE status = ? ORDER BY reserved_at, id`,
        string(status))
}

func (r *BorrowRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.BorrowRecord, error) {
    rows, err := r.db.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    recs := make([]model.BorrowRecord, 0)
    for rows.Next() {
        rec, err := scanBorrow(rows)
        if err != nil {
            return nil, err
        }
        recs = append(recs, *rec)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return recs, nil
}
