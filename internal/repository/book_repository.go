package repository

import (
    "context"
    "database/sql"
    "log"
    "strings"
    "time"

    "github.com/iliyamo/library-lending/internal/model"
)

// BookRepo provides data access to the books table and owns the copy
// ledger: it is the only component that mutates available_copies.
// Both ledger operations are single conditional UPDATE statements, so
// concurrent callers on the same book serialize on the row lock and
// the counter can never go negative or exceed total_copies.  All
// timestamps are stored in UTC.
type BookRepo struct {
    db *sql.DB
}

// NewBookRepo returns a new BookRepo bound to the given database.
func NewBookRepo(db *sql.DB) *BookRepo { return &BookRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span the ledger and the borrow records.
func (r *BookRepo) DB() *sql.DB { return r.db }

// Create inserts a new title with all copies available and populates
// the generated ID and timestamps on the provided model.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO books (title, author, isbn, total_copies, available_copies) VALUES (?, ?, ?, ?, ?)`,
        b.Title, b.Author, b.ISBN, b.TotalCopies, b.TotalCopies)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    b.AvailableCopies = b.TotalCopies
    return r.db.QueryRowContext(ctx,
        `SELECT created_at, updated_at FROM books WHERE id = ?`, b.ID,
    ).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetByID fetches a single book.  Returns ErrBookNotFound when no row
// exists.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (*model.Book, error) {
    const q = `SELECT id, title, author, isbn, total_copies, available_copies, created_at, updated_at
               FROM books WHERE id = ?`
    var b model.Book
    var isbn sql.NullString
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &b.ID, &b.Title, &b.Author, &isbn, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt,
    )
    if err == sql.ErrNoRows {
        return nil, ErrBookNotFound
    }
    if err != nil {
        return nil, err
    }
    if isbn.Valid {
        v := isbn.String
        b.ISBN = &v
    }
    return &b, nil
}

// List returns catalogue entries ordered by title.  The optional
// search term matches title or author with a LIKE filter.
func (r *BookRepo) List(ctx context.Context, search string) ([]model.Book, error) {
    q := `SELECT id, title, author, isbn, total_copies, available_copies, created_at, updated_at FROM books`
    args := []interface{}{}
    if s := strings.TrimSpace(search); s != "" {
        q += ` WHERE title LIKE ? OR author LIKE ?`
        like := "%" + s + "%"
        args = append(args, like, like)
    }
    q += ` ORDER BY title, id`
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    books := make([]model.Book, 0)
    for rows.Next() {
        var b model.Book
        var isbn sql.NullString
        if err := rows.Scan(&b.ID, &b.Title, &b.Author, &isbn, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt); err != nil {
            return nil, err
        }
        if isbn.Valid {
            v := isbn.String
            b.ISBN = &v
        }
        books = append(books, b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return books, nil
}

// AvailableTx reads the current copy counters within a transaction.
// Used by the eligibility pre-check; the authoritative check is
// ReserveCopyTx.
func (r *BookRepo) AvailableTx(ctx context.Context, tx *sql.Tx, bookID uint64) (available, total uint32, err error) {
    err = tx.QueryRowContext(ctx,
        `SELECT available_copies, total_copies FROM books WHERE id = ?`, bookID,
    ).Scan(&available, &total)
    if err == sql.ErrNoRows {
        return 0, 0, ErrBookNotFound
    }
    return available, total, err
}

// ReserveCopyTx commits one copy of the book to a borrow record.  The
// decrement only happens when a copy is actually free; zero affected
// rows means either the book does not exist or the last copy was taken
// by a concurrent caller, which is reported as ErrNoCopiesAvailable.
// The caller must commit or roll back the transaction together with
// the borrow record insert so no partial state is left on failure.
func (r *BookRepo) ReserveCopyTx(ctx context.Context, tx *sql.Tx, bookID uint64) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE books SET available_copies = available_copies - 1 WHERE id = ? AND available_copies > 0`,
        bookID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    var exists bool
    if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = ?)`, bookID).Scan(&exists); err != nil {
        return err
    }
    if !exists {
        return ErrBookNotFound
    }
    return ErrNoCopiesAvailable
}

// ReleaseCopyTx returns one copy of the book to the shelf.  The
// increment is capped at total_copies: a release that would exceed
// capacity indicates a bug (a release with no matching reservation),
// so the counter is left clamped and the condition is logged and
// reported as ErrLedgerInvariant instead of silently absorbed.
func (r *BookRepo) ReleaseCopyTx(ctx context.Context, tx *sql.Tx, bookID uint64) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE books SET available_copies = available_copies + 1 WHERE id = ? AND available_copies < total_copies`,
        bookID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    var exists bool
    if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE id = ?)`, bookID).Scan(&exists); err != nil {
        return err
    }
    if !exists {
        return ErrBookNotFound
    }
    log.Printf("ledger: release for book %d at %s would exceed total_copies; clamped", bookID, time.Now().UTC().Format(time.RFC3339))
    return ErrLedgerInvariant
}
