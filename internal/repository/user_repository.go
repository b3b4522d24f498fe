package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"

    "github.com/iliyamo/library-lending/internal/model"
    "github.com/iliyamo/library-lending/internal/utils"
)

// UserRepo provides data access to the users table, including the
// membership standing consumed by the eligibility guard.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts a user and returns its ID.  New members start in
// WAITING_FOR_APPROVAL so a librarian has to approve the membership
// before the first borrow; librarians are created ACTIVE.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    membership := model.MembershipWaiting
    if role == "LIBRARIAN" {
        membership = model.MembershipActive
    }
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO users (email, password_hash, role, membership_status) VALUES (?,?,?,?)",
        email, hash, role, string(membership))
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

const userColumns = `id, email, password_hash, role, membership_status, membership_note, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (model.User, error) {
    var u model.User
    var status string
    var note sql.NullString
    err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &status, &note, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    if err != nil {
        return u, err
    }
    u.MembershipStatus = model.MembershipStatus(status)
    if !model.ValidMembershipStatus(u.MembershipStatus) {
        return u, fmt.Errorf("user %d: unknown membership status %q", u.ID, status)
    }
    if note.Valid {
        v := note.String
        u.MembershipNote = &v
    }
    return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    return scanUser(r.DB.QueryRowContext(ctx,
        `SELECT `+userColumns+` FROM users WHERE email=? LIMIT 1`, email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    u, err := scanUser(r.DB.QueryRowContext(ctx,
        `SELECT `+userColumns+` FROM users WHERE id=? LIMIT 1`, id))
    if err == sql.ErrNoRows {
        return u, ErrUserNotFound
    }
    return u, err
}

// MembershipStatusTx reads the user's standing inside a transaction
// with a row lock.  The lock serializes concurrent reservation
// attempts by the same user, so the borrow-cap count that follows is
// taken from a consistent snapshot.
func (r *UserRepo) MembershipStatusTx(ctx context.Context, tx *sql.Tx, userID uint64) (model.MembershipStatus, error) {
    var status string
    err := tx.QueryRowContext(ctx,
        `SELECT membership_status FROM users WHERE id=? FOR UPDATE`, userID).Scan(&status)
    if err == sql.ErrNoRows {
        return "", ErrUserNotFound
    }
    if err != nil {
        return "", err
    }
    return model.MembershipStatus(status), nil
}

// SetMembership flips the user's standing and records the decision
// note.  Pure status flip; the copy ledger is never involved.
func (r *UserRepo) SetMembership(ctx context.Context, userID uint64, status model.MembershipStatus, note string) error {
    var noteArg interface{}
    if strings.TrimSpace(note) != "" {
        noteArg = note
    }
    res, err := r.DB.ExecContext(ctx,
        `UPDATE users SET membership_status=?, membership_note=? WHERE id=?`,
        string(status), noteArg, userID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // RowsAffected is also zero when the row already holds the
        // same values, so distinguish a missing user explicitly.
        var exists bool
        if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id=?)`, userID).Scan(&exists); err != nil {
            return err
        }
        if !exists {
            return ErrUserNotFound
        }
    }
    return nil
}

// ListByMembership returns users in the given standing, oldest first,
// which is the order a librarian works through the approval queue.
func (r *UserRepo) ListByMembership(ctx context.Context, status model.MembershipStatus) ([]model.User, error) {
    rows, err := r.DB.QueryContext(ctx,
        `SELECT `+userColumns+` FROM users WHERE membership_status=? ORDER BY created_at, id`,
        string(status))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    users := make([]model.User, 0)
    for rows.Next() {
        u, err := scanUser(rows)
        if err != nil {
            return nil, err
        }
        users = append(users, u)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return users, nil
}
