package repository

import (
    "database/sql"
    "fmt"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/library-lending/internal/model"
)

// stubRow feeds canned column values into the scan helpers, in the
// column order the queries select.  A nil value leaves nullable
// destinations invalid.
type stubRow struct {
    vals []interface{}
}

func (r stubRow) Scan(dest ...interface{}) error {
    if len(dest) != len(r.vals) {
        return fmt.Errorf("stub row: %d destinations, %d values", len(dest), len(r.vals))
    }
    for i, d := range dest {
        if r.vals[i] == nil {
            continue
        }
        switch p := d.(type) {
        case *uint64:
            *p = r.vals[i].(uint64)
        case *string:
            *p = r.vals[i].(string)
        case *bool:
            *p = r.vals[i].(bool)
        case *time.Time:
            *p = r.vals[i].(time.Time)
        case *sql.NullTime:
            *p = sql.NullTime{Time: r.vals[i].(time.Time), Valid: true}
        case *sql.NullString:
            *p = sql.NullString{String: r.vals[i].(string), Valid: true}
        default:
            return fmt.Errorf("stub row: unsupported destination %T", d)
        }
    }
    return nil
}

func borrowRow(status string) stubRow {
    at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
    return stubRow{vals: []interface{}{
        uint64(7), uint64(10), uint64(1), status, at, at.Add(48 * time.Hour),
        nil, nil, nil, nil, at, at,
    }}
}

func TestScanBorrowValidatesStatus(t *testing.T) {
    rec, err := scanBorrow(borrowRow("BORROWED"))
    require.NoError(t, err)
    assert.Equal(t, model.StatusBorrowed, rec.Status)
    assert.Nil(t, rec.DueDate)

    // A row holding a value outside the lifecycle enum must not travel
    // silently.
    _, err = scanBorrow(borrowRow("LOST"))
    require.Error(t, err)
    assert.Contains(t, err.Error(), "LOST")
}

func userRow(status string) stubRow {
    at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
    return stubRow{vals: []interface{}{
        uint64(1), "member@example.com", "hash", "MEMBER", status, nil, true, at, at,
    }}
}

func TestScanUserValidatesMembershipStatus(t *testing.T) {
    u, err := scanUser(userRow("ACTIVE"))
    require.NoError(t, err)
    assert.Equal(t, model.MembershipActive, u.MembershipStatus)
    assert.Nil(t, u.MembershipNote)

    _, err = scanUser(userRow("SUSPENDED"))
    require.Error(t, err)
    assert.Contains(t, err.Error(), "SUSPENDED")
}
