package model

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestBorrowStatusTransitions(t *testing.T) {
    allowed := []struct {
        from, to BorrowStatus
    }{
        {StatusReserved, StatusBorrowed},
        {StatusReserved, StatusExpired},
        {StatusReserved, StatusCancelled},
        {StatusBorrowed, StatusOverdue},
        {StatusBorrowed, StatusReturnRequested},
        {StatusOverdue, StatusReturnRequested},
        {StatusReturnRequested, StatusReturned},
    }
    for _, tc := range allowed {
        assert.True(t, tc.from.CanTransition(tc.to), "%s -> %s should be legal", tc.from, tc.to)
    }

    denied := []struct {
        from, to BorrowStatus
    }{
        {StatusReserved, StatusReturned},
        {StatusReserved, StatusOverdue},
        {StatusBorrowed, StatusReserved},
        {StatusBorrowed, StatusReturned}, // must pass through RETURN_REQUESTED
        {StatusBorrowed, StatusCancelled},
        {StatusOverdue, StatusBorrowed},
        {StatusOverdue, StatusExpired},
        {StatusReturnRequested, StatusBorrowed},
        {StatusReturned, StatusBorrowed},
        {StatusExpired, StatusReserved},
        {StatusCancelled, StatusReserved},
    }
    for _, tc := range denied {
        assert.False(t, tc.from.CanTransition(tc.to), "%s -> %s should be illegal", tc.from, tc.to)
    }
}

func TestBorrowStatusTerminal(t *testing.T) {
    for _, s := range []BorrowStatus{StatusReturned, StatusExpired, StatusCancelled} {
        assert.True(t, s.Terminal(), "%s is terminal", s)
        assert.False(t, s.Active(), "%s does not tie up a copy", s)
    }
    for _, s := range []BorrowStatus{StatusReserved, StatusBorrowed, StatusOverdue, StatusReturnRequested} {
        assert.False(t, s.Terminal(), "%s is not terminal", s)
        assert.True(t, s.Active(), "%s ties up a copy", s)
    }
}

func TestBorrowStatusValid(t *testing.T) {
    assert.True(t, StatusReserved.Valid())
    assert.False(t, BorrowStatus("LOST").Valid())
}

func TestValidMembershipStatus(t *testing.T) {
    assert.True(t, ValidMembershipStatus(MembershipActive))
    assert.True(t, ValidMembershipStatus(MembershipWaiting))
    assert.False(t, ValidMembershipStatus("SUSPENDED"))
}
