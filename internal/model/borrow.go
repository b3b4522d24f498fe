package model

import "time"

// BorrowStatus enumerates the states of a borrow record.  The value is
// stored as a string enum column in the borrow_records table.  All
// status mutations go through status-guarded updates in the repository
// layer; the transition table below is the single definition of which
// edges exist.
type BorrowStatus string

const (
    StatusReserved        BorrowStatus = "RESERVED"         // copy held, waiting for physical collection
    StatusBorrowed        BorrowStatus = "BORROWED"         // collected, loan clock running
    StatusOverdue         BorrowStatus = "OVERDUE"          // past due date, copy still out
    StatusReturnRequested BorrowStatus = "RETURN_REQUESTED" // member handed the copy back, pending verification
    StatusReturned        BorrowStatus = "RETURNED"         // verified back on the shelf (terminal)
    StatusExpired         BorrowStatus = "EXPIRED"          // never collected before the deadline (terminal)
    StatusCancelled       BorrowStatus = "CANCELLED"        // member withdrew the reservation (terminal)
)

// borrowTransitions maps each status to the set of statuses it may
// move to.  Terminal statuses have no outgoing edges.
var borrowTransitions = map[BorrowStatus][]BorrowStatus{
    StatusReserved:        {StatusBorrowed, StatusExpired, StatusCancelled},
    StatusBorrowed:        {StatusOverdue, StatusReturnRequested},
    StatusOverdue:         {StatusReturnRequested},
    StatusReturnRequested: {StatusReturned},
    StatusReturned:        {},
    StatusExpired:         {},
    StatusCancelled:       {},
}

// CanTransition reports whether moving from one status to another is a
// legal edge of the lifecycle.
func (s BorrowStatus) CanTransition(to BorrowStatus) bool {
    for _, t := range borrowTransitions[s] {
        if t == to {
            return true
        }
    }
    return false
}

// Terminal reports whether the status permits no further transitions.
// Terminal records are kept forever as borrowing history.
func (s BorrowStatus) Terminal() bool {
    return len(borrowTransitions[s]) == 0
}

// Active reports whether the record still ties up a physical copy.
// Active records count against the member's borrow limit and against
// the book's available_copies invariant.
func (s BorrowStatus) Active() bool {
    switch s {
    case StatusReserved, StatusBorrowed, StatusOverdue, StatusReturnRequested:
        return true
    }
    return false
}

// Valid reports whether the string value is a known status.  Used when
// scanning rows so a bad enum value never travels silently.
func (s BorrowStatus) Valid() bool {
    _, ok := borrowTransitions[s]
    return ok
}

// EligibilitySnapshot bundles the facts the eligibility guard needs
// about one user and one book, read together so the decision is not
// vulnerable to concurrent updates between individual reads.
type EligibilitySnapshot struct {
    Membership      MembershipStatus // user's current standing
    ActiveBorrows   int              // non-terminal records held by the user
    HasOverdue      bool             // whether any of them is OVERDUE
    AvailableCopies uint32           // book's uncommitted copies
    TotalCopies     uint32           // book's fixed copy count
}

// BorrowRecord tracks one copy of one book through the lending
// lifecycle for one user.  Records are created in RESERVED and are
// never deleted; timestamps are filled in as the record advances.
// All timestamps are UTC.  The struct is serialized as-is in API
// responses, hence the JSON tags.
//
// Fields:
//  ID                 – primary key identifier.
//  BookID             – book whose copy is committed.
//  UserID             – member holding the record.
//  Status             – current lifecycle status.
//  ReservedAt         – when the reservation was created.
//  CollectionDeadline – reserved_at plus the configured grace window.
//  BorrowDate         – set when collection is confirmed.
//  DueDate            – borrow_date plus the loan period.
//  ReturnRequestedAt  – set when the member requests return.
//  ReturnDate         – set when the return is verified.
type BorrowRecord struct {
    ID                 uint64       `json:"id"`                            // borrow_records.id
    BookID             uint64       `json:"book_id"`                       // borrow_records.book_id
    UserID             uint64       `json:"user_id"`                       // borrow_records.user_id
    Status             BorrowStatus `json:"status"`                        // borrow_records.status
    ReservedAt         time.Time    `json:"reserved_at"`                   // borrow_records.reserved_at
    CollectionDeadline time.Time    `json:"collection_deadline"`           // borrow_records.collection_deadline
    BorrowDate         *time.Time   `json:"borrow_date,omitempty"`         // borrow_records.borrow_date (nullable)
    DueDate            *time.Time   `json:"due_date,omitempty"`            // borrow_records.due_date (nullable)
    ReturnRequestedAt  *time.Time   `json:"return_requested_at,omitempty"` // borrow_records.return_requested_at (nullable)
    ReturnDate         *time.Time   `json:"return_date,omitempty"`         // borrow_records.return_date (nullable)
    CreatedAt          time.Time    `json:"created_at"`                    // borrow_records.created_at
    UpdatedAt          time.Time    `json:"updated_at"`                    // borrow_records.updated_at
}
