package model

import "time"

// Book represents a title in the library catalogue.  A title owns a
// fixed number of physical copies; availability is tracked as a
// counter rather than per-copy rows.  The invariant
// 0 <= available_copies <= total_copies must hold at all times and
// only the copy ledger (BookRepo) is allowed to move the counter.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – book title.
//  Author          – author name.
//  ISBN            – unique ISBN, optional.
//  TotalCopies     – fixed number of physical copies owned.
//  AvailableCopies – copies not committed to an active borrow record.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Book struct {
    ID              uint64    // books.id
    Title           string    // books.title
    Author          string    // books.author
    ISBN            *string   // books.isbn (nullable)
    TotalCopies     uint32    // books.total_copies
    AvailableCopies uint32    // books.available_copies
    CreatedAt       time.Time // books.created_at
    UpdatedAt       time.Time // books.updated_at
}
