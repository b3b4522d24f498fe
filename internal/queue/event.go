// Package queue defines message payloads exchanged over the message broker.
package queue

// LendingEvent is published for every borrow-record transition and every
// membership decision. It carries enough information for downstream
// consumers to log or notify without querying the primary database.
type LendingEvent struct {
    Kind       string `json:"kind"`
    UserID     uint64 `json:"user_id"`
    RecordID   uint64 `json:"record_id,omitempty"`
    BookID     uint64 `json:"book_id,omitempty"`
    Status     string `json:"status,omitempty"`
    DueDate    string `json:"due_date,omitempty"`
    Reason     string `json:"reason,omitempty"`
    OccurredAt string `json:"occurred_at"`
}
