package lending

import (
    "context"
    "time"

    "github.com/iliyamo/library-lending/internal/model"
)

// Event kinds emitted by the engine.  One event is published for every
// borrow-record transition and every membership decision.
const (
    EventReserved        = "borrow.reserved"
    EventCollected       = "borrow.collected"
    EventReturnRequested = "borrow.return_requested"
    EventReturned        = "borrow.returned"
    EventCancelled       = "borrow.cancelled"
    EventExpired         = "borrow.expired"
    EventOverdue         = "borrow.overdue"

    EventMembershipApproved = "membership.approved"
    EventMembershipRejected = "membership.rejected"
)

// Event is a notification intent.  Delivery (queue, socket, mail) is a
// collaborator's concern; the engine only states what happened.
type Event struct {
    Kind   string              `json:"kind"`
    UserID uint64              `json:"user_id"`
    Record *model.BorrowRecord `json:"record,omitempty"`
    Reason string              `json:"reason,omitempty"`
    At     time.Time           `json:"at"`
}

// Notifier receives events fire-and-forget.  Implementations must not
// block the caller for long and must swallow delivery failures (log,
// never return them): a lost notification never rolls back a
// transition.
type Notifier interface {
    Notify(ctx context.Context, ev Event)
}

// NopNotifier discards all events.  Used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
