package lending

import (
    "context"
    "time"

    "github.com/iliyamo/library-lending/internal/model"
    "github.com/iliyamo/library-lending/internal/repository"
)

// MaxActiveBorrows caps how many non-terminal borrow records a member
// may hold at once, regardless of which books are involved.
const MaxActiveBorrows = 3

// Options carries the lending policy knobs.  Zero values fall back to
// the defaults below.
type Options struct {
    // LoanPeriodDays is the loan period applied when a librarian
    // confirms collection without an explicit override.
    LoanPeriodDays int
    // CollectionGrace is how long a member has to physically collect
    // a reserved copy before the reservation expires.
    CollectionGrace time.Duration
}

const (
    defaultLoanPeriodDays  = 14
    defaultCollectionGrace = 48 * time.Hour
)

// Service is the borrow lifecycle engine.  All mutating operations
// return a typed failure for every business-rule violation so callers
// can render a specific message; the only opaque errors are storage
// failures.
type Service struct {
    store    Store
    notifier Notifier
    opts     Options

    // now is swappable in tests; production uses UTC wall clock.
    now func() time.Time
}

// NewService builds an engine on the given store.  A nil notifier
// discards events.
func NewService(store Store, notifier Notifier, opts Options) *Service {
    if notifier == nil {
        notifier = NopNotifier{}
    }
    if opts.LoanPeriodDays <= 0 {
        opts.LoanPeriodDays = defaultLoanPeriodDays
    }
    if opts.CollectionGrace <= 0 {
        opts.CollectionGrace = defaultCollectionGrace
    }
    return &Service{
        store:    store,
        notifier: notifier,
        opts:     opts,
        now:      func() time.Time { return time.Now().UTC() },
    }
}

func (s *Service) emit(ctx context.Context, kind string, userID uint64, rec *model.BorrowRecord, reason string) {
    s.notifier.Notify(ctx, Event{
        Kind:   kind,
        UserID: userID,
        Record: rec,
        Reason: reason,
        At:     s.now(),
    })
}

// RequestBorrow starts a reservation for the user.  The eligibility
// pre-check fails fast with a precise reason; the store re-validates
// the cap and performs the authoritative conditional copy decrement
// atomically with the record insert, so a failure leaves no partial
// state behind.
func (s *Service) RequestBorrow(ctx context.Context, userID, bookID uint64) (*model.BorrowRecord, error) {
    if err := s.checkEligibility(ctx, userID, bookID); err != nil {
        return nil, err
    }
    now := s.now()
    rec, err := s.store.CreateReservation(ctx, userID, bookID, now, now.Add(s.opts.CollectionGrace), MaxActiveBorrows)
    if err != nil {
        return nil, err
    }
    s.emit(ctx, EventReserved, userID, rec, "")
    return rec, nil
}

// ConfirmCollection records that the member physically collected the
// copy.  Librarian-only.  loanDays overrides the configured loan
// period when positive; the due date is borrow date plus whole days,
// computed in UTC.
func (s *Service) ConfirmCollection(ctx context.Context, recordID uint64, loanDays int) (*model.BorrowRecord, error) {
    if loanDays <= 0 {
        loanDays = s.opts.LoanPeriodDays
    }
    now := s.now()
    rec, err := s.store.MarkCollected(ctx, recordID, now, now.Add(time.Duration(loanDays)*24*time.Hour))
    if err != nil {
        return nil, err
    }
    s.emit(ctx, EventCollected, rec.UserID, rec, "")
    return rec, nil
}

// RequestReturn records the member's intent to hand the copy back.
// Allowed from BORROWED and OVERDUE.  The copy is not released until a
// librarian verifies it with ConfirmReturn.
func (s *Service) RequestReturn(ctx context.Context, userID, recordID uint64) (*model.BorrowRecord, error) {
    if err := s.ensureOwner(ctx, userID, recordID); err != nil {
        return nil, err
    }
    rec, err := s.store.MarkReturnRequested(ctx, recordID, s.now())
    if err != nil {
        return nil, err
    }
    s.emit(ctx, EventReturnRequested, rec.UserID, rec, "")
    return rec, nil
}

// ConfirmReturn verifies the copy is back on the shelf and releases it
// to the ledger.  Librarian-only.  A second confirmation finds the
// record already RETURNED and fails with InvalidTransitionError.
func (s *Service) ConfirmReturn(ctx context.Context, recordID uint64) (*model.BorrowRecord, error) {
    rec, err := s.store.MarkReturned(ctx, recordID, s.now())
    if err != nil {
        return nil, err
    }
    s.emit(ctx, EventReturned, rec.UserID, rec, "")
    return rec, nil
}

// CancelReservation withdraws an uncollected reservation and releases
// the copy.
func (s *Service) CancelReservation(ctx context.Context, userID, recordID uint64) (*model.BorrowRecord, error) {
    if err := s.ensureOwner(ctx, userID, recordID); err != nil {
        return nil, err
    }
    rec, err := s.store.CancelReservation(ctx, recordID)
    if err != nil {
        return nil, err
    }
    s.emit(ctx, EventCancelled, rec.UserID, rec, "")
    return rec, nil
}

// ensureOwner rejects user-initiated operations on records that belong
// to somebody else.  Ownership never changes, so reading outside the
// transition transaction is safe.
func (s *Service) ensureOwner(ctx context.Context, userID, recordID uint64) error {
    rec, err := s.store.Record(ctx, recordID)
    if err != nil {
        return err
    }
    if rec.UserID != userID {
        return repository.ErrForbidden
    }
    return nil
}

// BorrowingStatus summarizes a user's standing for display and for the
// client-side borrow button state.
type BorrowingStatus struct {
    ActiveBorrows   int                  `json:"active_borrows"`
    MaxBorrows      int                  `json:"max_borrows"`
    HasOverdueBooks bool                 `json:"has_overdue_books"`
    Records         []model.BorrowRecord `json:"records"`
}

// GetBorrowingStatus returns the user's records together with the
// derived active count and overdue flag, computed from one consistent
// read.
func (s *Service) GetBorrowingStatus(ctx context.Context, userID uint64) (*BorrowingStatus, error) {
    recs, err := s.store.RecordsByUser(ctx, userID)
    if err != nil {
        return nil, err
    }
    st := &BorrowingStatus{MaxBorrows: MaxActiveBorrows, Records: recs}
    for _, rec := range recs {
        if rec.Status.Active() {
            st.ActiveBorrows++
        }
        if rec.Status == model.StatusOverdue {
            st.HasOverdueBooks = true
        }
    }
    return st, nil
}

// PendingReservations lists RESERVED records awaiting collection,
// oldest first.
func (s *Service) PendingReservations(ctx context.Context) ([]model.BorrowRecord, error) {
    return s.store.RecordsByStatus(ctx, model.StatusReserved)
}

// Record fetches a single borrow record.
func (s *Service) Record(ctx context.Context, recordID uint64) (*model.BorrowRecord, error) {
    return s.store.Record(ctx, recordID)
}

// ApproveMembership activates a user's membership.  Pure status flip;
// no ledger interaction.
func (s *Service) ApproveMembership(ctx context.Context, userID uint64) error {
    if err := s.store.SetMembership(ctx, userID, model.MembershipActive, ""); err != nil {
        return err
    }
    s.emit(ctx, EventMembershipApproved, userID, nil, "")
    return nil
}

// RejectMembership declines a membership application and records the
// reason, which travels with the notification intent for the external
// delivery collaborator.
func (s *Service) RejectMembership(ctx context.Context, userID uint64, reason string) error {
    if err := s.store.SetMembership(ctx, userID, model.MembershipRejected, reason); err != nil {
        return err
    }
    s.emit(ctx, EventMembershipRejected, userID, nil, reason)
    return nil
}
