package lending

import (
    "context"
    "sync"
    "time"

    "github.com/iliyamo/library-lending/internal/model"
    "github.com/iliyamo/library-lending/internal/repository"
)

// fakeStore is an in-memory Store with the same atomicity contract as
// the MySQL implementation: every method holds the lock for its whole
// critical section, so concurrent callers observe check-and-set
// semantics on statuses and on the copy ledger.
type fakeStore struct {
    mu      sync.Mutex
    users   map[uint64]model.User
    books   map[uint64]*model.Book
    records map[uint64]*model.BorrowRecord
    nextID  uint64
}

func newFakeStore() *fakeStore {
    return &fakeStore{
        users:   make(map[uint64]model.User),
        books:   make(map[uint64]*model.Book),
        records: make(map[uint64]*model.BorrowRecord),
    }
}

func (f *fakeStore) addUser(id uint64, status model.MembershipStatus) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.users[id] = model.User{ID: id, MembershipStatus: status, Role: "MEMBER"}
}

func (f *fakeStore) addBook(id uint64, copies uint32) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.books[id] = &model.Book{ID: id, TotalCopies: copies, AvailableCopies: copies}
}

func (f *fakeStore) available(bookID uint64) uint32 {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.books[bookID].AvailableCopies
}

func (f *fakeStore) status(recID uint64) model.BorrowStatus {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.records[recID].Status
}

func clone(rec *model.BorrowRecord) *model.BorrowRecord {
    c := *rec
    return &c
}

func (f *fakeStore) activeCountLocked(userID uint64) int {
    n := 0
    for _, r := range f.records {
        if r.UserID == userID && r.Status.Active() {
            n++
        }
    }
    return n
}

func (f *fakeStore) hasOverdueLocked(userID uint64) bool {
    for _, r := range f.records {
        if r.UserID == userID && r.Status == model.StatusOverdue {
            return true
        }
    }
    return false
}

func (f *fakeStore) EligibilitySnapshot(_ context.Context, userID, bookID uint64) (model.EligibilitySnapshot, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    u, ok := f.users[userID]
    if !ok {
        return model.EligibilitySnapshot{}, repository.ErrUserNotFound
    }
    b, ok := f.books[bookID]
    if !ok {
        return model.EligibilitySnapshot{}, repository.ErrBookNotFound
    }
    return model.EligibilitySnapshot{
        Membership:      u.MembershipStatus,
        ActiveBorrows:   f.activeCountLocked(userID),
        HasOverdue:      f.hasOverdueLocked(userID),
        AvailableCopies: b.AvailableCopies,
        TotalCopies:     b.TotalCopies,
    }, nil
}

func (f *fakeStore) CreateReservation(_ context.Context, userID, bookID uint64, reservedAt, deadline time.Time, maxActive int) (*model.BorrowRecord, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    u, ok := f.users[userID]
    if !ok {
        return nil, repository.ErrUserNotFound
    }
    if u.MembershipStatus != model.MembershipActive {
        return nil, repository.ErrMembershipInactive
    }
    if f.activeCountLocked(userID) >= maxActive {
        return nil, repository.ErrBorrowLimitExceeded
    }
    if f.hasOverdueLocked(userID) {
        return nil, repository.ErrHasOverdueBooks
    }
    b, ok := f.books[bookID]
    if !ok {
        return nil, repository.ErrBookNotFound
    }
    if b.AvailableCopies == 0 {
        return nil, repository.ErrNoCopiesAvailable
    }
    b.AvailableCopies--
    f.nextID++
    rec := &model.BorrowRecord{
        ID:                 f.nextID,
        BookID:             bookID,
        UserID:             userID,
        Status:             model.StatusReserved,
        ReservedAt:         reservedAt.UTC(),
        CollectionDeadline: deadline.UTC(),
        CreatedAt:          reservedAt.UTC(),
        UpdatedAt:          reservedAt.UTC(),
    }
    f.records[rec.ID] = rec
    return clone(rec), nil
}

func (f *fakeStore) transition(recordID uint64, from []model.BorrowStatus, to model.BorrowStatus, releaseCopy bool, stamp func(*model.BorrowRecord)) (*model.BorrowRecord, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    rec, ok := f.records[recordID]
    if !ok {
        return nil, repository.ErrRecordNotFound
    }
    legal := false
    for _, s := range from {
        if rec.Status == s {
            legal = true
        }
    }
    if !legal {
        return nil, &repository.InvalidTransitionError{Current: rec.Status, Attempted: to}
    }
    if releaseCopy {
        b := f.books[rec.BookID]
        if b.AvailableCopies >= b.TotalCopies {
            return nil, repository.ErrLedgerInvariant
        }
        b.AvailableCopies++
    }
    rec.Status = to
    rec.UpdatedAt = time.Now().UTC()
    if stamp != nil {
        stamp(rec)
    }
    return clone(rec), nil
}

func (f *fakeStore) MarkCollected(_ context.Context, recordID uint64, borrowDate, dueDate time.Time) (*model.BorrowRecord, error) {
    bd, dd := borrowDate.UTC(), dueDate.UTC()
    return f.transition(recordID, []model.BorrowStatus{model.StatusReserved}, model.StatusBorrowed, false,
        func(r *model.BorrowRecord) {
            r.BorrowDate = &bd
            r.DueDate = &dd
        })
}

func (f *fakeStore) MarkReturnRequested(_ context.Context, recordID uint64, at time.Time) (*model.BorrowRecord, error) {
    t := at.UTC()
    return f.transition(recordID, []model.BorrowStatus{model.StatusBorrowed, model.StatusOverdue}, model.StatusReturnRequested, false,
        func(r *model.BorrowRecord) { r.ReturnRequestedAt = &t })
}

func (f *fakeStore) MarkReturned(_ context.Context, recordID uint64, at time.Time) (*model.BorrowRecord, error) {
    t := at.UTC()
    return f.transition(recordID, []model.BorrowStatus{model.StatusReturnRequested}, model.StatusReturned, true,
        func(r *model.BorrowRecord) { r.ReturnDate = &t })
}

func (f *fakeStore) CancelReservation(_ context.Context, recordID uint64) (*model.BorrowRecord, error) {
    return f.transition(recordID, []model.BorrowStatus{model.StatusReserved}, model.StatusCancelled, true, nil)
}

func (f *fakeStore) ExpireReservation(_ context.Context, recordID uint64) (*model.BorrowRecord, error) {
    return f.transition(recordID, []model.BorrowStatus{model.StatusReserved}, model.StatusExpired, true, nil)
}

func (f *fakeStore) MarkOverdue(_ context.Context, recordID uint64) (*model.BorrowRecord, error) {
    return f.transition(recordID, []model.BorrowStatus{model.StatusBorrowed}, model.StatusOverdue, false, nil)
}

func (f *fakeStore) ExpiredReservationIDs(_ context.Context, now time.Time) ([]uint64, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    ids := make([]uint64, 0)
    for _, r := range f.records {
        if r.Status == model.StatusReserved && r.CollectionDeadline.Before(now) {
            ids = append(ids, r.ID)
        }
    }
    return ids, nil
}

func (f *fakeStore) OverdueLoanIDs(_ context.Context, now time.Time) ([]uint64, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    ids := make([]uint64, 0)
    for _, r := range f.records {
        if r.Status == model.StatusBorrowed && r.DueDate != nil && r.DueDate.Before(now) {
            ids = append(ids, r.ID)
        }
    }
    return ids, nil
}

func (f *fakeStore) Record(_ context.Context, recordID uint64) (*model.BorrowRecord, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    rec, ok := f.records[recordID]
    if !ok {
        return nil, repository.ErrRecordNotFound
    }
    return clone(rec), nil
}

func (f *fakeStore) RecordsByUser(_ context.Context, userID uint64) ([]model.BorrowRecord, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    recs := make([]model.BorrowRecord, 0)
    for _, r := range f.records {
        if r.UserID == userID {
            recs = append(recs, *r)
        }
    }
    return recs, nil
}

func (f *fakeStore) RecordsByStatus(_ context.Context, status model.BorrowStatus) ([]model.BorrowRecord, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    recs := make([]model.BorrowRecord, 0)
    for _, r := range f.records {
        if r.Status == status {
            recs = append(recs, *r)
        }
    }
    return recs, nil
}

func (f *fakeStore) SetMembership(_ context.Context, userID uint64, status model.MembershipStatus, note string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    u, ok := f.users[userID]
    if !ok {
        return repository.ErrUserNotFound
    }
    u.MembershipStatus = status
    if note != "" {
        u.MembershipNote = &note
    }
    f.users[userID] = u
    return nil
}

func (f *fakeStore) User(_ context.Context, userID uint64) (model.User, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    u, ok := f.users[userID]
    if !ok {
        return model.User{}, repository.ErrUserNotFound
    }
    return u, nil
}

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
    mu     sync.Mutex
    events []Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.events = append(n.events, ev)
}

func (n *recordingNotifier) kinds() []string {
    n.mu.Lock()
    defer n.mu.Unlock()
    out := make([]string, len(n.events))
    for i, ev := range n.events {
        out[i] = ev.Kind
    }
    return out
}
