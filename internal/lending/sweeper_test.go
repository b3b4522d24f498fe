package lending

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/library-lending/internal/model"
)

// flakyStore wraps the fake store and fails a configured number of
// transition calls per record, imitating transient storage errors
// (lock timeouts, dropped connections) during a sweep pass.
type flakyStore struct {
    *fakeStore
    failMu      sync.Mutex
    failExpire  map[uint64]int
    failOverdue map[uint64]int
}

func newFlakyStore(base *fakeStore) *flakyStore {
    return &flakyStore{
        fakeStore:   base,
        failExpire:  make(map[uint64]int),
        failOverdue: make(map[uint64]int),
    }
}

var errStorageHiccup = errors.New("lock wait timeout")

func (s *flakyStore) ExpireReservation(ctx context.Context, recordID uint64) (*model.BorrowRecord, error) {
    s.failMu.Lock()
    if s.failExpire[recordID] > 0 {
        s.failExpire[recordID]--
        s.failMu.Unlock()
        return nil, errStorageHiccup
    }
    s.failMu.Unlock()
    return s.fakeStore.ExpireReservation(ctx, recordID)
}

func (s *flakyStore) MarkOverdue(ctx context.Context, recordID uint64) (*model.BorrowRecord, error) {
    s.failMu.Lock()
    if s.failOverdue[recordID] > 0 {
        s.failOverdue[recordID]--
        s.failMu.Unlock()
        return nil, errStorageHiccup
    }
    s.failMu.Unlock()
    return s.fakeStore.MarkOverdue(ctx, recordID)
}

func TestSweepExpiresUncollectedReservations(t *testing.T) {
    ctx := context.Background()
    svc, store, notifier := newTestService(t)
    freeze(svc, testNow)
    store.addUser(1, model.MembershipActive)
    store.addUser(2, model.MembershipActive)
    store.addBook(10, 2)

    stale, err := svc.RequestBorrow(ctx, 1, 10)
    require.NoError(t, err)
    fresh, err := svc.RequestBorrow(ctx, 2, 10)
    require.NoError(t, err)

    // Jump past the first deadline only: shrink the stale record's
    // deadline instead of waiting.
    store.mu.Lock()
    store.records[stale.ID].CollectionDeadline = testNow.Add(-time.Minute)
    store.mu.Unlock()

    res, err := svc.SweepOnce(ctx)
    require.NoError(t, err)
    assert.Equal(t, 1, res.Expired)
    assert.Equal(t, 0, res.Overdue)
    assert.Equal(t, model.StatusExpired, store.status(stale.ID))
    assert.Equal(t, model.StatusReserved, store.status(fresh.ID))
    // the expired copy is back on the shelf, the fresh one is not
    assert.Equal(t, uint32(1), store.available(10))
    assert.Contains(t, notifier.kinds(), EventExpired)
}

func TestSweepIsIdempotent(t *testing.T) {
    ctx := context.Background()
    svc, store, _ := newTestService(t)
    freeze(svc, testNow)
    store.addUser(1, model.MembershipActive)
    store.addBook(10, 1)

    rec, err := svc.RequestBorrow(ctx, 1, 10)
    require.NoError(t, err)
    store.mu.Lock()
    store.records[rec.ID].CollectionDeadline = testNow.Add(-time.Minute)
    store.mu.Unlock()

    res, err := svc.SweepOnce(ctx)
    require.NoError(t, err)
    assert.Equal(t, 1, res.Expired)

    // A second pass over the same state must do nothing, in particular
    // it must not release the copy a second time.
    res, err = svc.SweepOnce(ctx)
    require.NoError(t, err)
    assert.Equal(t, 0, res.Expired)
    assert.Equal(t, uint32(1), store.available(10))
}

func TestSweepIsolatesPerRecordFailures(t *testing.T) {
    // One record's storage failure must not block the rest of the
    // batch, and the failed record must be picked up again on the next
    // pass.
    ctx := context.Background()
    store := newFakeStore()
    flaky := newFlakyStore(store)
    notifier := &recordingNotifier{}
    svc := NewService(flaky, notifier, Options{})
    freeze(svc, testNow)

    store.addUser(1, model.MembershipActive)
    store.addUser(2, model.MembershipActive)
    store.addBook(10, 2)

    first, err := svc.RequestBorrow(ctx, 1, 10)
    require.NoError(t, err)
    second, err := svc.RequestBorrow(ctx, 2, 10)
    require.NoError(t, err)
    store.mu.Lock()
    store.records[first.ID].CollectionDeadline = testNow.Add(-time.Minute)
    store.records[second.ID].CollectionDeadline = testNow.Add(-time.Minute)
    store.mu.Unlock()

    flaky.failExpire[first.ID] = 1

    res, err := svc.SweepOnce(ctx)
    require.NoError(t, err)
    assert.Equal(t, 1, res.Expired)
    assert.Equal(t, model.StatusReserved, store.status(first.ID))
    assert.Equal(t, model.StatusExpired, store.status(second.ID))
    assert.Equal(t, uint32(1), store.available(10))

    // Next tick retries the failed record.
    res, err = svc.SweepOnce(ctx)
    require.NoError(t, err)
    assert.Equal(t, 1, res.Expired)
    assert.Equal(t, model.StatusExpired, store.status(first.ID))
    assert.Equal(t, uint32(2), store.available(10))
}

func TestSweepIsolatesOverdueFailures(t *testing.T) {
    ctx := context.Background()
    store := newFakeStore()
    flaky := newFlakyStore(store)
    svc := NewService(flaky, nil, Options{})
    freeze(svc, testNow)

    store.addUser(1, model.MembershipActive)
    store.addUser(2, model.MembershipActive)
    store.addBook(10, 2)

    first, err := svc.RequestBorrow(ctx, 1, 10)
    require.NoError(t, err)
    second, err := svc.RequestBorrow(ctx, 2, 10)
    require.NoError(t, err)
    _, err = svc.ConfirmCollection(ctx, first.ID, 7)
    require.NoError(t, err)
    _, err = svc.ConfirmCollection(ctx, second.ID, 7)
    require.NoError(t, err)

    flaky.failOverdue[second.ID] = 1
    freeze(svc, testNow.Add(8*24*time.Hour))

    res, err := svc.SweepOnce(ctx)
    require.NoError(t, err)
    assert.Equal(t, 1, res.Overdue)
    assert.Equal(t, model.StatusOverdue, store.status(first.ID))
    assert.Equal(t, model.StatusBorrowed, store.status(second.ID))

    res, err = svc.SweepOnce(ctx)
    require.NoError(t, err)
    assert.Equal(t, 1, res.Overdue)
    assert.Equal(t, model.StatusOverdue, store.status(second.ID))
}

func TestSweepMarksOverdueLoans(t *testing.T) {
    ctx := context.Background()
    svc, store, notifier := newTestService(t)
    freeze(svc, testNow)
    store.addUser(1, model.MembershipActive)
    store.addBook(10, 1)

    rec, err := svc.RequestBorrow(ctx, 1, 10)
    require.NoError(t, err)
    rec, err = svc.ConfirmCollection(ctx, rec.ID, 7)
    require.NoError(t, err)

    // Still within the loan period: nothing to do.
    res, err := svc.SweepOnce(ctx)
    require.NoError(t, err)
    assert.Equal(t, 0, res.Overdue)

    // Strictly after the due date the loan is overdue; the copy stays
    // out so the ledger must not change.
    freeze(svc, testNow.Add(8*24*time.Hour))
    res, err = svc.SweepOnce(ctx)
    require.NoError(t, err)
    assert.Equal(t, 1, res.Overdue)
    assert.Equal(t, model.StatusOverdue, store.status(rec.ID))
    assert.Equal(t, uint32(0), store.available(10))
    assert.Contains(t, notifier.kinds(), EventOverdue)

    // Overdue records are swept once, not every pass.
    res, err = svc.SweepOnce(ctx)
    require.NoError(t, err)
    assert.Equal(t, 0, res.Overdue)
}

func TestSweeperStartStop(t *testing.T) {
    svc, _, _ := newTestService(t)
    sw := NewSweeper(svc, 50*time.Millisecond)

    assert.False(t, sw.Running())
    assert.True(t, sw.Start())
    assert.True(t, sw.Running())
    // second start is a no-op
    assert.False(t, sw.Start())

    assert.True(t, sw.Stop())
    assert.False(t, sw.Running())
    // second stop is a no-op
    assert.False(t, sw.Stop())

    // the sweeper is restartable after a stop
    assert.True(t, sw.Start())
    assert.True(t, sw.Running())
    assert.True(t, sw.Stop())
}

func TestSweeperPeriodicRun(t *testing.T) {
    ctx := context.Background()
    svc, store, _ := newTestService(t)
    freeze(svc, testNow)
    store.addUser(1, model.MembershipActive)
    store.addBook(10, 1)

    rec, err := svc.RequestBorrow(ctx, 1, 10)
    require.NoError(t, err)
    store.mu.Lock()
    store.records[rec.ID].CollectionDeadline = testNow.Add(-time.Minute)
    store.mu.Unlock()

    sw := NewSweeper(svc, 10*time.Millisecond)
    require.True(t, sw.Start())
    defer sw.Stop()

    require.Eventually(t, func() bool {
        return store.status(rec.ID) == model.StatusExpired
    }, 2*time.Second, 10*time.Millisecond)
    assert.Equal(t, uint32(1), store.available(10))
}
