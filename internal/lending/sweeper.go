package lending

import (
    "context"
    "log"
    "sync"
    "time"

    "github.com/iliyamo/library-lending/internal/repository"
)

// SweepResult reports what one pass did.
type SweepResult struct {
    Expired int `json:"expired"`
    Overdue int `json:"overdue"`
}

// SweepOnce runs one reconciliation pass: reservations past their
// collection deadline become EXPIRED and give their copy back;
// collected loans past their due date become OVERDUE (no ledger
// change).  Each record is its own atomic unit — one record's failure
// is logged and does not block the rest of the batch, and because
// every transition is status-guarded the whole pass is idempotent and
// safe to retry or to overlap with a concurrent pass.
func (s *Service) SweepOnce(ctx context.Context) (SweepResult, error) {
    var res SweepResult
    now := s.now()

    expired, err := s.store.ExpiredReservationIDs(ctx, now)
    if err != nil {
        return res, err
    }
    for _, id := range expired {
        rec, err := s.store.ExpireReservation(ctx, id)
        if err != nil {
            if _, ok := repository.IsInvalidTransition(err); ok {
                // Another pass or a manual cancel/collect got there
                // first; nothing left to do for this record.
                continue
            }
            log.Printf("sweep: expire record %d: %v", id, err)
            continue
        }
        res.Expired++
        s.emit(ctx, EventExpired, rec.UserID, rec, "")
    }

    overdue, err := s.store.OverdueLoanIDs(ctx, now)
    if err != nil {
        return res, err
    }
    for _, id := range overdue {
        rec, err := s.store.MarkOverdue(ctx, id)
        if err != nil {
            if _, ok := repository.IsInvalidTransition(err); ok {
                continue
            }
            log.Printf("sweep: mark record %d overdue: %v", id, err)
            continue
        }
        res.Overdue++
        s.emit(ctx, EventOverdue, rec.UserID, rec, "")
    }
    return res, nil
}

// Sweeper schedules SweepOnce on a fixed interval in a background
// goroutine.  Start and Stop are librarian-exposed, idempotent and
// restartable; Stop lets an in-flight pass finish before returning.
type Sweeper struct {
    svc      *Service
    interval time.Duration

    mu      sync.Mutex
    stop    chan struct{}
    stopped chan struct{}
}

const defaultSweepInterval = 5 * time.Minute

// NewSweeper builds a sweeper around the engine.  A non-positive
// interval falls back to the default.
func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
    if interval <= 0 {
        interval = defaultSweepInterval
    }
    return &Sweeper{svc: svc, interval: interval}
}

// Start launches the periodic run.  Returns false when the sweeper is
// already running.
func (w *Sweeper) Start() bool {
    w.mu.Lock()
    defer w.mu.Unlock()
    if w.stop != nil {
        return false
    }
    w.stop = make(chan struct{})
    w.stopped = make(chan struct{})
    go w.run(w.stop, w.stopped)
    log.Printf("sweeper: started (interval=%s)", w.interval)
    return true
}

// Stop halts scheduling and waits for any in-flight pass to finish.
// Returns false when the sweeper is not running.  The sweeper can be
// started again afterwards.
func (w *Sweeper) Stop() bool {
    w.mu.Lock()
    stop, stopped := w.stop, w.stopped
    w.stop, w.stopped = nil, nil
    w.mu.Unlock()
    if stop == nil {
        return false
    }
    close(stop)
    <-stopped
    log.Printf("sweeper: stopped")
    return true
}

// Running reports whether the periodic run is active.
func (w *Sweeper) Running() bool {
    w.mu.Lock()
    defer w.mu.Unlock()
    return w.stop != nil
}

func (w *Sweeper) run(stop <-chan struct{}, stopped chan<- struct{}) {
    defer close(stopped)
    ticker := time.NewTicker(w.interval)
    defer ticker.Stop()
    for {
        select {
        case <-stop:
            return
        case <-ticker.C:
            // The pass runs on its own deadline, detached from the
            // stop signal, so shutdown finishes in-flight work.
            ctx, cancel := context.WithTimeout(context.Background(), w.interval)
            res, err := w.svc.SweepOnce(ctx)
            cancel()
            if err != nil {
                log.Printf("sweeper: pass failed: %v", err)
                continue
            }
            if res.Expired > 0 || res.Overdue > 0 {
                log.Printf("sweeper: pass done (expired=%d overdue=%d)", res.Expired, res.Overdue)
            }
        }
    }
}
