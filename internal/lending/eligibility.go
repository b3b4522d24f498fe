package lending

import (
    "context"

    "github.com/iliyamo/library-lending/internal/model"
    "github.com/iliyamo/library-lending/internal/repository"
)

// checkEligibility runs the guard checks in their fixed order so the
// caller always gets the most actionable reason first: membership,
// borrow cap, overdue items, then copy availability.  The availability
// check here is a non-authoritative fail-fast; the conditional
// decrement inside CreateReservation is what actually closes the race
// window on the last copy.
func (s *Service) checkEligibility(ctx context.Context, userID, bookID uint64) error {
    snap, err := s.store.EligibilitySnapshot(ctx, userID, bookID)
    if err != nil {
        return err
    }
    if snap.Membership != model.MembershipActive {
        return repository.ErrMembershipInactive
    }
    if snap.ActiveBorrows >= MaxActiveBorrows {
        return repository.ErrBorrowLimitExceeded
    }
    if snap.HasOverdue {
        return repository.ErrHasOverdueBooks
    }
    if snap.AvailableCopies == 0 {
        return repository.ErrNoCopiesAvailable
    }
    return nil
}
