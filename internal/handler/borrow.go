package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-lending/internal/lending"
    "github.com/iliyamo/library-lending/internal/repository"
)

// BorrowHandler exposes the member-facing borrow lifecycle endpoints.
type BorrowHandler struct {
    Svc *lending.Service
}

func NewBorrowHandler(svc *lending.Service) *BorrowHandler {
    return &BorrowHandler{Svc: svc}
}

type borrowReq struct {
    BookID uint64 `json:"book_id"`
}

// currentUserID pulls the authenticated user's ID out of the context
// where the JWT middleware stored it.  The sub claim arrives as a JSON
// number (float64) or occasionally as a string.
func currentUserID(c echo.Context) (uint64, bool) {
    switch v := c.Get("user_id").(type) {
    case float64:
        return uint64(v), true
    case string:
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            return n, true
        }
    case uint64:
        return v, true
    }
    return 0, false
}

// lendingErrorResponse maps engine failures onto HTTP responses with a
// machine-readable reason code, so clients can render the exact
// refusal instead of a generic message.
func lendingErrorResponse(c echo.Context, err error) error {
    switch err {
    case repository.ErrMembershipInactive:
        return c.JSON(http.StatusForbidden, echo.Map{"error": "membership_inactive", "message": "membership is not active"})
    case repository.ErrBorrowLimitExceeded:
        return c.JSON(http.StatusConflict, echo.Map{"error": "borrow_limit_exceeded", "message": "active borrow limit reached"})
    case repository.ErrHasOverdueBooks:
        return c.JSON(http.StatusConflict, echo.Map{"error": "has_overdue_books", "message": "overdue items must be returned first"})
    case repository.ErrNoCopiesAvailable:
        return c.JSON(http.StatusConflict, echo.Map{"error": "no_copies_available", "message": "all copies are currently out"})
    case repository.ErrBookNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "book_not_found"})
    case repository.ErrUserNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "user_not_found"})
    case repository.ErrRecordNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": "record_not_found"})
    case repository.ErrForbidden:
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    case repository.ErrLedgerInvariant:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "ledger_inconsistent"})
    }
    if it, ok := repository.IsInvalidTransition(err); ok {
        return c.JSON(http.StatusConflict, echo.Map{
            "error":   "invalid_transition",
            "message": it.Error(),
            "current": string(it.Current),
        })
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
}

// RequestBorrow starts a reservation for the authenticated member.
// POST /v1/borrows
func (h *BorrowHandler) RequestBorrow(c echo.Context) error {
    uid, ok := currentUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req borrowReq
    if err := c.Bind(&req); err != nil || req.BookID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "book_id required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rec, err := h.Svc.RequestBorrow(ctx, uid, req.BookID)
    if err != nil {
        return lendingErrorResponse(c, err)
    }
    return c.JSON(http.StatusCreated, rec)
}

// CancelReservation withdraws the member's own uncollected reservation.
// DELETE /v1/borrows/:id
func (h *BorrowHandler) CancelReservation(c echo.Context) error {
    uid, ok := currentUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    recID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || recID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rec, err := h.Svc.CancelReservation(ctx, uid, recID)
    if err != nil {
        return lendingErrorResponse(c, err)
    }
    return c.JSON(http.StatusOK, rec)
}

// RequestReturn flags the member's loan as handed back, pending
// librarian verification.
// POST /v1/borrows/:id/return-request
func (h *BorrowHandler) RequestReturn(c echo.Context) error {
    uid, ok := currentUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    recID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || recID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rec, err := h.Svc.RequestReturn(ctx, uid, recID)
    if err != nil {
        return lendingErrorResponse(c, err)
    }
    return c.JSON(http.StatusOK, rec)
}

// MyBorrows lists the member's borrow history, newest first.
// GET /v1/my/borrows
func (h *BorrowHandler) MyBorrows(c echo.Context) error {
    uid, ok := currentUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    st, err := h.Svc.GetBorrowingStatus(ctx, uid)
    if err != nil {
        return lendingErrorResponse(c, err)
    }
    return c.JSON(http.StatusOK, st.Records)
}

// MyStatus summarizes the member's borrowing standing: active count,
// cap, overdue flag and the full record list.
// GET /v1/my/status
func (h *BorrowHandler) MyStatus(c echo.Context) error {
    uid, ok := currentUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    st, err := h.Svc.GetBorrowingStatus(ctx, uid)
    if err != nil {
        return lendingErrorResponse(c, err)
    }
    return c.JSON(http.StatusOK, st)
}
