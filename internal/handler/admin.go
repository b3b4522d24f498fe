package handler

import (
    "context"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-lending/internal/lending"
    "github.com/iliyamo/library-lending/internal/model"
    "github.com/iliyamo/library-lending/internal/repository"
)

// AdminHandler exposes the librarian-facing desk operations: confirming
// collections and returns, working the approval queue and driving the
// background sweeper.
type AdminHandler struct {
    Svc     *lending.Service
    Sweeper *lending.Sweeper
    Users   *repository.UserRepo
}

func NewAdminHandler(svc *lending.Service, sw *lending.Sweeper, users *repository.UserRepo) *AdminHandler {
    return &AdminHandler{Svc: svc, Sweeper: sw, Users: users}
}

func pathID(c echo.Context) (uint64, error) {
    return strconv.ParseUint(c.Param("id"), 10, 64)
}

type collectReq struct {
    // LoanDays overrides the configured loan period when positive.
    LoanDays int `json:"loan_days"`
}

// ConfirmCollection records that the member picked the copy up at the
// desk and starts the loan clock.
// POST /v1/admin/borrows/:id/collect
func (h *AdminHandler) ConfirmCollection(c echo.Context) error {
    recID, err := pathID(c)
    if err != nil || recID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
    }
    var req collectReq
    _ = c.Bind(&req) // body is optional

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rec, err := h.Svc.ConfirmCollection(ctx, recID, req.LoanDays)
    if err != nil {
        return lendingErrorResponse(c, err)
    }
    return c.JSON(http.StatusOK, rec)
}

// ConfirmReturn verifies the copy is physically back and releases it to
// the shelf.
// POST /v1/admin/borrows/:id/return
func (h *AdminHandler) ConfirmReturn(c echo.Context) error {
    recID, err := pathID(c)
    if err != nil || recID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rec, err := h.Svc.ConfirmReturn(ctx, recID)
    if err != nil {
        return lendingErrorResponse(c, err)
    }
    return c.JSON(http.StatusOK, rec)
}

// PendingReservations lists reservations awaiting collection, oldest
// first, which is the order the desk works through them.
// GET /v1/admin/reservations/pending
func (h *AdminHandler) PendingReservations(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    recs, err := h.Svc.PendingReservations(ctx)
    if err != nil {
        return lendingErrorResponse(c, err)
    }
    return c.JSON(http.StatusOK, recs)
}

// SweepNow runs one reconciliation pass immediately and reports what it
// did.  Useful after bulk imports or when the periodic run is stopped.
// POST /v1/admin/sweep
func (h *AdminHandler) SweepNow(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
    defer cancel()

    res, err := h.Svc.SweepOnce(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
    }
    return c.JSON(http.StatusOK, res)
}

// StartSweeper turns the periodic sweep on.
// POST /v1/admin/scheduler/start
func (h *AdminHandler) StartSweeper(c echo.Context) error {
    if !h.Sweeper.Start() {
        return c.JSON(http.StatusConflict, echo.Map{"error": "already_running"})
    }
    return c.JSON(http.StatusOK, echo.Map{"running": true})
}

// StopSweeper turns the periodic sweep off, letting any in-flight pass
// finish first.
// POST /v1/admin/scheduler/stop
func (h *AdminHandler) StopSweeper(c echo.Context) error {
    if !h.Sweeper.Stop() {
        return c.JSON(http.StatusConflict, echo.Map{"error": "not_running"})
    }
    return c.JSON(http.StatusOK, echo.Map{"running": false})
}

// SweeperStatus reports whether the periodic sweep is active.
// GET /v1/admin/scheduler/status
func (h *AdminHandler) SweeperStatus(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"running": h.Sweeper.Running()})
}

type rejectReq struct {
    Reason string `json:"reason"`
}

// ApproveMembership activates a pending membership.
// POST /v1/admin/members/:id/approve
func (h *AdminHandler) ApproveMembership(c echo.Context) error {
    uid, err := pathID(c)
    if err != nil || uid == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Svc.ApproveMembership(ctx, uid); err != nil {
        return lendingErrorResponse(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"membership_status": string(model.MembershipActive)})
}

// RejectMembership declines a pending membership with a reason that is
// recorded and forwarded on the notification.
// POST /v1/admin/members/:id/reject
func (h *AdminHandler) RejectMembership(c echo.Context) error {
    uid, err := pathID(c)
    if err != nil || uid == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    var req rejectReq
    _ = c.Bind(&req)
    reason := strings.TrimSpace(req.Reason)
    if reason == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Svc.RejectMembership(ctx, uid, reason); err != nil {
        return lendingErrorResponse(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"membership_status": string(model.MembershipRejected)})
}

type memberPart struct {
    ID         uint64    `json:"id"`
    Email      string    `json:"email"`
    Membership string    `json:"membership_status"`
    Note       *string   `json:"membership_note,omitempty"`
    CreatedAt  time.Time `json:"created_at"`
}

// WaitingMembers lists accounts awaiting a membership decision, oldest
// application first.
// GET /v1/admin/members/waiting
func (h *AdminHandler) WaitingMembers(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    users, err := h.Users.ListByMembership(ctx, model.MembershipWaiting)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    out := make([]memberPart, 0, len(users))
    for _, u := range users {
        out = append(out, memberPart{
            ID:         u.ID,
            Email:      u.Email,
            Membership: string(u.MembershipStatus),
            Note:       u.MembershipNote,
            CreatedAt:  u.CreatedAt,
        })
    }
    return c.JSON(http.StatusOK, out)
}
