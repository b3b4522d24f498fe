package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/library-lending/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/library-lending/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Route group under /v1/auth for operations that do not require an
	// existing session (register, login, refresh).
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Register a POST endpoint to refresh access tokens at /v1/auth/refresh. This rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Register a POST endpoint to issue a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts a refresh token in the body or a bearer token in the
	// Authorization header and revokes one or all sessions accordingly.
	g.POST("/logout", a.Logout)

	// Routes that require a valid access token.  All handlers registered on
	// this group execute the JWTAuth middleware before being invoked.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("MEMBER", "LIBRARIAN"))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)

	// Additionally map POST /v1/logout to the same handler so clients can
	// terminate a session with a refresh token and no JWT.
	e.POST("/v1/logout", a.Logout)
}

// RegisterBooks registers the catalogue routes.  Browsing is public so
// guests can check availability before registering; title management is
// restricted to librarians.
func RegisterBooks(e *echo.Echo, b *handler.BookHandler, jwtSecret string) {
	// Public browse endpoints.
	e.GET("/v1/books", b.List)
	e.GET("/v1/books/:id", b.Get)

	// Librarian-only title management.
	admin := e.Group("/v1/admin/books")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("LIBRARIAN"))
	admin.POST("", b.Create)
}

// RegisterLending registers the member-facing borrow lifecycle routes.
// Every endpoint requires an authenticated session; the engine enforces
// membership standing and ownership on top of that.
func RegisterLending(e *echo.Echo, b *handler.BorrowHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("MEMBER", "LIBRARIAN"))

	// Start a reservation for a title.
	g.POST("/borrows", b.RequestBorrow)
	// Withdraw an uncollected reservation.
	g.DELETE("/borrows/:id", b.CancelReservation)
	// Flag a loan as handed back, pending librarian verification.
	g.POST("/borrows/:id/return-request", b.RequestReturn)
	// Borrow history and standing for the authenticated user.
	g.GET("/my/borrows", b.MyBorrows)
	g.GET("/my/status", b.MyStatus)
}

// RegisterAdmin registers the librarian desk routes: collection and
// return confirmation, the approval queue and sweeper control.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("LIBRARIAN"))

	// Desk operations on borrow records.
	g.POST("/borrows/:id/collect", a.ConfirmCollection)
	g.POST("/borrows/:id/return", a.ConfirmReturn)
	g.GET("/reservations/pending", a.PendingReservations)

	// Reconciliation: run one pass now or drive the periodic schedule.
	g.POST("/sweep", a.SweepNow)
	g.POST("/scheduler/start", a.StartSweeper)
	g.POST("/scheduler/stop", a.StopSweeper)
	g.GET("/scheduler/status", a.SweeperStatus)

	// Membership approval queue.
	g.GET("/members/waiting", a.WaitingMembers)
	g.POST("/members/:id/approve", a.ApproveMembership)
	g.POST("/members/:id/reject", a.RejectMembership)
}
