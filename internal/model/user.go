package model

import "time"

// MembershipStatus enumerates a user's standing with the library.
// Only ACTIVE members may start new borrow records.  Payment proof
// review happens outside this service; a librarian's decision lands
// here as an approve/reject status flip.
type MembershipStatus string

const (
    MembershipNone     MembershipStatus = "NONE"                 // registered, no application submitted
    MembershipWaiting  MembershipStatus = "WAITING_FOR_APPROVAL" // application pending librarian review
    MembershipActive   MembershipStatus = "ACTIVE"               // may borrow
    MembershipExpired  MembershipStatus = "EXPIRED"              // lapsed, must renew
    MembershipRejected MembershipStatus = "REJECTED"             // application declined, reason recorded
)

// ValidMembershipStatus reports whether the string value is a known
// membership status.
func ValidMembershipStatus(s MembershipStatus) bool {
    switch s {
    case MembershipNone, MembershipWaiting, MembershipActive, MembershipExpired, MembershipRejected:
        return true
    }
    return false
}

// User represents an application user record as stored in the `users`
// table.  Handlers define separate response types with JSON tags; this
// struct is used by the repository layer.
//
// Fields:
//  ID               – primary key identifier of the user.
//  Email            – unique email address.
//  PasswordHash     – bcrypt hashed password.
//  Role             – role name (MEMBER or LIBRARIAN).
//  MembershipStatus – current standing, see MembershipStatus.
//  MembershipNote   – reason recorded on the last membership decision.
//  IsActive         – whether the account is active.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type User struct {
    ID               uint64           // users.id
    Email            string           // users.email
    PasswordHash     string           // users.password_hash
    Role             string           // users.role
    MembershipStatus MembershipStatus // users.membership_status
    MembershipNote   *string          // users.membership_note (nullable)
    IsActive         bool             // users.is_active
    CreatedAt        time.Time        // users.created_at
    UpdatedAt        time.Time        // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its SHA-256
// hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
