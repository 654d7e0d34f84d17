package model

import "time"

// Application roles.  ENGINEER users book environments and request
// refreshes; APPROVER and ADMIN additionally hold the approval capabilities
// (rejecting intents and force-approving past MAJOR conflicts).
const (
	RoleEngineer = "ENGINEER"
	RoleApprover = "APPROVER"
	RoleAdmin    = "ADMIN"
)

// Capability names gated by role.  The mapping lives in HasCapability; the
// rest of the core only asks whether an actor holds a capability, never
// what their role is.
const (
	CapabilityApprove              = "approve"
	CapabilityApproveWithConflicts = "approve-with-conflicts"
	CapabilityReject               = "reject"
)

// HasCapability reports whether a role grants the named capability.
// Ordinary approval, rejection and force approval all require an approver
// or admin role; everything else is open to any authenticated user.
func HasCapability(role, capability string) bool {
	switch capability {
	case CapabilityApprove, CapabilityApproveWithConflicts, CapabilityReject:
		return role == RoleApprover || role == RoleAdmin
	}
	return true
}

// User represents an application user record as stored in the `users`
// table.  Handlers define separate response types with JSON tags; this
// struct is used by the repository layer only.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (ENGINEER, APPROVER or ADMIN).
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each refresh
// token belongs to a user and contains metadata for expiry and revocation.
// The plain token is not stored; only its SHA-256 hash.
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
