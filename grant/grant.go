// Package grant defines the UserRoleGrant entity that links users to roles,
// and its store interface.
package grant

import (
	"time"

	"github.com/xraph/bastion/id"
)

// Grant links a user to a role. Grants are never hard-deleted: revoking
// deactivates the row and a later grant of the same pair reactivates it.
type Grant struct {
	ID        id.GrantID `json:"id" db:"id"`
	UserID    id.UserID  `json:"user_id" db:"user_id"`
	RoleID    id.RoleID  `json:"role_id" db:"role_id"`
	IsActive  bool       `json:"is_active" db:"is_active"`
	GrantedBy id.UserID  `json:"granted_by,omitempty" db:"granted_by"`
	GrantedAt time.Time  `json:"granted_at" db:"granted_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Activate marks g active as granted by grantedBy at now.
func (g *Grant) Activate(grantedBy id.UserID, now time.Time) {
	g.IsActive = true
	g.GrantedBy = grantedBy
	g.GrantedAt = now
	g.RevokedAt = nil
}

// Deactivate marks g inactive at now.
func (g *Grant) Deactivate(now time.Time) {
	g.IsActive = false
	g.RevokedAt = &now
}

// New returns a fresh active grant.
func New(userID, roleID, grantedBy id.ID, now time.Time) *Grant {
	g := &Grant{
		ID:        id.NewGrantID(),
		UserID:    userID,
		RoleID:    roleID,
		CreatedAt: now,
	}
	g.Activate(grantedBy, now)
	return g
}

// ListFilter contains filters for listing grants.
type ListFilter struct {
	UserID          *id.UserID `json:"user_id,omitempty"`
	RoleID          *id.RoleID `json:"role_id,omitempty"`
	IncludeInactive bool       `json:"include_inactive,omitempty"`
	Limit           int        `json:"limit,omitempty"`
	Offset          int        `json:"offset,omitempty"`
}
