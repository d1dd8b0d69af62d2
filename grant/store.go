package grant

import (
	"context"

	"github.com/xraph/bastion/id"
)

// Store defines persistence operations for user-role grants. Every
// implementation keeps at most one active grant per (user, role) pair.
type Store interface {
	// ActivateGrant makes the pair active. An inactive grant for the pair
	// is reactivated, otherwise a new grant is created. An already active
	// grant is returned unchanged with changed == false.
	ActivateGrant(ctx context.Context, userID, roleID, grantedBy id.ID) (g *Grant, changed bool, err error)

	// DeactivateGrant deactivates the active grant of the pair and returns
	// it. It returns nil, nil when no active grant exists.
	DeactivateGrant(ctx context.Context, userID, roleID id.ID) (*Grant, error)

	// ReplaceGrants atomically deactivates every active grant of the user
	// and activates one grant per role ID. It returns the active grants
	// after the change.
	ReplaceGrants(ctx context.Context, userID id.UserID, roleIDs []id.RoleID, grantedBy id.UserID) ([]*Grant, error)

	// ListActiveGrants returns a consistent snapshot of the user's active
	// grants, ordered by grant time.
	ListActiveGrants(ctx context.Context, userID id.UserID) ([]*Grant, error)

	// ListGrants returns grants matching the filter, newest first.
	ListGrants(ctx context.Context, filter *ListFilter) ([]*Grant, error)

	// CountActiveGrantsForRole returns how many users actively hold the role.
	CountActiveGrantsForRole(ctx context.Context, roleID id.RoleID) (int64, error)
}
