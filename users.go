package bastion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/fault"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/user"
)

// CreateUser registers an account. A Nil ID is generated. New accounts are
// always active; disable them afterwards with SetUserActive.
func (e *Engine) CreateUser(ctx context.Context, u *user.User) error {
	u.Login = strings.TrimSpace(u.Login)
	if u.Login == "" {
		return fault.New(fault.Validation, "bastion: login is required")
	}
	if u.ID.IsNil() {
		u.ID = id.NewUserID()
	}
	u.IsActive = true
	if err := e.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, fault.ErrConflict) {
			return fault.Wrap(fault.Validation, fmt.Errorf("bastion: login %q already exists: %w", u.Login, err))
		}
		return storeErr("create user", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (e *Engine) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	if userID.IsNil() {
		return nil, ErrMissingUser
	}
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, e.mapNotFound(err, ErrUserNotFound, "get user")
	}
	return u, nil
}

// SetUserActive enables or disables an account. Disabled accounts are
// denied everywhere regardless of their grants.
func (e *Engine) SetUserActive(ctx context.Context, userID id.UserID, active bool) error {
	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsActive == active {
		return nil
	}
	u.IsActive = active
	if err := e.store.UpdateUser(ctx, u); err != nil {
		return e.mapNotFound(err, ErrUserNotFound, "update user")
	}
	return e.invalidateUser(ctx, userID)
}

// ListAuditEntries queries recorded decisions and changes.
func (e *Engine) ListAuditEntries(ctx context.Context, filter *audit.QueryFilter) ([]*audit.Entry, error) {
	entries, err := e.store.ListAuditEntries(ctx, filter)
	if err != nil {
		return nil, storeErr("list audit entries", err)
	}
	return entries, nil
}

// PurgeAuditEntries deletes entries older than the retention window and
// returns how many were removed.
func (e *Engine) PurgeAuditEntries(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fault.New(fault.InvalidArgument, "bastion: retention must be positive")
	}
	n, err := e.store.PurgeAuditEntries(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, storeErr("purge audit entries", err)
	}
	return n, nil
}
