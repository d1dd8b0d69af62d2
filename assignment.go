package bastion

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/id"
)

// GrantRole binds the user to the role. An inactive grant for the pair is
// reactivated rather than duplicated; an active one is returned unchanged.
func (e *Engine) GrantRole(ctx context.Context, userID id.UserID, roleID id.RoleID, grantedBy id.UserID) (_ *grant.Grant, err error) {
	ctx, span := e.startSpan(ctx, "GrantRole", trace.WithAttributes(
		attribute.String("bastion.user_id", userID.String()),
		attribute.String("bastion.role_id", roleID.String()),
	))
	defer func() { endSpan(span, err) }()

	if _, err := e.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	r, err := e.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	g, changed, err := e.store.ActivateGrant(ctx, userID, roleID, grantedBy)
	if err != nil {
		return nil, storeErr("activate grant", err)
	}
	if !changed {
		return g, nil
	}
	if err := e.invalidateUser(ctx, userID); err != nil {
		return g, err
	}

	e.record(ctx, &audit.Entry{
		Kind:      audit.KindGrant,
		ActorID:   grantedBy,
		SubjectID: userID,
		Module:    r.ModuleName,
		Reason:    "role granted",
		Context:   map[string]any{"role": r.Name, "grant_id": g.ID.String()},
	})
	if e.plugins != nil {
		e.plugins.EmitRoleGranted(ctx, g)
	}
	return g, nil
}

// RevokeRole deactivates the user's active grant of the role. It is a
// no-op when none is active.
func (e *Engine) RevokeRole(ctx context.Context, userID id.UserID, roleID id.RoleID) (err error) {
	ctx, span := e.startSpan(ctx, "RevokeRole", trace.WithAttributes(
		attribute.String("bastion.user_id", userID.String()),
		attribute.String("bastion.role_id", roleID.String()),
	))
	defer func() { endSpan(span, err) }()

	if userID.IsNil() {
		return ErrMissingUser
	}
	if roleID.IsNil() {
		return ErrMissingRole
	}

	g, err := e.store.DeactivateGrant(ctx, userID, roleID)
	if err != nil {
		return storeErr("deactivate grant", err)
	}
	if g == nil {
		return nil
	}
	if err := e.invalidateUser(ctx, userID); err != nil {
		return err
	}

	entry := &audit.Entry{
		Kind:      audit.KindRevoke,
		SubjectID: userID,
		Reason:    "role revoked",
		Context:   map[string]any{"role_id": roleID.String(), "grant_id": g.ID.String()},
	}
	if r, rerr := e.store.GetRole(ctx, roleID); rerr == nil {
		entry.Module = r.ModuleName
		entry.Context["role"] = r.Name
	}
	e.record(ctx, entry)
	if e.plugins != nil {
		e.plugins.EmitRoleRevoked(ctx, g)
	}
	return nil
}

// ReplaceRoles makes roleIDs the user's complete set of active roles in one
// atomic store operation. Duplicate ids are collapsed. If any role is
// unknown nothing changes.
func (e *Engine) ReplaceRoles(ctx context.Context, userID id.UserID, roleIDs []id.RoleID, grantedBy id.UserID) (_ []*grant.Grant, err error) {
	ctx, span := e.startSpan(ctx, "ReplaceRoles", trace.WithAttributes(
		attribute.String("bastion.user_id", userID.String()),
		attribute.Int("bastion.role_count", len(roleIDs)),
	))
	defer func() { endSpan(span, err) }()

	if _, err := e.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	seen := make(map[id.RoleID]struct{}, len(roleIDs))
	unique := make([]id.RoleID, 0, len(roleIDs))
	for _, rid := range roleIDs {
		if rid.IsNil() {
			return nil, ErrMissingRole
		}
		if _, dup := seen[rid]; dup {
			continue
		}
		seen[rid] = struct{}{}
		unique = append(unique, rid)
	}

	roles, err := e.store.GetRoles(ctx, unique)
	if err != nil {
		return nil, storeErr("load roles", err)
	}
	if len(roles) != len(unique) {
		found := make(map[id.RoleID]struct{}, len(roles))
		for _, r := range roles {
			found[r.ID] = struct{}{}
		}
		for _, rid := range unique {
			if _, ok := found[rid]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, rid)
			}
		}
	}

	grants, err := e.store.ReplaceGrants(ctx, userID, unique, grantedBy)
	if err != nil {
		return nil, storeErr("replace grants", err)
	}
	if err := e.invalidateUser(ctx, userID); err != nil {
		return grants, err
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	e.record(ctx, &audit.Entry{
		Kind:      audit.KindReplace,
		ActorID:   grantedBy,
		SubjectID: userID,
		Reason:    "roles replaced",
		Context:   map[string]any{"roles": names},
	})
	if e.plugins != nil {
		e.plugins.EmitRolesReplaced(ctx, userID, grants)
	}
	return grants, nil
}

// ListGrants returns the user's grants, newest first. Inactive history is
// included when includeInactive is set.
func (e *Engine) ListGrants(ctx context.Context, userID id.UserID, includeInactive bool) ([]*grant.Grant, error) {
	if userID.IsNil() {
		return nil, ErrMissingUser
	}
	grants, err := e.store.ListGrants(ctx, &grant.ListFilter{UserID: &userID, IncludeInactive: includeInactive})
	if err != nil {
		return nil, storeErr("list grants", err)
	}
	return grants, nil
}
