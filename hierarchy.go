package bastion

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/user"
)

// SetSupervisor makes supervisorID the direct supervisor of userID. It
// rejects self-supervision and any change that would close a cycle.
func (e *Engine) SetSupervisor(ctx context.Context, userID, supervisorID id.UserID) (err error) {
	ctx, span := e.startSpan(ctx, "SetSupervisor", trace.WithAttributes(
		attribute.String("bastion.user_id", userID.String()),
		attribute.String("bastion.supervisor_id", supervisorID.String()),
	))
	defer func() { endSpan(span, err) }()

	if userID.IsNil() || supervisorID.IsNil() {
		return ErrMissingUser
	}
	if userID == supervisorID {
		return ErrSelfSupervisor
	}

	e.hierarchyMu.Lock()
	defer e.hierarchyMu.Unlock()

	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := e.GetUser(ctx, supervisorID); err != nil {
		return err
	}
	if err := e.checkChain(ctx, userID, supervisorID); err != nil {
		return err
	}
	if u.SupervisorID != nil && *u.SupervisorID == supervisorID {
		return nil
	}
	if err := e.store.SetSupervisor(ctx, userID, &supervisorID); err != nil {
		return e.mapNotFound(err, ErrUserNotFound, "set supervisor")
	}

	e.recordSupervisor(ctx, userID, u.SupervisorID, &supervisorID)
	return nil
}

// ClearSupervisor removes the user's supervisor.
func (e *Engine) ClearSupervisor(ctx context.Context, userID id.UserID) (err error) {
	ctx, span := e.startSpan(ctx, "ClearSupervisor", trace.WithAttributes(
		attribute.String("bastion.user_id", userID.String()),
	))
	defer func() { endSpan(span, err) }()

	e.hierarchyMu.Lock()
	defer e.hierarchyMu.Unlock()

	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.SupervisorID == nil {
		return nil
	}
	if err := e.store.SetSupervisor(ctx, userID, nil); err != nil {
		return e.mapNotFound(err, ErrUserNotFound, "clear supervisor")
	}
	e.recordSupervisor(ctx, userID, u.SupervisorID, nil)
	return nil
}

// checkChain walks upward from supervisorID and fails if it reaches userID
// or exceeds the configured depth.
func (e *Engine) checkChain(ctx context.Context, userID, supervisorID id.UserID) error {
	seen := map[id.UserID]struct{}{supervisorID: {}}
	cur := supervisorID
	for depth := 1; ; depth++ {
		if depth > e.config.maxDepth() {
			return fmt.Errorf("%w: more than %d levels", ErrHierarchyTooDeep, e.config.maxDepth())
		}
		u, err := e.store.GetUser(ctx, cur)
		if err != nil {
			return e.mapNotFound(err, ErrUserNotFound, "walk supervisor chain")
		}
		if u.SupervisorID == nil {
			return nil
		}
		next := *u.SupervisorID
		if next == userID {
			return fmt.Errorf("%w: %s already reports to %s", ErrSupervisorCycle, supervisorID, userID)
		}
		if _, loop := seen[next]; loop {
			return fmt.Errorf("%w: existing loop at %s", ErrSupervisorCycle, next)
		}
		seen[next] = struct{}{}
		cur = next
	}
}

func (e *Engine) recordSupervisor(ctx context.Context, userID id.UserID, before, after *id.UserID) {
	c := map[string]any{}
	if before != nil {
		c["before"] = before.String()
	}
	if after != nil {
		c["after"] = after.String()
	}
	e.record(ctx, &audit.Entry{
		Kind:      audit.KindSupervisor,
		SubjectID: userID,
		Reason:    "supervisor changed",
		Context:   c,
	})
	if e.plugins != nil {
		e.plugins.EmitSupervisorChanged(ctx, userID, after)
	}
}

// FindSubordinates returns the user's direct reports ordered by display
// name. It plays no part in permission evaluation.
func (e *Engine) FindSubordinates(ctx context.Context, userID id.UserID) ([]*user.User, error) {
	if _, err := e.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	subs, err := e.store.ListSubordinates(ctx, userID)
	if err != nil {
		return nil, storeErr("list subordinates", err)
	}
	return subs, nil
}

// IsSubordinate reports whether userID reports to managerID, directly or,
// when transitive is set, through any chain of supervisors.
func (e *Engine) IsSubordinate(ctx context.Context, managerID, userID id.UserID, transitive bool) (bool, error) {
	if managerID.IsNil() || userID.IsNil() {
		return false, ErrMissingUser
	}
	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	seen := map[id.UserID]struct{}{userID: {}}
	for depth := 0; u.SupervisorID != nil && depth < e.config.maxDepth(); depth++ {
		sup := *u.SupervisorID
		if sup == managerID {
			return true, nil
		}
		if !transitive {
			return false, nil
		}
		if _, loop := seen[sup]; loop {
			return false, nil
		}
		seen[sup] = struct{}{}
		if u, err = e.GetUser(ctx, sup); err != nil {
			return false, err
		}
	}
	return false, nil
}
