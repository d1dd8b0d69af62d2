package bastion

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
)

// Evaluate computes the full decision for one permission check. It is the
// hot path behind HasPermission and CheckPermission.
func (e *Engine) Evaluate(ctx context.Context, userID id.UserID, moduleName string, perm permission.Name) (_ *Decision, err error) {
	ctx, span := e.startSpan(ctx, "Evaluate", trace.WithAttributes(
		attribute.String("bastion.user_id", userID.String()),
		attribute.String("bastion.module", moduleName),
		attribute.String("bastion.permission", string(perm)),
	))
	defer func() { endSpan(span, err) }()

	perm = permission.Normalize(string(perm))
	if perm == "" {
		return nil, ErrEmptyPermission
	}
	p, err := e.resolve(ctx, userID, moduleName)
	if err != nil {
		return nil, err
	}

	d := e.decide(p, moduleName, perm)
	span.SetAttributes(attribute.String("bastion.decision", string(d.Code)))
	if e.plugins != nil {
		e.plugins.EmitAfterCheck(ctx, userID, moduleName, perm, d.Allowed, string(d.Code))
	}
	return d, nil
}

func (e *Engine) decide(p *Profile, moduleName string, perm permission.Name) *Decision {
	d := &Decision{UserID: p.UserID, Module: moduleName, Permission: perm}
	switch {
	case !p.Active:
		d.Code, d.Reason = DecisionDenyInactiveUser, "user account is inactive"
		return d
	case len(p.Grants) == 0:
		d.Code, d.Reason = DecisionDenyNoGrants, "user holds no active roles"
		return d
	case !p.HasModule(moduleName):
		d.Code, d.Reason = DecisionDenyNoModuleGrants, "no active role in module"
		return d
	}

	granted := p.Permissions(moduleName)
	if granted.Has(perm) {
		d.Allowed, d.Code = true, DecisionAllow
		d.MatchedRoles = p.rolesWith(moduleName, perm)
		return d
	}
	if via, ok := e.config.Equivalences.satisfiedBy(moduleName, granted, perm); ok {
		d.Allowed, d.Code, d.Equivalent = true, DecisionAllowEquivalent, via
		d.MatchedRoles = p.rolesWith(moduleName, via)
		d.Reason = fmt.Sprintf("%s satisfies %s", via, perm)
		return d
	}
	d.Code, d.Reason = DecisionDenyNoPermission, "no active role grants "+string(perm)
	return d
}

// resolve validates the common arguments and loads the user's profile.
func (e *Engine) resolve(ctx context.Context, userID id.UserID, moduleName string) (*Profile, error) {
	if userID.IsNil() {
		return nil, ErrMissingUser
	}
	if err := e.requireModule(ctx, moduleName); err != nil {
		return nil, err
	}
	return e.profile(ctx, userID)
}

func (e *Engine) requireModule(ctx context.Context, moduleName string) error {
	if moduleName == "" {
		return ErrMissingModule
	}
	snap, err := e.loadCatalog(ctx)
	if err != nil {
		return err
	}
	if _, ok := snap.byName[moduleName]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModule, moduleName)
	}
	return nil
}

// HasPermission reports whether the user may perform perm in the module.
// Denial is a false result, not an error.
func (e *Engine) HasPermission(ctx context.Context, userID id.UserID, moduleName string, perm permission.Name) (bool, error) {
	d, err := e.Evaluate(ctx, userID, moduleName, perm)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}

// HasAnyPermission reports whether at least one of perms is allowed. It
// stops at the first match.
func (e *Engine) HasAnyPermission(ctx context.Context, userID id.UserID, moduleName string, perms ...permission.Name) (bool, error) {
	if len(perms) == 0 {
		return false, ErrEmptyPermission
	}
	ctx = WithRequestScope(ctx)
	for _, perm := range perms {
		ok, err := e.HasPermission(ctx, userID, moduleName, perm)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// CheckPermission is HasPermission for call sites that hard-stop on
// denial: it returns an error matching ErrAccessDenied and ErrForbidden,
// and reports the denial to the audit sink.
func (e *Engine) CheckPermission(ctx context.Context, userID id.UserID, moduleName string, perm permission.Name) error {
	d, err := e.Evaluate(ctx, userID, moduleName, perm)
	if err != nil {
		return fmt.Errorf("bastion check: %w", err)
	}
	if d.Allowed && !e.config.AuditAllowedChecks {
		return nil
	}
	e.record(ctx, &audit.Entry{
		Kind:       audit.KindCheck,
		SubjectID:  userID,
		Module:     moduleName,
		Permission: string(d.Permission),
		Decision:   string(d.Code),
		Reason:     d.Reason,
	})
	if !d.Allowed {
		return fmt.Errorf("%w: %s: %s", ErrAccessDenied, d.Code, d.Reason)
	}
	return nil
}

// HasModuleAccess reports whether the user holds at least one active role
// in the module.
func (e *Engine) HasModuleAccess(ctx context.Context, userID id.UserID, moduleName string) (_ bool, err error) {
	ctx, span := e.startSpan(ctx, "HasModuleAccess", trace.WithAttributes(
		attribute.String("bastion.user_id", userID.String()),
		attribute.String("bastion.module", moduleName),
	))
	defer func() { endSpan(span, err) }()

	p, err := e.resolve(ctx, userID, moduleName)
	if err != nil {
		return false, err
	}
	return p.HasModule(moduleName), nil
}

// CheckModuleAccess is HasModuleAccess returning an error on denial, with
// an audit record.
func (e *Engine) CheckModuleAccess(ctx context.Context, userID id.UserID, moduleName string) error {
	ok, err := e.HasModuleAccess(ctx, userID, moduleName)
	if err != nil {
		return fmt.Errorf("bastion check: %w", err)
	}
	if ok && !e.config.AuditAllowedChecks {
		return nil
	}
	code := DecisionAllow
	if !ok {
		code = DecisionDenyNoModuleGrants
	}
	e.record(ctx, &audit.Entry{
		Kind:      audit.KindCheck,
		SubjectID: userID,
		Module:    moduleName,
		Decision:  string(code),
		Reason:    "module access",
	})
	if !ok {
		return fmt.Errorf("%w: %s: no active role in module %q", ErrAccessDenied, code, moduleName)
	}
	return nil
}

// GetUserModules lists the modules the user can access, in catalog order.
func (e *Engine) GetUserModules(ctx context.Context, userID id.UserID) (_ []ModuleInfo, err error) {
	ctx, span := e.startSpan(ctx, "GetUserModules", trace.WithAttributes(
		attribute.String("bastion.user_id", userID.String()),
	))
	defer func() { endSpan(span, err) }()

	if userID.IsNil() {
		return nil, ErrMissingUser
	}
	snap, err := e.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	p, err := e.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ModuleInfo, 0, len(snap.ordered))
	for _, m := range snap.ordered {
		if p.HasModule(m.Name) {
			out = append(out, ModuleInfo{Module: m.Name, DisplayName: m.DisplayName, Icon: m.Icon})
		}
	}
	return out, nil
}

// GetAllPermissions returns the raw union of permissions the user's
// active roles grant in the module. Equivalence rules are not applied.
func (e *Engine) GetAllPermissions(ctx context.Context, userID id.UserID, moduleName string) (permission.Set, error) {
	p, err := e.resolve(ctx, userID, moduleName)
	if err != nil {
		return nil, err
	}
	return p.Permissions(moduleName), nil
}

// EffectivePermissions returns the raw union plus everything equivalence
// rules make it satisfy. Use it for UI capability flags.
func (e *Engine) EffectivePermissions(ctx context.Context, userID id.UserID, moduleName string) (permission.Set, error) {
	raw, err := e.GetAllPermissions(ctx, userID, moduleName)
	if err != nil {
		return nil, err
	}
	return e.config.Equivalences.expand(moduleName, raw), nil
}

// IsSystemAdmin reports whether the user actively holds the configured
// system administrator role. It is the one place that names that role;
// the evaluator itself grants it nothing beyond its permissions.
func (e *Engine) IsSystemAdmin(ctx context.Context, userID id.UserID) (bool, error) {
	if userID.IsNil() {
		return false, ErrMissingUser
	}
	p, err := e.profile(ctx, userID)
	if err != nil {
		return false, err
	}
	return p.HasRole(e.config.adminRole()), nil
}
