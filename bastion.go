// Package bastion is the module/role authorization core of the asset
// management application. It answers "may this user perform this action in
// this module", maintains the data that answer depends on (modules, roles,
// user-role grants, the supervisor hierarchy) and reports denials and
// critical changes to an audit sink.
//
//	eng, err := bastion.NewEngine(
//	    bastion.WithStore(memory.New()),
//	)
//	ok, err := eng.HasPermission(ctx, userID, "asekuracja", permission.View)
package bastion

import (
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
)

// DecisionCode is the machine-readable outcome of an evaluation.
type DecisionCode string

const (
	// DecisionAllow means a granted role carries the permission.
	DecisionAllow DecisionCode = "allow"

	// DecisionAllowEquivalent means an equivalence rule satisfied the check.
	DecisionAllowEquivalent DecisionCode = "allow_equivalent"

	// DecisionDenyNoGrants means the user holds no active grants at all.
	DecisionDenyNoGrants DecisionCode = "deny_no_grants"

	// DecisionDenyNoModuleGrants means no active grant targets the module.
	DecisionDenyNoModuleGrants DecisionCode = "deny_no_module_grants"

	// DecisionDenyNoPermission means module roles exist but none carries
	// the permission.
	DecisionDenyNoPermission DecisionCode = "deny_no_permission"

	// DecisionDenyInactiveUser means the account is disabled.
	DecisionDenyInactiveUser DecisionCode = "deny_inactive_user"
)

// Decision is the full result of evaluating one permission check.
type Decision struct {
	Allowed      bool            `json:"allowed"`
	Code         DecisionCode    `json:"code"`
	Reason       string          `json:"reason,omitempty"`
	UserID       id.UserID       `json:"user_id"`
	Module       string          `json:"module"`
	Permission   permission.Name `json:"permission,omitempty"`
	MatchedRoles []string        `json:"matched_roles,omitempty"`
	Equivalent   permission.Name `json:"equivalent,omitempty"`
}

// ModuleInfo is one entry of a user's module menu.
type ModuleInfo struct {
	Module      string `json:"module"`
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon,omitempty"`
}
