package bastion

import "github.com/xraph/bastion/fault"

// Error kind sentinels. Every specific error below matches exactly one of
// them with errors.Is.
var (
	ErrForbidden       = fault.ErrForbidden
	ErrNotFound        = fault.ErrNotFound
	ErrValidation      = fault.ErrValidation
	ErrInvalidArgument = fault.ErrInvalidArgument
	ErrUnavailable     = fault.ErrUnavailable
)

var (
	// ErrAccessDenied is returned by the Check* operations on denial.
	ErrAccessDenied = fault.New(fault.Forbidden, "bastion: access denied")

	// ErrSystemRoleImmutable is returned when changing a system role
	// without elevation.
	ErrSystemRoleImmutable = fault.New(fault.Forbidden, "bastion: system role cannot be modified")

	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = fault.New(fault.NotFound, "bastion: user not found")

	// ErrRoleNotFound is returned when a role cannot be found.
	ErrRoleNotFound = fault.New(fault.NotFound, "bastion: role not found")

	// ErrModuleNotFound is returned when a module cannot be found.
	ErrModuleNotFound = fault.New(fault.NotFound, "bastion: module not found")

	// ErrUnknownPermission is returned when a permission is outside the
	// module vocabulary.
	ErrUnknownPermission = fault.New(fault.Validation, "bastion: permission not in module vocabulary")

	// ErrDuplicateRole is returned when a role name is already taken.
	ErrDuplicateRole = fault.New(fault.Validation, "bastion: role name already exists")

	// ErrEmptyRoleName is returned when a role name is blank.
	ErrEmptyRoleName = fault.New(fault.Validation, "bastion: role name is required")

	// ErrRoleInUse is returned when deleting a role that active grants
	// still reference.
	ErrRoleInUse = fault.New(fault.Validation, "bastion: role has active grants")

	// ErrVocabularyInUse is returned when a module update would drop a
	// permission that roles still carry.
	ErrVocabularyInUse = fault.New(fault.Validation, "bastion: permission still used by roles")

	// ErrInvalidModule is returned for a malformed module definition.
	ErrInvalidModule = fault.New(fault.Validation, "bastion: invalid module definition")

	// ErrMissingUser is returned when a user ID argument is Nil.
	ErrMissingUser = fault.New(fault.InvalidArgument, "bastion: user id is required")

	// ErrMissingRole is returned when a role ID argument is Nil.
	ErrMissingRole = fault.New(fault.InvalidArgument, "bastion: role id is required")

	// ErrMissingModule is returned when a module name argument is empty.
	ErrMissingModule = fault.New(fault.InvalidArgument, "bastion: module is required")

	// ErrEmptyPermission is returned when a permission argument is empty.
	ErrEmptyPermission = fault.New(fault.InvalidArgument, "bastion: permission is required")

	// ErrUnknownModule is returned by evaluator operations for a module
	// name absent from the catalog.
	ErrUnknownModule = fault.New(fault.InvalidArgument, "bastion: unknown module")

	// ErrSelfSupervisor is returned when a user would supervise themselves.
	ErrSelfSupervisor = fault.New(fault.InvalidArgument, "bastion: user cannot supervise themselves")

	// ErrSupervisorCycle is returned when a supervisor change would create
	// a cycle.
	ErrSupervisorCycle = fault.New(fault.InvalidArgument, "bastion: supervisor change would create a cycle")

	// ErrHierarchyTooDeep is returned when the supervisor chain exceeds
	// the configured depth.
	ErrHierarchyTooDeep = fault.New(fault.InvalidArgument, "bastion: supervisor chain too deep")
)
