package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
	"github.com/xraph/bastion/user"
)

// ──────────────────────────────────────────────────
// Module model
// ──────────────────────────────────────────────────

type moduleModel struct {
	grove.BaseModel `grove:"table:bastion_modules"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	DisplayName     string    `grove:"display_name,notnull"`
	Description     string    `grove:"description"`
	Icon            string    `grove:"icon"`
	SortOrder       int       `grove:"sort_order,notnull"`
	Permissions     []string  `grove:"permissions,type:jsonb"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func moduleToModel(m *module.Module) *moduleModel {
	return &moduleModel{
		ID:          m.ID.String(),
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Icon:        m.Icon,
		SortOrder:   m.SortOrder,
		Permissions: namesToStrings(m.Permissions),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func moduleFromModel(m *moduleModel) *module.Module {
	return &module.Module{
		ID:          id.FromString(m.ID),
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Icon:        m.Icon,
		SortOrder:   m.SortOrder,
		Permissions: stringsToNames(m.Permissions),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:bastion_roles"`
	ID              string    `grove:"id,pk"`
	Name            string    `grove:"name,notnull"`
	Description     string    `grove:"description"`
	ModuleID        string    `grove:"module_id,notnull"`
	ModuleName      string    `grove:"module_name,notnull"`
	Permissions     []string  `grove:"permissions,type:jsonb"`
	IsSystem        bool      `grove:"is_system,notnull"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		ModuleID:    r.ModuleID.String(),
		ModuleName:  r.ModuleName,
		Permissions: namesToStrings(r.Permissions),
		IsSystem:    r.IsSystem,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	return &role.Role{
		ID:          id.FromString(m.ID),
		Name:        m.Name,
		Description: m.Description,
		ModuleID:    id.FromString(m.ModuleID),
		ModuleName:  m.ModuleName,
		Permissions: stringsToNames(m.Permissions),
		IsSystem:    m.IsSystem,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// User model
// ──────────────────────────────────────────────────

type userModel struct {
	grove.BaseModel `grove:"table:bastion_users"`
	ID              string    `grove:"id,pk"`
	Login           string    `grove:"login,notnull"`
	DisplayName     string    `grove:"display_name,notnull"`
	Email           string    `grove:"email"`
	IsActive        bool      `grove:"is_active,notnull"`
	SupervisorID    *string   `grove:"supervisor_id"`
	Department      string    `grove:"department"`
	Branch          string    `grove:"branch"`
	CreatedAt       time.Time `grove:"created_at,notnull"`
	UpdatedAt       time.Time `grove:"updated_at,notnull"`
}

func userToModel(u *user.User) *userModel {
	return &userModel{
		ID:           u.ID.String(),
		Login:        u.Login,
		DisplayName:  u.DisplayName,
		Email:        u.Email,
		IsActive:     u.IsActive,
		SupervisorID: optString(u.SupervisorID),
		Department:   u.Department,
		Branch:       u.Branch,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m *userModel) *user.User {
	return &user.User{
		ID:           id.FromString(m.ID),
		Login:        m.Login,
		DisplayName:  m.DisplayName,
		Email:        m.Email,
		IsActive:     m.IsActive,
		SupervisorID: optID(m.SupervisorID),
		Department:   m.Department,
		Branch:       m.Branch,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Grant model
// ──────────────────────────────────────────────────

type grantModel struct {
	grove.BaseModel `grove:"table:bastion_grants"`
	ID              string     `grove:"id,pk"`
	UserID          string     `grove:"user_id,notnull"`
	RoleID          string     `grove:"role_id,notnull"`
	IsActive        bool       `grove:"is_active,notnull"`
	GrantedBy       string     `grove:"granted_by"`
	GrantedAt       time.Time  `grove:"granted_at,notnull"`
	RevokedAt       *time.Time `grove:"revoked_at"`
	CreatedAt       time.Time  `grove:"created_at,notnull"`
}

func grantToModel(g *grant.Grant) *grantModel {
	return &grantModel{
		ID:        g.ID.String(),
		UserID:    g.UserID.String(),
		RoleID:    g.RoleID.String(),
		IsActive:  g.IsActive,
		GrantedBy: g.GrantedBy.String(),
		GrantedAt: g.GrantedAt,
		RevokedAt: g.RevokedAt,
		CreatedAt: g.CreatedAt,
	}
}

func grantFromModel(m *grantModel) *grant.Grant {
	return &grant.Grant{
		ID:        id.FromString(m.ID),
		UserID:    id.FromString(m.UserID),
		RoleID:    id.FromString(m.RoleID),
		IsActive:  m.IsActive,
		GrantedBy: id.FromString(m.GrantedBy),
		GrantedAt: m.GrantedAt,
		RevokedAt: m.RevokedAt,
		CreatedAt: m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Audit model
// ──────────────────────────────────────────────────

type auditModel struct {
	grove.BaseModel `grove:"table:bastion_audit"`
	ID              string         `grove:"id,pk"`
	Kind            string         `grove:"kind,notnull"`
	ActorID         string         `grove:"actor_id"`
	SubjectID       string         `grove:"subject_id"`
	Module          string         `grove:"module"`
	Permission      string         `grove:"permission"`
	Decision        string         `grove:"decision"`
	Reason          string         `grove:"reason"`
	Context         map[string]any `grove:"context,type:jsonb"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
}

func auditToModel(e *audit.Entry) *auditModel {
	return &auditModel{
		ID:         e.ID.String(),
		Kind:       string(e.Kind),
		ActorID:    e.ActorID.String(),
		SubjectID:  e.SubjectID.String(),
		Module:     e.Module,
		Permission: e.Permission,
		Decision:   e.Decision,
		Reason:     e.Reason,
		Context:    e.Context,
		CreatedAt:  e.CreatedAt,
	}
}

func auditFromModel(m *auditModel) *audit.Entry {
	return &audit.Entry{
		ID:         id.FromString(m.ID),
		Kind:       audit.Kind(m.Kind),
		ActorID:    id.FromString(m.ActorID),
		SubjectID:  id.FromString(m.SubjectID),
		Module:     m.Module,
		Permission: m.Permission,
		Decision:   m.Decision,
		Reason:     m.Reason,
		Context:    m.Context,
		CreatedAt:  m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func namesToStrings(ns []permission.Name) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = string(n)
	}
	return out
}

func stringsToNames(ss []string) []permission.Name {
	out := make([]permission.Name, len(ss))
	for i, s := range ss {
		out[i] = permission.Name(s)
	}
	return out
}

func optString(i *id.ID) *string {
	if i == nil || i.IsNil() {
		return nil
	}
	s := i.String()
	return &s
}

func optID(s *string) *id.ID {
	if s == nil || *s == "" {
		return nil
	}
	parsed := id.FromString(*s)
	if parsed.IsNil() {
		return nil
	}
	return &parsed
}
