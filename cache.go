package bastion

import (
	"context"

	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
)

// Cache holds access profiles across requests.
//
// Entries are versioned. The engine reads the version before loading a
// profile from the store and stores the result under that version, so a
// load that raced an invalidation is never served: invalidation moves the
// version forward and the stale write lands under a key no reader asks for.
type Cache interface {
	// Version returns the current version token for the user's profile.
	Version(ctx context.Context, userID id.UserID) (string, error)

	// Get returns the profile cached under version, if any.
	Get(ctx context.Context, userID id.UserID, version string) (*Profile, bool, error)

	// Set stores a profile under version.
	Set(ctx context.Context, userID id.UserID, version string, p *Profile) error

	// InvalidateUser advances the user's version.
	InvalidateUser(ctx context.Context, userID id.UserID) error

	// InvalidateAll advances the version of every profile.
	InvalidateAll(ctx context.Context) error
}

// Profile is a user's resolved access data: account state and the active
// grants with their role's module and permissions.
type Profile struct {
	UserID id.UserID      `json:"user_id"`
	Active bool           `json:"active"`
	Grants []ProfileGrant `json:"grants"`
}

// ProfileGrant is one active grant expanded to its role.
type ProfileGrant struct {
	GrantID     id.GrantID        `json:"grant_id"`
	RoleID      id.RoleID         `json:"role_id"`
	Role        string            `json:"role"`
	Module      string            `json:"module"`
	Permissions []permission.Name `json:"permissions"`
}

// Permissions returns the raw union of permissions granted in module.
func (p *Profile) Permissions(module string) permission.Set {
	out := permission.NewSet()
	if !p.Active {
		return out
	}
	for _, g := range p.Grants {
		if g.Module == module {
			out.Add(g.Permissions...)
		}
	}
	return out
}

// HasModule reports whether any active grant targets module.
func (p *Profile) HasModule(module string) bool {
	if !p.Active {
		return false
	}
	for _, g := range p.Grants {
		if g.Module == module {
			return true
		}
	}
	return false
}

// HasRole reports whether the user actively holds the named role.
func (p *Profile) HasRole(name string) bool {
	if !p.Active {
		return false
	}
	for _, g := range p.Grants {
		if g.Role == name {
			return true
		}
	}
	return false
}

// rolesWith returns the names of module roles carrying perm, sorted.
func (p *Profile) rolesWith(module string, perm permission.Name) []string {
	var out []string
	for _, g := range p.Grants {
		if g.Module != module {
			continue
		}
		for _, gp := range g.Permissions {
			if gp == perm {
				out = append(out, g.Role)
				break
			}
		}
	}
	return out
}
