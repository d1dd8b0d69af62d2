// Package catalog loads the module catalog, seed roles and equivalence
// rules from YAML and applies them to an Engine.
package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/fault"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/role"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalidDefinition is returned when a catalog document fails
// validation.
var ErrInvalidDefinition = fault.New(fault.Validation, "catalog: invalid definition")

// Definition is a catalog document.
type Definition struct {
	Modules      []ModuleDef      `yaml:"modules" json:"modules" validate:"required,min=1,dive"`
	Roles        []RoleDef        `yaml:"roles" json:"roles" validate:"dive"`
	Equivalences []EquivalenceDef `yaml:"equivalences" json:"equivalences" validate:"dive"`
}

// ModuleDef declares a module and its permission vocabulary.
type ModuleDef struct {
	Name        string   `yaml:"name" json:"name" validate:"required"`
	DisplayName string   `yaml:"display_name" json:"display_name" validate:"required"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Icon        string   `yaml:"icon" json:"icon,omitempty"`
	SortOrder   int      `yaml:"sort_order" json:"sort_order" validate:"gte=0"`
	Permissions []string `yaml:"permissions" json:"permissions" validate:"required,min=1,dive,required"`
}

// RoleDef declares a seed role.
type RoleDef struct {
	Name        string   `yaml:"name" json:"name" validate:"required"`
	Module      string   `yaml:"module" json:"module" validate:"required"`
	Description string   `yaml:"description" json:"description,omitempty"`
	System      bool     `yaml:"system" json:"system,omitempty"`
	Permissions []string `yaml:"permissions" json:"permissions" validate:"dive,required"`
}

// EquivalenceDef declares that holding Granted also satisfies checks for
// Satisfies within Module ("*" for every module).
type EquivalenceDef struct {
	Module    string   `yaml:"module" json:"module" validate:"required"`
	Granted   string   `yaml:"granted" json:"granted" validate:"required"`
	Satisfies []string `yaml:"satisfies" json:"satisfies" validate:"required,min=1,dive,required"`
}

var validate = validator.New()

// Default returns the embedded catalog.
func Default() (*Definition, error) {
	return Parse(defaultYAML)
}

// Load reads and validates a catalog file.
func Load(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a catalog document.
func Parse(raw []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks struct constraints and cross references: unique names,
// well-formed permissions, and roles and rules that only use their
// module's vocabulary.
func (d *Definition) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	var errs []error
	vocab := make(map[string]permission.Set, len(d.Modules))
	for _, m := range d.Modules {
		if _, dup := vocab[m.Name]; dup {
			errs = append(errs, fmt.Errorf("module %q declared twice", m.Name))
			continue
		}
		set, err := parseAll(m.Permissions)
		if err != nil {
			errs = append(errs, fmt.Errorf("module %q: %w", m.Name, err))
		}
		vocab[m.Name] = set
	}

	roles := make(map[string]struct{}, len(d.Roles))
	for _, r := range d.Roles {
		if _, dup := roles[r.Name]; dup {
			errs = append(errs, fmt.Errorf("role %q declared twice", r.Name))
		}
		roles[r.Name] = struct{}{}
		set, ok := vocab[r.Module]
		if !ok {
			errs = append(errs, fmt.Errorf("role %q: unknown module %q", r.Name, r.Module))
			continue
		}
		perms, err := parseAll(r.Permissions)
		if err != nil {
			errs = append(errs, fmt.Errorf("role %q: %w", r.Name, err))
			continue
		}
		if missing := perms.Missing(set); len(missing) > 0 {
			errs = append(errs, fmt.Errorf("role %q: %v not in module %q", r.Name, missing, r.Module))
		}
	}

	for _, eq := range d.Equivalences {
		perms, err := parseAll(append([]string{eq.Granted}, eq.Satisfies...))
		if err != nil {
			errs = append(errs, fmt.Errorf("equivalence in %q: %w", eq.Module, err))
			continue
		}
		if eq.Module == bastion.AnyModule {
			continue
		}
		set, ok := vocab[eq.Module]
		if !ok {
			errs = append(errs, fmt.Errorf("equivalence: unknown module %q", eq.Module))
			continue
		}
		if missing := perms.Missing(set); len(missing) > 0 {
			errs = append(errs, fmt.Errorf("equivalence: %v not in module %q", missing, eq.Module))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, errors.Join(errs...))
	}
	return nil
}

func parseAll(raw []string) (permission.Set, error) {
	set := permission.NewSet()
	for _, s := range raw {
		n, err := permission.Parse(s)
		if err != nil {
			return nil, err
		}
		set.Add(n)
	}
	return set, nil
}

// EquivalenceTable converts the declared rules into an engine table.
func (d *Definition) EquivalenceTable() bastion.Equivalences {
	eq := bastion.Equivalences{}
	for _, r := range d.Equivalences {
		sat := make([]permission.Name, 0, len(r.Satisfies))
		for _, s := range r.Satisfies {
			sat = append(sat, permission.Normalize(s))
		}
		eq.Add(r.Module, permission.Normalize(r.Granted), sat...)
	}
	return eq
}

// Summary reports what Apply changed.
type Summary struct {
	Modules      int
	RolesCreated int
	RolesUpdated int
}

// Apply seeds eng with the catalog. It is idempotent: modules are
// upserted, missing roles created and existing roles whose permission
// set differs are brought in line.
func (d *Definition) Apply(ctx context.Context, eng *bastion.Engine) (*Summary, error) {
	s := &Summary{}
	for _, md := range d.Modules {
		perms := make([]permission.Name, 0, len(md.Permissions))
		for _, p := range md.Permissions {
			perms = append(perms, permission.Name(p))
		}
		m := &module.Module{
			Name:        md.Name,
			DisplayName: md.DisplayName,
			Description: md.Description,
			Icon:        md.Icon,
			SortOrder:   md.SortOrder,
			Permissions: perms,
		}
		if err := eng.RegisterModule(ctx, m); err != nil {
			return s, fmt.Errorf("catalog: module %s: %w", md.Name, err)
		}
		s.Modules++
	}

	for _, rd := range d.Roles {
		perms := make([]permission.Name, 0, len(rd.Permissions))
		for _, p := range rd.Permissions {
			perms = append(perms, permission.Normalize(p))
		}
		existing, err := eng.GetRoleByName(ctx, rd.Name)
		switch {
		case errors.Is(err, bastion.ErrRoleNotFound):
			if _, err := eng.CreateRole(ctx, rd.Name, rd.Module, perms, rd.System, role.WithDescription(rd.Description)); err != nil {
				return s, fmt.Errorf("catalog: role %s: %w", rd.Name, err)
			}
			s.RolesCreated++
		case err != nil:
			return s, fmt.Errorf("catalog: role %s: %w", rd.Name, err)
		case existing.ModuleName != rd.Module:
			return s, fmt.Errorf("%w: role %s belongs to module %s", ErrInvalidDefinition, rd.Name, existing.ModuleName)
		case !existing.PermissionSet().Equal(permission.NewSet(perms...)):
			if _, err := eng.UpdateRolePermissions(ctx, existing.ID, perms, role.Elevated()); err != nil {
				return s, fmt.Errorf("catalog: role %s: %w", rd.Name, err)
			}
			s.RolesUpdated++
		}
	}
	return s, nil
}

// ModuleNames returns the declared module names in sort order.
func (d *Definition) ModuleNames() []string {
	mods := slices.Clone(d.Modules)
	slices.SortStableFunc(mods, func(a, b ModuleDef) int { return a.SortOrder - b.SortOrder })
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.Name)
	}
	return out
}
