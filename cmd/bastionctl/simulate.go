package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/catalog"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/store/memory"
	"github.com/xraph/bastion/user"
)

// Fixture describes users, their roles and the checks to run against them.
type Fixture struct {
	Users  []FixtureUser `yaml:"users" validate:"required,dive"`
	Checks []Check       `yaml:"checks" validate:"required,min=1,dive"`
}

// FixtureUser is one account in a fixture. Roles are referenced by name.
type FixtureUser struct {
	Login       string   `yaml:"login" validate:"required"`
	DisplayName string   `yaml:"display_name"`
	Active      *bool    `yaml:"active"`
	Supervisor  string   `yaml:"supervisor"`
	Roles       []string `yaml:"roles"`
}

// Check is one expected decision.
type Check struct {
	User       string `yaml:"user" validate:"required"`
	Module     string `yaml:"module" validate:"required"`
	Permission string `yaml:"permission" validate:"required"`
	Expect     string `yaml:"expect" validate:"required,oneof=allow deny"`
}

// CheckResult pairs a check with the decision the engine made.
type CheckResult struct {
	User       string               `json:"user"`
	Module     string               `json:"module"`
	Permission string               `json:"permission"`
	Allowed    bool                 `json:"allowed"`
	Code       bastion.DecisionCode `json:"code"`
	Matched    []string             `json:"matched_roles,omitempty"`
	Expected   string               `json:"expected"`
	Pass       bool                 `json:"pass"`
}

// Report is the outcome of a simulation run.
type Report struct {
	Results  []CheckResult `json:"results"`
	Failures int           `json:"failures"`
}

var fixtureValidator = validator.New()

func loadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return parseFixture(raw)
}

func parseFixture(raw []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := fixtureValidator.Struct(&fx); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &fx, nil
}

// simulate seeds an in-memory engine with the catalog and fixture, then
// evaluates every check.
func simulate(ctx context.Context, def *catalog.Definition, fx *Fixture, logger *slog.Logger) (*Report, error) {
	eng, err := bastion.NewEngine(
		bastion.WithStore(memory.New()),
		bastion.WithLogger(logger),
		bastion.WithEquivalences(def.EquivalenceTable()),
	)
	if err != nil {
		return nil, err
	}
	if _, err := def.Apply(ctx, eng); err != nil {
		return nil, fmt.Errorf("apply catalog: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return nil, err
	}
	defer eng.Stop(ctx) //nolint:errcheck

	users := make(map[string]id.UserID, len(fx.Users))
	for _, fu := range fx.Users {
		if _, dup := users[fu.Login]; dup {
			return nil, fmt.Errorf("user %q declared twice", fu.Login)
		}
		u := &user.User{Login: fu.Login, DisplayName: fu.DisplayName}
		if err := eng.CreateUser(ctx, u); err != nil {
			return nil, fmt.Errorf("user %q: %w", fu.Login, err)
		}
		if fu.Active != nil && !*fu.Active {
			if err := eng.SetUserActive(ctx, u.ID, false); err != nil {
				return nil, fmt.Errorf("user %q: %w", fu.Login, err)
			}
		}
		users[fu.Login] = u.ID
	}

	for _, fu := range fx.Users {
		uid := users[fu.Login]
		if fu.Supervisor != "" {
			sup, ok := users[fu.Supervisor]
			if !ok {
				return nil, fmt.Errorf("user %q: unknown supervisor %q", fu.Login, fu.Supervisor)
			}
			if err := eng.SetSupervisor(ctx, uid, sup); err != nil {
				return nil, fmt.Errorf("user %q: %w", fu.Login, err)
			}
		}
		for _, name := range fu.Roles {
			r, err := eng.GetRoleByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("user %q: role %s: %w", fu.Login, name, err)
			}
			if _, err := eng.GrantRole(ctx, uid, r.ID, id.Nil); err != nil {
				return nil, fmt.Errorf("user %q: grant %s: %w", fu.Login, name, err)
			}
		}
	}

	rep := &Report{Results: make([]CheckResult, 0, len(fx.Checks))}
	for _, c := range fx.Checks {
		uid, ok := users[c.User]
		if !ok {
			return nil, fmt.Errorf("check references unknown user %q", c.User)
		}
		d, err := eng.Evaluate(ctx, uid, c.Module, permission.Name(c.Permission))
		if err != nil {
			return nil, fmt.Errorf("check %s %s/%s: %w", c.User, c.Module, c.Permission, err)
		}
		res := CheckResult{
			User:       c.User,
			Module:     c.Module,
			Permission: string(d.Permission),
			Allowed:    d.Allowed,
			Code:       d.Code,
			Matched:    d.MatchedRoles,
			Expected:   c.Expect,
			Pass:       d.Allowed == (c.Expect == "allow"),
		}
		if !res.Pass {
			rep.Failures++
			logger.Warn("unexpected decision",
				slog.String("user", c.User),
				slog.String("module", c.Module),
				slog.String("permission", res.Permission),
				slog.String("code", string(d.Code)),
			)
		}
		rep.Results = append(rep.Results, res)
	}
	return rep, nil
}

func printReport(w io.Writer, rep *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tMODULE\tPERMISSION\tDECISION\tEXPECTED\tRESULT")
	for _, r := range rep.Results {
		result := "ok"
		if !r.Pass {
			result = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.User, r.Module, r.Permission, r.Code, r.Expected, result)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d checks, %d failures\n", len(rep.Results), rep.Failures)
	return err
}
