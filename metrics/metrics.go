// Package metrics exports Bastion activity as Prometheus counters. It is a
// plugin: register it with bastion.WithPlugin.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/role"
)

// Compile-time hook checks.
var (
	_ plugin.Plugin            = (*Plugin)(nil)
	_ plugin.AfterCheck        = (*Plugin)(nil)
	_ plugin.RoleGranted       = (*Plugin)(nil)
	_ plugin.RoleRevoked       = (*Plugin)(nil)
	_ plugin.RolesReplaced     = (*Plugin)(nil)
	_ plugin.RoleCreated       = (*Plugin)(nil)
	_ plugin.RoleUpdated       = (*Plugin)(nil)
	_ plugin.RoleDeleted       = (*Plugin)(nil)
	_ plugin.SupervisorChanged = (*Plugin)(nil)
)

// Plugin counts permission decisions and authorization changes.
type Plugin struct {
	checks      *prometheus.CounterVec
	grants      *prometheus.CounterVec
	roleChanges *prometheus.CounterVec
	hierarchy   prometheus.Counter
}

// New creates the plugin and registers its collectors with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Plugin, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Plugin{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bastion",
			Name:      "checks_total",
			Help:      "Permission checks by module, permission and decision code.",
		}, []string{"module", "permission", "decision"}),
		grants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bastion",
			Name:      "grant_changes_total",
			Help:      "Grant mutations by operation.",
		}, []string{"op"}),
		roleChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bastion",
			Name:      "role_changes_total",
			Help:      "Role catalog mutations by operation.",
		}, []string{"op"}),
		hierarchy: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bastion",
			Name:      "supervisor_changes_total",
			Help:      "Supervisor assignments and removals.",
		}),
	}
	for _, c := range []prometheus.Collector{p.checks, p.grants, p.roleChanges, p.hierarchy} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "prometheus-metrics" }

// OnAfterCheck implements plugin.AfterCheck.
func (p *Plugin) OnAfterCheck(_ context.Context, ev plugin.CheckEvent) error {
	p.checks.WithLabelValues(ev.Module, string(ev.Permission), ev.Code).Inc()
	return nil
}

// OnRoleGranted implements plugin.RoleGranted.
func (p *Plugin) OnRoleGranted(context.Context, *grant.Grant) error {
	p.grants.WithLabelValues("grant").Inc()
	return nil
}

// OnRoleRevoked implements plugin.RoleRevoked.
func (p *Plugin) OnRoleRevoked(context.Context, *grant.Grant) error {
	p.grants.WithLabelValues("revoke").Inc()
	return nil
}

// OnRolesReplaced implements plugin.RolesReplaced.
func (p *Plugin) OnRolesReplaced(context.Context, id.UserID, []*grant.Grant) error {
	p.grants.WithLabelValues("replace").Inc()
	return nil
}

// OnRoleCreated implements plugin.RoleCreated.
func (p *Plugin) OnRoleCreated(context.Context, *role.Role) error {
	p.roleChanges.WithLabelValues("create").Inc()
	return nil
}

// OnRoleUpdated implements plugin.RoleUpdated.
func (p *Plugin) OnRoleUpdated(context.Context, *role.Role) error {
	p.roleChanges.WithLabelValues("update").Inc()
	return nil
}

// OnRoleDeleted implements plugin.RoleDeleted.
func (p *Plugin) OnRoleDeleted(context.Context, id.RoleID) error {
	p.roleChanges.WithLabelValues("delete").Inc()
	return nil
}

// OnSupervisorChanged implements plugin.SupervisorChanged.
func (p *Plugin) OnSupervisorChanged(context.Context, id.UserID, *id.UserID) error {
	p.hierarchy.Inc()
	return nil
}
