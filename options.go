package bastion

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithCache sets the cross-request profile cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithAuditSink sets where denials and changes are reported. Defaults to
// persisting through the store.
func WithAuditSink(s audit.Sink) Option { return func(e *Engine) { e.sink = s } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithEquivalences replaces the equivalence table.
func WithEquivalences(eq Equivalences) Option {
	return func(e *Engine) { e.config.Equivalences = eq }
}

// WithTracer sets the OpenTelemetry tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option { return func(e *Engine) { e.tracer = t } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
