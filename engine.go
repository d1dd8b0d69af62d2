package bastion

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/xraph/bastion/audit"
	"github.com/xraph/bastion/fault"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/plugin"
	"github.com/xraph/bastion/store"
)

const tracerName = "github.com/xraph/bastion"

// Engine is the central authorization engine. It evaluates permission
// checks against users' active grants, owns the write paths that change
// grants, roles and the supervisor hierarchy, and fires plugin hooks and
// audit records for them.
type Engine struct {
	store   store.Store
	cache   Cache
	sink    audit.Sink
	plugins *plugin.Registry
	logger  *slog.Logger
	tracer  trace.Tracer
	config  Config

	loads singleflight.Group

	// gens tracks local mutations so an in-flight load started before a
	// mutation is never shared with a reader that started after it.
	genMu     sync.Mutex
	globalGen uint64
	userGens  map[id.UserID]uint64

	catalog    atomic.Pointer[catalogSnapshot]
	catalogGen atomic.Uint64

	// hierarchyMu serializes supervisor changes within the process.
	hierarchyMu sync.Mutex
}

// NewEngine creates a new Bastion engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:   slog.Default(),
		config:   DefaultConfig(),
		userGens: make(map[id.UserID]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("bastion: store is required")
	}
	e.config.Equivalences = e.config.Equivalences.normalized()
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	if e.sink == nil {
		e.sink = audit.NewStoreSink(e.store)
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Start warms the module catalog.
func (e *Engine) Start(ctx context.Context) error {
	if _, err := e.loadCatalog(ctx); err != nil {
		return fmt.Errorf("bastion: load catalog: %w", err)
	}
	return nil
}

// Stop notifies plugins of shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Profile loading
// ──────────────────────────────────────────────────

// profile returns the user's access profile, consulting the request scope
// and the cross-request cache before the store.
func (e *Engine) profile(ctx context.Context, userID id.UserID) (*Profile, error) {
	scope := scopeFromContext(ctx)
	if scope != nil {
		if p, ok := scope.get(userID); ok {
			return p, nil
		}
	}

	version, cacheOK := "", e.cache != nil
	if cacheOK {
		v, err := e.cache.Version(ctx, userID)
		if err != nil {
			e.logger.Warn("bastion: cache version lookup failed",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()),
			)
			cacheOK = false
		} else {
			version = v
			p, ok, err := e.cache.Get(ctx, userID, version)
			if err != nil {
				e.logger.Warn("bastion: cache read failed",
					slog.String("user_id", userID.String()),
					slog.String("error", err.Error()),
				)
			} else if ok {
				if scope != nil {
					scope.put(p)
				}
				return p, nil
			}
		}
	}

	key := userID.String() + "@" + e.localGen(userID) + "@" + version
	v, err, _ := e.loads.Do(key, func() (any, error) {
		return e.loadProfile(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	p := v.(*Profile) //nolint:errcheck // loadProfile only returns *Profile

	if cacheOK {
		if err := e.cache.Set(ctx, userID, version, p); err != nil {
			e.logger.Warn("bastion: cache write failed",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	if scope != nil {
		scope.put(p)
	}
	return p, nil
}

func (e *Engine) loadProfile(ctx context.Context, userID id.UserID) (*Profile, error) {
	u, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return nil, e.mapNotFound(err, ErrUserNotFound, "load user")
	}
	grants, err := e.store.ListActiveGrants(ctx, userID)
	if err != nil {
		return nil, storeErr("load grants", err)
	}

	p := &Profile{UserID: userID, Active: u.IsActive}
	if len(grants) == 0 {
		return p, nil
	}

	// Tolerate duplicate active rows for one role.
	roleIDs := make([]id.RoleID, 0, len(grants))
	grantByRole := make(map[id.RoleID]id.GrantID, len(grants))
	for _, g := range grants {
		if !g.IsActive {
			continue
		}
		if _, dup := grantByRole[g.RoleID]; dup {
			continue
		}
		grantByRole[g.RoleID] = g.ID
		roleIDs = append(roleIDs, g.RoleID)
	}

	roles, err := e.store.GetRoles(ctx, roleIDs)
	if err != nil {
		return nil, storeErr("load roles", err)
	}
	for _, r := range roles {
		p.Grants = append(p.Grants, ProfileGrant{
			GrantID:     grantByRole[r.ID],
			RoleID:      r.ID,
			Role:        r.Name,
			Module:      r.ModuleName,
			Permissions: slices.Clone(r.Permissions),
		})
	}
	slices.SortFunc(p.Grants, func(a, b ProfileGrant) int {
		return cmp.Or(cmp.Compare(a.Module, b.Module), cmp.Compare(a.Role, b.Role))
	})
	return p, nil
}

func (e *Engine) localGen(userID id.UserID) string {
	e.genMu.Lock()
	defer e.genMu.Unlock()
	return strconv.FormatUint(e.globalGen, 10) + "." + strconv.FormatUint(e.userGens[userID], 10)
}

// invalidateUser drops every cached view of the user's profile. It runs
// after the store write commits and before the mutation returns.
func (e *Engine) invalidateUser(ctx context.Context, userID id.UserID) error {
	e.genMu.Lock()
	e.userGens[userID]++
	e.genMu.Unlock()

	if scope := scopeFromContext(ctx); scope != nil {
		scope.drop(userID)
	}
	if e.cache != nil {
		if err := e.cache.InvalidateUser(ctx, userID); err != nil {
			e.logger.Error("bastion: cache invalidation failed",
				slog.String("user_id", userID.String()),
				slog.String("error", err.Error()),
			)
			return fault.Wrap(fault.Unavailable, fmt.Errorf("bastion: invalidate profile cache: %w", err))
		}
	}
	return nil
}

// invalidateAll drops every cached profile, used after role edits.
func (e *Engine) invalidateAll(ctx context.Context) error {
	e.genMu.Lock()
	e.globalGen++
	e.genMu.Unlock()

	if scope := scopeFromContext(ctx); scope != nil {
		scope.clear()
	}
	if e.cache != nil {
		if err := e.cache.InvalidateAll(ctx); err != nil {
			e.logger.Error("bastion: cache invalidation failed",
				slog.String("error", err.Error()),
			)
			return fault.Wrap(fault.Unavailable, fmt.Errorf("bastion: invalidate profile cache: %w", err))
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Module catalog snapshot
// ──────────────────────────────────────────────────

type catalogSnapshot struct {
	gen     uint64
	ordered []*module.Module
	byName  map[string]*module.Module
}

// loadCatalog returns the module snapshot for the current catalog
// generation. A load that started before RefreshCatalog may finish later,
// but its snapshot carries the old generation and is never served again.
func (e *Engine) loadCatalog(ctx context.Context) (*catalogSnapshot, error) {
	gen := e.catalogGen.Load()
	if snap := e.catalog.Load(); snap != nil && snap.gen == gen {
		return snap, nil
	}
	v, err, _ := e.loads.Do("\x00catalog."+strconv.FormatUint(gen, 10), func() (any, error) {
		mods, err := e.store.ListModules(ctx)
		if err != nil {
			return nil, storeErr("list modules", err)
		}
		snap := &catalogSnapshot{gen: gen, ordered: mods, byName: make(map[string]*module.Module, len(mods))}
		for _, m := range mods {
			snap.byName[m.Name] = m
		}
		if e.catalogGen.Load() == gen {
			e.catalog.Store(snap)
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalogSnapshot), nil //nolint:errcheck // always *catalogSnapshot
}

// RefreshCatalog drops the cached module catalog so the next evaluation
// reloads it from the store. Call it after another process seeds modules.
func (e *Engine) RefreshCatalog() {
	e.catalogGen.Add(1)
	e.catalog.Store(nil)
}

// ──────────────────────────────────────────────────
// Audit, tracing and error helpers
// ──────────────────────────────────────────────────

// record sends an entry to the audit sink. Failures are logged, never
// returned.
func (e *Engine) record(ctx context.Context, entry *audit.Entry) {
	if entry.ActorID.IsNil() {
		entry.ActorID = ActorFromContext(ctx)
	}
	if err := e.sink.Record(ctx, entry); err != nil {
		e.logger.Warn("bastion: audit record failed",
			slog.String("kind", string(entry.Kind)),
			slog.String("subject_id", entry.SubjectID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Engine) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "bastion."+name, opts...)
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// storeErr wraps a store failure, classifying connectivity problems.
func storeErr(op string, err error) error {
	return fault.Classify(fmt.Errorf("bastion: %s: %w", op, err))
}

// mapNotFound replaces a store not-found with the specific error.
func (e *Engine) mapNotFound(err, specific error, op string) error {
	if errors.Is(err, fault.ErrNotFound) {
		return fmt.Errorf("%w: %w", specific, err)
	}
	return storeErr(op, err)
}
