package bastion

import (
	"context"
	"sync"

	"github.com/xraph/bastion/id"
)

type contextKey int

const (
	ctxKeyActor contextKey = iota
	ctxKeyScope
)

// WithActor returns a context naming the user on whose behalf changes are
// made. Audit entries use it when an operation has no explicit actor.
func WithActor(ctx context.Context, actorID id.UserID) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actorID)
}

// ActorFromContext returns the actor set by WithActor, or Nil.
func ActorFromContext(ctx context.Context) id.UserID {
	v, ok := ctx.Value(ctxKeyActor).(id.UserID)
	if !ok {
		return id.Nil
	}
	return v
}

// requestScope memoizes access profiles for the lifetime of one request.
type requestScope struct {
	mu       sync.Mutex
	profiles map[id.UserID]*Profile
}

// WithRequestScope returns a context that memoizes each user's access
// profile until the context is discarded. Engine mutations made with the
// same context drop the affected entries.
func WithRequestScope(ctx context.Context) context.Context {
	if scopeFromContext(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyScope, &requestScope{profiles: make(map[id.UserID]*Profile)})
}

func scopeFromContext(ctx context.Context) *requestScope {
	v, _ := ctx.Value(ctxKeyScope).(*requestScope)
	return v
}

func (s *requestScope) get(userID id.UserID) (*Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	return p, ok
}

func (s *requestScope) put(p *Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

func (s *requestScope) drop(userID id.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
}

func (s *requestScope) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.profiles)
}
