// Package middleware provides HTTP authorization middleware for Bastion.
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/permission"
)

// RequirePermission lets the request through only when the authenticated
// user holds perm in moduleName. Denials are audited.
func RequirePermission(eng *bastion.Engine, moduleName string, perm permission.Name) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			userID, ok := resolveUser(ctx)
			if !ok {
				return errorResponse(ctx, http.StatusUnauthorized, "authentication required")
			}
			c := bastion.WithActor(ctx.Context(), userID)
			if err := eng.CheckPermission(c, userID, moduleName, perm); err != nil {
				return errorResponse(ctx, statusFor(err), message(err))
			}
			return next(ctx)
		}
	}
}

// RequireAnyPermission allows the request if the user holds ANY of perms
// in moduleName. The profile is loaded once for all candidates.
func RequireAnyPermission(eng *bastion.Engine, moduleName string, perms ...permission.Name) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			userID, ok := resolveUser(ctx)
			if !ok {
				return errorResponse(ctx, http.StatusUnauthorized, "authentication required")
			}
			allowed, err := eng.HasAnyPermission(bastion.WithActor(ctx.Context(), userID), userID, moduleName, perms...)
			if err != nil {
				return errorResponse(ctx, statusFor(err), message(err))
			}
			if !allowed {
				return errorResponse(ctx, http.StatusForbidden, "access denied")
			}
			return next(ctx)
		}
	}
}

// RequireModule gates a whole module: the user needs at least one active
// role in it.
func RequireModule(eng *bastion.Engine, moduleName string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			userID, ok := resolveUser(ctx)
			if !ok {
				return errorResponse(ctx, http.StatusUnauthorized, "authentication required")
			}
			if err := eng.CheckModuleAccess(bastion.WithActor(ctx.Context(), userID), userID, moduleName); err != nil {
				return errorResponse(ctx, statusFor(err), message(err))
			}
			return next(ctx)
		}
	}
}

// resolveUser reads the authenticated user ID placed on the request
// context by the auth layer.
func resolveUser(ctx forge.Context) (id.UserID, bool) {
	return parseUser(forge.UserIDFromContext(ctx.Context()))
}

func parseUser(raw string) (id.UserID, bool) {
	if raw == "" {
		return id.Nil, false
	}
	userID, err := id.ParseUserID(raw)
	if err != nil {
		return id.Nil, false
	}
	return userID, true
}

// statusFor maps an engine error to an HTTP status. Misconfigured module
// or permission names surface as 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bastion.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, bastion.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, bastion.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// message hides internal detail from non-denial failures.
func message(err error) string {
	if errors.Is(err, bastion.ErrForbidden) {
		return "access denied"
	}
	if errors.Is(err, bastion.ErrUnavailable) {
		return "authorization temporarily unavailable"
	}
	return "authorization failed"
}

func errorResponse(ctx forge.Context, status int, msg string) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(status)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": msg})
}
