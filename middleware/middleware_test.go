package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/forge"
	forge_http "github.com/xraph/go-utils/http"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/grant"
	"github.com/xraph/bastion/id"
	"github.com/xraph/bastion/module"
	"github.com/xraph/bastion/permission"
	"github.com/xraph/bastion/store"
	"github.com/xraph/bastion/store/memory"
	"github.com/xraph/bastion/user"
)

// flakyStore fails grant loads with err when set.
type flakyStore struct {
	store.Store
	err error
}

func (s *flakyStore) ListActiveGrants(ctx context.Context, userID id.UserID) ([]*grant.Grant, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.Store.ListActiveGrants(ctx, userID)
}

type testEnv struct {
	eng    *bastion.Engine
	store  *flakyStore
	viewer id.UserID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	fs := &flakyStore{Store: memory.New()}
	eng, err := bastion.NewEngine(bastion.WithStore(fs))
	require.NoError(t, err)

	for _, m := range []*module.Module{
		{Name: "asekuracja", DisplayName: "Asekuracja", SortOrder: 1, Permissions: []permission.Name{permission.View, permission.Edit}},
		{Name: "equipment", DisplayName: "Sprzęt", SortOrder: 2, Permissions: []permission.Name{permission.View}},
	} {
		require.NoError(t, eng.RegisterModule(ctx, m))
	}
	r, err := eng.CreateRole(ctx, "ASSEK_VIEWER", "asekuracja", []permission.Name{permission.View}, false)
	require.NoError(t, err)

	u := &user.User{Login: "viewer"}
	require.NoError(t, eng.CreateUser(ctx, u))
	_, err = eng.GrantRole(ctx, u.ID, r.ID, id.Nil)
	require.NoError(t, err)
	return &testEnv{eng: eng, store: fs, viewer: u.ID}
}

// serve runs mw around a handler that answers 204, as the request
// authenticated as userID.
func serve(t *testing.T, mw forge.Middleware, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	if userID != "" {
		req = req.WithContext(forge.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	ctx := forge_http.NewContext(rec, req, nil)

	handler := mw(func(ctx forge.Context) error {
		ctx.Response().WriteHeader(http.StatusNoContent)
		return nil
	})
	require.NoError(t, handler(ctx))
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestParseUser(t *testing.T) {
	uid := id.NewUserID()

	got, ok := parseUser(uid.String())
	assert.True(t, ok)
	assert.Equal(t, uid, got)

	_, ok = parseUser("")
	assert.False(t, ok)

	_, ok = parseUser(id.NewRoleID().String())
	assert.False(t, ok, "role id is not a user id")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("bastion check: %w", bastion.ErrAccessDenied), http.StatusForbidden},
		{bastion.ErrUnavailable, http.StatusServiceUnavailable},
		{bastion.ErrUserNotFound, http.StatusNotFound},
		{bastion.ErrUnknownModule, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
	assert.Equal(t, "access denied", message(bastion.ErrAccessDenied))
	assert.Equal(t, "authorization failed", message(errors.New("db password leaked")))
}

func TestRequirePermission(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.viewer.String()

	tests := []struct {
		name   string
		perm   permission.Name
		user   string
		status int
		msg    string
	}{
		{"allowed", permission.View, viewer, http.StatusNoContent, ""},
		{"denied", permission.Edit, viewer, http.StatusForbidden, "access denied"},
		{"no user", permission.View, "", http.StatusUnauthorized, "authentication required"},
		{"malformed user", permission.View, "not-an-id", http.StatusUnauthorized, "authentication required"},
		{"role id as user", permission.View, id.NewRoleID().String(), http.StatusUnauthorized, "authentication required"},
		{"unknown user", permission.View, id.NewUserID().String(), http.StatusNotFound, "authorization failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, RequirePermission(env.eng, "asekuracja", tt.perm), tt.user)
			assert.Equal(t, tt.status, rec.Code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, errorBody(t, rec))
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRequirePermissionStoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.store.err = context.DeadlineExceeded

	rec := serve(t, RequirePermission(env.eng, "asekuracja", permission.View), env.viewer.String())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "authorization temporarily unavailable", errorBody(t, rec))
}

func TestRequirePermissionUnknownModule(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(t, RequirePermission(env.eng, "warehouse", permission.View), env.viewer.String())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "authorization failed", errorBody(t, rec))
}

func TestRequireAnyPermission(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.viewer.String()

	rec := serve(t, RequireAnyPermission(env.eng, "asekuracja", permission.Edit, permission.View), viewer)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, RequireAnyPermission(env.eng, "asekuracja", permission.Edit), viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "access denied", errorBody(t, rec))

	rec = serve(t, RequireAnyPermission(env.eng, "asekuracja", permission.View), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env.store.err = context.DeadlineExceeded
	rec = serve(t, RequireAnyPermission(env.eng, "asekuracja", permission.View), viewer)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequireModule(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.viewer.String()

	rec := serve(t, RequireModule(env.eng, "asekuracja"), viewer)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, RequireModule(env.eng, "equipment"), viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "access denied", errorBody(t, rec))

	rec = serve(t, RequireModule(env.eng, "asekuracja"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, RequireModule(env.eng, "asekuracja"), id.NewUserID().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
