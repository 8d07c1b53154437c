package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jmehdipour/voidview/internal/auth"
	"github.com/jmehdipour/voidview/internal/config"
	"github.com/jmehdipour/voidview/internal/lock"
	"github.com/jmehdipour/voidview/internal/model"
	"github.com/jmehdipour/voidview/internal/repository"
	"github.com/jmehdipour/voidview/internal/tabular"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	t   *testing.T
	srv *Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Storage.Dir = t.TempDir()
	cfg.Auth.BcryptCost = bcrypt.MinCost

	b, err := tabular.Open(context.Background(), cfg.Storage.Dir, lock.NewLocal(),
		tabular.WithSeed(tabular.FileUsers, repository.SeedRoot(repository.RootAccount{
			Username: "root", Password: "root123", DisplayName: "Administrator", Cost: bcrypt.MinCost,
		})),
	)
	require.NoError(t, err)
	issuer := auth.NewIssuer("test-secret", time.Minute, time.Hour)
	return &testAPI{t: t, srv: NewServer(cfg, b, issuer, nil)}
}

// do sends body as JSON and decodes the response into out when it is not nil.
func (a *testAPI) do(method, path, token string, body, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.srv.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	var resp struct {
		AccessToken string         `json:"access_token"`
		User        map[string]any `json:"user"`
	}
	code := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": username, "password": password}, &resp)
	require.Equal(a.t, http.StatusOK, code)
	require.NotEmpty(a.t, resp.AccessToken)
	require.NotContains(a.t, resp.User, "password_hash")
	return resp.AccessToken
}

func TestHealthAndRequestID(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestAuth(t *testing.T) {
	api := newTestAPI(t)

	code := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "root", "password": "bad-pass"}, nil)
	require.Equal(t, http.StatusUnauthorized, code)

	require.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/customers", "", nil, nil))
	require.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/customers", "garbage", nil, nil))

	token := api.login("root", "root123")
	var me map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/auth/me", token, nil, &me))
	require.Equal(t, "root", me["username"])
	require.Equal(t, true, me["must_change_password"])

	code = api.do(http.MethodPost, "/api/v1/auth/change-password", token,
		map[string]string{"old_password": "root123", "new_password": "better1"}, nil)
	require.Equal(t, http.StatusOK, code)
	api.login("root", "better1")
}

func TestRefresh(t *testing.T) {
	api := newTestAPI(t)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	code := api.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "root", "password": "root123"}, &resp)
	require.Equal(t, http.StatusOK, code)

	code = api.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": resp.AccessToken}, nil)
	require.Equal(t, http.StatusUnauthorized, code)

	var next struct {
		AccessToken string `json:"access_token"`
	}
	code = api.do(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": resp.RefreshToken}, &next)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/auth/me", next.AccessToken, nil, nil))
}

func TestUsersRequireRoot(t *testing.T) {
	api := newTestAPI(t)
	root := api.login("root", "root123")

	var created map[string]any
	code := api.do(http.MethodPost, "/api/v1/users", root,
		map[string]string{"username": "alice", "password": "secret1", "display_name": "Alice"}, &created)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "tester", created["role"])
	require.NotContains(t, created, "password_hash")

	code = api.do(http.MethodPost, "/api/v1/users", root,
		map[string]string{"username": "alice", "password": "secret1", "display_name": "Alice"}, nil)
	require.Equal(t, http.StatusConflict, code)

	alice := api.login("alice", "secret1")
	require.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/users", alice, nil, nil))

	var page pageView[map[string]any]
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/users?page_size=1", root, nil, &page))
	require.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/users?page=9223372036854775807", root, nil, &page))
	require.Equal(t, 2, page.Total)
	require.Empty(t, page.Items)

	// root cannot lock itself out
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodDelete, "/api/v1/users/1", root, nil, nil))
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch, "/api/v1/users/1", root, map[string]any{"is_active": false}, nil))

	id := int64(created["id"].(float64))
	path := "/api/v1/users/" + strconv.FormatInt(id, 10)
	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, path, root, map[string]any{"is_active": false}, nil))
	require.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/customers", alice, nil, nil))

	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, path+"/reset-password", root, map[string]string{"new_password": "short"}, nil))
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, path+"/reset-password", root, map[string]string{"new_password": "fresh12"}, nil))
	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, path, root, nil, nil))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, root, nil, nil))
}

func TestEntitiesExperimentsAndMatrix(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("root", "root123")

	var customer model.Customer
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/customers", token, map[string]string{"name": "Acme"}, &customer))
	require.Equal(t, http.StatusConflict, api.do(http.MethodPost, "/api/v1/customers", token, map[string]string{"name": "Acme"}, nil))

	var app model.App
	path := "/api/v1/customers/" + strconv.FormatInt(customer.ID, 10) + "/apps"
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, path, token, map[string]string{"name": "Player"}, &app))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/v1/customers/99/apps", token, map[string]string{"name": "Player"}, nil))

	var tpl model.Template
	path = "/api/v1/apps/" + strconv.FormatInt(app.ID, 10) + "/templates"
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, path, token, map[string]string{"name": "hd5"}, &tpl))

	var list []model.Template
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, path, token, nil, &list))
	require.Len(t, list, 1)

	code := api.do(http.MethodPost, "/api/v1/experiments", token, map[string]any{"name": "exp-A", "template_ids": []int64{42}}, nil)
	require.Equal(t, http.StatusNotFound, code)
	code = api.do(http.MethodPost, "/api/v1/experiments", token, map[string]any{"name": "exp-A", "status": "paused"}, nil)
	require.Equal(t, http.StatusBadRequest, code)

	var exp model.ExperimentDetail
	code = api.do(http.MethodPost, "/api/v1/experiments", token, map[string]any{"name": "exp-A", "template_ids": []int64{tpl.ID}}, &exp)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, model.PaletteColor(exp.ID), exp.Color)
	require.Equal(t, []int64{tpl.ID}, exp.TemplateIDs)
	require.Equal(t, int64(1), exp.CreatedBy)

	var m struct {
		Rows []struct {
			CustomerName string                           `json:"customer_name"`
			TemplateName string                           `json:"template_name"`
			Experiments  map[string]model.ExperimentBrief `json:"experiments"`
		} `json:"rows"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/matrix", token, nil, &m))
	require.Len(t, m.Rows, 1)
	require.Equal(t, "Acme", m.Rows[0].CustomerName)
	require.Equal(t, "exp-A", m.Rows[0].Experiments[strconv.FormatInt(exp.ID, 10)].Name)

	expPath := "/api/v1/experiments/" + strconv.FormatInt(exp.ID, 10)
	var patched model.ExperimentDetail
	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, expPath, token, map[string]string{"status": "running"}, &patched))
	require.Equal(t, model.StatusRunning, patched.Status)
	require.NotNil(t, patched.UpdatedAt)
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodPatch, expPath, token, map[string]string{"status": "paused"}, nil))

	var page pageView[model.Experiment]
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/experiments?status=running&template_id="+strconv.FormatInt(tpl.ID, 10), token, nil, &page))
	require.Equal(t, 1, page.Total)
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/experiments?page=9223372036854775807", token, nil, &page))
	require.Equal(t, 1, page.Total)
	require.Empty(t, page.Items)

	var unlinked model.ExperimentDetail
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, expPath+"/templates/"+strconv.FormatInt(tpl.ID, 10), token, nil, &unlinked))
	require.Empty(t, unlinked.TemplateIDs)

	var relinked model.ExperimentDetail
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, expPath+"/templates", token, map[string]any{"template_ids": []int64{tpl.ID, tpl.ID}}, &relinked))
	require.Equal(t, []int64{tpl.ID}, relinked.TemplateIDs)

	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, expPath, token, nil, nil))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodGet, expPath, token, nil, nil))
	require.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, expPath, token, nil, nil))
	require.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/experiments/abc", token, nil, nil))
}
