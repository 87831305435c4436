package engine_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"gridbase/internal/admin"
	"gridbase/internal/auth"
	"gridbase/internal/config"
	"gridbase/internal/engine"
	"gridbase/internal/schema"
	"gridbase/internal/store"
)

const testSecret = "test-secret"

type testEnv struct {
	app   *fiber.App
	token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := t.Context()

	s, err := store.New(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		Name:   "test",
		Path:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	executor := engine.NewExecutor(s, schema.NewCatalog(s))
	authSvc := auth.NewService(s, testSecret)
	gate := auth.Gate(authSvc)

	app := fiber.New(fiber.Config{ErrorHandler: engine.ErrorHandler})
	auth.RegisterAuthRoutes(app, auth.NewHandler(authSvc), gate)
	admin.RegisterAdminRoutes(app, admin.NewHandler(executor), gate)
	engine.RegisterDataRoutes(app, engine.NewHandler(executor), gate)

	token, _, err := authSvc.Login(ctx, "admin", "changeme")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return &testEnv{app: app, token: token}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("execute %s %s: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

type wireEnvelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *string            `json:"error"`
	Pagination *engine.Pagination `json:"pagination"`
}

func decodeEnvelope(t *testing.T, raw []byte) wireEnvelope {
	t.Helper()
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope from %s: %v", raw, err)
	}
	return env
}

func TestEnvelopeShape(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.request(t, http.MethodPost, "/api/tables/users/rows",
		map[string]any{"email": "a@example.com"})
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, raw)
	}

	// Success: error key present and null, data populated.
	var asMap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asMap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errVal, ok := asMap["error"]; !ok || string(errVal) != "null" {
		t.Fatalf("expected error:null in success envelope, got %s", raw)
	}
	if _, ok := asMap["data"]; !ok {
		t.Fatalf("expected data in success envelope, got %s", raw)
	}

	// Failure: data null, error is a message string.
	resp, raw = env.request(t, http.MethodGet, "/api/tables/missing_table/rows", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d: %s", resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, &asMap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(asMap["data"]) != "null" {
		t.Fatalf("expected data:null in error envelope, got %s", raw)
	}
	var msg string
	if err := json.Unmarshal(asMap["error"], &msg); err != nil || msg == "" {
		t.Fatalf("expected error message string, got %s", raw)
	}
}

func TestListPaginationOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 25; i++ {
		resp, raw := env.request(t, http.MethodPost, "/api/tables/users/rows",
			map[string]any{"email": fmt.Sprintf("user%02d@example.com", i)})
		if resp.StatusCode != 201 {
			t.Fatalf("seed %d: %d %s", i, resp.StatusCode, raw)
		}
	}

	_, raw := env.request(t, http.MethodGet, "/api/tables/users/rows?limit=10&offset=20", nil)
	wire := decodeEnvelope(t, raw)
	if wire.Pagination == nil {
		t.Fatalf("expected pagination metadata: %s", raw)
	}
	if wire.Pagination.Total != 25 || wire.Pagination.HasMore {
		t.Fatalf("limit=10 offset=20 total=25: got %+v", wire.Pagination)
	}

	_, raw = env.request(t, http.MethodGet, "/api/tables/users/rows?limit=10&offset=10", nil)
	wire = decodeEnvelope(t, raw)
	if !wire.Pagination.HasMore {
		t.Fatalf("limit=10 offset=10 total=25: expected hasMore=true, got %+v", wire.Pagination)
	}

	var rows []map[string]any
	if err := json.Unmarshal(wire.Data, &rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}
}

func TestDataRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/tables/users/rows"},
		{http.MethodGet, "/api/tables"},
		{http.MethodPost, "/api/query"},
	}
	for _, p := range paths {
		req := httptest.NewRequest(p.method, p.path, nil)
		resp, err := env.app.Test(req, -1)
		if err != nil {
			t.Fatalf("%s %s: %v", p.method, p.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != 401 {
			t.Errorf("%s %s without token: expected 401, got %d", p.method, p.path, resp.StatusCode)
		}
	}
}

func TestSchemaEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.request(t, http.MethodPost, "/api/tables", map[string]any{
		"name": "projects",
		"columns": []map[string]string{
			{"name": "title", "type": "TEXT", "constraints": "NOT NULL"},
		},
	})
	if resp.StatusCode != 201 {
		t.Fatalf("create table: %d %s", resp.StatusCode, raw)
	}

	_, raw = env.request(t, http.MethodGet, "/api/tables", nil)
	wire := decodeEnvelope(t, raw)
	var names []string
	if err := json.Unmarshal(wire.Data, &names); err != nil {
		t.Fatalf("decode tables: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "projects" {
			found = true
		}
	}
	if !found {
		t.Fatalf("projects missing from %v", names)
	}

	_, raw = env.request(t, http.MethodGet, "/api/tables/projects/columns", nil)
	wire = decodeEnvelope(t, raw)
	var table schema.Table
	if err := json.Unmarshal(wire.Data, &table); err != nil {
		t.Fatalf("decode table: %v", err)
	}
	if len(table.Columns) != 2 { // id + title
		t.Fatalf("expected 2 columns, got %+v", table.Columns)
	}

	_, raw = env.request(t, http.MethodGet, "/api/tables/projects/count", nil)
	wire = decodeEnvelope(t, raw)
	var count struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(wire.Data, &count); err != nil {
		t.Fatalf("decode count: %v", err)
	}
	if count.Count != 0 {
		t.Fatalf("expected empty table, got %d", count.Count)
	}

	resp, raw = env.request(t, http.MethodDelete, "/api/tables/users", nil)
	if resp.StatusCode != 403 {
		t.Fatalf("reserved drop: expected 403, got %d %s", resp.StatusCode, raw)
	}

	resp, _ = env.request(t, http.MethodDelete, "/api/tables/projects", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("drop projects: %d", resp.StatusCode)
	}
}

func TestRawQueryEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, raw := env.request(t, http.MethodPost, "/api/query", map[string]any{
		"sql": "SELECT username FROM _admins",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("raw query: %d %s", resp.StatusCode, raw)
	}
	wire := decodeEnvelope(t, raw)
	var rows []map[string]any
	if err := json.Unmarshal(wire.Data, &rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(rows) != 1 || rows[0]["username"] != "admin" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}
