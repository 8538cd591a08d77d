package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugr-lab/nest/auth"
	"github.com/hugr-lab/nest/engine"
	"github.com/hugr-lab/nest/schema"
	"github.com/hugr-lab/nest/tools"
)

const claudeAgent = "Claude-User (+https://support.anthropic.com/)"

func newTestTools(t *testing.T) *tools.Service {
	t.Helper()
	cfg := engine.DefaultConfig()
	cfg.TempDirectory = t.TempDir()
	cfg.AccessMode = engine.AccessReadWrite
	model := schema.New(schema.Flattened, "companies")

	ctx := context.Background()
	db, err := engine.Open(ctx, cfg)
	require.NoError(t, err)
	_, err = db.Exec(ctx, model.TableSQL())
	require.NoError(t, err)
	_, err = db.Exec(ctx, `INSERT INTO companies (company_id, company_name, foundation_year, nace_categories, financial_data) VALUES
		('c1', 'Acme Software AS', 2001, '["62010"]', '{"2021":{"revenue":1500000}}'),
		('c2', 'Birk Fiske AS', 1950, '["03110"]', '{"2017":{"revenue":90000}}'),
		('c3', 'Acme Fiske AS', 1999, '["03110"]', NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg.AccessMode = engine.AccessReadOnly
	return tools.NewService(tools.Config{Engine: cfg, Model: model})
}

func newHandler(t *testing.T, mutate func(*Config)) http.Handler {
	t.Helper()
	cfg := Config{
		Tools: newTestTools(t),
		Gate:  auth.NewGate(auth.DefaultGateConfig(), nil),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg).Handler()
}

func serve(h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListTools(t *testing.T) {
	h := newHandler(t, nil)

	rec := serve(h, http.MethodGet, "/tools", "", map[string]string{"User-Agent": claudeAgent})
	require.Equal(t, http.StatusOK, rec.Code)

	var got toolList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, tools.Instructions, got.Instructions)
	require.Len(t, got.Tools, 4)
	assert.Equal(t, tools.ToolSearch, got.Tools[0].Name)
}

func TestGetTool(t *testing.T) {
	h := newHandler(t, nil)
	headers := map[string]string{"User-Agent": claudeAgent}

	rec := serve(h, http.MethodGet, "/tools/company_annual_report", "", headers)
	require.Equal(t, http.StatusOK, rec.Code)
	var d tools.Descriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, tools.ToolCompanyAnnualReport, d.Name)
	assert.True(t, d.ReadOnly)

	rec = serve(h, http.MethodGet, "/tools/drop_everything", "", headers)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), tools.KindUnknownTool)
}

func TestGate(t *testing.T) {
	h := newHandler(t, nil)

	tests := []struct {
		name    string
		method  string
		path    string
		headers map[string]string
		code    int
	}{
		{"no headers", http.MethodGet, "/tools", nil, http.StatusForbidden},
		{"other agent", http.MethodGet, "/tools", map[string]string{"User-Agent": "curl/8.0"}, http.StatusForbidden},
		{"claude agent", http.MethodGet, "/tools", map[string]string{"User-Agent": claudeAgent}, http.StatusOK},
		{"claude origin", http.MethodGet, "/tools", map[string]string{"Origin": "https://claude.ai"}, http.StatusOK},
		{"claude referer", http.MethodGet, "/tools", map[string]string{"Referer": "https://claude.ai/chat"}, http.StatusOK},
		{"preflight", http.MethodOptions, "/tools/search", nil, http.StatusNoContent},
		{"well known", http.MethodGet, "/.well-known/oauth-protected-resource", nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.method, tt.path, "", tt.headers)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusForbidden {
				assert.JSONEq(t, auth.ForbiddenBody, rec.Body.String())
			}
		})
	}
}

func TestGateDisabled(t *testing.T) {
	h := newHandler(t, func(c *Config) { c.Gate = nil })

	rec := serve(h, http.MethodGet, "/tools", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedResource(t *testing.T) {
	h := newHandler(t, nil)

	rec := serve(h, http.MethodGet, "/.well-known/oauth-protected-resource", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"resource":"mcp","authorization_servers":[],"bearer_methods_supported":["header"]}`, rec.Body.String())
}

func TestInvokeTool(t *testing.T) {
	h := newHandler(t, nil)
	headers := map[string]string{"User-Agent": claudeAgent, "Content-Type": "application/json"}

	rec := serve(h, http.MethodPost, "/tools/search", `{"name_substring":"fiske","revenue_range":{"low":50000,"high":100000}}`, headers)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Birk Fiske AS", rows[0]["company_name"])

	rec = serve(h, http.MethodPost, "/tools/run_raw_query", `{"sql":"SELECT count(*) AS n FROM companies"}`, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"n":3}]`, rec.Body.String())
}

func TestInvokeToolErrors(t *testing.T) {
	h := newHandler(t, nil)
	headers := map[string]string{"User-Agent": claudeAgent}

	tests := []struct {
		name  string
		path  string
		body  string
		code  int
		kind  string
		field string
	}{
		{"validation", "/tools/search", `{"employee_range":{"low":10,"high":1}}`, http.StatusBadRequest, tools.KindInvalidRequest, "employee_range"},
		{"unsafe input", "/tools/search", `{"purpose_text":"fish; drop"}`, http.StatusBadRequest, tools.KindInvalidRequest, "purpose_text"},
		{"malformed body", "/tools/search", `{`, http.StatusBadRequest, tools.KindInvalidRequest, ""},
		{"unknown tool", "/tools/delete_all", `{}`, http.StatusNotFound, tools.KindUnknownTool, ""},
		{"query failure", "/tools/company", `{"sql":"SELEC 1"}`, http.StatusInternalServerError, tools.KindQueryFailed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, http.MethodPost, tt.path, tt.body, headers)
			assert.Equal(t, tt.code, rec.Code)

			var p tools.ErrorPayload
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
			assert.Equal(t, tt.kind, p.Error)
			assert.Equal(t, tt.field, p.Field)
			assert.NotEmpty(t, p.Message)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	h := newHandler(t, func(c *Config) { c.MaxBodyBytes = 16 })

	rec := serve(h, http.MethodPost, "/tools/search", `{"name_substring":"a very long company name"}`, map[string]string{"User-Agent": claudeAgent})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestBearerAuth(t *testing.T) {
	h := newHandler(t, func(c *Config) {
		c.Auth = auth.StaticTokens(map[string]string{"alice": "secret"})
	})

	rec := serve(h, http.MethodGet, "/tools", "", map[string]string{"User-Agent": claudeAgent})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/tools", "", map[string]string{
		"User-Agent":    claudeAgent,
		"Authorization": "Bearer secret",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/.well-known/oauth-protected-resource", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGzip(t *testing.T) {
	h := newHandler(t, nil)

	rec := serve(h, http.MethodGet, "/tools", "", map[string]string{
		"User-Agent":      claudeAgent,
		"Accept-Encoding": "gzip",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestRecoverer(t *testing.T) {
	s := New(Config{})
	h := s.recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := serve(h, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"internal"`)
}
