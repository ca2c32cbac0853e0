package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rawcontext/engram-sub001/internal/auth"
	"github.com/rawcontext/engram-sub001/internal/auth/tokenstore/memstore"
	"github.com/rawcontext/engram-sub001/internal/graphstore"
	"github.com/rawcontext/engram-sub001/internal/memory"
	"github.com/rawcontext/engram-sub001/internal/ratelimit"
	"github.com/rawcontext/engram-sub001/internal/schema"
	"github.com/rawcontext/engram-sub001/internal/taskpool"
	"github.com/rawcontext/engram-sub001/internal/tenant"
	"github.com/rawcontext/engram-sub001/internal/vectorsearch"
)

const testToken = "engram_test_0123456789abcdef0123456789abcdef"

func newTestRouter(t *testing.T, limit int) http.Handler {
	t.Helper()
	engine := graphstore.NewEngine()
	backend := graphstore.NewTenantBackend(engine)
	router := tenant.NewRouter(backend, "engram_default")
	logger := zap.NewNop()
	pool := taskpool.New(4, 32, logger)
	t.Cleanup(pool.Shutdown)

	var vector vectorsearch.Client
	svc := memory.New(router, vector, pool, logger)

	store := memstore.New()
	store.Put(auth.HashToken(testToken), &auth.TokenRecord{
		ID:        "tok-1",
		Type:      auth.TypeAPIKey,
		OrgID:     "1",
		OrgSlug:   "acme",
		Scopes:    []string{"memory:write", "memory:read", "query:read"},
		RateLimit: limit,
		IsActive:  true,
	})

	return NewRouter(Deps{
		Memory:  svc,
		Router:  router,
		Tokens:  store,
		Pool:    pool,
		Limiter: ratelimit.New(limit),
		Logger:  logger,
		Schema:  schema.Engram(),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestRemember_MissingAuthReturns401(t *testing.T) {
	h := newTestRouter(t, 10)
	rec := doJSON(t, h, http.MethodPost, "/v1/memory/remember", "", map[string]any{"content": "hello"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, false, env["success"])
}

func TestRemember_ValidRequestReturns201(t *testing.T) {
	h := newTestRouter(t, 10)
	rec := doJSON(t, h, http.MethodPost, "/v1/memory/remember", testToken, map[string]any{
		"content": "Chose Postgres over MySQL",
		"type":    "decision",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env["success"])
	data := env["data"].(map[string]any)
	assert.Equal(t, true, data["stored"])
	assert.Equal(t, false, data["duplicate"])
	assert.NotEmpty(t, data["id"])
}

func TestRemember_EmptyContentFailsValidation(t *testing.T) {
	h := newTestRouter(t, 10)
	rec := doJSON(t, h, http.MethodPost, "/v1/memory/remember", testToken, map[string]any{"content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	errBody := env["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
}

func TestRemember_DuplicateReturns200(t *testing.T) {
	h := newTestRouter(t, 10)
	body := map[string]any{"content": "same content"}
	first := doJSON(t, h, http.MethodPost, "/v1/memory/remember", testToken, body)
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, h, http.MethodPost, "/v1/memory/remember", testToken, body)
	require.Equal(t, http.StatusOK, second.Code)
	env := decodeEnvelope(t, second)
	data := env["data"].(map[string]any)
	assert.Equal(t, true, data["duplicate"])
}

func TestRecall_ReturnsStoredMemory(t *testing.T) {
	h := newTestRouter(t, 10)
	doJSON(t, h, http.MethodPost, "/v1/memory/remember", testToken, map[string]any{
		"content": "Chose Postgres over MySQL", "type": "decision",
	})

	rec := doJSON(t, h, http.MethodPost, "/v1/memory/recall", testToken, map[string]any{
		"query": "Postgres", "limit": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	memories := data["memories"].([]any)
	require.Len(t, memories, 1)
	mem := memories[0].(map[string]any)
	assert.Equal(t, false, mem["invalidated"])
	assert.Contains(t, mem, "weightedScore")
	assert.Contains(t, mem, "decayScore")
}

func TestQuery_WriteKeywordRejectedAs400(t *testing.T) {
	h := newTestRouter(t, 10)
	rec := doJSON(t, h, http.MethodPost, "/v1/memory/query", testToken, map[string]any{
		"cypher": "CREATE (m:Memory {content:'x'}) RETURN m",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	errBody := env["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
}

func TestQuery_ReadOnlyExpressionExecutes(t *testing.T) {
	h := newTestRouter(t, 10)
	doJSON(t, h, http.MethodPost, "/v1/memory/remember", testToken, map[string]any{"content": "find me"})

	rec := doJSON(t, h, http.MethodPost, "/v1/memory/query", testToken, map[string]any{
		"cypher": "MATCH (n:Memory) RETURN n",
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestContext_ReturnsAssembledItems(t *testing.T) {
	h := newTestRouter(t, 10)
	doJSON(t, h, http.MethodPost, "/v1/memory/remember", testToken, map[string]any{"content": "launch checklist notes"})

	rec := doJSON(t, h, http.MethodPost, "/v1/memory/context", testToken, map[string]any{
		"task": "launch checklist",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	data := env["data"].(map[string]any)
	assert.NotEmpty(t, data["context"])
}

func TestRateLimit_ThirdRequestIn429(t *testing.T) {
	h := newTestRouter(t, 2)
	body := map[string]any{"content": "a"}
	first := doJSON(t, h, http.MethodPost, "/v1/memory/remember", testToken, body)
	assert.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, h, http.MethodPost, "/v1/memory/remember", testToken, map[string]any{"content": "b"})
	assert.Equal(t, http.StatusCreated, second.Code)

	third := doJSON(t, h, http.MethodPost, "/v1/memory/remember", testToken, map[string]any{"content": "c"})
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.NotEmpty(t, third.Header().Get("Retry-After"))
}

func TestHealth_ReturnsOKWithoutAuth(t *testing.T) {
	h := newTestRouter(t, 10)
	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
