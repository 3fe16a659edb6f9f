package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shibudb.org/shibuvec/internal/logging"
	"github.com/shibudb.org/shibuvec/internal/storage"
)

func newManagement(t *testing.T, limit int32) (*ManagementServer, *ConnectionManager, *storage.VectorStore) {
	t.Helper()
	cm := NewConnectionManager(limit, nil)
	store := storage.NewVectorStore()
	return NewManagementServer(cm, store, "127.0.0.1:0", logging.Discard()), cm, store
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestManagement_Health(t *testing.T) {
	ms, _, _ := newManagement(t, 10)
	code, body := doRequest(t, ms.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "shibuvec", body["service"])

	code, _ = doRequest(t, ms.Handler(), http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestManagement_Stats(t *testing.T) {
	ms, _, store := newManagement(t, 10)
	store.Insert("a", []float32{1})
	store.Insert("b", []float32{2})

	code, body := doRequest(t, ms.Handler(), http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, code)

	storeStats := body["store"].(map[string]interface{})
	assert.EqualValues(t, 2, storeStats["vectors"])
	conns := body["connections"].(map[string]interface{})
	assert.EqualValues(t, 10, conns["max_connections"])
	assert.Contains(t, body, "system")
}

func TestManagement_System(t *testing.T) {
	ms, _, _ := newManagement(t, 10)
	code, body := doRequest(t, ms.Handler(), http.MethodGet, "/system", "")
	require.Equal(t, http.StatusOK, code)

	cpu := body["cpu"].(map[string]interface{})
	assert.Greater(t, cpu["num_cpu"].(float64), 0.0)
	assert.Contains(t, body, "memory")
	assert.Contains(t, body, "go_version")
}

func TestManagement_Limit(t *testing.T) {
	ms, cm, _ := newManagement(t, 10)
	h := ms.Handler()

	code, body := doRequest(t, h, http.MethodGet, "/limit", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 10, body["current_limit"])

	code, body = doRequest(t, h, http.MethodPut, "/limit", `{"limit": 25}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, int32(25), cm.GetMaxConnections())

	code, body = doRequest(t, h, http.MethodPut, "/limit", `{"limit": 0}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "failed", body["status"])

	code, _ = doRequest(t, h, http.MethodPut, "/limit", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doRequest(t, h, http.MethodDelete, "/limit", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestManagement_IncreaseDecrease(t *testing.T) {
	ms, cm, _ := newManagement(t, 200)
	h := ms.Handler()

	code, body := doRequest(t, h, http.MethodPost, "/limit/increase", `{"amount": 50}`)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 250, body["new_limit"])

	code, _ = doRequest(t, h, http.MethodPost, "/limit/increase", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int32(350), cm.GetMaxConnections())

	code, body = doRequest(t, h, http.MethodPost, "/limit/decrease", "")
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 250, body["new_limit"])

	require.True(t, cm.TryAcquire(pipeConn(t)))
	code, body = doRequest(t, h, http.MethodPost, "/limit/decrease", `{"amount": 250}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.EqualValues(t, 1, body["minimum_allowed"])
	assert.Equal(t, int32(250), cm.GetMaxConnections())

	code, _ = doRequest(t, h, http.MethodGet, "/limit/increase", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}
