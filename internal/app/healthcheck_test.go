package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/specialistvlad/cookgraph/internal/scene"
	"github.com/specialistvlad/cookgraph/internal/scheduler"
	"github.com/specialistvlad/cookgraph/modules/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthMux(t *testing.T) {
	a := NewApp(io.Discard, &Config{ScenePath: "unused"}, &value.Module{})
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	get := func(path string) *http.Response {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := get("/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK\n", string(body))

	assert.Equal(t, http.StatusServiceUnavailable, get("/stats").StatusCode)

	a.scene.Store(scene.New(a.Registry()))
	resp = get("/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var stats scheduler.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
}
