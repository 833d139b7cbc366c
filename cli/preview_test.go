package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeMetabase(t *testing.T, total float64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "session"})
	})
	mux.HandleFunc("POST /api/card/{id}/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "session", r.Header.Get("X-Metabase-Session"))
		body := map[string]any{"data": map[string]any{"rows": [][]any{}}}
		if r.PathValue("id") == "613" {
			body = map[string]any{"data": map[string]any{
				"rows": [][]any{{total}},
				"results_metadata": map[string]any{
					"columns": []map[string]string{{"name": "sum", "display_name": "Sum of Messages Count"}},
				},
			}}
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPreviewPrintsReportWithoutTouchingCache(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cache := filepath.Join(dir, "cache.json")
	require.NoError(t, os.WriteFile(cache, []byte(`{"613": 100}`), 0o644))

	mb := fakeMetabase(t, 150)
	t.Setenv("METABASE_URL", mb.URL)
	t.Setenv("STORAGE_CACHEPATH", cache)
	t.Setenv("LOGLEVEL", "error")

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"preview"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "DAU / WAU / MAU:")
	assert.Contains(t, out.String(), "--- thread ---")
	assert.Contains(t, out.String(), "Беседы/каналы: 50")

	raw, err := os.ReadFile(cache)
	require.NoError(t, err)
	assert.JSONEq(t, `{"613": 100}`, string(raw))
}

func TestPreviewFailsWithoutMetabaseURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("METABASE_URL", "")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"preview"})
	assert.ErrorContains(t, cmd.Execute(), "metabase.url")
}
