package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coordconv/internal/jobs"
	"coordconv/internal/pointcache"
	"coordconv/internal/transform"
)

func newServer(t *testing.T, root string) (*httptest.Server, *jobs.Manager) {
	t.Helper()
	cache, err := pointcache.New(16, time.Minute, nil)
	require.NoError(t, err)
	m := jobs.NewManager()
	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", BuildRoutes(Deps{Jobs: m, Cache: cache, MaxPoints: 3, OutputRoot: root})))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, m
}

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestDirections(t *testing.T) {
	srv, _ := newServer(t, "")
	resp, err := http.Get(srv.URL + "/api/directions")
	require.NoError(t, err)
	defer resp.Body.Close()
	var out []directionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 6)
	assert.Equal(t, "gcj02-wgs84", out[0].Name)
	assert.Equal(t, "wgs84", out[0].To)
}

func TestConvertPoints(t *testing.T) {
	srv, _ := newServer(t, "")
	resp := postJSON(t, srv.URL+"/api/convert", map[string]any{
		"direction": "GCJ02->BD09",
		"points":    [][2]float64{{116.397, 39.908}, {2.35, 48.85}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out convertResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "gcj02-bd09", out.Direction)
	require.Len(t, out.Points, 2)
	want := transform.Convert(transform.GCJ02ToBD09, orb.Point{116.397, 39.908})
	assert.InDelta(t, want[0], out.Points[0][0], 1e-12)
	assert.InDelta(t, want[1], out.Points[0][1], 1e-12)
}

func TestConvertRejects(t *testing.T) {
	srv, _ := newServer(t, "")
	resp := postJSON(t, srv.URL+"/api/convert", map[string]any{"direction": "gcj02-gcj02", "points": [][2]float64{{1, 2}}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/convert", map[string]any{"direction": "0", "points": [][2]float64{{1, 2}, {1, 2}, {1, 2}, {1, 2}}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	r, err := http.Post(srv.URL+"/api/convert", "application/json", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestJobLifecycle(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	require.NoError(t, os.Mkdir(out, 0o755))
	in := filepath.Join(t.TempDir(), "a.csv")
	require.NoError(t, os.WriteFile(in, []byte("lng,lat\n116.397,39.908\n"), 0o644))
	srv, m := newServer(t, root)

	resp := postJSON(t, srv.URL+"/api/jobs", map[string]any{
		"files": []string{in}, "output_dir": out, "lng_col": "lng", "lat_col": "lat", "direction": "gcj02-wgs84",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	id := created["id"]
	require.NotEmpty(t, id)

	done, err := m.Done(id)
	require.NoError(t, err)
	<-done

	r, err := http.Get(srv.URL + "/api/jobs/" + id)
	require.NoError(t, err)
	defer r.Body.Close()
	var st jobs.State
	require.NoError(t, json.NewDecoder(r.Body).Decode(&st))
	assert.Equal(t, jobs.StatusDone, st.Status)
	require.Len(t, st.Files, 1)
	assert.Equal(t, filepath.Join(out, "converted_a.csv"), st.Files[0].Output)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/jobs/"+id, nil)
	dr, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer dr.Body.Close()
	assert.Equal(t, http.StatusAccepted, dr.StatusCode)

	lr, err := http.Get(srv.URL + "/api/jobs")
	require.NoError(t, err)
	defer lr.Body.Close()
	var list []jobs.State
	require.NoError(t, json.NewDecoder(lr.Body).Decode(&list))
	assert.Len(t, list, 1)
}

func TestJobRejects(t *testing.T) {
	root := t.TempDir()
	srv, _ := newServer(t, root)

	resp := postJSON(t, srv.URL+"/api/jobs", map[string]any{
		"files": []string{"a.csv"}, "output_dir": t.TempDir(), "lng_col": "lng", "lat_col": "lat", "direction": "0",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/jobs", map[string]any{
		"files": []string{}, "output_dir": root, "lng_col": "lng", "lat_col": "lat", "direction": "0",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/jobs", map[string]any{"direction": "mars-moon"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	r, err := http.Get(srv.URL + "/api/jobs/missing")
	require.NoError(t, err)
	defer r.Body.Close()
	assert.Equal(t, http.StatusNotFound, r.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/jobs/missing", nil)
	dr, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer dr.Body.Close()
	assert.Equal(t, http.StatusNotFound, dr.StatusCode)
}

func TestWithinRoot(t *testing.T) {
	assert.True(t, withinRoot("", "/anything"))
	assert.True(t, withinRoot("/data", "/data"))
	assert.True(t, withinRoot("/data", "/data/out"))
	assert.False(t, withinRoot("/data", "/data2"))
	assert.False(t, withinRoot("/data", "/data/../etc"))
	assert.True(t, withinRoot("/data", "/data/..foo"))
}
