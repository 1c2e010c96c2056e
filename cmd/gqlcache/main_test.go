package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/gqlcache/config"
	"github.com/jonwraymond/gqlcache/observe"
)

func testConfig(t *testing.T, queryCache string, schemaFiles ...string) *config.Config {
	t.Helper()
	v, err := config.New(nil)
	require.NoError(t, err)
	v.Set("graphql.queryCache", queryCache)
	v.Set("graphql.schemaFiles", schemaFiles)
	v.Set("observe.metrics.enabled", false)
	v.Set("observe.logging.enabled", false)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *server) {
	t.Helper()
	obs, err := observe.NewObserver(context.Background(), cfg.Observe)
	require.NoError(t, err)
	srv, err := newServer(context.Background(), cfg, obs)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.http.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.docs.Close()
		_ = obs.Shutdown(context.Background())
	})
	return ts, srv
}

func postQuery(t *testing.T, url, query string) map[string]interface{} {
	t.Helper()
	body, err := json.Marshal(map[string]string{"query": query})
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_GraphQL(t *testing.T) {
	ts, srv := newTestServer(t, testConfig(t, "maximumSize=100"))

	for _, path := range []string{"/graphql", "/schema.json"} {
		out := postQuery(t, ts.URL+path, `{ saying(name: "Ada") { content } }`)
		assert.Nil(t, out["errors"])
		data := out["data"].(map[string]interface{})
		assert.Equal(t, "Hello, Ada!", data["saying"].(map[string]interface{})["content"])
	}
	assert.Equal(t, uint64(1), srv.docs.Misses(), "both endpoints share the query cache")
	assert.Equal(t, 1, srv.docs.Stats().Entries)
}

func TestServer_TracingEnabledByDefault(t *testing.T) {
	ts, _ := newTestServer(t, testConfig(t, "maximumWeight=1MiB"))

	out := postQuery(t, ts.URL+"/graphql", `{ saying { id } }`)
	ext := out["extensions"].(map[string]interface{})
	assert.NotEmpty(t, ext["requestID"])
	assert.Equal(t, "computed", ext["tracing"].(map[string]interface{})["cache"])
}

func TestServer_DisabledCache(t *testing.T) {
	ts, srv := newTestServer(t, testConfig(t, ""))

	for i := 0; i < 3; i++ {
		postQuery(t, ts.URL+"/graphql", `{ saying { id } }`)
	}
	assert.Equal(t, uint64(3), srv.docs.Misses())
	assert.Zero(t, srv.docs.Stats().Entries)
}

func TestServer_SchemaFilesExtendGreeting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.graphql")
	require.NoError(t, os.WriteFile(path, []byte(`extend type Query { motd: String }`), 0o600))
	ts, _ := newTestServer(t, testConfig(t, "maximumSize=10", path))

	out := postQuery(t, ts.URL+"/graphql", `{ motd saying { id } }`)
	errs := out["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].(map[string]interface{})["message"], "motd")
	data := out["data"].(map[string]interface{})
	assert.Nil(t, data["motd"])
	assert.NotNil(t, data["saying"])
}

func TestServer_MissingSchemaFile(t *testing.T) {
	cfg := testConfig(t, "maximumSize=10", filepath.Join(t.TempDir(), "missing.graphql"))
	obs, err := observe.NewObserver(context.Background(), cfg.Observe)
	require.NoError(t, err)
	_, err = newServer(context.Background(), cfg, obs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.graphql")
}

func TestServer_HelloWorldAndHealth(t *testing.T) {
	ts, _ := newTestServer(t, testConfig(t, "maximumSize=10"))

	resp, err := http.Get(ts.URL + "/hello-world?name=Grace")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(b), `"content":"Hello, Grace!"`)

	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(b))

	resp, err = http.Get(ts.URL + "/health/queryCache")
	require.NoError(t, err)
	var check map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&check))
	resp.Body.Close()
	assert.Equal(t, "healthy", check["status"])
	assert.Equal(t, "up to 10 documents", check["message"])

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "metrics are only served by the prometheus exporter")
}

func TestRootCmd_Version(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "gqlcache dev\n", out.String())
}

func TestRootCmd_ServeRejectsBadCacheSpec(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"serve", "--query-cache", "maximumSize=lots"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "graphql.queryCache"), err.Error())
}
