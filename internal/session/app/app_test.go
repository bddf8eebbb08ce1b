package app

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/sessiond/pkg/slogx"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WorkerID = 9
	cfg.GeoServiceURL = GeoDisabled
	cfg.TokenSecret = "app-test-secret"
	return cfg
}

func TestNewApplication_Memory(t *testing.T) {
	app, err := newApplication(testConfig(t), slogx.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })

	require.Nil(t, app.geo)
	require.EqualValues(t, 9, app.ids.WorkerID())

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/v1/sessions", "application/json", strings.NewReader(`{"user_id":"u1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApplication_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = StoreSQLite
	cfg.DatabaseFile = filepath.Join(t.TempDir(), "sessions.db")

	app, err := newApplication(cfg, slogx.Discard())
	require.NoError(t, err)
	require.NoError(t, app.db.Close())
}

func TestNewApplication_ServiceKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.ServiceKeyFile = filepath.Join(t.TempDir(), "service.key")
	require.NoError(t, os.WriteFile(cfg.ServiceKeyFile, []byte("file-key\n"), 0o600))

	app, err := newApplication(cfg, slogx.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.db.Close() })
	require.Equal(t, "file-key", app.serviceKey)

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	post := func(key string) int {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/sessions", strings.NewReader(`{"user_id":"u1","roles":["admin"]}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		if key != "" {
			req.Header.Set("X-Service-Key", key)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusUnauthorized, post(""))
	require.Equal(t, http.StatusCreated, post("file-key"))
}

func TestResolveTOTPSecret(t *testing.T) {
	raw := []byte("0123456789abcdefghij")

	cfg := testConfig(t)
	cfg.TOTPSecret = base64.StdEncoding.EncodeToString(raw)
	app := &Application{cfg: cfg, logger: slogx.Discard()}

	got, err := app.resolveTOTPSecret()
	require.NoError(t, err)
	require.Equal(t, raw, got)

	app.cfg.TOTPSecret = "!!! not base64 !!!"
	_, err = app.resolveTOTPSecret()
	require.Error(t, err)

	app.cfg.TOTPSecret = ""
	got, err = app.resolveTOTPSecret()
	require.NoError(t, err)
	require.Len(t, got, 20)
}

func TestNewApplication_MissingSecretFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.TokenSecret = ""
	cfg.TokenSecretFile = filepath.Join(t.TempDir(), "missing")

	_, err := newApplication(cfg, slogx.Discard())
	require.Error(t, err)
}
