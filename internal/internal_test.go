package internal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdbrns/go-waha-admin/internal/qr"
	"github.com/gdbrns/go-waha-admin/pkg/auth"
	"github.com/gdbrns/go-waha-admin/pkg/log"
	"github.com/gdbrns/go-waha-admin/pkg/router"
	"github.com/gdbrns/go-waha-admin/pkg/settings"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

type upstream struct {
	mu    sync.Mutex
	calls []string
}

func (u *upstream) record(r *http.Request) {
	u.mu.Lock()
	u.calls = append(u.calls, r.Method+" "+r.URL.Path)
	u.mu.Unlock()
}

func (u *upstream) recorded() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.calls...)
}

func newDeps(t *testing.T, handler http.HandlerFunc, autoStart bool) (Deps, *upstream) {
	t.Helper()
	up := &upstream{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up.record(r)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store := settings.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, settings.Seed(ctx, store))
	require.NoError(t, settings.SaveConfig(ctx, store, waha.Config{
		Protocol:    "http",
		Domain:      srv.URL,
		SessionName: "default",
		AutoStart:   autoStart,
	}))

	return Deps{
		Settings:  store,
		Transport: waha.NewTransport(waha.TransportOptions{Timeout: 5 * time.Second}),
		QR:        qr.New(qr.Options{Backoff: time.Millisecond}),
		Debug:     log.NewDebugFile(filepath.Join(t.TempDir(), "wa-debug.log")),
		Auth:      auth.Config{Username: "admin", Password: "pw"},
		Nonces:    auth.NewNonces([]byte("secret"), time.Hour),
	}, up
}

func TestReconcile_StartsDisconnectedSession(t *testing.T) {
	deps, up := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"name":"default","status":"STARTING"}`))
	}, true)

	status, started, err := reconcile(context.Background(), deps)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, waha.StateDisconnected, status.UIState)
	assert.Equal(t, []string{"GET /api/default/status", "POST /api/default/start"}, up.recorded())
}

func TestReconcile_LeavesConnectedSession(t *testing.T) {
	deps, up := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"WORKING"}`))
	}, true)

	status, started, err := reconcile(context.Background(), deps)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, waha.StateConnected, status.UIState)
	assert.Equal(t, []string{"GET /api/default/status"}, up.recorded())
}

func TestReconcile_DisabledSendsNothing(t *testing.T) {
	deps, up := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call %s %s", r.Method, r.URL.Path)
	}, false)

	_, started, err := reconcile(context.Background(), deps)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Empty(t, up.recorded())
}

func TestReconcileWithRetry_StopsOnProtocolError(t *testing.T) {
	deps, up := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, true)

	started, err := reconcileWithRetry(context.Background(), deps, 3, time.Millisecond, time.Millisecond, 0)
	require.Error(t, err)
	assert.False(t, started)
	assert.Equal(t, waha.KindProtocol, waha.KindOf(err))
	assert.Len(t, up.recorded(), 1)
}

func TestReconcileWithRetry_RetriesTransportErrors(t *testing.T) {
	deps, up := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}, true)

	started, err := reconcileWithRetry(context.Background(), deps, 3, time.Millisecond, 2*time.Millisecond, 0)
	require.Error(t, err)
	assert.False(t, started)
	assert.True(t, waha.IsTransport(err))
	assert.Len(t, up.recorded(), 3)
}

func TestReconcileWithRetry_RecoversAfterTransportError(t *testing.T) {
	var calls int32
	deps, up := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		_, _ = w.Write([]byte(`{"status":"WORKING"}`))
	}, true)

	started, err := reconcileWithRetry(context.Background(), deps, 3, time.Millisecond, 2*time.Millisecond, 0)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Len(t, up.recorded(), 2)
}

func basicAuth(req *http.Request) {
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:pw")))
}

func TestRoutes(t *testing.T) {
	deps, _ := newDeps(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, false)

	app := fiber.New(fiber.Config{ErrorHandler: router.HttpErrorHandler})
	Routes(app, deps)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	basicAuth(req)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ajax := func(nonce string) *http.Response {
		form := url.Values{"action": {"wa_validate_config"}, "nonce": {nonce}}
		req := httptest.NewRequest(http.MethodPost, "/admin/ajax", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		basicAuth(req)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusForbidden, ajax("bogus").StatusCode)

	formNonce, err := deps.Nonces.Issue("admin", auth.ActionSettings, auth.Capabilities()...)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, ajax(formNonce).StatusCode, "a settings nonce must not authorize AJAX")

	nonce, err := deps.Nonces.Issue("admin", auth.ActionAJAX, auth.Capabilities()...)
	require.NoError(t, err)
	resp = ajax(nonce)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body router.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "Configuration is valid", body.Message)
}

type failingFetcher struct{}

func (failingFetcher) FetchQR(context.Context) (waha.QRChallenge, *waha.Result, error) {
	return waha.QRChallenge{}, nil, &waha.Error{Kind: waha.KindProtocol, StatusCode: http.StatusInternalServerError}
}

func TestQROptionsFromEnv_LogsTransitions(t *testing.T) {
	debug := log.NewDebugFile(filepath.Join(t.TempDir(), "wa-debug.log"))
	opts := QROptionsFromEnv(debug)
	opts.Backoff = time.Millisecond
	coordinator := qr.New(opts)

	snap := coordinator.Request(context.Background(), failingFetcher{})
	require.Equal(t, qr.StateError, snap.State)

	lines, err := debug.Tail(0)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "QR request 1 is requesting")
	assert.Contains(t, lines[1], "QR request 1 failed after 1 attempts")
}
