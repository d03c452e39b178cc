package ajax

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdbrns/go-waha-admin/internal/qr"
	"github.com/gdbrns/go-waha-admin/pkg/log"
	"github.com/gdbrns/go-waha-admin/pkg/router"
	"github.com/gdbrns/go-waha-admin/pkg/settings"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

const pngDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type fixture struct {
	app   *fiber.App
	store *settings.MemoryStore
	debug *log.DebugFile

	mu    sync.Mutex
	paths []string
}

func (f *fixture) record(r *http.Request) {
	f.mu.Lock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
}

func (f *fixture) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func newFixture(t *testing.T, upstream http.HandlerFunc, debugMode bool) *fixture {
	t.Helper()
	f := &fixture{
		store: settings.NewMemoryStore(),
		debug: log.NewDebugFile(filepath.Join(t.TempDir(), "wa-debug.log")),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	require.NoError(t, settings.Seed(ctx, f.store))
	require.NoError(t, settings.SaveConfig(ctx, f.store, waha.Config{
		Protocol:    "http",
		Domain:      srv.URL,
		SessionName: "default",
		DebugMode:   debugMode,
	}))

	h := New(Deps{
		Settings:     f.store,
		Transport:    waha.NewTransport(waha.TransportOptions{Timeout: 5 * time.Second}),
		QR:           qr.New(qr.Options{Backoff: time.Millisecond, Tick: 10 * time.Millisecond}),
		Debug:        f.debug,
		RestartDelay: time.Millisecond,
	})

	f.app = fiber.New(fiber.Config{ErrorHandler: router.HttpErrorHandler})
	f.app.Post("/admin/ajax", h.Dispatch)
	return f
}

func (f *fixture) post(t *testing.T, action string, fields url.Values) (int, router.Response) {
	t.Helper()
	if fields == nil {
		fields = url.Values{}
	}
	fields.Set("action", action)

	req := httptest.NewRequest(http.MethodPost, "/admin/ajax", strings.NewReader(fields.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := f.app.Test(req, 10000)
	require.NoError(t, err)

	var body router.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func dataMap(t *testing.T, body router.Response) map[string]interface{} {
	t.Helper()
	m, ok := body.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", body.Data)
	return m
}

func TestTestConnection_EndToEnd(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":"2024.5.1","engine":"WEBJS","tier":"CORE"}`))
	}, false)

	code, body := f.post(t, "wa_test_connection", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)
	assert.Equal(t, "Connection successful", body.Message)

	data := dataMap(t, body)
	assert.True(t, strings.HasPrefix(data["api_url"].(string), "http://127.0.0.1"))
	assert.Equal(t, "2024.5.1", data["version"].(map[string]interface{})["version"])
	assert.Equal(t, []string{"GET /api/version"}, f.calls())
}

func TestGetQRCode_EndToEnd(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"qr":"` + pngDataURI + `","expiresIn":45}`))
	}, false)

	code, body := f.post(t, "wa_get_qr_code", nil)
	assert.Equal(t, http.StatusOK, code)
	require.True(t, body.Success)

	data := dataMap(t, body)
	assert.Equal(t, "image", data["format"])
	assert.Equal(t, float64(45), data["expires_in"])
	assert.Equal(t, pngDataURI, data["qr_code"])
	assert.Equal(t, []string{"GET /api/default/auth/qr"}, f.calls())

	_, body = f.post(t, "wa_qr_state", nil)
	assert.Equal(t, "displayed", dataMap(t, body)["state"])

	_, body = f.post(t, "wa_qr_state", url.Values{"cancel": {"1"}})
	assert.Equal(t, "idle", dataMap(t, body)["state"])
}

func TestGetQRCode_TextPayloadIsRendered(t *testing.T) {
	raw := "2@" + strings.Repeat("k3Vb1tQy7m", 8)
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"qrCode":"` + raw + `"}`))
	}, false)

	_, body := f.post(t, "wa_get_qr_code", nil)
	require.True(t, body.Success)
	data := dataMap(t, body)
	assert.Equal(t, "text", data["format"])
	assert.Equal(t, float64(60), data["expires_in"])
	assert.True(t, strings.HasPrefix(data["qr_code"].(string), "data:image/png;base64,"))
}

func TestGetQRCode_TransportFailureRetriesThreeTimes(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, true)

	// point the settings at a closed port
	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := closed.URL
	closed.Close()
	require.NoError(t, f.store.Set(context.Background(), settings.KeyAPILink, waha.NormalizeDomain(addr)))

	code, body := f.post(t, "wa_get_qr_code", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.False(t, body.Success)
	assert.Contains(t, body.Message, "gave up after 3 attempts")
	assert.NotNil(t, body.DebugInfo)
}

func TestGetQRCode_NotConfigured(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, false)
	require.NoError(t, f.store.Set(context.Background(), settings.KeyAPILink, ""))

	code, body := f.post(t, "wa_get_qr_code", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body.Message, "not configured")
	assert.Empty(t, f.calls())
}

func TestCheckSession(t *testing.T) {
	status := `{"name":"default","status":"WORKING"}`
	code := http.StatusOK
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(status))
	}, false)

	_, body := f.post(t, "wa_check_session", nil)
	require.True(t, body.Success)
	assert.Equal(t, "connected", dataMap(t, body)["status"])
	assert.Equal(t, "WORKING", dataMap(t, body)["raw_state"])

	code = http.StatusNotFound
	_, body = f.post(t, "wa_check_session", nil)
	require.True(t, body.Success)
	assert.Equal(t, "disconnected", dataMap(t, body)["status"])

	code = http.StatusInternalServerError
	httpCode, body := f.post(t, "wa_check_session", nil)
	assert.Equal(t, http.StatusBadGateway, httpCode)
	assert.False(t, body.Success)
	assert.Nil(t, body.DebugInfo)
}

func TestRestartSession_FallsBackToStopStart(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/restart") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"name":"default","status":"STARTING"}`))
	}, false)

	_, body := f.post(t, "wa_restart_session", nil)
	assert.True(t, body.Success)
	assert.Equal(t, []string{
		"POST /api/default/restart",
		"POST /api/default/stop",
		"POST /api/default/start",
	}, f.calls())
}

func TestRestartSession_UpstreamErrorIsReported(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, false)

	code, body := f.post(t, "wa_restart_session", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.False(t, body.Success)
	assert.Equal(t, []string{"POST /api/default/restart"}, f.calls())
}

func TestStartSession_SendsWebhookConfig(t *testing.T) {
	var got map[string]interface{}
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}, false)
	require.NoError(t, f.store.Set(context.Background(), settings.KeyWebhookURL, "https://hooks.example.com/wa"))

	_, body := f.post(t, "wa_start_session", nil)
	require.True(t, body.Success)
	assert.Nil(t, body.Data)
	assert.Equal(t, "default", got["name"])
	webhooks := got["config"].(map[string]interface{})["webhooks"].([]interface{})
	assert.Equal(t, "https://hooks.example.com/wa", webhooks[0].(map[string]interface{})["url"])
}

func TestSendMessage(t *testing.T) {
	var got map[string]string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"true_5511999999999@c.us_ABC"}`))
	}, false)

	code, body := f.post(t, "wa_send_message", url.Values{"chat_id": {"+55 11 99999-9999"}, "message": {"hello"}})
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)
	assert.Equal(t, map[string]string{"chatId": "5511999999999@c.us", "text": "hello"}, got)

	code, body = f.post(t, "wa_send_message", url.Values{"chat_id": {"5511999999999"}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "chat_id and message are required", body.Message)

	code, _ = f.post(t, "wa_send_message", url.Values{"chat_id": {"0123"}, "message": {"hi"}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.post(t, "wa_send_message", url.Values{"chat_id": {"5511999999999"}, "message": {strings.Repeat("a", 4097)}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Len(t, f.calls(), 1)
}

func TestGetChats_TruncatesPreview(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":{"_serialized":"5511999999999@c.us"},"name":"Alice","lastMessage":{"body":"` + strings.Repeat("x", 80) + `"},"timestamp":1700000000},
			{"id":"120363025246125486@g.us","name":"Team","unreadCount":2}
		]`))
	}, false)

	_, body := f.post(t, "wa_get_chats", nil)
	require.True(t, body.Success)
	chats := body.Data.([]interface{})
	require.Len(t, chats, 2)

	first := chats[0].(map[string]interface{})
	assert.Equal(t, "5511999999999@c.us", first["id"])
	assert.Equal(t, strings.Repeat("x", 50)+"...", first["last_message"])
	assert.Equal(t, float64(2), chats[1].(map[string]interface{})["unread_count"])
}

func TestGetMessagesAndContacts(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/default/messages":
			assert.Equal(t, "5511999999999@c.us", r.URL.Query().Get("chatId"))
			assert.Equal(t, "100", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`[{"id":"m1","from":"5511999999999@c.us","body":"hi","fromMe":false,"timestamp":1}]`))
		case "/api/default/contacts":
			_, _ = w.Write([]byte(`[{"id":"5511999999999@c.us","pushname":"Alice"}]`))
		}
	}, false)

	_, body := f.post(t, "wa_get_messages", url.Values{"chat_id": {"5511999999999"}, "limit": {"500"}})
	require.True(t, body.Success)
	assert.Equal(t, "hi", body.Data.([]interface{})[0].(map[string]interface{})["body"])

	_, body = f.post(t, "wa_get_contacts", nil)
	require.True(t, body.Success)
	contact := body.Data.([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Alice", contact["name"])
	assert.Equal(t, "5511999999999", contact["number"])
}

func TestDebugInfoOnlyInDebugMode(t *testing.T) {
	failing := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}

	_, body := newFixture(t, failing, false).post(t, "wa_stop_session", nil)
	assert.False(t, body.Success)
	assert.Nil(t, body.DebugInfo)

	_, body = newFixture(t, failing, true).post(t, "wa_stop_session", nil)
	assert.False(t, body.Success)
	debug, ok := body.DebugInfo.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, `{"error":"bad key"}`, debug["response"])
}

func TestValidateConfigAndLogs(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, true)
	require.NoError(t, f.store.Set(context.Background(), settings.KeySessionName, "x"))

	_, body := f.post(t, "wa_validate_config", nil)
	require.True(t, body.Success)
	data := dataMap(t, body)
	assert.Equal(t, false, data["valid"])
	assert.NotEmpty(t, data["errors"])

	f.debug.Info("hello from test")
	_, body = f.post(t, "wa_get_logs", nil)
	require.True(t, body.Success)
	lines := dataMap(t, body)["lines"].([]interface{})
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[len(lines)-1], "[INFO] hello from test")
}

func TestUnknownAction(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {}, false)
	code, body := f.post(t, "wa_format_disk", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, body.Success)
}

func TestActions_AreTheCanonicalSet(t *testing.T) {
	h := New(Deps{})
	assert.Equal(t, []string{
		"wa_check_session",
		"wa_delete_session",
		"wa_get_chats",
		"wa_get_contacts",
		"wa_get_logs",
		"wa_get_messages",
		"wa_get_qr_code",
		"wa_qr_state",
		"wa_restart_session",
		"wa_send_message",
		"wa_start_session",
		"wa_stop_session",
		"wa_test_connection",
		"wa_validate_config",
	}, h.Actions())
}
