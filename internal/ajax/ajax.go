package ajax

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-waha-admin/internal/qr"
	"github.com/gdbrns/go-waha-admin/pkg/log"
	"github.com/gdbrns/go-waha-admin/pkg/router"
	"github.com/gdbrns/go-waha-admin/pkg/settings"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

const defaultRestartDelay = 2 * time.Second

// Deps are the collaborators every action needs. Settings are re-read on
// each request so edits apply without a restart.
type Deps struct {
	Settings     settings.Store
	Transport    *waha.Transport
	QR           *qr.Coordinator
	Debug        *log.DebugFile
	RestartDelay time.Duration
}

type Handler struct {
	deps    Deps
	actions map[string]fiber.Handler
}

func New(deps Deps) *Handler {
	if deps.RestartDelay <= 0 {
		deps.RestartDelay = defaultRestartDelay
	}
	if deps.QR == nil {
		deps.QR = qr.New(qr.Options{})
	}

	h := &Handler{deps: deps}
	h.actions = map[string]fiber.Handler{
		"wa_get_qr_code":     h.GetQRCode,
		"wa_qr_state":        h.QRState,
		"wa_check_session":   h.CheckSession,
		"wa_start_session":   h.StartSession,
		"wa_stop_session":    h.StopSession,
		"wa_restart_session": h.RestartSession,
		"wa_delete_session":  h.DeleteSession,
		"wa_test_connection": h.TestConnection,
		"wa_get_chats":       h.GetChats,
		"wa_get_messages":    h.GetMessages,
		"wa_send_message":    h.SendMessage,
		"wa_get_contacts":    h.GetContacts,
		"wa_validate_config": h.ValidateConfig,
		"wa_get_logs":        h.GetLogs,
	}
	return h
}

// Actions lists the registered action names, sorted.
func (h *Handler) Actions() []string {
	names := make([]string, 0, len(h.actions))
	for name := range h.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch routes POST /admin/ajax by its action field.
func (h *Handler) Dispatch(c *fiber.Ctx) error {
	action := strings.TrimSpace(c.FormValue("action"))
	if action == "" {
		action = strings.TrimSpace(c.Query("action"))
	}
	handler, ok := h.actions[action]
	if !ok {
		return router.ResponseBadRequest(c, "Unknown action: "+action)
	}
	return handler(c)
}

// client builds a WAHA client for the current settings.
func (h *Handler) client(c *fiber.Ctx) (*waha.Client, error) {
	cfg, err := settings.LoadConfig(ctx(c), h.deps.Settings)
	if err != nil {
		return nil, err
	}
	return waha.NewClient(cfg, h.deps.Transport), nil
}

func ctx(c *fiber.Ctx) context.Context {
	if uc := c.UserContext(); uc != nil {
		return uc
	}
	return context.Background()
}

// respondResult writes a WAHA result as the JSON envelope.
func (h *Handler) respondResult(c *fiber.Ctx, cfg waha.Config, res *waha.Result, message string) error {
	if res.Success {
		return router.ResponseSuccessWithData(c, message, res.Data)
	}
	return h.respondError(c, cfg, res.Err, res.ErrorMessage, res.DebugInfo)
}

func (h *Handler) respondError(c *fiber.Ctx, cfg waha.Config, err error, message string, debugInfo map[string]interface{}) error {
	if message == "" && err != nil {
		message = err.Error()
	}
	h.deps.Debug.Error("%s: %s", c.FormValue("action"), message)

	if waha.KindOf(err) == waha.KindConfiguration {
		return router.ResponseBadRequest(c, message)
	}
	if !cfg.DebugMode {
		debugInfo = nil
	}
	if debugInfo == nil {
		return router.ResponseBadGateway(c, message, nil)
	}
	return router.ResponseBadGateway(c, message, debugInfo)
}

func (h *Handler) settingsError(c *fiber.Ctx, err error) error {
	h.deps.Debug.Error("settings read failed: %s", err.Error())
	return router.ResponseInternalError(c, "Failed to read settings: "+err.Error())
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// bind parses the request body when there is one.
func bind(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func requireConfigured(cfg waha.Config) error {
	base, err := cfg.BaseURL()
	if err != nil {
		return err
	}
	if base == "" {
		return &waha.Error{Kind: waha.KindConfiguration, Err: waha.ErrNotConfigured}
	}
	return nil
}
