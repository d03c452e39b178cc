package ajax

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-waha-admin/internal/types"
	"github.com/gdbrns/go-waha-admin/pkg/log"
	"github.com/gdbrns/go-waha-admin/pkg/router"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

// CheckSession reports the normalized session status.
func (h *Handler) CheckSession(c *fiber.Ctx) error {
	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()

	status, res := client.CheckStatus(ctx(c))
	h.deps.Debug.Debug(cfg.DebugMode, "Status check for session %s: %s (%s)", cfg.Session(), status.UIState, status.RawState)

	if status.UIState == waha.StateError {
		return h.respondError(c, cfg, res.Err, status.Message, res.DebugInfo)
	}

	log.SessionOp(c, cfg.Session(), "status").Debug(string(status.UIState))
	return router.ResponseSuccessWithData(c, status.Message, types.ResponseSessionStatus{
		Status:   string(status.UIState),
		RawState: status.RawState,
		Message:  status.Message,
		Details:  status.Details,
	})
}

// StartBody is the start request, carrying webhook config when one is set.
func StartBody(cfg waha.Config) interface{} {
	webhook := strings.TrimSpace(cfg.WebhookURL)
	if webhook == "" {
		return nil
	}
	return map[string]interface{}{
		"name": cfg.Session(),
		"config": map[string]interface{}{
			"webhooks": []map[string]interface{}{
				{
					"url":    webhook,
					"events": []string{"message", "session.status"},
				},
			},
		},
	}
}

func (h *Handler) StartSession(c *fiber.Ctx) error {
	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()

	res := client.Call(ctx(c), waha.OpStart, StartBody(cfg), nil)
	if res.Success {
		h.deps.Debug.Info("Session %s started", cfg.Session())
	}
	return h.respondResult(c, cfg, res, "Session started")
}

func (h *Handler) StopSession(c *fiber.Ctx) error {
	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()

	res := client.Call(ctx(c), waha.OpStop, nil, nil)
	if res.Success {
		h.deps.QR.Cancel()
		h.deps.Debug.Info("Session %s stopped", cfg.Session())
	}
	return h.respondResult(c, cfg, res, "Session stopped")
}

// RestartSession calls restart and, when WAHA has no restart endpoint,
// falls back to stop, a short pause and start.
func (h *Handler) RestartSession(c *fiber.Ctx) error {
	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()
	h.deps.QR.Cancel()

	res := client.Call(ctx(c), waha.OpRestart, nil, nil)
	if res.Success || (res.StatusCode != http.StatusNotFound && res.StatusCode != http.StatusMethodNotAllowed) {
		if res.Success {
			h.deps.Debug.Info("Session %s restarted", cfg.Session())
		}
		return h.respondResult(c, cfg, res, "Session restarted")
	}

	h.deps.Debug.Debug(cfg.DebugMode, "Restart endpoint unavailable (%d), falling back to stop and start", res.StatusCode)
	if stop := client.Call(ctx(c), waha.OpStop, nil, nil); !stop.Success {
		h.deps.Debug.Warn("Stop before restart failed: %s", stop.ErrorMessage)
	}
	if err := sleep(ctx(c), h.deps.RestartDelay); err != nil {
		return router.ResponseInternalError(c, err.Error())
	}

	start := client.Call(ctx(c), waha.OpStart, StartBody(cfg), nil)
	if start.Success {
		h.deps.Debug.Info("Session %s restarted via stop and start", cfg.Session())
	}
	return h.respondResult(c, cfg, start, "Session restarted")
}

func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()

	res := client.Call(ctx(c), waha.OpDelete, nil, nil)
	if res.Success {
		h.deps.QR.Cancel()
		h.deps.Debug.Info("Session %s deleted", cfg.Session())
	}
	return h.respondResult(c, cfg, res, "Session deleted")
}
