package ajax

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-waha-admin/internal/types"
	"github.com/gdbrns/go-waha-admin/pkg/router"
	"github.com/gdbrns/go-waha-admin/pkg/settings"
	"github.com/gdbrns/go-waha-admin/pkg/validation"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

const debugTailLines = 20

// TestConnection calls /api/version on the configured WAHA host.
func (h *Handler) TestConnection(c *fiber.Ctx) error {
	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()

	res := client.Call(ctx(c), waha.OpVersion, nil, nil)
	if !res.Success {
		return h.respondResult(c, cfg, res, "")
	}

	base, _ := cfg.BaseURL()
	h.deps.Debug.Info("Connection test to %s succeeded", base)
	return router.ResponseSuccessWithData(c, "Connection successful", types.ResponseConnection{
		APIURL:  base,
		Version: res.Data,
	})
}

// ValidateConfig checks the stored settings without calling WAHA.
func (h *Handler) ValidateConfig(c *fiber.Ctx) error {
	cfg, err := settings.LoadConfig(ctx(c), h.deps.Settings)
	if err != nil {
		return h.settingsError(c, err)
	}

	v := cfg.Validate()
	if err := validation.ValidateSessionName(cfg.SessionName); err != nil {
		v.Errors = append(v.Errors, err.Error())
	}
	if cfg.WebhookURL != "" {
		if err := validation.ValidateURL(cfg.WebhookURL); err != nil {
			v.Errors = append(v.Errors, "Webhook "+err.Error())
		}
	}
	v.Valid = len(v.Errors) == 0

	message := "Configuration is valid"
	if !v.Valid {
		message = "Configuration has errors"
	}
	return router.ResponseSuccessWithData(c, message, v)
}

func (h *Handler) GetLogs(c *fiber.Ctx) error {
	lines, err := h.deps.Debug.Tail(debugTailLines)
	if err != nil {
		return router.ResponseInternalError(c, "Failed to read debug log: "+err.Error())
	}
	if lines == nil {
		lines = []string{}
	}
	return router.ResponseSuccessWithData(c, "", types.ResponseLogs{
		Path:  h.deps.Debug.Path(),
		Lines: lines,
	})
}
