package ajax

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-waha-admin/internal/qr"
	"github.com/gdbrns/go-waha-admin/internal/types"
	"github.com/gdbrns/go-waha-admin/pkg/router"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

// GetQRCode supersedes any displayed QR code and requests a new one with
// bounded retry.
func (h *Handler) GetQRCode(c *fiber.Ctx) error {
	client, err := h.client(c)
	if err != nil {
		return h.settingsError(c, err)
	}
	cfg := client.Config()
	if err := requireConfigured(cfg); err != nil {
		return h.respondError(c, cfg, err, "", nil)
	}

	snap := h.deps.QR.Request(ctx(c), client)
	if snap.State != qr.StateDisplayed || snap.Challenge == nil {
		message := snap.Error
		if message == "" {
			message = "QR request was superseded"
		}
		debugInfo, _ := snap.DebugInfo.(map[string]interface{})
		return h.respondError(c, cfg, nil, message, debugInfo)
	}

	challenge := snap.Challenge
	h.deps.Debug.Debug(cfg.DebugMode, "QR code received: format %s, expires in %ds, attempt %d", challenge.Format, challenge.ExpiresInSeconds, snap.Attempts)
	if challenge.Format == waha.FormatUnknown {
		h.deps.Debug.Warn("QR payload format not recognized")
	}

	return router.ResponseSuccessWithData(c, "QR code generated", types.ResponseQRCode{
		QRCode:           challenge.ImageSrc,
		Payload:          challenge.Payload,
		Format:           string(challenge.Format),
		ExpiresIn:        challenge.ExpiresInSeconds,
		RemainingSeconds: snap.RemainingSeconds,
		IssuedAt:         challenge.IssuedAt,
		Attempts:         snap.Attempts,
		Generation:       snap.Generation,
	})
}

// QRState returns the authoritative countdown. cancel=1 marks the view as
// left and returns the coordinator to idle.
func (h *Handler) QRState(c *fiber.Ctx) error {
	var req types.RequestQRState
	if err := bind(c, &req); err != nil {
		return router.ResponseBadRequest(c, "Invalid request body")
	}
	if req.Cancel {
		h.deps.QR.Cancel()
	}

	snap := h.deps.QR.Snapshot()
	return router.ResponseSuccessWithData(c, string(snap.State), types.ResponseQRState{
		State:            string(snap.State),
		RemainingSeconds: snap.RemainingSeconds,
		Generation:       snap.Generation,
		Error:            snap.Error,
	})
}
