package internal

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-waha-admin/pkg/auth"
	"github.com/gdbrns/go-waha-admin/pkg/log"
	"github.com/gdbrns/go-waha-admin/pkg/router"

	ctlAdmin "github.com/gdbrns/go-waha-admin/internal/admin"
	ctlAjax "github.com/gdbrns/go-waha-admin/internal/ajax"
	ctlIndex "github.com/gdbrns/go-waha-admin/internal/index"
)

func Routes(app *fiber.App, deps Deps) {
	// Route for Index
	// ---------------------------------------------
	if router.BaseURL == "" {
		app.Get("/", ctlIndex.Index)
	} else {
		app.Get(router.BaseURL, ctlIndex.Index)
		app.Get(router.BaseURL+"/", ctlIndex.Index)
	}

	// Static assets for the admin pages
	// ---------------------------------------------
	app.Use(router.BaseURL+"/assets", router.HttpCacheInMemory(router.CacheTTLSeconds), ctlAdmin.Assets())

	// ============================================================
	// ADMIN ROUTES (basic auth + nonce)
	// ============================================================
	operatorAuth := auth.OperatorAuth(deps.Auth)
	settingsNonce := auth.RequireNonce(deps.Nonces, auth.ActionSettings, auth.CapabilityManageOptions)
	ajaxNonce := auth.RequireNonce(deps.Nonces, auth.ActionAJAX, auth.CapabilityManageOptions)

	pages := ctlAdmin.New(ctlAdmin.Deps{
		Settings: deps.Settings,
		Nonces:   deps.Nonces,
		Debug:    deps.Debug,
		BaseURL:  router.BaseURL,
	})
	app.Get(router.BaseURL+"/admin", operatorAuth, pages.Dashboard)
	app.Get(router.BaseURL+"/admin/contacts", operatorAuth, pages.Contacts)
	app.Get(router.BaseURL+"/admin/settings", operatorAuth, pages.Settings)
	app.Post(router.BaseURL+"/admin/settings", operatorAuth, settingsNonce, pages.SaveSettings)

	// AJAX actions, dispatched on the "action" form field
	ajax := ctlAjax.New(ctlAjax.Deps{
		Settings:     deps.Settings,
		Transport:    deps.Transport,
		QR:           deps.QR,
		Debug:        deps.Debug,
		RestartDelay: deps.RestartDelay,
	})
	app.Post(router.BaseURL+"/admin/ajax", operatorAuth, ajaxNonce, ajax.Dispatch)
	log.Print(nil).WithField("actions", len(ajax.Actions())).Debug("AJAX actions registered")
}
