package admin

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"

	"github.com/gdbrns/go-waha-admin/internal/types"
	"github.com/gdbrns/go-waha-admin/pkg/auth"
	"github.com/gdbrns/go-waha-admin/pkg/log"
	"github.com/gdbrns/go-waha-admin/pkg/router"
	"github.com/gdbrns/go-waha-admin/pkg/settings"
	"github.com/gdbrns/go-waha-admin/pkg/validation"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed assets/*
var assetFiles embed.FS

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{"dashboard", "settings", "contacts"} {
		pages[name] = template.Must(template.ParseFS(templateFiles, "templates/layout.html", "templates/"+name+".html"))
	}
}

// Deps of the server-rendered pages.
type Deps struct {
	Settings settings.Store
	Nonces   *auth.Nonces
	Debug    *log.DebugFile
	BaseURL  string
}

type Pages struct {
	deps Deps
}

func New(deps Deps) *Pages {
	return &Pages{deps: deps}
}

type pageData struct {
	Title     string
	Page      string
	BaseURL   string
	AjaxNonce string
	FormNonce string
	Config    waha.Config
	APIURL    string
	Notice    string
	Errors    []string
	Warnings  []string
	LogLines  []string
	LogPath   string
}

// Assets serves the embedded admin.js and admin.css.
func Assets() fiber.Handler {
	sub, err := fs.Sub(assetFiles, "assets")
	if err != nil {
		panic(err)
	}
	return filesystem.New(filesystem.Config{
		Root:   http.FS(sub),
		MaxAge: 300,
	})
}

func (p *Pages) Dashboard(c *fiber.Ctx) error {
	data, err := p.baseData(c, "WhatsApp", "dashboard")
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}

	lines, err := p.deps.Debug.Tail(20)
	if err != nil {
		log.Print(c).Warn("debug log tail failed: " + err.Error())
	}
	data.LogLines = lines
	data.LogPath = p.deps.Debug.Path()

	v := data.Config.Validate()
	data.Errors = v.Errors
	data.Warnings = v.Warnings
	return p.render(c, "dashboard", data)
}

func (p *Pages) Contacts(c *fiber.Ctx) error {
	data, err := p.baseData(c, "WhatsApp Contacts", "contacts")
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	return p.render(c, "contacts", data)
}

func (p *Pages) Settings(c *fiber.Ctx) error {
	data, err := p.baseData(c, "WhatsApp Settings", "settings")
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	if c.Query("updated") == "1" {
		data.Notice = "Settings saved."
	}
	return p.render(c, "settings", data)
}

// SaveSettings persists the settings form. The domain is stored normalized.
func (p *Pages) SaveSettings(c *fiber.Ctx) error {
	var req types.RequestSettings
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Invalid request body")
	}

	cfg := waha.Config{
		Protocol:    strings.ToLower(strings.TrimSpace(req.URLType)),
		Domain:      waha.NormalizeDomain(req.APILink),
		SessionName: strings.TrimSpace(req.SessionName),
		WebhookURL:  strings.TrimSpace(req.WebhookURL),
		AutoStart:   req.AutoStart != "",
		DebugMode:   req.DebugMode != "",
	}

	var errs []string
	if err := validation.ValidateProtocol(cfg.Protocol); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validation.ValidateSessionName(cfg.SessionName); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.WebhookURL != "" {
		if err := validation.ValidateURL(cfg.WebhookURL); err != nil {
			errs = append(errs, "Webhook "+err.Error())
		}
	}

	if len(errs) > 0 {
		data, err := p.baseData(c, "WhatsApp Settings", "settings")
		if err != nil {
			return router.ResponseInternalError(c, err.Error())
		}
		data.Config = cfg
		data.Errors = errs
		c.Status(http.StatusBadRequest)
		return p.render(c, "settings", data)
	}

	if err := settings.SaveConfig(c.UserContext(), p.deps.Settings, cfg); err != nil {
		return router.ResponseInternalError(c, "Failed to save settings: "+err.Error())
	}
	p.deps.Debug.Info("Settings updated: %s://%s session %s", cfg.Protocol, cfg.Domain, cfg.Session())
	return c.Redirect(p.deps.BaseURL+"/admin/settings?updated=1", http.StatusSeeOther)
}

func (p *Pages) baseData(c *fiber.Ctx, title string, page string) (pageData, error) {
	cfg, err := settings.LoadConfig(c.UserContext(), p.deps.Settings)
	if err != nil {
		return pageData{}, err
	}

	user := auth.Username(c)
	ajaxNonce, err := p.deps.Nonces.Issue(user, auth.ActionAJAX, auth.Capabilities()...)
	if err != nil {
		return pageData{}, err
	}
	formNonce, err := p.deps.Nonces.Issue(user, auth.ActionSettings, auth.Capabilities()...)
	if err != nil {
		return pageData{}, err
	}

	apiURL, _ := cfg.BaseURL()
	return pageData{
		Title:     title,
		Page:      page,
		BaseURL:   p.deps.BaseURL,
		AjaxNonce: ajaxNonce,
		FormNonce: formNonce,
		Config:    cfg,
		APIURL:    apiURL,
	}, nil
}

func (p *Pages) render(c *fiber.Ctx, name string, data pageData) error {
	var buf bytes.Buffer
	if err := pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		return router.ResponseInternalError(c, "Failed to render page: "+err.Error())
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}
