package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

const (
	KeyURLType     = "wa_url_type"
	KeyAPILink     = "wa_api_link"
	KeySessionName = "wa_session_name"
	KeyWebhookURL  = "wa_webhook_url"
	KeyAutoStart   = "wa_auto_start"
	KeyDebugMode   = "wa_debug_mode"
)

// Keys lists every option in display order.
var Keys = []string{KeyURLType, KeyAPILink, KeySessionName, KeyWebhookURL, KeyAutoStart, KeyDebugMode}

// Defaults are seeded on activation without overwriting existing values.
var Defaults = map[string]string{
	KeyURLType:     waha.ProtocolHTTPS,
	KeyAPILink:     "",
	KeySessionName: waha.DefaultSessionName,
	KeyWebhookURL:  "",
	KeyAutoStart:   "false",
	KeyDebugMode:   "false",
}

// Store is a flat key/value option table.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	// SetDefault writes value only when key is absent.
	SetDefault(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]string, error)
	Close() error
}

// Seed writes every default that is not set yet.
func Seed(ctx context.Context, store Store) error {
	for _, key := range Keys {
		if err := store.SetDefault(ctx, key, Defaults[key]); err != nil {
			return err
		}
	}
	return nil
}

// LoadConfig reads the current configuration. Missing keys fall back to
// their defaults.
func LoadConfig(ctx context.Context, store Store) (waha.Config, error) {
	values, err := store.All(ctx)
	if err != nil {
		return waha.Config{}, err
	}
	get := func(key string) string {
		if v, ok := values[key]; ok {
			return v
		}
		return Defaults[key]
	}

	return waha.Config{
		Protocol:    get(KeyURLType),
		Domain:      get(KeyAPILink),
		SessionName: get(KeySessionName),
		WebhookURL:  get(KeyWebhookURL),
		AutoStart:   parseBool(get(KeyAutoStart)),
		DebugMode:   parseBool(get(KeyDebugMode)),
	}, nil
}

// SaveConfig persists cfg with the domain already normalized.
func SaveConfig(ctx context.Context, store Store, cfg waha.Config) error {
	values := map[string]string{
		KeyURLType:     strings.ToLower(strings.TrimSpace(cfg.Protocol)),
		KeyAPILink:     waha.NormalizeDomain(cfg.Domain),
		KeySessionName: strings.TrimSpace(cfg.SessionName),
		KeyWebhookURL:  strings.TrimSpace(cfg.WebhookURL),
		KeyAutoStart:   strconv.FormatBool(cfg.AutoStart),
		KeyDebugMode:   strconv.FormatBool(cfg.DebugMode),
	}
	for key, value := range values {
		if err := store.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
