package auth

import (
	"time"

	"github.com/gdbrns/go-waha-admin/pkg/env"
)

const (
	// CapabilityManageOptions is required for every admin action.
	CapabilityManageOptions = "manage_options"

	ActionAJAX     = "wa_nonce"
	ActionSettings = "wa_settings"
)

// Config holds the operator credentials and nonce signing parameters.
type Config struct {
	Username    string
	Password    string
	NonceSecret []byte
	NonceTTL    time.Duration
}

// ConfigFromEnv reads ADMIN_USERNAME, ADMIN_PASSWORD, NONCE_SECRET_KEY and
// NONCE_TTL. NONCE_SECRET_KEY is required.
func ConfigFromEnv() Config {
	return Config{
		Username:    env.GetEnvStringOrDefault("ADMIN_USERNAME", "admin"),
		Password:    env.MustGetEnvString("ADMIN_PASSWORD"),
		NonceSecret: []byte(env.MustGetEnvString("NONCE_SECRET_KEY")),
		NonceTTL:    env.GetEnvDurationOrDefault("NONCE_TTL", 12*time.Hour),
	}
}
