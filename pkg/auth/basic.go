package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/gdbrns/go-waha-admin/pkg/router"
)

const (
	NonceField  = "nonce"
	NonceHeader = "X-WA-Nonce"

	localsUser   = "username"
	localsClaims = "nonce_claims"
)

// OperatorAuth protects the admin surface with HTTP basic auth.
func OperatorAuth(cfg Config) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm: "WAHA Admin",
		Authorizer: func(user string, pass string) bool {
			if cfg.Password == "" {
				return false
			}
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.Username)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.Password)) == 1
			return userOK && passOK
		},
		Unauthorized: func(c *fiber.Ctx) error {
			return router.ResponseAuthenticate(c)
		},
		ContextUsername: localsUser,
	})
}

// Username returns the operator authenticated by OperatorAuth.
func Username(c *fiber.Ctx) string {
	if v, ok := c.Locals(localsUser).(string); ok {
		return v
	}
	return ""
}

// Capabilities of the single operator account.
func Capabilities() []string {
	return []string{CapabilityManageOptions}
}

// RequireNonce validates the nonce for action and then the capability.
func RequireNonce(nonces *Nonces, action string, capability string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.FormValue(NonceField))
		if token == "" {
			token = strings.TrimSpace(c.Get(NonceHeader))
		}
		if token == "" {
			return router.ResponseForbidden(c, "Missing security nonce")
		}

		claims, err := nonces.Verify(token, Username(c), action)
		if err != nil {
			return router.ResponseForbidden(c, "Security check failed: "+err.Error())
		}
		if !claims.Can(capability) {
			return router.ResponseForbidden(c, "You do not have permission to perform this action")
		}

		c.Locals(localsClaims, claims)
		return c.Next()
	}
}
