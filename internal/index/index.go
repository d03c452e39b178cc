package index

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-waha-admin/pkg/router"
)

// Index reports that the admin server is up. It does not call WAHA.
func Index(c *fiber.Ctx) error {
	return router.ResponseSuccess(c, "WAHA admin panel is running")
}
