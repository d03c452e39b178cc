package log

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var logger = newConsoleLogger()

func newConsoleLogger() *logrus.Logger {
	l := logrus.New()
	l.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
	}
	return l
}

// SetLevel adjusts the console logger level, ignoring unknown names.
func SetLevel(name string) {
	if lvl, err := logrus.ParseLevel(name); err == nil {
		logger.SetLevel(lvl)
	}
}

func Print(c *fiber.Ctx) *logrus.Entry {
	if c == nil {
		return logger.WithFields(logrus.Fields{})
	}

	remoteIP := c.IP()
	if v := c.Locals("remote_ip"); v != nil {
		if ip, ok := v.(string); ok && ip != "" {
			remoteIP = ip
		}
	}
	fields := logrus.Fields{
		"remote_ip": remoteIP,
		"method":    c.Method(),
		"uri":       c.OriginalURL(),
	}
	if id, ok := c.Locals("request_id").(string); ok && id != "" {
		fields["request_id"] = id
	}
	return logger.WithFields(fields)
}

// SessionOp scopes an entry to one WAHA operation on a session.
func SessionOp(c *fiber.Ctx, session string, op string) *logrus.Entry {
	return Print(c).WithField("session", session).WithField("op", op)
}
