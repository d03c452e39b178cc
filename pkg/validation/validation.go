package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

const (
	MaxMessageLength     = 4096
	MinSessionNameLength = 3
	MaxSessionNameLength = 50
	ChatPreviewLength    = 50
)

var (
	phonePattern       = regexp.MustCompile(`^[1-9][0-9]{1,14}$`)
	nonDigitPattern    = regexp.MustCompile(`[^0-9]`)
	sessionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	ErrChatIDRequired  = errors.New("chat_id is required")
	ErrMessageRequired = errors.New("message cannot be empty")
)

// ValidatePhone checks an international number without the leading +.
func ValidatePhone(phone string) error {
	digits := nonDigitPattern.ReplaceAllString(phone, "")
	if digits == "" {
		return errors.New("phone number cannot be empty")
	}
	if !phonePattern.MatchString(digits) {
		return errors.New("phone number is not valid, use international format without +")
	}
	return nil
}

// FormatChatID returns chatID unchanged when it already carries a WhatsApp
// suffix, otherwise validates it as a phone number and appends @c.us.
func FormatChatID(chatID string) (string, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return "", ErrChatIDRequired
	}
	if strings.Contains(chatID, "@") {
		return chatID, nil
	}
	if err := ValidatePhone(chatID); err != nil {
		return "", err
	}
	return nonDigitPattern.ReplaceAllString(chatID, "") + "@c.us", nil
}

// ValidateMessage counts grapheme clusters, not bytes.
func ValidateMessage(message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrMessageRequired
	}
	if n := uniseg.GraphemeClusterCount(message); n > MaxMessageLength {
		return fmt.Errorf("message is too long: %d characters, maximum %d", n, MaxMessageLength)
	}
	return nil
}

// ValidateSessionName allows letters, digits, _ and - with length 3 to 50.
// An empty name is accepted; "default" is used instead.
func ValidateSessionName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if len(name) < MinSessionNameLength || len(name) > MaxSessionNameLength {
		return fmt.Errorf("session name must be between %d and %d characters", MinSessionNameLength, MaxSessionNameLength)
	}
	if !sessionNamePattern.MatchString(name) {
		return errors.New("session name may only contain letters, digits, _ and -")
	}
	return nil
}

func ValidateProtocol(protocol string) error {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "https":
		return nil
	}
	return errors.New("protocol must be http or https")
}

// ValidateURL ensures an absolute http(s) URL when one is provided.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("url cannot be empty")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return errors.New("url must be valid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("url must use http or https")
	}
	return nil
}

// Truncate shortens s to max grapheme clusters, appending "...".
func Truncate(s string, max int) string {
	if uniseg.GraphemeClusterCount(s) <= max {
		return s
	}
	var b strings.Builder
	gr := uniseg.NewGraphemes(s)
	for i := 0; i < max && gr.Next(); i++ {
		b.WriteString(gr.Str())
	}
	return b.String() + "..."
}
