package waha

import (
	"strings"
)

const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"

	DefaultSessionName = "default"
)

// Config describes how to reach one WAHA instance and which session to drive.
type Config struct {
	Protocol    string `json:"protocol"`
	Domain      string `json:"domain"`
	SessionName string `json:"session_name"`
	WebhookURL  string `json:"webhook_url,omitempty"`
	AutoStart   bool   `json:"auto_start"`
	DebugMode   bool   `json:"debug_mode"`
}

// Session returns the configured session name, falling back to "default".
func (c Config) Session() string {
	if name := strings.TrimSpace(c.SessionName); name != "" {
		return name
	}
	return DefaultSessionName
}

// BaseURL resolves protocol://domain for this configuration.
func (c Config) BaseURL() (string, error) {
	return ResolveBaseURL(c.Protocol, c.Domain)
}

// NormalizeDomain strips every leading http:// or https:// prefix, trailing
// slashes and surrounding whitespace.
func NormalizeDomain(raw string) string {
	domain := strings.TrimSpace(raw)
	for {
		lower := strings.ToLower(domain)
		switch {
		case strings.HasPrefix(lower, "https://"):
			domain = domain[len("https://"):]
		case strings.HasPrefix(lower, "http://"):
			domain = domain[len("http://"):]
		default:
			return strings.TrimSpace(strings.TrimRight(domain, "/"))
		}
		domain = strings.TrimSpace(domain)
	}
}

// ResolveBaseURL returns "" with a nil error when the domain is empty.
func ResolveBaseURL(protocol string, domain string) (string, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	if protocol != ProtocolHTTP && protocol != ProtocolHTTPS {
		return "", &Error{
			Kind: KindConfiguration,
			Op:   "resolve",
			Err:  errInvalidProtocol(protocol),
		}
	}

	domain = NormalizeDomain(domain)
	if domain == "" {
		return "", nil
	}
	return protocol + "://" + domain, nil
}

// Validation is the outcome of Config.Validate.
type Validation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Config   Config   `json:"config"`
}

func (c Config) Validate() Validation {
	v := Validation{
		Errors:   []string{},
		Warnings: []string{},
		Config:   c,
	}

	protocol := strings.ToLower(strings.TrimSpace(c.Protocol))
	switch {
	case protocol == "":
		v.Errors = append(v.Errors, "API protocol is not configured")
	case protocol != ProtocolHTTP && protocol != ProtocolHTTPS:
		v.Errors = append(v.Errors, "API protocol must be http or https")
	}

	if strings.TrimSpace(c.Domain) == "" {
		v.Errors = append(v.Errors, "API domain is not configured")
	} else if NormalizeDomain(c.Domain) != strings.TrimSpace(c.Domain) {
		v.Warnings = append(v.Warnings, "API domain contains a scheme or trailing slash; it will be normalized")
	}

	if strings.TrimSpace(c.SessionName) == "" {
		v.Warnings = append(v.Warnings, "Session name is empty; \"default\" will be used")
	}

	v.Valid = len(v.Errors) == 0
	return v
}
