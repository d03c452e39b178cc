package waha

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultUserAgent      = "go-waha-admin/1.0"

	// maxDebugBody caps the raw upstream body kept in debug_info.
	maxDebugBody = 4096
)

// Result is the uniform envelope every WAHA call yields.
type Result struct {
	Success      bool                   `json:"success"`
	Data         interface{}            `json:"data"`
	ErrorMessage string                 `json:"message,omitempty"`
	DebugInfo    map[string]interface{} `json:"debug_info,omitempty"`

	StatusCode int   `json:"-"`
	Err        error `json:"-"`
}

// Object returns Data as a JSON object, or nil.
func (r *Result) Object() map[string]interface{} {
	if r == nil {
		return nil
	}
	m, _ := r.Data.(map[string]interface{})
	return m
}

type TransportOptions struct {
	APIKey         string
	UserAgent      string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	InsecureTLS    bool
	// Logger receives resty's own warnings. Nil keeps resty's default.
	Logger resty.Logger
}

// Transport is the long-lived half of the client: the REST client with its
// connection pool and the status call collapsing group. It is safe for
// concurrent use.
type Transport struct {
	rest  *resty.Client
	group singleflight.Group
}

func NewTransport(opts TransportOptions) *Transport {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: opts.ConnectTimeout,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
	if opts.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- opt-in for self-signed WAHA hosts
	}

	rest := resty.New().
		SetTransport(transport).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", opts.UserAgent)
	if opts.APIKey != "" {
		rest.SetHeader("X-Api-Key", opts.APIKey)
	}
	if opts.Logger != nil {
		rest.SetLogger(opts.Logger)
	}

	return &Transport{rest: rest}
}

// Client binds a Transport to one configuration snapshot. Create one per
// request so settings changes take effect immediately.
type Client struct {
	cfg       Config
	transport *Transport
}

func NewClient(cfg Config, transport *Transport) *Client {
	if transport == nil {
		transport = NewTransport(TransportOptions{})
	}
	return &Client{cfg: cfg, transport: transport}
}

func (c *Client) Config() Config {
	return c.cfg
}

// Call performs one request against WAHA. It never retries.
func (c *Client) Call(ctx context.Context, op Op, body interface{}, query url.Values) *Result {
	baseURL, err := c.cfg.BaseURL()
	if err != nil {
		return c.failure(err, "", "")
	}
	if baseURL == "" {
		return c.failure(&Error{Kind: KindConfiguration, Op: op, Err: ErrNotConfigured}, "", "")
	}

	ep, ok := Lookup(op, c.cfg.Session())
	if !ok {
		return c.failure(&Error{Kind: KindConfiguration, Op: op, Err: fmt.Errorf("%w: %s", ErrUnknownOp, op)}, "", "")
	}

	target := baseURL + ep.Path
	if op != OpStatus {
		return c.do(ctx, op, ep.Method, target, body, query)
	}

	key := ep.Method + " " + target
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	v, _, _ := c.transport.group.Do(key, func() (interface{}, error) {
		return c.do(ctx, op, ep.Method, target, body, query), nil
	})
	shared := v.(*Result)
	res := *shared
	return &res
}

func (c *Client) do(ctx context.Context, op Op, method string, target string, body interface{}, query url.Values) *Result {
	req := c.transport.rest.R().SetContext(ctx)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return c.failure(&Error{Kind: KindConfiguration, Op: op, Method: method, URL: target, Err: err}, method, target)
		}
		req.SetBody(payload)
	}
	endpoint := target
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
		target += "?" + query.Encode()
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		statusCode := 0
		if resp != nil && resp.RawResponse != nil {
			statusCode = resp.StatusCode()
		}
		return c.failure(&Error{Kind: KindTransport, Op: op, Method: method, URL: target, StatusCode: statusCode, Err: err}, method, target)
	}

	raw := resp.Body()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		res := c.failure(&Error{
			Kind:       KindProtocol,
			Op:         op,
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode(),
			Body:       truncate(string(raw), maxDebugBody),
		}, method, target)
		res.StatusCode = resp.StatusCode()
		res.DebugInfo["status_code"] = resp.StatusCode()
		res.DebugInfo["response"] = truncate(string(raw), maxDebugBody)
		return res
	}

	res := &Result{Success: true, StatusCode: resp.StatusCode()}
	if len(bytes.TrimSpace(raw)) == 0 {
		return res
	}
	if err := json.Unmarshal(raw, &res.Data); err != nil {
		failed := c.failure(&Error{
			Kind:       KindDecode,
			Op:         op,
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode(),
			Body:       truncate(string(raw), maxDebugBody),
			Err:        err,
		}, method, target)
		failed.StatusCode = resp.StatusCode()
		failed.DebugInfo["response"] = truncate(string(raw), maxDebugBody)
		return failed
	}
	return res
}

func (c *Client) failure(err error, method string, target string) *Result {
	return &Result{
		Success:      false,
		ErrorMessage: err.Error(),
		Err:          err,
		DebugInfo:    c.debugInfo(method, target),
	}
}

func (c *Client) debugInfo(method string, target string) map[string]interface{} {
	return map[string]interface{}{
		"url":    target,
		"method": method,
		"api_url_components": map[string]interface{}{
			"protocol":        c.cfg.Protocol,
			"domain":          c.cfg.Domain,
			"constructed_url": target,
		},
	}
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
