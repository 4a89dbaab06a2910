package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/fragmede/keyhole/internal/config"
)

const (
	userAgent = "keyhole/1.0"

	// xsrfCookie is set by the CSRF endpoint; its value is echoed back in
	// xsrfHeader on state-changing requests.
	xsrfCookie = "XSRF-TOKEN"
	xsrfHeader = "X-XSRF-TOKEN"

	maxErrorBody = 64 << 10
)

// Client talks to a cookie-session authenticated API.
type Client struct {
	http      *http.Client
	jar       *cookiejar.Jar
	base      *url.URL
	endpoints config.Endpoints
	log       *slog.Logger
}

// NewClient creates an API client for cfg.BaseURL with an empty cookie jar.
func NewClient(cfg config.Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		http: &http.Client{
			Jar:     jar,
			Timeout: cfg.RequestTimeout,
		},
		jar:       jar,
		base:      base,
		endpoints: cfg.Endpoints,
		log:       logger,
	}, nil
}

// CSRFCookie asks the server to issue the anti-forgery cookie.
func (c *Client) CSRFCookie(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.endpoints.CSRFCookie, nil, nil)
}

// Login authenticates with the given credentials. Whatever the server puts
// in the body is discarded; the user is read from CurrentUser.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	return c.do(ctx, http.MethodPost, c.endpoints.Login, creds, nil)
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, u NewUser) error {
	return c.do(ctx, http.MethodPost, c.endpoints.Register, u, nil)
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.endpoints.Logout, nil, nil)
}

// CurrentUser fetches the user bound to the session cookie.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, c.endpoints.CurrentUser, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Cookies returns the cookies the jar would send to the API.
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.base)
}

// SetCookies loads previously saved cookies into the jar.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.jar.SetCookies(c.base, cookies)
}

// do sends a JSON request and decodes a JSON response into dst when dst is
// non-nil and the response has a body.
func (c *Client) do(ctx context.Context, method, path string, body, dst interface{}) error {
	target := c.base.JoinPath(path).String()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, body != nil)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "method", method, "url", target, "error", err)
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()
	c.log.Debug("request done", "method", method, "url", target,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp, method, target)
	}

	if dst == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", target, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", target, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	origin := c.base.Scheme + "://" + c.base.Host
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+"/")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.xsrfToken(); token != "" {
		req.Header.Set(xsrfHeader, token)
	}
}

// xsrfToken returns the decoded XSRF-TOKEN cookie value. The server stores
// it URL-encoded.
func (c *Client) xsrfToken() string {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name != xsrfCookie {
			continue
		}
		if v, err := url.QueryUnescape(ck.Value); err == nil {
			return v
		}
		return ck.Value
	}
	return ""
}

func readStatusError(resp *http.Response, method, target string) error {
	se := &StatusError{Method: method, URL: target, Code: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		se.Message = eb.Message
		se.Fields = eb.fields()
	} else if len(data) > 0 {
		se.Message = http.StatusText(resp.StatusCode)
	}
	return se
}
