// Package remote talks to the robot server over HTTP.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/gwillem/vectorpad/pkg/teleop"
)

// DefaultTimeout bounds a single request to the server.
const DefaultTimeout = 2 * time.Second

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client calls the robot server on behalf of one robot.
// The server ties control of a robot to the session cookie, which the
// client keeps in its cookie jar.
type Client struct {
	base   *url.URL
	serial string
	http   *http.Client
	clock  clock.Clock
	logger *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client. Its cookie jar is used as is.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithClientClock sets the time source used by KeepAlive.
func WithClientClock(clk clock.Clock) ClientOption {
	return func(c *Client) { c.clock = clk }
}

// WithClientLogger sets the logger.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a client for the robot with the given serial.
func NewClient(baseURL, serial string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	c := &Client{
		base:   base,
		serial: serial,
		http:   &http.Client{Jar: jar, Timeout: DefaultTimeout},
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Serial returns the robot serial.
func (c *Client) Serial() string {
	return c.serial
}

// Claim takes control of the robot for this session.
func (c *Client) Claim(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.url(nil, "control", c.serial), nil)
}

// Heartbeat tells the server this session is still in control.
func (c *Client) Heartbeat(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.url(nil, "heartbeat", c.serial), nil)
}

// Release gives up control of the robot.
func (c *Client) Release(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.url(nil, "release", c.serial), nil)
}

// Robots lists the serials known to the server.
func (c *Client) Robots(ctx context.Context) ([]string, error) {
	var body struct {
		Robots []string `json:"robots"`
	}
	if err := c.do(ctx, http.MethodGet, c.url(nil, "robots"), &body); err != nil {
		return nil, err
	}
	return body.Robots, nil
}

// Status returns the robot status reported by the server.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	var status map[string]any
	if err := c.do(ctx, http.MethodGet, c.url(nil, "robots", c.serial, "status"), &status); err != nil {
		return nil, err
	}
	return status, nil
}

// UserIntent asks the robot to run one of the server's named intents with
// a free text query.
func (c *Client) UserIntent(ctx context.Context, intent, query string) error {
	params := url.Values{"intent": {intent}, "query": {query}}
	return c.do(ctx, http.MethodGet, c.url(params, "robots", c.serial, "user_intent"), nil)
}

var endpoints = map[teleop.Subsystem]string{
	teleop.Drive: "move_wheels",
	teleop.Lift:  "move_lift",
	teleop.Head:  "move_head",
}

// Send delivers one command and waits for the server to accept it.
func (c *Client) Send(ctx context.Context, cmd teleop.Command) error {
	endpoint, ok := endpoints[cmd.Subsystem]
	if !ok {
		return fmt.Errorf("no endpoint for %s", cmd.Subsystem)
	}
	return c.do(ctx, http.MethodGet, c.url(cmd.Params(), "robots", c.serial, endpoint), nil)
}

func (c *Client) url(query url.Values, elem ...string) string {
	u := c.base.JoinPath(elem...)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		zap.String("method", method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, readStatusError(resp))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func readStatusError(resp *http.Response) *StatusError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil {
		switch {
		case body.Message != "":
			msg = body.Message
		case body.Error != "":
			msg = body.Error
		}
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

// KeepAlive sends a heartbeat now and then every interval until ctx is done.
// Failures are logged and the loop keeps going. When the server says this
// session no longer controls the robot, control is claimed again and
// onReclaim, if set, is called after a successful claim.
func (c *Client) KeepAlive(ctx context.Context, interval time.Duration, onReclaim func()) error {
	ticker := c.clock.Ticker(interval)
	defer ticker.Stop()

	failures := 0
	beat := func() {
		err := c.Heartbeat(ctx)
		if err == nil {
			if failures > 0 {
				c.logger.Info("heartbeat recovered", zap.Int("failures", failures))
			}
			failures = 0
			return
		}
		if ctx.Err() != nil {
			return
		}
		failures++
		c.logger.Warn("heartbeat failed", zap.Int("failures", failures), zap.Error(err))

		if !lostControl(err) {
			return
		}
		if err := c.Claim(ctx); err != nil {
			c.logger.Warn("reclaim failed", zap.Error(err))
			return
		}
		c.logger.Info("control reclaimed", zap.String("serial", c.serial))
		failures = 0
		if onReclaim != nil {
			onReclaim()
		}
	}

	beat()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			beat()
		}
	}
}

// lostControl reports whether err means the session does not control the robot.
func lostControl(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusForbidden
}
