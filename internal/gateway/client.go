// Package gateway implements the client side of the locker hardware link:
// an embedded controller that accepts plain-text "open" commands over HTTP.
//
// The hardware is a best-effort, non-transactional actuator. There is no
// feedback channel confirming the physical door state beyond the HTTP
// response, so bounded retry at single-locker granularity is the only safety
// net. The client owns its own fixed retry budget; caller cancellation does
// not abort an in-flight open, because a door may still swing open after the
// caller has given up and callers must treat it that way.
package gateway

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnreachable is reported after every retry attempt has been exhausted.
// Individual attempt failures never surface to callers.
var ErrUnreachable = errors.New("locker hardware unreachable")

// Defaults for the retry and pacing policy. The pacing interval is for the
// shared hardware bus: bulk opens go out sequentially so the controller is
// never asked to drive more than one door mechanism at a time.
const (
	DefaultMaxAttempts   = 10
	DefaultRetryDelay    = 250 * time.Millisecond
	DefaultPaceInterval  = 1 * time.Second
	DefaultCommandPrefix = "open"

	requestTimeout = 5 * time.Second
)

// Client sends open commands to the hardware endpoint with bounded retry.
// The zero value is not usable; construct with New.
type Client struct {
	baseURL     string
	prefix      string
	maxAttempts int
	retryDelay  time.Duration
	httpc       *http.Client
	pacer       *rate.Limiter

	// sleep is a seam for tests so the retry bound can be asserted without
	// waiting out real delays.
	sleep func(time.Duration)
}

// Option customizes a Client.
type Option func(*Client)

// WithRetry overrides the attempt count and inter-attempt delay.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if delay >= 0 {
			c.retryDelay = delay
		}
	}
}

// WithPaceInterval overrides the fixed interval between sequential opens in
// OpenMany. Zero disables pacing.
func WithPaceInterval(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.pacer = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.pacer = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpc = h
		}
	}
}

// WithCommandPrefix overrides the textual command prefix. The controller
// firmware parses "<prefix>_<lockerID>", so this must match its build.
func WithCommandPrefix(p string) Option {
	return func(c *Client) {
		if p = strings.TrimSpace(p); p != "" {
			c.prefix = p
		}
	}
}

// New constructs a Client for the controller at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		prefix:      DefaultCommandPrefix,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		httpc:       &http.Client{Timeout: requestTimeout},
		pacer:       rate.NewLimiter(rate.Every(DefaultPaceInterval), 1),
		sleep:       time.Sleep,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open commands the controller to open one locker. It retries transport and
// non-200 failures with a fixed delay up to the configured attempt count,
// then reports ErrUnreachable. A nil return means the controller acknowledged
// the command with HTTP 200.
func (c *Client) Open(lockerID uint) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.sleep(c.retryDelay)
		}
		lastErr = c.attempt(lockerID)
		observeAttempt(lastErr == nil)
		if lastErr == nil {
			observeOpen(true)
			return nil
		}
	}
	observeOpen(false)
	return fmt.Errorf("%w: locker %d after %d attempts: %v", ErrUnreachable, lockerID, c.maxAttempts, lastErr)
}

// OpenMany opens lockers sequentially, pacing requests on the shared bus,
// and returns the IDs that could not be opened. A single failure does not
// abort the batch; the remainder is still attempted. Retry happens inside
// Open per locker, never at the batch level.
func (c *Client) OpenMany(ids []uint) []uint {
	var failed []uint
	for i, id := range ids {
		if i > 0 {
			// rate.Limiter with burst 1 turns into a fixed-interval
			// scheduler; the reservation delay is served via the sleep seam.
			r := c.pacer.Reserve()
			if d := r.Delay(); d > 0 {
				c.sleep(d)
			}
		}
		if err := c.Open(id); err != nil {
			failed = append(failed, id)
		}
	}
	return failed
}

// attempt performs one command POST. Body is "<prefix>_<id>" as text/plain;
// the controller acknowledges with HTTP 200 and nothing else counts.
func (c *Client) attempt(lockerID uint) error {
	body := fmt.Sprintf("%s_%d", c.prefix, lockerID)
	req, err := http.NewRequest(http.MethodPost, c.baseURL, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hardware endpoint returned %d", resp.StatusCode)
	}
	return nil
}
