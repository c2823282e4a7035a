package codebeamer

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"cbtrace/internal/logger"
)

const (
	defaultPageSize = 100
	defaultTimeout  = 30 * time.Second

	// maxBodyBytes bounds how much of an error response we echo back to
	// the user.
	maxBodyBytes = 1 << 20
)

// Options configures a Client.
type Options struct {
	// Root is the server root URL; the REST base is derived from it.
	Root      string
	User      string
	Pass      string
	VerifySSL bool
	PageSize  int
	Timeout   time.Duration
}

// Client issues authenticated requests against one codebeamer server. All
// calls are synchronous; a failed request fails the whole run, by contract
// there is no retry.
type Client struct {
	base     string
	user     string
	pass     string
	pageSize int
	http     *http.Client
	log      *logger.Logger
}

func New(opts Options, log *logger.Logger) *Client {
	if opts.PageSize < 1 {
		opts.PageSize = defaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if !opts.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		base:     strings.TrimRight(opts.Root, "/") + "/cb/api/v3",
		user:     opts.User,
		pass:     opts.Pass,
		pageSize: opts.PageSize,
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		log: log,
	}
}

// TimeoutError marks a request that exceeded the configured timeout. The CLI
// boundary turns it into a mitigation hint.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s fetching %s", e.Timeout, e.URL)
}

// HTTPError is a non-success response from the server.
type HTTPError struct {
	URL    string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("could not fetch %s: status %d: %s", e.URL, e.Status, e.Body)
}

// getJSON performs one authenticated GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	req.SetBasicAuth(c.user, c.pass)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return &TimeoutError{URL: url, Timeout: c.http.Timeout}
		}
		return fmt.Errorf("could not fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &HTTPError{URL: url, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}
