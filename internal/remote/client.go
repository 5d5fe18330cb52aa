package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Defaults for the omg.lol API.
const (
	DefaultBaseURL   = "https://api.omg.lol"
	DefaultWeblogURL = "https://%s.weblog.lol/rss.xml"

	// DefaultRequestsPerSecond keeps the client well under the API limits.
	DefaultRequestsPerSecond = 5.0
	DefaultBurst             = 10
)

// Options configures a Client.
type Options struct {
	BaseURL string
	// WeblogURL is a format string taking the address.
	WeblogURL         string
	Token             string
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Logger            logrus.FieldLogger
	// Now is the clock used for records the API does not date.
	Now func() time.Time
}

// Client implements API over HTTP.
type Client struct {
	baseURL   string
	weblogURL string
	token     string
	http      *http.Client
	feeds     *gofeed.Parser
	limiter   *rate.Limiter
	log       logrus.FieldLogger
	now       func() time.Time
}

// Ensure Client implements API.
var _ API = (*Client)(nil)

// NewClient creates a client. Zero options fall back to the defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.WeblogURL == "" {
		opts.WeblogURL = DefaultWeblogURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	feeds := gofeed.NewParser()
	feeds.Client = opts.HTTPClient
	return &Client{
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		weblogURL: opts.WeblogURL,
		token:     opts.Token,
		http:      opts.HTTPClient,
		feeds:     feeds,
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		log:       opts.Logger,
		now:       opts.Now,
	}
}

// WithCredential returns a copy of the client sharing its rate limiter.
func (c *Client) WithCredential(token string) API {
	cp := *c
	cp.token = token
	return &cp
}

// envelope is the response wrapper used by every API endpoint.
type envelope struct {
	Request struct {
		StatusCode int  `json:"status_code"`
		Success    bool `json:"success"`
	} `json:"request"`
	Response json.RawMessage `json:"response"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// get performs a rate-limited GET and decodes the response payload into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit cancelled for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	c.log.WithFields(logrus.Fields{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("api request")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= 300 {
			return statusError(path, resp.StatusCode, "")
		}
		return fmt.Errorf("decode %s: %w", path, err)
	}
	status := resp.StatusCode
	if env.Request.StatusCode != 0 {
		status = env.Request.StatusCode
	}
	if status >= 300 || (env.Request.StatusCode != 0 && !env.Request.Success) {
		var e errorResponse
		_ = json.Unmarshal(env.Response, &e)
		return statusError(path, status, e.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func statusError(path string, status int, msg string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("GET %s: %w", path, ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("GET %s: %w", path, ErrNotFound)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("GET %s: status %d: %s", path, status, msg)
}

func addressPath(address string, parts ...string) string {
	p := "/address/" + url.PathEscape(address)
	for _, s := range parts {
		p += "/" + url.PathEscape(s)
	}
	return p
}

// epoch decodes unix timestamps the API sends either as numbers or strings.
type epoch int64

func (e *epoch) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*e = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid epoch %q: %w", s, err)
	}
	*e = epoch(n)
	return nil
}

func (e epoch) Time() time.Time {
	if e == 0 {
		return time.Time{}
	}
	return time.Unix(int64(e), 0).UTC()
}

type timestamp struct {
	UnixEpochTime epoch `json:"unix_epoch_time"`
}
