// Package catalog reads bug-bounty programs and their structured scopes
// from the HackerOne hacker API.
//
// Both lists are paged with page[size] and page[number] and end when the
// response has no links.next. The program list fails as a whole on any
// page error; the scope list keeps whatever it fetched before an error.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/waftester/bountyscout/pkg/defaults"
	"github.com/waftester/bountyscout/pkg/httpclient"
	"github.com/waftester/bountyscout/pkg/iohelper"
	"github.com/waftester/bountyscout/pkg/model"
	"github.com/waftester/bountyscout/pkg/ratelimit"
)

// Client talks to the catalog API.
type Client struct {
	baseURL  string
	http     *http.Client
	limiter  *ratelimit.Limiter
	shuffler Shuffler
	pageSize int
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRequestsPerSecond caps outbound calls. Zero disables the cap.
func WithRequestsPerSecond(rps float64) Option {
	return func(c *Client) { c.limiter = ratelimit.NewPerSecond(rps) }
}

// WithShuffler sets the permutation source used for sampling.
func WithShuffler(s Shuffler) Option {
	return func(c *Client) { c.shuffler = s }
}

// WithPageSize overrides page[size].
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New returns a client for the public HackerOne API.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:  defaults.CatalogBaseURL,
		pageSize: defaults.PageSize,
		limiter:  ratelimit.NewPerSecond(defaults.CatalogRequestsPerSecond),
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		cfg := httpclient.DefaultConfig()
		cfg.UserAgent = defaults.UserAgent("catalog")
		cfg.MaxRedirects = defaults.MaxRedirects
		c.http = httpclient.New(cfg)
	}
	if c.shuffler == nil {
		c.shuffler = DefaultShuffler()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// page is one decoded list page.
type page struct {
	items []gjson.Result
	next  bool
}

// getPage fetches one page of path. Non-2xx responses return a
// *StatusError.
func (c *Client) getPage(ctx context.Context, creds model.Credentials, path string, size, number int) (page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return page{}, err
	}

	q := url.Values{}
	q.Set("page[size]", strconv.Itoa(size))
	if number > 0 {
		q.Set("page[number]", strconv.Itoa(number))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return page{}, err
	}
	req.SetBasicAuth(creds.Username, creds.Token)
	req.Header.Set("Accept", defaults.ContentTypeJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return page{}, err
	}
	defer iohelper.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page{}, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := iohelper.ReadBody(resp.Body, iohelper.APIMaxBodySize)
	if err != nil {
		return page{}, err
	}
	if !gjson.ValidBytes(body) {
		return page{}, fmt.Errorf("catalog: undecodable page body (%d bytes)", len(body))
	}

	return page{
		items: gjson.GetBytes(body, "data").Array(),
		next:  gjson.GetBytes(body, "links.next").String() != "",
	}, nil
}

// VerifyCredentials requests a single program to check that creds are
// accepted.
func (c *Client) VerifyCredentials(ctx context.Context, creds model.Credentials) error {
	_, err := c.getPage(ctx, creds, "/hackers/programs", defaults.VerifyPageSize, 0)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return nil
}
