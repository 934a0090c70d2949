// Package hackernews implements remote.Store against the Hacker News
// Firebase API.
package hackernews

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/okian/hntally/internal/adapters/remote"
	"github.com/okian/hntally/internal/domain/model"
	"github.com/okian/hntally/pkg/metrics"
)

// Default client configuration constants.
const (
	DefaultBaseURL        = "https://hacker-news.firebaseio.com/v0"
	defaultTimeout        = 10 * time.Second
	defaultRetryCount     = 2
	defaultRetryWait      = 200 * time.Millisecond
	defaultRetryMaxWait   = 2 * time.Second
	topStoriesPath        = "/topstories.json"
	itemPath              = "/item/{id}.json"
	operationListTop      = "list_top"
	operationGetItem      = "get_item"
	jsonContentType       = "application/json"
	defaultRateLimitBurst = 1
)

// itemPayload mirrors the item JSON document.
type itemPayload struct {
	ID      int64   `json:"id"`
	Type    string  `json:"type"`
	By      string  `json:"by"`
	Title   string  `json:"title"`
	Kids    []int64 `json:"kids"`
	Deleted bool    `json:"deleted"`
	Dead    bool    `json:"dead"`
}

// Client fetches items over HTTP. It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter

	baseURL    string
	timeout    time.Duration
	retryCount int
	rps        float64
	burst      int
	transport  http.RoundTripper
}

// New creates a Client with configuration options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		timeout:    defaultTimeout,
		retryCount: defaultRetryCount,
		burst:      defaultRateLimitBurst,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetHeader("Accept", jsonContentType).
		SetRetryCount(c.retryCount).
		SetRetryWaitTime(defaultRetryWait).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(retryable)
	if c.transport != nil {
		c.http.SetTransport(c.transport)
	}

	if c.rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.rps), c.burst)
	} else {
		c.limiter = rate.NewLimiter(rate.Inf, c.burst)
	}
	return c
}

// retryable retries throttling and server-side failures. Transport errors
// are retried by resty itself.
func retryable(r *resty.Response, _ error) bool {
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// ListTop returns up to n ids from the top stories list.
func (c *Client) ListTop(ctx context.Context, n int) ([]model.ItemID, error) {
	var ids []int64
	if err := c.get(ctx, operationListTop, topStoriesPath, nil, &ids); err != nil {
		return nil, errors.Wrap(err, "list top stories")
	}

	if n >= 0 && n < len(ids) {
		ids = ids[:n]
	}
	out := make([]model.ItemID, len(ids))
	for i, id := range ids {
		out[i] = model.ItemID(id)
	}
	return out, nil
}

// GetItem fetches one item. A 404 or a JSON null body yields
// remote.ErrNotFound.
func (c *Client) GetItem(ctx context.Context, id model.ItemID) (model.Item, error) {
	var payload itemPayload
	params := map[string]string{"id": id.String()}
	if err := c.get(ctx, operationGetItem, itemPath, params, &payload); err != nil {
		return model.Item{}, errors.Wrapf(err, "get item %d", id)
	}
	if payload.ID == 0 {
		metrics.RecordRemoteFetch(operationGetItem, metrics.OutcomeNotFound, 0)
		return model.Item{}, errors.Wrapf(remote.ErrNotFound, "get item %d: empty payload", id)
	}
	return payload.toItem(), nil
}

// get waits on the rate limiter, performs a GET, and decodes the JSON body
// into out.
func (c *Client) get(ctx context.Context, operation, path string, params map[string]string, out any) error {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordRemoteFetch(operation, metrics.OutcomeCanceled, 0)
		return errors.Wrap(err, "rate limiter")
	}
	metrics.RecordRateLimitWait(float64(time.Since(waitStart).Milliseconds()))

	metrics.IncRemoteInFlight()
	defer metrics.DecRemoteInFlight()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(params).
		ForceContentType(jsonContentType).
		SetResult(out).
		Get(path)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		outcome := metrics.OutcomeError
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCanceled
		}
		metrics.RecordRemoteFetch(operation, outcome, latency)
		return errors.Wrap(err, "http get "+path)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		metrics.RecordRemoteFetch(operation, metrics.OutcomeNotFound, latency)
		return errors.Wrap(remote.ErrNotFound, "http 404")
	case code != http.StatusOK:
		metrics.RecordRemoteFetch(operation, metrics.OutcomeError, latency)
		return errors.Errorf("%s returned unexpected status code: %s", path, strconv.Itoa(code))
	}

	metrics.RecordRemoteFetch(operation, metrics.OutcomeOK, latency)
	return nil
}

func (p itemPayload) toItem() model.Item {
	kids := make([]model.ItemID, len(p.Kids))
	for i, k := range p.Kids {
		kids[i] = model.ItemID(k)
	}
	return model.Item{
		ID:      model.ItemID(p.ID),
		Kind:    model.ParseKind(p.Type),
		Author:  p.By,
		Title:   p.Title,
		Kids:    kids,
		Deleted: p.Deleted,
		Dead:    p.Dead,
	}
}
