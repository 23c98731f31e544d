package woo

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

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/internal/httpclient"
	"github.com/floriandheer/ordermon/logger"
)

// maxResponseBytes caps API response reads. A single page of 100 orders is
// well under this.
const maxResponseBytes = 16 << 20

// Client talks to a WooCommerce store's v3 REST API.
type Client struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	labelSecret    string

	http     *httpclient.SaferClient
	limiter  *rate.Limiter
	pageSize int

	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration

	log *zap.SugaredLogger
}

// NewClient builds a store client from configuration.
func NewClient(store config.StoreConfig, httpCfg config.HTTPConfig, pageSize int, log *zap.SugaredLogger) *Client {
	return newClient(store, httpCfg, pageSize, log, httpclient.New(httpCfg.Timeout()))
}

// NewClientWithHTTP builds a store client around an existing SaferClient.
// Tests use this with httpclient.WrapClient to reach httptest servers.
func NewClientWithHTTP(store config.StoreConfig, httpCfg config.HTTPConfig, pageSize int, log *zap.SugaredLogger, hc *httpclient.SaferClient) *Client {
	return newClient(store, httpCfg, pageSize, log, hc)
}

func newClient(store config.StoreConfig, httpCfg config.HTTPConfig, pageSize int, log *zap.SugaredLogger, hc *httpclient.SaferClient) *Client {
	if log == nil {
		log = logger.Logger
	}

	// rate.Inf when unthrottled
	limit := rate.Inf
	if httpCfg.MaxRequestsPerMinute > 0 {
		limit = rate.Limit(float64(httpCfg.MaxRequestsPerMinute) / 60.0)
	}

	return &Client{
		baseURL:         strings.TrimRight(store.URL, "/"),
		consumerKey:     store.ConsumerKey,
		consumerSecret:  store.ConsumerSecret,
		labelSecret:     store.LabelSecret,
		http:            hc,
		limiter:         rate.NewLimiter(limit, 1),
		pageSize:        pageSize,
		maxRetries:      uint64(httpCfg.MaxRetries),
		initialInterval: httpCfg.RetryInitialInterval(),
		maxInterval:     httpCfg.RetryMaxInterval(),
		log:             log,
	}
}

// FetchOptions narrow an order fetch.
type FetchOptions struct {
	// After restricts results to orders created after this instant.
	After time.Time
	// Statuses restricts results server-side. Empty means any status.
	Statuses []string
}

// FetchOrders retrieves all orders matching opts, walking pages until a
// short page signals the end. Orders come back oldest first.
func (c *Client) FetchOrders(ctx context.Context, opts FetchOptions) ([]Order, error) {
	var all []Order

	for page := 1; ; page++ {
		batch, err := c.fetchPage(ctx, opts, page)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching orders page %d", page)
		}

		all = append(all, batch...)
		c.log.Debugw("Fetched orders page",
			logger.FieldPage, page,
			logger.FieldCount, len(batch))

		if len(batch) < c.pageSize {
			break
		}
	}

	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, opts FetchOptions, page int) ([]Order, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(c.pageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("orderby", "date")
	params.Set("order", "asc")
	if !opts.After.IsZero() {
		params.Set("after", opts.After.UTC().Format("2006-01-02T15:04:05"))
	}
	if len(opts.Statuses) > 0 {
		params.Set("status", strings.Join(opts.Statuses, ","))
	}

	endpoint := c.baseURL + "/wp-json/wc/v3/orders?" + params.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var orders []Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, errors.Wrap(err, "decoding orders response")
	}
	return orders, nil
}

// TestConnection verifies endpoint reachability and credential validity
// before the first cycle runs.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.get(ctx, c.baseURL+"/wp-json/wc/v3/system_status")
	if err != nil {
		return errors.Wrap(err, "store connection test failed")
	}
	return nil
}

// FetchLabelURL asks the store's admin-ajax label endpoint for a shipping
// label URL when order metadata carries none. Returns "" with no error when
// the store has no label for the order.
func (c *Client) FetchLabelURL(ctx context.Context, orderID int64) (string, error) {
	if c.labelSecret == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("action", "bpost_monitor_get_label")
	params.Set("order_id", strconv.FormatInt(orderID, 10))
	params.Set("secret", c.labelSecret)

	endpoint := c.baseURL + "/wp-admin/admin-ajax.php?" + params.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return "", errors.Wrapf(err, "label lookup for order %d", orderID)
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			LabelURL string `json:"label_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(err, "decoding label lookup response")
	}
	if !resp.Success {
		return "", nil
	}
	return resp.Data.LabelURL, nil
}

// DownloadLabel fetches a label document from url and returns its bytes.
// The URL is untrusted metadata, so it goes through the SSRF-checked client.
func (c *Client) DownloadLabel(ctx context.Context, labelURL string) ([]byte, error) {
	return c.get(ctx, labelURL)
}

// get performs an authenticated GET with rate limiting and bounded
// exponential backoff. HTTP 5xx and transport errors retry; 4xx fails
// immediately, with 401/403 surfaced as configuration errors.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	var body []byte

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "building request"))
		}
		req.SetBasicAuth(c.consumerKey, c.consumerSecret)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			// Transport failures retry unless the context is done.
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return errors.WrapTransient(err, "request failed")
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return errors.WrapTransient(err, "reading response body")
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body = data
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(errors.NewConfigurationError(
				"store rejected credentials (HTTP %d)", resp.StatusCode))
		case resp.StatusCode == http.StatusTooManyRequests:
			return errors.NewTransientError("store throttled request (HTTP 429)")
		case resp.StatusCode >= 500:
			return errors.NewTransientError("store returned HTTP %d", resp.StatusCode)
		default:
			return backoff.Permanent(errors.Newf("unexpected HTTP %d: %s",
				resp.StatusCode, truncateBody(data)))
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	policy.MaxInterval = c.maxInterval
	policy.MaxElapsedTime = 0 // bounded by retry count, not wall clock

	notify := func(err error, wait time.Duration) {
		c.log.Warnw("Retrying store request",
			logger.FieldURL, redactURL(endpoint),
			"wait", wait.String(),
			logger.FieldError, err)
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx),
		notify)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// truncateBody keeps error messages readable when the store responds with a
// full HTML error page.
func truncateBody(data []byte) string {
	const max = 200
	s := strings.TrimSpace(string(data))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// redactURL strips query parameters before logging, since the admin-ajax
// endpoint carries the label secret in its query string.
func redactURL(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "(unparseable url)"
	}
	if u.RawQuery != "" {
		u.RawQuery = ""
		return fmt.Sprintf("%s?...", u.String())
	}
	return u.String()
}
