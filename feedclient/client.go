package feedclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	gresty "github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/JokingLove/whale-alert-sync/config"
	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/metrics"
)

const MaxLimit = 256

// DefaultMinCallInterval applies when no positive interval is configured; the
// delay between calls cannot be switched off.
const DefaultMinCallInterval = 100 * time.Millisecond

var (
	ErrUnauthorized    = errors.New("feed credential missing or rejected")
	ErrFeedUnavailable = errors.New("feed unavailable")
)

const (
	endpointTransactions        = "transactions"
	endpointTransaction         = "transaction"
	endpointAddressTransactions = "address_transactions"
	endpointStatus              = "status"
)

type Client struct {
	client  *gresty.Client
	apiKey  string
	limiter *rate.Limiter
}

func NewClient(cfg config.FeedConfig) (*Client, error) {
	if cfg.BaseUrl == "" {
		return nil, fmt.Errorf("feed base url cannot be empty")
	}

	interval := cfg.MinCallInterval
	if interval <= 0 {
		interval = DefaultMinCallInterval
	}

	client := gresty.New()
	client.SetBaseURL(cfg.BaseUrl)
	client.SetTimeout(cfg.RequestTimeout)
	client.SetHeader("Accept", "application/json")
	client.SetLogger(restyLogger{})
	client.OnAfterResponse(func(c *gresty.Client, response *gresty.Response) error {
		statusCode := response.StatusCode()
		if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
			return fmt.Errorf("%d %s: %w", statusCode, redact(response.Request.URL), ErrUnauthorized)
		}
		if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("%d %s: %w", statusCode, redact(response.Request.URL), ErrFeedUnavailable)
		}
		return nil
	})

	return &Client{
		client:  client,
		apiKey:  cfg.ApiKey,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// GetTransactions lists transactions on blockchain within [start, end] worth at
// least minValueUsd. limit is clamped to [1, MaxLimit].
func (c *Client) GetTransactions(ctx context.Context, blockchain database.Blockchain, start, end time.Time, minValueUsd decimal.Decimal, limit int) ([]database.WhaleTransaction, error) {
	params := map[string]string{
		"start":     strconv.FormatInt(start.Unix(), 10),
		"end":       strconv.FormatInt(end.Unix(), 10),
		"min_value": minValueUsd.Truncate(0).String(),
		"limit":     strconv.Itoa(clampLimit(limit)),
	}
	var resp transactionsResponse
	path := fmt.Sprintf("/%s/transactions", url.PathEscape(blockchain.String()))
	if err := c.get(ctx, endpointTransactions, path, params, &resp); err != nil {
		return nil, err
	}
	metrics.FeedTransactionsFetched.WithLabelValues(blockchain.String()).Add(float64(len(resp.Transactions)))
	return convert(resp.Transactions), nil
}

// GetAddressTransactions is best effort: any failure is logged and yields an
// empty list so a batch of independent lookups is never aborted.
func (c *Client) GetAddressTransactions(ctx context.Context, blockchain database.Blockchain, address string, start, end time.Time, limit int) []database.WhaleTransaction {
	params := map[string]string{
		"start": strconv.FormatInt(start.Unix(), 10),
		"end":   strconv.FormatInt(end.Unix(), 10),
		"limit": strconv.Itoa(clampLimit(limit)),
	}
	var resp transactionsResponse
	path := fmt.Sprintf("/%s/address/%s/transactions", url.PathEscape(blockchain.String()), url.PathEscape(address))
	if err := c.get(ctx, endpointAddressTransactions, path, params, &resp); err != nil {
		log.Warn("address transaction lookup failed", "blockchain", blockchain, "address", address, "err", err)
		return []database.WhaleTransaction{}
	}
	return convert(resp.Transactions)
}

// GetTransaction returns nil, nil when the feed knows no such transaction.
func (c *Client) GetTransaction(ctx context.Context, blockchain database.Blockchain, hash string) (*database.WhaleTransaction, error) {
	var resp transactionsResponse
	path := fmt.Sprintf("/%s/transaction/%s", url.PathEscape(blockchain.String()), url.PathEscape(hash))
	if err := c.get(ctx, endpointTransaction, path, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Transactions) == 0 {
		return nil, nil
	}
	tx := resp.Transactions[0].ToWhaleTransaction()
	return &tx, nil
}

func (c *Client) Status(ctx context.Context) (*Status, error) {
	var status Status
	if err := c.get(ctx, endpointStatus, "/status", nil, &status); err != nil {
		return nil, err
	}
	if status.Result != resultSuccess {
		return nil, fmt.Errorf("status result %q %s: %w", status.Result, status.Message, ErrFeedUnavailable)
	}
	return &status, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params map[string]string, result interface{}) error {
	if c.apiKey == "" {
		metrics.FeedRequestsTotal.WithLabelValues(endpoint, "unauthorized").Inc()
		return ErrUnauthorized
	}
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.FeedRequestsTotal.WithLabelValues(endpoint, "cancelled").Inc()
		return fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}

	begin := time.Now()
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("api_key", c.apiKey).
		SetResult(result).
		Get(path)
	metrics.FeedRequestLatency.WithLabelValues(endpoint).Observe(time.Since(begin).Seconds())
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			metrics.FeedRequestsTotal.WithLabelValues(endpoint, "unauthorized").Inc()
			return err
		}
		metrics.FeedRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		if errors.Is(err, ErrFeedUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %s", ErrFeedUnavailable, redact(err.Error()))
	}

	if txs, ok := res.Result().(*transactionsResponse); ok && txs.Result != "" && txs.Result != resultSuccess {
		metrics.FeedRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("result %q %s: %w", txs.Result, txs.Message, ErrFeedUnavailable)
	}
	metrics.FeedRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

func convert(txs []Transaction) []database.WhaleTransaction {
	out := make([]database.WhaleTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ToWhaleTransaction())
	}
	return out
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

var apiKeyPattern = regexp.MustCompile(`api_key=[^&\s"]*`)

// redact keeps the api key out of logs and errors.
func redact(s string) string {
	return apiKeyPattern.ReplaceAllString(s, "api_key=REDACTED")
}

// restyLogger routes resty's own messages through the structured logger.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	log.Error("feed http client", "msg", redact(fmt.Sprintf(format, v...)))
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	log.Warn("feed http client", "msg", redact(fmt.Sprintf(format, v...)))
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	log.Debug("feed http client", "msg", redact(fmt.Sprintf(format, v...)))
}
