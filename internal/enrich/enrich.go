// Package enrich looks barcodes up in the Open Food Facts database to pre-fill
// drafts for products the catalog does not know yet.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rogerio-castellano/openbarcode/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL       = "https://world.openfoodfacts.org"
	DefaultRatePerMinute = 100
	defaultUserAgent     = "openbarcode/1.0 (+https://github.com/rogerio-castellano/openbarcode)"
)

var ErrUnavailable = errors.New("failed to fetch external data")

// Result holds the product fields used to pre-fill a draft.
type Result struct {
	Code        string `json:"code"`
	ProductName string `json:"product_name"`
	GenericName string `json:"generic_name"`
	Brands      string `json:"brands"`
	ImageURL    string `json:"image_url"`
}

type productResponse struct {
	Status        int     `json:"status"`
	StatusVerbose string  `json:"status_verbose"`
	Code          string  `json:"code"`
	Product       *Result `json:"product"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	log        *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = logging.OrNop(l) }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRatePerMinute caps outbound lookups. Bursts of a tenth of the rate are
// allowed.
func WithRatePerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = newLimiter(n)
		}
	}
}

func newLimiter(perMinute int) *rate.Limiter {
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), max(1, perMinute/10))
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    newLimiter(DefaultRatePerMinute),
		userAgent:  defaultUserAgent,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup fetches the product registered under barcode. The boolean is false
// when the database has no entry for it.
func (c *Client) Lookup(ctx context.Context, barcode string) (Result, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("open food facts lookup failed", zap.String("barcode", barcode), zap.Error(err))
		return Result{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("open food facts lookup failed", zap.String("barcode", barcode), zap.Int("status", resp.StatusCode))
		return Result{}, false, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if body.Status != 1 || body.Product == nil {
		c.log.Debug("open food facts has no entry", zap.String("barcode", barcode), zap.String("status", body.StatusVerbose))
		return Result{}, false, nil
	}

	result := *body.Product
	if result.Code == "" {
		result.Code = body.Code
	}
	return result, true, nil
}
