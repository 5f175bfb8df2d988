// Package sheets is a small client for the Google Sheets v4 values API.
package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscore/internal/resilience"
)

const defaultBaseURL = "https://sheets.googleapis.com/v4"

// Client reads cell values from a spreadsheet.
type Client interface {
	Values(ctx context.Context, spreadsheetID, readRange string) (*ValueRange, error)
}

// ValueRange is the response of spreadsheets.values.get.
type ValueRange struct {
	Range          string  `json:"range"`
	MajorDimension string  `json:"majorDimension"`
	Values         [][]any `json:"values"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithAccessToken authenticates with an OAuth bearer token instead of an
// API key. Private sheets need this.
func WithAccessToken(token string) Option {
	return func(c *httpClient) {
		c.accessToken = token
	}
}

// WithRateLimit caps requests per second. Zero disables the limiter.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey      string
	accessToken string
	baseURL     string
	http        *http.Client
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
}

// NewClient creates a Sheets values client. apiKey may be empty when an
// access token is supplied.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("sheets", "values")
	}
	return c
}

func (c *httpClient) Values(ctx context.Context, spreadsheetID, readRange string) (*ValueRange, error) {
	if spreadsheetID == "" {
		return nil, eris.New("sheets: spreadsheet id is required")
	}
	if readRange == "" {
		return nil, eris.New("sheets: range is required")
	}

	q := url.Values{}
	q.Set("majorDimension", "ROWS")
	q.Set("valueRenderOption", "FORMATTED_VALUE")
	if c.apiKey != "" && c.accessToken == "" {
		q.Set("key", c.apiKey)
	}
	endpoint := c.baseURL + "/spreadsheets/" + url.PathEscape(spreadsheetID) +
		"/values/" + url.PathEscape(readRange) + "?" + q.Encode()

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*ValueRange, error) {
		return c.get(ctx, endpoint)
	})
}

func (c *httpClient) get(ctx context.Context, endpoint string) (*ValueRange, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "sheets: rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "sheets: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("sheets: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result ValueRange
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "sheets: unmarshal response")
	}
	return &result, nil
}
