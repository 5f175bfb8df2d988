// Package notion reads lead pages from Notion databases.
package notion

import (
	"context"
	"errors"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscore/internal/resilience"
)

// maxPageSize is the largest page the database query endpoint returns.
const maxPageSize = 100

// Client queries a Notion database.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// databaseQuerier is the part of notionapi.DatabaseService the client uses.
type databaseQuerier interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// ClientOption configures the Notion client.
type ClientOption func(*notionClient)

// WithRateLimit overrides the default Notion rate limit (3 req/s). Zero
// disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(c *notionClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry sets the policy for retrying 5xx and 429 responses.
func WithRetry(cfg resilience.RetryConfig) ClientOption {
	return func(c *notionClient) { c.retry = cfg }
}

// WithPageSize sets the page size used when a request leaves it unset.
func WithPageSize(n int) ClientOption {
	return func(c *notionClient) {
		if n > 0 && n <= maxPageSize {
			c.pageSize = n
		}
	}
}

type notionClient struct {
	db       databaseQuerier
	limiter  *rate.Limiter
	retry    resilience.RetryConfig
	pageSize int
}

// NewClient returns a client authenticated with an integration token.
// Queries are throttled to 3 req/s and fetch full pages by default.
func NewClient(token string, opts ...ClientOption) Client {
	return newClient(notionapi.NewClient(notionapi.Token(token)).Database, opts...)
}

func newClient(db databaseQuerier, opts ...ClientOption) *notionClient {
	c := &notionClient{
		db:       db,
		limiter:  rate.NewLimiter(3, 1),
		retry:    resilience.DefaultRetryConfig(),
		pageSize: maxPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.OnRetry = resilience.RetryLogger("notion", "query_database")
	return c
}

func (c *notionClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *notionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if req == nil {
		req = &notionapi.DatabaseQueryRequest{}
	}
	if req.PageSize == 0 {
		req.PageSize = c.pageSize
	}

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*notionapi.DatabaseQueryResponse, error) {
		if err := c.wait(ctx); err != nil {
			return nil, eris.Wrap(err, "notion: rate limit")
		}
		resp, err := c.db.Query(ctx, notionapi.DatabaseID(dbID), req)
		if err != nil {
			return nil, classify(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query database %s", dbID)
	}
	return resp, nil
}

// classify marks API errors with a retryable status as transient.
func classify(err error) error {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.Status) {
		return resilience.NewTransientError(err, apiErr.Status)
	}
	return err
}
