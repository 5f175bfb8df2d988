package salesforce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient implements Client for testing.
type mockClient struct {
	queryFn func(ctx context.Context, soql string, out any) error
}

func (m *mockClient) Query(ctx context.Context, soql string, out any) error {
	if m.queryFn != nil {
		return m.queryFn(ctx, soql, out)
	}
	return nil
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient(nil, WithRateLimit(25)).(*sfClient)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 25, c.limiter.Burst())

	c = NewClient(nil, WithRateLimit(0)).(*sfClient)
	assert.Nil(t, c.limiter)
	assert.NoError(t, c.wait(context.Background()))
}

func TestQuery_RateLimitCancelled(t *testing.T) {
	c := NewClient(nil, WithRateLimit(0.001)).(*sfClient)
	require.NoError(t, c.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var leads []Lead
	err := c.Query(ctx, "SELECT Id FROM Lead", &leads)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: rate limit")
}

func TestConnect_MissingKey(t *testing.T) {
	_, err := Connect(Creds{KeyPath: "/nonexistent/key.pem"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read JWT private key")
}
