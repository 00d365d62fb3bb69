package graph

import (
	"context"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerOptions configures NewBreakerClient.
type BreakerOptions struct {
	Name string
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Defaults to 5.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before letting a probe
	// through. Defaults to 30s.
	Timeout time.Duration
}

// NewBreakerClient wraps c so that a failing database is short-circuited
// with gobreaker.ErrOpenState instead of stalling every caller. Connectivity
// checks and Close bypass the breaker.
func NewBreakerClient(c Client, opts BreakerOptions, logger *slog.Logger) Client {
	if opts.Name == "" {
		opts.Name = "neo4j"
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	threshold := opts.FailureThreshold
	settings := gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("graph circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &breakerClient{
		inner: c,
		cb:    gobreaker.NewCircuitBreaker[Result](settings),
	}
}

type breakerClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker[Result]
}

func (b *breakerClient) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return b.cb.Execute(func() (Result, error) {
		return b.inner.ExecuteWrite(ctx, cypher, params)
	})
}

func (b *breakerClient) ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	return b.cb.Execute(func() (Result, error) {
		return b.inner.ExecuteRead(ctx, cypher, params)
	})
}

func (b *breakerClient) VerifyConnectivity(ctx context.Context) error {
	return b.inner.VerifyConnectivity(ctx)
}

func (b *breakerClient) Close(ctx context.Context) error {
	return b.inner.Close(ctx)
}
