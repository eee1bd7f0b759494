package debate

import (
	"context"
	"fmt"
	"time"

	"github.com/meikuraledutech/colosseum"
)

// Gateway fronts the completion providers. Callers pick a provider by the
// name configured on the persona; they never branch on provider identity.
// Retry is bounded and each attempt runs under a hard timeout, so a slow
// provider can never stall the scheduler indefinitely.
type Gateway struct {
	providers      map[string]colosseum.Provider
	maxAttempts    int
	backoff        time.Duration
	attemptTimeout time.Duration
}

// NewGateway creates a Gateway over the given provider registry with the
// default policy: two attempts, two second backoff, 30s per attempt.
func NewGateway(providers map[string]colosseum.Provider) *Gateway {
	return &Gateway{
		providers:      providers,
		maxAttempts:    2,
		backoff:        2 * time.Second,
		attemptTimeout: 30 * time.Second,
	}
}

// WithRetry overrides the attempt budget and backoff. attempts < 1 is
// clamped to 1 (a single attempt, the skip policy).
func (g *Gateway) WithRetry(attempts int, backoff time.Duration) *Gateway {
	if attempts < 1 {
		attempts = 1
	}
	g.maxAttempts = attempts
	g.backoff = backoff
	return g
}

// WithAttemptTimeout overrides the per-attempt hard timeout.
func (g *Gateway) WithAttemptTimeout(d time.Duration) *Gateway {
	g.attemptTimeout = d
	return g
}

// HasProvider reports whether a provider name is registered. Used by config
// validation so an unknown provider fails at session start, not mid-loop.
func (g *Gateway) HasProvider(name string) bool {
	_, ok := g.providers[name]
	return ok
}

// Generate produces text for one turn. It retries up to the attempt budget
// with a short backoff and wraps the final failure in ErrGenerationFailed.
func (g *Gateway) Generate(ctx context.Context, providerName string, prompt colosseum.Prompt) (*colosseum.Result, error) {
	provider, ok := g.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", colosseum.ErrInvalidConfig, providerName)
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", colosseum.ErrGenerationFailed, ctx.Err())
			case <-time.After(g.backoff):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
		result, err := provider.Generate(attemptCtx, prompt)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	// Keep the cause in the chain so failure classification still sees
	// timeouts, network errors, and provider rejections.
	return nil, fmt.Errorf("%w: %w", colosseum.ErrGenerationFailed, lastErr)
}
