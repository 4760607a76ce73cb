package cleanup

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/osclean/internal/config"
	"github.com/imamik/osclean/internal/util/retry"
)

// Backoff is a bounded fixed-delay retry budget.
type Backoff struct {
	Attempts int
	Delay    time.Duration
}

// Policy holds the retry budgets per domain.
type Policy struct {
	// Network covers routers, networks and security groups.
	Network Backoff
	// LoadBalancer uses a longer delay since PENDING_* transitions are slow.
	LoadBalancer Backoff
}

// NewPolicy derives the retry budgets from timeouts.
func NewPolicy(t *config.Timeouts) Policy {
	return Policy{
		Network:      Backoff{Attempts: t.RetryAttempts, Delay: t.NetworkRetryDelay},
		LoadBalancer: Backoff{Attempts: t.RetryAttempts, Delay: t.LBRetryDelay},
	}
}

// ShouldRetry reports whether an error of class c is retried with attempts left.
func (Policy) ShouldRetry(c ErrorClass, attemptsRemaining int) bool {
	return c == ClassConflict && attemptsRemaining > 0
}

// run executes op under b. Only conflicts are retried; any other error ends
// the loop at once. Exhaustion returns *retry.ExhaustedError.
func (p Policy) run(ctx context.Context, b Backoff, what string, op func() error) error {
	log := logr.FromContextOrDiscard(ctx)
	return retry.Do(ctx, func(int) error {
		err := op()
		if err == nil {
			return nil
		}
		if Classify(err) != ClassConflict {
			return retry.Fatal(err)
		}
		return err
	},
		retry.WithMaxAttempts(b.Attempts),
		retry.WithDelay(b.Delay),
		retry.WithOnRetry(func(err error, remaining int, delay time.Duration) {
			if !p.ShouldRetry(Classify(err), remaining) {
				return
			}
			log.Info("retrying", "what", what, "delay", delay, "retriesLeft", remaining, "error", reason(err))
		}),
	)
}
