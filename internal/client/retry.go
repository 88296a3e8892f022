package client

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
)

// RetryPolicy bounds how often and how long a provider call is retried.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Factor      float64
	Jitter      time.Duration
	Cap         time.Duration

	// sleep is swapped in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the exponential backoff used for LLM calls.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Base:        500 * time.Millisecond,
		Factor:      2,
		Jitter:      250 * time.Millisecond,
		Cap:         8 * time.Second,
	}
}

// Backoff returns the delay before retry number attempt (0-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := float64(p.Base)
	for i := 0; i < attempt; i++ {
		d *= p.Factor
	}
	if p.Jitter > 0 {
		d += rand.Float64() * float64(p.Jitter)
	}
	if p.Cap > 0 && d > float64(p.Cap) {
		d = float64(p.Cap)
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds or the policy gives up. Non-transient
// failures get a single retry. It returns the number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	attempt := 0
	for ; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt + 1, nil
		}
		if ctx.Err() != nil || attempt == p.MaxAttempts-1 {
			break
		}
		if !IsTransient(lastErr) && attempt >= 1 {
			break
		}
		if err := sleep(ctx, p.Backoff(attempt)); err != nil {
			break
		}
	}
	return attempt + 1, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var transientPatterns = []string{
	"rate limit",
	"timeout",
	"connection",
	"429",
	"500",
	"502",
	"503",
	"529",
}

// IsTransient reports whether err is worth retrying: throttling, server
// errors, timeouts and dropped connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
