package scan

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/persona-cli/internal/metrics"
	"github.com/sells-group/persona-cli/internal/model"
)

// Limiters owns one token bucket per network. Waiters on the same network
// are served in arrival order; a waiter blocks until its token is due or its
// context ends.
type Limiters struct {
	rps     rate.Limit
	burst   int
	metrics *metrics.Metrics

	mu       sync.Mutex
	limiters map[model.Network]*rate.Limiter
}

// NewLimiters creates per-network limiters allowing rps requests per second
// with the given burst.
func NewLimiters(rps float64, burst int, m *metrics.Metrics) *Limiters {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiters{
		rps:      rate.Limit(rps),
		burst:    burst,
		metrics:  m,
		limiters: make(map[model.Network]*rate.Limiter),
	}
}

func (l *Limiters) limiterFor(n model.Network) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[n]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[n] = lim
	}
	return lim
}

// Wait blocks until network n has a free slot. When the slot is due after
// the context deadline Wait returns at once with an error wrapping
// context.DeadlineExceeded, since waiting could only end in that timeout.
func (l *Limiters) Wait(ctx context.Context, n model.Network) error {
	start := time.Now()
	err := l.limiterFor(n).Wait(ctx)
	l.metrics.ObserveWait(string(n), time.Since(start))
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return eris.Wrapf(ctxErr, "rate limiter wait %s", n)
	}
	if _, ok := ctx.Deadline(); ok {
		return eris.Wrapf(context.DeadlineExceeded, "rate limiter wait %s: next slot is past the deadline", n)
	}
	return eris.Wrapf(err, "rate limiter wait %s", n)
}
