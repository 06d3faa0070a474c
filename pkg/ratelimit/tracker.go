package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	zdRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zendesk_rate_limit_remaining",
		Help: "Number of requests remaining in the current Zendesk rate limit window",
	})

	zdRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zendesk_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to a low remaining budget",
	})
)

// throttlePause is the pause applied per request while the window budget is
// below the warning threshold.
const throttlePause = 1 * time.Second

// staleAfter is the age beyond which observed header state no longer gates
// requests. Zendesk windows reset every minute.
const staleAfter = time.Minute

// Tracker paces requests and monitors Zendesk rate limit headers.
// State is held in memory: nothing is shared across processes and the
// window only matters for the lifetime of one fetch.
type Tracker struct {
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu    sync.Mutex
	state State
}

// NewTracker creates a new rate limit tracker. A non-positive rps disables
// proactive pacing; header-driven throttling stays active.
func NewTracker(rps float64, logger zerolog.Logger) *Tracker {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Tracker{
		limiter: limiter,
		logger:  logger,
	}
}

// State returns a copy of the most recently observed rate limit state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// UpdateFromHeaders parses Zendesk rate limit headers and updates the
// tracked state. Responses without the headers are ignored.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	remainStr := headers.Get("X-Rate-Limit-Remaining")
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-Rate-Limit-Remaining header: %w", err)
	}

	limit := 0
	if limitStr := headers.Get("X-Rate-Limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil {
			return fmt.Errorf("parse X-Rate-Limit header: %w", err)
		}
	}

	t.mu.Lock()
	t.state = State{
		Limit:      limit,
		Remaining:  remain,
		LastUpdate: time.Now(),
	}
	t.state.UpdateHealth()
	state := t.state
	t.mu.Unlock()

	zdRateLimitRemaining.Set(float64(remain))

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", remain).
			Int("limit", limit).
			Msg("Zendesk rate limit low - requests will be throttled")
	} else {
		t.logger.Debug().
			Int("remaining", remain).
			Int("limit", limit).
			Bool("is_healthy", state.IsHealthy).
			Msg("Zendesk rate limit state updated")
	}

	return nil
}

// Wait blocks until the next request may be sent. It applies the proactive
// pacing limiter first, then an extra pause while the observed window
// budget is below the warning threshold.
func (t *Tracker) Wait(ctx context.Context) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("limiter wait: %w", err)
		}
	}

	t.mu.Lock()
	state := t.state
	t.mu.Unlock()

	if state.NeedsThrottling() && !state.IsStale(staleAfter) {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Zendesk rate limit low - throttling request")
		zdRateLimitThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(throttlePause):
		}
	}

	return nil
}
