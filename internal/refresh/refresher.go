// Package refresh keeps the latest campaign metrics and insights in memory,
// re-fetching them from a record source on a fixed interval.
//
// Every refresh is issued a sequence number. A result is published only if
// no newer refresh has been issued in the meantime and the refresher has not
// been stopped, so a slow response can never overwrite a fresher one.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/radiusdt/adintelli/internal/analytics"
	"github.com/radiusdt/adintelli/internal/metrics"
	"github.com/radiusdt/adintelli/internal/models"
	"github.com/radiusdt/adintelli/internal/storage"
)

var (
	// ErrStale is returned by Refresh when a newer refresh was issued while
	// this one was in flight. Its result is dropped.
	ErrStale = errors.New("refresh superseded by a newer one")
	// ErrStopped is returned by Refresh when the refresher was stopped while
	// the refresh was in flight.
	ErrStopped = errors.New("refresher stopped")
)

// Snapshot is one published state. It is never mutated after publication;
// callers must not modify the slices.
type Snapshot struct {
	Seq         uint64
	RefreshedAt time.Time
	Records     []models.AdRecord
	Campaigns   []models.CampaignMetric
	Insights    []analytics.Insight
	// Err is the last refresh failure. The data above is then from the last
	// successful refresh.
	Err string
}

// Loaded reports whether any refresh has succeeded yet.
func (s *Snapshot) Loaded() bool {
	return !s.RefreshedAt.IsZero()
}

// Refresher periodically rebuilds the insight snapshot.
type Refresher struct {
	source   storage.RecordSource
	logger   *zap.Logger
	metrics  *metrics.Metrics
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time

	seq atomic.Uint64

	mu      sync.RWMutex
	current *Snapshot
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a refresher. m may be nil.
func New(source storage.RecordSource, logger *zap.Logger, m *metrics.Metrics, interval, timeout time.Duration) *Refresher {
	return &Refresher{
		source:   source,
		logger:   logger,
		metrics:  m,
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		current: &Snapshot{
			Insights: []analytics.Insight{},
		},
	}
}

// Start runs one refresh immediately and then one per interval until Stop
// is called or ctx is done. Calling Start on a running refresher is a no-op.
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.stopped = false
	done := r.done
	r.mu.Unlock()

	go r.run(ctx, done)

	r.logger.Info("refresher started",
		zap.Duration("interval", r.interval),
		zap.Duration("timeout", r.timeout),
	)
}

func (r *Refresher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	// Failures are recorded on the snapshot and logged inside Refresh.
	_ = r.Refresh(ctx)
}

// Stop cancels the loop, waits for it to exit and refuses every result that
// is still in flight.
func (r *Refresher) Stop() {
	r.mu.Lock()
	r.stopped = true
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Info("refresher stopped")
}

// Refresh fetches records once and offers the result for publication. It
// returns nil when the result was published, ErrStale or ErrStopped when it
// was dropped, and the fetch error otherwise.
func (r *Refresher) Refresh(ctx context.Context) error {
	seq := r.seq.Add(1)
	start := r.now()

	records, err := r.source.ListRecords(ctx)
	latency := r.now().Sub(start)

	if err != nil {
		class := storage.Classify(err)
		if r.metrics != nil {
			r.metrics.RecordRefresh(class, latency)
		}
		if offerErr := r.offer(seq, func(prev *Snapshot) *Snapshot {
			next := *prev
			next.Seq = seq
			next.Err = err.Error()
			return &next
		}); offerErr != nil {
			return offerErr
		}
		r.logger.Warn("refresh failed, keeping previous data",
			zap.Uint64("seq", seq),
			zap.String("class", class),
			zap.Error(err),
		)
		return fmt.Errorf("failed to list records: %w", err)
	}

	campaigns := analytics.AggregateCampaigns(records)
	insights := analytics.GenerateInsights(campaigns)
	if r.metrics != nil {
		r.metrics.RecordRefresh("ok", latency)
	}

	refreshedAt := r.now()
	if err := r.offer(seq, func(*Snapshot) *Snapshot {
		return &Snapshot{
			Seq:         seq,
			RefreshedAt: refreshedAt,
			Records:     records,
			Campaigns:   campaigns,
			Insights:    insights,
		}
	}); err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.UpdateSnapshot(refreshedAt, len(campaigns), countByKind(insights))
	}
	r.logger.Debug("refresh published",
		zap.Uint64("seq", seq),
		zap.Int("records", len(records)),
		zap.Int("campaigns", len(campaigns)),
		zap.Int("insights", len(insights)),
		zap.Duration("latency", latency),
	)
	return nil
}

// offer publishes build(current) if seq is still the latest issued and the
// refresher is running.
func (r *Refresher) offer(seq uint64, build func(prev *Snapshot) *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reason error
	switch {
	case r.stopped:
		reason = ErrStopped
	case seq != r.seq.Load():
		reason = ErrStale
	}
	if reason != nil {
		if r.metrics != nil {
			if reason == ErrStopped {
				r.metrics.RecordDiscard("stopped")
			} else {
				r.metrics.RecordDiscard("stale")
			}
		}
		r.logger.Debug("refresh result discarded", zap.Uint64("seq", seq), zap.Error(reason))
		return reason
	}

	r.current = build(r.current)
	return nil
}

// Snapshot returns the latest published state.
func (r *Refresher) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func countByKind(insights []analytics.Insight) map[string]int {
	counts := make(map[string]int, len(analytics.Kinds))
	for _, k := range analytics.Kinds {
		counts[string(k)] = 0
	}
	for _, in := range insights {
		counts[string(in.Kind())]++
	}
	return counts
}
