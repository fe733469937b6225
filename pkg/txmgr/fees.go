package txmgr

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/trigg3rX/triggerx-chainio/pkg/logging"
	"github.com/trigg3rX/triggerx-chainio/pkg/metrics"
)

// FeeTracker keeps a rolling market fee estimate.
type FeeTracker struct {
	source   FeeSource
	interval time.Duration
	logger   logging.Logger
	metrics  *metrics.TxMetrics
	now      func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	current   FeeParams
	updatedAt time.Time

	cronMu sync.Mutex
	cron   *cron.Cron
}

func NewFeeTracker(source FeeSource, interval time.Duration, logger logging.Logger, m *metrics.TxMetrics) *FeeTracker {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if m == nil {
		m = metrics.NewTxMetrics(nil, "")
	}
	return &FeeTracker{
		source:   source,
		interval: interval,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Current returns the cached estimate, refreshing it once it is older than
// the refresh interval.
func (f *FeeTracker) Current(ctx context.Context) (FeeParams, error) {
	f.mu.RLock()
	fresh := f.current.Valid() && f.now().Sub(f.updatedAt) < f.interval
	cur := f.current.Clone()
	f.mu.RUnlock()
	if fresh {
		return cur, nil
	}
	return f.Refresh(ctx)
}

// Refresh queries the source. Concurrent callers share one request.
func (f *FeeTracker) Refresh(ctx context.Context) (FeeParams, error) {
	v, err, _ := f.group.Do("fees", func() (interface{}, error) {
		fees, err := f.source.SuggestFees(ctx)
		if err != nil {
			return FeeParams{}, err
		}
		if !fees.Valid() {
			return FeeParams{}, fmt.Errorf("%w: %s", ErrInvalidFees, fees)
		}
		f.mu.Lock()
		f.current = fees.Clone()
		f.updatedAt = f.now()
		f.mu.Unlock()
		f.metrics.GasTipCapGwei.Set(toGwei(fees.GasTipCap))
		f.metrics.GasFeeCapGwei.Set(toGwei(fees.GasFeeCap))
		return fees, nil
	})
	if err != nil {
		f.mu.RLock()
		stale := f.current.Clone()
		f.mu.RUnlock()
		if stale.Valid() {
			f.logger.Warn("Fee refresh failed, using stale estimate", "error", err)
			return stale, nil
		}
		return FeeParams{}, fmt.Errorf("failed to refresh fees: %w", err)
	}
	return v.(FeeParams).Clone(), nil
}

// Start schedules periodic refreshes.
func (f *FeeTracker) Start() error {
	f.cronMu.Lock()
	defer f.cronMu.Unlock()
	if f.cron != nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", f.interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.interval)
		defer cancel()
		if _, err := f.Refresh(ctx); err != nil {
			f.logger.Warn("Scheduled fee refresh failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule fee refresh: %w", err)
	}
	c.Start()
	f.cron = c
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (f *FeeTracker) Stop() {
	f.cronMu.Lock()
	c := f.cron
	f.cron = nil
	f.cronMu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// BumpFees returns fees for a replacement: each cap is raised by at least
// bumpPercent over prev (rounded up) and never below the market estimate.
func BumpFees(prev, market FeeParams, bumpPercent uint64) FeeParams {
	bump := func(p, m *big.Int) *big.Int {
		out := bumpValue(p, bumpPercent)
		if m != nil && m.Cmp(out) > 0 {
			out = new(big.Int).Set(m)
		}
		return out
	}
	next := FeeParams{
		GasTipCap: bump(prev.GasTipCap, market.GasTipCap),
		GasFeeCap: bump(prev.GasFeeCap, market.GasFeeCap),
	}
	if next.GasFeeCap.Cmp(next.GasTipCap) < 0 {
		next.GasFeeCap = new(big.Int).Set(next.GasTipCap)
	}
	return next
}

// bumpValue computes ceil(v * (100 + pct) / 100).
func bumpValue(v *big.Int, pct uint64) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	num := new(big.Int).Mul(v, new(big.Int).SetUint64(100+pct))
	q, r := new(big.Int).QuoRem(num, big.NewInt(100), new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func toGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.GWei)).Float64()
	return f
}
