package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
)

const rebuildTimeout = 2 * time.Minute

// BaselineRebuilder refreshes every user's routine baseline on a fixed
// interval, normally nightly. One failed user never blocks the rest.
type BaselineRebuilder struct {
	userStore domain.UserStore
	baselines *BaselineService
	interval  time.Duration
	logger    *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewBaselineRebuilder(us domain.UserStore, baselines *BaselineService, interval time.Duration, logger *zap.Logger) *BaselineRebuilder {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &BaselineRebuilder{
		userStore: us,
		baselines: baselines,
		interval:  interval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

func (r *BaselineRebuilder) Start() {
	r.wg.Add(1)
	go r.run()
	r.logger.Info("baseline rebuilder started", zap.Duration("interval", r.interval))
}

func (r *BaselineRebuilder) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.logger.Info("baseline rebuilder stopped")
}

func (r *BaselineRebuilder) run() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.RebuildAll()
		}
	}
}

// RebuildAll runs one full pass over every user.
func (r *BaselineRebuilder) RebuildAll() {
	ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
	defer cancel()

	ids, err := r.userStore.ListIDs(ctx)
	if err != nil {
		r.logger.Error("rebuild pass: list users failed", zap.Error(err))
		return
	}

	rebuilt := 0
	for _, id := range ids {
		if err := r.baselines.Rebuild(ctx, id); err != nil {
			r.logger.Warn("rebuild failed", zap.String("user_id", id.String()), zap.Error(err))
			continue
		}
		rebuilt++
	}
	r.logger.Info("rebuild pass finished", zap.Int("users", len(ids)), zap.Int("rebuilt", rebuilt))
}
