package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hearthside/companion/internal/domain"
)

const recomputeTimeout = 30 * time.Second

// RecomputeService runs twin and risk evaluation off the conversational path.
// Turns enqueue; a single worker drains. At most one job is attempted per
// enqueue, and a full queue drops rather than blocking a reply.
type RecomputeService struct {
	userStore domain.UserStore
	twin      *TwinService
	guard     *GuardService
	logger    *zap.Logger

	jobs   chan uuid.UUID
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewRecomputeService(us domain.UserStore, twin *TwinService, guard *GuardService, queueSize int, logger *zap.Logger) *RecomputeService {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &RecomputeService{
		userStore: us,
		twin:      twin,
		guard:     guard,
		logger:    logger,
		jobs:      make(chan uuid.UUID, queueSize),
		stopCh:    make(chan struct{}),
	}
}

func (s *RecomputeService) Start() {
	s.wg.Add(1)
	go s.run()
	s.logger.Info("recompute worker started", zap.Int("queue_size", cap(s.jobs)))
}

func (s *RecomputeService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("recompute worker stopped")
}

// Enqueue schedules a recompute for the user. Non-blocking; returns false when
// the queue is full and the job was dropped.
func (s *RecomputeService) Enqueue(userID uuid.UUID) bool {
	select {
	case s.jobs <- userID:
		return true
	default:
		return false
	}
}

func (s *RecomputeService) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case userID := <-s.jobs:
			s.process(userID)
		}
	}
}

// process runs one evaluation pass. Failures are logged and dropped; the next
// turn enqueues a fresh job anyway.
func (s *RecomputeService) process(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
	defer cancel()

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("recompute: load user failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}

	state, err := s.twin.Evaluate(ctx, user)
	if err != nil {
		s.logger.Warn("recompute: twin evaluation failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}

	assessment, err := s.guard.Check(ctx, user)
	if err != nil {
		s.logger.Warn("recompute: risk check failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}

	s.logger.Info("recompute finished",
		zap.String("user_id", userID.String()),
		zap.String("twin_status", string(state.Status)),
		zap.Int("twin_score", state.Score),
		zap.String("risk_level", string(assessment.Level)),
	)
}
