package moderation

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wardenbot/internal/ledger"
	"github.com/iamwavecut/wardenbot/internal/observability"
)

// Sweeper periodically purges expired warning records and persists the
// ledger snapshot, keeping the on-disk copy current even on idle ticks.
type Sweeper struct {
	ledger   *ledger.Ledger
	interval time.Duration

	startStopMutex sync.Mutex
	workerCancel   context.CancelFunc
	workerWG       sync.WaitGroup
	started        bool
}

func NewSweeper(warnLedger *ledger.Ledger, interval time.Duration) *Sweeper {
	return &Sweeper{
		ledger:   warnLedger,
		interval: interval,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.startStopMutex.Lock()
	defer s.startStopMutex.Unlock()
	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.workerCancel = cancel

	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.sweep(runCtx)
			}
		}
	}()

	s.started = true
	return nil
}

func (s *Sweeper) Stop(ctx context.Context) error {
	s.startStopMutex.Lock()
	if !s.started {
		s.startStopMutex.Unlock()
		return nil
	}
	s.started = false
	cancel := s.workerCancel
	s.startStopMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.workerWG.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// sweep is one tick: purge, then persist unconditionally. A persistence
// failure is logged and retried on the next tick.
func (s *Sweeper) sweep(ctx context.Context) {
	removed := s.ledger.PurgeExpired(time.Now())
	if removed > 0 {
		log.WithField("removed", removed).Info("purged expired warning records")
		observability.RecordPurged(removed)
	}
	if err := s.ledger.Persist(ctx); err != nil {
		observability.RecordPersistenceFailure()
		log.WithField("error", err.Error()).Error("cant persist ledger snapshot")
	}
}
