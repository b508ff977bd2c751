// Package worker provides the cooperative task scaffolding shared by
// every pull-worker cohort: a main claim/process loop, a stuck-row
// recovery sweeper, and a metrics heartbeat, synchronized only through
// context cancellation — no shared mutable state between the three
// beyond a mutex-guarded running total.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/salescontrol/pipeline/internal/datastore/queue"
	"github.com/salescontrol/pipeline/internal/logging"
	"github.com/salescontrol/pipeline/internal/observability/metrics"
)

// Runner drives one cohort's three cooperative tasks. Cohort-specific
// behavior is injected as plain functions rather than an interface, so
// a worker package only needs to supply ProcessBatch/RecoverStuck and
// never imports this package's types.
type Runner struct {
	Cohort            string
	PollInterval      time.Duration
	RecoveryInterval  time.Duration
	HeartbeatInterval time.Duration

	// ProcessBatch claims and fully processes one batch, returning how
	// many items were claimed (0 means "no work, back off").
	ProcessBatch func(ctx context.Context) (claimed int, err error)
	// RecoverStuck resets abandoned PROCESSING rows to their pre-claim
	// state and returns how many were reset.
	RecoverStuck func(ctx context.Context) (recovered int64, err error)

	Metrics *metrics.Recorder
	Clock   queue.Clock

	mu             sync.Mutex
	totalProcessed int64
	totalRecovered int64
}

// Run blocks until ctx is cancelled, then waits for the sweeper and
// heartbeat tasks to observe the cancellation and return. The main
// loop itself returns directly on cancellation; it never exits
// mid-item because ProcessBatch owns its own item-level commit
// boundaries.
func (r *Runner) Run(ctx context.Context) {
	if r.Clock == nil {
		r.Clock = queue.RealClock{}
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); r.recoveryLoop(ctx) }()
	go func() { defer wg.Done(); r.heartbeatLoop(ctx) }()

	r.mainLoop(ctx)
	wg.Wait()
}

func (r *Runner) log() interface {
	Info(string, ...any)
	Warn(string, ...any)
	Error(string, ...any)
} {
	return logging.ForService(r.Cohort)
}

func (r *Runner) mainLoop(ctx context.Context) {
	log := r.log()
	log.Info("worker main loop starting", "poll_interval", r.PollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Info("worker main loop stopping")
			return
		default:
		}

		claimed, err := r.ProcessBatch(ctx)
		if err != nil {
			log.Error("batch processing failed", "error", err)
			if !r.sleep(ctx, 5*time.Second) {
				return
			}
			continue
		}

		r.mu.Lock()
		r.totalProcessed += int64(claimed)
		r.mu.Unlock()

		if claimed == 0 {
			if !r.sleep(ctx, r.PollInterval) {
				return
			}
		}
	}
}

func (r *Runner) recoveryLoop(ctx context.Context) {
	log := r.log()
	for {
		if !r.sleep(ctx, r.RecoveryInterval) {
			return
		}
		recovered, err := r.RecoverStuck(ctx)
		if err != nil {
			log.Error("recovery sweep failed", "error", err)
			continue
		}
		if recovered > 0 {
			log.Warn("recovery sweep requeued abandoned items", "count", recovered)
			if r.Metrics != nil {
				r.Metrics.IncRecovered(r.Cohort, int(recovered))
			}
		}
		r.mu.Lock()
		r.totalRecovered += recovered
		r.mu.Unlock()
	}
}

func (r *Runner) heartbeatLoop(ctx context.Context) {
	log := r.log()
	for {
		if !r.sleep(ctx, r.HeartbeatInterval) {
			return
		}
		r.mu.Lock()
		processed, recovered := r.totalProcessed, r.totalRecovered
		r.mu.Unlock()
		log.Info("worker heartbeat", "total_processed", processed, "total_recovered", recovered)
	}
}

// sleep waits for d or ctx cancellation, reporting which happened.
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-r.Clock.After(d):
		return true
	}
}
