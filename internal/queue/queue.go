// Package queue batches chart creation so a large definition set never
// monopolizes the host: definitions are processed in fixed-size batches
// with a short yield between batches, and one member's failure never
// aborts its batch.
package queue

import (
	"context"
	"sync"
	"time"

	"tinychart/internal/logger"
	"tinychart/internal/models"
)

// CreateFunc creates one chart instance. Supplied by the registry.
type CreateFunc func(ctx context.Context, def models.ChartDefinition) error

// Result is the outcome of one processing run.
type Result struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Status is a point-in-time view of the queue for observability.
type Status struct {
	QueueLength int           `json:"queueLength"`
	BatchSize   int           `json:"batchSize"`
	BatchDelay  time.Duration `json:"batchDelay"`
	Processed   int           `json:"processed"`
	Failed      int           `json:"failed"`
	SuccessRate float64       `json:"successRate"`
	Paused      bool          `json:"paused"`
	Running     bool          `json:"running"`
}

// Queue processes chart definitions in batches.
type Queue struct {
	batchSize  int
	batchDelay time.Duration
	log        *logger.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	pending   []models.ChartDefinition
	paused    bool
	stopped   bool
	running   bool
	processed int
	failed    int
}

// New creates a queue. batchSize defaults to 10, batchDelay to 16ms.
func New(batchSize int, batchDelay time.Duration, log *logger.Logger) *Queue {
	if batchSize <= 0 {
		batchSize = 10
	}
	if batchDelay < 0 {
		batchDelay = 16 * time.Millisecond
	}
	if log == nil {
		log = logger.GetGlobalLogger().WithComponent("queue")
	}
	q := &Queue{
		batchSize:  batchSize,
		batchDelay: batchDelay,
		log:        log,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// ProcessBatches runs defs through create in batches. Re-submitting an id
// within one call replaces the earlier definition. Returns the counts
// accumulated when the run finishes or is stopped.
func (q *Queue) ProcessBatches(ctx context.Context, defs []models.ChartDefinition, create CreateFunc) Result {
	deduped := dedupe(defs)

	q.mu.Lock()
	q.pending = deduped
	q.stopped = false
	q.running = true
	q.processed = 0
	q.failed = 0
	q.mu.Unlock()

	q.log.Infof("processing %d definitions in batches of %d", len(deduped), q.batchSize)

	for {
		q.mu.Lock()
		// A pause takes effect between batches, never mid-batch
		for q.paused && !q.stopped {
			q.cond.Wait()
		}
		if q.stopped || len(q.pending) == 0 {
			q.pending = nil
			q.running = false
			result := Result{Processed: q.processed, Failed: q.failed}
			q.mu.Unlock()
			return result
		}
		n := q.batchSize
		if n > len(q.pending) {
			n = len(q.pending)
		}
		batch := q.pending[:n]
		q.pending = q.pending[n:]
		remaining := len(q.pending)
		q.mu.Unlock()

		ok, failed := q.runBatch(ctx, batch, create)

		q.mu.Lock()
		q.processed += ok
		q.failed += failed
		q.mu.Unlock()

		if remaining > 0 {
			// Yield so the host gets a slice of time between batches
			time.Sleep(q.batchDelay)
		}
	}
}

// runBatch creates every member of one batch concurrently and waits for
// all outcomes. A failed creation is recorded, not propagated.
func (q *Queue) runBatch(ctx context.Context, batch []models.ChartDefinition, create CreateFunc) (ok, failed int) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, def := range batch {
		wg.Add(1)
		go func(d models.ChartDefinition) {
			defer wg.Done()
			if err := create(ctx, d); err != nil {
				q.log.Warnf("creation of %s failed: %v", d.ID, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}(def)
	}
	wg.Wait()
	return ok, failed
}

// Pause halts batch advancement after the current batch completes.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
	q.log.Info("queue paused")
}

// Resume continues processing from the remaining queue.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.cond.Broadcast()
	q.log.Info("queue resumed")
}

// Stop discards the remaining queue. Counts accumulated so far are
// returned by the in-flight ProcessBatches call. In-flight creations of
// the current batch are not aborted.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.paused = false
	q.mu.Unlock()
	q.cond.Broadcast()
	q.log.Info("queue stopped")
}

// GetStatus reports the queue's current state.
func (q *Queue) GetStatus() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := q.processed + q.failed
	rate := 0.0
	if total > 0 {
		rate = float64(q.processed) / float64(total)
	}
	return Status{
		QueueLength: len(q.pending),
		BatchSize:   q.batchSize,
		BatchDelay:  q.batchDelay,
		Processed:   q.processed,
		Failed:      q.failed,
		SuccessRate: rate,
		Paused:      q.paused,
		Running:     q.running,
	}
}

// dedupe keeps the last definition per id, preserving first-seen order.
func dedupe(defs []models.ChartDefinition) []models.ChartDefinition {
	index := make(map[string]int)
	out := make([]models.ChartDefinition, 0, len(defs))
	for _, def := range defs {
		d := def.Clone()
		if i, ok := index[d.ID]; ok {
			out[i] = d
			continue
		}
		index[d.ID] = len(out)
		out = append(out, d)
	}
	return out
}
