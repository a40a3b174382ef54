package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WaterCountry/CodeGra.de/internal/config"
	"github.com/WaterCountry/CodeGra.de/internal/document"
	"github.com/WaterCountry/CodeGra.de/internal/plagiarism"
)

// ErrStopped is returned by Submit once the orchestrator has been stopped.
var ErrStopped = errors.New("pipeline stopped")

// QueueFullError is returned by Submit when no queue slot is free.
type QueueFullError struct {
	Size int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("job queue is full (%d)", e.Size)
}

// Orchestrator runs render jobs on a fixed pool of workers.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	stats *RenderStats
	ids   document.IDAllocator
	log   *zap.Logger
	cfg   config.Config

	mu      sync.Mutex
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch the workers.
func NewOrchestrator(cfg config.Config, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		stats: NewRenderStats(cfg.StatsWindow),
		log:   log,
		cfg:   cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(&o.ids, o.stats, o.log.With(zap.Int("worker", i)))
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(cleanupInterval(o.cfg.JobTTL))
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl > 0 && ttl < 5*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}

// Stop shuts down the pipeline. Jobs still queued fail with ErrStopped.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	for job := range o.queue {
		job.Fail("queued", ErrStopped)
	}
}

// Submit queues a job for rendering.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return ErrStopped
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		err := &QueueFullError{Size: o.cfg.MaxQueueSize}
		job.Fail("queue_full", err)
		return err
	}
}

// Render submits a job and waits for its artifact. If ctx ends first the
// render keeps running and its job stays available under the returned id.
func (o *Orchestrator) Render(ctx context.Context, backend string, matches []plagiarism.Match, opts plagiarism.Options) (*Job, []byte, error) {
	job := NewJob(backend, matches, opts)
	if err := o.Submit(job); err != nil {
		return job, nil, err
	}
	out, err := job.Wait(ctx)
	return job, out, err
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns render latency statistics for the configured window.
func (o *Orchestrator) Stats() StatsSnapshot {
	return o.stats.Snapshot()
}
