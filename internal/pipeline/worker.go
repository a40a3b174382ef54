package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/WaterCountry/CodeGra.de/internal/document"
	"github.com/WaterCountry/CodeGra.de/internal/plagiarism"
)

// Worker renders a single report job.
type Worker struct {
	ids   *document.IDAllocator
	stats *RenderStats
	log   *zap.Logger
}

func NewWorker(ids *document.IDAllocator, stats *RenderStats, log *zap.Logger) *Worker {
	return &Worker{
		ids:   ids,
		stats: stats,
		log:   log,
	}
}

// Process builds and renders the report of job. Rendering is not
// interruptible; ctx is only checked before work starts, and a job taken
// after ctx ended fails with ErrStopped.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With(zap.String("job_id", job.ID), zap.String("backend", job.Backend))

	if err := ctx.Err(); err != nil {
		log.Warn("job dropped before start", zap.Error(err))
		job.Fail("queued", fmt.Errorf("%w: %v", ErrStopped, err))
		return
	}

	// Phase 1: Build
	job.SetStatus(StatusBuilding, "building")
	start := time.Now()
	if _, err := document.Lookup(job.Backend); err != nil {
		log.Error("unknown backend", zap.Error(err))
		job.Fail("building", err)
		return
	}

	matches, opts := job.Input()
	builder := plagiarism.NewBuilder(job.Backend, w.ids)
	root, err := builder.Build(matches, opts)
	if err != nil {
		log.Error("build failed", zap.Error(err))
		job.Fail("building", err)
		return
	}
	log.Debug("built document", zap.Int("matches", len(matches)), zap.Int("nodes", root.Len()))

	// Phase 2: Render
	job.SetStatus(StatusRendering, "rendering")
	out, err := document.Render(job.Backend, root)
	if err != nil {
		log.Error("render failed", zap.Error(err))
		job.Fail("rendering", err)
		return
	}

	elapsed := time.Since(start)
	w.stats.Record(elapsed)
	job.Complete(out)
	log.Info("render complete",
		zap.Int("bytes", len(out)),
		zap.Duration("duration", elapsed),
	)
}
