package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WaterCountry/CodeGra.de/internal/plagiarism"
)

// JobStatus represents the state of a render job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusBuilding  JobStatus = "building"
	StatusRendering JobStatus = "rendering"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Finished reports whether no further transitions will happen.
func (s JobStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks the state of a single report render. Its result is published
// once; waiters that give up do not stop the render.
type Job struct {
	mu sync.Mutex

	ID      string `json:"job_id"`
	Backend string `json:"backend"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	matches  []plagiarism.Match
	opts     plagiarism.Options
	artifact []byte
	err      error
	errors   []string
	done     chan struct{}
}

// NewJob creates a queued job for rendering matches with backend.
func NewJob(backend string, matches []plagiarism.Match, opts plagiarism.Options) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Backend:   backend,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		matches:   matches,
		opts:      opts,
		done:      make(chan struct{}),
	}
}

// ErrJobFailed is returned by Wait for a failed job that recorded no error
// value of its own.
var ErrJobFailed = errors.New("render job failed")

// doneLocked returns the completion channel, creating it on first use.
func (j *Job) doneLocked() chan struct{} {
	if j.done == nil {
		j.done = make(chan struct{})
	}
	return j.done
}

// SetStatus updates job status atomically. Finished jobs keep their state.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Finished() {
		return
	}
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
	if status.Finished() {
		close(j.doneLocked())
	}
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// Input returns the matches and options the job renders.
func (j *Job) Input() ([]plagiarism.Match, plagiarism.Options) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.matches, j.opts
}

// Complete stores the artifact and marks the job completed.
func (j *Job) Complete(artifact []byte) {
	j.mu.Lock()
	if j.Status.Finished() {
		j.mu.Unlock()
		return
	}
	j.artifact = artifact
	j.matches = nil
	j.mu.Unlock()
	j.SetStatus(StatusCompleted, "done")
}

// Fail records err and marks the job failed in phase.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	if j.Status.Finished() {
		j.mu.Unlock()
		return
	}
	j.err = err
	j.errors = append(j.errors, err.Error())
	j.matches = nil
	j.mu.Unlock()
	j.SetStatus(StatusFailed, phase)
}

// Done returns a channel closed when the job has finished.
func (j *Job) Done() <-chan struct{} {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.doneLocked()
}

// Artifact returns the rendered output of a completed job.
func (j *Job) Artifact() ([]byte, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.artifact, j.Status == StatusCompleted
}

// Err returns the error a failed job ended with.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusFailed {
		return nil
	}
	if j.err == nil {
		return ErrJobFailed
	}
	return j.err
}

// Wait blocks until the job finishes or ctx is done. Giving up only stops
// waiting: the render carries on and its result stays on the job.
func (j *Job) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-j.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := j.Err(); err != nil {
		return nil, err
	}
	artifact, _ := j.Artifact()
	return artifact, nil
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID            string    `json:"job_id"`
	Backend       string    `json:"backend"`
	Status        JobStatus `json:"status"`
	Phase         string    `json:"phase"`
	ArtifactBytes int       `json:"artifact_bytes"`
	Errors        []string  `json:"errors"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	return JobSnapshot{
		ID:            j.ID,
		Backend:       j.Backend,
		Status:        j.Status,
		Phase:         j.Phase,
		ArtifactBytes: len(j.artifact),
		Errors:        errs,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of stored jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not changed within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Finished() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}
