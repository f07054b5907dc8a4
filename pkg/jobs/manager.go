// Package jobs manages asynchronous export jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/adapters/logger"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/exporter"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/pipeline"
	"github.com/nevaubi/snappy-cam-zoom-magic-sub001/pkg/ports"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusCancelled
}

// Job is a snapshot of an export job's state. The result metadata fields
// are populated once the job completes.
type Job struct {
	ID         string            `json:"id"`
	Status     Status            `json:"status"`
	Progress   pipeline.Progress `json:"progress"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt time.Time         `json:"finished_at,omitempty"`

	FrameCount  int    `json:"frame_count,omitempty"`
	DurationMs  int    `json:"duration_ms,omitempty"`
	OutputBytes int    `json:"output_bytes,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// Recorder persists job lifecycle events. Implementations must tolerate
// concurrent calls for different jobs.
type Recorder interface {
	RecordCreated(job Job) error
	RecordProgress(id string, p pipeline.Progress) error
	RecordFinished(job Job) error
}

// ErrJobNotFound is returned when a job ID is unknown.
var ErrJobNotFound = errors.New("job not found")

// ErrJobNotFinished is returned when a job's result is requested before the
// job reaches a terminal state.
var ErrJobNotFinished = errors.New("job not finished")

type jobState struct {
	job    Job
	cancel context.CancelFunc
	result *exporter.Result
}

// Manager runs export jobs one at a time and tracks their state.
// Exports are serialized because a single export already saturates the
// encoder; queued jobs wait their turn.
type Manager struct {
	stage    pipeline.Stage[exporter.Input, exporter.Result]
	logger   ports.Logger
	recorder Recorder

	mu   sync.RWMutex
	jobs map[string]*jobState

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewManager creates a job manager. The recorder may be nil.
func NewManager(stage pipeline.Stage[exporter.Input, exporter.Result], log ports.Logger, recorder Recorder) *Manager {
	if log == nil {
		log = logger.NewNoop()
	}
	return &Manager{
		stage:    stage,
		logger:   log.WithComponent("jobs"),
		recorder: recorder,
		jobs:     make(map[string]*jobState),
		sem:      make(chan struct{}, 1),
	}
}

// Submit enqueues an export and returns its job ID. The input's OnProgress
// callback, if set, still fires alongside the manager's own tracking.
func (m *Manager) Submit(input exporter.Input) (string, error) {
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())

	state := &jobState{
		job: Job{
			ID:        id,
			Status:    StatusQueued,
			CreatedAt: time.Now(),
		},
		cancel: cancel,
	}

	m.mu.Lock()
	m.jobs[id] = state
	m.mu.Unlock()

	if m.recorder != nil {
		if err := m.recorder.RecordCreated(state.job); err != nil {
			m.logger.Warn("failed to record job %s: %v", id, err)
		}
	}

	userProgress := input.OnProgress
	input.OnProgress = func(p pipeline.Progress) {
		m.updateProgress(id, p)
		if userProgress != nil {
			userProgress(p)
		}
	}

	m.wg.Add(1)
	go m.run(ctx, id, input)

	return id, nil
}

func (m *Manager) run(ctx context.Context, id string, input exporter.Input) {
	defer m.wg.Done()

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		// The exporter releases the input's resources on every exit path,
		// but it never ran for this job.
		if input.Source != nil {
			input.Source.Close()
		}
		m.finish(id, exporter.Result{}, exporter.ErrCancelled)
		return
	}

	m.setStatus(id, StatusRunning)
	m.logger.Info("job %s started", id)

	result, err := m.stage.Execute(ctx, input)
	m.finish(id, result, err)
}

func (m *Manager) finish(id string, result exporter.Result, err error) {
	m.mu.Lock()
	state, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	state.job.FinishedAt = time.Now()
	switch {
	case err == nil:
		state.job.Status = StatusComplete
		state.job.FrameCount = result.FrameCount
		state.job.DurationMs = result.DurationMs
		state.job.OutputBytes = len(result.Data)
		state.job.MimeType = result.MimeType
		state.result = &result
	case errors.Is(err, exporter.ErrCancelled):
		state.job.Status = StatusCancelled
	default:
		state.job.Status = StatusError
		state.job.Error = err.Error()
	}
	snapshot := state.job
	m.mu.Unlock()

	switch snapshot.Status {
	case StatusComplete:
		m.logger.Info("job %s finished: %d frames, %d bytes", id, result.FrameCount, len(result.Data))
	case StatusCancelled:
		m.logger.Info("job %s cancelled", id)
	default:
		m.logger.Error("job %s failed: %v", id, err)
	}

	if m.recorder != nil {
		if rerr := m.recorder.RecordFinished(snapshot); rerr != nil {
			m.logger.Warn("failed to record job %s: %v", id, rerr)
		}
	}
}

func (m *Manager) setStatus(id string, status Status) {
	m.mu.Lock()
	if state, ok := m.jobs[id]; ok {
		state.job.Status = status
	}
	m.mu.Unlock()
}

func (m *Manager) updateProgress(id string, p pipeline.Progress) {
	m.mu.Lock()
	if state, ok := m.jobs[id]; ok {
		state.job.Progress = p
	}
	m.mu.Unlock()

	if m.recorder != nil {
		if err := m.recorder.RecordProgress(id, p); err != nil {
			m.logger.Warn("failed to record progress for job %s: %v", id, err)
		}
	}
}

// Get returns a snapshot of a job's state.
func (m *Manager) Get(id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return state.job, nil
}

// Result returns the encoded output of a completed job.
func (m *Manager) Result(id string) (exporter.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.jobs[id]
	if !ok {
		return exporter.Result{}, ErrJobNotFound
	}
	if !state.job.Status.Terminal() {
		return exporter.Result{}, ErrJobNotFinished
	}
	if state.result == nil {
		return exporter.Result{}, fmt.Errorf("job %s has no result: %s", id, state.job.Status)
	}
	return *state.result, nil
}

// Cancel requests cancellation of a job. Cancelling a terminal job is a no-op.
func (m *Manager) Cancel(id string) error {
	m.mu.RLock()
	state, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}
	state.cancel()
	return nil
}

// List returns snapshots of all jobs, newest first.
func (m *Manager) List() []Job {
	m.mu.RLock()
	out := make([]Job, 0, len(m.jobs))
	for _, state := range m.jobs {
		out = append(out, state.job)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Wait blocks until all submitted jobs reach a terminal state.
// Intended for graceful shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}
