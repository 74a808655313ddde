package ingest

import (
	"context"
	"fmt"
	"sync"

	"manual-chatbot-be/internal/apperror"
	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/pkg/document"
	"manual-chatbot-be/pkg/session"
	"manual-chatbot-be/pkg/vectorindex"
)

const logModule = "Ingest"

type Config struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

func DefaultConfig() Config {
	return Config{ChunkSize: 1000, ChunkOverlap: 200, BatchSize: 50}
}

// Runner starts ingestion runs and keeps at most one in flight per session.
type Runner struct {
	sessions   *session.Registry
	extractors *document.Registry
	store      vectorindex.Store
	cfg        Config
	logger     logger.ILogger

	onReady func(sessionID string)

	mu       sync.Mutex
	inflight map[string]*Task
	wg       sync.WaitGroup
}

func NewRunner(sessions *session.Registry, extractors *document.Registry, store vectorindex.Store, cfg Config, log logger.ILogger) *Runner {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	return &Runner{
		sessions:   sessions,
		extractors: extractors,
		store:      store,
		cfg:        cfg,
		logger:     log,
		inflight:   make(map[string]*Task),
	}
}

// OnReady registers a hook called after a run has written its index and just
// before the session turns ready. Must be set before the first Start.
func (r *Runner) OnReady(fn func(sessionID string)) {
	r.onReady = fn
}

// Start validates the session and launches the pipeline in the background.
// The run is detached from ctx cancellation.
func (r *Runner) Start(ctx context.Context, sessionID string) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions.Get(sessionID)
	if !ok {
		return nil, apperror.NotFound("session %s not found", sessionID)
	}
	if _, busy := r.inflight[sessionID]; busy || s.Progress.Status == session.StatusProcessing {
		return nil, apperror.Conflict("session %s is already processing", sessionID)
	}
	if len(s.UploadedFiles) == 0 {
		err := apperror.NoInput("no documents uploaded")
		r.sessions.UpdateProgress(sessionID, session.Patch{}.
			WithStatus(session.StatusError).
			WithMessage("Processing failed").
			WithError(err.Error()))
		return nil, err
	}

	s, err := r.sessions.BeginRun(sessionID)
	if err != nil {
		return nil, err
	}

	task := newTask(sessionID, s.Progress.Run)
	r.inflight[sessionID] = task
	r.wg.Add(1)

	r.logger.Info(logModule, "Processing started", map[string]interface{}{
		"session_id": sessionID,
		"run":        task.Run,
		"files":      len(s.UploadedFiles),
	})

	go r.run(context.WithoutCancel(ctx), s, task)
	return task, nil
}

// InFlight reports whether a run for the session is still going.
func (r *Runner) InFlight(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[sessionID]
	return ok
}

// Wait blocks until every started run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, s session.Session, task *Task) {
	var err error
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("ingestion panicked: %v", rec)
		}

		if err != nil {
			r.logger.Error(logModule, "Processing failed", map[string]interface{}{
				"session_id": s.ID,
				"run":        task.Run,
				"error":      err.Error(),
			})
			r.sessions.UpdateProgress(s.ID, session.Patch{}.
				WithStatus(session.StatusError).
				WithMessage("Processing failed").
				WithError(err.Error()))
		}

		r.mu.Lock()
		delete(r.inflight, s.ID)
		r.mu.Unlock()

		task.finish(err)
		r.wg.Done()
	}()

	err = r.pipeline(ctx, s)
}
