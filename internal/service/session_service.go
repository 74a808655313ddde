package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"manual-chatbot-be/internal/apperror"
	"manual-chatbot-be/internal/dto"
	"manual-chatbot-be/internal/mapper"
	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/pkg/document"
	"manual-chatbot-be/pkg/ingest"
	"manual-chatbot-be/pkg/rag/engine"
	"manual-chatbot-be/pkg/session"
	"manual-chatbot-be/pkg/vectorindex"
)

const sessionLogModule = "SessionService"

type ISessionService interface {
	Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	Status(ctx context.Context, id string) (*dto.SessionResponse, error)
	List(ctx context.Context) ([]*dto.SessionResponse, error)
	Delete(ctx context.Context, id string) error
	Upload(ctx context.Context, id string, filename string, size int64, src io.Reader) (*dto.UploadResponse, error)
	Process(ctx context.Context, id string) (*dto.ProcessResponse, *ingest.Task, error)
	Sweep(ctx context.Context) []string
	RunSweeper(ctx context.Context, interval time.Duration)
}

type SessionServiceConfig struct {
	MaxUploadBytes int64
	MaxAge         time.Duration
}

type sessionService struct {
	sessions   *session.Registry
	extractors *document.Registry
	runner     *ingest.Runner
	engines    *engine.Cache
	store      vectorindex.Store
	mapper     *mapper.SessionMapper
	cfg        SessionServiceConfig
	logger     logger.ILogger
}

func NewSessionService(
	sessions *session.Registry,
	extractors *document.Registry,
	runner *ingest.Runner,
	engines *engine.Cache,
	store vectorindex.Store,
	cfg SessionServiceConfig,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		sessions:   sessions,
		extractors: extractors,
		runner:     runner,
		engines:    engines,
		store:      store,
		mapper:     mapper.NewSessionMapper(),
		cfg:        cfg,
		logger:     log,
	}
}

func (c *sessionService) Create(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	label := strings.TrimSpace(req.VehicleName)
	if label == "" {
		label = "Vehicle"
	}
	s, err := c.sessions.Create(label)
	if err != nil {
		return nil, err
	}
	return c.mapper.ToResponse(s), nil
}

func (c *sessionService) Status(ctx context.Context, id string) (*dto.SessionResponse, error) {
	s, ok := c.sessions.Get(id)
	if !ok {
		return nil, apperror.NotFound("session %s not found", id)
	}
	return c.mapper.ToResponse(s), nil
}

func (c *sessionService) List(ctx context.Context) ([]*dto.SessionResponse, error) {
	all := c.sessions.List()
	res := make([]*dto.SessionResponse, 0, len(all))
	for _, s := range all {
		res = append(res, c.mapper.ToResponse(s))
	}
	return res, nil
}

// Delete removes the registry entry first so an in-flight run stops writing,
// then forgets the engine and drops whatever the index backend still holds.
func (c *sessionService) Delete(ctx context.Context, id string) error {
	s, ok := c.sessions.Get(id)
	if !ok {
		return apperror.NotFound("session %s not found", id)
	}
	if !c.sessions.Delete(id) {
		return apperror.NotFound("session %s not found", id)
	}
	c.release(ctx, vectorindex.Namespace{Name: id, Dir: s.IndexDir()})
	return nil
}

func (c *sessionService) release(ctx context.Context, ns vectorindex.Namespace) {
	c.engines.Evict(ns.Name)
	if err := c.store.Drop(ctx, ns); err != nil {
		c.logger.Warn(sessionLogModule, "Failed to drop index", map[string]interface{}{
			"session_id": ns.Name,
			"error":      err.Error(),
		})
	}
}

func (c *sessionService) Upload(ctx context.Context, id string, filename string, size int64, src io.Reader) (*dto.UploadResponse, error) {
	s, ok := c.sessions.Get(id)
	if !ok {
		return nil, apperror.NotFound("session %s not found", id)
	}
	if s.Progress.Status == session.StatusProcessing {
		return nil, apperror.Conflict("session %s is processing, upload after it finishes", id)
	}

	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || name == "" {
		return nil, apperror.Validation("file name is required")
	}
	if !c.extractors.Supports(name) {
		return nil, apperror.Validation("unsupported file type %q, allowed: %s", filepath.Ext(name), strings.Join(c.extractors.Extensions(), ", "))
	}
	if c.cfg.MaxUploadBytes > 0 && size > c.cfg.MaxUploadBytes {
		return nil, apperror.Validation("file exceeds the %d MB limit", c.cfg.MaxUploadBytes/(1024*1024))
	}

	written, err := c.saveFile(s.FilesDir(), name, src)
	if err != nil {
		return nil, err
	}

	if err := c.sessions.AddUploadedFile(id, name); err != nil {
		return nil, err
	}
	updated, ok := c.sessions.Get(id)
	if !ok {
		return nil, apperror.NotFound("session %s not found", id)
	}

	c.logger.Info(sessionLogModule, "File uploaded", map[string]interface{}{
		"session_id": id,
		"file":       name,
		"bytes":      written,
	})
	return &dto.UploadResponse{
		Filename: name,
		Size:     written,
		Session:  c.mapper.ToResponse(updated),
	}, nil
}

// saveFile streams src into dir/name through a temp file, so a failed or
// oversized upload never leaves a partial document behind.
func (c *sessionService) saveFile(dir, name string, src io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, apperror.Storage("create upload file", err)
	}
	defer os.Remove(tmp.Name())

	reader := src
	if c.cfg.MaxUploadBytes > 0 {
		reader = io.LimitReader(src, c.cfg.MaxUploadBytes+1)
	}
	written, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, apperror.Storage("write upload", err)
	}
	if c.cfg.MaxUploadBytes > 0 && written > c.cfg.MaxUploadBytes {
		return 0, apperror.Validation("file exceeds the %d MB limit", c.cfg.MaxUploadBytes/(1024*1024))
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return 0, apperror.Storage(fmt.Sprintf("store %s", name), err)
	}
	return written, nil
}

func (c *sessionService) Process(ctx context.Context, id string) (*dto.ProcessResponse, *ingest.Task, error) {
	task, err := c.runner.Start(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	s, ok := c.sessions.Get(id)
	if !ok {
		return nil, nil, apperror.NotFound("session %s not found", id)
	}
	return &dto.ProcessResponse{Run: task.Run, Session: c.mapper.ToResponse(s)}, task, nil
}

// Sweep deletes expired sessions together with their engines and indexes.
func (c *sessionService) Sweep(ctx context.Context) []string {
	deleted := c.sessions.SweepExpired(c.cfg.MaxAge)
	for _, id := range deleted {
		// The directory is already gone; only out-of-tree backends have work left.
		c.release(ctx, vectorindex.Namespace{Name: id})
	}
	return deleted
}

func (c *sessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || c.cfg.MaxAge <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}
