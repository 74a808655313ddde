package session

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"manual-chatbot-be/internal/apperror"
	"manual-chatbot-be/internal/pkg/logger"

	"github.com/google/uuid"
)

const logModule = "Registry"

// Notifier is told about every mutation, after the lock is released.
type Notifier interface {
	SessionChanged(s Session)
	SessionDeleted(id string)
}

// Registry is the in-memory source of truth for sessions.
// Every operation takes one mutex; directory I/O happens outside it.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	rootDir  string
	logger   logger.ILogger
	notifier Notifier
	now      func() time.Time
}

// NewRegistry prepares <dataDir>/sessions and returns an empty registry.
func NewRegistry(dataDir string, log logger.ILogger) (*Registry, error) {
	root := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, apperror.Storage("create sessions directory", err)
	}
	return &Registry{
		sessions: make(map[string]*Session),
		rootDir:  root,
		logger:   log,
		now:      time.Now,
	}, nil
}

// SetNotifier must be called before the registry is shared.
func (r *Registry) SetNotifier(n Notifier) {
	r.notifier = n
}

func (r *Registry) Create(label string) (Session, error) {
	id := uuid.New().String()
	s := &Session{
		ID:        id,
		Label:     strings.TrimSpace(label),
		CreatedAt: r.now(),
		Progress: Progress{
			Status:  StatusCreated,
			Message: "Session created",
		},
		root: filepath.Join(r.rootDir, id),
	}

	for _, dir := range []string{s.FilesDir(), s.IndexDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			_ = os.RemoveAll(s.root)
			return Session{}, apperror.Storage("create session directory", err)
		}
	}

	r.mu.Lock()
	r.sessions[id] = s
	snap := s.clone()
	r.mu.Unlock()

	r.logger.Info(logModule, "Session created", map[string]interface{}{"session_id": id, "label": s.Label})
	r.changed(snap)
	return snap, nil
}

func (r *Registry) Get(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// List returns snapshots ordered by creation time.
func (r *Registry) List() []Session {
	r.mu.Lock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.clone())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// UpdateProgress applies the set fields of p. Unknown ids are ignored so a
// pipeline that outlives its session never fails because of it.
func (r *Registry) UpdateProgress(id string, p Patch) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	p.apply(&s.Progress)
	snap := s.clone()
	r.mu.Unlock()

	r.changed(snap)
}

// BeginRun starts a new processing run: percent back to 0, error cleared.
func (r *Registry) BeginRun(id string) (Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return Session{}, apperror.NotFound("session %s not found", id)
	}
	s.Progress = Progress{
		Status:      StatusProcessing,
		Message:     "Processing queued",
		CurrentStep: "queued",
		Run:         s.Progress.Run + 1,
	}
	snap := s.clone()
	r.mu.Unlock()

	r.changed(snap)
	return snap, nil
}

// AddUploadedFile records a stored upload. Duplicates are allowed.
func (r *Registry) AddUploadedFile(id, filename string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return apperror.NotFound("session %s not found", id)
	}
	s.UploadedFiles = append(s.UploadedFiles, filename)
	if s.Progress.Status == StatusCreated {
		s.Progress.Status = StatusUploading
		s.Progress.Message = "Receiving files"
	}
	snap := s.clone()
	r.mu.Unlock()

	r.changed(snap)
	return nil
}

// Delete erases the entry and then the directory tree.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	if err := os.RemoveAll(s.root); err != nil {
		r.logger.Error(logModule, "Failed to remove session directory", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
	}

	r.logger.Info(logModule, "Session deleted", map[string]interface{}{"session_id": id})
	if r.notifier != nil {
		r.notifier.SessionDeleted(id)
	}
	return true
}

// SweepExpired deletes every session created more than maxAge ago.
func (r *Registry) SweepExpired(maxAge time.Duration) []string {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	var expired []string
	for id, s := range r.sessions {
		if s.CreatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	deleted := make([]string, 0, len(expired))
	for _, id := range expired {
		if r.Delete(id) {
			deleted = append(deleted, id)
		}
	}

	if len(deleted) > 0 {
		r.logger.Info(logModule, "Expired sessions swept", map[string]interface{}{"count": len(deleted)})
	}
	return deleted
}

func (r *Registry) changed(s Session) {
	if r.notifier != nil {
		r.notifier.SessionChanged(s)
	}
}
