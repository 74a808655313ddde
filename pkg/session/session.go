package session

import (
	"path/filepath"
	"time"
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Terminal reports whether a run has finished (successfully or not).
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// Progress is the mutable part of a session, owned by the registry.
type Progress struct {
	Status         Status
	Percent        int
	Message        string
	CurrentStep    string
	TotalUnits     int
	ProcessedUnits int
	Error          string
	Run            int
}

// Session is always handed out as a value; mutating a copy never touches the registry.
type Session struct {
	ID            string
	Label         string
	CreatedAt     time.Time
	UploadedFiles []string
	Progress      Progress

	root string
}

func (s Session) Dir() string {
	return s.root
}

// FilesDir holds the raw uploads.
func (s Session) FilesDir() string {
	return filepath.Join(s.root, "files")
}

// IndexDir holds the session's vector-index namespace.
func (s Session) IndexDir() string {
	return filepath.Join(s.root, "index")
}

func (s Session) clone() Session {
	c := s
	c.UploadedFiles = append([]string(nil), s.UploadedFiles...)
	return c
}

// Patch carries optional progress fields; nil fields are left untouched.
type Patch struct {
	Status         *Status
	Percent        *int
	Message        *string
	CurrentStep    *string
	TotalUnits     *int
	ProcessedUnits *int
	Error          *string
}

func (p Patch) WithStatus(s Status) Patch {
	p.Status = &s
	return p
}

func (p Patch) WithPercent(v int) Patch {
	p.Percent = &v
	return p
}

func (p Patch) WithMessage(m string) Patch {
	p.Message = &m
	return p
}

func (p Patch) WithStep(step string) Patch {
	p.CurrentStep = &step
	return p
}

func (p Patch) WithTotalUnits(v int) Patch {
	p.TotalUnits = &v
	return p
}

func (p Patch) WithProcessedUnits(v int) Patch {
	p.ProcessedUnits = &v
	return p
}

func (p Patch) WithError(e string) Patch {
	p.Error = &e
	return p
}

// apply mutates progress in one pass. Percent never goes down inside a run,
// and a finished run only changes again through BeginRun.
func (p Patch) apply(cur *Progress) {
	if cur.Status.Terminal() {
		return
	}
	if p.Status != nil {
		cur.Status = *p.Status
	}
	if p.Percent != nil {
		v := clampPercent(*p.Percent)
		// 100 is reserved for ready.
		if v == 100 && cur.Status != StatusReady {
			v = 99
		}
		if v > cur.Percent {
			cur.Percent = v
		}
	}
	if p.Message != nil {
		cur.Message = *p.Message
	}
	if p.CurrentStep != nil {
		cur.CurrentStep = *p.CurrentStep
	}
	if p.TotalUnits != nil {
		cur.TotalUnits = *p.TotalUnits
	}
	if p.ProcessedUnits != nil {
		cur.ProcessedUnits = *p.ProcessedUnits
	}
	if p.Error != nil && cur.Status == StatusError {
		cur.Error = *p.Error
	}
	if cur.Status != StatusError {
		cur.Error = ""
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
