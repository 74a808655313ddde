package session

import (
	"os"
	"sync"
	"testing"
	"time"

	"manual-chatbot-be/internal/apperror"
	"manual-chatbot-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	return r
}

type countingNotifier struct {
	mu      sync.Mutex
	changed int
	deleted []string
}

func (n *countingNotifier) SessionChanged(s Session) {
	n.mu.Lock()
	n.changed++
	n.mu.Unlock()
}

func (n *countingNotifier) SessionDeleted(id string) {
	n.mu.Lock()
	n.deleted = append(n.deleted, id)
	n.mu.Unlock()
}

func TestCreate(t *testing.T) {
	r := newRegistry(t)

	s, err := r.Create("  Corolla 2020 ")
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Corolla 2020", s.Label)
	assert.Equal(t, StatusCreated, s.Progress.Status)
	assert.DirExists(t, s.FilesDir())
	assert.DirExists(t, s.IndexDir())

	got, ok := r.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)
}

func TestSnapshotsAreCopies(t *testing.T) {
	r := newRegistry(t)
	s, err := r.Create("car")
	require.NoError(t, err)
	require.NoError(t, r.AddUploadedFile(s.ID, "a.pdf"))

	snap, _ := r.Get(s.ID)
	snap.UploadedFiles[0] = "tampered.pdf"
	snap.Progress.Percent = 99

	again, _ := r.Get(s.ID)
	assert.Equal(t, []string{"a.pdf"}, again.UploadedFiles)
	assert.Equal(t, 0, again.Progress.Percent)
}

func TestAddUploadedFile(t *testing.T) {
	r := newRegistry(t)
	s, _ := r.Create("car")

	require.NoError(t, r.AddUploadedFile(s.ID, "a.pdf"))
	require.NoError(t, r.AddUploadedFile(s.ID, "a.pdf"))

	got, _ := r.Get(s.ID)
	assert.Equal(t, StatusUploading, got.Progress.Status)
	assert.Equal(t, []string{"a.pdf", "a.pdf"}, got.UploadedFiles)

	err := r.AddUploadedFile("missing", "a.pdf")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateProgress(t *testing.T) {
	tests := []struct {
		name    string
		patches []Patch
		want    Progress
	}{
		{
			name: "only set fields change",
			patches: []Patch{
				Patch{}.WithPercent(40).WithMessage("extracting"),
				Patch{}.WithStep("extraction"),
			},
			want: Progress{Status: StatusProcessing, Percent: 40, Message: "extracting", CurrentStep: "extraction", Run: 1},
		},
		{
			name: "percent never goes down",
			patches: []Patch{
				Patch{}.WithPercent(60),
				Patch{}.WithPercent(30),
			},
			want: Progress{Status: StatusProcessing, Percent: 60, Message: "Processing queued", CurrentStep: "queued", Run: 1},
		},
		{
			name: "percent is clamped below 100 until ready",
			patches: []Patch{
				Patch{}.WithPercent(250),
			},
			want: Progress{Status: StatusProcessing, Percent: 99, Message: "Processing queued", CurrentStep: "queued", Run: 1},
		},
		{
			name: "failed run never shows 100",
			patches: []Patch{
				Patch{}.WithPercent(100),
				Patch{}.WithStatus(StatusError).WithPercent(100).WithError("index down"),
			},
			want: Progress{Status: StatusError, Percent: 99, Message: "Processing queued", CurrentStep: "queued", Error: "index down", Run: 1},
		},
		{
			name: "ready lifts a capped percent to 100",
			patches: []Patch{
				Patch{}.WithPercent(120),
				Patch{}.WithStatus(StatusReady).WithPercent(100),
			},
			want: Progress{Status: StatusReady, Percent: 100, Message: "Processing queued", CurrentStep: "queued", Run: 1},
		},
		{
			name: "error only kept with error status",
			patches: []Patch{
				Patch{}.WithError("ignored"),
				Patch{}.WithStatus(StatusError).WithError("boom"),
			},
			want: Progress{Status: StatusError, Message: "Processing queued", CurrentStep: "queued", Error: "boom", Run: 1},
		},
		{
			name: "finished run ignores late patches",
			patches: []Patch{
				Patch{}.WithStatus(StatusReady).WithPercent(100),
				Patch{}.WithStatus(StatusProcessing).WithPercent(10).WithMessage("late"),
			},
			want: Progress{Status: StatusReady, Percent: 100, Message: "Processing queued", CurrentStep: "queued", Run: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRegistry(t)
			s, _ := r.Create("car")
			_, err := r.BeginRun(s.ID)
			require.NoError(t, err)

			for _, p := range tt.patches {
				r.UpdateProgress(s.ID, p)
			}

			got, _ := r.Get(s.ID)
			assert.Equal(t, tt.want, got.Progress)
		})
	}
}

func TestBeginRunResets(t *testing.T) {
	r := newRegistry(t)
	s, _ := r.Create("car")

	_, err := r.BeginRun(s.ID)
	require.NoError(t, err)
	r.UpdateProgress(s.ID, Patch{}.WithPercent(70))
	r.UpdateProgress(s.ID, Patch{}.WithStatus(StatusError).WithError("boom"))

	snap, err := r.BeginRun(s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, snap.Progress.Status)
	assert.Equal(t, 0, snap.Progress.Percent)
	assert.Empty(t, snap.Progress.Error)
	assert.Equal(t, 2, snap.Progress.Run)

	_, err = r.BeginRun("missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDelete(t *testing.T) {
	r := newRegistry(t)
	n := &countingNotifier{}
	r.SetNotifier(n)
	s, _ := r.Create("car")

	assert.True(t, r.Delete(s.ID))
	_, ok := r.Get(s.ID)
	assert.False(t, ok)
	_, err := os.Stat(s.Dir())
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, []string{s.ID}, n.deleted)

	// Updates after delete are silent no-ops.
	assert.NotPanics(t, func() { r.UpdateProgress(s.ID, Patch{}.WithPercent(50)) })
	assert.False(t, r.Delete(s.ID))
}

func TestSweepExpired(t *testing.T) {
	r := newRegistry(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	r.now = func() time.Time { return now.Add(-48 * time.Hour) }
	old, _ := r.Create("old")
	r.now = func() time.Time { return now }
	fresh, _ := r.Create("fresh")

	deleted := r.SweepExpired(24 * time.Hour)
	assert.Equal(t, []string{old.ID}, deleted)

	_, ok := r.Get(old.ID)
	assert.False(t, ok)
	_, ok = r.Get(fresh.ID)
	assert.True(t, ok)
}

func TestList(t *testing.T) {
	r := newRegistry(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, label := range []string{"b", "a", "c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		r.now = func() time.Time { return at }
		_, err := r.Create(label)
		require.NoError(t, err)
	}

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[0].Label)
	assert.Equal(t, "c", list[2].Label)
}

func TestConcurrentAccess(t *testing.T) {
	r := newRegistry(t)
	n := &countingNotifier{}
	r.SetNotifier(n)
	s, _ := r.Create("car")
	_, _ = r.BeginRun(s.ID)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(p int) {
			defer wg.Done()
			r.UpdateProgress(s.ID, Patch{}.WithPercent(p))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = r.Get(s.ID)
			_ = r.List()
		}()
	}
	wg.Wait()

	got, _ := r.Get(s.ID)
	assert.Equal(t, 49, got.Progress.Percent)
	assert.Equal(t, 52, n.changed)
}
