package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"manual-chatbot-be/internal/apperror"
	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/pkg/document"
	"manual-chatbot-be/pkg/llm"
	"manual-chatbot-be/pkg/rag/topic"
	"manual-chatbot-be/pkg/session"
	"manual-chatbot-be/pkg/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	err     error
	delay   time.Duration
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return f.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.answer, f.err
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeHandle struct {
	hits      []vectorindex.Hit
	searchErr error
	searches  int
	closed    bool
}

func (h *fakeHandle) Add(ctx context.Context, chunks []document.Chunk) error { return nil }
func (h *fakeHandle) Search(ctx context.Context, query string, k int) ([]vectorindex.Hit, error) {
	h.searches++
	if h.searchErr != nil {
		return nil, h.searchErr
	}
	if k < len(h.hits) {
		return h.hits[:k], nil
	}
	return h.hits, nil
}
func (h *fakeHandle) Count(ctx context.Context) (int, error) { return len(h.hits), nil }
func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

type fakeStore struct {
	handle *fakeHandle
	opens  int
}

func (s *fakeStore) Open(ctx context.Context, ns vectorindex.Namespace) (vectorindex.Handle, error) {
	s.opens++
	if s.handle == nil {
		return nil, vectorindex.ErrNotFound
	}
	return s.handle, nil
}
func (s *fakeStore) Create(ctx context.Context, ns vectorindex.Namespace) (vectorindex.Handle, error) {
	return s.handle, nil
}
func (s *fakeStore) Drop(ctx context.Context, ns vectorindex.Namespace) error { return nil }

var tireHits = []vectorindex.Hit{
	{Chunk: document.Chunk{Content: "The recommended tire pressure is 2.3 bar. Check the pressure when tires are cold.", SourceFile: "manual.pdf", PageNumber: 12}, Score: 0.9},
	{Chunk: document.Chunk{Content: "Inflate the spare tire to 4.2 bar.", SourceFile: "manual.pdf", PageNumber: 12}, Score: 0.7},
	{Chunk: document.Chunk{Content: "Tire rotation every 10000 km.", SourceFile: "service.pdf", PageNumber: 3}, Score: 0.6},
}

type harness struct {
	registry *session.Registry
	store    *fakeStore
	llm      *fakeLLM
	deps     *Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reg, err := session.NewRegistry(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	gate, err := topic.New(topic.DefaultProfile)
	require.NoError(t, err)

	h := &harness{
		registry: reg,
		store:    &fakeStore{},
		llm:      &fakeLLM{answer: "Use 2.3 bar."},
	}
	h.deps = &Deps{Sessions: reg, Store: h.store, LLM: h.llm, Gate: gate, Logger: logger.NewNop()}
	return h
}

func (h *harness) session(t *testing.T, status session.Status) session.Session {
	t.Helper()
	s, err := h.registry.Create("Corolla 2020")
	require.NoError(t, err)
	if status != session.StatusCreated {
		_, err = h.registry.BeginRun(s.ID)
		require.NoError(t, err)
		h.registry.UpdateProgress(s.ID, session.Patch{}.WithStatus(status).WithPercent(100))
	}
	return s
}

func TestAsk_RefusesOffTopicWithoutProviderCalls(t *testing.T) {
	h := newHarness(t)
	h.store.handle = &fakeHandle{hits: tireHits}
	s := h.session(t, session.StatusReady)
	e := New(s.ID, h.deps, DefaultConfig())

	answer, err := e.Ask(context.Background(), "What's a good recipe for apple pie?")
	require.NoError(t, err)

	assert.Equal(t, GroundingRefused, answer.Grounding)
	assert.Contains(t, answer.Text, "Corolla 2020")
	assert.Zero(t, answer.Confidence)
	assert.Zero(t, h.llm.calls())
	assert.Zero(t, h.store.opens)

	again, err := e.Ask(context.Background(), "What's a good recipe for apple pie?")
	require.NoError(t, err)
	assert.Equal(t, answer.Text, again.Text, "refusal is deterministic")

	history := e.History()
	require.Len(t, history, 4)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, GroundingRefused, history[1].Grounding)
}

func TestAsk_GroundedAnswer(t *testing.T) {
	h := newHarness(t)
	h.store.handle = &fakeHandle{hits: tireHits}
	s := h.session(t, session.StatusReady)
	e := New(s.ID, h.deps, DefaultConfig())

	answer, err := e.Ask(context.Background(), "What is the recommended tire pressure?")
	require.NoError(t, err)

	assert.Equal(t, GroundingManual, answer.Grounding)
	assert.Contains(t, answer.Text, "Use 2.3 bar.")
	assert.InDelta(t, 0.9, answer.Confidence, 1e-9)
	assert.Equal(t, []Citation{{SourceFile: "manual.pdf", Page: 12}, {SourceFile: "service.pdf", Page: 3}}, answer.Sources)

	require.Equal(t, 1, h.llm.calls())
	assert.Contains(t, h.llm.prompts[0], "[Source: manual.pdf, Page 12]")
	assert.Contains(t, h.llm.prompts[0], "<reference_material>")

	_, err = e.Ask(context.Background(), "What is the recommended tire pressure?")
	require.NoError(t, err)
	assert.Equal(t, 1, h.store.opens, "index handle is reused")
	assert.Equal(t, 2, h.store.handle.searches)
}

func TestAsk_IrrelevantContextFallsBackToGeneral(t *testing.T) {
	h := newHarness(t)
	h.store.handle = &fakeHandle{hits: []vectorindex.Hit{
		{Chunk: document.Chunk{Content: "Radio presets are stored per driver profile.", SourceFile: "manual.pdf", PageNumber: 80}},
	}}
	s := h.session(t, session.StatusReady)
	e := New(s.ID, h.deps, DefaultConfig())

	answer, err := e.Ask(context.Background(), "How does engine braking work on a hybrid car?")
	require.NoError(t, err)

	assert.Equal(t, GroundingGeneral, answer.Grounding)
	assert.Empty(t, answer.Sources)
	require.Equal(t, 1, h.llm.calls())
	assert.NotContains(t, h.llm.prompts[0], "<reference_material>")
}

func TestAsk_SessionNotReadySkipsRetrieval(t *testing.T) {
	h := newHarness(t)
	h.store.handle = &fakeHandle{hits: tireHits}
	s := h.session(t, session.StatusCreated)
	e := New(s.ID, h.deps, DefaultConfig())

	answer, err := e.Ask(context.Background(), "What is the recommended tire pressure?")
	require.NoError(t, err)

	assert.Equal(t, GroundingGeneral, answer.Grounding)
	assert.Zero(t, h.store.opens)
}

func TestAsk_MissingIndexIsGeneral(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, session.StatusReady)
	e := New(s.ID, h.deps, DefaultConfig())

	answer, err := e.Ask(context.Background(), "What is the recommended tire pressure?")
	require.NoError(t, err)
	assert.Equal(t, GroundingGeneral, answer.Grounding)
	assert.Equal(t, 1, h.store.opens)
}

func TestAsk_GenerationFailure(t *testing.T) {
	h := newHarness(t)
	h.llm.err = errors.New("model overloaded")
	s := h.session(t, session.StatusReady)
	e := New(s.ID, h.deps, DefaultConfig())

	_, err := e.Ask(context.Background(), "How do I use the bluetooth?")
	assert.ErrorIs(t, err, apperror.ErrGeneration)
	assert.False(t, apperror.IsRetryable(err))
	assert.Empty(t, e.History(), "failed answers are not recorded")
}

func TestAsk_EmptyGenerationIsAnError(t *testing.T) {
	h := newHarness(t)
	h.llm.answer = "   "
	s := h.session(t, session.StatusReady)
	e := New(s.ID, h.deps, DefaultConfig())

	_, err := e.Ask(context.Background(), "How do I use the bluetooth?")
	assert.ErrorIs(t, err, apperror.ErrGeneration)
}

func TestAsk_TimeoutIsRetryable(t *testing.T) {
	h := newHarness(t)
	h.llm.delay = time.Second
	s := h.session(t, session.StatusReady)
	e := New(s.ID, h.deps, Config{QueryTimeout: 20 * time.Millisecond})

	_, err := e.Ask(context.Background(), "How do I use the bluetooth?")
	assert.ErrorIs(t, err, apperror.ErrGeneration)
	assert.True(t, apperror.IsRetryable(err))
}

func TestAsk_SearchFailureIsIndexError(t *testing.T) {
	h := newHarness(t)
	h.store.handle = &fakeHandle{searchErr: errors.New("database is closed")}
	s := h.session(t, session.StatusReady)
	e := New(s.ID, h.deps, DefaultConfig())

	_, err := e.Ask(context.Background(), "What is the recommended tire pressure?")
	assert.ErrorIs(t, err, apperror.ErrIndex)
	assert.Zero(t, h.llm.calls())
}

func TestAsk_Validation(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, session.StatusReady)
	e := New(s.ID, h.deps, DefaultConfig())

	_, err := e.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	gone := New("missing", h.deps, DefaultConfig())
	_, err = gone.Ask(context.Background(), "How do I use the bluetooth?")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestHistory(t *testing.T) {
	h := newHarness(t)
	s := h.session(t, session.StatusReady)
	e := New(s.ID, h.deps, DefaultConfig())

	_, err := e.Ask(context.Background(), "How do I use the bluetooth?")
	require.NoError(t, err)

	history := e.History()
	require.Len(t, history, 2)
	history[0].Content = "tampered"
	assert.Equal(t, "How do I use the bluetooth?", e.History()[0].Content)

	e.ClearHistory()
	assert.Empty(t, e.History())
}

func TestRelevant(t *testing.T) {
	excerpt := "[Source: manual.pdf, Page 12]\nThe recommended tire pressure is 2.3 bar."

	tests := []struct {
		name     string
		question string
		context  string
		want     bool
	}{
		{"two long words overlap", "What is the recommended tire pressure?", excerpt, true},
		{"short words do not count", "Is the bar on?", excerpt, false},
		{"one overlapping word", "Where is the recommended jack point", excerpt, false},
		{"repeated word counts once", "tire tire tire", excerpt, false},
		{"empty context", "What is the recommended tire pressure?", "", false},
		{"case insensitive", "RECOMMENDED Tire PRESSURE", excerpt, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Relevant(tt.question, tt.context, MinOverlap))
		})
	}
}

func TestFormatContext(t *testing.T) {
	got := FormatContext(tireHits[:2])
	want := "[Source: manual.pdf, Page 12]\nThe recommended tire pressure is 2.3 bar. Check the pressure when tires are cold." +
		"\n\n---\n\n" +
		"[Source: manual.pdf, Page 12]\nInflate the spare tire to 4.2 bar."
	assert.Equal(t, want, got)
	assert.Empty(t, FormatContext(nil))
}

func TestSuggestions(t *testing.T) {
	list := Suggestions()
	require.Len(t, list, 8)
	list[0].Text = "changed"
	assert.NotEqual(t, "changed", Suggestions()[0].Text)
}
