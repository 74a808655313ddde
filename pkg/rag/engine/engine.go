// Package engine answers questions for one session: topic gate, retrieval,
// relevance check, then a grounded or general-knowledge generation.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"manual-chatbot-be/internal/apperror"
	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/pkg/llm"
	"manual-chatbot-be/pkg/rag/prompt"
	"manual-chatbot-be/pkg/rag/topic"
	"manual-chatbot-be/pkg/session"
	"manual-chatbot-be/pkg/vectorindex"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const logModule = "Engine"

var tracer = otel.Tracer("manual-chatbot-be/pkg/rag/engine")

// Grounding tells where an answer came from.
type Grounding string

const (
	GroundingManual  Grounding = "manual"
	GroundingGeneral Grounding = "general"
	GroundingRefused Grounding = "refused"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var answerPrefix = map[Grounding]string{
	GroundingManual:  "📖 *Answer based on your documents:*\n\n",
	GroundingGeneral: "💡 *Answer based on general knowledge:*\n\n",
}

type Config struct {
	TopK         int
	QueryTimeout time.Duration
	MinOverlap   int
}

func DefaultConfig() Config {
	return Config{TopK: 5, QueryTimeout: 60 * time.Second, MinOverlap: MinOverlap}
}

// Deps are shared by every engine of a process.
type Deps struct {
	Sessions *session.Registry
	Store    vectorindex.Store
	LLM      llm.LLMProvider
	Gate     *topic.Gate
	Logger   logger.ILogger
}

type Citation struct {
	SourceFile string
	Page       int
}

type Answer struct {
	Text       string
	Grounding  Grounding
	Confidence float64
	Sources    []Citation
}

type Turn struct {
	Role       string
	Content    string
	Timestamp  time.Time
	Confidence float64
	Grounding  Grounding
}

// Engine is the per-session orchestrator. History and the index handle are
// guarded by mu; provider calls run outside it.
type Engine struct {
	sessionID string
	deps      *Deps
	cfg       Config
	now       func() time.Time

	mu      sync.Mutex
	history []Turn
	handle  vectorindex.Handle
}

func New(sessionID string, deps *Deps, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = def.QueryTimeout
	}
	if cfg.MinOverlap <= 0 {
		cfg.MinOverlap = def.MinOverlap
	}
	return &Engine{sessionID: sessionID, deps: deps, cfg: cfg, now: time.Now}
}

func (e *Engine) SessionID() string {
	return e.sessionID
}

// Ask runs one question through the gate, retrieval and generation. A failed
// generation returns an error and records nothing.
func (e *Engine) Ask(ctx context.Context, question string) (_ Answer, err error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, apperror.Validation("question must not be empty")
	}

	s, ok := e.deps.Sessions.Get(e.sessionID)
	if !ok {
		return Answer{}, apperror.NotFound("session %s not found", e.sessionID)
	}

	ctx, span := tracer.Start(ctx, "engine.Ask", trace.WithAttributes(
		attribute.String("session.id", e.sessionID),
		attribute.String("session.status", string(s.Progress.Status)),
	))
	defer func() { endSpan(span, err) }()

	verdict := e.deps.Gate.Evaluate(question)
	span.SetAttributes(
		attribute.Bool("gate.related", verdict.Related),
		attribute.Float64("gate.confidence", verdict.Confidence),
	)
	if !verdict.Related {
		answer := Answer{
			Text:       prompt.Refusal(s.Label, e.deps.Gate.Subject()),
			Grounding:  GroundingRefused,
			Confidence: verdict.Confidence,
		}
		e.record(question, answer)
		e.deps.Logger.Info(logModule, "Question refused by topic gate", map[string]interface{}{
			"session_id": e.sessionID,
			"matched":    verdict.Matched,
		})
		return answer, nil
	}

	var hits []vectorindex.Hit
	if s.Progress.Status == session.StatusReady {
		hits, err = e.retrieve(ctx, s, question)
		if err != nil {
			return Answer{}, err
		}
	}

	excerpts := FormatContext(hits)
	grounding := GroundingGeneral
	builder := prompt.NewManualBuilder(s.Label, question)
	if len(hits) > 0 && Relevant(question, excerpts, e.cfg.MinOverlap) {
		grounding = GroundingManual
		builder.WithContext(excerpts)
	}
	span.SetAttributes(attribute.String("answer.grounding", string(grounding)), attribute.Int("retrieval.hits", len(hits)))

	text, err := e.generate(ctx, builder.Build())
	if err != nil {
		e.deps.Logger.Error(logModule, "Generation failed", map[string]interface{}{
			"session_id": e.sessionID,
			"grounding":  string(grounding),
			"error":      err.Error(),
		})
		return Answer{}, err
	}

	answer := Answer{
		Text:       answerPrefix[grounding] + text,
		Grounding:  grounding,
		Confidence: verdict.Confidence,
	}
	if grounding == GroundingManual {
		answer.Sources = citations(hits)
	}
	e.record(question, answer)
	return answer, nil
}

func (e *Engine) retrieve(ctx context.Context, s session.Session, question string) ([]vectorindex.Hit, error) {
	ctx, span := tracer.Start(ctx, "engine.retrieve")
	var err error
	defer func() { endSpan(span, err) }()

	h, err := e.indexHandle(ctx, s)
	if err != nil || h == nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	hits, err := h.Search(ctx, question, e.cfg.TopK)
	if err != nil {
		err = apperror.Index("search index", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("retrieval.hits", len(hits)))
	return hits, nil
}

// indexHandle opens the session's index on first use. A session without an
// index yields a nil handle and no error.
func (e *Engine) indexHandle(ctx context.Context, s session.Session) (vectorindex.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle != nil {
		return e.handle, nil
	}

	h, err := e.deps.Store.Open(ctx, vectorindex.Namespace{Name: s.ID, Dir: s.IndexDir()})
	if errors.Is(err, vectorindex.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Index("open index", err)
	}
	e.handle = h
	return h, nil
}

func (e *Engine) generate(ctx context.Context, p string) (string, error) {
	ctx, span := tracer.Start(ctx, "engine.generate")
	var err error
	defer func() { endSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	text, err := e.deps.LLM.Generate(ctx, p)
	if err != nil {
		err = apperror.Generation("generate answer", err)
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		err = apperror.Generation("generate answer", errors.New("provider returned an empty answer"))
		return "", err
	}
	return text, nil
}

func (e *Engine) record(question string, a Answer) {
	now := e.now()
	e.mu.Lock()
	e.history = append(e.history,
		Turn{Role: RoleUser, Content: question, Timestamp: now},
		Turn{Role: RoleAssistant, Content: a.Text, Timestamp: now, Confidence: a.Confidence, Grounding: a.Grounding},
	)
	e.mu.Unlock()
}

// History returns a copy of the conversation so far.
func (e *Engine) History() []Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Turn(nil), e.history...)
}

func (e *Engine) ClearHistory() {
	e.mu.Lock()
	e.history = nil
	e.mu.Unlock()
}

// dropHandle forgets the open index so the next question reopens it.
func (e *Engine) dropHandle() {
	e.mu.Lock()
	h := e.handle
	e.handle = nil
	e.mu.Unlock()

	if h != nil {
		h.Close()
	}
}

func citations(hits []vectorindex.Hit) []Citation {
	seen := make(map[Citation]bool, len(hits))
	out := make([]Citation, 0, len(hits))
	for _, h := range hits {
		c := Citation{SourceFile: h.Chunk.SourceFile, Page: h.Chunk.PageNumber}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
