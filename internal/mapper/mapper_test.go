package mapper

import (
	"testing"
	"time"

	"manual-chatbot-be/pkg/rag/engine"
	"manual-chatbot-be/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMapper_ToResponse(t *testing.T) {
	m := NewSessionMapper()

	t.Run("fresh session", func(t *testing.T) {
		res := m.ToResponse(session.Session{ID: "s1", Label: "Auris", Progress: session.Progress{Status: session.StatusCreated}})

		assert.Equal(t, "s1", res.Id)
		assert.Equal(t, "Auris", res.VehicleName)
		assert.Equal(t, "created", res.Status)
		assert.NotNil(t, res.PdfFiles)
		assert.Empty(t, res.PdfFiles)
		assert.Nil(t, res.Error)
	})

	t.Run("failed run", func(t *testing.T) {
		res := m.ToResponse(session.Session{
			ID:            "s1",
			UploadedFiles: []string{"manual.pdf"},
			Progress: session.Progress{
				Status:         session.StatusError,
				Percent:        50,
				TotalUnits:     10,
				ProcessedUnits: 4,
				Error:          "no text",
				Run:            2,
			},
		})

		require.NotNil(t, res.Error)
		assert.Equal(t, "no text", *res.Error)
		assert.Equal(t, []string{"manual.pdf"}, res.PdfFiles)
		assert.Equal(t, 50, res.Progress)
		assert.Equal(t, 10, res.TotalPages)
		assert.Equal(t, 4, res.ProcessedPages)
		assert.Equal(t, 2, res.Run)
	})
}

func TestSessionMapper_StreamMessages(t *testing.T) {
	m := NewSessionMapper()

	msg := m.ToStreamMessage(session.Session{ID: "s1"})
	assert.Equal(t, "progress", msg.Type)
	assert.Equal(t, "s1", msg.Session.Id)

	del := m.ToDeletedMessage("s1")
	assert.Equal(t, "deleted", del.Type)
	assert.Nil(t, del.Session)
}

func TestChatMapper(t *testing.T) {
	m := NewChatMapper()

	res := m.AnswerToResponse(engine.Answer{
		Text:       "32 psi",
		Grounding:  engine.GroundingManual,
		Confidence: 0.9,
		Sources:    []engine.Citation{{SourceFile: "manual.pdf", Page: 12}},
	})
	assert.Equal(t, "manual", res.Grounding)
	assert.Equal(t, "manual.pdf", res.Sources[0].SourceFile)
	assert.Equal(t, 12, res.Sources[0].Page)

	empty := m.AnswerToResponse(engine.Answer{Grounding: engine.GroundingRefused})
	assert.NotNil(t, empty.Sources)

	now := time.Now()
	history := m.HistoryToResponse([]engine.Turn{
		{Role: engine.RoleUser, Content: "q", Timestamp: now},
		{Role: engine.RoleAssistant, Content: "a", Timestamp: now, Confidence: 0.7, Grounding: engine.GroundingGeneral},
	})
	require.Len(t, history, 2)
	assert.Equal(t, "general", history[1].Grounding)

	assert.Len(t, m.SuggestionsToResponse(engine.Suggestions()), 8)
}
