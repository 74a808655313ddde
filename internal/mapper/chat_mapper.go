package mapper

import (
	"manual-chatbot-be/internal/dto"
	"manual-chatbot-be/pkg/rag/engine"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) AnswerToResponse(a engine.Answer) *dto.ChatResponse {
	sources := make([]dto.CitationDTO, 0, len(a.Sources))
	for _, c := range a.Sources {
		sources = append(sources, dto.CitationDTO{SourceFile: c.SourceFile, Page: c.Page})
	}
	return &dto.ChatResponse{
		Response:   a.Text,
		Grounding:  string(a.Grounding),
		Confidence: a.Confidence,
		Sources:    sources,
	}
}

func (m *ChatMapper) HistoryToResponse(turns []engine.Turn) []dto.HistoryTurnDTO {
	out := make([]dto.HistoryTurnDTO, 0, len(turns))
	for _, t := range turns {
		out = append(out, dto.HistoryTurnDTO{
			Role:       t.Role,
			Content:    t.Content,
			Timestamp:  t.Timestamp,
			Confidence: t.Confidence,
			Grounding:  string(t.Grounding),
		})
	}
	return out
}

func (m *ChatMapper) SuggestionsToResponse(items []engine.Suggestion) []dto.SuggestionDTO {
	out := make([]dto.SuggestionDTO, 0, len(items))
	for _, s := range items {
		out = append(out, dto.SuggestionDTO{Id: s.ID, Text: s.Text, Category: s.Category})
	}
	return out
}
