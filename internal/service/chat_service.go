package service

import (
	"context"
	"strings"

	"manual-chatbot-be/internal/apperror"
	"manual-chatbot-be/internal/dto"
	"manual-chatbot-be/internal/mapper"
	"manual-chatbot-be/pkg/rag/engine"
)

type IChatService interface {
	Ask(ctx context.Context, sessionID string, req *dto.ChatRequest) (*dto.ChatResponse, error)
	History(ctx context.Context, sessionID string) ([]dto.HistoryTurnDTO, error)
	Clear(ctx context.Context, sessionID string) error
	Suggestions(ctx context.Context) []dto.SuggestionDTO
}

type chatService struct {
	engines *engine.Cache
	mapper  *mapper.ChatMapper
}

func NewChatService(engines *engine.Cache) IChatService {
	return &chatService{
		engines: engines,
		mapper:  mapper.NewChatMapper(),
	}
}

func (c *chatService) Ask(ctx context.Context, sessionID string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	question := strings.TrimSpace(req.Message)
	if question == "" {
		return nil, apperror.Validation("message is required")
	}

	e, err := c.engines.Get(sessionID)
	if err != nil {
		return nil, err
	}
	answer, err := e.Ask(ctx, question)
	if err != nil {
		return nil, err
	}
	return c.mapper.AnswerToResponse(answer), nil
}

func (c *chatService) History(ctx context.Context, sessionID string) ([]dto.HistoryTurnDTO, error) {
	e, err := c.engines.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return c.mapper.HistoryToResponse(e.History()), nil
}

func (c *chatService) Clear(ctx context.Context, sessionID string) error {
	e, err := c.engines.Get(sessionID)
	if err != nil {
		return err
	}
	e.ClearHistory()
	return nil
}

func (c *chatService) Suggestions(ctx context.Context) []dto.SuggestionDTO {
	return c.mapper.SuggestionsToResponse(engine.Suggestions())
}
