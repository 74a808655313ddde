package mapper

import (
	"manual-chatbot-be/internal/dto"
	"manual-chatbot-be/pkg/session"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) ToResponse(s session.Session) *dto.SessionResponse {
	res := &dto.SessionResponse{
		Id:             s.ID,
		VehicleName:    s.Label,
		CreatedAt:      s.CreatedAt,
		PdfFiles:       s.UploadedFiles,
		Status:         string(s.Progress.Status),
		Progress:       s.Progress.Percent,
		Message:        s.Progress.Message,
		CurrentStep:    s.Progress.CurrentStep,
		TotalPages:     s.Progress.TotalUnits,
		ProcessedPages: s.Progress.ProcessedUnits,
		Run:            s.Progress.Run,
	}
	if res.PdfFiles == nil {
		res.PdfFiles = []string{}
	}
	// error stays null unless the run failed
	if s.Progress.Error != "" {
		e := s.Progress.Error
		res.Error = &e
	}
	return res
}

func (m *SessionMapper) ToStreamMessage(s session.Session) *dto.SessionStreamMessage {
	return &dto.SessionStreamMessage{
		Type:      "progress",
		SessionId: s.ID,
		Session:   m.ToResponse(s),
	}
}

func (m *SessionMapper) ToDeletedMessage(sessionID string) *dto.SessionStreamMessage {
	return &dto.SessionStreamMessage{
		Type:      "deleted",
		SessionId: sessionID,
	}
}
