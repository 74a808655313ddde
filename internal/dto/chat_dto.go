package dto

import "time"

type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type CitationDTO struct {
	SourceFile string `json:"source_file"`
	Page       int    `json:"page"`
}

type ChatResponse struct {
	Response   string        `json:"response"`
	Grounding  string        `json:"grounding"`
	Confidence float64       `json:"confidence"`
	Sources    []CitationDTO `json:"sources"`
}

type HistoryTurnDTO struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence,omitempty"`
	Grounding  string    `json:"grounding,omitempty"`
}

type SuggestionDTO struct {
	Id       int    `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	LoadedEngines  int    `json:"loaded_engines"`
	VectorStore    string `json:"vector_store"`
	TopicProfile   string `json:"topic_profile"`
}
