package dto

import "time"

type CreateSessionRequest struct {
	VehicleName string `json:"vehicle_name" validate:"max=200"`
}

// SessionResponse is the public view of a session, also pushed over the websocket.
type SessionResponse struct {
	Id             string    `json:"id"`
	VehicleName    string    `json:"vehicle_name"`
	CreatedAt      time.Time `json:"created_at"`
	PdfFiles       []string  `json:"pdf_files"`
	Status         string    `json:"status"`
	Progress       int       `json:"progress"`
	Message        string    `json:"message"`
	CurrentStep    string    `json:"current_step"`
	TotalPages     int       `json:"total_pages"`
	ProcessedPages int       `json:"processed_pages"`
	Error          *string   `json:"error"`
	Run            int       `json:"run"`
}

type UploadResponse struct {
	Filename string           `json:"filename"`
	Size     int64            `json:"size"`
	Session  *SessionResponse `json:"session"`
}

type ProcessResponse struct {
	Run     int              `json:"run"`
	Session *SessionResponse `json:"session"`
}

// SessionStreamMessage is one websocket frame: either a snapshot or a deletion notice.
type SessionStreamMessage struct {
	Type      string           `json:"type"` // "progress" | "deleted"
	SessionId string           `json:"session_id"`
	Session   *SessionResponse `json:"session,omitempty"`
}
