// docchat/utils/types/backend.go
package types

import "encoding/json"

// Wire shapes of the document-chat backend.

type HistoryEntry struct {
	Question        string `json:"question,omitempty" yaml:"question,omitempty"`
	RefinedQuestion string `json:"refined_question,omitempty" yaml:"refined_question,omitempty"`
	Answer          string `json:"answer,omitempty" yaml:"answer,omitempty"`
	Timestamp       string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

type DocumentMetadata struct {
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`
}

type DocumentRecord struct {
	DocID         string           `json:"doc_id"`
	Metadata      DocumentMetadata `json:"metadata"`
	UploadedAt    string           `json:"uploaded_at"`
	CloudinaryURL string           `json:"cloudinary_url"`
}

// SessionRecord is one entry of GET /session/get-user-sessions.
type SessionRecord struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryEntry   `json:"messages"`
	Documents []DocumentRecord `json:"documents"`
	UpdatedAt string           `json:"updated_at"`
}

type NextSessionIDResponse struct {
	NextSessionID json.RawMessage `json:"next_session_id"`
}

type DocumentListResponse struct {
	Documents json.RawMessage `json:"documents"`
}

type HistoryResponse struct {
	Messages json.RawMessage `json:"messages"`
}

type UploadResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type DeleteResponse struct {
	Message string `json:"message,omitempty"`
}

// VoiceAnswer is the JSON body answered to an audio_file ask.
type VoiceAnswer struct {
	Query    string `json:"query"`
	Answer   string `json:"answer"`
	AudioURL string `json:"audio_url,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	Detail  any    `json:"detail,omitempty"`
	Message string `json:"message,omitempty"`
}

// ClientState is what survives a restart: the bearer token and the active session.
type ClientState struct {
	Token     string `json:"token" yaml:"token"`
	SessionID string `json:"session_id" yaml:"session_id"`
}
