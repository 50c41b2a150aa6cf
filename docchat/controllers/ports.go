package controllers

import (
	"context"
	"errors"
	"io"

	httputils "docchat/docchat/utils/http"
	"docchat/docchat/utils/types"
)

var (
	ErrNoSession            = errors.New("no active session")
	ErrNoDocuments          = errors.New("no documents registered for this session")
	ErrEmptyQuestion        = errors.New("question is empty")
	ErrBusy                 = errors.New("another request is in flight")
	ErrUnsupportedAudio     = errors.New("unsupported audio format")
	ErrRecordingUnsupported = errors.New("audio recording is not supported here")
	ErrNotRecording         = errors.New("not recording")
	ErrNoAudio              = errors.New("no audio captured")
	ErrInvalidFileType      = errors.New("Only PDF and Word documents are supported")
	ErrFileTooLarge         = errors.New("File size must be less than 10MB")
	ErrUnknownDocument      = errors.New("unknown document")
	ErrUnknownSession       = errors.New("unknown session")
)

// Fixed user-visible texts published into the timeline.
const (
	MsgStreamFailed       = "Sorry, something went wrong while getting the response."
	MsgSessionMissing     = "Session ID is missing. Please try again."
	MsgUnsupportedAudio   = "Unsupported audio format."
	MsgVoiceFailed        = "Failed to process your voice query. Please try again."
	MsgNoAnswer           = "No answer returned from backend."
	MsgMicUnavailable     = "Microphone access denied or unavailable."
	MsgSummaryFailed      = "Failed to download summary PDF. Try again later."
	MsgFillAllFields      = "Please fill in all fields"
	MsgPasswordsDontMatch = "Passwords do not match"
)

// SessionBackend is the session part of the backend.
type SessionBackend interface {
	ListSessions(ctx context.Context) ([]types.SessionRecord, error)
	NextSessionID(ctx context.Context) (string, error)
	History(ctx context.Context, sessionID string) ([]types.HistoryEntry, error)
}

// DocumentBackend is the document part of the backend.
type DocumentBackend interface {
	ListDocuments(ctx context.Context, sessionID string) ([]types.DocumentRecord, error)
	UploadDocument(ctx context.Context, sessionID string, file httputils.FilePart) (types.UploadResponse, error)
	DeleteDocument(ctx context.Context, docID, sessionID string) (types.DeleteResponse, error)
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// ChatBackend is the question-answering part of the backend.
type ChatBackend interface {
	AskStream(ctx context.Context, sessionID, question string) (io.ReadCloser, error)
	AskVoice(ctx context.Context, sessionID string, audio httputils.FilePart) (types.VoiceAnswer, error)
}

type SummaryBackend interface {
	Summarize(ctx context.Context, sessionID string) ([]byte, error)
	SummarizeAudio(ctx context.Context, sessionID string, audio httputils.FilePart) ([]byte, error)
}

type AuthBackend interface {
	Login(ctx context.Context, req types.LoginRequest) (string, error)
	Register(ctx context.Context, req types.RegisterRequest) (string, error)
}

// SessionState is what controllers need from the session context.
type SessionState interface {
	SessionID() string
	SetSessionID(ctx context.Context, id string) error
	DropSessionID()
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Load(ctx context.Context) error
}

// SummarySink stores a generated summary and returns where it went.
type SummarySink interface {
	SaveSummary(ctx context.Context, name string, pdf []byte) (string, error)
}

// SessionCache keeps the last known snapshots of sessions.
type SessionCache interface {
	PutSessions(ctx context.Context, sessions []types.SessionRecord) error
	GetSession(ctx context.Context, id string) (*types.SessionRecord, error)
	ListSessions(ctx context.Context, limit int) ([]types.SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
}
