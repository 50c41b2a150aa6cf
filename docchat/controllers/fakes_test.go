package controllers

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	httputils "docchat/docchat/utils/http"
	"docchat/docchat/utils/types"
)

// chunkReader hands out one chunk per Read call.
type chunkReader struct {
	chunks [][]byte
	err    error // returned once the chunks run out, io.EOF when nil
	onRead func(i int)
	i      int
	closed bool
}

func newChunkReader(parts ...string) *chunkReader {
	r := &chunkReader{}
	for _, p := range parts {
		r.chunks = append(r.chunks, []byte(p))
	}
	return r
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.onRead != nil {
		r.onRead(r.i)
	}
	if r.i >= len(r.chunks) {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.i])
	r.i++
	return n, nil
}

func (r *chunkReader) Close() error {
	r.closed = true
	return nil
}

type fakeBackend struct {
	mu sync.Mutex

	stream    *chunkReader
	streamErr error
	asked     []string

	voice      types.VoiceAnswer
	voiceErr   error
	voiceParts []httputils.FilePart

	sessions    []types.SessionRecord
	sessionsErr error
	nextIDs     []string
	history     map[string][]types.HistoryEntry
	historyErr  error

	docs      map[string][]types.DocumentRecord
	uploads   []httputils.FilePart
	uploadErr map[string]error
	deleted   []string
	deleteErr error
	fetched   []string
	fetchBody string

	summary    []byte
	summaryErr error

	token   string
	authErr error
}

func (f *fakeBackend) AskStream(ctx context.Context, sessionID, question string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.asked = append(f.asked, sessionID+":"+question)
	f.mu.Unlock()
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return f.stream, nil
}

func (f *fakeBackend) AskVoice(ctx context.Context, sessionID string, audio httputils.FilePart) (types.VoiceAnswer, error) {
	f.mu.Lock()
	f.voiceParts = append(f.voiceParts, audio)
	f.mu.Unlock()
	return f.voice, f.voiceErr
}

func (f *fakeBackend) ListSessions(ctx context.Context) ([]types.SessionRecord, error) {
	return f.sessions, f.sessionsErr
}

func (f *fakeBackend) NextSessionID(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.nextIDs) == 0 {
		return "", errors.New("no ids left")
	}
	id := f.nextIDs[0]
	f.nextIDs = f.nextIDs[1:]
	return id, nil
}

func (f *fakeBackend) History(ctx context.Context, sessionID string) ([]types.HistoryEntry, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history[sessionID], nil
}

func (f *fakeBackend) ListDocuments(ctx context.Context, sessionID string) ([]types.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.DocumentRecord{}, f.docs[sessionID]...), nil
}

func (f *fakeBackend) UploadDocument(ctx context.Context, sessionID string, file httputils.FilePart) (types.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.uploadErr[file.FileName]; err != nil {
		return types.UploadResponse{}, err
	}
	f.uploads = append(f.uploads, file)
	if f.docs == nil {
		f.docs = map[string][]types.DocumentRecord{}
	}
	f.docs[sessionID] = append(f.docs[sessionID], types.DocumentRecord{
		DocID: "doc-" + file.FileName,
		Metadata: types.DocumentMetadata{
			FileName: file.FileName,
			FileSize: int64(len(file.Data)),
			FileType: file.ContentType,
		},
	})
	return types.UploadResponse{Message: "uploaded"}, nil
}

func (f *fakeBackend) DeleteDocument(ctx context.Context, docID, sessionID string) (types.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return types.DeleteResponse{}, f.deleteErr
	}
	f.deleted = append(f.deleted, docID)
	kept := f.docs[sessionID][:0]
	for _, d := range f.docs[sessionID] {
		if d.DocID != docID {
			kept = append(kept, d)
		}
	}
	f.docs[sessionID] = kept
	return types.DeleteResponse{Message: "deleted"}, nil
}

func (f *fakeBackend) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	f.fetched = append(f.fetched, rawURL)
	return io.NopCloser(strings.NewReader(f.fetchBody)), nil
}

func (f *fakeBackend) Summarize(ctx context.Context, sessionID string) ([]byte, error) {
	return f.summary, f.summaryErr
}

func (f *fakeBackend) SummarizeAudio(ctx context.Context, sessionID string, audio httputils.FilePart) ([]byte, error) {
	return f.summary, f.summaryErr
}

func (f *fakeBackend) Login(ctx context.Context, req types.LoginRequest) (string, error) {
	return f.token, f.authErr
}

func (f *fakeBackend) Register(ctx context.Context, req types.RegisterRequest) (string, error) {
	return f.token, f.authErr
}

// fakeState is an in-memory SessionState.
type fakeState struct {
	mu      sync.Mutex
	id      string
	token   string
	cleared int
	saved   []string
}

func (s *fakeState) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *fakeState) SetSessionID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.saved = append(s.saved, id)
	return nil
}

func (s *fakeState) DropSessionID() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
}

func (s *fakeState) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *fakeState) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.token = "", ""
	s.cleared++
	return nil
}

func (s *fakeState) Load(ctx context.Context) error { return nil }

type countDocs int

func (c countDocs) Len() int { return int(c) }
