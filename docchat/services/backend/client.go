package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	httputils "docchat/docchat/utils/http"
	"docchat/docchat/utils/logging"
	"docchat/docchat/utils/types"

	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated means no usable bearer token; the call was not sent.
	ErrUnauthenticated = errors.New("no authentication token found")
	ErrNotFound        = errors.New("not found")
)

// TokenSource yields the current bearer token, "" when there is none.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the backend at baseURL. No request timeout is
// set; callers bound calls with their context.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListSessions returns the user's sessions. A non-array body is an empty list.
func (c *Client) ListSessions(ctx context.Context) ([]types.SessionRecord, error) {
	defer logging.LogDuration(ctx, "backend_list_sessions")()
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/session/get-user-sessions", &raw); err != nil {
		return nil, err
	}
	var sessions []types.SessionRecord
	if !decodeArray(raw, &sessions, "sessions") {
		return []types.SessionRecord{}, nil
	}
	return sessions, nil
}

// NextSessionID asks the backend for a fresh session id.
func (c *Client) NextSessionID(ctx context.Context) (string, error) {
	var resp types.NextSessionIDResponse
	if err := c.getJSON(ctx, "/session/get-next-session-id", &resp); err != nil {
		return "", err
	}
	id := idString(resp.NextSessionID)
	if id == "" {
		return "", fmt.Errorf("next session id: empty response")
	}
	return id, nil
}

// ListDocuments returns the documents of a session; 404 and malformed bodies
// are an empty list.
func (c *Client) ListDocuments(ctx context.Context, sessionID string) ([]types.DocumentRecord, error) {
	defer logging.LogDuration(ctx, "backend_list_documents")()
	var resp types.DocumentListResponse
	err := c.getJSON(ctx, "/doc/list-documents/"+url.PathEscape(sessionID), &resp)
	if errors.Is(err, ErrNotFound) {
		return []types.DocumentRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	var docs []types.DocumentRecord
	if !decodeArray(resp.Documents, &docs, "documents") {
		return []types.DocumentRecord{}, nil
	}
	return docs, nil
}

// UploadDocument sends one file. A 2xx answer can still carry an error field.
func (c *Client) UploadDocument(ctx context.Context, sessionID string, file httputils.FilePart) (types.UploadResponse, error) {
	defer logging.LogDuration(ctx, "backend_upload_document")()
	file.Field = "file"
	body, ct, err := httputils.MultipartBody(nil, &file)
	if err != nil {
		return types.UploadResponse{}, err
	}
	var resp types.UploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/doc/upload-document/"+url.PathEscape(sessionID), body, ct, &resp); err != nil {
		return types.UploadResponse{}, err
	}
	return resp, nil
}

func (c *Client) DeleteDocument(ctx context.Context, docID, sessionID string) (types.DeleteResponse, error) {
	var resp types.DeleteResponse
	path := "/doc/delete-document/" + url.PathEscape(docID) + "/" + url.PathEscape(sessionID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, "", &resp); err != nil {
		return types.DeleteResponse{}, err
	}
	return resp, nil
}

// History returns the question/answer log of a session; 404 and malformed
// bodies are an empty log.
func (c *Client) History(ctx context.Context, sessionID string) ([]types.HistoryEntry, error) {
	var resp types.HistoryResponse
	err := c.getJSON(ctx, "/chat/history/"+url.PathEscape(sessionID), &resp)
	if errors.Is(err, ErrNotFound) {
		return []types.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []types.HistoryEntry
	if !decodeArray(resp.Messages, &entries, "messages") {
		return []types.HistoryEntry{}, nil
	}
	return entries, nil
}

// AskStream posts a question and returns the chunked answer body. The caller
// owns the body and must close it.
func (c *Client) AskStream(ctx context.Context, sessionID, question string) (io.ReadCloser, error) {
	body, ct, err := httputils.MultipartBody(map[string]string{"question": question}, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, http.MethodPost, "/chat/ask/"+url.PathEscape(sessionID), body, ct)
	if err != nil {
		return nil, err
	}
	if err := httputils.CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("ask stream: %w", err)
	}
	return resp.Body, nil
}

// AskVoice posts a recording and returns transcript, answer and optional speech URL.
func (c *Client) AskVoice(ctx context.Context, sessionID string, audio httputils.FilePart) (types.VoiceAnswer, error) {
	defer logging.LogDuration(ctx, "backend_ask_voice")()
	audio.Field = "audio_file"
	body, ct, err := httputils.MultipartBody(nil, &audio)
	if err != nil {
		return types.VoiceAnswer{}, err
	}
	var resp types.VoiceAnswer
	if err := c.doJSON(ctx, http.MethodPost, "/chat/ask/"+url.PathEscape(sessionID), body, ct, &resp); err != nil {
		return types.VoiceAnswer{}, err
	}
	return resp, nil
}

// Summarize returns the session summary PDF.
func (c *Client) Summarize(ctx context.Context, sessionID string) ([]byte, error) {
	defer logging.LogDuration(ctx, "backend_summarize")()
	return c.doBytes(ctx, http.MethodPost, "/chat/summarize/"+url.PathEscape(sessionID), nil, "")
}

// SummarizeAudio uploads an audio file and returns its summary PDF.
func (c *Client) SummarizeAudio(ctx context.Context, sessionID string, audio httputils.FilePart) ([]byte, error) {
	defer logging.LogDuration(ctx, "backend_summarize_audio")()
	audio.Field = "audio_file"
	body, ct, err := httputils.MultipartBody(nil, &audio)
	if err != nil {
		return nil, err
	}
	return c.doBytes(ctx, http.MethodPost, "/chat/summarize-audio/"+url.PathEscape(sessionID), body, ct)
}

func (c *Client) Login(ctx context.Context, req types.LoginRequest) (string, error) {
	return c.authenticate(ctx, "/user/login", req)
}

func (c *Client) Register(ctx context.Context, req types.RegisterRequest) (string, error) {
	return c.authenticate(ctx, "/user/register", req)
}

// Fetch downloads an absolute URL without credentials, e.g. a stored document.
func (c *Client) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if err := httputils.CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return resp.Body, nil
}

func (c *Client) authenticate(ctx context.Context, path string, payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()
	logRequest(req, resp.StatusCode)
	if err := httputils.CheckStatus(resp); err != nil {
		return "", err
	}
	var out types.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode auth response: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("auth response without token")
	}
	return out.Token, nil
}

// send issues an authenticated request; it refuses to go out without a token.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	token := c.tokens.Token()
	if token == "" {
		logging.ErrorLogger.Error("No authentication token found", zap.String("path", path))
		return nil, ErrUnauthenticated
	}
	req, err := httputils.NewBearerRequest(ctx, method, c.baseURL+path, token, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		logging.ErrorLogger.Error("backend call failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("api call: %w", err)
	}
	logRequest(req, resp.StatusCode)
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	resp, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if err := httputils.CheckStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) doBytes(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	resp, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := httputils.CheckStatus(resp); err != nil {
		return nil, err
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return b, nil
}

func logRequest(req *http.Request, status int) {
	logging.RequestLogger.Info("backend request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", status),
	)
}

// decodeArray fills out when raw is a JSON array and reports whether it was.
func decodeArray(raw json.RawMessage, out any, what string) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		logging.ErrorLogger.Error("expected array in backend response",
			zap.String("field", what), zap.ByteString("got", clipBytes(trimmed)))
		return false
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		logging.ErrorLogger.Error("malformed array in backend response",
			zap.String("field", what), zap.Error(err))
		return false
	}
	return true
}

// idString accepts a JSON string or number.
func idString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func clipBytes(b []byte) []byte {
	if len(b) > 200 {
		return b[:200]
	}
	return b
}
