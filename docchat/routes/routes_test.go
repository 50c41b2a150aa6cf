package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"docchat/docchat/app"
	"docchat/docchat/config"
	"docchat/docchat/controllers"
	"docchat/docchat/middlewares"
	"docchat/docchat/timeline"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "bridge-secret"

// fakeAPI is a tiny stand-in for the document-chat backend.
type fakeAPI struct {
	mu         sync.Mutex
	docs       []map[string]any
	voiceTypes []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /session/get-next-session-id", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"next_session_id": 1}`))
	})
	mux.HandleFunc("GET /session/get-user-sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"session_id":"9","messages":[{"question":"old q","answer":"old a"}],"documents":[]}]`))
	})
	mux.HandleFunc("GET /doc/list-documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"documents": f.docs})
	})
	mux.HandleFunc("POST /doc/upload-document/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, fh, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.docs = append(f.docs, map[string]any{
			"doc_id":   "d" + fh.Filename,
			"metadata": map[string]any{"file_name": fh.Filename, "file_size": fh.Size, "file_type": fh.Header.Get("Content-Type")},
		})
		f.mu.Unlock()
		w.Write([]byte(`{"message":"ok"}`))
	})
	mux.HandleFunc("GET /chat/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("POST /chat/ask/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			if fhs := r.MultipartForm.File["audio_file"]; len(fhs) == 1 {
				f.mu.Lock()
				f.voiceTypes = append(f.voiceTypes, fhs[0].Header.Get("Content-Type"))
				f.mu.Unlock()
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"query":"who sat?","answer":"the cat"}`))
				return
			}
		}
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"The ", "cat ", "sat."} {
			w.Write([]byte(chunk))
			flusher.Flush()
		}
	})
	mux.HandleFunc("POST /chat/summarize/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-summary"))
	})
	return mux
}

type bridge struct {
	api   *fakeAPI
	app   *app.App
	srv   *httptest.Server
	token string
}

func newBridge(t *testing.T) *bridge {
	t.Helper()
	fake := &fakeAPI{}
	api := httptest.NewServer(fake.handler())
	t.Cleanup(api.Close)

	dir := t.TempDir()
	cfg := config.Config{
		APIBaseURL:   api.URL,
		StateBackend: "file",
		StatePath:    filepath.Join(dir, "state.yaml"),
		DBDriver:     "sqlite",
		DBDSN:        filepath.Join(dir, "docchat.db"),
		SummaryDir:   filepath.Join(dir, "summaries"),
		NatsSubject:  "docchat.timeline",
		BridgeSecret: secret,
	}
	a, err := app.Build(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NoError(t, a.Session.SetToken(context.Background(), "backend-token"))

	srv := httptest.NewServer(NewRouter(a))
	t.Cleanup(srv.Close)

	tok, err := middlewares.MintToken(secret, "test-client", time.Hour)
	require.NoError(t, err)
	return &bridge{api: fake, app: a, srv: srv, token: tok}
}

func (b *bridge) do(t *testing.T, method, path string, body []byte, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, b.srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+b.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func multipartFile(t *testing.T, field, name, contentType string, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	part.Write(data)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestHealthIsOpen(t *testing.T) {
	b := newBridge(t)
	resp, err := http.Get(b.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	b := newBridge(t)
	for _, path := range []string{"/session", "/documents", "/chat/messages"} {
		resp, err := http.Get(b.srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestBridgeFlow(t *testing.T) {
	b := newBridge(t)

	resp := b.do(t, http.MethodPost, "/session/new", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var view sessionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "1", view.SessionID)

	// asking without documents is refused
	resp = b.do(t, http.MethodPost, "/chat/ask", []byte(`{"question":"hi"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct := multipartFile(t, "file", "notes.txt", "text/plain", []byte("hello"))
	resp = b.do(t, http.MethodPost, "/documents", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartFile(t, "file", "report.pdf", "application/pdf", []byte("%PDF-1.4"))
	resp = b.do(t, http.MethodPost, "/documents", body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var outcomes []uploadOutcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&outcomes))
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].OK)
	assert.Equal(t, 1, b.app.Documents.Len())

	resp = b.do(t, http.MethodPost, "/chat/ask", []byte(`{"question":"what sat?"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var added []timeline.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&added))
	require.Len(t, added, 2)
	assert.Equal(t, "what sat?", added[0].Content)
	assert.Equal(t, "The cat sat.", added[1].Content)
	assert.Equal(t, timeline.StateComplete, added[1].State)

	resp = b.do(t, http.MethodPost, "/chat/summarize", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loc map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loc))
	assert.True(t, strings.HasSuffix(loc["location"], "DocAI_Session_1_Summary.pdf"))

	resp = b.do(t, http.MethodPost, "/session/use/9", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = b.do(t, http.MethodGet, "/chat/messages", nil, "")
	var msgs []timeline.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "old q", msgs[0].Content)

	resp = b.do(t, http.MethodPost, "/session/use/404", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketStreamsTimeline(t *testing.T) {
	b := newBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/chat/ws?token=" + b.token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// keep publishing until the handler has subscribed and forwards one
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				b.app.Timeline.Append(timeline.NewBotMessage("ping"))
			}
		}
	}()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var ev timeline.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, timeline.EventAppended, ev.Kind)
	assert.Equal(t, "ping", ev.Message.Content)
}

func TestVoiceRoute_SniffsOctetStreamParts(t *testing.T) {
	b := newBridge(t)
	resp := b.do(t, http.MethodPost, "/session/new", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// CreateFormFile declares application/octet-stream, as curl and most
	// non-browser clients do
	wav := append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio_file", "q.wav")
	require.NoError(t, err)
	part.Write(wav)
	require.NoError(t, mw.Close())

	resp = b.do(t, http.MethodPost, "/chat/voice", buf.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var added []timeline.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&added))
	require.Len(t, added, 2)
	assert.Equal(t, "who sat?", added[0].Content)
	assert.Equal(t, timeline.SourceVoice, added[0].Source)
	assert.Equal(t, "the cat", added[1].Content)
	assert.Equal(t, []string{"audio/wav"}, b.api.voiceTypes)
}

func TestUploadRoutes_RejectOversizedBodies(t *testing.T) {
	b := newBridge(t)
	resp := b.do(t, http.MethodPost, "/session/new", nil, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body, ct := multipartFile(t, "audio_file", "q.webm", "audio/webm", make([]byte, maxVoiceBody))
	resp = b.do(t, http.MethodPost, "/chat/voice", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Zero(t, b.app.Timeline.Len())

	pdf := append([]byte("%PDF-1.4\n"), make([]byte, controllers.MaxUploadSize)...)
	body, ct = multipartFile(t, "file", "big.pdf", "application/pdf", pdf)
	resp = b.do(t, http.MethodPost, "/documents", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, b.app.Documents.Len())
}
