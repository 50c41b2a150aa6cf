package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"docchat/docchat/config"
	"docchat/docchat/controllers"
	"docchat/docchat/middlewares"
	"docchat/docchat/timeline"
	"docchat/docchat/utils/logging"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wsBuffer bounds how far a websocket client may lag behind the timeline
// before it is disconnected.
const wsBuffer = 256

type ChatHandlers struct {
	Chat     *controllers.ChatController
	Voice    *controllers.VoiceController
	Summary  *controllers.SummaryController
	Timeline *timeline.Timeline
}

type askRequest struct {
	Question string `json:"question"`
}

func ChatRoutes(h ChatHandlers, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Get("/messages", handleJSON(func(r *http.Request) (any, int, error) {
			return h.Timeline.Snapshot(), http.StatusOK, nil
		}))

		// POST /chat/ask : blocks until the answer is final and returns the new messages
		gr.With(limitBody(maxJSONBody)).Post("/ask", handleJSON(func(r *http.Request) (any, int, error) {
			var req askRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, requestStatus(err), err
			}
			before := h.Timeline.Len()
			err := h.Chat.Ask(r.Context(), req.Question)
			return withMessages(since(h.Timeline, before), err)
		}))

		// POST /chat/voice : multipart "audio_file"; a missing or octet-stream
		// part type is sniffed from the bytes
		gr.With(limitBody(maxVoiceBody)).Post("/voice", handleJSON(func(r *http.Request) (any, int, error) {
			f, fh, err := r.FormFile("audio_file")
			if err != nil {
				return nil, requestStatus(err), err
			}
			defer f.Close()
			if fh.Size > controllers.MaxUploadSize {
				return nil, http.StatusRequestEntityTooLarge, controllers.ErrFileTooLarge
			}
			data, err := io.ReadAll(f)
			if err != nil {
				return nil, requestStatus(err), err
			}
			before := h.Timeline.Len()
			err = h.Voice.SubmitAudio(r.Context(), data, fh.Header.Get("Content-Type"))
			return withMessages(since(h.Timeline, before), err)
		}))

		gr.Post("/summarize", handleJSON(func(r *http.Request) (any, int, error) {
			location, err := h.Summary.Summarize(r.Context())
			if err != nil {
				return nil, statusFor(err), err
			}
			return map[string]string{"location": location}, http.StatusOK, nil
		}))

		gr.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
			if err != nil {
				return
			}
			defer conn.Close(websocket.StatusInternalError, "internal error")
			streamTimeline(r.Context(), conn, h.Timeline)
		})
	})
	return r
}

// withMessages answers with the messages a submission published. A failure
// that published nothing is reported as a plain error.
func withMessages(added []timeline.Message, err error) (any, int, error) {
	if err == nil {
		return added, http.StatusOK, nil
	}
	if len(added) == 0 {
		return nil, statusFor(err), err
	}
	return added, statusFor(err), nil
}

// since returns the messages appended after the first n.
func since(tl *timeline.Timeline, n int) []timeline.Message {
	snap := tl.Snapshot()
	if n > len(snap) {
		// reset in between
		return snap
	}
	return snap[n:]
}

// streamTimeline pushes every timeline event to conn until the peer goes away.
func streamTimeline(ctx context.Context, conn *websocket.Conn, tl *timeline.Timeline) {
	ctx = conn.CloseRead(ctx)
	events := make(chan timeline.Event, wsBuffer)
	overflow := make(chan struct{})
	var closed bool

	unsubscribe := tl.Subscribe(func(ev timeline.Event) {
		if closed {
			return
		}
		select {
		case events <- ev:
		default:
			closed = true
			close(overflow)
		}
	})
	defer unsubscribe()

	logging.AppLogger.Info("websocket client attached", zap.String("client", middlewares.ClientFromContext(ctx)))
	for {
		select {
		case <-ctx.Done():
			return
		case <-overflow:
			conn.Close(websocket.StatusPolicyViolation, "slow consumer")
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				logging.ErrorLogger.Error("websocket write error", zap.Error(err))
				return
			}
		}
	}
}
