package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"docchat/docchat/timeline"
	"docchat/docchat/utils/logging"

	"go.uber.org/zap"
)

// InputGate is the single "request in flight" flag shared by the text and
// voice paths.
type InputGate struct {
	busy atomic.Bool
}

func (g *InputGate) TryAcquire() bool { return g.busy.CompareAndSwap(false, true) }
func (g *InputGate) Release()         { g.busy.Store(false) }
func (g *InputGate) Busy() bool       { return g.busy.Load() }

// DocumentCounter reports how many documents the active session has.
type DocumentCounter interface {
	Len() int
}

type ChatController struct {
	backend  ChatBackend
	state    SessionState
	docs     DocumentCounter
	timeline *timeline.Timeline
	gate     *InputGate
}

func NewChatController(backend ChatBackend, state SessionState, docs DocumentCounter, tl *timeline.Timeline, gate *InputGate) *ChatController {
	return &ChatController{backend: backend, state: state, docs: docs, timeline: tl, gate: gate}
}

// Ask sends a question and streams the answer into the timeline. The user
// message and an empty streaming placeholder are appended before the request
// goes out; the placeholder is replaced after every chunk that yields text and
// finalized exactly once.
func (c *ChatController) Ask(ctx context.Context, question string) error {
	defer logging.LogDuration(ctx, "chat_ask")()

	q := strings.TrimSpace(question)
	if q == "" {
		return ErrEmptyQuestion
	}
	if c.docs.Len() == 0 {
		return ErrNoDocuments
	}
	// a voice query in flight blocks input before the session is looked at
	if c.gate.Busy() {
		return ErrBusy
	}
	sessionID := c.state.SessionID()
	if sessionID == "" {
		c.timeline.Append(timeline.NewBotMessage(MsgSessionMissing))
		return ErrNoSession
	}
	if !c.gate.TryAcquire() {
		return ErrBusy
	}
	defer c.gate.Release()

	c.timeline.Append(timeline.NewUserMessage(q, timeline.SourceText))
	placeholder := timeline.NewStreamingPlaceholder()
	c.timeline.Append(placeholder)

	body, err := c.backend.AskStream(ctx, sessionID, q)
	if err != nil {
		return c.finishWithError(ctx, placeholder, "", err)
	}
	defer body.Close()

	var (
		dec     utf8Stream
		content strings.Builder
		buf     = make([]byte, 4096)
		chunks  int
	)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			chunks++
			if text := dec.Decode(buf[:n]); text != "" {
				content.WriteString(text)
				c.replace(placeholder, content.String(), timeline.StateStreaming)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			content.WriteString(dec.Flush())
			return c.finishWithError(ctx, placeholder, content.String(), readErr)
		}
		if ctx.Err() != nil {
			content.WriteString(dec.Flush())
			return c.finishWithError(ctx, placeholder, content.String(), ctx.Err())
		}
	}

	content.WriteString(dec.Flush())
	c.replace(placeholder, content.String(), timeline.StateComplete)
	logging.AppLogger.Info("answer streamed",
		zap.String("session_id", sessionID),
		zap.Int("chunks", chunks),
		zap.Int("bytes", content.Len()),
	)
	return nil
}

// finishWithError finalizes the placeholder after a failed request. A
// cancelled context keeps whatever text already arrived.
func (c *ChatController) finishWithError(ctx context.Context, placeholder timeline.Message, partial string, err error) error {
	if ctx.Err() != nil {
		logging.AppLogger.Info("answer cancelled", zap.Int("bytes", len(partial)))
		c.replace(placeholder, partial, timeline.StateCancelled)
		return ctx.Err()
	}
	logging.ErrorLogger.Error("answer stream failed", zap.Error(err))
	c.replace(placeholder, MsgStreamFailed, timeline.StateFailed)
	return fmt.Errorf("ask: %w", err)
}

func (c *ChatController) replace(placeholder timeline.Message, content string, state timeline.State) {
	if err := c.timeline.Replace(placeholder.ID, placeholder.WithContent(content, state)); err != nil {
		// the timeline was reset underneath us (session switch)
		logging.AppLogger.Warn("placeholder gone", zap.String("id", placeholder.ID), zap.Error(err))
	}
}

// utf8Stream decodes a byte stream chunk by chunk, holding back a trailing
// multi-byte sequence until the rest of it arrives.
type utf8Stream struct {
	pending []byte
}

func (s *utf8Stream) Decode(p []byte) string {
	data := make([]byte, 0, len(s.pending)+len(p))
	data = append(data, s.pending...)
	data = append(data, p...)

	cut := len(data)
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if !utf8.FullRune(data[i:]) {
				cut = i
			}
			break
		}
	}
	s.pending = append([]byte(nil), data[cut:]...)
	return strings.ToValidUTF8(string(data[:cut]), "�")
}

// Flush returns whatever is still held back, with invalid bytes replaced.
func (s *utf8Stream) Flush() string {
	if len(s.pending) == 0 {
		return ""
	}
	out := strings.ToValidUTF8(string(s.pending), "�")
	s.pending = nil
	return out
}
