package controllers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"docchat/docchat/services/audio"
	"docchat/docchat/timeline"
	httputils "docchat/docchat/utils/http"
	"docchat/docchat/utils/logging"

	"go.uber.org/zap"
)

type SummaryController struct {
	backend  SummaryBackend
	state    SessionState
	timeline *timeline.Timeline
	sink     SummarySink
}

func NewSummaryController(backend SummaryBackend, state SessionState, tl *timeline.Timeline, sink SummarySink) *SummaryController {
	return &SummaryController{backend: backend, state: state, timeline: tl, sink: sink}
}

func SessionSummaryName(sessionID string) string {
	return fmt.Sprintf("DocAI_Session_%s_Summary.pdf", sessionID)
}

func AudioSummaryName(sessionID string) string {
	return fmt.Sprintf("Summary_%s.pdf", sessionID)
}

// Summarize asks for a PDF summary of the active session and stores it. It
// returns where the file went.
func (c *SummaryController) Summarize(ctx context.Context) (string, error) {
	defer logging.LogDuration(ctx, "summarize")()

	id := c.state.SessionID()
	if id == "" {
		return "", ErrNoSession
	}
	pdf, err := c.backend.Summarize(ctx, id)
	if err != nil {
		logging.ErrorLogger.Error("summary download failed", zap.String("session_id", id), zap.Error(err))
		c.timeline.Append(timeline.NewBotMessage(MsgSummaryFailed))
		return "", fmt.Errorf("summarize: %w", err)
	}
	return c.save(ctx, SessionSummaryName(id), pdf)
}

// SummarizeAudio uploads an audio file and stores the summary PDF made from it.
func (c *SummaryController) SummarizeAudio(ctx context.Context, path string) (string, error) {
	defer logging.LogDuration(ctx, "summarize_audio")()

	id := c.state.SessionID()
	if id == "" {
		return "", ErrNoSession
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}
	mediaType := audio.SniffMediaType(data, "")
	if !audio.IsAudio(mediaType) {
		return "", ErrUnsupportedAudio
	}
	pdf, err := c.backend.SummarizeAudio(ctx, id, httputils.FilePart{
		FileName:    filepath.Base(path),
		ContentType: mediaType,
		Data:        data,
	})
	if err != nil {
		logging.ErrorLogger.Error("audio summary failed", zap.String("session_id", id), zap.Error(err))
		return "", fmt.Errorf("summarize audio: %w", err)
	}
	return c.save(ctx, AudioSummaryName(id), pdf)
}

func (c *SummaryController) save(ctx context.Context, name string, pdf []byte) (string, error) {
	location, err := c.sink.SaveSummary(ctx, name, pdf)
	if err != nil {
		return "", fmt.Errorf("save summary: %w", err)
	}
	logging.AppLogger.Info("summary saved", zap.String("location", location), zap.Int("bytes", len(pdf)))
	return location, nil
}
