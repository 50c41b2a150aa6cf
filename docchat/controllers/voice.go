package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"docchat/docchat/services/audio"
	"docchat/docchat/timeline"
	httputils "docchat/docchat/utils/http"
	"docchat/docchat/utils/logging"

	"go.uber.org/zap"
)

type VoicePhase string

const (
	VoiceIdle       VoicePhase = "idle"
	VoiceRecording  VoicePhase = "recording"
	VoiceProcessing VoicePhase = "processing"
)

var errNoTranscript = errors.New("backend returned no transcription")

type VoiceController struct {
	backend  ChatBackend
	state    SessionState
	timeline *timeline.Timeline
	gate     *InputGate
	recorder audio.Recorder
	player   audio.Player

	mu    sync.Mutex
	phase VoicePhase
}

// NewVoiceController wires the voice path. recorder and player may be nil when
// the runtime has no audio devices; uploads through SubmitAudio still work.
func NewVoiceController(backend ChatBackend, state SessionState, tl *timeline.Timeline, gate *InputGate, recorder audio.Recorder, player audio.Player) *VoiceController {
	return &VoiceController{
		backend:  backend,
		state:    state,
		timeline: tl,
		gate:     gate,
		recorder: recorder,
		player:   player,
		phase:    VoiceIdle,
	}
}

func (v *VoiceController) Phase() VoicePhase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

func (v *VoiceController) setPhase(p VoicePhase) {
	v.mu.Lock()
	v.phase = p
	v.mu.Unlock()
}

// Supported reports whether live recording is available.
func (v *VoiceController) Supported() bool {
	return v.recorder != nil && v.recorder.Supported()
}

// Start begins a recording. It holds the input gate until Stop finishes
// processing, so no text question can run in between.
func (v *VoiceController) Start(ctx context.Context) error {
	if !v.Supported() {
		return ErrRecordingUnsupported
	}
	if v.Phase() != VoiceIdle {
		return ErrBusy
	}
	if !v.gate.TryAcquire() {
		return ErrBusy
	}
	if err := v.recorder.Start(ctx); err != nil {
		v.gate.Release()
		logging.ErrorLogger.Error("microphone unavailable", zap.Error(err))
		v.timeline.Append(timeline.NewBotMessage(MsgMicUnavailable))
		return fmt.Errorf("start recording: %w", err)
	}
	v.setPhase(VoiceRecording)
	return nil
}

// Stop ends the recording and submits it.
func (v *VoiceController) Stop(ctx context.Context) error {
	v.mu.Lock()
	if v.phase != VoiceRecording {
		v.mu.Unlock()
		return ErrNotRecording
	}
	v.phase = VoiceProcessing
	v.mu.Unlock()
	defer func() {
		v.setPhase(VoiceIdle)
		v.gate.Release()
	}()

	fragments, declared, err := v.recorder.Stop()
	if err != nil {
		logging.ErrorLogger.Error("capture failed", zap.Error(err))
		v.timeline.Append(timeline.NewBotMessage(MsgMicUnavailable))
		return fmt.Errorf("stop recording: %w", err)
	}
	blob := bytes.Join(fragments, nil)
	if len(blob) == 0 {
		logging.ErrorLogger.Error("capture failed", zap.Error(ErrNoAudio))
		v.timeline.Append(timeline.NewBotMessage(MsgMicUnavailable))
		return ErrNoAudio
	}
	return v.process(ctx, blob, audio.SniffMediaType(blob, declared))
}

// SubmitAudio processes an already captured clip. An empty mediaType is
// sniffed from the data.
func (v *VoiceController) SubmitAudio(ctx context.Context, data []byte, mediaType string) error {
	if v.Phase() != VoiceIdle {
		return ErrBusy
	}
	if !v.gate.TryAcquire() {
		return ErrBusy
	}
	v.setPhase(VoiceProcessing)
	defer func() {
		v.setPhase(VoiceIdle)
		v.gate.Release()
	}()
	return v.process(ctx, data, audio.SniffMediaType(data, mediaType))
}

// SubmitFile reads an audio file from disk and submits it.
func (v *VoiceController) SubmitFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audio file: %w", err)
	}
	return v.SubmitAudio(ctx, data, "")
}

func (v *VoiceController) process(ctx context.Context, blob []byte, mediaType string) error {
	defer logging.LogDuration(ctx, "voice_ask")()

	if !audio.IsAudio(mediaType) {
		logging.AppLogger.Warn("rejected recording", zap.String("media_type", mediaType))
		v.timeline.Append(timeline.NewBotMessage(MsgUnsupportedAudio))
		return ErrUnsupportedAudio
	}
	sessionID := v.state.SessionID()
	if sessionID == "" {
		v.timeline.Append(timeline.NewBotMessage(MsgVoiceFailed))
		return ErrNoSession
	}

	ans, err := v.backend.AskVoice(ctx, sessionID, httputils.FilePart{
		FileName:    "recording" + audio.Extension(mediaType),
		ContentType: mediaType,
		Data:        blob,
	})
	if err == nil && ans.Query == "" {
		err = errNoTranscript
	}
	if err != nil {
		logging.ErrorLogger.Error("voice query failed", zap.Error(err))
		v.timeline.Append(timeline.NewBotMessage(MsgVoiceFailed))
		return fmt.Errorf("voice ask: %w", err)
	}

	v.timeline.Append(timeline.NewUserMessage(ans.Query, timeline.SourceVoice))
	answer := ans.Answer
	if answer == "" {
		answer = MsgNoAnswer
	}
	v.timeline.Append(timeline.NewBotMessage(answer))

	if ans.AudioURL != "" {
		v.play(ans.AudioURL)
	}
	return nil
}

// play starts the answer clip, interrupting any clip still playing.
func (v *VoiceController) play(url string) {
	if v.player == nil {
		return
	}
	if err := v.player.Stop(); err != nil {
		logging.AppLogger.Warn("stop previous clip", zap.Error(err))
	}
	if err := v.player.Play(url); err != nil {
		logging.AppLogger.Warn("playback failed", zap.String("url", url), zap.Error(err))
	}
}

// StopPlayback silences the current answer clip.
func (v *VoiceController) StopPlayback() error {
	if v.player == nil {
		return nil
	}
	return v.player.Stop()
}
