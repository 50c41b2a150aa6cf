package controllers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docchat/docchat/timeline"
	httputils "docchat/docchat/utils/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	saved map[string][]byte
}

func (m *memSink) SaveSummary(ctx context.Context, name string, pdf []byte) (string, error) {
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[name] = pdf
	return "mem://" + name, nil
}

func TestSummarize(t *testing.T) {
	sink := &memSink{}
	c := NewSummaryController(&fakeBackend{summary: []byte("%PDF")}, &fakeState{id: "12"}, timeline.New(), sink)

	loc, err := c.Summarize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mem://DocAI_Session_12_Summary.pdf", loc)
	assert.Equal(t, []byte("%PDF"), sink.saved["DocAI_Session_12_Summary.pdf"])
}

func TestSummarize_FailurePublishesMessage(t *testing.T) {
	tl := timeline.New()
	sink := &memSink{}
	c := NewSummaryController(&fakeBackend{summaryErr: errors.New("bad status: 500")}, &fakeState{id: "12"}, tl, sink)

	_, err := c.Summarize(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{MsgSummaryFailed}, contents(tl))
	assert.Empty(t, sink.saved)
}

func TestSummarize_NoSession(t *testing.T) {
	c := NewSummaryController(&fakeBackend{}, &fakeState{}, timeline.New(), &memSink{})
	_, err := c.Summarize(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSummarizeAudio(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "meeting.wav")
	require.NoError(t, os.WriteFile(clip, append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...), 0o644))
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("plain text"), 0o644))

	sink := &memSink{}
	c := NewSummaryController(&fakeBackend{summary: []byte("%PDF")}, &fakeState{id: "5"}, timeline.New(), sink)

	loc, err := c.SummarizeAudio(context.Background(), clip)
	require.NoError(t, err)
	assert.Equal(t, "mem://Summary_5.pdf", loc)

	_, err = c.SummarizeAudio(context.Background(), notes)
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
}

func TestSummarizeAudio_BackendErrorText(t *testing.T) {
	dir := t.TempDir()
	clip := filepath.Join(dir, "meeting.wav")
	require.NoError(t, os.WriteFile(clip, append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...), 0o644))

	be := &fakeBackend{summaryErr: &httputils.StatusError{StatusCode: 400, Message: "Audio too short"}}
	c := NewSummaryController(be, &fakeState{id: "5"}, timeline.New(), &memSink{})

	_, err := c.SummarizeAudio(context.Background(), clip)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Audio too short")
}
