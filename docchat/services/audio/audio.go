// Package audio captures microphone input and plays synthesized answers by
// driving external programs (ffmpeg, ffplay, ...).
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"docchat/docchat/utils/logging"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNothingCaptured  = errors.New("recorder captured no audio")
)

// Recorder captures one recording between Start and Stop.
type Recorder interface {
	// Supported reports whether this runtime can capture audio at all.
	Supported() bool
	Start(ctx context.Context) error
	// Stop ends the capture and returns the captured fragments in order and the
	// declared media type ("" when unknown).
	Stop() (fragments [][]byte, mediaType string, err error)
}

// Player plays one clip at a time.
type Player interface {
	Play(url string) error
	Stop() error
}

// SniffMediaType returns the declared type, or the type sniffed from data when
// the declaration is empty or application/octet-stream.
func SniffMediaType(data []byte, declared string) string {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if base != "" && base != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}

var audioExt = map[string]string{
	"audio/webm":   ".webm",
	"audio/ogg":    ".ogg",
	"audio/mpeg":   ".mp3",
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/wave":   ".wav",
	"audio/mp4":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"audio/aac":    ".aac",
}

// Extension returns a file extension (with dot) for an audio media type.
func Extension(mediaType string) string {
	base := strings.TrimSpace(strings.SplitN(mediaType, ";", 2)[0])
	if ext, ok := audioExt[base]; ok {
		return ext
	}
	if m := mimetype.Lookup(base); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".webm"
}

// IsAudio reports whether mediaType names an audio format.
func IsAudio(mediaType string) bool {
	return strings.HasPrefix(mediaType, "audio/")
}

// ExecRecorder records by running a capture command that writes the encoded
// stream to stdout, e.g. "ffmpeg -f pulse -i default -f webm -".
type ExecRecorder struct {
	Args      []string
	MediaType string

	mu        sync.Mutex
	cmd       *exec.Cmd
	done      chan error
	fragments [][]byte
	size      int
}

func NewExecRecorder(command, mediaType string) *ExecRecorder {
	return &ExecRecorder{Args: strings.Fields(command), MediaType: mediaType}
}

func (r *ExecRecorder) Supported() bool {
	if len(r.Args) == 0 {
		return false
	}
	_, err := exec.LookPath(r.Args[0])
	return err == nil
}

// Start launches the capture command. Cancelling ctx interrupts it the same
// way Stop does.
func (r *ExecRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return ErrAlreadyRecording
	}
	args := r.Args
	if len(args) == 0 {
		return fmt.Errorf("empty record command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.Stdout = fragmentWriter{r}
	cmd.WaitDelay = 2 * time.Second
	r.fragments = nil
	r.size = 0
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start recorder: %w", err)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	r.cmd, r.done = cmd, done
	logging.AppLogger.Info("recording started", zap.String("cmd", args[0]), zap.Int("pid", cmd.Process.Pid))
	return nil
}

// Stop interrupts the capture command and returns what it wrote. A command
// that failed before Stop, or a capture with no bytes, is an error.
func (r *ExecRecorder) Stop() ([][]byte, string, error) {
	r.mu.Lock()
	cmd, done := r.cmd, r.done
	r.mu.Unlock()
	if cmd == nil {
		return nil, "", fmt.Errorf("recorder not started")
	}

	var earlyErr error
	select {
	case earlyErr = <-done:
		if earlyErr != nil {
			earlyErr = fmt.Errorf("recorder exited before stop: %w", earlyErr)
		}
	default:
		// capture tools finalize their container on SIGINT
		if err := cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			_ = cmd.Process.Kill()
		}
		if err := <-done; err != nil {
			logging.AppLogger.Info("recorder exited", zap.Error(err))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmd, r.done = nil, nil
	frags, size := r.fragments, r.size
	r.fragments = nil
	logging.AppLogger.Info("recording stopped", zap.Int("bytes", size), zap.Int("fragments", len(frags)))
	if earlyErr != nil {
		return nil, "", earlyErr
	}
	if size == 0 {
		return nil, "", ErrNothingCaptured
	}
	return frags, r.MediaType, nil
}

// Captured returns the number of bytes captured so far.
func (r *ExecRecorder) Captured() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

type fragmentWriter struct{ r *ExecRecorder }

func (w fragmentWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.r.mu.Lock()
	w.r.fragments = append(w.r.fragments, bytes.Clone(p))
	w.r.size += len(p)
	w.r.mu.Unlock()
	return len(p), nil
}

// ExecPlayer plays a URL by launching a player command with the URL appended.
type ExecPlayer struct {
	Args []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewExecPlayer(command string) *ExecPlayer {
	return &ExecPlayer{Args: strings.Fields(command)}
}

// Play starts playback and returns without waiting for it to end.
func (p *ExecPlayer) Play(url string) error {
	if len(p.Args) == 0 {
		return fmt.Errorf("empty play command")
	}
	args := append(append([]string{}, p.Args[1:]...), url)
	cmd := exec.Command(p.Args[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player: %w", err)
	}
	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
	}()
	return nil
}

// Stop interrupts the current clip, if any.
func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	cmd := p.cmd
	p.cmd = nil
	p.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop player: %w", err)
	}
	return nil
}

// Playing reports whether a clip is running.
func (p *ExecPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}
