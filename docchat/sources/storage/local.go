// Package storage holds the places a generated summary can be written to.
package storage

import (
	"context"
	"os"
	"path/filepath"
)

// LocalSink writes summaries into a directory.
type LocalSink struct {
	Dir string
}

func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{Dir: dir}
}

func (s *LocalSink) SaveSummary(ctx context.Context, name string, pdf []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(s.Dir, filepath.Base(name))
	if err := os.WriteFile(p, pdf, 0o644); err != nil {
		return "", err
	}
	return p, nil
}
