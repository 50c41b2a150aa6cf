package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"docchat/docchat/services/backend"
	httputils "docchat/docchat/utils/http"
	"docchat/docchat/utils/logging"
	"docchat/docchat/utils/types"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const MaxUploadSize = 10 * 1024 * 1024

var allowedDocumentTypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
}

// UploadFile is a document picked for upload.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadResult is the outcome of one file of a batch; Err is nil on success.
type UploadResult struct {
	File string `json:"file"`
	Err  error  `json:"-"`
}

// Error returns the failure text or "".
func (r UploadResult) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// LoadUploadFile reads a document from disk and sniffs its media type.
func LoadUploadFile(path string) (UploadFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return UploadFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UploadFile{
		Name:        filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

// ValidateUpload applies the client-side type and size rules.
func ValidateUpload(f UploadFile) error {
	if !allowedDocumentType(f.ContentType) {
		return ErrInvalidFileType
	}
	if len(f.Data) > MaxUploadSize {
		return ErrFileTooLarge
	}
	return nil
}

func allowedDocumentType(contentType string) bool {
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if base == "" {
		return false
	}
	for _, t := range allowedDocumentTypes {
		if base == t {
			return true
		}
	}
	// catch aliases such as application/x-pdf
	if m := mimetype.Lookup(base); m != nil {
		for _, t := range allowedDocumentTypes {
			if m.Is(t) {
				return true
			}
		}
	}
	return false
}

// DocumentController is the client-side registry of the active session's
// documents.
type DocumentController struct {
	backend DocumentBackend
	state   SessionState

	mu   sync.RWMutex
	docs []types.DocumentRecord
}

func NewDocumentController(backend DocumentBackend, state SessionState) *DocumentController {
	return &DocumentController{backend: backend, state: state}
}

// Documents returns a copy of the registry.
func (c *DocumentController) Documents() []types.DocumentRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.DocumentRecord{}, c.docs...)
}

func (c *DocumentController) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Replace swaps the whole registry, used when hydrating a session.
func (c *DocumentController) Replace(docs []types.DocumentRecord) {
	c.mu.Lock()
	c.docs = append([]types.DocumentRecord{}, docs...)
	c.mu.Unlock()
}

func (c *DocumentController) Find(docID string) (types.DocumentRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.docs {
		if d.DocID == docID {
			return d, true
		}
	}
	return types.DocumentRecord{}, false
}

// Refresh re-fetches the registry for the active session. Without a token the
// registry is left untouched.
func (c *DocumentController) Refresh(ctx context.Context) error {
	sessionID := c.state.SessionID()
	if sessionID == "" {
		return ErrNoSession
	}
	docs, err := c.backend.ListDocuments(ctx, sessionID)
	if errors.Is(err, backend.ErrUnauthenticated) {
		logging.AppLogger.Info("skipping document refresh without token")
		return nil
	}
	if err != nil {
		logging.ErrorLogger.Error("list documents", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("list documents: %w", err)
	}
	if c.state.SessionID() != sessionID {
		// session switched while the request was out
		return nil
	}
	c.Replace(docs)
	return nil
}

// UploadBatch uploads files one at a time. Any invalid file rejects the whole
// batch before a request is made. A failing file does not stop the rest.
func (c *DocumentController) UploadBatch(ctx context.Context, files []UploadFile) ([]UploadResult, error) {
	defer logging.LogDuration(ctx, "upload_batch")()

	for _, f := range files {
		if err := ValidateUpload(f); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	sessionID := c.state.SessionID()
	if sessionID == "" {
		return nil, ErrNoSession
	}

	results := make([]UploadResult, 0, len(files))
	for _, f := range files {
		resp, err := c.backend.UploadDocument(ctx, sessionID, httputils.FilePart{
			FileName:    f.Name,
			ContentType: f.ContentType,
			Data:        f.Data,
		})
		if err == nil && resp.Error != "" {
			err = errors.New(resp.Error)
		}
		if err != nil {
			logging.ErrorLogger.Error("upload failed", zap.String("file", f.Name), zap.Error(err))
			results = append(results, UploadResult{File: f.Name, Err: err})
			continue
		}
		logging.AppLogger.Info("uploaded", zap.String("file", f.Name), zap.Int("bytes", len(f.Data)))
		results = append(results, UploadResult{File: f.Name})
		if err := c.Refresh(ctx); err != nil {
			logging.AppLogger.Warn("refresh after upload", zap.Error(err))
		}
	}
	return results, nil
}

// Delete removes a document from the active session and re-fetches the list.
func (c *DocumentController) Delete(ctx context.Context, docID string) error {
	sessionID := c.state.SessionID()
	if sessionID == "" {
		return ErrNoSession
	}
	if _, err := c.backend.DeleteDocument(ctx, docID, sessionID); err != nil {
		logging.ErrorLogger.Error("delete document", zap.String("doc_id", docID), zap.Error(err))
		return fmt.Errorf("delete document: %w", err)
	}
	return c.Refresh(ctx)
}

// Download saves a registered document into dir and returns the file path.
func (c *DocumentController) Download(ctx context.Context, docID, dir string) (string, error) {
	doc, ok := c.Find(docID)
	if !ok {
		return "", ErrUnknownDocument
	}
	if doc.CloudinaryURL == "" {
		return "", fmt.Errorf("document %s has no download url", docID)
	}
	body, err := c.backend.Fetch(ctx, doc.CloudinaryURL)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer body.Close()

	name := filepath.Base(doc.Metadata.FileName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = doc.DocID
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Clear empties the registry.
func (c *DocumentController) Clear() {
	c.Replace(nil)
}
