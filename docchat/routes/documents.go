package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"docchat/docchat/config"
	"docchat/docchat/controllers"
	"docchat/docchat/middlewares"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
)

const maxUploadMemory = 32 << 20

type uploadOutcome struct {
	File  string `json:"file"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func DocumentRoutes(ctrl *controllers.DocumentController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
			if r.URL.Query().Get("refresh") == "1" {
				if err := ctrl.Refresh(r.Context()); err != nil {
					return nil, statusFor(err), err
				}
			}
			return ctrl.Documents(), http.StatusOK, nil
		}))

		// POST /documents : multipart, one or more "file" parts
		gr.With(limitBody(maxUploadBody)).Post("/", handleJSON(func(r *http.Request) (any, int, error) {
			files, err := readUploads(r)
			if err != nil {
				return nil, requestStatus(err), err
			}
			results, err := ctrl.UploadBatch(r.Context(), files)
			if err != nil {
				return nil, statusFor(err), err
			}
			out := make([]uploadOutcome, 0, len(results))
			for _, res := range results {
				out = append(out, uploadOutcome{File: res.File, OK: res.Err == nil, Error: res.Error()})
			}
			return out, http.StatusOK, nil
		}))

		gr.Delete("/{doc_id}", func(w http.ResponseWriter, r *http.Request) {
			if err := ctrl.Delete(r.Context(), chi.URLParam(r, "doc_id")); err != nil {
				writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
	return r
}

func readUploads(r *http.Request) ([]controllers.UploadFile, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, err
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		return nil, errors.New("no file parts")
	}
	if len(headers) > maxBatchFiles {
		return nil, fmt.Errorf("at most %d files per upload", maxBatchFiles)
	}
	files := make([]controllers.UploadFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > controllers.MaxUploadSize {
			return nil, fmt.Errorf("%s: %w", fh.Filename, controllers.ErrFileTooLarge)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = mimetype.Detect(data).String()
		}
		files = append(files, controllers.UploadFile{Name: fh.Filename, ContentType: contentType, Data: data})
	}
	return files, nil
}
