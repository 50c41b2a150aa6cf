package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"docchat/docchat/controllers"
	"docchat/docchat/services/backend"
	httputils "docchat/docchat/utils/http"
	"docchat/docchat/utils/logging"

	"go.uber.org/zap"
)

func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			logging.RequestLogger.Info("bridge request failed",
				zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, status, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps controller and backend errors onto bridge status codes.
func statusFor(err error) int {
	var se *httputils.StatusError
	switch {
	case errors.Is(err, controllers.ErrEmptyQuestion),
		errors.Is(err, controllers.ErrNoDocuments),
		errors.Is(err, controllers.ErrInvalidFileType),
		errors.Is(err, controllers.ErrFileTooLarge),
		errors.Is(err, controllers.ErrUnsupportedAudio):
		return http.StatusBadRequest
	case errors.Is(err, controllers.ErrNoSession),
		errors.Is(err, controllers.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, controllers.ErrUnknownDocument),
		errors.Is(err, controllers.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, backend.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

const (
	maxJSONBody   = 1 << 20
	maxBatchFiles = 10
	maxVoiceBody  = controllers.MaxUploadSize + 1<<20
	maxUploadBody = maxBatchFiles*controllers.MaxUploadSize + 1<<20
)

// limitBody caps the request body at n bytes.
func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// requestStatus maps an error hit while reading a request body.
func requestStatus(err error) int {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
		return http.StatusRequestEntityTooLarge
	}
	if status := statusFor(err); status != http.StatusInternalServerError {
		return status
	}
	return http.StatusBadRequest
}
