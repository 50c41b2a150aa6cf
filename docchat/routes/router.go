package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"docchat/docchat/app"
	"docchat/docchat/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter mounts the bridge API over an app workspace.
func NewRouter(a *app.App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Mount("/health", HealthRoutes(a.Health))
	r.Mount("/session", SessionRoutes(a.Sessions, a.Documents, a.Session, a.Config))
	r.Mount("/documents", DocumentRoutes(a.Documents, a.Config))
	r.Mount("/chat", ChatRoutes(ChatHandlers{
		Chat:     a.Chat,
		Voice:    a.Voice,
		Summary:  a.Summary,
		Timeline: a.Timeline,
	}, a.Config))
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.RequestLogger.Info("bridge request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// Serve runs the bridge on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.AppLogger.Info("bridge listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
		return err
	}
	logging.AppLogger.Info("server shutdown complete")
	return nil
}

// RunBridge restores the active session and serves the bridge API until ctx
// is cancelled.
func RunBridge(ctx context.Context, a *app.App) error {
	if a.Config.BridgeSecret == "" {
		return errors.New("DOCCHAT_BRIDGE_SECRET is required to run the bridge")
	}
	if err := a.Sessions.Init(ctx); err != nil {
		// the bridge still serves; clients can log in or start a chat later
		logging.AppLogger.Warn("session init failed", zap.Error(err))
	}
	return Serve(ctx, a.Config.BridgeAddr, NewRouter(a))
}
