// Package app wires configuration, persistence and controllers into one
// workspace shared by the CLI and the bridge server.
package app

import (
	"context"
	"fmt"

	"docchat/docchat/config"
	"docchat/docchat/controllers"
	"docchat/docchat/services/audio"
	"docchat/docchat/services/backend"
	"docchat/docchat/services/events"
	"docchat/docchat/session"
	"docchat/docchat/sources/localstate"
	"docchat/docchat/sources/psql"
	"docchat/docchat/sources/psql/dao"
	"docchat/docchat/sources/storage"
	"docchat/docchat/timeline"
	"docchat/docchat/utils/logging"

	"go.uber.org/zap"
)

type App struct {
	Config   config.Config
	Session  *session.Context
	Backend  *backend.Client
	Timeline *timeline.Timeline
	Gate     *controllers.InputGate

	Health    *controllers.HealthController
	Auth      *controllers.AuthController
	Sessions  *controllers.SessionController
	Documents *controllers.DocumentController
	Chat      *controllers.ChatController
	Voice     *controllers.VoiceController
	Summary   *controllers.SummaryController

	// Events is nil unless NATS_URL is set.
	Events *events.Client

	closers []func()
}

// Build opens the state store, summary sink and optional event bus and wires
// the controllers. Nothing is fetched from the backend yet; call
// Sessions.Init for that.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{Config: cfg, Timeline: timeline.New(), Gate: &controllers.InputGate{}}

	var (
		store session.Store
		cache controllers.SessionCache
	)
	db, err := psql.NewDatabase(ctx, cfg)
	switch {
	case err != nil && cfg.StateBackend == "db":
		return nil, fmt.Errorf("database connection error: %w", err)
	case err != nil:
		logging.AppLogger.Warn("session cache disabled", zap.Error(err))
	default:
		a.closers = append(a.closers, db.Close)
		cache = dao.NewSessionCacheDAO(db.DB)
		if cfg.StateBackend == "db" {
			store = dao.NewClientStateDAO(db.DB)
		}
	}
	if store == nil {
		store = localstate.NewFileStore(cfg.StatePath)
	}

	var sink controllers.SummarySink = storage.NewLocalSink(cfg.SummaryDir)
	if cfg.UsesMinIO() {
		minioSink, err := storage.NewMinIOSink(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("minio connection error: %w", err)
		}
		sink = minioSink
	}

	a.Session = session.NewContext(store)
	a.Backend = backend.NewClient(cfg.APIBaseURL, a.Session)

	a.Health = controllers.NewHealthController(a.Backend, a.Session)
	a.Auth = controllers.NewAuthController(a.Backend, a.Session)
	a.Documents = controllers.NewDocumentController(a.Backend, a.Session)
	a.Sessions = controllers.NewSessionController(a.Backend, a.Session, a.Documents, a.Timeline, cache)
	a.Chat = controllers.NewChatController(a.Backend, a.Session, a.Documents, a.Timeline, a.Gate)
	a.Summary = controllers.NewSummaryController(a.Backend, a.Session, a.Timeline, sink)

	var recorder audio.Recorder
	if r := audio.NewExecRecorder(cfg.RecordCmd, cfg.RecordMIME); r.Supported() {
		recorder = r
	}
	var player audio.Player
	if p := audio.NewExecPlayer(cfg.PlayCmd); len(p.Args) > 0 {
		player = p
		a.closers = append(a.closers, func() { _ = p.Stop() })
	}
	a.Voice = controllers.NewVoiceController(a.Backend, a.Session, a.Timeline, a.Gate, recorder, player)

	if cfg.NatsURL != "" {
		bus, err := events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken)
		if err != nil {
			logging.AppLogger.Warn("timeline events disabled", zap.Error(err))
		} else {
			stop := events.Forward(a.Timeline, bus, cfg.NatsSubject, a.Session.SessionID)
			a.closers = append(a.closers, bus.Close, stop)
			a.Events = bus
		}
	}
	return a, nil
}

// Close releases everything Build opened, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
