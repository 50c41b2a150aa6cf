package controllers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"docchat/docchat/timeline"
	"docchat/docchat/utils/logging"
	"docchat/docchat/utils/types"

	"go.uber.org/zap"
)

type SessionPhase string

const (
	SessionNone    SessionPhase = "no-session"
	SessionPending SessionPhase = "pending-id"
	SessionActive  SessionPhase = "active"
)

// SessionController owns which session is active and keeps the timeline and
// document registry in step with it.
type SessionController struct {
	backend  SessionBackend
	state    SessionState
	docs     *DocumentController
	timeline *timeline.Timeline
	cache    SessionCache

	mu    sync.Mutex
	phase SessionPhase
}

// NewSessionController builds the lifecycle controller. cache may be nil.
func NewSessionController(backend SessionBackend, state SessionState, docs *DocumentController, tl *timeline.Timeline, cache SessionCache) *SessionController {
	return &SessionController{
		backend:  backend,
		state:    state,
		docs:     docs,
		timeline: tl,
		cache:    cache,
		phase:    SessionNone,
	}
}

func (c *SessionController) Phase() SessionPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *SessionController) setPhase(p SessionPhase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// Init restores the persisted session, or starts a new chat when none is stored.
func (c *SessionController) Init(ctx context.Context) error {
	defer logging.LogDuration(ctx, "session_init")()

	if err := c.state.Load(ctx); err != nil {
		return fmt.Errorf("load client state: %w", err)
	}
	if id := c.state.SessionID(); id != "" {
		logging.AppLogger.Info("resuming session", zap.String("session_id", id))
		c.setPhase(SessionActive)
		return c.refresh(ctx)
	}
	return c.NewChat(ctx)
}

// NewChat clears local state and always asks the backend for a fresh id.
func (c *SessionController) NewChat(ctx context.Context) error {
	defer logging.LogDuration(ctx, "new_chat")()

	c.timeline.Reset(nil)
	c.docs.Clear()
	c.state.DropSessionID()
	c.setPhase(SessionPending)

	id, err := c.backend.NextSessionID(ctx)
	if err != nil {
		c.setPhase(SessionNone)
		logging.ErrorLogger.Error("next session id", zap.Error(err))
		return fmt.Errorf("new chat: %w", err)
	}
	if err := c.state.SetSessionID(ctx, id); err != nil {
		c.setPhase(SessionNone)
		return fmt.Errorf("persist session id: %w", err)
	}
	c.setPhase(SessionActive)
	logging.AppLogger.Info("new session", zap.String("session_id", id))
	return c.refresh(ctx)
}

// LoadSession replaces the timeline and registry with the snapshot's contents.
func (c *SessionController) LoadSession(ctx context.Context, snap types.SessionRecord) error {
	if snap.SessionID == "" {
		return ErrUnknownSession
	}
	c.timeline.Reset(timeline.FromHistory(snap.Messages))
	c.docs.Replace(snap.Documents)
	if err := c.state.SetSessionID(ctx, snap.SessionID); err != nil {
		return fmt.Errorf("persist session id: %w", err)
	}
	c.setPhase(SessionActive)
	logging.AppLogger.Info("session loaded",
		zap.String("session_id", snap.SessionID),
		zap.Int("messages", len(snap.Messages)),
		zap.Int("documents", len(snap.Documents)),
	)
	return nil
}

// cachedSessionLimit bounds the offline session list.
const cachedSessionLimit = 50

// Use switches to the session with the given id. While the backend answers it
// is authoritative and a session missing from its list is evicted from the
// cache; otherwise the cached snapshot is used.
func (c *SessionController) Use(ctx context.Context, id string) error {
	sessions, err := c.remoteSessions(ctx)
	if err == nil {
		for _, s := range sessions {
			if s.SessionID == id {
				return c.LoadSession(ctx, s)
			}
		}
		if c.cache != nil {
			if derr := c.cache.DeleteSession(ctx, id); derr != nil {
				logging.AppLogger.Warn("session cache eviction failed", zap.String("session_id", id), zap.Error(derr))
			}
		}
		return ErrUnknownSession
	}

	logging.AppLogger.Warn("session list unavailable, trying cache", zap.Error(err))
	if c.cache != nil {
		snap, cerr := c.cache.GetSession(ctx, id)
		if cerr == nil && snap != nil {
			return c.LoadSession(ctx, *snap)
		}
	}
	return errors.Join(ErrUnknownSession, err)
}

// ListSessions returns the user's sessions and refreshes the local cache.
// When the backend cannot be reached the cached sessions are returned instead.
func (c *SessionController) ListSessions(ctx context.Context) ([]types.SessionRecord, error) {
	sessions, err := c.remoteSessions(ctx)
	if err == nil || c.cache == nil {
		return sessions, err
	}
	cached, cerr := c.cache.ListSessions(ctx, cachedSessionLimit)
	if cerr != nil || len(cached) == 0 {
		return nil, err
	}
	logging.AppLogger.Warn("backend session list failed, serving cache",
		zap.Int("cached", len(cached)), zap.Error(err))
	return cached, nil
}

func (c *SessionController) remoteSessions(ctx context.Context) ([]types.SessionRecord, error) {
	sessions, err := c.backend.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if c.cache != nil && len(sessions) > 0 {
		if err := c.cache.PutSessions(ctx, sessions); err != nil {
			logging.AppLogger.Warn("session cache write failed", zap.Error(err))
		}
	}
	return sessions, nil
}

// History reloads the timeline from the backend's history of the active session.
func (c *SessionController) History(ctx context.Context) error {
	id := c.state.SessionID()
	if id == "" {
		return ErrNoSession
	}
	entries, err := c.backend.History(ctx, id)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if c.state.SessionID() != id {
		return nil
	}
	c.timeline.Reset(timeline.FromHistory(entries))
	return nil
}

// Logout forgets the token and the session.
func (c *SessionController) Logout(ctx context.Context) error {
	c.timeline.Reset(nil)
	c.docs.Clear()
	c.setPhase(SessionNone)
	if err := c.state.Clear(ctx); err != nil {
		return fmt.Errorf("clear client state: %w", err)
	}
	return nil
}

func (c *SessionController) refresh(ctx context.Context) error {
	return errors.Join(c.docs.Refresh(ctx), c.History(ctx))
}
