// Package session holds the client state that outlives a single run: the bearer
// token and the active session id. It is passed explicitly to everything that
// talks to the backend.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docchat/docchat/utils/logging"
	"docchat/docchat/utils/types"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Store persists ClientState between runs.
type Store interface {
	Load(ctx context.Context) (types.ClientState, error)
	Save(ctx context.Context, state types.ClientState) error
	Clear(ctx context.Context) error
}

type Context struct {
	store Store
	mu    sync.RWMutex
	state types.ClientState
	now   func() time.Time
}

func NewContext(store Store) *Context {
	return &Context{store: store, now: time.Now}
}

// Load replaces the in-memory state with the persisted one.
func (c *Context) Load(ctx context.Context) error {
	st, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load client state: %w", err)
	}
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
	return nil
}

// Save persists the in-memory state.
func (c *Context) Save(ctx context.Context) error {
	c.mu.RLock()
	st := c.state
	c.mu.RUnlock()
	if err := c.store.Save(ctx, st); err != nil {
		return fmt.Errorf("save client state: %w", err)
	}
	return nil
}

// Clear forgets both token and session id, in memory and on disk.
func (c *Context) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.state = types.ClientState{}
	c.mu.Unlock()
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear client state: %w", err)
	}
	return nil
}

// Token returns the bearer token, or "" when absent or expired.
func (c *Context) Token() string {
	c.mu.RLock()
	tok := c.state.Token
	c.mu.RUnlock()
	if tok == "" {
		return ""
	}
	if TokenExpired(tok, c.now()) {
		logging.ErrorLogger.Error("bearer token expired")
		return ""
	}
	return tok
}

func (c *Context) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.SessionID
}

func (c *Context) State() types.ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Context) SetToken(ctx context.Context, token string) error {
	c.mu.Lock()
	c.state.Token = token
	c.mu.Unlock()
	return c.Save(ctx)
}

func (c *Context) SetSessionID(ctx context.Context, id string) error {
	c.mu.Lock()
	c.state.SessionID = id
	c.mu.Unlock()
	return c.Save(ctx)
}

// DropSessionID clears the active id in memory only; the persisted id survives
// until a new one is saved.
func (c *Context) DropSessionID() {
	c.mu.Lock()
	c.state.SessionID = ""
	c.mu.Unlock()
}

// TokenExpired inspects the exp claim without verifying the signature; the
// backend is the verifier. Tokens that are not JWTs never expire here.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	expired := !now.Before(exp.Time)
	if expired {
		logging.AppLogger.Info("token past expiry", zap.Time("exp", exp.Time))
	}
	return expired
}
