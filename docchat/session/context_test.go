package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"docchat/docchat/utils/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	state   types.ClientState
	saves   int
	cleared bool
	err     error
}

func (m *memStore) Load(context.Context) (types.ClientState, error) { return m.state, m.err }
func (m *memStore) Save(_ context.Context, s types.ClientState) error {
	m.saves++
	m.state = s
	return m.err
}
func (m *memStore) Clear(context.Context) error {
	m.cleared = true
	m.state = types.ClientState{}
	return m.err
}

func signed(t *testing.T, exp time.Time) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestContext_LoadSaveClear(t *testing.T) {
	store := &memStore{state: types.ClientState{Token: "opaque", SessionID: "7"}}
	c := NewContext(store)
	ctx := context.Background()

	require.NoError(t, c.Load(ctx))
	assert.Equal(t, "opaque", c.Token())
	assert.Equal(t, "7", c.SessionID())

	require.NoError(t, c.SetSessionID(ctx, "8"))
	assert.Equal(t, "8", store.state.SessionID)
	assert.Equal(t, "opaque", store.state.Token)

	c.DropSessionID()
	assert.Empty(t, c.SessionID())
	assert.Equal(t, "8", store.state.SessionID, "drop is not persisted")

	require.NoError(t, c.Clear(ctx))
	assert.True(t, store.cleared)
	assert.Empty(t, c.Token())
	assert.Empty(t, c.SessionID())
}

func TestContext_LoadError(t *testing.T) {
	c := NewContext(&memStore{err: errors.New("disk gone")})
	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestContext_ExpiredTokenIsMissing(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewContext(&memStore{})
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetToken(context.Background(), signed(t, now.Add(-time.Minute))))
	assert.Empty(t, c.Token())

	fresh := signed(t, now.Add(time.Hour))
	require.NoError(t, c.SetToken(context.Background(), fresh))
	assert.Equal(t, fresh, c.Token())
}

func TestTokenExpired_NonJWT(t *testing.T) {
	assert.False(t, TokenExpired("not-a-jwt", time.Now()))
}
