package controllers

import (
	"context"
	"errors"
	"testing"

	httputils "docchat/docchat/utils/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	state := &fakeState{}
	c := NewAuthController(&fakeBackend{token: "jwt"}, state)

	require.NoError(t, c.Login(context.Background(), " a@b.c ", "pw"))
	assert.Equal(t, "jwt", state.token)
}

func TestLogin_Validation(t *testing.T) {
	c := NewAuthController(&fakeBackend{token: "jwt"}, &fakeState{})
	err := c.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrMissingFields)
	assert.EqualError(t, err, "Please fill in all fields")
}

func TestLogin_FailureText(t *testing.T) {
	withDetail := &fakeBackend{authErr: &httputils.StatusError{StatusCode: 401, Message: "Invalid credentials"}}
	err := NewAuthController(withDetail, &fakeState{}).Login(context.Background(), "a@b.c", "bad")
	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Invalid credentials", ae.Error())

	bare := &fakeBackend{authErr: errors.New("dial tcp: refused")}
	err = NewAuthController(bare, &fakeState{}).Login(context.Background(), "a@b.c", "pw")
	assert.EqualError(t, err, "Login failed")
}

func TestRegister(t *testing.T) {
	state := &fakeState{}
	c := NewAuthController(&fakeBackend{token: "jwt"}, state)

	assert.ErrorIs(t, c.Register(context.Background(), "Ann", "a@b.c", "pw", ""), ErrMissingFields)
	assert.ErrorIs(t, c.Register(context.Background(), "Ann", "a@b.c", "pw", "pw2"), ErrPasswordMismatch)
	assert.Empty(t, state.token)

	require.NoError(t, c.Register(context.Background(), "Ann", "a@b.c", "pw", "pw"))
	assert.Equal(t, "jwt", state.token)

	failing := NewAuthController(&fakeBackend{authErr: errors.New("boom")}, &fakeState{})
	assert.EqualError(t, failing.Register(context.Background(), "Ann", "a@b.c", "pw", "pw"), "Registration failed")
}
