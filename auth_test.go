package main

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthDisabledWithoutSecret(t *testing.T) {
	assert.Nil(t, NewAuth("", true))

	var a *Auth
	id, err := a.Authenticate(httptest.NewRequest("GET", "/ws", nil))
	assert.NoError(t, err)
	assert.Nil(t, id)
}

func TestIssueAndValidate(t *testing.T) {
	a := NewAuth("s3cret", false)
	token, err := a.Issue("user-1", "Nova", "advanced", time.Hour)
	require.NoError(t, err)

	id, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{Subject: "user-1", Name: "Nova", Tier: "advanced"}, id)
}

func TestValidateRejects(t *testing.T) {
	a := NewAuth("s3cret", false)
	other := NewAuth("different", false)

	foreign, err := other.Issue("user-1", "Nova", "", time.Hour)
	require.NoError(t, err)
	expired, err := a.Issue("user-1", "Nova", "", -time.Minute)
	require.NoError(t, err)
	nameless, err := a.Issue("user-1", "", "", time.Hour)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"expired":      expired,
		"no name":      nameless,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Validate(token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestAuthenticateSources(t *testing.T) {
	a := NewAuth("s3cret", true)
	token, err := a.Issue("user-2", "Vega", "", time.Hour)
	require.NoError(t, err)

	_, err = a.Authenticate(httptest.NewRequest("GET", "/ws", nil))
	assert.ErrorIs(t, err, ErrTokenMissing)

	id, err := a.Authenticate(httptest.NewRequest("GET", "/ws?token="+token, nil))
	require.NoError(t, err)
	assert.Equal(t, "Vega", id.Name)

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	id, err = a.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "user-2", id.Subject)

	optional := NewAuth("s3cret", false)
	id, err = optional.Authenticate(httptest.NewRequest("GET", "/ws", nil))
	assert.NoError(t, err)
	assert.Nil(t, id)
}
