// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freetron/cli/internal/keychain"
)

func TestSessionPersistsCookies(t *testing.T) {
	km := keychain.NewMemory()
	const server = "https://forms.example.com"

	s, err := OpenSession(km, server)
	require.NoError(t, err)
	assert.False(t, s.Active())

	u, _ := url.Parse(server + "/rpc/account_login")
	s.Jar().SetCookies(u, []*http.Cookie{{Name: "session", Value: "abc123", Path: "/"}})
	assert.True(t, s.Active())
	require.NoError(t, s.Save())

	again, err := OpenSession(km, server)
	require.NoError(t, err)
	require.True(t, again.Active())
	cookies := again.Jar().Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc123", cookies[0].Value)
}

func TestSessionIgnoresOtherServer(t *testing.T) {
	km := keychain.NewMemory()
	s, err := OpenSession(km, "https://a.example.com")
	require.NoError(t, err)
	u, _ := url.Parse("https://a.example.com/")
	s.Jar().SetCookies(u, []*http.Cookie{{Name: "session", Value: "x", Path: "/"}})
	require.NoError(t, s.Save())

	other, err := OpenSession(km, "https://b.example.com")
	require.NoError(t, err)
	assert.False(t, other.Active())
}

func TestSessionClear(t *testing.T) {
	km := keychain.NewMemory()
	s, err := OpenSession(km, "http://localhost:8080")
	require.NoError(t, err)
	u, _ := url.Parse("http://localhost:8080/")
	s.Jar().SetCookies(u, []*http.Cookie{{Name: "session", Value: "x", Path: "/"}})
	require.NoError(t, s.Save())
	require.NoError(t, SetLoggedIn(km, "alice", "http://localhost:8080"))

	require.NoError(t, s.Clear())
	assert.False(t, s.Active())
	st, err := Load(km)
	require.NoError(t, err)
	assert.False(t, st.LoggedIn)

	reopened, err := OpenSession(km, "http://localhost:8080")
	require.NoError(t, err)
	assert.False(t, reopened.Active())
}

func TestSessionRebindKeepsJar(t *testing.T) {
	km := keychain.NewMemory()
	sock, _ := url.Parse("http://unix/")

	first, err := OpenSession(km, "http://unix")
	require.NoError(t, err)
	first.Jar().SetCookies(sock, []*http.Cookie{{Name: "session", Value: "via-socket", Path: "/"}})
	require.NoError(t, first.Save())

	s, err := OpenSession(km, "https://forms.example.com")
	require.NoError(t, err)
	jar := s.Jar()
	assert.False(t, s.Active())

	require.NoError(t, s.Rebind("http://unix"))
	assert.Same(t, jar, s.Jar())
	assert.True(t, s.Active())
	assert.Equal(t, "http://unix", s.Server())
	assert.Error(t, s.Rebind("::"))
}

func TestOpenSessionRejectsBadURL(t *testing.T) {
	_, err := OpenSession(keychain.NewMemory(), "not a url")
	assert.Error(t, err)
}

func TestStateRoundTrip(t *testing.T) {
	km := keychain.NewMemory()
	st, err := Load(km)
	require.NoError(t, err)
	assert.Equal(t, State{}, st)

	require.NoError(t, SetLoggedIn(km, "alice", "https://forms.example.com"))
	st, err = Load(km)
	require.NoError(t, err)
	assert.True(t, st.LoggedIn)
	assert.Equal(t, "alice", st.Account)
	assert.False(t, st.Since.IsZero())

	require.NoError(t, SetLoggedOut(km))
	st, err = Load(km)
	require.NoError(t, err)
	assert.False(t, st.LoggedIn)
}
