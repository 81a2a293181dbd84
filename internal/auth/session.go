// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"freetron/cli/internal/keychain"
)

// Session is the cookie jar shared with the transport, bound to one server.
type Session struct {
	km     *keychain.Manager
	server *url.URL
	jar    *cookiejar.Jar
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

type storedSession struct {
	Server  string         `json:"server"`
	Cookies []storedCookie `json:"cookies"`
}

// OpenSession restores the cookies saved for server. Cookies saved for a
// different server are ignored.
func OpenSession(km *keychain.Manager, server string) (*Session, error) {
	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", server)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	s := &Session{km: km, server: u, jar: jar}
	if err := s.restore(); err != nil {
		return nil, err
	}
	return s, nil
}

// Rebind points the session at another server URL, keeping the jar the
// transport already holds, and restores cookies saved for that server.
func (s *Session) Rebind(server string) error {
	u, err := url.Parse(server)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid server URL %q", server)
	}
	if u.String() == s.server.String() {
		return nil
	}
	s.server = u
	return s.restore()
}

func (s *Session) restore() error {
	data, err := s.km.LoadSession()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		// unreadable sessions are dropped, the user logs in again
		return nil
	}
	if stored.Server != s.server.String() {
		return nil
	}
	cookies := make([]*http.Cookie, 0, len(stored.Cookies))
	for _, c := range stored.Cookies {
		if !c.Expires.IsZero() && c.Expires.Before(time.Now()) {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/", Expires: c.Expires})
	}
	s.jar.SetCookies(s.server, cookies)
	return nil
}

// Server is the URL cookies are kept for.
func (s *Session) Server() string { return s.server.String() }

// Jar returns the jar to install on the HTTP client.
func (s *Session) Jar() http.CookieJar { return s.jar }

// Active reports whether the jar holds any cookie for the server.
func (s *Session) Active() bool { return len(s.jar.Cookies(s.server)) > 0 }

// Save writes the current cookies back to the keychain.
func (s *Session) Save() error {
	cookies := s.jar.Cookies(s.server)
	stored := storedSession{Server: s.server.String(), Cookies: make([]storedCookie, 0, len(cookies))}
	for _, c := range cookies {
		stored.Cookies = append(stored.Cookies, storedCookie{Name: c.Name, Value: c.Value})
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return s.km.SaveSession(b)
}

// Clear expires every cookie in the jar and drops the keychain copy.
func (s *Session) Clear() error {
	for _, c := range s.jar.Cookies(s.server) {
		s.jar.SetCookies(s.server, []*http.Cookie{{Name: c.Name, Path: "/", MaxAge: -1}})
	}
	return s.km.ClearAuth()
}
