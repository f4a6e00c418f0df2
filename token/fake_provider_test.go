package token_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testClientID     = "12345"
	testClientSecret = "client-secret"
	testRedirectURI  = "http://localhost:5000/callback"
	validCode        = "valid-code"
	validRefresh     = "refresh-1"
	rotatedRefresh   = "refresh-2"
)

type testOAuthConfig struct {
	tokenURL string
	timeout  time.Duration
}

func (c testOAuthConfig) GetClientID() string { return testClientID }
func (c testOAuthConfig) GetClientSecret() string { return testClientSecret }
func (c testOAuthConfig) GetRedirectURI() string { return testRedirectURI }
func (c testOAuthConfig) GetAuthURL() string { return "https://www.strava.com/oauth/authorize" }
func (c testOAuthConfig) GetTokenURL() string { return c.tokenURL }
func (c testOAuthConfig) GetScopes() []string { return []string{"activity:read_all", "profile:read_all"} }
func (c testOAuthConfig) GetTokenTimeout() time.Duration { return c.timeout }

// fakeTokenEndpoint mimics Strava's /oauth/token
type fakeTokenEndpoint struct {
	server *httptest.Server

	mu        sync.Mutex
	forms     []url.Values
	exchanges atomic.Int32
	refreshes atomic.Int32

	// optional hooks
	delay      time.Duration
	release    chan struct{}
	omitExpiry bool
	expiresAt  int64
}

func newFakeTokenEndpoint(t *testing.T) *fakeTokenEndpoint {
	t.Helper()
	f := &fakeTokenEndpoint{expiresAt: time.Now().Add(6 * time.Hour).Unix()}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeTokenEndpoint) config() testOAuthConfig {
	return testOAuthConfig{tokenURL: f.server.URL + "/oauth/token", timeout: 2 * time.Second}
}

func (f *fakeTokenEndpoint) lastForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.forms) == 0 {
		return nil
	}
	return f.forms[len(f.forms)-1]
}

func (f *fakeTokenEndpoint) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.forms = append(f.forms, r.PostForm)
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if r.PostForm.Get("client_id") != testClientID || r.PostForm.Get("client_secret") != testClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Authorization Error"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		f.exchanges.Add(1)
		if r.PostForm.Get("code") != validCode {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Bad Request", "errors": []map[string]string{{"field": "code", "code": "invalid"}}})
			return
		}
		f.writeToken(w, "access-1", validRefresh)
	case "refresh_token":
		f.refreshes.Add(1)
		if r.PostForm.Get("refresh_token") != validRefresh {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Bad Request"})
			return
		}
		f.writeToken(w, "access-2", rotatedRefresh)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "unsupported grant"})
	}
}

func (f *fakeTokenEndpoint) writeToken(w http.ResponseWriter, access, refresh string) {
	body := map[string]any{
		"token_type":    "Bearer",
		"access_token":  access,
		"refresh_token": refresh,
		"expires_in":    21600,
	}
	if !f.omitExpiry {
		body["expires_at"] = f.expiresAt
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
