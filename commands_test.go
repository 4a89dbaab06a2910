package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/keyhole/internal/api"
)

// sessionServer accepts one account and tracks a single session cookie.
func sessionServer(t *testing.T) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	active := map[string]bool{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sanctum/csrf-cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "tok", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds)) {
			return
		}
		if creds.Password != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"invalid","errors":{"email":["These credentials do not match our records."]}}`))
			return
		}
		mu.Lock()
		active["s1"] = true
		mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "app_session", Value: "s1", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /logout", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("app_session"); err == nil {
			mu.Lock()
			delete(active, c.Value)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("app_session")
		mu.Lock()
		ok := err == nil && active[c.Value]
		mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"name":"Ada","email":"ada@example.com","created_at":"2024-03-01T10:00:00Z"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testOptions(t *testing.T, baseURL string) *rootOptions {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache_dir: "+dir+"\n"), 0o600))
	t.Setenv("KEYHOLE_BASE_URL", "")
	return &rootOptions{configPath: path, baseURL: baseURL}
}

func TestWhoami_NotLoggedIn(t *testing.T) {
	srv := sessionServer(t)
	opts := testOptions(t, srv.URL)

	e, err := setup(opts)
	require.NoError(t, err)
	defer e.Close()

	var out bytes.Buffer
	require.NoError(t, whoami(context.Background(), e, &out))
	assert.Equal(t, "not logged in\n", out.String())
}

func TestCommands_SessionSurvivesRestart(t *testing.T) {
	srv := sessionServer(t)
	opts := testOptions(t, srv.URL)
	ctx := context.Background()

	e, err := setup(opts)
	require.NoError(t, err)
	require.NoError(t, e.store.Login(ctx, api.Credentials{Email: "ada@example.com", Password: "secret"}))
	require.True(t, e.store.IsLoggedIn())
	e.Close()

	e, err = setup(opts)
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, whoami(ctx, e, &out))
	assert.Contains(t, out.String(), "Ada <ada@example.com> (id 7)")
	assert.Contains(t, out.String(), "member since 2024-03-01")

	out.Reset()
	require.NoError(t, logout(ctx, e, &out))
	assert.Equal(t, "logged out\n", out.String())
	e.Close()

	e, err = setup(opts)
	require.NoError(t, err)
	defer e.Close()
	out.Reset()
	require.NoError(t, whoami(ctx, e, &out))
	assert.Equal(t, "not logged in\n", out.String())
}

func TestCommands_RejectedLoginKeepsNoSession(t *testing.T) {
	srv := sessionServer(t)
	opts := testOptions(t, srv.URL)
	ctx := context.Background()

	e, err := setup(opts)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.store.Login(ctx, api.Credentials{Email: "ada@example.com", Password: "nope"}))
	assert.False(t, e.store.IsLoggedIn())
	assert.Equal(t, "These credentials do not match our records.", e.store.LoginErrors().Email)

	saved, err := e.db.LoadCookies()
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestSetup_RejectsBadBaseURL(t *testing.T) {
	opts := testOptions(t, "ftp://example.com")
	_, err := setup(opts)
	assert.Error(t, err)
}

func TestRootCmd_BaseURLFlag(t *testing.T) {
	srv := sessionServer(t)
	opts := testOptions(t, "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"whoami", "--config", opts.configPath, "--base-url", srv.URL})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "not logged in\n", out.String())
	assert.Empty(t, os.Getenv("KEYHOLE_BASE_URL"), "flags stay out of the process environment")
}
