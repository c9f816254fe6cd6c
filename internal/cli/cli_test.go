package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/campus/internal/session"
)

// fakeService is a minimal auth service with one account.
type fakeService struct {
	mu      sync.Mutex
	profile map[string]any
}

func newFakeService(t *testing.T) *httptest.Server {
	t.Helper()
	fs := &fakeService{profile: map[string]any{"name": "Ana", "email": "a@x.com"}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Password string }
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@x.com" || req.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid email or password"}`))
			return
		}
		w.Write([]byte(`{"token":"t1","role":"student"}`))
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Email, Role string }
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email == "a@x.com" {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error":"User already exists"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"role": req.Role})
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t1" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid token"}`))
			return
		}
		fs.mu.Lock()
		defer fs.mu.Unlock()
		if r.Method == http.MethodPut {
			var patch map[string]any
			json.NewDecoder(r.Body).Decode(&patch)
			for k, v := range patch {
				fs.profile[k] = v
			}
		}
		json.NewEncoder(w).Encode(fs.profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// run executes the command line args against srv with an isolated data dir.
func run(t *testing.T, srv *httptest.Server, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--api-url", srv.URL, "--data-dir", dataDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	srv := newFakeService(t)
	dir := t.TempDir()

	out, err := run(t, srv, dir, "login", "a@x.com", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Ana (student)")

	// The session survives the process through the sqlite store.
	out, err = run(t, srv, dir, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana (student)")
	assert.Contains(t, out, `"email": "a@x.com"`)

	out, err = run(t, srv, dir, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	_, err = run(t, srv, dir, "whoami")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
}

func TestLoginRejected(t *testing.T) {
	srv := newFakeService(t)
	dir := t.TempDir()

	_, err := run(t, srv, dir, "login", "a@x.com", "--password", "nope")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())

	_, err = run(t, srv, dir, "whoami")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
}

func TestLoginReadsPasswordFromStdin(t *testing.T) {
	srv := newFakeService(t)
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader("pw\n"))
	cmd.SetArgs([]string{"--api-url", srv.URL, "--ephemeral", "--data-dir", t.TempDir(), "login", "a@x.com"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Password: ")
	assert.Contains(t, out.String(), "Logged in as Ana")
}

func TestEphemeralSessionIsNotKept(t *testing.T) {
	srv := newFakeService(t)
	dir := t.TempDir()

	_, err := run(t, srv, dir, "--ephemeral", "login", "a@x.com", "--password", "pw")
	require.NoError(t, err)

	_, err = run(t, srv, dir, "whoami")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
}

func TestRegister(t *testing.T) {
	srv := newFakeService(t)
	dir := t.TempDir()

	out, err := run(t, srv, dir, "register", "b@x.com", "-u", "bea", "-p", "pw", "--role", "teacher")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered bea as teacher")

	_, err = run(t, srv, dir, "whoami")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn, "registering does not log in")

	_, err = run(t, srv, dir, "register", "a@x.com", "-u", "ana", "-p", "pw")
	require.Error(t, err)
	assert.Equal(t, "User already exists", err.Error())
}

func TestProfileUpdate(t *testing.T) {
	srv := newFakeService(t)
	dir := t.TempDir()

	_, err := run(t, srv, dir, "profile", "update", "--set", "name=Bea")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)

	_, err = run(t, srv, dir, "login", "a@x.com", "-p", "pw")
	require.NoError(t, err)

	out, err := run(t, srv, dir, "profile", "update", "--set", "name=Bea", "--set", "semester=3")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile updated.")
	assert.Contains(t, out, "Bea (student)")
	assert.Contains(t, out, `"semester": 3`)
}

func TestInvalidStoreFlag(t *testing.T) {
	srv := newFakeService(t)
	_, err := run(t, srv, t.TempDir(), "--store", "etcd", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store")
}

func TestBuildPatch(t *testing.T) {
	tests := []struct {
		name    string
		sets    []string
		raw     string
		want    string
		wantErr string
	}{
		{name: "strings", sets: []string{"name=Ana Lima", "bio="}, want: `{"name":"Ana Lima","bio":""}`},
		{name: "json values", sets: []string{"semester=3", "active=true", "tags=[\"a\"]"}, want: `{"semester":3,"active":true,"tags":["a"]}`},
		{name: "value with equals", sets: []string{"note=a=b"}, want: `{"note":"a=b"}`},
		{name: "raw object", raw: `{"name":"Ana"}`, want: `{"name":"Ana"}`},
		{name: "raw array", raw: `[1]`, wantErr: "JSON object"},
		{name: "raw null", raw: `null`, wantErr: "JSON object"},
		{name: "missing equals", sets: []string{"name"}, wantErr: "want key=value"},
		{name: "empty key", sets: []string{"=x"}, wantErr: "want key=value"},
		{name: "nothing", wantErr: "nothing to update"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPatch(tt.sets, tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}
