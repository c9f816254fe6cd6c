package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fragmede/campus/internal/api"
	"github.com/fragmede/campus/internal/store"
)

// fakeService is an in-memory auth service speaking the real wire format.
type fakeService struct {
	mu          sync.Mutex
	users       map[string]string // email -> password
	roles       map[string]string // email -> role
	tokens      map[string]string // token -> email
	profiles    map[string]string // email -> profile JSON
	authSeen    []string
	profileHits atomic.Int32
}

func (f *fakeService) with(fn func(f *fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func newFakeService() *fakeService {
	return &fakeService{
		users:    map[string]string{"a@x.com": "pw"},
		roles:    map[string]string{"a@x.com": "student"},
		tokens:   map[string]string{},
		profiles: map[string]string{"a@x.com": `{"name":"A"}`},
	}
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authSeen = append(f.authSeen, r.Header.Get("Authorization"))

	writeErr := func(status int, msg string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": msg})
	}
	authed := func() (string, bool) {
		h := r.Header.Get("Authorization")
		if len(h) < 7 {
			return "", false
		}
		email, ok := f.tokens[h[7:]]
		return email, ok
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		var req api.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if pw, ok := f.users[req.Email]; !ok || pw != req.Password {
			writeErr(http.StatusUnauthorized, "Invalid email or password")
			return
		}
		token := "t1"
		f.tokens[token] = req.Email
		json.NewEncoder(w).Encode(api.LoginResponse{Token: token, Role: f.roles[req.Email]})

	case r.Method == http.MethodPost && r.URL.Path == "/auth/register":
		var req api.RegisterRequest
		json.NewDecoder(r.Body).Decode(&req)
		if _, exists := f.users[req.Email]; exists {
			writeErr(http.StatusConflict, "Email already registered")
			return
		}
		f.users[req.Email] = req.Password
		f.roles[req.Email] = req.Role
		json.NewEncoder(w).Encode(api.RegisterResponse{Role: req.Role})

	case r.Method == http.MethodGet && r.URL.Path == "/profile":
		f.profileHits.Add(1)
		email, ok := authed()
		if !ok {
			writeErr(http.StatusUnauthorized, "Unauthorized")
			return
		}
		w.Write([]byte(f.profiles[email]))

	case r.Method == http.MethodPut && r.URL.Path == "/profile":
		email, ok := authed()
		if !ok {
			writeErr(http.StatusUnauthorized, "Unauthorized")
			return
		}
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeErr(http.StatusBadRequest, "Invalid profile data")
			return
		}
		if name, ok := patch["name"].(string); ok && name == "" {
			writeErr(http.StatusBadRequest, "Name cannot be empty")
			return
		}
		var current map[string]any
		json.Unmarshal([]byte(f.profiles[email]), &current)
		for k, v := range patch {
			current[k] = v
		}
		data, _ := json.Marshal(current)
		f.profiles[email] = string(data)
		w.Write(data)

	default:
		http.NotFound(w, r)
	}
}

func setup(t *testing.T) (*fakeService, *api.Client) {
	t.Helper()
	f := newFakeService()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, api.NewClient(srv.URL, api.WithTimeout(2*time.Second))
}

func TestLoginSuccess(t *testing.T) {
	f, client := setup(t)
	st := store.NewMemory()
	ctx := context.Background()
	m := New(ctx, st, client)
	m.Restore(ctx)

	res := m.Login(ctx, "a@x.com", "pw")

	assert.Equal(t, Result{Success: true, Role: "student"}, res)
	s := m.State()
	assert.Equal(t, "t1", s.Token)
	assert.Equal(t, "student", s.Role)
	assert.JSONEq(t, `{"name":"A"}`, string(s.User))
	assert.False(t, s.Loading)
	assert.False(t, s.ProfilePending)
	assert.Equal(t, api.Credentials{Token: "t1"}, m.Credentials())

	token, _, _ := st.Get(ctx, store.KeyToken)
	role, _, _ := st.Get(ctx, store.KeyUserRole)
	assert.Equal(t, "t1", token)
	assert.Equal(t, "student", role)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"", "Bearer t1"}, f.authSeen, "only the profile fetch is authenticated")
}

func TestLoginInvalidCredentialsLeavesState(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()
	m := New(ctx, store.NewMemory(), client)
	m.Restore(ctx)

	require.True(t, m.Login(ctx, "a@x.com", "pw").Success)
	before := m.State()

	res := m.Login(ctx, "a@x.com", "wrong")

	assert.Equal(t, Result{Error: "Invalid email or password"}, res)
	assert.Equal(t, before, m.State())
}

func TestLoginProfileFailureKeepsToken(t *testing.T) {
	f, client := setup(t)
	f.with(func(f *fakeService) { f.profiles["a@x.com"] = `not json` })
	ctx := context.Background()
	st := store.NewMemory()
	m := New(ctx, st, client)
	m.Restore(ctx)

	res := m.Login(ctx, "a@x.com", "pw")

	assert.False(t, res.Success)
	assert.Equal(t, MsgLoginFailed, res.Error)
	s := m.State()
	assert.Equal(t, "t1", s.Token)
	assert.Equal(t, "student", s.Role)
	assert.True(t, s.User.IsZero())
	assert.True(t, s.ProfilePending)

	f.with(func(f *fakeService) { f.profiles["a@x.com"] = `{"name":"A"}` })

	require.NoError(t, m.RefreshProfile(ctx))
	assert.JSONEq(t, `{"name":"A"}`, string(m.State().User))
	assert.False(t, m.State().ProfilePending)
}

func TestRegisterNeverTouchesSession(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()
	st := store.NewMemory()
	m := New(ctx, st, client)
	m.Restore(ctx)

	res := m.Register(ctx, "bea", "b@x.com", "pw", "teacher")
	assert.Equal(t, Result{Success: true, Role: "teacher"}, res)
	assert.False(t, m.State().LoggedIn())
	assert.True(t, m.State().User.IsZero())
	_, ok, _ := st.Get(ctx, store.KeyToken)
	assert.False(t, ok)

	res = m.Register(ctx, "bea", "b@x.com", "pw", "teacher")
	assert.Equal(t, Result{Error: "Email already registered"}, res)
	assert.False(t, m.State().LoggedIn())
}

func TestLogoutClearsEverything(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()
	st := store.NewMemory()
	m := New(ctx, st, client)
	m.Restore(ctx)
	require.True(t, m.Login(ctx, "a@x.com", "pw").Success)

	m.Logout()

	s := m.State()
	assert.Empty(t, s.Token)
	assert.Empty(t, s.Role)
	assert.True(t, s.User.IsZero())
	assert.True(t, m.Credentials().IsZero())
	_, ok, _ := st.Get(ctx, store.KeyToken)
	assert.False(t, ok)
	_, ok, _ = st.Get(ctx, store.KeyUserRole)
	assert.False(t, ok)

	assert.Equal(t, MsgUpdateFailed, m.UpdateProfile(ctx, json.RawMessage(`{"name":"X"}`)).Error)
	assert.ErrorIs(t, m.RefreshProfile(ctx), ErrNotLoggedIn)
}

func TestUpdateProfile(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()
	m := New(ctx, store.NewMemory(), client)
	m.Restore(ctx)
	require.True(t, m.Login(ctx, "a@x.com", "pw").Success)

	res := m.UpdateProfile(ctx, json.RawMessage(`{"name":"B","city":"Pune"}`))
	assert.Equal(t, Result{Success: true}, res)
	assert.JSONEq(t, `{"name":"B","city":"Pune"}`, string(m.State().User))

	before := m.State().User
	res = m.UpdateProfile(ctx, json.RawMessage(`{"name":""}`))
	assert.Equal(t, Result{Error: "Name cannot be empty"}, res)
	assert.True(t, before.Equal(m.State().User))

	res = m.UpdateProfile(ctx, json.RawMessage(`{broken`))
	assert.Equal(t, Result{Error: MsgUpdateFailed}, res)
	assert.True(t, before.Equal(m.State().User))
}

func TestRestoreValidToken(t *testing.T) {
	f, client := setup(t)
	f.with(func(f *fakeService) { f.tokens["abc"] = "a@x.com" })
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, store.KeyToken, "abc"))
	require.NoError(t, st.Set(ctx, store.KeyUserRole, "student"))

	m := New(ctx, st, client)
	assert.True(t, m.State().Loading)
	assert.Equal(t, "abc", m.State().Token)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	states := m.Subscribe(subCtx)

	m.Restore(ctx)
	m.Restore(ctx)

	s := m.State()
	assert.False(t, s.Loading)
	assert.Equal(t, "abc", s.Token)
	assert.Equal(t, "student", s.Role)
	assert.JSONEq(t, `{"name":"A"}`, string(s.User))
	assert.EqualValues(t, 1, f.profileHits.Load(), "second Restore is a no-op")

	cancel()
	var loadingDone int
	prevLoading := true
	for st := range states {
		if prevLoading && !st.Loading {
			loadingDone++
		}
		assert.False(t, !prevLoading && st.Loading, "loading never turns back on")
		prevLoading = st.Loading
	}
	assert.Equal(t, 1, loadingDone)
}

func TestRestoreExpiredToken(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, store.KeyToken, "abc"))
	require.NoError(t, st.Set(ctx, store.KeyUserRole, "teacher"))

	m := New(ctx, st, client)
	m.Restore(ctx)

	assert.Equal(t, State{}, m.State())
	_, ok, _ := st.Get(ctx, store.KeyToken)
	assert.False(t, ok)
	_, ok, _ = st.Get(ctx, store.KeyUserRole)
	assert.False(t, ok)
}

func TestRestoreWithoutToken(t *testing.T) {
	f, client := setup(t)
	ctx := context.Background()
	m := New(ctx, store.NewMemory(), client)
	assert.True(t, m.State().Loading)

	m.Restore(ctx)

	assert.Equal(t, State{}, m.State())
	assert.EqualValues(t, 0, f.profileHits.Load())
}

// blockingAuth lets a test hold a call open until it releases it.
type blockingAuth struct {
	mock.Mock
	release chan struct{}
}

func (b *blockingAuth) Login(ctx context.Context, req api.LoginRequest) (api.LoginResponse, error) {
	<-b.release
	args := b.Called(ctx, req)
	return args.Get(0).(api.LoginResponse), args.Error(1)
}

func (b *blockingAuth) Register(ctx context.Context, req api.RegisterRequest) (api.RegisterResponse, error) {
	args := b.Called(ctx, req)
	return args.Get(0).(api.RegisterResponse), args.Error(1)
}

func (b *blockingAuth) GetProfile(ctx context.Context, creds api.Credentials) (api.Profile, error) {
	<-b.release
	args := b.Called(ctx, creds)
	p, _ := args.Get(0).(api.Profile)
	return p, args.Error(1)
}

func (b *blockingAuth) UpdateProfile(ctx context.Context, creds api.Credentials, patch json.RawMessage) (api.Profile, error) {
	args := b.Called(ctx, creds, patch)
	p, _ := args.Get(0).(api.Profile)
	return p, args.Error(1)
}

func TestLogoutDuringLoginDiscardsResult(t *testing.T) {
	auth := &blockingAuth{release: make(chan struct{})}
	auth.On("Login", mock.Anything, mock.Anything).Return(api.LoginResponse{Token: "t1", Role: "student"}, nil)

	ctx := context.Background()
	st := store.NewMemory()
	m := New(ctx, st, auth)

	done := make(chan Result)
	go func() { done <- m.Login(ctx, "a@x.com", "pw") }()

	// Login is parked inside the service call; logging out now must win.
	time.Sleep(20 * time.Millisecond)
	m.Logout()
	close(auth.release)

	res := <-done
	assert.False(t, res.Success)
	assert.False(t, m.State().LoggedIn())
	_, ok, _ := st.Get(ctx, store.KeyToken)
	assert.False(t, ok)
	auth.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestLogoutDuringRestoreKeepsLoggedOut(t *testing.T) {
	auth := &blockingAuth{release: make(chan struct{})}
	auth.On("GetProfile", mock.Anything, api.Credentials{Token: "abc"}).Return(api.Profile(`{"name":"A"}`), nil)

	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, store.KeyToken, "abc"))
	m := New(ctx, st, auth)

	done := make(chan struct{})
	go func() {
		m.Restore(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	m.Logout()
	close(auth.release)
	<-done

	s := m.State()
	assert.False(t, s.LoggedIn())
	assert.True(t, s.User.IsZero())
	assert.False(t, s.Loading)
}

func TestRefreshProfileSharesRequest(t *testing.T) {
	auth := &blockingAuth{release: make(chan struct{})}
	auth.On("GetProfile", mock.Anything, api.Credentials{Token: "abc"}).Return(api.Profile(`{"name":"A"}`), nil).Once()

	ctx := context.Background()
	st := store.NewMemory()
	require.NoError(t, st.Set(ctx, store.KeyToken, "abc"))
	m := New(ctx, st, auth)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.RefreshProfile(ctx)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(auth.release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	auth.AssertNumberOfCalls(t, "GetProfile", 1)
	assert.Equal(t, "A", m.State().User.DisplayName())
}

// stalledAuth never answers a profile request until the caller gives up.
type stalledAuth struct {
	blockingAuth
	started chan struct{}
}

func (s *stalledAuth) GetProfile(ctx context.Context, _ api.Credentials) (api.Profile, error) {
	close(s.started)
	<-ctx.Done()
	return nil, fmt.Errorf("GET /profile: %w", ctx.Err())
}

func TestRestoreCancelledKeepsStoredSession(t *testing.T) {
	st := store.NewMemory()
	require.NoError(t, st.Set(context.Background(), store.KeyToken, "abc"))
	require.NoError(t, st.Set(context.Background(), store.KeyUserRole, "student"))

	auth := &stalledAuth{started: make(chan struct{})}
	m := New(context.Background(), st, auth)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Restore(ctx)
		close(done)
	}()
	<-auth.started
	cancel()
	<-done

	assert.False(t, m.State().Loading)
	token, ok, err := st.Get(context.Background(), store.KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
	role, _, _ := st.Get(context.Background(), store.KeyUserRole)
	assert.Equal(t, "student", role)
}
