package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fragmede/campus/internal/api"
	"github.com/fragmede/campus/internal/logging"
	"github.com/fragmede/campus/internal/store"
)

// AuthService is the part of the remote service the manager talks to.
// *api.Client implements it.
type AuthService interface {
	Login(ctx context.Context, req api.LoginRequest) (api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (api.RegisterResponse, error)
	GetProfile(ctx context.Context, creds api.Credentials) (api.Profile, error)
	UpdateProfile(ctx context.Context, creds api.Credentials, patch json.RawMessage) (api.Profile, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. A nil logger keeps the default, which discards.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// Manager owns the session state. It is safe for concurrent use.
type Manager struct {
	store store.Store
	auth  AuthService
	log   *slog.Logger

	profiles singleflight.Group

	mu       sync.Mutex
	state    State
	epoch    uint64
	restored bool
	closed   bool
	subs     map[*subscriber]struct{}
	done     chan struct{}
}

// New creates a manager seeded with the token and role found in st.
// The returned manager reports Loading until Restore has run.
func New(ctx context.Context, st store.Store, auth AuthService, opts ...Option) *Manager {
	m := &Manager{
		store: st,
		auth:  auth,
		log:   logging.NewNop(),
		state: State{Loading: true},
		subs:  make(map[*subscriber]struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if token, ok := m.get(ctx, store.KeyToken); ok {
		m.state.Token = token
		m.state.ProfilePending = true
		if role, ok := m.get(ctx, store.KeyUserRole); ok {
			m.state.Role = role
		}
	}
	return m
}

// State returns the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Credentials returns the credentials for the current token, or the zero
// value when logged out.
func (m *Manager) Credentials() api.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return api.Credentials{Token: m.state.Token}
}

// Restore validates the stored token by fetching its profile. Any failure
// logs the session out, except cancellation of ctx, which leaves the stored
// session for the next run. Loading is cleared once the attempt completes.
// Only the first call does anything.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	if m.restored {
		m.mu.Unlock()
		return
	}
	m.restored = true
	token, epoch := m.state.Token, m.epoch
	m.mu.Unlock()

	if token != "" {
		err := m.loadProfile(ctx, token, epoch)
		switch {
		case err == nil:
			m.mu.Lock()
			if m.epoch == epoch {
				if role, ok := m.get(ctx, store.KeyUserRole); ok {
					m.state.Role = role
				}
			}
			m.mu.Unlock()
			m.log.Info("session restored", slog.String("role", m.State().Role))
		case errors.Is(err, ErrSuperseded):
			m.log.Debug("session restore superseded")
		case errors.Is(err, context.Canceled):
			// The caller gave up; the stored session was never judged.
			m.log.Info("session restore cancelled")
		default:
			if api.IsUnauthorized(err) {
				m.log.Info("stored session expired", logging.Err(err))
			} else {
				m.log.Warn("session restore failed", logging.Err(err))
			}
			m.mu.Lock()
			if m.epoch == epoch {
				m.clearLocked()
			}
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	m.state.Loading = false
	m.publishLocked()
	m.mu.Unlock()
}

// Login exchanges credentials for a token, persists it with the role, then
// fetches the profile. If the profile fetch fails the token and role stay
// committed with ProfilePending set, and the result reports the failure.
func (m *Manager) Login(ctx context.Context, identifier, secret string) Result {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	resp, err := m.auth.Login(ctx, api.LoginRequest{Email: identifier, Password: secret})
	if err != nil {
		m.log.Error("login failed", logging.Err(err))
		return failure(api.Message(err, MsgLoginFailed))
	}

	m.mu.Lock()
	if m.closed || m.epoch != epoch {
		m.mu.Unlock()
		m.log.Info("login discarded", logging.Err(ErrSuperseded))
		return failure(MsgLoginFailed)
	}
	m.epoch++
	epoch = m.epoch
	m.state.Token = resp.Token
	m.state.Role = resp.Role
	m.state.User = nil
	m.state.ProfilePending = true
	m.set(ctx, store.KeyToken, resp.Token)
	m.set(ctx, store.KeyUserRole, resp.Role)
	m.publishLocked()
	m.mu.Unlock()

	if err := m.loadProfile(ctx, resp.Token, epoch); err != nil {
		m.log.Error("login profile fetch failed", logging.Err(err))
		return failure(api.Message(err, MsgLoginFailed))
	}

	m.log.Info("logged in", slog.String("role", resp.Role))
	return Result{Success: true, Role: resp.Role}
}

// Register creates an account. It never changes the session; the caller
// logs in separately.
func (m *Manager) Register(ctx context.Context, username, identifier, secret, role string) Result {
	resp, err := m.auth.Register(ctx, api.RegisterRequest{
		Username: username,
		Email:    identifier,
		Password: secret,
		Role:     role,
	})
	if err != nil {
		m.log.Error("registration failed", logging.Err(err))
		return failure(api.Message(err, MsgRegistrationFailed))
	}
	return Result{Success: true, Role: resp.Role}
}

// Logout clears the session from memory and the store. It makes no network
// call and cannot fail; store errors are logged.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
	m.publishLocked()
}

// UpdateProfile sends patch for the current user and replaces the profile
// with the service's response.
func (m *Manager) UpdateProfile(ctx context.Context, patch json.RawMessage) Result {
	m.mu.Lock()
	token, epoch := m.state.Token, m.epoch
	m.mu.Unlock()

	if token == "" {
		m.log.Error("profile update failed", logging.Err(ErrNotLoggedIn))
		return failure(MsgUpdateFailed)
	}
	if !json.Valid(patch) {
		m.log.Error("profile update failed", logging.Err(fmt.Errorf("patch is not valid JSON")))
		return failure(MsgUpdateFailed)
	}

	profile, err := m.auth.UpdateProfile(ctx, api.Credentials{Token: token}, patch)
	if err != nil {
		m.log.Error("profile update failed", logging.Err(err))
		return failure(api.Message(err, MsgUpdateFailed))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch || m.state.Token != token {
		m.log.Info("profile update discarded", logging.Err(ErrSuperseded))
		return failure(MsgUpdateFailed)
	}
	m.state.User = profile
	m.state.ProfilePending = false
	m.publishLocked()
	return Result{Success: true}
}

// RefreshProfile fetches the profile for the current token. Concurrent
// calls share one request.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	token, epoch := m.state.Token, m.epoch
	m.mu.Unlock()

	if token == "" {
		return ErrNotLoggedIn
	}
	if err := m.loadProfile(ctx, token, epoch); err != nil {
		m.log.Warn("profile refresh failed", logging.Err(err))
		return err
	}
	return nil
}

// Close ends all subscriptions. The store is owned by the caller.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	for sub := range m.subs {
		close(sub.ch)
		delete(m.subs, sub)
	}
	return nil
}

// loadProfile fetches the profile for token and installs it if the session
// is still at epoch.
func (m *Manager) loadProfile(ctx context.Context, token string, epoch uint64) error {
	v, err, _ := m.profiles.Do(token, func() (any, error) {
		return m.auth.GetProfile(ctx, api.Credentials{Token: token})
	})
	if err != nil {
		return fmt.Errorf("fetching profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch || m.state.Token != token {
		return ErrSuperseded
	}
	m.state.User = v.(api.Profile)
	m.state.ProfilePending = false
	m.publishLocked()
	return nil
}

func (m *Manager) clearLocked() {
	m.epoch++
	m.state.Token = ""
	m.state.Role = ""
	m.state.User = nil
	m.state.ProfilePending = false
	m.remove(store.KeyToken)
	m.remove(store.KeyUserRole)
}

func (m *Manager) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.log.Warn("reading session store", slog.String("key", key), logging.Err(err))
		return "", false
	}
	return v, ok && v != ""
}

func (m *Manager) set(ctx context.Context, key, value string) {
	var err error
	if value == "" {
		err = m.store.Remove(ctx, key)
	} else {
		err = m.store.Set(ctx, key, value)
	}
	if err != nil {
		m.log.Warn("writing session store", slog.String("key", key), logging.Err(err))
	}
}

func (m *Manager) remove(key string) {
	if err := m.store.Remove(context.Background(), key); err != nil {
		m.log.Warn("clearing session store", slog.String("key", key), logging.Err(err))
	}
}
