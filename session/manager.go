// Package session mirrors the identity provider's authentication state into a
// snapshot for the rest of the portal and keeps a durable copy of it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/jrsteele09/restaurant-portal/gateway"
	"github.com/jrsteele09/restaurant-portal/identity"
	"github.com/jrsteele09/restaurant-portal/internal/errors"
	"github.com/jrsteele09/restaurant-portal/storage"
	"github.com/rs/zerolog/log"
)

// Requester is the part of the gateway the manager uses to fetch user info
type Requester interface {
	Get(ctx context.Context, rawURL string, opts gateway.Options) (*gateway.Response, error)
}

// Snapshot is a read-only copy of the session. LoggedIn only ever mirrors the
// provider's authenticated flag.
type Snapshot struct {
	// Resolved is false until the provider reports it is initialized
	Resolved bool
	LoggedIn bool
	Token    string
	UserInfo *UserInfo
	// FetchErr is the error of the last automatic user-info fetch, if it failed
	FetchErr error
}

type Manager struct {
	provider    identity.Provider
	store       storage.Store
	api         Requester
	unsubscribe func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// persistLock orders mirror writes against mirror clears
	persistLock sync.Mutex

	lock       sync.RWMutex
	closed     bool
	resolved   bool
	loggedIn   bool
	token      string
	userInfo   *UserInfo
	fetchErr   error
	generation uint64
	dirty      bool
	fetching   bool
}

// New subscribes to provider and applies its current state. Call Close to stop.
func New(provider identity.Provider, store storage.Store, api Requester) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		provider: provider,
		store:    store,
		api:      api,
		ctx:      ctx,
		cancel:   cancel,
	}
	m.unsubscribe = provider.Subscribe(m.observe)
	m.observe(provider.State())
	return m
}

func (m *Manager) Snapshot() Snapshot {
	m.lock.RLock()
	defer m.lock.RUnlock()

	s := Snapshot{
		Resolved: m.resolved,
		LoggedIn: m.loggedIn,
		Token:    m.token,
		FetchErr: m.fetchErr,
	}
	if m.userInfo != nil {
		info := *m.userInfo
		s.UserInfo = &info
	}
	return s
}

// Token is the in-memory credential, "" when logged out
func (m *Manager) Token() string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.token
}

func (m *Manager) observe(s identity.State) {
	if !s.Initialized {
		return
	}

	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return
	}
	m.resolved = true
	m.loggedIn = s.Authenticated

	if !s.Authenticated {
		m.generation++
		m.token = ""
		m.userInfo = nil
		m.fetchErr = nil
		m.dirty = false
		m.lock.Unlock()

		m.clearPersisted(m.ctx)
		return
	}

	m.token = s.Token
	if s.Token == "" {
		m.lock.Unlock()
		return
	}
	gen := m.generation
	m.scheduleFetchLocked()
	m.lock.Unlock()

	m.persist(m.ctx, gen, storage.KeyToken, s.Token)
}

// scheduleFetchLocked marks user info as stale and starts the fetch loop if it is not running
func (m *Manager) scheduleFetchLocked() {
	m.dirty = true
	if m.fetching || m.closed {
		return
	}
	m.fetching = true
	m.wg.Add(1)
	go m.fetchLoop()
}

// fetchLoop runs fetches one at a time until no newer observation asks for one
func (m *Manager) fetchLoop() {
	defer m.wg.Done()

	for {
		m.lock.Lock()
		if !m.dirty || m.closed || !m.loggedIn || m.token == "" {
			m.dirty = false
			m.fetching = false
			m.lock.Unlock()
			return
		}
		m.dirty = false
		gen := m.generation
		m.lock.Unlock()

		_, err := m.fetch(m.ctx, gen)
		if err == nil || m.ctx.Err() != nil {
			continue
		}

		log.Err(err).Msg("Failed to fetch user info")
		m.lock.Lock()
		if gen == m.generation {
			m.fetchErr = err
		}
		// a refresh during a rejected fetch would otherwise ask for another fetch
		if apiErr, ok := gateway.AsAPIError(err); ok && apiErr.Status == http.StatusUnauthorized {
			m.dirty = false
		}
		m.lock.Unlock()
	}
}

// FetchUserInfo fetches and stores the user info now, returning any failure to the caller.
// A failure leaves the session as it was.
func (m *Manager) FetchUserInfo(ctx context.Context) (*UserInfo, error) {
	m.lock.RLock()
	resolved, loggedIn, token, gen := m.resolved, m.loggedIn, m.token, m.generation
	m.lock.RUnlock()

	if !resolved {
		return nil, errors.ErrNotInitialized
	}
	if !loggedIn || token == "" {
		return nil, errors.ErrNotAuthenticated
	}
	return m.fetch(ctx, gen)
}

func (m *Manager) fetch(ctx context.Context, gen uint64) (*UserInfo, error) {
	resp, err := m.api.Get(ctx, identity.UserInfoURLFor(m.provider), gateway.Options{})
	if err != nil {
		return nil, err
	}

	var claims Claims
	if err := resp.Decode(&claims); err != nil {
		return nil, fmt.Errorf("[session fetch] user info: %w", err)
	}
	info := NewUserInfo(claims)

	m.lock.Lock()
	if gen != m.generation || m.closed || !m.loggedIn {
		m.lock.Unlock()
		log.Debug().Msg("Discarding user info fetched for an ended session")
		return &info, nil
	}
	m.userInfo = &info
	m.fetchErr = nil
	m.lock.Unlock()

	raw, err := json.Marshal(info)
	if err != nil {
		return &info, fmt.Errorf("[session fetch] encode user info: %w", err)
	}
	m.persist(ctx, gen, storage.KeyUserInfo, string(raw))
	return &info, nil
}

// persist writes key unless the session generation has moved on
func (m *Manager) persist(ctx context.Context, gen uint64, key, value string) {
	m.persistLock.Lock()
	defer m.persistLock.Unlock()

	m.lock.RLock()
	current := gen == m.generation && !m.closed
	m.lock.RUnlock()
	if !current {
		return
	}

	if err := m.store.Set(ctx, key, value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to write session mirror")
	}
}

func (m *Manager) clearPersisted(ctx context.Context) {
	m.persistLock.Lock()
	defer m.persistLock.Unlock()

	for _, key := range []string{storage.KeyUserInfo, storage.KeyToken} {
		if err := m.store.Remove(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to clear session mirror")
		}
	}
}

// ClearPersisted removes the mirror entries without touching the live session
func (m *Manager) ClearPersisted(ctx context.Context) {
	m.clearPersisted(ctx)
}

// Logout clears the mirror and the in-memory session, then logs the provider out.
// It never fails; storage and provider errors are logged.
func (m *Manager) Logout(ctx context.Context) {
	m.lock.Lock()
	m.generation++
	m.loggedIn = false
	m.token = ""
	m.userInfo = nil
	m.fetchErr = nil
	m.dirty = false
	m.lock.Unlock()

	m.clearPersisted(ctx)

	if err := m.provider.Logout(ctx); err != nil {
		log.Err(err).Msg("Provider logout failed")
	}
}

// PersistedUserInfo reads the mirror, which may be stale. It returns nil when
// nothing is stored.
func (m *Manager) PersistedUserInfo(ctx context.Context) (*UserInfo, error) {
	raw, err := m.store.Get(ctx, storage.KeyUserInfo)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	var info UserInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("%w: stored user info: %v", errors.ErrDecode, err)
	}
	return &info, nil
}

// Close stops observing the provider and waits for an in-flight fetch
func (m *Manager) Close() {
	m.lock.Lock()
	if m.closed {
		m.lock.Unlock()
		return
	}
	m.closed = true
	m.generation++
	m.lock.Unlock()

	m.unsubscribe()
	m.cancel()
	m.wg.Wait()
}
