package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"audient.app/internal/obs"
	"audient.app/internal/workhours"
)

// ForcedLogoutMessage is shown to the user before a Morning session is closed.
const ForcedLogoutMessage = "Work hours have started. Please sign in again to record your attendance."

// LoginRequest is sent to the backend. Coordinates are always present since
// a login without them is refused locally.
type LoginRequest struct {
	Email     string
	Password  string
	Latitude  float64
	Longitude float64
}

// LoginResponse is what the backend returns for a successful login.
type LoginResponse struct {
	User   User
	Token  string
	Config workhours.Config
	Period workhours.Period
}

// Backend is the remote authority for credentials, periods and configuration.
type Backend interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	OrgConfig(ctx context.Context, token string) (workhours.Config, error)
}

// Coordinates is a GPS fix.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Locator reads the device position. An error means permission was denied
// or no fix could be obtained.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// Prompter shows the blocking forced-logout notice and returns once the user
// acknowledged it.
type Prompter interface {
	ConfirmForcedLogout(ctx context.Context, message string) error
}

// Credentials are entered by the user. Remember persists the session so it
// can be restored at the next cold start.
type Credentials struct {
	Email    string
	Password string
	Remember bool
}

// Manager is the single holder of session state. All writes to the store go
// through its mutex.
type Manager struct {
	backend  Backend
	store    Store
	policy   *workhours.Policy
	clock    workhours.Clock
	locator  Locator
	prompter Prompter
	interval time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	state     State
	current   *Persisted
	cfg       workhours.Config
	gen       uint64
	prompting bool
	watchdog  *Watchdog

	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures Manager.
type Option func(*Manager)

func WithClock(c workhours.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

func WithPolicy(p *workhours.Policy) Option {
	return func(m *Manager) {
		if p != nil {
			m.policy = p
		}
	}
}

func WithLocator(l Locator) Option { return func(m *Manager) { m.locator = l } }

func WithPrompter(p Prompter) Option { return func(m *Manager) { m.prompter = p } }

func WithWatchdogInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func NewManager(backend Backend, store Store, opts ...Option) *Manager {
	m := &Manager{
		backend:  backend,
		store:    store,
		policy:   workhours.NewPolicy(),
		clock:    workhours.SystemClock{},
		interval: DefaultWatchdogInterval,
		cfg:      workhours.Default(),
		state:    NotReady,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = obs.Logger().Named("session")
	}
	m.watchdog = NewWatchdog(m.interval, func(ctx context.Context) { m.Tick(ctx) })
	return m
}

// Restore runs the cold-start check once. Storage failures count as "nothing
// to restore". Ready reports true once Restore has returned.
func (m *Manager) Restore(ctx context.Context) Decision {
	m.mu.Lock()
	if m.state != NotReady {
		restored := m.state == LoggedIn
		m.mu.Unlock()
		if restored {
			return Restore
		}
		return Discard
	}
	m.state = Restoring
	m.mu.Unlock()
	defer m.markReady()

	persisted := m.loadSession(ctx)
	cfg := m.loadConfig(ctx)
	if persisted != nil {
		persisted.Period = m.loadPeriod(ctx)
	}
	decision := ShouldRestore(m.policy, persisted, cfg, m.clock.Now())
	obs.ObserveRestore(decision.String())

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Restoring {
		// An explicit login or logout won the race and owns the window.
		return decision
	}
	m.cfg = cfg
	if decision == Discard {
		m.state = LoggedOut
		m.log.Info("session not restored", zap.Bool("persisted", persisted != nil))
		return decision
	}
	m.gen++
	m.current = persisted
	m.state = LoggedIn
	m.watchdog.Start()
	m.log.Info("session restored",
		zap.String("user_id", persisted.User.ID),
		zap.String("period", persisted.Period.String()))
	return decision
}

// Login captures the device position, authenticates against the backend and
// makes the new session current.
func (m *Manager) Login(ctx context.Context, creds Credentials) (Persisted, error) {
	var coords Coordinates
	if m.policy.RequiresLocationCapture(m.clock.Now()) {
		if m.locator == nil {
			return Persisted{}, ErrLocationRequired
		}
		c, err := m.locator.Locate(ctx)
		if err != nil {
			m.log.Warn("location capture failed", zap.Error(err))
			return Persisted{}, fmt.Errorf("%w: %v", ErrLocationRequired, err)
		}
		coords = c
	}

	resp, err := m.backend.Login(ctx, LoginRequest{
		Email:     creds.Email,
		Password:  creds.Password,
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	})
	if err != nil {
		return Persisted{}, err
	}

	p := Persisted{User: resp.User, Token: resp.Token, Period: resp.Period}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchdog.Stop()
	m.gen++

	if creds.Remember {
		m.saveJSON(ctx, KeySession, p)
	} else {
		m.remove(ctx, KeySession)
	}
	if resp.Config != (workhours.Config{}) {
		m.cfg = resp.Config
		m.saveJSON(ctx, KeyOrgConfig, resp.Config)
	}
	if p.Period != "" {
		m.save(ctx, KeyPeriod, []byte(p.Period))
	} else {
		m.remove(ctx, KeyPeriod)
	}

	cur := p
	m.current = &cur
	m.state = LoggedIn
	m.watchdog.Start()
	m.markReady()
	m.log.Info("logged in",
		zap.String("user_id", p.User.ID),
		zap.String("period", p.Period.String()),
		zap.Bool("remember", creds.Remember))
	return p, nil
}

// Logout clears the persisted session and period and stops the watchdog. It
// is unconditional and safe to repeat.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutLocked(ctx)
}

func (m *Manager) logoutLocked(ctx context.Context) {
	// The watchdog context is cancelled by Stop; storage writes must outlive it.
	ctx = context.WithoutCancel(ctx)
	m.watchdog.Stop()
	m.gen++
	m.current = nil
	m.state = LoggedOut
	m.remove(ctx, KeySession)
	m.remove(ctx, KeyPeriod)
	m.markReady()
}

// Tick runs one forced-logout check. It reports whether the session was
// closed. The prompt is shown without holding the mutex, and the logout is
// applied only if no other login or logout happened meanwhile.
func (m *Manager) Tick(ctx context.Context) bool {
	m.mu.Lock()
	if m.state != LoggedIn || m.prompting {
		m.mu.Unlock()
		return false
	}
	gen, cfg := m.gen, m.cfg
	m.mu.Unlock()

	obs.ObserveWatchdogTick()
	period := m.loadPeriod(ctx)
	if !m.policy.ShouldForceLogout(period, cfg, m.clock.Now()) {
		return false
	}

	m.mu.Lock()
	if m.state != LoggedIn || m.gen != gen || m.prompting {
		m.mu.Unlock()
		return false
	}
	m.prompting = true
	m.mu.Unlock()

	var err error
	if m.prompter != nil {
		err = m.prompter.ConfirmForcedLogout(ctx, ForcedLogoutMessage)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompting = false
	if err != nil {
		m.log.Warn("forced logout prompt failed", zap.Error(err))
		return false
	}
	if m.state != LoggedIn || m.gen != gen {
		return false
	}
	userID := m.current.User.ID
	m.logoutLocked(ctx)
	obs.ObserveForcedLogout()
	m.log.Info("forced logout", zap.String("user_id", userID))
	return true
}

// RefreshConfig fetches the organization window for the current session and
// caches it in the store.
func (m *Manager) RefreshConfig(ctx context.Context) (workhours.Config, error) {
	m.mu.Lock()
	if m.state != LoggedIn {
		m.mu.Unlock()
		return workhours.Config{}, ErrNotLoggedIn
	}
	token, gen := m.current.Token, m.gen
	m.mu.Unlock()

	raw, err := m.backend.OrgConfig(ctx, token)
	if err != nil {
		return workhours.Config{}, err
	}
	cfg, err := workhours.Parse(raw.LoginTime, raw.LogoffTime, raw.Timezone)
	if err != nil {
		m.log.Warn("backend returned unusable config, using defaults", zap.Error(err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == gen {
		m.cfg = cfg
		m.saveJSON(ctx, KeyOrgConfig, cfg)
	}
	return cfg, nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns a copy of the active session.
func (m *Manager) Current() (Persisted, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Persisted{}, false
	}
	return *m.current, true
}

// Config returns the work-hours window the watchdog evaluates against.
func (m *Manager) Config() workhours.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

func (m *Manager) Ready() bool {
	select {
	case <-m.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the restore has resolved or ctx is done.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WatchdogRunning reports whether the forced-logout loop is active.
func (m *Manager) WatchdogRunning() bool { return m.watchdog.Running() }

// Close stops the watchdog on teardown. Persisted entries are kept.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchdog.Stop()
	m.markReady()
}

func (m *Manager) markReady() {
	m.readyOnce.Do(func() { close(m.ready) })
}

func (m *Manager) loadSession(ctx context.Context) *Persisted {
	raw, err := m.store.Get(ctx, KeySession)
	if err != nil {
		if !errors.Is(err, ErrNoEntry) {
			m.log.Warn("read persisted session", zap.Error(err))
		}
		return nil
	}
	var p Persisted
	if err := json.Unmarshal(raw, &p); err != nil || p.Token == "" {
		m.log.Warn("discarding unreadable persisted session", zap.Error(err))
		return nil
	}
	return &p
}

func (m *Manager) loadConfig(ctx context.Context) workhours.Config {
	raw, err := m.store.Get(ctx, KeyOrgConfig)
	if err != nil {
		if !errors.Is(err, ErrNoEntry) {
			m.log.Warn("read cached org config", zap.Error(err))
		}
		return workhours.Default()
	}
	var in workhours.Config
	if err := json.Unmarshal(raw, &in); err != nil {
		m.log.Warn("discarding unreadable org config", zap.Error(err))
		return workhours.Default()
	}
	cfg, err := workhours.Parse(in.LoginTime, in.LogoffTime, in.Timezone)
	if err != nil {
		m.log.Warn("cached org config invalid, using defaults", zap.Error(err))
	}
	return cfg
}

func (m *Manager) loadPeriod(ctx context.Context) workhours.Period {
	raw, err := m.store.Get(ctx, KeyPeriod)
	if err != nil {
		if !errors.Is(err, ErrNoEntry) {
			m.log.Warn("read period", zap.Error(err))
		}
		return ""
	}
	p, err := workhours.ParsePeriod(string(raw))
	if err != nil {
		m.log.Warn("discarding unknown period", zap.String("period", string(raw)))
		return ""
	}
	return p
}

func (m *Manager) saveJSON(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		m.log.Warn("encode persisted entry", zap.String("key", key), zap.Error(err))
		return
	}
	m.save(ctx, key, raw)
}

func (m *Manager) save(ctx context.Context, key string, raw []byte) {
	if err := m.store.Set(ctx, key, raw); err != nil {
		m.log.Warn("write persisted entry", zap.String("key", key), zap.Error(err))
	}
}

func (m *Manager) remove(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, key); err != nil {
		m.log.Warn("delete persisted entry", zap.String("key", key), zap.Error(err))
	}
}
