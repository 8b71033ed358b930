// Package fieldops is the backend side of the field-operations app:
// accounts, organizations and their work-hours window, login attendance,
// location profiles and the admin dashboard queries.
package fieldops

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"audient.app/internal/audit"
	"audient.app/internal/auth"
	"audient.app/internal/obs"
	"audient.app/internal/stream"
	"audient.app/internal/workhours"
)

// EmployeeAttendanceLimit caps the per-employee history returned to admins.
const EmployeeAttendanceLimit = 50

// TokenIssuer mints bearer tokens for authenticated principals.
type TokenIssuer interface {
	Generate(p auth.Principal) (string, time.Time, error)
}

// LoginPublisher receives an event for every recorded login.
type LoginPublisher interface {
	Publish(evt stream.LoginEvent)
}

// Service implements the backend operations on top of a Store.
type Service struct {
	store       Store
	policy      *workhours.Policy
	issuer      TokenIssuer
	cache       ConfigCache
	events      LoginPublisher
	adminSecret string
	now         func() time.Time
	log         *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithPolicy overrides the work-hours policy used to classify logins.
func WithPolicy(p *workhours.Policy) Option {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithTokenIssuer sets the issuer used by Register and Login.
func WithTokenIssuer(issuer TokenIssuer) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// WithAdminSecret sets the secret required to register an admin. Admin
// registration is refused while it is empty.
func WithAdminSecret(secret string) Option {
	return func(s *Service) {
		s.adminSecret = secret
	}
}

// WithConfigCache puts a read-through cache in front of organization config reads.
func WithConfigCache(c ConfigCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLoginEvents publishes recorded logins, typically to a stream.Hub.
func WithLoginEvents(p LoginPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithLogger sets the service logger. Defaults to obs.Logger().
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService builds a Service. A token issuer must be supplied before
// Register or Login are used.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		policy: workhours.NewPolicy(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = obs.Logger().Named("fieldops")
	}
	return s
}

// RegisterInput is the payload accepted by Register.
type RegisterInput struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	AdminSecret      string `json:"admin_secret"`
	OrganizationName string `json:"organization_name"`
	OrganizationID   string `json:"organization_id"`
}

// LoginInput is the payload accepted by Login. Coordinates are nil when the
// device could not capture a fix.
type LoginInput struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// LoginResult is returned by Login.
type LoginResult struct {
	User      User             `json:"user"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Config    workhours.Config `json:"org_config"`
	Period    workhours.Period `json:"period"`
}

// Register creates a user. Admins get a fresh organization with the default
// work hours.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, string, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" || in.Password == "" {
		return User{}, "", invalid("name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, "", invalid("invalid email")
	}
	if err := auth.CheckPasswordStrength(in.Password); err != nil {
		return User{}, "", invalid(err.Error())
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = auth.RoleEmployee
	}
	if !auth.ValidRole(role) {
		return User{}, "", invalid("role must be admin or employee")
	}
	role = auth.NormalizeRole(role)

	u := &User{Name: name, Email: email, Role: role, CreatedAt: s.now()}
	if role == auth.RoleAdmin {
		if s.adminSecret == "" || in.AdminSecret != s.adminSecret {
			return User{}, "", newError(ErrForbidden, "invalid admin secret")
		}
		orgName := strings.TrimSpace(in.OrganizationName)
		if orgName == "" {
			return User{}, "", invalid("organization name is required for admin")
		}
		if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
			return User{}, "", newError(ErrAlreadyExists, "email already registered")
		}
		org := &Organization{Name: orgName, WorkHours: workhours.Default(), CreatedAt: s.now()}
		if err := s.store.Organizations().Create(ctx, org); err != nil {
			return User{}, "", err
		}
		u.OrganizationID = org.ID
	} else if orgID := strings.TrimSpace(in.OrganizationID); orgID != "" {
		if _, err := s.store.Organizations().Find(ctx, orgID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return User{}, "", invalid("unknown organization")
			}
			return User{}, "", err
		}
		u.OrganizationID = orgID
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, "", err
	}
	u.PasswordHash = hash
	if err := s.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return User{}, "", newError(ErrAlreadyExists, "email already registered")
		}
		return User{}, "", err
	}
	token, _, err := s.issue(*u)
	if err != nil {
		return User{}, "", err
	}
	_ = audit.LogEvent(ctx, "auth.register", map[string]any{"user_id": u.ID, "role": u.Role})
	return *u, token, nil
}

// Login authenticates, records attendance and classifies the login against
// the organization's window. Attendance failures never fail the login.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return LoginResult{}, invalid("email and password are required")
	}
	u, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LoginResult{}, newError(ErrUnauthorized, "invalid credentials")
		}
		return LoginResult{}, err
	}
	if err := auth.VerifyPassword(u.PasswordHash, in.Password); err != nil {
		return LoginResult{}, newError(ErrUnauthorized, "invalid credentials")
	}

	if updated, err := s.store.Users().IncrementLoginCount(ctx, u.ID); err == nil {
		u = updated
	} else {
		s.log.Warn("login count not updated", zap.String("user_id", u.ID), zap.Error(err))
	}

	cfg := s.orgConfig(ctx, u.OrganizationID)
	now := s.now()
	period, err := s.policy.Classify(cfg, now)
	if err != nil {
		s.log.Warn("login not classified", zap.String("user_id", u.ID), zap.Error(err))
	}

	rec := &Attendance{
		UserID:    u.ID,
		LoginAt:   now,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Period:    period,
	}
	if err := s.store.Attendance().Record(ctx, rec); err != nil {
		obs.ObserveAttendanceFailure()
		s.log.Error("attendance not recorded", zap.String("user_id", u.ID), zap.Error(err))
	} else if s.events != nil && u.OrganizationID != "" {
		today, tomorrow := dayBounds(now, s.orgLocation(cfg))
		s.events.Publish(stream.LoginEvent{
			OrganizationID: u.OrganizationID,
			UserID:         u.ID,
			Name:           u.Name,
			Email:          u.Email,
			Period:         period,
			Status:         PresenceStatus(rec, today, tomorrow),
			Latitude:       rec.Latitude,
			Longitude:      rec.Longitude,
			LoginAt:        rec.LoginAt,
		})
	}

	token, exp, err := s.issue(*u)
	if err != nil {
		return LoginResult{}, err
	}
	obs.ObserveLogin(string(period))
	_ = audit.LogEvent(ctx, "auth.login", map[string]any{
		"user_id":  u.ID,
		"period":   string(period),
		"located":  in.Latitude != nil && in.Longitude != nil,
		"login_at": now.Format(time.RFC3339),
	})
	return LoginResult{User: *u, Token: token, ExpiresAt: exp, Config: cfg, Period: period}, nil
}

func (s *Service) issue(u User) (string, time.Time, error) {
	if s.issuer == nil {
		return "", time.Time{}, errors.New("fieldops: token issuer not configured")
	}
	return s.issuer.Generate(auth.Principal{
		UserID:         u.ID,
		Email:          u.Email,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	})
}

// Me returns the user behind userID.
func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	u, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return *u, nil
}

// OrgConfig returns the work-hours config of the user's organization, or the
// defaults when the user has none.
func (s *Service) OrgConfig(ctx context.Context, userID string) (workhours.Config, error) {
	u, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return workhours.Config{}, err
	}
	return s.orgConfig(ctx, u.OrganizationID), nil
}

// orgConfig never fails: lookup errors and unusable stored values fall back
// to the defaults.
func (s *Service) orgConfig(ctx context.Context, orgID string) workhours.Config {
	if orgID == "" {
		return workhours.Default()
	}
	if s.cache != nil {
		cfg, ok, err := s.cache.Get(ctx, orgID)
		if err != nil {
			s.log.Warn("config cache read failed", zap.String("org_id", orgID), zap.Error(err))
		} else if ok {
			return cfg
		}
	}
	org, err := s.store.Organizations().Find(ctx, orgID)
	if err != nil {
		s.log.Warn("organization lookup failed", zap.String("org_id", orgID), zap.Error(err))
		return workhours.Default()
	}
	cfg, err := workhours.Parse(org.WorkHours.LoginTime, org.WorkHours.LogoffTime, org.WorkHours.Timezone)
	if err != nil {
		s.log.Warn("stored work hours unusable", zap.String("org_id", orgID), zap.Error(err))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, orgID, cfg); err != nil {
			s.log.Warn("config cache write failed", zap.String("org_id", orgID), zap.Error(err))
		}
	}
	return cfg
}

// ConfigPatch is a partial work-hours update. Nil fields are left unchanged.
type ConfigPatch struct {
	LoginTime  *string `json:"login_time"`
	LogoffTime *string `json:"logoff_time"`
	Timezone   *string `json:"timezone"`
}

// Empty reports whether the patch changes nothing.
func (p ConfigPatch) Empty() bool {
	return p.LoginTime == nil && p.LogoffTime == nil && p.Timezone == nil
}

// UpdateOrgConfig applies a partial update to the admin's organization.
func (s *Service) UpdateOrgConfig(ctx context.Context, userID string, patch ConfigPatch) (workhours.Config, error) {
	u, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return workhours.Config{}, err
	}
	if u.Role != auth.RoleAdmin {
		return workhours.Config{}, newError(ErrForbidden, "admin only")
	}
	if u.OrganizationID == "" {
		return workhours.Config{}, newError(ErrNoOrganization, "no organization linked")
	}
	if patch.Empty() {
		return workhours.Config{}, invalid("no fields to update")
	}
	org, err := s.store.Organizations().Find(ctx, u.OrganizationID)
	if err != nil {
		return workhours.Config{}, err
	}

	next := org.WorkHours
	if patch.Timezone != nil {
		tz := strings.TrimSpace(*patch.Timezone)
		if _, err := workhours.LoadLocation(tz); err != nil {
			return workhours.Config{}, invalid("invalid timezone")
		}
		next.Timezone = tz
	}
	if patch.LoginTime != nil {
		v := strings.TrimSpace(*patch.LoginTime)
		if _, err := workhours.ParseClock(v); err != nil {
			return workhours.Config{}, invalid("login_time must be HH:MM")
		}
		next.LoginTime = v
	}
	if patch.LogoffTime != nil {
		v := strings.TrimSpace(*patch.LogoffTime)
		if _, err := workhours.ParseClock(v); err != nil {
			return workhours.Config{}, invalid("logoff_time must be HH:MM")
		}
		next.LogoffTime = v
	}
	if next.LoginTime == "" {
		next.LoginTime = workhours.DefaultLoginTime
	}
	if next.LogoffTime == "" {
		next.LogoffTime = workhours.DefaultLogoffTime
	}
	if next.Timezone == "" {
		next.Timezone = workhours.DefaultTimezone
	}
	if err := next.Validate(); err != nil {
		if start, end, werr := next.Window(); werr == nil && start >= end {
			return workhours.Config{}, invalid("login_time must be before logoff_time")
		}
		return workhours.Config{}, invalid(err.Error())
	}

	if err := s.store.Organizations().UpdateWorkHours(ctx, org.ID, next); err != nil {
		return workhours.Config{}, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, org.ID); err != nil {
			s.log.Warn("config cache invalidate failed", zap.String("org_id", org.ID), zap.Error(err))
		}
	}
	obs.ObserveConfigUpdate()
	_ = audit.LogEvent(ctx, "config.update", map[string]any{
		"org_id":      org.ID,
		"login_time":  next.LoginTime,
		"logoff_time": next.LogoffTime,
		"timezone":    next.Timezone,
	})
	return next, nil
}

// dayBounds returns [start of day, start of next day) for t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func (s *Service) orgLocation(cfg workhours.Config) *time.Location {
	loc, err := workhours.LoadLocation(cfg.Timezone)
	if err != nil {
		loc, _ = workhours.LoadLocation(workhours.DefaultTimezone)
	}
	return loc
}

// TodayAttendance returns the user's latest attendance for the current day
// in the organization timezone, or nil when there is none.
func (s *Service) TodayAttendance(ctx context.Context, userID string) (*Attendance, error) {
	u, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	cfg := s.orgConfig(ctx, u.OrganizationID)
	from, to := dayBounds(s.now(), s.orgLocation(cfg))
	a, err := s.store.Attendance().LatestForUser(ctx, u.ID, from, to)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return a, err
}
