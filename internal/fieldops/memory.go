package fieldops

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"audient.app/internal/ids"
	"audient.app/internal/workhours"
)

// InMemory implements Store with in-process concurrency safety. It backs
// tests and local runs without a database.
type InMemory struct {
	mu         sync.RWMutex
	users      map[string]*User
	byEmail    map[string]string
	orgs       map[string]*Organization
	attendance []Attendance
	locations  map[string]*LocationProfile

	clients      map[string]*Client
	clientCodes  map[string]string
	stakeholders map[string]*Stakeholder
	recordings   map[string]*Recording
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:     make(map[string]*User),
		byEmail:   make(map[string]string),
		orgs:      make(map[string]*Organization),
		locations: make(map[string]*LocationProfile),

		clients:      make(map[string]*Client),
		clientCodes:  make(map[string]string),
		stakeholders: make(map[string]*Stakeholder),
		recordings:   make(map[string]*Recording),
	}
}

func (s *InMemory) Users() UserStore                 { return memUsers{s} }
func (s *InMemory) Organizations() OrganizationStore { return memOrgs{s} }
func (s *InMemory) Attendance() AttendanceStore      { return memAttendance{s} }
func (s *InMemory) Locations() LocationStore         { return memLocations{s} }
func (s *InMemory) Clients() ClientStore             { return memClients{s} }
func (s *InMemory) Recordings() RecordingStore       { return memRecordings{s} }

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

type memUsers struct{ s *InMemory }

func (m memUsers) Create(ctx context.Context, u *User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	key := emailKey(u.Email)
	if _, ok := m.s.byEmail[key]; ok {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	m.s.users[u.ID] = &cp
	m.s.byEmail[key] = u.ID
	return nil
}

func (m memUsers) Find(ctx context.Context, id string) (*User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	id, ok := m.s.byEmail[emailKey(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.s.users[id]
	return &cp, nil
}

func (m memUsers) IncrementLoginCount(ctx context.Context, id string) (*User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.LoginCount++
	cp := *u
	return &cp, nil
}

func (m memUsers) ListByOrg(ctx context.Context, orgID string) ([]*User, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []*User
	for _, u := range m.s.users {
		if u.OrganizationID == orgID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memOrgs struct{ s *InMemory }

func (m memOrgs) Create(ctx context.Context, org *Organization) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if org.ID == "" {
		org.ID = ids.New()
	}
	if _, ok := m.s.orgs[org.ID]; ok {
		return ErrAlreadyExists
	}
	now := time.Now().UTC()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = now
	}
	org.UpdatedAt = org.CreatedAt
	cp := *org
	m.s.orgs[org.ID] = &cp
	return nil
}

func (m memOrgs) Find(ctx context.Context, id string) (*Organization, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	org, ok := m.s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (m memOrgs) UpdateWorkHours(ctx context.Context, id string, cfg workhours.Config) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	org, ok := m.s.orgs[id]
	if !ok {
		return ErrNotFound
	}
	org.WorkHours = cfg
	org.UpdatedAt = time.Now().UTC()
	return nil
}

type memAttendance struct{ s *InMemory }

func (m memAttendance) Record(ctx context.Context, a *Attendance) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[a.UserID]; !ok {
		return ErrNotFound
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	if a.LoginAt.IsZero() {
		a.LoginAt = time.Now().UTC()
	}
	m.s.attendance = append(m.s.attendance, *a)
	return nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (m memAttendance) LatestForUser(ctx context.Context, userID string, from, to time.Time) (*Attendance, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var best *Attendance
	for i := range m.s.attendance {
		a := m.s.attendance[i]
		if a.UserID != userID || !inRange(a.LoginAt, from, to) {
			continue
		}
		if best == nil || !a.LoginAt.Before(best.LoginAt) {
			cp := a
			best = &cp
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func (m memAttendance) ListForUser(ctx context.Context, userID string, limit int) ([]Attendance, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []Attendance
	for _, a := range m.s.attendance {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sortAttendanceDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memAttendance) ListForOrg(ctx context.Context, orgID string, from, to time.Time) ([]AttendanceEntry, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []AttendanceEntry
	for _, a := range m.s.attendance {
		u, ok := m.s.users[a.UserID]
		if !ok || u.OrganizationID != orgID || !inRange(a.LoginAt, from, to) {
			continue
		}
		out = append(out, AttendanceEntry{Attendance: a, Name: u.Name, Email: u.Email, Role: u.Role})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LoginAt.After(out[j].LoginAt) })
	return out, nil
}

func (m memAttendance) LatestByOrg(ctx context.Context, orgID string) (map[string]Attendance, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	out := make(map[string]Attendance)
	for _, a := range m.s.attendance {
		u, ok := m.s.users[a.UserID]
		if !ok || u.OrganizationID != orgID {
			continue
		}
		if cur, ok := out[a.UserID]; !ok || !a.LoginAt.Before(cur.LoginAt) {
			out[a.UserID] = a
		}
	}
	return out, nil
}

func sortAttendanceDesc(list []Attendance) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].LoginAt.After(list[j].LoginAt) })
}

type memLocations struct{ s *InMemory }

func (m memLocations) Create(ctx context.Context, p *LocationProfile) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := *p
	m.s.locations[p.ID] = &cp
	return nil
}

func (m memLocations) FindBase(ctx context.Context, userID string) (*LocationProfile, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, p := range m.s.locations {
		if p.UserID == userID && p.Type == LocationBase {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m memLocations) ListByUser(ctx context.Context, userID string) ([]LocationProfile, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []LocationProfile
	for _, p := range m.s.locations {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m memLocations) Delete(ctx context.Context, id, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	p, ok := m.s.locations[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	delete(m.s.locations, id)
	return nil
}

// newestFirst orders by creation time, breaking ties on id.
func newestFirst(ai, aj time.Time, idi, idj string) bool {
	if ai.Equal(aj) {
		return idi > idj
	}
	return ai.After(aj)
}

type memClients struct{ s *InMemory }

func (m memClients) Create(ctx context.Context, c *Client) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.clientCodes[c.Code]; ok {
		return ErrAlreadyExists
	}
	if c.ID == "" {
		c.ID = ids.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
		c.UpdatedAt = c.CreatedAt
	}
	cp := *c
	m.s.clients[c.ID] = &cp
	m.s.clientCodes[c.Code] = c.ID
	return nil
}

func (m memClients) Find(ctx context.Context, id, userID string) (*Client, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	c, ok := m.s.clients[id]
	if !ok || c.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m memClients) ListByUser(ctx context.Context, userID string) ([]Client, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []Client
	for _, c := range m.s.clients {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (m memClients) Update(ctx context.Context, c *Client) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cur, ok := m.s.clients[c.ID]
	if !ok || cur.UserID != c.UserID {
		return ErrNotFound
	}
	cp := *c
	cp.Code = cur.Code
	cp.CreatedAt = cur.CreatedAt
	m.s.clients[c.ID] = &cp
	return nil
}

func (m memClients) Delete(ctx context.Context, id, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.clients[id]
	if !ok || c.UserID != userID {
		return ErrNotFound
	}
	delete(m.s.clients, id)
	delete(m.s.clientCodes, c.Code)
	for sid, st := range m.s.stakeholders {
		if st.ClientID == id {
			delete(m.s.stakeholders, sid)
		}
	}
	return nil
}

func (m memClients) AddStakeholder(ctx context.Context, st *Stakeholder) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.clients[st.ClientID]; !ok {
		return ErrNotFound
	}
	if st.ID == "" {
		st.ID = ids.New()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
		st.UpdatedAt = st.CreatedAt
	}
	cp := *st
	m.s.stakeholders[st.ID] = &cp
	return nil
}

func (m memClients) ListStakeholders(ctx context.Context, clientID string) ([]Stakeholder, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []Stakeholder
	for _, st := range m.s.stakeholders {
		if st.ClientID == clientID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
	})
	return out, nil
}

func (m memClients) DeleteStakeholder(ctx context.Context, id, clientID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	st, ok := m.s.stakeholders[id]
	if !ok || st.ClientID != clientID {
		return ErrNotFound
	}
	delete(m.s.stakeholders, id)
	return nil
}

type memRecordings struct{ s *InMemory }

func (m memRecordings) Create(ctx context.Context, r *Recording) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[r.UserID]; !ok {
		return ErrNotFound
	}
	if r.ID == "" {
		r.ID = ids.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cp := *r
	m.s.recordings[r.ID] = &cp
	return nil
}

func (m memRecordings) Find(ctx context.Context, id, userID string) (*Recording, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	r, ok := m.s.recordings[id]
	if !ok || r.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m memRecordings) ListByUser(ctx context.Context, userID string) ([]Recording, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []Recording
	for _, r := range m.s.recordings {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newestFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (m memRecordings) Delete(ctx context.Context, id, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.recordings[id]
	if !ok || r.UserID != userID {
		return ErrNotFound
	}
	delete(m.s.recordings, id)
	return nil
}
