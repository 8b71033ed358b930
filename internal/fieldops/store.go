package fieldops

import (
	"context"
	"time"

	"audient.app/internal/workhours"
)

// Store describes persistence operations required by the service.
type Store interface {
	Users() UserStore
	Organizations() OrganizationStore
	Attendance() AttendanceStore
	Locations() LocationStore
	Clients() ClientStore
	Recordings() RecordingStore
}

// UserStore manages users. Create returns ErrAlreadyExists on a duplicate email.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	IncrementLoginCount(ctx context.Context, id string) (*User, error)
	ListByOrg(ctx context.Context, orgID string) ([]*User, error)
}

// OrganizationStore manages organizations and their work-hours window.
type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	UpdateWorkHours(ctx context.Context, id string, cfg workhours.Config) error
}

// AttendanceStore appends login attendance and answers range queries.
// Ranges are half-open: from <= login_at < to.
type AttendanceStore interface {
	Record(ctx context.Context, a *Attendance) error
	LatestForUser(ctx context.Context, userID string, from, to time.Time) (*Attendance, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]Attendance, error)
	ListForOrg(ctx context.Context, orgID string, from, to time.Time) ([]AttendanceEntry, error)
	LatestByOrg(ctx context.Context, orgID string) (map[string]Attendance, error)
}

// LocationStore manages per-user location profiles.
type LocationStore interface {
	Create(ctx context.Context, p *LocationProfile) error
	FindBase(ctx context.Context, userID string) (*LocationProfile, error)
	ListByUser(ctx context.Context, userID string) ([]LocationProfile, error)
	Delete(ctx context.Context, id, userID string) error
}

// ClientStore manages clients and their stakeholders. Client lookups are
// scoped to the owning user; Create returns ErrAlreadyExists on a duplicate
// code. Deleting a client removes its stakeholders.
type ClientStore interface {
	Create(ctx context.Context, c *Client) error
	Find(ctx context.Context, id, userID string) (*Client, error)
	ListByUser(ctx context.Context, userID string) ([]Client, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id, userID string) error

	AddStakeholder(ctx context.Context, st *Stakeholder) error
	ListStakeholders(ctx context.Context, clientID string) ([]Stakeholder, error)
	DeleteStakeholder(ctx context.Context, id, clientID string) error
}

// RecordingStore manages per-user transcripts.
type RecordingStore interface {
	Create(ctx context.Context, r *Recording) error
	Find(ctx context.Context, id, userID string) (*Recording, error)
	ListByUser(ctx context.Context, userID string) ([]Recording, error)
	Delete(ctx context.Context, id, userID string) error
}

// ConfigCache is an optional read-through cache for organization work hours.
type ConfigCache interface {
	Get(ctx context.Context, orgID string) (workhours.Config, bool, error)
	Set(ctx context.Context, orgID string, cfg workhours.Config) error
	Invalidate(ctx context.Context, orgID string) error
}
