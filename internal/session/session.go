// Package session holds the client-side login state: silent restore at cold
// start, explicit login and logout, and the watchdog that forces a Morning
// session out once the organization's work-hours window opens.
package session

import (
	"errors"
	"time"

	"audient.app/internal/workhours"
)

// ErrLocationRequired aborts a login when coordinates could not be captured.
var ErrLocationRequired = errors.New("location permission is required to sign in")

// ErrNotLoggedIn is returned by operations that need an active session.
var ErrNotLoggedIn = errors.New("session: not logged in")

// State is the lifecycle position of the manager.
type State int

const (
	// NotReady holds until the cold-start restore has resolved.
	NotReady State = iota
	LoggedOut
	Restoring
	LoggedIn
)

func (s State) String() string {
	switch s {
	case NotReady:
		return "NotReady"
	case LoggedOut:
		return "LoggedOut"
	case Restoring:
		return "Restoring"
	case LoggedIn:
		return "LoggedIn"
	default:
		return "Unknown"
	}
}

// User is the identity carried by a persisted session.
type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// Persisted is the session entry written on a remembered login. Period is
// stored under its own key and is not part of the session payload.
type Persisted struct {
	User   User             `json:"user"`
	Token  string           `json:"token"`
	Period workhours.Period `json:"-"`
}

// Decision is the outcome of a cold-start restore check.
type Decision int

const (
	Discard Decision = iota
	Restore
)

func (d Decision) String() string {
	if d == Restore {
		return "restore"
	}
	return "discard"
}

// ShouldRestore restores a persisted session only while the work-hours
// window is open. A missing session is discarded regardless of time.
func ShouldRestore(p *workhours.Policy, persisted *Persisted, cfg workhours.Config, now time.Time) Decision {
	if p.RestoreAllowed(persisted != nil && persisted.Token != "", cfg, now) {
		return Restore
	}
	return Discard
}
