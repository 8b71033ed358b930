// Package workhours holds the time-of-day rules that gate sessions and
// attendance: whether "now" is inside an organization's work-hours window,
// which period a login belongs to, whether a persisted session may be
// restored and whether an early-morning session must be forced out.
package workhours

import (
	"fmt"
	"time"
)

// ZoneMode selects the timezone "now" is evaluated in.
type ZoneMode int

const (
	// ZoneOrganization evaluates in Config.Timezone.
	ZoneOrganization ZoneMode = iota
	// ZoneDevice evaluates in the device's local zone and ignores Config.Timezone.
	ZoneDevice
)

// Policy evaluates the work-hours rules. The zero value is not usable; build
// one with NewPolicy.
type Policy struct {
	mode   ZoneMode
	device *time.Location
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// WithZoneMode picks organization or device timezone evaluation.
func WithZoneMode(mode ZoneMode) PolicyOption {
	return func(p *Policy) {
		p.mode = mode
	}
}

// WithDeviceLocation sets the zone used under ZoneDevice (time.Local otherwise).
func WithDeviceLocation(loc *time.Location) PolicyOption {
	return func(p *Policy) {
		if loc != nil {
			p.device = loc
		}
	}
}

// NewPolicy returns a Policy evaluating in the organization timezone unless
// overridden.
func NewPolicy(opts ...PolicyOption) *Policy {
	p := &Policy{mode: ZoneOrganization, device: time.Local}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mode reports the configured zone mode.
func (p *Policy) Mode() ZoneMode { return p.mode }

func (p *Policy) location(cfg Config) (*time.Location, error) {
	if p.mode == ZoneDevice {
		return p.device, nil
	}
	return LoadLocation(cfg.Timezone)
}

// minuteOfDay converts now into the evaluation zone and returns the
// minutes since midnight along with the window bounds.
func (p *Policy) minuteOfDay(cfg Config, now time.Time) (cur, start, end int, err error) {
	loc, err := p.location(cfg)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	start, end, err = cfg.Window()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	local := now.In(loc)
	return local.Hour()*60 + local.Minute(), start, end, nil
}

// WithinWorkHours reports start <= now <= end at minute granularity, both
// bounds inclusive. A malformed config is treated as outside work hours.
func (p *Policy) WithinWorkHours(cfg Config, now time.Time) bool {
	cur, start, end, err := p.minuteOfDay(cfg, now)
	if err != nil {
		return false
	}
	return start <= cur && cur <= end
}

// Classify tags a login made at now. Only the backend calls this; clients
// treat the resulting label as opaque.
func (p *Policy) Classify(cfg Config, now time.Time) (Period, error) {
	cur, start, end, err := p.minuteOfDay(cfg, now)
	if err != nil {
		return "", err
	}
	switch {
	case cur < start:
		return Morning, nil
	case cur > end:
		return Evening, nil
	default:
		return WorkHours, nil
	}
}

// RestoreAllowed reports whether a persisted session may be silently
// restored at now. Validity depends only on the window, never on the age of
// the session.
func (p *Policy) RestoreAllowed(present bool, cfg Config, now time.Time) bool {
	return present && p.WithinWorkHours(cfg, now)
}

// RequiresLocationCapture reports whether a login attempted at now must
// capture GPS coordinates. Capture is attempted on every login; the server
// decides the period.
func (p *Policy) RequiresLocationCapture(now time.Time) bool {
	return true
}

// ShouldForceLogout is true only for a Morning session once the window has
// opened. WorkHours and Evening sessions are never forced out.
func (p *Policy) ShouldForceLogout(stored Period, cfg Config, now time.Time) bool {
	return stored == Morning && p.WithinWorkHours(cfg, now)
}
