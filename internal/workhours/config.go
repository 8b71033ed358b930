package workhours

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	// Containers ship without a zoneinfo database; org timezones must still resolve.
	_ "time/tzdata"
)

const (
	DefaultLoginTime  = "09:00"
	DefaultLogoffTime = "18:00"
	DefaultTimezone   = "Asia/Kolkata"
)

// Config is an organization's work-hours window.
type Config struct {
	LoginTime  string `json:"login_time"`
	LogoffTime string `json:"logoff_time"`
	Timezone   string `json:"timezone"`
}

// Default returns the window used when an organization never configured one.
func Default() Config {
	return Config{
		LoginTime:  DefaultLoginTime,
		LogoffTime: DefaultLogoffTime,
		Timezone:   DefaultTimezone,
	}
}

// Parse builds a Config from possibly partial input. Blank fields take their
// default; the merged result is validated and, if it is not usable, Default()
// is returned together with the validation error.
func Parse(loginTime, logoffTime, timezone string) (Config, error) {
	cfg := Config{
		LoginTime:  strings.TrimSpace(loginTime),
		LogoffTime: strings.TrimSpace(logoffTime),
		Timezone:   strings.TrimSpace(timezone),
	}.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.LoginTime == "" {
		c.LoginTime = DefaultLoginTime
	}
	if c.LogoffTime == "" {
		c.LogoffTime = DefaultLogoffTime
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	return c
}

// Validate enforces well-formed times, a loadable timezone and login < logoff.
func (c Config) Validate() error {
	start, err := ParseClock(c.LoginTime)
	if err != nil {
		return fmt.Errorf("%w: login_time: %v", ErrInvalidConfig, err)
	}
	end, err := ParseClock(c.LogoffTime)
	if err != nil {
		return fmt.Errorf("%w: logoff_time: %v", ErrInvalidConfig, err)
	}
	if _, err := LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	if start >= end {
		return fmt.Errorf("%w: login_time must be before logoff_time", ErrInvalidConfig)
	}
	return nil
}

// Window returns the window bounds in minutes since midnight.
func (c Config) Window() (start, end int, err error) {
	if start, err = ParseClock(c.LoginTime); err != nil {
		return 0, 0, err
	}
	if end, err = ParseClock(c.LogoffTime); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseClock converts a strict "HH:MM" 24h value into minutes since midnight.
func ParseClock(v string) (int, error) {
	if len(v) != 5 || v[2] != ':' {
		return 0, fmt.Errorf("%q is not HH:MM", v)
	}
	h, err := strconv.Atoi(v[:2])
	if err != nil || !isDigits(v[:2]) {
		return 0, fmt.Errorf("%q has a non-numeric hour", v)
	}
	m, err := strconv.Atoi(v[3:])
	if err != nil || !isDigits(v[3:]) {
		return 0, fmt.Errorf("%q has a non-numeric minute", v)
	}
	if h > 23 {
		return 0, fmt.Errorf("hour %d out of range", h)
	}
	if m > 59 {
		return 0, fmt.Errorf("minute %d out of range", m)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var locations sync.Map // name -> *time.Location

// LoadLocation resolves an IANA zone, caching successful lookups.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty timezone")
	}
	// "Local" is the host zone, not an IANA name an organization can own.
	if strings.EqualFold(name, "Local") {
		return nil, fmt.Errorf("timezone %q is not an IANA zone", name)
	}
	if v, ok := locations.Load(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	locations.Store(name, loc)
	return loc, nil
}
