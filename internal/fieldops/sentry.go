package fieldops

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"audient.app/internal/auth"
	"audient.app/internal/workhours"
)

const dateLayout = "2006-01-02"

// DaySummary counts logins on one calendar day in the organization timezone.
type DaySummary struct {
	Date      string `json:"date"`
	Logins    int    `json:"logins"`
	Employees int    `json:"employees"`
}

// PresenceStatus maps the period of a user's latest login to the dashboard
// status. Only logins made today count.
func PresenceStatus(last *Attendance, today, tomorrow time.Time) string {
	if last == nil || last.LoginAt.Before(today) || !last.LoginAt.Before(tomorrow) {
		return StatusOffline
	}
	switch last.Period {
	case workhours.WorkHours:
		return StatusActive
	case workhours.Morning, workhours.Evening:
		return StatusAway
	default:
		return StatusOffline
	}
}

// adminScope resolves the calling admin and their organization config.
func (s *Service) adminScope(ctx context.Context, adminID string) (*User, workhours.Config, error) {
	u, err := s.store.Users().Find(ctx, adminID)
	if err != nil {
		return nil, workhours.Config{}, err
	}
	if u.Role != auth.RoleAdmin {
		return nil, workhours.Config{}, newError(ErrForbidden, "admin only")
	}
	if u.OrganizationID == "" {
		return nil, workhours.Config{}, newError(ErrNoOrganization, "no organization linked")
	}
	return u, s.orgConfig(ctx, u.OrganizationID), nil
}

// LoginFeedOrganization returns the organization whose login feed the admin
// may follow. The stored role is checked, not the token's.
func (s *Service) LoginFeedOrganization(ctx context.Context, adminID string) (string, error) {
	admin, _, err := s.adminScope(ctx, adminID)
	if err != nil {
		return "", err
	}
	return admin.OrganizationID, nil
}

// Employees lists the admin's organization with each member's latest login
// and presence status.
func (s *Service) Employees(ctx context.Context, adminID string) ([]EmployeeSummary, error) {
	admin, cfg, err := s.adminScope(ctx, adminID)
	if err != nil {
		return nil, err
	}
	users, err := s.store.Users().ListByOrg(ctx, admin.OrganizationID)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.Attendance().LatestByOrg(ctx, admin.OrganizationID)
	if err != nil {
		return nil, err
	}
	today, tomorrow := dayBounds(s.now(), s.orgLocation(cfg))

	out := make([]EmployeeSummary, 0, len(users))
	for _, u := range users {
		sum := EmployeeSummary{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			Role:       u.Role,
			LoginCount: u.LoginCount,
			CreatedAt:  u.CreatedAt,
		}
		var last *Attendance
		if a, ok := latest[u.ID]; ok {
			last = &a
			at := a.LoginAt
			sum.LastLoginAt = &at
			sum.LastLatitude = a.Latitude
			sum.LastLongitude = a.Longitude
			sum.LastPeriod = a.Period
		}
		sum.Status = PresenceStatus(last, today, tomorrow)
		out = append(out, sum)
	}
	// Most recent login first, members who never logged in last.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastLoginAt, out[j].LastLoginAt
		switch {
		case a == nil && b == nil:
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out, nil
}

// AttendanceByDate lists the organization's logins on date (YYYY-MM-DD in
// the organization timezone), newest first.
func (s *Service) AttendanceByDate(ctx context.Context, adminID, date string) ([]AttendanceEntry, error) {
	admin, cfg, err := s.adminScope(ctx, adminID)
	if err != nil {
		return nil, err
	}
	loc := s.orgLocation(cfg)
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return nil, invalid("date must be YYYY-MM-DD")
	}
	from, to := dayBounds(day, loc)
	list, err := s.store.Attendance().ListForOrg(ctx, admin.OrganizationID, from, to)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []AttendanceEntry{}
	}
	return list, nil
}

// MonthSummary counts logins and distinct employees per day of the month.
// Days without logins are omitted.
func (s *Service) MonthSummary(ctx context.Context, adminID string, year, month int) ([]DaySummary, error) {
	if month < 1 || month > 12 || year < 1970 || year > 9999 {
		return nil, invalid("invalid year or month")
	}
	admin, cfg, err := s.adminScope(ctx, adminID)
	if err != nil {
		return nil, err
	}
	loc := s.orgLocation(cfg)
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, 0)
	list, err := s.store.Attendance().ListForOrg(ctx, admin.OrganizationID, from, to)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		logins int
		users  map[string]struct{}
	}
	days := map[string]*bucket{}
	for _, e := range list {
		key := e.LoginAt.In(loc).Format(dateLayout)
		b, ok := days[key]
		if !ok {
			b = &bucket{users: map[string]struct{}{}}
			days[key] = b
		}
		b.logins++
		b.users[e.UserID] = struct{}{}
	}
	out := make([]DaySummary, 0, len(days))
	for key, b := range days {
		out = append(out, DaySummary{Date: key, Logins: b.logins, Employees: len(b.users)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// EmployeeAttendance returns the latest logins of an employee in the admin's
// organization.
func (s *Service) EmployeeAttendance(ctx context.Context, adminID, employeeID string) ([]Attendance, error) {
	admin, _, err := s.adminScope(ctx, adminID)
	if err != nil {
		return nil, err
	}
	emp, err := s.store.Users().Find(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrNotFound, "employee not found")
		}
		return nil, err
	}
	if emp.OrganizationID != admin.OrganizationID {
		return nil, newError(ErrNotFound, "employee not found")
	}
	list, err := s.store.Attendance().ListForUser(ctx, emp.ID, EmployeeAttendanceLimit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Attendance{}
	}
	return list, nil
}
