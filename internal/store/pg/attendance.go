package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"audient.app/internal/fieldops"
	"audient.app/internal/ids"
	"audient.app/internal/workhours"
)

type attendance struct{ s *Store }

const attendanceColumns = `a.id, a.user_id, a.login_at, a.latitude, a.longitude, coalesce(a.period, '')`

func scanAttendance(row rowScanner, extra ...any) (fieldops.Attendance, error) {
	var (
		a        fieldops.Attendance
		lat, lon sql.NullFloat64
		period   string
	)
	dest := append([]any{&a.ID, &a.UserID, &a.LoginAt, &lat, &lon, &period}, extra...)
	if err := row.Scan(dest...); err != nil {
		return fieldops.Attendance{}, err
	}
	a.Latitude = floatPtr(lat)
	a.Longitude = floatPtr(lon)
	a.Period = workhours.Period(period)
	return a, nil
}

func (r attendance) Record(ctx context.Context, a *fieldops.Attendance) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	if a.LoginAt.IsZero() {
		a.LoginAt = r.s.now()
	}
	_, err := r.s.db.ExecContext(ctx, `
		insert into attendance (id, user_id, login_at, latitude, longitude, period)
		values ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.UserID, a.LoginAt, nullFloat(a.Latitude), nullFloat(a.Longitude), nullIfEmpty(string(a.Period)))
	return err
}

func (r attendance) LatestForUser(ctx context.Context, userID string, from, to time.Time) (*fieldops.Attendance, error) {
	a, err := scanAttendance(r.s.db.QueryRowContext(ctx, `
		select `+attendanceColumns+`
		from attendance a
		where a.user_id = $1 and a.login_at >= $2 and a.login_at < $3
		order by a.login_at desc
		limit 1
	`, userID, from, to))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fieldops.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r attendance) ListForUser(ctx context.Context, userID string, limit int) ([]fieldops.Attendance, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.s.db.QueryContext(ctx, `
		select `+attendanceColumns+`
		from attendance a
		where a.user_id = $1
		order by a.login_at desc
		limit $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []fieldops.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r attendance) ListForOrg(ctx context.Context, orgID string, from, to time.Time) ([]fieldops.AttendanceEntry, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		select `+attendanceColumns+`, u.name, u.email, u.role
		from attendance a
		join users u on u.id = a.user_id
		where u.organization_id = $1 and a.login_at >= $2 and a.login_at < $3
		order by a.login_at desc
	`, orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []fieldops.AttendanceEntry
	for rows.Next() {
		var e fieldops.AttendanceEntry
		a, err := scanAttendance(rows, &e.Name, &e.Email, &e.Role)
		if err != nil {
			return nil, err
		}
		e.Attendance = a
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r attendance) LatestByOrg(ctx context.Context, orgID string) (map[string]fieldops.Attendance, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		select distinct on (a.user_id) `+attendanceColumns+`
		from attendance a
		join users u on u.id = a.user_id
		where u.organization_id = $1
		order by a.user_id, a.login_at desc
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]fieldops.Attendance)
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out[a.UserID] = a
	}
	return out, rows.Err()
}

type locations struct{ s *Store }

const locationColumns = `id, user_id, name, type, address, latitude, longitude, use_current_location, created_at`

func scanLocation(row rowScanner) (fieldops.LocationProfile, error) {
	var (
		p        fieldops.LocationProfile
		lat, lon sql.NullFloat64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Type, &p.Address, &lat, &lon, &p.UseCurrentLocation, &p.CreatedAt); err != nil {
		return fieldops.LocationProfile{}, err
	}
	p.Latitude = floatPtr(lat)
	p.Longitude = floatPtr(lon)
	return p, nil
}

func (r locations) Create(ctx context.Context, p *fieldops.LocationProfile) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.s.now()
	}
	_, err := r.s.db.ExecContext(ctx, `
		insert into location_profiles (id, user_id, name, type, address, latitude, longitude, use_current_location, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.UserID, p.Name, p.Type, p.Address, nullFloat(p.Latitude), nullFloat(p.Longitude), p.UseCurrentLocation, p.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fieldops.ErrAlreadyExists
	}
	return err
}

func (r locations) FindBase(ctx context.Context, userID string) (*fieldops.LocationProfile, error) {
	p, err := scanLocation(r.s.db.QueryRowContext(ctx, `
		select `+locationColumns+` from location_profiles where user_id = $1 and type = 'base'
	`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fieldops.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r locations) ListByUser(ctx context.Context, userID string) ([]fieldops.LocationProfile, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		select `+locationColumns+` from location_profiles where user_id = $1 order by created_at desc, id desc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []fieldops.LocationProfile
	for rows.Next() {
		p, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r locations) Delete(ctx context.Context, id, userID string) error {
	res, err := r.s.db.ExecContext(ctx, `delete from location_profiles where id = $1 and user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}
