package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"audient.app/internal/fieldops"
	"audient.app/internal/ids"
	"audient.app/internal/workhours"
)

const pgErrUniqueViolation = "23505"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations exposes the embedded schema migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ fieldops.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Users() fieldops.UserStore                 { return users{s} }
func (s *Store) Organizations() fieldops.OrganizationStore { return orgs{s} }
func (s *Store) Attendance() fieldops.AttendanceStore      { return attendance{s} }
func (s *Store) Locations() fieldops.LocationStore         { return locations{s} }
func (s *Store) Clients() fieldops.ClientStore             { return clients{s} }
func (s *Store) Recordings() fieldops.RecordingStore       { return recordings{s} }

type rowScanner interface {
	Scan(dest ...any) error
}

type users struct{ s *Store }

const userColumns = `id, name, email, password_hash, role, coalesce(organization_id, ''), login_count, created_at`

func scanUser(row rowScanner) (*fieldops.User, error) {
	var u fieldops.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.OrganizationID, &u.LoginCount, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fieldops.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r users) Create(ctx context.Context, u *fieldops.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.s.now()
	}
	_, err := r.s.db.ExecContext(ctx, `
		insert into users (id, name, email, password_hash, role, organization_id, login_count, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, u.Role, nullIfEmpty(u.OrganizationID), u.LoginCount, u.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fieldops.ErrAlreadyExists
	}
	return err
}

func (r users) Find(ctx context.Context, id string) (*fieldops.User, error) {
	return scanUser(r.s.db.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id))
}

func (r users) FindByEmail(ctx context.Context, email string) (*fieldops.User, error) {
	return scanUser(r.s.db.QueryRowContext(ctx, `select `+userColumns+` from users where email = $1`,
		strings.ToLower(strings.TrimSpace(email))))
}

func (r users) IncrementLoginCount(ctx context.Context, id string) (*fieldops.User, error) {
	return scanUser(r.s.db.QueryRowContext(ctx, `
		update users set login_count = login_count + 1 where id = $1
		returning `+userColumns, id))
}

func (r users) ListByOrg(ctx context.Context, orgID string) ([]*fieldops.User, error) {
	rows, err := r.s.db.QueryContext(ctx, `select `+userColumns+` from users where organization_id = $1 order by id`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*fieldops.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type orgs struct{ s *Store }

func (r orgs) Create(ctx context.Context, org *fieldops.Organization) error {
	if org.ID == "" {
		org.ID = ids.New()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = r.s.now()
	}
	org.UpdatedAt = org.CreatedAt
	cfg := org.WorkHours
	_, err := r.s.db.ExecContext(ctx, `
		insert into organizations (id, name, login_time, logoff_time, timezone, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $6)
	`, org.ID, org.Name, cfg.LoginTime, cfg.LogoffTime, cfg.Timezone, org.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fieldops.ErrAlreadyExists
	}
	return err
}

func (r orgs) Find(ctx context.Context, id string) (*fieldops.Organization, error) {
	var org fieldops.Organization
	err := r.s.db.QueryRowContext(ctx, `
		select id, name, login_time, logoff_time, timezone, created_at, updated_at
		from organizations where id = $1
	`, id).Scan(&org.ID, &org.Name, &org.WorkHours.LoginTime, &org.WorkHours.LogoffTime, &org.WorkHours.Timezone,
		&org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fieldops.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r orgs) UpdateWorkHours(ctx context.Context, id string, cfg workhours.Config) error {
	res, err := r.s.db.ExecContext(ctx, `
		update organizations
		set login_time = $2, logoff_time = $3, timezone = $4, updated_at = $5
		where id = $1
	`, id, cfg.LoginTime, cfg.LogoffTime, cfg.Timezone, r.s.now())
	if err != nil {
		return err
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fieldops.ErrNotFound
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
