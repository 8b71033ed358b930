package pg

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"audient.app/internal/fieldops"
)

var clientCols = []string{"id", "user_id", "client_name", "client_code", "industry_sector", "company_size",
	"headquarters_location", "primary_office_location", "website_domain",
	"client_tier", "engagement_health", "is_active", "created_at", "updated_at"}

func TestClientsCreateMapsDuplicateCode(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("insert into clients").
		WithArgs(sqlmock.AnyArg(), "u1", "Tata Steel", "TS-01", "Metals", sql.NullString{},
			sql.NullString{}, sql.NullString{}, sql.NullString{},
			fieldops.TierNormal, fieldops.HealthNeutral, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into clients").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	c := &fieldops.Client{UserID: "u1", Name: "Tata Steel", Code: "TS-01", IndustrySector: "Metals",
		Tier: fieldops.TierNormal, Health: fieldops.HealthNeutral, Active: true}
	if err := s.Clients().Create(context.Background(), c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == "" || !c.CreatedAt.Equal(s.now()) || !c.UpdatedAt.Equal(c.CreatedAt) {
		t.Fatalf("expected id and timestamps to be assigned: %+v", c)
	}
	dup := &fieldops.Client{UserID: "u2", Name: "Other", Code: "TS-01", Tier: fieldops.TierNormal, Health: fieldops.HealthNeutral}
	if err := s.Clients().Create(context.Background(), dup); !errors.Is(err, fieldops.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClientsFindIsScopedToOwner(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select .* from clients where id = \\$1 and user_id = \\$2").
		WithArgs("c1", "u1").
		WillReturnRows(sqlmock.NewRows(clientCols).AddRow("c1", "u1", "Tata Steel", "TS-01", "Metals", "",
			"Mumbai", "", "tata.example", fieldops.TierStrategic, fieldops.HealthGood, true, created, created))
	mock.ExpectQuery("select .* from clients where id = \\$1 and user_id = \\$2").
		WithArgs("c1", "u2").
		WillReturnError(sql.ErrNoRows)

	c, err := s.Clients().Find(context.Background(), "c1", "u1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if c.Tier != fieldops.TierStrategic || c.HeadquartersLocation != "Mumbai" || !c.Active {
		t.Fatalf("unexpected client: %+v", c)
	}
	if _, err := s.Clients().Find(context.Background(), "c1", "u2"); !errors.Is(err, fieldops.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClientsUpdateMissingRow(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("update clients").
		WithArgs("c1", "u1", "Renamed", sql.NullString{}, sql.NullString{}, sql.NullString{}, sql.NullString{},
			sql.NullString{}, fieldops.TierLowTouch, fieldops.HealthRisk, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Clients().Update(context.Background(), &fieldops.Client{ID: "c1", UserID: "u1", Name: "Renamed",
		Tier: fieldops.TierLowTouch, Health: fieldops.HealthRisk})
	if !errors.Is(err, fieldops.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStakeholdersListAndDelete(t *testing.T) {
	s, mock := newMock(t)
	at := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "client_id", "contact_name", "designation_role", "email", "phone", "notes", "created_at", "updated_at"}
	mock.ExpectQuery("select .* from stakeholders where client_id").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("s1", "c1", "Meera", "CFO", "meera@tata.example", "", "", at, at).
			AddRow("s2", "c1", "Ravi", "", "", "+91 90000", "prefers calls", at.Add(time.Hour), at.Add(time.Hour)))
	mock.ExpectExec("delete from stakeholders").
		WithArgs("s9", "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	list, err := s.Clients().ListStakeholders(context.Background(), "c1")
	if err != nil {
		t.Fatalf("ListStakeholders: %v", err)
	}
	if len(list) != 2 || list[0].ContactName != "Meera" || list[1].Notes != "prefers calls" {
		t.Fatalf("unexpected stakeholders: %+v", list)
	}
	if err := s.Clients().DeleteStakeholder(context.Background(), "s9", "c1"); !errors.Is(err, fieldops.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordingsRoundTripDuration(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("insert into recordings").
		WithArgs(sqlmock.AnyArg(), "u1", "met the CFO", sql.NullInt32{Int32: 95, Valid: true}, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	cols := []string{"id", "user_id", "transcript", "duration_seconds", "created_at"}
	mock.ExpectQuery("select .* from recordings where user_id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("r2", "u1", "", nil, s.now()).
			AddRow("r1", "u1", "met the CFO", int64(95), s.now()))

	d := 95
	rec := &fieldops.Recording{UserID: "u1", Transcript: "met the CFO", DurationSeconds: &d}
	if err := s.Recordings().Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	list, err := s.Recordings().ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 || list[0].DurationSeconds != nil || list[1].DurationSeconds == nil || *list[1].DurationSeconds != 95 {
		t.Fatalf("unexpected recordings: %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClientMigrationsShipWithDownFiles(t *testing.T) {
	for _, name := range []string{"0003_clients", "0004_recordings"} {
		for _, suffix := range []string{".up.sql", ".down.sql"} {
			if _, err := fs.Stat(Migrations(), name+suffix); err != nil {
				t.Fatalf("missing %s%s: %v", name, suffix, err)
			}
		}
	}
}
