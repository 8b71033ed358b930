package pg

import (
	"context"
	"database/sql"
	"errors"

	"audient.app/internal/fieldops"
	"audient.app/internal/ids"
)

type clients struct{ s *Store }

const clientColumns = `id, user_id, client_name, client_code, coalesce(industry_sector, ''), coalesce(company_size, ''),
	coalesce(headquarters_location, ''), coalesce(primary_office_location, ''), coalesce(website_domain, ''),
	client_tier, engagement_health, is_active, created_at, updated_at`

func scanClient(row rowScanner) (fieldops.Client, error) {
	var c fieldops.Client
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Code, &c.IndustrySector, &c.CompanySize,
		&c.HeadquartersLocation, &c.PrimaryOfficeLocation, &c.WebsiteDomain,
		&c.Tier, &c.Health, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r clients) Create(ctx context.Context, c *fieldops.Client) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.s.now()
		c.UpdatedAt = c.CreatedAt
	}
	_, err := r.s.db.ExecContext(ctx, `
		insert into clients (id, user_id, client_name, client_code, industry_sector, company_size,
			headquarters_location, primary_office_location, website_domain,
			client_tier, engagement_health, is_active, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, c.ID, c.UserID, c.Name, c.Code, nullIfEmpty(c.IndustrySector), nullIfEmpty(c.CompanySize),
		nullIfEmpty(c.HeadquartersLocation), nullIfEmpty(c.PrimaryOfficeLocation), nullIfEmpty(c.WebsiteDomain),
		c.Tier, c.Health, c.Active, c.CreatedAt, c.UpdatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
		return fieldops.ErrAlreadyExists
	}
	return err
}

func (r clients) Find(ctx context.Context, id, userID string) (*fieldops.Client, error) {
	c, err := scanClient(r.s.db.QueryRowContext(ctx, `
		select `+clientColumns+` from clients where id = $1 and user_id = $2
	`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fieldops.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r clients) ListByUser(ctx context.Context, userID string) ([]fieldops.Client, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		select `+clientColumns+` from clients where user_id = $1 order by created_at desc, id desc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []fieldops.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Update rewrites the mutable columns. The code and creation time are fixed.
func (r clients) Update(ctx context.Context, c *fieldops.Client) error {
	res, err := r.s.db.ExecContext(ctx, `
		update clients
		set client_name = $3, industry_sector = $4, company_size = $5, headquarters_location = $6,
			primary_office_location = $7, website_domain = $8, client_tier = $9, engagement_health = $10,
			is_active = $11, updated_at = $12
		where id = $1 and user_id = $2
	`, c.ID, c.UserID, c.Name, nullIfEmpty(c.IndustrySector), nullIfEmpty(c.CompanySize),
		nullIfEmpty(c.HeadquartersLocation), nullIfEmpty(c.PrimaryOfficeLocation), nullIfEmpty(c.WebsiteDomain),
		c.Tier, c.Health, c.Active, c.UpdatedAt)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r clients) Delete(ctx context.Context, id, userID string) error {
	res, err := r.s.db.ExecContext(ctx, `delete from clients where id = $1 and user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

const stakeholderColumns = `id, client_id, contact_name, coalesce(designation_role, ''), coalesce(email, ''),
	coalesce(phone, ''), coalesce(notes, ''), created_at, updated_at`

func (r clients) AddStakeholder(ctx context.Context, st *fieldops.Stakeholder) error {
	if st.ID == "" {
		st.ID = ids.New()
	}
	if st.CreatedAt.IsZero() {
		st.CreatedAt = r.s.now()
		st.UpdatedAt = st.CreatedAt
	}
	_, err := r.s.db.ExecContext(ctx, `
		insert into stakeholders (id, client_id, contact_name, designation_role, email, phone, notes, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, st.ID, st.ClientID, st.ContactName, nullIfEmpty(st.DesignationRole), nullIfEmpty(st.Email),
		nullIfEmpty(st.Phone), nullIfEmpty(st.Notes), st.CreatedAt, st.UpdatedAt)
	return err
}

func (r clients) ListStakeholders(ctx context.Context, clientID string) ([]fieldops.Stakeholder, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		select `+stakeholderColumns+` from stakeholders where client_id = $1 order by created_at asc, id asc
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []fieldops.Stakeholder
	for rows.Next() {
		var st fieldops.Stakeholder
		if err := rows.Scan(&st.ID, &st.ClientID, &st.ContactName, &st.DesignationRole, &st.Email,
			&st.Phone, &st.Notes, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (r clients) DeleteStakeholder(ctx context.Context, id, clientID string) error {
	res, err := r.s.db.ExecContext(ctx, `delete from stakeholders where id = $1 and client_id = $2`, id, clientID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

type recordings struct{ s *Store }

const recordingColumns = `id, user_id, coalesce(transcript, ''), duration_seconds, created_at`

func scanRecording(row rowScanner) (fieldops.Recording, error) {
	var (
		rec      fieldops.Recording
		duration sql.NullInt32
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Transcript, &duration, &rec.CreatedAt); err != nil {
		return fieldops.Recording{}, err
	}
	if duration.Valid {
		d := int(duration.Int32)
		rec.DurationSeconds = &d
	}
	return rec, nil
}

func (r recordings) Create(ctx context.Context, rec *fieldops.Recording) error {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.s.now()
	}
	var duration sql.NullInt32
	if rec.DurationSeconds != nil {
		duration = sql.NullInt32{Int32: int32(*rec.DurationSeconds), Valid: true}
	}
	_, err := r.s.db.ExecContext(ctx, `
		insert into recordings (id, user_id, transcript, duration_seconds, created_at)
		values ($1, $2, $3, $4, $5)
	`, rec.ID, rec.UserID, nullIfEmpty(rec.Transcript), duration, rec.CreatedAt)
	return err
}

func (r recordings) Find(ctx context.Context, id, userID string) (*fieldops.Recording, error) {
	rec, err := scanRecording(r.s.db.QueryRowContext(ctx, `
		select `+recordingColumns+` from recordings where id = $1 and user_id = $2
	`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fieldops.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r recordings) ListByUser(ctx context.Context, userID string) ([]fieldops.Recording, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		select `+recordingColumns+` from recordings where user_id = $1 order by created_at desc, id desc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []fieldops.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r recordings) Delete(ctx context.Context, id, userID string) error {
	res, err := r.s.db.ExecContext(ctx, `delete from recordings where id = $1 and user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}
