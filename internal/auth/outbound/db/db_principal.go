package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/otpgate/otpgate/internal/auth/entity"
)

const principalColumns = `id, identity, role, verified, created_at, updated_at`

func scanPrincipal(row pgx.Row) (*entity.Principal, error) {
	var p entity.Principal
	err := row.Scan(&p.ID, &p.Identity, &p.Role, &p.Verified, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *DB) GetPrincipalByIdentity(ctx context.Context, identity string) (p *entity.Principal, err error) {
	ctx, span := s.startSpan(ctx, "GetPrincipalByIdentity")
	defer func() { s.endSpan(span, err) }()

	row := s.conn.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM auth_principals WHERE identity = $1`, identity)

	p, err = scanPrincipal(row)
	if err != nil {
		return nil, s.mapError(err)
	}
	return p, nil
}

func (s *DB) GetPrincipalByID(ctx context.Context, id int64) (p *entity.Principal, err error) {
	ctx, span := s.startSpan(ctx, "GetPrincipalByID")
	defer func() { s.endSpan(span, err) }()

	row := s.conn.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM auth_principals WHERE id = $1`, id)

	p, err = scanPrincipal(row)
	if err != nil {
		return nil, s.mapError(err)
	}
	return p, nil
}

func (s *DB) GetPrincipalList(ctx context.Context, filter entity.PrincipalListFilter) (ps []entity.Principal, total int64, err error) {
	ctx, span := s.startSpan(ctx, "GetPrincipalList")
	defer func() { s.endSpan(span, err) }()

	search := "%" + filter.Search + "%"

	if err = s.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM auth_principals WHERE ($1 = '%%' OR identity ILIKE $1)`,
		search).Scan(&total); err != nil {
		return nil, 0, s.mapError(err)
	}

	rows, err := s.conn.Query(ctx,
		`SELECT `+principalColumns+`
		 FROM auth_principals
		 WHERE ($1 = '%%' OR identity ILIKE $1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		search, filter.Size, filter.Page)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	defer rows.Close()

	ps = make([]entity.Principal, 0, filter.Size)
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, 0, s.mapError(err)
		}
		ps = append(ps, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, s.mapError(err)
	}

	return ps, total, nil
}

func (s *DB) CreatePrincipal(ctx context.Context, in entity.NewPrincipal) (p *entity.Principal, err error) {
	ctx, span := s.startSpan(ctx, "CreatePrincipal")
	defer func() { s.endSpan(span, err) }()

	row := s.conn.QueryRow(ctx,
		`INSERT INTO auth_principals (id, identity, role, verified)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+principalColumns,
		in.ID, in.Identity, in.Role, in.Verified)

	p, err = scanPrincipal(row)
	if err != nil {
		return nil, s.mapError(err)
	}
	return p, nil
}

// EnsurePrincipal creates the principal when absent and returns the current
// row either way. Role, verified and timestamps of an existing row are never
// modified.
func (s *DB) EnsurePrincipal(ctx context.Context, in entity.NewPrincipal) (p *entity.Principal, err error) {
	ctx, span := s.startSpan(ctx, "EnsurePrincipal")
	defer func() { s.endSpan(span, err) }()

	// DO NOTHING returns no row when a concurrent insert wins the conflict
	// wait; the no-op DO UPDATE makes RETURNING yield the row on both paths.
	row := s.conn.QueryRow(ctx,
		`INSERT INTO auth_principals (id, identity, role, verified)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (identity) DO UPDATE SET identity = EXCLUDED.identity
		 RETURNING `+principalColumns,
		in.ID, in.Identity, in.Role, in.Verified)

	p, err = scanPrincipal(row)
	if err != nil {
		return nil, s.mapError(err)
	}
	return p, nil
}

func (s *DB) GetPrincipalDetail(ctx context.Context, principalID int64) (d *entity.PrincipalDetail, err error) {
	ctx, span := s.startSpan(ctx, "GetPrincipalDetail")
	defer func() { s.endSpan(span, err) }()

	d = &entity.PrincipalDetail{}
	err = s.conn.QueryRow(ctx,
		`SELECT principal_id, name, gender, date_of_birth, occupation, city, state, country, pincode, updated_at
		 FROM auth_principal_details WHERE principal_id = $1`, principalID).
		Scan(&d.PrincipalID, &d.Name, &d.Gender, &d.DateOfBirth, &d.Occupation,
			&d.City, &d.State, &d.Country, &d.Pincode, &d.UpdatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}
	return d, nil
}

func (s *DB) UpsertPrincipalDetail(ctx context.Context, in entity.PrincipalDetail) (err error) {
	ctx, span := s.startSpan(ctx, "UpsertPrincipalDetail")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx,
		`INSERT INTO auth_principal_details
			(principal_id, name, gender, date_of_birth, occupation, city, state, country, pincode, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		 ON CONFLICT (principal_id) DO UPDATE SET
			name = EXCLUDED.name,
			gender = EXCLUDED.gender,
			date_of_birth = EXCLUDED.date_of_birth,
			occupation = EXCLUDED.occupation,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			country = EXCLUDED.country,
			pincode = EXCLUDED.pincode,
			updated_at = NOW()`,
		in.PrincipalID, in.Name, in.Gender, in.DateOfBirth, in.Occupation,
		in.City, in.State, in.Country, in.Pincode)

	return s.mapError(err)
}
