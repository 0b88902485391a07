package postgres

import (
	"context"
	"database/sql"

	"github.com/mantenix/identity/internal/identity/domain"
)

type profilesRepo struct {
	q dbtx
}

func (r *profilesRepo) CreateProfile(ctx context.Context, p domain.Profile) error {
	var capacity *string
	if p.CapacityLevel != nil {
		c := string(*p.CapacityLevel)
		capacity = &c
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, role, capacity_level, avatar_url, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`,
		p.ID, p.Email, toNullString(p.FullName), string(p.Role), toNullString(capacity),
		toNullString(p.AvatarURL), p.PasswordHash,
	)
	return mapConstraint(err)
}

func (r *profilesRepo) GetProfileByID(ctx context.Context, id string) (domain.Profile, error) {
	return r.scanProfile(r.q.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, capacity_level, avatar_url, password_hash, created_at, updated_at
		FROM profiles
		WHERE id = $1`,
		id,
	))
}

func (r *profilesRepo) GetProfileByEmail(
	ctx context.Context,
	email string,
) (domain.Profile, error) {
	return r.scanProfile(r.q.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, capacity_level, avatar_url, password_hash, created_at, updated_at
		FROM profiles
		WHERE email = $1`,
		email,
	))
}

func (r *profilesRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM profiles`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *profilesRepo) scanProfile(row *sql.Row) (domain.Profile, error) {
	var (
		p         domain.Profile
		fullName  sql.NullString
		capacity  sql.NullString
		avatarURL sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.Email, &fullName, &p.Role, &capacity, &avatarURL, &p.PasswordHash,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Profile{}, mapNotFound(err)
	}
	p.FullName = fromNullString(fullName)
	p.AvatarURL = fromNullString(avatarURL)
	if capacity.Valid {
		c := domain.CapacityLevel(capacity.String)
		p.CapacityLevel = &c
	}
	return p, nil
}
