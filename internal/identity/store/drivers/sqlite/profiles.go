package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/mantenix/identity/internal/identity/domain"
)

type profilesRepo struct {
	q dbtx
}

func (r *profilesRepo) CreateProfile(ctx context.Context, p domain.Profile) error {
	now := time.Now()
	var capacity *string
	if p.CapacityLevel != nil {
		c := string(*p.CapacityLevel)
		capacity = &c
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO profiles (id, email, full_name, role, capacity_level, avatar_url, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, toNullString(p.FullName), string(p.Role), toNullString(capacity),
		toNullString(p.AvatarURL), p.PasswordHash, toUnix(now), toUnix(now),
	)
	return mapConstraint(err)
}

func (r *profilesRepo) GetProfileByID(ctx context.Context, id string) (domain.Profile, error) {
	return scanProfile(r.q.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, capacity_level, avatar_url, password_hash, created_at, updated_at
		FROM profiles
		WHERE id = ?`,
		id,
	))
}

func (r *profilesRepo) GetProfileByEmail(
	ctx context.Context,
	email string,
) (domain.Profile, error) {
	return scanProfile(r.q.QueryRowContext(ctx, `
		SELECT id, email, full_name, role, capacity_level, avatar_url, password_hash, created_at, updated_at
		FROM profiles
		WHERE email = ?`,
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

func scanProfile(row rowScanner) (domain.Profile, error) {
	var (
		p         domain.Profile
		fullName  sql.NullString
		capacity  sql.NullString
		avatarURL sql.NullString
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(
		&p.ID, &p.Email, &fullName, &p.Role, &capacity, &avatarURL, &p.PasswordHash,
		&createdAt, &updatedAt,
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
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)
	return p, nil
}
