package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/mantenix/identity/internal/identity/domain"
	"github.com/mantenix/identity/internal/identity/store"
	"github.com/mantenix/identity/pkg/idx"
)

type invitationsRepo struct {
	q dbtx
}

func (r *invitationsRepo) CreateInvitation(
	ctx context.Context,
	p store.CreateInvitationParams,
) (string, error) {
	id := idx.New().String()
	now := time.Now()

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_invitations (id, email, role, status, invited_by, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, ?, ?, ?)`,
		id, p.Email, string(p.Role), p.InvitedBy, toUnix(p.ExpiresAt), toUnix(now), toUnix(now),
	)
	if err != nil {
		return "", mapConstraint(err)
	}
	return id, nil
}

func (r *invitationsRepo) GetInvitationByID(
	ctx context.Context,
	id string,
) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, email, role, status, invited_by, expires_at, accepted_at, created_at, updated_at
		FROM user_invitations
		WHERE id = ?`,
		id,
	)
	return scanInvitation(row)
}

func (r *invitationsRepo) RenewInvitation(
	ctx context.Context,
	id string,
	expiresAt time.Time,
) (string, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE user_invitations
		SET status = 'pending', expires_at = ?, updated_at = ?
		WHERE id = ? AND status IN ('pending', 'expired')`,
		toUnix(expiresAt), toUnix(time.Now()), id,
	)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", err
	} else if n == 0 {
		return "", store.ErrNotFound
	}
	return id, nil
}

func (r *invitationsRepo) RevokeInvitation(ctx context.Context, id string) (string, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE user_invitations
		SET status = 'revoked', updated_at = ?
		WHERE id = ? AND status IN ('pending', 'expired')`,
		toUnix(time.Now()), id,
	)
	if err != nil {
		return "", err
	}
	if n, err := res.RowsAffected(); err != nil {
		return "", err
	} else if n == 0 {
		return "", store.ErrNotFound
	}
	return id, nil
}

func (r *invitationsRepo) MarkInvitationAccepted(
	ctx context.Context,
	id string,
	now time.Time,
) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE user_invitations
		SET status = 'accepted', accepted_at = ?, updated_at = ?
		WHERE id = ? AND status = 'pending' AND expires_at >= ?`,
		toUnix(now), toUnix(now), id, toUnix(now),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *invitationsRepo) ListInvitations(
	ctx context.Context,
	now time.Time,
) ([]domain.Projection, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT i.id, i.email, i.role, i.status,
		       CASE WHEN i.status = 'pending' AND i.expires_at < ? THEN 'expired' ELSE i.status END AS current_status,
		       COALESCE(p.email, ''), COALESCE(p.full_name, ''),
		       i.expires_at, i.accepted_at, i.created_at
		FROM user_invitations i
		LEFT JOIN profiles p ON p.id = i.invited_by
		ORDER BY i.created_at DESC, i.id DESC`,
		toUnix(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Projection
	for rows.Next() {
		var (
			proj       domain.Projection
			expiresAt  int64
			createdAt  int64
			acceptedAt sql.NullInt64
		)
		if err := rows.Scan(
			&proj.ID, &proj.Email, &proj.Role, &proj.Status, &proj.CurrentStatus,
			&proj.InvitedByEmail, &proj.InvitedByName,
			&expiresAt, &acceptedAt, &createdAt,
		); err != nil {
			return nil, err
		}
		proj.ExpiresAt = fromUnix(expiresAt)
		proj.AcceptedAt = fromNullUnix(acceptedAt)
		proj.CreatedAt = fromUnix(createdAt)
		out = append(out, proj)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (domain.Invitation, error) {
	var (
		inv        domain.Invitation
		expiresAt  int64
		createdAt  int64
		updatedAt  int64
		acceptedAt sql.NullInt64
	)
	err := row.Scan(
		&inv.ID, &inv.Email, &inv.Role, &inv.Status, &inv.InvitedBy,
		&expiresAt, &acceptedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	inv.ExpiresAt = fromUnix(expiresAt)
	inv.AcceptedAt = fromNullUnix(acceptedAt)
	inv.CreatedAt = fromUnix(createdAt)
	inv.UpdatedAt = fromUnix(updatedAt)
	return inv, nil
}
