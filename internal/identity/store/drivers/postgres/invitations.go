package postgres

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

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_invitations (id, email, role, status, invited_by, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, 'pending', $4, $5, now(), now())`,
		id, p.Email, string(p.Role), p.InvitedBy, p.ExpiresAt.UTC(),
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
		WHERE id = $1`,
		id,
	)

	var (
		inv        domain.Invitation
		acceptedAt sql.NullTime
	)
	err := row.Scan(
		&inv.ID, &inv.Email, &inv.Role, &inv.Status, &inv.InvitedBy,
		&inv.ExpiresAt, &acceptedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	inv.AcceptedAt = fromNullTime(acceptedAt)
	return inv, nil
}

func (r *invitationsRepo) RenewInvitation(
	ctx context.Context,
	id string,
	expiresAt time.Time,
) (string, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE user_invitations
		SET status = 'pending', expires_at = $1, updated_at = now()
		WHERE id = $2 AND status IN ('pending', 'expired')`,
		expiresAt.UTC(), id,
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
		SET status = 'revoked', updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'expired')`,
		id,
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
		SET status = 'accepted', accepted_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'pending' AND expires_at >= $1`,
		now.UTC(), id,
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
		       CASE WHEN i.status = 'pending' AND i.expires_at < $1 THEN 'expired' ELSE i.status END AS current_status,
		       COALESCE(p.email, ''), COALESCE(p.full_name, ''),
		       i.expires_at, i.accepted_at, i.created_at
		FROM user_invitations i
		LEFT JOIN profiles p ON p.id = i.invited_by
		ORDER BY i.created_at DESC, i.id DESC`,
		now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Projection
	for rows.Next() {
		var (
			proj       domain.Projection
			acceptedAt sql.NullTime
		)
		if err := rows.Scan(
			&proj.ID, &proj.Email, &proj.Role, &proj.Status, &proj.CurrentStatus,
			&proj.InvitedByEmail, &proj.InvitedByName,
			&proj.ExpiresAt, &acceptedAt, &proj.CreatedAt,
		); err != nil {
			return nil, err
		}
		proj.AcceptedAt = fromNullTime(acceptedAt)
		out = append(out, proj)
	}
	return out, rows.Err()
}
