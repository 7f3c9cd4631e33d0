package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/expressmart/identity/internal/identity/domain"
)

type invitationsRepo struct {
	q queryer
}

const invitationColumns = `id, token_hash, email, role, invited_by, expires_at, accepted, accepted_at, created_at, updated_at`

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO invitations (`+invitationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.TokenHash, inv.Email, string(inv.Role), mapStringNull(inv.InvitedBy),
		inv.ExpiresAt, inv.Accepted, mapOptionalTime(inv.AcceptedAt),
		inv.CreatedAt, inv.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *invitationsRepo) GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations WHERE token_hash = ?`, hash)
	return scanInvitation(row)
}

func (r *invitationsRepo) ListInvitationsByInviter(ctx context.Context, inviterID string) ([]domain.Invitation, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE invited_by = ? ORDER BY created_at DESC`,
		inviterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// MarkInvitationAccepted only flips unaccepted rows so concurrent
// redemptions cannot both succeed.
func (r *invitationsRepo) MarkInvitationAccepted(ctx context.Context, invitationID string, acceptedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE invitations
		SET accepted = 1, accepted_at = ?, updated_at = ?
		WHERE id = ? AND accepted = 0`,
		acceptedAt, time.Now().UTC(), invitationID,
	)
	return rowsAffectedOrNotFound(res, err)
}

func scanInvitation(s scanner) (domain.Invitation, error) {
	var inv domain.Invitation
	var role string
	var invitedBy sql.NullString
	var acceptedAt sql.NullTime
	err := s.Scan(&inv.ID, &inv.TokenHash, &inv.Email, &role, &invitedBy,
		&inv.ExpiresAt, &inv.Accepted, &acceptedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	inv.Role = domain.Role(role)
	inv.InvitedBy = mapNullString(invitedBy)
	inv.AcceptedAt = mapNullTimePtr(acceptedAt)
	inv.ExpiresAt = inv.ExpiresAt.UTC()
	inv.CreatedAt = inv.CreatedAt.UTC()
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return inv, nil
}
