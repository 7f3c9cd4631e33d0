package sqlite

import (
	"context"
	"time"

	"github.com/expressmart/identity/internal/identity/domain"
)

type resetRequestsRepo struct {
	q queryer
}

const resetColumns = `id, token, user_id, approved, expires_at, created_at, updated_at`

func (r *resetRequestsRepo) CreateResetRequest(ctx context.Context, req domain.PasswordResetRequest) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO reset_requests (`+resetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.Token, req.UserID, req.Approved, req.ExpiresAt,
		req.CreatedAt, req.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *resetRequestsRepo) GetResetRequestByID(ctx context.Context, id string) (domain.PasswordResetRequest, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+resetColumns+` FROM reset_requests WHERE id = ?`, id)
	return scanResetRequest(row)
}

// GetApprovedResetRequestByToken deliberately filters on approved so callers
// cannot tell an unapproved token apart from an unknown one.
func (r *resetRequestsRepo) GetApprovedResetRequestByToken(ctx context.Context, token string) (domain.PasswordResetRequest, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+resetColumns+` FROM reset_requests
		WHERE token = ? AND approved = 1`, token)
	return scanResetRequest(row)
}

// ApproveResetRequest only flips unapproved rows so concurrent approvals
// cannot both succeed.
func (r *resetRequestsRepo) ApproveResetRequest(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE reset_requests
		SET approved = 1, updated_at = ?
		WHERE id = ? AND approved = 0`,
		time.Now().UTC(), id,
	)
	return rowsAffectedOrNotFound(res, err)
}

func (r *resetRequestsRepo) DeleteResetRequest(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM reset_requests WHERE id = ?`, id)
	return rowsAffectedOrNotFound(res, err)
}

func (r *resetRequestsRepo) ListResetRequests(ctx context.Context) ([]domain.ResetRequestWithUser, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT rr.id, rr.token, rr.user_id, rr.approved, rr.expires_at,
		       rr.created_at, rr.updated_at, u.email
		FROM reset_requests rr
		JOIN users u ON u.id = rr.user_id
		ORDER BY rr.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.ResetRequestWithUser
	for rows.Next() {
		var req domain.ResetRequestWithUser
		err := rows.Scan(&req.ID, &req.Token, &req.UserID, &req.Approved,
			&req.ExpiresAt, &req.CreatedAt, &req.UpdatedAt, &req.UserEmail)
		if err != nil {
			return nil, err
		}
		req.ExpiresAt = req.ExpiresAt.UTC()
		req.CreatedAt = req.CreatedAt.UTC()
		req.UpdatedAt = req.UpdatedAt.UTC()
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func (r *resetRequestsRepo) DeleteExpiredResetRequests(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM reset_requests WHERE expires_at < ?`, time.Now().UTC())
	return err
}

func scanResetRequest(s scanner) (domain.PasswordResetRequest, error) {
	var req domain.PasswordResetRequest
	err := s.Scan(&req.ID, &req.Token, &req.UserID, &req.Approved,
		&req.ExpiresAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return domain.PasswordResetRequest{}, mapNotFound(err)
	}
	req.ExpiresAt = req.ExpiresAt.UTC()
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()
	return req, nil
}
