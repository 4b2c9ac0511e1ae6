package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/storage"
)

const deletionColumns = "id, group_id, requested_by, status, requested_at, expires_at"

func scanDeletionRequest(row interface{ Scan(...any) error }) (*models.DeletionRequest, error) {
	req := &models.DeletionRequest{}
	err := row.Scan(&req.ID, &req.GroupID, &req.RequestedBy,
		&req.Status, &req.RequestedAt, &req.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan deletion request: %w", err)
	}
	return req, nil
}

// OpenDeletionRequest returns the group's PENDING request. A request past
// its deadline is flipped to EXPIRED first (expiry is lazy, there is no
// background sweeper), then reported as not found.
func (s *SQLiteStore) OpenDeletionRequest(ctx context.Context, groupID string, now int64) (*models.DeletionRequest, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE deletion_requests SET status = ? WHERE group_id = ? AND status = ? AND expires_at <= ?",
		models.DeletionExpired, groupID, models.DeletionPending, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to expire deletion request: %w", err)
	}

	return scanDeletionRequest(s.db.QueryRowContext(ctx,
		"SELECT "+deletionColumns+" FROM deletion_requests WHERE group_id = ? AND status = ?",
		groupID, models.DeletionPending))
}

// LatestDeletionRequest returns the newest request row regardless of status.
func (s *SQLiteStore) LatestDeletionRequest(ctx context.Context, groupID string) (*models.DeletionRequest, error) {
	return scanDeletionRequest(s.db.QueryRowContext(ctx,
		"SELECT "+deletionColumns+" FROM deletion_requests WHERE group_id = ? ORDER BY requested_at DESC, id DESC LIMIT 1",
		groupID))
}

// CreateDeletionRequest opens a new request.
func (s *SQLiteStore) CreateDeletionRequest(ctx context.Context, req *models.DeletionRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = models.DeletionPending
	}
	if req.RequestedAt == 0 {
		req.RequestedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO deletion_requests ("+deletionColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		req.ID, req.GroupID, req.RequestedBy, req.Status, req.RequestedAt, req.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deletion request: %w", err)
	}
	return nil
}

// CancelDeletionRequest moves PENDING → CANCELLED, which does not count as
// a decline; any member may re-request afterwards.
func (s *SQLiteStore) CancelDeletionRequest(ctx context.Context, requestID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE deletion_requests SET status = ? WHERE id = ? AND status = ?",
		models.DeletionCancelled, requestID, models.DeletionPending,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel deletion request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrInvalidState
	}
	return nil
}

// CastDeletionVote records one member's verdict and resolves the request
// when the vote is decisive. The whole thing is one transaction: when the
// final APPROVE lands, the status flip and the cascading purge of the group
// either both commit or neither does. The conditional status update makes
// exactly one racing caller the decisive voter; the loser sees the request
// already resolved and gets ErrInvalidState.
func (s *SQLiteStore) CastDeletionVote(ctx context.Context, requestID, voterID, decision string, approvalsNeeded int) (storage.DeletionOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	req, err := scanDeletionRequest(tx.QueryRowContext(ctx,
		"SELECT "+deletionColumns+" FROM deletion_requests WHERE id = ?", requestID))
	if err != nil {
		return "", err
	}
	if req.Status != models.DeletionPending {
		return "", models.ErrInvalidState
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO deletion_votes (request_id, voter_id, decision, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (request_id, voter_id) DO NOTHING`,
		requestID, voterID, decision, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert deletion vote: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return "", models.ErrAlreadyVoted
	}

	if decision == models.DeletionDecline {
		// One decline kills the request, whatever the remaining tally.
		_, err = tx.ExecContext(ctx,
			"UPDATE deletion_requests SET status = ? WHERE id = ? AND status = ?",
			models.DeletionDeclined, requestID, models.DeletionPending,
		)
		if err != nil {
			return "", fmt.Errorf("failed to decline deletion request: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("failed to commit transaction: %w", err)
		}
		return storage.DeletionGotDeclined, nil
	}

	var approvals int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM deletion_votes WHERE request_id = ? AND decision = ?",
		requestID, models.DeletionApprove,
	).Scan(&approvals)
	if err != nil {
		return "", fmt.Errorf("failed to count approvals: %w", err)
	}

	if approvals < approvalsNeeded {
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("failed to commit transaction: %w", err)
		}
		return storage.DeletionStillPending, nil
	}

	// Decisive vote: purge the group. Foreign keys cascade the rest —
	// rules, sessions, votes, obligations, cause losses and this request
	// all hang off the group row.
	res, err = tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", req.GroupID)
	if err != nil {
		return "", fmt.Errorf("failed to delete group: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return "", models.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return storage.DeletionGroupDeleted, nil
}

// ListDeletionVotes retrieves all votes on a request.
func (s *SQLiteStore) ListDeletionVotes(ctx context.Context, requestID string) ([]*models.DeletionVote, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT request_id, voter_id, decision, created_at FROM deletion_votes WHERE request_id = ? ORDER BY created_at",
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list deletion votes: %w", err)
	}
	defer rows.Close()

	var votes []*models.DeletionVote
	for rows.Next() {
		v := &models.DeletionVote{}
		if err := rows.Scan(&v.RequestID, &v.VoterID, &v.Decision, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deletion vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deletion votes: %w", err)
	}
	return votes, nil
}
