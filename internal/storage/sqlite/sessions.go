package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stakepact/server/internal/models"
)

const sessionColumns = "id, group_id, status, meeting_url, created_at, finalized_at"

func scanSession(row interface{ Scan(...any) error }) (*models.CallSession, error) {
	session := &models.CallSession{}
	err := row.Scan(&session.ID, &session.GroupID, &session.Status,
		&session.MeetingURL, &session.CreatedAt, &session.FinalizedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan call session: %w", err)
	}
	return session, nil
}

// CreateCallSession persists a new review cycle.
func (s *SQLiteStore) CreateCallSession(ctx context.Context, session *models.CallSession) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.Status == "" {
		session.Status = models.SessionScheduled
	}
	if session.CreatedAt == 0 {
		session.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO call_sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		session.ID, session.GroupID, session.Status,
		session.MeetingURL, session.CreatedAt, session.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert call session: %w", err)
	}
	return nil
}

// GetCallSession retrieves a session by ID.
func (s *SQLiteStore) GetCallSession(ctx context.Context, sessionID string) (*models.CallSession, error) {
	return scanSession(s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM call_sessions WHERE id = ?", sessionID))
}

// LatestCallSession retrieves the most recently created session for a group.
func (s *SQLiteStore) LatestCallSession(ctx context.Context, groupID string) (*models.CallSession, error) {
	return scanSession(s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM call_sessions WHERE group_id = ? ORDER BY created_at DESC, id DESC LIMIT 1",
		groupID))
}

// SetMeetingURL updates the meeting link while the session is SCHEDULED.
func (s *SQLiteStore) SetMeetingURL(ctx context.Context, sessionID, url string) error {
	return s.conditionalSessionUpdate(ctx, sessionID,
		"UPDATE call_sessions SET meeting_url = ? WHERE id = ? AND status = ?",
		url, sessionID, models.SessionScheduled)
}

// StartCallSession transitions SCHEDULED → ONGOING.
func (s *SQLiteStore) StartCallSession(ctx context.Context, sessionID string) error {
	return s.conditionalSessionUpdate(ctx, sessionID,
		"UPDATE call_sessions SET status = ? WHERE id = ? AND status = ?",
		models.SessionOngoing, sessionID, models.SessionScheduled)
}

func (s *SQLiteStore) conditionalSessionUpdate(ctx context.Context, sessionID, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update call session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetCallSession(ctx, sessionID); err != nil {
			return err
		}
		return models.ErrInvalidState
	}
	return nil
}

// UpsertVotes bulk-writes compliance votes, overwriting prior values for
// the same (session, rule, voter, target) tuple.
func (s *SQLiteStore) UpsertVotes(ctx context.Context, votes []*models.RuleVote) error {
	if len(votes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, v := range votes {
		if v.CreatedAt == 0 {
			v.CreatedAt = now
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO rule_votes (call_session_id, rule_id, voter_id, target_user_id, value, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (call_session_id, rule_id, voter_id, target_user_id)
			 DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
			v.CallSessionID, v.RuleID, v.VoterID, v.TargetUserID, v.Value, v.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert vote: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListVotes retrieves all votes cast in a session.
func (s *SQLiteStore) ListVotes(ctx context.Context, sessionID string) ([]*models.RuleVote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_session_id, rule_id, voter_id, target_user_id, value, created_at
		 FROM rule_votes WHERE call_session_id = ?
		 ORDER BY rule_id, voter_id, target_user_id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	var votes []*models.RuleVote
	for rows.Next() {
		v := &models.RuleVote{}
		if err := rows.Scan(&v.CallSessionID, &v.RuleID, &v.VoterID,
			&v.TargetUserID, &v.Value, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}
	return votes, nil
}
