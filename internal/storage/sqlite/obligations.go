package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stakepact/server/internal/models"
)

const obligationColumns = "id, group_id, rule_id, from_user_id, to_user_id, amount, status, call_session_id, settled_at, created_at"

func scanObligation(row interface{ Scan(...any) error }) (*models.PaymentObligation, error) {
	o := &models.PaymentObligation{}
	err := row.Scan(&o.ID, &o.GroupID, &o.RuleID, &o.FromUserID, &o.ToUserID,
		&o.Amount, &o.Status, &o.CallSessionID, &o.SettledAt, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan obligation: %w", err)
	}
	return o, nil
}

// ApplyPayout commits a finalize atomically: obligation upserts, cause-loss
// upserts and the session's COMPLETED transition either all persist or none
// do. Safe to re-run; amounts are overwritten on their unique keys, never
// summed, and the returned slice holds only cause losses first created by
// this call.
func (s *SQLiteStore) ApplyPayout(ctx context.Context, sessionID string, obligations []*models.PaymentObligation, losses []*models.CauseLoss) ([]*models.CauseLoss, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM call_sessions WHERE id = ?", sessionID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load call session: %w", err)
	}
	// ONGOING finalizes, COMPLETED re-finalizes. SCHEDULED never had a
	// voting window, so there is nothing to compile.
	if status == models.SessionScheduled {
		return nil, models.ErrInvalidState
	}

	now := time.Now().Unix()
	for _, o := range obligations {
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		if o.Status == "" {
			o.Status = models.ObligationPending
		}
		if o.CreatedAt == 0 {
			o.CreatedAt = now
		}
		// Re-finalize replaces the amount and stamps the session that
		// wrote it; it never touches a row's lifecycle status.
		_, err = tx.ExecContext(ctx,
			`INSERT INTO payment_obligations (`+obligationColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (group_id, rule_id, from_user_id, to_user_id)
			 DO UPDATE SET amount = excluded.amount, call_session_id = excluded.call_session_id`,
			o.ID, o.GroupID, o.RuleID, o.FromUserID, o.ToUserID,
			o.Amount, o.Status, o.CallSessionID, o.SettledAt, o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert obligation: %w", err)
		}
	}

	var created []*models.CauseLoss
	for _, loss := range losses {
		if loss.ID == "" {
			loss.ID = uuid.New().String()
		}
		if loss.Status == "" {
			loss.Status = models.CauseLossPledged
		}
		if loss.CreatedAt == 0 {
			loss.CreatedAt = now
		}
		// Two statements instead of one ON CONFLICT DO UPDATE so the
		// insert's row count can tell first creation (which triggers the
		// one-time notification) apart from a re-run.
		res, err := tx.ExecContext(ctx,
			`INSERT INTO cause_losses (id, user_id, group_id, rule_id, cycle_id, amount, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (user_id, group_id, rule_id, cycle_id) DO NOTHING`,
			loss.ID, loss.UserID, loss.GroupID, loss.RuleID, loss.CycleID,
			loss.Amount, loss.Status, loss.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert cause loss: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n > 0 {
			created = append(created, loss)
			continue
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE cause_losses SET amount = ?, status = ?
			 WHERE user_id = ? AND group_id = ? AND rule_id = ? AND cycle_id = ?`,
			loss.Amount, models.CauseLossPledged,
			loss.UserID, loss.GroupID, loss.RuleID, loss.CycleID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update cause loss: %w", err)
		}
	}

	// First finalize moves ONGOING → COMPLETED; on a re-run the session is
	// already COMPLETED and the zero-row update is fine.
	_, err = tx.ExecContext(ctx,
		"UPDATE call_sessions SET status = ?, finalized_at = ? WHERE id = ? AND status = ?",
		models.SessionCompleted, now, sessionID, models.SessionOngoing,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to complete call session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

// GetObligation retrieves an obligation by ID.
func (s *SQLiteStore) GetObligation(ctx context.Context, obligationID string) (*models.PaymentObligation, error) {
	return scanObligation(s.db.QueryRowContext(ctx,
		"SELECT "+obligationColumns+" FROM payment_obligations WHERE id = ?", obligationID))
}

// ListObligationsByGroup retrieves a group's obligations, optionally
// filtered by status.
func (s *SQLiteStore) ListObligationsByGroup(ctx context.Context, groupID, status string) ([]*models.PaymentObligation, error) {
	query := "SELECT " + obligationColumns + " FROM payment_obligations WHERE group_id = ?"
	args := []any{groupID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY rule_id, from_user_id, to_user_id"
	return s.listObligations(ctx, query, args...)
}

// ListObligationsByUser retrieves every obligation the user pays or
// receives, optionally restricted to one group.
func (s *SQLiteStore) ListObligationsByUser(ctx context.Context, userID, groupID string) ([]*models.PaymentObligation, error) {
	query := "SELECT " + obligationColumns + " FROM payment_obligations WHERE (from_user_id = ? OR to_user_id = ?)"
	args := []any{userID, userID}
	if groupID != "" {
		query += " AND group_id = ?"
		args = append(args, groupID)
	}
	query += " ORDER BY created_at DESC, rule_id"
	return s.listObligations(ctx, query, args...)
}

func (s *SQLiteStore) listObligations(ctx context.Context, query string, args ...any) ([]*models.PaymentObligation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []*models.PaymentObligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		obligations = append(obligations, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate obligations: %w", err)
	}
	return obligations, nil
}

// MarkObligationPaid transitions PENDING → MARKED_PAID with a single
// conditional update.
func (s *SQLiteStore) MarkObligationPaid(ctx context.Context, obligationID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE payment_obligations SET status = ? WHERE id = ? AND status = ?",
		models.ObligationMarkedPaid, obligationID, models.ObligationPending,
	)
	if err != nil {
		return fmt.Errorf("failed to mark obligation paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetObligation(ctx, obligationID); err != nil {
			return err
		}
		return models.ErrInvalidState
	}
	return nil
}

// ConfirmObligation transitions MARKED_PAID → CONFIRMED and updates both
// users' lifetime totals in the same transaction. A confirmation visible
// without its stat bumps (or vice versa) would violate the ledger's
// invariants, so partial application is not possible here.
func (s *SQLiteStore) ConfirmObligation(ctx context.Context, obligationID string, settledAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	o, err := scanObligation(tx.QueryRowContext(ctx,
		"SELECT "+obligationColumns+" FROM payment_obligations WHERE id = ?", obligationID))
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE payment_obligations SET status = ?, settled_at = ? WHERE id = ? AND status = ?",
		models.ObligationConfirmed, settledAt, obligationID, models.ObligationMarkedPaid,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm obligation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrInvalidState
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE users SET total_paid = total_paid + ? WHERE id = ?",
		o.Amount, o.FromUserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payer total: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE users SET total_earned = total_earned + ? WHERE id = ?",
		o.Amount, o.ToUserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payee total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const causeLossColumns = "id, user_id, group_id, rule_id, cycle_id, amount, status, created_at"

func scanCauseLoss(row interface{ Scan(...any) error }) (*models.CauseLoss, error) {
	loss := &models.CauseLoss{}
	err := row.Scan(&loss.ID, &loss.UserID, &loss.GroupID, &loss.RuleID,
		&loss.CycleID, &loss.Amount, &loss.Status, &loss.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cause loss: %w", err)
	}
	return loss, nil
}

// GetCauseLoss retrieves a cause loss by ID.
func (s *SQLiteStore) GetCauseLoss(ctx context.Context, lossID string) (*models.CauseLoss, error) {
	return scanCauseLoss(s.db.QueryRowContext(ctx,
		"SELECT "+causeLossColumns+" FROM cause_losses WHERE id = ?", lossID))
}

// ListCauseLossesByUser retrieves all of a user's cause losses.
func (s *SQLiteStore) ListCauseLossesByUser(ctx context.Context, userID string) ([]*models.CauseLoss, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+causeLossColumns+" FROM cause_losses WHERE user_id = ? ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cause losses: %w", err)
	}
	defer rows.Close()

	var losses []*models.CauseLoss
	for rows.Next() {
		loss, err := scanCauseLoss(rows)
		if err != nil {
			return nil, err
		}
		losses = append(losses, loss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cause losses: %w", err)
	}
	return losses, nil
}

// SetCauseLossStatus transitions PLEDGED → DONATED or SKIPPED.
func (s *SQLiteStore) SetCauseLossStatus(ctx context.Context, lossID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE cause_losses SET status = ? WHERE id = ? AND status = ?",
		status, lossID, models.CauseLossPledged,
	)
	if err != nil {
		return fmt.Errorf("failed to update cause loss status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.GetCauseLoss(ctx, lossID); err != nil {
			return err
		}
		return models.ErrInvalidState
	}
	return nil
}
