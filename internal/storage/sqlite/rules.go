package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stakepact/server/internal/models"
)

const ruleColumns = "id, group_id, creator_id, title, stake_amount, approved, created_at"

func scanRule(row interface{ Scan(...any) error }) (*models.Rule, error) {
	rule := &models.Rule{}
	err := row.Scan(&rule.ID, &rule.GroupID, &rule.CreatorID, &rule.Title,
		&rule.StakeAmount, &rule.Approved, &rule.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}
	return rule, nil
}

// CreateRule persists a proposed rule.
func (s *SQLiteStore) CreateRule(ctx context.Context, rule *models.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt == 0 {
		rule.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rules ("+ruleColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		rule.ID, rule.GroupID, rule.CreatorID, rule.Title,
		rule.StakeAmount, rule.Approved, rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}
	return nil
}

// GetRule retrieves a rule by ID.
func (s *SQLiteStore) GetRule(ctx context.Context, ruleID string) (*models.Rule, error) {
	return scanRule(s.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM rules WHERE id = ?", ruleID))
}

// ListRulesByGroup retrieves all rules of a group.
func (s *SQLiteStore) ListRulesByGroup(ctx context.Context, groupID string) ([]*models.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+ruleColumns+" FROM rules WHERE group_id = ? ORDER BY created_at",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return rules, nil
}

// UpsertRuleApproval records an approval; re-approving is a no-op. The
// returned count is the total number of approvals after the write.
func (s *SQLiteStore) UpsertRuleApproval(ctx context.Context, ruleID, approverID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// The rule may have been rejected (deleted) since the caller loaded
	// it; surface that instead of orphaning an approval row.
	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM rules WHERE id = ?", ruleID).Scan(&exists)
	if err == sql.ErrNoRows {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check rule existence: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rule_approvals (rule_id, approver_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (rule_id, approver_id) DO NOTHING`,
		ruleID, approverID, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert approval: %w", err)
	}

	var count int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rule_approvals WHERE rule_id = ?", ruleID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count approvals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return count, nil
}

// CountApprovals returns approval counts keyed by rule ID for a group.
func (s *SQLiteStore) CountApprovals(ctx context.Context, groupID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, COUNT(a.approver_id)
		 FROM rules r
		 LEFT JOIN rule_approvals a ON a.rule_id = r.id
		 WHERE r.group_id = ?
		 GROUP BY r.id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count approvals: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var ruleID string
		var count int
		if err := rows.Scan(&ruleID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan approval count: %w", err)
		}
		counts[ruleID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate approval counts: %w", err)
	}
	return counts, nil
}

// MarkRuleApproved sets the rule's stored approved flag.
func (s *SQLiteStore) MarkRuleApproved(ctx context.Context, ruleID string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE rules SET approved = 1 WHERE id = ?", ruleID)
	if err != nil {
		return fmt.Errorf("failed to mark rule approved: %w", err)
	}
	return nil
}

// DeleteRule removes a rule; its approvals cascade away with it.
func (s *SQLiteStore) DeleteRule(ctx context.Context, ruleID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", ruleID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
