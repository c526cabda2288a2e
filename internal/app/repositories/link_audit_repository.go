package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/schoolsphere/internal/app/models"
)

// LinkAuditRepository handles the append-only account-link audit trail
type LinkAuditRepository struct {
	db *pgxpool.Pool
}

// NewLinkAuditRepository creates a new link audit repository
func NewLinkAuditRepository(db *pgxpool.Pool) *LinkAuditRepository {
	return &LinkAuditRepository{
		db: db,
	}
}

// Append records a successful link. Rows are never updated or deleted.
func (r *LinkAuditRepository) Append(ctx context.Context, accountID, studentID string, strategy models.LinkStrategy) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO link_audits (account_id, student_id, strategy) VALUES ($1, $2, $3)`,
		accountID, studentID, strategy)
	if err != nil {
		return fmt.Errorf("error appending link audit: %w", err)
	}
	return nil
}

// ListByStudent retrieves the audit trail for a student
func (r *LinkAuditRepository) ListByStudent(ctx context.Context, studentID string) ([]*models.LinkAudit, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, account_id, student_id, strategy, linked_at FROM link_audits WHERE student_id = $1 ORDER BY linked_at`,
		studentID)
	if err != nil {
		return nil, fmt.Errorf("error listing link audits: %w", err)
	}
	defer rows.Close()

	var audits []*models.LinkAudit
	for rows.Next() {
		var a models.LinkAudit
		if err := rows.Scan(&a.ID, &a.AccountID, &a.StudentID, &a.Strategy, &a.LinkedAt); err != nil {
			return nil, err
		}
		audits = append(audits, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return audits, nil
}
