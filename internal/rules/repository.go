package rules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	pkgerrors "trialops/pkg/errors"
)

type Repository interface {
	CreateSLARule(ctx context.Context, rule *SLARule) error
	ListSLARules(ctx context.Context) ([]SLARule, error)
	ListActiveSLARules(ctx context.Context) ([]SLARule, error)
	GetSLARule(ctx context.Context, id string) (*SLARule, error)
	UpdateSLARule(ctx context.Context, rule *SLARule) error
	DeleteSLARule(ctx context.Context, id string) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateSLARule(ctx context.Context, rule *SLARule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	query := `
		INSERT INTO sla_rules (id, category, severity, resolution_hours, escalation_hours, escalation_role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Category, rule.Severity,
		rule.ResolutionHours, rule.EscalationHours, rule.EscalationRole,
		rule.Active, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule for severity '%s' already exists in that scope", rule.Severity))
			}
		}
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule for severity '%s' already exists in that scope", rule.Severity))
		}
		return fmt.Errorf("failed to create sla rule: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetSLARule(ctx context.Context, id string) (*SLARule, error) {
	query := `
		SELECT id, category, severity, resolution_hours, escalation_hours, escalation_role, active, created_at, updated_at
		FROM sla_rules
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	var rule SLARule
	err := row.Scan(
		&rule.ID, &rule.Category, &rule.Severity,
		&rule.ResolutionHours, &rule.EscalationHours, &rule.EscalationRole,
		&rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sla rule: %w", err)
	}

	return &rule, nil
}

func (r *PostgresRepository) ListSLARules(ctx context.Context) ([]SLARule, error) {
	return r.listSLARules(ctx, `
		SELECT id, category, severity, resolution_hours, escalation_hours, escalation_role, active, created_at, updated_at
		FROM sla_rules
		ORDER BY severity, category NULLS FIRST, created_at DESC
	`)
}

func (r *PostgresRepository) ListActiveSLARules(ctx context.Context) ([]SLARule, error) {
	return r.listSLARules(ctx, `
		SELECT id, category, severity, resolution_hours, escalation_hours, escalation_role, active, created_at, updated_at
		FROM sla_rules
		WHERE active = true
		ORDER BY severity, category NULLS FIRST, created_at DESC
	`)
}

func (r *PostgresRepository) listSLARules(ctx context.Context, query string) ([]SLARule, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sla rules: %w", err)
	}
	defer rows.Close()

	var rules []SLARule
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		var rule SLARule
		if err := rows.Scan(
			&rule.ID, &rule.Category, &rule.Severity,
			&rule.ResolutionHours, &rule.EscalationHours, &rule.EscalationRole,
			&rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sla rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

func (r *PostgresRepository) UpdateSLARule(ctx context.Context, rule *SLARule) error {
	rule.UpdatedAt = time.Now()

	query := `
		UPDATE sla_rules
		SET category = $1, severity = $2, resolution_hours = $3, escalation_hours = $4, escalation_role = $5, active = $6, updated_at = $7
		WHERE id = $8
	`

	res, err := r.db.ExecContext(ctx, query,
		rule.Category, rule.Severity,
		rule.ResolutionHours, rule.EscalationHours, rule.EscalationRole,
		rule.Active, rule.UpdatedAt, rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sla rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}

func (r *PostgresRepository) DeleteSLARule(ctx context.Context, id string) error {
	query := `DELETE FROM sla_rules WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete sla rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("rule not found")
	}

	return nil
}
