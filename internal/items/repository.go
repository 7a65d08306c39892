package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"trialops/internal/sla"
)

type Repository interface {
	Create(ctx context.Context, item *ActionItem) error
	Get(ctx context.Context, id string) (*ActionItem, error)
	List(ctx context.Context, filter Filter) ([]ActionItem, int, error)
	Update(ctx context.Context, item *ActionItem) error
	Delete(ctx context.Context, id string) error

	AddUpdate(ctx context.Context, update *ItemUpdate) error
	ListUpdates(ctx context.Context, actionItemID string) ([]ItemUpdate, error)

	// ListSnapshots projects every item onto the engine's aggregation view.
	ListSnapshots(ctx context.Context, studyID string) ([]sla.ItemSnapshot, error)

	// ListEscalationCandidates returns open items still at level zero whose
	// escalation deadline has passed.
	ListEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]ActionItem, error)

	// MarkEscalated raises the escalation level with a level-zero guard, so
	// concurrent scanners signal each item at most once. It reports whether
	// this call won the update.
	MarkEscalated(ctx context.Context, id string) (bool, error)

	CountOpenByStatus(ctx context.Context) (map[WorkflowStatus]int, error)
}

const itemColumns = `id, study_id, site_id, finding_id, title, description, category, severity, status,
		assigned_to, rule_id, resolution_deadline, escalation_deadline, escalation_role, escalation_level,
		resolved_at, verified_at, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, item *ActionItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	query := `
		INSERT INTO action_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.StudyID, item.SiteID, item.FindingID, item.Title, item.Description,
		item.Category, item.Severity, item.Status, item.AssignedTo, item.RuleID,
		item.ResolutionDeadline, item.EscalationDeadline, item.EscalationRole, item.EscalationLevel,
		item.ResolvedAt, item.VerifiedAt, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create action item: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*ActionItem, error) {
	query := `SELECT ` + itemColumns + ` FROM action_items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("action item not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action item: %w", err)
	}

	return item, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]ActionItem, int, error) {
	where, args := buildFilter(filter)

	countQuery := `SELECT COUNT(*) FROM action_items` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count action items: %w", err)
	}

	// Critical first, then the tightest deadline, then newest.
	query := `SELECT ` + itemColumns + ` FROM action_items` + where + `
		ORDER BY CASE severity
			WHEN 'critical' THEN 0
			WHEN 'major' THEN 1
			WHEN 'minor' THEN 2
			ELSE 3
		END, resolution_deadline ASC, created_at DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list action items: %w", err)
	}
	defer rows.Close()

	var items []ActionItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan action item: %w", err)
		}
		items = append(items, *item)
	}

	return items, total, rows.Err()
}

func buildFilter(filter Filter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(condition string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.StudyID != "" {
		add("study_id = $%d", filter.StudyID)
	}
	if filter.SiteID != "" {
		add("site_id = $%d", filter.SiteID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Severity != "" {
		add("severity = $%d", filter.Severity)
	}
	if filter.AssignedTo != "" {
		add("assigned_to = $%d", filter.AssignedTo)
	}
	if filter.OpenOnly || filter.OverdueOnly {
		conditions = append(conditions, "status NOT IN ('done', 'verified')")
	}
	if filter.OverdueOnly {
		add("resolution_deadline < $%d", time.Now())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *PostgresRepository) Update(ctx context.Context, item *ActionItem) error {
	item.UpdatedAt = time.Now()

	query := `
		UPDATE action_items
		SET title = $1, description = $2, status = $3, assigned_to = $4,
			escalation_level = $5, resolved_at = $6, verified_at = $7, updated_at = $8
		WHERE id = $9
	`

	res, err := r.db.ExecContext(ctx, query,
		item.Title, item.Description, item.Status, item.AssignedTo,
		item.EscalationLevel, item.ResolvedAt, item.VerifiedAt, item.UpdatedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update action item: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("action item not found")
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM action_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete action item: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("action item not found")
	}

	return nil
}

func (r *PostgresRepository) AddUpdate(ctx context.Context, update *ItemUpdate) error {
	if update.ID == "" {
		update.ID = uuid.New().String()
	}
	if update.CreatedAt.IsZero() {
		update.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO action_item_updates (id, action_item_id, updated_by, field_changed, old_value, new_value, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		update.ID, update.ActionItemID, update.UpdatedBy,
		update.FieldChanged, update.OldValue, update.NewValue, update.Comment, update.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create action item update: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListUpdates(ctx context.Context, actionItemID string) ([]ItemUpdate, error) {
	query := `
		SELECT id, action_item_id, updated_by, field_changed, old_value, new_value, comment, created_at
		FROM action_item_updates
		WHERE action_item_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, actionItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list action item updates: %w", err)
	}
	defer rows.Close()

	var updates []ItemUpdate
	for rows.Next() {
		var u ItemUpdate
		if err := rows.Scan(
			&u.ID, &u.ActionItemID, &u.UpdatedBy,
			&u.FieldChanged, &u.OldValue, &u.NewValue, &u.Comment, &u.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan action item update: %w", err)
		}
		updates = append(updates, u)
	}

	return updates, rows.Err()
}

func (r *PostgresRepository) ListSnapshots(ctx context.Context, studyID string) ([]sla.ItemSnapshot, error) {
	query := `
		SELECT category, severity, created_at, resolved_at, escalation_level, resolution_deadline, escalation_deadline
		FROM action_items
	`
	var args []interface{}
	if studyID != "" {
		query += ` WHERE study_id = $1`
		args = append(args, studyID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list item snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []sla.ItemSnapshot
	for rows.Next() {
		var s sla.ItemSnapshot
		if err := rows.Scan(
			&s.Category, &s.Severity, &s.CreatedAt, &s.ResolvedAt,
			&s.EscalationLevel, &s.Deadlines.Resolution, &s.Deadlines.Escalation,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

func (r *PostgresRepository) ListEscalationCandidates(ctx context.Context, now time.Time, limit int) ([]ActionItem, error) {
	query := `SELECT ` + itemColumns + `
		FROM action_items
		WHERE status NOT IN ('done', 'verified')
			AND escalation_level = 0
			AND escalation_deadline < $1
			AND resolution_deadline >= $1
		ORDER BY escalation_deadline ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation candidates: %w", err)
	}
	defer rows.Close()

	var items []ActionItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation candidate: %w", err)
		}
		items = append(items, *item)
	}

	return items, rows.Err()
}

func (r *PostgresRepository) MarkEscalated(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE action_items
		SET escalation_level = 1, updated_at = $1
		WHERE id = $2 AND escalation_level = 0 AND status NOT IN ('done', 'verified')
	`

	res, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark action item escalated: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *PostgresRepository) CountOpenByStatus(ctx context.Context) (map[WorkflowStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM action_items
		WHERE status NOT IN ('done', 'verified')
		GROUP BY status
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count open items: %w", err)
	}
	defer rows.Close()

	counts := make(map[WorkflowStatus]int)
	for rows.Next() {
		var status WorkflowStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan open item count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*ActionItem, error) {
	var item ActionItem
	err := row.Scan(
		&item.ID, &item.StudyID, &item.SiteID, &item.FindingID, &item.Title, &item.Description,
		&item.Category, &item.Severity, &item.Status, &item.AssignedTo, &item.RuleID,
		&item.ResolutionDeadline, &item.EscalationDeadline, &item.EscalationRole, &item.EscalationLevel,
		&item.ResolvedAt, &item.VerifiedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
