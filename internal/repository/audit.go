package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/patwikx/twc-platform/internal/domain"
)

type AuditRepository interface {
	Insert(ctx context.Context, entry *domain.AuditLogEntry) (*domain.AuditLogEntry, error)
	List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error)
	EntityHistory(ctx context.Context, entityType, entityID string, limit int) ([]domain.AuditLogEntry, error)
	RecentByUser(ctx context.Context, userID int64, limit int) ([]domain.AuditLogEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

const auditCols = `id, action, entity_type, entity_id, old_values, new_values, user_id, created_at`

func (r *auditRepository) Insert(ctx context.Context, entry *domain.AuditLogEntry) (*domain.AuditLogEntry, error) {
	oldRaw, err := marshalValues(entry.OldValues)
	if err != nil {
		return nil, err
	}
	newRaw, err := marshalValues(entry.NewValues)
	if err != nil {
		return nil, err
	}

	const q = `INSERT INTO audit_logs (action, entity_type, entity_id, old_values, new_values, user_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING ` + auditCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAuditEntry(r.pool.QueryRow(ctx, q,
		entry.Action, entry.EntityType, entry.EntityID, oldRaw, newRaw, entry.UserID,
	))
}

func (r *auditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.EntityType != "" {
		conds = append(conds, "entity_type="+arg(filter.EntityType))
	}
	if filter.EntityID != "" {
		conds = append(conds, "entity_id="+arg(filter.EntityID))
	}
	if filter.Action != "" {
		conds = append(conds, "action="+arg(filter.Action))
	}
	if filter.UserID != nil {
		conds = append(conds, "user_id="+arg(*filter.UserID))
	}
	if filter.From != nil {
		conds = append(conds, "created_at >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "created_at < "+arg(*filter.To))
	}

	q := `SELECT ` + auditCols + ` FROM audit_logs`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditLogEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (r *auditRepository) EntityHistory(ctx context.Context, entityType, entityID string, limit int) ([]domain.AuditLogEntry, error) {
	return r.List(ctx, domain.AuditFilter{EntityType: entityType, EntityID: entityID, Limit: limit})
}

func (r *auditRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]domain.AuditLogEntry, error) {
	return r.List(ctx, domain.AuditFilter{UserID: &userID, Limit: limit})
}

func marshalValues(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

func scanAuditEntry(row rowScanner) (*domain.AuditLogEntry, error) {
	var e domain.AuditLogEntry
	var oldRaw, newRaw []byte
	err := row.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &oldRaw, &newRaw, &e.UserID, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(oldRaw) > 0 {
		if err := json.Unmarshal(oldRaw, &e.OldValues); err != nil {
			return nil, err
		}
	}
	if len(newRaw) > 0 {
		if err := json.Unmarshal(newRaw, &e.NewValues); err != nil {
			return nil, err
		}
	}
	return &e, nil
}
