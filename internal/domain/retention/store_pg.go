package retention

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the durable retention store: one row per adjusted policy
// and a pruned, chronological purge history.
type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) Policy(ctx context.Context, category Category) (*Policy, error) {
	var policy Policy
	err := s.DB.QueryRow(ctx, `
    SELECT category, retention_period, auto_delete
    FROM retention_policies
    WHERE category = $1
  `, category).Scan(&policy.Category, &policy.Period, &policy.AutoDelete)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load policy: %v", ErrPersistence, err)
	}
	return &policy, nil
}

func (s *PGStore) SavePolicy(ctx context.Context, policy Policy) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO retention_policies (category, retention_period, auto_delete)
    VALUES ($1,$2,$3)
    ON CONFLICT (category) DO UPDATE SET retention_period = EXCLUDED.retention_period, auto_delete = EXCLUDED.auto_delete, updated_at = now()
  `, policy.Category, policy.Period, policy.AutoDelete)
	if err != nil {
		return fmt.Errorf("%w: save policy: %v", ErrPersistence, err)
	}
	return nil
}

func (s *PGStore) AppendReport(ctx context.Context, report PurgeReport) error {
	detailsJSON, err := json.Marshal(struct {
		DeletedByCategory map[string]int `json:"deletedByCategory,omitempty"`
		Errors            []string       `json:"errors,omitempty"`
	}{report.DeletedByCategory, report.Errors})
	if err != nil {
		return fmt.Errorf("%w: encode report: %v", ErrPersistence, err)
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin report append: %v", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
    INSERT INTO purge_reports (id, run_at, categories, total_deleted, next_scheduled, details_json)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, report.ID, report.Timestamp, report.CategoriesProcessed, report.TotalItemsDeleted, report.NextScheduledPurge, detailsJSON); err != nil {
		return fmt.Errorf("%w: append report: %v", ErrPersistence, err)
	}
	if _, err := tx.Exec(ctx, `
    DELETE FROM purge_reports
    WHERE seq NOT IN (SELECT seq FROM purge_reports ORDER BY seq DESC LIMIT $1)
  `, ReportCap); err != nil {
		return fmt.Errorf("%w: prune reports: %v", ErrPersistence, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit report append: %v", ErrPersistence, err)
	}
	return nil
}

func (s *PGStore) LatestReport(ctx context.Context) (*PurgeReport, error) {
	reports, err := s.Reports(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	return &reports[0], nil
}

func (s *PGStore) Reports(ctx context.Context, limit int) ([]PurgeReport, error) {
	query := `
    SELECT id, run_at, categories, total_deleted, next_scheduled, details_json
    FROM purge_reports
    ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list reports: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var out []PurgeReport
	for rows.Next() {
		var report PurgeReport
		var detailsJSON []byte
		if err := rows.Scan(&report.ID, &report.Timestamp, &report.CategoriesProcessed, &report.TotalItemsDeleted, &report.NextScheduledPurge, &detailsJSON); err != nil {
			return nil, fmt.Errorf("%w: scan report: %v", ErrPersistence, err)
		}
		if len(detailsJSON) > 0 {
			var details struct {
				DeletedByCategory map[string]int `json:"deletedByCategory"`
				Errors            []string       `json:"errors"`
			}
			if err := json.Unmarshal(detailsJSON, &details); err != nil {
				return nil, fmt.Errorf("%w: decode report: %v", ErrPersistence, err)
			}
			report.DeletedByCategory = details.DeletedByCategory
			report.Errors = details.Errors
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read reports: %v", ErrPersistence, err)
	}
	return out, nil
}
