package consent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the durable consent record store. Appends and per-type
// pruning run in one transaction so a batch is all-or-nothing.
type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) AppendRecords(ctx context.Context, records []Record) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin append: %v", ErrPersistence, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, record := range records {
		var metadataJSON []byte
		if record.Metadata != nil {
			metadataJSON, err = json.Marshal(record.Metadata)
			if err != nil {
				return fmt.Errorf("%w: encode metadata: %v", ErrPersistence, err)
			}
		}
		if _, err := tx.Exec(ctx, `
      INSERT INTO consent_records
        (id, consent_type, granted, version, recorded_at, expiry_date, withdrawn_at, withdrawal_reason, legal_basis, metadata_json)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, record.ID, record.Type, record.Granted, record.Version, record.Timestamp,
			record.ExpiryDate, record.WithdrawnAt, record.WithdrawalReason, record.LegalBasis, metadataJSON); err != nil {
			return fmt.Errorf("%w: append consent record: %v", ErrPersistence, err)
		}

		if _, err := tx.Exec(ctx, `
      DELETE FROM consent_records
      WHERE consent_type = $1 AND seq NOT IN (
        SELECT seq FROM consent_records
        WHERE consent_type = $1
        ORDER BY seq DESC
        LIMIT $2
      )
    `, record.Type, AuditCap); err != nil {
			return fmt.Errorf("%w: prune consent records: %v", ErrPersistence, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit append: %v", ErrPersistence, err)
	}
	return nil
}

func (s *PGStore) RecordsByType(ctx context.Context, t Type, limit int) ([]Record, error) {
	query := selectRecords + " WHERE consent_type = $1 ORDER BY seq DESC"
	args := []any{t}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: records by type: %v", ErrPersistence, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PGStore) LatestByType(ctx context.Context) (map[Type]Record, error) {
	rows, err := s.DB.Query(ctx, selectRecords+`
    WHERE seq IN (
      SELECT MAX(seq) FROM consent_records GROUP BY consent_type
    )
  `)
	if err != nil {
		return nil, fmt.Errorf("%w: latest by type: %v", ErrPersistence, err)
	}
	defer rows.Close()
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[Type]Record, len(records))
	for _, record := range records {
		out[record.Type] = record
	}
	return out, nil
}

func (s *PGStore) AllRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.DB.Query(ctx, selectRecords+" ORDER BY seq DESC")
	if err != nil {
		return nil, fmt.Errorf("%w: all records: %v", ErrPersistence, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

const selectRecords = `
  SELECT id, consent_type, granted, version, recorded_at, expiry_date, withdrawn_at,
         COALESCE(withdrawal_reason, ''), legal_basis, metadata_json
  FROM consent_records`

func scanRecords(rows pgx.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var record Record
		var metadataJSON []byte
		if err := rows.Scan(&record.ID, &record.Type, &record.Granted, &record.Version, &record.Timestamp,
			&record.ExpiryDate, &record.WithdrawnAt, &record.WithdrawalReason, &record.LegalBasis, &metadataJSON); err != nil {
			return nil, fmt.Errorf("%w: scan consent record: %v", ErrPersistence, err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &record.Metadata); err != nil {
				return nil, fmt.Errorf("%w: decode metadata: %v", ErrPersistence, err)
			}
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read consent records: %v", ErrPersistence, err)
	}
	return out, nil
}
