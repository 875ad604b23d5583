package consent

import "context"

const (
	// HistoryCap bounds the derived recent view per type.
	HistoryCap = 50
	// AuditCap bounds the retained record list per type. The audit
	// list is the larger of the two so exports keep more than the
	// recent view shows.
	AuditCap = 100
)

// Store persists consent records. AppendRecords is atomic for the
// whole batch: either every record becomes visible or none do. Stores
// prune each type to AuditCap on append and wrap failures in
// ErrPersistence.
type Store interface {
	AppendRecords(ctx context.Context, records []Record) error

	// RecordsByType returns retained records for a type, newest
	// first. limit <= 0 returns all retained records.
	RecordsByType(ctx context.Context, t Type, limit int) ([]Record, error)

	// LatestByType returns the newest record for every type that has
	// one.
	LatestByType(ctx context.Context) (map[Type]Record, error)

	// AllRecords returns every retained record across types, newest
	// first.
	AllRecords(ctx context.Context) ([]Record, error)
}
