package retention

import "context"

// ReportCap bounds the retained purge-history log.
const ReportCap = 100

// Store persists retention policies and the purge-history log. The
// purge history is the durable record the scheduler's due-check reads,
// so AppendReport must be visible to a later LatestReport even across
// process restarts.
type Store interface {
	// Policy returns the stored policy for a category, or nil when
	// the user has never adjusted it.
	Policy(ctx context.Context, category Category) (*Policy, error)

	// SavePolicy replaces the stored policy for its category
	// atomically.
	SavePolicy(ctx context.Context, policy Policy) error

	// AppendReport appends to the purge history, pruning beyond
	// ReportCap.
	AppendReport(ctx context.Context, report PurgeReport) error

	// LatestReport returns the newest purge report, or nil when none
	// exists.
	LatestReport(ctx context.Context) (*PurgeReport, error)

	// Reports returns purge history newest first.
	Reports(ctx context.Context, limit int) ([]PurgeReport, error)
}
