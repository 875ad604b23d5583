package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"pfm/internal/platform/metrics"
)

// DataStore is the external storage collaborator that owns the actual
// user data. The engine only enumerates and deletes through it.
type DataStore interface {
	Items(ctx context.Context) ([]Item, error)
	Delete(ctx context.Context, item Item) error
}

// Engine computes purge eligibility and executes purge runs against
// the data inventory.
type Engine struct {
	policies      *PolicyStore
	data          DataStore
	store         Store
	metrics       *metrics.Collector
	purgeInterval time.Duration
}

func NewEngine(policies *PolicyStore, data DataStore, store Store, collector *metrics.Collector, purgeInterval time.Duration) *Engine {
	if purgeInterval <= 0 {
		purgeInterval = 24 * time.Hour
	}
	return &Engine{
		policies:      policies,
		data:          data,
		store:         store,
		metrics:       collector,
		purgeInterval: purgeInterval,
	}
}

// EligibleItems filters the inventory down to items past their
// retention window. The boundary is strict: an item aged exactly the
// window is kept one more cycle. No side effects.
func (e *Engine) EligibleItems(ctx context.Context, now time.Time, items []Item) ([]Item, error) {
	windows := map[Category]time.Duration{}
	autoDelete := map[Category]bool{}
	var eligible []Item
	for _, item := range items {
		if _, ok := windows[item.Category]; !ok {
			policy, err := e.policies.Get(ctx, item.Category)
			if err != nil {
				return nil, err
			}
			window, err := e.policies.ResolveWindow(ctx, item.Category)
			if err != nil {
				return nil, err
			}
			windows[item.Category] = window
			autoDelete[item.Category] = policy.AutoDelete
		}
		if !autoDelete[item.Category] {
			continue
		}
		if now.Sub(item.Timestamp) > windows[item.Category] {
			eligible = append(eligible, item)
		}
	}
	return eligible, nil
}

// ExecutePurge runs one purge cycle: enumerate, filter, delete item by
// item. A failed deletion is recorded in the report and the run
// continues; only an inventory-read failure aborts the run, with no
// deletions performed. The report is appended to durable purge history
// before returning.
func (e *Engine) ExecutePurge(ctx context.Context, now time.Time) (*PurgeReport, error) {
	items, err := e.data.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
	}
	eligible, err := e.EligibleItems(ctx, now, items)
	if err != nil {
		return nil, err
	}

	report := &PurgeReport{
		ID:                "purge-" + uuid.NewString(),
		Timestamp:         now.UTC(),
		DeletedByCategory: map[string]int{},
	}
	for _, item := range eligible {
		if err := e.data.Delete(ctx, item); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", item.Ref, err))
			if e.metrics != nil {
				e.metrics.ItemError()
			}
			continue
		}
		report.DeletedByCategory[string(item.Category)]++
		report.TotalItemsDeleted++
	}

	for category := range report.DeletedByCategory {
		report.CategoriesProcessed = append(report.CategoriesProcessed, category)
	}
	sort.Strings(report.CategoriesProcessed)

	next, err := e.NextScheduledPurge(ctx, now)
	if err != nil {
		return nil, err
	}
	report.NextScheduledPurge = next

	if e.metrics != nil {
		result := "ok"
		if len(report.Errors) > 0 {
			result = "partial"
		}
		e.metrics.PurgeRun(result)
		for category, count := range report.DeletedByCategory {
			e.metrics.ItemsDeleted(category, count)
		}
	}

	// Durable append is what closes the due window. If it fails the
	// next check re-runs the purge; deletion of already-gone items is
	// harmless, so at-least-once is the fallback.
	if err := e.store.AppendReport(ctx, *report); err != nil {
		slog.Warn("purge report append failed", "reportId", report.ID, "err", err)
	}
	return report, nil
}

// NextScheduledPurge derives the next due time: one purge interval
// ahead, tightened to the shortest configured retention window when
// that is shorter.
func (e *Engine) NextScheduledPurge(ctx context.Context, now time.Time) (time.Time, error) {
	shortest, err := e.policies.ShortestWindow(ctx)
	if err != nil {
		return time.Time{}, err
	}
	interval := e.purgeInterval
	if shortest < interval {
		interval = shortest
	}
	return now.UTC().Add(interval), nil
}
