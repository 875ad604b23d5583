package consent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pfm/internal/domain/audit"
	"pfm/internal/platform/metrics"
)

const ReasonExpired = "expired"

// Ledger is the append-only consent store plus the derived status
// views. Writes are serialized so concurrent grant/withdraw calls for
// the same type can never interleave their history.
type Ledger struct {
	catalog *Catalog
	store   Store
	audit   *audit.Service
	metrics *metrics.Collector

	mu  sync.Mutex
	now func() time.Time
}

// NewLedger wires the ledger. The audit service and metrics collector
// may be nil.
func NewLedger(catalog *Catalog, store Store, auditSvc *audit.Service, collector *metrics.Collector) *Ledger {
	return &Ledger{
		catalog: catalog,
		store:   store,
		audit:   auditSvc,
		metrics: collector,
		now:     time.Now,
	}
}

// Grant appends a granted record for each type. Unknown types are
// rejected before anything is written.
func (l *Ledger) Grant(ctx context.Context, types []Type, metadata map[string]string) ([]Record, error) {
	configs, err := l.lookupAll(types)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	records := make([]Record, 0, len(configs))
	for _, cfg := range configs {
		record := Record{
			ID:         uuid.NewString(),
			Type:       cfg.Type,
			Granted:    true,
			Version:    l.catalog.Version(),
			Timestamp:  now,
			LegalBasis: cfg.LegalBasis,
			Metadata:   metadata,
		}
		if cfg.ExpiryMonths > 0 {
			expiry := now.AddDate(0, cfg.ExpiryMonths, 0)
			record.ExpiryDate = &expiry
		}
		records = append(records, record)
	}

	if err := l.store.AppendRecords(ctx, records); err != nil {
		return nil, err
	}
	for _, record := range records {
		l.recordAudit(ctx, audit.ActionConsentGrant, record)
		if l.metrics != nil {
			l.metrics.ConsentGranted(string(record.Type))
		}
	}
	return records, nil
}

// Withdraw appends a withdrawal record for each type. The whole batch
// is validated first: one non-withdrawable or unknown type rejects the
// entire call with nothing written.
func (l *Ledger) Withdraw(ctx context.Context, types []Type, reason string, metadata map[string]string) ([]Record, error) {
	configs, err := l.lookupAll(types)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if !cfg.CanWithdraw {
			return nil, fmt.Errorf("%w: %s", ErrNonWithdrawable, cfg.Type)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	records := make([]Record, 0, len(configs))
	for _, cfg := range configs {
		withdrawnAt := now
		records = append(records, Record{
			ID:               uuid.NewString(),
			Type:             cfg.Type,
			Granted:          false,
			Version:          l.catalog.Version(),
			Timestamp:        now,
			WithdrawnAt:      &withdrawnAt,
			WithdrawalReason: reason,
			LegalBasis:       cfg.LegalBasis,
			Metadata:         metadata,
		})
	}

	if err := l.store.AppendRecords(ctx, records); err != nil {
		return nil, err
	}
	for _, record := range records {
		l.recordAudit(ctx, audit.ActionConsentWithdraw, record)
		if l.metrics != nil {
			l.metrics.ConsentWithdrawn(string(record.Type))
		}
	}
	return records, nil
}

// HasConsent derives the current effective status for one type.
// Expiry is evaluated here at read time; an expired grant reads as
// false before ProcessExpired has synthesized the withdrawal.
func (l *Ledger) HasConsent(ctx context.Context, t Type) (bool, error) {
	if !l.catalog.Known(t) {
		return false, fmt.Errorf("%w: %s", ErrUnknownConsentType, t)
	}
	records, err := l.store.RecordsByType(ctx, t, 1)
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	return l.effective(records[0]), nil
}

// Status is the batched form of HasConsent.
func (l *Ledger) Status(ctx context.Context, types []Type) (map[Type]bool, error) {
	for _, t := range types {
		if !l.catalog.Known(t) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownConsentType, t)
		}
	}
	latest, err := l.store.LatestByType(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[Type]bool, len(types))
	for _, t := range types {
		record, ok := latest[t]
		out[t] = ok && l.effective(record)
	}
	return out, nil
}

// History returns the derived recent view for a type, or nil when no
// record exists yet.
func (l *Ledger) History(ctx context.Context, t Type) (*History, error) {
	if !l.catalog.Known(t) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConsentType, t)
	}
	records, err := l.store.RecordsByType(ctx, t, HistoryCap)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	newest := records[0]
	return &History{
		Records:       records,
		CurrentStatus: l.effective(newest),
		LastUpdated:   newest.Timestamp,
		EffectiveDate: newest.Timestamp,
	}, nil
}

// ExportAll produces the read-only compliance snapshot. It performs no
// writes and is deterministic for a fixed ledger state and clock.
func (l *Ledger) ExportAll(ctx context.Context) (*Export, error) {
	allRecords, err := l.store.AllRecords(ctx)
	if err != nil {
		return nil, err
	}
	history := make(map[Type]History)
	for _, t := range AllTypes() {
		h, err := l.History(ctx, t)
		if err != nil {
			return nil, err
		}
		if h != nil {
			history[t] = *h
		}
	}
	return &Export{
		History:        history,
		AllRecords:     allRecords,
		Configurations: l.catalog.Configurations(),
		ExportDate:     l.now().UTC(),
	}, nil
}

// ProcessExpired synthesizes a withdrawal for every type whose latest
// record is granted but past its expiry date. Running it twice in a
// row is a no-op the second time: the synthesized withdrawal is the
// latest record then, and it is not granted.
func (l *Ledger) ProcessExpired(ctx context.Context) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	latest, err := l.store.LatestByType(ctx)
	if err != nil {
		return nil, err
	}

	now := l.now().UTC()
	var expired []Record
	for _, t := range AllTypes() {
		cfg, _ := l.catalog.Config(t)
		if cfg.ExpiryMonths == 0 {
			continue
		}
		record, ok := latest[t]
		if !ok || !record.Granted || record.ExpiryDate == nil {
			continue
		}
		if record.ExpiryDate.After(now) {
			continue
		}
		withdrawnAt := now
		expired = append(expired, Record{
			ID:               uuid.NewString(),
			Type:             t,
			Granted:          false,
			Version:          l.catalog.Version(),
			Timestamp:        now,
			WithdrawnAt:      &withdrawnAt,
			WithdrawalReason: ReasonExpired,
			LegalBasis:       cfg.LegalBasis,
		})
	}
	if len(expired) == 0 {
		return nil, nil
	}

	if err := l.store.AppendRecords(ctx, expired); err != nil {
		return nil, err
	}
	for _, record := range expired {
		l.recordAudit(ctx, audit.ActionConsentExpire, record)
		if l.metrics != nil {
			l.metrics.ConsentExpired(string(record.Type))
		}
	}
	return expired, nil
}

func (l *Ledger) effective(record Record) bool {
	if !record.Granted {
		return false
	}
	if record.ExpiryDate == nil {
		return true
	}
	return record.ExpiryDate.After(l.now().UTC())
}

func (l *Ledger) lookupAll(types []Type) ([]Config, error) {
	configs := make([]Config, 0, len(types))
	for _, t := range types {
		cfg, ok := l.catalog.Config(t)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownConsentType, t)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (l *Ledger) recordAudit(ctx context.Context, action string, record Record) {
	if l.audit == nil {
		return
	}
	details := map[string]any{
		"recordId": record.ID,
		"granted":  record.Granted,
		"version":  record.Version,
	}
	if record.WithdrawalReason != "" {
		details["reason"] = record.WithdrawalReason
	}
	if err := l.audit.Record(ctx, action, "consent", string(record.Type), details); err != nil {
		slog.Warn("consent audit write failed", "action", action, "consentType", record.Type, "err", err)
	}
}
