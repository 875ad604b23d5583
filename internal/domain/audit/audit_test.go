package audit

import (
	"context"
	"testing"
)

func TestRecordAndList(t *testing.T) {
	store := NewMemoryStore()
	svc := New(store)
	ctx := context.Background()

	if err := svc.Record(ctx, ActionConsentGrant, "consent", "analytics_tracking", map[string]any{"granted": true}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := svc.Record(ctx, ActionPurgeRun, "purge_report", "r1", nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	events, err := svc.List(ctx, Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Action != ActionPurgeRun {
		t.Fatalf("expected newest first, got %s", events[0].Action)
	}
	if events[1].Details == nil {
		t.Fatal("expected details on grant event")
	}
}

func TestListFilter(t *testing.T) {
	store := NewMemoryStore()
	svc := New(store)
	ctx := context.Background()

	_ = svc.Record(ctx, ActionConsentGrant, "consent", "a", nil)
	_ = svc.Record(ctx, ActionConsentWithdraw, "consent", "a", nil)
	_ = svc.Record(ctx, ActionConsentGrant, "consent", "b", nil)

	events, err := svc.List(ctx, Filter{Action: ActionConsentGrant}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 grant events, got %d", len(events))
	}

	total, err := svc.Count(ctx, Filter{Action: ActionConsentWithdraw})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 withdraw event, got %d", total)
	}
}
