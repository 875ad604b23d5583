package retention

import (
	"context"
	"errors"
	"testing"
)

func TestGetReturnsDefaultsUntilAdjusted(t *testing.T) {
	policies := NewPolicyStore(NewMemoryStore(), nil)
	ctx := context.Background()

	policy, err := policies.Get(ctx, CategoryAnalyticsEvents)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if policy.Period != PeriodOneYear || !policy.AutoDelete {
		t.Fatalf("unexpected default policy: %+v", policy)
	}

	update := Policy{Category: CategoryAnalyticsEvents, Period: PeriodTwoYears, AutoDelete: true}
	if err := policies.Update(ctx, update); err != nil {
		t.Fatalf("update: %v", err)
	}
	policy, err = policies.Get(ctx, CategoryAnalyticsEvents)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if policy.Period != PeriodTwoYears {
		t.Fatalf("expected stored policy, got %+v", policy)
	}
}

func TestUpdateRejectsFixedCategories(t *testing.T) {
	policies := NewPolicyStore(NewMemoryStore(), nil)
	ctx := context.Background()

	err := policies.Update(ctx, Policy{Category: CategoryTransactions, Period: PeriodOneYear, AutoDelete: true})
	if !errors.Is(err, ErrPolicyNotAdjustable) {
		t.Fatalf("expected ErrPolicyNotAdjustable, got %v", err)
	}

	// stored state must be unchanged
	policy, err := policies.Get(ctx, CategoryTransactions)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if policy.Period != PeriodLegalMinimum || policy.AutoDelete {
		t.Fatalf("expected fixed default policy, got %+v", policy)
	}
}

func TestUpdateRejectsUnknownCategoryAndPeriod(t *testing.T) {
	policies := NewPolicyStore(NewMemoryStore(), nil)
	ctx := context.Background()

	err := policies.Update(ctx, Policy{Category: Category("browser_history"), Period: PeriodOneYear})
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}

	err = policies.Update(ctx, Policy{Category: CategoryNotifications, Period: Period("six_weeks")})
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestResolveWindowFloorsAtLegalMinimum(t *testing.T) {
	policies := NewPolicyStore(NewMemoryStore(), nil)
	ctx := context.Background()

	// defaults: analytics_events one_year
	window, err := policies.ResolveWindow(ctx, CategoryAnalyticsEvents)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if window != 365*day {
		t.Fatalf("expected 365d window, got %s", window)
	}

	// legal_minimum resolves to the category constant
	if err := policies.Update(ctx, Policy{Category: CategoryAnalyticsEvents, Period: PeriodLegalMinimum, AutoDelete: true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	window, err = policies.ResolveWindow(ctx, CategoryAnalyticsEvents)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if window != 90*day {
		t.Fatalf("expected 90d legal minimum, got %s", window)
	}

	// fixed transaction retention stays at the statutory value
	window, err = policies.ResolveWindow(ctx, CategoryTransactions)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if window != 7*365*day {
		t.Fatalf("expected 7y statutory window, got %s", window)
	}
}

func TestShortestWindow(t *testing.T) {
	policies := NewPolicyStore(NewMemoryStore(), nil)
	ctx := context.Background()

	shortest, err := policies.ShortestWindow(ctx)
	if err != nil {
		t.Fatalf("shortest: %v", err)
	}
	// exports defaults to legal_minimum (30d), the smallest default
	if shortest != 30*day {
		t.Fatalf("expected 30d shortest window, got %s", shortest)
	}
}

func TestFixed(t *testing.T) {
	if !Fixed(CategoryTransactions) || !Fixed(CategoryAuditLogs) {
		t.Fatal("expected legally fixed categories")
	}
	if Fixed(CategoryNotifications) {
		t.Fatal("expected notifications to be adjustable")
	}
	if Fixed(Category("browser_history")) {
		t.Fatal("expected unknown category to report not fixed")
	}
}
