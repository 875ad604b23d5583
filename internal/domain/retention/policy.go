package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pfm/internal/domain/audit"
)

// PolicyStore serves retention policies within the bounds the
// jurisdiction rules set: fixed categories reject updates and resolved
// windows never drop below the statutory minimum.
type PolicyStore struct {
	store Store
	audit *audit.Service
	mu    sync.Mutex
}

func NewPolicyStore(store Store, auditSvc *audit.Service) *PolicyStore {
	return &PolicyStore{store: store, audit: auditSvc}
}

func (p *PolicyStore) Get(ctx context.Context, category Category) (Policy, error) {
	rule, ok := categoryRules[category]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	stored, err := p.store.Policy(ctx, category)
	if err != nil {
		return Policy{}, err
	}
	if stored == nil {
		return rule.defaultPolicy, nil
	}
	return *stored, nil
}

func (p *PolicyStore) All(ctx context.Context) ([]Policy, error) {
	out := make([]Policy, 0, len(categoryRules))
	for _, category := range AllCategories() {
		policy, err := p.Get(ctx, category)
		if err != nil {
			return nil, err
		}
		out = append(out, policy)
	}
	return out, nil
}

// Update replaces the policy for an adjustable category. Legally fixed
// categories always fail with ErrPolicyNotAdjustable.
func (p *PolicyStore) Update(ctx context.Context, policy Policy) error {
	rule, ok := categoryRules[policy.Category]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, policy.Category)
	}
	if rule.fixed {
		return fmt.Errorf("%w: %s", ErrPolicyNotAdjustable, policy.Category)
	}
	if policy.Period != PeriodLegalMinimum {
		if _, ok := periodDurations[policy.Period]; !ok {
			return fmt.Errorf("%w: %s", ErrInvalidPeriod, policy.Period)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.SavePolicy(ctx, policy); err != nil {
		return err
	}
	if p.audit != nil {
		details := map[string]any{"period": policy.Period, "autoDelete": policy.AutoDelete}
		if err := p.audit.Record(ctx, audit.ActionPolicyUpdate, "retention_policy", string(policy.Category), details); err != nil {
			slog.Warn("retention audit write failed", "category", policy.Category, "err", err)
		}
	}
	return nil
}

// ResolveWindow maps a category's symbolic period to a concrete
// duration, floored at the category's legal minimum.
func (p *PolicyStore) ResolveWindow(ctx context.Context, category Category) (time.Duration, error) {
	rule, ok := categoryRules[category]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	policy, err := p.Get(ctx, category)
	if err != nil {
		return 0, err
	}
	if policy.Period == PeriodLegalMinimum {
		return rule.legalMinimum, nil
	}
	window, ok := periodDurations[policy.Period]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPeriod, policy.Period)
	}
	if window < rule.legalMinimum {
		return rule.legalMinimum, nil
	}
	return window, nil
}

// ShortestWindow returns the smallest resolvable window across all
// categories; the purge engine derives the next scheduled purge from
// it.
func (p *PolicyStore) ShortestWindow(ctx context.Context) (time.Duration, error) {
	var shortest time.Duration
	for _, category := range AllCategories() {
		window, err := p.ResolveWindow(ctx, category)
		if err != nil {
			return 0, err
		}
		if shortest == 0 || window < shortest {
			shortest = window
		}
	}
	return shortest, nil
}

// Fixed reports whether a category's policy is legally fixed.
func Fixed(category Category) bool {
	rule, ok := categoryRules[category]
	return ok && rule.fixed
}
