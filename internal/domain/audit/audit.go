package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ActionConsentGrant    = "consent.grant"
	ActionConsentWithdraw = "consent.withdraw"
	ActionConsentExpire   = "consent.expire"
	ActionPolicyUpdate    = "retention.policy_update"
	ActionPurgeRun        = "retention.purge_run"
)

type Event struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type Filter struct {
	Action     string
	EntityType string
}

type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
	Count(ctx context.Context, filter Filter) (int, error)
}

// Service writes the append-only governance audit trail. Events are
// never updated or deleted through this API.
type Service struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) Record(ctx context.Context, action, entityType, entityID string, details any) error {
	var detailsJSON json.RawMessage
	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			return err
		}
		detailsJSON = payload
	}
	return s.store.Append(ctx, Event{
		ID:         uuid.NewString(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    detailsJSON,
		CreatedAt:  s.now().UTC(),
	})
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	return s.store.List(ctx, filter, limit, offset)
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	return s.store.Count(ctx, filter)
}
