package privacyhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"pfm/internal/domain/audit"
	"pfm/internal/domain/auth"
	"pfm/internal/domain/consent"
	"pfm/internal/domain/retention"
	"pfm/internal/lifecycle"
	"pfm/internal/transport/http/api"
	"pfm/internal/transport/http/middleware"
)

type stubInventory struct {
	items []retention.Item
}

func (s *stubInventory) Items(context.Context) ([]retention.Item, error) { return s.items, nil }
func (s *stubInventory) Delete(context.Context, retention.Item) error    { return nil }

func newTestRouter(t *testing.T, inventory *stubInventory) http.Handler {
	t.Helper()
	catalog, err := consent.NewCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	auditSvc := audit.New(audit.NewMemoryStore())
	ledger := consent.NewLedger(catalog, consent.NewMemoryStore(), auditSvc, nil)

	store := retention.NewMemoryStore()
	policies := retention.NewPolicyStore(store, auditSvc)
	engine := retention.NewEngine(policies, inventory, store, nil, 24*time.Hour)
	hub := lifecycle.NewHub()
	scheduler := retention.NewScheduler(engine, store, hub, auditSvc, nil, retention.SchedulerConfig{})
	if err := scheduler.Start(); err != nil {
		t.Fatalf("scheduler start: %v", err)
	}
	t.Cleanup(scheduler.Stop)

	handler := NewHandler(catalog, ledger, policies, scheduler, store, auditSvc, nil, hub, "")
	r := chi.NewRouter()
	r.Route("/api/v1", handler.RegisterRoutes)
	return r
}

func doRequest(router http.Handler, method, path string, body any, role string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if role != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), middleware.UserContext{UserID: "user-1", Role: role}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) api.Envelope {
	t.Helper()
	var envelope api.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return envelope
}

func TestRequiresAuthentication(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})
	rec := doRequest(router, http.MethodGet, "/api/v1/privacy/consents", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGetConsentsListsAllTypes(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})
	rec := doRequest(router, http.MethodGet, "/api/v1/privacy/consents", nil, auth.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]any)
	statuses := data["statuses"].(map[string]any)
	if len(statuses) != len(consent.AllTypes()) {
		t.Fatalf("expected %d statuses, got %d", len(consent.AllTypes()), len(statuses))
	}
	if data["catalogVersion"] == "" {
		t.Fatal("expected catalog version in payload")
	}
}

func TestGrantWithdrawJourney(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})

	rec := doRequest(router, http.MethodPost, "/api/v1/privacy/consents", map[string]any{
		"consentTypes": []string{"analytics_tracking"},
	}, auth.RoleUser)
	if rec.Code != http.StatusCreated {
		t.Fatalf("grant: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPost, "/api/v1/privacy/consents/withdraw", map[string]any{
		"consentTypes": []string{"analytics_tracking"},
		"reason":       "user_preference",
	}, auth.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/privacy/consents/analytics_tracking/history", nil, auth.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	history := envelope.Data.(map[string]any)
	if history["currentStatus"] != false {
		t.Fatalf("expected withdrawn status, got %v", history["currentStatus"])
	}
	if len(history["records"].([]any)) != 2 {
		t.Fatalf("expected 2 history records, got %d", len(history["records"].([]any)))
	}
}

func TestWithdrawNonWithdrawableRejected(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})
	rec := doRequest(router, http.MethodPost, "/api/v1/privacy/consents/withdraw", map[string]any{
		"consentTypes": []string{"essential_services"},
		"reason":       "user_preference",
	}, auth.RoleUser)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != "consent_not_withdrawable" {
		t.Fatalf("unexpected error payload: %+v", envelope.Error)
	}
}

func TestUnknownConsentTypeRejected(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})
	rec := doRequest(router, http.MethodPost, "/api/v1/privacy/consents", map[string]any{
		"consentTypes": []string{"mind_reading"},
	}, auth.RoleUser)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWithdrawRequiresReason(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})
	rec := doRequest(router, http.MethodPost, "/api/v1/privacy/consents/withdraw", map[string]any{
		"consentTypes": []string{"analytics_tracking"},
	}, auth.RoleUser)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope.Error == nil || envelope.Error.Code != "validation_error" {
		t.Fatalf("unexpected error payload: %+v", envelope.Error)
	}
}

func TestHistoryNotFoundWithoutRecords(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})
	rec := doRequest(router, http.MethodGet, "/api/v1/privacy/consents/analytics_tracking/history", nil, auth.RoleUser)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestExportJSON(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})
	doRequest(router, http.MethodPost, "/api/v1/privacy/consents", map[string]any{
		"consentTypes": []string{"analytics_tracking", "crash_diagnostics"},
	}, auth.RoleUser)

	rec := doRequest(router, http.MethodGet, "/api/v1/privacy/export", nil, auth.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var export consent.Export
	if err := json.NewDecoder(rec.Body).Decode(&export); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if len(export.AllRecords) != 2 {
		t.Fatalf("expected 2 records in export, got %d", len(export.AllRecords))
	}
}

func TestExportPDF(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})
	rec := doRequest(router, http.MethodGet, "/api/v1/privacy/export/pdf", nil, auth.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected a PDF body")
	}
}

func TestUpdateRetentionPolicy(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})

	rec := doRequest(router, http.MethodPut, "/api/v1/privacy/retention-policies", map[string]any{
		"category":        "analytics_events",
		"retentionPeriod": "two_years",
		"autoDelete":      true,
	}, auth.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(router, http.MethodPut, "/api/v1/privacy/retention-policies", map[string]any{
		"category":        "transactions",
		"retentionPeriod": "one_year",
		"autoDelete":      true,
	}, auth.RoleUser)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for fixed category, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodPut, "/api/v1/privacy/retention-policies", map[string]any{
		"category":        "mystery_data",
		"retentionPeriod": "one_year",
	}, auth.RoleUser)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rec.Code)
	}
}

func TestManualPurgeAndRuns(t *testing.T) {
	inventory := &stubInventory{items: []retention.Item{
		{Ref: "evt-1", Category: retention.CategoryAnalyticsEvents, Timestamp: time.Now().Add(-2 * 365 * 24 * time.Hour)},
	}}
	router := newTestRouter(t, inventory)

	rec := doRequest(router, http.MethodPost, "/api/v1/privacy/purge", nil, auth.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("purge: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	report := envelope.Data.(map[string]any)
	if report["totalItemsDeleted"].(float64) != 1 {
		t.Fatalf("expected 1 deletion, got %v", report["totalItemsDeleted"])
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/privacy/purge/runs", nil, auth.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("runs: expected 200, got %d", rec.Code)
	}
	envelope = decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]any)
	if len(data["runs"].([]any)) != 1 {
		t.Fatalf("expected 1 run, got %v", data["runs"])
	}
}

func TestSessionActiveRunsDueCheck(t *testing.T) {
	inventory := &stubInventory{items: []retention.Item{
		{Ref: "evt-1", Category: retention.CategoryAnalyticsEvents, Timestamp: time.Now().Add(-2 * 365 * 24 * time.Hour)},
	}}
	router := newTestRouter(t, inventory)

	rec := doRequest(router, http.MethodPost, "/api/v1/privacy/session/active", nil, auth.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("session active: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	state := envelope.Data.(map[string]any)
	if state["isRunning"] != true {
		t.Fatalf("expected running scheduler state, got %v", state)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/privacy/purge/runs", nil, auth.RoleUser)
	envelope = decodeEnvelope(t, rec)
	data := envelope.Data.(map[string]any)
	runs := data["runs"].([]any)
	if len(runs) != 1 {
		t.Fatalf("expected the foreground transition to run a due purge, got %v", runs)
	}
	report := runs[0].(map[string]any)
	if report["totalItemsDeleted"].(float64) != 1 {
		t.Fatalf("expected 1 deletion, got %v", report["totalItemsDeleted"])
	}

	rec = doRequest(router, http.MethodPost, "/api/v1/privacy/session/background", nil, auth.RoleUser)
	if rec.Code != http.StatusOK {
		t.Fatalf("session background: expected 200, got %d", rec.Code)
	}
}

func TestAuditTrailRequiresComplianceRole(t *testing.T) {
	router := newTestRouter(t, &stubInventory{})

	rec := doRequest(router, http.MethodGet, "/api/v1/privacy/audit", nil, auth.RoleUser)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d", rec.Code)
	}

	doRequest(router, http.MethodPost, "/api/v1/privacy/consents", map[string]any{
		"consentTypes": []string{"analytics_tracking"},
	}, auth.RoleUser)

	rec = doRequest(router, http.MethodGet, "/api/v1/privacy/audit", nil, auth.RoleCompliance)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for compliance role, got %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	events := envelope.Data.([]any)
	if len(events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(events))
	}
}
