package privacyhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pfm/internal/domain/audit"
	"pfm/internal/domain/auth"
	"pfm/internal/domain/consent"
	"pfm/internal/domain/retention"
	"pfm/internal/lifecycle"
	cryptoutil "pfm/internal/platform/crypto"
	"pfm/internal/transport/http/api"
	"pfm/internal/transport/http/middleware"
	"pfm/internal/transport/http/shared"
)

// Handler serves the privacy settings and compliance API backed by the
// consent ledger and the retention engine.
type Handler struct {
	Catalog   *consent.Catalog
	Ledger    *consent.Ledger
	Policies  *retention.PolicyStore
	Scheduler *retention.Scheduler
	Reports   retention.Store
	Audit     *audit.Service
	Crypto    *cryptoutil.Service
	Hub       *lifecycle.Hub
	ExportDir string
}

func NewHandler(catalog *consent.Catalog, ledger *consent.Ledger, policies *retention.PolicyStore, scheduler *retention.Scheduler, reports retention.Store, auditSvc *audit.Service, crypto *cryptoutil.Service, hub *lifecycle.Hub, exportDir string) *Handler {
	return &Handler{
		Catalog:   catalog,
		Ledger:    ledger,
		Policies:  policies,
		Scheduler: scheduler,
		Reports:   reports,
		Audit:     auditSvc,
		Crypto:    crypto,
		Hub:       hub,
		ExportDir: exportDir,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/privacy", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/consents", h.handleGetConsents)
		r.Post("/consents", h.handleGrantConsents)
		r.Post("/consents/withdraw", h.handleWithdrawConsents)
		r.Get("/consents/{consentType}/history", h.handleConsentHistory)
		r.Get("/export", h.handleExportJSON)
		r.Get("/export/pdf", h.handleExportPDF)
		r.Get("/retention-policies", h.handleGetPolicies)
		r.Put("/retention-policies", h.handleUpdatePolicy)
		r.Post("/purge", h.handleManualPurge)
		r.Get("/purge/runs", h.handlePurgeRuns)
		r.Post("/session/active", h.handleSessionActive)
		r.Post("/session/background", h.handleSessionBackground)
		r.With(middleware.RequireRole(auth.RoleCompliance)).Get("/audit", h.handleAuditTrail)
	})
}

func (h *Handler) handleGetConsents(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.Ledger.Status(r.Context(), consent.AllTypes())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "consent_status_failed", "failed to resolve consent status", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"catalogVersion": h.Catalog.Version(),
		"statuses":       statuses,
		"configurations": h.Catalog.Configurations(),
		"bundles":        h.Catalog.Bundles(),
	}, middleware.GetRequestID(r.Context()))
}

type consentChangePayload struct {
	ConsentTypes []consent.Type    `json:"consentTypes"`
	Reason       string            `json:"reason"`
	Metadata     map[string]string `json:"metadata"`
}

func (h *Handler) handleGrantConsents(w http.ResponseWriter, r *http.Request) {
	var payload consentChangePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.NonEmptyList("consentTypes", len(payload.ConsentTypes), "at least one consent type required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	records, err := h.Ledger.Grant(r.Context(), payload.ConsentTypes, payload.Metadata)
	if err != nil {
		h.failConsent(w, r, err, "consent_grant_failed", "failed to grant consent")
		return
	}
	api.Created(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWithdrawConsents(w http.ResponseWriter, r *http.Request) {
	var payload consentChangePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.NonEmptyList("consentTypes", len(payload.ConsentTypes), "at least one consent type required")
	v.Required("reason", payload.Reason, "withdrawal reason required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	records, err := h.Ledger.Withdraw(r.Context(), payload.ConsentTypes, payload.Reason, payload.Metadata)
	if err != nil {
		h.failConsent(w, r, err, "consent_withdraw_failed", "failed to withdraw consent")
		return
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleConsentHistory(w http.ResponseWriter, r *http.Request) {
	consentType := consent.Type(chi.URLParam(r, "consentType"))
	history, err := h.Ledger.History(r.Context(), consentType)
	if err != nil {
		h.failConsent(w, r, err, "consent_history_failed", "failed to load consent history")
		return
	}
	if history == nil {
		api.Fail(w, http.StatusNotFound, "not_found", "no consent history for this type", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, history, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	export, err := h.Ledger.ExportAll(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to build consent export", middleware.GetRequestID(r.Context()))
		return
	}
	payload, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to encode consent export", middleware.GetRequestID(r.Context()))
		return
	}
	h.archiveExport(r, payload, "json")

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=consent-export.json")
	if _, err := w.Write(payload); err != nil {
		slog.Warn("consent export write failed", "err", err)
	}
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	export, err := h.Ledger.ExportAll(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to build consent export", middleware.GetRequestID(r.Context()))
		return
	}
	payload, err := consent.RenderPDF(export)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to render consent export", middleware.GetRequestID(r.Context()))
		return
	}
	h.archiveExport(r, payload, "pdf")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=consent-export.pdf")
	if _, err := w.Write(payload); err != nil {
		slog.Warn("consent export write failed", "err", err)
	}
}

// archiveExport keeps an at-rest compliance copy of each export,
// encrypted when a key is configured. Failure to archive never fails
// the download itself.
func (h *Handler) archiveExport(r *http.Request, payload []byte, format string) {
	if h.ExportDir == "" {
		return
	}
	if err := os.MkdirAll(h.ExportDir, 0o755); err != nil {
		slog.Warn("export archive dir failed", "err", err)
		return
	}
	name := fmt.Sprintf("consent-export-%d.%s", time.Now().UTC().UnixNano(), format)
	data := payload
	if h.Crypto != nil && h.Crypto.Configured() {
		enc, err := h.Crypto.Encrypt(payload)
		if err != nil {
			slog.Warn("export archive encrypt failed", "err", err)
			return
		}
		data = enc
		name += ".enc"
	}
	if err := os.WriteFile(filepath.Join(h.ExportDir, name), data, 0o600); err != nil {
		slog.Warn("export archive write failed", "err", err)
		return
	}
	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), "consent.export", "export_file", name, map[string]string{"format": format}); err != nil {
			slog.Warn("audit consent.export failed", "err", err)
		}
	}
}

func (h *Handler) handleGetPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Policies.All(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_list_failed", "failed to list retention policies", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, policies, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var payload retention.Policy
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("category", string(payload.Category), "category required")
	v.Required("retentionPeriod", string(payload.Period), "retention period required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Policies.Update(r.Context(), payload); err != nil {
		switch {
		case errors.Is(err, retention.ErrUnknownCategory), errors.Is(err, retention.ErrInvalidPeriod):
			api.Fail(w, http.StatusBadRequest, "invalid_policy", err.Error(), middleware.GetRequestID(r.Context()))
		case errors.Is(err, retention.ErrPolicyNotAdjustable):
			api.Fail(w, http.StatusConflict, "policy_not_adjustable", "retention for this category is fixed by law", middleware.GetRequestID(r.Context()))
		default:
			api.Fail(w, http.StatusInternalServerError, "policy_update_failed", "failed to update retention policy", middleware.GetRequestID(r.Context()))
		}
		return
	}
	policy, err := h.Policies.Get(r.Context(), payload.Category)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "policy_update_failed", "failed to read updated policy", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, policy, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleManualPurge(w http.ResponseWriter, r *http.Request) {
	report, err := h.Scheduler.PerformManualPurge(r.Context())
	if err != nil {
		if errors.Is(err, retention.ErrInventoryUnavailable) {
			api.Fail(w, http.StatusServiceUnavailable, "inventory_unavailable", "data inventory is unavailable, nothing was deleted", middleware.GetRequestID(r.Context()))
			return
		}
		api.Fail(w, http.StatusInternalServerError, "purge_failed", "failed to run purge", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePurgeRuns(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 20, retention.ReportCap)
	reports, err := h.Reports.Reports(r.Context(), page.Limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "purge_runs_failed", "failed to list purge runs", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"runs":      reports,
		"scheduler": h.Scheduler.State(),
	}, middleware.GetRequestID(r.Context()))
}

// handleSessionActive is the foreground-transition report from the
// mobile client. Publishing is synchronous, so a due purge check has
// already run when the scheduler state in the response is read.
func (h *Handler) handleSessionActive(w http.ResponseWriter, r *http.Request) {
	h.Hub.Publish(lifecycle.AppActive)
	api.Success(w, h.Scheduler.State(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSessionBackground(w http.ResponseWriter, r *http.Request) {
	h.Hub.Publish(lifecycle.AppBackground)
	api.Success(w, h.Scheduler.State(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 500)
	filter := audit.Filter{
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entityType"),
	}
	total, err := h.Audit.Count(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to count audit events", middleware.GetRequestID(r.Context()))
		return
	}
	events, err := h.Audit.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

func (h *Handler) failConsent(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	switch {
	case errors.Is(err, consent.ErrUnknownConsentType):
		api.Fail(w, http.StatusBadRequest, "unknown_consent_type", err.Error(), middleware.GetRequestID(r.Context()))
	case errors.Is(err, consent.ErrNonWithdrawable):
		api.Fail(w, http.StatusConflict, "consent_not_withdrawable", err.Error(), middleware.GetRequestID(r.Context()))
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, middleware.GetRequestID(r.Context()))
	}
}
