package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tecassist/plankit/pkg/plan"
)

// PlanHandler exposes the tenant-facing plan state: the reconciled record,
// the guard decision and the upgrade-prompt flags the UI consumes.
type PlanHandler struct {
	status *plan.StatusService
	log    *slog.Logger
}

func NewPlanHandler(status *plan.StatusService, log *slog.Logger) *PlanHandler {
	if status == nil {
		panic("handler: plan.StatusService is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &PlanHandler{
		status: status,
		log:    log.With(slog.String("component", "handler.plan")),
	}
}

type planView struct {
	Record            *plan.Record  `json:"record"`
	Decision          plan.Decision `json:"decision"`
	ShowUpgradePrompt bool          `json:"show_upgrade_prompt"`
	TrialProgress     float64       `json:"trial_progress"`
}

// Current handles GET /tenants/{tenantID}/plan. The guard decision is
// computed fresh from the live record on every request.
func (h *PlanHandler) Current(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		respondError(w, http.StatusBadRequest, "missing_tenant", "tenant id is required")
		return
	}

	rec, err := h.status.Current(r.Context(), tenantID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "plan lookup failed",
			slog.String("tenant_id", tenantID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "lookup_failed", "could not load plan")
		return
	}

	required := plan.RequireAny
	if r.URL.Query().Get("required") == string(plan.RequirePaid) {
		required = plan.RequirePaid
	}

	respondJSON(w, http.StatusOK, planView{
		Record:            rec,
		Decision:          plan.Decide(required, rec),
		ShowUpgradePrompt: h.status.ShouldShowUpgradePrompt(r.Context(), tenantID),
		TrialProgress:     h.status.TrialProgress(r.Context(), tenantID),
	})
}
