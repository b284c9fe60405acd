/*
handlers.go - HTTP API handlers for the commission dashboard

PURPOSE:
  Exposes policy CRUD, the notification feed, payroll lookups, and the
  reconciliation workflow over REST. Handlers parse and validate input,
  delegate to the domain packages, and map the error taxonomy to HTTP.

ERROR MAPPING:
  400  invalid input, ValidationFailed, InvalidDate
  401  no agent identity on the request
  404  NotFound (including rows owned by another agent)
  422  UnknownPeriod (payroll lookup outside tabulated years)
  502  UpstreamUnavailable (data store outage)
  Every error body carries retryable so clients know whether to try again.

CHAT DELIVERY:
  Outbound chat is best-effort. A failed post is logged and, where the
  response has room for it, reported as chat_delivered=false. It never
  turns a successful data write into an error response.

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: routing and the agent-identity middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/chat"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/identity"
	"github.com/warp/commission-engine/notify"
	"github.com/warp/commission-engine/payroll"
	"github.com/warp/commission-engine/reconcile"
	"github.com/warp/commission-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Payroll *payroll.Calendar
	Chat    *chat.Notifier

	// Now is injectable for tests; defaults to calendar.Today.
	Now func() calendar.Date
}

// NewHandler creates a handler with the given collaborators.
func NewHandler(store *sqlite.Store, cal *payroll.Calendar, notifier *chat.Notifier) *Handler {
	return &Handler{
		Store:   store,
		Payroll: cal,
		Chat:    notifier,
		Now:     calendar.Today,
	}
}

func (h *Handler) today() calendar.Date {
	if h.Now != nil {
		return h.Now()
	}
	return calendar.Today()
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := ErrorDTO{Error: http.StatusText(status), Message: message, Retryable: commission.IsRetryable(err)}
	if err != nil {
		if body.Message == "" {
			body.Message = err.Error()
		} else {
			body.Message += ": " + err.Error()
		}
		var v *commission.ValidationError
		if errors.As(err, &v) {
			body.Problems = v.Problems
		}
	}
	writeJSON(w, status, body)
}

// writeDomainError maps the error taxonomy to an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case commission.IsNotFound(err):
		writeError(w, http.StatusNotFound, "", err)
	case errors.Is(err, commission.ErrUnknownPeriod):
		writeError(w, http.StatusUnprocessableEntity, "", err)
	case commission.IsClientError(err):
		writeError(w, http.StatusBadRequest, "", err)
	case commission.IsRetryable(err):
		writeError(w, http.StatusBadGateway, "", err)
	default:
		writeError(w, http.StatusInternalServerError, "", err)
	}
}

func boolPtr(b bool) *bool { return &b }

func agentFrom(w http.ResponseWriter, r *http.Request) (identity.Agent, bool) {
	agent, ok := identity.FromContext(r.Context())
	if !ok || agent.ID == "" {
		writeError(w, http.StatusUnauthorized, "no agent identity on request", nil)
		return identity.Agent{}, false
	}
	return agent, true
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns all of the calling agent's policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	policies, err := h.Store.ListPolicies(r.Context(), agent.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policyDTOs(policies))
}

// GetPolicy returns one policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	p, err := h.Store.GetPolicy(r.Context(), agent.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policyDTO(p))
}

// CreatePolicy inserts a new policy and announces it to chat.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	var req PolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	p, err := policyFromRequest(req, agent.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}

	saved, err := h.Store.CreatePolicy(r.Context(), p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := policyDTO(saved)
	dto.ChatDelivered = boolPtr(true)
	if err := h.Chat.PolicyCreated(saved, agent.Name); err != nil {
		log.Printf("api: new-policy chat notice failed for %s: %v", saved.ID, err)
		dto.ChatDelivered = boolPtr(false)
	}
	writeJSON(w, http.StatusCreated, dto)
}

// UpdatePolicy overwrites a policy's editable fields. A rate change also
// goes out to chat.
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	var req PolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	p, err := policyFromRequest(req, agent.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}
	p.ID = chi.URLParam(r, "id")

	before, err := h.Store.GetPolicy(r.Context(), agent.ID, p.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := h.Store.UpdatePolicy(r.Context(), agent.ID, p)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !before.CommissionRate.Equal(updated.CommissionRate) {
		if err := h.Chat.RateChanged(updated, before.CommissionRate, updated.CommissionRate); err != nil {
			log.Printf("api: rate-change chat notice failed for %s: %v", updated.ID, err)
		}
	}
	writeJSON(w, http.StatusOK, policyDTO(updated))
}

// DeletePolicy removes a policy (explicit agent action only).
func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	if err := h.Store.DeletePolicy(r.Context(), agent.ID, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func policyFromRequest(req PolicyRequest, agentID string) (commission.Policy, error) {
	status := commission.Status(req.Status)
	if req.Status == "" {
		status = commission.StatusPending
	}
	if !commission.ValidStatus(status) {
		return commission.Policy{}, &commission.ValidationError{
			Problems: []string{"status must be pending, active, or cancelled"},
		}
	}

	premium, err := decimal.NewFromString(req.AnnualPremium)
	if err != nil {
		return commission.Policy{}, &commission.ValidationError{Problems: []string{"annual_premium is not a valid decimal"}}
	}
	rate, err := decimal.NewFromString(req.CommissionRate)
	if err != nil {
		return commission.Policy{}, &commission.ValidationError{Problems: []string{"commission_rate is not a valid decimal"}}
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return commission.Policy{}, &commission.ValidationError{Problems: []string{"commission_rate must be between 0 and 1"}}
	}

	p := commission.Policy{
		AgentID:        agentID,
		ClientName:     req.ClientName,
		Carrier:        req.Carrier,
		PolicyNumber:   req.PolicyNumber,
		Product:        req.Product,
		Status:         status,
		AnnualPremium:  premium,
		CommissionRate: rate,
		Comments:       req.Comments,
	}
	if p.FirstPaymentDate, err = optionalDate(req.FirstPaymentDate); err != nil {
		return commission.Policy{}, err
	}
	if p.InforceDate, err = optionalDate(req.InforceDate); err != nil {
		return commission.Policy{}, err
	}
	if p.CancelledDate, err = optionalDate(req.CancelledDate); err != nil {
		return commission.Policy{}, err
	}
	return p, nil
}

func optionalDate(s *string) (*calendar.Date, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := calendar.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// =============================================================================
// POLICY STATE TRANSITIONS
// =============================================================================

// VerifyPolicy marks the first payment bank-confirmed.
func (h *Handler) VerifyPolicy(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	p, err := h.Store.MarkVerified(r.Context(), agent.ID, chi.URLParam(r, "id"), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policyDTO(p))
}

// PayPolicy marks commission as paid out.
func (h *Handler) PayPolicy(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	p, err := h.Store.MarkPaid(r.Context(), agent.ID, chi.URLParam(r, "id"), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policyDTO(p))
}

// CancelPolicy cancels a policy and sends a cancellation alert (with
// chargeback detection) to chat.
func (h *Handler) CancelPolicy(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	var req CancelPolicyRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}
	on := h.today()
	if req.CancelledDate != "" {
		parsed, err := calendar.ParseDate(req.CancelledDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "", err)
			return
		}
		on = parsed
	}

	p, err := h.Store.MarkCancelled(r.Context(), agent.ID, chi.URLParam(r, "id"), on)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := policyDTO(p)
	dto.ChatDelivered = boolPtr(true)
	cb := commission.DetectChargeback(p, h.today())
	if err := h.Chat.CancellationAlert(p, cb); err != nil {
		log.Printf("api: cancellation chat notice failed for %s: %v", p.ID, err)
		dto.ChatDelivered = boolPtr(false)
	}
	writeJSON(w, http.StatusOK, dto)
}

// ReactivatePolicy returns a cancelled policy to active.
func (h *Handler) ReactivatePolicy(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	p, err := h.Store.Reactivate(r.Context(), agent.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policyDTO(p))
}

// FlagPolicy sends a one-off reconciliation alert for a policy, for issues
// spotted between period submits.
func (h *Handler) FlagPolicy(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	var req FlagPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Issue) == "" {
		writeError(w, http.StatusBadRequest, "",
			&commission.ValidationError{Problems: []string{"issue must not be blank"}})
		return
	}

	p, err := h.Store.GetPolicy(r.Context(), agent.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := policyDTO(p)
	dto.ChatDelivered = boolPtr(true)
	if err := h.Chat.ReconciliationAlert(p, req.Issue); err != nil {
		log.Printf("api: reconciliation flag failed for %s: %v", p.ID, err)
		dto.ChatDelivered = boolPtr(false)
	}
	writeJSON(w, http.StatusOK, dto)
}

// LogContact records a client-outreach attempt for today.
func (h *Handler) LogContact(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}
	policyID := chi.URLParam(r, "id")

	// Ownership check before writing to the shared contact log.
	if _, err := h.Store.GetPolicy(r.Context(), agent.ID, policyID); err != nil {
		writeDomainError(w, err)
		return
	}

	err := h.Store.LogContact(r.Context(), commission.ContactAttempt{
		PolicyID: policyID,
		AgentID:  agent.ID,
		Date:     h.today(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// GetProfile returns the agent's profile; a brand-new agent gets a blank
// one, never a 404.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	prof, err := h.Store.GetProfile(r.Context(), agent.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileDTO(prof))
}

// UpsertProfile creates or updates the agent's one profile row.
func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	startDate, err := optionalDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}

	prof, err := h.Store.UpsertProfile(r.Context(), commission.AgentProfile{
		AgentID:         agent.ID,
		StartDate:       startDate,
		LicenseNumber:   req.LicenseNumber,
		Specializations: req.Specializations,
		Notes:           req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileDTO(prof))
}

// =============================================================================
// NOTIFICATION FEED
// =============================================================================

// ListNotifications recomputes and returns the agent's reminder feed.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}
	today := h.today()

	policies, err := h.Store.ListPolicies(r.Context(), agent.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	contacts, err := h.Store.ContactSummaries(r.Context(), agent.ID, today)
	if err != nil {
		// Degrade: the feed still renders, just without contact enrichment.
		log.Printf("api: contact summaries unavailable for %s: %v", agent.ID, err)
		contacts = nil
	}

	notifications := notify.Generate(policies, contacts, today)
	dtos := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		dtos[i] = notificationDTO(n)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// UpcomingPayments returns the next N payment dates (default 4).
func (h *Handler) UpcomingPayments(w http.ResponseWriter, r *http.Request) {
	if _, ok := agentFrom(w, r); !ok {
		return
	}

	count := 4
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer", nil)
			return
		}
		count = n
	}

	entries, err := h.Payroll.UpcomingPaymentPeriods(h.today(), count)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]PaymentDateDTO, len(entries))
	for i, e := range entries {
		dtos[i] = paymentDateDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PeriodLookup returns the payroll period that owns ?date.
func (h *Handler) PeriodLookup(w http.ResponseWriter, r *http.Request) {
	if _, ok := agentFrom(w, r); !ok {
		return
	}

	d, err := calendar.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}

	period, err := h.Payroll.PeriodForDate(d)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PeriodDTO{
		PeriodStart: period.Start.String(),
		PeriodEnd:   period.End.String(),
		Payment:     paymentDateDTO(period.Payment),
	})
}

// ExpectedCommission returns still-pending commission for the period ending
// on ?period_end.
func (h *Handler) ExpectedCommission(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	periodEnd, err := calendar.ParseDate(r.URL.Query().Get("period_end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}

	policies, err := h.Store.ListPolicies(r.Context(), agent.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	expected, err := h.Payroll.ExpectedCommissionForPeriod(policies, periodEnd)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExpectedCommissionDTO{
		PeriodStart: expected.Period.Start.String(),
		PeriodEnd:   expected.Period.End.String(),
		PaymentDate: expected.Period.Payment.Date.String(),
		Total:       expected.Total.StringFixed(2),
		Count:       expected.Count,
		Policies:    policyDTOs(expected.Policies),
	})
}

// =============================================================================
// RECONCILIATION HANDLERS
// =============================================================================

// ReconciliationPeriod returns the period view the operator reconciles
// against.
func (h *Handler) ReconciliationPeriod(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	periodEnd, err := calendar.ParseDate(r.URL.Query().Get("period_end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}

	policies, err := h.Store.ListPolicies(r.Context(), agent.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	view, err := reconcile.BuildPeriodView(h.Payroll, policies, periodEnd, h.today())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReconciliationPeriodDTO{
		PeriodStart:      view.Period.Start.String(),
		PeriodEnd:        view.Period.End.String(),
		PaymentDate:      view.Period.Payment.Date.String(),
		ExpectedTotal:    view.ExpectedTotal.StringFixed(2),
		VerifiedAmount:   view.VerifiedAmount.StringFixed(2),
		UnverifiedAmount: view.UnverifiedAmount.StringFixed(2),
		ChargebackAmount: view.ChargebackAmount.StringFixed(2),
		ChargebackCount:  view.ChargebackCount,
		Policies:         policyDTOs(view.Policies),
	})
}

// SubmitReconciliation validates the completion gate, writes verification
// timestamps, and sends the grouped chat batches. Validation failures
// reject the whole submit before anything is applied; write-back failures
// after that are reported as partial results.
func (h *Handler) SubmitReconciliation(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}

	var req SubmitReconciliationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	periodEnd, err := calendar.ParseDate(req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}

	policies, err := h.Store.ListPolicies(r.Context(), agent.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	expected, err := h.Payroll.ExpectedCommissionForPeriod(policies, periodEnd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	actions := make(map[string]reconcile.Record, len(req.Actions))
	for _, a := range req.Actions {
		actions[a.PolicyID] = reconcile.Record{
			PolicyID: a.PolicyID,
			Action:   reconcile.Action(a.Action),
			Urgent:   a.Urgent,
			Reason:   a.Reason,
		}
	}

	// Completion gate: reject before applying anything.
	if err := reconcile.ValidateSubmission(expected.Policies, actions); err != nil {
		writeDomainError(w, err)
		return
	}

	// Sequential, non-transactional write-back. A mid-loop failure leaves
	// earlier policies verified; report that honestly instead of hiding it.
	items := reconcile.VerificationWriteBack(expected.Policies, actions, time.Now())
	var verified, failed []string
	for _, item := range items {
		if _, err := h.Store.MarkVerified(r.Context(), agent.ID, item.PolicyID, item.VerifiedAt); err != nil {
			log.Printf("api: verification write-back failed for %s: %v", item.PolicyID, err)
			failed = append(failed, item.PolicyID)
			continue
		}
		verified = append(verified, item.PolicyID)
	}

	// Chat batches go out after the data writes and never undo them.
	delivered := true
	for _, batch := range reconcile.BuildBatches(agent.ID, expected.Policies, actions, periodEnd, req.NotifyComplete) {
		if err := h.Chat.ReconciliationBatch(batch); err != nil {
			delivered = false
		}
	}

	writeJSON(w, http.StatusOK, SubmitReconciliationResponse{
		Summary:           summaryDTO(reconcile.Summarize(expected.Policies, actions)),
		VerifiedPolicyIDs: verified,
		FailedPolicyIDs:   failed,
		ChatDelivered:     delivered,
	})
}

// =============================================================================
// DASHBOARD
// =============================================================================

// Dashboard returns the landing-page rollup.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	agent, ok := agentFrom(w, r)
	if !ok {
		return
	}
	today := h.today()

	policies, err := h.Store.ListPolicies(r.Context(), agent.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dto := DashboardDTO{
		PolicyCount:      len(policies),
		TotalCommission:  "0.00",
		UnpaidCommission: "0.00",
		ChargebackTotal:  "0.00",
	}
	total := decimal.Zero
	unpaid := decimal.Zero
	chargebacks := decimal.Zero
	for _, p := range policies {
		total = total.Add(p.CommissionDue)
		switch p.Status {
		case commission.StatusPending:
			dto.PendingCount++
		case commission.StatusActive:
			dto.ActiveCount++
		case commission.StatusCancelled:
			dto.CancelledCount++
		}
		if !p.IsPaid() && p.Status != commission.StatusCancelled {
			unpaid = unpaid.Add(p.CommissionDue)
		}
		if cb := commission.DetectChargeback(p, today); cb.IsChargeback {
			chargebacks = chargebacks.Add(cb.Amount)
		}
	}
	dto.TotalCommission = total.StringFixed(2)
	dto.UnpaidCommission = unpaid.StringFixed(2)
	dto.ChargebackTotal = chargebacks.StringFixed(2)

	contacts, err := h.Store.ContactSummaries(r.Context(), agent.ID, today)
	if err != nil {
		contacts = nil
	}
	dto.NotificationCount = len(notify.Generate(policies, contacts, today))

	if next, err := h.Payroll.NextPaymentDate(today); err == nil {
		d := paymentDateDTO(next)
		dto.NextPaymentDate = &d
	}

	writeJSON(w, http.StatusOK, dto)
}
