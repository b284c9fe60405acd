/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the dashboard API. These decouple the internal domain
  model from the wire contract. Currency crosses the wire as strings - the
  frontend must never do float math on commission amounts.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

VALIDATION:
  Done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"time"

	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/notify"
	"github.com/warp/commission-engine/payroll"
	"github.com/warp/commission-engine/reconcile"
)

// =============================================================================
// POLICIES
// =============================================================================

// PolicyDTO represents a policy in API responses.
type PolicyDTO struct {
	ID               string  `json:"id"`
	AgentID          string  `json:"agent_id"`
	ClientName       string  `json:"client_name"`
	Carrier          string  `json:"carrier"`
	PolicyNumber     string  `json:"policy_number"`
	Product          string  `json:"product"`
	Status           string  `json:"status"`
	AnnualPremium    string  `json:"annual_premium"`
	CommissionRate   string  `json:"commission_rate"`
	CommissionDue    string  `json:"commission_due"`
	FirstPaymentDate *string `json:"first_payment_date,omitempty"`
	InforceDate      *string `json:"inforce_date,omitempty"`
	CancelledDate    *string `json:"cancelled_date,omitempty"`
	DateVerified     *string `json:"date_verified,omitempty"`
	CommissionPaidAt *string `json:"date_commission_paid,omitempty"`
	Comments         string  `json:"comments,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`

	// ChatDelivered is set on mutating routes that announce to chat; a
	// failed post degrades to false here, never to an error status.
	ChatDelivered *bool `json:"chat_delivered,omitempty"`
}

func policyDTO(p commission.Policy) PolicyDTO {
	return PolicyDTO{
		ID:               p.ID,
		AgentID:          p.AgentID,
		ClientName:       p.ClientName,
		Carrier:          p.Carrier,
		PolicyNumber:     p.PolicyNumber,
		Product:          p.Product,
		Status:           string(p.Status),
		AnnualPremium:    p.AnnualPremium.StringFixed(2),
		CommissionRate:   p.CommissionRate.String(),
		CommissionDue:    p.CommissionDue.StringFixed(2),
		FirstPaymentDate: dateString(p.FirstPaymentDate),
		InforceDate:      dateString(p.InforceDate),
		CancelledDate:    dateString(p.CancelledDate),
		DateVerified:     timeString(p.DateVerified),
		CommissionPaidAt: timeString(p.DateCommissionPaid),
		Comments:         p.Comments,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
}

func policyDTOs(policies []commission.Policy) []PolicyDTO {
	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = policyDTO(p)
	}
	return dtos
}

func dateString(d *calendar.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func timeString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// PolicyRequest creates or replaces a policy. Premium and rate arrive as
// decimal strings; commission due is never accepted from the client.
type PolicyRequest struct {
	ClientName       string  `json:"client_name"`
	Carrier          string  `json:"carrier"`
	PolicyNumber     string  `json:"policy_number"`
	Product          string  `json:"product"`
	Status           string  `json:"status"`
	AnnualPremium    string  `json:"annual_premium"`
	CommissionRate   string  `json:"commission_rate"`
	FirstPaymentDate *string `json:"first_payment_date,omitempty"`
	InforceDate      *string `json:"inforce_date,omitempty"`
	CancelledDate    *string `json:"cancelled_date,omitempty"`
	Comments         string  `json:"comments,omitempty"`
}

// CancelPolicyRequest records a cancellation as of a given day (defaults to
// today when omitted).
type CancelPolicyRequest struct {
	CancelledDate string `json:"cancelled_date,omitempty"`
}

// FlagPolicyRequest raises a one-off reconciliation issue for a policy,
// outside a full period submit.
type FlagPolicyRequest struct {
	Issue string `json:"issue"`
}

// =============================================================================
// PROFILE
// =============================================================================

// ProfileDTO represents the agent's profile.
type ProfileDTO struct {
	ID              string   `json:"id,omitempty"`
	AgentID         string   `json:"agent_id"`
	StartDate       *string  `json:"start_date,omitempty"`
	LicenseNumber   string   `json:"license_number,omitempty"`
	Specializations []string `json:"specializations"`
	Notes           string   `json:"notes,omitempty"`
}

func profileDTO(p commission.AgentProfile) ProfileDTO {
	return ProfileDTO{
		ID:              p.ID,
		AgentID:         p.AgentID,
		StartDate:       dateString(p.StartDate),
		LicenseNumber:   p.LicenseNumber,
		Specializations: p.Specializations,
		Notes:           p.Notes,
	}
}

// ProfileRequest upserts the agent's profile.
type ProfileRequest struct {
	StartDate       *string  `json:"start_date,omitempty"`
	LicenseNumber   string   `json:"license_number,omitempty"`
	Specializations []string `json:"specializations"`
	Notes           string   `json:"notes,omitempty"`
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// NotificationDTO is one reminder row in the feed.
type NotificationDTO struct {
	ID                    string  `json:"id"`
	Kind                  string  `json:"kind"`
	PolicyID              string  `json:"policy_id"`
	ClientName            string  `json:"client_name"`
	Priority              string  `json:"priority"`
	FirstPaymentDate      *string `json:"first_payment_date,omitempty"`
	BusinessDaysOverdue   int     `json:"business_days_overdue,omitempty"`
	ConfirmationText      string  `json:"confirmation_text,omitempty"`
	CancelledDate         *string `json:"cancelled_date,omitempty"`
	DaysSinceCancellation int     `json:"days_since_cancellation,omitempty"`
	FollowUpDay           int     `json:"follow_up_day,omitempty"`
	AssignedTo            string  `json:"assigned_to,omitempty"`
	ContactedToday        bool    `json:"contacted_today"`
	LastContactDate       *string `json:"last_contact_date,omitempty"`
}

func notificationDTO(n notify.Notification) NotificationDTO {
	return NotificationDTO{
		ID:                    n.ID,
		Kind:                  string(n.Kind),
		PolicyID:              n.PolicyID,
		ClientName:            n.ClientName,
		Priority:              string(n.Priority),
		FirstPaymentDate:      dateString(n.FirstPaymentDate),
		BusinessDaysOverdue:   n.BusinessDaysOverdue,
		ConfirmationText:      n.ConfirmationText,
		CancelledDate:         dateString(n.CancelledDate),
		DaysSinceCancellation: n.DaysSinceCancellation,
		FollowUpDay:           n.FollowUpDay,
		AssignedTo:            string(n.AssignedTo),
		ContactedToday:        n.ContactedToday,
		LastContactDate:       dateString(n.LastContactDate),
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

// PaymentDateDTO is one payroll calendar entry.
type PaymentDateDTO struct {
	Date        string `json:"date"`
	DayOfWeek   string `json:"day_of_week"`
	PaymentType string `json:"payment_type"`
	PeriodEnd   string `json:"period_end"`
}

func paymentDateDTO(e payroll.PaymentDate) PaymentDateDTO {
	return PaymentDateDTO{
		Date:        e.Date.String(),
		DayOfWeek:   e.DayOfWeek,
		PaymentType: e.PaymentType,
		PeriodEnd:   e.PeriodEnd.String(),
	}
}

// PeriodDTO is the payroll period owning a given date.
type PeriodDTO struct {
	PeriodStart string         `json:"period_start"`
	PeriodEnd   string         `json:"period_end"`
	Payment     PaymentDateDTO `json:"payment"`
}

// ExpectedCommissionDTO summarizes still-pending commission for a period.
type ExpectedCommissionDTO struct {
	PeriodStart string      `json:"period_start"`
	PeriodEnd   string      `json:"period_end"`
	PaymentDate string      `json:"payment_date"`
	Total       string      `json:"total"`
	Count       int         `json:"count"`
	Policies    []PolicyDTO `json:"policies"`
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ReconciliationPeriodDTO is what the operator reconciles against.
type ReconciliationPeriodDTO struct {
	PeriodStart      string      `json:"period_start"`
	PeriodEnd        string      `json:"period_end"`
	PaymentDate      string      `json:"payment_date"`
	ExpectedTotal    string      `json:"expected_total"`
	VerifiedAmount   string      `json:"verified_amount"`
	UnverifiedAmount string      `json:"unverified_amount"`
	ChargebackAmount string      `json:"chargeback_amount"`
	ChargebackCount  int         `json:"chargeback_count"`
	Policies         []PolicyDTO `json:"policies"`
}

// ActionRequest is the operator's decision for one policy.
type ActionRequest struct {
	PolicyID string `json:"policy_id"`
	Action   string `json:"action"`
	Urgent   bool   `json:"urgent,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// SubmitReconciliationRequest submits a fully actioned period.
type SubmitReconciliationRequest struct {
	PeriodEnd      string          `json:"period_end"`
	Actions        []ActionRequest `json:"actions"`
	NotifyComplete bool            `json:"notify_complete,omitempty"`
}

// SubmitReconciliationResponse reports the write-back outcome. The
// write-back is sequential and non-transactional; VerifiedPolicyIDs and
// FailedPolicyIDs together expose partial results honestly.
type SubmitReconciliationResponse struct {
	Summary           SummaryDTO `json:"summary"`
	VerifiedPolicyIDs []string   `json:"verified_policy_ids"`
	FailedPolicyIDs   []string   `json:"failed_policy_ids,omitempty"`
	ChatDelivered     bool       `json:"chat_delivered"`
}

// SummaryDTO is the per-action rollup.
type SummaryDTO struct {
	Total             int    `json:"total"`
	OnSpreadsheet     int    `json:"on_spreadsheet"`
	MissingCommission int    `json:"missing_commission"`
	UrgentMissing     int    `json:"urgent_missing"`
	RemovalRequests   int    `json:"removal_requests"`
	Unactioned        int    `json:"unactioned"`
	ConfirmedTotal    string `json:"confirmed_total"`
	MissingTotal      string `json:"missing_total"`
	RemovalTotal      string `json:"removal_total"`
}

func summaryDTO(s reconcile.Summary) SummaryDTO {
	return SummaryDTO{
		Total:             s.Total,
		OnSpreadsheet:     s.OnSpreadsheet,
		MissingCommission: s.MissingCommission,
		UrgentMissing:     s.UrgentMissing,
		RemovalRequests:   s.RemovalRequests,
		Unactioned:        s.Unactioned,
		ConfirmedTotal:    s.ConfirmedTotal.StringFixed(2),
		MissingTotal:      s.MissingTotal.StringFixed(2),
		RemovalTotal:      s.RemovalTotal.StringFixed(2),
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

// DashboardDTO is the landing-page rollup.
type DashboardDTO struct {
	PolicyCount       int             `json:"policy_count"`
	PendingCount      int             `json:"pending_count"`
	ActiveCount       int             `json:"active_count"`
	CancelledCount    int             `json:"cancelled_count"`
	TotalCommission   string          `json:"total_commission"`
	UnpaidCommission  string          `json:"unpaid_commission"`
	ChargebackTotal   string          `json:"chargeback_total"`
	NextPaymentDate   *PaymentDateDTO `json:"next_payment_date,omitempty"`
	NotificationCount int             `json:"notification_count"`
}

// ErrorDTO is the uniform error body. Retryable tells the client whether
// trying again can help (collaborator outage) or not (bad input, not found).
type ErrorDTO struct {
	Error     string   `json:"error"`
	Message   string   `json:"message,omitempty"`
	Retryable bool     `json:"retryable"`
	Problems  []string `json:"problems,omitempty"`
}
