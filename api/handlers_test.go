package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/commission-engine/api"
	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/chat"
	"github.com/warp/commission-engine/identity"
	"github.com/warp/commission-engine/payroll"
	"github.com/warp/commission-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testAgent = identity.Agent{ID: "agent-1", Name: "Ana Reyes", Email: "ana@example.com"}

func newTestServer(t *testing.T) (*api.Handler, http.Handler) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := api.NewHandler(store, payroll.Default(), chat.NewNotifier(nil, "", ""))
	router := api.NewRouter(h, identity.StaticProvider{Agent: testAgent})
	return h, router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func createPolicy(t *testing.T, router http.Handler, req api.PolicyRequest) api.PolicyDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/policies", req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dto api.PolicyDTO
	decodeBody(t, rec, &dto)
	return dto
}

func basicPolicyRequest() api.PolicyRequest {
	return api.PolicyRequest{
		ClientName:     "Bo Chen",
		Carrier:        "Acme Life",
		PolicyNumber:   "AL-100",
		Product:        "Term 20",
		AnnualPremium:  "1200.00",
		CommissionRate: "0.05",
	}
}

func strPtr(s string) *string { return &s }

// =============================================================================
// POLICY CRUD
// =============================================================================

func TestCreatePolicy_ComputesCommission(t *testing.T) {
	_, router := newTestServer(t)

	req := basicPolicyRequest()
	req.AnnualPremium = "999.99"
	req.CommissionRate = "0.0775"
	dto := createPolicy(t, router, req)

	assert.Equal(t, "77.50", dto.CommissionDue)
	assert.Equal(t, "pending", dto.Status)
	assert.Equal(t, testAgent.ID, dto.AgentID)
	assert.NotEmpty(t, dto.ID)
	// The no-op notifier still counts as delivered.
	require.NotNil(t, dto.ChatDelivered)
	assert.True(t, *dto.ChatDelivered)
}

func TestCreatePolicy_InvalidInput(t *testing.T) {
	_, router := newTestServer(t)

	req := basicPolicyRequest()
	req.AnnualPremium = "a lot"
	rec := doJSON(t, router, http.MethodPost, "/api/policies", req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body api.ErrorDTO
	decodeBody(t, rec, &body)
	assert.False(t, body.Retryable)
	assert.NotEmpty(t, body.Problems)
}

func TestCreatePolicy_RateOutOfRange(t *testing.T) {
	_, router := newTestServer(t)

	req := basicPolicyRequest()
	req.CommissionRate = "1.5"
	rec := doJSON(t, router, http.MethodPost, "/api/policies", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPolicy_NotFound(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/policies/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body api.ErrorDTO
	decodeBody(t, rec, &body)
	assert.False(t, body.Retryable)
}

func TestUpdatePolicy_RoundTrip(t *testing.T) {
	_, router := newTestServer(t)
	dto := createPolicy(t, router, basicPolicyRequest())

	req := basicPolicyRequest()
	req.CommissionRate = "0.10"
	req.FirstPaymentDate = strPtr("2025-08-04")
	rec := doJSON(t, router, http.MethodPut, "/api/policies/"+dto.ID, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated api.PolicyDTO
	decodeBody(t, rec, &updated)
	assert.Equal(t, "120.00", updated.CommissionDue)
	require.NotNil(t, updated.FirstPaymentDate)
	assert.Equal(t, "2025-08-04", *updated.FirstPaymentDate)
}

func TestDeletePolicy(t *testing.T) {
	_, router := newTestServer(t)
	dto := createPolicy(t, router, basicPolicyRequest())

	rec := doJSON(t, router, http.MethodDelete, "/api/policies/"+dto.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/policies/"+dto.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// IDENTITY
// =============================================================================

func TestMissingIdentity_Unauthorized(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := api.NewHandler(store, payroll.Default(), chat.NewNotifier(nil, "", ""))
	router := api.NewRouter(h, identity.HeaderProvider{})

	// No identity headers from the proxy.
	rec := doJSON(t, router, http.MethodGet, "/api/policies", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

func TestCancelThenReactivate(t *testing.T) {
	_, router := newTestServer(t)
	dto := createPolicy(t, router, basicPolicyRequest())

	rec := doJSON(t, router, http.MethodPost, "/api/policies/"+dto.ID+"/cancel",
		api.CancelPolicyRequest{CancelledDate: "2025-08-10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var cancelled api.PolicyDTO
	decodeBody(t, rec, &cancelled)
	assert.Equal(t, "cancelled", cancelled.Status)
	require.NotNil(t, cancelled.CancelledDate)
	assert.Equal(t, "2025-08-10", *cancelled.CancelledDate)

	rec = doJSON(t, router, http.MethodPost, "/api/policies/"+dto.ID+"/reactivate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var reactivated api.PolicyDTO
	decodeBody(t, rec, &reactivated)
	assert.Equal(t, "active", reactivated.Status)
	assert.Nil(t, reactivated.CancelledDate)
}

func TestFlagPolicy_SendsOneOffAlert(t *testing.T) {
	_, router := newTestServer(t)
	dto := createPolicy(t, router, basicPolicyRequest())

	rec := doJSON(t, router, http.MethodPost, "/api/policies/"+dto.ID+"/flag",
		api.FlagPolicyRequest{Issue: "commission missing from spreadsheet"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var flagged api.PolicyDTO
	decodeBody(t, rec, &flagged)
	require.NotNil(t, flagged.ChatDelivered)
	assert.True(t, *flagged.ChatDelivered)
}

func TestFlagPolicy_BlankIssueRejected(t *testing.T) {
	_, router := newTestServer(t)
	dto := createPolicy(t, router, basicPolicyRequest())

	rec := doJSON(t, router, http.MethodPost, "/api/policies/"+dto.ID+"/flag",
		api.FlagPolicyRequest{Issue: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPolicy_Activates(t *testing.T) {
	_, router := newTestServer(t)
	dto := createPolicy(t, router, basicPolicyRequest())

	rec := doJSON(t, router, http.MethodPost, "/api/policies/"+dto.ID+"/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var verified api.PolicyDTO
	decodeBody(t, rec, &verified)
	assert.Equal(t, "active", verified.Status)
	assert.NotNil(t, verified.DateVerified)
}

// =============================================================================
// NOTIFICATION FEED
// =============================================================================

func TestNotifications_OverduePaymentVerification(t *testing.T) {
	h, router := newTestServer(t)
	h.Now = func() calendar.Date { return calendar.NewDate(2025, time.August, 12) }

	req := basicPolicyRequest()
	req.FirstPaymentDate = strPtr("2025-08-04")
	dto := createPolicy(t, router, req)

	rec := doJSON(t, router, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var feed []api.NotificationDTO
	decodeBody(t, rec, &feed)
	require.Len(t, feed, 1)
	assert.Equal(t, "payment_verification", feed[0].Kind)
	assert.Equal(t, dto.ID, feed[0].PolicyID)
	assert.Equal(t, "medium", feed[0].Priority)
	assert.Equal(t, 4, feed[0].BusinessDaysOverdue)
}

func TestNotifications_ContactLogReflected(t *testing.T) {
	h, router := newTestServer(t)
	today := calendar.NewDate(2025, time.August, 12)
	h.Now = func() calendar.Date { return today }

	req := basicPolicyRequest()
	req.FirstPaymentDate = strPtr("2025-08-04")
	dto := createPolicy(t, router, req)

	rec := doJSON(t, router, http.MethodPost, "/api/policies/"+dto.ID+"/contact", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var feed []api.NotificationDTO
	decodeBody(t, rec, &feed)
	require.Len(t, feed, 1)
	assert.True(t, feed[0].ContactedToday)
}

// =============================================================================
// PAYROLL
// =============================================================================

func TestUpcomingPayments(t *testing.T) {
	h, router := newTestServer(t)
	h.Now = func() calendar.Date { return calendar.NewDate(2025, time.July, 21) }

	rec := doJSON(t, router, http.MethodGet, "/api/payroll/upcoming?count=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dates []api.PaymentDateDTO
	decodeBody(t, rec, &dates)
	require.Len(t, dates, 2)
	assert.Equal(t, "2025-07-25", dates[0].Date)
	assert.Equal(t, "2025-08-08", dates[1].Date)
	assert.Equal(t, "2025-08-01", dates[1].PeriodEnd)
}

func TestPeriodLookup(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/payroll/period?date=2025-07-20", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var period api.PeriodDTO
	decodeBody(t, rec, &period)
	assert.Equal(t, "2025-07-18", period.PeriodStart)
	assert.Equal(t, "2025-08-01", period.PeriodEnd)
	assert.Equal(t, "2025-08-08", period.Payment.Date)
}

func TestExpectedCommission_UnknownPeriod(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/payroll/expected?period_end=2030-01-01", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body api.ErrorDTO
	decodeBody(t, rec, &body)
	assert.False(t, body.Retryable)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// currentYearCalendar covers the whole current year as one period so
// freshly created policies fall inside it.
func currentYearCalendar(t *testing.T) (*payroll.Calendar, string) {
	t.Helper()
	year := time.Now().UTC().Year()
	periodEnd := fmt.Sprintf("%d-12-31", year)
	table := fmt.Sprintf(`version: "test"
years:
  %d:
    - date: %s
      day_of_week: Friday
      payment_type: regular
      period_end: %s
`, year, periodEnd, periodEnd)
	cal, err := payroll.Parse([]byte(table))
	require.NoError(t, err)
	return cal, periodEnd
}

func TestSubmitReconciliation_GateRejectsUnactioned(t *testing.T) {
	h, router := newTestServer(t)
	cal, periodEnd := currentYearCalendar(t)
	h.Payroll = cal

	createPolicy(t, router, basicPolicyRequest())

	rec := doJSON(t, router, http.MethodPost, "/api/reconciliation/submit",
		api.SubmitReconciliationRequest{PeriodEnd: periodEnd})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var body api.ErrorDTO
	decodeBody(t, rec, &body)
	assert.NotEmpty(t, body.Problems)
	assert.False(t, body.Retryable)
}

func TestSubmitReconciliation_WritesBackVerification(t *testing.T) {
	h, router := newTestServer(t)
	cal, periodEnd := currentYearCalendar(t)
	h.Payroll = cal

	dto := createPolicy(t, router, basicPolicyRequest())

	rec := doJSON(t, router, http.MethodPost, "/api/reconciliation/submit",
		api.SubmitReconciliationRequest{
			PeriodEnd: periodEnd,
			Actions: []api.ActionRequest{
				{PolicyID: dto.ID, Action: "on_spreadsheet"},
			},
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.SubmitReconciliationResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, []string{dto.ID}, resp.VerifiedPolicyIDs)
	assert.Empty(t, resp.FailedPolicyIDs)
	assert.True(t, resp.ChatDelivered)
	assert.Equal(t, 1, resp.Summary.OnSpreadsheet)
	assert.Equal(t, "60.00", resp.Summary.ConfirmedTotal)

	// The write-back landed: the policy is now verified and active.
	rec = doJSON(t, router, http.MethodGet, "/api/policies/"+dto.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var after api.PolicyDTO
	decodeBody(t, rec, &after)
	assert.Equal(t, "active", after.Status)
	assert.NotNil(t, after.DateVerified)
}

func TestSubmitReconciliation_RemovalNeedsReason(t *testing.T) {
	h, router := newTestServer(t)
	cal, periodEnd := currentYearCalendar(t)
	h.Payroll = cal

	dto := createPolicy(t, router, basicPolicyRequest())

	rec := doJSON(t, router, http.MethodPost, "/api/reconciliation/submit",
		api.SubmitReconciliationRequest{
			PeriodEnd: periodEnd,
			Actions: []api.ActionRequest{
				{PolicyID: dto.ID, Action: "request_removal", Reason: "   "},
			},
		})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconciliationPeriod_View(t *testing.T) {
	h, router := newTestServer(t)
	cal, periodEnd := currentYearCalendar(t)
	h.Payroll = cal

	createPolicy(t, router, basicPolicyRequest())

	rec := doJSON(t, router, http.MethodGet, "/api/reconciliation/period?period_end="+periodEnd, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view api.ReconciliationPeriodDTO
	decodeBody(t, rec, &view)
	assert.Equal(t, periodEnd, view.PeriodEnd)
	assert.Equal(t, "60.00", view.ExpectedTotal)
	assert.Equal(t, "60.00", view.UnverifiedAmount)
	assert.Equal(t, "0.00", view.VerifiedAmount)
	require.Len(t, view.Policies, 1)
}

// =============================================================================
// PROFILE AND DASHBOARD
// =============================================================================

func TestProfile_BlankThenUpsert(t *testing.T) {
	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var blank api.ProfileDTO
	decodeBody(t, rec, &blank)
	assert.Equal(t, testAgent.ID, blank.AgentID)
	assert.Empty(t, blank.ID)

	rec = doJSON(t, router, http.MethodPut, "/api/profile", api.ProfileRequest{
		StartDate:       strPtr("2023-03-01"),
		LicenseNumber:   "LIC-9",
		Specializations: []string{"life", "annuity"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var prof api.ProfileDTO
	decodeBody(t, rec, &prof)
	assert.NotEmpty(t, prof.ID)
	assert.Equal(t, "LIC-9", prof.LicenseNumber)
	assert.Equal(t, []string{"life", "annuity"}, prof.Specializations)
}

func TestDashboard_Rollup(t *testing.T) {
	h, router := newTestServer(t)
	h.Now = func() calendar.Date { return calendar.NewDate(2025, time.July, 21) }

	createPolicy(t, router, basicPolicyRequest())
	second := basicPolicyRequest()
	second.AnnualPremium = "2000.00"
	second.CommissionRate = "0.10"
	createPolicy(t, router, second)

	rec := doJSON(t, router, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dash api.DashboardDTO
	decodeBody(t, rec, &dash)
	assert.Equal(t, 2, dash.PolicyCount)
	assert.Equal(t, 2, dash.PendingCount)
	assert.Equal(t, "260.00", dash.TotalCommission)
	assert.Equal(t, "260.00", dash.UnpaidCommission)
	assert.Equal(t, "0.00", dash.ChargebackTotal)
	require.NotNil(t, dash.NextPaymentDate)
	assert.Equal(t, "2025-07-25", dash.NextPaymentDate.Date)
}
