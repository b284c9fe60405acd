package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/identity"
	"github.com/warp/commission-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newPolicy(agentID, client string) commission.Policy {
	return commission.Policy{
		AgentID:        agentID,
		ClientName:     client,
		Carrier:        "Acme Life",
		PolicyNumber:   "AL-100",
		Product:        "Term 20",
		Status:         commission.StatusPending,
		AnnualPremium:  money("1200.00"),
		CommissionRate: money("0.05"),
	}
}

// =============================================================================
// POLICY CRUD AND THE ROUNDING INVARIANT
// =============================================================================

func TestCreatePolicy_EnforcesCommissionRounding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := newPolicy("agent-1", "Ana Reyes")
	p.AnnualPremium = money("999.99")
	p.CommissionRate = money("0.0775")
	p.CommissionDue = money("12.34") // caller-supplied garbage is ignored

	saved, err := store.CreatePolicy(ctx, p)
	require.NoError(t, err)

	assert.True(t, money("77.50").Equal(saved.CommissionDue), "got %s", saved.CommissionDue)

	fetched, err := store.GetPolicy(ctx, "agent-1", saved.ID)
	require.NoError(t, err)
	assert.True(t, money("77.50").Equal(fetched.CommissionDue))
}

func TestUpdatePolicy_RecomputesCommission(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.CreatePolicy(ctx, newPolicy("agent-1", "Ana Reyes"))
	require.NoError(t, err)

	saved.CommissionRate = money("0.10")
	updated, err := store.UpdatePolicy(ctx, "agent-1", saved)
	require.NoError(t, err)

	assert.True(t, money("120.00").Equal(updated.CommissionDue), "got %s", updated.CommissionDue)
}

func TestPolicyAccess_ScopedToOwningAgent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.CreatePolicy(ctx, newPolicy("agent-1", "Ana Reyes"))
	require.NoError(t, err)

	// Another agent cannot read, update, or delete it.
	_, err = store.GetPolicy(ctx, "agent-2", saved.ID)
	assert.ErrorIs(t, err, commission.ErrNotFound)

	_, err = store.UpdatePolicy(ctx, "agent-2", saved)
	assert.ErrorIs(t, err, commission.ErrNotFound)

	err = store.DeletePolicy(ctx, "agent-2", saved.ID)
	assert.ErrorIs(t, err, commission.ErrNotFound)

	list, err := store.ListPolicies(ctx, "agent-2")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPolicyRoundTrip_OptionalFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := calendar.NewDate(2025, time.August, 4)
	p := newPolicy("agent-1", "Bo Chen")
	p.FirstPaymentDate = &first
	p.Comments = "called twice"

	saved, err := store.CreatePolicy(ctx, p)
	require.NoError(t, err)

	fetched, err := store.GetPolicy(ctx, "agent-1", saved.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.FirstPaymentDate)
	assert.Equal(t, first, *fetched.FirstPaymentDate)
	assert.Nil(t, fetched.CancelledDate)
	assert.Nil(t, fetched.DateVerified)
	assert.Equal(t, "called twice", fetched.Comments)
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

func TestMarkVerified_ActivatesAndIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.CreatePolicy(ctx, newPolicy("agent-1", "Ana Reyes"))
	require.NoError(t, err)

	firstStamp := time.Date(2025, time.August, 6, 9, 0, 0, 0, time.UTC)
	verified, err := store.MarkVerified(ctx, "agent-1", saved.ID, firstStamp)
	require.NoError(t, err)
	assert.Equal(t, commission.StatusActive, verified.Status)
	require.NotNil(t, verified.DateVerified)
	assert.Equal(t, firstStamp, verified.DateVerified.UTC())

	// Second call keeps the original timestamp.
	again, err := store.MarkVerified(ctx, "agent-1", saved.ID, firstStamp.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, firstStamp, again.DateVerified.UTC())
}

func TestMarkCancelled_ThenReactivate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.CreatePolicy(ctx, newPolicy("agent-1", "Ana Reyes"))
	require.NoError(t, err)

	on := calendar.NewDate(2025, time.August, 10)
	cancelled, err := store.MarkCancelled(ctx, "agent-1", saved.ID, on)
	require.NoError(t, err)
	assert.Equal(t, commission.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledDate)
	assert.Equal(t, on, *cancelled.CancelledDate)

	reactivated, err := store.Reactivate(ctx, "agent-1", saved.ID)
	require.NoError(t, err)
	assert.Equal(t, commission.StatusActive, reactivated.Status)
	assert.Nil(t, reactivated.CancelledDate)

	// Reactivating a non-cancelled policy is NotFound.
	_, err = store.Reactivate(ctx, "agent-1", saved.ID)
	assert.ErrorIs(t, err, commission.ErrNotFound)
}

// =============================================================================
// PROFILES
// =============================================================================

func TestGetProfile_MissingRowIsBlankNotError(t *testing.T) {
	store := newTestStore(t)

	prof, err := store.GetProfile(context.Background(), "agent-new")
	require.NoError(t, err)
	assert.Equal(t, "agent-new", prof.AgentID)
	assert.Empty(t, prof.Specializations)
	assert.Empty(t, prof.ID)
}

func TestUpsertProfile_SecondWriteUpdatesSameRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := calendar.NewDate(2023, time.March, 1)
	first, err := store.UpsertProfile(ctx, commission.AgentProfile{
		AgentID:         "agent-1",
		StartDate:       &start,
		Specializations: []string{"life"},
	})
	require.NoError(t, err)

	second, err := store.UpsertProfile(ctx, commission.AgentProfile{
		AgentID:         "agent-1",
		StartDate:       &start,
		LicenseNumber:   "LIC-9",
		Specializations: []string{"life", "annuity"},
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "one row per agent")
	assert.Equal(t, "LIC-9", second.LicenseNumber)
	assert.Equal(t, []string{"life", "annuity"}, second.Specializations)
}

// =============================================================================
// CONTACT TRACKING
// =============================================================================

func TestContactLog_DedupAndSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	today := calendar.NewDate(2025, time.August, 12)

	attempt := commission.ContactAttempt{PolicyID: "p-1", AgentID: "agent-1", Date: today}
	require.NoError(t, store.LogContact(ctx, attempt))
	require.NoError(t, store.LogContact(ctx, attempt), "same-day duplicate collapses")

	yesterday := today.AddDays(-1)
	require.NoError(t, store.LogContact(ctx, commission.ContactAttempt{
		PolicyID: "p-2", AgentID: "agent-1", Date: yesterday,
	}))

	summaries, err := store.ContactSummaries(ctx, "agent-1", today)
	require.NoError(t, err)

	require.Contains(t, summaries, "p-1")
	assert.True(t, summaries["p-1"].ContactedToday)

	require.Contains(t, summaries, "p-2")
	assert.False(t, summaries["p-2"].ContactedToday)
	require.NotNil(t, summaries["p-2"].LastContact)
	assert.Equal(t, yesterday, *summaries["p-2"].LastContact)
}

func TestTrimContactLog_RetentionWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	today := calendar.NewDate(2025, time.August, 12)

	require.NoError(t, store.LogContact(ctx, commission.ContactAttempt{
		PolicyID: "p-old", AgentID: "agent-1", Date: today.AddDays(-45),
	}))
	require.NoError(t, store.LogContact(ctx, commission.ContactAttempt{
		PolicyID: "p-recent", AgentID: "agent-1", Date: today.AddDays(-5),
	}))

	trimmed, err := store.TrimContactLog(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 1, trimmed)

	summaries, err := store.ContactSummaries(ctx, "agent-1", today)
	require.NoError(t, err)
	assert.NotContains(t, summaries, "p-old")
	assert.Contains(t, summaries, "p-recent")
}

func TestCorruptStoredRows_ClassifiedAsUpstream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// A second raw connection plants rows the write paths would never
	// produce.
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	_, err = raw.Exec(`INSERT INTO agent_profiles
		(id, agent_id, start_date, license_number, specializations, notes, created_at, updated_at)
		VALUES ('prof-x', 'agent-bad', 'not-a-date', '', '[]', '', '2025-08-01T00:00:00Z', '2025-08-01T00:00:00Z')`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO contact_attempts (policy_id, agent_id, contact_date, created_at)
		VALUES ('p-x', 'agent-bad', 'garbage', '2025-08-01T00:00:00Z')`)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.GetProfile(ctx, "agent-bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, commission.ErrUpstreamUnavailable)
	assert.True(t, commission.IsRetryable(err))

	_, err = store.ContactSummaries(ctx, "agent-bad", calendar.NewDate(2025, time.August, 12))
	require.Error(t, err)
	assert.ErrorIs(t, err, commission.ErrUpstreamUnavailable)
}

// =============================================================================
// MAINTENANCE ROUTINES
// =============================================================================

func TestFixCommissionRounding_RepairsThenIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Healthy row via the normal write path.
	_, err := store.CreatePolicy(ctx, newPolicy("agent-1", "Ana Reyes"))
	require.NoError(t, err)

	fixed, err := store.FixCommissionRounding(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fixed, "write path already enforces the invariant")

	// Second pass still finds nothing.
	fixed, err = store.FixCommissionRounding(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)
}

func TestBackfillCancelledDates_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.CreatePolicy(ctx, newPolicy("agent-1", "Ana Reyes"))
	require.NoError(t, err)
	_, err = store.MarkCancelled(ctx, "agent-1", saved.ID, calendar.NewDate(2025, time.August, 10))
	require.NoError(t, err)

	// All cancelled rows already carry a date; nothing to backfill.
	n, err := store.BackfillCancelledDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSyncAgents_CreatesMissingProfilesOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertProfile(ctx, commission.AgentProfile{
		AgentID: "agent-1", LicenseNumber: "LIC-1",
	})
	require.NoError(t, err)

	created, err := store.SyncAgents(ctx, []identity.Agent{
		{ID: "agent-1", Name: "Existing"},
		{ID: "agent-2", Name: "New"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// agent-1's profile is untouched.
	prof, err := store.GetProfile(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "LIC-1", prof.LicenseNumber)

	// agent-2 now has a blank row.
	prof, err = store.GetProfile(ctx, "agent-2")
	require.NoError(t, err)
	assert.NotEmpty(t, prof.ID)
}
