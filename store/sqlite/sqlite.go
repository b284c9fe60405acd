/*
Package sqlite provides the SQLite-backed data store for the dashboard.

PURPOSE:
  Persists the three logical tables behind the commission tracker - policies,
  agent_profiles, contact_attempts - and implements the maintenance routines
  that keep them honest. In production the same patterns apply to a hosted
  Postgres; only minor SQL dialect differences.

AGENT SCOPING:
  Every query is filtered by the owning agent id. No write path exists
  without that filter; a row belonging to another agent reads back as
  NotFound, never as someone else's data.

INVARIANTS ENFORCED HERE:
  - commission_due is recomputed as round(premium * rate, 2) on EVERY
    create/update, in decimal arithmetic. Historical rows violated this via
    float math; FixCommissionRounding repairs them once, the write paths
    keep them correct forever after.
  - agent_profiles carries a UNIQUE(agent_id) constraint and upserts with
    ON CONFLICT, closing the check-then-insert race the application layer
    used to have.
  - contact_attempts is unique per (policy, agent, day) so duplicate
    "called the client" logs collapse, and is trimmed to a 30-day window.

READ DEGRADATION:
  A missing profile row returns a blank-but-valid profile, not an error.
  The dashboard must render for a brand-new agent.

WAL MODE:
  SQLite is opened with WAL for better read concurrency; a sync.RWMutex
  serializes writers within the process.

SEE ALSO:
  - commission/: record types and the rounding rule
  - cmd/server/main.go: runs the maintenance routines at startup and on cron
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/commission-engine/calendar"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/identity"
	"github.com/warp/commission-engine/notify"
)

// Store implements persistence for policies, profiles, and contact logs.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		client_name TEXT NOT NULL,
		carrier TEXT NOT NULL DEFAULT '',
		policy_number TEXT NOT NULL DEFAULT '',
		product TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		annual_premium TEXT NOT NULL,
		commission_rate TEXT NOT NULL,
		commission_due TEXT NOT NULL,
		first_payment_date TEXT,
		inforce_date TEXT,
		cancelled_date TEXT,
		date_verified TEXT,
		date_commission_paid TEXT,
		comments TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: every dashboard view starts from "this agent's policies"
	CREATE INDEX IF NOT EXISTS idx_policies_agent ON policies(agent_id);
	CREATE INDEX IF NOT EXISTS idx_policies_agent_status ON policies(agent_id, status);
	CREATE INDEX IF NOT EXISTS idx_policies_agent_created ON policies(agent_id, created_at);

	-- UNIQUE(agent_id) closes the historical check-then-insert race:
	-- exactly one profile per agent, enforced by the database.
	CREATE TABLE IF NOT EXISTS agent_profiles (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL UNIQUE,
		start_date TEXT,
		license_number TEXT NOT NULL DEFAULT '',
		specializations TEXT NOT NULL DEFAULT '[]',
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Shared contact log: one row per (policy, agent, day)
	CREATE TABLE IF NOT EXISTS contact_attempts (
		policy_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		contact_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (policy_id, agent_id, contact_date)
	);

	CREATE INDEX IF NOT EXISTS idx_contacts_agent_date
		ON contact_attempts(agent_id, contact_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

// upstream wraps a database failure in the error taxonomy.
func upstream(err error) error {
	return &commission.UpstreamError{Collaborator: "datastore", Cause: err}
}

// =============================================================================
// DATE/TIME ENCODING
// =============================================================================

func encodeDate(d *calendar.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func decodeDate(ns sql.NullString) (*calendar.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := calendar.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func encodeTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func decodeTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// =============================================================================
// POLICIES
// =============================================================================

const policyColumns = `id, agent_id, client_name, carrier, policy_number, product, status,
	annual_premium, commission_rate, commission_due,
	first_payment_date, inforce_date, cancelled_date,
	date_verified, date_commission_paid, comments, created_at, updated_at`

// CreatePolicy inserts a policy owned by p.AgentID. CommissionDue is always
// recomputed from premium and rate; whatever the caller set is ignored.
func (s *Store) CreatePolicy(ctx context.Context, p commission.Policy) (commission.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.CommissionDue = commission.NewCommissionDue(p.AnnualPremium, p.CommissionRate)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO policies (`+policyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AgentID, p.ClientName, p.Carrier, p.PolicyNumber, p.Product, string(p.Status),
		p.AnnualPremium.String(), p.CommissionRate.String(), p.CommissionDue.String(),
		encodeDate(p.FirstPaymentDate), encodeDate(p.InforceDate), encodeDate(p.CancelledDate),
		encodeTime(p.DateVerified), encodeTime(p.DateCommissionPaid), p.Comments,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return commission.Policy{}, upstream(err)
	}
	return p, nil
}

// UpdatePolicy overwrites the mutable fields of a policy owned by agentID.
// Last write wins; CommissionDue is recomputed.
func (s *Store) UpdatePolicy(ctx context.Context, agentID string, p commission.Policy) (commission.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.UpdatedAt = time.Now().UTC()
	p.CommissionDue = commission.NewCommissionDue(p.AnnualPremium, p.CommissionRate)

	res, err := s.db.ExecContext(ctx, `
		UPDATE policies SET
			client_name = ?, carrier = ?, policy_number = ?, product = ?, status = ?,
			annual_premium = ?, commission_rate = ?, commission_due = ?,
			first_payment_date = ?, inforce_date = ?, cancelled_date = ?,
			date_verified = ?, date_commission_paid = ?, comments = ?, updated_at = ?
		WHERE id = ? AND agent_id = ?`,
		p.ClientName, p.Carrier, p.PolicyNumber, p.Product, string(p.Status),
		p.AnnualPremium.String(), p.CommissionRate.String(), p.CommissionDue.String(),
		encodeDate(p.FirstPaymentDate), encodeDate(p.InforceDate), encodeDate(p.CancelledDate),
		encodeTime(p.DateVerified), encodeTime(p.DateCommissionPaid), p.Comments,
		p.UpdatedAt.Format(time.RFC3339),
		p.ID, agentID)
	if err != nil {
		return commission.Policy{}, upstream(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commission.Policy{}, &commission.NotFoundError{Kind: "policy", ID: p.ID}
	}
	return s.getPolicyLocked(ctx, agentID, p.ID)
}

// GetPolicy fetches one policy owned by agentID.
func (s *Store) GetPolicy(ctx context.Context, agentID, id string) (commission.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPolicyLocked(ctx, agentID, id)
}

func (s *Store) getPolicyLocked(ctx context.Context, agentID, id string) (commission.Policy, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE id = ? AND agent_id = ?`, id, agentID)
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		return commission.Policy{}, &commission.NotFoundError{Kind: "policy", ID: id}
	}
	if err != nil {
		return commission.Policy{}, upstream(err)
	}
	return p, nil
}

// ListPolicies returns all policies owned by agentID, newest first.
func (s *Store) ListPolicies(ctx context.Context, agentID string) ([]commission.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE agent_id = ? ORDER BY created_at DESC`, agentID)
	if err != nil {
		return nil, upstream(err)
	}
	defer rows.Close()

	var policies []commission.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, upstream(err)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// DeletePolicy removes a policy owned by agentID (explicit agent delete is
// the only hard-delete path in the system).
func (s *Store) DeletePolicy(ctx context.Context, agentID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM policies WHERE id = ? AND agent_id = ?`, id, agentID)
	if err != nil {
		return upstream(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &commission.NotFoundError{Kind: "policy", ID: id}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (commission.Policy, error) {
	var (
		p                             commission.Policy
		status                        string
		premium, rate, due            string
		firstPayment, inforce, cancel sql.NullString
		verified, paid                sql.NullString
		createdAt, updatedAt          string
	)
	err := row.Scan(&p.ID, &p.AgentID, &p.ClientName, &p.Carrier, &p.PolicyNumber, &p.Product, &status,
		&premium, &rate, &due,
		&firstPayment, &inforce, &cancel,
		&verified, &paid, &p.Comments, &createdAt, &updatedAt)
	if err != nil {
		return commission.Policy{}, err
	}

	p.Status = commission.Status(status)
	if p.AnnualPremium, err = decimal.NewFromString(premium); err != nil {
		return commission.Policy{}, err
	}
	if p.CommissionRate, err = decimal.NewFromString(rate); err != nil {
		return commission.Policy{}, err
	}
	if p.CommissionDue, err = decimal.NewFromString(due); err != nil {
		return commission.Policy{}, err
	}
	if p.FirstPaymentDate, err = decodeDate(firstPayment); err != nil {
		return commission.Policy{}, err
	}
	if p.InforceDate, err = decodeDate(inforce); err != nil {
		return commission.Policy{}, err
	}
	if p.CancelledDate, err = decodeDate(cancel); err != nil {
		return commission.Policy{}, err
	}
	if p.DateVerified, err = decodeTime(verified); err != nil {
		return commission.Policy{}, err
	}
	if p.DateCommissionPaid, err = decodeTime(paid); err != nil {
		return commission.Policy{}, err
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return commission.Policy{}, err
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return commission.Policy{}, err
	}
	return p, nil
}

// =============================================================================
// POLICY STATE TRANSITIONS
// =============================================================================

// MarkVerified stamps the bank-confirmation time and activates the policy.
// Idempotent: an already-verified policy keeps its original timestamp.
func (s *Store) MarkVerified(ctx context.Context, agentID, id string, at time.Time) (commission.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE policies SET
			date_verified = COALESCE(date_verified, ?),
			status = CASE WHEN status = 'pending' THEN 'active' ELSE status END,
			updated_at = ?
		WHERE id = ? AND agent_id = ?`,
		at.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), id, agentID)
	if err != nil {
		return commission.Policy{}, upstream(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commission.Policy{}, &commission.NotFoundError{Kind: "policy", ID: id}
	}
	return s.getPolicyLocked(ctx, agentID, id)
}

// MarkPaid stamps the commission-paid time. Idempotent like MarkVerified.
func (s *Store) MarkPaid(ctx context.Context, agentID, id string, at time.Time) (commission.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE policies SET
			date_commission_paid = COALESCE(date_commission_paid, ?),
			updated_at = ?
		WHERE id = ? AND agent_id = ?`,
		at.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), id, agentID)
	if err != nil {
		return commission.Policy{}, upstream(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commission.Policy{}, &commission.NotFoundError{Kind: "policy", ID: id}
	}
	return s.getPolicyLocked(ctx, agentID, id)
}

// MarkCancelled sets status=cancelled with the given cancellation date.
func (s *Store) MarkCancelled(ctx context.Context, agentID, id string, on calendar.Date) (commission.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE policies SET status = 'cancelled', cancelled_date = ?, updated_at = ?
		WHERE id = ? AND agent_id = ?`,
		on.String(), time.Now().UTC().Format(time.RFC3339), id, agentID)
	if err != nil {
		return commission.Policy{}, upstream(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commission.Policy{}, &commission.NotFoundError{Kind: "policy", ID: id}
	}
	return s.getPolicyLocked(ctx, agentID, id)
}

// Reactivate returns a cancelled policy to active and clears the
// cancellation date.
func (s *Store) Reactivate(ctx context.Context, agentID, id string) (commission.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE policies SET status = 'active', cancelled_date = NULL, updated_at = ?
		WHERE id = ? AND agent_id = ? AND status = 'cancelled'`,
		time.Now().UTC().Format(time.RFC3339), id, agentID)
	if err != nil {
		return commission.Policy{}, upstream(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return commission.Policy{}, &commission.NotFoundError{Kind: "policy", ID: id}
	}
	return s.getPolicyLocked(ctx, agentID, id)
}

// =============================================================================
// AGENT PROFILES
// =============================================================================

// GetProfile returns the agent's profile, or a blank-but-valid profile when
// no row exists yet. A brand-new agent sees an empty form, not a 404.
func (s *Store) GetProfile(ctx context.Context, agentID string) (commission.AgentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProfileLocked(ctx, agentID)
}

func (s *Store) getProfileLocked(ctx context.Context, agentID string) (commission.AgentProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, start_date, license_number, specializations, notes, created_at, updated_at
		FROM agent_profiles WHERE agent_id = ?`, agentID)

	var (
		prof                 commission.AgentProfile
		startDate            sql.NullString
		specs                string
		createdAt, updatedAt string
	)
	err := row.Scan(&prof.ID, &prof.AgentID, &startDate, &prof.LicenseNumber, &specs, &prof.Notes, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return commission.BlankProfile(agentID), nil
	}
	if err != nil {
		return commission.AgentProfile{}, upstream(err)
	}

	if prof.StartDate, err = decodeDate(startDate); err != nil {
		return commission.AgentProfile{}, upstream(err)
	}
	prof.Specializations = commission.ParseSpecializations(specs)
	if prof.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return commission.AgentProfile{}, upstream(err)
	}
	if prof.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return commission.AgentProfile{}, upstream(err)
	}
	return prof, nil
}

// UpsertProfile creates or updates the one profile row for an agent. The
// UNIQUE(agent_id) constraint plus ON CONFLICT makes concurrent first-writes
// safe.
func (s *Store) UpsertProfile(ctx context.Context, prof commission.AgentProfile) (commission.AgentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prof.ID == "" {
		prof.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_profiles (id, agent_id, start_date, license_number, specializations, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			start_date = excluded.start_date,
			license_number = excluded.license_number,
			specializations = excluded.specializations,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		prof.ID, prof.AgentID, encodeDate(prof.StartDate), prof.LicenseNumber,
		commission.EncodeSpecializations(prof.Specializations), prof.Notes,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return commission.AgentProfile{}, upstream(err)
	}

	// Re-read: on conflict the surviving row keeps its original id.
	return s.getProfileLocked(ctx, prof.AgentID)
}

// =============================================================================
// CONTACT TRACKING
// =============================================================================

// LogContact records one outreach; duplicate same-day logs collapse.
func (s *Store) LogContact(ctx context.Context, attempt commission.ContactAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO contact_attempts (policy_id, agent_id, contact_date, created_at)
		VALUES (?, ?, ?, ?)`,
		attempt.PolicyID, attempt.AgentID, attempt.Date.String(),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return upstream(err)
	}
	return nil
}

// ContactSummaries returns per-policy contact info for the agent: whether
// each policy was contacted today and when it was last contacted.
func (s *Store) ContactSummaries(ctx context.Context, agentID string, today calendar.Date) (map[string]notify.ContactInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT policy_id, MAX(contact_date) FROM contact_attempts
		WHERE agent_id = ? GROUP BY policy_id`, agentID)
	if err != nil {
		return nil, upstream(err)
	}
	defer rows.Close()

	out := make(map[string]notify.ContactInfo)
	for rows.Next() {
		var policyID, lastRaw string
		if err := rows.Scan(&policyID, &lastRaw); err != nil {
			return nil, upstream(err)
		}
		last, err := calendar.ParseDate(lastRaw)
		if err != nil {
			return nil, upstream(err)
		}
		out[policyID] = notify.ContactInfo{
			ContactedToday: last.Equal(today),
			LastContact:    &last,
		}
	}
	return out, rows.Err()
}

// =============================================================================
// MAINTENANCE ROUTINES - idempotent, run at startup and on cron
// =============================================================================

// FixCommissionRounding re-derives commission_due for every row where the
// stored value disagrees with round(premium * rate, 2). Returns the number
// of rows repaired. The write paths keep the invariant; this repairs rows
// written before they did.
func (s *Store) FixCommissionRounding(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, annual_premium, commission_rate, commission_due FROM policies`)
	if err != nil {
		return 0, upstream(err)
	}
	defer rows.Close()

	type fix struct{ id, due string }
	var fixes []fix
	for rows.Next() {
		var id, premiumRaw, rateRaw, dueRaw string
		if err := rows.Scan(&id, &premiumRaw, &rateRaw, &dueRaw); err != nil {
			return 0, upstream(err)
		}
		premium, err := decimal.NewFromString(premiumRaw)
		if err != nil {
			continue
		}
		rate, err := decimal.NewFromString(rateRaw)
		if err != nil {
			continue
		}
		want := commission.NewCommissionDue(premium, rate)
		stored, err := decimal.NewFromString(dueRaw)
		if err != nil || !stored.Equal(want) {
			fixes = append(fixes, fix{id: id, due: want.String()})
		}
	}
	if err := rows.Err(); err != nil {
		return 0, upstream(err)
	}

	for _, f := range fixes {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE policies SET commission_due = ? WHERE id = ?`, f.due, f.id); err != nil {
			return 0, upstream(err)
		}
	}
	return len(fixes), nil
}

// BackfillCancelledDates populates cancelled_date on legacy cancelled rows
// that predate the column, inferring the day from updated_at (the status
// flip was the last edit those rows saw). Returns rows backfilled.
func (s *Store) BackfillCancelledDates(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE policies SET cancelled_date = substr(updated_at, 1, 10)
		WHERE status = 'cancelled' AND cancelled_date IS NULL`)
	if err != nil {
		return 0, upstream(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// SyncAgents mirrors identity-provider users into agent_profiles, creating
// blank profiles for agents that have none. Existing profiles are untouched.
func (s *Store) SyncAgents(ctx context.Context, agents []identity.Agent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := 0
	now := time.Now().UTC().Format(time.RFC3339)
	for _, a := range agents {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO agent_profiles (id, agent_id, specializations, created_at, updated_at)
			VALUES (?, ?, '[]', ?, ?)
			ON CONFLICT(agent_id) DO NOTHING`,
			uuid.NewString(), a.ID, now, now)
		if err != nil {
			return created, upstream(err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	return created, nil
}

// TrimContactLog deletes contact attempts older than the retention window.
func (s *Store) TrimContactLog(ctx context.Context, today calendar.Date) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := today.AddDays(-commission.ContactRetentionDays)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contact_attempts WHERE contact_date < ?`, cutoff.String())
	if err != nil {
		return 0, upstream(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
