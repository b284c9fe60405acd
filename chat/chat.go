/*
Package chat posts dashboard events to the team's Slack channels.

PURPOSE:
  Renders a small set of message types into text + block payloads and
  delivers them best-effort:

    new-policy                 a policy was entered
    commission-rate-change     a policy's rate was edited
    cancellation-alert         a policy was cancelled (with chargeback info)
    reconciliation-alert       one policy flagged during reconciliation
    reconciliation-alert-v2    a grouped reconciliation batch

DELIVERY CONTRACT:
  Chat is a side channel, never the system of record. A failed post is
  retried once, then logged and surfaced as UpstreamUnavailable - it must
  never block or roll back the data-store write that preceded it. Callers
  treat the returned error as advisory.

CHANNEL ROUTING:
  Reconciliation traffic goes to a dedicated channel when one is configured
  and falls back to the general channel otherwise.

SEE ALSO:
  - reconcile/: builds the batches rendered here
  - cmd/server/main.go: constructs the slack client with a request timeout
*/
package chat

import (
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/slack-go/slack"

	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/reconcile"
)

// Poster is the slice of slack.Client this package uses. Narrowed to an
// interface so tests can substitute a recorder.
type Poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// Notifier renders and delivers chat messages. A nil Poster disables
// delivery entirely (every method becomes a no-op), which is how the server
// runs when no Slack token is configured.
type Notifier struct {
	poster                Poster
	generalChannel        string
	reconciliationChannel string
}

// NewNotifier builds a notifier. reconciliationChannel may be empty, in
// which case reconciliation traffic falls back to the general channel.
func NewNotifier(poster Poster, generalChannel, reconciliationChannel string) *Notifier {
	return &Notifier{
		poster:                poster,
		generalChannel:        generalChannel,
		reconciliationChannel: reconciliationChannel,
	}
}

func (n *Notifier) reconChannel() string {
	if n.reconciliationChannel != "" {
		return n.reconciliationChannel
	}
	return n.generalChannel
}

// post delivers with one retry, then gives up. Failures are logged here so
// callers can ignore the returned error without losing the trail.
func (n *Notifier) post(channel, text string, blocks []slack.Block) error {
	if n == nil || n.poster == nil || channel == "" {
		return nil
	}
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if len(blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(blocks...))
	}

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if _, _, err = n.poster.PostMessage(channel, opts...); err == nil {
			return nil
		}
	}
	log.Printf("chat: post to %s failed after retry: %v", channel, err)
	return &commission.UpstreamError{Collaborator: "chat", Cause: err}
}

func section(markdown string) slack.Block {
	return slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, markdown, false, false), nil, nil)
}

func header(text string) slack.Block {
	return slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, text, false, false))
}

func dollars(d decimal.Decimal) string { return "$" + d.StringFixed(2) }

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// PolicyCreated announces a newly entered policy to the general channel.
func (n *Notifier) PolicyCreated(p commission.Policy, agentName string) error {
	text := fmt.Sprintf("New policy: %s — %s (%s)", p.ClientName, p.Carrier, dollars(p.CommissionDue))
	blocks := []slack.Block{
		header("New Policy"),
		section(fmt.Sprintf("*%s* wrote *%s* with %s\nPolicy `%s` · %s · commission %s",
			agentName, p.ClientName, p.Carrier, p.PolicyNumber, p.Product, dollars(p.CommissionDue))),
	}
	return n.post(n.generalChannel, text, blocks)
}

// RateChanged announces a commission-rate edit, including the recomputed
// commission due.
func (n *Notifier) RateChanged(p commission.Policy, oldRate, newRate decimal.Decimal) error {
	text := fmt.Sprintf("Rate change on %s: %s → %s", p.PolicyNumber, oldRate, newRate)
	blocks := []slack.Block{
		header("Commission Rate Change"),
		section(fmt.Sprintf("Policy `%s` (%s): rate %s → %s, commission now %s",
			p.PolicyNumber, p.ClientName, oldRate, newRate, dollars(p.CommissionDue))),
	}
	return n.post(n.generalChannel, text, blocks)
}

// CancellationAlert announces a cancellation, flagging chargebacks.
func (n *Notifier) CancellationAlert(p commission.Policy, cb commission.Chargeback) error {
	text := fmt.Sprintf("Policy cancelled: %s (%s)", p.ClientName, p.PolicyNumber)
	body := fmt.Sprintf("Policy `%s` for *%s* was cancelled.", p.PolicyNumber, p.ClientName)
	if cb.IsChargeback {
		body += fmt.Sprintf("\n:rotating_light: Chargeback: cancelled %d day(s) after creation, %s clawed back.",
			cb.DaysToCancel, dollars(cb.Amount))
	}
	blocks := []slack.Block{header("Cancellation"), section(body)}
	return n.post(n.generalChannel, text, blocks)
}

// ReconciliationAlert flags a single policy issue to the reconciliation
// channel. Kept alongside the grouped form for one-off operator pings.
func (n *Notifier) ReconciliationAlert(p commission.Policy, issue string) error {
	text := fmt.Sprintf("Reconciliation: %s — %s", p.ClientName, issue)
	blocks := []slack.Block{
		header("Reconciliation Alert"),
		section(fmt.Sprintf("Policy `%s` (*%s*, %s): %s",
			p.PolicyNumber, p.ClientName, dollars(p.CommissionDue), issue)),
	}
	return n.post(n.reconChannel(), text, blocks)
}

// ReconciliationBatch posts one grouped batch built by the reconcile
// package (the v2 grouped alert form).
func (n *Notifier) ReconciliationBatch(batch reconcile.Batch) error {
	switch batch.Kind {
	case reconcile.BatchMissingCommission:
		return n.post(n.reconChannel(),
			fmt.Sprintf("Missing commissions for period ending %s (%d)", batch.PeriodEnd, len(batch.Entries)),
			missingCommissionBlocks(batch))
	case reconcile.BatchRemovalRequests:
		return n.post(n.reconChannel(),
			fmt.Sprintf("Removal requests for period ending %s (%d)", batch.PeriodEnd, len(batch.Entries)),
			removalBlocks(batch))
	case reconcile.BatchComplete:
		return n.post(n.reconChannel(),
			fmt.Sprintf("Reconciliation complete for period ending %s", batch.PeriodEnd),
			completeBlocks(batch))
	}
	return nil
}

func missingCommissionBlocks(batch reconcile.Batch) []slack.Block {
	var lines []string
	for _, e := range batch.Entries {
		line := fmt.Sprintf("• *%s* `%s` (%s) — expected %s", e.ClientName, e.PolicyNumber, e.Carrier, dollars(e.Amount))
		if e.Urgent {
			line += " :rotating_light: *urgent*"
		}
		lines = append(lines, line)
	}
	return []slack.Block{
		header("Missing Commissions"),
		section(fmt.Sprintf("Period ending *%s* — %d policy(ies) absent or mispaid:\n%s",
			batch.PeriodEnd, len(batch.Entries), strings.Join(lines, "\n"))),
	}
}

func removalBlocks(batch reconcile.Batch) []slack.Block {
	var lines []string
	for _, e := range batch.Entries {
		lines = append(lines, fmt.Sprintf("• *%s* `%s` — %s", e.ClientName, e.PolicyNumber, e.Reason))
	}
	return []slack.Block{
		header("Removal Requests"),
		section(fmt.Sprintf("Period ending *%s* — %d removal request(s):\n%s",
			batch.PeriodEnd, len(batch.Entries), strings.Join(lines, "\n"))),
	}
}

func completeBlocks(batch reconcile.Batch) []slack.Block {
	return []slack.Block{
		header("Reconciliation Complete"),
		section(fmt.Sprintf("Period ending *%s* reconciled: %d policy(ies) confirmed, %s total.",
			batch.PeriodEnd, batch.ConfirmedCount, dollars(batch.ConfirmedTotal))),
	}
}
