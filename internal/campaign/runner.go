package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/instadm-pro/internal/events"
	"github.com/yourusername/instadm-pro/internal/leads"
	"github.com/yourusername/instadm-pro/internal/logger"
	"github.com/yourusername/instadm-pro/internal/timing"
)

// Runner is the sequential campaign state machine. Per-lead errors never
// escape the lead step, per-account errors never escape the account step; the
// driving loop itself stays free of fallible logic.
type Runner struct {
	driver   Driver
	sink     events.Sink
	model    *timing.Model
	sleeper  Sleeper
	recorder Recorder
}

// NewRunner wires a runner with a wall-clock sleeper.
func NewRunner(driver Driver, sink events.Sink, model *timing.Model) *Runner {
	return &Runner{
		driver:  driver,
		sink:    sink,
		model:   model,
		sleeper: ClockSleeper{},
	}
}

// WithSleeper replaces the delay provider.
func (r *Runner) WithSleeper(sleeper Sleeper) *Runner {
	r.sleeper = sleeper
	return r
}

// WithRecorder attaches an outcome recorder.
func (r *Runner) WithRecorder(recorder Recorder) *Runner {
	r.recorder = recorder
	return r
}

// Summary aggregates a finished (or aborted) campaign.
type Summary struct {
	TotalSent   int
	TotalFailed int
	Outcomes    []LeadOutcome
}

// runState is the explicit campaign context threaded through the state
// machine: live counters and the accumulating outcome log. No process-wide
// mutable state.
type runState struct {
	totalLeads int
	processed  int
	sent       int
	failed     int
	outcomes   []LeadOutcome
}

// Run processes the campaign top to bottom. Cancellation is honored between
// leads and accounts; already-collected outcomes are still flushed in the
// final event.
func (r *Runner) Run(ctx context.Context, c *Campaign) (*Summary, error) {
	state := &runState{}
	for _, account := range c.Accounts {
		state.totalLeads += c.leadCount(account)
	}

	logger.Info("Campaign starting",
		"campaign_id", c.ID,
		"accounts", len(c.Accounts),
		"total_leads", state.totalLeads,
	)

	r.sink.Publish(events.Event{Type: events.TypeCampaignStarted, Payload: events.CampaignStarted{
		TotalAccounts: len(c.Accounts),
		TotalLeads:    state.totalLeads,
	}})

	for i, account := range c.Accounts {
		if ctx.Err() != nil {
			logger.Warn("Campaign canceled, flushing collected outcomes", "account_index", i)
			break
		}

		batch := account.Leads
		if len(batch) > c.PerAccountCap {
			batch = batch[:c.PerAccountCap]
		}

		r.sink.Publish(events.Event{Type: events.TypeAccountStarted, Payload: events.AccountStarted{
			AccountUsername: account.Username,
			AccountIndex:    i + 1,
			TotalAccounts:   len(c.Accounts),
			LeadsForAccount: len(batch),
		}})

		sent, failed := r.processAccount(ctx, c, account, batch, state)

		r.sink.Publish(events.Event{Type: events.TypeAccountCompleted, Payload: events.AccountCompleted{
			AccountUsername: account.Username,
			AccountIndex:    i + 1,
			SentCount:       sent,
			FailedCount:     failed,
		}})

		if i < len(c.Accounts)-1 && ctx.Err() == nil {
			r.pace(ctx, r.model.InterAccountDelay(c.MessageDelay))
		}
	}

	outcomeLog := make([]events.Outcome, len(state.outcomes))
	for i, o := range state.outcomes {
		outcomeLog[i] = events.Outcome{
			AccountUsername: o.AccountUsername,
			LeadHandle:      o.LeadHandle,
			Succeeded:       o.Succeeded,
			Detail:          o.Detail,
			SequenceIndex:   o.SequenceIndex,
		}
	}
	r.sink.Publish(events.Event{Type: events.TypeCampaignCompleted, Payload: events.CampaignCompleted{
		TotalSent:   state.sent,
		TotalFailed: state.failed,
		OutcomeLog:  outcomeLog,
	}})

	logger.Info("Campaign finished",
		"campaign_id", c.ID,
		"sent", state.sent,
		"failed", state.failed,
		"processed", state.processed,
	)

	summary := &Summary{TotalSent: state.sent, TotalFailed: state.failed, Outcomes: state.outcomes}
	return summary, ctx.Err()
}

// processAccount acquires a fresh session, logs in, and walks the account's
// lead batch. Every path reaches session cleanup, and nothing here stops the
// campaign from moving on to the next account.
func (r *Runner) processAccount(ctx context.Context, c *Campaign, account Account, batch []leads.Lead, state *runState) (sent, failed int) {
	session, err := r.driver.Acquire(ctx, account)
	if err != nil {
		logger.Error("Session acquisition failed, skipping account", "account", account.Username, "error", err)
		r.sink.Publish(events.Event{Type: events.TypeFatalError, Payload: events.FatalError{
			AccountUsername: account.Username,
			Message:         truncateDetail(fmt.Sprintf("session acquisition failed: %v", err)),
		}})
		return 0, 0
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Unexpected panic during account processing", "account", account.Username, "panic", rec)
			r.sink.Publish(events.Event{Type: events.TypeFatalError, Payload: events.FatalError{
				AccountUsername: account.Username,
				Message:         truncateDetail(fmt.Sprintf("unexpected error: %v", rec)),
			}})
		}
		// Resource release must not throw past this point.
		if err := session.Close(); err != nil {
			logger.Warn("Session close failed", "account", account.Username, "error", err)
		}
	}()

	if err := session.Login(ctx); err != nil {
		logger.Error("Login failed, skipping account", "account", account.Username, "error", err)
		r.sink.Publish(events.Event{Type: events.TypeFatalError, Payload: events.FatalError{
			AccountUsername: account.Username,
			Message:         truncateDetail(fmt.Sprintf("login failed: %v", err)),
		}})
		return 0, 0
	}

	for i, lead := range batch {
		if ctx.Err() != nil {
			return sent, failed
		}

		state.processed++
		overallPercent := 0
		if state.totalLeads > 0 {
			overallPercent = state.processed * 100 / state.totalLeads
		}

		r.sink.Publish(events.Event{Type: events.TypeLeadStarted, Payload: events.LeadStarted{
			AccountUsername: account.Username,
			LeadUsername:    lead.Handle,
			LeadIndex:       i + 1,
			TotalInAccount:  len(batch),
			OverallPercent:  overallPercent,
		}})

		outcome := r.processLead(ctx, session, c, account, lead)
		outcome.SequenceIndex = state.processed
		state.outcomes = append(state.outcomes, outcome)

		if outcome.Succeeded {
			sent++
			state.sent++
		} else {
			failed++
			state.failed++
		}

		if r.recorder != nil {
			if err := r.recorder.RecordOutcome(c.ID, outcome); err != nil {
				logger.Warn("Failed to record outcome", "lead", lead.Handle, "error", err)
			}
		}

		r.sink.Publish(events.Event{Type: events.TypeLeadProcessed, Payload: events.LeadProcessed{
			AccountUsername:  account.Username,
			LeadUsername:     lead.Handle,
			Succeeded:        outcome.Succeeded,
			Detail:           outcome.Detail,
			OverallSent:      state.sent,
			OverallFailed:    state.failed,
			OverallProcessed: state.processed,
			TotalLeads:       state.totalLeads,
		}})

		if outcome.Succeeded && i < len(batch)-1 && ctx.Err() == nil {
			r.pace(ctx, r.model.InterMessageDelay(c.MessageDelay, state.sent))
		}
	}

	return sent, failed
}

// processLead executes the visit → compose → type → send pipeline for one
// lead. Every expected failure mode comes back as a failed outcome; a panic
// anywhere in the step is caught, truncated, and recorded the same way. No
// per-lead error aborts the account.
func (r *Runner) processLead(ctx context.Context, session Session, c *Campaign, account Account, lead leads.Lead) (outcome LeadOutcome) {
	outcome = LeadOutcome{
		AccountUsername: account.Username,
		LeadHandle:      lead.Handle,
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Unexpected error processing lead", "lead", lead.Handle, "panic", rec)
			outcome.Succeeded = false
			outcome.Detail = truncateDetail(fmt.Sprintf("unexpected error: %v", rec))
		}
	}()

	if err := session.VisitProfile(ctx, lead.Handle); err != nil {
		outcome.Detail = truncateDetail(fmt.Sprintf("Error visiting profile: %v", err))
		return outcome
	}

	if result := session.OpenComposer(ctx); !result.OK() {
		outcome.Detail = detailOr(result, "Message button not found on profile")
		return outcome
	}

	if result := session.FocusInput(ctx); !result.OK() {
		outcome.Detail = detailOr(result, "Message input field not found")
		return outcome
	}

	message := RenderTemplate(c.Template, lead.DisplayName)
	if err := session.TypeMessage(ctx, message); err != nil {
		outcome.Detail = truncateDetail(fmt.Sprintf("Error typing message: %v", err))
		return outcome
	}

	if result := session.Send(ctx); !result.OK() {
		outcome.Detail = detailOr(result, "Failed to find send button or send message")
		return outcome
	}

	outcome.Succeeded = true
	outcome.Detail = "Message sent successfully"
	return outcome
}

// pace sleeps for the given delay, emitting one countdown event per elapsed
// second for live progress.
func (r *Runner) pace(ctx context.Context, delay time.Duration) {
	seconds := int(delay / time.Second)
	for remaining := seconds; remaining > 0; remaining-- {
		r.sink.Publish(events.Event{Type: events.TypeCountdown, Payload: events.Countdown{SecondsRemaining: remaining}})
		if err := r.sleeper.Sleep(ctx, time.Second); err != nil {
			return
		}
	}
	if rest := delay - time.Duration(seconds)*time.Second; rest > 0 {
		_ = r.sleeper.Sleep(ctx, rest)
	}
}

// leadCount returns how many of an account's leads the cap admits.
func (c *Campaign) leadCount(account Account) int {
	if len(account.Leads) > c.PerAccountCap {
		return c.PerAccountCap
	}
	return len(account.Leads)
}

// detailOr prefers the step's own detail, falling back to a fixed description.
func detailOr(result StepResult, fallback string) string {
	if result.Detail != "" {
		return truncateDetail(result.Detail)
	}
	return fallback
}
