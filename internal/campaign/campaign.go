// Package campaign drives a direct-message campaign across a set of accounts
// and their lead lists. Accounts are processed strictly sequentially, leads
// within an account strictly sequentially; parallel sessions are themselves a
// detection signal and are deliberately avoided.
package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/instadm-pro/internal/leads"
)

// PlaceholderName is the template token substituted with a lead's display name.
const PlaceholderName = "{name}"

// Account bundles one login with its lead list. The campaign owns the value
// exclusively for its duration; the secret never outlives the run.
type Account struct {
	Username   string
	Password   string
	Leads      []leads.Lead
	SourceFile string
}

// Campaign is one run across all configured accounts. It is consumed
// top-to-bottom by exactly one Runner at a time and never mutated concurrently.
type Campaign struct {
	ID            uuid.UUID
	Accounts      []Account
	Template      string
	MessageDelay  time.Duration
	PerAccountCap int
}

// New creates a campaign with a fresh run ID.
func New(accounts []Account, template string, messageDelay time.Duration, perAccountCap int) *Campaign {
	return &Campaign{
		ID:            uuid.New(),
		Accounts:      accounts,
		Template:      template,
		MessageDelay:  messageDelay,
		PerAccountCap: perAccountCap,
	}
}

// LeadOutcome is the append-only result record for one attempted lead.
// SequenceIndex is strictly increasing across the whole campaign and reflects
// global processing order.
type LeadOutcome struct {
	AccountUsername string
	LeadHandle      string
	Succeeded       bool
	Detail          string
	SequenceIndex   int
}

// StepStatus tags the result of one interaction step.
type StepStatus int

const (
	// StepOK means the step completed.
	StepOK StepStatus = iota
	// StepNotFound means the step's target element could not be resolved.
	StepNotFound
	// StepFailed means the step found its target but the interaction failed.
	StepFailed
)

// StepResult is the tagged per-step outcome. Expected per-lead failure modes
// travel as values, not panics; only truly unexpected conditions escape as
// errors.
type StepResult struct {
	Status StepStatus
	Detail string
}

// OK reports whether the step completed.
func (r StepResult) OK() bool { return r.Status == StepOK }

// Ok builds a successful step result.
func Ok() StepResult { return StepResult{Status: StepOK} }

// NotFound builds a not-found step result.
func NotFound(detail string) StepResult {
	return StepResult{Status: StepNotFound, Detail: detail}
}

// Failed builds a failed step result.
func Failed(detail string) StepResult {
	return StepResult{Status: StepFailed, Detail: detail}
}

// Session is one authenticated browser instance bound to a single account.
// Sessions are 1:1 with an account-processing attempt and never reused once
// closed.
type Session interface {
	Login(ctx context.Context) error
	VisitProfile(ctx context.Context, handle string) error
	OpenComposer(ctx context.Context) StepResult
	FocusInput(ctx context.Context) StepResult
	TypeMessage(ctx context.Context, text string) error
	Send(ctx context.Context) StepResult
	Close() error
}

// Driver acquires fresh sessions. Acquisition failure is per-account and
// non-fatal to the campaign.
type Driver interface {
	Acquire(ctx context.Context, account Account) (Session, error)
}

// Sleeper is the injectable delay provider. Tests run the state machine with a
// zero-delay sleeper while exercising the same branching logic.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockSleeper sleeps on the wall clock, honoring cancellation.
type ClockSleeper struct{}

// Sleep blocks for d or until the context is done.
func (ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recorder persists outcomes as they happen. Optional; recording failures are
// logged and never interrupt the campaign.
type Recorder interface {
	RecordOutcome(campaignID uuid.UUID, outcome LeadOutcome) error
}

// RenderTemplate substitutes the name placeholder with a lead's display name.
func RenderTemplate(template, displayName string) string {
	return strings.ReplaceAll(template, PlaceholderName, displayName)
}

// truncateDetail bounds a failure detail string for outcome records and events.
func truncateDetail(detail string) string {
	const maxDetail = 100
	if len(detail) > maxDetail {
		return detail[:maxDetail]
	}
	return detail
}
