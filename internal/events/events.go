// Package events carries the structured progress stream a campaign pushes to
// its front end. Delivery is fire-and-forget: the campaign loop never blocks
// on a sink, and a lost event only degrades live-progress fidelity, never
// campaign correctness.
package events

import (
	"github.com/yourusername/instadm-pro/internal/logger"
)

// Type identifies an event payload.
type Type string

const (
	TypeCampaignStarted   Type = "campaign_started"
	TypeAccountStarted    Type = "account_started"
	TypeLeadStarted       Type = "lead_started"
	TypeLeadProcessed     Type = "lead_processed"
	TypeCountdown         Type = "countdown"
	TypeAccountCompleted  Type = "account_completed"
	TypeCampaignCompleted Type = "campaign_completed"
	TypeFatalError        Type = "fatal_error"
)

// Event is one progress update. Payload is one of the typed structs below.
type Event struct {
	Type    Type        `json:"type"`
	Payload interface{} `json:"payload"`
}

// CampaignStarted opens the stream.
type CampaignStarted struct {
	TotalAccounts int `json:"total_accounts"`
	TotalLeads    int `json:"total_leads"`
}

// AccountStarted marks the beginning of one account's processing.
type AccountStarted struct {
	AccountUsername string `json:"account_username"`
	AccountIndex    int    `json:"account_index"`
	TotalAccounts   int    `json:"total_accounts"`
	LeadsForAccount int    `json:"leads_for_this_account"`
}

// LeadStarted marks the beginning of one lead's processing.
type LeadStarted struct {
	AccountUsername string `json:"account_username"`
	LeadUsername    string `json:"lead_username"`
	LeadIndex       int    `json:"lead_index"`
	TotalInAccount  int    `json:"total_in_account"`
	OverallPercent  int    `json:"overall_percent"`
}

// LeadProcessed reports a lead's final outcome, emitted exactly once per
// attempted lead.
type LeadProcessed struct {
	AccountUsername  string `json:"account_username"`
	LeadUsername     string `json:"lead_username"`
	Succeeded        bool   `json:"succeeded"`
	Detail           string `json:"detail"`
	OverallSent      int    `json:"overall_sent"`
	OverallFailed    int    `json:"overall_failed"`
	OverallProcessed int    `json:"overall_processed"`
	TotalLeads       int    `json:"total_leads"`
}

// Countdown ticks once per second during any pacing delay.
type Countdown struct {
	SecondsRemaining int `json:"seconds_remaining"`
}

// AccountCompleted reports per-account totals.
type AccountCompleted struct {
	AccountUsername string `json:"account_username"`
	AccountIndex    int    `json:"account_index"`
	SentCount       int    `json:"sent_count"`
	FailedCount     int    `json:"failed_count"`
}

// Outcome is one entry of the campaign outcome log.
type Outcome struct {
	AccountUsername string `json:"account_username"`
	LeadHandle      string `json:"lead_handle"`
	Succeeded       bool   `json:"succeeded"`
	Detail          string `json:"detail"`
	SequenceIndex   int    `json:"sequence_index"`
}

// CampaignCompleted closes the stream with aggregate counts and the full
// outcome log.
type CampaignCompleted struct {
	TotalSent   int       `json:"total_sent"`
	TotalFailed int       `json:"total_failed"`
	OutcomeLog  []Outcome `json:"outcome_log"`
}

// FatalError reports that an account or the campaign cannot continue. An
// account-scoped fatal carries the account's username; processing moves on to
// the next account.
type FatalError struct {
	AccountUsername string `json:"account_username,omitempty"`
	Message         string `json:"message"`
}

// Sink consumes progress events. Publish must never block the campaign loop.
type Sink interface {
	Publish(Event)
}

// ChannelSink forwards events to a buffered channel, dropping events when the
// consumer falls behind.
type ChannelSink struct {
	ch chan Event
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

// Publish sends without blocking; a full buffer drops the event.
func (s *ChannelSink) Publish(event Event) {
	select {
	case s.ch <- event:
	default:
		logger.Debug("Progress event dropped, sink buffer full", "type", event.Type)
	}
}

// Close closes the underlying channel. Call only after the campaign finished.
func (s *ChannelSink) Close() {
	close(s.ch)
}

// LogSink mirrors the progress stream into the application log.
type LogSink struct{}

// Publish logs the event.
func (LogSink) Publish(event Event) {
	switch payload := event.Payload.(type) {
	case Countdown:
		logger.Debug("Countdown", "seconds_remaining", payload.SecondsRemaining)
	case FatalError:
		logger.Error("Campaign fatal error", "account", payload.AccountUsername, "message", payload.Message)
	default:
		logger.Info("Campaign progress", "type", event.Type, "payload", payload)
	}
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

// Publish forwards to every sink.
func (m MultiSink) Publish(event Event) {
	for _, sink := range m {
		sink.Publish(event)
	}
}
