// Package storage persists campaign runs and per-lead outcomes in a local
// SQLite database. Only run metadata and outcomes are stored; account
// credentials are never written here.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yourusername/instadm-pro/internal/campaign"
)

// Store wraps the campaign history database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath and ensures the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// createTables creates the required database tables
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS campaign_runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP,
		total_sent INTEGER DEFAULT 0,
		total_failed INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS lead_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		campaign_id TEXT NOT NULL,
		account_username TEXT NOT NULL,
		lead_handle TEXT NOT NULL,
		succeeded BOOLEAN NOT NULL,
		detail TEXT,
		sequence_index INTEGER NOT NULL,
		recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (campaign_id) REFERENCES campaign_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_campaign ON lead_outcomes(campaign_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_lead ON lead_outcomes(lead_handle);
	CREATE INDEX IF NOT EXISTS idx_outcomes_recorded_at ON lead_outcomes(recorded_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartRun records the beginning of a campaign run.
func (s *Store) StartRun(campaignID uuid.UUID) error {
	query := `
		INSERT INTO campaign_runs (id, started_at)
		VALUES (?, ?)
	`

	_, err := s.db.Exec(query, campaignID.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}

	return nil
}

// FinishRun records a campaign run's final totals.
func (s *Store) FinishRun(campaignID uuid.UUID, totalSent, totalFailed int) error {
	query := `
		UPDATE campaign_runs
		SET finished_at = CURRENT_TIMESTAMP, total_sent = ?, total_failed = ?
		WHERE id = ?
	`

	_, err := s.db.Exec(query, totalSent, totalFailed, campaignID.String())
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}

	return nil
}

// RecordOutcome appends one lead outcome to the run's history.
func (s *Store) RecordOutcome(campaignID uuid.UUID, outcome campaign.LeadOutcome) error {
	query := `
		INSERT INTO lead_outcomes (campaign_id, account_username, lead_handle, succeeded, detail, sequence_index)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		campaignID.String(),
		outcome.AccountUsername,
		outcome.LeadHandle,
		outcome.Succeeded,
		outcome.Detail,
		outcome.SequenceIndex,
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	return nil
}

// HasContacted checks whether any previous run already messaged a lead
// successfully.
func (s *Store) HasContacted(leadHandle string) (bool, error) {
	var count int
	query := "SELECT COUNT(*) FROM lead_outcomes WHERE lead_handle = ? AND succeeded = TRUE"
	err := s.db.QueryRow(query, leadHandle).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check contact history: %w", err)
	}

	return count > 0, nil
}

// Outcomes returns the recorded outcomes of one run, in sequence order.
func (s *Store) Outcomes(campaignID uuid.UUID) ([]campaign.LeadOutcome, error) {
	query := `
		SELECT account_username, lead_handle, succeeded, detail, sequence_index
		FROM lead_outcomes
		WHERE campaign_id = ?
		ORDER BY sequence_index ASC
	`

	rows, err := s.db.Query(query, campaignID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []campaign.LeadOutcome
	for rows.Next() {
		var outcome campaign.LeadOutcome
		var detail sql.NullString

		err := rows.Scan(&outcome.AccountUsername, &outcome.LeadHandle, &outcome.Succeeded, &detail, &outcome.SequenceIndex)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		if detail.Valid {
			outcome.Detail = detail.String
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, rows.Err()
}

// GetStats returns statistics about the database
func (s *Store) GetStats() (map[string]int, error) {
	stats := make(map[string]int)

	var totalRuns int
	err := s.db.QueryRow("SELECT COUNT(*) FROM campaign_runs").Scan(&totalRuns)
	if err != nil {
		return nil, err
	}
	stats["total_runs"] = totalRuns

	var totalOutcomes int
	err = s.db.QueryRow("SELECT COUNT(*) FROM lead_outcomes").Scan(&totalOutcomes)
	if err != nil {
		return nil, err
	}
	stats["total_outcomes"] = totalOutcomes

	var totalSent int
	err = s.db.QueryRow("SELECT COUNT(*) FROM lead_outcomes WHERE succeeded = TRUE").Scan(&totalSent)
	if err != nil {
		return nil, err
	}
	stats["total_sent"] = totalSent

	var sentToday int
	err = s.db.QueryRow("SELECT COUNT(*) FROM lead_outcomes WHERE succeeded = TRUE AND DATE(recorded_at) = DATE('now')").Scan(&sentToday)
	if err != nil {
		return nil, err
	}
	stats["sent_today"] = sentToday

	return stats, nil
}
