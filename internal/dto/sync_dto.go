package dto

import "time"

// SyncResult reports one source's sync pass.
type SyncResult struct {
	Source     string    `json:"source"`
	Trigger    string    `json:"trigger"`
	Fetched    int       `json:"fetched"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// SyncSummary aggregates the passes of one sync request.
type SyncSummary struct {
	Results  []SyncResult `json:"results"`
	Inserted int          `json:"inserted"`
	Skipped  int          `json:"skipped"`
}

// NewSyncSummary totals per-source results.
func NewSyncSummary(results []SyncResult) SyncSummary {
	summary := SyncSummary{Results: make([]SyncResult, 0, len(results))}
	for _, result := range results {
		summary.Results = append(summary.Results, result)
		summary.Inserted += result.Inserted
		summary.Skipped += result.Skipped
	}
	return summary
}
