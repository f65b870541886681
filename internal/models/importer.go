package models

import "time"

// ImportReport summarizes one CSV ingestion batch.
type ImportReport struct {
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	FilesProcessed int       `json:"files_processed"`
	Entities       int       `json:"entities"`
	Trades         int       `json:"trades"`
	Dividends      int       `json:"dividends"`
	Splits         int       `json:"splits"`
	Acquisitions   int       `json:"acquisitions"`
	SkippedRows    int       `json:"skipped_rows"` // reinvestments and other ignored actions
}

// ReconcileIssue is one disagreement between the rebuilt summary table and a
// brokerage positions export.
type ReconcileIssue struct {
	Symbol  string `json:"symbol"`
	Problem string `json:"problem"`
}
