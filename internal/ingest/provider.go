// Package ingest holds what import providers have in common.
package ingest

// Result holds the outcome of an import.
type Result struct {
	Sessions        int   `json:"sessions"`
	SetsReceived    int   `json:"sets_received"`
	SetsInserted    int64 `json:"sets_inserted"`
	SetsSkipped     int64 `json:"sets_skipped"`
	WarmupsIgnored  int   `json:"warmups_ignored"`
	RecordsInserted int   `json:"records_inserted"`

	Message string `json:"message,omitempty"`
}
