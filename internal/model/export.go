package model

import "time"

// LedgerExport is the top-level JSON structure for result export.
type LedgerExport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Count       int            `json:"count"`
	Records     []ResultRecord `json:"records"`
}
