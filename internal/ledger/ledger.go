// Package ledger persists the append-only log of quiz attempts.
//
// Two backends exist: a flat CSV file compatible with the original
// result sheet, and an embedded sqlite store. Records are never updated
// or deleted.
package ledger

import (
	"sort"

	"github.com/santhoshgo28/kt-quiz/internal/model"
)

// Ledger is the append-only results store.
type Ledger interface {
	// Append adds one record. It must be safe for concurrent-adjacent
	// appends from separate sessions.
	Append(rec model.ResultRecord) error
	// QueryByParticipant returns a participant's records, newest first.
	// A ledger that does not exist yet yields an empty result, and
	// records with unparseable timestamps sort last instead of failing
	// the query.
	QueryByParticipant(name string) ([]model.ResultRecord, error)
	// All returns every record, newest first.
	All() ([]model.ResultRecord, error)
	Close() error
}

// attempt pairs a decoded record with whether its timestamp parsed.
// Legacy rows with broken timestamps are kept but sorted to the end.
type attempt struct {
	rec    model.ResultRecord
	goodTS bool
}

func sortNewestFirst(attempts []attempt) []model.ResultRecord {
	sort.SliceStable(attempts, func(i, j int) bool {
		if attempts[i].goodTS != attempts[j].goodTS {
			return attempts[i].goodTS
		}
		return attempts[i].rec.Timestamp.After(attempts[j].rec.Timestamp)
	})
	out := make([]model.ResultRecord, len(attempts))
	for i, a := range attempts {
		out[i] = a.rec
	}
	return out
}
