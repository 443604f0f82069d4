package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/santhoshgo28/kt-quiz/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteLedger stores attempts in an embedded sqlite database.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the sqlite results database.
func OpenSQLite(dbPath string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	l := &SQLiteLedger{db: db}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return l, nil
}

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) migrate() error {
	// recorded_at is stored as formatted text so rows imported from the
	// legacy sheet keep their original values verbatim.
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		participant TEXT NOT NULL,
		correct INTEGER NOT NULL,
		answered INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		total INTEGER NOT NULL,
		recorded_at TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_participant ON results(participant);
	`
	_, err := l.db.Exec(schema)
	return err
}

func (l *SQLiteLedger) Append(rec model.ResultRecord) error {
	_, err := l.db.Exec(
		`INSERT INTO results (participant, correct, answered, skipped, total, recorded_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Participant, rec.Correct, rec.Answered, rec.Skipped, rec.Total,
		rec.Timestamp.Format(model.TimestampLayout), rec.Status,
	)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) QueryByParticipant(name string) ([]model.ResultRecord, error) {
	return l.query(`SELECT participant, correct, answered, skipped, total, recorded_at, status
		 FROM results WHERE participant = ?`, name)
}

func (l *SQLiteLedger) All() ([]model.ResultRecord, error) {
	return l.query(`SELECT participant, correct, answered, skipped, total, recorded_at, status FROM results`)
}

func (l *SQLiteLedger) query(q string, args ...any) ([]model.ResultRecord, error) {
	rows, err := l.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []attempt
	for rows.Next() {
		var (
			a  attempt
			ts string
		)
		if err := rows.Scan(&a.rec.Participant, &a.rec.Correct, &a.rec.Answered,
			&a.rec.Skipped, &a.rec.Total, &ts, &a.rec.Status); err != nil {
			return nil, err
		}
		if t, err := time.ParseInLocation(model.TimestampLayout, ts, time.Local); err == nil {
			a.rec.Timestamp = t
			a.goodTS = true
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sortNewestFirst(attempts), nil
}
