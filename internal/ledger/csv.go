package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/santhoshgo28/kt-quiz/internal/model"
)

var csvHeader = []string{
	"Employee Name",
	"Correct Answers",
	"Answered Questions",
	"Skipped Questions",
	"Total Questions",
	"Date & Time",
	"Status",
}

// CSVLedger appends attempts to a flat CSV file. Each append is a
// single O_APPEND write, so adjacent appends from separate sessions
// cannot lose each other's rows.
type CSVLedger struct {
	mu   sync.Mutex
	path string
}

// NewCSV creates a ledger backed by the CSV file at path. The file is
// created lazily on first append.
func NewCSV(path string) *CSVLedger {
	return &CSVLedger{path: path}
}

func (l *CSVLedger) Append(rec model.ResultRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat results file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write results header: %w", err)
		}
	}
	row := []string{
		rec.Participant,
		strconv.Itoa(rec.Correct),
		strconv.Itoa(rec.Answered),
		strconv.Itoa(rec.Skipped),
		strconv.Itoa(rec.Total),
		rec.Timestamp.Format(model.TimestampLayout),
		string(rec.Status),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write result row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush result row: %w", err)
	}
	return nil
}

func (l *CSVLedger) QueryByParticipant(name string) ([]model.ResultRecord, error) {
	attempts, err := l.read()
	if err != nil {
		return nil, err
	}
	filtered := attempts[:0]
	for _, a := range attempts {
		if a.rec.Participant == name {
			filtered = append(filtered, a)
		}
	}
	return sortNewestFirst(filtered), nil
}

func (l *CSVLedger) All() ([]model.ResultRecord, error) {
	attempts, err := l.read()
	if err != nil {
		return nil, err
	}
	return sortNewestFirst(attempts), nil
}

// Close is a no-op; the file is opened per append.
func (l *CSVLedger) Close() error { return nil }

func (l *CSVLedger) read() ([]attempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read results file %s: %w", l.path, err)
	}

	var attempts []attempt
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == csvHeader[0] {
			continue
		}
		a, ok := parseCSVRow(row)
		if !ok {
			continue
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func parseCSVRow(row []string) (attempt, bool) {
	if len(row) < 7 {
		return attempt{}, false
	}
	var (
		a    attempt
		errs [4]error
	)
	a.rec.Participant = row[0]
	a.rec.Correct, errs[0] = strconv.Atoi(row[1])
	a.rec.Answered, errs[1] = strconv.Atoi(row[2])
	a.rec.Skipped, errs[2] = strconv.Atoi(row[3])
	a.rec.Total, errs[3] = strconv.Atoi(row[4])
	for _, err := range errs {
		if err != nil {
			return attempt{}, false
		}
	}
	ts, err := time.ParseInLocation(model.TimestampLayout, row[5], time.Local)
	if err == nil {
		a.rec.Timestamp = ts
		a.goodTS = true
	}
	a.rec.Status = model.ResultStatus(row[6])
	return a, true
}
