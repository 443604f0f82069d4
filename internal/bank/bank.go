// Package bank loads the question bank from its CSV source.
//
// The source has no header row; each row is question text, four option
// texts, and the correct answer letter. Malformed rows are skipped, not
// fatal: a partially broken bank should still serve its valid rows.
package bank

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/santhoshgo28/kt-quiz/internal/model"
)

const requiredColumns = 6

var (
	// ErrNoQuestions is returned when no row survives validation.
	ErrNoQuestions = errors.New("no valid questions in bank")
	// ErrTooFewColumns is returned when no row reaches the required width.
	ErrTooFewColumns = errors.New("bank must have 6 columns: question, 4 options, answer letter")
)

// RowError describes why a single bank row was rejected.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

// ParseRow validates one raw CSV record into a Question.
// The validation pipeline is trim, non-empty checks, then answer-letter
// normalization; the first failure wins.
func ParseRow(line int, record []string) (model.Question, error) {
	if len(record) < requiredColumns {
		return model.Question{}, &RowError{Line: line, Reason: "too few columns"}
	}

	q := model.Question{Text: strings.TrimSpace(record[0])}
	if q.Text == "" {
		return model.Question{}, &RowError{Line: line, Reason: "empty question text"}
	}

	for i := 0; i < 4; i++ {
		opt := strings.TrimSpace(record[i+1])
		if opt == "" {
			return model.Question{}, &RowError{Line: line, Reason: fmt.Sprintf("empty option %c", 'A'+i)}
		}
		q.Options[i] = opt
	}

	correct, ok := model.ParseOption(record[5])
	if !ok {
		return model.Question{}, &RowError{Line: line, Reason: fmt.Sprintf("answer %q is not one of A/B/C/D", strings.TrimSpace(record[5]))}
	}
	q.Correct = correct

	return q, nil
}

// Load reads the bank file and returns the valid questions plus the
// number of rows skipped by validation. It fails only when the file is
// missing or unreadable, no row is wide enough, or no valid row remains.
func Load(path string) ([]model.Question, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open question bank: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows are validated individually
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read question bank %s: %w", path, err)
	}

	maxWidth := 0
	var questions []model.Question
	skipped := 0
	for i, record := range records {
		if len(record) > maxWidth {
			maxWidth = len(record)
		}
		q, err := ParseRow(i+1, record)
		if err != nil {
			slog.Debug("skipping bank row", "error", err)
			skipped++
			continue
		}
		questions = append(questions, q)
	}

	if maxWidth < requiredColumns && len(records) > 0 {
		return nil, 0, fmt.Errorf("%s: %w", path, ErrTooFewColumns)
	}
	if len(questions) == 0 {
		return nil, 0, fmt.Errorf("%s: %w", path, ErrNoQuestions)
	}

	if skipped > 0 {
		slog.Warn("bank rows skipped", "path", path, "skipped", skipped)
	}
	slog.Info("loaded question bank", "path", path, "questions", len(questions))
	return questions, skipped, nil
}
