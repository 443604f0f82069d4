package model

import (
	"strings"
	"time"
)

// Option identifies one of the four answer choices of a question.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
	OptionC Option = "C"
	OptionD Option = "D"
)

// ParseOption normalizes a raw answer cell or form value to an Option.
// Leading/trailing whitespace and case are ignored.
func ParseOption(raw string) (Option, bool) {
	switch Option(strings.ToUpper(strings.TrimSpace(raw))) {
	case OptionA:
		return OptionA, true
	case OptionB:
		return OptionB, true
	case OptionC:
		return OptionC, true
	case OptionD:
		return OptionD, true
	}
	return "", false
}

// Question is one multiple-choice question. Immutable once loaded.
type Question struct {
	Text    string    `json:"text"`
	Options [4]string `json:"options"`
	Correct Option    `json:"-"`
}

// SessionState represents where a quiz session is in its lifecycle.
type SessionState string

const (
	StateInProgress SessionState = "in_progress"
	StateCompleted  SessionState = "completed"
	StateTerminated SessionState = "terminated"
)

// Session is one participant's run through a shuffled question set.
// Answers keys are always a subset of [0, Current).
type Session struct {
	ID          string
	Participant string
	Questions   []Question
	Current     int
	Answers     map[int]Option
	State       SessionState
	StartedAt   time.Time
}

// Done reports whether every question has been advanced past.
func (s *Session) Done() bool {
	return s.Current >= len(s.Questions)
}

// ResultStatus distinguishes a finished attempt from a cut-short one.
type ResultStatus string

const (
	StatusCompleted  ResultStatus = "Completed"
	StatusTerminated ResultStatus = "Terminated"
)

// TimestampLayout is the wire and ledger format for attempt timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// ResultRecord is one persisted attempt. Created once per session
// termination and never updated.
type ResultRecord struct {
	Participant string       `json:"participant"`
	Correct     int          `json:"correct"`
	Answered    int          `json:"answered"`
	Skipped     int          `json:"skipped"`
	Total       int          `json:"total"`
	Timestamp   time.Time    `json:"timestamp"`
	Status      ResultStatus `json:"status"`
}

// Summary is the output of scoring a session snapshot.
// Answered + Skipped == Total always holds.
type Summary struct {
	Correct  int `json:"correct"`
	Answered int `json:"answered"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// QuizConfig holds runtime quiz parameters set via CLI flags.
type QuizConfig struct {
	NumQuestions  int  // 0 means all available
	Shuffle       bool // randomize question order per session
	SecureCookies bool // Set Secure flag on cookies (disable for local dev)
}
