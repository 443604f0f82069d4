// Package quiz drives a participant's progression through a shuffled
// question set and turns terminal sessions into ledger records.
package quiz

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/santhoshgo28/kt-quiz/internal/ledger"
	"github.com/santhoshgo28/kt-quiz/internal/model"
	"github.com/santhoshgo28/kt-quiz/internal/roster"
	"github.com/santhoshgo28/kt-quiz/internal/session"
)

var (
	// ErrUnauthorizedParticipant is returned when the name is not on the allow-list.
	ErrUnauthorizedParticipant = errors.New("participant not on allow-list")
	// ErrNoActiveSession is returned when no live session matches the caller.
	ErrNoActiveSession = errors.New("no active quiz session")
	// ErrSessionFinished is returned on transitions against a terminal session.
	ErrSessionFinished = errors.New("quiz session already finished")
)

// BankLoader produces the question pool for a new session. It runs on
// every fresh start so bank file edits are picked up without a restart.
type BankLoader func() ([]model.Question, error)

// Controller is the quiz session state machine.
type Controller struct {
	loadBank BankLoader
	roster   *roster.Roster
	sessions session.Store
	ledger   ledger.Ledger
	cfg      model.QuizConfig
}

// New creates a Controller with injected collaborators.
func New(load BankLoader, r *roster.Roster, sessions session.Store, led ledger.Ledger, cfg model.QuizConfig) *Controller {
	return &Controller{loadBank: load, roster: r, sessions: sessions, ledger: led, cfg: cfg}
}

// Start begins a quiz for name, or resumes the participant's live
// session unchanged if one exists (so a page reload never loses
// progress or reshuffles). The returned bool reports a resume.
func (c *Controller) Start(name string) (*model.Session, bool, error) {
	name = strings.TrimSpace(name)
	if !c.roster.Contains(name) {
		return nil, false, fmt.Errorf("%w: %q", ErrUnauthorizedParticipant, name)
	}

	if sess, ok := c.sessions.FindByParticipant(name); ok {
		slog.Info("resuming session", "participant", name, "current", sess.Current)
		return sess, true, nil
	}

	pool, err := c.loadBank()
	if err != nil {
		return nil, false, fmt.Errorf("load question bank: %w", err)
	}

	questions := make([]model.Question, len(pool))
	copy(questions, pool)
	if c.cfg.Shuffle {
		rand.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	}
	if c.cfg.NumQuestions > 0 && c.cfg.NumQuestions < len(questions) {
		questions = questions[:c.cfg.NumQuestions]
	}

	sess := &model.Session{
		ID:          uuid.NewString(),
		Participant: name,
		Questions:   questions,
		Answers:     make(map[int]model.Option),
		State:       model.StateInProgress,
		StartedAt:   time.Now(),
	}
	c.sessions.Put(sess.ID, sess)
	slog.Info("session started", "participant", name, "questions", len(questions))
	return sess, false, nil
}

// Get returns the live session for a cookie identifier.
func (c *Controller) Get(id string) (*model.Session, error) {
	sess, ok := c.sessions.Get(id)
	if !ok || sess.State != model.StateInProgress {
		return nil, ErrNoActiveSession
	}
	return sess, nil
}

// Current returns the question at the session's position, or ok=false
// when the participant has advanced past the last question.
func (c *Controller) Current(sess *model.Session) (model.Question, bool) {
	if sess.Done() {
		return model.Question{}, false
	}
	return sess.Questions[sess.Current], true
}

// Submit records the chosen option at the current position and
// advances. A nil option is a skip (explicit or timer-driven); both are
// recorded as unanswered. Every call advances, so duplicate-submit
// protection belongs to the transport.
func (c *Controller) Submit(sess *model.Session, chosen *model.Option) error {
	if sess.State != model.StateInProgress {
		return ErrSessionFinished
	}
	if sess.Done() {
		return ErrSessionFinished
	}
	if chosen != nil {
		sess.Answers[sess.Current] = *chosen
	}
	sess.Current++
	return nil
}

// Score computes the summary for a session snapshot. Indices with no
// recorded answer count as skipped, never as wrong: a question the
// participant never reached cannot cost credit beyond not earning it.
// Pure function; safe to call on any snapshot.
func Score(sess *model.Session) model.Summary {
	sum := model.Summary{Total: len(sess.Questions)}
	for i, q := range sess.Questions {
		chosen, ok := sess.Answers[i]
		if !ok {
			sum.Skipped++
			continue
		}
		sum.Answered++
		if chosen == q.Correct {
			sum.Correct++
		}
	}
	return sum
}

// Complete finalizes a session whose every question has been advanced
// past. The bool reports whether the record reached the ledger; a
// failed write is logged and the in-memory record still returned so the
// participant sees their score.
func (c *Controller) Complete(sess *model.Session) (model.ResultRecord, bool, error) {
	if sess.State != model.StateInProgress {
		return model.ResultRecord{}, false, ErrSessionFinished
	}
	if !sess.Done() {
		return model.ResultRecord{}, false, fmt.Errorf("session at %d of %d is not complete", sess.Current, len(sess.Questions))
	}
	rec, persisted := c.finalize(sess, model.StateCompleted, model.StatusCompleted)
	return rec, persisted, nil
}

// Terminate freezes the session at its current progress and records a
// Terminated attempt. The reason is client-reported and accepted at
// face value; remaining questions score as skipped.
func (c *Controller) Terminate(sess *model.Session, reason string) (model.ResultRecord, bool, error) {
	if sess.State != model.StateInProgress {
		return model.ResultRecord{}, false, ErrSessionFinished
	}
	slog.Info("terminating session", "participant", sess.Participant, "reason", reason, "current", sess.Current)
	rec, persisted := c.finalize(sess, model.StateTerminated, model.StatusTerminated)
	return rec, persisted, nil
}

func (c *Controller) finalize(sess *model.Session, state model.SessionState, status model.ResultStatus) (model.ResultRecord, bool) {
	sess.State = state
	sum := Score(sess)
	rec := model.ResultRecord{
		Participant: sess.Participant,
		Correct:     sum.Correct,
		Answered:    sum.Answered,
		Skipped:     sum.Skipped,
		Total:       sum.Total,
		Timestamp:   time.Now(),
		Status:      status,
	}

	persisted := true
	if err := c.ledger.Append(rec); err != nil {
		// The participant still gets their score from the in-memory
		// record; the loss is logged, not surfaced as a failure.
		slog.Error("ledger append failed", "participant", sess.Participant, "error", err)
		persisted = false
	}
	c.sessions.Delete(sess.ID)
	return rec, persisted
}

// Results returns a participant's past attempts, newest first.
func (c *Controller) Results(name string) ([]model.ResultRecord, error) {
	return c.ledger.QueryByParticipant(strings.TrimSpace(name))
}
