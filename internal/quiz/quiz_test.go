package quiz

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/santhoshgo28/kt-quiz/internal/ledger"
	"github.com/santhoshgo28/kt-quiz/internal/model"
	"github.com/santhoshgo28/kt-quiz/internal/roster"
	"github.com/santhoshgo28/kt-quiz/internal/session"
)

func q(text string, correct model.Option) model.Question {
	return model.Question{
		Text:    text,
		Options: [4]string{"opt a", "opt b", "opt c", "opt d"},
		Correct: correct,
	}
}

func testBank(questions ...model.Question) BankLoader {
	return func() ([]model.Question, error) {
		return questions, nil
	}
}

type testEnv struct {
	ctrl     *Controller
	sessions *session.MemoryStore
	ledger   ledger.Ledger
}

func newEnv(t *testing.T, load BankLoader, cfg model.QuizConfig) testEnv {
	t.Helper()
	sessions := session.NewMemoryStore()
	led := ledger.NewCSV(filepath.Join(t.TempDir(), "results.csv"))
	r := roster.New([]string{"Priya Sharma", "Arun Kumar"})
	return testEnv{
		ctrl:     New(load, r, sessions, led, cfg),
		sessions: sessions,
		ledger:   led,
	}
}

func option(o model.Option) *model.Option { return &o }

func TestStartUnauthorized(t *testing.T) {
	env := newEnv(t, testBank(q("q1", model.OptionA)), model.QuizConfig{})

	_, _, err := env.ctrl.Start("NotOnList")
	if !errors.Is(err, ErrUnauthorizedParticipant) {
		t.Fatalf("expected ErrUnauthorizedParticipant, got %v", err)
	}

	// No session and no ledger record may exist.
	if _, ok := env.sessions.FindByParticipant("NotOnList"); ok {
		t.Error("unauthorized start created a session")
	}
	recs, err := env.ledger.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("unauthorized start mutated the ledger: %d records", len(recs))
	}
}

func TestStartBankLoadFailure(t *testing.T) {
	failing := func() ([]model.Question, error) {
		return nil, errors.New("bank exploded")
	}
	env := newEnv(t, failing, model.QuizConfig{})

	if _, _, err := env.ctrl.Start("Priya Sharma"); err == nil {
		t.Fatal("expected bank load error")
	}
	if _, ok := env.sessions.FindByParticipant("Priya Sharma"); ok {
		t.Error("failed start left a session behind")
	}
}

func TestIdempotentResume(t *testing.T) {
	env := newEnv(t, testBank(q("q1", model.OptionA), q("q2", model.OptionB), q("q3", model.OptionC)),
		model.QuizConfig{Shuffle: true})

	first, resumed, err := env.ctrl.Start("Priya Sharma")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if resumed {
		t.Error("first start reported a resume")
	}

	if err := env.ctrl.Submit(first, option(model.OptionA)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	second, resumed, err := env.ctrl.Start("Priya Sharma")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !resumed {
		t.Error("second start did not resume")
	}
	if second != first {
		t.Fatal("resume returned a different session")
	}
	if second.Current != 1 || len(second.Answers) != 1 {
		t.Errorf("resume reset progress: current=%d answers=%d", second.Current, len(second.Answers))
	}
	for i := range first.Questions {
		if second.Questions[i].Text != first.Questions[i].Text {
			t.Fatal("resume reshuffled the question set")
		}
	}

	// A different participant gets an independent session.
	other, resumed, err := env.ctrl.Start("Arun Kumar")
	if err != nil {
		t.Fatalf("Start other: %v", err)
	}
	if resumed || other == first {
		t.Error("different name must not resume another participant's session")
	}
}

func TestSubmitAdvancesAndKeepsInvariant(t *testing.T) {
	env := newEnv(t, testBank(q("q1", model.OptionA), q("q2", model.OptionB), q("q3", model.OptionC), q("q4", model.OptionD)),
		model.QuizConfig{})

	sess, _, err := env.ctrl.Start("Priya Sharma")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	steps := []*model.Option{option(model.OptionA), nil, option(model.OptionC)}
	for i, chosen := range steps {
		if err := env.ctrl.Submit(sess, chosen); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		sum := Score(sess)
		if sum.Answered+sum.Skipped != sum.Total {
			t.Fatalf("after step %d: answered %d + skipped %d != total %d", i, sum.Answered, sum.Skipped, sum.Total)
		}
		if got := len(sess.Answers); got > sess.Current {
			t.Fatalf("answers %d exceed current %d", got, sess.Current)
		}
		if sess.Current > len(sess.Questions) {
			t.Fatalf("current %d exceeds total %d", sess.Current, len(sess.Questions))
		}
	}
	if sess.Current != 3 {
		t.Errorf("expected current 3, got %d", sess.Current)
	}
	// Answered equals submits with a choice; the timeout recorded a skip.
	sum := Score(sess)
	if sum.Answered != 2 {
		t.Errorf("expected 2 answered so far, got %d", sum.Answered)
	}
}

func TestScoreIsPure(t *testing.T) {
	sess := &model.Session{
		Questions: []model.Question{q("q1", model.OptionA), q("q2", model.OptionB)},
		Current:   2,
		Answers:   map[int]model.Option{0: model.OptionA, 1: model.OptionC},
	}

	first := Score(sess)
	second := Score(sess)
	if first != second {
		t.Errorf("Score not deterministic: %+v vs %+v", first, second)
	}
	if first.Correct != 1 || first.Answered != 2 || first.Skipped != 0 {
		t.Errorf("unexpected summary %+v", first)
	}
}

func TestTerminateMidQuiz(t *testing.T) {
	env := newEnv(t, testBank(
		q("q1", model.OptionA), q("q2", model.OptionB), q("q3", model.OptionC),
		q("q4", model.OptionD), q("q5", model.OptionA),
	), model.QuizConfig{})

	sess, _, err := env.ctrl.Start("Priya Sharma")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// One correct, one incorrect, then a tab switch.
	correct := sess.Questions[0].Correct
	if err := env.ctrl.Submit(sess, &correct); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	wrong := model.OptionA
	if wrong == sess.Questions[1].Correct {
		wrong = model.OptionB
	}
	if err := env.ctrl.Submit(sess, &wrong); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rec, persisted, err := env.ctrl.Terminate(sess, "tab-switch")
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if !persisted {
		t.Error("expected record persisted")
	}
	if rec.Answered != 2 || rec.Skipped != 3 || rec.Correct != 1 || rec.Total != 5 {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Status != model.StatusTerminated {
		t.Errorf("expected Terminated status, got %q", rec.Status)
	}

	// The session is cleared and accepts no further transitions.
	if _, err := env.ctrl.Get(sess.ID); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
	if err := env.ctrl.Submit(sess, nil); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("expected ErrSessionFinished, got %v", err)
	}
	if _, _, err := env.ctrl.Terminate(sess, "again"); !errors.Is(err, ErrSessionFinished) {
		t.Errorf("expected ErrSessionFinished on double terminate, got %v", err)
	}
}

func TestEndToEndCompletion(t *testing.T) {
	env := newEnv(t, testBank(q("q1", model.OptionA), q("q2", model.OptionB), q("q3", model.OptionC)),
		model.QuizConfig{}) // no shuffle so answers line up

	sess, _, err := env.ctrl.Start("Priya Sharma")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, ans := range []model.Option{model.OptionA, model.OptionB, model.OptionD} {
		if _, ok := env.ctrl.Current(sess); !ok {
			t.Fatal("expected a current question")
		}
		if err := env.ctrl.Submit(sess, option(ans)); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	if _, ok := env.ctrl.Current(sess); ok {
		t.Error("expected no current question after last submit")
	}

	rec, persisted, err := env.ctrl.Complete(sess)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !persisted {
		t.Error("expected record persisted")
	}
	if rec.Correct != 2 || rec.Answered != 3 || rec.Skipped != 0 || rec.Total != 3 {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Status != model.StatusCompleted {
		t.Errorf("expected Completed status, got %q", rec.Status)
	}

	// Exactly one ledger record with matching values.
	recs, err := env.ctrl.Results("Priya Sharma")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(recs))
	}
	got := recs[0]
	if got.Correct != rec.Correct || got.Answered != rec.Answered ||
		got.Skipped != rec.Skipped || got.Total != rec.Total || got.Status != rec.Status {
		t.Errorf("ledger record %+v does not match %+v", got, rec)
	}
}

func TestCompleteRequiresDone(t *testing.T) {
	env := newEnv(t, testBank(q("q1", model.OptionA), q("q2", model.OptionB)), model.QuizConfig{})
	sess, _, _ := env.ctrl.Start("Priya Sharma")

	if _, _, err := env.ctrl.Complete(sess); err == nil {
		t.Fatal("expected error completing an unfinished session")
	}
}

func TestNumQuestionsCap(t *testing.T) {
	env := newEnv(t, testBank(q("q1", model.OptionA), q("q2", model.OptionB), q("q3", model.OptionC)),
		model.QuizConfig{NumQuestions: 2})

	sess, _, err := env.ctrl.Start("Priya Sharma")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if len(sess.Questions) != 2 {
		t.Errorf("expected 2 questions, got %d", len(sess.Questions))
	}
}

type failingLedger struct{}

func (failingLedger) Append(model.ResultRecord) error { return errors.New("disk full") }
func (failingLedger) QueryByParticipant(string) ([]model.ResultRecord, error) {
	return nil, nil
}
func (failingLedger) All() ([]model.ResultRecord, error) { return nil, nil }
func (failingLedger) Close() error                       { return nil }

func TestPersistenceFailureStillScores(t *testing.T) {
	sessions := session.NewMemoryStore()
	r := roster.New([]string{"Priya Sharma"})
	ctrl := New(testBank(q("q1", model.OptionA)), r, sessions, failingLedger{}, model.QuizConfig{})

	sess, _, err := ctrl.Start("Priya Sharma")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ctrl.Submit(sess, option(model.OptionA)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rec, persisted, err := ctrl.Complete(sess)
	if err != nil {
		t.Fatalf("Complete must not fail on a ledger write error: %v", err)
	}
	if persisted {
		t.Error("expected persisted=false")
	}
	if rec.Correct != 1 || rec.Total != 1 {
		t.Errorf("expected in-memory record with the score, got %+v", rec)
	}
	// Session is still cleared so the participant cannot replay it.
	if _, err := ctrl.Get(sess.ID); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("expected session cleared, got %v", err)
	}
}
