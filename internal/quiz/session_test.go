package quiz_test

import (
	"errors"
	"math"
	"testing"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

func TestSession_NewIsIdle(t *testing.T) {
	s := quiz.NewSession(testCatalog(t))

	if s.Phase() != quiz.PhaseIdle {
		t.Errorf("Phase() = %s, want idle", s.Phase())
	}
	if s.State() != (quiz.State{}) {
		t.Errorf("State() = %+v, want zero state", s.State())
	}
	if s.ProgressFraction() != 0 {
		t.Errorf("ProgressFraction() = %v, want 0 when idle", s.ProgressFraction())
	}
}

func TestSession_StartEveryLevel(t *testing.T) {
	c := testCatalog(t)

	for _, subject := range c.Subjects() {
		for _, level := range subject.Levels {
			t.Run(subject.Name+"/"+level.Name, func(t *testing.T) {
				s := quiz.NewSession(c)
				if err := s.Start(subject.Name, level.Name); err != nil {
					t.Fatalf("Start() error = %v", err)
				}

				q, err := s.CurrentQuestion()
				if err != nil {
					t.Fatalf("CurrentQuestion() error = %v", err)
				}
				if q.Text != level.Questions[0].Text {
					t.Errorf("CurrentQuestion() = %q, want %q", q.Text, level.Questions[0].Text)
				}
				if s.Score() != 0 {
					t.Errorf("Score() = %d, want 0", s.Score())
				}
				if s.Phase() != quiz.PhaseInProgress {
					t.Errorf("Phase() = %s, want in_progress", s.Phase())
				}
				if s.TotalQuestions() != len(level.Questions) {
					t.Errorf("TotalQuestions() = %d, want %d", s.TotalQuestions(), len(level.Questions))
				}
			})
		}
	}
}

func TestSession_StartInvalidSelector(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		level   string
	}{
		{"unknown subject", "History", "Easy"},
		{"unknown level", "Math", "Medium"},
		{"level from other subject", "Science", "Hard"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := quiz.NewSession(testCatalog(t))
			err := s.Start(tt.subject, tt.level)
			if !errors.Is(err, quiz.ErrInvalidSelector) {
				t.Fatalf("Start() error = %v, want ErrInvalidSelector", err)
			}
			if s.State() != (quiz.State{}) {
				t.Errorf("State() = %+v, want unchanged idle state", s.State())
			}
		})
	}
}

func TestSession_StartInvalidKeepsActiveAttempt(t *testing.T) {
	s := quiz.NewSession(testCatalog(t))
	mustStart(t, s, "Math", "Hard")
	mustSelect(t, s, "144")
	mustSubmit(t, s)

	before := s.State()
	if err := s.Start("Math", "Nope"); err == nil {
		t.Fatal("Start() should fail for unknown level")
	}
	if s.State() != before {
		t.Errorf("State() = %+v, want %+v", s.State(), before)
	}
}

func TestSession_Scenario(t *testing.T) {
	s := quiz.NewSession(testCatalog(t))

	mustStart(t, s, "Math", "Easy")
	mustSelect(t, s, "4")
	out := mustSubmit(t, s)

	if !out.Correct || out.Finished {
		t.Errorf("first Submit() outcome = %+v, want correct and not finished", out)
	}
	if s.Score() != 1 || s.QuestionIndex() != 1 || s.Phase() != quiz.PhaseInProgress {
		t.Fatalf("after first submit: score=%d index=%d phase=%s, want 1/1/in_progress",
			s.Score(), s.QuestionIndex(), s.Phase())
	}
	if s.SelectedAnswer() != "" {
		t.Errorf("SelectedAnswer() = %q, want cleared after advance", s.SelectedAnswer())
	}

	mustSelect(t, s, "London")
	out = mustSubmit(t, s)

	if out.Correct || !out.Finished {
		t.Errorf("second Submit() outcome = %+v, want incorrect and finished", out)
	}
	if out.CorrectAnswer != "Paris" {
		t.Errorf("Outcome.CorrectAnswer = %q, want Paris", out.CorrectAnswer)
	}
	if s.Score() != 1 || s.Phase() != quiz.PhaseFinished {
		t.Fatalf("after second submit: score=%d phase=%s, want 1/finished", s.Score(), s.Phase())
	}

	res, err := s.Result()
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if res != (quiz.Result{Score: 1, Total: 2}) {
		t.Errorf("Result() = %+v, want {1 2}", res)
	}
	if res.Percent() != 50 {
		t.Errorf("Percent() = %d, want 50", res.Percent())
	}
}

func TestSession_ScoringIsExactMatch(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		wantScore int
	}{
		{"exact", "144", 1},
		{"other option", "124", 0},
		{"not an option", "one hundred forty four", 0},
		{"trailing space", "144 ", 0},
		{"leading space", " 144", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := quiz.NewSession(testCatalog(t))
			mustStart(t, s, "Math", "Hard")
			mustSelect(t, s, tt.answer)
			mustSubmit(t, s)
			if s.Score() != tt.wantScore {
				t.Errorf("Score() = %d, want %d", s.Score(), tt.wantScore)
			}
		})
	}
}

func TestSession_FinishesOnLastRegardlessOfCorrectness(t *testing.T) {
	for _, answer := range []string{"100C", "90C"} {
		s := quiz.NewSession(testCatalog(t))
		mustStart(t, s, "Science", "Easy")
		mustSelect(t, s, answer)
		out := mustSubmit(t, s)

		if !out.Finished || s.Phase() != quiz.PhaseFinished {
			t.Errorf("answer %q: phase = %s, want finished", answer, s.Phase())
		}
		if s.SelectedAnswer() != answer {
			t.Errorf("answer %q: SelectedAnswer() = %q, want kept after finish", answer, s.SelectedAnswer())
		}
		res, err := s.Result()
		if err != nil {
			t.Fatalf("Result() error = %v", err)
		}
		if res.Total != 1 {
			t.Errorf("Result().Total = %d, want 1", res.Total)
		}
	}
}

func TestSession_ProgressFraction(t *testing.T) {
	s := quiz.NewSession(testCatalog(t))
	mustStart(t, s, "Math", "Hard")

	total := float64(s.TotalQuestions())
	want := []float64{1 / total, 2 / total, 3 / total}

	for i, w := range want {
		if got := s.ProgressFraction(); math.Abs(got-w) > 1e-9 {
			t.Errorf("step %d: ProgressFraction() = %v, want %v", i, got, w)
		}
		mustSelect(t, s, "x")
		mustSubmit(t, s)
	}

	if s.Phase() != quiz.PhaseFinished {
		t.Fatalf("Phase() = %s, want finished", s.Phase())
	}
	if got := s.ProgressFraction(); got != 1 {
		t.Errorf("ProgressFraction() after finish = %v, want 1", got)
	}
}

func TestSession_ResetFromEveryPhase(t *testing.T) {
	c := testCatalog(t)

	setups := map[string]func(t *testing.T, s *quiz.Session){
		"idle": func(t *testing.T, s *quiz.Session) {},
		"in progress with selection": func(t *testing.T, s *quiz.Session) {
			mustStart(t, s, "Math", "Hard")
			mustSelect(t, s, "144")
		},
		"in progress mid level": func(t *testing.T, s *quiz.Session) {
			mustStart(t, s, "Math", "Hard")
			mustSelect(t, s, "144")
			mustSubmit(t, s)
		},
		"finished": func(t *testing.T, s *quiz.Session) {
			mustStart(t, s, "Science", "Easy")
			mustSelect(t, s, "100C")
			mustSubmit(t, s)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			s := quiz.NewSession(c)
			setup(t, s)
			s.Reset()

			fresh := quiz.NewSession(c)
			if s.State() != fresh.State() {
				t.Errorf("State() after Reset = %+v, want %+v", s.State(), fresh.State())
			}
			if s.TotalQuestions() != 0 || s.ProgressFraction() != 0 {
				t.Errorf("TotalQuestions/ProgressFraction after Reset = %d/%v, want 0/0",
					s.TotalQuestions(), s.ProgressFraction())
			}
		})
	}
}

func TestSession_SelectAnswerIdempotent(t *testing.T) {
	s := quiz.NewSession(testCatalog(t))
	mustStart(t, s, "Math", "Easy")

	mustSelect(t, s, "3")
	once := s.State()
	mustSelect(t, s, "3")

	if s.State() != once {
		t.Errorf("State() after repeated select = %+v, want %+v", s.State(), once)
	}
}

func TestSession_SelectAnswerOverwrites(t *testing.T) {
	s := quiz.NewSession(testCatalog(t))
	mustStart(t, s, "Math", "Easy")

	mustSelect(t, s, "3")
	mustSelect(t, s, "4")
	if s.SelectedAnswer() != "4" {
		t.Errorf("SelectedAnswer() = %q, want 4", s.SelectedAnswer())
	}
	if s.Score() != 0 {
		t.Errorf("Score() = %d, selecting should not score", s.Score())
	}
}

func TestSession_PreconditionViolations(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		name  string
		setup func(t *testing.T, s *quiz.Session)
		call  func(s *quiz.Session) error
	}{
		{
			name:  "submit without selection",
			setup: func(t *testing.T, s *quiz.Session) { mustStart(t, s, "Math", "Easy") },
			call:  func(s *quiz.Session) error { _, err := s.Submit(); return err },
		},
		{
			name:  "submit while idle",
			setup: func(t *testing.T, s *quiz.Session) {},
			call:  func(s *quiz.Session) error { _, err := s.Submit(); return err },
		},
		{
			name: "submit while finished",
			setup: func(t *testing.T, s *quiz.Session) {
				mustStart(t, s, "Science", "Easy")
				mustSelect(t, s, "100C")
				mustSubmit(t, s)
			},
			call: func(s *quiz.Session) error { _, err := s.Submit(); return err },
		},
		{
			name:  "select while idle",
			setup: func(t *testing.T, s *quiz.Session) {},
			call:  func(s *quiz.Session) error { return s.SelectAnswer("4") },
		},
		{
			name: "select while finished",
			setup: func(t *testing.T, s *quiz.Session) {
				mustStart(t, s, "Science", "Easy")
				mustSelect(t, s, "90C")
				mustSubmit(t, s)
			},
			call: func(s *quiz.Session) error { return s.SelectAnswer("100C") },
		},
		{
			name:  "select empty answer",
			setup: func(t *testing.T, s *quiz.Session) { mustStart(t, s, "Math", "Easy"); mustSelect(t, s, "4") },
			call:  func(s *quiz.Session) error { return s.SelectAnswer("") },
		},
		{
			name:  "current question while idle",
			setup: func(t *testing.T, s *quiz.Session) {},
			call:  func(s *quiz.Session) error { _, err := s.CurrentQuestion(); return err },
		},
		{
			name:  "result while in progress",
			setup: func(t *testing.T, s *quiz.Session) { mustStart(t, s, "Math", "Easy") },
			call:  func(s *quiz.Session) error { _, err := s.Result(); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := quiz.NewSession(c)
			tt.setup(t, s)
			before := s.State()

			err := tt.call(s)
			if !errors.Is(err, quiz.ErrPreconditionViolation) {
				t.Fatalf("error = %v, want ErrPreconditionViolation", err)
			}
			if s.State() != before {
				t.Errorf("State() = %+v, want unchanged %+v", s.State(), before)
			}
		})
	}
}

func TestSession_RestartDiscardsPriorAttempt(t *testing.T) {
	s := quiz.NewSession(testCatalog(t))
	mustStart(t, s, "Math", "Hard")
	mustSelect(t, s, "144")
	mustSubmit(t, s)

	mustStart(t, s, "Science", "Easy")

	want := quiz.State{Phase: quiz.PhaseInProgress, Subject: "Science", Level: "Easy"}
	if s.State() != want {
		t.Errorf("State() after restart = %+v, want %+v", s.State(), want)
	}
	if s.TotalQuestions() != 1 {
		t.Errorf("TotalQuestions() = %d, want 1", s.TotalQuestions())
	}
}

func TestSession_ScoreNeverExceedsTotal(t *testing.T) {
	s := quiz.NewSession(testCatalog(t))
	mustStart(t, s, "Math", "Hard")

	for s.Phase() == quiz.PhaseInProgress {
		q, err := s.CurrentQuestion()
		if err != nil {
			t.Fatalf("CurrentQuestion() error = %v", err)
		}
		mustSelect(t, s, q.CorrectAnswer)
		mustSelect(t, s, q.CorrectAnswer)
		mustSubmit(t, s)
		if s.Score() > s.TotalQuestions() {
			t.Fatalf("Score() = %d exceeds total %d", s.Score(), s.TotalQuestions())
		}
	}

	res, _ := s.Result()
	if res.Score != res.Total || res.Percent() != 100 {
		t.Errorf("Result() = %+v, want perfect score", res)
	}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase quiz.Phase
		want  string
	}{
		{quiz.PhaseIdle, "idle"},
		{quiz.PhaseInProgress, "in_progress"},
		{quiz.PhaseFinished, "finished"},
		{quiz.Phase(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func mustStart(t *testing.T, s *quiz.Session, subject, level string) {
	t.Helper()
	if err := s.Start(subject, level); err != nil {
		t.Fatalf("Start(%q, %q) error = %v", subject, level, err)
	}
}

func mustSelect(t *testing.T, s *quiz.Session, option string) {
	t.Helper()
	if err := s.SelectAnswer(option); err != nil {
		t.Fatalf("SelectAnswer(%q) error = %v", option, err)
	}
}

func mustSubmit(t *testing.T, s *quiz.Session) quiz.Outcome {
	t.Helper()
	out, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	return out
}
