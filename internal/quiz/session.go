package quiz

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSelector is returned by Start when the subject/level pair is not in the catalog.
	ErrInvalidSelector = errors.New("invalid subject or level")
	// ErrPreconditionViolation is returned when an operation is not allowed in the current phase.
	ErrPreconditionViolation = errors.New("precondition violation")
)

// Phase is the coarse lifecycle state of a session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInProgress
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInProgress:
		return "in_progress"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// State is a comparable snapshot of a session's cursors.
type State struct {
	Phase          Phase
	Subject        string
	Level          string
	QuestionIndex  int
	SelectedAnswer string
	Score          int
}

// Outcome describes what a Submit did.
type Outcome struct {
	Question      Question
	Answer        string
	CorrectAnswer string
	Correct       bool
	Finished      bool
}

// Result is the final score of a finished session.
type Result struct {
	Score int
	Total int
}

// Percent returns the score as a whole percentage.
func (r Result) Percent() int {
	if r.Total == 0 {
		return 0
	}
	return r.Score * 100 / r.Total
}

// Session tracks one attempt at one level. It is not safe for concurrent use.
type Session struct {
	catalog *Catalog
	level   Level
	state   State
}

// NewSession creates an idle session over catalog.
func NewSession(catalog *Catalog) *Session {
	return &Session{catalog: catalog}
}

// Start begins the given level from its first question, discarding any prior attempt.
func (s *Session) Start(subject, level string) error {
	l, ok := s.catalog.Level(subject, level)
	if !ok {
		return fmt.Errorf("%w: %q / %q", ErrInvalidSelector, subject, level)
	}

	s.level = l
	s.state = State{
		Phase:   PhaseInProgress,
		Subject: subject,
		Level:   level,
	}
	return nil
}

// SelectAnswer records option as the answer to the current question.
func (s *Session) SelectAnswer(option string) error {
	if s.state.Phase != PhaseInProgress {
		return fmt.Errorf("%w: select answer while %s", ErrPreconditionViolation, s.state.Phase)
	}
	if option == "" {
		return fmt.Errorf("%w: empty answer", ErrPreconditionViolation)
	}
	s.state.SelectedAnswer = option
	return nil
}

// Submit scores the selected answer and moves to the next question,
// or finishes the session after the last one.
func (s *Session) Submit() (Outcome, error) {
	if s.state.Phase != PhaseInProgress {
		return Outcome{}, fmt.Errorf("%w: submit while %s", ErrPreconditionViolation, s.state.Phase)
	}
	if s.state.SelectedAnswer == "" {
		return Outcome{}, fmt.Errorf("%w: no answer selected", ErrPreconditionViolation)
	}

	q := s.level.Questions[s.state.QuestionIndex]
	out := Outcome{
		Question:      q,
		Answer:        s.state.SelectedAnswer,
		CorrectAnswer: q.CorrectAnswer,
		Correct:       q.IsCorrect(s.state.SelectedAnswer),
	}
	if out.Correct {
		s.state.Score++
	}

	if s.IsLastQuestion() {
		s.state.Phase = PhaseFinished
		out.Finished = true
		return out, nil
	}

	s.state.QuestionIndex++
	s.state.SelectedAnswer = ""
	return out, nil
}

// Reset returns the session to a fresh idle state.
func (s *Session) Reset() {
	s.level = Level{}
	s.state = State{}
}

// CurrentQuestion returns the question at the cursor.
func (s *Session) CurrentQuestion() (Question, error) {
	if s.state.Phase != PhaseInProgress {
		return Question{}, fmt.Errorf("%w: no question while %s", ErrPreconditionViolation, s.state.Phase)
	}
	return s.level.Questions[s.state.QuestionIndex], nil
}

// ProgressFraction returns (index+1)/total for the active level, or 0 when idle.
func (s *Session) ProgressFraction() float64 {
	total := len(s.level.Questions)
	if s.state.Phase == PhaseIdle || total == 0 {
		return 0
	}
	return float64(s.state.QuestionIndex+1) / float64(total)
}

// Result returns the final score. Only valid once finished.
func (s *Session) Result() (Result, error) {
	if s.state.Phase != PhaseFinished {
		return Result{}, fmt.Errorf("%w: no result while %s", ErrPreconditionViolation, s.state.Phase)
	}
	return Result{Score: s.state.Score, Total: len(s.level.Questions)}, nil
}

// IsLastQuestion reports whether the cursor is on the level's final question.
func (s *Session) IsLastQuestion() bool {
	return s.state.Phase != PhaseIdle && s.state.QuestionIndex == len(s.level.Questions)-1
}

func (s *Session) Phase() Phase           { return s.state.Phase }
func (s *Session) State() State           { return s.state }
func (s *Session) Score() int             { return s.state.Score }
func (s *Session) QuestionIndex() int     { return s.state.QuestionIndex }
func (s *Session) SelectedAnswer() string { return s.state.SelectedAnswer }
func (s *Session) Subject() string        { return s.state.Subject }
func (s *Session) Level() string          { return s.state.Level }

// TotalQuestions returns the question count of the active level, or 0 when idle.
func (s *Session) TotalQuestions() int {
	return len(s.level.Questions)
}
