// Package quiz holds the quiz catalog and the per-attempt session state machine.
package quiz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCatalog is returned when catalog data breaks a structural invariant.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Question is a single multiple-choice question.
type Question struct {
	Text          string
	Options       []string
	CorrectAnswer string
}

// IsCorrect reports whether answer matches the correct answer exactly.
func (q Question) IsCorrect(answer string) bool {
	return answer == q.CorrectAnswer
}

// HasOption reports whether option is one of the question's options.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// Level is a named difficulty tier within a subject.
type Level struct {
	Name      string
	Questions []Question
}

// Subject groups levels under a name (e.g., Math).
type Subject struct {
	Name   string
	Levels []Level
}

// Catalog values never share slices with callers.
func (s Subject) clone() Subject {
	levels := make([]Level, len(s.Levels))
	for i, l := range s.Levels {
		levels[i] = l.clone()
	}
	s.Levels = levels
	return s
}

func (l Level) clone() Level {
	questions := make([]Question, len(l.Questions))
	for i, q := range l.Questions {
		q.Options = append([]string(nil), q.Options...)
		questions[i] = q
	}
	l.Questions = questions
	return l
}

type levelKey struct {
	subject string
	level   string
}

// Catalog is the read-only tree of subjects, levels and questions.
type Catalog struct {
	subjects  []Subject
	bySubject map[string]int
	byLevel   map[levelKey]int
}

// NewCatalog validates subjects and indexes them by name.
func NewCatalog(subjects []Subject) (*Catalog, error) {
	c := &Catalog{
		subjects:  make([]Subject, 0, len(subjects)),
		bySubject: make(map[string]int, len(subjects)),
		byLevel:   make(map[levelKey]int),
	}

	for _, s := range subjects {
		if err := validateSubject(s); err != nil {
			return nil, err
		}
		if _, dup := c.bySubject[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate subject %q", ErrInvalidCatalog, s.Name)
		}
		c.bySubject[s.Name] = len(c.subjects)
		for i, l := range s.Levels {
			c.byLevel[levelKey{s.Name, l.Name}] = i
		}
		c.subjects = append(c.subjects, s.clone())
	}

	return c, nil
}

func validateSubject(s Subject) error {
	if s.Name == "" {
		return fmt.Errorf("%w: subject name is empty", ErrInvalidCatalog)
	}
	if len(s.Levels) == 0 {
		return fmt.Errorf("%w: subject %q has no levels", ErrInvalidCatalog, s.Name)
	}

	seen := make(map[string]bool, len(s.Levels))
	for _, l := range s.Levels {
		if l.Name == "" {
			return fmt.Errorf("%w: subject %q has a level with no name", ErrInvalidCatalog, s.Name)
		}
		if seen[l.Name] {
			return fmt.Errorf("%w: subject %q has duplicate level %q", ErrInvalidCatalog, s.Name, l.Name)
		}
		seen[l.Name] = true

		if len(l.Questions) == 0 {
			return fmt.Errorf("%w: %s/%s has no questions", ErrInvalidCatalog, s.Name, l.Name)
		}
		for i, q := range l.Questions {
			if err := validateQuestion(q); err != nil {
				return fmt.Errorf("%s/%s question %d: %w", s.Name, l.Name, i+1, err)
			}
		}
	}
	return nil
}

func validateQuestion(q Question) error {
	if q.Text == "" {
		return fmt.Errorf("%w: question text is empty", ErrInvalidCatalog)
	}
	if len(q.Options) == 0 {
		return fmt.Errorf("%w: question %q has no options", ErrInvalidCatalog, q.Text)
	}

	seen := make(map[string]bool, len(q.Options))
	for _, o := range q.Options {
		if o == "" || o != strings.TrimSpace(o) || strings.HasPrefix(o, "/") {
			return fmt.Errorf("%w: question %q has option %q that cannot be typed as an answer", ErrInvalidCatalog, q.Text, o)
		}
		if seen[o] {
			return fmt.Errorf("%w: question %q repeats option %q", ErrInvalidCatalog, q.Text, o)
		}
		seen[o] = true
	}
	if !seen[q.CorrectAnswer] {
		return fmt.Errorf("%w: correct answer %q of %q is not an option", ErrInvalidCatalog, q.CorrectAnswer, q.Text)
	}
	return nil
}

// Subjects returns a deep copy of all subjects in load order.
func (c *Catalog) Subjects() []Subject {
	out := make([]Subject, len(c.subjects))
	for i, s := range c.subjects {
		out[i] = s.clone()
	}
	return out
}

// Subject returns a subject by name.
func (c *Catalog) Subject(name string) (Subject, bool) {
	i, ok := c.bySubject[name]
	if !ok {
		return Subject{}, false
	}
	return c.subjects[i].clone(), true
}

// Level returns the named level of the named subject.
func (c *Catalog) Level(subject, level string) (Level, bool) {
	si, ok := c.bySubject[subject]
	if !ok {
		return Level{}, false
	}
	li, ok := c.byLevel[levelKey{subject, level}]
	if !ok {
		return Level{}, false
	}
	return c.subjects[si].Levels[li].clone(), true
}

// Len returns the number of subjects.
func (c *Catalog) Len() int {
	return len(c.subjects)
}
