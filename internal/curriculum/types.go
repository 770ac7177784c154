package curriculum

import "github.com/p-n-ai/pai-quiz/internal/quiz"

// SubjectFile is the on-disk shape of one subject. YAML files hold a single
// subject; JSON files hold an array of them.
type SubjectFile struct {
	Subject string      `yaml:"subject" json:"subject"`
	Levels  []LevelFile `yaml:"levels" json:"levels"`
}

// LevelFile is a difficulty level within a SubjectFile.
type LevelFile struct {
	Level     string         `yaml:"level" json:"level"`
	Questions []QuestionFile `yaml:"questions" json:"questions"`
}

// QuestionFile is a single question within a LevelFile.
type QuestionFile struct {
	Question      string   `yaml:"question" json:"question"`
	Options       []string `yaml:"options" json:"options"`
	CorrectAnswer string   `yaml:"correct_answer" json:"correctAnswer"`
}

func (f SubjectFile) toSubject() quiz.Subject {
	s := quiz.Subject{
		Name:   f.Subject,
		Levels: make([]quiz.Level, 0, len(f.Levels)),
	}
	for _, lf := range f.Levels {
		l := quiz.Level{
			Name:      lf.Level,
			Questions: make([]quiz.Question, 0, len(lf.Questions)),
		}
		for _, qf := range lf.Questions {
			l.Questions = append(l.Questions, quiz.Question{
				Text:          qf.Question,
				Options:       append([]string(nil), qf.Options...),
				CorrectAnswer: qf.CorrectAnswer,
			})
		}
		s.Levels = append(s.Levels, l)
	}
	return s
}
