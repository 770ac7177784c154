package curriculum

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// Spreadsheet columns: Subject | Level | Question | Correct | Option 1..n.
const (
	colSubject = iota
	colLevel
	colQuestion
	colCorrect
	colFirstOption
)

// loadXLSX reads every sheet of a workbook, one question per row. Rows are
// grouped by subject and level in order of first appearance.
func loadXLSX(path string) ([]quiz.Subject, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var subjects []quiz.Subject
	subjectIdx := make(map[string]int)
	levelIdx := make(map[[2]string]int)

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		for n, row := range rows {
			if isBlankRow(row) {
				continue
			}
			if n == 0 && strings.EqualFold(strings.TrimSpace(row[colSubject]), "subject") {
				continue // header
			}
			if len(row) <= colFirstOption {
				return nil, fmt.Errorf("sheet %q row %d: want subject, level, question, correct answer and at least one option", sheet, n+1)
			}

			subject := strings.TrimSpace(row[colSubject])
			level := strings.TrimSpace(row[colLevel])
			q := quiz.Question{
				Text:          strings.TrimSpace(row[colQuestion]),
				CorrectAnswer: strings.TrimSpace(row[colCorrect]),
			}
			for _, opt := range row[colFirstOption:] {
				if opt = strings.TrimSpace(opt); opt != "" {
					q.Options = append(q.Options, opt)
				}
			}

			si, ok := subjectIdx[subject]
			if !ok {
				si = len(subjects)
				subjectIdx[subject] = si
				subjects = append(subjects, quiz.Subject{Name: subject})
			}
			key := [2]string{subject, level}
			li, ok := levelIdx[key]
			if !ok {
				li = len(subjects[si].Levels)
				levelIdx[key] = li
				subjects[si].Levels = append(subjects[si].Levels, quiz.Level{Name: level})
			}
			subjects[si].Levels[li].Questions = append(subjects[si].Levels[li].Questions, q)
		}
	}

	return subjects, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
