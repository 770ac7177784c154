package agent

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Reply texts are English format strings; other languages are registered
// against the same keys.
const (
	msgWelcome     = "Hi %s! Pick a subject and level to start a quiz."
	msgDefaultName = "there"
	msgAvailable   = "Available quizzes:"
	msgNoQuizzes   = "No quizzes are available right now."
	msgQuestionOf  = "Question %d of %d"
	msgPickOption  = "Pick one of the options below."
	msgPicked      = "You picked: %s\nSend /next to submit."
	msgPickedLast  = "You picked: %s\nSend /next to finish."
	msgCorrect     = "Correct! 🎉"
	msgIncorrect   = "Not quite. The correct answer is %s."
	msgResults     = "Quiz results"
	msgScore       = "Your score: %d / %d (%d%%)"
	msgBackHint    = "Send /back to return to the subjects."
	msgUnknownQuiz = "Unknown quiz: %s"
	msgSelectFirst = "Please choose one of the options first."
	msgNotAnOption = "%s is not one of the options."
	msgNoQuiz      = "No quiz in progress. Send /subjects to pick one."
	msgUnknownCmd  = "Unknown command: %s\nSend /help to see what I understand."
	msgProgress    = "Progress: %s"
	msgHelp        = "How to play:\n/subjects - choose a subject and level\nTap an option to select it, then /next to submit\n/progress - show how far you are\n/back - return to the subjects"
)

var supportedLanguages = []language.Tag{language.English, language.Malay}

var languageMatcher = language.NewMatcher(supportedLanguages)

func init() {
	ms := language.Malay
	for key, text := range map[string]string{
		msgWelcome:     "Hai %s! Pilih subjek dan tahap untuk mula kuiz.",
		msgDefaultName: "pelajar",
		msgAvailable:   "Kuiz yang ada:",
		msgNoQuizzes:   "Tiada kuiz buat masa ini.",
		msgQuestionOf:  "Soalan %d daripada %d",
		msgPickOption:  "Pilih satu jawapan di bawah.",
		msgPicked:      "Pilihan anda: %s\nHantar /next untuk teruskan.",
		msgPickedLast:  "Pilihan anda: %s\nHantar /next untuk tamat.",
		msgCorrect:     "Betul! 🎉",
		msgIncorrect:   "Kurang tepat. Jawapan betul ialah %s.",
		msgResults:     "Keputusan kuiz",
		msgScore:       "Markah anda: %d / %d (%d%%)",
		msgBackHint:    "Hantar /back untuk kembali ke senarai subjek.",
		msgUnknownQuiz: "Kuiz tidak dijumpai: %s",
		msgSelectFirst: "Sila pilih satu jawapan dahulu.",
		msgNotAnOption: "%s bukan salah satu pilihan.",
		msgNoQuiz:      "Tiada kuiz sedang berjalan. Hantar /subjects untuk memilih.",
		msgUnknownCmd:  "Arahan tidak diketahui: %s\nHantar /help untuk bantuan.",
		msgProgress:    "Kemajuan: %s",
		msgHelp:        "Cara bermain:\n/subjects - pilih subjek dan tahap\nTekan satu pilihan, kemudian /next untuk hantar\n/progress - lihat kemajuan\n/back - kembali ke senarai subjek",
	} {
		if err := message.SetString(ms, key, text); err != nil {
			panic(err)
		}
	}
}

// printerFor returns a printer for the closest supported language to lang.
// Unknown or empty tags fall back to English.
func printerFor(lang string) *message.Printer {
	_, idx := language.MatchStrings(languageMatcher, lang)
	return message.NewPrinter(supportedLanguages[idx])
}
