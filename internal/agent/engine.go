package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/message"

	"github.com/p-n-ai/pai-quiz/internal/chat"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

const (
	selectorSeparator = " / "
	progressBarWidth  = 10
)

// EngineConfig holds dependencies for the quiz engine.
type EngineConfig struct {
	Catalog *quiz.Catalog
	Store   *SessionStore // defaults to a new in-memory store
	Events  EventLogger   // defaults to NopEventLogger
}

// Engine turns chat messages into quiz session operations.
type Engine struct {
	catalog *quiz.Catalog
	store   *SessionStore
	events  EventLogger
}

// NewEngine creates a new quiz engine.
func NewEngine(cfg EngineConfig) *Engine {
	store := cfg.Store
	if store == nil {
		store = NewSessionStore(cfg.Catalog)
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	return &Engine{
		catalog: cfg.Catalog,
		store:   store,
		events:  events,
	}
}

// Store returns the engine's session store.
func (e *Engine) Store() *SessionStore {
	return e.store
}

// ProcessMessage handles an incoming message and returns the reply to send.
func (e *Engine) ProcessMessage(_ context.Context, msg chat.InboundMessage) (chat.OutboundMessage, error) {
	slog.Info("processing message",
		"channel", msg.Channel,
		"user_id", msg.UserID,
		"text_len", len(msg.Text),
	)

	us := e.store.Acquire(msg.UserID)
	defer us.Unlock()
	us.Channel = msg.Channel

	p := printerFor(msg.Language)
	text := strings.TrimSpace(msg.Text)

	var reply chat.OutboundMessage
	if strings.HasPrefix(text, "/") {
		reply = e.handleCommand(us, msg, text, p)
	} else {
		reply = e.handleText(us, text, p)
	}

	reply.Channel = msg.Channel
	reply.UserID = msg.UserID
	return reply, nil
}

func (e *Engine) handleCommand(us *UserSession, msg chat.InboundMessage, text string, p *message.Printer) chat.OutboundMessage {
	cmd, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(cmd) {
	case "/start":
		e.reset(us)
		name := msg.FirstName
		if name == "" {
			name = msg.Username
		}
		if name == "" {
			name = p.Sprintf(msgDefaultName)
		}
		return e.subjectList(p, p.Sprintf(msgWelcome, name))
	case "/subjects", "/back":
		e.reset(us)
		return e.subjectList(p, "")
	case "/quiz":
		if args == "" {
			return e.subjectList(p, "")
		}
		return e.startQuiz(us, args, p)
	case "/next", "/submit":
		return e.submit(us, p)
	case "/progress":
		return e.progress(us, p)
	case "/help":
		return chat.OutboundMessage{Text: p.Sprintf(msgHelp)}
	default:
		return chat.OutboundMessage{Text: p.Sprintf(msgUnknownCmd, cmd)}
	}
}

func (e *Engine) handleText(us *UserSession, text string, p *message.Printer) chat.OutboundMessage {
	if us.Quiz.Phase() != quiz.PhaseInProgress {
		return e.startQuiz(us, text, p)
	}

	q, err := us.Quiz.CurrentQuestion()
	if err != nil {
		return chat.OutboundMessage{Text: p.Sprintf(msgNoQuiz)}
	}
	if !q.HasOption(text) {
		reply := e.questionReply(us, p)
		reply.Text = p.Sprintf(msgNotAnOption, text) + "\n\n" + reply.Text
		return reply
	}

	if err := us.Quiz.SelectAnswer(text); err != nil {
		slog.Warn("select answer rejected", "user_id", us.UserID, "error", err)
		return chat.OutboundMessage{Text: p.Sprintf(msgNoQuiz)}
	}

	picked := msgPicked
	if us.Quiz.IsLastQuestion() {
		picked = msgPickedLast
	}
	return chat.OutboundMessage{
		Text:    p.Sprintf(picked, text),
		Buttons: append(append([]string(nil), q.Options...), "/next"),
	}
}

func (e *Engine) startQuiz(us *UserSession, selector string, p *message.Printer) chat.OutboundMessage {
	subject, level, ok := ParseSelector(selector)
	if !ok {
		return e.subjectList(p, p.Sprintf(msgUnknownQuiz, selector))
	}
	if err := us.Quiz.Start(subject, level); err != nil {
		if errors.Is(err, quiz.ErrInvalidSelector) {
			return e.subjectList(p, p.Sprintf(msgUnknownQuiz, selector))
		}
		slog.Error("failed to start quiz", "user_id", us.UserID, "error", err)
		return e.subjectList(p, "")
	}

	us.renew()
	e.logEvent(us, EventQuizStarted, map[string]any{
		"subject": subject,
		"level":   level,
		"total":   us.Quiz.TotalQuestions(),
	})
	return e.questionReply(us, p)
}

func (e *Engine) submit(us *UserSession, p *message.Printer) chat.OutboundMessage {
	switch us.Quiz.Phase() {
	case quiz.PhaseIdle:
		return chat.OutboundMessage{Text: p.Sprintf(msgNoQuiz)}
	case quiz.PhaseFinished:
		return e.resultReply(us, p, "")
	}

	index := us.Quiz.QuestionIndex()
	out, err := us.Quiz.Submit()
	if errors.Is(err, quiz.ErrPreconditionViolation) {
		reply := e.questionReply(us, p)
		reply.Text = p.Sprintf(msgSelectFirst) + "\n\n" + reply.Text
		return reply
	}
	if err != nil {
		slog.Error("submit failed", "user_id", us.UserID, "error", err)
		return chat.OutboundMessage{Text: p.Sprintf(msgNoQuiz)}
	}

	e.logEvent(us, EventAnswerSubmitted, map[string]any{
		"question_index": index,
		"answer":         out.Answer,
		"correct":        out.Correct,
	})

	feedback := p.Sprintf(msgCorrect)
	if !out.Correct {
		feedback = p.Sprintf(msgIncorrect, out.CorrectAnswer)
	}

	if out.Finished {
		res, _ := us.Quiz.Result()
		e.logEvent(us, EventQuizFinished, map[string]any{
			"subject": us.Quiz.Subject(),
			"level":   us.Quiz.Level(),
			"score":   res.Score,
			"total":   res.Total,
		})
		return e.resultReply(us, p, feedback)
	}

	reply := e.questionReply(us, p)
	reply.Text = feedback + "\n\n" + reply.Text
	return reply
}

func (e *Engine) progress(us *UserSession, p *message.Printer) chat.OutboundMessage {
	switch us.Quiz.Phase() {
	case quiz.PhaseIdle:
		return chat.OutboundMessage{Text: p.Sprintf(msgNoQuiz)}
	case quiz.PhaseFinished:
		return e.resultReply(us, p, "")
	}

	status := fmt.Sprintf("%s %d/%d", ProgressBar(us.Quiz.ProgressFraction(), progressBarWidth),
		us.Quiz.QuestionIndex()+1, us.Quiz.TotalQuestions())
	reply := e.questionReply(us, p)
	reply.Text = p.Sprintf(msgProgress, status) + "\n\n" + reply.Text
	return reply
}

func (e *Engine) reset(us *UserSession) {
	if us.Quiz.Phase() == quiz.PhaseInProgress {
		e.logEvent(us, EventQuizReset, map[string]any{
			"subject":        us.Quiz.Subject(),
			"level":          us.Quiz.Level(),
			"question_index": us.Quiz.QuestionIndex(),
		})
	}
	us.Quiz.Reset()
}

func (e *Engine) questionReply(us *UserSession, p *message.Printer) chat.OutboundMessage {
	q, err := us.Quiz.CurrentQuestion()
	if err != nil {
		return chat.OutboundMessage{Text: p.Sprintf(msgNoQuiz)}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", us.Quiz.Subject(), us.Quiz.Level())
	fmt.Fprintf(&b, "%s %s\n\n", ProgressBar(us.Quiz.ProgressFraction(), progressBarWidth),
		p.Sprintf(msgQuestionOf, us.Quiz.QuestionIndex()+1, us.Quiz.TotalQuestions()))
	b.WriteString(q.Text)
	b.WriteString("\n\n")
	b.WriteString(p.Sprintf(msgPickOption))

	return chat.OutboundMessage{
		Text:    b.String(),
		Buttons: append([]string(nil), q.Options...),
	}
}

func (e *Engine) resultReply(us *UserSession, p *message.Printer, feedback string) chat.OutboundMessage {
	res, err := us.Quiz.Result()
	if err != nil {
		return chat.OutboundMessage{Text: p.Sprintf(msgNoQuiz)}
	}

	var b strings.Builder
	if feedback != "" {
		b.WriteString(feedback)
		b.WriteString("\n\n")
	}
	b.WriteString(p.Sprintf(msgResults))
	b.WriteString("\n")
	b.WriteString(p.Sprintf(msgScore, res.Score, res.Total, res.Percent()))
	b.WriteString("\n")
	b.WriteString(p.Sprintf(msgBackHint))

	return chat.OutboundMessage{
		Text:    b.String(),
		Buttons: []string{"/back"},
	}
}

func (e *Engine) subjectList(p *message.Printer, header string) chat.OutboundMessage {
	labels := SelectorLabels(e.catalog)

	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString("\n\n")
	}
	if len(labels) == 0 {
		b.WriteString(p.Sprintf(msgNoQuizzes))
		return chat.OutboundMessage{Text: b.String()}
	}

	b.WriteString(p.Sprintf(msgAvailable))
	for _, s := range e.catalog.Subjects() {
		levels := make([]string, 0, len(s.Levels))
		for _, l := range s.Levels {
			levels = append(levels, l.Name)
		}
		fmt.Fprintf(&b, "\n- %s: %s", s.Name, strings.Join(levels, ", "))
	}

	return chat.OutboundMessage{Text: b.String(), Buttons: labels}
}

func (e *Engine) logEvent(us *UserSession, eventType string, data map[string]any) {
	err := e.events.LogEvent(Event{
		SessionID: us.ID,
		UserID:    us.UserID,
		Channel:   us.Channel,
		EventType: eventType,
		Data:      data,
	})
	if err != nil {
		slog.Warn("failed to log event", "type", eventType, "session_id", us.ID, "error", err)
	}
}

// SelectorLabel renders the button label that starts subject/level.
func SelectorLabel(subject, level string) string {
	return subject + selectorSeparator + level
}

// ParseSelector splits a SelectorLabel back into subject and level.
func ParseSelector(s string) (subject, level string, ok bool) {
	i := strings.LastIndex(s, selectorSeparator)
	if i <= 0 {
		return "", "", false
	}
	subject = strings.TrimSpace(s[:i])
	level = strings.TrimSpace(s[i+len(selectorSeparator):])
	return subject, level, subject != "" && level != ""
}

// SelectorLabels lists a label for every subject/level pair in catalog order.
func SelectorLabels(c *quiz.Catalog) []string {
	var labels []string
	for _, s := range c.Subjects() {
		for _, l := range s.Levels {
			labels = append(labels, SelectorLabel(s.Name, l.Name))
		}
	}
	return labels
}

// ProgressBar renders fraction (0..1) as a fixed-width bar.
func ProgressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("▓", filled) + strings.Repeat("░", width-filled)
}
