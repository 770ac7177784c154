package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMessageLen = 4096
	telegramPollTimeout   = 30 // seconds
)

// TelegramCommands are registered with setMyCommands on start.
var TelegramCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Start over and list subjects"},
	{Command: "subjects", Description: "Choose a subject and level"},
	{Command: "next", Description: "Submit the selected answer"},
	{Command: "progress", Description: "Show quiz progress"},
	{Command: "back", Description: "Back to subjects"},
	{Command: "help", Description: "How to play"},
}

// TelegramChannel implements the Channel interface for Telegram Bot API.
type TelegramChannel struct {
	token       string
	apiEndpoint string
	client      *http.Client

	mu       sync.Mutex
	api      *tgbotapi.BotAPI
	stop     chan struct{}
	stopOnce sync.Once
}

// NewTelegramChannel creates a Telegram channel adapter. The bot API is not
// contacted until Start.
func NewTelegramChannel(token string) (*TelegramChannel, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required (QUIZ_TELEGRAM_BOT_TOKEN)")
	}
	return &TelegramChannel{
		token:       token,
		apiEndpoint: tgbotapi.APIEndpoint,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		stop: make(chan struct{}),
	}, nil
}

func (t *TelegramChannel) connect() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.api != nil {
		return t.api, nil
	}
	api, err := tgbotapi.NewBotAPIWithClient(t.token, t.apiEndpoint, t.client)
	if err != nil {
		return nil, fmt.Errorf("connecting to Telegram: %w", err)
	}
	t.api = api
	return api, nil
}

func (t *TelegramChannel) bot() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.api == nil {
		return nil, fmt.Errorf("telegram channel not started")
	}
	return t.api, nil
}

func (t *TelegramChannel) SendTyping(_ context.Context, userID string) error {
	api, err := t.bot()
	if err != nil {
		return err
	}
	chatID, err := parseChatID(userID)
	if err != nil {
		return err
	}
	if _, err := api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		return fmt.Errorf("sending typing indicator: %w", err)
	}
	return nil
}

func (t *TelegramChannel) SendMessage(_ context.Context, userID string, msg OutboundMessage) error {
	api, err := t.bot()
	if err != nil {
		return err
	}
	chatID, err := parseChatID(userID)
	if err != nil {
		return err
	}

	parts := SplitMessage(msg.Text, telegramMaxMessageLen)
	for i, part := range parts {
		out := tgbotapi.NewMessage(chatID, part)
		out.ParseMode = msg.ParseMode
		if i == len(parts)-1 && len(msg.Buttons) > 0 {
			out.ReplyMarkup = replyKeyboard(msg.Buttons)
		}

		_, err := api.Send(out)
		if err == nil {
			continue
		}

		// If Markdown parsing fails, retry without parse mode
		var apiErr *tgbotapi.Error
		if msg.ParseMode != "" && errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest {
			slog.Warn("Telegram markdown parse failed, retrying plain")
			out.ParseMode = ""
			if _, err := api.Send(out); err != nil {
				return fmt.Errorf("sending Telegram message (retry): %w", err)
			}
			continue
		}
		return fmt.Errorf("sending Telegram message: %w", err)
	}

	return nil
}

func (t *TelegramChannel) Start(ctx context.Context, handler func(InboundMessage)) error {
	api, err := t.connect()
	if err != nil {
		return err
	}
	if err := t.syncCommands(); err != nil {
		slog.Warn("failed to register Telegram commands", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = telegramPollTimeout
	updates := api.GetUpdatesChan(u)

	go t.pollLoop(ctx, api, updates, handler)
	return nil
}

func (t *TelegramChannel) Stop() error {
	t.stopOnce.Do(func() {
		close(t.stop)
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.api != nil {
			t.api.StopReceivingUpdates()
		}
	})
	return nil
}

func (t *TelegramChannel) syncCommands() error {
	api, err := t.bot()
	if err != nil {
		return err
	}
	if _, err := api.Request(tgbotapi.NewSetMyCommands(TelegramCommands...)); err != nil {
		return fmt.Errorf("setMyCommands: %w", err)
	}
	return nil
}

func (t *TelegramChannel) pollLoop(ctx context.Context, api *tgbotapi.BotAPI, updates tgbotapi.UpdatesChannel, handler func(InboundMessage)) {
	slog.Info("Telegram long-polling started", "bot", api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return
		case <-t.stop:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			msg, ok := mapTelegramInbound(u)
			if !ok {
				continue
			}
			// Inline so each chat's messages reach the engine in order.
			handler(msg)
		}
	}
}

// SplitMessage splits text into chunks that fit Telegram's max message length.
func SplitMessage(text string, maxLen int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}
		// Find last newline or space within limit
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > 0 {
			cutAt = idx + 1
		} else if idx := strings.LastIndex(text[:maxLen], " "); idx > 0 {
			cutAt = idx + 1
		}
		parts = append(parts, text[:cutAt])
		text = text[cutAt:]
	}
	return parts
}

// replyKeyboard lays buttons out one per row so long answers stay readable.
func replyKeyboard(buttons []string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(b)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func mapTelegramInbound(u tgbotapi.Update) (InboundMessage, bool) {
	if u.Message == nil || u.Message.Chat == nil {
		return InboundMessage{}, false
	}

	text := strings.TrimSpace(u.Message.Text)
	if text == "" {
		text = strings.TrimSpace(u.Message.Caption)
	}
	if text == "" {
		return InboundMessage{}, false
	}

	msg := InboundMessage{
		Channel: "telegram",
		UserID:  strconv.FormatInt(u.Message.Chat.ID, 10),
		Text:    text,
	}
	if from := u.Message.From; from != nil {
		msg.ExternalID = strconv.FormatInt(from.ID, 10)
		msg.Username = from.UserName
		msg.FirstName = from.FirstName
		msg.LastName = from.LastName
		msg.Language = from.LanguageCode
	}

	return msg, true
}

func parseChatID(userID string) (int64, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid Telegram chat id %q: %w", userID, err)
	}
	return id, nil
}
