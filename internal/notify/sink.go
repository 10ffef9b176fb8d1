package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sink delivers one reminder.
type Sink interface {
	Name() string
	Send(ctx context.Context, title, body string) error
}

// Terminal prints reminders to a terminal, usually stderr.
type Terminal struct {
	Out io.Writer
	Now func() time.Time
}

// Name implements Sink.
func (t *Terminal) Name() string { return "terminal" }

// Send writes a highlighted reminder line and rings the bell.
func (t *Terminal) Send(_ context.Context, title, body string) error {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	stamp := color.New(color.FgHiBlack).Sprint(now().Format("15:04"))
	head := color.New(color.FgYellow, color.Bold).Sprint("⏰ " + title)
	line := head
	if body != "" && body != title {
		line += " " + body
	}
	_, err := fmt.Fprintf(t.Out, "\a%s %s\n", stamp, line)
	return err
}

// botSender is the part of tgbotapi.BotAPI used to deliver messages.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram sends reminders to one chat through a bot. The Bot API is
// contacted on the first send, not when the sink is built.
type Telegram struct {
	token  string
	chatID int64
	dial   func(token string) (botSender, error)

	mu  sync.Mutex
	api botSender
}

// NewTelegram returns a sink for chatID. It does not touch the network.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram sink needs a bot token and chat id")
	}
	return &Telegram{token: token, chatID: chatID, dial: dialBot}, nil
}

func dialBot(token string) (botSender, error) {
	return tgbotapi.NewBotAPI(token)
}

// Name implements Sink.
func (t *Telegram) Name() string { return "telegram" }

// Connect logs in to the Bot API unless already connected. A failed
// attempt is retried by the next call.
func (t *Telegram) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.api != nil {
		return nil
	}
	api, err := t.dial(t.token)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	t.api = api
	return nil
}

// Send posts the reminder as an HTML message.
func (t *Telegram) Send(_ context.Context, title, body string) error {
	if err := t.Connect(); err != nil {
		return err
	}
	text := "⏰ <b>" + title + "</b>"
	if body != "" && body != title {
		text += "\n\n" + body
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
