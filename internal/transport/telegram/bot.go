// Package telegram mirrors the toast store into a Telegram chat: one
// message per toast, edited as it changes and deleted once it is removed.
// The inline Dismiss button closes the toast like any other client.
package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "toastd/pkg/logx"
	"toastd/pkg/tgui"
)

const dismissAction = "dismiss"

// Messenger is the chat surface the mirror drives. Bot implements it
// with telebot; tests use a fake.
type Messenger interface {
	// Send posts text. A non-empty toastID attaches a Dismiss button for it.
	Send(ctx context.Context, text, toastID string) (messageID int, err error)
	// Edit replaces the text; an empty toastID drops the button.
	Edit(ctx context.Context, messageID int, text, toastID string) error
	Delete(ctx context.Context, messageID int) error
	// OnDismiss registers the Dismiss button handler.
	OnDismiss(fn func(ctx context.Context, toastID, callbackID string))
	Answer(ctx context.Context, callbackID, text string) error
}

// BotConfig selects the chat every toast goes to.
type BotConfig struct {
	Token       string
	ChatID      int64
	ThreadID    int // forum topic, 0 if none
	PollTimeout time.Duration
}

// Bot is the telebot-backed Messenger.
type Bot struct {
	cfg BotConfig
	log logx.Logger
	bot *tele.Bot

	mu        sync.RWMutex
	onDismiss func(ctx context.Context, toastID, callbackID string)
}

func NewBot(cfg BotConfig, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout, AllowedUpdates: []string{"callback_query"}},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	t := &Bot{cfg: cfg, log: log, bot: b}
	b.Handle(tele.OnCallback, t.handleCallback)
	return t, nil
}

func (b *Bot) handleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	action, toastID, ok := tgui.Parse(cb.Data)
	if !ok || action != dismissAction || toastID == "" {
		return c.Respond()
	}
	if m := c.Message(); m != nil && m.Chat != nil && m.Chat.ID != b.cfg.ChatID {
		return c.Respond(&tele.CallbackResponse{Text: "Not mirrored here."})
	}

	b.mu.RLock()
	fn := b.onDismiss
	b.mu.RUnlock()
	if fn == nil {
		return c.Respond()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fn(ctx, toastID, cb.ID)
	return nil
}

// Poll runs the long-poll loop until ctx is done.
func (b *Bot) Poll(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.bot.Stop()
		case <-stopped:
		}
	}()

	b.log.Info("polling started")
	b.bot.Start()
	close(stopped)
	b.log.Info("polling stopped")

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.New("telegram poller exited")
}

func (b *Bot) OnDismiss(fn func(ctx context.Context, toastID, callbackID string)) {
	b.mu.Lock()
	b.onDismiss = fn
	b.mu.Unlock()
}

func (b *Bot) options(toastID string) *tele.SendOptions {
	opt := &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		ThreadID:              b.cfg.ThreadID,
	}
	// Edits without markup drop the keyboard.
	if toastID == "" {
		return opt
	}
	data, err := tgui.Data(dismissAction, toastID)
	if err != nil {
		b.log.Warn("dismiss button skipped", logx.String("toast_id", toastID), logx.Err(err))
		return opt
	}
	opt.ReplyMarkup = &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{
		{Text: "Dismiss", Data: data},
	}}}
	return opt
}

func (b *Bot) Send(ctx context.Context, text, toastID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg, err := b.bot.Send(&tele.Chat{ID: b.cfg.ChatID}, text, b.options(toastID))
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (b *Bot) Edit(ctx context.Context, messageID int, text, toastID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.bot.Edit(b.stored(messageID), text, b.options(toastID))
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (b *Bot) Delete(ctx context.Context, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.bot.Delete(b.stored(messageID))
}

func (b *Bot) Answer(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
}

func (b *Bot) stored(messageID int) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: b.cfg.ChatID}
}
