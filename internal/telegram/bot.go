package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/Kerhoff/remindbot/internal/chat"
	"github.com/Kerhoff/remindbot/internal/models"
)

// Bot wraps the Telegram bot API. It is the chat.Notifier of the application.
type Bot struct {
	api     *tgbotapi.BotAPI
	logger  *logrus.Logger
	router  *Router
	running atomic.Bool
}

var _ chat.Notifier = (*Bot)(nil)

// NewBot creates a new Telegram bot instance
func NewBot(token string, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:    api,
		logger: logger,
	}, nil
}

// Start starts the bot with long polling and blocks until ctx is done.
// Each update is handled in its own goroutine; the dispatcher orders a chat's updates.
func (b *Bot) Start(ctx context.Context, dispatcher Dispatcher) error {
	if !b.running.CAS(false, true) {
		return fmt.Errorf("bot is already running")
	}
	defer b.running.Store(false)

	b.router = NewRouter(b.logger, dispatcher)

	// Delete webhook if exists and use polling
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot started with long polling")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping bot...")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// Running reports whether the bot is polling for updates.
func (b *Bot) Running() bool {
	return b.running.Load()
}

// handleUpdate processes incoming updates
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("Panic in update handler: %v", r)
		}
	}()

	switch {
	case update.Message != nil:
		reply, ok := b.router.HandleMessage(ctx, update.Message)
		if ok {
			b.send(update.Message.Chat.ID, 0, reply)
		}
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		// Answer the callback query to remove loading state
		if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
			b.logger.WithError(err).Warn("Failed to answer callback query")
		}
		reply, ok := b.router.HandleCallbackQuery(ctx, q)
		if ok {
			b.send(q.Message.Chat.ID, q.Message.MessageID, reply)
		}
	}
}

// send renders a reply. When the reply asks to replace and the update came from
// a button, the message carrying the button is edited instead.
func (b *Bot) send(chatID int64, originID int, reply chat.Reply) {
	if reply.Text == "" {
		return
	}
	keyboard := InlineKeyboard(reply)

	if reply.Replace && originID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, originID, reply.Text)
		edit.ReplyMarkup = keyboard
		if reply.Markdown {
			edit.ParseMode = tgbotapi.ModeMarkdown
		}
		_, err := b.api.Send(edit)
		if err == nil {
			return
		}
		b.logger.WithError(err).WithField("chat_id", chatID).Debug("Edit failed, sending a new message")
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	switch {
	case keyboard != nil:
		msg.ReplyMarkup = *keyboard
	case reply.MainMenu:
		msg.ReplyMarkup = MainMenuKeyboard()
	}

	if _, err := b.api.Send(msg); err != nil {
		b.logger.WithError(err).WithField("chat_id", chatID).Error("Failed to send reply")
	}
}

// Deliver sends a plain text message.
func (b *Bot) Deliver(ctx context.Context, chatID int64, text string) error {
	if err := b.sendContext(ctx, tgbotapi.NewMessage(chatID, text)); err != nil {
		return &models.DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// SendImage sends a previously uploaded photo by its file id.
func (b *Bot) SendImage(ctx context.Context, chatID int64, imageRef, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(imageRef))
	photo.Caption = caption
	if err := b.sendContext(ctx, photo); err != nil {
		return &models.DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// sendContext sends c and gives up when ctx is done. tgbotapi has no context
// support, so an abandoned request finishes in the background.
func (b *Bot) sendContext(ctx context.Context, c tgbotapi.Chattable) error {
	return withContext(ctx, func() error {
		_, err := b.api.Send(c)
		return err
	})
}

func withContext(ctx context.Context, send func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- send() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
