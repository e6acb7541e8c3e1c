package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/chat"
)

// Dispatcher is the bot core as seen by the transport.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd chat.Command) chat.Reply
	HandleEvent(ctx context.Context, ev chat.Event) chat.Reply
}

// Main menu button labels, mapped to the commands they stand for.
const (
	MenuAdd       = "➕ Add"
	MenuReminders = "📝 My reminders"
	MenuSchedule  = "📅 Schedule"
	MenuPhotos    = "📸 Schedule photos"
	MenuHelp      = "ℹ️ Help"
)

var menuCommands = map[string]chat.CommandKind{
	MenuAdd:       chat.CommandAdd,
	MenuReminders: chat.CommandList,
	MenuSchedule:  chat.CommandSchedule,
	MenuPhotos:    chat.CommandPhotos,
	MenuHelp:      chat.CommandHelp,
}

// callbackSep separates the selection tag from the session id in callback data.
const callbackSep = ":"

// Router translates Telegram updates into commands and events for the dispatcher
type Router struct {
	logger     *logrus.Logger
	dispatcher Dispatcher
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger, dispatcher Dispatcher) *Router {
	return &Router{
		logger:     logger,
		dispatcher: dispatcher,
	}
}

// HandleMessage handles an incoming message and returns the reply to send.
func (r *Router) HandleMessage(ctx context.Context, message *tgbotapi.Message) (chat.Reply, bool) {
	fields := logrus.Fields{
		"chat_id":    message.Chat.ID,
		"message_id": message.MessageID,
	}
	if message.From != nil {
		fields["user_id"] = message.From.ID
		fields["username"] = message.From.UserName
	}
	r.logger.WithFields(fields).Info("Received message")

	if cmd, ok := MessageCommand(message); ok {
		return r.dispatcher.HandleCommand(ctx, cmd), true
	}
	if ev, ok := MessageEvent(message); ok {
		return r.dispatcher.HandleEvent(ctx, ev), true
	}
	return chat.Reply{}, false
}

// HandleCallbackQuery handles callback queries from inline keyboards
func (r *Router) HandleCallbackQuery(ctx context.Context, callbackQuery *tgbotapi.CallbackQuery) (chat.Reply, bool) {
	r.logger.WithFields(logrus.Fields{
		"callback_id": callbackQuery.ID,
		"user_id":     callbackQuery.From.ID,
		"data":        callbackQuery.Data,
	}).Info("Received callback query")

	ev, ok := CallbackEvent(callbackQuery)
	if !ok {
		return chat.Reply{}, false
	}
	return r.dispatcher.HandleEvent(ctx, ev), true
}

// MessageCommand recognizes slash commands and main menu labels.
func MessageCommand(message *tgbotapi.Message) (chat.Command, bool) {
	if message.IsCommand() {
		return chat.Command{
			Chat: message.Chat.ID,
			Kind: chat.CommandKind(strings.ToLower(message.Command())),
			Args: strings.TrimSpace(message.CommandArguments()),
		}, true
	}
	if kind, ok := menuCommands[strings.TrimSpace(message.Text)]; ok {
		return chat.Command{Chat: message.Chat.ID, Kind: kind}, true
	}
	return chat.Command{}, false
}

// MessageEvent turns a non-command message into a text or image event.
func MessageEvent(message *tgbotapi.Message) (chat.Event, bool) {
	if n := len(message.Photo); n > 0 {
		// Telegram lists sizes smallest first.
		return chat.ImageEvent{Chat: message.Chat.ID, ImageRef: message.Photo[n-1].FileID}, true
	}
	if message.Text != "" {
		return chat.TextEvent{Chat: message.Chat.ID, Text: message.Text}, true
	}
	return nil, false
}

// CallbackEvent decodes "tag" or "tag:session" callback data.
func CallbackEvent(q *tgbotapi.CallbackQuery) (chat.Event, bool) {
	if q.Message == nil || q.Data == "" {
		return nil, false
	}
	tag, rest, _ := strings.Cut(q.Data, callbackSep)
	ev := chat.SelectionEvent{Chat: q.Message.Chat.ID, Tag: tag}
	if rest != "" {
		if id, err := uuid.Parse(rest); err == nil {
			ev.Session = id
		}
	}
	return ev, true
}

// CallbackData encodes a button tag with the session that rendered it.
func CallbackData(tag string, session uuid.UUID) string {
	if session == uuid.Nil {
		return tag
	}
	return tag + callbackSep + session.String()
}

// InlineKeyboard renders reply buttons, or nil when there are none.
func InlineKeyboard(reply chat.Reply) *tgbotapi.InlineKeyboardMarkup {
	if len(reply.Buttons) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Buttons))
	for _, row := range reply.Buttons {
		if len(row) == 0 {
			continue
		}
		buttons := make([]tgbotapi.InlineKeyboardButton, len(row))
		for i, b := range row {
			buttons[i] = tgbotapi.NewInlineKeyboardButtonData(b.Label, CallbackData(b.Tag, reply.Session))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// MainMenuKeyboard is the persistent reply keyboard.
func MainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(MenuAdd), tgbotapi.NewKeyboardButton(MenuReminders)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(MenuSchedule), tgbotapi.NewKeyboardButton(MenuPhotos)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(MenuHelp)),
	)
}
