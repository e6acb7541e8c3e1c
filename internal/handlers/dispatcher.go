package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/remindbot/internal/chat"
	"github.com/Kerhoff/remindbot/internal/conversation"
	"github.com/Kerhoff/remindbot/internal/metrics"
	"github.com/Kerhoff/remindbot/internal/models"
)

// Dispatcher routes commands to their handlers and events to the open
// conversation session, falling back to sessionless selection handlers and the
// "unrecognized" reply. Updates of one chat are handled one at a time.
type Dispatcher struct {
	logger     *logrus.Logger
	machine    *conversation.Machine
	metrics    *metrics.Metrics
	commands   map[chat.CommandKind]CommandHandler
	selections map[string]SelectionHandler
	locks      *chatLocks
}

// NewDispatcher creates a dispatcher with no handlers registered.
func NewDispatcher(machine *conversation.Machine, m *metrics.Metrics, logger *logrus.Logger) *Dispatcher {
	if m == nil {
		m = metrics.New(nil)
	}
	return &Dispatcher{
		logger:     logger,
		machine:    machine,
		metrics:    m,
		commands:   make(map[chat.CommandKind]CommandHandler),
		selections: make(map[string]SelectionHandler),
		locks:      newChatLocks(),
	}
}

// RegisterCommand registers a command handler
func (d *Dispatcher) RegisterCommand(kind chat.CommandKind, handler CommandHandler) {
	d.commands[kind] = handler
	d.logger.Debugf("Registered command: %s", kind)
}

// RegisterSelection registers a handler for sessionless selections whose tag
// starts with prefix.
func (d *Dispatcher) RegisterSelection(prefix string, handler SelectionHandler) {
	d.selections[prefix] = handler
	d.logger.Debugf("Registered selection prefix: %s", prefix)
}

// HandleCommand runs the handler for cmd and returns its reply. A command closes
// the chat's open session first. Handler errors become a single user-facing
// failure message.
func (d *Dispatcher) HandleCommand(ctx context.Context, cmd chat.Command) chat.Reply {
	defer d.locks.lock(cmd.Chat)()
	d.metrics.EventsHandled.WithLabelValues("command").Inc()

	log := d.logger.WithFields(logrus.Fields{
		"chat_id": cmd.Chat,
		"command": cmd.Kind,
	})

	if cmd.Kind == chat.CommandCancel {
		if d.machine.Active(cmd.Chat) {
			reply := d.machine.Cancel(cmd.Chat)
			reply.Replace = false
			reply.MainMenu = true
			return reply
		}
		return chat.Reply{Text: "Nothing to cancel.", MainMenu: true}
	}

	// A command leaves any open flow; add, edit and add_photo open a fresh one.
	if d.machine.Active(cmd.Chat) {
		d.machine.Cancel(cmd.Chat)
		log.Debug("Open session closed by command")
	}

	handler, ok := d.commands[cmd.Kind]
	if !ok {
		log.Warn("Unknown command")
		return chat.Text(msgUnknown)
	}

	reply, err := handler.Handle(ctx, cmd)
	if err != nil {
		return d.failure(log, err)
	}
	log.Debug("Command handled")
	return reply
}

// HandleEvent routes a text, selection or image event.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev chat.Event) chat.Reply {
	defer d.locks.lock(ev.ChatID())()
	d.metrics.EventsHandled.WithLabelValues(ev.Kind()).Inc()

	if reply, handled := d.machine.Handle(ctx, ev); handled {
		return reply
	}

	log := d.logger.WithFields(logrus.Fields{
		"chat_id": ev.ChatID(),
		"event":   ev.Kind(),
	})

	sel, ok := ev.(chat.SelectionEvent)
	if !ok {
		return chat.Reply{Text: msgUnknown, MainMenu: true}
	}

	if sel.Tag == conversation.TagCancel {
		return chat.Reply{Text: "❌ Operation cancelled.", Replace: true}
	}
	for prefix, handler := range d.selections {
		if strings.HasPrefix(sel.Tag, prefix) {
			reply, err := handler.HandleSelection(ctx, sel)
			if err != nil {
				return d.failure(log, err)
			}
			return reply
		}
	}

	log.WithField("tag", sel.Tag).Debug("Selection without an open session")
	return chat.Text(msgExpired)
}

func (d *Dispatcher) failure(log *logrus.Entry, err error) chat.Reply {
	if ve, ok := models.IsValidation(err); ok {
		return chat.Text("❌ " + ve.Message)
	}
	if errors.Is(err, models.ErrNotFound) {
		return chat.Text(msgNotFound)
	}
	log.WithError(err).Error("Command handler failed")
	return chat.Text(msgInternalError)
}
