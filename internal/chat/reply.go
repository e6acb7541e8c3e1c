package chat

import "github.com/google/uuid"

// Button is one selectable option. Tag comes back as SelectionEvent.Tag.
type Button struct {
	Label string
	Tag   string
}

// Reply is the response to an inbound command or event.
type Reply struct {
	Text     string
	Markdown bool
	// Buttons are rendered as an inline keyboard, one slice per row.
	Buttons [][]Button
	// Session ties the buttons to a conversation session.
	Session uuid.UUID
	// MainMenu asks the transport to show its persistent menu keyboard.
	MainMenu bool
	// Replace asks the transport to edit the message that carried the pressed button.
	Replace bool
}

// Text builds a plain reply.
func Text(text string) Reply {
	return Reply{Text: text}
}

// Row is a helper for building button rows.
func Row(buttons ...Button) []Button {
	return buttons
}
