package chat

// CommandKind is the closed set of commands the core understands.
type CommandKind string

const (
	CommandStart    CommandKind = "start"
	CommandHelp     CommandKind = "help"
	CommandAdd      CommandKind = "add"
	CommandList     CommandKind = "list"
	CommandEdit     CommandKind = "edit"
	CommandDelete   CommandKind = "delete"
	CommandSchedule CommandKind = "schedule"
	CommandToday    CommandKind = "today"
	CommandTomorrow CommandKind = "tomorrow"
	CommandWeek     CommandKind = "week"
	CommandMonth    CommandKind = "month"
	CommandAddPhoto CommandKind = "add_photo"
	CommandPhotos   CommandKind = "photos"
	CommandCancel   CommandKind = "cancel"
)

// Command is a recognized command with its raw argument string.
type Command struct {
	Chat int64
	Kind CommandKind
	Args string
}
