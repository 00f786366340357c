package commands

// CommandDefinition is one row of the static, ordered command table — the single source of
// truth both the slash-command and bang-command surfaces derive from.
type CommandDefinition struct {
	Name          string
	MappedMessage string
	Description   string
	IsFlow        bool
}

// CommandTable is authoritative per spec §6. Both "/name" and "!name" route identically to it.
var CommandTable = []CommandDefinition{
	{Name: "start", MappedMessage: "start", Description: "Get started with the bot", IsFlow: false},
	{Name: "tasks", MappedMessage: "show my tasks", Description: "Show your tasks", IsFlow: false},
	{Name: "profile", MappedMessage: "show profile", Description: "Show your profile", IsFlow: false},
	{Name: "schedule", MappedMessage: "show schedule", Description: "Show your schedule", IsFlow: false},
	{Name: "messages", MappedMessage: "show messages", Description: "Show recent messages", IsFlow: false},
	{Name: "analytics", MappedMessage: "show analytics", Description: "Show your analytics", IsFlow: false},
	{Name: "status", MappedMessage: "status", Description: "Show bot status", IsFlow: false},
	{Name: "help", MappedMessage: "help", Description: "Show available commands", IsFlow: false},
	{Name: "checkin", MappedMessage: "start checkin", Description: "Start a check-in", IsFlow: true},
	{Name: "restart", MappedMessage: "restart checkin", Description: "Restart your check-in", IsFlow: true},
	{Name: "clear", MappedMessage: "clear flows", Description: "Clear any stuck flow", IsFlow: true},
	{Name: "cancel", MappedMessage: "/cancel", Description: "Cancel the active flow", IsFlow: false},
}

// LookupCommand finds a CommandDefinition by name (case-sensitive, as stored). Returns nil if
// unknown.
func LookupCommand(name string) *CommandDefinition {
	for i := range CommandTable {
		if CommandTable[i].Name == name {
			return &CommandTable[i]
		}
	}
	return nil
}
