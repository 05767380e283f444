package types

// Mode represents the current mode of the TUI
type Mode int

const (
	// Normal is the default mode for navigation, picking and staging
	Normal Mode = iota
	// Edit shows plain names that can be renamed in place
	Edit
	// Command is the mode for entering a path to change to
	Command
)

func (m Mode) String() string {
	switch m {
	case Edit:
		return "EDIT"
	case Command:
		return "COMMAND"
	default:
		return "NORMAL"
	}
}
