package core

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CommandMarker starts every command line.
const CommandMarker = "/"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandUnknown is any marker-prefixed word outside the vocabulary.
	CommandUnknown CommandKind = iota
	// CommandDisconnect leaves the chat and closes the connection.
	CommandDisconnect
	// CommandUsername queries or changes the display name.
	CommandUsername
	// CommandConnected lists the connected clients.
	CommandConnected
	// CommandLogout drops the chosen name and returns to the default one.
	CommandLogout
	// CommandHelp lists the commands.
	CommandHelp
)

var commandWords = map[string]CommandKind{
	"/disconnect": CommandDisconnect,
	"/username":   CommandUsername,
	"/connected":  CommandConnected,
	"/logout":     CommandLogout,
	"/help":       CommandHelp,
}

// Command is one parsed command line.
type Command struct {
	Kind CommandKind
	Word string
	// Arg is the trimmed text after the command word.
	Arg string
	// HasArg is true when anything, even only whitespace, followed the word.
	HasArg bool
}

// IsCommand reports whether line is a command rather than chat text.
func IsCommand(line string) bool {
	return strings.HasPrefix(line, CommandMarker)
}

// ParseCommand splits a command line into its word and argument.
// The word must match exactly: "/usernames" is not "/username".
func ParseCommand(line string) Command {
	word, rest := line, ""
	hasArg := false
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		_, size := utf8.DecodeRuneInString(line[i:])
		word, rest = line[:i], line[i+size:]
		hasArg = true
	}

	kind, ok := commandWords[word]
	if !ok {
		kind = CommandUnknown
	}
	return Command{
		Kind:   kind,
		Word:   word,
		Arg:    strings.TrimSpace(rest),
		HasArg: hasArg,
	}
}

// HelpLines describes the command vocabulary, one line per command.
func HelpLines() []string {
	return []string{
		"Commands:",
		"   /disconnect:             Disconnects from the server and stops application",
		"   /username:               Asks for current username in server",
		"   /username new_name:      Sets new name",
		"   /connected:              Asks server for currently connected clients",
		"   /logout:                 Drops your name and returns to the default one",
		"   /help:                   Prints this help",
	}
}
