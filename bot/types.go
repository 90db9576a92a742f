// Package bot turns inbound chat events into replies. It owns the command
// registry, the per-state message handlers and the session orchestration
// around them; the transport and the storage layers are collaborators.
package bot

import (
	"strings"

	"github.com/Sokphirun99/Telegrambot-khmer/store"
)

// Event is one inbound unit of work from the chat transport.
type Event struct {
	UserID  int64
	ChatID  int64
	Profile store.Profile
	Text    string

	IsCommand bool
	Command   string
	Args      string
}

// Reply is what the transport sends back: plain text, optionally with a
// reply keyboard or a keyboard-removal directive.
type Reply struct {
	Text           string
	Keyboard       [][]string
	RemoveKeyboard bool
}

// NewEvent builds an Event from raw message text, detecting the
// "/command args" form. A "/cmd@BotName" suffix is stripped.
func NewEvent(userID, chatID int64, profile store.Profile, text string) Event {
	ev := Event{
		UserID:  userID,
		ChatID:  chatID,
		Profile: profile,
		Text:    strings.TrimSpace(text),
	}
	if name, args, ok := parseCommand(ev.Text); ok {
		ev.IsCommand = true
		ev.Command = name
		ev.Args = args
	}
	return ev
}

func parseCommand(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	word := text
	rest := ""
	if i := strings.IndexAny(text, " \n\t"); i >= 0 {
		word, rest = text[:i], strings.TrimSpace(text[i:])
	}
	word = strings.TrimPrefix(word, "/")
	if at := strings.IndexByte(word, '@'); at >= 0 {
		word = word[:at]
	}
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return "", "", false
	}
	return word, rest, true
}

// keyboardRows lays button labels out two per row, the way the original
// menus read on a phone.
func keyboardRows(labels []string) [][]string {
	var rows [][]string
	for i := 0; i < len(labels); i += 2 {
		row := []string{labels[i]}
		if i+1 < len(labels) {
			row = append(row, labels[i+1])
		}
		rows = append(rows, row)
	}
	return rows
}
