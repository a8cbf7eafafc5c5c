// Package texts holds every user-facing message template in one place so
// chat replies stay consistent across handlers. Messages are keyed strings
// loaded from an embedded JSON file; placeholders are fmt verbs.
package texts

import (
	"embed"
	"encoding/json"
	"fmt"
)

//go:embed messages.json
var messagesFS embed.FS

var messages map[string]string

func init() {
	data, err := messagesFS.ReadFile("messages.json")
	if err != nil {
		panic(fmt.Sprintf("texts: read messages.json: %v", err))
	}
	if err := json.Unmarshal(data, &messages); err != nil {
		panic(fmt.Sprintf("texts: parse messages.json: %v", err))
	}
}

// Get returns the message for key. Unknown keys return the key itself so a
// missing entry shows up in chat instead of crashing the handler.
func Get(key string) string {
	if msg, ok := messages[key]; ok {
		return msg
	}
	return key
}

// Format returns the message for key with its placeholders filled in.
func Format(key string, args ...interface{}) string {
	return fmt.Sprintf(Get(key), args...)
}
