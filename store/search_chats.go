package store

import (
	"strings"

	"github.com/malonaz/companion/internal/text"
)

// FilterChats returns the chats whose title or any message text contains the
// query, ignoring case. An empty query matches every chat. Order is preserved.
func FilterChats(chats []*Chat, query string) []*Chat {
	query = strings.ToLower(query)
	filtered := make([]*Chat, 0, len(chats))
	for _, chat := range chats {
		if matches(chat, query) {
			filtered = append(filtered, chat)
		}
	}
	return filtered
}

func matches(chat *Chat, query string) bool {
	if strings.Contains(strings.ToLower(chat.Title), query) {
		return true
	}
	for _, message := range chat.Messages {
		if strings.Contains(strings.ToLower(text.Normalize(message.Text)), query) {
			return true
		}
	}
	return false
}

// SearchChats filters the current chats by query.
func (s *Store) SearchChats(query string) []*Chat {
	return FilterChats(s.Chats(), query)
}
