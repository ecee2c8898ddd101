package store

// Resolution replaces the content of a message in place.
type Resolution struct {
	Text   string
	Status Status
	// Unix milliseconds. Zero keeps the message's current timestamp.
	CreatedAt int64
}

// ResolveMessage substitutes a message's content, looked up by ID, keeping its
// position, ID and role. Unknown chat or message IDs are ignored.
func (s *Store) ResolveMessage(chatID, messageID string, resolution Resolution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, chat := s.findChat(chatID)
	if chat == nil {
		return
	}
	message := chat.findMessage(messageID)
	if message == nil {
		return
	}
	message.Text = resolution.Text
	if resolution.Status != "" {
		message.Status = resolution.Status
	}
	if resolution.CreatedAt != 0 {
		message.CreatedAt = resolution.CreatedAt
	}
	chat.UpdatedAt = s.Now()
	s.persist()
}
