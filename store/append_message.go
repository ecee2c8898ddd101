package store

// AppendMessage appends a message to a chat. Messages for unknown chats are
// dropped, since the chat may have been deleted while a reply was in flight.
// The store keeps its own copy of the message.
func (s *Store) AppendMessage(chatID string, message *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, chat := s.findChat(chatID)
	if chat == nil || message == nil {
		return
	}
	m := *message
	if m.ID == "" {
		m.ID = s.newID()
	}
	if m.Status == "" {
		m.Status = StatusResolved
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = s.Now()
	}
	chat.Messages = append(chat.Messages, &m)
	chat.UpdatedAt = s.Now()
	s.persist()
}
