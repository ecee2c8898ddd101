package store

// ResetChat clears a chat's messages and restores the default title.
func (s *Store) ResetChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, chat := s.findChat(chatID)
	if chat == nil {
		return
	}
	chat.Messages = []*Message{}
	chat.Title = DefaultTitle
	chat.UpdatedAt = s.Now()
	s.persist()
}
