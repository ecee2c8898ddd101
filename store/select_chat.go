package store

// SelectChat selects a chat if it exists.
func (s *Store) SelectChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, chat := s.findChat(chatID); chat == nil {
		return
	}
	s.selectedChatID = chatID
	s.persist()
}
