package store

// GetChat returns a copy of a chat.
func (s *Store) GetChat(chatID string) (*Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, chat := s.findChat(chatID)
	if chat == nil {
		return nil, false
	}
	return chat.clone(), true
}

// SelectedChatID returns the selected chat ID, or "" if none is selected.
func (s *Store) SelectedChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedChatID
}

// SelectedChat returns a copy of the selected chat.
func (s *Store) SelectedChat() (*Chat, bool) {
	return s.GetChat(s.SelectedChatID())
}
