package store

// DeleteChat removes a chat. If it was selected, the new first chat becomes
// selected, or nothing if no chats remain. Unknown IDs are ignored.
func (s *Store) DeleteChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, chat := s.findChat(chatID)
	if chat == nil {
		return
	}
	s.chats = append(s.chats[:i:i], s.chats[i+1:]...)
	if s.selectedChatID == chatID {
		s.selectedChatID = ""
		if len(s.chats) > 0 {
			s.selectedChatID = s.chats[0].ID
		}
	}
	s.persist()
}
