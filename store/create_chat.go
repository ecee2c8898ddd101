package store

// CreateChat creates an empty chat at the top of the list and selects it.
func (s *Store) CreateChat() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := &Chat{
		ID:        s.newID(),
		Title:     DefaultTitle,
		UpdatedAt: s.Now(),
		Messages:  []*Message{},
	}
	s.chats = append([]*Chat{chat}, s.chats...)
	s.selectedChatID = chat.ID
	s.persist()
	return chat.ID
}
