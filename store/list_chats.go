package store

// Chats returns copies of all chats, most recently created first.
func (s *Store) Chats() []*Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats := make([]*Chat, len(s.chats))
	for i, chat := range s.chats {
		chats[i] = chat.clone()
	}
	return chats
}
