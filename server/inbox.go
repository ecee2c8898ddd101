package server

import (
	"net/http"
)

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	// Get search query from query parameters
	query := r.URL.Query().Get("q")
	chats := s.store.SearchChats(query)

	chatViews := []ChatViewModel{}
	for _, chat := range chats {
		chatViews = append(chatViews, ChatViewModel{
			Chat:          chat,
			FormattedTime: formatTime(chat.UpdatedAt),
		})
	}

	s.render(w, &PageData{
		Title:          "Chats",
		Chats:          chatViews,
		Query:          query,
		SelectedChatID: s.store.SelectedChatID(),
	})
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	chatID, _ := s.driver.CreateChat()
	http.Redirect(w, r, "/chat/"+chatID, http.StatusSeeOther)
}
