package server

import (
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/malonaz/companion/conversation"
)

// handleChat shows a chat. Opening a chat selects it, which starts the
// conversation if the selection moved to an empty chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, chatID string) {
	s.driver.SelectChat(chatID)
	chat, ok := s.store.GetChat(chatID)
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.render(w, &PageData{
		Title:          chat.Title,
		ShowBack:       true,
		SelectedChatID: chatID,
		Chat: &ChatViewModel{
			Chat:          chat,
			FormattedTime: formatTime(chat.UpdatedAt),
		},
	})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, chatID string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	_, err := s.driver.Send(chatID, r.FormValue("text"))
	switch {
	case err == nil, errors.Is(err, conversation.ErrEmptyInput):
	case errors.Is(err, conversation.ErrRequestInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	default:
		s.log.Error("sending message", zap.String("chat_id", chatID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/chat/"+chatID, http.StatusSeeOther)
}

func (s *Server) handleRenameChat(w http.ResponseWriter, r *http.Request, chatID string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	// A missing field means the prompt was cancelled.
	if _, ok := r.PostForm["title"]; ok {
		s.store.RenameChat(chatID, r.PostForm.Get("title"))
	}
	http.Redirect(w, r, "/chat/"+chatID, http.StatusSeeOther)
}

func (s *Server) handleResetChat(w http.ResponseWriter, r *http.Request, chatID string) {
	s.store.ResetChat(chatID)
	http.Redirect(w, r, "/chat/"+chatID, http.StatusSeeOther)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request, chatID string) {
	s.driver.DeleteChat(chatID)

	// If the request is AJAX, return 200 OK
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Otherwise redirect to inbox
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
