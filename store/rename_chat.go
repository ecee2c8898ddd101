package store

import "github.com/pkg/errors"

// Prompter asks the user for a new chat title.
// ok is false when the user cancelled the prompt.
type Prompter interface {
	Prompt(currentTitle string) (title string, ok bool, err error)
}

// PrompterFunc adapts a function to a Prompter.
type PrompterFunc func(currentTitle string) (string, bool, error)

// Prompt implements Prompter.
func (f PrompterFunc) Prompt(currentTitle string) (string, bool, error) {
	return f(currentTitle)
}

// RenameChat sets a chat's title verbatim.
func (s *Store) RenameChat(chatID, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, chat := s.findChat(chatID)
	if chat == nil {
		return
	}
	chat.Title = title
	chat.UpdatedAt = s.Now()
	s.persist()
}

// RenameChatWith renames a chat using a title obtained from the prompter.
// A cancelled prompt leaves the chat untouched. Returns whether the chat was renamed.
func (s *Store) RenameChatWith(chatID string, prompter Prompter) (bool, error) {
	chat, ok := s.GetChat(chatID)
	if !ok {
		return false, nil
	}
	// The prompt blocks on the user, so it runs without holding the lock.
	title, ok, err := prompter.Prompt(chat.Title)
	if err != nil {
		return false, errors.Wrap(err, "prompting for title")
	}
	if !ok {
		return false, nil
	}
	s.RenameChat(chatID, title)
	return true, nil
}
