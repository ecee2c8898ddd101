package store

import (
	"encoding/json"

	"github.com/malonaz/companion/internal/text"
)

const (
	// DefaultTitle is given to new and reset chats.
	DefaultTitle = "New chat"
	// PendingText is displayed while a placeholder awaits its reply.
	PendingText = "..."
	// EmptySnippet is displayed for chats without messages.
	EmptySnippet = "No messages yet"
)

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status of a message.
type Status string

const (
	// StatusPending marks a placeholder awaiting a reply.
	StatusPending Status = "pending"
	// StatusResolved marks real content.
	StatusResolved Status = "resolved"
	// StatusFailed marks a placeholder resolved to an error text.
	StatusFailed Status = "failed"
)

// Message is one turn in a chat.
type Message struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	// Text is always normalized display text.
	Text string `json:"text"`
	// Unix milliseconds. Re-stamped when a placeholder resolves successfully.
	CreatedAt int64  `json:"createdAt"`
	Status    Status `json:"status,omitempty"`
}

// IsPending returns true if this message is an unresolved placeholder.
func (m *Message) IsPending() bool {
	return m.Status == StatusPending
}

// UnmarshalJSON decodes a persisted message, normalizing text that was stored
// before it was a plain string.
func (m *Message) UnmarshalJSON(bytes []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Role      Role            `json:"role"`
		Text      json.RawMessage `json:"text"`
		CreatedAt int64           `json:"createdAt"`
		Status    Status          `json:"status"`
	}
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return err
	}
	m.ID = raw.ID
	m.Role = raw.Role
	m.Text = text.Normalize(raw.Text)
	m.CreatedAt = raw.CreatedAt
	m.Status = raw.Status
	if m.Status == "" {
		m.Status = StatusResolved
		if m.Role == RoleAssistant && m.Text == PendingText {
			m.Status = StatusPending
		}
	}
	return nil
}

// Chat is one conversation.
type Chat struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// Unix milliseconds. Bumped on every mutation.
	UpdatedAt int64      `json:"updatedAt"`
	Messages  []*Message `json:"messages"`
}

// UnmarshalJSON decodes a persisted chat. A messages field that is not a list
// yields an empty chat rather than failing the whole load.
func (c *Chat) UnmarshalJSON(bytes []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Title     string          `json:"title"`
		UpdatedAt int64           `json:"updatedAt"`
		Messages  json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return err
	}
	c.ID = raw.ID
	c.Title = raw.Title
	c.UpdatedAt = raw.UpdatedAt
	c.Messages = nil
	if err := json.Unmarshal(raw.Messages, &c.Messages); err != nil {
		c.Messages = nil
	}
	return nil
}

// IsEmpty returns true if the chat has no messages.
func (c *Chat) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Snippet returns the text of the last message, for chat listings.
func (c *Chat) Snippet() string {
	if len(c.Messages) == 0 {
		return EmptySnippet
	}
	snippet := text.Normalize(c.Messages[len(c.Messages)-1].Text)
	if snippet == "" {
		return EmptySnippet
	}
	return snippet
}

func (c *Chat) findMessage(messageID string) *Message {
	for _, message := range c.Messages {
		if message.ID == messageID {
			return message
		}
	}
	return nil
}

func (c *Chat) clone() *Chat {
	clone := *c
	clone.Messages = make([]*Message, len(c.Messages))
	for i, message := range c.Messages {
		m := *message
		clone.Messages[i] = &m
	}
	return &clone
}
