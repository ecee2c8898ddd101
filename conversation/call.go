package conversation

// EventType tells how a call settled.
type EventType int

const (
	// EventResolved is sent when a placeholder received its reply.
	EventResolved EventType = iota
	// EventFailed is sent when a placeholder was replaced by the error text.
	EventFailed
)

// Event is sent to the observer once a call settles.
type Event struct {
	Type      EventType
	ChatID    string
	MessageID string
	// Text the placeholder was resolved to.
	Text string
	// Err is set for EventFailed.
	Err error
}

// Call is a handle on one request. It settles exactly once.
type Call struct {
	ChatID        string
	PlaceholderID string

	done chan struct{}
	text string
	err  error
}

func newCall(chatID, placeholderID string) *Call {
	return &Call{ChatID: chatID, PlaceholderID: placeholderID, done: make(chan struct{})}
}

func (c *Call) settle(text string, err error) {
	c.text = text
	c.err = err
	close(c.done)
}

// Done is closed once the placeholder has been resolved.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result blocks until the call settles and returns the text the placeholder was
// resolved to, along with the failure if there was one.
func (c *Call) Result() (string, error) {
	<-c.done
	return c.text, c.err
}
