package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"
	"go.uber.org/zap"

	"github.com/malonaz/companion/internal/text"
	"github.com/malonaz/companion/store"
)

// ErrorText replaces a placeholder whose reply could not be obtained.
const ErrorText = "Error: failed to get response from API."

var (
	// ErrEmptyInput is returned when a send carries only whitespace.
	ErrEmptyInput = errors.New("empty input")
	// ErrChatNotFound is returned when a send targets an unknown chat.
	ErrChatNotFound = errors.New("chat not found")
	// ErrRequestInFlight is returned in strict mode when the chat is still awaiting a reply.
	ErrRequestInFlight = errors.New("a request is already in flight for this chat")
)

// Replier obtains a reply for a query. The returned value is normalized by the driver.
type Replier interface {
	Reply(ctx context.Context, query string) (any, error)
}

// Speaker reads a reply out loud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithSpeaker enables speech for successful replies.
func WithSpeaker(speaker Speaker) Option {
	return func(d *Driver) { d.speaker = speaker }
}

// WithObserver registers a function notified of every settled call.
func WithObserver(observer func(Event)) Option {
	return func(d *Driver) { d.observer = observer }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Driver) { d.log = log }
}

// WithStrictSends rejects sends for chats that are still awaiting a reply.
func WithStrictSends(strict bool) Option {
	return func(d *Driver) { d.strict = strict }
}

// Driver runs the optimistic request lifecycle on top of a store: it appends a
// pending placeholder, calls the replier in the background and resolves the
// placeholder in place once the call settles.
type Driver struct {
	ctx      context.Context
	store    *store.Store
	replier  Replier
	speaker  Speaker
	observer func(Event)
	log      *zap.Logger
	strict   bool

	mu sync.Mutex
	// Placeholder IDs awaiting a reply, by chat ID.
	inflight map[string]*strset.Set
	wg       sync.WaitGroup
}

// New instantiates and returns a new driver. Background calls run under ctx.
func New(ctx context.Context, s *store.Store, replier Replier, opts ...Option) *Driver {
	driver := &Driver{
		ctx:      ctx,
		store:    s,
		replier:  replier,
		log:      zap.NewNop(),
		inflight: map[string]*strset.Set{},
	}
	for _, opt := range opts {
		opt(driver)
	}
	return driver
}

// Store returns the underlying store.
func (d *Driver) Store() *store.Store {
	return d.store
}

// CreateChat creates and selects a new chat, then starts the conversation.
// The returned call is nil if the conversation could not be started.
func (d *Driver) CreateChat() (string, *Call) {
	chatID := d.store.CreateChat()
	return chatID, d.maybeAutoStart(chatID)
}

// SelectChat selects a chat. The conversation starts only when the selection
// moves to an empty, idle chat. The returned call is nil otherwise.
func (d *Driver) SelectChat(chatID string) *Call {
	previous := d.store.SelectedChatID()
	d.store.SelectChat(chatID)
	return d.autoStartIfMoved(previous)
}

// DeleteChat deletes a chat. If the selection falls onto an empty chat, its
// conversation starts.
func (d *Driver) DeleteChat(chatID string) *Call {
	previous := d.store.SelectedChatID()
	d.store.DeleteChat(chatID)
	return d.autoStartIfMoved(previous)
}

// Resume starts the conversation of the selected chat if it is empty. Call it
// once when a front end attaches to the store.
func (d *Driver) Resume() *Call {
	chatID := d.store.SelectedChatID()
	if chatID == "" {
		return nil
	}
	return d.maybeAutoStart(chatID)
}

func (d *Driver) autoStartIfMoved(previous string) *Call {
	current := d.store.SelectedChatID()
	if current == "" || current == previous {
		return nil
	}
	return d.maybeAutoStart(current)
}

func (d *Driver) maybeAutoStart(chatID string) *Call {
	chat, ok := d.store.GetChat(chatID)
	if !ok || !chat.IsEmpty() {
		return nil
	}
	call, err := d.AutoStart(chatID)
	if err != nil {
		d.log.Debug("auto-start skipped", zap.String("chat_id", chatID), zap.Error(err))
		return nil
	}
	return call
}

// AutoStart asks the replier for an opening message with an empty query.
// It never overlaps another call for the same chat.
func (d *Driver) AutoStart(chatID string) (*Call, error) {
	if _, ok := d.store.GetChat(chatID); !ok {
		return nil, ErrChatNotFound
	}
	placeholderID := d.store.NewID()
	if !d.track(chatID, placeholderID, true) {
		return nil, ErrRequestInFlight
	}
	return d.start(chatID, placeholderID, ""), nil
}

// Send appends the user's message and requests a reply for it.
func (d *Driver) Send(chatID, input string) (*Call, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return nil, ErrEmptyInput
	}
	if _, ok := d.store.GetChat(chatID); !ok {
		return nil, ErrChatNotFound
	}
	placeholderID := d.store.NewID()
	if !d.track(chatID, placeholderID, d.strict) {
		return nil, ErrRequestInFlight
	}
	d.store.AppendMessage(chatID, &store.Message{
		ID:        d.store.NewID(),
		Role:      store.RoleUser,
		Text:      query,
		CreatedAt: d.store.Now(),
		Status:    store.StatusResolved,
	})
	return d.start(chatID, placeholderID, query), nil
}

// InFlight returns true if the chat has at least one unsettled call.
func (d *Driver) InFlight(chatID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.inflight[chatID]
	return ok && !set.IsEmpty()
}

// Wait blocks until every call and speech task has settled.
func (d *Driver) Wait() {
	d.wg.Wait()
}

// start appends the pending placeholder and issues the call in the background.
// The placeholder must already be tracked.
func (d *Driver) start(chatID, placeholderID, query string) *Call {
	d.store.AppendMessage(chatID, &store.Message{
		ID:        placeholderID,
		Role:      store.RoleAssistant,
		Text:      store.PendingText,
		CreatedAt: d.store.Now(),
		Status:    store.StatusPending,
	})

	call := newCall(chatID, placeholderID)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(call, query)
	}()
	return call
}

// track registers a placeholder as in flight. When exclusive, it fails if the
// chat already has one.
func (d *Driver) track(chatID, placeholderID string, exclusive bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.inflight[chatID]
	if !ok {
		set = strset.New()
		d.inflight[chatID] = set
	}
	if exclusive && !set.IsEmpty() {
		return false
	}
	set.Add(placeholderID)
	return true
}

func (d *Driver) untrack(chatID, placeholderID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.inflight[chatID]
	if !ok {
		return
	}
	set.Remove(placeholderID)
	if set.IsEmpty() {
		delete(d.inflight, chatID)
	}
}

func (d *Driver) run(call *Call, query string) {
	replyText, err := d.reply(query)
	event := Event{ChatID: call.ChatID, MessageID: call.PlaceholderID}
	if err != nil {
		d.log.Error("getting reply", zap.String("chat_id", call.ChatID), zap.Error(err))
		d.store.ResolveMessage(call.ChatID, call.PlaceholderID, store.Resolution{
			Text:   ErrorText,
			Status: store.StatusFailed,
		})
		event.Type = EventFailed
		event.Text = ErrorText
		event.Err = err
	} else {
		d.store.ResolveMessage(call.ChatID, call.PlaceholderID, store.Resolution{
			Text:      replyText,
			Status:    store.StatusResolved,
			CreatedAt: d.store.Now(),
		})
		d.speak(replyText)
		event.Type = EventResolved
		event.Text = replyText
	}

	d.untrack(call.ChatID, call.PlaceholderID)
	call.settle(event.Text, event.Err)
	if d.observer != nil {
		d.observer(event)
	}
}

// reply calls the replier, converting a panic into an error so that the
// placeholder always settles.
func (d *Driver) reply(query string) (replyText string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("replier panicked: %v", r)
		}
	}()
	value, err := d.replier.Reply(d.ctx, query)
	if err != nil {
		return "", err
	}
	return text.Normalize(value), nil
}

// speak runs in the background. Its outcome never reaches the conversation.
func (d *Driver) speak(replyText string) {
	if d.speaker == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Warn("speech panicked", zap.String("panic", fmt.Sprint(r)))
			}
		}()
		if err := d.speaker.Speak(d.ctx, replyText); err != nil {
			d.log.Warn("speech failed", zap.Error(err))
		}
	}()
}
