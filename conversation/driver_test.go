package conversation

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/malonaz/companion/internal/reply"
	"github.com/malonaz/companion/internal/storage"
	"github.com/malonaz/companion/internal/text"
	"github.com/malonaz/companion/store"
)

type replierFunc func(ctx context.Context, query string) (any, error)

func (f replierFunc) Reply(ctx context.Context, query string) (any, error) { return f(ctx, query) }

type speakerFunc func(ctx context.Context, text string) error

func (f speakerFunc) Speak(ctx context.Context, text string) error { return f(ctx, text) }

// payload returns a replier answering every query with the given JSON body.
func payload(body string, queries *[]string) replierFunc {
	var mu sync.Mutex
	return func(_ context.Context, query string) (any, error) {
		mu.Lock()
		if queries != nil {
			*queries = append(*queries, query)
		}
		mu.Unlock()
		return text.Extract([]byte(body))
	}
}

// gated is a replier that blocks each call until its query is released.
type gated struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGated() *gated {
	return &gated{gates: map[string]chan struct{}{}}
}

func (g *gated) gate(query string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.gates[query]; !ok {
		g.gates[query] = make(chan struct{})
	}
	return g.gates[query]
}

func (g *gated) release(query string) {
	close(g.gate(query))
}

func (g *gated) Reply(ctx context.Context, query string) (any, error) {
	select {
	case <-g.gate(query):
		return "reply to " + query, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fixture struct {
	storage *storage.File
	store   *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	files, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)
	var tick atomic.Int64
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := store.WithClock(func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Millisecond)
	})
	return &fixture{storage: files, store: store.New(context.Background(), files, clock)}
}

func lastMessages(t *testing.T, s *store.Store, chatID string) []*store.Message {
	t.Helper()
	chat, ok := s.GetChat(chatID)
	require.True(t, ok)
	return chat.Messages
}

func TestCreateChatAutoStarts(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	var queries []string
	driver := New(context.Background(), f.store, payload(`{"reply":"Hello!"}`, &queries))

	chatID, call := driver.CreateChat()
	require.NotNil(t, call)
	assert.Equal(t, chatID, call.ChatID)
	driver.Wait()

	assert.Equal(t, chatID, f.store.SelectedChatID())
	messages := lastMessages(t, f.store, chatID)
	require.Len(t, messages, 1)
	assert.Equal(t, store.RoleAssistant, messages[0].Role)
	assert.Equal(t, "Hello!", messages[0].Text)
	assert.Equal(t, store.StatusResolved, messages[0].Status)
	assert.Equal(t, []string{""}, queries)
	assert.False(t, driver.InFlight(chatID))
}

func TestSendLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	replier := newGated()
	driver := New(context.Background(), f.store, replier)
	chatID := f.store.Chats()[0].ID
	before := len(lastMessages(t, f.store, chatID))

	call, err := driver.Send(chatID, "  what next?  ")
	require.NoError(t, err)

	messages := lastMessages(t, f.store, chatID)
	require.Len(t, messages, before+2)
	user, placeholder := messages[before], messages[before+1]
	assert.Equal(t, store.RoleUser, user.Role)
	assert.Equal(t, "what next?", user.Text)
	assert.Equal(t, call.PlaceholderID, placeholder.ID)
	assert.Equal(t, store.PendingText, placeholder.Text)
	assert.True(t, placeholder.IsPending())
	assert.True(t, driver.InFlight(chatID))

	replier.release("what next?")
	replyText, err := call.Result()
	require.NoError(t, err)
	assert.Equal(t, "reply to what next?", replyText)
	driver.Wait()

	messages = lastMessages(t, f.store, chatID)
	require.Len(t, messages, before+2)
	resolved := messages[before+1]
	assert.Equal(t, call.PlaceholderID, resolved.ID)
	assert.Equal(t, "reply to what next?", resolved.Text)
	assert.Equal(t, store.StatusResolved, resolved.Status)
	assert.Greater(t, resolved.CreatedAt, placeholder.CreatedAt, "success re-stamps the message")
	assert.False(t, driver.InFlight(chatID))
}

func TestSendFailureResolvesToErrorText(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	var events []Event
	var mu sync.Mutex
	failing := replierFunc(func(context.Context, string) (any, error) {
		return nil, &reply.StatusError{StatusCode: http.StatusInternalServerError}
	})
	driver := New(context.Background(), f.store, failing, WithObserver(func(event Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	}))
	chatID := f.store.Chats()[0].ID

	call, err := driver.Send(chatID, "hi")
	require.NoError(t, err)
	placeholder := lastMessages(t, f.store, chatID)[3]
	_, err = call.Result()
	var statusErr *reply.StatusError
	assert.True(t, errors.As(err, &statusErr))
	driver.Wait()

	messages := lastMessages(t, f.store, chatID)
	require.Len(t, messages, 4)
	assert.Equal(t, "hi", messages[2].Text)
	failed := messages[3]
	assert.Equal(t, ErrorText, failed.Text)
	assert.Equal(t, store.StatusFailed, failed.Status)
	assert.Equal(t, placeholder.CreatedAt, failed.CreatedAt, "failure keeps the placeholder timestamp")
	assert.LessOrEqual(t, messages[2].CreatedAt, messages[3].CreatedAt)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, EventFailed, events[0].Type)
	assert.Equal(t, call.PlaceholderID, events[0].MessageID)
}

func TestSendRejectsEmptyInputAndUnknownChat(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	called := false
	driver := New(context.Background(), f.store, replierFunc(func(context.Context, string) (any, error) {
		called = true
		return "", nil
	}))
	before := f.store.Chats()

	_, err := driver.Send(before[0].ID, " \n\t ")
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = driver.Send("missing", "hello")
	assert.ErrorIs(t, err, ErrChatNotFound)
	_, err = driver.AutoStart("missing")
	assert.ErrorIs(t, err, ErrChatNotFound)
	driver.Wait()

	assert.Equal(t, before, f.store.Chats())
	assert.False(t, called)
}

func TestRelaxedSendsOverlapAndSettleIndependently(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	replier := newGated()
	driver := New(context.Background(), f.store, replier)
	chatID := f.store.CreateChat()

	first, err := driver.Send(chatID, "one")
	require.NoError(t, err)
	second, err := driver.Send(chatID, "two")
	require.NoError(t, err)

	// Replies arrive out of order; each lands on its own placeholder.
	replier.release("two")
	<-second.Done()
	assert.True(t, driver.InFlight(chatID))
	replier.release("one")
	<-first.Done()
	driver.Wait()

	messages := lastMessages(t, f.store, chatID)
	texts := []string{}
	for _, message := range messages {
		texts = append(texts, message.Text)
	}
	assert.Equal(t, []string{"one", "reply to one", "two", "reply to two"}, texts)
	assert.False(t, driver.InFlight(chatID))
}

func TestStrictSendsRejectOverlap(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	replier := newGated()
	driver := New(context.Background(), f.store, replier, WithStrictSends(true))
	chatID := f.store.CreateChat()

	call, err := driver.Send(chatID, "one")
	require.NoError(t, err)
	before := lastMessages(t, f.store, chatID)

	_, err = driver.Send(chatID, "two")
	assert.ErrorIs(t, err, ErrRequestInFlight)
	assert.Equal(t, before, lastMessages(t, f.store, chatID))

	replier.release("one")
	<-call.Done()
	replier.release("three")
	_, err = driver.Send(chatID, "three")
	assert.NoError(t, err)
	driver.Wait()
}

func TestSelectChatAutoStartsOnlyEmptyIdleChats(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	var queries []string
	driver := New(context.Background(), f.store, payload(`{"message":"Welcome back"}`, &queries))
	sample := f.store.Chats()[0].ID
	empty := f.store.CreateChat()

	assert.Nil(t, driver.SelectChat(sample))
	driver.Wait()
	assert.Empty(t, queries, "chats with messages are not auto-started")

	require.NotNil(t, driver.SelectChat(empty))
	driver.Wait()
	assert.Equal(t, []string{""}, queries)
	messages := lastMessages(t, f.store, empty)
	require.Len(t, messages, 1)
	assert.Equal(t, "Welcome back", messages[0].Text)

	assert.Nil(t, driver.SelectChat(empty))
	driver.Wait()
	assert.Len(t, queries, 1, "the chat is no longer empty")
}

func TestReselectingResetChatDoesNotAutoStart(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	var queries []string
	driver := New(context.Background(), f.store, payload(`{"reply":"Hello!"}`, &queries))
	chatID, _ := driver.CreateChat()
	driver.Wait()

	f.store.ResetChat(chatID)
	assert.Nil(t, driver.SelectChat(chatID), "selection did not move")
	driver.Wait()
	assert.Empty(t, lastMessages(t, f.store, chatID))
	assert.Len(t, queries, 1)
}

func TestDeleteChatAutoStartsNewSelection(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	var queries []string
	driver := New(context.Background(), f.store, payload(`{"reply":"Hello!"}`, &queries))
	next := f.store.CreateChat()
	deleted := f.store.CreateChat()

	call := driver.DeleteChat(deleted)
	require.NotNil(t, call)
	assert.Equal(t, next, call.ChatID)
	driver.Wait()
	assert.Equal(t, next, f.store.SelectedChatID())
	messages := lastMessages(t, f.store, next)
	require.Len(t, messages, 1)
	assert.Equal(t, "Hello!", messages[0].Text)

	// Deleting an unselected chat leaves the selection alone.
	other := f.store.Chats()[1].ID
	assert.Nil(t, driver.DeleteChat(other))
	driver.Wait()
	assert.Equal(t, []string{""}, queries)
}

func TestResumeStartsEmptySelectedChat(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	var queries []string
	driver := New(context.Background(), f.store, payload(`{"reply":"Hello!"}`, &queries))

	assert.Nil(t, driver.Resume(), "the sample chat has messages")
	chatID := f.store.CreateChat()
	call := driver.Resume()
	require.NotNil(t, call)
	assert.Equal(t, chatID, call.ChatID)
	driver.Wait()
	assert.Nil(t, driver.Resume())
	assert.Equal(t, []string{""}, queries)
}

func TestAutoStartDoesNotOverlap(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	replier := newGated()
	driver := New(context.Background(), f.store, replier)

	chatID, _ := driver.CreateChat()
	_, err := driver.AutoStart(chatID)
	assert.ErrorIs(t, err, ErrRequestInFlight)

	replier.release("")
	driver.Wait()
	assert.Len(t, lastMessages(t, f.store, chatID), 1)
}

func TestSpeechNeverAffectsResolution(t *testing.T) {
	for name, speaker := range map[string]speakerFunc{
		"error": func(context.Context, string) error { return errors.New("speech service down") },
		"panic": func(context.Context, string) error { panic("audio device missing") },
	} {
		t.Run(name, func(t *testing.T) {
			defer goleak.VerifyNone(t)
			f := newFixture(t)
			driver := New(context.Background(), f.store, payload(`{"reply":"Hello!"}`, nil), WithSpeaker(speaker))

			chatID, _ := driver.CreateChat()
			driver.Wait()

			messages := lastMessages(t, f.store, chatID)
			require.Len(t, messages, 1)
			assert.Equal(t, "Hello!", messages[0].Text)
			assert.Equal(t, store.StatusResolved, messages[0].Status)
		})
	}
}

func TestSpeechReceivesNormalizedReply(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	spoken := make(chan string, 1)
	driver := New(context.Background(), f.store, payload(`{"reply":[{"text":"a"},{"text":"b"}]}`, nil),
		WithSpeaker(speakerFunc(func(_ context.Context, text string) error {
			spoken <- text
			return nil
		})))

	driver.CreateChat()
	driver.Wait()
	assert.Equal(t, "a\nb", <-spoken)
}

func TestReplierPanicFailsTheCall(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	driver := New(context.Background(), f.store, replierFunc(func(context.Context, string) (any, error) {
		panic("boom")
	}))

	chatID, _ := driver.CreateChat()
	driver.Wait()

	messages := lastMessages(t, f.store, chatID)
	require.Len(t, messages, 1)
	assert.Equal(t, ErrorText, messages[0].Text)
}

func TestDeletedChatIsNotResurrected(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	replier := newGated()
	driver := New(context.Background(), f.store, replier)
	chatID, _ := driver.CreateChat()

	f.store.DeleteChat(chatID)
	replier.release("")
	driver.Wait()

	_, ok := f.store.GetChat(chatID)
	assert.False(t, ok)
}

func TestPendingPlaceholderIsPersisted(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	replier := newGated()
	driver := New(context.Background(), f.store, replier)
	chatID, _ := driver.CreateChat()

	reloaded := store.New(context.Background(), f.storage)
	messages := lastMessages(t, reloaded, chatID)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].IsPending())
	assert.Equal(t, store.PendingText, messages[0].Text)

	replier.release("")
	driver.Wait()
}

func TestCancelledContextFailsPendingCalls(t *testing.T) {
	defer goleak.VerifyNone(t)
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	driver := New(ctx, f.store, newGated())
	first, _ := driver.CreateChat()
	second, _ := driver.CreateChat()
	chatIDs := []string{first, second}

	cancel()
	driver.Wait()

	for _, chatID := range chatIDs {
		messages := lastMessages(t, f.store, chatID)
		require.Len(t, messages, 1, fmt.Sprintf("chat %s", chatID))
		assert.Equal(t, ErrorText, messages[0].Text)
		assert.Equal(t, store.StatusFailed, messages[0].Status)
	}
}
