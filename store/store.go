package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/malonaz/companion/internal/storage"
)

// StorageKey is the key under which the whole chat list is persisted.
const StorageKey = "cgpt_chats_v2"

// PersistErrorHandler is notified of failed writes.
type PersistErrorHandler func(error)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how chat and message IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithPersistErrorHandler registers a handler for failed writes.
func WithPersistErrorHandler(handler PersistErrorHandler) Option {
	return func(s *Store) { s.onPersistError = handler }
}

// Store owns every chat and message of the session.
// Each mutation runs atomically and is followed by a full write of the chat list.
type Store struct {
	storage        storage.Storage
	now            func() time.Time
	newID          func() string
	log            *zap.Logger
	onPersistError PersistErrorHandler

	mu sync.Mutex
	// Most recently created first.
	chats []*Chat
	// Empty when nothing is selected.
	selectedChatID string
}

// New loads the persisted chats, seeding sample chats if nothing usable is stored.
func New(ctx context.Context, s storage.Storage, opts ...Option) *Store {
	store := &Store{
		storage: s,
		now:     time.Now,
		newID:   uuid.NewString,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}

	chats, repair, err := store.load(ctx)
	if err != nil {
		store.log.Warn("loading chats, falling back to sample chats", zap.Error(err))
		chats = sampleChats(store.now())
	}
	store.chats = chats
	if len(chats) > 0 {
		store.selectedChatID = chats[0].ID
	}
	if repair {
		store.mu.Lock()
		store.persist()
		store.mu.Unlock()
	}
	return store
}

// load reads the persisted chats. repair is set when the stored state is
// missing or unusable and should be overwritten with the fallback. A failed
// read leaves storage untouched.
func (s *Store) load(ctx context.Context) (chats []*Chat, repair bool, err error) {
	bytes, err := s.storage.Read(ctx, StorageKey)
	if err != nil {
		return nil, errors.Is(err, storage.ErrNotFound), errors.Wrap(err, "reading chats")
	}
	chats, err = decodeChats(bytes)
	if err != nil {
		return nil, true, errors.Wrap(err, "decoding chats")
	}
	return chats, false, nil
}

// persist writes the full chat list. Must be called with s.mu held.
// Failures are reported but never undo the in-memory mutation.
func (s *Store) persist() {
	bytes, err := json.Marshal(s.chats)
	if err == nil {
		err = s.storage.Write(context.Background(), StorageKey, bytes)
	}
	if err != nil {
		err = errors.Wrap(err, "persisting chats")
		s.log.Warn("could not save chats", zap.Error(err))
		if s.onPersistError != nil {
			s.onPersistError(err)
		}
	}
}

// NewID generates an ID using the store's generator.
func (s *Store) NewID() string {
	return s.newID()
}

// Now returns the store's current time in unix milliseconds.
func (s *Store) Now() int64 {
	return s.now().UnixMilli()
}

func (s *Store) findChat(chatID string) (int, *Chat) {
	for i, chat := range s.chats {
		if chat.ID == chatID {
			return i, chat
		}
	}
	return -1, nil
}

func decodeChats(bytes []byte) ([]*Chat, error) {
	var chats []*Chat
	if err := json.Unmarshal(bytes, &chats); err != nil {
		return nil, err
	}
	if chats == nil {
		return nil, errors.New("stored chats are not a list")
	}
	valid := make([]*Chat, 0, len(chats))
	for _, chat := range chats {
		if chat == nil {
			continue
		}
		messages := make([]*Message, 0, len(chat.Messages))
		for _, message := range chat.Messages {
			if message != nil {
				messages = append(messages, message)
			}
		}
		chat.Messages = messages
		valid = append(valid, chat)
	}
	return valid, nil
}
