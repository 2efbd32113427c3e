package conversation

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// IDFunc returns a new unique conversation id.
type IDFunc func() string

// Store is the in-memory collection of conversations, newest first, and the
// active conversation id. The zero value is not usable; call NewStore.
//
// Invariants: ids are unique, and the active id is either empty or the id of
// a conversation in the store.
type Store struct {
	conversations []Conversation
	activeID      string

	newID IDFunc
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDFunc overrides the id generator (time-ordered UUIDv7 by default).
func WithIDFunc(fn IDFunc) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns an empty store with no active conversation.
func NewStore(opts ...Option) Store {
	s := Store{
		newID: newTimeOrderedID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Create prepends an empty conversation with the default title and makes it
// active.
func (s Store) Create() (Store, string) {
	id := s.newID()
	for s.index(id) >= 0 {
		id = s.newID()
	}

	c := Conversation{
		ID:        id,
		Title:     DefaultTitle,
		CreatedAt: s.now(),
	}

	next := s
	next.conversations = make([]Conversation, 0, len(s.conversations)+1)
	next.conversations = append(next.conversations, c)
	next.conversations = append(next.conversations, s.conversations...)
	next.activeID = id
	return next, id
}

// Select makes id the active conversation. Unknown ids are ignored.
func (s Store) Select(id string) Store {
	if s.index(id) < 0 {
		return s
	}
	s.activeID = id
	return s
}

// Append adds msg to the end of the conversation's transcript. Unknown ids
// are ignored: a reply for a deleted conversation is dropped.
func (s Store) Append(id string, msg Message) Store {
	return s.update(id, func(c *Conversation) {
		msgs := make([]Message, len(c.Messages), len(c.Messages)+1)
		copy(msgs, c.Messages)
		c.Messages = append(msgs, msg)
	})
}

// Rename sets the conversation title.
func (s Store) Rename(id, title string) Store {
	return s.update(id, func(c *Conversation) {
		c.Title = title
	})
}

// Clear empties the transcript and restores the default title. The
// conversation stays in the store.
func (s Store) Clear(id string) Store {
	return s.update(id, func(c *Conversation) {
		c.Messages = nil
		c.Title = DefaultTitle
	})
}

// Delete removes the conversation. Deleting the active conversation leaves
// no conversation active.
func (s Store) Delete(id string) Store {
	i := s.index(id)
	if i < 0 {
		return s
	}

	next := s
	next.conversations = slices.Delete(slices.Clone(s.conversations), i, i+1)
	if s.activeID == id {
		next.activeID = ""
	}
	return next
}

// Conversations returns the conversations, newest first. The returned slice
// is a copy.
func (s Store) Conversations() []Conversation {
	return slices.Clone(s.conversations)
}

// Get returns the conversation with the given id.
func (s Store) Get(id string) (Conversation, bool) {
	i := s.index(id)
	if i < 0 {
		return Conversation{}, false
	}
	return s.conversations[i], true
}

// Active returns the active conversation, if any.
func (s Store) Active() (Conversation, bool) {
	if s.activeID == "" {
		return Conversation{}, false
	}
	return s.Get(s.activeID)
}

// ActiveID returns the active conversation id or "".
func (s Store) ActiveID() string {
	return s.activeID
}

// Len returns the number of conversations.
func (s Store) Len() int {
	return len(s.conversations)
}

func (s Store) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.conversations, func(c Conversation) bool {
		return c.ID == id
	})
}

// update copies the conversation slice and applies fn to the copy of the
// matching conversation.
func (s Store) update(id string, fn func(*Conversation)) Store {
	i := s.index(id)
	if i < 0 {
		return s
	}

	next := s
	next.conversations = slices.Clone(s.conversations)
	fn(&next.conversations[i])
	return next
}
