package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"relaychat/internal/app/store"
)

// memStore is an in-memory Store with just enough behaviour for the relay.
type memStore struct {
	mu       sync.Mutex
	users    map[int64]bool
	groups   map[int64]store.Chat
	private  map[[2]int64]store.Chat
	nextID   int64
	messages []store.Message

	// failContent makes AppendMessage fail for this exact content.
	failContent string
}

func newMemStore(userIDs ...int64) *memStore {
	m := &memStore{
		users:   make(map[int64]bool),
		groups:  make(map[int64]store.Chat),
		private: make(map[[2]int64]store.Chat),
		nextID:  100,
	}
	for _, id := range userIDs {
		m.users[id] = true
	}
	return m
}

func (m *memStore) addGroup(id int64, members ...int64) store.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat := store.Chat{ID: id, Name: "group", IsGroup: true, Members: members}
	m.groups[id] = chat
	return chat
}

func (m *memStore) FindGroupChat(_ context.Context, id int64) (store.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chat, ok := m.groups[id]
	if !ok {
		return store.Chat{}, store.ErrChatNotFound
	}
	return chat, nil
}

func (m *memStore) FindOrCreatePrivateChat(_ context.Context, a, b int64) (store.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.users[a] || !m.users[b] {
		return store.Chat{}, store.ErrUserNotFound
	}

	low, high := store.PairKey(a, b)
	key := [2]int64{low, high}
	if chat, ok := m.private[key]; ok {
		return chat, nil
	}

	m.nextID++
	chat := store.Chat{ID: m.nextID, Members: []int64{low, high}}
	m.private[key] = chat
	return chat, nil
}

func (m *memStore) AppendMessage(_ context.Context, chatID, senderID int64, content string, ts time.Time) (store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failContent != "" && content == m.failContent {
		return store.Message{}, errors.New("disk on fire")
	}

	msg := store.Message{
		ID:        int64(len(m.messages) + 1),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: ts,
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memStore) storedMessages() []store.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]store.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *memStore) privateChats() []store.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]store.Chat, 0, len(m.private))
	for _, c := range m.private {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fakeMember records deliveries in a bounded inbox.
type fakeMember struct {
	id      string
	inbox   chan Envelope
	evicted atomic.Int32
}

func newFakeMember(id string, capacity int) *fakeMember {
	return &fakeMember{id: id, inbox: make(chan Envelope, capacity)}
}

func (f *fakeMember) ID() string { return f.id }

func (f *fakeMember) Deliver(env Envelope) bool {
	select {
	case f.inbox <- env:
		return true
	default:
		return false
	}
}

func (f *fakeMember) Evict() { f.evicted.Add(1) }

func (f *fakeMember) drain() []Envelope {
	var out []Envelope
	for {
		select {
		case env := <-f.inbox:
			out = append(out, env)
		default:
			return out
		}
	}
}
