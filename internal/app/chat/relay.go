package chat

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"relaychat/internal/app/store"
	"relaychat/internal/app/user"
)

// MessageAppender persists accepted chat messages.
type MessageAppender interface {
	AppendMessage(ctx context.Context, chatID, senderID int64, content string, ts time.Time) (store.Message, error)
}

// Store is everything the relay needs from storage.
type Store interface {
	ChatFinder
	MessageAppender
}

// Relay owns the process-wide registry and builds sessions for resolved rooms.
type Relay struct {
	registry  *Registry
	resolver  *Resolver
	messages  MessageAppender
	queueSize int
	now       func() time.Time
}

// NewRelay wires a relay over st. A non-positive queueSize selects DefaultQueueSize.
func NewRelay(registry *Registry, st Store, queueSize int) *Relay {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Relay{
		registry:  registry,
		resolver:  NewResolver(st),
		messages:  st,
		queueSize: queueSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Registry returns the registry shared by all sessions.
func (r *Relay) Registry() *Registry { return r.registry }

// Resolve resolves room for u. It must succeed before the socket is upgraded.
func (r *Relay) Resolve(ctx context.Context, room RoomID, u user.User) (store.Chat, error) {
	return r.resolver.Resolve(ctx, room, u)
}

// NewSession builds a session for an upgraded connection. Call Run on it.
func (r *Relay) NewSession(conn *websocket.Conn, u user.User, room RoomID, chat store.Chat) *Session {
	return newSession(r, conn, u, room, chat)
}

// Shutdown closes every live session.
func (r *Relay) Shutdown() {
	r.registry.Shutdown()
}
