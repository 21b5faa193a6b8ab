/*
Package store is the relay's storage collaborator: it resolves chat records,
creates private chats on first contact and appends chat messages.

Two backends implement ChatStore: PostgreSQL through pgx (production) and SQLite
through GORM (local development and tests). Both enforce at most one private chat
per unordered pair of users with a unique index, so concurrent first contacts
converge on a single record.
*/
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrChatNotFound is returned when no group chat has the requested id.
	ErrChatNotFound = errors.New("chat not found")

	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUsername is returned when seeding a user whose name is taken.
	ErrDuplicateUsername = errors.New("username already exists")
)

// Chat is a persisted conversation.
type Chat struct {
	ID        int64
	Name      string
	IsGroup   bool
	Members   []int64
	CreatedAt time.Time
}

// HasMember reports whether userID participates in the chat.
func (c Chat) HasMember(userID int64) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// Message is one persisted chat message. Messages are append-only.
type Message struct {
	ID        int64
	ChatID    int64
	SenderID  int64
	Content   string
	Timestamp time.Time
}

// User is a seeded account row. Account management itself lives outside the relay.
type User struct {
	ID       int64
	Username string
}

// ChatStore is the storage surface consumed by the relay.
type ChatStore interface {
	// FindGroupChat returns the group chat with the given id, or ErrChatNotFound.
	FindGroupChat(ctx context.Context, id int64) (Chat, error)

	// FindOrCreatePrivateChat returns the private chat of the unordered pair {a, b},
	// creating it with both members when absent. It returns ErrUserNotFound when
	// either user does not exist.
	FindOrCreatePrivateChat(ctx context.Context, a, b int64) (Chat, error)

	// AppendMessage persists one message sent by senderID to chatID.
	AppendMessage(ctx context.Context, chatID, senderID int64, content string, ts time.Time) (Message, error)

	// Close releases the backend's resources.
	Close() error
}

// Seeder creates the users and group chats that account and chat management
// would normally provide. It is used by the development bootstrap and tests.
type Seeder interface {
	CreateUser(ctx context.Context, username string) (User, error)
	CreateGroupChat(ctx context.Context, name string, members []int64) (Chat, error)
}

// PairKey orders a user pair so {a, b} and {b, a} map to the same unique key.
func PairKey(a, b int64) (low, high int64) {
	if a < b {
		return a, b
	}
	return b, a
}
