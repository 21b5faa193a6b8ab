package chat

import (
	"context"
	"fmt"
	"strconv"

	"relaychat/internal/app/store"
	"relaychat/internal/app/user"
)

// ChatFinder is the part of the storage collaborator used to resolve rooms.
type ChatFinder interface {
	FindGroupChat(ctx context.Context, id int64) (store.Chat, error)
	FindOrCreatePrivateChat(ctx context.Context, a, b int64) (store.Chat, error)
}

// Resolver turns a RoomID into the chat record behind it.
type Resolver struct {
	chats ChatFinder
}

// NewResolver returns a Resolver backed by chats.
func NewResolver(chats ChatFinder) *Resolver {
	return &Resolver{chats: chats}
}

// Resolve returns the chat for room as seen by requester.
//
// Group rooms are looked up by id and require requester to be a participant.
// Private rooms are found or created for the pair {requester, peer}; the store
// guarantees one chat per pair even when both users connect at once.
func (r *Resolver) Resolve(ctx context.Context, room RoomID, requester user.User) (store.Chat, error) {
	id, err := parseRoomKey(room.Key)
	if err != nil {
		return store.Chat{}, err
	}

	switch room.Kind {
	case RoomGroup:
		chat, err := r.chats.FindGroupChat(ctx, id)
		if err != nil {
			return store.Chat{}, fmt.Errorf("resolve group chat %d: %w", id, err)
		}
		if !chat.HasMember(requester.ID) {
			return store.Chat{}, fmt.Errorf("resolve group chat %d for user %d: %w", id, requester.ID, ErrNotParticipant)
		}
		return chat, nil

	case RoomPrivate:
		if id == requester.ID {
			return store.Chat{}, fmt.Errorf("%w: private chat with oneself", ErrInvalidRoomKey)
		}
		chat, err := r.chats.FindOrCreatePrivateChat(ctx, requester.ID, id)
		if err != nil {
			return store.Chat{}, fmt.Errorf("resolve private chat %d<->%d: %w", requester.ID, id, err)
		}
		return chat, nil

	default:
		return store.Chat{}, fmt.Errorf("%w: %q", ErrInvalidRoomKind, room.Kind)
	}
}

func parseRoomKey(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRoomKey, key)
	}
	return id, nil
}
