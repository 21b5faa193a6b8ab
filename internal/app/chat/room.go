/*
Package chat is the realtime relay core: it maps WebSocket sessions to rooms,
fans envelopes out to every member of a room and runs the join/leave
announcement protocol.

A Session resolves its chat through a Resolver, registers with the process-wide
Registry under the room's group name and then relays inbound text frames to the
room until its socket closes.
*/
package chat

import (
	"fmt"
	"strconv"

	"relaychat/internal/app/store"
)

// RoomKind distinguishes private (two-user) chats from group chats.
type RoomKind string

const (
	// RoomPrivate is a chat between the requester and one peer user.
	RoomPrivate RoomKind = "private"

	// RoomGroup is a chat addressed by its explicit id.
	RoomGroup RoomKind = "group"
)

// groupNameSeparator joins kind and key in a group name.
const groupNameSeparator = "_"

// ParseRoomKind validates a kind taken from the connection URL.
func ParseRoomKind(s string) (RoomKind, error) {
	switch RoomKind(s) {
	case RoomPrivate, RoomGroup:
		return RoomKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRoomKind, s)
	}
}

// RoomID identifies the room a connection asked for.
//
// For RoomGroup the key is the chat id; for RoomPrivate it is the peer's user id.
type RoomID struct {
	Kind RoomKind
	Key  string
}

// GroupName is the broadcast scope derived from the room id. Sessions with equal
// group names receive each other's envelopes.
func (r RoomID) GroupName() string {
	return string(r.Kind) + groupNameSeparator + r.Key
}

// Resolved returns the canonical id of the room once its chat is known. The two
// ends of a private chat address it by each other's user id, so the key is
// replaced by the chat id and both land in the same group.
func (r RoomID) Resolved(chat store.Chat) RoomID {
	return RoomID{Kind: r.Kind, Key: strconv.FormatInt(chat.ID, 10)}
}

func (r RoomID) String() string {
	return r.GroupName()
}
