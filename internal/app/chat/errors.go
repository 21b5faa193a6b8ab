package chat

import "errors"

var (
	// ErrInvalidRoomKind is returned for a room kind other than private or group.
	ErrInvalidRoomKind = errors.New("invalid room kind")

	// ErrInvalidRoomKey is returned for a non-numeric or non-positive room key,
	// and for a private chat requested with oneself.
	ErrInvalidRoomKey = errors.New("invalid room key")

	// ErrNotParticipant is returned when the requester is not a member of the group chat.
	ErrNotParticipant = errors.New("user is not a participant of the chat")
)

// ErrMalformedFrame is returned for an inbound frame that is not {message, username}.
var ErrMalformedFrame = errors.New("malformed inbound frame")
