/*
Package errs provides the application's error type and error code constants.

Codes identify a failure both in server logs and in the JSON body returned to
clients whose WebSocket handshake was refused.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat Resolution and Message Errors
const (
	// ErrRoomKindInvalid indicates a room kind other than "private" or "group".
	ErrRoomKindInvalid = 2101

	// ErrRoomKeyInvalid indicates a room key that is not a positive numeric id,
	// or a private chat requested with oneself.
	ErrRoomKeyInvalid = 2102

	// ErrChatNotFound indicates that the requested group chat does not exist.
	ErrChatNotFound = 2103

	// ErrPeerNotFound indicates that the peer user of a private chat does not exist.
	ErrPeerNotFound = 2104

	// ErrNotParticipant indicates that the user is not a member of the group chat.
	ErrNotParticipant = 2105
)

// 3xxx: Session and Identity Errors
const (
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 3001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStorageUnavailable indicates that the storage collaborator failed.
	ErrStorageUnavailable = 5001
)
