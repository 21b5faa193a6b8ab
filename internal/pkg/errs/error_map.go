package errs

import "net/http"

// errorMap holds the template CustomError for every application error code.
var errorMap = map[int]CustomError{
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	ErrRoomKindInvalid: {Code: ErrRoomKindInvalid, Message: "Invalid chat type.", Status: http.StatusBadRequest},
	ErrRoomKeyInvalid:  {Code: ErrRoomKeyInvalid, Message: "Invalid chat key.", Status: http.StatusBadRequest},
	ErrChatNotFound:    {Code: ErrChatNotFound, Message: "Chat not found.", Status: http.StatusNotFound},
	ErrPeerNotFound:    {Code: ErrPeerNotFound, Message: "User not found.", Status: http.StatusNotFound},
	ErrNotParticipant:  {Code: ErrNotParticipant, Message: "You are not a member of this chat.", Status: http.StatusForbidden},

	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStorageUnavailable: {Code: ErrStorageUnavailable, Message: "Chat service is temporarily unavailable.", Status: http.StatusServiceUnavailable},
}
