/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains HandleWebSocket, which requires an authenticated identity,
resolves the requested chat and only then upgrades the connection and starts
the session. Handshakes are rate limited per IP by the router.
*/
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/store"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/auth/jwt"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc for /ws/chat/{kind}/{key}.
//
// A request whose chat cannot be resolved is refused with a JSON error before the
// upgrade, so it never joins a group and nothing is broadcast.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			logx.Info("WebSocket connection rejected: Missing identity.")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		kind, err := chat.ParseRoomKind(chi.URLParam(r, "kind"))
		if err != nil {
			logx.Info("WebSocket connection rejected: Invalid chat type.", "kind", chi.URLParam(r, "kind"))
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomKindInvalid))
			return
		}

		room := chat.RoomID{Kind: kind, Key: chi.URLParam(r, "key")}
		currentUser := user.User{
			ID:       payload.UserID,
			Username: payload.Username,
		}

		chatRecord, err := deps.Relay.Resolve(r.Context(), room, currentUser)
		if err != nil {
			logx.Info("WebSocket connection rejected: Chat resolution failed.",
				"room", room.String(),
				"user_id", currentUser.ID,
				"error", err.Error(),
			)
			resp.RespondError(w, r, resolveError(err))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "room", room.String())
			return
		}

		session := deps.Relay.NewSession(conn, currentUser, room, chatRecord)

		logx.Info("WebSocket connection established",
			"session_id", session.ID(),
			"user_id", currentUser.ID,
			"chat_id", chatRecord.ID,
			"group", session.GroupName(),
		)

		session.Run()
	}
}

// resolveError maps a resolution failure to the error shown to the client.
func resolveError(err error) *errs.CustomError {
	switch {
	case errors.Is(err, chat.ErrInvalidRoomKind):
		return errs.NewError(errs.ErrRoomKindInvalid)
	case errors.Is(err, chat.ErrInvalidRoomKey):
		return errs.NewError(errs.ErrRoomKeyInvalid)
	case errors.Is(err, chat.ErrNotParticipant):
		return errs.NewError(errs.ErrNotParticipant)
	case errors.Is(err, store.ErrChatNotFound):
		return errs.NewError(errs.ErrChatNotFound)
	case errors.Is(err, store.ErrUserNotFound):
		return errs.NewError(errs.ErrPeerNotFound)
	default:
		return errs.NewError(errs.ErrStorageUnavailable, err)
	}
}
