package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/app/store"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// persistTimeout bounds a single AppendMessage call.
	persistTimeout = 5 * time.Second

	// MaxContentBytes is the largest accepted message text.
	MaxContentBytes = 5000

	// DefaultQueueSize is the outbound queue capacity of a session.
	DefaultQueueSize = 256
)

// State is the lifecycle stage of a Session.
type State int32

const (
	StateConnecting State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one connected client: its socket, identity and resolved chat.
type Session struct {
	id    string
	conn  *websocket.Conn
	user  user.User
	room  RoomID
	chat  store.Chat
	group string

	registry *Registry
	messages MessageAppender
	now      func() time.Time

	// send is the bounded outbound queue drained by writePump.
	send chan Envelope

	// done is closed by leave; it stops writePump and rejects further deliveries.
	done chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Int32
	leaveOnce sync.Once

	logger zerolog.Logger
}

// ID implements Member.
func (s *Session) ID() string { return s.id }

// User returns the authenticated identity of the session.
func (s *Session) User() user.User { return s.user }

// Chat returns the chat record the session resolved at connect time.
func (s *Session) Chat() store.Chat { return s.chat }

// GroupName returns the broadcast group the session belongs to.
func (s *Session) GroupName() string { return s.group }

// State returns the current lifecycle stage.
func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed once the session has left its group.
func (s *Session) Done() <-chan struct{} { return s.done }

// Deliver implements Member. It never blocks.
func (s *Session) Deliver(env Envelope) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- env:
		return true
	default:
		return false
	}
}

// Evict implements Member by closing the session.
func (s *Session) Evict() {
	s.leave()
}

// Run joins the group, announces the arrival and relays frames until the
// socket closes. It blocks for the lifetime of the connection.
func (s *Session) Run() {
	s.registry.Join(s.group, s)
	s.state.Store(int32(StateJoined))
	s.logger.Info().Msg("Session joined group.")

	s.registry.Broadcast(s.group, joinedNotice(s.user.Username, s.now()))

	go s.writePump()
	s.readPump()
}

// leave runs the Closed transition exactly once, whichever side noticed the
// disconnect first: leave the group, announce the departure, stop the write pump.
func (s *Session) leave() {
	s.leaveOnce.Do(func() {
		wasJoined := State(s.state.Swap(int32(StateClosed))) == StateJoined

		s.registry.Leave(s.group, s)
		if wasJoined {
			s.registry.Broadcast(s.group, leftNotice(s.user.Username, s.now()))
		}

		close(s.done)
		s.cancel()

		s.logger.Info().Msg("Session left group.")
	})
}

// readPump reads client frames until the connection fails, then leaves.
func (s *Session) readPump() {
	defer func() {
		s.leave()
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			return
		}

		if messageType != websocket.TextMessage {
			s.logger.Warn().Int("message_type", messageType).Msg("Dropping non-text frame")
			continue
		}

		s.handleInbound(data)
	}
}

// handleInbound validates one client frame, persists it and broadcasts it.
// Every failure drops only this frame.
func (s *Session) handleInbound(data []byte) {
	message, username, err := parseInbound(data)
	if err != nil {
		s.logger.Warn().Err(err).Int("frame_bytes", len(data)).Msg("Dropping malformed frame")
		return
	}

	if username == SystemUsername {
		s.logger.Debug().Msg("Dropping frame claiming the system username")
		return
	}

	if strings.TrimSpace(message) == "" || len(message) > MaxContentBytes {
		s.logger.Warn().Int("content_bytes", len(message)).Msg("Dropping empty or oversized message")
		return
	}

	ts := s.now()

	ctx, cancel := context.WithTimeout(s.ctx, persistTimeout)
	_, err = s.messages.AppendMessage(ctx, s.chat.ID, s.user.ID, message, ts)
	cancel()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error().Err(err).Int64("chat_id", s.chat.ID).Msg("Failed to persist message, not broadcasting")
		return
	}

	s.registry.Broadcast(s.group, NewChatMessage(message, username, ts))
}

// writePump drains the outbound queue to the socket and keeps the connection
// alive with pings. Closing the socket on exit ends readPump as well.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case env := <-s.send:
			if !s.writeEnvelope(env) {
				return
			}

		case <-ticker.C:
			if !s.writeControl(websocket.PingMessage, nil) {
				return
			}

		case <-s.done:
			s.writeControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) writeEnvelope(env Envelope) bool {
	data, err := env.MarshalFrame()
	if err != nil {
		s.logger.Error().Err(err).Stringer("kind", env.Kind).Msg("Failed to render envelope")
		return true
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Info().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

func (s *Session) writeControl(messageType int, data []byte) bool {
	if err := s.conn.WriteControl(messageType, data, time.Now().Add(writeWait)); err != nil {
		if !errors.Is(err, websocket.ErrCloseSent) {
			s.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing control frame")
		}
		return false
	}
	return true
}

// newSession builds a session in the Connecting state.
func newSession(r *Relay, conn *websocket.Conn, u user.User, room RoomID, chat store.Chat) *Session {
	id := uuid.NewString()
	group := room.Resolved(chat).GroupName()

	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:       id,
		conn:     conn,
		user:     u,
		room:     room,
		chat:     chat,
		group:    group,
		registry: r.registry,
		messages: r.messages,
		now:      r.now,
		send:     make(chan Envelope, r.queueSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		logger: logx.Logger().With().
			Str("component", "Session").
			Str("session_id", id).
			Int64("user_id", u.ID).
			Str("group", group).
			Logger(),
	}
	s.state.Store(int32(StateConnecting))

	return s
}

var _ Member = (*Session)(nil)
