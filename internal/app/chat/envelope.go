package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// SystemUsername is the display name carried by server-generated notices.
// Inbound frames claiming it are discarded so notices cannot be re-injected.
const SystemUsername = "System"

// TimestampLayout is the wire format of OutboundFrame.Timestamp (UTC).
const TimestampLayout = "2006-01-02 15:04:05"

// EnvelopeKind is the closed set of envelope variants.
type EnvelopeKind int

const (
	// KindChatMessage is a persisted message relayed from a client.
	KindChatMessage EnvelopeKind = iota + 1

	// KindSystemNotice is a server-generated join/leave announcement. Never persisted.
	KindSystemNotice
)

func (k EnvelopeKind) String() string {
	switch k {
	case KindChatMessage:
		return "chat_message"
	case KindSystemNotice:
		return "system_notice"
	default:
		return fmt.Sprintf("EnvelopeKind(%d)", int(k))
	}
}

// Envelope is the unit fanned out by the Registry. It is a value type: every
// member receives an identical copy.
type Envelope struct {
	Kind      EnvelopeKind
	Message   string
	Username  string
	Timestamp time.Time
}

// NewChatMessage builds the envelope for an accepted client message.
func NewChatMessage(message, username string, ts time.Time) Envelope {
	return Envelope{
		Kind:      KindChatMessage,
		Message:   message,
		Username:  username,
		Timestamp: ts,
	}
}

// NewSystemNotice builds a server announcement.
func NewSystemNotice(message string, ts time.Time) Envelope {
	return Envelope{
		Kind:      KindSystemNotice,
		Message:   message,
		Username:  SystemUsername,
		Timestamp: ts,
	}
}

// joinedNotice and leftNotice are the membership announcements.
func joinedNotice(username string, ts time.Time) Envelope {
	return NewSystemNotice(username+" joined the chat.", ts)
}

func leftNotice(username string, ts time.Time) Envelope {
	return NewSystemNotice(username+" left the chat.", ts)
}

// OutboundFrame is the JSON text frame written to a client socket.
type OutboundFrame struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Frame renders the envelope for the wire. This is the single dispatch point
// over EnvelopeKind on the outbound path.
func (e Envelope) Frame() (OutboundFrame, error) {
	ts := e.Timestamp.UTC().Format(TimestampLayout)

	switch e.Kind {
	case KindChatMessage:
		return OutboundFrame{Username: e.Username, Message: e.Message, Timestamp: ts}, nil
	case KindSystemNotice:
		return OutboundFrame{Username: SystemUsername, Message: e.Message, Timestamp: ts}, nil
	default:
		return OutboundFrame{}, fmt.Errorf("unknown envelope kind %s", e.Kind)
	}
}

// MarshalFrame renders and JSON-encodes the envelope.
func (e Envelope) MarshalFrame() ([]byte, error) {
	frame, err := e.Frame()
	if err != nil {
		return nil, err
	}
	return json.Marshal(frame)
}

// InboundFrame is the JSON text frame a client sends. Pointer fields tell a
// missing field apart from an empty one.
type InboundFrame struct {
	Message  *string `json:"message"`
	Username *string `json:"username"`
}

// parseInbound decodes a client frame. Frames that are not a JSON object or
// lack either field are rejected with ErrMalformedFrame.
func parseInbound(data []byte) (message, username string, err error) {
	var in InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if in.Message == nil || in.Username == nil {
		return "", "", fmt.Errorf("%w: missing message or username", ErrMalformedFrame)
	}

	return *in.Message, *in.Username, nil
}
