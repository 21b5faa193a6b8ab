package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)

func TestEnvelope_Frame(t *testing.T) {
	frame, err := NewChatMessage("hi", "alice", fixedTime).Frame()
	require.NoError(t, err)
	assert.Equal(t, OutboundFrame{Username: "alice", Message: "hi", Timestamp: "2024-05-01 12:30:45"}, frame)

	frame, err = joinedNotice("alice", fixedTime).Frame()
	require.NoError(t, err)
	assert.Equal(t, SystemUsername, frame.Username)
	assert.Equal(t, "alice joined the chat.", frame.Message)

	frame, err = leftNotice("alice", fixedTime).Frame()
	require.NoError(t, err)
	assert.Equal(t, "alice left the chat.", frame.Message)
}

func TestEnvelope_Frame_SystemNoticeIgnoresUsername(t *testing.T) {
	env := NewSystemNotice("maintenance", fixedTime)
	env.Username = "mallory"

	frame, err := env.Frame()
	require.NoError(t, err)
	assert.Equal(t, SystemUsername, frame.Username)
}

func TestEnvelope_Frame_UnknownKind(t *testing.T) {
	_, err := Envelope{Kind: EnvelopeKind(9), Message: "x"}.Frame()
	assert.Error(t, err)
}

func TestEnvelope_MarshalFrame_UTC(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	ts := time.Date(2024, 5, 1, 15, 30, 45, 0, moscow)

	data, err := NewChatMessage("hi", "alice", ts).MarshalFrame()
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, map[string]string{
		"username":  "alice",
		"message":   "hi",
		"timestamp": "2024-05-01 12:30:45",
	}, got)
}

func TestParseInbound(t *testing.T) {
	tests := []struct {
		name         string
		data         string
		wantMessage  string
		wantUsername string
		wantErr      bool
	}{
		{name: "valid", data: `{"message":"hi","username":"alice"}`, wantMessage: "hi", wantUsername: "alice"},
		{name: "extra fields", data: `{"message":"hi","username":"alice","room":3}`, wantMessage: "hi", wantUsername: "alice"},
		{name: "empty values", data: `{"message":"","username":""}`},
		{name: "missing username", data: `{"message":"hi"}`, wantErr: true},
		{name: "missing message", data: `{"username":"alice"}`, wantErr: true},
		{name: "null message", data: `{"message":null,"username":"alice"}`, wantErr: true},
		{name: "not json", data: `hello`, wantErr: true},
		{name: "array", data: `["hi","alice"]`, wantErr: true},
		{name: "wrong type", data: `{"message":5,"username":"alice"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message, username, err := parseInbound([]byte(tt.data))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedFrame)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMessage, message)
			assert.Equal(t, tt.wantUsername, username)
		})
	}
}
