package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	initWith(&buf, false)
	return &buf
}

func TestInfo_Fields(t *testing.T) {
	buf := captureLogs(t)

	Info("session joined", "user_id", 7, "group", "group_1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line[zerolog.LevelFieldName])
	assert.Equal(t, "session joined", line[zerolog.MessageFieldName])
	assert.EqualValues(t, 7, line["user_id"])
	assert.Equal(t, "group_1", line["group"])
	assert.Contains(t, line, zerolog.CallerFieldName)
}

func TestDebug_FilteredInProduction(t *testing.T) {
	buf := captureLogs(t)

	Debug("noisy")
	assert.Empty(t, buf.String())
}

func TestComponent(t *testing.T) {
	buf := captureLogs(t)

	logger := Component("Registry")
	logger.Warn().Msg("queue full")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Registry", line["component"])
}

func TestAnonymizeIP(t *testing.T) {
	tests := map[string]string{
		"203.0.113.42:5555":    "203.0.113.0",
		"203.0.113.42":         "203.0.113.0",
		"[::1]:8080":           "127.0.0.1",
		"[2001:db8:1:2::7]:80": "2001:db8:1:2::",
		"not-an-ip":            "unknown_ip",
	}

	for in, want := range tests {
		assert.Equal(t, want, anonymizeIP(in), in)
	}
}
