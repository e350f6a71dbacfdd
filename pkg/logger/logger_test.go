package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("debug", FormatJSON, &buf)

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("subject", "alice").Info("issued")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "alice", entry["subject"])
	assert.Equal(t, "issued", entry["msg"])
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	log := NewWithOutput("chatty", FormatText, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestSanitizeLogMessage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		leaks string
	}{
		{"password", "login password=hunter2 failed", "hunter2"},
		{"bearer", "header bearer eyJhbGciOi.abc.def", "eyJhbGciOi"},
		{"signing key", "rotate signing_key=c2VjcmV0", "c2VjcmV0"},
		{"secret", "secret: topsecret", "topsecret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := SanitizeLogMessage(tt.input)
			assert.NotContains(t, out, tt.leaks)
			assert.Contains(t, out, redactedPlaceholder)
		})
	}
}

func TestFieldsRedactsSensitiveKeys(t *testing.T) {
	fields := Fields(map[string]interface{}{
		"refresh_token": "abc",
		"signing_key":   "xyz",
		"subject":       "alice",
	})

	assert.Equal(t, redactedPlaceholder, fields["refresh_token"])
	assert.Equal(t, redactedPlaceholder, fields["signing_key"])
	assert.Equal(t, "alice", fields["subject"])
}

func TestLoggerRedactsBeforeWriting(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("info", FormatJSON, &buf)

	log.WithFields(logrus.Fields{
		"refresh_token": "eyJhbGciOi.payload.sig",
		"subject":       "alice",
	}).WithError(errors.New("decode bearer eyJhbGciOi.payload.sig")).Warn("rejected password=hunter2")

	out := buf.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "eyJhbGciOi")
	assert.Contains(t, out, "alice")
}
