package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RowanDark/veil/internal/redact"
)

func TestAuditLoggerEmit(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := NewAuditLogger("test", WithoutStdout(), WithWriter(buf))
	require.NoError(t, err)

	event := AuditEvent{
		EventType: EventTextEncoded,
		Decision:  DecisionAllow,
		Metadata: map[string]any{
			"protocol_id": "Zq8RtY2mPk4w",
			"text":        "attack at dawn",
			"noise_level": 2,
		},
	}
	require.NoError(t, logger.Emit(event))

	var decoded AuditEvent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "test", decoded.Component)
	assert.Equal(t, EventTextEncoded, decoded.EventType)
	assert.Equal(t, DecisionAllow, decoded.Decision)
	assert.False(t, decoded.Timestamp.IsZero())
	_, err = uuid.Parse(decoded.RequestID)
	assert.NoError(t, err)

	assert.Equal(t, redact.Fingerprint("Zq8RtY2mPk4w"), decoded.Metadata["protocol_id"])
	assert.Equal(t, "[REDACTED_TEXT len=14]", decoded.Metadata["text"])
	assert.EqualValues(t, 2, decoded.Metadata["noise_level"])
	assert.NotContains(t, buf.String(), "attack at dawn")
}

func TestAuditLoggerWithComponentSharesWriters(t *testing.T) {
	buf := &bytes.Buffer{}
	root, err := NewAuditLogger("root", WithoutStdout(), WithWriter(buf))
	require.NoError(t, err)
	child := root.WithComponent("api")

	require.NoError(t, root.Emit(AuditEvent{EventType: EventProtocolCreated, RequestID: "req-1"}))
	require.NoError(t, child.Emit(AuditEvent{EventType: EventRPCDenied, Decision: DecisionDeny}))
	require.NoError(t, child.Close(), "children do not own writers")

	scanner := bufio.NewScanner(buf)
	var components []string
	for scanner.Scan() {
		var ev AuditEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		components = append(components, ev.Component)
	}
	assert.Equal(t, []string{"root", "api"}, components)
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}

func TestAuditLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewAuditLogger("file", WithoutStdout(), WithFile(path))
	require.NoError(t, err)
	require.NoError(t, logger.Emit(AuditEvent{EventType: EventProtocolDeleted}))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), string(EventProtocolDeleted))
}

func TestAuditLoggerOptionErrors(t *testing.T) {
	_, err := NewAuditLogger("x", WithWriter(nil))
	assert.Error(t, err)
	_, err = NewAuditLogger("x", WithFile(" "))
	assert.Error(t, err)
	_, err = NewAuditLogger("x", WithoutStdout())
	assert.ErrorContains(t, err, "no writers")

	var nilLogger *AuditLogger
	assert.Error(t, nilLogger.Emit(AuditEvent{}))
	assert.NoError(t, nilLogger.Close())
	assert.NoError(t, Discard().Emit(AuditEvent{EventType: EventRPCCall}))
}
