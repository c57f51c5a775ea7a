package slack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketEnvelopeAcksExactlyOnce(t *testing.T) {
	acks := 0
	env := &SocketEnvelope{
		EnvelopeID: "e1",
		Type:       envelopeTypeEventsAPI,
		ack: func() error {
			acks++
			return nil
		},
	}

	require.NoError(t, env.Ack())
	require.NoError(t, env.Ack())
	require.NoError(t, env.Ack())
	assert.Equal(t, 1, acks)
}

func TestSocketEnvelopeAckWithoutTransport(t *testing.T) {
	env := &SocketEnvelope{EnvelopeID: "e1"}
	assert.NoError(t, env.Ack())
}

func TestSocketFrameDecode(t *testing.T) {
	raw := `{
		"envelope_id": "env-1",
		"type": "events_api",
		"payload": {
			"event": {"type": "member_left_channel", "user": "U1", "channel": "C1", "ts": "1.0"},
			"event_ts": "9.9"
		}
	}`

	var frame socketFrame
	require.NoError(t, json.Unmarshal([]byte(raw), &frame))
	assert.Equal(t, "env-1", frame.EnvelopeID)
	assert.Equal(t, envelopeTypeEventsAPI, frame.Type)
	require.NotNil(t, frame.Payload.Event)
	assert.Equal(t, EventTypeMemberLeft, frame.Payload.Event.Type)
	assert.Equal(t, "9.9", frame.Payload.EventTS)
}

func TestSocketFrameDecodeDisconnect(t *testing.T) {
	raw := `{"type": "disconnect", "reason": "refresh_requested"}`

	var frame socketFrame
	require.NoError(t, json.Unmarshal([]byte(raw), &frame))
	assert.Equal(t, envelopeTypeDisconnect, frame.Type)
	assert.Equal(t, "refresh_requested", frame.Reason)
	assert.Nil(t, frame.Payload.Event)
}
