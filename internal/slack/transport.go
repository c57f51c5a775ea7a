package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/keepmind9/slackbridge/internal/logger"
	"github.com/keepmind9/slackbridge/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Socket Mode envelope types
const (
	envelopeTypeHello      = "hello"
	envelopeTypeDisconnect = "disconnect"
	envelopeTypeEventsAPI  = "events_api"
)

// SocketEnvelope is one inbound real-time envelope. Event is nil for
// control envelopes (hello, disconnect). Ack must be called exactly once
// per events_api envelope; the envelope enforces the once part itself.
type SocketEnvelope struct {
	EnvelopeID string
	Type       string
	Event      *Event

	ackOnce sync.Once
	ack     func() error
}

// Ack acknowledges the envelope to the platform. Calling it more than once
// is a no-op; the first error, if any, is returned on every call.
func (e *SocketEnvelope) Ack() error {
	var err error
	e.ackOnce.Do(func() {
		if e.ack != nil {
			err = e.ack()
		}
	})
	return err
}

// LifecycleHooks are optional notifications about the transport connection.
// Nil hooks are skipped.
type LifecycleHooks struct {
	OnOpen          func()
	OnAuthenticated func()
	OnClose         func()
	OnError         func(error)
}

// ConnectionOpener is the handshake surface the transport needs from the
// Web API client.
type ConnectionOpener interface {
	OpenConnection(ctx context.Context) (string, error)
}

// Transport is the real-time event stream collaborator
type Transport interface {
	// Connect opens the stream and delivers envelopes to the handler
	// until disconnect. The handler is called from the read loop; it must
	// not block on long work.
	Connect(ctx context.Context, handler func(*SocketEnvelope)) error

	// Disconnect closes the stream and stops further event delivery
	Disconnect() error
}

// SocketTransport implements Transport over a Socket Mode websocket long
// connection. There is no reconnect or retry in this layer: a read error or
// a disconnect envelope tears the connection down and delivery stops.
type SocketTransport struct {
	mu      sync.RWMutex
	writeMu sync.Mutex
	opener  ConnectionOpener
	hooks   LifecycleHooks
	conn    *websocket.Conn
	cancel  context.CancelFunc
}

// NewSocketTransport creates a transport that performs its handshake
// through the given opener.
func NewSocketTransport(opener ConnectionOpener, hooks LifecycleHooks) *SocketTransport {
	return &SocketTransport{opener: opener, hooks: hooks}
}

// socketFrame is the wire shape of an inbound Socket Mode frame
type socketFrame struct {
	EnvelopeID string `json:"envelope_id"`
	Type       string `json:"type"`
	Reason     string `json:"reason,omitempty"`
	Payload    struct {
		Event   *Event `json:"event"`
		EventTS string `json:"event_ts"`
	} `json:"payload"`
}

// Connect performs the handshake, dials the websocket and starts the read
// loop. It returns once the connection is established; envelopes flow to
// the handler from a background goroutine.
func (t *SocketTransport) Connect(ctx context.Context, handler func(*SocketEnvelope)) error {
	connID := uuid.NewString()

	wsURL, err := t.opener.OpenConnection(ctx)
	if err != nil {
		return fmt.Errorf("failed to open socket mode connection: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: constants.DefaultHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial socket mode url: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.conn = conn
	t.cancel = cancel
	t.mu.Unlock()

	logger.WithField("conn_id", connID).Info("socket-mode-connection-opened")
	if t.hooks.OnOpen != nil {
		t.hooks.OnOpen()
	}

	go t.readLoop(loopCtx, connID, conn, handler)
	return nil
}

// readLoop reads frames until the connection dies or the context is
// cancelled, converting events_api frames into envelopes for the handler.
func (t *SocketTransport) readLoop(ctx context.Context, connID string, conn *websocket.Conn, handler func(*SocketEnvelope)) {
	defer func() {
		conn.Close()
		logger.WithField("conn_id", connID).Info("socket-mode-connection-closed")
		if t.hooks.OnClose != nil {
			t.hooks.OnClose()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.WithFields(logrus.Fields{
					"conn_id": connID,
					"error":   err,
				}).Error("socket-mode-read-failed")
				if t.hooks.OnError != nil {
					t.hooks.OnError(err)
				}
			}
			return
		}

		var frame socketFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.WithFields(logrus.Fields{
				"conn_id": connID,
				"error":   err,
			}).Error("socket-mode-frame-decode-failed")
			continue
		}

		switch frame.Type {
		case envelopeTypeHello:
			logger.WithField("conn_id", connID).Info("socket-mode-authenticated")
			if t.hooks.OnAuthenticated != nil {
				t.hooks.OnAuthenticated()
			}
		case envelopeTypeDisconnect:
			logger.WithFields(logrus.Fields{
				"conn_id": connID,
				"reason":  frame.Reason,
			}).Info("socket-mode-disconnect-requested")
			return
		case envelopeTypeEventsAPI:
			if frame.Payload.Event != nil {
				frame.Payload.Event.EnvelopeTS = frame.Payload.EventTS
			}
			envelopeID := frame.EnvelopeID
			handler(&SocketEnvelope{
				EnvelopeID: envelopeID,
				Type:       frame.Type,
				Event:      frame.Payload.Event,
				ack: func() error {
					return t.writeAck(envelopeID)
				},
			})
		default:
			logger.WithFields(logrus.Fields{
				"conn_id":       connID,
				"envelope_type": frame.Type,
			}).Debug("socket-mode-frame-ignored")
		}
	}
}

// writeAck acknowledges an envelope by echoing its ID back on the socket
func (t *SocketTransport) writeAck(envelopeID string) error {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("socket mode connection not established")
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return conn.WriteJSON(map[string]string{"envelope_id": envelopeID})
}

// Disconnect tears down the connection. In-flight event handling is not
// cancelled; results of tasks already running are simply never used.
func (t *SocketTransport) Disconnect() error {
	t.mu.Lock()
	cancel := t.cancel
	conn := t.conn
	t.conn = nil
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
