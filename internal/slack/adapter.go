package slack

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/keepmind9/slackbridge/internal/logger"
	"github.com/sirupsen/logrus"
)

// AdapterOptions configures an Adapter
type AdapterOptions struct {
	// Alias, if set, replaces bot mentions in normalized text
	Alias string
	// DisableUserSync skips the startup workspace member load
	DisableUserSync bool
}

// Adapter wires the transport, normalizer and gateway to the bot runtime's
// connect/receive/send contract. One goroutine handles each inbound
// envelope; the envelope is acknowledged before normalization starts so a
// normalization failure can never cause redelivery.
type Adapter struct {
	mu        sync.RWMutex
	client    *WebClient
	transport Transport
	users     *UserDirectory
	convs     *ConversationCache
	gateway   *Gateway
	receiver  Receiver
	opts      AdapterOptions

	self       Identity
	normalizer *Normalizer
}

// NewAdapter assembles an adapter from its collaborators. The receiver is
// the runtime's inbound entry point.
func NewAdapter(client *WebClient, transport Transport, users *UserDirectory, convs *ConversationCache, receiver Receiver, opts AdapterOptions) *Adapter {
	return &Adapter{
		client:    client,
		transport: transport,
		users:     users,
		convs:     convs,
		gateway:   NewGateway(client, convs),
		receiver:  receiver,
		opts:      opts,
	}
}

// Self returns the adapter's resolved identity. Zero until Start succeeds.
func (a *Adapter) Self() Identity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.self
}

// Start resolves the adapter's own identity, optionally syncs the workspace
// member list, and connects the real-time stream. A failed member sync is
// logged and does not prevent the connection; a failed identity resolution
// or connection does.
func (a *Adapter) Start(ctx context.Context) error {
	self, err := a.client.AuthTest(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve bot identity: %w", err)
	}
	self.Alias = a.opts.Alias

	a.mu.Lock()
	a.self = *self
	a.normalizer = NewNormalizer(a.users, a.convs, *self)
	a.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"bot_id":   self.UserID,
		"bot_name": self.Name,
		"team_id":  self.TeamID,
	}).Info("bot-identity-resolved")

	if !a.opts.DisableUserSync {
		if _, err := a.users.BulkLoad(ctx); err != nil {
			logger.WithField("error", err).Error("workspace-user-sync-failed")
		}
	}

	if err := a.transport.Connect(ctx, a.handleEnvelope); err != nil {
		return fmt.Errorf("failed to connect real-time stream: %w", err)
	}
	return nil
}

// Stop disconnects the real-time stream. Tasks already normalizing keep
// running to completion; their results are discarded by the runtime.
func (a *Adapter) Stop() error {
	return a.transport.Disconnect()
}

// handleEnvelope runs on the transport read loop: acknowledge, then hand
// the event to a normalization goroutine so the loop never blocks on
// network calls.
func (a *Adapter) handleEnvelope(envelope *SocketEnvelope) {
	if err := envelope.Ack(); err != nil {
		logger.WithFields(logrus.Fields{
			"envelope_id": envelope.EnvelopeID,
			"error":       err,
		}).Error("envelope-ack-failed")
	}
	if envelope.Event == nil {
		return
	}
	go a.handleEvent(envelope.Event)
}

// handleEvent normalizes one event and forwards the result to the runtime.
// User-change sightings update the directory and are not forwarded.
func (a *Adapter) handleEvent(ev *Event) {
	ctx := context.Background()

	if ev.Type == EventTypeUserChange {
		if u := a.users.UpdateFromEvent(ev); u != nil {
			logger.WithField("user_id", u.ID).Debug("user-record-updated-from-event")
		}
		return
	}

	a.mu.RLock()
	normalizer := a.normalizer
	a.mu.RUnlock()
	if normalizer == nil {
		logger.Error("event-received-before-identity-resolved")
		return
	}

	msg, err := normalizer.Normalize(ctx, ev)
	if err != nil {
		var dropped *DroppedError
		if errors.As(err, &dropped) {
			logger.WithFields(logrus.Fields{
				"event_type": ev.Type,
				"reason":     dropped.Reason,
			}).Debug("inbound-event-dropped")
		} else {
			logger.WithFields(logrus.Fields{
				"event_type": ev.Type,
				"error":      err,
			}).Error("inbound-event-normalization-failed")
		}
		return
	}

	a.receiver.Receive(msg)
}

// Send delivers payloads to the envelope's conversation, best effort
func (a *Adapter) Send(ctx context.Context, envelope Envelope, payloads ...Payload) {
	for _, p := range payloads {
		a.gateway.Send(ctx, envelope, p)
	}
}

// Reply sends payloads back to the conversation a message came from,
// continuing its thread when the message was threaded.
func (a *Adapter) Reply(ctx context.Context, msg *Message, payloads ...Payload) {
	envelope := Envelope{Room: msg.Room, ThreadTS: msg.ThreadTS}
	a.Send(ctx, envelope, payloads...)
}

// SetTopic changes a conversation topic, best effort
func (a *Adapter) SetTopic(ctx context.Context, conversationID, topic string) {
	a.gateway.SetTopic(ctx, conversationID, topic)
}
