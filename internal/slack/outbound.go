package slack

import (
	"context"

	"github.com/keepmind9/slackbridge/internal/logger"
	"github.com/sirupsen/logrus"
)

// Gateway builds outbound message envelopes and issues them through the
// Web API. Delivery is best-effort and at-most-once: failures are logged,
// never retried, and never surfaced to the runtime. The Web API client's
// single-permit semaphore serializes the actual network calls.
type Gateway struct {
	chat  ChatAPI
	convs *ConversationCache
}

// NewGateway creates a gateway over the given chat API. The conversation
// cache is consulted before topic changes to skip conversations that do not
// support topics.
func NewGateway(chat ChatAPI, convs *ConversationCache) *Gateway {
	return &Gateway{chat: chat, convs: convs}
}

// resolveRoom picks the destination conversation for an envelope: the
// explicit room when present, the identity-like ID field otherwise.
func resolveRoom(envelope Envelope) string {
	if envelope.Room != "" {
		return envelope.Room
	}
	return envelope.ID
}

// Send delivers one payload to the envelope's conversation. An envelope
// that resolves to no room is rejected locally with an error log and zero
// network calls. Structured payload fields override the computed arguments
// except for the channel, which always comes from room resolution.
func (g *Gateway) Send(ctx context.Context, envelope Envelope, payload Payload) {
	room := resolveRoom(envelope)
	if room == "" {
		logger.WithFields(logrus.Fields{
			"text_len": len(payload.Text),
		}).Error("outbound-send-without-destination")
		return
	}

	args := map[string]any{
		"channel": room,
		"text":    payload.Text,
	}
	if envelope.ThreadTS != "" {
		args["thread_ts"] = envelope.ThreadTS
	}
	for k, v := range payload.Extra {
		if k == "channel" {
			continue
		}
		args[k] = v
	}

	if err := g.chat.PostMessage(ctx, args); err != nil {
		logger.WithFields(logrus.Fields{
			"room":  room,
			"error": err,
		}).Error("outbound-send-failed")
		return
	}
	logger.WithField("room", room).Debug("outbound-message-sent")
}

// SetTopic changes a conversation topic. Direct-message style conversations
// have no topic; the call is a logged no-op for them. Fetch and set
// failures are logged, not propagated.
func (g *Gateway) SetTopic(ctx context.Context, conversationID, topic string) {
	conv, err := g.convs.Resolve(ctx, conversationID)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"error":           err,
		}).Error("topic-conversation-lookup-failed")
		return
	}
	if conv.IsIM || conv.IsMPIM {
		logger.WithField("conversation_id", conversationID).Debug("topic-skipped-for-direct-message")
		return
	}
	if err := g.chat.SetTopic(ctx, conversationID, topic); err != nil {
		logger.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"error":           err,
		}).Error("topic-set-failed")
		return
	}
	logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"topic":           topic,
	}).Debug("topic-set")
}
