package slack

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/keepmind9/slackbridge/internal/logger"
	"github.com/sirupsen/logrus"
)

// Drop reasons for events intentionally withheld from the runtime
const (
	DropNoActor      = "no-actor"
	DropSelfAuthored = "self-authored"
	DropBuildFailed  = "build-failed"
)

// DroppedError reports an inbound event that was classified but not
// forwarded. Reason is one of the Drop* constants; Cause carries the
// underlying failure when the drop was not a policy decision.
type DroppedError struct {
	Reason string
	Cause  error
}

func (e *DroppedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("event dropped (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("event dropped (%s)", e.Reason)
}

func (e *DroppedError) Unwrap() error {
	return e.Cause
}

// Normalizer classifies raw inbound events into normalized message kinds and
// enriches them with resolved user and conversation data. It owns no state
// of its own; the directory and cache are injected collaborators so the
// state machine can be tested against fakes.
type Normalizer struct {
	users     *UserDirectory
	convs     *ConversationCache
	self      Identity
	mentionRE *regexp.Regexp
}

// NewNormalizer creates a normalizer for the given adapter identity
func NewNormalizer(users *UserDirectory, convs *ConversationCache, self Identity) *Normalizer {
	return &Normalizer{
		users:     users,
		convs:     convs,
		self:      self,
		mentionRE: regexp.MustCompile(`<@` + regexp.QuoteMeta(self.UserID) + `(\|[^>]*)?>`),
	}
}

// Normalize turns one raw event into a normalized message, or a
// *DroppedError explaining why the event is withheld. Resolution failures
// for the acting user or the message conversation drop the single event;
// they never abort the stream.
func (n *Normalizer) Normalize(ctx context.Context, ev *Event) (*Message, error) {
	if ev == nil || ev.User == "" || ev.Type == "" {
		return nil, &DroppedError{Reason: DropNoActor}
	}

	actor, err := n.users.Resolve(ctx, ev.User)
	if err != nil {
		return nil, &DroppedError{Reason: DropBuildFailed, Cause: err}
	}
	if actor.ID == n.self.UserID {
		return nil, &DroppedError{Reason: DropSelfAuthored}
	}

	switch ev.Type {
	case EventTypeMemberJoined:
		return &Message{
			Kind: KindEnter,
			User: actor,
			Room: ev.Channel,
			TS:   ev.TS,
		}, nil

	case EventTypeMemberLeft:
		// The leave timestamp comes from the outer envelope, not the
		// event's own ts field. The asymmetry with member_joined_channel
		// is part of the contract.
		return &Message{
			Kind: KindLeave,
			User: actor,
			Room: ev.Channel,
			TS:   ev.EnvelopeTS,
		}, nil

	case EventTypeReactionAdded, EventTypeReactionRemoved:
		return n.reaction(ctx, actor, ev), nil

	case EventTypeFileShared:
		return &Message{
			Kind:   KindFileShared,
			User:   actor,
			Room:   ev.Channel,
			TS:     ev.EventTS,
			FileID: ev.FileID,
		}, nil

	default:
		msg, err := n.plainText(ctx, actor, ev)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"event_type": ev.Type,
				"channel":    ev.Channel,
				"error":      err,
			}).Error("plain-text-message-build-failed")
			return nil, &DroppedError{Reason: DropBuildFailed, Cause: err}
		}
		return msg, nil
	}
}

// reaction builds a Reaction message. The acting user's room is the item's
// conversation when the item is a message; file and comment reactions are
// not scoped to a conversation and resolve to an empty room. An item user
// that cannot be resolved degrades to an empty placeholder.
func (n *Normalizer) reaction(ctx context.Context, actor *User, ev *Event) *Message {
	room := ""
	if ev.Item != nil && ev.Item.Type == "message" {
		room = ev.Item.Channel
	}

	itemUser := &User{}
	if ev.ItemUser != "" {
		resolved, err := n.users.Resolve(ctx, ev.ItemUser)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"item_user": ev.ItemUser,
				"error":     err,
			}).Debug("item-user-resolution-failed")
		} else {
			itemUser = resolved
		}
	}

	return &Message{
		Kind:         KindReaction,
		User:         actor,
		Room:         room,
		TS:           ev.EventTS,
		Reaction:     ev.Reaction,
		ReactionType: ev.Type,
		ItemUser:     itemUser,
		Item:         ev.Item,
	}
}

// plainText is the rich default branch: any event type without a dedicated
// handler becomes a plain-text message. Building one resolves the
// conversation for the direct-message check, so it can fail on malformed
// payloads or lookup errors; the caller logs and drops on failure.
func (n *Normalizer) plainText(ctx context.Context, actor *User, ev *Event) (*Message, error) {
	if ev.Channel == "" {
		return nil, fmt.Errorf("event without channel cannot become a text message")
	}
	conv, err := n.convs.Resolve(ctx, ev.Channel)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation %s: %w", ev.Channel, err)
	}

	text := ev.Text
	if conv.IsIM {
		text = n.prefixDirectMention(text)
	}
	text = n.expandSelfMention(text)

	return &Message{
		Kind:     KindPlainText,
		User:     actor,
		Room:     ev.Channel,
		TS:       ev.TS,
		Text:     text,
		ThreadTS: ev.ThreadTS,
	}, nil
}

// prefixDirectMention prepends the adapter's own mention token to
// direct-message text that does not already mention it, so the runtime's
// name-addressed matching fires in DMs without an explicit mention.
func (n *Normalizer) prefixDirectMention(text string) string {
	if strings.Contains(text, "<@"+n.self.UserID) {
		return text
	}
	return "<@" + n.self.UserID + "> " + text
}

// expandSelfMention replaces mentions of the adapter's own ID, in either the
// bare <@ID> or labeled <@ID|name> form, with the configured alias or an
// @name fallback.
func (n *Normalizer) expandSelfMention(text string) string {
	replacement := n.self.Alias
	if replacement == "" {
		replacement = "@" + n.self.Name
	}
	return n.mentionRE.ReplaceAllString(text, replacement)
}
