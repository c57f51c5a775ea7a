// Package slack implements the adapter between a bot runtime's message model
// and Slack's real-time event stream and Web API.
//
// The package is split along the inbound/outbound boundary:
//
//   - Normalizer: classifies raw events into message kinds and enriches them
//     with resolved user and conversation data
//   - UserDirectory: write-through user resolution with merge semantics
//   - ConversationCache: TTL-bounded conversation metadata cache
//   - Gateway: serialized outbound sends and topic changes
//   - Adapter: connects the above to the runtime's connect/receive/send contract
//
// Network collaborators (Web API, Socket Mode transport) are consumed through
// small interfaces so that every component can be unit tested with fakes.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handled inbound event types. Any other type falls through to the
// plain-text branch of the normalizer.
const (
	EventTypeMessage         = "message"
	EventTypeMemberJoined    = "member_joined_channel"
	EventTypeMemberLeft      = "member_left_channel"
	EventTypeReactionAdded   = "reaction_added"
	EventTypeReactionRemoved = "reaction_removed"
	EventTypeFileShared      = "file_shared"
	EventTypeUserChange      = "user_change"
)

// User represents a Slack workspace user enriched with locally persisted fields.
//
// Platform fields (Name, RealName, Profile and friends) are authoritative on
// every fresh sighting. Extra holds fields added locally by the bot runtime;
// they survive merges when absent from a new platform payload.
type User struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	RealName     string         `json:"real_name,omitempty"`
	EmailAddress string         `json:"email_address,omitempty"`
	IsBot        bool           `json:"is_bot,omitempty"`
	Profile      map[string]any `json:"profile,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Conversation represents Slack conversation metadata as returned by
// conversations.info.
type Conversation struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	IsChannel bool   `json:"is_channel,omitempty"`
	IsGroup   bool   `json:"is_group,omitempty"`
	IsIM      bool   `json:"is_im,omitempty"`
	IsMPIM    bool   `json:"is_mpim,omitempty"`
	Topic     Topic  `json:"topic,omitempty"`
}

// Topic is a conversation topic as carried on conversations.info responses
type Topic struct {
	Value string `json:"value"`
}

// ReactionItem describes the item a reaction event points at.
// Type is "message", "file" or "file_comment".
type ReactionItem struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	TS      string `json:"ts,omitempty"`
	File    string `json:"file,omitempty"`
}

// Event is a raw inbound event from the real-time stream.
//
// The user field on the wire is a string ID for most event types but a full
// user object on user_change, so Event carries both forms: User always holds
// the acting user ID, UserPayload the inline object when one was present.
// EnvelopeTS is the outer envelope timestamp, set by the transport; it is
// distinct from the event's own TS field and the two are not interchangeable.
type Event struct {
	Type        string        `json:"type"`
	SubType     string        `json:"subtype,omitempty"`
	User        string        `json:"-"`
	UserPayload *User         `json:"-"`
	Channel     string        `json:"channel,omitempty"`
	ChannelType string        `json:"channel_type,omitempty"`
	Text        string        `json:"text,omitempty"`
	TS          string        `json:"ts,omitempty"`
	ThreadTS    string        `json:"thread_ts,omitempty"`
	Reaction    string        `json:"reaction,omitempty"`
	ItemUser    string        `json:"item_user,omitempty"`
	Item        *ReactionItem `json:"item,omitempty"`
	FileID      string        `json:"file_id,omitempty"`
	EventTS     string        `json:"event_ts,omitempty"`
	EnvelopeTS  string        `json:"-"`
}

// UnmarshalJSON decodes an event, accepting the user field both as a plain
// ID string and as an inline user object.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	aux := struct {
		*alias
		RawUser json.RawMessage `json:"user,omitempty"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.RawUser) == 0 {
		return nil
	}
	switch aux.RawUser[0] {
	case '"':
		return json.Unmarshal(aux.RawUser, &e.User)
	case '{':
		var u User
		if err := json.Unmarshal(aux.RawUser, &u); err != nil {
			return err
		}
		e.UserPayload = &u
		e.User = u.ID
		return nil
	case 'n': // null
		return nil
	default:
		return fmt.Errorf("unexpected user field shape: %s", string(aux.RawUser))
	}
}

// MessageKind enumerates the normalized message variants handed to the runtime
type MessageKind string

const (
	KindPlainText  MessageKind = "plain_text"
	KindEnter      MessageKind = "enter"
	KindLeave      MessageKind = "leave"
	KindReaction   MessageKind = "reaction"
	KindFileShared MessageKind = "file_shared"
)

// Message is a normalized inbound message. Kind selects the variant; the
// kind-specific fields are zero for other variants.
type Message struct {
	Kind MessageKind
	User *User  // resolved acting user
	Room string // resolved conversation ID, empty for unscoped items
	TS   string // Slack timestamp string, e.g. "1360782804.083113"

	// KindPlainText
	Text     string
	ThreadTS string

	// KindReaction
	Reaction     string // reaction name without colons, e.g. "thumbsup"
	ReactionType string // "reaction_added" or "reaction_removed"
	ItemUser     *User  // author of the reacted-to item, may be an empty placeholder
	Item         *ReactionItem

	// KindFileShared
	FileID string
}

// Envelope addresses an outbound message. Room resolution prefers Room and
// falls back to ID; a send with neither is rejected locally.
type Envelope struct {
	Room     string
	ID       string
	ThreadTS string
}

// Payload is an outbound message body. Extra carries structured Web API
// arguments (attachments, blocks, unfurl options); extra fields override the
// computed defaults except for the channel.
type Payload struct {
	Text  string
	Extra map[string]any
}

// Identity is the adapter's own Slack identity as reported by auth.test.
// Alias, if configured, replaces bot mentions in normalized text.
type Identity struct {
	UserID string
	Name   string
	TeamID string
	Alias  string
}

// UserAPI is the Web API surface the user directory needs
type UserAPI interface {
	GetUserInfo(ctx context.Context, userID string) (*User, error)
	ListUsers(ctx context.Context, cursor string, limit int) ([]*User, string, error)
}

// ConversationAPI is the Web API surface the conversation cache needs
type ConversationAPI interface {
	GetConversationInfo(ctx context.Context, conversationID string) (*Conversation, error)
}

// ChatAPI is the Web API surface the outbound gateway needs
type ChatAPI interface {
	PostMessage(ctx context.Context, args map[string]any) error
	SetTopic(ctx context.Context, conversationID, topic string) error
}

// UserStore is the runtime's persistent key-value store of users.
// Set follows the merge rule: callers pass the already-merged record and the
// store persists it whole.
type UserStore interface {
	Get(userID string) (*User, bool)
	Set(user *User) error
}

// Receiver is the bot runtime's inbound entry point. Normalized messages that
// survive classification are handed here exactly once each.
type Receiver interface {
	Receive(msg *Message)
}
