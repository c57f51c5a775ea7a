package core

import (
	"testing"

	"github.com/keepmind9/slackbridge/internal/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	config := &Config{
		Slack: SlackConfig{
			BotToken:               "xoxb-test",
			AppToken:               "xapp-test",
			ConversationCacheTTLMS: "300000",
		},
		Storage: StorageConfig{Type: StorageTypeMemory},
	}
	engine, err := NewEngine(config)
	require.NoError(t, err)
	return engine
}

func TestReceiveRoutesPlainTextThroughHandlers(t *testing.T) {
	engine := newTestEngine(t)

	var seen []string
	engine.RegisterHandler(func(msg *slack.Message) (string, bool) {
		seen = append(seen, "first:"+msg.Text)
		return "", false
	})
	engine.RegisterHandler(func(msg *slack.Message) (string, bool) {
		seen = append(seen, "second:"+msg.Text)
		return "", true
	})
	engine.RegisterHandler(func(msg *slack.Message) (string, bool) {
		seen = append(seen, "third:"+msg.Text)
		return "", true
	})

	engine.Receive(&slack.Message{
		Kind: slack.KindPlainText,
		User: &slack.User{ID: "U1"},
		Room: "C1",
		Text: "hello",
	})

	// Unhandled messages fall through; the chain stops at the first handler
	// that claims the message.
	assert.Equal(t, []string{"first:hello", "second:hello"}, seen)
}

func TestReceiveIgnoresNonTextKinds(t *testing.T) {
	engine := newTestEngine(t)

	called := false
	engine.RegisterHandler(func(msg *slack.Message) (string, bool) {
		called = true
		return "", true
	})

	for _, kind := range []slack.MessageKind{
		slack.KindEnter, slack.KindLeave, slack.KindReaction, slack.KindFileShared,
	} {
		engine.Receive(&slack.Message{
			Kind: kind,
			User: &slack.User{ID: "U1"},
			Room: "C1",
		})
	}

	assert.False(t, called)
}
