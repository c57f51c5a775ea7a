package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/keepmind9/slackbridge/internal/logger"
	"github.com/keepmind9/slackbridge/internal/slack"
	"github.com/keepmind9/slackbridge/internal/store"
	"github.com/sirupsen/logrus"
)

// Handler processes one plain-text message. It returns the reply text and
// whether it handled the message; unhandled messages fall through to the
// next handler in registration order.
type Handler func(msg *slack.Message) (string, bool)

// Engine is the bot runtime side of the adapter contract: it owns the user
// store, receives normalized messages and routes plain-text ones through
// registered handlers, replying via the adapter.
type Engine struct {
	config  *Config
	store   store.Store
	adapter *slack.Adapter

	handlerMu sync.RWMutex
	handlers  []Handler

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine builds an engine and its adapter from validated configuration
func NewEngine(config *Config) (*Engine, error) {
	userStore, err := newStore(config)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config: config,
		store:  userStore,
	}

	var clientOpts []slack.WebClientOption
	if config.Slack.ProxyURL != "" {
		clientOpts = append(clientOpts, slack.WithProxy(config.Slack.ProxyURL))
	}
	client := slack.NewWebClient(config.Slack.BotToken, config.Slack.AppToken, clientOpts...)

	transport := slack.NewSocketTransport(client, slack.LifecycleHooks{
		OnClose: func() {
			logger.Info("real-time-stream-closed")
		},
		OnError: func(err error) {
			logger.WithField("error", err).Error("real-time-stream-error")
		},
	})

	users := slack.NewUserDirectory(client, userStore, config.Slack.UserListPageSize)
	convs := slack.NewConversationCache(client, config.ConversationCacheTTL())

	e.adapter = slack.NewAdapter(client, transport, users, convs, e, slack.AdapterOptions{
		Alias:           config.Slack.Alias,
		DisableUserSync: config.Slack.DisableUserSync,
	})
	return e, nil
}

// newStore selects the user store backend from configuration
func newStore(config *Config) (store.Store, error) {
	switch config.Storage.Type {
	case StorageTypePostgres:
		s, err := store.NewPostgresStore(config.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres user store: %w", err)
		}
		return s, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// RegisterHandler appends a plain-text message handler
func (e *Engine) RegisterHandler(h Handler) {
	e.handlerMu.Lock()
	defer e.handlerMu.Unlock()
	e.handlers = append(e.handlers, h)
}

// Run starts the adapter and blocks until Stop is called
func (e *Engine) Run() error {
	e.ctx, e.cancel = context.WithCancel(context.Background())

	if err := e.adapter.Start(e.ctx); err != nil {
		return fmt.Errorf("failed to start slack adapter: %w", err)
	}
	logger.Info("engine-started")

	<-e.ctx.Done()
	return nil
}

// Stop shuts down the adapter and releases the store
func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	if err := e.adapter.Stop(); err != nil {
		logger.WithField("error", err).Error("adapter-stop-failed")
	}
	if err := e.store.Close(); err != nil {
		return fmt.Errorf("failed to close user store: %w", err)
	}
	logger.Info("engine-stopped")
	return nil
}

// Receive implements slack.Receiver. Plain-text messages run through the
// handler chain; membership, reaction and file events are observed and
// logged only.
func (e *Engine) Receive(msg *slack.Message) {
	logger.WithFields(logrus.Fields{
		"kind":    string(msg.Kind),
		"user_id": msg.User.ID,
		"room":    msg.Room,
		"ts":      msg.TS,
	}).Debug("message-received")

	if msg.Kind != slack.KindPlainText {
		return
	}

	e.handlerMu.RLock()
	handlers := e.handlers
	e.handlerMu.RUnlock()

	for _, h := range handlers {
		reply, handled := h(msg)
		if !handled {
			continue
		}
		if strings.TrimSpace(reply) != "" {
			e.adapter.Reply(context.Background(), msg, slack.Payload{Text: reply})
		}
		return
	}
}
