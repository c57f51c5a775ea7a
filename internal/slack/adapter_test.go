package slack

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	connected    bool
	disconnected bool
}

func (f *fakeTransport) Connect(ctx context.Context, handler func(*SocketEnvelope)) error {
	f.connected = true
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.disconnected = true
	return nil
}

type recordingReceiver struct {
	mu       sync.Mutex
	received []*Message
	notify   chan struct{}
}

func newRecordingReceiver() *recordingReceiver {
	return &recordingReceiver{notify: make(chan struct{}, 16)}
}

func (r *recordingReceiver) Receive(msg *Message) {
	r.mu.Lock()
	r.received = append(r.received, msg)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *recordingReceiver) messages() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Message(nil), r.received...)
}

func (r *recordingReceiver) waitForMessage(t *testing.T) *Message {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a received message")
	}
	msgs := r.messages()
	return msgs[len(msgs)-1]
}

func newTestAdapter(userAPI *fakeUserAPI, convAPI *fakeConversationAPI, receiver Receiver) (*Adapter, *fakeStore) {
	store := newFakeStore()
	users := NewUserDirectory(userAPI, store, 0)
	convs := NewConversationCache(convAPI, time.Minute)
	a := NewAdapter(nil, &fakeTransport{}, users, convs, receiver, AdapterOptions{})
	self := Identity{UserID: testBotID, Name: testBotName}
	a.self = self
	a.normalizer = NewNormalizer(users, convs, self)
	return a, store
}

func TestHandleEnvelopeAcksBeforeNormalization(t *testing.T) {
	receiver := newRecordingReceiver()
	userAPI := &fakeUserAPI{users: map[string]*User{
		"U1": {ID: "U1", Name: "alice"},
	}}
	a, _ := newTestAdapter(userAPI, &fakeConversationAPI{}, receiver)

	acks := 0
	a.handleEnvelope(&SocketEnvelope{
		EnvelopeID: "e1",
		Type:       envelopeTypeEventsAPI,
		Event: &Event{
			Type:    EventTypeMemberJoined,
			User:    "U1",
			Channel: "C1",
			TS:      "1.0",
		},
		ack: func() error {
			acks++
			return nil
		},
	})

	msg := receiver.waitForMessage(t)
	assert.Equal(t, 1, acks)
	assert.Equal(t, KindEnter, msg.Kind)
}

func TestHandleEnvelopeAcksDroppedEvents(t *testing.T) {
	receiver := newRecordingReceiver()
	a, _ := newTestAdapter(&fakeUserAPI{}, &fakeConversationAPI{}, receiver)

	acks := 0
	a.handleEnvelope(&SocketEnvelope{
		EnvelopeID: "e1",
		Type:       envelopeTypeEventsAPI,
		Event:      &Event{Type: EventTypeMessage}, // no actor, will be dropped
		ack: func() error {
			acks++
			return nil
		},
	})

	// Ack is synchronous in handleEnvelope, before the normalization
	// goroutine even starts.
	assert.Equal(t, 1, acks)
	assert.Empty(t, receiver.messages())
}

func TestHandleEventFiltersSelfAuthored(t *testing.T) {
	receiver := newRecordingReceiver()
	userAPI := &fakeUserAPI{users: map[string]*User{
		testBotID: {ID: testBotID, Name: testBotName},
	}}
	a, _ := newTestAdapter(userAPI, &fakeConversationAPI{}, receiver)

	a.handleEvent(&Event{
		Type:    EventTypeMemberJoined,
		User:    testBotID,
		Channel: "C1",
	})

	assert.Empty(t, receiver.messages(), "self-authored events must never reach the runtime")
}

func TestHandleEventUserChangeUpdatesDirectoryOnly(t *testing.T) {
	receiver := newRecordingReceiver()
	a, store := newTestAdapter(&fakeUserAPI{}, &fakeConversationAPI{}, receiver)

	a.handleEvent(&Event{
		Type:        EventTypeUserChange,
		User:        "U1",
		UserPayload: &User{ID: "U1", Name: "alice"},
	})

	u, ok := store.Get("U1")
	require.True(t, ok)
	assert.Equal(t, "alice", u.Name)
	assert.Empty(t, receiver.messages(), "user_change is a directory update, not a runtime message")
}

func TestReplyContinuesThread(t *testing.T) {
	chat := &fakeChatAPI{}
	a, _ := newTestAdapter(&fakeUserAPI{}, &fakeConversationAPI{}, newRecordingReceiver())
	a.gateway = NewGateway(chat, a.convs)

	a.Reply(context.Background(), &Message{
		Kind:     KindPlainText,
		Room:     "C1",
		ThreadTS: "5.5",
	}, Payload{Text: "on it"})

	require.Len(t, chat.postArgs, 1)
	assert.Equal(t, "C1", chat.postArgs[0]["channel"])
	assert.Equal(t, "5.5", chat.postArgs[0]["thread_ts"])
}

func TestStopDisconnectsTransport(t *testing.T) {
	transport := &fakeTransport{}
	a := NewAdapter(nil, transport, nil, nil, newRecordingReceiver(), AdapterOptions{})
	require.NoError(t, a.Stop())
	assert.True(t, transport.disconnected)
}
