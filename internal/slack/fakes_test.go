package slack

import (
	"context"
	"fmt"
	"sync"
)

// fakeStore is an in-memory UserStore for tests
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*User)}
}

func (s *fakeStore) Get(userID string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	return u, ok
}

func (s *fakeStore) Set(user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

// fakeUserAPI serves canned users and records call counts
type fakeUserAPI struct {
	mu        sync.Mutex
	users     map[string]*User
	pages     [][]*User
	pageErrAt int // 1-based page index that fails, 0 = never
	infoCalls int
	listCalls int
}

func (f *fakeUserAPI) GetUserInfo(ctx context.Context, userID string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, &APIError{Method: "users.info", Code: "user_not_found"}
}

func (f *fakeUserAPI) ListUsers(ctx context.Context, cursor string, limit int) ([]*User, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	page := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "page-%d", &page)
	}
	if f.pageErrAt > 0 && page+1 == f.pageErrAt {
		return nil, "", &APIError{Method: "users.list", Code: "fatal_error"}
	}
	if page >= len(f.pages) {
		return nil, "", nil
	}
	next := ""
	if page+1 < len(f.pages) || f.pageErrAt > page+1 {
		next = fmt.Sprintf("page-%d", page+1)
	}
	return f.pages[page], next, nil
}

// fakeConversationAPI serves canned conversations and records call counts
type fakeConversationAPI struct {
	mu    sync.Mutex
	convs map[string]*Conversation
	calls int
	err   error
}

func (f *fakeConversationAPI) GetConversationInfo(ctx context.Context, conversationID string) (*Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.convs[conversationID]; ok {
		return c, nil
	}
	return nil, &APIError{Method: "conversations.info", Code: "channel_not_found"}
}

// fakeChatAPI records outbound calls
type fakeChatAPI struct {
	mu         sync.Mutex
	postArgs   []map[string]any
	topics     map[string]string
	postErr    error
	topicCalls int
}

func (f *fakeChatAPI) PostMessage(ctx context.Context, args map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postArgs = append(f.postArgs, args)
	return f.postErr
}

func (f *fakeChatAPI) SetTopic(ctx context.Context, conversationID, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topicCalls++
	if f.topics == nil {
		f.topics = make(map[string]string)
	}
	f.topics[conversationID] = topic
	return nil
}
