package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentalhub/internal/models"
)

func newChatFixture() (*ChatService, *memChatRepo) {
	users := newMemUserRepo(
		&models.User{ID: "alice", Name: "Alice", Email: "alice@example.com"},
		&models.User{ID: "bob", Name: "Bob", Email: "bob@example.com"},
		&models.User{ID: "carol", Name: "Carol", Email: "carol@example.com"},
	)
	chats := newMemChatRepo(users)
	return NewChatService(chats, users), chats
}

func TestGetOrCreateChat_Idempotent(t *testing.T) {
	svc, repo := newChatFixture()
	ctx := context.Background()

	first, err := svc.GetOrCreateChat(ctx, "alice", "bob")
	require.NoError(t, err)
	second, err := svc.GetOrCreateChat(ctx, "alice", "bob")
	require.NoError(t, err)
	reversed, err := svc.GetOrCreateChat(ctx, "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ID, reversed.ID)
	assert.Equal(t, 1, repo.creates)
	assert.ElementsMatch(t, []string{"alice", "bob"}, first.Participants)
}

func TestGetOrCreateChat_ConcurrentInitiationCreatesOne(t *testing.T) {
	svc, repo := newChatFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "alice", "bob"
			if i%2 == 1 {
				a, b = b, a
			}
			chat, err := svc.GetOrCreateChat(ctx, a, b)
			if assert.NoError(t, err) {
				ids[i] = chat.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, repo.creates)
}

func TestGetOrCreateChat_Errors(t *testing.T) {
	svc, _ := newChatFixture()
	ctx := context.Background()

	_, err := svc.GetOrCreateChat(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfChat)

	_, err = svc.GetOrCreateChat(ctx, "alice", "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostMessage(t *testing.T) {
	svc, _ := newChatFixture()
	ctx := context.Background()
	chat, err := svc.GetOrCreateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	msg, participants, err := svc.PostMessage(ctx, chat.ID, "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "Alice", msg.Sender.Name)
	assert.ElementsMatch(t, []string{"alice", "bob"}, participants)

	history, err := svc.GetMessages(ctx, chat.ID, "bob", 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, msg.ID, history[0].ID)
}

func TestPostMessage_Rejections(t *testing.T) {
	svc, _ := newChatFixture()
	ctx := context.Background()
	chat, err := svc.GetOrCreateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	_, _, err = svc.PostMessage(ctx, chat.ID, "alice", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, _, err = svc.PostMessage(ctx, "missing", "alice", "hi")
	assert.ErrorIs(t, err, ErrChatNotFound)

	_, _, err = svc.PostMessage(ctx, chat.ID, "carol", "hi")
	assert.ErrorIs(t, err, ErrNotChatMember)
}

func TestGetMessages_Rejections(t *testing.T) {
	svc, _ := newChatFixture()
	ctx := context.Background()
	chat, err := svc.GetOrCreateChat(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.GetMessages(ctx, "missing", "alice", 0, 0)
	assert.ErrorIs(t, err, ErrChatNotFound)

	_, err = svc.GetMessages(ctx, chat.ID, "carol", 0, 0)
	assert.ErrorIs(t, err, ErrNotChatMember)
}

func TestListUserChats_EmptyIsNotNil(t *testing.T) {
	svc, _ := newChatFixture()
	chats, err := svc.ListUserChats(context.Background(), "carol")
	require.NoError(t, err)
	assert.NotNil(t, chats)
	assert.Empty(t, chats)
}
