package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"rentalhub/internal/models"
	"rentalhub/internal/repositories"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	r := &memUserRepo{users: map[string]*models.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return errors.Wrap(repositories.ErrDuplicate, "create user")
		}
	}
	if user.ID == "" {
		user.ID = fmt.Sprintf("u%d", len(r.users)+1)
	}
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errors.Wrap(repositories.ErrNotFound, "get user")
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.Wrap(repositories.ErrNotFound, "get user by email")
}

func (r *memUserRepo) UpdatePushToken(_ context.Context, userID string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	u.PushToken = token
	return nil
}

func (r *memUserRepo) GetPushTargets(_ context.Context, ids []string) ([]models.PushTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PushTarget
	for _, id := range ids {
		u, ok := r.users[id]
		if !ok {
			continue
		}
		t := models.PushTarget{UserID: u.ID, Name: u.Name, Email: u.Email}
		if u.PushToken != nil {
			t.PushToken = *u.PushToken
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *memUserRepo) UpdateRefresh(_ context.Context, userID, token string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	u.RefreshToken = &token
	u.RefreshExpiresAt = &exp
	return nil
}

func (r *memUserRepo) RotateRefresh(_ context.Context, oldToken, newToken string, exp time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.RefreshToken != nil && *u.RefreshToken == oldToken && u.RefreshExpiresAt.After(time.Now()) {
			u.RefreshToken = &newToken
			u.RefreshExpiresAt = &exp
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type memChatRepo struct {
	mu       sync.Mutex
	chats    map[string]*models.Chat
	messages map[string][]*models.ChatMessage
	users    *memUserRepo
	creates  int
	failNext error
}

func newMemChatRepo(users *memUserRepo) *memChatRepo {
	return &memChatRepo{
		chats:    map[string]*models.Chat{},
		messages: map[string][]*models.ChatMessage{},
		users:    users,
	}
}

func (r *memChatRepo) GetByID(_ context.Context, id string) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[id]
	if !ok {
		return nil, errors.Wrap(repositories.ErrNotFound, "get chat")
	}
	cp := *c
	return &cp, nil
}

func (r *memChatRepo) FindByPairKey(_ context.Context, key string) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if c.PairKey == key {
			cp := *c
			return &cp, nil
		}
	}
	return nil, errors.Wrap(repositories.ErrNotFound, "find chat")
}

func (r *memChatRepo) CreateDirect(_ context.Context, key, a, b string) (*models.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.chats {
		if c.PairKey == key {
			cp := *c
			return &cp, nil
		}
	}
	r.creates++
	members := []string{a, b}
	sort.Strings(members)
	c := &models.Chat{ID: fmt.Sprintf("c%d", r.creates), PairKey: key, Participants: members, CreatedAt: time.Now()}
	r.chats[c.ID] = c
	cp := *c
	return &cp, nil
}

func (r *memChatRepo) ListUserChats(_ context.Context, userID string) ([]*models.ChatSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.ChatSummary
	for _, c := range r.chats {
		for _, p := range c.Participants {
			if p == userID {
				s := &models.ChatSummary{ID: c.ID, CreatedAt: c.CreatedAt}
				if msgs := r.messages[c.ID]; len(msgs) > 0 {
					s.LastMessage = msgs[len(msgs)-1]
				}
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (r *memChatRepo) ListUserChatIDs(ctx context.Context, userID string) ([]string, error) {
	chats, _ := r.ListUserChats(ctx, userID)
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memChatRepo) ListMessages(_ context.Context, chatID string, limit, offset int) ([]*models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[chatID]
	if offset > len(msgs) {
		offset = len(msgs)
	}
	msgs = msgs[offset:]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	return append([]*models.ChatMessage{}, msgs...), nil
}

func (r *memChatRepo) CreateMessage(_ context.Context, chatID, senderID, content string) (*models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNext; err != nil {
		r.failNext = nil
		return nil, err
	}
	if _, ok := r.chats[chatID]; !ok {
		return nil, repositories.ErrNotFound
	}
	sender := &models.Participant{ID: senderID}
	if u, ok := r.users.users[senderID]; ok {
		sender.Name = u.Name
	}
	m := &models.ChatMessage{
		ID:        fmt.Sprintf("m%d", len(r.messages[chatID])+1),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now(),
		Sender:    sender,
	}
	r.messages[chatID] = append(r.messages[chatID], m)
	return m, nil
}

func (r *memChatRepo) IsMember(_ context.Context, chatID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok {
		return false, nil
	}
	for _, p := range c.Participants {
		if p == userID {
			return true, nil
		}
	}
	return false, nil
}
