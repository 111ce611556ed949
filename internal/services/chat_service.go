package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"rentalhub/internal/models"
	"rentalhub/internal/repositories"
	"rentalhub/internal/utils"
)

// ChatService is the chat store facade used by the HTTP handlers and the
// realtime gateway.
type ChatService struct {
	repo  repositories.ChatRepository
	users repositories.UserRepository
	pairs *utils.KeyLock
}

func NewChatService(repo repositories.ChatRepository, users repositories.UserRepository) *ChatService {
	return &ChatService{repo: repo, users: users, pairs: utils.NewKeyLock()}
}

// GetOrCreateChat returns the direct chat between the two users, creating it
// on first contact. Creation is serialised per participant pair in process and
// the pair key is unique in storage.
func (s *ChatService) GetOrCreateChat(ctx context.Context, userA, userB string) (*models.Chat, error) {
	if userA == userB {
		return nil, ErrSelfChat
	}
	pairKey := utils.PairKey(userA, userB)

	chat, err := s.repo.FindByPairKey(ctx, pairKey)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	unlock := s.pairs.Lock(pairKey)
	defer unlock()

	if _, err := s.users.GetByID(ctx, userB); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	chat, err = s.repo.CreateDirect(ctx, pairKey, userA, userB)
	if errors.Is(err, repositories.ErrNotFound) {
		// participant row references a user that does not exist
		return nil, ErrUserNotFound
	}
	return chat, err
}

func (s *ChatService) ListUserChats(ctx context.Context, userID string) ([]*models.ChatSummary, error) {
	chats, err := s.repo.ListUserChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []*models.ChatSummary{}
	}
	return chats, nil
}

func (s *ChatService) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	return s.repo.IsMember(ctx, chatID, userID)
}

func (s *ChatService) ListUserChatIDs(ctx context.Context, userID string) ([]string, error) {
	return s.repo.ListUserChatIDs(ctx, userID)
}

// GetMessages returns history oldest first for a participant of the chat.
func (s *ChatService) GetMessages(ctx context.Context, chatID, userID string, limit, offset int) ([]*models.ChatMessage, error) {
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(chat, userID) {
		return nil, ErrNotChatMember
	}
	return s.repo.ListMessages(ctx, chatID, limit, offset)
}

// PostMessage persists a message from a chat participant and returns it along
// with the chat's participants.
func (s *ChatService) PostMessage(ctx context.Context, chatID, senderID, content string) (*models.ChatMessage, []string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil, ErrEmptyMessage
	}
	chat, err := s.getChat(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	if !isParticipant(chat, senderID) {
		return nil, nil, ErrNotChatMember
	}
	msg, err := s.repo.CreateMessage(ctx, chatID, senderID, content)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrChatNotFound
		}
		return nil, nil, err
	}
	return msg, chat.Participants, nil
}

func (s *ChatService) getChat(ctx context.Context, chatID string) (*models.Chat, error) {
	chat, err := s.repo.GetByID(ctx, chatID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	return chat, err
}

func isParticipant(chat *models.Chat, userID string) bool {
	for _, p := range chat.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
