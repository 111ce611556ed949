package models

import "time"

// Chat is a direct conversation. PairKey is the normalized participant pair
// and is unique in storage.
type Chat struct {
	ID           string    `json:"id"`
	PairKey      string    `json:"-"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`

	Sender *Participant `json:"sender,omitempty"`
}

// ChatSummary is a list-preview row: the chat, who is in it and its latest message.
type ChatSummary struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	LastMessage  *ChatMessage  `json:"lastMessage"`
	CreatedAt    time.Time     `json:"created_at"`
}

type InitiateChatRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}
