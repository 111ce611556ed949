package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"rentalhub/internal/models"
)

type ChatRepository interface {
	GetByID(ctx context.Context, chatID string) (*models.Chat, error)
	FindByPairKey(ctx context.Context, pairKey string) (*models.Chat, error)
	// CreateDirect inserts a chat for the pair or returns the one that already holds pairKey.
	CreateDirect(ctx context.Context, pairKey, userA, userB string) (*models.Chat, error)
	ListUserChats(ctx context.Context, userID string) ([]*models.ChatSummary, error)
	ListUserChatIDs(ctx context.Context, userID string) ([]string, error)
	ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*models.ChatMessage, error)
	CreateMessage(ctx context.Context, chatID, senderID, content string) (*models.ChatMessage, error)
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
}

type chatRepository struct {
	DB *sql.DB
}

func NewChatRepository(db *sql.DB) ChatRepository {
	return &chatRepository{DB: db}
}

const chatSelect = `
	SELECT c.id, c.pair_key, c.created_at,
	       COALESCE(array_agg(cp.user_id ORDER BY cp.user_id) FILTER (WHERE cp.user_id IS NOT NULL), '{}') AS participants
	FROM chats c
	LEFT JOIN chat_participants cp ON cp.chat_id = c.id
`

func scanChat(row rowScanner) (*models.Chat, error) {
	chat := &models.Chat{}
	var participants pq.StringArray
	if err := row.Scan(&chat.ID, &chat.PairKey, &chat.CreatedAt, &participants); err != nil {
		return nil, err
	}
	chat.Participants = []string(participants)
	return chat, nil
}

func (r *chatRepository) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	q := chatSelect + ` WHERE c.id = $1 GROUP BY c.id, c.pair_key, c.created_at`
	chat, err := scanChat(r.DB.QueryRowContext(ctx, q, chatID))
	if err != nil {
		return nil, wrapErr(err, "get chat")
	}
	return chat, nil
}

func (r *chatRepository) FindByPairKey(ctx context.Context, pairKey string) (*models.Chat, error) {
	q := chatSelect + ` WHERE c.pair_key = $1 GROUP BY c.id, c.pair_key, c.created_at`
	chat, err := scanChat(r.DB.QueryRowContext(ctx, q, pairKey))
	if err != nil {
		return nil, wrapErr(err, "find chat by pair")
	}
	return chat, nil
}

func (r *chatRepository) CreateDirect(ctx context.Context, pairKey, userA, userB string) (*models.Chat, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapErr(err, "begin create chat")
	}
	defer func() { _ = tx.Rollback() }()

	const insertChat = `
		INSERT INTO chats (id, pair_key)
		VALUES ($1, $2)
		ON CONFLICT (pair_key) DO NOTHING
		RETURNING id, created_at
	`
	chat := &models.Chat{ID: uuid.NewString(), PairKey: pairKey}
	err = tx.QueryRowContext(ctx, insertChat, chat.ID, pairKey).Scan(&chat.ID, &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// someone else created it first
		_ = tx.Rollback()
		return r.FindByPairKey(ctx, pairKey)
	}
	if err != nil {
		return nil, wrapErr(err, "insert chat")
	}

	const insertParticipants = `
		INSERT INTO chat_participants (chat_id, user_id)
		SELECT $1, unnest($2::text[])
	`
	members := []string{userA, userB}
	if _, err := tx.ExecContext(ctx, insertParticipants, chat.ID, pq.Array(members)); err != nil {
		return nil, wrapErr(err, "insert chat participants")
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapErr(err, "commit create chat")
	}
	if userA > userB {
		members[0], members[1] = userB, userA
	}
	chat.Participants = members
	return chat, nil
}

func (r *chatRepository) ListUserChats(ctx context.Context, userID string) ([]*models.ChatSummary, error) {
	const q = `
		SELECT c.id, c.created_at,
		       COALESCE(p.participants, '[]'::json),
		       lm.id, lm.sender_id, lm.content, lm.created_at
		FROM chats c
		JOIN chat_participants me ON me.chat_id = c.id AND me.user_id = $1
		LEFT JOIN LATERAL (
			SELECT json_agg(json_build_object(
			           'id', u.id, 'name', u.name, 'avatar_url', COALESCE(u.avatar_url, '')
			       ) ORDER BY u.id) AS participants
			FROM chat_participants cp
			JOIN users u ON u.id = cp.user_id
			WHERE cp.chat_id = c.id
		) p ON TRUE
		LEFT JOIN LATERAL (
			SELECT m.id, m.sender_id, m.content, m.created_at
			FROM messages m
			WHERE m.chat_id = c.id
			ORDER BY m.created_at DESC, m.seq DESC
			LIMIT 1
		) lm ON TRUE
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC, c.id
	`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, wrapErr(err, "list user chats")
	}
	defer rows.Close()

	var chats []*models.ChatSummary
	for rows.Next() {
		var (
			s            models.ChatSummary
			participants []byte
			msgID        sql.NullString
			msgSender    sql.NullString
			msgContent   sql.NullString
			msgCreatedAt sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.CreatedAt, &participants,
			&msgID, &msgSender, &msgContent, &msgCreatedAt); err != nil {
			return nil, wrapErr(err, "scan chat summary")
		}
		if err := json.Unmarshal(participants, &s.Participants); err != nil {
			return nil, errors.Wrap(err, "decode chat participants")
		}
		if msgID.Valid {
			s.LastMessage = &models.ChatMessage{
				ID:        msgID.String,
				ChatID:    s.ID,
				SenderID:  msgSender.String,
				Content:   msgContent.String,
				CreatedAt: msgCreatedAt.Time,
			}
		}
		chats = append(chats, &s)
	}
	return chats, wrapErr(rows.Err(), "iterate user chats")
}

func (r *chatRepository) ListUserChatIDs(ctx context.Context, userID string) ([]string, error) {
	const q = `SELECT chat_id FROM chat_participants WHERE user_id = $1 ORDER BY chat_id`
	rows, err := r.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, wrapErr(err, "list user chat ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr(err, "scan chat id")
		}
		ids = append(ids, id)
	}
	return ids, wrapErr(rows.Err(), "iterate chat ids")
}

const messageSelect = `
	SELECT m.id, m.chat_id, m.sender_id, m.content, m.created_at,
	       u.name, COALESCE(u.avatar_url, '')
`

func scanMessage(row rowScanner) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{Sender: &models.Participant{}}
	if err := row.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &msg.CreatedAt,
		&msg.Sender.Name, &msg.Sender.AvatarURL); err != nil {
		return nil, err
	}
	msg.Sender.ID = msg.SenderID
	return msg, nil
}

// ListMessages returns history oldest first. limit <= 0 means no limit.
func (r *chatRepository) ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*models.ChatMessage, error) {
	q := messageSelect + `
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.chat_id = $1
		ORDER BY m.created_at ASC, m.seq ASC
		LIMIT $2 OFFSET $3
	`
	var lim any
	if limit > 0 {
		lim = limit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, q, chatID, lim, offset)
	if err != nil {
		return nil, wrapErr(err, "list messages")
	}
	defer rows.Close()

	messages := make([]*models.ChatMessage, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, wrapErr(err, "scan message")
		}
		messages = append(messages, msg)
	}
	return messages, wrapErr(rows.Err(), "iterate messages")
}

// CreateMessage stores the message and returns it with the sender's display data.
func (r *chatRepository) CreateMessage(ctx context.Context, chatID, senderID, content string) (*models.ChatMessage, error) {
	q := `
		WITH m AS (
			INSERT INTO messages (id, chat_id, sender_id, content)
			VALUES ($1, $2, $3, $4)
			RETURNING id, chat_id, sender_id, content, created_at
		)
	` + messageSelect + `
		FROM m
		JOIN users u ON u.id = m.sender_id
	`
	msg, err := scanMessage(r.DB.QueryRowContext(ctx, q, uuid.NewString(), chatID, senderID, content))
	if err != nil {
		return nil, wrapErr(err, "create message")
	}
	return msg, nil
}

func (r *chatRepository) IsMember(ctx context.Context, chatID, userID string) (bool, error) {
	const q = `SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2 LIMIT 1`
	var dummy int
	err := r.DB.QueryRowContext(ctx, q, chatID, userID).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err, "check chat member")
	}
	return true, nil
}
