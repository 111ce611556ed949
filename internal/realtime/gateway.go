package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rentalhub/internal/config"
	"rentalhub/internal/models"
	"rentalhub/internal/services"
	"rentalhub/internal/utils"
)

// ChatStore is the persistence the gateway relays through.
type ChatStore interface {
	PostMessage(ctx context.Context, chatID, senderID, content string) (*models.ChatMessage, []string, error)
	ListUserChatIDs(ctx context.Context, userID string) ([]string, error)
	IsMember(ctx context.Context, chatID, userID string) (bool, error)
}

// Notifier is the fire-and-forget fan-out to participants other than the sender.
type Notifier interface {
	NotifyMessage(msg *models.ChatMessage, participants []string)
}

// PresenceMirror publishes presence outside the process. The in-memory
// registry stays the authority.
type PresenceMirror interface {
	Online(ctx context.Context, userID, connID string) error
	Offline(ctx context.Context, userID string) error
}

var (
	errIdentityMismatch = errors.New("identity does not match the authenticated user")
	errAuthRequired     = errors.New("authentication required")
	errBadPayload       = errors.New("malformed payload")
	errUnknownEvent     = errors.New("unknown event")
	errMissingUser      = errors.New("user id is required")
	errMissingChat      = errors.New("chat id is required")
	errConnClosed       = errors.New("connection closed")
)

// Gateway terminates client connections, tracks presence and relays chat
// messages to the connections joined to each chat channel.
type Gateway struct {
	cfg       config.GatewayConfig
	store     ChatStore
	notifier  Notifier
	mirror    PresenceMirror
	presence  *PresenceRegistry
	channels  *ChannelHub
	chatLocks *utils.KeyLock
	log       *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	closing atomic.Bool
}

func NewGateway(cfg config.GatewayConfig, store ChatStore, notifier Notifier, presence *PresenceRegistry, log *zap.Logger) *Gateway {
	return &Gateway{
		cfg:       cfg,
		store:     store,
		notifier:  notifier,
		presence:  presence,
		channels:  NewChannelHub(),
		chatLocks: utils.NewKeyLock(),
		log:       log,
		clients:   make(map[string]*Client),
	}
}

// WithMirror attaches an external presence mirror.
func (g *Gateway) WithMirror(m PresenceMirror) *Gateway {
	g.mirror = m
	return g
}

func (g *Gateway) Presence() *PresenceRegistry { return g.presence }

// Connect admits a new connection and sends it the current online set.
func (g *Gateway) Connect(authUser string) *Client {
	c := newClient(uuid.NewString(), authUser, g.cfg.SendBuffer)

	g.mu.Lock()
	g.clients[c.ID] = c
	g.mu.Unlock()

	g.log.Debug("connection opened", zap.String("conn_id", c.ID), zap.String("auth_user", authUser))
	g.emit(c, EventOnlineUsers, g.presence.List())
	return c
}

// Disconnect tears the connection down. Safe to call more than once.
func (g *Gateway) Disconnect(c *Client) {
	g.mu.Lock()
	_, ok := g.clients[c.ID]
	delete(g.clients, c.ID)
	g.mu.Unlock()
	if !ok {
		return
	}

	c.close()
	g.channels.LeaveAll(c)

	userID, removed := g.presence.Unregister(c.ID)
	g.log.Debug("connection closed", zap.String("conn_id", c.ID), zap.String("user_id", userID))
	if !removed {
		return
	}
	g.mirrorOffline(userID)
	if !g.closing.Load() {
		g.broadcastOnline()
	}
}

// whileOpen runs fn only if c has not been disconnected. Disconnect waits for
// fn to return, so whatever fn adds for c is torn down with it.
func (g *Gateway) whileOpen(c *Client, fn func()) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.clients[c.ID]; !ok {
		return false
	}
	fn()
	return true
}

// HandleFrame dispatches one inbound event. The transport calls it
// sequentially per connection.
func (g *Gateway) HandleFrame(c *Client, data []byte) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		g.emitError(c, errBadPayload)
		return
	}

	switch f.Event {
	case EventRegisterUser:
		var userID string
		if err := json.Unmarshal(f.Data, &userID); err != nil {
			g.emitError(c, errBadPayload)
			return
		}
		if err := g.RegisterUser(c, userID); err != nil {
			g.emitError(c, err)
		}
	case EventJoinChat:
		var chatID string
		if err := json.Unmarshal(f.Data, &chatID); err != nil {
			g.emitError(c, errBadPayload)
			return
		}
		if err := g.JoinChat(c, chatID); err != nil {
			g.emitError(c, err)
		}
	case EventSendMessage:
		var p SendMessagePayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			g.emitError(c, errBadPayload)
			return
		}
		if err := g.SendMessage(c, p); err != nil {
			g.emitError(c, err)
		}
	default:
		g.emitError(c, errUnknownEvent)
	}
}

// RegisterUser binds the connection to userID and broadcasts the online set.
func (g *Gateway) RegisterUser(c *Client, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errMissingUser
	}
	if err := g.checkIdentity(c, userID); err != nil {
		g.log.Warn("register rejected",
			zap.String("conn_id", c.ID), zap.String("asserted", userID), zap.String("auth_user", c.AuthUser))
		return err
	}

	if !g.whileOpen(c, func() { g.presence.Register(userID, c.ID) }) {
		return errConnClosed
	}
	g.log.Info("user online", zap.String("user_id", userID), zap.String("conn_id", c.ID))
	g.mirrorOnline(userID, c.ID)
	if _, ok := g.presence.ConnectionOf(userID); !ok {
		// disconnected while the mirror was being written
		g.mirrorOffline(userID)
		return errConnClosed
	}
	g.broadcastOnline()

	if g.cfg.AutoRejoin {
		g.rejoinChats(c, userID)
	}
	return nil
}

func (g *Gateway) rejoinChats(c *Client, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.StoreTimeout)
	defer cancel()

	chatIDs, err := g.store.ListUserChatIDs(ctx, userID)
	if err != nil {
		g.log.Warn("auto rejoin failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	joined := g.whileOpen(c, func() {
		for _, id := range chatIDs {
			g.channels.Join(id, c)
		}
	})
	if !joined {
		g.log.Debug("auto rejoin skipped, connection closed", zap.String("conn_id", c.ID))
	}
}

// JoinChat subscribes the connection to a chat channel. Authenticated
// connections may only join chats they participate in.
func (g *Gateway) JoinChat(c *Client, chatID string) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return errMissingChat
	}
	if c.AuthUser != "" {
		ctx, cancel := context.WithTimeout(context.Background(), g.cfg.StoreTimeout)
		defer cancel()
		ok, err := g.store.IsMember(ctx, chatID, c.AuthUser)
		if err != nil {
			return err
		}
		if !ok {
			return services.ErrNotChatMember
		}
	} else if !g.cfg.AllowAnonymous {
		return errAuthRequired
	}
	if !g.whileOpen(c, func() { g.channels.Join(chatID, c) }) {
		return errConnClosed
	}
	return nil
}

// SendMessage relays a message on behalf of the connection.
func (g *Gateway) SendMessage(c *Client, p SendMessagePayload) error {
	sender := strings.TrimSpace(p.SenderID)
	if c.AuthUser != "" && sender == "" {
		sender = c.AuthUser
	}
	if err := g.checkIdentity(c, sender); err != nil {
		return err
	}
	if sender == "" {
		return errMissingUser
	}
	if strings.TrimSpace(p.ChatID) == "" {
		return errMissingChat
	}
	_, err := g.Relay(context.Background(), p.ChatID, sender, p.Content)
	return err
}

// Relay persists the message, broadcasts it to the chat channel and hands it
// to the notifier. Nothing is broadcast unless the store accepted the message.
// Persist and broadcast run under a per-chat lock so channel members see
// messages in storage order.
func (g *Gateway) Relay(ctx context.Context, chatID, senderID, content string) (*models.ChatMessage, error) {
	unlock := g.chatLocks.Lock(chatID)

	storeCtx, cancel := context.WithTimeout(ctx, g.cfg.StoreTimeout)
	msg, participants, err := g.store.PostMessage(storeCtx, chatID, senderID, content)
	cancel()
	if err != nil {
		unlock()
		g.log.Warn("relay aborted",
			zap.String("chat_id", chatID), zap.String("sender_id", senderID), zap.Error(err))
		return nil, err
	}

	delivered := g.broadcast(chatID, EventReceiveMessage, msg)
	unlock()

	g.log.Debug("message relayed",
		zap.String("chat_id", chatID), zap.String("message_id", msg.ID), zap.Int("delivered", delivered))

	if g.notifier != nil {
		g.notifier.NotifyMessage(msg, participants)
	}
	return msg, nil
}

func (g *Gateway) checkIdentity(c *Client, userID string) error {
	if c.AuthUser != "" {
		if userID != c.AuthUser {
			return errIdentityMismatch
		}
		return nil
	}
	if !g.cfg.AllowAnonymous {
		return errAuthRequired
	}
	return nil
}

// OnlineUsers is the current online set.
func (g *Gateway) OnlineUsers() []string {
	return g.presence.List()
}

// ChannelCount is the number of chat channels with at least one connection.
func (g *Gateway) ChannelCount() int {
	return g.channels.Len()
}

// ConnectionCount is the number of open connections, registered or not.
func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// Shutdown disconnects every client. Remaining clients are not sent the
// shrinking online set.
func (g *Gateway) Shutdown() {
	g.closing.Store(true)
	g.mu.RLock()
	clients := make([]*Client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.RUnlock()

	for _, c := range clients {
		g.Disconnect(c)
	}
}

// RunPresenceRefresh re-publishes every presence entry to the mirror until
// ctx is done, so mirror keys outlive their TTL only while the user is online.
func (g *Gateway) RunPresenceRefresh(ctx context.Context, every time.Duration) {
	if g.mirror == nil || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for user, conn := range g.presence.Snapshot() {
				g.mirrorOnline(user, conn)
			}
		}
	}
}

func (g *Gateway) broadcastOnline() {
	frame, err := encodeFrame(EventOnlineUsers, g.presence.List())
	if err != nil {
		g.log.Error("encode online users", zap.Error(err))
		return
	}
	g.mu.RLock()
	clients := make([]*Client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.RUnlock()

	for _, c := range clients {
		g.deliver(c, frame)
	}
}

func (g *Gateway) broadcast(chatID, event string, data any) int {
	frame, err := encodeFrame(event, data)
	if err != nil {
		g.log.Error("encode broadcast", zap.String("event", event), zap.Error(err))
		return 0
	}
	n := 0
	for _, c := range g.channels.Members(chatID) {
		if g.deliver(c, frame) {
			n++
		}
	}
	return n
}

// deliver enqueues frame for c. A client whose queue is full is dropped.
func (g *Gateway) deliver(c *Client, frame []byte) bool {
	if c.enqueue(frame) {
		return true
	}
	if !c.isClosed() {
		g.log.Warn("slow consumer dropped", zap.String("conn_id", c.ID))
		go g.Disconnect(c)
	}
	return false
}

func (g *Gateway) emit(c *Client, event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		g.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}
	g.deliver(c, frame)
}

func (g *Gateway) emitError(c *Client, err error) {
	g.emit(c, EventError, clientMessage(err))
}

// clientMessage keeps internal error details off the wire.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrChatNotFound),
		errors.Is(err, services.ErrNotChatMember),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, errIdentityMismatch),
		errors.Is(err, errAuthRequired),
		errors.Is(err, errBadPayload),
		errors.Is(err, errUnknownEvent),
		errors.Is(err, errMissingUser),
		errors.Is(err, errMissingChat),
		errors.Is(err, errConnClosed):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "chat store timed out"
	default:
		return "internal error"
	}
}

func (g *Gateway) mirrorOnline(userID, connID string) {
	if g.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.StoreTimeout)
	defer cancel()
	if err := g.mirror.Online(ctx, userID, connID); err != nil {
		g.log.Warn("presence mirror online failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (g *Gateway) mirrorOffline(userID string) {
	if g.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.StoreTimeout)
	defer cancel()
	if err := g.mirror.Offline(ctx, userID); err != nil {
		g.log.Warn("presence mirror offline failed", zap.String("user_id", userID), zap.Error(err))
	}
}
