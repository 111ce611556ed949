package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"rentalhub/internal/models"
	"rentalhub/internal/repositories"
)

// Dispatcher delivers one push notification to a device token.
type Dispatcher interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// EmailFallback reaches participants that have no device token.
type EmailFallback interface {
	SendMessageNotification(to, title, body string) error
}

// LogDispatcher is used when push delivery is disabled.
type LogDispatcher struct {
	Log *zap.Logger
}

func (d LogDispatcher) Send(_ context.Context, token, title, body string, data map[string]string) error {
	d.Log.Debug("push disabled, notification not sent",
		zap.String("title", title), zap.Int("body_len", len(body)), zap.Any("data", data))
	return nil
}

// NotificationService fans a relayed message out to every participant except
// the sender. Delivery is best-effort and never reported back to the relay.
type NotificationService struct {
	users      repositories.UserRepository
	dispatcher Dispatcher
	email      EmailFallback // optional
	timeout    time.Duration
	log        *zap.Logger

	wg sync.WaitGroup
}

func NewNotificationService(users repositories.UserRepository, dispatcher Dispatcher, email EmailFallback, timeout time.Duration, log *zap.Logger) *NotificationService {
	return &NotificationService{
		users:      users,
		dispatcher: dispatcher,
		email:      email,
		timeout:    timeout,
		log:        log,
	}
}

// NotifyMessage schedules the fan-out and returns immediately.
func (s *NotificationService) NotifyMessage(msg *models.ChatMessage, participants []string) {
	recipients := make([]string, 0, len(participants))
	for _, p := range participants {
		if p != msg.SenderID {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fanOut(msg, recipients)
	}()
}

func (s *NotificationService) fanOut(msg *models.ChatMessage, recipients []string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	targets, err := s.users.GetPushTargets(ctx, recipients)
	cancel()
	if err != nil {
		s.log.Warn("notify: resolve recipients failed",
			zap.String("chat_id", msg.ChatID), zap.Error(err))
		return
	}

	title := notificationTitle(msg)
	data := map[string]string{
		"chatId":    msg.ChatID,
		"messageId": msg.ID,
		"senderId":  msg.SenderID,
	}
	for _, t := range targets {
		s.dispatch(msg, t, title, data)
	}
}

// dispatch delivers to one recipient under its own notify timeout.
func (s *NotificationService) dispatch(msg *models.ChatMessage, t models.PushTarget, title string, data map[string]string) {
	switch {
	case t.PushToken != "":
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.dispatcher.Send(ctx, t.PushToken, title, msg.Content, data); err != nil {
			s.log.Warn("notify: push failed",
				zap.String("chat_id", msg.ChatID), zap.String("user_id", t.UserID), zap.Error(err))
		}
	case s.email != nil && t.Email != "":
		if err := s.email.SendMessageNotification(t.Email, title, msg.Content); err != nil {
			s.log.Warn("notify: email fallback failed",
				zap.String("chat_id", msg.ChatID), zap.String("user_id", t.UserID), zap.Error(err))
		}
	default:
		s.log.Debug("notify: no channel for recipient", zap.String("user_id", t.UserID))
	}
}

// Wait blocks until in-flight fan-outs finish or ctx is done.
func (s *NotificationService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func notificationTitle(msg *models.ChatMessage) string {
	if msg.Sender != nil && msg.Sender.Name != "" {
		return fmt.Sprintf("New message from %s", msg.Sender.Name)
	}
	return "New message"
}
