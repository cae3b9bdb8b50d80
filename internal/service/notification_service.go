package service

import (
	"classhub_backend/internal/model"
	"classhub_backend/internal/util"
	"classhub_backend/pkg/logger"
	"classhub_backend/pkg/monitoring"
	"context"
	"time"

	"go.uber.org/zap"
)

// Event is a domain fact announced after the change that caused it has been stored.
type Event struct {
	Type       string
	Recipients []uint
	Title      string
	Message    string
	Data       map[string]interface{}
}

// EventSink consumes events. Emit never fails the caller.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// Pusher delivers a payload to a user's open realtime connections.
type Pusher interface {
	PushToUser(userID uint, payload interface{})
}

// Notifier persists one notification per recipient, then mails and pushes it.
// Every failure is logged and dropped.
type Notifier struct {
	Store  NotificationStore
	Users  UserStore
	Mailer Mailer
	Pusher Pusher
}

func NewNotifier(store NotificationStore, users UserStore, mailer Mailer, pusher Pusher) *Notifier {
	return &Notifier{Store: store, Users: users, Mailer: mailer, Pusher: pusher}
}

func (n *Notifier) Emit(ctx context.Context, event Event) {
	if len(event.Recipients) == 0 {
		return
	}

	var users map[uint]model.User
	if n.Mailer != nil && n.Users != nil {
		list, err := n.Users.FindByIDs(ctx, event.Recipients)
		if err != nil {
			logger.Log.Warn("notifier: load recipients failed", zap.String("type", event.Type), zap.Error(err))
		}
		users = make(map[uint]model.User, len(list))
		for _, u := range list {
			users[u.ID] = u
		}
	}

	for _, userID := range event.Recipients {
		record := &model.Notification{
			UserID:  userID,
			Type:    event.Type,
			Title:   event.Title,
			Message: event.Message,
			Data:    event.Data,
		}
		if err := n.Store.Create(ctx, record); err != nil {
			monitoring.Notifications.WithLabelValues("store", "error").Inc()
			logger.Log.Error("notifier: persist failed",
				zap.String("type", event.Type),
				zap.Uint("userId", userID),
				zap.Error(err))
			continue
		}
		monitoring.Notifications.WithLabelValues("store", "ok").Inc()

		if n.Pusher != nil {
			n.Pusher.PushToUser(userID, map[string]interface{}{"type": "notification", "data": record})
		}

		if u, ok := users[userID]; ok && u.Email != "" {
			err := n.Mailer.Send(ctx, MailMessage{
				ToName:    u.Name,
				ToAddress: u.Email,
				Subject:   event.Title,
				Text:      event.Message,
			})
			if err != nil {
				monitoring.Notifications.WithLabelValues("mail", "error").Inc()
				logger.Log.Warn("notifier: mail failed", zap.Uint("userId", userID), zap.Error(err))
			} else {
				monitoring.Notifications.WithLabelValues("mail", "ok").Inc()
			}
		}
	}
}

type NotificationService struct {
	Store NotificationStore
	Now   Clock
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{Store: store, Now: time.Now}
}

func (s *NotificationService) List(ctx context.Context, p model.Principal, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	return s.Store.ListByUser(ctx, p.UserID, unreadOnly, page, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, p model.Principal, id string) error {
	ok, err := s.Store.MarkRead(ctx, id, p.UserID, s.Now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	// some drivers report zero affected rows when the row was already read
	if _, err := s.Store.FindByID(ctx, id, p.UserID); err != nil {
		return util.NotFoundOr(err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, p model.Principal) (int64, error) {
	return s.Store.MarkAllRead(ctx, p.UserID, s.Now())
}

func (s *NotificationService) UnreadCount(ctx context.Context, p model.Principal) (int64, error) {
	return s.Store.CountUnread(ctx, p.UserID)
}
