package service

import (
	"context"
	"fmt"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"

	"github.com/google/uuid"
)

const (
	notificationTypeStatus  = "BOOKING_STATUS"
	notificationTypeMessage = "BOOKING_MESSAGE"
)

type notificationService struct {
	noteRepo repository.NotificationRepository
	userRepo repository.UserRepository
	emailSvc EmailService
	pushSvc  PushService
	queue    *DeliveryQueue
	now      func() time.Time
}

// NewNotificationService builds the notifier. With a nil queue email and push are sent
// inline, once, on the caller's context.
func NewNotificationService(
	noteRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	emailSvc EmailService,
	pushSvc PushService,
	queue *DeliveryQueue,
) NotificationService {
	return &notificationService{
		noteRepo: noteRepo,
		userRepo: userRepo,
		emailSvc: emailSvc,
		pushSvc:  pushSvc,
		queue:    queue,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	page, pageSize = normalizePage(page, pageSize)
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}

// NotifyMessage sends system messages to both parties and user messages to the
// counterparty of the sender. Failures are logged and never returned.
func (s *notificationService) NotifyMessage(ctx context.Context, b *domain.Booking, msg *domain.Message) {
	var recipients []string
	title := "New message about your booking"
	kind := notificationTypeMessage
	if msg.IsSystem() {
		recipients = []string{b.RenterID, b.OwnerID}
		title = fmt.Sprintf("Booking %s", b.Status)
		kind = notificationTypeStatus
	} else if msg.SenderID != nil {
		if other, ok := b.Counterparty(*msg.SenderID); ok {
			recipients = []string{other}
		}
	}

	for _, userID := range recipients {
		attrs := map[string]string{
			"type":       kind,
			"booking_id": b.ID,
			"status":     string(b.Status),
		}
		note := &domain.Notification{
			ID:         uuid.NewString(),
			UserID:     userID,
			BookingID:  b.ID,
			Title:      title,
			Message:    msg.Body,
			Attributes: attrs,
			CreatedAt:  s.now(),
		}
		if err := s.noteRepo.Create(ctx, note); err != nil {
			logger.Error("Failed to store notification", "userID", userID, "bookingID", b.ID, "error", err)
		}
		s.deliver(ctx, userID, note)
	}
}

func (s *notificationService) deliver(ctx context.Context, userID string, note *domain.Notification) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Warn("Skipping notification delivery", "userID", userID, "error", err)
		return
	}
	if user.Email != "" {
		s.dispatch(ctx, DeliveryTask{
			Name: "email:" + note.ID,
			Send: func(ctx context.Context) error {
				return s.emailSvc.SendBookingUpdate(ctx, user.Email, user.DisplayName, note.Title, note.Message)
			},
		})
	}
	if user.PushToken != "" {
		s.dispatch(ctx, DeliveryTask{
			Name: "push:" + note.ID,
			Send: func(ctx context.Context) error {
				return s.pushSvc.Send(ctx, user.PushToken, note.Title, note.Message, note.Attributes)
			},
		})
	}
}

func (s *notificationService) dispatch(ctx context.Context, task DeliveryTask) {
	if s.queue == nil {
		if err := task.Send(ctx); err != nil {
			logger.Warn("Notification delivery failed", "task", task.Name, "error", err)
		}
		return
	}
	if err := s.queue.Enqueue(task); err != nil {
		logger.Warn("Notification dropped", "task", task.Name, "error", err)
	}
}
