package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository"

	"github.com/google/uuid"
)

const maxMessageLength = 4000

type messageService struct {
	bookingRepo repository.BookingRepository
	messageRepo repository.MessageRepository
	notifier    NotificationService
	now         func() time.Time
}

func NewMessageService(bookingRepo repository.BookingRepository, messageRepo repository.MessageRepository, notifier NotificationService) MessageService {
	return &messageService{
		bookingRepo: bookingRepo,
		messageRepo: messageRepo,
		notifier:    notifier,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PostMessage adds a party's message to the booking thread. Threads stay open after the
// booking reaches a terminal status.
func (s *messageService) PostMessage(ctx context.Context, userID, bookingID, body string, msgType domain.MessageType) (*domain.Message, error) {
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	if msgType != domain.MessageTypeText && msgType != domain.MessageTypeImage {
		return nil, fmt.Errorf("%w: message type must be text or image", domain.ErrInvalidInput)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", domain.ErrInvalidInput)
	}
	if len(body) > maxMessageLength {
		return nil, fmt.Errorf("%w: message is longer than %d characters", domain.ErrInvalidInput, maxMessageLength)
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, ok := b.RoleOf(userID); !ok {
		return nil, fmt.Errorf("%w: not a party to this booking", domain.ErrUnauthorizedActor)
	}

	sender := userID
	msg := &domain.Message{
		ID:          uuid.NewString(),
		BookingID:   b.ID,
		SenderID:    &sender,
		Body:        body,
		MessageType: msgType,
		CreatedAt:   s.now(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.notifier.NotifyMessage(ctx, b, msg)
	return msg, nil
}

func (s *messageService) ListMessages(ctx context.Context, userID, bookingID string, page, pageSize int32) ([]domain.Message, int32, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, 0, err
	}
	if _, ok := b.RoleOf(userID); !ok {
		return nil, 0, fmt.Errorf("%w: not a party to this booking", domain.ErrUnauthorizedActor)
	}
	page, pageSize = normalizePage(page, pageSize)
	return s.messageRepo.ListByBooking(ctx, bookingID, pageSize, (page-1)*pageSize)
}
