package memory

import (
	"context"
	"fmt"
	"sort"

	"gearshare-backend/internal/domain"
)

type messageRepository struct {
	db *DB
}

func (r *messageRepository) Create(ctx context.Context, m *domain.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.messages[m.BookingID] = append(r.db.messages[m.BookingID], *m)
	return nil
}

func (r *messageRepository) ListByBooking(ctx context.Context, bookingID string, limit, offset int32) ([]domain.Message, int32, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	all := append([]domain.Message(nil), r.db.messages[bookingID]...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return paginate(all, limit, offset), int32(len(all)), nil
}

type reviewRepository struct {
	db *DB
}

func (r *reviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.reviews[rv.BookingID] {
		if existing.ReviewerID == rv.ReviewerID {
			return fmt.Errorf("booking %s: %w", rv.BookingID, domain.ErrAlreadyReviewed)
		}
	}
	r.db.reviews[rv.BookingID] = append(r.db.reviews[rv.BookingID], *rv)
	return nil
}

func (r *reviewRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.Review, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return append([]domain.Review(nil), r.db.reviews[bookingID]...), nil
}

type userRepository struct {
	db *DB
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	c := *u
	return &c, nil
}

type gearRepository struct {
	db *DB
}

func (r *gearRepository) GetByID(ctx context.Context, id string) (*domain.Gear, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	g, ok := r.db.gear[id]
	if !ok {
		return nil, fmt.Errorf("gear %s: %w", id, domain.ErrNotFound)
	}
	c := *g
	return &c, nil
}

type notificationRepository struct {
	db *DB
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.notifications = append(r.db.notifications, *n)
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var mine []domain.Notification
	for i := len(r.db.notifications) - 1; i >= 0; i-- {
		if r.db.notifications[i].UserID == userID {
			mine = append(mine, r.db.notifications[i])
		}
	}
	return paginate(mine, limit, offset), int32(len(mine)), nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for i := range r.db.notifications {
		if r.db.notifications[i].ID == id && r.db.notifications[i].UserID == userID {
			r.db.notifications[i].IsRead = true
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
}

type webhookDeliveryRepository struct {
	db *DB
}

func (r *webhookDeliveryRepository) Record(ctx context.Context, d *domain.WebhookDelivery) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.nextDelivery++
	d.ID = r.db.nextDelivery
	r.db.deliveries = append(r.db.deliveries, *d)
	return nil
}

func (r *webhookDeliveryRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.WebhookDelivery, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.WebhookDelivery
	for _, d := range r.db.deliveries {
		if d.BookingID == bookingID {
			out = append(out, d)
		}
	}
	return out, nil
}
