// Package memory is a process-local implementation of the repositories. It backs the
// "memory" database driver for local development and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/repository"
)

// DB holds every table behind a single mutex so that each repository call is atomic.
type DB struct {
	mu            sync.Mutex
	bookings      map[string]*domain.Booking
	messages      map[string][]domain.Message
	reviews       map[string][]domain.Review
	users         map[string]*domain.User
	gear          map[string]*domain.Gear
	notifications []domain.Notification
	deliveries    []domain.WebhookDelivery
	nextDelivery  int64
}

func NewDB() *DB {
	return &DB{
		bookings: make(map[string]*domain.Booking),
		messages: make(map[string][]domain.Message),
		reviews:  make(map[string][]domain.Review),
		users:    make(map[string]*domain.User),
		gear:     make(map[string]*domain.Gear),
	}
}

type Store struct {
	db *DB
	repository.BookingRepository
	repository.MessageRepository
	repository.ReviewRepository
	repository.UserRepository
	repository.GearRepository
	repository.NotificationRepository
	repository.WebhookDeliveryRepository
}

func NewStore() *Store {
	db := NewDB()
	return &Store{
		db:                        db,
		BookingRepository:         &bookingRepository{db: db},
		MessageRepository:         &messageRepository{db: db},
		ReviewRepository:          &reviewRepository{db: db},
		UserRepository:            &userRepository{db: db},
		GearRepository:            &gearRepository{db: db},
		NotificationRepository:    &notificationRepository{db: db},
		WebhookDeliveryRepository: &webhookDeliveryRepository{db: db},
	}
}

// PingContext always succeeds
func (s *Store) PingContext(ctx context.Context) error {
	return ctx.Err()
}

// PutUser inserts or replaces a user; users are owned by the identity service
func (s *Store) PutUser(u domain.User) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.users[u.ID] = &u
}

// PutGear inserts or replaces a listing; listings are owned by the listings service
func (s *Store) PutGear(g domain.Gear) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.gear[g.ID] = &g
}

func paginate[T any](items []T, limit, offset int32) []T {
	if offset < 0 {
		offset = 0
	}
	if int(offset) >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && int(offset+limit) < end {
		end = int(offset + limit)
	}
	return items[offset:end]
}

func sortBookingsNewestFirst(bookings []domain.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
}
