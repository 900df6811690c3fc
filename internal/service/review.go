package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"

	"github.com/google/uuid"
)

const maxReviewCommentLength = 2000

type reviewService struct {
	bookingRepo repository.BookingRepository
	reviewRepo  repository.ReviewRepository
	now         func() time.Time
}

func NewReviewService(bookingRepo repository.BookingRepository, reviewRepo repository.ReviewRepository) ReviewService {
	return &reviewService{
		bookingRepo: bookingRepo,
		reviewRepo:  reviewRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *reviewService) SubmitReview(ctx context.Context, reviewerID, bookingID string, ratings domain.Ratings) (*domain.Review, error) {
	logger.EnterMethod("reviewService.SubmitReview", "reviewerID", reviewerID, "bookingID", bookingID)

	ratings.Comment = strings.TrimSpace(ratings.Comment)
	if err := validateRatings(ratings); err != nil {
		return nil, err
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	revieweeID, ok := b.Counterparty(reviewerID)
	if !ok {
		return nil, fmt.Errorf("%w: only the renter or the owner can review this booking", domain.ErrNotEligible)
	}
	if b.Status != domain.BookingStatusCompleted {
		return nil, fmt.Errorf("%w: reviews open once the booking is completed (it is %s)", domain.ErrNotEligible, b.Status)
	}

	review := &domain.Review{
		ID:         uuid.NewString(),
		BookingID:  b.ID,
		ReviewerID: reviewerID,
		RevieweeID: revieweeID,
		Ratings:    ratings,
		CreatedAt:  s.now(),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		logger.ExitMethodWithError("reviewService.SubmitReview", err, "bookingID", bookingID)
		return nil, err
	}

	logger.ExitMethod("reviewService.SubmitReview", "reviewID", review.ID)
	return review, nil
}

func (s *reviewService) ListReviews(ctx context.Context, userID, bookingID string) ([]domain.Review, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, ok := b.RoleOf(userID); !ok {
		return nil, fmt.Errorf("%w: not a party to this booking", domain.ErrUnauthorizedActor)
	}
	return s.reviewRepo.ListByBooking(ctx, bookingID)
}

func validateRatings(r domain.Ratings) error {
	if r.Overall < 1 || r.Overall > 5 {
		return fmt.Errorf("%w: overall rating must be between 1 and 5", domain.ErrInvalidInput)
	}
	for name, v := range map[string]int{"communication": r.Communication, "accuracy": r.Accuracy} {
		if v != 0 && (v < 1 || v > 5) {
			return fmt.Errorf("%w: %s rating must be between 1 and 5", domain.ErrInvalidInput, name)
		}
	}
	if len(r.Comment) > maxReviewCommentLength {
		return fmt.Errorf("%w: comment is longer than %d characters", domain.ErrInvalidInput, maxReviewCommentLength)
	}
	return nil
}
