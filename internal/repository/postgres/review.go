package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/repository"
)

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	logger.EnterMethod("reviewRepository.Create", "bookingID", rv.BookingID, "reviewerID", rv.ReviewerID)

	query := `INSERT INTO reviews (id, booking_id, reviewer_id, reviewee_id, overall_rating, communication_rating, accuracy_rating, comment, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, rv.ID, rv.BookingID, rv.ReviewerID, rv.RevieweeID,
		rv.Ratings.Overall, rv.Ratings.Communication, rv.Ratings.Accuracy, rv.Ratings.Comment, rv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("booking %s: %w", rv.BookingID, domain.ErrAlreadyReviewed)
		}
		logger.ExitMethodWithError("reviewRepository.Create", err, "bookingID", rv.BookingID)
		return err
	}

	logger.ExitMethod("reviewRepository.Create", "reviewID", rv.ID)
	return nil
}

func (r *reviewRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.Review, error) {
	query := `SELECT id, booking_id, reviewer_id, reviewee_id, overall_rating, communication_rating, accuracy_rating, comment, created_at
	          FROM reviews WHERE booking_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.BookingID, &rv.ReviewerID, &rv.RevieweeID,
			&rv.Ratings.Overall, &rv.Ratings.Communication, &rv.Ratings.Accuracy, &rv.Ratings.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
