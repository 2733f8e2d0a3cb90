package marketplace

import (
	"context"
	"errors"
	"time"
)

var ErrDuplicateReview = errors.New("reservation already reviewed")

// Review is a client's rating of a completed reservation.
type Review struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"reservation_id"`
	MechanicID string    `json:"mechanic_id"`
	ClientID   string    `json:"client_id"`
	ClientName string    `json:"client_name,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// RatingSummary aggregates a mechanic's reviews.
type RatingSummary struct {
	MechanicID    string  `json:"mechanic_id"`
	MechanicName  string  `json:"mechanic_name"`
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	RatingCounts  struct {
		FiveStar  int `json:"five_star"`
		FourStar  int `json:"four_star"`
		ThreeStar int `json:"three_star"`
		TwoStar   int `json:"two_star"`
		OneStar   int `json:"one_star"`
	} `json:"rating_counts"`
}

func (s *RatingSummary) add(rating, count int) {
	switch rating {
	case 5:
		s.RatingCounts.FiveStar += count
	case 4:
		s.RatingCounts.FourStar += count
	case 3:
		s.RatingCounts.ThreeStar += count
	case 2:
		s.RatingCounts.TwoStar += count
	case 1:
		s.RatingCounts.OneStar += count
	}
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=10,max=500"`
}

// ReviewStore persists reviews. Create returns ErrDuplicateReview when the
// reservation already has one. ForMechanic is newest first.
type ReviewStore interface {
	Create(ctx context.Context, r Review) (Review, error)
	ForMechanic(ctx context.Context, mechanicID string, limit, offset int) ([]Review, error)
	Summary(ctx context.Context, mechanicID string) (RatingSummary, error)
}
