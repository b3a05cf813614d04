package service

import (
	"context"
	"errors"
	"time"

	"github.com/calMall/calMarket-sub000/internal/domain"
	r "github.com/calMall/calMarket-sub000/internal/repository"
)

// reviewWindow is how long after a purchase the buyer may still review it.
const reviewWindow = 30 * 24 * time.Hour

// ReviewInput carries the user-editable fields of a review.
type ReviewInput struct {
	ItemCode string
	Rating   int
	Title    string
	Comment  string
}

// RatingStat is the active review count for one score.
type RatingStat struct {
	Score int
	Count int64
}

// ReviewList is one page of a product's reviews plus the score histogram and
// the requesting user's own review, if any.
type ReviewList struct {
	Reviews     []*domain.Review
	RatingStats []RatingStat
	MyReview    *domain.Review
}

type ReviewService struct {
	repo r.Store
	now  func() time.Time
}

func NewReviewService(repo r.Store) *ReviewService {
	return &ReviewService{
		repo: repo,
		now:  time.Now,
	}
}

func (in *ReviewInput) validate() error {
	if in.ItemCode == "" || in.Comment == "" || in.Rating < 1 || in.Rating > 5 {
		return ErrInvalidInput
	}
	return nil
}

// PostReview creates the user's review for a purchased item. One review per
// user and item; a soft-deleted review blocks reposting; the purchase must be
// within the review window.
func (s *ReviewService) PostReview(ctx context.Context, userID string, in ReviewInput) (*domain.Review, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var created *domain.Review
	err := s.repo.Transact(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetUserByUserID(ctx, userID); err != nil {
			return err
		}
		if _, err := s.repo.GetProduct(ctx, in.ItemCode); err != nil {
			return err
		}

		existing, err := s.repo.GetUserReviewForItem(ctx, userID, in.ItemCode)
		if err != nil && !errors.Is(err, r.ErrReviewNotFound) {
			return err
		}
		if existing != nil {
			if existing.Deleted {
				return ErrReviewReposted
			}
			return ErrAlreadyReviewed
		}

		purchased, err := s.repo.HasPurchase(ctx, userID, in.ItemCode, time.Time{})
		if err != nil {
			return err
		}
		if !purchased {
			return ErrNotPurchased
		}
		recent, err := s.repo.HasPurchase(ctx, userID, in.ItemCode, s.now().Add(-reviewWindow))
		if err != nil {
			return err
		}
		if !recent {
			return ErrPurchaseTooOld
		}

		review := &domain.Review{
			UserID:   userID,
			ItemCode: in.ItemCode,
			Rating:   in.Rating,
			Title:    in.Title,
			Comment:  in.Comment,
		}
		if err := s.repo.CreateReview(ctx, review); err != nil {
			return err
		}
		created = review
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ListReviews returns one page of the item's active reviews, newest first,
// with the score histogram over all of them. userID may be empty; when set,
// the user's own review is resolved separately so it is visible past page 1.
func (s *ReviewService) ListReviews(ctx context.Context, itemCode, userID string, page, pageSize int) (*ReviewList, error) {
	if itemCode == "" {
		return nil, ErrInvalidInput
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	reviews, err := s.repo.ListReviewsByItem(ctx, itemCode, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.CountReviewsByRating(ctx, itemCode)
	if err != nil {
		return nil, err
	}
	stats := make([]RatingStat, 0, 5)
	for score := 5; score >= 1; score-- {
		stats = append(stats, RatingStat{Score: score, Count: counts[score]})
	}

	list := &ReviewList{Reviews: reviews, RatingStats: stats}
	if userID != "" {
		mine, err := s.repo.GetUserReviewForItem(ctx, userID, itemCode)
		if err != nil && !errors.Is(err, r.ErrReviewNotFound) {
			return nil, err
		}
		if mine != nil && !mine.Deleted {
			list.MyReview = mine
		}
	}
	return list, nil
}

// UpdateReview lets the author edit rating, title and comment of an active
// review.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID int64, userID string, in ReviewInput) (*domain.Review, error) {
	if reviewID <= 0 || userID == "" {
		return nil, ErrInvalidInput
	}
	if in.Comment == "" || in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidInput
	}

	var updated *domain.Review
	err := s.repo.Transact(ctx, func(ctx context.Context) error {
		review, err := s.repo.GetReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if review.Deleted {
			return r.ErrReviewNotFound
		}
		if review.UserID != userID {
			return ErrNotReviewOwner
		}

		review.Rating = in.Rating
		review.Title = in.Title
		review.Comment = in.Comment
		if err := s.repo.UpdateReview(ctx, review); err != nil {
			return err
		}
		updated = review
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteReview soft-deletes the author's review. The row stays behind so the
// user cannot review the item again.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID int64, userID string) error {
	if reviewID <= 0 || userID == "" {
		return ErrInvalidInput
	}

	return s.repo.Transact(ctx, func(ctx context.Context) error {
		review, err := s.repo.GetReview(ctx, reviewID)
		if err != nil {
			return err
		}
		if review.UserID != userID {
			return ErrNotReviewOwner
		}
		return s.repo.MarkReviewDeleted(ctx, review.ID)
	})
}
