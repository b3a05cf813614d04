package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/calMall/calMarket-sub000/internal/domain"
)

func (r *Repository) CreateReview(ctx context.Context, review *domain.Review) error {
	query := `INSERT INTO reviews (user_id, item_code, rating, title, comment, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	          RETURNING id, created_at, updated_at`

	err := r.q(ctx).QueryRowContext(ctx, query,
		review.UserID,
		review.ItemCode,
		review.Rating,
		review.Title,
		review.Comment,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// GetReview returns the review regardless of its deleted flag; callers decide
// how a soft-deleted row is treated.
func (r *Repository) GetReview(ctx context.Context, reviewID int64) (*domain.Review, error) {
	query := `SELECT r.id, r.user_id, u.nickname, r.item_code, r.rating, r.title, r.comment, r.deleted, r.created_at, r.updated_at
	          FROM reviews r JOIN users u ON u.user_id = r.user_id
	          WHERE r.id = $1`
	return r.scanReview(r.q(ctx).QueryRowContext(ctx, query, reviewID))
}

// GetUserReviewForItem returns the user's review row for the item, deleted or
// not. A deleted row blocks reposting.
func (r *Repository) GetUserReviewForItem(ctx context.Context, userID, itemCode string) (*domain.Review, error) {
	query := `SELECT r.id, r.user_id, u.nickname, r.item_code, r.rating, r.title, r.comment, r.deleted, r.created_at, r.updated_at
	          FROM reviews r JOIN users u ON u.user_id = r.user_id
	          WHERE r.user_id = $1 AND r.item_code = $2
	          ORDER BY r.id DESC LIMIT 1`
	return r.scanReview(r.q(ctx).QueryRowContext(ctx, query, userID, itemCode))
}

func (r *Repository) scanReview(row *sql.Row) (*domain.Review, error) {
	var review domain.Review
	var title sql.NullString
	err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.Nickname,
		&review.ItemCode,
		&review.Rating,
		&title,
		&review.Comment,
		&review.Deleted,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query review: %w", err)
	}
	review.Title = title.String
	return &review, nil
}

func (r *Repository) ListReviewsByItem(ctx context.Context, itemCode string, limit, offset int) ([]*domain.Review, error) {
	query := `SELECT r.id, r.user_id, u.nickname, r.item_code, r.rating, r.title, r.comment, r.deleted, r.created_at, r.updated_at
	          FROM reviews r JOIN users u ON u.user_id = r.user_id
	          WHERE r.item_code = $1 AND r.deleted = FALSE
	          ORDER BY r.created_at DESC, r.id DESC
	          LIMIT $2 OFFSET $3`

	rows, err := r.q(ctx).QueryContext(ctx, query, itemCode, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query reviews by item: %w", err)
	}
	defer rows.Close()

	var reviews []*domain.Review
	for rows.Next() {
		var review domain.Review
		var title sql.NullString
		if err := rows.Scan(
			&review.ID,
			&review.UserID,
			&review.Nickname,
			&review.ItemCode,
			&review.Rating,
			&title,
			&review.Comment,
			&review.Deleted,
			&review.CreatedAt,
			&review.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		review.Title = title.String
		reviews = append(reviews, &review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return reviews, nil
}

// CountReviewsByRating returns active review counts keyed by rating score.
func (r *Repository) CountReviewsByRating(ctx context.Context, itemCode string) (map[int]int64, error) {
	query := `SELECT rating, COUNT(*) FROM reviews
	          WHERE item_code = $1 AND deleted = FALSE
	          GROUP BY rating`

	rows, err := r.q(ctx).QueryContext(ctx, query, itemCode)
	if err != nil {
		return nil, fmt.Errorf("count reviews by rating: %w", err)
	}
	defer rows.Close()

	stats := make(map[int]int64)
	for rows.Next() {
		var rating int
		var count int64
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan rating count row: %w", err)
		}
		stats[rating] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return stats, nil
}

func (r *Repository) UpdateReview(ctx context.Context, review *domain.Review) error {
	query := `UPDATE reviews SET rating = $2, title = $3, comment = $4, updated_at = NOW()
	          WHERE id = $1 AND deleted = FALSE`

	res, err := r.q(ctx).ExecContext(ctx, query, review.ID, review.Rating, review.Title, review.Comment)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update review rows affected: %w", err)
	}
	if affected == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (r *Repository) MarkReviewDeleted(ctx context.Context, reviewID int64) error {
	query := `UPDATE reviews SET deleted = TRUE, updated_at = NOW() WHERE id = $1`

	res, err := r.q(ctx).ExecContext(ctx, query, reviewID)
	if err != nil {
		return fmt.Errorf("mark review deleted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark review deleted rows affected: %w", err)
	}
	if affected == 0 {
		return ErrReviewNotFound
	}
	return nil
}

// HasPurchase reports whether the user has an order containing the item
// created after the given time.
func (r *Repository) HasPurchase(ctx context.Context, userID, itemCode string, since time.Time) (bool, error) {
	query := `SELECT EXISTS (
	              SELECT 1 FROM orders o
	              JOIN order_items oi ON oi.order_id = o.id
	              WHERE o.user_id = $1 AND oi.item_code = $2 AND o.created_at > $3
	          )`

	var exists bool
	if err := r.q(ctx).QueryRowContext(ctx, query, userID, itemCode, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("query purchase history: %w", err)
	}
	return exists, nil
}
