package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/calMall/calMarket-sub000/internal/domain"
	"github.com/calMall/calMarket-sub000/internal/service"
	"github.com/go-chi/chi/v5"
)

// ReviewManager is the review side of the service layer.
type ReviewManager interface {
	PostReview(ctx context.Context, userID string, in service.ReviewInput) (*domain.Review, error)
	ListReviews(ctx context.Context, itemCode, userID string, page, pageSize int) (*service.ReviewList, error)
	UpdateReview(ctx context.Context, reviewID int64, userID string, in service.ReviewInput) (*domain.Review, error)
	DeleteReview(ctx context.Context, reviewID int64, userID string) error
}

type ReviewsHandler struct {
	reviews ReviewManager
	timeout time.Duration
}

func NewReviewsHandler(reviews ReviewManager, timeout time.Duration) *ReviewsHandler {
	return &ReviewsHandler{
		reviews: reviews,
		timeout: timeout,
	}
}

type ReviewRequestDTO struct {
	ItemCode string `json:"item_code"`
	Rating   int    `json:"rating"`
	Title    string `json:"title,omitempty"`
	Comment  string `json:"comment"`
}

type ReviewResponseDTO struct {
	ID        int64  `json:"id"`
	ItemCode  string `json:"item_code"`
	Nickname  string `json:"nickname,omitempty"`
	Rating    int    `json:"rating"`
	Title     string `json:"title,omitempty"`
	Comment   string `json:"comment"`
	Mine      bool   `json:"mine"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type RatingStatDTO struct {
	Score int   `json:"score"`
	Count int64 `json:"count"`
}

type ReviewListResponseDTO struct {
	Reviews     []ReviewResponseDTO `json:"reviews"`
	RatingStats []RatingStatDTO     `json:"rating_stats"`
	MyReview    *ReviewResponseDTO  `json:"my_review,omitempty"`
}

func convertReview(review *domain.Review, viewerID string) ReviewResponseDTO {
	return ReviewResponseDTO{
		ID:        review.ID,
		ItemCode:  review.ItemCode,
		Nickname:  review.Nickname,
		Rating:    review.Rating,
		Title:     review.Title,
		Comment:   review.Comment,
		Mine:      viewerID != "" && review.UserID == viewerID,
		CreatedAt: review.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: review.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// POST /api/reviews
func (h *ReviewsHandler) PostReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ReviewRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	review, err := h.reviews.PostReview(ctx, userID, service.ReviewInput{
		ItemCode: req.ItemCode,
		Rating:   req.Rating,
		Title:    req.Title,
		Comment:  req.Comment,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertReview(review, userID))
}

// GET /api/products/{item_code}/reviews
func (h *ReviewsHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemCode := chi.URLParam(r, "item_code")
	if itemCode == "" {
		respondError(w, http.StatusBadRequest, "missing_item_code", "item_code is required")
		return
	}

	// listing works unauthenticated; the viewer id only resolves my_review
	userID := getUserIDFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	list, err := h.reviews.ListReviews(ctx, itemCode, userID, page, pageSize)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := ReviewListResponseDTO{
		Reviews:     make([]ReviewResponseDTO, 0, len(list.Reviews)),
		RatingStats: make([]RatingStatDTO, 0, len(list.RatingStats)),
	}
	for _, review := range list.Reviews {
		resp.Reviews = append(resp.Reviews, convertReview(review, userID))
	}
	for _, stat := range list.RatingStats {
		resp.RatingStats = append(resp.RatingStats, RatingStatDTO{Score: stat.Score, Count: stat.Count})
	}
	if list.MyReview != nil {
		mine := convertReview(list.MyReview, userID)
		resp.MyReview = &mine
	}

	respondJSON(w, http.StatusOK, resp)
}

// PUT /api/reviews/{review_id}
func (h *ReviewsHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	reviewID, ok := parseReviewID(w, r)
	if !ok {
		return
	}

	var req ReviewRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	review, err := h.reviews.UpdateReview(ctx, reviewID, userID, service.ReviewInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertReview(review, userID))
}

// DELETE /api/reviews/{review_id}
func (h *ReviewsHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	reviewID, ok := parseReviewID(w, r)
	if !ok {
		return
	}

	if err := h.reviews.DeleteReview(ctx, reviewID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseReviewID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	reviewIDStr := chi.URLParam(r, "review_id")
	reviewID, err := strconv.ParseInt(reviewIDStr, 10, 64)
	if err != nil || reviewID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_review_id", "review_id must be a positive integer")
		return 0, false
	}
	return reviewID, true
}
