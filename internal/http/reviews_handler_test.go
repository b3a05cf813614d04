package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/calMall/calMarket-sub000/internal/domain"
	"github.com/calMall/calMarket-sub000/internal/service"
	"github.com/go-chi/chi/v5"
)

// --- Mock ---

type ReviewServiceMock struct {
	review *domain.Review
	list   *service.ReviewList
	err    error

	postedInput   service.ReviewInput
	listedItem    string
	listedUser    string
	updatedID     int64
	deletedID     int64
	requestedPage int
	requestedSize int
}

func (m *ReviewServiceMock) PostReview(_ context.Context, _ string, in service.ReviewInput) (*domain.Review, error) {
	m.postedInput = in
	if m.err != nil {
		return nil, m.err
	}
	return m.review, nil
}

func (m *ReviewServiceMock) ListReviews(_ context.Context, itemCode, userID string, page, pageSize int) (*service.ReviewList, error) {
	m.listedItem = itemCode
	m.listedUser = userID
	m.requestedPage = page
	m.requestedSize = pageSize
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

func (m *ReviewServiceMock) UpdateReview(_ context.Context, reviewID int64, _ string, _ service.ReviewInput) (*domain.Review, error) {
	m.updatedID = reviewID
	if m.err != nil {
		return nil, m.err
	}
	return m.review, nil
}

func (m *ReviewServiceMock) DeleteReview(_ context.Context, reviewID int64, _ string) error {
	m.deletedID = reviewID
	return m.err
}

// --- helpers ---

func withReviewID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("review_id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func sampleReview() *domain.Review {
	return &domain.Review{
		ID:        7,
		UserID:    "user-1",
		Nickname:  "taro",
		ItemCode:  "shop:100",
		Rating:    4,
		Title:     "solid",
		Comment:   "does what it says",
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// --- PostReview tests ---

func TestPostReview_Created(t *testing.T) {
	mock := &ReviewServiceMock{review: sampleReview()}
	handler := NewReviewsHandler(mock, 5*time.Second)

	body := `{"item_code":"shop:100","rating":4,"title":"solid","comment":"does what it says"}`
	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest("POST", "/api/reviews", strings.NewReader(body)))

	handler.PostReview(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Errorf("expected %d, got %d", http.StatusCreated, recorder.Code)
	}
	if mock.postedInput.ItemCode != "shop:100" || mock.postedInput.Rating != 4 {
		t.Errorf("unexpected input passed to service: %+v", mock.postedInput)
	}

	var response ReviewResponseDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.ID != 7 {
		t.Errorf("expected id 7, got %d", response.ID)
	}
	if !response.Mine {
		t.Error("expected own review to be flagged mine")
	}
}

func TestPostReview_Unauthorized(t *testing.T) {
	handler := NewReviewsHandler(&ReviewServiceMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("POST", "/api/reviews", strings.NewReader("{}"))

	handler.PostReview(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}

func TestPostReview_NotPurchased(t *testing.T) {
	mock := &ReviewServiceMock{err: service.ErrNotPurchased}
	handler := NewReviewsHandler(mock, 5*time.Second)

	body := `{"item_code":"shop:100","rating":4,"comment":"ok"}`
	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest("POST", "/api/reviews", strings.NewReader(body)))

	handler.PostReview(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected %d, got %d", http.StatusBadRequest, recorder.Code)
	}

	var response ErrorResponse
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Code != "review_rejected" {
		t.Errorf("expected code 'review_rejected', got '%s'", response.Code)
	}
}

func TestPostReview_AlreadyReviewed(t *testing.T) {
	mock := &ReviewServiceMock{err: service.ErrAlreadyReviewed}
	handler := NewReviewsHandler(mock, 5*time.Second)

	body := `{"item_code":"shop:100","rating":4,"comment":"ok"}`
	recorder := httptest.NewRecorder()
	request := withUser(httptest.NewRequest("POST", "/api/reviews", strings.NewReader(body)))

	handler.PostReview(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

// --- ListReviews tests ---

func TestListReviews_Success(t *testing.T) {
	mine := sampleReview()
	mock := &ReviewServiceMock{list: &service.ReviewList{
		Reviews: []*domain.Review{sampleReview()},
		RatingStats: []service.RatingStat{
			{Score: 5, Count: 0}, {Score: 4, Count: 1}, {Score: 3, Count: 0},
			{Score: 2, Count: 0}, {Score: 1, Count: 0},
		},
		MyReview: mine,
	}}
	handler := NewReviewsHandler(mock, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := withItemCode(withUser(httptest.NewRequest("GET", "/api/products/shop:100/reviews?page=2&page_size=5", nil)), "shop:100")

	handler.ListReviews(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, recorder.Code)
	}
	if mock.listedItem != "shop:100" || mock.listedUser != "user-1" {
		t.Errorf("expected item shop:100 for user-1, got %s / %s", mock.listedItem, mock.listedUser)
	}
	if mock.requestedPage != 2 || mock.requestedSize != 5 {
		t.Errorf("expected page=2 size=5, got page=%d size=%d", mock.requestedPage, mock.requestedSize)
	}

	var response ReviewListResponseDTO
	if err := json.NewDecoder(recorder.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(response.Reviews))
	}
	if len(response.RatingStats) != 5 || response.RatingStats[0].Score != 5 {
		t.Errorf("unexpected rating stats: %+v", response.RatingStats)
	}
	if response.MyReview == nil || response.MyReview.ID != 7 {
		t.Errorf("expected my_review with id 7, got %+v", response.MyReview)
	}
}

func TestListReviews_AnonymousOmitsMyReview(t *testing.T) {
	mock := &ReviewServiceMock{list: &service.ReviewList{}}
	handler := NewReviewsHandler(mock, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := withItemCode(httptest.NewRequest("GET", "/api/products/shop:100/reviews", nil), "shop:100")

	handler.ListReviews(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, recorder.Code)
	}
	if mock.listedUser != "" {
		t.Errorf("expected empty user id, got '%s'", mock.listedUser)
	}
	if strings.Contains(recorder.Body.String(), "my_review") {
		t.Error("my_review must be omitted for anonymous listing")
	}
}

// --- Update / Delete tests ---

func TestUpdateReview_Success(t *testing.T) {
	mock := &ReviewServiceMock{review: sampleReview()}
	handler := NewReviewsHandler(mock, 5*time.Second)

	body := `{"rating":3,"comment":"revised"}`
	recorder := httptest.NewRecorder()
	request := withReviewID(withUser(httptest.NewRequest("PUT", "/api/reviews/7", strings.NewReader(body))), "7")

	handler.UpdateReview(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, recorder.Code)
	}
	if mock.updatedID != 7 {
		t.Errorf("expected update for review 7, got %d", mock.updatedID)
	}
}

func TestUpdateReview_Forbidden(t *testing.T) {
	mock := &ReviewServiceMock{err: service.ErrNotReviewOwner}
	handler := NewReviewsHandler(mock, 5*time.Second)

	body := `{"rating":1,"comment":"hijack"}`
	recorder := httptest.NewRecorder()
	request := withReviewID(withUser(httptest.NewRequest("PUT", "/api/reviews/7", strings.NewReader(body))), "7")

	handler.UpdateReview(recorder, request)

	if recorder.Code != http.StatusForbidden {
		t.Errorf("expected %d, got %d", http.StatusForbidden, recorder.Code)
	}
}

func TestDeleteReview_NoContent(t *testing.T) {
	mock := &ReviewServiceMock{}
	handler := NewReviewsHandler(mock, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := withReviewID(withUser(httptest.NewRequest("DELETE", "/api/reviews/7", nil)), "7")

	handler.DeleteReview(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Errorf("expected %d, got %d", http.StatusNoContent, recorder.Code)
	}
	if mock.deletedID != 7 {
		t.Errorf("expected delete for review 7, got %d", mock.deletedID)
	}
}

func TestDeleteReview_BadID(t *testing.T) {
	handler := NewReviewsHandler(&ReviewServiceMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	request := withReviewID(withUser(httptest.NewRequest("DELETE", "/api/reviews/abc", nil)), "abc")

	handler.DeleteReview(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}
