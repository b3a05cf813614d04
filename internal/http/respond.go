package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	r "github.com/calMall/calMarket-sub000/internal/repository"
	"github.com/calMall/calMarket-sub000/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleServiceError maps service and repository errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, r.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "order not found")
	case errors.Is(err, r.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "not_found", "product not found")
	case errors.Is(err, r.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, r.ErrReviewNotFound):
		respondError(w, http.StatusNotFound, "not_found", "review not found")
	case errors.Is(err, service.ErrNotReviewOwner):
		respondError(w, http.StatusForbidden, "forbidden", "not the review owner")
	case errors.Is(err, service.ErrAlreadyReviewed),
		errors.Is(err, service.ErrReviewReposted),
		errors.Is(err, service.ErrNotPurchased),
		errors.Is(err, service.ErrPurchaseTooOld):
		respondError(w, http.StatusBadRequest, "review_rejected", err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, service.ErrInsufficientInventory):
		respondError(w, http.StatusConflict, "insufficient_inventory", err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, r.ErrDuplicateUser):
		respondError(w, http.StatusConflict, "already_exists", "user already exists")
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
