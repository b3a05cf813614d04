package service

import (
	"errors"
	"fmt"

	"github.com/calMall/calMarket-sub000/internal/domain"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInvalidTransition     = errors.New("invalid status transition")

	ErrAlreadyReviewed = errors.New("item already reviewed by this user")
	ErrReviewReposted  = errors.New("reposting after deleting a review is not allowed")
	ErrNotPurchased    = errors.New("item was never purchased by this user")
	ErrPurchaseTooOld  = errors.New("purchase is older than the review window")
	ErrNotReviewOwner  = errors.New("review belongs to another user")

	// errTransitionLost marks a conditional status update that affected no
	// rows because another writer moved the order first.
	errTransitionLost = errors.New("transition lost to concurrent update")
)

// InvalidTransitionError identifies the current and requested status of a
// rejected transition. Matches ErrInvalidTransition under errors.Is.
type InvalidTransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
