package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/calMall/calMarket-sub000/internal/domain"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateUser   = errors.New("user already exists")
	ErrReviewNotFound  = errors.New("review not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a pending order event awaiting publication to Kafka.
type OutboxEvent struct {
	ID        int64
	OrderID   int64
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Store is the single persistence boundary. Write operations called inside
// Transact run on the same database transaction.
type Store interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error

	UpsertProduct(ctx context.Context, p *domain.Product) error
	GetProduct(ctx context.Context, itemCode string) (*domain.Product, error)
	GetProductForUpdate(ctx context.Context, itemCode string) (*domain.Product, error)
	AdjustInventory(ctx context.Context, itemCode string, delta int) error

	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderForUser(ctx context.Context, orderID int64, userID string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, error)
	ListActiveOrders(ctx context.Context) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, from, to domain.OrderStatus) (bool, error)

	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByUserID(ctx context.Context, userID string) (*domain.User, error)
	AddPoints(ctx context.Context, userID string, points int64) error

	UpsertCartItem(ctx context.Context, item *domain.CartItem) error
	ListCartItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	RemoveCartItem(ctx context.Context, userID, itemCode string) error
	DeleteCartItems(ctx context.Context, userID string, itemCodes []string) error

	CreateReview(ctx context.Context, review *domain.Review) error
	GetReview(ctx context.Context, reviewID int64) (*domain.Review, error)
	GetUserReviewForItem(ctx context.Context, userID, itemCode string) (*domain.Review, error)
	ListReviewsByItem(ctx context.Context, itemCode string, limit, offset int) ([]*domain.Review, error)
	CountReviewsByRating(ctx context.Context, itemCode string) (map[int]int64, error)
	UpdateReview(ctx context.Context, review *domain.Review) error
	MarkReviewDeleted(ctx context.Context, reviewID int64) error
	HasPurchase(ctx context.Context, userID, itemCode string, since time.Time) (bool, error)

	CreateOutboxEvent(ctx context.Context, event *OutboxEvent) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error

	RunMigrations(*Credentials) error
	Close() error
}
