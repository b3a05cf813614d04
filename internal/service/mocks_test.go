package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/calMall/calMarket-sub000/internal/cache"
	"github.com/calMall/calMarket-sub000/internal/domain"
	r "github.com/calMall/calMarket-sub000/internal/repository"
)

// mockStore is an in-memory r.Store for service tests.
type mockStore struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	orders   map[int64]*domain.Order
	users    map[string]*domain.User
	reviews  map[int64]*domain.Review
	cart     []domain.CartItem
	events   []*r.OutboxEvent

	nextOrderID  int64
	nextEventID  int64
	nextReviewID int64

	// failStatusUpdateFor makes UpdateOrderStatus error for one order id,
	// for partial-failure isolation tests.
	failStatusUpdateFor int64

	// beforeStatusUpdate runs at the top of UpdateOrderStatus, simulating a
	// concurrent writer slipping in between read and update.
	beforeStatusUpdate func()
}

func newMockStore() *mockStore {
	return &mockStore{
		products:     make(map[string]*domain.Product),
		orders:       make(map[int64]*domain.Order),
		users:        make(map[string]*domain.User),
		reviews:      make(map[int64]*domain.Review),
		nextOrderID:  1,
		nextEventID:  1,
		nextReviewID: 1,
	}
}

// Transact emulates rollback: state is snapshotted before fn and restored
// when fn fails, so all-or-nothing behavior is observable in tests.
func (m *mockStore) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := m.snapshot()
	if err := fn(ctx); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	products     map[string]*domain.Product
	orders       map[int64]*domain.Order
	users        map[string]*domain.User
	reviews      map[int64]*domain.Review
	cart         []domain.CartItem
	events       []*r.OutboxEvent
	nextOrderID  int64
	nextEventID  int64
	nextReviewID int64
}

func (m *mockStore) snapshot() storeSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := storeSnapshot{
		products:     make(map[string]*domain.Product, len(m.products)),
		orders:       make(map[int64]*domain.Order, len(m.orders)),
		users:        make(map[string]*domain.User, len(m.users)),
		reviews:      make(map[int64]*domain.Review, len(m.reviews)),
		cart:         append([]domain.CartItem(nil), m.cart...),
		events:       append([]*r.OutboxEvent(nil), m.events...),
		nextOrderID:  m.nextOrderID,
		nextEventID:  m.nextEventID,
		nextReviewID: m.nextReviewID,
	}
	for k, v := range m.products {
		cp := *v
		snap.products[k] = &cp
	}
	for k, v := range m.orders {
		cp := *v
		cp.Items = append([]domain.OrderItem(nil), v.Items...)
		snap.orders[k] = &cp
	}
	for k, v := range m.users {
		cp := *v
		snap.users[k] = &cp
	}
	for k, v := range m.reviews {
		cp := *v
		snap.reviews[k] = &cp
	}
	return snap
}

func (m *mockStore) restore(snap storeSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = snap.products
	m.orders = snap.orders
	m.users = snap.users
	m.reviews = snap.reviews
	m.cart = snap.cart
	m.events = snap.events
	m.nextOrderID = snap.nextOrderID
	m.nextEventID = snap.nextEventID
	m.nextReviewID = snap.nextReviewID
}

func (m *mockStore) UpsertProduct(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ItemCode] = &cp
	return nil
}

func (m *mockStore) GetProduct(_ context.Context, itemCode string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[itemCode]
	if !ok {
		return nil, r.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) GetProductForUpdate(ctx context.Context, itemCode string) (*domain.Product, error) {
	return m.GetProduct(ctx, itemCode)
}

func (m *mockStore) AdjustInventory(_ context.Context, itemCode string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[itemCode]
	if !ok {
		return r.ErrProductNotFound
	}
	if p.Inventory+delta < 0 {
		return fmt.Errorf("inventory check violation for %s", itemCode)
	}
	p.Inventory += delta
	return nil
}

func (m *mockStore) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order.ID = m.nextOrderID
	m.nextOrderID++
	cp := *order
	cp.Items = append([]domain.OrderItem(nil), order.Items...)
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockStore) GetOrderForUser(_ context.Context, orderID int64, userID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.UserID != userID {
		return nil, r.ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (m *mockStore) ListOrdersByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var owned []*domain.Order
	for id := m.nextOrderID - 1; id >= 1; id-- {
		o, ok := m.orders[id]
		if !ok || o.UserID != userID {
			continue
		}
		cp := *o
		owned = append(owned, &cp)
	}
	if offset >= len(owned) {
		return nil, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

func (m *mockStore) ListActiveOrders(_ context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []*domain.Order
	for id := int64(1); id < m.nextOrderID; id++ {
		o, ok := m.orders[id]
		if !ok {
			continue
		}
		if o.Status == domain.OrderStatusPending || o.Status == domain.OrderStatusShipped {
			cp := *o
			active = append(active, &cp)
		}
	}
	return active, nil
}

func (m *mockStore) UpdateOrderStatus(_ context.Context, orderID int64, from, to domain.OrderStatus) (bool, error) {
	if m.beforeStatusUpdate != nil {
		m.beforeStatusUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStatusUpdateFor == orderID {
		return false, errors.New("simulated update failure")
	}
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *mockStore) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.UserID]; ok {
		return r.ErrDuplicateUser
	}
	cp := *user
	m.users[user.UserID] = &cp
	return nil
}

func (m *mockStore) GetUserByUserID(_ context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, r.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) AddPoints(_ context.Context, userID string, points int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return r.ErrUserNotFound
	}
	u.Point += points
	return nil
}

func (m *mockStore) UpsertCartItem(_ context.Context, item *domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.cart {
		if m.cart[i].UserID == item.UserID && m.cart[i].ItemCode == item.ItemCode {
			m.cart[i].Quantity += item.Quantity
			item.ID = m.cart[i].ID
			item.Quantity = m.cart[i].Quantity
			return nil
		}
	}
	item.ID = int64(len(m.cart) + 1)
	m.cart = append(m.cart, *item)
	return nil
}

func (m *mockStore) ListCartItems(_ context.Context, userID string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []domain.CartItem
	for _, it := range m.cart {
		if it.UserID == userID {
			items = append(items, it)
		}
	}
	return items, nil
}

func (m *mockStore) RemoveCartItem(ctx context.Context, userID, itemCode string) error {
	return m.DeleteCartItems(ctx, userID, []string{itemCode})
}

func (m *mockStore) DeleteCartItems(_ context.Context, userID string, itemCodes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := m.cart[:0]
	for _, it := range m.cart {
		remove := false
		if it.UserID == userID {
			for _, code := range itemCodes {
				if it.ItemCode == code {
					remove = true
					break
				}
			}
		}
		if !remove {
			keep = append(keep, it)
		}
	}
	m.cart = keep
	return nil
}

func (m *mockStore) CreateReview(_ context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	review.ID = m.nextReviewID
	m.nextReviewID++
	review.CreatedAt = time.Now()
	review.UpdatedAt = review.CreatedAt
	cp := *review
	m.reviews[review.ID] = &cp
	return nil
}

func (m *mockStore) GetReview(_ context.Context, reviewID int64) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	review, ok := m.reviews[reviewID]
	if !ok {
		return nil, r.ErrReviewNotFound
	}
	cp := *review
	return &cp, nil
}

func (m *mockStore) GetUserReviewForItem(_ context.Context, userID, itemCode string) (*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := m.nextReviewID - 1; id >= 1; id-- {
		review, ok := m.reviews[id]
		if ok && review.UserID == userID && review.ItemCode == itemCode {
			cp := *review
			return &cp, nil
		}
	}
	return nil, r.ErrReviewNotFound
}

func (m *mockStore) ListReviewsByItem(_ context.Context, itemCode string, limit, offset int) ([]*domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.Review
	for id := m.nextReviewID - 1; id >= 1; id-- {
		review, ok := m.reviews[id]
		if ok && review.ItemCode == itemCode && !review.Deleted {
			cp := *review
			matched = append(matched, &cp)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (m *mockStore) CountReviewsByRating(_ context.Context, itemCode string) (map[int]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := make(map[int]int64)
	for _, review := range m.reviews {
		if review.ItemCode == itemCode && !review.Deleted {
			stats[review.Rating]++
		}
	}
	return stats, nil
}

func (m *mockStore) UpdateReview(_ context.Context, review *domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.reviews[review.ID]
	if !ok || stored.Deleted {
		return r.ErrReviewNotFound
	}
	stored.Rating = review.Rating
	stored.Title = review.Title
	stored.Comment = review.Comment
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *mockStore) MarkReviewDeleted(_ context.Context, reviewID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	review, ok := m.reviews[reviewID]
	if !ok {
		return r.ErrReviewNotFound
	}
	review.Deleted = true
	review.UpdatedAt = time.Now()
	return nil
}

func (m *mockStore) HasPurchase(_ context.Context, userID, itemCode string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.orders {
		if order.UserID != userID || !order.CreatedAt.After(since) {
			continue
		}
		for _, item := range order.Items {
			if item.ItemCode == itemCode {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockStore) CreateOutboxEvent(_ context.Context, event *r.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = m.nextEventID
	m.nextEventID++
	cp := *event
	m.events = append(m.events, &cp)
	return nil
}

func (m *mockStore) GetUnprocessedEvents(_ context.Context, limit int) ([]*r.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.events) {
		limit = len(m.events)
	}
	return m.events[:limit], nil
}

func (m *mockStore) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := m.events[:0]
	for _, ev := range m.events {
		if ev.ID != id {
			keep = append(keep, ev)
		}
	}
	m.events = keep
	return nil
}

func (m *mockStore) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []string
	for _, ev := range m.events {
		types = append(types, ev.EventType)
	}
	return types
}

func (m *mockStore) RunMigrations(*r.Credentials) error { return nil }
func (m *mockStore) Close() error                       { return nil }

var _ r.Store = (*mockStore)(nil)

// mockCache is a map-backed cache.ProductCache.
type mockCache struct {
	mu      sync.Mutex
	entries map[string]*domain.Product
	getErr  error
	deletes []string
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]*domain.Product)}
}

func (c *mockCache) Get(_ context.Context, itemCode string) (*domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	p, ok := c.entries[itemCode]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	cp := *p
	return &cp, nil
}

func (c *mockCache) Set(_ context.Context, product *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *product
	c.entries[product.ItemCode] = &cp
	return nil
}

func (c *mockCache) Delete(_ context.Context, itemCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, itemCode)
	c.deletes = append(c.deletes, itemCode)
	return nil
}

var _ cache.ProductCache = (*mockCache)(nil)
