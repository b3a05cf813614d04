package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/calMall/calMarket-sub000/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "calmarket_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// q returns the transaction bound to ctx by Transact, or the plain pool.
func (r *Repository) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.db
}

// Transact runs fn inside a single database transaction. Nested calls join
// the transaction already stored in ctx.
func (r *Repository) Transact(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = fn(context.WithValue(ctx, txKey{}, tx))
	if err != nil {
		return err
	}
	return tx.Commit()
}

// --- products ---

func (r *Repository) UpsertProduct(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (item_code, item_name, item_caption, price, inventory, image_urls, on_sale, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	          ON CONFLICT (item_code) DO UPDATE
	          SET item_name = EXCLUDED.item_name,
	              item_caption = EXCLUDED.item_caption,
	              price = EXCLUDED.price,
	              inventory = EXCLUDED.inventory,
	              image_urls = EXCLUDED.image_urls,
	              on_sale = EXCLUDED.on_sale`

	_, err := r.q(ctx).ExecContext(ctx, query,
		p.ItemCode,
		p.ItemName,
		p.ItemCaption,
		p.Price,
		p.Inventory,
		pq.Array(p.ImageURLs),
		p.OnSale)
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, itemCode string) (*domain.Product, error) {
	query := `SELECT item_code, item_name, item_caption, price, inventory, image_urls, on_sale, created_at
	          FROM products WHERE item_code = $1`
	return r.scanProduct(r.q(ctx).QueryRowContext(ctx, query, itemCode))
}

// GetProductForUpdate row-locks the product so concurrent order placements
// cannot both pass the stock check. Only meaningful inside Transact.
func (r *Repository) GetProductForUpdate(ctx context.Context, itemCode string) (*domain.Product, error) {
	query := `SELECT item_code, item_name, item_caption, price, inventory, image_urls, on_sale, created_at
	          FROM products WHERE item_code = $1 FOR UPDATE`
	return r.scanProduct(r.q(ctx).QueryRowContext(ctx, query, itemCode))
}

func (r *Repository) scanProduct(row *sql.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ItemCode,
		&p.ItemName,
		&p.ItemCaption,
		&p.Price,
		&p.Inventory,
		pq.Array(&p.ImageURLs),
		&p.OnSale,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (r *Repository) AdjustInventory(ctx context.Context, itemCode string, delta int) error {
	query := `UPDATE products SET inventory = inventory + $2 WHERE item_code = $1`

	res, err := r.q(ctx).ExecContext(ctx, query, itemCode, delta)
	if err != nil {
		return fmt.Errorf("adjust inventory: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust inventory rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// --- orders ---

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	query := `INSERT INTO orders (user_id, delivery_address, status, created_at, updated_at)
	          VALUES ($1, $2, $3, NOW(), NOW())
	          RETURNING id, created_at, updated_at`

	err := r.q(ctx).QueryRowContext(ctx, query,
		order.UserID,
		order.DeliveryAddress,
		order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, item_code, item_name, price_at_order, quantity, image_url)
	              VALUES ($1, $2, $3, $4, $5, $6)
	              RETURNING id`
	for i := range order.Items {
		item := &order.Items[i]
		err := r.q(ctx).QueryRowContext(ctx, itemQuery,
			order.ID,
			item.ItemCode,
			item.ItemName,
			item.PriceAtOrder,
			item.Quantity,
			item.ImageURL,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *Repository) GetOrderForUser(ctx context.Context, orderID int64, userID string) (*domain.Order, error) {
	query := `SELECT id, user_id, delivery_address, status, created_at, updated_at
	          FROM orders WHERE id = $1 AND user_id = $2`

	var order domain.Order
	err := r.q(ctx).QueryRowContext(ctx, query, orderID, userID).Scan(
		&order.ID,
		&order.UserID,
		&order.DeliveryAddress,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := r.listOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *Repository) listOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	query := `SELECT id, item_code, item_name, price_at_order, quantity, image_url
	          FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := r.q(ctx).QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.ItemCode,
			&item.ItemName,
			&item.PriceAtOrder,
			&item.Quantity,
			&item.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Order, error) {
	// id is the tie-breaker so pagination stays stable for equal timestamps
	query := `SELECT id, user_id, delivery_address, status, created_at, updated_at
	          FROM orders WHERE user_id = $1
	          ORDER BY created_at DESC, id DESC
	          LIMIT $2 OFFSET $3`

	rows, err := r.q(ctx).QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	orders, err := r.scanOrders(rows)
	if err != nil {
		return nil, err
	}

	for _, order := range orders {
		items, err := r.listOrderItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

// ListActiveOrders returns non-terminal orders for the scheduler sweep.
// Items are not loaded; the sweep only needs id, status and created_at.
func (r *Repository) ListActiveOrders(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT id, user_id, delivery_address, status, created_at, updated_at
	          FROM orders WHERE status IN ($1, $2) ORDER BY id`

	rows, err := r.q(ctx).QueryContext(ctx, query, domain.OrderStatusPending, domain.OrderStatusShipped)
	if err != nil {
		return nil, fmt.Errorf("query active orders: %w", err)
	}
	defer rows.Close()

	return r.scanOrders(rows)
}

func (r *Repository) scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.DeliveryAddress,
			&order.Status,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus applies the transition only if the order is still in the
// expected status. Returns false when another writer got there first.
func (r *Repository) UpdateOrderStatus(ctx context.Context, orderID int64, from, to domain.OrderStatus) (bool, error) {
	query := `UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	res, err := r.q(ctx).ExecContext(ctx, query, orderID, from, to)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update order status rows affected: %w", err)
	}
	return affected > 0, nil
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (user_id, nickname, point) VALUES ($1, $2, $3) RETURNING id`

	err := r.q(ctx).QueryRowContext(ctx, query, user.UserID, user.Nickname, user.Point).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateUser
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByUserID(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT id, user_id, nickname, point FROM users WHERE user_id = $1`

	var user domain.User
	err := r.q(ctx).QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&user.UserID,
		&user.Nickname,
		&user.Point,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

func (r *Repository) AddPoints(ctx context.Context, userID string, points int64) error {
	query := `UPDATE users SET point = point + $2 WHERE user_id = $1`

	res, err := r.q(ctx).ExecContext(ctx, query, userID, points)
	if err != nil {
		return fmt.Errorf("add points: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add points rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// --- cart ---

func (r *Repository) UpsertCartItem(ctx context.Context, item *domain.CartItem) error {
	query := `INSERT INTO cart_items (user_id, item_code, quantity)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, item_code) DO UPDATE
	          SET quantity = cart_items.quantity + EXCLUDED.quantity
	          RETURNING id`

	err := r.q(ctx).QueryRowContext(ctx, query, item.UserID, item.ItemCode, item.Quantity).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *Repository) ListCartItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	query := `SELECT id, user_id, item_code, quantity FROM cart_items WHERE user_id = $1 ORDER BY id`

	rows, err := r.q(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.ItemCode, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

func (r *Repository) RemoveCartItem(ctx context.Context, userID, itemCode string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND item_code = $2`

	if _, err := r.q(ctx).ExecContext(ctx, query, userID, itemCode); err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (r *Repository) DeleteCartItems(ctx context.Context, userID string, itemCodes []string) error {
	if len(itemCodes) == 0 {
		return nil
	}
	query := `DELETE FROM cart_items WHERE user_id = $1 AND item_code = ANY($2)`

	if _, err := r.q(ctx).ExecContext(ctx, query, userID, pq.Array(itemCodes)); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}

// --- outbox ---

func (r *Repository) CreateOutboxEvent(ctx context.Context, event *OutboxEvent) error {
	query := `INSERT INTO order_outbox (order_id, event_type, payload, created_at)
	          VALUES ($1, $2, $3, NOW())
	          RETURNING id, created_at`

	err := r.q(ctx).QueryRowContext(ctx, query,
		event.OrderID,
		event.EventType,
		[]byte(event.Payload),
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, order_id, event_type, payload, created_at
	          FROM order_outbox WHERE processed = FALSE ORDER BY id LIMIT $1`

	rows, err := r.q(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		var payload []byte
		if err := rows.Scan(&event.ID, &event.OrderID, &event.EventType, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		event.Payload = payload
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	query := `UPDATE order_outbox SET processed = TRUE WHERE id = $1`

	if _, err := r.q(ctx).ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark event as processed: %w", err)
	}
	return nil
}
