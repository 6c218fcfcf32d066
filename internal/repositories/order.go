package repositories

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tixmarket/internal/models"
	"tixmarket/internal/utils"
)

// OrderRepository handles order data operations, including the reservation
// transaction that converts a checkout session into committed inventory.
type OrderRepository struct {
	db *pgxpool.Pool
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateOrderParams carries everything the reservation transaction needs.
// Promo is the live promo row resolved by the caller, nil when no code
// applies.
type CreateOrderParams struct {
	Marketplace  *models.Marketplace
	Checkout     *models.CheckoutSession
	Customer     *models.CustomerInfo
	PasswordHash string
	Promo        *models.PromoCode
}

// CheckoutOrders is the result of a successful reservation transaction.
// Total is the combined payable amount across all seller orders.
type CheckoutOrders struct {
	Customer *models.Customer
	Orders   []*models.Order
	Total    int
}

// FinalizeResult reports what a success callback did. AlreadyPaid means the
// callback was a replay and nothing was mutated.
type FinalizeResult struct {
	Orders      []*models.Order
	AlreadyPaid bool
}

const orderColumns = `id, order_number, marketplace_id, organizer_id, customer_id, checkout_id, status, payment_status, subtotal, discount_amount, commission_rate, commission_amount, total, currency, payment_reference, failure_reason, expires_at, paid_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(&o.ID, &o.OrderNumber, &o.MarketplaceID, &o.OrganizerID,
		&o.CustomerID, &o.CheckoutID, &o.Status, &o.PaymentStatus, &o.Subtotal,
		&o.DiscountAmount, &o.CommissionRate, &o.CommissionAmount, &o.Total,
		&o.Currency, &o.PaymentReference, &o.FailureReason, &o.ExpiresAt,
		&o.PaidAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateFromCheckout runs the reservation transaction. In one database
// transaction it upserts the customer, locks every touched ticket type in
// ascending id order, revalidates availability under lock, commits the
// quota, and materializes one order per organizer with its items and
// pending tickets. Any failure rolls back everything.
func (r *OrderRepository) CreateFromCheckout(ctx context.Context, params CreateOrderParams) (*CheckoutOrders, error) {
	checkout := params.Checkout
	if len(checkout.Items) == 0 {
		return nil, &models.ValidationError{Field: "items", Message: "checkout has no items"}
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	customer, err := upsertCustomerTx(ctx, tx, params.Marketplace.ID, params.Customer, params.PasswordHash)
	if err != nil {
		return nil, err
	}

	types, err := lockTicketTypesTx(ctx, tx, itemTicketTypeIDs(checkout.Items))
	if err != nil {
		return nil, err
	}

	// Revalidation under lock. A shortfall here means another checkout won
	// the race since this session was initialized.
	for _, item := range checkout.Items {
		tt, ok := types[item.TicketTypeID]
		if !ok || tt.MarketplaceID != params.Marketplace.ID {
			return nil, &models.NotFoundError{Resource: "ticket type", ID: fmt.Sprintf("%d", item.TicketTypeID)}
		}
		if !tt.IsActive() {
			return nil, &models.AvailabilityError{TicketTypeID: tt.ID, Requested: item.Quantity, Available: 0}
		}
		if available := tt.Available(); item.Quantity > available {
			return nil, &models.OversoldError{TicketTypeID: tt.ID, Requested: item.Quantity, Available: available}
		}
	}

	events, err := eventsForTypesTx(ctx, tx, types)
	if err != nil {
		return nil, err
	}
	organizers, err := organizersForTypesTx(ctx, tx, types)
	if err != nil {
		return nil, err
	}

	// The checkout-level discount is spread across lines in proportion to
	// their totals so that per-seller orders sum exactly to the charged
	// amount.
	lineDiscounts := AllocateDiscount(checkout.Items, checkout.DiscountAmount)

	groups := groupByOrganizer(checkout.Items, types)
	now := time.Now()
	expiresAt := now.Add(models.CheckoutTTL)

	result := &CheckoutOrders{Customer: customer}
	for _, group := range groups {
		order, err := r.insertOrderGroupTx(ctx, tx, orderGroupParams{
			marketplace:   params.Marketplace,
			checkout:      checkout,
			customer:      customer,
			organizer:     organizers[group.organizerID],
			items:         group.items,
			lineDiscounts: lineDiscounts,
			types:         types,
			events:        events,
			expiresAt:     expiresAt,
		})
		if err != nil {
			return nil, err
		}
		result.Orders = append(result.Orders, order)
		result.Total += order.Total
	}

	// Commit the quota only after every group validated and materialized.
	for _, item := range checkout.Items {
		cmd, err := tx.Exec(ctx, `
			UPDATE ticket_types SET quota_sold = quota_sold + $2
			WHERE id = $1 AND quota_sold + $2 + quota_reserved <= quota_total`,
			item.TicketTypeID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to commit quota: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			tt := types[item.TicketTypeID]
			return nil, &models.OversoldError{TicketTypeID: tt.ID, Requested: item.Quantity, Available: tt.Available()}
		}
	}

	if params.Promo != nil {
		if err := incrementPromoUsageTx(ctx, tx, params.Promo.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}
	return result, nil
}

type organizerGroup struct {
	organizerID int
	items       []models.CartItem
}

// groupByOrganizer splits checkout lines into one group per seller,
// ordered by ascending organizer id for determinism.
func groupByOrganizer(items []models.CartItem, types map[int]*models.TicketType) []organizerGroup {
	byOrganizer := make(map[int][]models.CartItem)
	for _, item := range items {
		id := types[item.TicketTypeID].OrganizerID
		byOrganizer[id] = append(byOrganizer[id], item)
	}
	ids := make([]int, 0, len(byOrganizer))
	for id := range byOrganizer {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	groups := make([]organizerGroup, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, organizerGroup{organizerID: id, items: byOrganizer[id]})
	}
	return groups
}

// AllocateDiscount spreads a checkout-level discount over the lines in
// proportion to their totals. Rounding remainders land on the last line so
// the allocations always sum to the discount exactly.
func AllocateDiscount(items []models.CartItem, discount int) map[int]int {
	allocations := make(map[int]int, len(items))
	if discount <= 0 {
		return allocations
	}
	subtotal := 0
	for _, item := range items {
		subtotal += item.UnitPrice * item.Quantity
	}
	if subtotal <= 0 {
		return allocations
	}
	if discount > subtotal {
		discount = subtotal
	}
	remaining := discount
	for i, item := range items {
		lineTotal := item.UnitPrice * item.Quantity
		var share int
		if i == len(items)-1 {
			share = remaining
		} else {
			share = discount * lineTotal / subtotal
			if share > remaining {
				share = remaining
			}
		}
		allocations[item.TicketTypeID] = share
		remaining -= share
	}
	return allocations
}

type orderGroupParams struct {
	marketplace   *models.Marketplace
	checkout      *models.CheckoutSession
	customer      *models.Customer
	organizer     *models.Organizer
	items         []models.CartItem
	lineDiscounts map[int]int
	types         map[int]*models.TicketType
	events        map[int]*models.Event
	expiresAt     time.Time
}

// insertOrderGroupTx materializes one seller's order: the order row, its
// items, and one pending ticket per unit.
func (r *OrderRepository) insertOrderGroupTx(ctx context.Context, tx pgx.Tx, p orderGroupParams) (*models.Order, error) {
	subtotal := 0
	discount := 0
	commission := 0
	for _, item := range p.items {
		tt := p.types[item.TicketTypeID]
		lineTotal := item.UnitPrice * item.Quantity
		lineDiscount := p.lineDiscounts[item.TicketTypeID]
		rate := models.EffectiveCommissionRate(p.events[tt.EventID], p.organizer, p.marketplace)
		subtotal += lineTotal
		discount += lineDiscount
		commission += int(math.Round(float64(lineTotal-lineDiscount) * rate / 100))
	}

	total := subtotal - discount
	if p.marketplace.CommissionMode == models.CommissionOnTop {
		total += commission
	}

	// The stored rate is the blended effective rate across the order's
	// lines; with a single event per order it equals the resolved rate.
	rate := 0.0
	if net := subtotal - discount; net > 0 {
		rate = math.Round(float64(commission)/float64(net)*10000) / 100
	}

	orderNumber, err := uniqueOrderNumberTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, marketplace_id, organizer_id, customer_id, checkout_id,
			status, payment_status, subtotal, discount_amount, commission_rate, commission_amount,
			total, currency, expires_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', 'pending', $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+orderColumns,
		orderNumber, p.marketplace.ID, p.organizer.ID, p.customer.ID, p.checkout.ID,
		subtotal, discount, rate, commission, total, p.checkout.Currency, p.expiresAt)
	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range p.items {
		tt := p.types[item.TicketTypeID]
		lineTotal := item.UnitPrice * item.Quantity
		var itemID int
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, ticket_type_id, name, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			order.ID, item.TicketTypeID, tt.Name, item.Quantity, item.UnitPrice, lineTotal).Scan(&itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}

		for unit := 0; unit < item.Quantity; unit++ {
			code, err := utils.GenerateTicketCode()
			if err != nil {
				return nil, fmt.Errorf("failed to generate ticket code: %w", err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO tickets (order_id, order_item_id, ticket_type_id, code, barcode, status, price, attendee_name, attendee_email)
				VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $8)`,
				order.ID, itemID, item.TicketTypeID, code, uuid.New().String(),
				item.UnitPrice, p.customer.FullName(), p.customer.Email)
			if err != nil {
				return nil, fmt.Errorf("failed to insert ticket: %w", err)
			}
		}
	}
	return order, nil
}

// uniqueOrderNumberTx generates an order number, retrying on the unlikely
// collision.
func uniqueOrderNumberTx(ctx context.Context, tx pgx.Tx) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		number := models.GenerateOrderNumber()
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE order_number = $1)`, number).Scan(&exists); err != nil {
			return "", fmt.Errorf("failed to check order number uniqueness: %w", err)
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique order number")
}

// lockTicketTypesTx locks the given ticket types in ascending id order and
// returns them keyed by id. Ascending order bounds deadlock risk between
// concurrent reservation transactions.
func lockTicketTypesTx(ctx context.Context, tx pgx.Tx, ids []int) (map[int]*models.TicketType, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock ticket types: %w", err)
	}
	defer rows.Close()

	types := make(map[int]*models.TicketType, len(ids))
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan locked ticket type: %w", err)
		}
		types[tt.ID] = tt
	}
	return types, rows.Err()
}

func itemTicketTypeIDs(items []models.CartItem) []int {
	ids := make([]int, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.TicketTypeID)
	}
	sort.Ints(ids)
	return ids
}

func eventsForTypesTx(ctx context.Context, tx pgx.Tx, types map[int]*models.TicketType) (map[int]*models.Event, error) {
	seen := make(map[int]bool)
	var ids []int
	for _, tt := range types {
		if !seen[tt.EventID] {
			seen[tt.EventID] = true
			ids = append(ids, tt.EventID)
		}
	}
	rows, err := tx.Query(ctx,
		`SELECT id, marketplace_id, organizer_id, title, starts_at, status, commission_rate, created_at
		 FROM events WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make(map[int]*models.Event, len(ids))
	for rows.Next() {
		e := &models.Event{}
		if err := rows.Scan(&e.ID, &e.MarketplaceID, &e.OrganizerID, &e.Title,
			&e.StartsAt, &e.Status, &e.CommissionRate, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events[e.ID] = e
	}
	return events, rows.Err()
}

func organizersForTypesTx(ctx context.Context, tx pgx.Tx, types map[int]*models.TicketType) (map[int]*models.Organizer, error) {
	seen := make(map[int]bool)
	var ids []int
	for _, tt := range types {
		if !seen[tt.OrganizerID] {
			seen[tt.OrganizerID] = true
			ids = append(ids, tt.OrganizerID)
		}
	}
	rows, err := tx.Query(ctx,
		`SELECT id, marketplace_id, name, commission_rate, total_orders, total_gross, total_net, created_at
		 FROM organizers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizers: %w", err)
	}
	defer rows.Close()

	organizers := make(map[int]*models.Organizer, len(ids))
	for rows.Next() {
		o := &models.Organizer{}
		if err := rows.Scan(&o.ID, &o.MarketplaceID, &o.Name, &o.CommissionRate,
			&o.TotalOrders, &o.TotalGross, &o.TotalNet, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organizer: %w", err)
		}
		organizers[o.ID] = o
	}
	return organizers, rows.Err()
}

// SetPaymentReference stamps the processor reference onto every order of a
// checkout once the payment intent exists.
func (r *OrderRepository) SetPaymentReference(ctx context.Context, checkoutID, reference string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE orders SET payment_reference = $2, updated_at = now() WHERE checkout_id = $1`,
		checkoutID, reference)
	if err != nil {
		return fmt.Errorf("failed to set payment reference: %w", err)
	}
	return nil
}

// GetByNumber retrieves an order by its order number
func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetByReference locates an order by processor reference, falling back to
// the order number since some processors echo it back as the reference.
func (r *OrderRepository) GetByReference(ctx context.Context, reference string) (*models.Order, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1 OR order_number = $1 ORDER BY id LIMIT 1`,
		reference)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by reference: %w", err)
	}
	return order, nil
}

// GetItems retrieves the line items of an order
func (r *OrderRepository) GetItems(ctx context.Context, orderID int) ([]models.OrderItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, ticket_type_id, name, quantity, unit_price, total
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.TicketTypeID, &it.Name,
			&it.Quantity, &it.UnitPrice, &it.Total); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetTickets retrieves the tickets issued for an order
func (r *OrderRepository) GetTickets(ctx context.Context, orderID int) ([]models.Ticket, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, order_id, order_item_id, ticket_type_id, code, barcode, status, price, attendee_name, attendee_email, created_at
		 FROM tickets WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.OrderID, &t.OrderItemID, &t.TicketTypeID,
			&t.Code, &t.Barcode, &t.Status, &t.Price, &t.AttendeeName,
			&t.AttendeeEmail, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// FinalizeSuccess applies a confirmed payment to every order of the
// checkout the reference belongs to. The lookup is scoped to the given
// marketplace; a reference from another tenant behaves as unknown. It is
// idempotent: a replayed callback finds payment_status already paid and
// mutates nothing. Orders cancelled by the expiry sweep before the
// callback arrived are left untouched for manual reconciliation.
func (r *OrderRepository) FinalizeSuccess(ctx context.Context, marketplaceID int, reference string) (*FinalizeResult, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var checkoutID string
	err = tx.QueryRow(ctx,
		`SELECT checkout_id FROM orders WHERE (payment_reference = $1 OR order_number = $1) AND marketplace_id = $2 ORDER BY id LIMIT 1`,
		reference, marketplaceID).Scan(&checkoutID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to locate order for callback: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE checkout_id = $1 ORDER BY id FOR UPDATE`, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock orders: %w", err)
	}
	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}

	result := &FinalizeResult{Orders: orders, AlreadyPaid: true}
	now := time.Now()
	for _, order := range orders {
		if order.IsPaid() || order.Status == models.OrderCancelled {
			continue
		}
		result.AlreadyPaid = false

		err = tx.QueryRow(ctx, `
			UPDATE orders SET status = 'completed', payment_status = 'paid', paid_at = $2, failure_reason = '', updated_at = now()
			WHERE id = $1
			RETURNING status, payment_status, paid_at, updated_at`,
			order.ID, now).Scan(&order.Status, &order.PaymentStatus, &order.PaidAt, &order.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to mark order paid: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE tickets SET status = 'valid' WHERE order_id = $1 AND status = 'pending'`, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to validate tickets: %w", err)
		}

		// Ledger row per order; the unique order_id constraint makes the
		// insert a no-op on replay even if the status check raced.
		net := order.Total - order.CommissionAmount
		_, err = tx.Exec(ctx, `
			INSERT INTO commission_entries (marketplace_id, organizer_id, order_id, gross_amount, commission, net_amount, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (order_id) DO NOTHING`,
			order.MarketplaceID, order.OrganizerID, order.ID, order.Total,
			order.CommissionAmount, net, order.Currency)
		if err != nil {
			return nil, fmt.Errorf("failed to record commission: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE organizers SET total_orders = total_orders + 1, total_gross = total_gross + $2, total_net = total_net + $3
			WHERE id = $1`,
			order.OrganizerID, order.Total, net)
		if err != nil {
			return nil, fmt.Errorf("failed to update organizer stats: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit callback transaction: %w", err)
	}
	return result, nil
}

// MarkPaymentFailed records a failed payment attempt on every still-pending
// order of the reference's checkout, scoped to the given marketplace.
// Inventory stays committed until the expiry sweep releases it, so a
// retried payment within the hold window can still succeed.
func (r *OrderRepository) MarkPaymentFailed(ctx context.Context, marketplaceID int, reference, reason string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE orders SET payment_status = 'failed', failure_reason = $2, updated_at = now()
		WHERE checkout_id = (
			SELECT checkout_id FROM orders WHERE (payment_reference = $1 OR order_number = $1) AND marketplace_id = $3 ORDER BY id LIMIT 1
		) AND payment_status = 'pending'`,
		reference, truncateReason(reason), marketplaceID)
	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		// Either an unknown reference or all orders already settled.
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE (payment_reference = $1 OR order_number = $1) AND marketplace_id = $2)`,
			reference, marketplaceID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return models.ErrOrderNotFound
		}
	}
	return nil
}

func truncateReason(reason string) string {
	if len(reason) > 255 {
		return reason[:255]
	}
	return reason
}

// SweepExpired cancels pending orders past their reservation hold and
// releases their committed quota. Ticket types are locked in ascending id
// order, the same discipline the reservation transaction uses. Returns the
// number of orders cancelled.
func (r *OrderRepository) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id FROM orders WHERE status = 'pending' AND expires_at <= $1
		ORDER BY id FOR UPDATE SKIP LOCKED`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to select expired orders: %w", err)
	}
	var orderIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan expired order: %w", err)
		}
		orderIDs = append(orderIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read expired orders: %w", err)
	}
	if len(orderIDs) == 0 {
		return 0, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		SELECT id FROM ticket_types
		WHERE id IN (SELECT DISTINCT ticket_type_id FROM order_items WHERE order_id = ANY($1))
		ORDER BY id FOR UPDATE`, orderIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to lock ticket types for release: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE ticket_types tt SET quota_sold = GREATEST(tt.quota_sold - released.qty, 0)
		FROM (
			SELECT ticket_type_id, SUM(quantity) AS qty
			FROM order_items WHERE order_id = ANY($1) GROUP BY ticket_type_id
		) released
		WHERE tt.id = released.ticket_type_id`, orderIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to release quota: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE tickets SET status = 'cancelled' WHERE order_id = ANY($1) AND status = 'pending'`, orderIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel tickets: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders SET status = 'cancelled', updated_at = now() WHERE id = ANY($1)`, orderIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel orders: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit sweep: %w", err)
	}
	return len(orderIDs), nil
}
