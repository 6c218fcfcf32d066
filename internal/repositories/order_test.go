package repositories

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tixmarket/internal/models"
)

// setupTestDB connects to the database named by TEST_DATABASE_URL and
// skips the test when none is configured.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Database tests require TEST_DATABASE_URL")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Skipf("Failed to connect to test database: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		t.Skipf("Failed to ping test database: %v", err)
	}
	return pool
}

func seedCheckoutSession(ticketTypeID, quantity, price int) *models.CheckoutSession {
	subtotal := quantity * price
	return &models.CheckoutSession{
		ID:            "checkout_test",
		CartToken:     "cart_test",
		MarketplaceID: 1,
		Items: []models.CartItem{
			{TicketTypeID: ticketTypeID, EventID: 1, Quantity: quantity, UnitPrice: price},
		},
		Subtotal:  subtotal,
		Total:     subtotal,
		Currency:  "RON",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(models.CheckoutTTL),
	}
}

func testBuyer() *models.CustomerInfo {
	return &models.CustomerInfo{Email: "buyer@example.com", FirstName: "Test", LastName: "Buyer"}
}

// Requires seed data: marketplace 1, organizer 1, event 1 and ticket type 1
// with quota_total 10 and nothing sold.
func TestCreateFromCheckoutCommitsQuota(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewOrderRepository(db)
	catalog := NewCatalogRepository(db)
	marketplaces := NewMarketplaceRepository(db)

	marketplace, err := marketplaces.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load marketplace: %v", err)
	}

	before, err := catalog.GetTicketType(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load ticket type: %v", err)
	}

	result, err := repo.CreateFromCheckout(context.Background(), CreateOrderParams{
		Marketplace: marketplace,
		Checkout:    seedCheckoutSession(1, 2, 5000),
		Customer:    testBuyer(),
	})
	if err != nil {
		t.Fatalf("CreateFromCheckout() error = %v", err)
	}
	if len(result.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(result.Orders))
	}
	order := result.Orders[0]
	if order.Status != models.OrderPending || order.PaymentStatus != models.PaymentPending {
		t.Errorf("new order should be pending/pending, got %s/%s", order.Status, order.PaymentStatus)
	}

	after, err := catalog.GetTicketType(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to reload ticket type: %v", err)
	}
	if after.QuotaSold != before.QuotaSold+2 {
		t.Errorf("quota_sold = %d, want %d", after.QuotaSold, before.QuotaSold+2)
	}

	tickets, err := repo.GetTickets(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("failed to load tickets: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets, got %d", len(tickets))
	}
	for _, ticket := range tickets {
		if ticket.Status != models.TicketPending {
			t.Errorf("ticket %s should be pending before payment, got %s", ticket.Code, ticket.Status)
		}
	}
}

// Two buyers race for the last seats; exactly one transaction may win and
// the sum of sold seats must never exceed the quota.
func TestCreateFromCheckoutOversellRace(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewOrderRepository(db)
	marketplaces := NewMarketplaceRepository(db)
	catalog := NewCatalogRepository(db)

	marketplace, err := marketplaces.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load marketplace: %v", err)
	}
	tt, err := catalog.GetTicketType(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load ticket type: %v", err)
	}
	remaining := tt.Available()
	if remaining < 1 {
		t.Skip("seed ticket type has no availability left")
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			checkout := seedCheckoutSession(1, remaining, tt.Price)
			checkout.ID = checkout.ID + string(rune('a'+i))
			_, errs[i] = repo.CreateFromCheckout(context.Background(), CreateOrderParams{
				Marketplace: marketplace,
				Checkout:    checkout,
				Customer:    testBuyer(),
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		var oversold *models.OversoldError
		if !errors.As(err, &oversold) {
			t.Errorf("loser should fail with an oversold error, got %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly 1 winner, got %d", winners)
	}

	after, err := catalog.GetTicketType(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to reload ticket type: %v", err)
	}
	if !after.CheckQuotaInvariant() {
		t.Errorf("quota invariant violated: sold %d reserved %d total %d",
			after.QuotaSold, after.QuotaReserved, after.QuotaTotal)
	}
}

// Requires seed ticket types 1 and 2 belonging to different organizers
// whose effective commission rates differ (event 1 or organizer 1 carries
// a rate override, organizer 2 inherits the marketplace rate).
func TestCreateFromCheckoutSplitsByOrganizer(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewOrderRepository(db)
	marketplaces := NewMarketplaceRepository(db)
	catalog := NewCatalogRepository(db)

	marketplace, err := marketplaces.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load marketplace: %v", err)
	}

	checkout := seedCheckoutSession(1, 1, 5000)
	checkout.Items = append(checkout.Items,
		models.CartItem{TicketTypeID: 2, EventID: 2, Quantity: 1, UnitPrice: 3000})
	checkout.Subtotal = 8000
	checkout.Total = 8000

	result, err := repo.CreateFromCheckout(context.Background(), CreateOrderParams{
		Marketplace: marketplace,
		Checkout:    checkout,
		Customer:    testBuyer(),
	})
	if err != nil {
		t.Fatalf("CreateFromCheckout() error = %v", err)
	}
	if len(result.Orders) != 2 {
		t.Fatalf("expected one order per organizer, got %d", len(result.Orders))
	}
	if result.Orders[0].CustomerID != result.Orders[1].CustomerID {
		t.Error("seller orders must share one customer")
	}
	if result.Orders[0].CheckoutID != result.Orders[1].CheckoutID {
		t.Error("seller orders must share the checkout id")
	}
	if result.Total != result.Orders[0].Total+result.Orders[1].Total {
		t.Error("combined total must equal the sum of seller orders")
	}

	// Each seller's order carries its own effective rate, not a shared one.
	for _, order := range result.Orders {
		items, err := repo.GetItems(context.Background(), order.ID)
		if err != nil {
			t.Fatalf("failed to load order items: %v", err)
		}
		tt, err := catalog.GetTicketType(context.Background(), items[0].TicketTypeID)
		if err != nil {
			t.Fatalf("failed to load ticket type: %v", err)
		}
		event, err := catalog.GetEvent(context.Background(), tt.EventID)
		if err != nil {
			t.Fatalf("failed to load event: %v", err)
		}
		organizer, err := marketplaces.GetOrganizer(context.Background(), order.OrganizerID)
		if err != nil {
			t.Fatalf("failed to load organizer: %v", err)
		}
		rate := models.EffectiveCommissionRate(event, organizer, marketplace)
		expected := int(math.Round(float64(order.Subtotal-order.DiscountAmount) * rate / 100))
		if order.CommissionAmount != expected {
			t.Errorf("order %s commission = %d, want %d at rate %.2f",
				order.OrderNumber, order.CommissionAmount, expected, rate)
		}
	}
	if result.Orders[0].CommissionRate == result.Orders[1].CommissionRate {
		t.Error("sellers with different overrides must carry different rates")
	}
}

// A cart line may carry a stale event id; the commission override must
// still resolve through the locked ticket type. Requires seed event 1 to
// carry a commission_rate override distinct from the marketplace rate.
func TestCreateFromCheckoutResolvesEventFromTicketType(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewOrderRepository(db)
	marketplaces := NewMarketplaceRepository(db)
	catalog := NewCatalogRepository(db)

	marketplace, err := marketplaces.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load marketplace: %v", err)
	}

	checkout := seedCheckoutSession(1, 1, 5000)
	checkout.ID = "checkout_stale_event"
	checkout.Items[0].EventID = 0

	result, err := repo.CreateFromCheckout(context.Background(), CreateOrderParams{
		Marketplace: marketplace,
		Checkout:    checkout,
		Customer:    testBuyer(),
	})
	if err != nil {
		t.Fatalf("CreateFromCheckout() error = %v", err)
	}
	order := result.Orders[0]

	tt, err := catalog.GetTicketType(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load ticket type: %v", err)
	}
	event, err := catalog.GetEvent(context.Background(), tt.EventID)
	if err != nil {
		t.Fatalf("failed to load event: %v", err)
	}
	organizer, err := marketplaces.GetOrganizer(context.Background(), order.OrganizerID)
	if err != nil {
		t.Fatalf("failed to load organizer: %v", err)
	}
	rate := models.EffectiveCommissionRate(event, organizer, marketplace)
	expected := int(math.Round(float64(order.Subtotal-order.DiscountAmount) * rate / 100))
	if order.CommissionAmount != expected {
		t.Errorf("commission = %d, want %d from the catalog event rate", order.CommissionAmount, expected)
	}
}

// The commission either rides on top of the buyer total or stays inside
// it, per the marketplace's mode.
func TestCreateFromCheckoutCommissionModes(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewOrderRepository(db)
	marketplaces := NewMarketplaceRepository(db)

	marketplace, err := marketplaces.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load marketplace: %v", err)
	}

	marketplace.CommissionMode = models.CommissionIncluded
	checkoutA := seedCheckoutSession(1, 1, 5000)
	checkoutA.ID = "checkout_mode_included"
	included, err := repo.CreateFromCheckout(context.Background(), CreateOrderParams{
		Marketplace: marketplace,
		Checkout:    checkoutA,
		Customer:    testBuyer(),
	})
	if err != nil {
		t.Fatalf("CreateFromCheckout() error = %v", err)
	}
	order := included.Orders[0]
	if order.CommissionAmount <= 0 {
		t.Fatal("seed marketplace must carry a non-zero commission rate")
	}
	if order.Total != order.Subtotal-order.DiscountAmount {
		t.Errorf("included mode total = %d, want %d", order.Total, order.Subtotal-order.DiscountAmount)
	}

	marketplace.CommissionMode = models.CommissionOnTop
	checkoutB := seedCheckoutSession(1, 1, 5000)
	checkoutB.ID = "checkout_mode_on_top"
	onTop, err := repo.CreateFromCheckout(context.Background(), CreateOrderParams{
		Marketplace: marketplace,
		Checkout:    checkoutB,
		Customer:    testBuyer(),
	})
	if err != nil {
		t.Fatalf("CreateFromCheckout() error = %v", err)
	}
	order = onTop.Orders[0]
	want := order.Subtotal - order.DiscountAmount + order.CommissionAmount
	if order.Total != want {
		t.Errorf("on_top mode total = %d, want %d", order.Total, want)
	}
}

func TestFinalizeSuccessIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewOrderRepository(db)
	marketplaces := NewMarketplaceRepository(db)

	marketplace, err := marketplaces.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load marketplace: %v", err)
	}

	checkout := seedCheckoutSession(1, 1, 5000)
	checkout.ID = "checkout_settle"
	created, err := repo.CreateFromCheckout(context.Background(), CreateOrderParams{
		Marketplace: marketplace,
		Checkout:    checkout,
		Customer:    testBuyer(),
	})
	if err != nil {
		t.Fatalf("CreateFromCheckout() error = %v", err)
	}
	reference := created.Orders[0].OrderNumber

	// The reference is only visible to its own marketplace.
	if _, err := repo.FinalizeSuccess(context.Background(), marketplace.ID+1, reference); !errors.Is(err, models.ErrOrderNotFound) {
		t.Errorf("cross-tenant settlement should report not found, got %v", err)
	}
	if err := repo.MarkPaymentFailed(context.Background(), marketplace.ID+1, reference, "declined"); !errors.Is(err, models.ErrOrderNotFound) {
		t.Errorf("cross-tenant failure should report not found, got %v", err)
	}

	first, err := repo.FinalizeSuccess(context.Background(), marketplace.ID, reference)
	if err != nil {
		t.Fatalf("FinalizeSuccess() error = %v", err)
	}
	if first.AlreadyPaid {
		t.Error("first settlement should not report already paid")
	}

	replay, err := repo.FinalizeSuccess(context.Background(), marketplace.ID, reference)
	if err != nil {
		t.Fatalf("replayed FinalizeSuccess() error = %v", err)
	}
	if !replay.AlreadyPaid {
		t.Error("replayed settlement must be a no-op")
	}

	tickets, err := repo.GetTickets(context.Background(), created.Orders[0].ID)
	if err != nil {
		t.Fatalf("failed to load tickets: %v", err)
	}
	for _, ticket := range tickets {
		if ticket.Status != models.TicketValid {
			t.Errorf("ticket %s should be valid after settlement, got %s", ticket.Code, ticket.Status)
		}
	}
}

func TestSweepExpiredReleasesQuota(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	repo := NewOrderRepository(db)
	marketplaces := NewMarketplaceRepository(db)
	catalog := NewCatalogRepository(db)

	marketplace, err := marketplaces.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load marketplace: %v", err)
	}
	before, err := catalog.GetTicketType(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to load ticket type: %v", err)
	}

	if _, err := repo.CreateFromCheckout(context.Background(), CreateOrderParams{
		Marketplace: marketplace,
		Checkout:    seedCheckoutSession(1, 1, 5000),
		Customer:    testBuyer(),
	}); err != nil {
		t.Fatalf("CreateFromCheckout() error = %v", err)
	}

	// Sweeping as of a point past the hold cancels the fresh order.
	cancelled, err := repo.SweepExpired(context.Background(), time.Now().Add(models.CheckoutTTL+time.Minute))
	if err != nil {
		t.Fatalf("SweepExpired() error = %v", err)
	}
	if cancelled < 1 {
		t.Errorf("expected at least 1 cancelled order, got %d", cancelled)
	}

	after, err := catalog.GetTicketType(context.Background(), 1)
	if err != nil {
		t.Fatalf("failed to reload ticket type: %v", err)
	}
	if after.QuotaSold != before.QuotaSold {
		t.Errorf("quota_sold = %d, want %d after release", after.QuotaSold, before.QuotaSold)
	}
}
