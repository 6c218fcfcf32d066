package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"tixmarket/internal/models"
)

func setupTestStore(t *testing.T) *SessionStore {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Store tests require TEST_REDIS_ADDR")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 9})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Failed to ping test redis: %v", err)
	}
	return NewSessionStoreWithClient(client, time.Minute, time.Minute)
}

func TestCartRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	cart := &models.Cart{
		Token:         "cart_store_test",
		MarketplaceID: 1,
		Currency:      "RON",
		Items: []models.CartItem{
			{TicketTypeID: 1, EventID: 1, Quantity: 2, UnitPrice: 5000},
		},
	}
	if err := s.PutCart(context.Background(), cart); err != nil {
		t.Fatalf("PutCart() error = %v", err)
	}

	loaded, err := s.GetCart(context.Background(), cart.Token)
	if err != nil {
		t.Fatalf("GetCart() error = %v", err)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].Quantity != 2 {
		t.Errorf("loaded cart items = %v, want the stored line back", loaded.Items)
	}

	if err := s.DeleteCart(context.Background(), cart.Token); err != nil {
		t.Fatalf("DeleteCart() error = %v", err)
	}
	if _, err := s.GetCart(context.Background(), cart.Token); !errors.Is(err, models.ErrCartNotFound) {
		t.Errorf("deleted cart should be not found, got %v", err)
	}

	// Deleting again is a no-op.
	if err := s.DeleteCart(context.Background(), cart.Token); err != nil {
		t.Errorf("second DeleteCart() error = %v", err)
	}
}

func TestConsumeCheckoutIsSingleUse(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	session := &models.CheckoutSession{
		ID:            "checkout_store_test",
		CartToken:     "cart_store_test",
		MarketplaceID: 1,
		Currency:      "RON",
		ExpiresAt:     time.Now().Add(time.Minute),
	}
	if err := s.PutCheckout(context.Background(), session); err != nil {
		t.Fatalf("PutCheckout() error = %v", err)
	}

	// A plain read leaves the session in place.
	if _, err := s.GetCheckout(context.Background(), session.ID); err != nil {
		t.Fatalf("GetCheckout() error = %v", err)
	}

	claimed, err := s.ConsumeCheckout(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ConsumeCheckout() error = %v", err)
	}
	if claimed.CartToken != session.CartToken {
		t.Errorf("claimed cart token = %s, want %s", claimed.CartToken, session.CartToken)
	}

	if _, err := s.ConsumeCheckout(context.Background(), session.ID); !errors.Is(err, models.ErrCheckoutNotFound) {
		t.Errorf("second consume should be not found, got %v", err)
	}
}
