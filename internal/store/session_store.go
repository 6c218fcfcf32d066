package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tixmarket/internal/config"
	"tixmarket/internal/models"
)

// SessionStore keeps cart and checkout session blobs in Redis, addressed
// by opaque bearer tokens with a rolling TTL. No stronger identity binds a
// token to a requester; concurrent writers to one token are
// last-write-wins.
type SessionStore struct {
	client      *redis.Client
	cartTTL     time.Duration
	checkoutTTL time.Duration
}

func NewSessionStore(cfg config.RedisConfig, cartTTL, checkoutTTL time.Duration) *SessionStore {
	if cartTTL <= 0 {
		cartTTL = models.CartTTL
	}
	if checkoutTTL <= 0 {
		checkoutTTL = models.CheckoutTTL
	}
	return &SessionStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		cartTTL:     cartTTL,
		checkoutTTL: checkoutTTL,
	}
}

// NewSessionStoreWithClient is used by tests to inject a prepared client.
func NewSessionStoreWithClient(client *redis.Client, cartTTL, checkoutTTL time.Duration) *SessionStore {
	return &SessionStore{client: client, cartTTL: cartTTL, checkoutTTL: checkoutTTL}
}

func cartKey(token string) string  { return "session:" + token }
func checkoutKey(id string) string { return "session:" + id }

// PutCart writes the full cart blob and resets its TTL. Every cart
// mutation goes through here.
func (s *SessionStore) PutCart(ctx context.Context, cart *models.Cart) error {
	payload, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(cart.Token), payload, s.cartTTL).Err(); err != nil {
		return fmt.Errorf("failed to store cart: %w", err)
	}
	return nil
}

// GetCart loads a cart by token. Returns models.ErrCartNotFound when the
// token is unknown or the TTL elapsed.
func (s *SessionStore) GetCart(ctx context.Context, token string) (*models.Cart, error) {
	data, err := s.client.Get(ctx, cartKey(token)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, models.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart: %w", err)
	}
	return &cart, nil
}

// DeleteCart removes a cart. Deleting an absent cart is a no-op.
func (s *SessionStore) DeleteCart(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, cartKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// PutCheckout persists a checkout session for its 15-minute window.
func (s *SessionStore) PutCheckout(ctx context.Context, session *models.CheckoutSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout session: %w", err)
	}
	if err := s.client.Set(ctx, checkoutKey(session.ID), payload, s.checkoutTTL).Err(); err != nil {
		return fmt.Errorf("failed to store checkout session: %w", err)
	}
	return nil
}

// GetCheckout loads a checkout session without consuming it.
func (s *SessionStore) GetCheckout(ctx context.Context, id string) (*models.CheckoutSession, error) {
	data, err := s.client.Get(ctx, checkoutKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, models.ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}

	var session models.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	return &session, nil
}

// ConsumeCheckout atomically claims a checkout session via GETDEL. Exactly
// one concurrent caller wins; everyone else sees ErrCheckoutNotFound,
// which completion reports as expired. This is what makes a checkout id
// single-use.
func (s *SessionStore) ConsumeCheckout(ctx context.Context, id string) (*models.CheckoutSession, error) {
	data, err := s.client.GetDel(ctx, checkoutKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, models.ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("failed to consume checkout session: %w", err)
	}

	var session models.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}
	return &session, nil
}

// Close releases the underlying Redis client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}
