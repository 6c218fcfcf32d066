package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tixmarket/internal/models"
)

// CustomerRepository handles customer data operations
type CustomerRepository struct {
	db *pgxpool.Pool
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByID retrieves a customer by id
func (r *CustomerRepository) GetByID(ctx context.Context, id int) (*models.Customer, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, marketplace_id, email, first_name, last_name, phone, password_hash, created_at, updated_at
		 FROM customers WHERE id = $1`, id)
	c := &models.Customer{}
	err := row.Scan(&c.ID, &c.MarketplaceID, &c.Email, &c.FirstName, &c.LastName,
		&c.Phone, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "customer", ID: fmt.Sprintf("%d", id)}
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// GetByEmail retrieves a customer by marketplace and email
func (r *CustomerRepository) GetByEmail(ctx context.Context, marketplaceID int, email string) (*models.Customer, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, marketplace_id, email, first_name, last_name, phone, password_hash, created_at, updated_at
		 FROM customers WHERE marketplace_id = $1 AND email = $2`,
		marketplaceID, normalizeEmail(email))
	c := &models.Customer{}
	err := row.Scan(&c.ID, &c.MarketplaceID, &c.Email, &c.FirstName, &c.LastName,
		&c.Phone, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "customer", ID: email}
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// upsertCustomerTx inserts or refreshes a customer within the order
// transaction, keyed by (marketplace, email). An existing password hash is
// never overwritten with an empty one.
func upsertCustomerTx(ctx context.Context, tx pgx.Tx, marketplaceID int, info *models.CustomerInfo, passwordHash string) (*models.Customer, error) {
	c := &models.Customer{}
	err := tx.QueryRow(ctx, `
		INSERT INTO customers (marketplace_id, email, first_name, last_name, phone, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (marketplace_id, email) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE customers.phone END,
			password_hash = CASE WHEN EXCLUDED.password_hash <> '' THEN EXCLUDED.password_hash ELSE customers.password_hash END,
			updated_at = now()
		RETURNING id, marketplace_id, email, first_name, last_name, phone, password_hash, created_at, updated_at`,
		marketplaceID, normalizeEmail(info.Email), strings.TrimSpace(info.FirstName),
		strings.TrimSpace(info.LastName), info.Phone, passwordHash).
		Scan(&c.ID, &c.MarketplaceID, &c.Email, &c.FirstName, &c.LastName,
			&c.Phone, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert customer: %w", err)
	}
	return c, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
