package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tixmarket/internal/models"
)

// MarketplaceRepository handles marketplace and organizer data operations
type MarketplaceRepository struct {
	db *pgxpool.Pool
}

// NewMarketplaceRepository creates a new marketplace repository
func NewMarketplaceRepository(db *pgxpool.Pool) *MarketplaceRepository {
	return &MarketplaceRepository{db: db}
}

const marketplaceColumns = `id, slug, name, currency, commission_rate, commission_mode, payment_processor, payment_config, created_at`

func scanMarketplace(row pgx.Row) (*models.Marketplace, error) {
	m := &models.Marketplace{}
	var config []byte
	err := row.Scan(&m.ID, &m.Slug, &m.Name, &m.Currency, &m.CommissionRate,
		&m.CommissionMode, &m.PaymentProcessor, &config, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &m.PaymentConfig); err != nil {
			return nil, fmt.Errorf("failed to decode payment config: %w", err)
		}
	}
	if m.PaymentConfig == nil {
		m.PaymentConfig = map[string]string{}
	}
	return m, nil
}

// GetBySlug retrieves a marketplace by its storefront slug
func (r *MarketplaceRepository) GetBySlug(ctx context.Context, slug string) (*models.Marketplace, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+marketplaceColumns+` FROM marketplaces WHERE slug = $1`, slug)
	m, err := scanMarketplace(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "marketplace", ID: slug}
		}
		return nil, fmt.Errorf("failed to get marketplace by slug: %w", err)
	}
	return m, nil
}

// GetByID retrieves a marketplace by id
func (r *MarketplaceRepository) GetByID(ctx context.Context, id int) (*models.Marketplace, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+marketplaceColumns+` FROM marketplaces WHERE id = $1`, id)
	m, err := scanMarketplace(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "marketplace", ID: fmt.Sprintf("%d", id)}
		}
		return nil, fmt.Errorf("failed to get marketplace: %w", err)
	}
	return m, nil
}

// GetOrganizer retrieves an organizer by id
func (r *MarketplaceRepository) GetOrganizer(ctx context.Context, id int) (*models.Organizer, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, marketplace_id, name, commission_rate, total_orders, total_gross, total_net, created_at
		 FROM organizers WHERE id = $1`, id)
	o := &models.Organizer{}
	err := row.Scan(&o.ID, &o.MarketplaceID, &o.Name, &o.CommissionRate,
		&o.TotalOrders, &o.TotalGross, &o.TotalNet, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "organizer", ID: fmt.Sprintf("%d", id)}
		}
		return nil, fmt.Errorf("failed to get organizer: %w", err)
	}
	return o, nil
}

// GetOrganizers retrieves the given organizers keyed by id
func (r *MarketplaceRepository) GetOrganizers(ctx context.Context, ids []int) (map[int]*models.Organizer, error) {
	if len(ids) == 0 {
		return map[int]*models.Organizer{}, nil
	}
	rows, err := r.db.Query(ctx,
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
