package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tixmarket/internal/models"
)

// CatalogRepository handles ticket type and event reads for the checkout
// path. Quota reads here are unlocked snapshots; the order transaction
// re-reads under row locks before committing a sale.
type CatalogRepository struct {
	db *pgxpool.Pool
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db}
}

const ticketTypeColumns = `id, event_id, organizer_id, marketplace_id, name, price, quota_total, quota_sold, quota_reserved, max_per_order, status, created_at`

func scanTicketType(row pgx.Row) (*models.TicketType, error) {
	tt := &models.TicketType{}
	err := row.Scan(&tt.ID, &tt.EventID, &tt.OrganizerID, &tt.MarketplaceID,
		&tt.Name, &tt.Price, &tt.QuotaTotal, &tt.QuotaSold, &tt.QuotaReserved,
		&tt.MaxPerOrder, &tt.Status, &tt.CreatedAt)
	if err != nil {
		return nil, err
	}
	return tt, nil
}

// GetTicketType retrieves a ticket type by id
func (r *CatalogRepository) GetTicketType(ctx context.Context, id int) (*models.TicketType, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = $1`, id)
	tt, err := scanTicketType(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "ticket type", ID: fmt.Sprintf("%d", id)}
		}
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}
	return tt, nil
}

// GetTicketTypes retrieves the given ticket types keyed by id. Missing ids
// are simply absent from the result; callers decide whether that is fatal.
func (r *CatalogRepository) GetTicketTypes(ctx context.Context, ids []int) (map[int]*models.TicketType, error) {
	if len(ids) == 0 {
		return map[int]*models.TicketType{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket types: %w", err)
	}
	defer rows.Close()

	types := make(map[int]*models.TicketType, len(ids))
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket type: %w", err)
		}
		types[tt.ID] = tt
	}
	return types, rows.Err()
}

// GetEvent retrieves an event by id
func (r *CatalogRepository) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, marketplace_id, organizer_id, title, starts_at, status, commission_rate, created_at
		 FROM events WHERE id = $1`, id)
	e := &models.Event{}
	err := row.Scan(&e.ID, &e.MarketplaceID, &e.OrganizerID, &e.Title,
		&e.StartsAt, &e.Status, &e.CommissionRate, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &models.NotFoundError{Resource: "event", ID: fmt.Sprintf("%d", id)}
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// GetEvents retrieves the given events keyed by id
func (r *CatalogRepository) GetEvents(ctx context.Context, ids []int) (map[int]*models.Event, error) {
	if len(ids) == 0 {
		return map[int]*models.Event{}, nil
	}
	rows, err := r.db.Query(ctx,
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
