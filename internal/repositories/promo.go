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

// PromoRepository handles promo code data operations
type PromoRepository struct {
	db *pgxpool.Pool
}

// NewPromoRepository creates a new promo repository
func NewPromoRepository(db *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{db: db}
}

const promoColumns = `id, marketplace_id, event_id, code, discount_type, discount_value, max_discount, min_purchase, min_tickets, max_uses, times_used, active, valid_from, valid_until, created_at`

func scanPromo(row pgx.Row) (*models.PromoCode, error) {
	p := &models.PromoCode{}
	err := row.Scan(&p.ID, &p.MarketplaceID, &p.EventID, &p.Code, &p.DiscountType,
		&p.DiscountValue, &p.MaxDiscount, &p.MinPurchase, &p.MinTickets,
		&p.MaxUses, &p.TimesUsed, &p.Active, &p.ValidFrom, &p.ValidUntil, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByCode retrieves a promo code by marketplace scope and code. Codes are
// matched case-insensitively.
func (r *PromoRepository) GetByCode(ctx context.Context, marketplaceID int, code string) (*models.PromoCode, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE marketplace_id = $1 AND UPPER(code) = $2`,
		marketplaceID, strings.ToUpper(strings.TrimSpace(code)))
	p, err := scanPromo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPromoNotFound
		}
		return nil, fmt.Errorf("failed to get promo code: %w", err)
	}
	return p, nil
}

// incrementPromoUsageTx bumps times_used within the order transaction. The
// guarded WHERE keeps a capped code from sliding past its limit when two
// checkouts race; losing the race fails the whole order transaction.
func incrementPromoUsageTx(ctx context.Context, tx pgx.Tx, promoID int) error {
	cmd, err := tx.Exec(ctx, `
		UPDATE promo_codes SET times_used = times_used + 1
		WHERE id = $1 AND active AND (max_uses = 0 OR times_used < max_uses)`,
		promoID)
	if err != nil {
		return fmt.Errorf("failed to increment promo usage: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return &models.ValidationError{Field: "promo_code", Message: "promo code is no longer available"}
	}
	return nil
}
