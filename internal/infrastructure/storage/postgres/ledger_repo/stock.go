package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/core/types"
	"mise/internal/domain/stock"
	"mise/internal/infrastructure/storage/postgres"
)

const balancesTable = "stock_balances"

var balanceColumns = []string{
	"id", "inventory_location_id", "item_variant_id",
	"on_hand", "reserved", "updated_at",
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock balance repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ stock.Repository = (*StockRepo)(nil)

// Get reads a balance without locking.
func (r *StockRepo) Get(ctx context.Context, locationID, variantID id.ID) (*stock.Balance, bool, error) {
	q := r.builder.Select(balanceColumns...).
		From(balancesTable).
		Where(squirrel.Eq{
			"inventory_location_id": locationID,
			"item_variant_id":       variantID,
		}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build query: %w", err)
	}

	var b stock.Balance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get balance: %w", err)
	}

	return &b, true, nil
}

// GetForUpdate reads a balance with a row lock. The lock is held until the
// surrounding transaction ends, which is what makes the sufficiency check
// before SubtractOnHand safe.
func (r *StockRepo) GetForUpdate(ctx context.Context, locationID, variantID id.ID) (*stock.Balance, bool, error) {
	sql := `
		SELECT id, inventory_location_id, item_variant_id,
			   on_hand, reserved, updated_at
		FROM stock_balances
		WHERE inventory_location_id = $1 AND item_variant_id = $2
		FOR UPDATE
	`

	var b stock.Balance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &b, sql, locationID, variantID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get balance for update: %w", err)
	}

	return &b, true, nil
}

// AddOnHand increments the balance, creating the row on first receipt, and
// returns the post-increment on-hand quantity.
func (r *StockRepo) AddOnHand(ctx context.Context, locationID, variantID id.ID, qty types.Quantity) (types.Quantity, error) {
	sql := `
		INSERT INTO stock_balances (id, inventory_location_id, item_variant_id, on_hand)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (inventory_location_id, item_variant_id)
		DO UPDATE SET on_hand = stock_balances.on_hand + EXCLUDED.on_hand,
					  updated_at = now()
		RETURNING on_hand
	`

	var onHand types.Quantity
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, id.New(), locationID, variantID, qty).Scan(&onHand); err != nil {
		return 0, fmt.Errorf("add on hand: %w", err)
	}

	return onHand, nil
}

// SubtractOnHand decrements a balance. The WHERE guard keeps on_hand from
// going negative even if a caller skipped the lock.
func (r *StockRepo) SubtractOnHand(ctx context.Context, locationID, variantID id.ID, qty types.Quantity) error {
	sql := `
		UPDATE stock_balances
		SET on_hand = on_hand - $3, updated_at = now()
		WHERE inventory_location_id = $1 AND item_variant_id = $2 AND on_hand >= $3
	`

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, locationID, variantID, qty)
	if err != nil {
		return fmt.Errorf("subtract on hand: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewInternal(fmt.Errorf("balance %s/%s missing or insufficient on decrement", locationID, variantID))
	}

	return nil
}

// ListByLocation returns all balances at one location.
func (r *StockRepo) ListByLocation(ctx context.Context, locationID id.ID) ([]stock.Balance, error) {
	q := r.builder.Select(balanceColumns...).
		From(balancesTable).
		Where(squirrel.Eq{"inventory_location_id": locationID}).
		OrderBy("item_variant_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}

	return balances, nil
}

// ListByVariant returns the balances of one variant across locations.
func (r *StockRepo) ListByVariant(ctx context.Context, variantID id.ID) ([]stock.Balance, error) {
	q := r.builder.Select(balanceColumns...).
		From(balancesTable).
		Where(squirrel.Eq{"item_variant_id": variantID}).
		OrderBy("inventory_location_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("select balances: %w", err)
	}

	return balances, nil
}
