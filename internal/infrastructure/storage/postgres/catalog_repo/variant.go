package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/core/types"
	"mise/internal/domain/catalogs/variant"
	"mise/internal/infrastructure/storage/postgres"
)

const (
	itemTable    = "cat_items"
	variantTable = "cat_item_variants"
)

var variantColumns = []string{
	"id", "code", "name", "item_id", "sku", "base_uom_id",
	"last_unit_cost", "avg_unit_cost", "min_stock", "max_stock",
	"is_active", "created_at", "updated_at",
}

// VariantRepo implements variant.Repository.
type VariantRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewVariantRepo creates a new item variant repository.
func NewVariantRepo(txm *postgres.TxManager) *VariantRepo {
	return &VariantRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ variant.Repository = (*VariantRepo)(nil)

// GetByID retrieves an active variant.
func (r *VariantRepo) GetByID(ctx context.Context, variantID id.ID) (*variant.ItemVariant, error) {
	q := r.builder.Select(variantColumns...).
		From(variantTable).
		Where(squirrel.Eq{"id": variantID, "is_active": true}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var v variant.ItemVariant
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item variant", variantID.String())
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}

	return &v, nil
}

// GetForUpdate retrieves a variant with a row lock. The lock serializes
// concurrent cost recomputations against the same variant.
func (r *VariantRepo) GetForUpdate(ctx context.Context, variantID id.ID) (*variant.ItemVariant, error) {
	sql := `
		SELECT id, code, name, item_id, sku, base_uom_id,
			   last_unit_cost, avg_unit_cost, min_stock, max_stock,
			   is_active, created_at, updated_at
		FROM cat_item_variants
		WHERE id = $1 AND is_active
		FOR UPDATE
	`

	var v variant.ItemVariant
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &v, sql, variantID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item variant", variantID.String())
		}
		return nil, fmt.Errorf("get variant for update: %w", err)
	}

	return &v, nil
}

// UpdateCosts persists the costing engine's output.
func (r *VariantRepo) UpdateCosts(ctx context.Context, variantID id.ID, lastUnitCost, avgUnitCost types.Money) error {
	q := r.builder.Update(variantTable).
		Set("last_unit_cost", lastUnitCost).
		Set("avg_unit_cost", avgUnitCost).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": variantID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update costs: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("item variant", variantID.String())
	}

	return nil
}

// List returns active variants ordered by code.
func (r *VariantRepo) List(ctx context.Context) ([]variant.ItemVariant, error) {
	q := r.builder.Select(variantColumns...).
		From(variantTable).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var variants []variant.ItemVariant
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &variants, sql, args...); err != nil {
		return nil, fmt.Errorf("select variants: %w", err)
	}

	return variants, nil
}

// Create inserts a new variant.
func (r *VariantRepo) Create(ctx context.Context, v *variant.ItemVariant) error {
	if err := v.Validate(ctx); err != nil {
		return err
	}

	q := r.builder.Insert(variantTable).
		Columns(variantColumns...).
		Values(
			v.ID, v.Code, v.Name, v.ItemID, v.SKU, v.BaseUomID,
			v.LastUnitCost, v.AvgUnitCost, v.MinStock, v.MaxStock,
			v.IsActive, v.CreatedAt, v.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("item variant", "code", v.Code).WithCause(err)
		}
		return fmt.Errorf("insert variant: %w", err)
	}

	return nil
}

// CreateItem inserts a new item.
func (r *VariantRepo) CreateItem(ctx context.Context, it *variant.Item) error {
	if err := it.Validate(ctx); err != nil {
		return err
	}

	q := r.builder.Insert(itemTable).
		Columns("id", "code", "name", "category", "is_active", "created_at", "updated_at").
		Values(it.ID, it.Code, it.Name, it.Category, it.IsActive, it.CreatedAt, it.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("item", "code", it.Code).WithCause(err)
		}
		return fmt.Errorf("insert item: %w", err)
	}

	return nil
}
