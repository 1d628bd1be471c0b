package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/domain/conversion"
	"mise/internal/infrastructure/storage/postgres"
)

const conversionTable = "cat_uom_conversions"

var conversionColumns = []string{
	"id", "from_uom_id", "to_uom_id", "factor", "tolerance",
	"is_active", "created_at", "updated_at",
}

// ConversionRepo implements conversion.Repository.
type ConversionRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewConversionRepo creates a new conversion edge repository.
func NewConversionRepo(txm *postgres.TxManager) *ConversionRepo {
	return &ConversionRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ conversion.Repository = (*ConversionRepo)(nil)

// FindActive returns the active edge from → to, or nil when none exists.
func (r *ConversionRepo) FindActive(ctx context.Context, fromUomID, toUomID id.ID) (*conversion.Conversion, error) {
	q := r.builder.Select(conversionColumns...).
		From(conversionTable).
		Where(squirrel.Eq{
			"from_uom_id": fromUomID,
			"to_uom_id":   toUomID,
			"is_active":   true,
		}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c conversion.Conversion
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find conversion: %w", err)
	}

	return &c, nil
}

// List returns all active edges.
func (r *ConversionRepo) List(ctx context.Context) ([]conversion.Conversion, error) {
	q := r.builder.Select(conversionColumns...).
		From(conversionTable).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var edges []conversion.Conversion
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &edges, sql, args...); err != nil {
		return nil, fmt.Errorf("select conversions: %w", err)
	}

	return edges, nil
}

// Create inserts a new edge.
func (r *ConversionRepo) Create(ctx context.Context, c *conversion.Conversion) error {
	if err := c.Validate(ctx); err != nil {
		return err
	}

	q := r.builder.Insert(conversionTable).
		Columns(conversionColumns...).
		Values(
			c.ID, c.FromUomID, c.ToUomID, c.Factor, c.Tolerance,
			c.IsActive, c.CreatedAt, c.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("conversion", "unit pair", c.FromUomID.String()).WithCause(err)
		}
		return fmt.Errorf("insert conversion: %w", err)
	}

	return nil
}

// Deactivate soft-deletes an edge.
func (r *ConversionRepo) Deactivate(ctx context.Context, conversionID id.ID) error {
	q := r.builder.Update(conversionTable).
		Set("is_active", false).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": conversionID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("deactivate conversion: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("conversion", conversionID.String())
	}

	return nil
}
