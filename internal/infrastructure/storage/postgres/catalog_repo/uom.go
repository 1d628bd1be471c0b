// Package catalog_repo provides PostgreSQL implementations of the catalog
// repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/domain/catalogs/uom"
	"mise/internal/infrastructure/storage/postgres"
)

const uomTable = "cat_uoms"

var uomColumns = []string{
	"id", "code", "name", "symbol", "precision", "allow_fractional",
	"is_active", "created_at", "updated_at",
}

// UomRepo implements uom.Repository.
type UomRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewUomRepo creates a new unit repository.
func NewUomRepo(txm *postgres.TxManager) *UomRepo {
	return &UomRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ uom.Repository = (*UomRepo)(nil)

func (r *UomRepo) baseSelect() squirrel.SelectBuilder {
	return r.builder.Select(uomColumns...).From(uomTable)
}

// GetByID retrieves an active unit.
func (r *UomRepo) GetByID(ctx context.Context, uomID id.ID) (*uom.UnitOfMeasure, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": uomID, "is_active": true}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u uom.UnitOfMeasure
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("unit of measure", uomID.String())
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}

	return &u, nil
}

// FindBySymbol retrieves an active unit by symbol.
func (r *UomRepo) FindBySymbol(ctx context.Context, symbol string) (*uom.UnitOfMeasure, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"symbol": symbol, "is_active": true}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u uom.UnitOfMeasure
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("unit of measure", symbol)
		}
		return nil, fmt.Errorf("find by symbol: %w", err)
	}

	return &u, nil
}

// List returns all active units ordered by code.
func (r *UomRepo) List(ctx context.Context) ([]uom.UnitOfMeasure, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var units []uom.UnitOfMeasure
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &units, sql, args...); err != nil {
		return nil, fmt.Errorf("select units: %w", err)
	}

	return units, nil
}

// Create inserts a new unit.
func (r *UomRepo) Create(ctx context.Context, u *uom.UnitOfMeasure) error {
	if err := u.Validate(ctx); err != nil {
		return err
	}

	q := r.builder.Insert(uomTable).
		Columns(uomColumns...).
		Values(
			u.ID, u.Code, u.Name, u.Symbol, u.Precision, u.AllowFractional,
			u.IsActive, u.CreatedAt, u.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("unit of measure", "code", u.Code).WithCause(err)
		}
		return fmt.Errorf("insert unit: %w", err)
	}

	return nil
}
