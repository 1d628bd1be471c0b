package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/domain/catalogs/location"
	"mise/internal/infrastructure/storage/postgres"
)

const (
	branchTable        = "cat_branches"
	operatingUnitTable = "cat_operating_units"
	locationTable      = "cat_locations"
)

var locationColumns = []string{
	"id", "code", "name", "operating_unit_id", "kind",
	"is_active", "created_at", "updated_at",
}

// LocationRepo implements location.Repository over the branch → operating
// unit → location hierarchy.
type LocationRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewLocationRepo creates a new location repository.
func NewLocationRepo(txm *postgres.TxManager) *LocationRepo {
	return &LocationRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ location.Repository = (*LocationRepo)(nil)

// GetByID retrieves an active location.
func (r *LocationRepo) GetByID(ctx context.Context, locationID id.ID) (*location.InventoryLocation, error) {
	q := r.builder.Select(locationColumns...).
		From(locationTable).
		Where(squirrel.Eq{"id": locationID, "is_active": true}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var l location.InventoryLocation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("inventory location", locationID.String())
		}
		return nil, fmt.Errorf("get location: %w", err)
	}

	return &l, nil
}

// ListByOperatingUnit returns active locations of one operating unit.
func (r *LocationRepo) ListByOperatingUnit(ctx context.Context, operatingUnitID id.ID) ([]location.InventoryLocation, error) {
	q := r.builder.Select(locationColumns...).
		From(locationTable).
		Where(squirrel.Eq{"operating_unit_id": operatingUnitID, "is_active": true}).
		OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var locations []location.InventoryLocation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &locations, sql, args...); err != nil {
		return nil, fmt.Errorf("select locations: %w", err)
	}

	return locations, nil
}

// Create inserts a new location.
func (r *LocationRepo) Create(ctx context.Context, l *location.InventoryLocation) error {
	if err := l.Validate(ctx); err != nil {
		return err
	}

	q := r.builder.Insert(locationTable).
		Columns(locationColumns...).
		Values(
			l.ID, l.Code, l.Name, l.OperatingUnitID, l.Kind,
			l.IsActive, l.CreatedAt, l.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("inventory location", "code", l.Code).WithCause(err)
		}
		return fmt.Errorf("insert location: %w", err)
	}

	return nil
}

// CreateBranch inserts a new branch.
func (r *LocationRepo) CreateBranch(ctx context.Context, b *location.Branch) error {
	if err := b.Validate(ctx); err != nil {
		return err
	}

	q := r.builder.Insert(branchTable).
		Columns("id", "code", "name", "address", "is_active", "created_at", "updated_at").
		Values(b.ID, b.Code, b.Name, b.Address, b.IsActive, b.CreatedAt, b.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("branch", "code", b.Code).WithCause(err)
		}
		return fmt.Errorf("insert branch: %w", err)
	}

	return nil
}

// CreateOperatingUnit inserts a new operating unit.
func (r *LocationRepo) CreateOperatingUnit(ctx context.Context, o *location.OperatingUnit) error {
	if err := o.Validate(ctx); err != nil {
		return err
	}

	q := r.builder.Insert(operatingUnitTable).
		Columns("id", "code", "name", "branch_id", "is_active", "created_at", "updated_at").
		Values(o.ID, o.Code, o.Name, o.BranchID, o.IsActive, o.CreatedAt, o.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("operating unit", "code", o.Code).WithCause(err)
		}
		return fmt.Errorf("insert operating unit: %w", err)
	}

	return nil
}
