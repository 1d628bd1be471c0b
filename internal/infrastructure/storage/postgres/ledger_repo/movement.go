// Package ledger_repo provides PostgreSQL implementations of the ledger
// repositories: movements and stock balances.
package ledger_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/core/types"
	"mise/internal/domain/ledger"
	"mise/internal/infrastructure/storage/postgres"
)

const (
	movementsTable     = "ledger_movements"
	movementLinesTable = "ledger_movement_lines"
)

var movementColumns = []string{
	"id", "number", "from_location_id", "to_location_id", "item_variant_id",
	"reason", "status", "qty", "meta", "related_kind", "related_id",
	"reference", "notes", "created_by", "created_at",
}

var lineColumns = []string{
	"id", "movement_id", "line_no", "uom_id", "qty", "base_qty",
	"conversion_factor", "unit_cost", "line_total",
	"sale_price", "sale_total", "profit_margin", "profit_total",
}

// movementRow is the scan target for the header; meta and the related tag
// are flattened to columns.
type movementRow struct {
	ID             id.ID           `db:"id"`
	Number         string          `db:"number"`
	FromLocationID *id.ID          `db:"from_location_id"`
	ToLocationID   *id.ID          `db:"to_location_id"`
	ItemVariantID  id.ID           `db:"item_variant_id"`
	Reason         string          `db:"reason"`
	Status         string          `db:"status"`
	Qty            types.Quantity  `db:"qty"`
	Meta           json.RawMessage `db:"meta"`
	RelatedKind    *string         `db:"related_kind"`
	RelatedID      *id.ID          `db:"related_id"`
	Reference      string          `db:"reference"`
	Notes          string          `db:"notes"`
	CreatedBy      *id.ID          `db:"created_by"`
	CreatedAt      time.Time       `db:"created_at"`
}

func (row *movementRow) toDomain() (*ledger.Movement, error) {
	m := &ledger.Movement{
		ID:             row.ID,
		Number:         row.Number,
		FromLocationID: row.FromLocationID,
		ToLocationID:   row.ToLocationID,
		ItemVariantID:  row.ItemVariantID,
		Reason:         ledger.Reason(row.Reason),
		Status:         ledger.Status(row.Status),
		Qty:            row.Qty,
		Reference:      row.Reference,
		Notes:          row.Notes,
		CreatedBy:      row.CreatedBy,
		CreatedAt:      row.CreatedAt,
	}
	if len(row.Meta) > 0 {
		if err := json.Unmarshal(row.Meta, &m.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta: %w", err)
		}
	}
	if row.RelatedKind != nil && row.RelatedID != nil {
		m.Related = &ledger.RelatedRef{Kind: *row.RelatedKind, ID: *row.RelatedID}
	}
	return m, nil
}

// MovementRepo implements ledger.Repository.
type MovementRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ ledger.Repository = (*MovementRepo)(nil)

// Create inserts the header and its lines. Lines go over the COPY protocol
// when a transaction is active.
func (r *MovementRepo) Create(ctx context.Context, m *ledger.Movement) error {
	meta, err := json.Marshal(m.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	var relatedKind *string
	var relatedID *id.ID
	if m.Related != nil {
		relatedKind = &m.Related.Kind
		relatedID = &m.Related.ID
	}

	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(
			m.ID, m.Number, m.FromLocationID, m.ToLocationID, m.ItemVariantID,
			string(m.Reason), string(m.Status), m.Qty, meta, relatedKind, relatedID,
			m.Reference, m.Notes, m.CreatedBy, m.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return r.insertLines(ctx, m.Lines)
}

func (r *MovementRepo) insertLines(ctx context.Context, lines []ledger.MovementLine) error {
	if len(lines) == 0 {
		return nil
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(lines))
		for _, l := range lines {
			rows = append(rows, []any{
				l.ID, l.MovementID, l.LineNo, l.UomID, l.Qty, l.BaseQty,
				l.ConversionFactor, moneyArg(l.UnitCost), moneyArg(l.LineTotal),
				moneyArg(l.SalePrice), moneyArg(l.SaleTotal),
				moneyArg(l.ProfitMargin), moneyArg(l.ProfitTotal),
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, movementLinesTable, lineColumns, rows); err != nil {
			return fmt.Errorf("copy lines: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(movementLinesTable).Columns(lineColumns...)
	for _, l := range lines {
		q = q.Values(
			l.ID, l.MovementID, l.LineNo, l.UomID, l.Qty, l.BaseQty,
			l.ConversionFactor, moneyArg(l.UnitCost), moneyArg(l.LineTotal),
			moneyArg(l.SalePrice), moneyArg(l.SaleTotal),
			moneyArg(l.ProfitMargin), moneyArg(l.ProfitTotal),
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// moneyArg passes NULL for absent optional money columns.
func moneyArg(m *types.Money) any {
	if m == nil {
		return nil
	}
	return *m
}

// GetByID loads a movement with its lines.
func (r *MovementRepo) GetByID(ctx context.Context, movementID id.ID) (*ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"id": movementID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row movementRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("movement", movementID.String())
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}

	m, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	lines, err := r.linesFor(ctx, []id.ID{movementID})
	if err != nil {
		return nil, err
	}
	m.Lines = lines[movementID]

	return m, nil
}

// List returns movements matching the filter, newest first, lines attached.
func (r *MovementRepo) List(ctx context.Context, f ledger.Filter) ([]ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).From(movementsTable)

	if !id.IsNil(f.LocationID) {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_location_id": f.LocationID},
			squirrel.Eq{"to_location_id": f.LocationID},
		})
	}
	if !id.IsNil(f.VariantID) {
		q = q.Where(squirrel.Eq{"item_variant_id": f.VariantID})
	}
	if f.Reason != "" {
		q = q.Where(squirrel.Eq{"reason": string(f.Reason)})
	}
	if !f.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"created_at": f.From})
	}
	if !f.To.IsZero() {
		q = q.Where(squirrel.Lt{"created_at": f.To})
	}

	q = q.OrderBy("created_at DESC", "number DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []movementRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]id.ID, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
	}
	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	movements := make([]ledger.Movement, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		m.Lines = lines[m.ID]
		movements = append(movements, *m)
	}

	return movements, nil
}

// lineRow is the scan target for lines; optional money columns come back as
// nullable decimals.
type lineRow struct {
	ID               id.ID               `db:"id"`
	MovementID       id.ID               `db:"movement_id"`
	LineNo           int32               `db:"line_no"`
	UomID            id.ID               `db:"uom_id"`
	Qty              types.Quantity      `db:"qty"`
	BaseQty          types.Quantity      `db:"base_qty"`
	ConversionFactor decimal.Decimal     `db:"conversion_factor"`
	UnitCost         decimal.NullDecimal `db:"unit_cost"`
	LineTotal        decimal.NullDecimal `db:"line_total"`
	SalePrice        decimal.NullDecimal `db:"sale_price"`
	SaleTotal        decimal.NullDecimal `db:"sale_total"`
	ProfitMargin     decimal.NullDecimal `db:"profit_margin"`
	ProfitTotal      decimal.NullDecimal `db:"profit_total"`
}

func nullMoney(d decimal.NullDecimal) *types.Money {
	if !d.Valid {
		return nil
	}
	m := d.Decimal
	return &m
}

func (row *lineRow) toDomain() ledger.MovementLine {
	return ledger.MovementLine{
		ID:               row.ID,
		MovementID:       row.MovementID,
		LineNo:           row.LineNo,
		UomID:            row.UomID,
		Qty:              row.Qty,
		BaseQty:          row.BaseQty,
		ConversionFactor: row.ConversionFactor,
		UnitCost:         nullMoney(row.UnitCost),
		LineTotal:        nullMoney(row.LineTotal),
		SalePrice:        nullMoney(row.SalePrice),
		SaleTotal:        nullMoney(row.SaleTotal),
		ProfitMargin:     nullMoney(row.ProfitMargin),
		ProfitTotal:      nullMoney(row.ProfitTotal),
	}
}

func (r *MovementRepo) linesFor(ctx context.Context, movementIDs []id.ID) (map[id.ID][]ledger.MovementLine, error) {
	q := r.builder.Select(lineColumns...).
		From(movementLinesTable).
		Where(squirrel.Eq{"movement_id": movementIDs}).
		OrderBy("movement_id", "line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []lineRow
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select lines: %w", err)
	}

	byMovement := make(map[id.ID][]ledger.MovementLine, len(movementIDs))
	for i := range rows {
		l := rows[i].toDomain()
		byMovement[l.MovementID] = append(byMovement[l.MovementID], l)
	}
	return byMovement, nil
}
