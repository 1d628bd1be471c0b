package ledger

import (
	"context"
	"time"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/core/tx"
	"mise/internal/core/types"
	"mise/internal/domain/catalogs/location"
	"mise/internal/domain/catalogs/uom"
	"mise/internal/domain/catalogs/variant"
	"mise/internal/domain/conversion"
	"mise/internal/domain/costing"
	"mise/internal/domain/stock"
	"mise/pkg/logger"
)

const numberPrefix = "MOV"

// Service posts stock movements. Every Register* operation runs as one
// transaction: resolve references, convert to base units, write the
// movement, mutate the balance, and (on priced entries) update the
// variant's costs. Any failure rolls back all of it.
type Service struct {
	txm       tx.Manager
	movements Repository
	balances  stock.Repository
	variants  variant.Repository
	locations location.Repository
	uoms      uom.Repository
	resolver  *conversion.Resolver
	numbers   NumberGenerator
	journal   Journal
	recorder  Recorder
}

// Deps bundles the service dependencies.
type Deps struct {
	TxManager tx.Manager
	Movements Repository
	Balances  stock.Repository
	Variants  variant.Repository
	Locations location.Repository
	Uoms      uom.Repository
	Resolver  *conversion.Resolver
	Numbers   NumberGenerator
	Journal   Journal
	Recorder  Recorder
}

// NewService creates the ledger service. Journal and Recorder are optional.
func NewService(d Deps) *Service {
	if d.Recorder == nil {
		d.Recorder = NopRecorder{}
	}
	return &Service{
		txm:       d.TxManager,
		movements: d.Movements,
		balances:  d.Balances,
		variants:  d.Variants,
		locations: d.Locations,
		uoms:      d.Uoms,
		resolver:  d.Resolver,
		numbers:   d.Numbers,
		journal:   d.Journal,
		recorder:  d.Recorder,
	}
}

// OpeningBalanceInput carries the caller-supplied values for an opening
// balance entry. Qty is in the entry UoM; UnitCost, when given, is per entry
// UoM unit.
type OpeningBalanceInput struct {
	LocationID id.ID
	VariantID  id.ID
	Qty        types.Quantity
	EntryUomID id.ID
	UnitCost   *types.Money

	UserID    *id.ID
	Reference string
	Notes     string
}

// RegisterOpeningBalance posts an inbound OPENING_BALANCE movement and
// increments the balance, creating it when absent. When a positive cost is
// supplied the variant's average and last costs are recomputed under a row
// lock.
func (s *Service) RegisterOpeningBalance(ctx context.Context, in OpeningBalanceInput) (*Movement, error) {
	if !in.Qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("qty", in.Qty.String())
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost cannot be negative").
			WithDetail("unitCost", in.UnitCost.String())
	}

	var posted *Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		loc, v, entryUom, err := s.resolveRefs(ctx, in.LocationID, in.VariantID, in.EntryUomID)
		if err != nil {
			return err
		}

		factor, err := s.resolver.Resolve(ctx, entryUom.ID, v.BaseUomID)
		if err != nil {
			return err
		}

		baseQty := types.NewQuantityFromDecimal(in.Qty.Decimal().Mul(factor.Value))
		if !baseQty.IsPositive() {
			return apperror.NewValidation("quantity converts to zero in the base unit").
				WithDetail("qty", in.Qty.String()).
				WithDetail("factor", factor.Value.String())
		}

		var baseCost *types.Money
		if in.UnitCost != nil && !factor.Value.IsZero() {
			c := types.RoundCost(in.UnitCost.DivRound(factor.Value, types.CostScale))
			baseCost = &c
		}

		m := &Movement{
			ID:            id.New(),
			ToLocationID:  &loc.ID,
			ItemVariantID: v.ID,
			Reason:        ReasonOpeningBalance,
			Status:        StatusPosted,
			Qty:           baseQty,
			Meta: Meta{
				OriginalQty:      in.Qty,
				OriginalUomID:    entryUom.ID,
				ConversionFactor: factor.Value,
				OriginalUnitCost: in.UnitCost,
			},
			Reference: in.Reference,
			Notes:     in.Notes,
			CreatedBy: in.UserID,
			CreatedAt: time.Now(),
		}

		line := MovementLine{
			ID:               id.New(),
			MovementID:       m.ID,
			LineNo:           1,
			UomID:            entryUom.ID,
			Qty:              in.Qty,
			BaseQty:          baseQty,
			ConversionFactor: factor.Value,
			UnitCost:         baseCost,
		}
		if baseCost != nil {
			total := types.RoundCost(baseQty.Decimal().Mul(*baseCost))
			line.LineTotal = &total
		}
		m.Lines = []MovementLine{line}

		if err := s.post(ctx, m); err != nil {
			return err
		}

		newOnHand, err := s.balances.AddOnHand(ctx, loc.ID, v.ID, baseQty)
		if err != nil {
			return err
		}

		if baseCost != nil && baseCost.IsPositive() {
			if err := s.applyCosting(ctx, v.ID, newOnHand, baseQty, *baseCost); err != nil {
				return err
			}
		}

		m.Location = loc
		m.Variant = v
		posted = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.MovementPosted(ReasonOpeningBalance)
	logger.Info(ctx, "opening balance posted",
		"number", posted.Number,
		"location_id", in.LocationID,
		"variant_id", in.VariantID,
		"base_qty", posted.Qty,
	)
	return posted, nil
}

// StockOutInput carries the caller-supplied values for an outbound movement.
// Qty is in the transaction UoM; SalePrice, when given, is per transaction
// UoM unit and only meaningful for SALE.
type StockOutInput struct {
	LocationID       id.ID
	VariantID        id.ID
	Qty              types.Quantity
	TransactionUomID id.ID
	Reason           Reason
	SalePrice        *types.Money

	UserID    *id.ID
	Reference string
	Notes     string
}

// RegisterStockOut posts an outbound SALE or CONSUMPTION movement. The
// balance row is read with a row lock so the availability check and the
// decrement see the same state under concurrent postings.
func (s *Service) RegisterStockOut(ctx context.Context, in StockOutInput) (*Movement, error) {
	if in.Reason != ReasonSale && in.Reason != ReasonConsumption {
		return nil, apperror.NewInvalidReason(string(in.Reason), stockOutReasons)
	}
	if !in.Qty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("qty", in.Qty.String())
	}
	if in.SalePrice != nil {
		if in.Reason != ReasonSale {
			return nil, apperror.NewValidation("sale price is only valid for SALE movements").
				WithDetail("reason", string(in.Reason))
		}
		if in.SalePrice.IsNegative() {
			return nil, apperror.NewValidation("sale price cannot be negative").
				WithDetail("salePrice", in.SalePrice.String())
		}
	}

	var posted *Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		loc, v, txnUom, err := s.resolveRefs(ctx, in.LocationID, in.VariantID, in.TransactionUomID)
		if err != nil {
			return err
		}

		factor, err := s.resolver.Resolve(ctx, txnUom.ID, v.BaseUomID)
		if err != nil {
			return err
		}
		baseQty := types.NewQuantityFromDecimal(in.Qty.Decimal().Mul(factor.Value))

		if _, err := s.lockSufficient(ctx, loc.ID, v.ID, baseQty); err != nil {
			return err
		}

		unitCost := types.RoundCost(v.AvgUnitCost)
		lineTotal := types.RoundCost(baseQty.Decimal().Mul(unitCost))

		line := MovementLine{
			ID:               id.New(),
			LineNo:           1,
			UomID:            txnUom.ID,
			Qty:              in.Qty,
			BaseQty:          baseQty,
			ConversionFactor: factor.Value,
			UnitCost:         &unitCost,
			LineTotal:        &lineTotal,
		}

		if in.Reason == ReasonSale && in.SalePrice != nil {
			saleTotal := types.RoundCost(in.Qty.Decimal().Mul(*in.SalePrice))
			salePriceBase := in.SalePrice.DivRound(factor.Value, types.CostScale)
			margin := types.RoundCost(salePriceBase.Sub(unitCost))
			profit := types.RoundCost(baseQty.Decimal().Mul(margin))

			line.SalePrice = in.SalePrice
			line.SaleTotal = &saleTotal
			line.ProfitMargin = &margin
			line.ProfitTotal = &profit
		}

		m := &Movement{
			ID:             id.New(),
			FromLocationID: &loc.ID,
			ItemVariantID:  v.ID,
			Reason:         in.Reason,
			Status:         StatusPosted,
			Qty:            baseQty,
			Meta: Meta{
				OriginalQty:      in.Qty,
				OriginalUomID:    txnUom.ID,
				ConversionFactor: factor.Value,
				OriginalPrice:    in.SalePrice,
			},
			Reference: in.Reference,
			Notes:     in.Notes,
			CreatedBy: in.UserID,
			CreatedAt: time.Now(),
		}
		line.MovementID = m.ID
		m.Lines = []MovementLine{line}

		if err := s.post(ctx, m); err != nil {
			return err
		}

		if err := s.balances.SubtractOnHand(ctx, loc.ID, v.ID, baseQty); err != nil {
			return err
		}

		m.Location = loc
		m.Variant = v
		posted = m
		return nil
	})
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok {
			switch appErr.Code {
			case apperror.CodeInsufficientStock, apperror.CodeNoStockRecord:
				s.recorder.StockOutRejected(appErr.Code)
			}
		}
		return nil, err
	}

	s.recorder.MovementPosted(in.Reason)
	logger.Info(ctx, "stock out posted",
		"number", posted.Number,
		"reason", in.Reason,
		"location_id", in.LocationID,
		"variant_id", in.VariantID,
		"base_qty", posted.Qty,
	)
	return posted, nil
}

// TransferInput moves stock between two locations of the same variant.
type TransferInput struct {
	FromLocationID id.ID
	ToLocationID   id.ID
	VariantID      id.ID
	Qty            types.Quantity
	UomID          id.ID

	UserID    *id.ID
	Reference string
	Notes     string
}

// RegisterTransfer posts a linked pair of TRANSFER movements: an exit at the
// source and an entry at the destination, in one transaction. The entry
// references the exit so the pair can be reassembled. Costs are untouched;
// stock moves at the variant's current average cost.
func (s *Service) RegisterTransfer(ctx context.Context, in TransferInput) (*Movement, *Movement, error) {
	if in.FromLocationID == in.ToLocationID {
		return nil, nil, apperror.NewValidation("source and destination must differ").
			WithDetail("fromLocationId", in.FromLocationID.String())
	}
	if !in.Qty.IsPositive() {
		return nil, nil, apperror.NewValidation("quantity must be positive").
			WithDetail("qty", in.Qty.String())
	}

	var exit, entry *Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		src, v, txnUom, err := s.resolveRefs(ctx, in.FromLocationID, in.VariantID, in.UomID)
		if err != nil {
			return err
		}
		dst, err := s.locations.GetByID(ctx, in.ToLocationID)
		if err != nil {
			return err
		}

		factor, err := s.resolver.Resolve(ctx, txnUom.ID, v.BaseUomID)
		if err != nil {
			return err
		}
		baseQty := types.NewQuantityFromDecimal(in.Qty.Decimal().Mul(factor.Value))

		if _, err := s.lockSufficient(ctx, src.ID, v.ID, baseQty); err != nil {
			return err
		}

		unitCost := types.RoundCost(v.AvgUnitCost)
		lineTotal := types.RoundCost(baseQty.Decimal().Mul(unitCost))
		meta := Meta{
			OriginalQty:      in.Qty,
			OriginalUomID:    txnUom.ID,
			ConversionFactor: factor.Value,
		}
		now := time.Now()

		exit = &Movement{
			ID:             id.New(),
			FromLocationID: &src.ID,
			ItemVariantID:  v.ID,
			Reason:         ReasonTransfer,
			Status:         StatusPosted,
			Qty:            baseQty,
			Meta:           meta,
			Reference:      in.Reference,
			Notes:          in.Notes,
			CreatedBy:      in.UserID,
			CreatedAt:      now,
		}
		exit.Lines = []MovementLine{{
			ID:               id.New(),
			MovementID:       exit.ID,
			LineNo:           1,
			UomID:            txnUom.ID,
			Qty:              in.Qty,
			BaseQty:          baseQty,
			ConversionFactor: factor.Value,
			UnitCost:         &unitCost,
			LineTotal:        &lineTotal,
		}}

		entry = &Movement{
			ID:            id.New(),
			ToLocationID:  &dst.ID,
			ItemVariantID: v.ID,
			Reason:        ReasonTransfer,
			Status:        StatusPosted,
			Qty:           baseQty,
			Meta:          meta,
			Related:       &RelatedRef{Kind: "movement", ID: exit.ID},
			Reference:     in.Reference,
			Notes:         in.Notes,
			CreatedBy:     in.UserID,
			CreatedAt:     now,
		}
		entry.Lines = []MovementLine{{
			ID:               id.New(),
			MovementID:       entry.ID,
			LineNo:           1,
			UomID:            txnUom.ID,
			Qty:              in.Qty,
			BaseQty:          baseQty,
			ConversionFactor: factor.Value,
			UnitCost:         &unitCost,
			LineTotal:        &lineTotal,
		}}

		if err := s.post(ctx, exit); err != nil {
			return err
		}
		if err := s.balances.SubtractOnHand(ctx, src.ID, v.ID, baseQty); err != nil {
			return err
		}
		if err := s.post(ctx, entry); err != nil {
			return err
		}
		if _, err := s.balances.AddOnHand(ctx, dst.ID, v.ID, baseQty); err != nil {
			return err
		}

		exit.Location, exit.Variant = src, v
		entry.Location, entry.Variant = dst, v
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.recorder.MovementPosted(ReasonTransfer)
	logger.Info(ctx, "transfer posted",
		"exit_number", exit.Number,
		"entry_number", entry.Number,
		"variant_id", in.VariantID,
		"base_qty", exit.Qty,
	)
	return exit, entry, nil
}

// AdjustmentInput corrects a balance up or down. Qty is signed: positive
// follows the inbound path (optionally priced), negative the outbound path.
type AdjustmentInput struct {
	LocationID id.ID
	VariantID  id.ID
	Qty        types.Quantity
	UomID      id.ID
	UnitCost   *types.Money

	UserID    *id.ID
	Reference string
	Notes     string
}

// RegisterAdjustment posts an ADJUSTMENT movement. Positive quantities enter
// stock (running the costing engine when a positive cost is supplied);
// negative quantities leave stock under the same sufficiency rules as a
// stock out.
func (s *Service) RegisterAdjustment(ctx context.Context, in AdjustmentInput) (*Movement, error) {
	if in.Qty.IsZero() {
		return nil, apperror.NewValidation("adjustment quantity cannot be zero")
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return nil, apperror.NewValidation("unit cost cannot be negative").
			WithDetail("unitCost", in.UnitCost.String())
	}
	if in.Qty.IsNegative() && in.UnitCost != nil {
		return nil, apperror.NewValidation("unit cost is only valid for positive adjustments")
	}

	inbound := in.Qty.IsPositive()
	absQty := in.Qty.Abs()

	var posted *Movement
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		loc, v, txnUom, err := s.resolveRefs(ctx, in.LocationID, in.VariantID, in.UomID)
		if err != nil {
			return err
		}

		factor, err := s.resolver.Resolve(ctx, txnUom.ID, v.BaseUomID)
		if err != nil {
			return err
		}
		baseQty := types.NewQuantityFromDecimal(absQty.Decimal().Mul(factor.Value))
		if !baseQty.IsPositive() {
			return apperror.NewValidation("quantity converts to zero in the base unit").
				WithDetail("qty", absQty.String()).
				WithDetail("factor", factor.Value.String())
		}

		var baseCost *types.Money
		if inbound && in.UnitCost != nil && !factor.Value.IsZero() {
			c := types.RoundCost(in.UnitCost.DivRound(factor.Value, types.CostScale))
			baseCost = &c
		}
		if !inbound {
			c := types.RoundCost(v.AvgUnitCost)
			baseCost = &c
		}

		m := &Movement{
			ID:            id.New(),
			ItemVariantID: v.ID,
			Reason:        ReasonAdjustment,
			Status:        StatusPosted,
			Qty:           baseQty,
			Meta: Meta{
				OriginalQty:      in.Qty,
				OriginalUomID:    txnUom.ID,
				ConversionFactor: factor.Value,
				OriginalUnitCost: in.UnitCost,
			},
			Reference: in.Reference,
			Notes:     in.Notes,
			CreatedBy: in.UserID,
			CreatedAt: time.Now(),
		}
		if inbound {
			m.ToLocationID = &loc.ID
		} else {
			m.FromLocationID = &loc.ID
		}

		line := MovementLine{
			ID:               id.New(),
			MovementID:       m.ID,
			LineNo:           1,
			UomID:            txnUom.ID,
			Qty:              absQty,
			BaseQty:          baseQty,
			ConversionFactor: factor.Value,
			UnitCost:         baseCost,
		}
		if baseCost != nil {
			total := types.RoundCost(baseQty.Decimal().Mul(*baseCost))
			line.LineTotal = &total
		}
		m.Lines = []MovementLine{line}

		if !inbound {
			if _, err := s.lockSufficient(ctx, loc.ID, v.ID, baseQty); err != nil {
				return err
			}
		}

		if err := s.post(ctx, m); err != nil {
			return err
		}

		if inbound {
			newOnHand, err := s.balances.AddOnHand(ctx, loc.ID, v.ID, baseQty)
			if err != nil {
				return err
			}
			if baseCost != nil && baseCost.IsPositive() {
				if err := s.applyCosting(ctx, v.ID, newOnHand, baseQty, *baseCost); err != nil {
					return err
				}
			}
		} else {
			if err := s.balances.SubtractOnHand(ctx, loc.ID, v.ID, baseQty); err != nil {
				return err
			}
		}

		m.Location = loc
		m.Variant = v
		posted = m
		return nil
	})
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok {
			switch appErr.Code {
			case apperror.CodeInsufficientStock, apperror.CodeNoStockRecord:
				s.recorder.StockOutRejected(appErr.Code)
			}
		}
		return nil, err
	}

	s.recorder.MovementPosted(ReasonAdjustment)
	logger.Info(ctx, "adjustment posted",
		"number", posted.Number,
		"location_id", in.LocationID,
		"variant_id", in.VariantID,
		"qty", in.Qty,
	)
	return posted, nil
}

// GetMovement loads one movement with its lines.
func (s *Service) GetMovement(ctx context.Context, movementID id.ID) (*Movement, error) {
	return s.movements.GetByID(ctx, movementID)
}

// ListMovements returns movements matching the filter.
func (s *Service) ListMovements(ctx context.Context, f Filter) ([]Movement, error) {
	return s.movements.List(ctx, f)
}

// resolveRefs loads the three catalog references every operation needs.
func (s *Service) resolveRefs(ctx context.Context, locationID, variantID, uomID id.ID) (*location.InventoryLocation, *variant.ItemVariant, *uom.UnitOfMeasure, error) {
	loc, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return nil, nil, nil, err
	}
	v, err := s.variants.GetByID(ctx, variantID)
	if err != nil {
		return nil, nil, nil, err
	}
	u, err := s.uoms.GetByID(ctx, uomID)
	if err != nil {
		return nil, nil, nil, err
	}
	return loc, v, u, nil
}

// lockSufficient pins the balance row and verifies it can cover baseQty.
// The lock is held until the transaction ends, so the subsequent decrement
// sees the same row state.
func (s *Service) lockSufficient(ctx context.Context, locationID, variantID id.ID, baseQty types.Quantity) (*stock.Balance, error) {
	bal, found, err := s.balances.GetForUpdate(ctx, locationID, variantID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperror.NewNoStockRecord(locationID.String(), variantID.String())
	}
	if baseQty > bal.Available() {
		return nil, apperror.NewInsufficientStock(
			variantID.String(),
			bal.Available().String(),
			baseQty.String(),
		)
	}
	return bal, nil
}

// applyCosting recomputes the variant's costs after an inbound priced
// receipt. newOnHand already includes the incoming quantity; the engine
// reconstructs the prior stock from it. The variant row is locked so two
// concurrent receipts serialize their recomputations.
func (s *Service) applyCosting(ctx context.Context, variantID id.ID, newOnHand, baseQty types.Quantity, baseCost types.Money) error {
	locked, err := s.variants.GetForUpdate(ctx, variantID)
	if err != nil {
		return err
	}
	res := costing.UpdateWeightedAverage(costing.Input{
		OnHand:           newOnHand,
		AvgUnitCost:      locked.AvgUnitCost,
		IncomingQty:      baseQty,
		IncomingUnitCost: baseCost,
	})
	return s.variants.UpdateCosts(ctx, variantID, res.LastUnitCost, res.AvgUnitCost)
}

// post assigns the document number, validates the header, writes it and
// journals it.
func (s *Service) post(ctx context.Context, m *Movement) error {
	number, err := s.numbers.Next(ctx, numberPrefix)
	if err != nil {
		return err
	}
	m.Number = number

	if err := m.Validate(ctx); err != nil {
		return err
	}
	if err := s.movements.Create(ctx, m); err != nil {
		return err
	}
	if s.journal != nil {
		if err := s.journal.Record(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
