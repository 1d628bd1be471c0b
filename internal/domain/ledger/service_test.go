package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/core/types"
	"mise/internal/domain/catalogs/location"
	"mise/internal/domain/catalogs/uom"
	"mise/internal/domain/catalogs/variant"
	"mise/internal/domain/conversion"
	"mise/internal/domain/stock"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeMovements struct {
	created []*Movement
}

func (f *fakeMovements) Create(_ context.Context, m *Movement) error {
	f.created = append(f.created, m)
	return nil
}

func (f *fakeMovements) GetByID(_ context.Context, movementID id.ID) (*Movement, error) {
	for _, m := range f.created {
		if m.ID == movementID {
			return m, nil
		}
	}
	return nil, apperror.NewNotFound("movement", movementID.String())
}

func (f *fakeMovements) List(_ context.Context, _ Filter) ([]Movement, error) {
	out := make([]Movement, 0, len(f.created))
	for _, m := range f.created {
		out = append(out, *m)
	}
	return out, nil
}

type balanceKey struct {
	loc, variant id.ID
}

type fakeBalances struct {
	rows map[balanceKey]*stock.Balance
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{rows: make(map[balanceKey]*stock.Balance)}
}

func (f *fakeBalances) Get(_ context.Context, locID, varID id.ID) (*stock.Balance, bool, error) {
	b, ok := f.rows[balanceKey{locID, varID}]
	if !ok {
		return nil, false, nil
	}
	cp := *b
	return &cp, true, nil
}

func (f *fakeBalances) GetForUpdate(ctx context.Context, locID, varID id.ID) (*stock.Balance, bool, error) {
	return f.Get(ctx, locID, varID)
}

func (f *fakeBalances) AddOnHand(_ context.Context, locID, varID id.ID, qty types.Quantity) (types.Quantity, error) {
	key := balanceKey{locID, varID}
	b, ok := f.rows[key]
	if !ok {
		b = &stock.Balance{
			ID:                  id.New(),
			InventoryLocationID: locID,
			ItemVariantID:       varID,
		}
		f.rows[key] = b
	}
	b.OnHand += qty
	return b.OnHand, nil
}

func (f *fakeBalances) SubtractOnHand(_ context.Context, locID, varID id.ID, qty types.Quantity) error {
	b, ok := f.rows[balanceKey{locID, varID}]
	if !ok {
		return apperror.NewNoStockRecord(locID.String(), varID.String())
	}
	if b.OnHand < qty {
		return apperror.NewInsufficientStock(varID.String(), b.OnHand.String(), qty.String())
	}
	b.OnHand -= qty
	return nil
}

func (f *fakeBalances) ListByLocation(_ context.Context, locID id.ID) ([]stock.Balance, error) {
	var out []stock.Balance
	for k, b := range f.rows {
		if k.loc == locID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBalances) ListByVariant(_ context.Context, varID id.ID) ([]stock.Balance, error) {
	var out []stock.Balance
	for k, b := range f.rows {
		if k.variant == varID {
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakeVariants struct {
	rows map[id.ID]*variant.ItemVariant
}

func (f *fakeVariants) GetByID(_ context.Context, varID id.ID) (*variant.ItemVariant, error) {
	v, ok := f.rows[varID]
	if !ok || !v.IsActive {
		return nil, apperror.NewNotFound("item variant", varID.String())
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVariants) GetForUpdate(ctx context.Context, varID id.ID) (*variant.ItemVariant, error) {
	return f.GetByID(ctx, varID)
}

func (f *fakeVariants) UpdateCosts(_ context.Context, varID id.ID, last, avg types.Money) error {
	v, ok := f.rows[varID]
	if !ok {
		return apperror.NewNotFound("item variant", varID.String())
	}
	v.LastUnitCost = last
	v.AvgUnitCost = avg
	return nil
}

func (f *fakeVariants) List(_ context.Context) ([]variant.ItemVariant, error) { return nil, nil }

func (f *fakeVariants) Create(_ context.Context, v *variant.ItemVariant) error {
	f.rows[v.ID] = v
	return nil
}

func (f *fakeVariants) CreateItem(_ context.Context, _ *variant.Item) error { return nil }

type fakeLocations struct {
	rows map[id.ID]*location.InventoryLocation
}

func (f *fakeLocations) GetByID(_ context.Context, locID id.ID) (*location.InventoryLocation, error) {
	l, ok := f.rows[locID]
	if !ok || !l.IsActive {
		return nil, apperror.NewNotFound("inventory location", locID.String())
	}
	return l, nil
}

func (f *fakeLocations) ListByOperatingUnit(_ context.Context, _ id.ID) ([]location.InventoryLocation, error) {
	return nil, nil
}

func (f *fakeLocations) Create(_ context.Context, l *location.InventoryLocation) error {
	f.rows[l.ID] = l
	return nil
}

func (f *fakeLocations) CreateBranch(_ context.Context, _ *location.Branch) error {
	return nil
}

func (f *fakeLocations) CreateOperatingUnit(_ context.Context, _ *location.OperatingUnit) error {
	return nil
}

type fakeUoms struct {
	rows map[id.ID]*uom.UnitOfMeasure
}

func (f *fakeUoms) GetByID(_ context.Context, uomID id.ID) (*uom.UnitOfMeasure, error) {
	u, ok := f.rows[uomID]
	if !ok || !u.IsActive {
		return nil, apperror.NewNotFound("unit of measure", uomID.String())
	}
	return u, nil
}

func (f *fakeUoms) FindBySymbol(_ context.Context, _ string) (*uom.UnitOfMeasure, error) {
	return nil, nil
}

func (f *fakeUoms) List(_ context.Context) ([]uom.UnitOfMeasure, error) { return nil, nil }

func (f *fakeUoms) Create(_ context.Context, u *uom.UnitOfMeasure) error {
	f.rows[u.ID] = u
	return nil
}

type fakeEdges struct {
	edges []*conversion.Conversion
}

func (f *fakeEdges) FindActive(_ context.Context, fromUomID, toUomID id.ID) (*conversion.Conversion, error) {
	for _, e := range f.edges {
		if e.IsActive && e.FromUomID == fromUomID && e.ToUomID == toUomID {
			return e, nil
		}
	}
	return nil, nil
}

type fakeNumbers struct {
	n int
}

func (f *fakeNumbers) Next(_ context.Context, prefix string) (string, error) {
	f.n++
	return fmt.Sprintf("%s-2026-%05d", prefix, f.n), nil
}

// --- fixture ---

type fixture struct {
	svc       *Service
	movements *fakeMovements
	balances  *fakeBalances
	variants  *fakeVariants

	storage id.ID
	flourID id.ID
	kgID    id.ID
	grID    id.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	kg := uom.NewUnitOfMeasure("KG", "Kilogram", "kg")
	gr := uom.NewUnitOfMeasure("GR", "Gram", "g")

	loc := location.NewInventoryLocation("MAIN-STORE", "Main storeroom", id.New(), location.KindStorage)

	flour := variant.NewItemVariant("FLOUR-00", "Flour 00", "SKU-FLOUR-00", id.New(), kg.ID)

	uoms := &fakeUoms{rows: map[id.ID]*uom.UnitOfMeasure{kg.ID: kg, gr.ID: gr}}
	locations := &fakeLocations{rows: map[id.ID]*location.InventoryLocation{loc.ID: loc}}
	variants := &fakeVariants{rows: map[id.ID]*variant.ItemVariant{flour.ID: flour}}
	balances := newFakeBalances()
	movements := &fakeMovements{}

	edges := &fakeEdges{edges: []*conversion.Conversion{
		conversion.NewConversion(gr.ID, kg.ID, decimal.RequireFromString("0.001")),
	}}

	svc := NewService(Deps{
		TxManager: fakeTxManager{},
		Movements: movements,
		Balances:  balances,
		Variants:  variants,
		Locations: locations,
		Uoms:      uoms,
		Resolver:  conversion.NewResolver(edges),
		Numbers:   &fakeNumbers{},
	})

	return &fixture{
		svc:       svc,
		movements: movements,
		balances:  balances,
		variants:  variants,
		storage:   loc.ID,
		flourID:   flour.ID,
		kgID:      kg.ID,
		grID:      gr.ID,
	}
}

func (f *fixture) onHand(t *testing.T) types.Quantity {
	t.Helper()
	b, found, err := f.balances.Get(context.Background(), f.storage, f.flourID)
	require.NoError(t, err)
	if !found {
		return 0
	}
	return b.OnHand
}

func (f *fixture) flour() *variant.ItemVariant {
	return f.variants.rows[f.flourID]
}

func money(s string) *types.Money {
	m := types.MustMoney(s)
	return &m
}

// --- opening balance ---

func TestRegisterOpeningBalance_FirstReceipt(t *testing.T) {
	f := newFixture(t)

	m, err := f.svc.RegisterOpeningBalance(context.Background(), OpeningBalanceInput{
		LocationID: f.storage,
		VariantID:  f.flourID,
		Qty:        types.NewQuantityFromFloat64(50),
		EntryUomID: f.kgID,
		UnitCost:   money("125.50"),
	})
	require.NoError(t, err)

	assert.Equal(t, "50.0000", m.Qty.String())
	assert.Equal(t, StatusPosted, m.Status)
	assert.Equal(t, ReasonOpeningBalance, m.Reason)
	assert.Nil(t, m.FromLocationID)
	require.NotNil(t, m.ToLocationID)
	assert.Equal(t, f.storage, *m.ToLocationID)
	assert.Equal(t, "MOV-2026-00001", m.Number)

	assert.Equal(t, "50.0000", f.onHand(t).String())
	assert.Equal(t, "125.5", f.flour().AvgUnitCost.String())
	assert.Equal(t, "125.5", f.flour().LastUnitCost.String())
}

func TestRegisterOpeningBalance_ConvertsEntryUnit(t *testing.T) {
	f := newFixture(t)

	// 25000 GR at 0.15/GR: base qty 25 KG, base cost 150/KG.
	m, err := f.svc.RegisterOpeningBalance(context.Background(), OpeningBalanceInput{
		LocationID: f.storage,
		VariantID:  f.flourID,
		Qty:        types.NewQuantityFromFloat64(25000),
		EntryUomID: f.grID,
		UnitCost:   money("0.15"),
	})
	require.NoError(t, err)

	assert.Equal(t, "25.0000", m.Qty.String())
	require.Len(t, m.Lines, 1)
	line := m.Lines[0]
	assert.Equal(t, "25000.0000", line.Qty.String())
	assert.Equal(t, "25.0000", line.BaseQty.String())
	assert.Equal(t, "0.001", line.ConversionFactor.String())
	require.NotNil(t, line.UnitCost)
	assert.Equal(t, "150", line.UnitCost.String())

	assert.Equal(t, "25.0000", f.onHand(t).String())
	assert.Equal(t, "150", f.flour().AvgUnitCost.String())

	// The original request survives in the meta bag.
	assert.Equal(t, "25000.0000", m.Meta.OriginalQty.String())
	assert.Equal(t, f.grID, m.Meta.OriginalUomID)
	require.NotNil(t, m.Meta.OriginalUnitCost)
	assert.Equal(t, "0.15", m.Meta.OriginalUnitCost.String())
}

func TestRegisterOpeningBalance_BlendsAverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegisterOpeningBalance(ctx, OpeningBalanceInput{
		LocationID: f.storage, VariantID: f.flourID,
		Qty: types.NewQuantityFromFloat64(10), EntryUomID: f.kgID,
		UnitCost: money("100"),
	})
	require.NoError(t, err)

	_, err = f.svc.RegisterOpeningBalance(ctx, OpeningBalanceInput{
		LocationID: f.storage, VariantID: f.flourID,
		Qty: types.NewQuantityFromFloat64(20), EntryUomID: f.kgID,
		UnitCost: money("150"),
	})
	require.NoError(t, err)

	assert.Equal(t, "30.0000", f.onHand(t).String())
	assert.Equal(t, "133.3333", f.flour().AvgUnitCost.String())
	assert.Equal(t, "150", f.flour().LastUnitCost.String())
}

func TestRegisterOpeningBalance_NoCostSkipsCosting(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterOpeningBalance(context.Background(), OpeningBalanceInput{
		LocationID: f.storage, VariantID: f.flourID,
		Qty: types.NewQuantityFromFloat64(5), EntryUomID: f.kgID,
	})
	require.NoError(t, err)

	assert.Equal(t, "5.0000", f.onHand(t).String())
	assert.True(t, f.flour().AvgUnitCost.IsZero())
	assert.True(t, f.flour().LastUnitCost.IsZero())
}

func TestRegisterOpeningBalance_UnknownUnitPair(t *testing.T) {
	f := newFixture(t)

	// The unit exists in the catalog but has no edge to KG.
	pcs := uom.NewUnitOfMeasure("PCS", "Piece", "pcs")
	f.svc.uoms.(*fakeUoms).rows[pcs.ID] = pcs

	_, err := f.svc.RegisterOpeningBalance(context.Background(), OpeningBalanceInput{
		LocationID: f.storage, VariantID: f.flourID,
		Qty: types.NewQuantityFromFloat64(3), EntryUomID: pcs.ID,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConversionUnavailable, appErr.Code)
	assert.Equal(t, types.Quantity(0), f.onHand(t))
}

func TestRegisterOpeningBalance_UnknownLocation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterOpeningBalance(context.Background(), OpeningBalanceInput{
		LocationID: id.New(), VariantID: f.flourID,
		Qty: types.NewQuantityFromFloat64(1), EntryUomID: f.kgID,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

// --- stock out ---

func seedStock(t *testing.T, f *fixture, qty float64, avgCost string) {
	t.Helper()
	_, err := f.svc.RegisterOpeningBalance(context.Background(), OpeningBalanceInput{
		LocationID: f.storage, VariantID: f.flourID,
		Qty: types.NewQuantityFromFloat64(qty), EntryUomID: f.kgID,
		UnitCost: money(avgCost),
	})
	require.NoError(t, err)
}

func TestRegisterStockOut_SaleWithProfit(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 100, "50")

	m, err := f.svc.RegisterStockOut(context.Background(), StockOutInput{
		LocationID:       f.storage,
		VariantID:        f.flourID,
		Qty:              types.NewQuantityFromFloat64(10),
		TransactionUomID: f.kgID,
		Reason:           ReasonSale,
		SalePrice:        money("75"),
	})
	require.NoError(t, err)

	require.NotNil(t, m.FromLocationID)
	assert.Nil(t, m.ToLocationID)
	assert.Equal(t, "10.0000", m.Qty.String())

	require.Len(t, m.Lines, 1)
	line := m.Lines[0]
	require.NotNil(t, line.UnitCost)
	assert.Equal(t, "50", line.UnitCost.String())
	require.NotNil(t, line.SaleTotal)
	assert.Equal(t, "750", line.SaleTotal.String())
	require.NotNil(t, line.ProfitMargin)
	assert.Equal(t, "25", line.ProfitMargin.String())
	require.NotNil(t, line.ProfitTotal)
	assert.Equal(t, "250", line.ProfitTotal.String())

	assert.Equal(t, "90.0000", f.onHand(t).String())
	// Costs never move on the way out.
	assert.Equal(t, "50", f.flour().AvgUnitCost.String())
}

func TestRegisterStockOut_LossSaleAllowed(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 100, "50")

	m, err := f.svc.RegisterStockOut(context.Background(), StockOutInput{
		LocationID:       f.storage,
		VariantID:        f.flourID,
		Qty:              types.NewQuantityFromFloat64(10),
		TransactionUomID: f.kgID,
		Reason:           ReasonSale,
		SalePrice:        money("40"),
	})
	require.NoError(t, err)

	line := m.Lines[0]
	require.NotNil(t, line.ProfitMargin)
	assert.Equal(t, "-10", line.ProfitMargin.String())
	assert.Equal(t, "-100", line.ProfitTotal.String())
}

func TestRegisterStockOut_ConsumptionHasNoPricing(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 100, "50")

	m, err := f.svc.RegisterStockOut(context.Background(), StockOutInput{
		LocationID:       f.storage,
		VariantID:        f.flourID,
		Qty:              types.NewQuantityFromFloat64(4),
		TransactionUomID: f.kgID,
		Reason:           ReasonConsumption,
	})
	require.NoError(t, err)

	line := m.Lines[0]
	assert.Nil(t, line.SalePrice)
	assert.Nil(t, line.SaleTotal)
	assert.Nil(t, line.ProfitMargin)
	assert.Nil(t, line.ProfitTotal)
	require.NotNil(t, line.UnitCost)
	assert.Equal(t, "50", line.UnitCost.String())

	assert.Equal(t, "96.0000", f.onHand(t).String())
}

func TestRegisterStockOut_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 100, "50")

	_, err := f.svc.RegisterStockOut(context.Background(), StockOutInput{
		LocationID:       f.storage,
		VariantID:        f.flourID,
		Qty:              types.NewQuantityFromFloat64(150),
		TransactionUomID: f.kgID,
		Reason:           ReasonSale,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "100.0000", appErr.Details["available"])
	assert.Equal(t, "150.0000", appErr.Details["requested"])

	// Nothing moved.
	assert.Equal(t, "100.0000", f.onHand(t).String())
	assert.Len(t, f.movements.created, 1)
}

func TestRegisterStockOut_NoStockRecord(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterStockOut(context.Background(), StockOutInput{
		LocationID:       f.storage,
		VariantID:        f.flourID,
		Qty:              types.NewQuantityFromFloat64(1),
		TransactionUomID: f.kgID,
		Reason:           ReasonConsumption,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNoStockRecord, appErr.Code)
}

func TestRegisterStockOut_InvalidReason(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 100, "50")

	for _, reason := range []Reason{ReasonOpeningBalance, ReasonTransfer, Reason("RESTOCK")} {
		_, err := f.svc.RegisterStockOut(context.Background(), StockOutInput{
			LocationID:       f.storage,
			VariantID:        f.flourID,
			Qty:              types.NewQuantityFromFloat64(1),
			TransactionUomID: f.kgID,
			Reason:           reason,
		})
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeInvalidReason, appErr.Code)
	}
	assert.Equal(t, "100.0000", f.onHand(t).String())
}

func TestRegisterStockOut_ReservedReducesAvailability(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 100, "50")
	f.balances.rows[balanceKey{f.storage, f.flourID}].Reserved = types.NewQuantityFromFloat64(40)

	_, err := f.svc.RegisterStockOut(context.Background(), StockOutInput{
		LocationID:       f.storage,
		VariantID:        f.flourID,
		Qty:              types.NewQuantityFromFloat64(70),
		TransactionUomID: f.kgID,
		Reason:           ReasonSale,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "60.0000", appErr.Details["available"])
}

func TestRegisterStockOut_TransactionUnitConverted(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 10, "2")

	// Sell 2500 GR: 2.5 KG in base terms.
	m, err := f.svc.RegisterStockOut(context.Background(), StockOutInput{
		LocationID:       f.storage,
		VariantID:        f.flourID,
		Qty:              types.NewQuantityFromFloat64(2500),
		TransactionUomID: f.grID,
		Reason:           ReasonSale,
		SalePrice:        money("0.005"),
	})
	require.NoError(t, err)

	assert.Equal(t, "2.5000", m.Qty.String())
	line := m.Lines[0]
	// 0.005/GR is 5/KG against an average of 2/KG.
	require.NotNil(t, line.ProfitMargin)
	assert.Equal(t, "3", line.ProfitMargin.String())
	assert.Equal(t, "7.5", line.ProfitTotal.String())
	assert.Equal(t, "7.5000", f.onHand(t).String())
}

// --- conservation ---

func TestLedger_Conservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	steps := []struct {
		in  float64
		out float64
	}{
		{in: 50}, {out: 12.5}, {in: 7.25}, {out: 30}, {in: 100}, {out: 0.0001},
	}

	var want types.Quantity
	for _, s := range steps {
		if s.in > 0 {
			_, err := f.svc.RegisterOpeningBalance(ctx, OpeningBalanceInput{
				LocationID: f.storage, VariantID: f.flourID,
				Qty: types.NewQuantityFromFloat64(s.in), EntryUomID: f.kgID,
			})
			require.NoError(t, err)
			want += types.NewQuantityFromFloat64(s.in)
		} else {
			_, err := f.svc.RegisterStockOut(ctx, StockOutInput{
				LocationID: f.storage, VariantID: f.flourID,
				Qty: types.NewQuantityFromFloat64(s.out), TransactionUomID: f.kgID,
				Reason: ReasonConsumption,
			})
			require.NoError(t, err)
			want -= types.NewQuantityFromFloat64(s.out)
		}
	}

	assert.Equal(t, want, f.onHand(t))
}

// --- transfer ---

func TestRegisterTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedStock(t, f, 100, "50")

	dst := location.NewInventoryLocation("KITCHEN", "Kitchen", id.New(), location.KindStorage)
	f.svc.locations.(*fakeLocations).rows[dst.ID] = dst

	exit, entry, err := f.svc.RegisterTransfer(ctx, TransferInput{
		FromLocationID: f.storage,
		ToLocationID:   dst.ID,
		VariantID:      f.flourID,
		Qty:            types.NewQuantityFromFloat64(30),
		UomID:          f.kgID,
	})
	require.NoError(t, err)

	require.NotNil(t, exit.FromLocationID)
	assert.Nil(t, exit.ToLocationID)
	require.NotNil(t, entry.ToLocationID)
	assert.Nil(t, entry.FromLocationID)
	require.NotNil(t, entry.Related)
	assert.Equal(t, exit.ID, entry.Related.ID)
	assert.Equal(t, "movement", entry.Related.Kind)

	assert.Equal(t, "70.0000", f.onHand(t).String())
	dstBal, found, err := f.balances.Get(ctx, dst.ID, f.flourID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "30.0000", dstBal.OnHand.String())

	// Transfers move stock at cost; the average is untouched.
	assert.Equal(t, "50", f.flour().AvgUnitCost.String())
}

func TestRegisterTransfer_InsufficientSource(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 10, "50")

	dst := location.NewInventoryLocation("KITCHEN", "Kitchen", id.New(), location.KindStorage)
	f.svc.locations.(*fakeLocations).rows[dst.ID] = dst

	_, _, err := f.svc.RegisterTransfer(context.Background(), TransferInput{
		FromLocationID: f.storage,
		ToLocationID:   dst.ID,
		VariantID:      f.flourID,
		Qty:            types.NewQuantityFromFloat64(11),
		UomID:          f.kgID,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, "10.0000", f.onHand(t).String())

	_, found, err := f.balances.Get(context.Background(), dst.ID, f.flourID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRegisterTransfer_SameLocationRejected(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.RegisterTransfer(context.Background(), TransferInput{
		FromLocationID: f.storage,
		ToLocationID:   f.storage,
		VariantID:      f.flourID,
		Qty:            types.NewQuantityFromFloat64(1),
		UomID:          f.kgID,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

// --- adjustment ---

func TestRegisterAdjustment_PositiveRunsCosting(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 10, "100")

	m, err := f.svc.RegisterAdjustment(context.Background(), AdjustmentInput{
		LocationID: f.storage,
		VariantID:  f.flourID,
		Qty:        types.NewQuantityFromFloat64(20),
		UomID:      f.kgID,
		UnitCost:   money("150"),
	})
	require.NoError(t, err)

	assert.Equal(t, ReasonAdjustment, m.Reason)
	require.NotNil(t, m.ToLocationID)
	assert.Equal(t, "30.0000", f.onHand(t).String())
	assert.Equal(t, "133.3333", f.flour().AvgUnitCost.String())
	assert.Equal(t, "150", f.flour().LastUnitCost.String())
}

func TestRegisterAdjustment_NegativeWriteOff(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 10, "100")

	m, err := f.svc.RegisterAdjustment(context.Background(), AdjustmentInput{
		LocationID: f.storage,
		VariantID:  f.flourID,
		Qty:        types.NewQuantityFromFloat64(-4),
		UomID:      f.kgID,
	})
	require.NoError(t, err)

	require.NotNil(t, m.FromLocationID)
	assert.Nil(t, m.ToLocationID)
	assert.Equal(t, "4.0000", m.Qty.String())
	assert.Equal(t, "6.0000", f.onHand(t).String())
	// Write-offs leave costs alone.
	assert.Equal(t, "100", f.flour().AvgUnitCost.String())
}

func TestRegisterAdjustment_NegativeBeyondStock(t *testing.T) {
	f := newFixture(t)
	seedStock(t, f, 10, "100")

	_, err := f.svc.RegisterAdjustment(context.Background(), AdjustmentInput{
		LocationID: f.storage,
		VariantID:  f.flourID,
		Qty:        types.NewQuantityFromFloat64(-11),
		UomID:      f.kgID,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, "10.0000", f.onHand(t).String())
}

func TestRegisterAdjustment_ZeroRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RegisterAdjustment(context.Background(), AdjustmentInput{
		LocationID: f.storage,
		VariantID:  f.flourID,
		Qty:        0,
		UomID:      f.kgID,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}
