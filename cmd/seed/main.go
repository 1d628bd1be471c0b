// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"mise/internal/core/apperror"
	"mise/internal/core/types"
	"mise/internal/domain/catalogs/location"
	"mise/internal/domain/catalogs/uom"
	"mise/internal/domain/catalogs/variant"
	"mise/internal/domain/conversion"
	"mise/internal/domain/ledger"
	"mise/internal/infrastructure/storage/postgres"
	"mise/internal/infrastructure/storage/postgres/catalog_repo"
	"mise/internal/infrastructure/storage/postgres/ledger_repo"
	"mise/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	if err := postgres.Migrate(ctx, dbURL); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)

	uomRepo := catalog_repo.NewUomRepo(txManager)
	conversionRepo := catalog_repo.NewConversionRepo(txManager)
	locationRepo := catalog_repo.NewLocationRepo(txManager)
	variantRepo := catalog_repo.NewVariantRepo(txManager)
	movementRepo := ledger_repo.NewMovementRepo(txManager)
	stockRepo := ledger_repo.NewStockRepo(txManager)

	journal, err := postgres.NewMovementJournal(txManager)
	if err != nil {
		log.Fatalw("failed to initialize movement journal", "error", err)
	}

	ledgerService := ledger.NewService(ledger.Deps{
		TxManager: txManager,
		Movements: movementRepo,
		Balances:  stockRepo,
		Variants:  variantRepo,
		Locations: locationRepo,
		Uoms:      uomRepo,
		Resolver:  conversion.NewResolver(conversionRepo),
		Numbers:   postgres.NewNumberSource(txManager),
		Journal:   journal,
	})

	s := &seeder{
		uoms:        uomRepo,
		conversions: conversionRepo,
		locations:   locationRepo,
		variants:    variantRepo,
		ledger:      ledgerService,
		log:         log,
	}

	if err := s.run(ctx); err != nil {
		log.Fatalw("seeding failed", "error", err)
	}

	log.Info("seeding completed successfully")
}

type seeder struct {
	uoms        *catalog_repo.UomRepo
	conversions *catalog_repo.ConversionRepo
	locations   *catalog_repo.LocationRepo
	variants    *catalog_repo.VariantRepo
	ledger      *ledger.Service
	log         *logger.Logger
}

func (s *seeder) run(ctx context.Context) error {
	// Rerunning over a seeded database is a no-op.
	if existing, err := s.uoms.FindBySymbol(ctx, "kg"); err == nil && existing != nil {
		s.log.Info("database already seeded, nothing to do")
		return nil
	} else if err != nil && !apperror.IsNotFound(err) {
		return err
	}

	kg, err := s.uom(ctx, "KG", "Kilogram", "kg", 4, true)
	if err != nil {
		return err
	}
	gr, err := s.uom(ctx, "GR", "Gram", "g", 0, true)
	if err != nil {
		return err
	}
	pcs, err := s.uom(ctx, "PCS", "Piece", "pcs", 0, false)
	if err != nil {
		return err
	}

	if err := s.conversion(ctx, gr, kg, "0.001"); err != nil {
		return err
	}

	branch := location.NewBranch("MAIN", "Main Branch")
	branch.Address = "1 Market St"
	if err := s.locations.CreateBranch(ctx, branch); err != nil {
		return err
	}

	kitchen := location.NewOperatingUnit("KITCHEN", "Kitchen", branch.ID)
	if err := s.locations.CreateOperatingUnit(ctx, kitchen); err != nil {
		return err
	}

	store := location.NewInventoryLocation("MAIN-STORE", "Main Storage", kitchen.ID, location.KindStorage)
	if err := s.locations.Create(ctx, store); err != nil {
		return err
	}
	prep := location.NewInventoryLocation("PREP", "Prep Area", kitchen.ID, location.KindSales)
	if err := s.locations.Create(ctx, prep); err != nil {
		return err
	}

	flourItem := variant.NewItem("FLOUR", "Wheat Flour")
	flourItem.Category = "Dry Goods"
	if err := s.variants.CreateItem(ctx, flourItem); err != nil {
		return err
	}
	flour := variant.NewItemVariant("FLOUR-00", "Wheat Flour Type 00", "SKU-FLOUR-00", flourItem.ID, kg.ID)
	flour.MinStock = types.NewQuantityFromFloat64(10)
	if err := s.variants.Create(ctx, flour); err != nil {
		return err
	}

	oilItem := variant.NewItem("OIL", "Olive Oil")
	oilItem.Category = "Oils"
	if err := s.variants.CreateItem(ctx, oilItem); err != nil {
		return err
	}
	oil := variant.NewItemVariant("OIL-EV-1L", "Extra Virgin Olive Oil 1L", "SKU-OIL-EV-1L", oilItem.ID, pcs.ID)
	if err := s.variants.Create(ctx, oil); err != nil {
		return err
	}

	// Opening balances go through the ledger so costs and journal entries
	// are produced the same way as in production.
	flourCost := types.MustMoney("125.50")
	if _, err := s.ledger.RegisterOpeningBalance(ctx, ledger.OpeningBalanceInput{
		LocationID: store.ID,
		VariantID:  flour.ID,
		Qty:        types.NewQuantityFromFloat64(50),
		EntryUomID: kg.ID,
		UnitCost:   &flourCost,
		Reference:  "SEED",
	}); err != nil {
		return err
	}

	oilCost := types.MustMoney("8.90")
	if _, err := s.ledger.RegisterOpeningBalance(ctx, ledger.OpeningBalanceInput{
		LocationID: store.ID,
		VariantID:  oil.ID,
		Qty:        types.NewQuantityFromFloat64(24),
		EntryUomID: pcs.ID,
		UnitCost:   &oilCost,
		Reference:  "SEED",
	}); err != nil {
		return err
	}

	return nil
}

func (s *seeder) uom(ctx context.Context, code, name, symbol string, precision int32, fractional bool) (*uom.UnitOfMeasure, error) {
	u := uom.NewUnitOfMeasure(code, name, symbol)
	u.Precision = precision
	u.AllowFractional = fractional
	if err := s.uoms.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Infow("unit created", "code", code)
	return u, nil
}

func (s *seeder) conversion(ctx context.Context, from, to *uom.UnitOfMeasure, factor string) error {
	f, err := decimal.NewFromString(factor)
	if err != nil {
		return err
	}
	if err := s.conversions.Create(ctx, conversion.NewConversion(from.ID, to.ID, f)); err != nil {
		return err
	}
	s.log.Infow("conversion created", "from", from.Code, "to", to.Code, "factor", factor)
	return nil
}
