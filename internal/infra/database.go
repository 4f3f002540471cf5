package infra

import (
	"fmt"

	"fabrisys/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx and brings the
// schema up to date with RunMigrations. TranslateError makes unique
// violations surface as gorm.ErrDuplicatedKey.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates every table and then applies the patches
// AutoMigrate cannot express. Integration tests call it directly.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Location{},
		&model.Operator{},
		&model.Product{},
		&model.Promotion{},
		&model.StockEntry{},
		&model.StockMovement{},
		&model.CashSession{},
		&model.SaleTransaction{},
		&model.SaleLine{},
		&model.InventoryCount{},
		&model.LoyaltyAccount{},
		&model.LoyaltyMovement{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own (partial unique indexes, check constraints). Each statement
// is guarded so re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// One OPEN session per location. This is the storage-level guarantee
		// behind SessionService.Open; the application pre-check is advisory.
		{"uq_cash_sessions_open_location", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_sessions_open_location
    ON cash_sessions (location_id)
    WHERE status = 'OPEN'`},
		// One consolidated sale per session.
		{"uq_sale_transactions_consolidated", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_sale_transactions_consolidated
    ON sale_transactions (session_id)
    WHERE consolidated`},
		{"chk_cash_sessions_opening_float", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_cash_sessions_opening_float') THEN
    ALTER TABLE cash_sessions
      ADD CONSTRAINT chk_cash_sessions_opening_float CHECK (opening_float >= 0);
  END IF;
END $$`},
		{"chk_sale_lines_quantity", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_sale_lines_quantity') THEN
    ALTER TABLE sale_lines
      ADD CONSTRAINT chk_sale_lines_quantity CHECK (quantity > 0);
  END IF;
END $$`},
		{"idx_stock_movements_session", `
CREATE INDEX IF NOT EXISTS idx_stock_movements_session
    ON stock_movements (session_id)
    WHERE session_id IS NOT NULL`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
