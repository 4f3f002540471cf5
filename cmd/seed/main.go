// seed creates a demo location with an admin, an operator, a small catalog
// with stock and one promotion. Safe to re-run: operators are upserted and
// the rest is only created when the location does not exist yet.
package main

import (
	"context"
	"os"
	"time"

	"fabrisys/internal/config"
	"fabrisys/internal/infra"
	"fabrisys/internal/model"
	"fabrisys/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	demoOrg      = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	demoLocation = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	ctx := context.Background()

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "1234"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt")
	}

	for _, op := range []model.Operator{
		{Username: "admin", Name: "Admin Demo", Role: model.RoleAdmin},
		{Username: "operator", Name: "Operator Demo", Role: model.RoleOperator},
	} {
		op.PasswordHash = string(hash)
		op.OrganizationID = demoOrg
		op.LocationID = demoLocation
		op.Active = true
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"password_hash", "name", "role", "location_id", "active"}),
		}).Create(&op).Error
		if err != nil {
			log.Fatal().Err(err).Str("username", op.Username).Msg("upsert operator")
		}
	}

	locations := repository.NewLocationRepository(db)
	if _, err := locations.FindByID(ctx, demoLocation); err == nil {
		log.Info().Msg("demo location already seeded")
		return
	}
	if err := seedCatalog(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("seed catalog")
	}
	log.Info().Str("password", password).Msg("demo data created; users: admin, operator")
}

func seedCatalog(ctx context.Context, db *gorm.DB) error {
	locations := repository.NewLocationRepository(db)
	products := repository.NewProductRepository(db)
	stock := repository.NewStockRepository(db)
	promotions := repository.NewPromotionRepository(db)

	loc := &model.Location{
		ID:             demoLocation,
		OrganizationID: demoOrg,
		Name:           "Demo kiosk",
		DefaultMode:    model.ModeStandard,
		Active:         true,
	}
	if err := locations.Create(ctx, loc); err != nil {
		return err
	}

	catalog := []struct {
		name  string
		price string
		qty   int64
	}{
		{"Coffee", "3.50", 200},
		{"Croissant", "2.20", 60},
		{"Water 500ml", "1.00", 120},
		{"Sandwich", "5.90", 40},
	}
	var firstID uuid.UUID
	for i, c := range catalog {
		p := &model.Product{
			ID:        uuid.New(),
			Name:      c.name,
			SalePrice: decimal.RequireFromString(c.price),
			UnitID:    "un",
			Active:    true,
		}
		if err := products.Create(ctx, p); err != nil {
			return err
		}
		if i == 0 {
			firstID = p.ID
		}
		err := stock.Upsert(ctx, &model.StockEntry{
			LocationID:     loc.ID,
			ProductID:      p.ID,
			QuantityOnHand: decimal.NewFromInt(c.qty),
		})
		if err != nil {
			return err
		}
	}

	return promotions.Create(ctx, &model.Promotion{
		ID:        uuid.New(),
		Name:      "Coffee 10% off",
		Kind:      model.PromoProductPercent,
		ProductID: &firstID,
		Percent:   decimal.NewFromInt(10),
		Active:    true,
	})
}
