//go:build integration

package repository_test

// Run with: go test -tags integration ./internal/repository/...

import (
	"context"
	"sync"
	"testing"
	"time"

	"fabrisys/internal/infra"
	"fabrisys/internal/model"
	"fabrisys/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("fabrisys_test"),
		tcPostgres.WithUsername("fabrisys"),
		tcPostgres.WithPassword("fabrisys"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgC) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := infra.NewDatabase(dsn)
	require.NoError(t, err)
	// Re-running migrations on a migrated schema is a no-op.
	require.NoError(t, infra.RunMigrations(db))
	return db
}

func openSession(locationID uuid.UUID) *model.CashSession {
	return &model.CashSession{
		ID:             uuid.New(),
		LocationID:     locationID,
		OrganizationID: uuid.New(),
		OperatingMode:  model.ModeStandard,
		OpenedBy:       uuid.New(),
		OpenedAt:       time.Now().UTC(),
		OpeningFloat:   decimal.NewFromInt(100),
		Status:         model.SessionOpen,
	}
}

func TestIntegration_Repositories(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	t.Run("one open session per location", func(t *testing.T) {
		sessions := repository.NewSessionRepository(db)
		loc := uuid.New()

		require.NoError(t, sessions.CreateTx(nil, openSession(loc)))
		assert.ErrorIs(t, sessions.CreateTx(nil, openSession(loc)), repository.ErrDuplicate)
		assert.NoError(t, sessions.CreateTx(nil, openSession(uuid.New())), "other locations are unaffected")
	})

	t.Run("close is a compare-and-set", func(t *testing.T) {
		sessions := repository.NewSessionRepository(db)
		s := openSession(uuid.New())
		require.NoError(t, sessions.CreateTx(nil, s))

		require.NoError(t, sessions.AddSalesTotalTx(nil, s.ID, decimal.RequireFromString("12.50")))
		require.NoError(t, sessions.AddSalesTotalTx(nil, s.ID, decimal.RequireFromString("7.50")))

		err := db.Transaction(func(tx *gorm.DB) error {
			locked, err := sessions.FindByIDForUpdateTx(tx, s.ID)
			if err != nil {
				return err
			}
			assert.Equal(t, "20.00", locked.SystemSalesTotal.StringFixed(2))

			now := time.Now().UTC()
			informed := decimal.RequireFromString("118")
			expected := locked.OpeningFloat.Add(locked.SystemSalesTotal)
			variance := informed.Sub(expected)
			class := model.VarianceWarning
			locked.ClosedBy = &locked.OpenedBy
			locked.ClosedAt = &now
			locked.InformedTotal = &informed
			locked.ExpectedTotal = &expected
			locked.Variance = &variance
			locked.VarianceClass = &class
			return sessions.CloseTx(tx, locked)
		})
		require.NoError(t, err)

		closed, err := sessions.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, model.SessionClosed, closed.Status)
		assert.Equal(t, "-2.00", closed.Variance.StringFixed(2))

		assert.ErrorIs(t, sessions.CloseTx(nil, closed), repository.ErrNotOpen)
		assert.ErrorIs(t, sessions.AddSalesTotalTx(nil, s.ID, decimal.NewFromInt(1)), repository.ErrNotOpen)

		_, err = sessions.FindOpenByLocation(ctx, s.LocationID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		require.NoError(t, sessions.CreateTx(nil, openSession(s.LocationID)), "location can reopen")
	})

	t.Run("listing is scoped to the organization", func(t *testing.T) {
		sessions := repository.NewSessionRepository(db)
		org := uuid.New()
		for i := 0; i < 2; i++ {
			s := openSession(uuid.New())
			s.OrganizationID = org
			require.NoError(t, sessions.CreateTx(nil, s))
		}
		require.NoError(t, sessions.CreateTx(nil, openSession(uuid.New())))

		list, total, err := sessions.List(ctx, repository.SessionFilter{OrganizationID: org})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, s := range list {
			assert.Equal(t, org, s.OrganizationID)
		}
	})

	t.Run("concurrent decrements never oversell", func(t *testing.T) {
		stock := repository.NewStockRepository(db)
		loc, product := uuid.New(), uuid.New()
		require.NoError(t, stock.Upsert(ctx, &model.StockEntry{
			LocationID: loc, ProductID: product, QuantityOnHand: decimal.NewFromInt(10),
		}))

		var (
			wg           sync.WaitGroup
			mu           sync.Mutex
			ok, rejected int
		)
		for i := 0; i < 15; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := stock.DecrementTx(nil, loc, product, decimal.NewFromInt(1), false)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case assert.ErrorIs(t, err, repository.ErrInsufficientStock):
					rejected++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 10, ok)
		assert.Equal(t, 5, rejected)
		entry, err := stock.Find(ctx, loc, product)
		require.NoError(t, err)
		assert.True(t, entry.QuantityOnHand.IsZero())

		after, err := stock.DecrementTx(nil, loc, product, decimal.NewFromInt(2), true)
		require.NoError(t, err)
		assert.Equal(t, "-2", after.String(), "negative stock when allowed")

		_, err = stock.DecrementTx(nil, loc, uuid.New(), decimal.NewFromInt(1), false)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("one consolidated sale per session", func(t *testing.T) {
		sales := repository.NewSaleRepository(db)
		sessionID := uuid.New()
		consolidated := func() *model.SaleTransaction {
			return &model.SaleTransaction{
				ID:            uuid.New(),
				SessionID:     sessionID,
				LocationID:    uuid.New(),
				RecordedBy:    uuid.New(),
				Timestamp:     time.Now().UTC(),
				PaymentMethod: model.PaymentConsolidated,
				GrossTotal:    decimal.NewFromInt(30),
				NetTotal:      decimal.NewFromInt(30),
				Consolidated:  true,
				Lines: []model.SaleLine{{
					ProductID: uuid.New(),
					Quantity:  decimal.NewFromInt(3),
					UnitPrice: decimal.NewFromInt(10),
					Subtotal:  decimal.NewFromInt(30),
				}},
			}
		}

		first := consolidated()
		require.NoError(t, sales.CreateTx(nil, first))
		assert.ErrorIs(t, sales.CreateTx(nil, consolidated()), repository.ErrDuplicate)

		has, err := sales.HasConsolidatedTx(nil, sessionID)
		require.NoError(t, err)
		assert.True(t, has)

		got, err := sales.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Len(t, got.Lines, 1)

		sum, err := sales.SumNetTotalTx(nil, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "30.00", sum.StringFixed(2))
	})

	t.Run("loyalty balance", func(t *testing.T) {
		loyalty := repository.NewLoyaltyRepository(db)
		customer := uuid.New()

		bal, err := loyalty.ApplyDelta(ctx, customer, 10, "earn", nil, true)
		require.NoError(t, err)
		assert.Equal(t, int64(10), bal)

		_, err = loyalty.ApplyDelta(ctx, customer, -15, "redeem", nil, true)
		assert.ErrorIs(t, err, repository.ErrInsufficientPoints)
		acct, err := loyalty.FindAccount(ctx, customer)
		require.NoError(t, err)
		assert.Equal(t, int64(10), acct.PointsBalance, "rejected redemption leaves the balance alone")

		bal, err = loyalty.ApplyDelta(ctx, customer, -15, "redeem", nil, false)
		require.NoError(t, err)
		assert.Equal(t, int64(-5), bal)

		var movements int64
		require.NoError(t, db.Model(&model.LoyaltyMovement{}).Where("customer_id = ?", customer).Count(&movements).Error)
		assert.Equal(t, int64(2), movements)
	})
}
