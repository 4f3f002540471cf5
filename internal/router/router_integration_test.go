//go:build integration

package router_test

// End-to-end tests against real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/...

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fabrisys/internal/config"
	"fabrisys/internal/dto"
	"fabrisys/internal/infra"
	"fabrisys/internal/model"
	"fabrisys/internal/repository"
	"fabrisys/internal/router"
	"fabrisys/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server   *httptest.Server
	token    string
	db       *gorm.DB
	rdb      *redis.Client
	location uuid.UUID
}

func setupTestEnv(t *testing.T) *testEnv {
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

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(rdC) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:                   8000,
		Env:                    "test",
		JWTSecret:              "test-secret-key",
		JWTExpirationHours:     8,
		DatabaseURL:            pgURL,
		RedisURL:               rdURL,
		VarianceAlertThreshold: "10",
		StockAllowNegative:     true,
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	org, location := uuid.New(), uuid.New()
	require.NoError(t, repository.NewLocationRepository(db).Create(ctx, &model.Location{
		ID:             location,
		OrganizationID: org,
		Name:           "E2E kiosk",
		DefaultMode:    model.ModeStandard,
		Active:         true,
	}))
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repository.NewOperatorRepository(db).Create(ctx, &model.Operator{
		Username:       "admin",
		Name:           "Admin E2E",
		PasswordHash:   string(hash),
		Role:           model.RoleAdmin,
		OrganizationID: org,
		LocationID:     location,
		Active:         true,
	}))

	r := router.New(cfg, router.Deps{
		DB:       db,
		Redis:    rdb,
		Notifier: worker.NewDispatcher(rdb),
		AgendaCB: infra.NewCircuitBreaker(infra.DefaultCBConfig()),
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	resp := do(t, srv, http.MethodPost, "/v1/auth/login",
		jsonBody(t, dto.LoginRequest{Username: "admin", Password: "secret-pass"}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login dto.LoginResponse
	decodeJSON(t, resp, &login)
	require.NotEmpty(t, login.AccessToken)

	return &testEnv{server: srv, token: login.AccessToken, db: db, rdb: rdb, location: location}
}

func (e *testEnv) addProduct(t *testing.T, price string, qty int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	p := &model.Product{
		ID:        uuid.New(),
		Name:      "Product " + price,
		SalePrice: decimal.RequireFromString(price),
		UnitID:    "un",
		Active:    true,
	}
	require.NoError(t, repository.NewProductRepository(e.db).Create(ctx, p))
	require.NoError(t, repository.NewStockRepository(e.db).Upsert(ctx, &model.StockEntry{
		LocationID: e.location, ProductID: p.ID, QuantityOnHand: decimal.NewFromInt(qty),
	}))
	return p.ID
}

func (e *testEnv) open(t *testing.T, float, mode string) dto.SessionResponse {
	t.Helper()
	resp := do(t, e.server, http.MethodPost, "/v1/sessions", jsonBody(t, map[string]any{
		"location_id":    e.location.String(),
		"opening_float":  float,
		"operating_mode": mode,
	}), e.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var s dto.SessionResponse
	decodeJSON(t, resp, &s)
	return s
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("health", func(t *testing.T) {
		resp := do(t, env.server, http.MethodGet, "/health", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("unauthenticated", func(t *testing.T) {
		resp := do(t, env.server, http.MethodGet, "/v1/sessions/active", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("standard shift", func(t *testing.T) {
		product := env.addProduct(t, "15.00", 10)
		session := env.open(t, "100", string(model.ModeStandard))

		resp := do(t, env.server, http.MethodPost, "/v1/sessions", jsonBody(t, map[string]any{
			"location_id": env.location.String(), "opening_float": "0",
		}), env.token)
		assert.Equal(t, http.StatusConflict, resp.StatusCode, "one open session per location")
		resp.Body.Close()

		resp = do(t, env.server, http.MethodPost, "/v1/sessions/"+session.ID+"/sales", jsonBody(t, dto.RecordSaleRequest{
			Lines:         []dto.SaleLineRequest{{ProductID: product.String(), Quantity: decimal.NewFromInt(2)}},
			PaymentMethod: model.PaymentCash,
		}), env.token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var sale dto.RecordSaleResponse
		decodeJSON(t, resp, &sale)
		assert.Equal(t, "30.00", sale.Sale.NetTotal.StringFixed(2))

		resp = do(t, env.server, http.MethodPost, "/v1/sessions/"+session.ID+"/close", jsonBody(t, map[string]any{
			"payments": map[string]string{"cash": "100", "pix": "10", "card": "15"},
		}), env.token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var closed dto.CloseSessionResponse
		decodeJSON(t, resp, &closed)

		assert.Equal(t, string(model.SessionClosed), closed.Session.Status)
		assert.Equal(t, "130.00", closed.Session.ExpectedTotal.StringFixed(2))
		require.NotNil(t, closed.Session.Variance)
		assert.Equal(t, "-5.00", closed.Session.Variance.Amount.StringFixed(2))
		assert.Equal(t, model.VarianceWarning, closed.Session.Variance.Class)

		resp = do(t, env.server, http.MethodPost, "/v1/sessions/"+session.ID+"/close", jsonBody(t, map[string]any{
			"informed_total": "130",
		}), env.token)
		assert.Equal(t, http.StatusConflict, resp.StatusCode, "closed sessions are immutable")
		resp.Body.Close()

		resp = do(t, env.server, http.MethodGet, "/v1/stock/movements?session_id="+session.ID, nil, env.token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var movements dto.StockMovementListResponse
		decodeJSON(t, resp, &movements)
		require.Len(t, movements.Data, 1)
		assert.Equal(t, "8", movements.Data[0].After.String())

		n, err := env.rdb.LLen(context.Background(), worker.QueueNotifications).Result()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(2), "open and close events queued")
	})

	t.Run("inventory-count shift", func(t *testing.T) {
		product := env.addProduct(t, "10.00", 10)
		require.NoError(t, repository.NewPromotionRepository(env.db).Create(context.Background(), &model.Promotion{
			ID:        uuid.New(),
			Name:      "10% off",
			Kind:      model.PromoProductPercent,
			ProductID: &product,
			Percent:   decimal.NewFromInt(10),
			Active:    true,
		}))
		session := env.open(t, "0", string(model.ModeInventoryCount))

		resp := do(t, env.server, http.MethodPost, "/v1/sessions/"+session.ID+"/sales", jsonBody(t, dto.RecordSaleRequest{
			Lines:         []dto.SaleLineRequest{{ProductID: product.String(), Quantity: decimal.NewFromInt(1)}},
			PaymentMethod: model.PaymentCash,
		}), env.token)
		assert.Equal(t, http.StatusConflict, resp.StatusCode, "no checkout in inventory-count mode")
		resp.Body.Close()

		resp = do(t, env.server, http.MethodPut, "/v1/sessions/"+session.ID+"/counts", jsonBody(t, dto.SubmitCountsRequest{
			Counts: []dto.CountEntry{{ProductID: product.String(), CountedQty: decimal.NewFromInt(7)}},
		}), env.token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		// Other products provisioned at this location stay uncounted and
		// reconcile as unsold.
		resp = do(t, env.server, http.MethodPost, "/v1/sessions/"+session.ID+"/close", jsonBody(t, map[string]any{
			"informed_total": "27",
		}), env.token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var closed dto.CloseSessionResponse
		decodeJSON(t, resp, &closed)

		require.NotNil(t, closed.ConsolidatedSale)
		assert.Equal(t, "30.00", closed.ConsolidatedSale.GrossTotal.StringFixed(2))
		assert.True(t, closed.Promotion.OK)
		assert.Equal(t, "3.00", closed.Session.DiscountTotal.StringFixed(2))
		require.NotNil(t, closed.Session.Variance)
		assert.True(t, closed.Session.Variance.Amount.IsZero())
		assert.Equal(t, model.VarianceNormal, closed.Session.Variance.Class)

		entry, err := repository.NewStockRepository(env.db).Find(context.Background(), env.location, product)
		require.NoError(t, err)
		assert.Equal(t, "7", entry.QuantityOnHand.String())
	})
}
