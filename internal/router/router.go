package router

import (
	"time"

	"fabrisys/internal/config"
	"fabrisys/internal/handler"
	"fabrisys/internal/infra"
	"fabrisys/internal/middleware"
	"fabrisys/internal/repository"
	"fabrisys/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps carries what the composition root already built.
type Deps struct {
	DB       *gorm.DB
	Redis    *redis.Client // nil disables rate limiting
	Notifier service.Notifier
	AgendaCB *infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(deps.Redis, "global", 1000, time.Minute)) // 1000 req/min per IP

	notifier := deps.Notifier
	if notifier == nil {
		notifier = service.NoopNotifier{}
	}
	db := deps.DB

	// ── Repositories ─────────────────────────────────────────────────────────
	operatorRepo := repository.NewOperatorRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	productRepo := repository.NewProductRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	stockRepo := repository.NewStockRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	countRepo := repository.NewInventoryCountRepository(db)
	loyaltyRepo := repository.NewLoyaltyRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	stockLedger := service.NewStockLedger(stockRepo, movementRepo, cfg.StockAllowNegative)
	loyaltyLedger := service.NewLoyaltyLedger(loyaltyRepo, cfg.LoyaltyEnforceBalance)
	promoEngine := service.NewPromotionEngine(promotionRepo)
	reconciler := service.NewReconciler(saleRepo, productRepo, stockLedger, promoEngine)

	authSvc := service.NewAuthService(operatorRepo, cfg)
	sessionSvc := service.NewSessionService(sessionRepo, saleRepo, locationRepo, stockRepo, countRepo, reconciler, notifier)
	saleSvc := service.NewSaleService(sessionRepo, saleRepo, productRepo, stockLedger, loyaltyLedger, notifier)
	stockSvc := service.NewStockService(movementRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	sessionsH := handler.NewSessionsHandler(sessionSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	stockH := handler.NewStockHandler(stockSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, deps.Redis, deps.AgendaCB))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(deps.Redis), authH.Login)
	}

	// Protected routes; location and capability checks happen in the services
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", sessionsH.Open)
			sessions.GET("", sessionsH.List)
			sessions.GET("/active", sessionsH.Active)
			sessions.GET("/:id", sessionsH.Get)
			sessions.POST("/:id/close", sessionsH.Close)
			sessions.GET("/:id/counts", sessionsH.Counts)
			sessions.PUT("/:id/counts", sessionsH.SubmitCounts)
			sessions.POST("/:id/sales", salesH.Record)
			sessions.GET("/:id/sales", salesH.List)
		}

		v1.GET("/stock/movements", stockH.Movements)
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
