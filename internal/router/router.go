package router

import (
	"time"

	"listino/internal/config"
	"listino/internal/handler"
	"listino/internal/infra"
	"listino/internal/middleware"
	"listino/internal/model"
	"listino/internal/repository"
	"listino/internal/service"
	"listino/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, magento *infra.MagentoClient, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	rowRepo := repository.NewRowRepository(db)
	stagingRepo := repository.NewStagingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	vatRepo := repository.NewVatRateRepository(db)
	configRepo := repository.NewConfigRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours, cfg.JWTRefreshHours)
	vatSvc := service.NewVatService(vatRepo)
	batchSvc := service.NewBatchService(batchRepo, rowRepo, stagingRepo, auditRepo, rdb)
	approvalSvc := service.NewApprovalService(rowRepo, auditRepo)
	publishSvc := service.NewPublishService(rowRepo, batchRepo, auditRepo, magento, dispatcher, cfg.NotifyEmail)
	stagingSvc := service.NewStagingService(stagingRepo, rowRepo, batchRepo, vatSvc)
	configSvc := service.NewConfigService(configRepo, magento)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	batchesH := handler.NewBatchHandler(batchSvc, approvalSvc, publishSvc, stagingSvc)
	rowsH := handler.NewRowHandler(batchSvc, approvalSvc)
	stagingH := handler.NewStagingHandler(stagingSvc)
	vatH := handler.NewVatHandler(vatSvc)
	configH := handler.NewConfigHandler(configSvc)
	healthH := handler.NewHealthHandler(db, rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", healthH.Check)

	// Auth (public)
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", middleware.RateLimiter(10, time.Minute), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	api := r.Group("/api", jwtMW)
	{
		anyRole := middleware.RequireRole(model.RolOperatore, model.RolApprovatore, model.RolAmministratore)
		gate := middleware.RequireRole(model.RolApprovatore, model.RolAmministratore)
		admin := middleware.RequireRole(model.RolAmministratore)

		// Staging — Excel import/template
		staging := api.Group("/staging", anyRole)
		{
			staging.GET("/template", stagingH.Template)
			staging.POST("/import", stagingH.Import)
		}

		// Batches
		api.POST("/batches", anyRole, batchesH.Create)
		api.GET("/batches", anyRole, batchesH.List)
		api.GET("/batches/:id", anyRole, batchesH.Get)
		api.POST("/batches/:id/init", anyRole, batchesH.Init)
		api.GET("/batches/:id/rows", anyRole, batchesH.Rows)
		api.POST("/batches/:id/search", anyRole, batchesH.Search)
		api.GET("/batches/:id/audit", anyRole, batchesH.Audit)
		api.GET("/batches/:id/export", anyRole, batchesH.Export)
		api.GET("/batches/:id/report", anyRole, batchesH.Report)

		// Gate operations — approvatore or amministratore only
		api.POST("/batches/:id/approve", gate, batchesH.Approve)
		api.POST("/batches/:id/publish", gate, batchesH.Publish)
		api.POST("/rows/reject", gate, rowsH.Reject)

		// Row queues and draft edits
		api.GET("/rows/pending", anyRole, batchesH.Pending)
		api.GET("/rows/approved", anyRole, batchesH.Approved)
		api.PATCH("/rows/:id", anyRole, rowsH.Edit)

		// Filter facets
		api.GET("/lookup", anyRole, batchesH.Lookup)

		// Settings — amministratore only
		settings := api.Group("/settings", admin)
		{
			settings.GET("/vat", vatH.List)
			settings.PUT("/vat", vatH.Save)
			settings.GET("/config", configH.Get)
			settings.POST("/config", configH.Save)
			settings.POST("/config/test", configH.TestConnection)
			settings.GET("/stores", configH.Stores)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
