package router

import (
	"time"

	"lotledger/internal/config"
	"lotledger/internal/handler"
	"lotledger/internal/infra"
	"lotledger/internal/middleware"
	"lotledger/internal/repository"
	"lotledger/internal/service"
	"lotledger/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
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
	itemRepo := repository.NewItemRepository(db)
	eventRepo := repository.NewEventRepository(db)
	lotRepo := repository.NewLotRepository(db)
	serialRepo := repository.NewSerialRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	sequencer := infra.NewRedisSequencer(rdb)
	dispatcher := worker.NewDispatcher(rdb)

	ledgerSvc := service.NewCostLedgerService(itemRepo, eventRepo)
	registrySvc := service.NewLotRegistryService(lotRepo, serialRepo, sequencer, cfg)
	allocationSvc := service.NewAllocationEngine(lotRepo, serialRepo, registrySvc)
	traceSvc := service.NewTraceabilityService(lotRepo, serialRepo)
	agingSvc := service.NewAgingService(itemRepo, eventRepo, ledgerSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	itemsH := handler.NewItemsHandler(itemRepo, eventRepo)
	valuationH := handler.NewValuationHandler(ledgerSvc, agingSvc, dispatcher)
	lotsH := handler.NewLotsHandler(registrySvc, traceSvc)
	allocationH := handler.NewAllocationHandler(allocationSvc)
	recallsH := handler.NewRecallsHandler(traceSvc)

	// ── Routes ───────────────────────────────────────────────────────────────
	// Tenant scoping and authentication are the host application's
	// responsibility; this surface expects to sit behind its gateway.

	r.GET("/health", handler.Health(db, rdb))

	v1 := r.Group("/v1")
	{
		v1.POST("/items", itemsH.Create)
		v1.GET("/items/:id", itemsH.Get)
		v1.POST("/items/:id/events", itemsH.AppendEvent)
		v1.GET("/items/:id/valuation", valuationH.Valuate)
		v1.GET("/items/:id/cogs", valuationH.COGS)
		v1.GET("/items/:id/aging", valuationH.Aging)
		v1.GET("/reports/aging", valuationH.AgingReport)

		v1.POST("/lots", lotsH.Create)
		v1.GET("/lots/:id", lotsH.Get)
		v1.POST("/lots/:id/consume", lotsH.Consume)
		v1.POST("/lots/:id/hold", lotsH.Hold)
		v1.POST("/lots/:id/release", lotsH.Release)
		v1.GET("/lots/:id/traceability", lotsH.Traceability)

		v1.POST("/allocations/select", allocationH.Select)
		v1.POST("/allocations/commit", allocationH.Commit)
		v1.POST("/serials/select", allocationH.SelectSerials)

		v1.POST("/recalls", recallsH.Initiate)
	}

	return r
}
