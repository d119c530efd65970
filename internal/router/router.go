// Package router assembles the Gin engine serving the ledger API.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ledgerd/internal/config"
	"ledgerd/internal/handlers"
	"ledgerd/internal/middleware"
	"ledgerd/internal/services"

	_ "ledgerd/internal/docs" // Import swagger docs
)

// Services are the ledger services behind the HTTP handlers.
type Services struct {
	Accounts     services.AccountServicer
	Groups       services.TransactionGroupServicer
	Confirmation services.ConfirmationServicer
	Funding      services.FundingServicer
	Migration    services.MigrationServicer
	Audit        services.AuditServicer
}

// NewServices wires the ledger services on db. Each service gets its own
// named child of log.
func NewServices(db *gorm.DB, cfg *config.Config, log *zap.SugaredLogger) *Services {
	accounts := services.NewAccountService(db, log.Named("accounts"))
	funding := services.NewFundingService(db, log.Named("funding"))
	return &Services{
		Accounts:     accounts,
		Funding:      funding,
		Groups:       services.NewTransactionGroupService(db, accounts, funding, services.NewUnitCostStore(db), cfg.BalanceTolerance, log.Named("transactions")),
		Confirmation: services.NewConfirmationService(db, accounts, funding, cfg.BalanceTolerance, log.Named("confirmation")),
		Migration:    services.NewMigrationService(db, funding, cfg.BalanceTolerance, log.Named("migration")),
		Audit:        services.NewAuditService(db, log.Named("audit")),
	}
}

// New builds the Gin engine with all routes.
func New(cfg *config.Config, svc *Services, log *zap.SugaredLogger) *gin.Engine {
	accountHandler := handlers.NewAccountHandler(svc.Accounts, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Groups, svc.Confirmation, svc.Funding, svc.Audit, cfg.BalanceTolerance)
	compatHandler := handlers.NewCompatHandler(svc.Groups, cfg.BalanceTolerance)
	migrationHandler := handlers.NewMigrationHandler(svc.Migration)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging(log.Named("http")))
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Authorization", "X-API-Key", "X-Request-ID"},
		ExposeHeaders:   []string{"X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	accounts := protected.Group("/accounts")
	accounts.POST("", accountHandler.CreateAccount)
	accounts.GET("", accountHandler.GetAccounts)
	accounts.GET("/:id", accountHandler.GetAccountByID)
	accounts.PUT("/:id", accountHandler.UpdateAccount)
	accounts.POST("/:id/deactivate", accountHandler.DeactivateAccount)

	transactions := protected.Group("/transactions")
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.POST("/validate", transactionHandler.ValidateEntries)
	transactions.POST("/cost-of-sales", transactionHandler.CreateCostOfSales)
	transactions.GET("/funding/available-sources", transactionHandler.GetAvailableSources)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/confirm", transactionHandler.ConfirmTransaction)
	transactions.POST("/:id/unlock", transactionHandler.UnlockTransaction)
	transactions.POST("/:id/cancel", transactionHandler.CancelTransaction)
	transactions.GET("/:id/balance", transactionHandler.GetBalance)
	transactions.GET("/:id/funding", transactionHandler.GetFunding)

	compat := protected.Group("/compat")
	compat.GET("/transactions/:id", compatHandler.GetLegacyTransaction)

	// Operator routes
	admin := v1.Group("/admin")
	admin.Use(middleware.AdminAuthMiddleware(cfg.AdminAPIKey))
	admin.POST("/migrations/embed-entries", migrationHandler.EmbedEntries)
	admin.GET("/migrations/reports/latest", migrationHandler.GetLatestReport)

	return router
}
