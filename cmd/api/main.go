package main

import (
	"log"
	"net/http"
	"time"

	_ "salesdesk/api/swagger" // swagger docs
	"salesdesk/internal/auth"
	"salesdesk/internal/config"
	"salesdesk/internal/database"
	"salesdesk/internal/handler"
	"salesdesk/internal/middleware"
	"salesdesk/internal/repository"
	"salesdesk/internal/service"
	"salesdesk/internal/storage"
	"salesdesk/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// @title           Sales Desk API
// @version         1.0
// @description     Advertising sales, approvals, invoices and journalist commissions.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	gin.SetMode(cfg.Server.Mode)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Printf("Connected to %s successfully.", cfg.Database.Driver)

	store, err := storage.New(cfg.Storage.Dir)
	if err != nil {
		log.Fatalf("Storage setup failed: %v", err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(cfg.Server.CORSOrigins)
	go wsHub.Run()

	router, err := buildRouter(cfg, db, store, wsHub)
	if err != nil {
		log.Fatalf("Router setup failed: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Server listening on :%s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildRouter wires repositories, services and handlers (Repository -> Service -> Handler).
func buildRouter(cfg *config.Config, db *gorm.DB, store *storage.Store, wsHub *websocket.Hub) (*gin.Engine, error) {
	issuer := auth.NewTokenIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHours)*time.Hour)
	loginLimiter, err := middleware.RateLimit(cfg.Server.LoginRate)
	if err != nil {
		return nil, err
	}

	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	authMW := middleware.NewAuth(issuer, userRepo)
	clientRepo := repository.NewClientRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	settingService := service.NewSettingService(settingRepo, auditRepo, txManager)
	userService := service.NewUserService(userRepo, saleRepo, commissionRepo, auditRepo, txManager, issuer)
	clientService := service.NewClientService(clientRepo, saleRepo, auditRepo, txManager)
	saleService := service.NewSaleService(saleRepo, clientRepo, userRepo, auditRepo, txManager, settingService, store, wsHub, cfg.Storage.MaxUploadBytes())
	invoiceService := service.NewInvoiceService(invoiceRepo, saleRepo, auditRepo, txManager, settingService, store, wsHub)
	commissionService := service.NewCommissionService(commissionRepo, userRepo, auditRepo, txManager, wsHub)
	analyticsService := service.NewAnalyticsService(analyticsRepo, commissionRepo)
	exportService := service.NewExportService(saleRepo)
	auditService := service.NewAuditService(auditRepo)

	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewUserHandler(userService, authMW, loginLimiter),
		handler.NewClientHandler(clientService, authMW),
		handler.NewSaleHandler(saleService, authMW, cfg.Storage.MaxUploadBytes()),
		handler.NewInvoiceHandler(invoiceService, authMW),
		handler.NewCommissionHandler(commissionService, authMW),
		handler.NewAnalyticsHandler(analyticsService, authMW),
		handler.NewExportHandler(exportService, authMW),
		handler.NewSettingHandler(settingService, authMW),
		handler.NewAuditHandler(auditService, authMW),
	}

	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, issuer)
	})

	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	return router, nil
}
