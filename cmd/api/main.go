package main

import (
	"context"
	"log"
	"os"
	"strconv"

	_ "erpcore/api/swagger" // swagger docs
	"erpcore/internal/database"
	"erpcore/internal/handler"
	"erpcore/internal/logger"
	"erpcore/internal/middleware"
	"erpcore/internal/repository"
	"erpcore/internal/service"
	"erpcore/internal/websocket"
	"erpcore/internal/workflow"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Request Lifecycle API
// @version         1.0
// @description     Approval workflow engine for leave, expense, comp-off, regularization, and purchase order requests.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	appLog := logger.GetLogger()

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	appLog.Info("Connected to PostgreSQL successfully")

	// Permission middleware needs DB access for role lookups
	middleware.InitPermissionMiddleware(db)

	// Advance-notice window for leave submissions, in calendar days
	noticeDays := 0
	if v := os.Getenv("LEAVE_NOTICE_DAYS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			noticeDays = parsed
		}
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	notifier := websocket.NewNotifier(wsHub, appLog)

	clock := workflow.SystemClock{}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	vendorRepo := repository.NewVendorRepository(db)

	userService := service.NewUserService(userRepo)
	roleService := service.NewRoleService(db)
	auditService := service.NewAuditService(db)
	dashboardService := service.NewDashboardService(db)
	workflowService := service.NewWorkflowService(
		requestRepo, ledgerRepo, purchaseRepo, attendanceRepo,
		userRepo, roleRepo, auditRepo, txManager, clock, notifier, appLog,
	)
	leaveService := service.NewLeaveService(requestRepo, ledgerRepo, auditRepo, txManager, clock, notifier, noticeDays)
	expenseService := service.NewExpenseService(requestRepo, vendorRepo, auditRepo, txManager, clock, notifier)
	purchaseService := service.NewPurchaseService(requestRepo, purchaseRepo, vendorRepo, auditRepo, txManager, clock)
	attendanceService := service.NewAttendanceService(requestRepo, attendanceRepo, auditRepo, txManager, clock, notifier)
	vendorService := service.NewVendorService(vendorRepo, auditRepo, txManager)

	// Seed default roles and permissions
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		appLog.WithError(err).Warn("Failed to seed default roles and permissions")
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	auditHandler := handler.NewAuditHandler(auditService)
	requestHandler := handler.NewRequestHandler(workflowService)
	leaveHandler := handler.NewLeaveHandler(leaveService)
	expenseHandler := handler.NewExpenseHandler(expenseService)
	purchaseHandler := handler.NewPurchaseHandler(purchaseService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	vendorHandler := handler.NewVendorHandler(vendorService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	leaveHandler.RegisterRoutes(router.Group(""))
	expenseHandler.RegisterRoutes(router.Group(""))
	purchaseHandler.RegisterRoutes(router.Group(""))
	attendanceHandler.RegisterRoutes(router.Group(""))
	vendorHandler.RegisterRoutes(router.Group(""))
	dashboardHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	appLog.Infof("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
