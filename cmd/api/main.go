package main

import (
	"context"
	"log"
	"os"

	_ "estimator/api/swagger" // swagger docs
	"estimator/internal/database"
	"estimator/internal/handler"
	"estimator/internal/middleware"
	"estimator/internal/repository"
	"estimator/internal/service"
	"estimator/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Estimate Management API
// @version         1.0
// @description     API for managing electrical work estimates, payments and finance records.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

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
	log.Println("Connected to PostgreSQL successfully.")

	// Permission middleware needs the DB for role lookups
	middleware.InitPermissionMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	estimateRepo := repository.NewEstimateRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	financeRepo := repository.NewFinanceRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	presetRepo := repository.NewPresetRepository(db)

	userService := service.NewUserService(userRepo)
	roleService := service.NewRoleService(db)
	notificationService := service.NewNotificationService(notificationRepo, wsHub)
	estimateService := service.NewEstimateService(estimateRepo, historyRepo, txManager, notificationService)
	paymentService := service.NewPaymentService(paymentRepo, estimateRepo, financeRepo, historyRepo, txManager, notificationService)
	financeService := service.NewFinanceService(financeRepo)
	requestService := service.NewRequestService(requestRepo, estimateService, userRepo, notificationService)
	presetService := service.NewPresetService(presetRepo)
	pdfService := service.NewPDFService(estimateRepo)

	// Seed default roles and permissions
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Println("WARNING: Failed to seed roles and permissions:", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	estimateHandler := handler.NewEstimateHandler(estimateService, paymentService, pdfService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	financeHandler := handler.NewFinanceHandler(financeService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	requestHandler := handler.NewRequestHandler(requestService)
	presetHandler := handler.NewPresetHandler(presetService)

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
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	roleHandler.RegisterRoutes(root)
	estimateHandler.RegisterRoutes(root)
	paymentHandler.RegisterRoutes(root)
	financeHandler.RegisterRoutes(root)
	notificationHandler.RegisterRoutes(root)
	requestHandler.RegisterRoutes(root)
	presetHandler.RegisterRoutes(root)

	// Client-facing endpoints, no auth
	estimateHandler.RegisterPublicRoutes(root)
	requestHandler.RegisterPublicRoutes(root)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
