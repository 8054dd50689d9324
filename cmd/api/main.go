package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/vitorduarteebb/veramosystem-sub000/api/swagger" // swagger docs
	"github.com/vitorduarteebb/veramosystem-sub000/internal/database"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/handler"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/middleware"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/notify"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/repository"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/service"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/storage"
	"github.com/vitorduarteebb/veramosystem-sub000/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Homologation Workflow API
// @version         1.0
// @description     Termination homologation workflow: document review, scheduling and three-party signing.
// @host            localhost:8080
// @BasePath        /api
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

	fileStore, err := storage.NewLocalStoreFromEnv()
	if err != nil {
		log.Fatalf("File store setup failed: %v", err)
	}

	// Delivery channels: whatever is configured, plus the log fallback.
	dispatchers := notify.Multi{}
	if email, ok := notify.NewEmailDispatcherFromEnv(); ok {
		dispatchers = append(dispatchers, email)
		log.Println("Email dispatcher enabled")
	}
	if whatsapp, ok := notify.NewWhatsAppDispatcherFromEnv(); ok {
		dispatchers = append(dispatchers, whatsapp)
		log.Println("WhatsApp dispatcher enabled")
	}
	if len(dispatchers) == 0 {
		dispatchers = append(dispatchers, notify.LogDispatcher{})
		log.Println("No delivery channel configured, notifications go to the log")
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrgRepository(db)
	processRepo := repository.NewProcessRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	signingRepo := repository.NewSigningRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Expired refresh tokens are swept hourly so the table does not grow
	// with abandoned sessions.
	go func() {
		for {
			if err := userRepo.DeleteExpiredRefreshTokens(context.Background()); err != nil {
				log.Printf("refresh token sweep failed: %v", err)
			}
			time.Sleep(time.Hour)
		}
	}()

	userService := service.NewUserService(userRepo)
	orgService := service.NewOrgService(orgRepo)
	documentService := service.NewDocumentService(processRepo, documentRepo, auditRepo, txManager, wsHub)
	signingService := service.NewSigningService(signingRepo, processRepo, auditRepo, txManager, dispatchers, wsHub)
	processService := service.NewProcessService(processRepo, documentRepo, auditRepo, txManager, signingService, wsHub)
	paymentService := service.NewPaymentService(paymentRepo, processRepo, auditRepo, txManager)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	orgHandler := handler.NewOrgHandler(orgService)
	processHandler := handler.NewProcessHandler(processService, documentService, fileStore)
	signingHandler := handler.NewSigningHandler(signingService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	auditHandler := handler.NewAuditHandler(auditRepo)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	origins := os.Getenv("CORS_ORIGINS")
	if origins == "" {
		origins = "http://localhost:5173,http://127.0.0.1:5173"
	}
	corsConfig.AllowOrigins = strings.Split(origins, ",")
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
	orgHandler.RegisterRoutes(router.Group(""))
	processHandler.RegisterRoutes(router.Group(""))
	signingHandler.RegisterRoutes(router.Group(""))
	paymentHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
