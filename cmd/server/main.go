package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruralpay/pointsledger/docs"
	"github.com/ruralpay/pointsledger/internal/audit"
	"github.com/ruralpay/pointsledger/internal/config"
	"github.com/ruralpay/pointsledger/internal/database"
	"github.com/ruralpay/pointsledger/internal/handlers"
	"github.com/ruralpay/pointsledger/internal/logging"
	mW "github.com/ruralpay/pointsledger/internal/middleware"
	"github.com/ruralpay/pointsledger/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Points Ledger API
// @version 1.0
// @description Points ledger and hold engine
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	envFile := flag.String("env", ".env", "path to the .env configuration file")
	skipMigrations := flag.Bool("skip-migrations", false, "do not apply schema migrations on start")
	purgeIdempotency := flag.Bool("purge-idempotency", false, "delete expired idempotency records and exit")
	dispatchOutbox := flag.Bool("dispatch-outbox", false, "publish pending outbox events and exit")
	flag.Parse()

	// Initialize config
	configErr := config.Init(*envFile)

	logger := logging.MustNew(viper.GetString("log.level"), viper.GetBool("log.development"))
	defer logger.Sync()

	if configErr != nil {
		logger.Info("config file not found, using environment and defaults", zap.Error(configErr))
	}

	ledgerConfig := config.LoadLedgerConfig()

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Points Ledger API"
	docs.SwaggerInfo.Description = "Points ledger and hold engine"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.BasePath = "/api/v1"

	ctx := context.Background()

	// Initialize services
	dbConfig := database.GetConfig()
	db, err := database.InitDB(ctx, dbConfig, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if !*skipMigrations {
		if err := database.RunMigrations(db, dbConfig.Name, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient := database.InitRedis(ctx, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	balanceCache := services.NewBalanceCache(redisClient, ledgerConfig.BalanceCacheTTL, logger.Named("cache"))
	pointsService := services.NewPointsService(db, balanceCache, ledgerConfig, logger)

	if *purgeIdempotency {
		if _, err := pointsService.PurgeIdempotencyRecords(ctx, time.Now().UTC()); err != nil {
			logger.Fatal("failed to purge idempotency records", zap.Error(err))
		}
		return
	}

	if *dispatchOutbox {
		publisher := audit.NewPublisher(redisClient, viper.GetString("outbox.channel"), logger.Named("audit"))
		batchSize := max(viper.GetInt("outbox.batch_size"), 1)
		for {
			delivered, err := pointsService.DispatchOutbox(ctx, batchSize, publisher.Publish)
			if err != nil {
				logger.Fatal("failed to dispatch outbox", zap.Error(err))
			}
			logger.Info("dispatched outbox events", zap.Int("count", delivered))
			if delivered < batchSize {
				return
			}
		}
	}

	pointsHandler := handlers.NewPointsHandler(pointsService, logger)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.IdempotencyKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)
			r.Route("/points", pointsHandler.Routes)
		})
	})

	port := viper.GetString("server.port")

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
