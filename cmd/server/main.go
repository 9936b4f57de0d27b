package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/markwinap/t3-antd-postgress-template/internal/command"
	"github.com/markwinap/t3-antd-postgress-template/internal/config"
	"github.com/markwinap/t3-antd-postgress-template/internal/handler"
	"github.com/markwinap/t3-antd-postgress-template/internal/query"
	"github.com/markwinap/t3-antd-postgress-template/internal/repository"
	"github.com/markwinap/t3-antd-postgress-template/shared/events"
	"github.com/markwinap/t3-antd-postgress-template/shared/middleware"
	sharedredis "github.com/markwinap/t3-antd-postgress-template/shared/redis"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis connection (view cache + event streaming), optional
	var cacheClient goredis.Cmdable
	var publisher command.EventPublisher
	if cfg.Redis.Enabled() {
		rdb, err := sharedredis.NewClient(ctx, sharedredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		cacheClient = rdb.Client
		publisher = events.NewPublisher(rdb.Client, cfg.Redis.StreamMaxLen)
	} else {
		log.Println("Redis not configured; view cache and user events disabled")
	}

	// --- CQRS wiring ---
	var (
		writeRepo command.UserWriter
		views     command.ViewCache
		readRepo  query.UserReader
	)
	switch cfg.Store.Driver {
	case config.StoreMemory:
		log.Println("Using in-memory user store; data is lost on restart")
		mem := repository.NewMemoryUserStore()
		writeRepo, views, readRepo = mem, mem, mem
	default:
		db := mustOpenDB(ctx, cfg.PG)
		defer db.Close()
		pgRead := repository.NewUserReadRepository(db, cacheClient, cfg.Redis.ViewTTL.Duration())
		writeRepo, views, readRepo = repository.NewUserWriteRepository(db), pgRead, pgRead
	}

	commandSvc := command.NewUserCommandService(writeRepo, views, publisher)
	querySvc := query.NewUserQueryService(readRepo)

	procedureHandler := handler.NewProcedureHandler(commandSvc, querySvc)
	apiHandler := handler.NewUserAPIHandler(commandSvc, querySvc, cfg.API.CollapseErrors)

	// Setup router
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(cors.New(corsConfig()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handler.RegisterRoutes(router, procedureHandler, apiHandler, middleware.AuthMiddleware([]byte(cfg.Auth.JWTSecret)))

	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	go func() {
		log.Printf("User service %s starting on port %s", cfg.App.Version, cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}

// corsConfig admits every origin and answers preflight with 200 for older
// clients that reject 204.
func corsConfig() cors.Config {
	return cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "HEAD", "PUT", "PATCH", "POST", "DELETE"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:             []string{"Content-Disposition", middleware.RequestIDHeader},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}
}

func mustOpenDB(ctx context.Context, pg config.PGConfig) *sql.DB {
	db, err := repository.Open(ctx, pg.DSN, pg.MaxConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if pg.Migrate {
		if err := repository.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}
	return db
}
