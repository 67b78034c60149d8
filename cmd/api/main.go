package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "erpadmin/api/swagger" // swagger docs
	"erpadmin/internal/auth"
	"erpadmin/internal/config"
	"erpadmin/internal/database"
	"erpadmin/internal/handler"
	"erpadmin/internal/lock"
	"erpadmin/internal/metrics"
	"erpadmin/internal/middleware"
	"erpadmin/internal/repository"
	"erpadmin/internal/service"
	"erpadmin/internal/websocket"
	"erpadmin/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// @title           erpadmin API
// @version         1.0
// @description     Back-office API for orders, exchanges, inventory and dispatches.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: "erpadmin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Console:     !cfg.App.LogJSON,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "server.exit", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// money leaves the API as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	db, err := database.NewConnection(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	logg.Info(ctx, "database.connected")

	var redisClient *redis.Client
	defer func() {
		err = multierr.Append(err, closeResources(db, redisClient))
	}()

	locker, redisClient, err := newLocker(ctx, cfg, logg)
	if err != nil {
		return err
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logg)
	go wsHub.Run(ctx)

	tokens := auth.NewTokens(cfg.JWT)
	m := metrics.New(prometheus.DefaultRegisterer)

	// Set up dependencies (Repository -> Service -> Handler)
	auditService := service.NewAuditService(repository.NewAuditRepository(db))
	infra := service.Infra{
		Tx:      repository.NewTransactionManager(db),
		Audit:   auditService,
		Locker:  locker,
		Events:  wsHub,
		Metrics: m,
		Log:     logg,
	}
	inventoryRepo := repository.NewInventoryRepository(db)
	taxService := service.NewTaxService(infra, repository.NewTaxRuleRepository(db))
	orderService := service.NewOrderService(infra, repository.NewOrderRepository(db), taxService)
	inventoryService := service.NewInventoryService(infra, inventoryRepo, repository.NewDefectRepository(db))
	dispatchService := service.NewDispatchService(infra, repository.NewDispatchRepository(db), inventoryRepo)
	userService := service.NewUserService(infra, repository.NewUserRepository(db), tokens)

	if cfg.Admin.Enabled() {
		if err := userService.EnsureAdmin(ctx, service.CreateUserRequest{
			Username: cfg.Admin.Username,
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
		}); err != nil {
			return fmt.Errorf("seeding admin: %w", err)
		}
	}

	if err := middleware.RegisterValidators(); err != nil {
		return err
	}
	authz := middleware.NewAuth(tokens, logg)

	if cfg.App.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(logg), middleware.Logging(logg, m))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-Id"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/ws", websocket.ServeWs(wsHub, tokens))

	// API Routing
	root := router.Group("")
	handler.NewUserHandler(userService, authz, int(cfg.JWT.TokenTTL.Seconds())).RegisterRoutes(root)
	handler.NewOrderHandler(orderService, authz).RegisterRoutes(root)
	handler.NewInventoryHandler(inventoryService, authz).RegisterRoutes(root)
	handler.NewDispatchHandler(dispatchService, authz).RegisterRoutes(root)
	handler.NewTaxHandler(taxService, authz).RegisterRoutes(root)
	handler.NewAuditHandler(auditService, authz).RegisterRoutes(root)

	srv := &http.Server{
		Addr:              cfg.App.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", srv.Addr), "server.listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "server.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLocker picks the Redis lock when Redis is configured, else the in-process one.
func newLocker(ctx context.Context, cfg *config.Config, logg *logger.Logger) (lock.Locker, *redis.Client, error) {
	if !cfg.Redis.Enabled() {
		logg.Info(ctx, "lock.local")
		return lock.NewLocal(cfg.Lock.WaitTimeout), nil, nil
	}
	client, err := lock.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	logg.Info(logg.WithField(ctx, "addr", cfg.Redis.Addr), "lock.redis")
	return lock.NewRedis(client, cfg.Lock), client, nil
}

func closeResources(db *gorm.DB, redisClient *redis.Client) error {
	var err error
	if redisClient != nil {
		err = multierr.Append(err, redisClient.Close())
	}
	return multierr.Append(err, database.Close(db))
}
