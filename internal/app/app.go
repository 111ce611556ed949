package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "rentalhub/docs"
	"rentalhub/internal/config"
	"rentalhub/internal/handlers"
	"rentalhub/internal/middleware"
	"rentalhub/internal/realtime"
	"rentalhub/internal/repositories"
	"rentalhub/internal/routes"
	"rentalhub/internal/services"
)

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("schema applied")
	return nil
}

// Run serves HTTP and websocket traffic until ctx is cancelled, then drains
// connections and pending notifications.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// === DB ===
	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("close database", zap.Error(err))
		}
	}()

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	chatRepo := repositories.NewChatRepository(db)

	// === Services ===
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	userService := services.NewUserService(userRepo, authService, cfg.Auth.RefreshTTL, log.Named("users"))
	chatService := services.NewChatService(chatRepo, userRepo)

	var dispatcher services.Dispatcher = services.LogDispatcher{Log: log.Named("push")}
	if cfg.Push.Enabled {
		dispatcher = services.NewPushService(cfg.Push.Endpoint, cfg.Push.AccessToken, cfg.Push.Timeout)
	}
	var emailFallback services.EmailFallback
	if cfg.Email.Enabled {
		emailFallback = services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
		)
	}
	notifications := services.NewNotificationService(userRepo, dispatcher, emailFallback,
		cfg.Gateway.NotifyTimeout, log.Named("notify"))

	// === Realtime ===
	gateway := realtime.NewGateway(cfg.Gateway, chatService, notifications,
		realtime.NewPresenceRegistry(), log.Named("gateway"))

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, presence mirror writes will fail", zap.Error(err))
		}
		gateway.WithMirror(realtime.NewRedisPresenceMirror(rdb, cfg.Redis.PresenceTTL))
		go gateway.RunPresenceRefresh(bgCtx, cfg.Redis.PresenceTTL/2)
	}

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService, gateway)
	chatHandler := handlers.NewChatHandler(chatService, gateway)
	wsHandler := handlers.NewWSHandler(gateway, authService, cfg.Gateway, log.Named("ws"))

	// === Gin ===
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log.Named("http")))
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, authService, authHandler, userHandler, chatHandler, wsHandler)

	// === Run ===
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not tracked by http.Server
	gateway.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	stopBackground()
	if err := notifications.Wait(shutdownCtx); err != nil {
		log.Warn("pending notifications abandoned", zap.Error(err))
	}
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
