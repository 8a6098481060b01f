package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mahalbangetid-beep/scb-sub002/config"
	"github.com/mahalbangetid-beep/scb-sub002/internal/api"
	"github.com/mahalbangetid-beep/scb-sub002/internal/database"
	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/pkg/logger"
)

// @title scb-sub002 API
// @version 1.0
// @description Credit ledger and subscription billing backend for messaging bots.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := logger.New(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := connectDatabase(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("failed to migrate database", zap.Error(err))
	}

	// Redis is optional: without it the denylist and user cache degrade to
	// no-ops, which is fine for development.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = database.ConnectRedis(cfg)
		if err != nil {
			zapLogger.Warn("redis unavailable, running without token denylist and user cache", zap.Error(err))
			redisClient = nil
		}
	}

	users := services.NewUserService(db, redisClient, zapLogger)
	denylist := services.NewTokenDenylistService(redisClient)
	activity := services.NewActivityLogger(zapLogger)
	resources := services.NewLoggingResourceManager(zapLogger)
	rates := services.NewRateService(db, cfg, zapLogger)
	credit := services.NewCreditService(db, rates, activity, cfg, zapLogger)
	ledger := services.NewLedgerService(db)
	vouchers := services.NewVoucherService(db, credit, zapLogger)
	subscriptions := services.NewSubscriptionService(db, credit, resources, activity, cfg, zapLogger)
	scheduler := services.NewRenewalScheduler(subscriptions, activity, cfg, zapLogger)

	seedAdminUser(users, zapLogger)

	// The scheduler has no clock of its own; this ticker is it.
	go func() {
		ticker := time.NewTicker(cfg.SchedulerInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := scheduler.RunPass(); err != nil && err != services.ErrPassInProgress {
				zapLogger.Error("scheduled renewal pass failed", zap.Error(err))
			}
		}
	}()

	router := api.NewRouter(api.Deps{
		Config:        cfg,
		Logger:        zapLogger,
		Users:         users,
		Denylist:      denylist,
		Credit:        credit,
		Rates:         rates,
		Ledger:        ledger,
		Vouchers:      vouchers,
		Subscriptions: subscriptions,
		Scheduler:     scheduler,
	})

	addr := ":" + getPort()
	zapLogger.Info("starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("failed to run server", zap.Error(err))
	}
}

// connectDatabase prefers postgres and falls back to an on-disk sqlite file
// when no DB host is configured, so a bare checkout runs out of the box.
func connectDatabase(cfg *config.Config, zapLogger *zap.Logger) (*gorm.DB, error) {
	if cfg.DBHost != "" {
		return database.Connect(cfg.DSN())
	}
	path := os.Getenv("SQLITE_PATH")
	if path == "" {
		path = "data/billing.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	zapLogger.Info("no DB_HOST configured, using sqlite", zap.String("path", path))
	return database.ConnectSQLite(path)
}

func getPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

func seedAdminUser(users *services.UserService, zapLogger *zap.Logger) {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return
	}

	if _, err := users.Register(username, password); err != nil {
		if err == services.ErrUserAlreadyExists {
			return
		}
		zapLogger.Warn("failed to seed admin user", zap.Error(err))
		return
	}
	zapLogger.Info("admin user created", zap.String("username", username))
}
