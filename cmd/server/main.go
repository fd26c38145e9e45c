package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/diewo77/procurement/auth"
	"github.com/diewo77/procurement/internal/cache"
	"github.com/diewo77/procurement/internal/config"
	"github.com/diewo77/procurement/internal/db"
	"github.com/diewo77/procurement/internal/middleware"
	"github.com/diewo77/procurement/internal/notify"
	"github.com/diewo77/procurement/internal/policy"
	"github.com/diewo77/procurement/internal/services"
	"github.com/diewo77/procurement/internal/storage"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func setupLogging(cfg *config.Config) {
	if cfg.App.Dev {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		log.WithField("level", cfg.App.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}
	setupLogging(cfg)

	dbConn, err := db.Connect(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}

	seed := func() error {
		return db.Seed(context.Background(), dbConn, db.SeedOptions{
			AdminEmail:    cfg.App.AdminEmail,
			AdminPassword: cfg.App.AdminPassword,
		})
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn, cfg.Database, cfg.App.Migrations); err != nil {
			log.WithError(err).Fatal("migrate")
		}
		log.Info("migrations completed")
		return
	}
	if *seedOnlyFlag {
		if err := seed(); err != nil {
			log.WithError(err).Fatal("seed")
		}
		log.Info("seed completed")
		return
	}

	if err := db.Migrate(dbConn, cfg.Database, cfg.App.Migrations); err != nil {
		log.WithError(err).Fatal("migrate")
	}
	if cfg.App.Seed {
		if err := seed(); err != nil {
			log.WithError(err).Fatal("seed")
		}
	}

	opts := []auth.Option{auth.WithSecureCookie(cfg.Auth.SecureCookie)}
	if cfg.Redis.Addr != "" {
		rdb, err := cache.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Fatal("connect redis")
		}
		defer func() {
			if err := cache.DisconnectRedis(rdb); err != nil {
				log.WithError(err).Warn("close redis")
			}
		}()
		opts = append(opts, auth.WithRevoker(cache.NewTokenRevoker(rdb)))
	} else {
		log.Warn("REDIS_ADDR not set, logout will not revoke tokens")
	}

	var blobs storage.Blob
	if cfg.Storage.Endpoint != "" {
		s := cfg.Storage
		blobs, err = storage.NewMinIO(context.Background(), s.Endpoint, s.AccessKey, s.SecretKey, s.Bucket, s.UseSSL)
		if err != nil {
			log.WithError(err).Fatal("connect object storage")
		}
	} else {
		log.Warn("MINIO_ENDPOINT not set, documents are kept in memory")
		blobs = storage.NewMemory()
	}

	notifier, err := notify.New(notify.NewMailer(cfg.Mail), cfg.Mail.From, cfg.App.BaseURL)
	if err != nil {
		log.WithError(err).Fatal("load email templates")
	}

	users := services.NewUserService(dbConn)
	opts = append(opts, auth.WithVerifier(users.Exists))
	sessions := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, opts...)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	defer limiter.Stop()

	rc := newRouterConfig(routerDeps{
		DB:         dbConn,
		Notifier:   notifier,
		Blobs:      blobs,
		AuthGate:   policy.NewAuthGate(dbConn, cfg.Auth.RoleCacheTTL),
		Sessions:   sessions,
		Limiter:    limiter,
		Company:    cfg.App.CompanyName,
		AdminEmail: cfg.App.AdminEmail,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewApp(dbConn, rc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithFields(log.Fields{"port": cfg.Server.Port, "dev": cfg.App.Dev, "driver": cfg.Database.Driver}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("server stopped")
}
