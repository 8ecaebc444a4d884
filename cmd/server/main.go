package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	"order-tracking-service/internal/config"
	"order-tracking-service/internal/controller"
	"order-tracking-service/internal/middleware"
	"order-tracking-service/internal/rabbit"
	"order-tracking-service/internal/recognition"
	"order-tracking-service/internal/repository"
	"order-tracking-service/internal/service"
	"order-tracking-service/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("could not load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repository
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		slog.Error("could not open the order store", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	// Recognition
	pre := recognition.DefaultPreprocessor()
	pre.Rotate = cfg.Recognition.RotateVariants
	codes := recognition.NewService(
		recognition.BuildBackends(ctx, cfg.Recognition),
		recognition.WithPreprocessor(pre),
		recognition.WithTimeouts(cfg.Recognition.Timeout, cfg.Recognition.CallTimeout),
	)
	if !codes.Available() {
		slog.Warn("no recognition backend available; only hints and filenames will resolve codes")
	}

	// Services
	orderService := service.NewOrderService(repo, codes)
	authService := service.NewAuthService(cfg.AuthURL, cfg.OperatorToken)

	uploads, err := upload.NewStore(cfg.UploadDir, cfg.UploadURLPrefix)
	if err != nil {
		slog.Error("could not prepare the upload directory", "error", err)
		os.Exit(1)
	}

	// Router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics())
	r.MaxMultipartMemory = 32 << 20
	r.Static(cfg.UploadURLPrefix, uploads.Dir())
	controller.Register(r, controller.NewOrderController(orderService, uploads), middleware.AuthMiddleware(authService))

	// RabbitMQ
	if cfg.RabbitURL != "" {
		conn, err := amqp091.Dial(cfg.RabbitURL)
		if err != nil {
			slog.Error("could not connect to RabbitMQ", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			slog.Error("could not open a RabbitMQ channel", "error", err)
			os.Exit(1)
		}
		if err := rabbit.SetupConsumers(ctx, ch, orderService); err != nil {
			slog.Error("could not start consumers", "error", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		slog.Info("order tracking service listening", "port", cfg.Port, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}

func openRepository(ctx context.Context, cfg *config.Config) (service.OrderRepository, func(), error) {
	switch cfg.DBDriver {
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoOrderRepository(client.Database(cfg.MongoDBName))
		if err := repo.EnsureIndexes(connectCtx); err != nil {
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	case "postgres", "sqlite":
		var (
			db  *gorm.DB
			err error
		)
		if cfg.DBDriver == "postgres" {
			db, err = repository.OpenPostgres(cfg.PostgresDSN, 10)
		} else {
			db, err = repository.OpenSQLite(cfg.SQLitePath)
		}
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewGormOrderRepository(db)
		if err := repo.Migrate(); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repo, closeDB, nil
	}
	return nil, nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}
