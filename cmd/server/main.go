package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"tillbook/internal/commons"
	"tillbook/internal/config"
	"tillbook/internal/infrastructure/logger"
	"tillbook/internal/infrastructure/mysql"
	"tillbook/internal/ledger"
	"tillbook/internal/product"
	"tillbook/internal/server"
)

const configFile = "config.yaml"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := commons.LoadConfigFile(configFile)
	if err != nil {
		cfg, err = config.Load()
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("database connected")

	if err := mysql.Bootstrap(db); err != nil {
		zapLogger.Fatal("bootstrapping schema", zap.Error(err))
	}
	if err := mysql.Seed(db); err != nil {
		zapLogger.Fatal("seeding sample data", zap.Error(err))
	}

	productCtrl := product.NewModule(db, zapLogger)
	ledgerCtrl := ledger.NewModule(db, cfg, zapLogger)

	router := server.NewRouter(productCtrl, ledgerCtrl, cfg.Server.AllowedOrigins, zapLogger)

	srv := server.New(cfg.Server, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
