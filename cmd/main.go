package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"accessos/cmd/buildCFG"
	"accessos/internal/api/api"
	"accessos/internal/checkin"
	"accessos/internal/consumerWorker"
	"accessos/internal/mailer"
	"accessos/internal/rabbit"
	"accessos/internal/repo"
	"accessos/internal/service"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "'"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)
	accessCfg := buildCFG.BuildAccessConfig(cfg, &log)

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Msgf("failed to connect to DB: %v", err)
	}
	if err := db.Master.Ping(); err != nil {
		log.Fatal().Msgf("DB ping failed: %v", err)
	}
	log.Info().Msg("Database connected successfully")

	repository, err := repo.NewRepository(db, &log, repo.Options{
		StoreTimeout: accessCfg.StoreTimeout,
		ReadRetry:    accessCfg.ReadRetry,
	})
	if err != nil {
		log.Fatal().Msgf("failed to initialize repository: %v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot get working directory")
	}
	migrationPath := filepath.Join(cwd, "migrations/postgres")
	if err := repository.MigrateUp(migrationPath); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("Migrations applied successfully")

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}
	rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
	if err != nil {
		log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rmq.Close()

	mailCfg := buildCFG.BuildMailConfig(cfg)
	mailer.Configure(mailCfg.Host, mailCfg.Port, mailCfg.From, mailCfg.Password)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())

	scanReader := consumerWorker.NewReader(rmq, repository)
	scanReader.Start(workerCtx)

	processor := checkin.NewProcessor(repository, repository, repository, rmq, checkin.Policy{
		LazyProvision: accessCfg.LazyProvision,
		DefaultCap:    accessCfg.DefaultCap,
	}, &log)

	serviceInstance := service.NewService(repository, processor, &log, accessCfg.DefaultCap)
	app := api.NewRouters(&api.Routers{Service: serviceInstance})

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := app.Run(":" + serverCfg.Port); err != nil {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	cancelWorkers()
	scanReader.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if closer, ok := interface{}(app).(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(shutdownCtx); err != nil {
			log.Error().Msgf("Error shutting down server: %v", err)
		}
	}

	log.Info().Msg("Shutdown complete")
}
