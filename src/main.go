package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"abby-ai-server/src/configs"
	"abby-ai-server/src/configs/database"
	coreassistant "abby-ai-server/src/core/assistant"
	"abby-ai-server/src/core/auth"
	"abby-ai-server/src/core/functions"
	"abby-ai-server/src/core/lock"
	"abby-ai-server/src/core/metrics"
	"abby-ai-server/src/core/utils"
	_ "abby-ai-server/src/docs"
	"abby-ai-server/src/httpsvr/app"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// @title Abby AI Server API
// @version 1.0
// @description Companion assistant backend for elderly users
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "config.yaml", "config file path")
	flag.Parse()

	config, path, err := configs.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", path, err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(&utils.LogCfg{
		LogLevel: config.Log.LogLevel,
		LogDir:   config.Log.LogDir,
		LogFile:  config.Log.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.Info("config loaded from %s", path)
	logger.Debug("effective config:\n%s", config.ToString())

	if err := run(config, logger); err != nil {
		logger.Error("server exited: %v", err)
		os.Exit(1)
	}
}

func run(config *configs.Config, logger *utils.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(config.DB, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	var redisClient redis.UniversalClient
	var locker lock.Locker = lock.NewLocalLocker()
	if config.RedisCache.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.RedisCache.Addr,
			Password: config.RedisCache.Password,
			DB:       config.RedisCache.DB,
		})
		defer redisClient.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", config.RedisCache.Addr, err)
		}
		locker = lock.NewRedisLocker(redisClient, "abby:lock:")
		logger.Info("redis connected: %s", config.RedisCache.Addr)
	} else {
		logger.Warn("redis disabled, thread locks are process local")
	}

	authToken, err := auth.NewAuthToken(config.JWT.Key, config.JWT.Issuer, time.Duration(config.JWT.ExpireHours)*time.Hour)
	if err != nil {
		return err
	}

	if config.Assistant.APIKey == "" || config.Assistant.AssistantID == "" {
		logger.Warn("assistant api key or assistant id missing, runs will fail")
	}
	client := coreassistant.NewOpenAIClient(config.Assistant, config.PollInterval(), logger)

	tools := coreassistant.NewToolRegistry()
	tools.Register(functions.UltraShortForecastName, functions.NewForecastClient(config.Weather).Tool())

	var m *metrics.Metrics
	if config.Metrics.Enabled {
		m = metrics.NewMetrics()
	}

	svc := app.NewAppService(config, logger, app.Deps{
		DB:        db,
		Redis:     redisClient,
		Client:    client,
		Tools:     tools,
		Locker:    locker,
		AuthToken: authToken,
		Metrics:   m,
	})
	engine := svc.NewEngine()
	svc.Start(ctx, engine, engine.Group("/api"))

	srv := &http.Server{
		Addr:              config.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		// let in-flight runs finish their bookkeeping
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.RunTimeout()+5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
