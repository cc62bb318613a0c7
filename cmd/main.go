package main

import (
	"community-platform/config"
	_ "community-platform/docs"
	"community-platform/internal/handler"
	"community-platform/internal/repository"
	"community-platform/internal/security"
	"community-platform/internal/service"
	"community-platform/internal/util"
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// @title Community platform API
// @version 1.0
// @description Аутентификация, сессии и управление пользователями

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	cleanup := flag.Bool("cleanup", false, "удалить просроченные refresh токены и завершить работу")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger, err := util.InitLogger(util.LoggerOptions{
		Level:       cfg.Logger.Level,
		Development: cfg.Logger.Development,
		File:        cfg.Logger.File,
		MaxSizeMB:   cfg.Logger.MaxSizeMB,
		MaxBackups:  cfg.Logger.MaxBackups,
	})
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := security.SetBcryptCost(cfg.Security.BcryptCost); err != nil {
		logger.Fatal("некорректная стоимость bcrypt", zap.Error(err))
	}

	db, err := config.SetupDatabase(ctx, &cfg.DatabaseConfig)
	if err != nil {
		logger.Fatal("не удалось подключиться к БД", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("ошибка при закрытии БД", zap.Error(err))
		}
	}()

	refreshTokenRepo := repository.NewRefreshTokenRepository()

	if *cleanup {
		deleted, err := refreshTokenRepo.DeleteExpired(ctx, db.DB)
		if err != nil {
			logger.Fatal("не удалось удалить просроченные токены", zap.Error(err))
		}
		logger.Info("просроченные refresh токены удалены", zap.Int64("count", deleted))
		return
	}

	redisClient, err := config.SetupRedis(&cfg.RedisConfig)
	if err != nil {
		logger.Fatal("ошибка подключения к Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("ошибка при закрытии Redis", zap.Error(err))
		}
	}()

	jwtService, err := security.NewJWTService(&cfg.JWT)
	if err != nil {
		logger.Fatal("ошибка создания JWT сервиса", zap.Error(err))
	}

	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository()
	resetRepo := repository.NewPasswordResetRepository()
	cacheRepo := repository.NewCacheRepository(redisClient, time.Duration(cfg.TTL.UserCache)*time.Second)

	authService := service.NewAuthenticationService(db.DB, txManager, userRepo, refreshTokenRepo, resetRepo, jwtService, cacheRepo)
	userService := service.NewUserService(db.DB, txManager, userRepo, refreshTokenRepo, cacheRepo)

	srv, router := config.SetupServer(&cfg.Server)

	routes := &handler.Routes{
		Auth:     handler.NewAuthenticationHandler(authService),
		Users:    handler.NewUserHandler(userService),
		Health:   handler.NewHealthHandler(db.DB),
		Verifier: jwtService,
		Options: handler.RouterOptions{
			AllowedOrigins:  cfg.Server.AllowedOrigins,
			AuthRateLimit:   cfg.Security.AuthRateLimit,
			RateLimitWindow: config.MustDuration(cfg.Security.RateLimitWindow),
		},
	}
	routes.Mount(router)

	runServer(ctx, srv, config.MustDuration(cfg.Server.ShutdownTimeout))
}

func runServer(ctx context.Context, server *http.Server, shutdownTimeout time.Duration) {
	serverErrors := make(chan error, 1)
	go func() {
		zap.L().Info("сервер запущен", zap.String("addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("ошибка работы сервера", zap.Error(err))
			return
		}
	case sig := <-signalChannel:
		zap.L().Info("получен сигнал остановки работы сервера", zap.String("signal", sig.String()))
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, shutdownTimeout)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		zap.L().Error("ошибка при остановке сервера", zap.Error(err))
	} else {
		zap.L().Info("сервер успешно остановлен")
	}
}
