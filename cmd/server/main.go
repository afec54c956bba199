package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storefront-auth/internal/config"
	"github.com/iliyamo/storefront-auth/internal/database"
	"github.com/iliyamo/storefront-auth/internal/handler"
	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/mail"
	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/queue"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/router"
	"github.com/iliyamo/storefront-auth/internal/service"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins

	cfg := config.Load()
	logger := logging.New(cfg.IsProduction())
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := map[string]handler.Pinger{}

	accounts, resets, db, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "store init failed", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		health["mysql"] = db
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn(ctx, "redis unavailable, rate limiting disabled")
	} else {
		defer rdb.Close()
		health["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	mailCfg := config.LoadMailConfig()
	sender := newSender(mailCfg)
	logger.Info(ctx, "mail transport selected", "transport", mailCfg.Transport)

	var domains service.DomainChecker = service.AllowAllDomains{}
	if cfg.CheckEmailMX {
		domains = service.MXChecker{}
	}
	issuer := utils.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTTL())

	accountSvc := &service.AccountService{
		Accounts:   accounts,
		Tokens:     issuer,
		Domains:    domains,
		BcryptCost: cfg.BcryptCost,
		Log:        logger.With("component", "accounts"),
	}
	otpSvc := &service.OTPService{
		Accounts: accounts,
		Mailer:   sender,
		TTL:      cfg.OTPTTL,
		Log:      logger.With("component", "otp"),
	}
	resetSvc := &service.ResetService{
		Accounts:   accounts,
		Resets:     resets,
		Mailer:     sender,
		TTL:        cfg.ResetTTL,
		URLBase:    cfg.ResetURLBase,
		BcryptCost: cfg.BcryptCost,
		Log:        logger.With("component", "reset"),
	}

	if cfg.AdminEmail != "" {
		if _, err := accountSvc.EnsureAdmin(ctx, service.RegisterInput{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		}); err != nil {
			logger.Error(ctx, "admin bootstrap failed", "err", err)
			os.Exit(1)
		}
	}

	e := newEcho(cfg, logger)
	router.RegisterRoutes(e, router.Deps{
		Auth:      handler.NewAuthHandler(accountSvc, otpSvc, logger),
		Reset:     handler.NewResetHandler(resetSvc, logger),
		Issuer:    issuer,
		RateLimit: rateLimiter(rdb, logger),
		Health:    health,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server listening", "env", cfg.Env, "port", cfg.Port, "store", cfg.Store)
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "shutdown failed", "err", err)
		}
		logger.Info(shutdownCtx, "server stopped")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server error", "err", err)
			os.Exit(1)
		}
	}
}

func openStores(ctx context.Context, cfg config.Config) (service.AccountStore, service.ResetStore, *sql.DB, error) {
	if cfg.Store == config.StoreMemory {
		accounts := repository.NewMemoryAccounts()
		return accounts, repository.NewMemoryResets(accounts), nil, nil
	}
	db, err := database.Open(ctx, database.Settings{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	return repository.NewAccountRepo(db), repository.NewResetRepo(db), db, nil
}

func newSender(c config.MailConfig) mail.Sender {
	if c.Transport == config.MailTransportAMQP {
		return queue.NewPublisher(c.AMQPURL, c.Queue)
	}
	return mail.NewSMTPSender(mail.SMTPSettingsFrom(c))
}

func rateLimiter(rdb *redis.Client, logger logging.Logger) echo.MiddlewareFunc {
	if rdb == nil {
		return nil
	}
	return middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.With("component", "ratelimit"))
}

func newEcho(cfg config.Config, logger *logging.SlogLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}
			logger.Slog().LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.ClientOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomw.Secure())
	e.Use(echomw.Gzip())
	e.Use(echomw.BodyLimit("64K"))
	return e
}
