// Package main is the entrypoint for the XScan API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/xscan/xscan/internal/alert"
	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/cache"
	"github.com/xscan/xscan/internal/config"
	"github.com/xscan/xscan/internal/handler"
	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/notify"
	"github.com/xscan/xscan/internal/repository"
	"github.com/xscan/xscan/internal/security"
	"github.com/xscan/xscan/internal/server"
	"github.com/xscan/xscan/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	if cfg.MigrateOnStart {
		applied, err := repo.Migrate(ctx)
		if err != nil {
			logger.Error("failed to apply migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("migrations applied", slog.Int("count", len(applied)))
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	cipher, err := security.NewCipher(cfg.EncryptionKey)
	if err != nil {
		logger.Error("failed to initialize cipher", slog.String("error", err.Error()))
		os.Exit(1)
	}
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		logger.Error("failed to initialize token manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	enforcer, err := auth.NewEnforcer()
	if err != nil {
		logger.Error("failed to initialize RBAC", slog.String("error", err.Error()))
		os.Exit(1)
	}

	recorder := metrics.NewPrometheus()
	publisher := notify.NewPublisher(cacheClient.Client(), logger, recorder)

	svcs := &services{
		auth: service.NewAuthService(repo, cacheClient, tokens, cipher, publisher, service.AuthConfig{
			TOTPIssuer:  cfg.TOTPIssuer,
			FrontendURL: cfg.FrontendURL,
			ResetTTL:    cfg.PasswordResetTTL,
		}, logger, recorder),
		profile: service.NewProfileService(repo, cacheClient, publisher, logger),
		banks:   service.NewBankAccountService(repo, cipher, cfg.MaxBankAccounts),
		wallet: service.NewWalletService(repo, publisher, service.WalletConfig{
			Currency:      cfg.Currency,
			MaxDeposit:    cfg.MaxDepositAmount,
			MinWithdrawal: cfg.MinWithdrawalAmount,
		}, logger, recorder),
		donation: service.NewDonationService(repo, publisher, service.DonationConfig{
			Currency:  cfg.Currency,
			FeeBPS:    cfg.PlatformFeeBPS,
			MinAmount: cfg.MinDonationAmount,
			MaxAmount: cfg.MaxDonationAmount,
		}, logger, recorder),
		application:  service.NewApplicationService(repo, publisher, logger, recorder),
		admin:        service.NewAdminService(repo, cacheClient, cfg.StatsCacheTTL, logger, recorder),
		export:       service.NewExportService(repo, cfg.Currency),
		security:     service.NewSecurityService(cipher),
		notification: service.NewNotificationService(repo),
		overlay: service.NewOverlayService(repo, cipher, service.OverlayConfig{
			BaseURL:            cfg.BaseURL,
			Currency:           cfg.Currency,
			AlertAllowInsecure: cfg.AlertAllowInsecure,
		}, logger),
	}

	r := setupRouter(svcs, routerDeps{
		health: map[string]handler.HealthChecker{
			"postgres": repo,
			"redis":    cacheClient,
		},
		limiter:  cacheClient,
		enforcer: enforcer,
		recorder: recorder,
	}, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	if cfg.WorkersEnabled {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open alert database", slog.String("error", sanitizeError(err, cfg.DatabaseURL)))
			os.Exit(1)
		}
		defer db.Close()

		alertWorker := alert.NewWorker(alert.NewRepository(db), cipher, cfg.AlertAllowInsecure, logger, recorder)
		alertWorker.SetBatchSize(cfg.AlertBatchSize)
		alertWorker.SetPollInterval(cfg.AlertPollInterval)
		notifyWorker := notify.NewWorker(
			cacheClient.Client(),
			repo,
			notify.NewLogMailer(logger, cfg.IsDevelopment()),
			logger,
			notify.NewConsumerID(),
			recorder,
		)

		startWorker(ctx, logger, "notify", notifyWorker.Run)
		startWorker(ctx, logger, "alert", alertWorker.Run)
		srv.OnShutdown("notify-worker", notifyWorker.Shutdown)
		srv.OnShutdown("alert-worker", alertWorker.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"workers", cfg.WorkersEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func startWorker(ctx context.Context, logger *slog.Logger, name string, run func(context.Context) error) {
	go func() {
		if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("worker stopped", slog.String("worker", name), slog.String("error", err.Error()))
		}
	}()
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "xscan")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
