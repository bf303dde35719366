package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/config"
	"github.com/xscan/xscan/internal/handler"
	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/middleware"
	"github.com/xscan/xscan/internal/service"
)

// services groups the service layer handed to the router.
type services struct {
	auth         *service.AuthService
	profile      *service.ProfileService
	banks        *service.BankAccountService
	wallet       *service.WalletService
	donation     *service.DonationService
	application  *service.ApplicationService
	admin        *service.AdminService
	export       *service.ExportService
	security     *service.SecurityService
	notification *service.NotificationService
	overlay      *service.OverlayService
}

// routerDeps are the infrastructure pieces the router needs besides services.
type routerDeps struct {
	health   map[string]handler.HealthChecker
	limiter  middleware.RateLimiter
	enforcer *auth.Enforcer
	recorder *metrics.PrometheusRecorder
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(svcs *services, deps routerDeps, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	h := handler.New()
	healthHandler := handler.NewHealthHandler(deps.health)
	authHandler := handler.NewAuthHandler(svcs.auth, logger)
	profileHandler := handler.NewProfileHandler(svcs.profile, logger)
	bankHandler := handler.NewBankAccountHandler(svcs.banks, logger)
	walletHandler := handler.NewWalletHandler(svcs.wallet, logger)
	donationHandler := handler.NewDonationHandler(svcs.donation, logger)
	applicationHandler := handler.NewApplicationHandler(svcs.application, logger)
	adminHandler := handler.NewAdminHandler(svcs.admin, logger)
	exportHandler := handler.NewExportHandler(svcs.export, logger)
	securityHandler := handler.NewSecurityHandler(svcs.security, logger)
	notificationHandler := handler.NewNotificationHandler(svcs.notification, logger)
	overlayHandler := handler.NewOverlayHandler(svcs.overlay, logger)

	authn := middleware.Auth(middleware.AuthConfig{
		Logger:        logger,
		Authenticator: svcs.auth,
	})
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        logger,
		Limiter:       deps.limiter,
		Enabled:       cfg.RateLimitEnabled,
		APIPerMinute:  cfg.RateLimitAPIPerMinute,
		AuthPerMinute: cfg.RateLimitAuthPerMinute,
	}
	apiLimit := middleware.RateLimitAPI(rateLimitCfg)
	authLimit := middleware.RateLimitAuth(rateLimitCfg)
	can := func(resource, action string) func(http.Handler) http.Handler {
		return middleware.Authorize(deps.enforcer, resource, action)
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	var recorder metrics.Recorder
	if deps.recorder != nil {
		recorder = deps.recorder
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	if deps.recorder != nil {
		r.Method(http.MethodGet, "/metrics", deps.recorder.Handler())
	}
	r.Get("/", h.Hello)

	// Public overlay feed; the token in the path is the credential.
	r.With(apiLimit).Get("/overlay/{token}/alerts", overlayHandler.Alerts)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authLimit)
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
				r.Post("/password/forgot", authHandler.ForgotPassword)
				r.Post("/password/reset", authHandler.ResetPassword)
			})
			r.Group(func(r chi.Router) {
				r.Use(authn, apiLimit)
				r.Post("/logout", authHandler.Logout)
				r.With(can(auth.ResourceProfile, "update")).Post("/password/change", authHandler.ChangePassword)
				r.With(can(auth.ResourceProfile, "update")).Post("/2fa/setup", authHandler.SetupTwoFactor)
				r.With(can(auth.ResourceProfile, "update")).Post("/2fa/enable", authHandler.EnableTwoFactor)
				r.With(can(auth.ResourceProfile, "update")).Post("/2fa/disable", authHandler.DisableTwoFactor)
			})
		})

		// Public profiles and discovery
		r.Group(func(r chi.Router) {
			r.Use(apiLimit)
			r.Get("/users/{username}", profileHandler.PublicProfile)
			r.Get("/streamers", profileHandler.SearchStreamers)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn, apiLimit)

			r.Route("/me", func(r chi.Router) {
				r.With(can(auth.ResourceProfile, "read")).Get("/", profileHandler.Me)
				r.With(can(auth.ResourceProfile, "update")).Patch("/", profileHandler.Update)
				r.With(can(auth.ResourceProfile, "delete")).Delete("/", profileHandler.Delete)
				r.With(can(auth.ResourceProfile, "read")).Get("/following", profileHandler.Following)
				r.With(can(auth.ResourceProfile, "followers")).Get("/followers", profileHandler.Followers)

				r.Route("/bank-accounts", func(r chi.Router) {
					r.Use(can(auth.ResourceWallet, "bank_accounts"))
					r.Get("/", bankHandler.List)
					r.Post("/", bankHandler.Create)
					r.Patch("/{id}", bankHandler.Update)
					r.Post("/{id}/default", bankHandler.SetDefault)
					r.Delete("/{id}", bankHandler.Delete)
				})

				r.With(can(auth.ResourceWallet, "read")).Get("/wallet", walletHandler.Wallet)
				r.With(can(auth.ResourceWallet, "read")).Get("/transactions", walletHandler.Transactions)
				r.With(can(auth.ResourceWallet, "deposit")).Post("/wallet/deposits", walletHandler.Deposit)
				r.With(can(auth.ResourceWithdrawals, "create")).Post("/wallet/withdrawals", walletHandler.Withdraw)

				r.With(can(auth.ResourceDonations, "read")).Get("/donations/sent", donationHandler.Sent)
				r.With(can(auth.ResourceDonations, "read")).Get("/donations/received", donationHandler.Received)

				r.Route("/obs-settings", func(r chi.Router) {
					r.Use(can(auth.ResourceOBS, "manage"))
					r.Get("/", overlayHandler.Settings)
					r.Put("/", overlayHandler.UpdateSettings)
					r.Post("/overlay-token/rotate", overlayHandler.RotateOverlayToken)
					r.Post("/webhook-secret/rotate", overlayHandler.RotateWebhookSecret)
				})

				r.Route("/notifications", func(r chi.Router) {
					r.Use(can(auth.ResourceNotifications, "manage"))
					r.Get("/", notificationHandler.List)
					r.Get("/unread-count", notificationHandler.UnreadCount)
					r.Post("/read-all", notificationHandler.MarkAllRead)
					r.Post("/{id}/read", notificationHandler.MarkRead)
				})
			})

			r.With(can(auth.ResourceProfile, "follow")).Post("/streamers/{username}/follow", profileHandler.Follow)
			r.With(can(auth.ResourceProfile, "follow")).Delete("/streamers/{username}/follow", profileHandler.Unfollow)
			r.With(can(auth.ResourceDonations, "create")).Post("/streamers/{username}/donations", donationHandler.Donate)

			r.Route("/streamer-applications", func(r chi.Router) {
				r.With(can(auth.ResourceApplications, "create")).Post("/", applicationHandler.Submit)
				r.With(can(auth.ResourceApplications, "read")).Get("/me", applicationHandler.Mine)
				r.With(can(auth.ResourceApplications, "delete")).Delete("/{id}", applicationHandler.Withdraw)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(can(auth.ResourceAdmin, "access"))

				r.Get("/dashboard", adminHandler.Dashboard)
				r.Get("/reports/fees", adminHandler.FeeReport)
				r.Get("/users", adminHandler.Users)
				r.Get("/users/{id}", adminHandler.User)
				r.Patch("/users/{id}", adminHandler.UpdateUser)
				r.Get("/transactions", walletHandler.AdminTransactions)
				r.Get("/exports/transactions", exportHandler.Transactions)
				r.Get("/exports/donations", exportHandler.Donations)

				r.Route("/withdrawals", func(r chi.Router) {
					r.Use(can(auth.ResourceWithdrawals, "review"))
					r.Get("/", walletHandler.Withdrawals)
					r.Post("/{id}/approve", walletHandler.ApproveWithdrawal)
					r.Post("/{id}/reject", walletHandler.RejectWithdrawal)
				})

				r.Route("/streamer-applications", func(r chi.Router) {
					r.Use(can(auth.ResourceApplications, "review"))
					r.Get("/", applicationHandler.List)
					r.Get("/{id}", applicationHandler.Get)
					r.Post("/{id}/review", applicationHandler.Review)
				})

				r.Route("/security", func(r chi.Router) {
					r.Use(can(auth.ResourceSecurity, "use"))
					r.Post("/encrypt", securityHandler.Encrypt)
					r.Post("/decrypt", securityHandler.Decrypt)
					r.Post("/hash", securityHandler.Hash)
					r.Post("/validate-card", securityHandler.ValidateCard)
					r.Post("/tokenize", securityHandler.Tokenize)
				})
			})
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
