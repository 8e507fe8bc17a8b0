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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/background"
	"github.com/homekrypto/hkt-api/internal/config"
	"github.com/homekrypto/hkt-api/internal/database"
	"github.com/homekrypto/hkt-api/internal/handlers"
	middlewareCustom "github.com/homekrypto/hkt-api/internal/middleware"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/internal/repositories"
	"github.com/homekrypto/hkt-api/internal/routes"
	"github.com/homekrypto/hkt-api/internal/services"
	pkgauth "github.com/homekrypto/hkt-api/pkg/auth"
	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
	pkglogger "github.com/homekrypto/hkt-api/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Run schema migrations before opening the pool
	if err := database.Migrate(&cfg.Database); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	tokenRepo := repositories.NewOneTimeTokenRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)
	agentRepo := repositories.NewAgentRepository(db)
	agentPageRepo := repositories.NewAgentPageRepository(db)
	propertyRepo := repositories.NewPropertyRepository(db)
	hktRepo := repositories.NewTokenRepository(db)

	// Token manager and cookie policy
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.SessionExpiry,
		cfg.Auth.RememberMeExpiry,
	)
	cookieConfig := auth.NewCookieConfig(cfg.Server.Env)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// AWS SES email service and background mailer
	emailService, err := services.NewAWSSESEmailService(context.Background(), &cfg.Email, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}
	mailer := background.NewMailer(cfg.Email.QueueSize, cfg.Email.MaxRetries, logger)

	// Initialize services
	rateLimitService := services.NewRateLimitService(
		userRepo, loginAttemptRepo, cfg.Auth.MaxFailedLogins, cfg.Auth.LockoutWindow, logger)
	passwordService := services.NewPasswordService(
		db, userRepo, sessionRepo, tokenRepo, emailService, mailer,
		cfg.Auth.ResetTokenExpiry, cfg.Server.PublicBaseURL, auditLogger, logger)
	agentService := services.NewAgentService(
		agentRepo, agentPageRepo, emailService, mailer, cfg.Server.PublicBaseURL, auditLogger, logger)
	propertyService := services.NewPropertyService(propertyRepo, agentRepo, logger)
	adminService := services.NewAdminService(userRepo, emailService, mailer, auditLogger, logger)
	tokenService := services.NewTokenService(hktRepo, userRepo, auditLogger, logger)
	contactService := services.NewContactService(emailService, mailer, logger)

	// The auth and verification services reference each other: verification
	// dispatches the signup email, and a successful verify mints a session.
	var authService *services.AuthService
	verificationService := services.NewEmailVerificationService(
		db, userRepo, tokenRepo, services.SessionCreatorFunc(func(ctx context.Context, user *models.User, rememberMe bool, ipAddress, userAgent string) (string, time.Time, error) {
			return authService.CreateSession(ctx, user, rememberMe, ipAddress, userAgent)
		}),
		emailService, mailer, cfg.Auth.VerifyTokenExpiry, cfg.Server.PublicBaseURL, auditLogger, logger)
	authService = services.NewAuthService(
		userRepo, sessionRepo, tokenManager, rateLimitService, verificationService, auditLogger, logger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{}
	authHandler := handlers.NewAuthHandler(authService, passwordService, verificationService, cookieConfig, ipConfig, logger)
	agentHandler := handlers.NewAgentHandler(agentService)
	adminHandler := handlers.NewAdminHandler(agentService, adminService)
	propertyHandler := handlers.NewPropertyHandler(propertyService)
	tokenHandler := handlers.NewTokenHandler(tokenService)
	contactHandler := handlers.NewContactHandler(contactService)

	authenticator := auth.NewAuthenticator(tokenManager, sessionRepo, userRepo, cookieConfig, logger)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.Env)
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, agentHandler, adminHandler, propertyHandler, tokenHandler, contactHandler, authenticator, cfg.Auth.LoginRatePerMinute)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	mailer.Start(workerCtx)

	cleanupManager := background.NewCleanupManager(sessionRepo, tokenRepo, loginAttemptRepo, cfg.Auth.CleanupInterval, logger)
	cleanupManager.Start(workerCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	workerCancel()
	mailer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	// Check if admin already exists
	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	// Hash password
	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	// Create admin user
	admin := &models.User{
		Email:         adminEmail,
		PasswordHash:  hashedPassword,
		FirstName:     "Admin",
		LastName:      "User",
		Role:          models.RoleAdmin,
		EmailVerified: true,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
