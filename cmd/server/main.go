package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/adiwibawa/emailgate/internal/api"
	"github.com/adiwibawa/emailgate/internal/app"
	"github.com/adiwibawa/emailgate/internal/app/maintenance"
	iauth "github.com/adiwibawa/emailgate/internal/auth"
	"github.com/adiwibawa/emailgate/internal/database"
	"github.com/adiwibawa/emailgate/internal/gateway"
	"github.com/adiwibawa/emailgate/internal/services"
	"github.com/adiwibawa/emailgate/pkg/logger"
	"github.com/adiwibawa/emailgate/pkg/mail"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("emailgate-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	redirector, err := gateway.NewRedirector(gateway.Config{
		IP:       cfg.Gateway.IP,
		Username: cfg.Gateway.Username,
		Password: cfg.Gateway.Password,
		DstURL:   cfg.Gateway.DstURL,
	})
	if err != nil {
		return fmt.Errorf("initialise gateway redirector: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return fmt.Errorf("initialise mailer: %w", err)
	}

	notifier, err := services.NewVerificationMailer(mailer, cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("initialise verification mailer: %w", err)
	}

	policy := services.Policy(strings.ToLower(strings.TrimSpace(cfg.Verification.Policy)))
	admission, err := services.NewAdmissionService(db, policy, notifier,
		services.WithTokenTTL(cfg.Verification.TokenTTL),
	)
	if err != nil {
		return fmt.Errorf("initialise admission service: %w", err)
	}

	deps := api.Deps{
		DB:             db,
		Admission:      admission,
		Redirector:     redirector,
		MetricsEnabled: cfg.Monitoring.Prometheus.Enabled,
	}

	if cfg.Google.ClientID != "" {
		redirectURL := strings.TrimRight(cfg.BaseURL, "/") + "/auth/google/callback"
		verifier, err := iauth.NewGoogleVerifier(ctx, iauth.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  redirectURL,
			Issuer:       cfg.Google.Issuer,
		})
		if err != nil {
			return fmt.Errorf("initialise google verifier: %w", err)
		}
		deps.Verifier = verifier
	} else {
		log.Info("google login disabled; no client id configured")
	}

	if cfg.Dashboard.Password != "" {
		if cfg.Dashboard.SessionSecret == "" {
			return errors.New("dashboard.session_secret must be configured when the dashboard is enabled")
		}

		deps.Reports, err = services.NewReportService(db)
		if err != nil {
			return fmt.Errorf("initialise report service: %w", err)
		}

		deps.Sessions, err = iauth.NewSessionService(iauth.SessionConfig{
			Secret: cfg.Dashboard.SessionSecret,
			TTL:    cfg.Dashboard.SessionTTL,
		})
		if err != nil {
			return fmt.Errorf("initialise session service: %w", err)
		}

		deps.AdminPassword = cfg.Dashboard.Password
	} else {
		log.Info("dashboard disabled; no admin password configured")
	}

	deps.Credentials, err = services.NewCredentialLogService(db)
	if err != nil {
		return fmt.Errorf("initialise credential log service: %w", err)
	}

	sweeper := maintenance.NewSweeper(db, maintenance.WithSchedule(cfg.Verification.SweepSchedule))
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start maintenance sweep: %w", err)
	}
	defer func() {
		stopCtx := sweeper.Stop()
		if err := sweeper.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown sweep failed", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(deps)
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr), zap.String("policy", string(policy)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
		dbCfg.SSLMode = strings.TrimSpace(cfg.Database.Postgres.SSLMode)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
