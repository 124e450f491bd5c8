// Package main - titik masuk aplikasi REST API SIAKAD Enrollment Hub.
//
// Filosofi: "Satu Data, Satu Layanan" - satu sumber kebenaran untuk kursi
// mata kuliah, sehingga keputusan pendaftaran di hari tersibuk masa FRS
// tetap konsisten bagi mahasiswa, dosen wali, dan bagian akademik.
//
// Arsitektur mengikuti prinsip Clean Architecture dan DDD:
// - Domain: logika bisnis murni tanpa dependensi eksternal
// - Application: orkestrasi use case (Commands/Queries)
// - Infrastructure: repositori, relay surat, cache, event bus
// - Interface: REST API handlers
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/config"

	// Application layer
	"github.com/siakad-hub/siakad-enrollment-hub/internal/application/command"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/application/eventhandler"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/application/query"

	// Domain layer
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/notification"

	// Infrastructure layer
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/external/smtp"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/messaging"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/persistence/postgres"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/persistence/redis"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/service"

	// Interface layer
	httpserver "github.com/siakad-hub/siakad-enrollment-hub/internal/interface/http"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/interface/http/handlers"

	// Packages
	"github.com/siakad-hub/siakad-enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Konteks akar dengan kemungkinan pembatalan
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Jalankan aplikasi
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. MEMUAT KONFIGURASI
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. MENYIAPKAN LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting SIAKAD Enrollment Hub API",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// Lapisan interface HTTP memakai pkg/logger; lapisan aplikasi memakai slog.
	httpLog := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: true,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 3. KONEKSI BASIS DATA (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbCfg := postgres.Config{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}
	if cfg.Database.LogQueries {
		dbCfg.QueryLogger = log
	}
	dbConn, err := postgres.NewConnection(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	// Pastikan koneksi hidup
	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MENJALANKAN MIGRASI
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
	} else {
		appliedCount := 0
		for _, m := range status {
			if m.IsApplied {
				appliedCount++
			}
		}
		log.Info("migrations completed", "applied", appliedCount, "total", len(status))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. INISIALISASI REDIS (opsional)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		redisCache        *redis.Cache
		availabilityCache course.AvailabilityCache
	)

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")

		var rerr error
		if cfg.Redis.URL != "" {
			redisCache, rerr = redis.NewCacheFromURL(cfg.Redis.URL)
		} else {
			redisCfg := redis.DefaultConfig()
			redisCfg.Host = cfg.Redis.Host
			redisCfg.Port = cfg.Redis.Port
			redisCfg.Password = cfg.Redis.Password
			redisCfg.DB = cfg.Redis.DB
			redisCfg.PoolSize = cfg.Redis.PoolSize
			redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
			redisCfg.DialTimeout = cfg.Redis.DialTimeout
			redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
			redisCfg.WriteTimeout = cfg.Redis.WriteTimeout
			redisCache, rerr = redis.NewCache(redisCfg)
		}

		if rerr != nil {
			// Redis hanya akselerator sisi baca; API tetap berjalan tanpanya.
			log.Warn("failed to connect to Redis, caching disabled", "error", rerr)
			redisCache = nil
		} else {
			defer func() {
				log.Info("closing Redis connection...")
				_ = redisCache.Close()
			}()
			availabilityCache = redis.NewAvailabilityCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. INISIALISASI REPOSITORI
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	studentRepo := postgres.NewStudentRepository(dbConn)
	courseRepo := postgres.NewCourseRepository(dbConn)
	enrollmentLog := postgres.NewEnrollmentLogRepository(dbConn)
	transcriptRepo := postgres.NewTranscriptRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. INISIALISASI EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBusConfig.AsyncMode = true
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. INISIALISASI RELAY SURAT (SMTP)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing mail relay...")

	var (
		notifier   notification.Notifier
		mailClient *smtp.Client
	)

	if cfg.SMTP.Disabled || cfg.SMTP.Host == "" {
		// Mode pengembangan: surat hanya ditulis ke log.
		notifier = service.NewLogNotifier(log)
		log.Info("SMTP delivery disabled, using log notifier")
	} else {
		smtpCfg := smtp.DefaultClientConfig(cfg.SMTP.Host, cfg.SMTP.Port)
		smtpCfg.Username = cfg.SMTP.Username
		smtpCfg.Password = cfg.SMTP.Password
		smtpCfg.From = cfg.SMTP.From
		smtpCfg.FromName = cfg.SMTP.FromName
		smtpCfg.SendTimeout = cfg.SMTP.SendTimeout
		smtpCfg.MaxRetries = cfg.SMTP.MaxRetries
		smtpCfg.RetryBaseDelay = cfg.SMTP.RetryBaseDelay
		smtpCfg.RetryMaxDelay = cfg.SMTP.RetryMaxDelay
		smtpCfg.BreakerThreshold = cfg.SMTP.CircuitBreakerThreshold
		smtpCfg.BreakerTimeout = cfg.SMTP.CircuitBreakerTimeout
		smtpCfg.BreakerHalfOpenMax = cfg.SMTP.CircuitBreakerHalfOpenMax
		smtpCfg.Logger = log
		smtpCfg.Debug = cfg.App.Debug

		mailClient = smtp.NewClient(smtpCfg)
		notifier = mailClient
		log.Info("mail relay client initialized",
			"host", cfg.SMTP.Host,
			"port", cfg.SMTP.Port,
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. INISIALISASI APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	idGen := service.NewEnrollmentIDGenerator()
	creditPolicy := enrollment.NewStandardCreditPolicy()

	// Flag konfirmasi yang mati menurunkan surat ke log saja.
	enrollNotifier, dropNotifier := notifier, notifier
	if !cfg.Features.IsEnabled(config.FeatureNotifyEnrollConfirm, nil) {
		enrollNotifier = service.NewLogNotifier(log)
	}
	if !cfg.Features.IsEnabled(config.FeatureNotifyDropConfirm, nil) {
		dropNotifier = service.NewLogNotifier(log)
	}

	enrollCmd := command.NewEnrollCourseHandler(
		studentRepo, courseRepo, enrollNotifier, idGen, enrollmentLog, eventBus, log)
	dropCmd := command.NewDropCourseHandler(
		studentRepo, courseRepo, dropNotifier, enrollmentLog, eventBus, log)
	registerCmd := command.NewRegisterStudentHandler(studentRepo, eventBus)
	addCourseCmd := command.NewAddCourseHandler(courseRepo, eventBus)
	recordCompletionCmd := command.NewRecordCompletionHandler(
		studentRepo, courseRepo, transcriptRepo, eventBus)

	creditLimitQuery := query.NewValidateCreditLimitHandler(studentRepo, creditPolicy)
	studentRecordQuery := query.NewGetStudentRecordHandler(studentRepo, transcriptRepo, enrollmentLog)
	availabilityQuery := query.NewGetCourseAvailabilityHandler(courseRepo, availabilityCache)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. REGISTRASI EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	dispatcherCfg := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherCfg.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherCfg)
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))

	enrollmentChanged := eventhandler.NewOnEnrollmentChangedHandler(
		courseRepo,
		availabilityCache,
		log,
		eventhandler.DefaultEnrollmentChangedConfig(),
	)
	for _, eventType := range enrollmentChanged.EventTypes() {
		if err := dispatcher.Register(eventType, "on_enrollment_changed", enrollmentChanged.Handle); err != nil {
			return fmt.Errorf("failed to register event handler: %w", err)
		}
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping event dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("postgres", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("redis", handlers.NewCacheCheck(redisCache))
	}
	if mailClient != nil {
		healthChecker.AddCheck("smtp", handlers.NewMailRelayCheck(mailClient))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. PEMBUATAN HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	rateLimitPerMinute := cfg.HTTP.RateLimitPerMinute
	if !cfg.Features.IsEnabled(config.FeatureAPIRateLimit, nil) {
		rateLimitPerMinute = 0
	}

	// Limiter Redis menghitung lintas replika; tanpa Redis server memakai
	// limiter per proses bawaannya.
	var sharedRateLimiter handlers.RateLimiter
	if redisCache != nil && rateLimitPerMinute > 0 {
		sharedRateLimiter = handlers.NewRedisRateLimiter(
			redisCache.Client(),
			rateLimitPerMinute,
			time.Minute,
			httpLog,
		)
	}

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = rateLimitPerMinute
	httpConfig.APIKeyHeader = cfg.HTTP.APIKeyHeader
	httpConfig.AdminAPIKeyHash = cfg.HTTP.AdminAPIKeyHash

	httpDeps := httpserver.Dependencies{
		EnrollCourseHandler:          enrollCmd,
		DropCourseHandler:            dropCmd,
		RegisterStudentHandler:       registerCmd,
		AddCourseHandler:             addCourseCmd,
		RecordCompletionHandler:      recordCompletionCmd,
		ValidateCreditLimitHandler:   creditLimitQuery,
		GetStudentRecordHandler:      studentRecordQuery,
		GetCourseAvailabilityHandler: availabilityQuery,
		Logger:                       httpLog,
		HealthChecker:                healthChecker,
		RateLimiter:                  sharedRateLimiter,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 13. MENJALANKAN LAYANAN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting services...")
	errCh := httpServer.StartAsync()

	log.Info("SIAKAD Enrollment Hub API is running",
		"address", httpServer.Address(),
		"env", string(cfg.App.Environment),
		"redis_enabled", redisCache != nil,
		"smtp_enabled", mailClient != nil,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 14. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("http server error", "error", err)
			return err
		}
	case <-ctx.Done():
		log.Info("root context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	// Server HTTP berhenti menerima permintaan lebih dulu; dispatcher,
	// event bus, Redis dan database menyusul lewat defer.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger menyiapkan logging terstruktur sesuai konfigurasi observability.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		// Format teks untuk development (lebih mudah dibaca)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// JSON untuk production (lebih ramah agregator log)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("service", cfg.App.Name)
	slog.SetDefault(log)

	return log
}
