// Package main - titik masuk proses latar (Worker) SIAKAD Enrollment Hub.
//
// Worker bertanggung jawab atas tugas berkala:
// - Rekonsiliasi penghitung kursi terhadap log pendaftaran
// - Pemanasan cache ketersediaan mata kuliah
// - Pengiriman ringkasan pendaftaran harian ke bagian akademik
//
// Filosofi: "Satu Data, Satu Layanan" - Worker menjaga penghitung kursi
// dan cache tetap jujur, sehingga keputusan pendaftaran di API selalu
// berpijak pada angka yang sama dengan log pendaftaran.
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
	"github.com/siakad-hub/siakad-enrollment-hub/internal/application/eventhandler"

	// Domain layer
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/notification"

	// Infrastructure layer
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/external/smtp"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/messaging"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/persistence/postgres"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/persistence/redis"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/scheduler"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/scheduler/jobs"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/infrastructure/service"
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
	log.Info("starting SIAKAD Enrollment Hub Worker",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. KONEKSI BASIS DATA (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
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
	// 4. MENJALANKAN MIGRASI (Worker juga harus memakai skema terbaru)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

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
	courseRepo := postgres.NewCourseRepository(dbConn)
	enrollmentLog := postgres.NewEnrollmentLogRepository(dbConn)

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

	// Rekonsiliasi kursi menerbitkan event; handler ini membuang entri
	// cache ketersediaan yang ikut berubah.
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
	// 8. INISIALISASI RELAY SURAT (SMTP)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing mail relay...")

	var notifier notification.Notifier
	if cfg.SMTP.Disabled || cfg.SMTP.Host == "" {
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

		notifier = smtp.NewClient(smtpCfg)
		log.Info("mail relay client initialized",
			"host", cfg.SMTP.Host,
			"port", cfg.SMTP.Port,
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. PENDAFTARAN JOBS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering scheduled jobs...")

	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:        log,
		Timezone:      cfg.App.Location,
		EnableMetrics: true,
	})

	// Rekonsiliasi kursi: penghitung Enrolled harus sama dengan saldo log.
	if cfg.Features.IsEnabled(config.FeatureEnrollSeatReconcile, nil) {
		reconcileCfg := jobs.DefaultReconcileSeatsConfig()
		reconcileCfg.DryRun = cfg.Scheduler.ReconcileDryRun
		reconcileCfg.Timeout = cfg.Scheduler.JobTimeout

		reconcileJob := jobs.NewReconcileSeatsJob(courseRepo, enrollmentLog, eventBus, log, reconcileCfg)
		if err := sched.Register(reconcileJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ReconcileSeatsInterval)); err != nil {
			return fmt.Errorf("failed to register reconcile job: %w", err)
		}
		log.Info("registered job",
			"job", reconcileJob.Name(),
			"interval", cfg.Scheduler.ReconcileSeatsInterval.String(),
			"dry_run", reconcileCfg.DryRun,
		)
	} else {
		log.Info("seat reconciliation disabled by feature flag")
	}

	// Pemanasan cache ketersediaan hanya berarti kalau Redis hidup.
	if availabilityCache != nil {
		refreshCfg := jobs.DefaultRefreshAvailabilityConfig()
		refreshCfg.Timeout = cfg.Scheduler.JobTimeout

		refreshJob := jobs.NewRefreshAvailabilityJob(courseRepo, availabilityCache, log, refreshCfg)
		if err := sched.Register(refreshJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RefreshAvailabilityInterval)); err != nil {
			return fmt.Errorf("failed to register refresh job: %w", err)
		}
		log.Info("registered job",
			"job", refreshJob.Name(),
			"interval", cfg.Scheduler.RefreshAvailabilityInterval.String(),
		)
	} else {
		log.Info("availability cache refresh skipped, Redis disabled")
	}

	// Ringkasan harian untuk bagian akademik.
	digestCfg := jobs.DefaultEnrollmentDigestConfig()
	digestCfg.Enabled = cfg.Features.IsEnabled(config.FeatureNotifyDailyDigest, nil)
	digestCfg.Timezone = cfg.App.Location
	digestCfg.Timeout = cfg.Scheduler.JobTimeout
	if cfg.Scheduler.RegistrarEmail != "" {
		digestCfg.RegistrarEmail = cfg.Scheduler.RegistrarEmail
	}

	digestCron, err := scheduler.ParseCronExpression(
		fmt.Sprintf("%d %d * * *", cfg.Scheduler.DigestMinute, cfg.Scheduler.DigestHour))
	if err != nil {
		return fmt.Errorf("invalid digest schedule: %w", err)
	}

	digestJob := jobs.NewEnrollmentDigestJob(enrollmentLog, notifier, log, digestCfg)
	if err := sched.Register(digestJob, digestCron); err != nil {
		return fmt.Errorf("failed to register digest job: %w", err)
	}
	log.Info("registered job",
		"job", digestJob.Name(),
		"schedule", digestCron.String(),
		"enabled", digestCfg.Enabled,
		"recipient", digestCfg.RegistrarEmail,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. MENJALANKAN SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		for _, job := range sched.ListJobs() {
			log.Info("job scheduled",
				"job", job.Name,
				"schedule", job.Schedule,
				"next_run", job.NextRun.Format(time.RFC3339),
			)
		}
	} else {
		log.Warn("scheduler disabled, no periodic jobs will run")
	}

	log.Info("SIAKAD Enrollment Hub Worker is running",
		"timezone", cfg.App.Timezone,
		"redis_enabled", redisCache != nil,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("root context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	// Scheduler berhenti lebih dulu supaya tidak ada job baru; dispatcher,
	// event bus, Redis dan database menyusul lewat defer.
	if cfg.Scheduler.Enabled {
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler gracefully", "error", err)
		}
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
