package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elbp_record_service/internal/app"
	"elbp_record_service/internal/domain/notify"
	"elbp_record_service/internal/domain/schema"
	"elbp_record_service/internal/infra/audit"
	"elbp_record_service/internal/infra/config"
	idb "elbp_record_service/internal/infra/database"
	"elbp_record_service/internal/infra/logger"
	"elbp_record_service/internal/infra/mis"
	infranotify "elbp_record_service/internal/infra/notify"
	"elbp_record_service/internal/infra/scheduler"
	infraschema "elbp_record_service/internal/infra/schema"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()

	// One-shot subcommands share the serve wiring below.
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "serve":
		serve(cfg, db)
	case "import-metrics", "import-profiles":
		if len(os.Args) < 3 {
			log.Fatalf("Usage: elbp %s <file.csv>", cmd)
		}
		runImport(cfg, db, cmd, os.Args[2])
	case "alert-scan":
		runScan(cfg, db)
	default:
		log.Fatalf("Unknown command %q (expected serve, import-metrics, import-profiles or alert-scan)", cmd)
	}
}

// application is the composition root the serve command assembles: every
// service wired against shared storage, the notification channel and the
// loaded form schemas. Record and comment services are the API consumed by
// the record-entry front end.
type application struct {
	records  *app.RecordService
	comments *app.CommentService
	alerts   *app.AlertService
	cleanup  func()
}

func serve(cfg *config.AppConfig, db *sql.DB) {
	log := logger.Get()
	log.Infof("ELBP record service starting. LogLevel: %s, Environment: %s, NotifyChannel: %s", cfg.LogLevel, cfg.Environment, cfg.NotifyChannel)

	elbp := buildApplication(cfg, db)
	defer elbp.cleanup()
	lockRepo := idb.NewPostgresJobLockRepository(db)

	alertScheduler := scheduler.NewAlertScheduler(elbp.alerts, lockRepo, log, cfg.CronSpecAlertRun)
	alertScheduler.Start()
	log.Info("Application setup complete.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	alertScheduler.Stop()
	log.Info("Application shut down gracefully.")
}

func runImport(cfg *config.AppConfig, db *sql.DB, cmd, path string) {
	log := logger.Get()
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Could not open %s: %v", path, err)
	}
	defer f.Close()

	studentRepo := idb.NewPostgresStudentRepository(db)
	metricRepo := idb.NewPostgresMetricRepository(db)
	importService := app.NewImportService(studentRepo, metricRepo, cfg.ImportAutoProvision, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var result *app.ImportResult
	if cmd == "import-metrics" {
		result, err = importService.ImportMetrics(ctx, f)
	} else {
		result, err = importService.ImportProfileFields(ctx, f)
	}
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	for _, rowErr := range result.Errors {
		log.Warnf("Import error at %s", rowErr.String())
	}
	log.Infof("Import done: %d row(s) imported, %d errored.", result.Imported, result.Errored)
}

func runScan(cfg *config.AppConfig, db *sql.DB) {
	log := logger.Get()
	elbp := buildApplication(cfg, db)
	defer elbp.cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	queued, err := elbp.alerts.RunAll(ctx)
	if err != nil {
		log.Fatalf("Alert scan failed: %v", err)
	}
	log.Infof("Alert scan completed, %d alert(s) queued.", queued)
}

// buildApplication wires the service layer: form schemas (startup fails on an
// invalid schema file), notifier channel, metric source (live MIS view when
// configured, imported values otherwise) and the services themselves. The
// cleanup closes the MIS handle when one was opened.
func buildApplication(cfg *config.AppConfig, db *sql.DB) *application {
	log := logger.Get()

	forms, err := infraschema.LoadDir(cfg.SchemaDir)
	if err != nil {
		log.Fatalf("Could not load form schemas: %v", err)
	}
	log.Infof("Loaded %d form schema(s) from %s.", len(forms), cfg.SchemaDir)

	recordRepo := idb.NewPostgresRecordRepository(db)
	commentRepo := idb.NewPostgresCommentRepository(db)
	alertRepo := idb.NewPostgresAlertRepository(db)
	studentRepo := idb.NewPostgresStudentRepository(db)
	metricRepo := idb.NewPostgresMetricRepository(db)

	var notifier notify.Notifier
	switch cfg.NotifyChannel {
	case "email":
		notifier = infranotify.NewEmailNotifier(cfg.SendgridAPIKey, "ELBP", cfg.NotifyFromEmail, cfg.NotifyToEmail, log)
	case "telegram":
		notifier, err = infranotify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("Could not create Telegram notifier: %v", err)
		}
	default:
		notifier = infranotify.NewConsoleNotifier(log)
	}
	log.Infof("Notifier initialized (channel: %s).", cfg.NotifyChannel)

	cleanup := func() {}
	var metricSource app.MetricSource
	if cfg.MISDatabaseURL != "" {
		mapFile, err := mis.LoadMapFile(cfg.MISMapFile)
		if err != nil {
			log.Fatalf("Could not load MIS field map %s: %v", cfg.MISMapFile, err)
		}
		// MIS_VIEW_NAME overrides the map file's view.
		view := cfg.MISViewName
		if view == "" {
			view = mapFile.View
		}
		if view == "" {
			log.Fatalf("MIS database configured but no view named (set MIS_VIEW_NAME or view: in %s)", cfg.MISMapFile)
		}
		misDB, err := mis.Connect(cfg.MISDriver, cfg.MISDatabaseURL)
		if err != nil {
			log.Fatalf("Could not connect to MIS database: %v", err)
		}
		cleanup = func() { misDB.Close() }
		misClient := mis.NewClient(misDB, view, mis.NewMapper(mapFile.Fields), log)
		metricSource = app.NewMISMetricSource(misClient)
		log.Infof("MIS metric source initialized (view: %s).", view)
	} else {
		metricSource = app.NewLocalMetricSource(metricRepo)
		log.Info("Local metric source initialized (no MIS database configured).")
	}

	dedupWindow := time.Duration(cfg.AlertDedupWindowDays) * 24 * time.Hour
	return &application{
		records: app.NewRecordService(
			recordRepo, alertRepo, forms, schema.NewValidator(), notifier,
			audit.NewLogrusAuditLogger(log), log,
		),
		comments: app.NewCommentService(commentRepo, log),
		alerts:   app.NewAlertService(alertRepo, studentRepo, metricSource, notifier, dedupWindow, log),
		cleanup:  cleanup,
	}
}
