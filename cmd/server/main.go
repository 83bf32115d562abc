package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"health-report-agent/internal/agent"
	"health-report-agent/internal/config"
	"health-report-agent/internal/consultation"
	"health-report-agent/internal/extraction"
	"health-report-agent/internal/logging"
	"health-report-agent/internal/platform/telegram"
	"health-report-agent/internal/report"
)

const dbAttempts = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.Configure(cfg.Logging)

	// 1. Infrastructure
	repo := consultation.NewMemoryRepository()
	db, err := connectDB(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Warn("could not connect to DB, keeping consultations in memory")
	} else {
		defer db.Close()
		runMigrations(cfg.MigrationsURL, cfg.DatabaseURL, log)
		repo = consultation.NewRepository(db)
		log.Info("connected to database")
	}

	// 2. Clients
	aiClient := agent.NewDeepSeekClient(agent.Config{
		APIKey:       cfg.DeepSeek.APIKey,
		BaseURL:      cfg.DeepSeek.BaseURL,
		Model:        cfg.DeepSeek.Model,
		SystemPrompt: cfg.Prompts.System,
	}, log.WithField("component", "agent"))
	sttClient := agent.NewWhisperClient(cfg.STT.URL)

	var tgClient report.TelegramClient
	if cfg.Telegram.Token != "" {
		tgClient = telegram.NewClient(cfg.Telegram.Token)
	}
	if tgClient == nil || cfg.Telegram.DoctorChatID == 0 {
		log.Warn("TELEGRAM_BOT_TOKEN or DOCTOR_CHAT_ID is not set, reports will not be sent to a doctor")
	}

	// 3. Services
	engine, err := report.NewEngine(cfg.Report.Engine, report.FontSet{
		Regular: cfg.Report.FontPath,
		Bold:    cfg.Report.BoldFont,
		Italic:  cfg.Report.ItalicFont,
	})
	if err != nil {
		log.WithError(err).Fatal("report engine init failed")
	}
	renderer := report.NewRenderer(engine, cfg.Report.OutputDir, log.WithField("component", "renderer"))
	classifier := extraction.NewClassifier(cfg.Keywords, cfg.Limits)
	reportSvc := report.NewService(
		classifier,
		renderer,
		report.AssembleOptions{Disclaimer: cfg.Prompts.Disclaimer},
		tgClient,
		cfg.Telegram.DoctorChatID,
		log.WithField("component", "report"),
	)

	consultationSvc := consultation.NewService(repo, aiClient, sttClient, reportSvc, log.WithField("component", "consultation"))
	consultationHandler := consultation.NewHandler(consultationSvc, consultation.ReportErrors{
		InvalidInput: report.ErrInvalidInput,
		RenderFault:  report.ErrRenderFault,
	}, log.WithField("component", "http"))

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		consultation.RegisterRoutes(r, consultationHandler)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

func connectDB(dsn string, log logrus.FieldLogger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	for i := 1; i <= dbAttempts; i++ {
		if err = db.Ping(); err == nil {
			return db, nil
		}
		log.WithField("attempt", i).Info("waiting for DB")
		time.Sleep(2 * time.Second)
	}
	db.Close()
	return nil, err
}

func runMigrations(source, dsn string, log logrus.FieldLogger) {
	m, err := migrate.New(source, dsn)
	if err != nil {
		log.WithError(err).Error("migration init failed")
		return
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.WithError(err).Error("migration up failed")
		return
	}
	log.Info("migrations applied")
}

// cors allows the browser frontend served from another origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Report-Delivery")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
