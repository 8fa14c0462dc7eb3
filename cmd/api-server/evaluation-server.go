package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evaluations/db"
	"evaluations/db/migrations"
	"evaluations/internal/config"
	"evaluations/internal/cycle"
	"evaluations/internal/eligibility"
	"evaluations/internal/events"
	"evaluations/internal/handlers"
	"evaluations/internal/scheduler"
	"evaluations/internal/scoring"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	log, err := cfg.NewLogger()
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}

	if cfg.PostgresConn == "" {
		log.Fatal("POSTGRES_CONN env variable is not set")
	}
	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		log.Fatalf("Cannot connect to DB: %v", err)
	}
	defer dbConn.Close()

	if cfg.MigrationsEnabled {
		if err := migrations.Run(dbConn.DB); err != nil {
			log.Fatalf("migrations: %v", err)
		}
	}

	var publisher cycle.Publisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		p, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			log.Fatalf("events: %v", err)
		}
		defer p.Close()
		publisher = p
	}

	policy := eligibility.Policy{
		ExcludedSubjectBond: cfg.ExcludedSubjectBond,
		ExcludedRaterBond:   cfg.ExcludedRaterBond,
	}
	store := db.NewStorage(dbConn)
	generator := cycle.New(store, log,
		cycle.WithPolicy(policy),
		cycle.WithMaxChainDepth(cfg.MaxChainDepth),
		cycle.WithPublisher(publisher),
	)
	scorer := scoring.New(store, scoring.WithPolicy(policy))
	h := handlers.NewHandler(store, generator, scorer, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SchedulerEnabled {
		trigger := scheduler.NewTrigger(store, generator, log.WithField("component", "scheduler"))
		go trigger.Run(ctx, cfg.SchedulerInterval)
	}

	srv := &http.Server{Addr: cfg.ServerAddress, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
	}()

	log.Infof("Starting server on %s", cfg.ServerAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
