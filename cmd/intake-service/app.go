package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"trialops/internal/broker"
	"trialops/internal/config"
	"trialops/internal/constants"
	"trialops/internal/intake"
	"trialops/internal/items"
	"trialops/internal/logger"
	"trialops/internal/rules"
	"trialops/internal/sla"
	"trialops/pkg/bootstrap"
	"trialops/pkg/health"
	"trialops/pkg/logging"
	"trialops/pkg/metrics"
	"trialops/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	service        *intake.Service
	handler        *intake.Handler
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("intake-service")
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := a.InitBroker("intake-service"); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initService(ctx); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, "intake-service")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterIntakeMetrics()
	metrics.RegisterBrokerMetrics()

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

func (a *App) initService(ctx context.Context) error {
	calendar, err := sla.NewCalendar(a.Config.Engine.CalendarFirstYear, a.Config.Engine.CalendarLastYear)
	if err != nil {
		return fmt.Errorf("failed to build business-day calendar: %w", err)
	}

	ruleService := rules.NewService(rules.NewRepository(a.db))
	itemService := items.NewService(items.NewRepository(a.db), ruleService, calendar)

	suppressionRepo := rules.NewSuppressionRepository(a.db)
	svc, err := intake.NewService(suppressionRepo, a.Config.Intake, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create intake service: %w", err)
	}

	if err := svc.ReloadRules(ctx); err != nil {
		initCtx := logging.WithServiceName(ctx, "intake-service")
		a.Logger.WarnwCtx(initCtx, "Failed to load initial suppression rules",
			"error", err,
		)
	}

	a.service = svc

	handlerOpts := []intake.HandlerOption{}
	if topic := a.Config.Broker.Kafka.ItemEventsTopic; topic != "" {
		handlerOpts = append(handlerOpts, intake.WithItemEvents(a.Producer, topic))
	}
	a.handler = intake.NewHandler(svc, itemService, a.Logger, handlerOpts...)
	return nil
}

func (a *App) initHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}
	if len(a.Config.Broker.Kafka.Brokers) > 0 {
		healthRegistry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	if a.Config.Broker.Kafka.ConfigUpdateTopic != "" {
		configConsumer := broker.NewConfigEventConsumer(a.Config.Broker.Kafka, "intake-service", a.Logger)
		defer configConsumer.Close()

		g.Go(func() error {
			configCtx := logging.WithServiceName(gCtx, "intake-service")
			a.Logger.InfowCtx(configCtx, "Starting config update event consumer",
				"topic", a.Config.Broker.Kafka.ConfigUpdateTopic,
			)
			return configConsumer.Consume(gCtx, a.handler.HandleConfigEvent)
		})
	}

	g.Go(func() error {
		return a.service.StartReloader(gCtx)
	})

	findingsTopic := a.Config.Broker.Kafka.FindingsTopic
	g.Go(func() error {
		return a.Consumer.Consume(gCtx, findingsTopic, a.handler.HandleFinding)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, "intake-service")
	a.Logger.InfowCtx(shutdownCtx, "Shutting down intake service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, nil, a.db)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
