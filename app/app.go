// Package app wires configuration, storage and notifiers into a Controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"carolinalumpers.com/clockin/clockin"
	"carolinalumpers.com/clockin/config"
	"carolinalumpers.com/clockin/core"
	"carolinalumpers.com/clockin/infrastructure/appsheet"
	"carolinalumpers.com/clockin/infrastructure/cache"
	"carolinalumpers.com/clockin/infrastructure/communication"
	"carolinalumpers.com/clockin/infrastructure/devops"
	"carolinalumpers.com/clockin/infrastructure/lock"
	"carolinalumpers.com/clockin/infrastructure/messaging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const defaultSQLiteDSN = "file:clockin.db?_busy_timeout=5000"

// App is the main application that wires together all components.
type App struct {
	Config     *config.Config
	DB         *core.DatabaseManager
	Workers    *core.WorkerDirectory
	Records    *core.RecordStore
	Controller *clockin.Controller
	// Syncer is nil unless AppSheet is configured.
	Syncer   *appsheet.Syncer
	Registry *prometheus.Registry
	Logger   *slog.Logger

	publisher *messaging.Publisher
}

// New opens the database and builds the controller. Optional integrations
// are enabled by their configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, dsn, err := resolveDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	dm, err := core.New(driver, dsn, cfg.Database.MaxConnections, core.ParseLogLevel(cfg.Database.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{
		Config:   cfg,
		DB:       dm,
		Workers:  core.NewWorkerDirectory(dm),
		Records:  core.NewRecordStore(dm),
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var notifiers clockin.Notifiers
	var alerter clockin.Alerter

	if cfg.AppSheet.Enabled() {
		client := appsheet.NewClient(cfg.AppSheet.URL, cfg.AppSheet.AppID, cfg.AppSheet.APIKey, cfg.AppSheet.Table)
		client.ClockIns = client.ClockIns.WithTimezone(cfg.Clockin.Timezone)
		a.Syncer = appsheet.NewSyncer(client, a.Records, logger.With(slog.String("component", "appsheet")))
		notifiers = append(notifiers, a.Syncer)
	}
	if cfg.Slack.Enabled() {
		s := communication.NewSlack(cfg.Slack.BotToken, communication.SlackOption{
			InfoChannelID:  cfg.Slack.InfoChannelID,
			ErrorChannelID: cfg.Slack.ErrorChannelID,
		})
		notifiers = append(notifiers, s)
		alerter = s
	}
	if cfg.NATS.URL != "" {
		p, err := messaging.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			dm.Close()
			return nil, err
		}
		a.publisher = p
		notifiers = append(notifiers, p)
	}

	opts := cfg.ControllerOptions()
	deps := clockin.Dependencies{
		Workers: a.Workers,
		Store:   a.Records,
		Locker:  lock.NewKeyedLock(),
		Cache:   cache.NewSubmissionGuard(opts.SubmissionTTL, time.Minute),
		Alerter: alerter,
		Metrics: clockin.NewMetrics(a.Registry),
		Logger:  logger,
	}
	if len(notifiers) > 0 {
		deps.Notifier = notifiers
	}

	a.Controller, err = clockin.NewController(opts, deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func resolveDatabase(ctx context.Context, db config.DatabaseConfig) (driver, dsn string, err error) {
	switch {
	case db.DSN != "":
		return db.Driver, db.DSN, nil
	case db.Name != "":
		return devops.ResolveDSN(ctx, db.Name)
	case db.Driver == "sqlite":
		return db.Driver, defaultSQLiteDSN, nil
	}
	return "", "", errors.New("database: set DSN, or DB_NAME to look it up in SSM")
}

// Close waits for outstanding notifications, then releases connections.
func (a *App) Close() error {
	if a.Controller != nil {
		a.Controller.Wait()
	}
	if a.publisher != nil {
		a.publisher.Close()
	}
	return a.DB.Close()
}
