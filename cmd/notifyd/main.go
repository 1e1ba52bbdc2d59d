package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifykit/modules/notifications"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/notifier"
	"github.com/dmitrymomot/notifykit/pkg/notify"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/queue"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/router"
	"github.com/dmitrymomot/notifykit/pkg/sender"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

type appConfig struct {
	// Environment toggles dev conveniences: text logs and a filesystem
	// email sender instead of Postmark.
	Environment string `env:"NOTIFYD_ENV" envDefault:"development"`

	// RedisEnabled turns on the cross-instance fan-out bridge.
	RedisEnabled bool `env:"NOTIFYD_REDIS_ENABLED" envDefault:"false"`

	// DirectoryURL is the base URL of the recipient directory service.
	DirectoryURL string `env:"NOTIFYD_DIRECTORY_URL,required"`

	// SeedFile is an optional YAML file with templates to upsert on boot.
	SeedFile string `env:"NOTIFYD_SEED_FILE"`

	// DevEmailDir is where the development email sender writes messages.
	DevEmailDir string `env:"NOTIFYD_DEV_EMAIL_DIR" envDefault:"./outbox"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app appConfig
	if err := config.Load(&app); err != nil {
		return err
	}

	var logOpt logger.Option
	if app.Environment == "production" {
		logOpt = logger.WithProduction("notifyd")
	} else {
		logOpt = logger.WithDevelopment("notifyd")
	}
	log := logger.New(logOpt)
	logger.SetAsDefault(log)

	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	probes := []func(context.Context) error{pg.Healthcheck(pool)}

	notifStorage := notification.NewPostgresStorage(pool)
	storages := notifier.Storages{
		Templates:     template.NewPostgresStore(pool),
		Bindings:      router.NewPostgresBindingStore(pool),
		Queue:         queue.NewPostgresStorage(pool),
		Log:           dispatcher.NewPostgresLogStore(pool),
		Notifications: notifStorage,
		Preferences:   notifStorage,
	}

	var notifierCfg notifier.Config
	if err := config.Load(&notifierCfg); err != nil {
		return err
	}

	opts := []notifier.Option{
		notifier.WithLogger(log),
		notifier.WithConfig(notifierCfg),
	}

	senders, err := buildSenders(app, log)
	if err != nil {
		return err
	}
	opts = append(opts, notifier.WithSenders(senders...))

	if app.RedisEnabled {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		opts = append(opts, notifier.WithRedis(client))
		probes = append(probes, redis.Healthcheck(client))
	}

	engine, err := notifier.NewEngine(storages, newHTTPDirectory(app.DirectoryURL), opts...)
	if err != nil {
		return err
	}

	if app.SeedFile != "" {
		f, err := os.Open(app.SeedFile)
		if err != nil {
			return fmt.Errorf("seed file: %w", err)
		}
		err = engine.SeedTemplates(ctx, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("seed templates: %w", err)
		}
		log.InfoContext(ctx, "templates seeded", slog.String("file", app.SeedFile))
	}

	svc, err := notifications.NewService(engine, notifications.WithLogger(log))
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log, probes...))
	r.Mount("/notifications", svc.Handle())

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx, r) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("notifyd stopped")
	return nil
}

func buildSenders(app appConfig, log *slog.Logger) ([]notify.Sender, error) {
	var senders []notify.Sender

	var emailCfg sender.EmailConfig
	if err := config.Load(&emailCfg); err != nil {
		return nil, err
	}
	if emailCfg.PostmarkServerToken != "" {
		s, err := sender.NewEmailSender(emailCfg)
		if err != nil {
			return nil, fmt.Errorf("email sender: %w", err)
		}
		senders = append(senders, s)
	} else if app.Environment != "production" {
		senders = append(senders, sender.NewDevEmailSender(app.DevEmailDir))
		log.Warn("postmark token not set, writing emails to disk",
			slog.String("dir", app.DevEmailDir))
	}

	var smsCfg sender.SMSConfig
	if err := config.Load(&smsCfg); err != nil {
		return nil, err
	}
	if smsCfg.AccountSID != "" {
		s, err := sender.NewSMSSender(smsCfg)
		if err != nil {
			return nil, fmt.Errorf("sms sender: %w", err)
		}
		senders = append(senders, s)
	}

	var imCfg sender.InstantConfig
	if err := config.Load(&imCfg); err != nil {
		return nil, err
	}
	if imCfg.GatewayURL != "" {
		s, err := sender.NewInstantSender(imCfg)
		if err != nil {
			return nil, fmt.Errorf("instant sender: %w", err)
		}
		senders = append(senders, s)
	}

	return senders, nil
}
