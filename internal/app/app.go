// Package app assembles the store, cache and services shared by the binaries.
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/appointments"
	"github.com/Ritika1223/jensieBackend/internal/auth"
	"github.com/Ritika1223/jensieBackend/internal/cache"
	"github.com/Ritika1223/jensieBackend/internal/config"
	"github.com/Ritika1223/jensieBackend/internal/db"
	"github.com/Ritika1223/jensieBackend/internal/doctorschedule"
	"github.com/Ritika1223/jensieBackend/internal/handlers"
	"github.com/Ritika1223/jensieBackend/internal/notifications"
	"github.com/Ritika1223/jensieBackend/internal/slots"
	"github.com/Ritika1223/jensieBackend/internal/store"
	"github.com/Ritika1223/jensieBackend/internal/store/memstore"
	"github.com/Ritika1223/jensieBackend/internal/store/mongostore"
	"github.com/Ritika1223/jensieBackend/internal/unavailability"
)

const connectTimeout = 10 * time.Second

func NewLogger(service string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(h).With("service", service)
}

type App struct {
	Cfg            *config.Config
	Log            *slog.Logger
	Store          *store.Store
	Cache          cache.Cache
	JWT            *auth.Manager
	Unavailability *unavailability.Registry
	Materializer   *slots.Materializer
	Labels         *slots.LabelIndex
	Availability   *slots.Availability
	Appointments   *appointments.Service
	Schedules      *doctorschedule.Service
	Checks         map[string]handlers.ReadinessCheck

	closers []func(context.Context) error
}

// Build connects the configured backends and wires the services on top of
// them. Callers must Close the returned App.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log, Checks: map[string]handlers.ReadinessCheck{}}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if err := a.openCache(ctx); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}

	if cfg.JWTSecret != "" {
		a.JWT = &auth.Manager{
			Secret:    []byte(cfg.JWTSecret),
			AccessTTL: cfg.AccessTTL(),
			Issuer:    "jensie-backend",
		}
	} else {
		log.Info("jwt auth disabled")
	}

	loc := cfg.Timezone
	a.Labels = slots.NewLabelIndex(a.Cache, a.Store.Slots, cfg.CacheTTL(), log)

	a.Unavailability = unavailability.NewRegistry(a.Store, loc, log)
	a.Unavailability.SetInvalidator(a.Labels)

	a.Materializer = slots.NewMaterializer(a.Store, a.Unavailability, loc, log, cfg.MaxGenerateDays)
	a.Materializer.SetInvalidator(a.Labels)

	a.Availability = slots.NewAvailability(a.Store.Slots, a.Unavailability, loc)

	a.Appointments = appointments.NewService(a.Store, a.Unavailability, loc, log)
	a.Appointments.SetInvalidator(a.Labels)
	a.Appointments.SetNotifyTimeout(cfg.NotifyTimeout())
	a.Appointments.SetNotifier(a.dispatcher())

	a.Schedules = doctorschedule.NewService(a.Store, a.Materializer, loc, log)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	if a.Cfg.StoreDriver == config.StoreDriverMemory {
		a.Store = memstore.New()
		a.Log.Info("memory store enabled")
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, cols, err := db.Connect(connectCtx, a.Cfg.MongoURI, a.Cfg.MongoDB)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, client.Disconnect)
	a.Log.Info("mongo connected", slog.String("db", a.Cfg.MongoDB))

	if err := db.EnsureIndexes(connectCtx, cols); err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}

	a.Store = mongostore.New(client, cols)
	a.Checks["mongo"] = func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
	return nil
}

func (a *App) openCache(ctx context.Context) error {
	cfg := a.Cfg
	if cfg.RedisURL == "" && cfg.RedisAddr == "" {
		if cfg.StoreDriver == config.StoreDriverMemory {
			a.Cache = cache.NewMemory()
		} else {
			a.Cache = cache.NewNoop()
		}
		return nil
	}

	var redisCache *cache.RedisCache
	if cfg.RedisURL != "" {
		var err error
		redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			return err
		}
	} else {
		redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		_ = redisCache.Close()
		return err
	}
	a.Log.Info("redis connected")

	a.closers = append(a.closers, func(context.Context) error { return redisCache.Close() })
	a.Checks["redis"] = redisCache.Ping
	a.Cache = redisCache
	return nil
}

func (a *App) dispatcher() *notifications.Dispatcher {
	cfg := a.Cfg

	var mailer notifications.Mailer
	if brevo := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox); brevo != nil {
		mailer = brevo
		a.Log.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	} else {
		a.Log.Info("brevo mailer disabled")
	}

	var events notifications.EventPublisher
	if kafka := notifications.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic); kafka != nil {
		events = kafka
		a.closers = append(a.closers, func(context.Context) error { return kafka.Close() })
		a.Log.Info("kafka events enabled", slog.String("topic", cfg.KafkaTopic))
	} else {
		a.Log.Info("kafka events disabled")
	}

	return notifications.NewDispatcher(mailer, events, a.Log)
}

// Close waits for in-flight notifications, then releases backends in
// reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	if a.Appointments != nil {
		a.Appointments.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
