// Command registryd runs the oracle registry as a standalone process: an
// admin HTTP API, a live event feed, and a cron-driven sweeper, backed by
// either the in-memory store or PostgreSQL. Load config, construct the
// service, wire transports, block on signal.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/oraclenet/registry/cmd/registryd/httpapi"
	"github.com/oraclenet/registry/cmd/registryd/sweeper"
	"github.com/oraclenet/registry/domain/oracle"
	"github.com/oraclenet/registry/eventstream"
	"github.com/oraclenet/registry/pkg/config"
	"github.com/oraclenet/registry/pkg/logger"
	"github.com/oraclenet/registry/registry"
	"github.com/oraclenet/registry/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	store, closeStore := mustStore(cfg, log)
	defer closeStore()

	if err := ensureParameters(store, cfg); err != nil {
		log.WithField("err", err).Fatal("failed to bootstrap parameters")
	}

	var backend eventstream.Backend
	if cfg.Events.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.Events.RedisAddr})
		backend = eventstream.NewRedisBackend(client, cfg.Events.RedisChannel)
	}
	publisher := eventstream.New(log, backend)

	svc := registry.New(store, log, registry.WithEventSink(publisher))
	throttle := registry.NewThrottle(registry.DefaultThrottleConfig())

	sweep := sweeper.New(store, svc, log, "")
	sweep.Start()
	defer sweep.Stop()

	api := httpapi.New(httpapi.Config{
		Service:  svc,
		Throttle: throttle,
		Events:   publisher,
		Log:      log,
	})

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: api.Handler()}

	go func() {
		log.WithField("addr", addr).Info("registryd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithField("err", err).Fatal("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func mustStore(cfg *config.Config, log *logger.Logger) (storage.Store, func()) {
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		log.Info("no database configured, using in-memory store")
		return storage.NewMemoryStore(oracle.Parameters{}), func() {}
	}

	dsn := cfg.Database.DSN
	if dsn == "" {
		dsn = cfg.Database.ConnectionString()
	}
	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		log.WithField("err", err).Fatal("failed to open database")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	if _, err := db.Exec(storage.Schema); err != nil {
		log.WithField("err", err).Fatal("failed to apply schema")
	}
	return storage.NewPostgresStore(db), func() { _ = db.Close() }
}

// ensureParameters seeds store's Parameters row from cfg.Params on first
// boot. If a Parameters row already exists (e.g. a restart against durable
// Postgres storage), the stored value wins.
func ensureParameters(store storage.Store, cfg *config.Config) error {
	ctx := context.Background()
	existing, err := store.GetParameters(ctx)
	if err == nil && existing.AdminChain != "" {
		return nil
	}
	params, err := cfg.Params.ToParameters()
	if err != nil {
		return err
	}
	return store.PutParameters(ctx, params)
}
