package whale_alert_sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/redis/go-redis/v9"

	"github.com/JokingLove/whale-alert-sync/common/clock"
	"github.com/JokingLove/whale-alert-sync/config"
	"github.com/JokingLove/whale-alert-sync/database"
	"github.com/JokingLove/whale-alert-sync/emitter"
	"github.com/JokingLove/whale-alert-sync/feedclient"
	"github.com/JokingLove/whale-alert-sync/notifier"
	"github.com/JokingLove/whale-alert-sync/services"
	"github.com/JokingLove/whale-alert-sync/worker"
)

type WhaleAlertSync struct {
	DB *database.DB

	redis   *redis.Client
	emitter *emitter.KafkaEmitter

	poller       *worker.Poller
	whaleSync    *worker.WhaleSync
	statusServer *services.StatusServer

	shutdown context.CancelCauseFunc
	stopped  atomic.Bool
}

func NewWhaleAlertSync(ctx context.Context, cfg *config.Config, shutdown context.CancelCauseFunc) (*WhaleAlertSync, error) {
	out := &WhaleAlertSync{shutdown: shutdown}
	if err := out.initFromConfig(ctx, cfg); err != nil {
		return nil, errors.Join(err, out.Stop(ctx))
	}
	return out, nil
}

func (was *WhaleAlertSync) initFromConfig(ctx context.Context, cfg *config.Config) error {
	if err := was.initDB(ctx, cfg.MasterDB); err != nil {
		return fmt.Errorf("failed to init DB: %w", err)
	}
	if err := was.initPoller(ctx, cfg); err != nil {
		return fmt.Errorf("failed to init poller: %w", err)
	}
	was.whaleSync = worker.NewWhaleSync(was.poller, cfg.Poller.Interval, clock.SystemClock, was.shutdown)

	statusServer, err := services.NewStatusServer(was.DB, cfg.Server, was.whaleSync)
	if err != nil {
		return fmt.Errorf("failed to init status server: %w", err)
	}
	was.statusServer = statusServer
	return nil
}

func (was *WhaleAlertSync) initDB(ctx context.Context, cfg config.DBConfig) error {
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	was.DB = db
	if err := db.RunMigrations(cfg.Name); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (was *WhaleAlertSync) initPoller(ctx context.Context, cfg *config.Config) error {
	feed, err := feedclient.NewClient(cfg.Feed)
	if err != nil {
		return err
	}
	dispatcher, err := notifier.NewDispatcher(was.DB, cfg.Notifier, clock.SystemClock)
	if err != nil {
		return err
	}

	var lock worker.CycleLock = worker.NewLocalLock()
	if cfg.Redis.Url != "" {
		client, err := worker.NewRedisClient(ctx, cfg.Redis.Url)
		if err != nil {
			return err
		}
		was.redis = client
		lock = worker.NewRedisLock(client, cfg.Redis.LockKey, cfg.Redis.LockTTL)
		log.Info("using redis cycle lock", "key", cfg.Redis.LockKey, "ttl", cfg.Redis.LockTTL)
	}

	var events worker.Emitter
	if len(cfg.Kafka.Brokers) > 0 {
		was.emitter = emitter.NewKafkaEmitter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		events = was.emitter
		log.Info("publishing whale transactions to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	poller, err := worker.NewPoller(cfg.Poller, was.DB, feed, dispatcher, events, lock, clock.SystemClock)
	if err != nil {
		return err
	}
	was.poller = poller
	return nil
}

func (was *WhaleAlertSync) Start(ctx context.Context) error {
	if err := was.statusServer.Start(ctx); err != nil {
		return err
	}
	return was.whaleSync.Start()
}

// Stop closes everything that was initialised, in reverse order, and joins
// the errors.
func (was *WhaleAlertSync) Stop(ctx context.Context) error {
	var result error
	if was.statusServer != nil {
		if err := was.statusServer.Stop(ctx); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to stop status server: %w", err))
		}
	}
	if was.whaleSync != nil {
		if err := was.whaleSync.Close(); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to close whale sync: %w", err))
		}
	}
	if was.emitter != nil {
		if err := was.emitter.Close(); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to close kafka emitter: %w", err))
		}
	}
	if was.redis != nil {
		if err := was.redis.Close(); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if was.DB != nil {
		if err := was.DB.Close(); err != nil {
			result = errors.Join(result, fmt.Errorf("failed to close DB: %w", err))
		}
	}
	was.stopped.Store(true)
	log.Info("whale alert sync stopped")
	return result
}

func (was *WhaleAlertSync) Stopped() bool {
	return was.stopped.Load()
}
