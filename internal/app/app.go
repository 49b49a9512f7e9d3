package app

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/clock"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/delivery/kafka/consumer"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/delivery/rabbitmq"
	pgInfra "github.com/vogiaan1904/ticketbottle-reservation/internal/infra/postgres"
	redisInfra "github.com/vogiaan1904/ticketbottle-reservation/internal/infra/redis"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository/memory"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/repository/postgres"
	redisRepo "github.com/vogiaan1904/ticketbottle-reservation/internal/repository/redis"
	"github.com/vogiaan1904/ticketbottle-reservation/internal/service"
	pkgKafka "github.com/vogiaan1904/ticketbottle-reservation/pkg/kafka"
	pkgLog "github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

// App holds the wired engine and everything that must be closed on exit.
type App struct {
	Components service.Components
	Engine     service.Engine
	Consumer   *consumer.Consumer
	Clock      clock.Clock

	closers []func()
}

// New connects storage, the sweep lock and the notifier selected by cfg.
// The Kafka consumer is built only when withConsumer is set and Kafka is
// enabled.
func New(ctx context.Context, cfg *config.Config, l pkgLog.Logger, withConsumer bool) (*App, error) {
	a := &App{Clock: clock.NewSystem()}

	store, err := a.store(ctx, cfg, l)
	if err != nil {
		a.Close()
		return nil, err
	}

	var locker service.Locker
	if cfg.Storage.Driver == config.StorageDriverPostgres {
		cli, err := redisInfra.Connect(ctx, cfg.Redis, l)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { redisInfra.Disconnect(context.Background(), cli, l) })
		locker = redisRepo.NewRedisLockRepository(cli, l)
	}

	notifier, err := a.notifier(ctx, cfg, l)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Components = service.NewComponents(store, notifier, locker, a.Clock, cfg.Reservation, l)
	a.Engine = service.NewEngine(a.Components)

	if withConsumer && cfg.Kafka.Enabled {
		consGr, err := pkgKafka.NewConsumer(ctx, cfg.Kafka, l)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Consumer = consumer.NewConsumer(consGr, a.Engine, cfg.Kafka, l)
		a.closers = append(a.closers, func() {
			if err := a.Consumer.Close(); err != nil {
				l.Warnf(context.Background(), "app.Close: kafka consumer: %v", err)
			}
		})
	}

	return a, nil
}

func (a *App) store(ctx context.Context, cfg *config.Config, l pkgLog.Logger) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		l.Warn(ctx, "Using in-memory storage, state is lost on restart")
		return memory.New(), nil
	case config.StorageDriverPostgres:
		pool, err := pgInfra.Connect(ctx, cfg.Postgres, l)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { pgInfra.Disconnect(context.Background(), pool, l) })
		return postgres.NewStore(pool, l), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
}

func (a *App) notifier(ctx context.Context, cfg *config.Config, l pkgLog.Logger) (service.NotificationPort, error) {
	switch cfg.Notification.Driver {
	case config.NotifyDriverLog:
		return service.NewLogNotifier(l), nil
	case config.NotifyDriverRabbitMQ:
		pub, err := rabbitmq.NewPublisher(cfg.Notification.RabbitMQURL, cfg.Notification.Queue, a.Clock, l)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := pub.Close(); err != nil {
				l.Warnf(context.Background(), "app.Close: rabbitmq: %v", err)
			}
		})
		l.Infof(ctx, "Publishing notifications to RabbitMQ queue %s", cfg.Notification.Queue)
		return pub, nil
	case config.NotifyDriverKafka:
		sp, err := pkgKafka.NewProducer(ctx, cfg.Kafka, l)
		if err != nil {
			return nil, err
		}
		return a.kafkaNotifier(sp, l), nil
	default:
		return nil, fmt.Errorf("unknown notification driver: %q", cfg.Notification.Driver)
	}
}

func (a *App) kafkaNotifier(sp sarama.SyncProducer, l pkgLog.Logger) service.NotificationPort {
	prod := producer.NewProducer(sp, a.Clock, l)
	a.closers = append(a.closers, func() {
		if err := prod.Close(); err != nil {
			l.Warnf(context.Background(), "app.Close: kafka producer: %v", err)
		}
	})
	return prod
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
