package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/vogiaan1904/ticketbottle-reservation/config"
	"github.com/vogiaan1904/ticketbottle-reservation/pkg/logger"
)

func NewConsumer(ctx context.Context, cfg config.KafkaConfig, l logger.Logger) (sarama.ConsumerGroup, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Version = sarama.V2_8_0_0
	saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Consumer.Return.Errors = true

	consGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroupID, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer group: %w", err)
	}

	l.Infof(ctx, "Kafka consumer connected to brokers: %v, group: %s", cfg.Brokers, cfg.ConsumerGroupID)

	return consGroup, nil
}
