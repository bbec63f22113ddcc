package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/tariqnasser/airwave-backend/pkg/config"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

// HandlerFunc processes one consumed record. Returning an error stops the
// claim without committing the offset, so the broker redelivers the record
// after the next rebalance.
type HandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

type ConsumerGroup struct {
	group   sarama.ConsumerGroup
	topics  []string
	handler HandlerFunc
	logg    *logger.Logger
}

type ConsumerGroupParams struct {
	Config  config.KafkaConfig
	Topics  []string
	Handler HandlerFunc
	Logger  *logger.Logger
}

func NewConsumerGroup(params ConsumerGroupParams) (*ConsumerGroup, error) {
	if len(params.Topics) == 0 {
		return nil, errors.New("kafka: at least one topic is required")
	}
	if params.Handler == nil {
		return nil, errors.New("kafka: handler is required")
	}
	if params.Logger == nil {
		return nil, errors.New("kafka: logger is required")
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = params.Config.ClientID
	saramaCfg.Net.DialTimeout = params.Config.DialTimeout
	saramaCfg.Consumer.Return.Errors = true
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRange(),
	}

	group, err := sarama.NewConsumerGroup(params.Config.Brokers, params.Config.ConsumerGroupID, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: creating consumer group: %w", err)
	}

	return &ConsumerGroup{
		group:   group,
		topics:  params.Topics,
		handler: params.Handler,
		logg:    params.Logger,
	}, nil
}

// Run consumes until ctx is cancelled. Consume returns on every rebalance,
// so it is called in a loop.
func (c *ConsumerGroup) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.logg.Error(ctx, "consumer group error", err)
		}
	}()

	for {
		if err := c.group.Consume(ctx, c.topics, &claimHandler{handler: c.handler, logg: c.logg}); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logg.Error(ctx, "consume session ended", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *ConsumerGroup) Close() error {
	return c.group.Close()
}

type claimHandler struct {
	handler HandlerFunc
	logg    *logger.Logger
}

func (h *claimHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim processes records strictly in order. The offset is only
// marked after the handler succeeds. On failure the claim is abandoned so
// the record, and everything behind it on the partition, is redelivered.
func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			ctx := session.Context()
			if err := h.handler(ctx, msg); err != nil {
				ctx = h.logg.WithFields(ctx, map[string]any{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				})
				h.logg.Error(ctx, "processing consumed record", err)
				return err
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
