package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/tariqnasser/airwave-backend/pkg/config"
)

// TopicSpec describes a topic the platform expects to exist.
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
}

// Header is a key/value pair attached to a produced record.
type Header struct {
	Key   string
	Value string
}

// Client wraps a synchronous producer and a cluster admin client.
// Producing is synchronous on purpose: the outbox row is only marked
// sent after the broker acknowledges the write.
type Client struct {
	producer sarama.SyncProducer
	admin    sarama.ClusterAdmin
	brokers  []string
}

func NewClient(cfg config.KafkaConfig) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.ClientID
	saramaCfg.Net.DialTimeout = cfg.DialTimeout
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Retry.Max = cfg.ProducerRetries
	saramaCfg.Producer.Timeout = cfg.RequestTimeout
	// Hash partitioner keeps every record with the same key on the same
	// partition, which is what the per-aggregate ordering contract relies on.
	saramaCfg.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("kafka: creating sync producer: %w", err)
	}

	admin, err := sarama.NewClusterAdmin(cfg.Brokers, saramaCfg)
	if err != nil {
		_ = producer.Close()
		return nil, fmt.Errorf("kafka: creating cluster admin: %w", err)
	}

	return &Client{
		producer: producer,
		admin:    admin,
		brokers:  cfg.Brokers,
	}, nil
}

// EnsureTopics creates every topic in specs, ignoring the ones that already
// exist. Safe to run on every service boot.
func (c *Client) EnsureTopics(specs []TopicSpec) error {
	for _, spec := range specs {
		detail := &sarama.TopicDetail{
			NumPartitions:     spec.Partitions,
			ReplicationFactor: spec.ReplicationFactor,
		}
		err := c.admin.CreateTopic(spec.Name, detail, false)
		if err == nil {
			continue
		}
		var topicErr *sarama.TopicError
		if errors.As(err, &topicErr) && topicErr.Err == sarama.ErrTopicAlreadyExists {
			continue
		}
		if errors.Is(err, sarama.ErrTopicAlreadyExists) {
			continue
		}
		return fmt.Errorf("kafka: creating topic %s: %w", spec.Name, err)
	}
	return nil
}

// SendMessage produces a single record and blocks until the broker
// acknowledges it. The key selects the partition.
func (c *Client) SendMessage(topic, key string, value []byte, headers []Header) (partition int32, offset int64, err error) {
	recordHeaders := make([]sarama.RecordHeader, 0, len(headers))
	for _, h := range headers {
		recordHeaders = append(recordHeaders, sarama.RecordHeader{
			Key:   []byte(h.Key),
			Value: []byte(h.Value),
		})
	}

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(value),
		Headers: recordHeaders,
	}

	partition, offset, err = c.producer.SendMessage(msg)
	if err != nil {
		return 0, 0, fmt.Errorf("kafka: sending to %s: %w", topic, err)
	}
	return partition, offset, nil
}

// Ping verifies the cluster is reachable. Used by readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		_, _, err := c.admin.DescribeCluster()
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("kafka: describe cluster: %w", err)
		}
		return nil
	}
}

func (c *Client) Close() error {
	var errs []error
	if err := c.producer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("kafka: closing producer: %w", err))
	}
	if err := c.admin.Close(); err != nil {
		errs = append(errs, fmt.Errorf("kafka: closing admin: %w", err))
	}
	return errors.Join(errs...)
}
