package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	ckafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/config"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/logger"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/model"
	"github.com/ASADEL-TECHNOLOGIES/Dynamic-monitoring-Upload/internal/repository"
)

const flushTimeout = 10 * time.Second

// Publisher streams aggregation records to a Kafka topic, one JSON message per record.
// It satisfies repository.EntryRepository so it can sit next to the SQL store.
type Publisher struct {
	producer     *ckafka.Producer
	topic        string
	deliveryChan chan ckafka.Event
	logger       *logger.Logger

	messagesSent   atomic.Int64
	messagesAcked  atomic.Int64
	messagesFailed atomic.Int64

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPublisher creates a producer for cfg.Topic.
func NewPublisher(cfg config.Kafka, log *logger.Logger) (*Publisher, error) {
	producerConfig := &ckafka.ConfigMap{
		"bootstrap.servers":  cfg.BootstrapServers,
		"acks":               "all",
		"enable.idempotence": true,
		"linger.ms":          50,
		"request.timeout.ms": 30000,
	}
	if cfg.SecurityProtocol != "" {
		producerConfig.SetKey("security.protocol", cfg.SecurityProtocol)
	}
	if cfg.SASLMechanism != "" {
		producerConfig.SetKey("sasl.mechanism", cfg.SASLMechanism)
		producerConfig.SetKey("sasl.username", cfg.SASLUsername)
		producerConfig.SetKey("sasl.password", cfg.SASLPassword)
	}

	p, err := ckafka.NewProducer(producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	pub := &Publisher{
		producer:     p,
		topic:        cfg.Topic,
		deliveryChan: make(chan ckafka.Event, 1000),
		logger:       log,
		ctx:          ctx,
		cancel:       cancel,
	}

	pub.wg.Add(1)
	go pub.handleDeliveryReports()

	log.Info("Kafka publisher initialized - Topic: %s, Servers: %s", cfg.Topic, cfg.BootstrapServers)
	return pub, nil
}

func (p *Publisher) handleDeliveryReports() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case e := <-p.deliveryChan:
			m, ok := e.(*ckafka.Message)
			if !ok {
				continue
			}
			if m.TopicPartition.Error != nil {
				p.messagesFailed.Add(1)
				p.logger.Error("Kafka delivery failed: %v", m.TopicPartition.Error)
			} else {
				p.messagesAcked.Add(1)
			}
		}
	}
}

// newMessage encodes rec for topic. Records of one camera and class share a key
// so they land on the same partition in emission order.
func newMessage(topic string, rec model.AggregationRecord) (*ckafka.Message, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}

	return &ckafka.Message{
		TopicPartition: ckafka.TopicPartition{
			Topic:     &topic,
			Partition: ckafka.PartitionAny,
		},
		Key:   []byte(fmt.Sprintf("%s/%d", rec.Camera, rec.ClassID)),
		Value: payload,
		Headers: []ckafka.Header{
			{Key: "camera", Value: []byte(rec.Camera)},
			{Key: "run_id", Value: []byte(rec.RunID)},
		},
		Timestamp: rec.EmittedAt,
	}, nil
}

// InsertBatch queues every record for delivery. Delivery failures are reported
// asynchronously and counted in Stats. When a record cannot be queued the
// error is a *repository.PartialWriteError carrying how many were queued.
func (p *Publisher) InsertBatch(ctx context.Context, records []model.AggregationRecord) error {
	return produceRecords(ctx, p.topic, records, func(msg *ckafka.Message) error {
		if err := p.producer.Produce(msg, p.deliveryChan); err != nil {
			p.messagesFailed.Add(1)
			return err
		}
		p.messagesSent.Add(1)
		return nil
	})
}

func produceRecords(ctx context.Context, topic string, records []model.AggregationRecord, produce func(*ckafka.Message) error) error {
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return &repository.PartialWriteError{Written: i, Err: err}
		}
		msg, err := newMessage(topic, rec)
		if err != nil {
			return &repository.PartialWriteError{Written: i, Err: err}
		}
		if err := produce(msg); err != nil {
			return &repository.PartialWriteError{Written: i, Err: fmt.Errorf("failed to produce record: %w", err)}
		}
	}
	return nil
}

// Stats returns sent, acknowledged and failed message counts.
func (p *Publisher) Stats() (sent, acked, failed int64) {
	return p.messagesSent.Load(), p.messagesAcked.Load(), p.messagesFailed.Load()
}

// Close flushes queued messages and shuts the producer down.
func (p *Publisher) Close() error {
	remaining := p.producer.Flush(int(flushTimeout.Milliseconds()))
	p.cancel()
	p.wg.Wait()
	p.producer.Close()

	sent, acked, failed := p.Stats()
	p.logger.Info("Kafka publisher closed - Sent: %d | Acked: %d | Failed: %d", sent, acked, failed)
	if remaining > 0 {
		return fmt.Errorf("%d kafka messages still queued after flush", remaining)
	}
	return nil
}
