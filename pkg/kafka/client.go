// Package kafka carries document-ingest events between the downloader and
// the server.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/tasks"
)

// IngestHandler reacts to a document-ingest event. Implementations must be
// idempotent: the same event may be delivered more than once.
type IngestHandler interface {
	OnDocumentIngested(ctx context.Context, event tasks.DocumentIngestEvent)
}

var producer *kafka.Writer

// InitProducer initializes the shared ingest-event producer.
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka producer initialized")
}

// ProduceIngestEvent publishes one document-ingest event.
func ProduceIngestEvent(event tasks.DocumentIngestEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return producer.WriteMessages(context.Background(),
		kafka.Message{Value: eventBytes},
	)
}

// StartConsumer consumes ingest events and forwards them to the handler.
// Runs until the reader fails; intended to be launched as a goroutine.
func StartConsumer(cfg config.KafkaConfig, handler IngestHandler) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  "druk-legal-qa-consumer",
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	log.Infof("Kafka consumer started on topic '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(context.Background())
		if err != nil {
			log.Error("failed to read from kafka", err)
			break
		}

		var event tasks.DocumentIngestEvent
		if err := json.Unmarshal(m.Value, &event); err != nil {
			log.Errorf("failed to decode kafka message: %v, value: %s", err, string(m.Value))
			// Malformed message, commit so it does not block the topic.
			if err := r.CommitMessages(context.Background(), m); err != nil {
				log.Errorf("failed to commit malformed message: %v", err)
			}
			continue
		}

		log.Infof("received ingest event for document '%s' (%d bytes)", event.Document, event.Size)
		// Scheduling a rebuild is idempotent, so commit unconditionally.
		handler.OnDocumentIngested(context.Background(), event)
		if err := r.CommitMessages(context.Background(), m); err != nil {
			log.Errorf("failed to commit kafka offset: %v", err)
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("failed to close kafka consumer: %v", err)
	}
}
