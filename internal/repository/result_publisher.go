package repository

import (
	"context"

	"EventPull/internal/domain/models"
	"EventPull/internal/domain/repository"
	pkgkafka "EventPull/pkg/kafka"
)

// KafkaResultPublisher implements Publisher for Kafka. Messages are
// keyed by event label so per-event ordering is preserved.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaResultPublisher creates a Kafka result publisher.
func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

type resultPayload struct {
	Security     string    `json:"security"`
	EventDate    string    `json:"event_date"`
	Model        string    `json:"model"`
	Offsets      []int     `json:"offsets"`
	AR           []float64 `json:"ar"`
	CAR          []float64 `json:"car"`
	VarCAR       []float64 `json:"var_car"`
	TStat        []float64 `json:"t_stat"`
	PValue       []float64 `json:"p_value"`
	Significance []string  `json:"significance"`
}

func payloadFor(res *models.SingleEventResult) resultPayload {
	return resultPayload{
		Security:     res.Spec.Security,
		EventDate:    res.Spec.EventDate.Format("2006-01-02"),
		Model:        string(res.Spec.Model),
		Offsets:      res.Offsets,
		AR:           res.AR,
		CAR:          res.CAR,
		VarCAR:       res.VarCAR,
		TStat:        res.TStat,
		PValue:       res.PValue,
		Significance: res.Significance,
	}
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, res *models.SingleEventResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(res.Spec.Label()), payloadFor(res))
}

func (p *KafkaResultPublisher) PublishBatch(ctx context.Context, results []*models.SingleEventResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(results))
	for i, res := range results {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(res.Spec.Label()),
			Value: payloadFor(res),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
