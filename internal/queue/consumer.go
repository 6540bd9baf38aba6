package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"rrc-inference/internal/analytics"
	"rrc-inference/internal/metrics"
	"rrc-inference/internal/models"
)

// Submitter ставит построение в очередь
type Submitter interface {
	Submit(deviceID string) (analytics.Job, bool)
}

// TriggerConsumer читает из RabbitMQ запросы на построение моделей
type TriggerConsumer struct {
	channel     *amqp.Channel
	exchange    string
	routingKey  string
	queue       string
	submitter   Submitter
	prefetchCnt int
}

func NewTriggerConsumer(conn *amqp.Connection, exchange, routingKey, queue string, submitter Submitter) (*TriggerConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	consumer := &TriggerConsumer{
		channel:     ch,
		exchange:    exchange,
		routingKey:  routingKey,
		queue:       queue,
		submitter:   submitter,
		prefetchCnt: 1,
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(
		queue,
		routingKey,
		exchange,
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if err := ch.Qos(consumer.prefetchCnt, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	return consumer, nil
}

// Start блокируется до отмены ctx или закрытия канала
func (c *TriggerConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("TriggerConsumer shutting down")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				log.Println("RabbitMQ channel closed")
				return nil
			}

			ack, requeue := c.handle(msg.Body)
			if err := settle(msg, ack, requeue); err != nil {
				log.Printf("failed to settle trigger message: %v\n", err)
			}
		}
	}
}

// handle решает судьбу сообщения: подтвердить, отбросить или вернуть в очередь
func (c *TriggerConsumer) handle(body []byte) (ack, requeue bool) {
	var req models.BuildRequest
	if err := json.Unmarshal(body, &req); err != nil || req.DeviceID == "" {
		log.Printf("Malformed build trigger %q: %v\n", body, err)
		metrics.TriggersConsumed.WithLabelValues("malformed").Inc()
		return false, false
	}

	job, ok := c.submitter.Submit(req.DeviceID)
	if !ok {
		metrics.TriggersConsumed.WithLabelValues("requeued").Inc()
		return false, true
	}

	log.Printf("Build trigger accepted: device=%s job=%s\n", req.DeviceID, job.ID)
	metrics.TriggersConsumed.WithLabelValues("accepted").Inc()
	return true, false
}

// acknowledger подтверждение доставки, реализуется amqp.Delivery
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(msg acknowledger, ack, requeue bool) error {
	if ack {
		if err := msg.Ack(false); err != nil {
			return fmt.Errorf("ack: %w", err)
		}
		return nil
	}
	if err := msg.Nack(false, requeue); err != nil {
		return fmt.Errorf("nack (requeue=%v): %w", requeue, err)
	}
	return nil
}

// Close закрывает канал
func (c *TriggerConsumer) Close() error {
	return c.channel.Close()
}
