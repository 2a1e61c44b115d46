package rabbitmq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"studentrecords/internal/logger"

	amqp "github.com/streadway/amqp"
)

// Topology used for student lifecycle events.
const (
	ExchangeName = "students"
	QueueName    = "student_events"
	BindingKey   = "student.#"
)

// Event names, also used as routing keys.
const (
	EventStudentCreated  = "student.created"
	EventStudentUpdated  = "student.updated"
	EventStudentDeleted  = "student.deleted"
	EventStudentRestored = "student.restored"
	EventStudentPurged   = "student.purged"
)

var knownEvents = map[string]bool{
	EventStudentCreated:  true,
	EventStudentUpdated:  true,
	EventStudentDeleted:  true,
	EventStudentRestored: true,
	EventStudentPurged:   true,
}

// StudentEvent is the JSON body of every published message.
type StudentEvent struct {
	Event      string    `json:"event"`
	StudentID  string    `json:"studentId"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// DecodeStudentEvent parses a message body and rejects unknown event names.
func DecodeStudentEvent(body []byte) (StudentEvent, error) {
	var evt StudentEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return StudentEvent{}, fmt.Errorf("failed to decode student event: %w", err)
	}
	if !knownEvents[evt.Event] {
		return StudentEvent{}, fmt.Errorf("unknown student event %q", evt.Event)
	}
	return evt, nil
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ and declares the students exchange and the
// student_events queue bound to it.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info().Str("exchange", ExchangeName).Str("queue", QueueName).Msg("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangeName, err)
	}

	_, err = ch.QueueDeclare(
		QueueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", QueueName, err)
	}

	if err := ch.QueueBind(QueueName, BindingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", QueueName, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishStudentEvent publishes evt to the students exchange using the event
// name as routing key.
func (c *Client) PublishStudentEvent(evt StudentEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal student event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.Publish(
		ExchangeName, // exchange
		evt.Event,    // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    evt.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	logger.Debug().Str("event", evt.Event).Str("student_id", evt.StudentID).Msg("student event published")
	return nil
}

// ConsumeStudentEvents delivers decoded events from student_events to handler
// on a background goroutine. Messages the handler fails on are requeued;
// messages that cannot be decoded are dropped.
func (c *Client) ConsumeStudentEvents(handler func(StudentEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		QueueName, // queue
		"",        // consumer tag
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			evt, err := DecodeStudentEvent(msg.Body)
			if err != nil {
				logger.Warn().Err(err).Uint64("delivery_tag", msg.DeliveryTag).Msg("dropping malformed student event")
				if nackErr := msg.Nack(false, false); nackErr != nil {
					logger.Error().Err(nackErr).Msg("failed to nack message")
				}
				continue
			}

			if err := handler(evt); err != nil {
				logger.Error().Err(err).Str("event", evt.Event).Msg("failed to process student event")
				if nackErr := msg.Nack(false, true); nackErr != nil {
					logger.Error().Err(nackErr).Msg("failed to nack message")
				}
				continue
			}
			if ackErr := msg.Ack(false); ackErr != nil {
				logger.Error().Err(ackErr).Msg("failed to ack message")
			}
		}
	}()

	return nil
}

// LogStudentEvent is a consumer handler that records each event in the log.
func LogStudentEvent(evt StudentEvent) error {
	logger.Info().
		Str("event", evt.Event).
		Str("student_id", evt.StudentID).
		Time("occurred_at", evt.OccurredAt).
		Msg("student event received")
	return nil
}
