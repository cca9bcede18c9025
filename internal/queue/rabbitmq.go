package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultExchangeName is the fanout exchange policy events are published to
const DefaultExchangeName = "corsgate_policy_events"

// RabbitMQPublisher implements EventPublisher and EventWatcher using RabbitMQ
type RabbitMQPublisher struct {
	conn         *amqp.Connection
	exchangeName string

	mu      sync.Mutex // guards channel; amqp channels are not safe for concurrent publishing
	channel *amqp.Channel
}

// NewRabbitMQPublisher connects to RabbitMQ and declares the event exchange
func NewRabbitMQPublisher(amqpURL string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p := &RabbitMQPublisher{
		conn:         conn,
		channel:      ch,
		exchangeName: DefaultExchangeName,
	}

	if err := p.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup exchange: %w", err)
	}

	return p, nil
}

// setup declares the fanout exchange
func (p *RabbitMQPublisher) setup() error {
	err := p.channel.ExchangeDeclare(
		p.exchangeName,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

// Publish sends event to the exchange as a persistent JSON message
func (p *RabbitMQPublisher) Publish(ctx context.Context, event *Event) error {
	publishing, err := encodeEvent(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchangeName,
		"",    // routing key (ignored by fanout)
		false, // mandatory
		false, // immediate
		publishing,
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func encodeEvent(event *Event) (amqp.Publishing, error) {
	if event == nil {
		return amqp.Publishing{}, errors.New("event is nil")
	}
	if !event.Type.Valid() {
		return amqp.Publishing{}, fmt.Errorf("unknown event type %q", event.Type)
	}
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID.String(),
		Timestamp:    event.CreatedAt,
		Type:         string(event.Type),
	}, nil
}

func decodeEvent(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if !event.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}
	return &event, nil
}

// Watch binds a private, auto-deleted queue to the exchange and streams
// events until ctx is cancelled
func (p *RabbitMQPublisher) Watch(ctx context.Context) (<-chan *Event, <-chan error, error) {
	// Dedicated channel for consuming
	watchCh, err := p.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	q, err := watchCh.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = watchCh.Close()
		return nil, nil, fmt.Errorf("failed to declare watch queue: %w", err)
	}
	if err := watchCh.QueueBind(q.Name, "", p.exchangeName, false, nil); err != nil {
		_ = watchCh.Close()
		return nil, nil, fmt.Errorf("failed to bind watch queue: %w", err)
	}

	deliveries, err := watchCh.Consume(
		q.Name,
		"",    // consumer tag (empty = auto-generate)
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		_ = watchCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	eventChan := make(chan *Event)
	errChan := make(chan error, 1)

	go func() {
		defer close(eventChan)
		defer close(errChan)
		defer func() { _ = watchCh.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- fmt.Errorf("delivery channel closed")
					return
				}
				event, err := decodeEvent(delivery.Body)
				if err != nil {
					select {
					case errChan <- err:
					default:
					}
					continue
				}
				select {
				case <-ctx.Done():
					return
				case eventChan <- event:
				}
			}
		}
	}()

	return eventChan, errChan, nil
}

// HealthCheck verifies the connection and channel are open
func (p *RabbitMQPublisher) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil || p.channel.IsClosed() {
		return errors.New("rabbitmq channel is closed")
	}
	return nil
}

// Close closes the queue connection
func (p *RabbitMQPublisher) Close() error {
	var err error
	p.mu.Lock()
	if p.channel != nil {
		err = p.channel.Close()
	}
	p.mu.Unlock()
	if p.conn != nil {
		if closeErr := p.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
