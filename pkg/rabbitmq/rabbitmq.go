package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

// Topology of the order events.
const (
	Exchange   = "storefront.orders"
	OrderQueue = "order_queue"
	BindingKey = "order.#"
)

// ErrMalformed marks a delivery that can never be processed. The consumer drops
// it instead of requeueing.
var ErrMalformed = errors.New("malformed message")

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ and declares the order exchange, queue and binding.
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

	log.Printf("RabbitMQ client connected; %s bound to %s", OrderQueue, Exchange)

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		Exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", Exchange, err)
	}
	if _, err := ch.QueueDeclare(
		OrderQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s: %w", OrderQueue, err)
	}
	if err := ch.QueueBind(OrderQueue, BindingKey, Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind %s: %w", OrderQueue, err)
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
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// Publish sends a persistent JSON message to the order exchange.
func (c *Client) Publish(routingKey string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		Exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

// PublishJSON marshals v and publishes it under routingKey.
func (c *Client) PublishJSON(routingKey string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event to JSON: %w", routingKey, err)
	}
	return c.Publish(routingKey, body)
}

// Outcome is what Settle did with a delivery.
type Outcome string

const (
	Acked    Outcome = "acked"
	Requeued Outcome = "requeued"
	Dropped  Outcome = "dropped"
)

// Acknowledger is the subset of amqp.Delivery used to settle a message.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Settle acks on success, drops messages wrapped in ErrMalformed and requeues
// everything else.
func Settle(msg Acknowledger, tag uint64, handleErr error) Outcome {
	var (
		outcome Outcome
		err     error
	)
	switch {
	case handleErr == nil:
		outcome, err = Acked, msg.Ack(false)
	case errors.Is(handleErr, ErrMalformed):
		log.Printf("Dropping message %d: %v", tag, handleErr)
		outcome, err = Dropped, msg.Nack(false, false)
	default:
		log.Printf("Error processing message %d: %v", tag, handleErr)
		outcome, err = Requeued, msg.Nack(false, true)
	}
	if err != nil {
		log.Printf("Error settling message %d (%s): %v", tag, outcome, err)
	}
	return outcome
}

// ConsumeOrderEvents delivers order_queue messages to handler until the channel
// closes. observe, when non-nil, is told how each message was settled. The
// returned channel is closed once the consumer stops.
func (c *Client) ConsumeOrderEvents(handler func(msg amqp.Delivery) error, observe func(Outcome)) (<-chan struct{}, error) {
	if c.channel == nil {
		return nil, fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		OrderQueue, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf(" [*] Waiting for order events. To exit press CTRL+C")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			outcome := Settle(msg, msg.DeliveryTag, handler(msg))
			if observe != nil {
				observe(outcome)
			}
		}
	}()
	return done, nil
}
