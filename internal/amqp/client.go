package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	tripAfter       = 5
	breakerCooldown = 30 * time.Second
	publishTimeout  = 5 * time.Second
	maxBackoff      = 30 * time.Second
	prefetchCount   = 10
)

var (
	// ErrDrop tells the consumer to reject a message without requeueing it.
	ErrDrop = errors.New("drop message")
	// ErrBrokerUnavailable is returned while repeated publish failures keep
	// the breaker open.
	ErrBrokerUnavailable = errors.New("broker unavailable")
)

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	breaker *breaker
}

// Handlers receive decoded messages. A nil handler acks and skips its messages.
type Handlers struct {
	Transaction func(context.Context, *TransactionEvent) error
	Insight     func(context.Context, *InsightRequest) error
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		breaker:      newBreaker(tripAfter, breakerCooldown),
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	oldConn, oldChannel := c.conn, c.channel
	c.conn, c.channel = conn, channel
	c.mu.Unlock()

	if oldChannel != nil {
		oldChannel.Close()
	}
	if oldConn != nil {
		oldConn.Close()
	}
	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, key := range RoutingKeys {
		if err := ch.QueueBind(queueName, key, exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue to %s: %w", key, err)
		}
	}
	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil || c.channel.IsClosed() {
		return nil
	}
	return c.channel
}

// reconnect retries connect with exponential backoff until it succeeds or ctx ends.
func (c *Client) reconnect(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		err := c.connect()
		if err == nil {
			slog.InfoContext(ctx, "AMQP reconnected", "attempt", attempt+1)
			return nil
		}
		wait := backoff(attempt)
		slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "retry_in", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// backoff doubles from one second per attempt up to maxBackoff.
func backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	if attempt >= 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

var lostLinkMarkers = []string{
	"connection refused",
	"connection reset",
	"connection closed",
	"eof",
	"broken pipe",
	"use of closed network connection",
	"channel/connection is not open",
}

// brokerGone reports whether err means the connection or channel is dead
// and must be re-dialled before the next publish.
func brokerGone(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range lostLinkMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// forgetChannel drops a dead channel so the next publish dials again.
func (c *Client) forgetChannel() {
	c.mu.Lock()
	ch := c.channel
	c.channel = nil
	c.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
}

// Publish sends body to the exchange under routingKey. One reconnect is tried
// when the channel is gone; repeated failures open the circuit breaker.
func (c *Client) Publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.breaker.allow() {
		return fmt.Errorf("publish %s: %w", routingKey, ErrBrokerUnavailable)
	}

	ch := c.currentChannel()
	if ch == nil {
		if err := c.connect(); err != nil {
			c.breaker.failure()
			return fmt.Errorf("publish %s: %w", routingKey, err)
		}
		ch = c.currentChannel()
		if ch == nil {
			c.breaker.failure()
			return fmt.Errorf("publish %s: channel unavailable", routingKey)
		}
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(
		pctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Type:         routingKey,
			Body:         body,
		},
	)
	if err != nil {
		c.breaker.failure()
		if brokerGone(err) {
			c.forgetChannel()
		}
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	c.breaker.success()

	slog.DebugContext(ctx, "Published message",
		"routing_key", routingKey,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) PublishTransactionEvent(ctx context.Context, ev *TransactionEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.Publish(ctx, ev.Event, body)
}

func (c *Client) PublishInsightRequest(ctx context.Context, req *InsightRequest) error {
	body, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.Publish(ctx, RoutingInsightRequested, body)
}

// Consume delivers messages to h until ctx ends, reconnecting when the broker
// drops the channel.
func (c *Client) Consume(ctx context.Context, h Handlers) error {
	for {
		err := c.consumeOnce(ctx, h)
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		slog.WarnContext(ctx, "Message consumption interrupted", "error", err)
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, h Handlers) error {
	ch := c.currentChannel()
	if ch == nil {
		return errors.New("channel unavailable")
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handle(ctx, delivery, h)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, h Handlers) {
	kind := d.Type
	if kind == "" {
		kind = d.RoutingKey
	}

	err := dispatch(ctx, kind, d.Body, h)
	switch {
	case err == nil:
		d.Ack(false)
	case errors.Is(err, ErrDrop):
		slog.ErrorContext(ctx, "Dropping message", "type", kind, "error", err)
		d.Nack(false, false)
	default:
		slog.ErrorContext(ctx, "Failed to handle message", "type", kind, "error", err)
		d.Nack(false, true)
	}
}

// dispatch decodes body by message type and calls the matching handler.
func dispatch(ctx context.Context, kind string, body []byte, h Handlers) error {
	switch kind {
	case RoutingTransactionCreated, RoutingTransactionUpdated, RoutingTransactionDeleted:
		if h.Transaction == nil {
			return nil
		}
		msg, err := TransactionEventFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrDrop, kind, err)
		}
		return h.Transaction(ctx, msg)
	case RoutingInsightRequested:
		if h.Insight == nil {
			return nil
		}
		msg, err := InsightRequestFromJSON(body)
		if err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrDrop, kind, err)
		}
		return h.Insight(ctx, msg)
	default:
		return fmt.Errorf("%w: unknown message type %q", ErrDrop, kind)
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
