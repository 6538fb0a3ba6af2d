package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"plate/internal/config"
	"plate/internal/realtime"
)

const prefetch = 64

// Feed distributes change events between service instances through a fanout
// exchange. Every consumer gets its own exclusive queue, so each instance
// sees every change.
type Feed struct {
	cfg            config.RabbitMQConfig
	reconnectDelay time.Duration
	logger         *zap.Logger
	dial           func(config.RabbitMQConfig) (*Client, error)

	mu  sync.Mutex
	pub *Client
}

func NewFeed(cfg config.RabbitMQConfig, reconnectDelay time.Duration, logger *zap.Logger) *Feed {
	return &Feed{
		cfg:            cfg,
		reconnectDelay: reconnectDelay,
		logger:         logger,
		dial:           Dial,
	}
}

func (f *Feed) Publish(ctx context.Context, e realtime.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding change event: %w", err)
	}

	client, err := f.publisher()
	if err != nil {
		return err
	}

	err = client.Publish(ctx, f.cfg.Exchange, "", amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		MessageId:    uuid.New().String(),
		Type:         string(e.Type),
		Body:         body,
	})
	if err != nil {
		f.dropPublisher(client)
		return fmt.Errorf("publishing change event: %w", err)
	}
	return nil
}

func (f *Feed) publisher() (*Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pub != nil && !f.pub.IsClosed() {
		return f.pub, nil
	}

	client, err := f.dial(f.cfg)
	if err != nil {
		return nil, err
	}
	if err := client.DeclareFanout(f.cfg.Exchange); err != nil {
		client.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", f.cfg.Exchange, err)
	}
	f.pub = client
	return client, nil
}

func (f *Feed) dropPublisher(c *Client) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pub == c {
		f.pub.Close()
		f.pub = nil
	}
}

// Close releases the publishing connection.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pub != nil {
		f.pub.Close()
		f.pub = nil
	}
}

// Consume keeps a subscription open until ctx is done, reconnecting after
// failures. The sink is asked for a full reload after every connect because
// changes made while disconnected are not replayed.
func (f *Feed) Consume(ctx context.Context, sink realtime.Sink) error {
	log := f.logger.With(zap.String("exchange", f.cfg.Exchange))

	for {
		err := f.consumeOnce(ctx, sink, log)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("change feed disconnected, reconnecting", zap.Error(err), zap.Duration("delay", f.reconnectDelay))

		select {
		case <-time.After(f.reconnectDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (f *Feed) consumeOnce(ctx context.Context, sink realtime.Sink, log *zap.Logger) error {
	client, err := f.dial(f.cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ch := client.Channel()
	if err := client.DeclareFanout(f.cfg.Exchange); err != nil {
		return fmt.Errorf("declaring exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declaring queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", f.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("binding queue: %w", err)
	}

	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("setting qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming: %w", err)
	}

	closed := client.NotifyClose()
	log.Info("change feed connected", zap.String("queue", q.Name))
	sink.Reload()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return fmt.Errorf("connection closed")
			}
			return amqpErr
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			handleDelivery(ctx, d, sink, log)
		}
	}
}

// handleDelivery applies one message. Undecodable messages are dropped, not
// requeued.
func handleDelivery(ctx context.Context, d amqp.Delivery, sink realtime.Sink, log *zap.Logger) {
	var e realtime.Event
	if err := json.Unmarshal(d.Body, &e); err != nil {
		log.Warn("dropping malformed change event", zap.String("messageId", d.MessageId), zap.Error(err))
		if err := d.Nack(false, false); err != nil {
			log.Error("nack failed", zap.Error(err))
		}
		return
	}

	if err := sink.Push(ctx, e); err != nil {
		if err := d.Nack(false, true); err != nil {
			log.Error("nack failed", zap.Error(err))
		}
		return
	}

	if err := d.Ack(false); err != nil {
		log.Error("ack failed", zap.Error(err))
	}
}
