package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// Config holds NATS client configuration
type Config struct {
	URL           string
	StreamName    string
	RetryAttempts int
	RetryDelay    time.Duration
	MaxAge        time.Duration // how long unconsumed jobs are kept
	MaxDeliver    int           // deliveries of a failing message before it is dropped
	AckWait       time.Duration // simulations can take minutes
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		StreamName:    "hopp",
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		MaxAge:        7 * 24 * time.Hour,
		MaxDeliver:    3,
		AckWait:       5 * time.Minute,
	}
}

// Client carries simulation jobs and results over a JetStream work queue
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config Config
	logger *zap.Logger
}

// NewClient connects to NATS. logger may be nil.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	def := DefaultConfig()
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = def.MaxAge
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = def.MaxDeliver
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = def.AckWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.RetryAttempts),
		nats.ReconnectWait(cfg.RetryDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &Client{nc: nc, js: js, config: cfg, logger: logger}, nil
}

// CreateStream creates the work queue stream holding both subjects
func (c *Client) CreateStream(ctx context.Context) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      c.config.StreamName,
		Subjects:  Subjects,
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
		MaxAge:    c.config.MaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", c.config.StreamName, err)
	}
	return nil
}

// publish sends a JSON message. msgID lets the server drop duplicates when a
// run is published twice.
func (c *Client) publish(ctx context.Context, subject, msgID string, v interface{}) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if _, err := c.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msgID, err)
	}
	return nil
}

// PublishWindows queues one simulation job per cluster
func (c *Client) PublishWindows(ctx context.Context, msgs []SimWindowMsg) error {
	for _, m := range msgs {
		if err := c.publish(ctx, SubjectSimWindows, m.MsgID(), m); err != nil {
			return err
		}
	}
	c.logger.Debug("published simulation jobs", zap.Int("jobs", len(msgs)))
	return nil
}

// PublishResult reports the output of one simulated exemplar
func (c *Client) PublishResult(ctx context.Context, msg SimResultMsg) error {
	return c.publish(ctx, SubjectSimResults, msg.MsgID(), msg)
}

// consume creates a durable consumer and acks every message fn accepts.
// Messages fn rejects are redelivered up to MaxDeliver times.
func (c *Client) consume(ctx context.Context, subject, consumerName string, fn func(data []byte) error) (jetstream.ConsumeContext, error) {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.config.StreamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.config.AckWait,
		MaxDeliver:    c.config.MaxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := fn(msg.Data()); err != nil {
			c.logger.Warn("message rejected",
				zap.String("subject", msg.Subject()),
				zap.Error(err))
			msg.Nak()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	return consumeCtx, nil
}

// SubscribeWindows hands simulation jobs to a simulator worker
func (c *Client) SubscribeWindows(ctx context.Context, consumerName string, handler func(*SimWindowMsg) error) (jetstream.ConsumeContext, error) {
	return c.consume(ctx, SubjectSimWindows, consumerName, func(data []byte) error {
		msg, err := DecodeSimWindow(data)
		if err != nil {
			return err
		}
		return handler(msg)
	})
}

// SubscribeResults hands simulator results to the assembler
func (c *Client) SubscribeResults(ctx context.Context, consumerName string, handler func(*SimResultMsg) error) (jetstream.ConsumeContext, error) {
	return c.consume(ctx, SubjectSimResults, consumerName, func(data []byte) error {
		msg, err := DecodeSimResult(data)
		if err != nil {
			return err
		}
		return handler(msg)
	})
}

// Close closes the NATS connection
func (c *Client) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}

// IsConnected returns true if connected to NATS
func (c *Client) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}
