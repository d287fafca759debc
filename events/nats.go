package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSClient publishes notifications to NATS and consumes them back. It
// satisfies the SDK's event emitter interface through Emit, so a client can
// forward API events to other processes:
//
//	nc, err := events.NewNATSClient(events.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer nc.Close()
//	client, err := sdk.New(publicKey, false, sdk.DefaultConfig().WithEventEmitter(nc))
type NATSClient struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	config *Config
	logger logrus.FieldLogger
}

// NewNATSClient connects to NATS and, when a stream is configured, makes
// sure the JetStream stream exists.
func NewNATSClient(config *Config) (*NATSClient, error) {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	opts := []nats.Option{
		nats.Name(config.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.WithError(err).Error("NATS error")
		}),
	}
	if config.User != "" && config.Password != "" {
		opts = append(opts, nats.UserInfo(config.User, config.Password))
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	client := &NATSClient{nc: nc, config: config, logger: logger}

	if config.StreamName != "" {
		js, err := nc.JetStream()
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		client.js = js
		if err := client.initializeStream(); err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to initialize stream: %w", err)
		}
	}

	return client, nil
}

func (c *NATSClient) initializeStream() error {
	streamConfig := &nats.StreamConfig{
		Name:        c.config.StreamName,
		Description: "Commerce API events",
		Subjects:    []string{c.config.SubjectPrefix + ".>"},
		Retention:   nats.LimitsPolicy,
		MaxAge:      c.config.StreamMaxAge,
		MaxMsgs:     c.config.StreamMaxMsgs,
		Replicas:    c.config.StreamReplicas,
		Duplicates:  5 * time.Minute,
		Storage:     nats.FileStorage,
	}

	if _, err := c.js.AddStream(streamConfig); err != nil {
		if _, err = c.js.UpdateStream(streamConfig); err != nil {
			return fmt.Errorf("failed to create/update stream: %w", err)
		}
	}
	return nil
}

// Subject returns the NATS subject a notification is published on.
func (c *NATSClient) Subject(n *Notification) string {
	return SubjectFor(c.config.SubjectPrefix, n.Event)
}

// SubjectFor builds "<prefix>.<event>" with characters NATS does not allow
// in subject tokens replaced by underscores.
func SubjectFor(prefix, event string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '*' || r == '>' {
			return '_'
		}
		return r
	}, strings.Trim(event, "."))
	if clean == "" {
		clean = "_"
	}
	return prefix + "." + clean
}

// Emit publishes the named event without waiting for acknowledgment.
// Failures are logged, never returned.
func (c *NATSClient) Emit(event string) {
	n := NewNotification(event)
	n.Source = c.config.Name
	data, err := n.Marshal()
	if err != nil {
		c.logger.WithError(err).WithField("event", event).Error("Failed to marshal notification")
		return
	}

	msg := &nats.Msg{Subject: c.Subject(n), Data: data, Header: nats.Header{}}
	msg.Header.Set(nats.MsgIdHdr, n.ID)

	if c.js != nil {
		if _, err := c.js.PublishMsgAsync(msg); err != nil {
			c.logger.WithError(err).WithField("event", event).Error("Failed to publish notification")
		}
		return
	}
	if err := c.nc.PublishMsg(msg); err != nil {
		c.logger.WithError(err).WithField("event", event).Error("Failed to publish notification")
	}
}

// Publish sends a notification and, on JetStream, waits for the ack.
func (c *NATSClient) Publish(ctx context.Context, n *Notification) error {
	data, err := n.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	msg := &nats.Msg{Subject: c.Subject(n), Data: data, Header: nats.Header{}}
	msg.Header.Set(nats.MsgIdHdr, n.ID)

	if c.js == nil {
		return c.nc.PublishMsg(msg)
	}

	pubAck, err := c.js.PublishMsgAsync(msg)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	select {
	case <-pubAck.Ok():
		return nil
	case err := <-pubAck.Err():
		return fmt.Errorf("notification publish failed: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Forward republishes every notification of an in-process bus on NATS.
// The returned subscription stops forwarding.
func (c *NATSClient) Forward(bus *Bus, pattern string) *Subscription {
	return bus.Subscribe(pattern, func(n *Notification) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Publish(ctx, n); err != nil {
			c.logger.WithError(err).WithField("event", n.Name).Error("Failed to forward notification")
		}
	})
}

// CreateConsumer creates the durable pull consumer used by Consume
func (c *NATSClient) CreateConsumer() (*nats.ConsumerInfo, error) {
	if c.js == nil {
		return nil, errors.New("events: consumer requires a JetStream stream")
	}
	consumerConfig := &nats.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       c.config.ConsumerAckWait,
		MaxDeliver:    c.config.ConsumerMaxDeliver,
		MaxAckPending: c.config.ConsumerMaxAckPending,
		ReplayPolicy:  nats.ReplayInstantPolicy,
		DeliverPolicy: nats.DeliverAllPolicy,
		FilterSubject: c.config.SubjectPrefix + ".>",
	}

	info, err := c.js.AddConsumer(c.config.StreamName, consumerConfig)
	if err != nil {
		info, err = c.js.UpdateConsumer(c.config.StreamName, consumerConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create/update consumer: %w", err)
		}
	}
	return info, nil
}

// Consume pulls batches from the durable consumer until ctx is done. The
// handler owns acknowledgment of every message it receives.
func (c *NATSClient) Consume(ctx context.Context, handler func(msgs []*nats.Msg)) error {
	if _, err := c.CreateConsumer(); err != nil {
		return err
	}
	sub, err := c.js.PullSubscribe(
		"",
		c.config.ConsumerName,
		nats.ManualAck(),
		nats.Bind(c.config.StreamName, c.config.ConsumerName),
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msgs, err := sub.Fetch(c.config.FetchBatch, nats.MaxWait(c.config.FetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, nats.ErrConnectionClosed) {
				return err
			}
			c.logger.WithError(err).Warn("Error fetching notifications")
			continue
		}
		if len(msgs) > 0 {
			handler(msgs)
		}
	}
}

// Health checks the NATS connection health
func (c *NATSClient) Health() error {
	if !c.nc.IsConnected() {
		return fmt.Errorf("NATS is not connected")
	}
	if c.js != nil {
		if _, err := c.js.AccountInfo(); err != nil {
			return fmt.Errorf("JetStream health check failed: %w", err)
		}
	}
	return nil
}

// Close drains pending publishes and closes the connection
func (c *NATSClient) Close() error {
	if c.nc == nil {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return err
	}
	return nil
}

// Config returns the client configuration
func (c *NATSClient) Config() *Config {
	return c.config
}
