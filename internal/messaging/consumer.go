package messaging

import (
	"context"
	"errors"
	"time"

	"fulfillment_service/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	initialRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// Consumer reads the "product" and "order" command topics and feeds decoded
// commands to the dispatcher. Delivery is at-least-once: a message is
// committed only after terminal handling (success, validation failure, not
// found). Transient store errors retry the same message in place with
// backoff — fetching past it would let a later commit mark it consumed, and
// the idempotency key makes redoing the handler safe.
type Consumer struct {
	productReader *kafka.Reader
	orderReader   *kafka.Reader
	dispatcher    *Dispatcher
	log           *logrus.Logger

	retryBackoff time.Duration
}

func NewConsumer(brokers []string, groupID, productTopic, orderTopic string, dispatcher *Dispatcher, logger *logrus.Logger) *Consumer {
	return &Consumer{
		productReader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   productTopic,
		}),
		orderReader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   orderTopic,
		}),
		dispatcher:   dispatcher,
		log:          logger,
		retryBackoff: initialRetryBackoff,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	go c.consume(ctx, c.productReader, c.handleProductMessage)
	go c.consume(ctx, c.orderReader, c.handleOrderMessage)
	c.log.Info("Broker: Consuming command topics")
}

func (c *Consumer) consume(ctx context.Context, reader *kafka.Reader, handle func(context.Context, kafka.Message) error) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			c.log.Errorf("Broker: Failed to fetch message from %s: %v", reader.Config().Topic, err)
			continue
		}

		err = c.handleUntilTerminal(ctx, reader.Config().Topic, msg, handle)
		if err != nil && domain.IsTransient(err) {
			// Shutting down mid-retry; leave the offset uncommitted so the
			// group redelivers after restart.
			c.log.Warnf("Broker: Stopping with %s offset %d unhandled, it will be redelivered: %v",
				reader.Config().Topic, msg.Offset, err)
			return
		}
		if err != nil {
			c.log.Errorf("Broker: Rejected message on %s offset %d: %v", reader.Config().Topic, msg.Offset, err)
		}

		if commitErr := reader.CommitMessages(ctx, msg); commitErr != nil {
			c.log.Errorf("Broker: Failed to commit offset %d on %s: %v", msg.Offset, reader.Config().Topic, commitErr)
		}
	}
}

// handleUntilTerminal runs the handler until it returns a terminal result.
// Group offsets are high-watermark, so moving on to the next message would
// silently drop this one as soon as a later offset commits; the only safe
// reaction to a transient failure is to stay on it. Returns a transient
// error only when the context ends while retries are still due.
func (c *Consumer) handleUntilTerminal(ctx context.Context, topic string, msg kafka.Message, handle func(context.Context, kafka.Message) error) error {
	backoff := c.retryBackoff
	for {
		err := handle(ctx, msg)
		if err == nil || !domain.IsTransient(err) {
			return err
		}

		c.log.Warnf("Broker: Transient failure on %s offset %d, retrying in %s: %v", topic, msg.Offset, backoff, err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		if backoff < maxRetryBackoff {
			backoff *= 2
		}
	}
}

func (c *Consumer) handleProductMessage(ctx context.Context, msg kafka.Message) error {
	cmd, err := DecodeProductCommand(msg.Value)
	if err != nil {
		return err
	}
	return c.dispatcher.HandleProductCommand(ctx, cmd)
}

func (c *Consumer) handleOrderMessage(ctx context.Context, msg kafka.Message) error {
	cmd, err := DecodeOrderCommand(msg.Value)
	if err != nil {
		return err
	}
	// The message key doubles as the idempotency key, so a redelivered
	// create does not produce a second order.
	return c.dispatcher.HandleOrderCommand(ctx, cmd, string(msg.Key))
}

func (c *Consumer) Close() {
	if err := c.productReader.Close(); err != nil {
		c.log.Errorf("Broker: Failed to close product reader: %v", err)
	}
	if err := c.orderReader.Close(); err != nil {
		c.log.Errorf("Broker: Failed to close order reader: %v", err)
	}
}
