package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"fulfillment_service/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retryConsumer() *Consumer {
	return &Consumer{
		log:          testLogger(),
		retryBackoff: time.Millisecond,
	}
}

func TestHandleUntilTerminal_RetriesSameMessageThroughTransientFailures(t *testing.T) {
	c := retryConsumer()
	msg := kafka.Message{Topic: "order", Offset: 4, Key: []byte("req-1")}

	attempts := 0
	handle := func(ctx context.Context, m kafka.Message) error {
		attempts++
		assert.Equal(t, int64(4), m.Offset, "retries must stay on the failed message")
		if attempts < 3 {
			return &domain.TransientError{Op: "place order", Err: errors.New("lock timeout")}
		}
		return nil
	}

	err := c.handleUntilTerminal(context.Background(), "order", msg, handle)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestHandleUntilTerminal_TerminalErrorReturnsImmediately(t *testing.T) {
	c := retryConsumer()

	attempts := 0
	handle := func(ctx context.Context, m kafka.Message) error {
		attempts++
		return &domain.ValidationError{Field: "payload", Reason: "invalid JSON"}
	}

	err := c.handleUntilTerminal(context.Background(), "product", kafka.Message{}, handle)
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, 1, attempts, "terminal failures must not be retried")
}

func TestHandleUntilTerminal_ContextEndSurfacesTransient(t *testing.T) {
	c := retryConsumer()
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	handle := func(ctx context.Context, m kafka.Message) error {
		attempts++
		cancel()
		return &domain.TransientError{Op: "place order", Err: errors.New("deadlock detected")}
	}

	err := c.handleUntilTerminal(ctx, "order", kafka.Message{Offset: 7}, handle)
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err), "the caller must see the failure as retryable and skip the commit")
	assert.Equal(t, 1, attempts)
}
