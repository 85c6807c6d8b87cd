package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-approval/internal/common/config"
	"loan-approval/internal/common/logger"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		err  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"read: connection reset by peer", true},
		{"write: broken pipe", true},
		{"rpc error: code = NotFound desc = job not found", false},
		{"permission denied", false},
	}
	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(errors.New(tt.err)))
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	rc := &RetryConfig{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, backoffDelay(rc, 0))
	assert.Equal(t, 2*time.Second, backoffDelay(rc, 1))
	assert.Equal(t, 4*time.Second, backoffDelay(rc, 2))
	assert.Equal(t, 5*time.Second, backoffDelay(rc, 3))
}

func TestConfigFrom(t *testing.T) {
	cc := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", RequestTimeout: 2500})
	assert.Equal(t, "zeebe:26500", cc.GatewayAddress)
	assert.Equal(t, 2500*time.Millisecond, cc.ConnectionTimeout)
	assert.True(t, cc.UsePlaintextConnection)

	cc = ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500"})
	assert.Equal(t, 10*time.Second, cc.ConnectionTimeout)
}

func TestRetry(t *testing.T) {
	c := &Client{config: &ClientConfig{RetryConfig: &RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}}}
	log := logger.NewTestLogger(t)

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := c.retry(context.Background(), "op", log, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent failure", func(t *testing.T) {
		calls := 0
		err := c.retry(context.Background(), "op", log, func(context.Context) error {
			calls++
			return errors.New("permission denied")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := c.retry(context.Background(), "op", log, func(context.Context) error {
			calls++
			return errors.New("unavailable")
		})
		require.Error(t, err)
		assert.Equal(t, 4, calls)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		slow := &Client{config: &ClientConfig{RetryConfig: &RetryConfig{
			MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour,
		}}}
		err := slow.retry(ctx, "op", log, func(context.Context) error {
			return errors.New("timeout")
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
