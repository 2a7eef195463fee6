package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sunenergyxt/service-portal/internal/events"
)

// DefaultPublishTimeout bounds one PUBLISH so an unreachable Redis cannot
// stall the request that emitted the event.
const DefaultPublishTimeout = 2 * time.Second

// Publisher is the subset of the go-redis client used by the relay.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisRelay forwards domain events as JSON to a Redis pub/sub channel so
// other processes can follow ticket activity.
type RedisRelay struct {
	client  Publisher
	channel string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisRelay returns nil when client or channel is missing, which
// disables relaying.
func NewRedisRelay(client Publisher, channel string, logger *zap.Logger) *RedisRelay {
	if client == nil || channel == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{client: client, channel: channel, timeout: DefaultPublishTimeout, logger: logger}
}

// WithTimeout overrides the per-publish deadline.
func (r *RedisRelay) WithTimeout(timeout time.Duration) *RedisRelay {
	if r != nil && timeout > 0 {
		r.timeout = timeout
	}
	return r
}

// Handle publishes one event. It is registered as a wildcard handler and
// runs on the request path, so the publish gets its own deadline and ignores
// cancellation of the request context.
func (r *RedisRelay) Handle(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("relay: encode %s: %w", event.Type, err)
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	receivers, err := r.client.Publish(pubCtx, r.channel, body).Result()
	if err != nil {
		return fmt.Errorf("relay: publish %s: %w", event.Type, err)
	}
	r.logger.Debug("event relayed",
		zap.String("event_type", string(event.Type)),
		zap.String("channel", r.channel),
		zap.Int64("receivers", receivers))
	return nil
}
