package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "chat:"

// redisPayload is the message published for cross-instance delivery.
type redisPayload struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    int64           `json:"at"`
}

// RedisPubSub bridges apartment chat channels through Redis.
type RedisPubSub struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisPubSub creates the bridge.
func NewRedisPubSub(client *redis.Client, logger *slog.Logger) *RedisPubSub {
	return &RedisPubSub{client: client, logger: logger.With("component", "realtime")}
}

// ChannelName returns the Redis channel of an apartment.
func ChannelName(code string) string {
	return channelPrefix + code
}

// PublishChat publishes an event to the apartment's channel.
func (r *RedisPubSub) PublishChat(ctx context.Context, code, event string, data []byte) error {
	body, err := json.Marshal(redisPayload{Event: event, Data: data, At: time.Now().Unix()})
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, ChannelName(code), body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// SubscribeChat subscribes to the apartment's channel and calls handler for
// each event until cancel is called.
func (r *RedisPubSub) SubscribeChat(code string, handler func(event string, data []byte)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, ChannelName(code))
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var p redisPayload
				if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
					r.logger.Warn("chat_payload_invalid", "channel", msg.Channel, "error", err)
					continue
				}
				handler(p.Event, p.Data)
			}
		}
	}()

	return cancel, nil
}
