package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/benvon/moodhome/internal/models"
)

const channelPrefix = "moodhome:changes:"

// DialRedis parses redisURL, connects and verifies the connection.
func DialRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisNotifier fans change events out through Redis pub/sub so that the
// worker's writes reach subscribers connected to any server instance.
type RedisNotifier struct {
	client *redis.Client
}

// NewRedisNotifier wraps an existing client. The client is not closed by Close.
func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func channelFor(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

// Publish sends collection on the user's channel.
func (n *RedisNotifier) Publish(ctx context.Context, userID uuid.UUID, collection models.Collection) error {
	if err := n.client.Publish(ctx, channelFor(userID), string(collection)).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Subscribe listens on the user's channel until cancel is called or ctx ends.
func (n *RedisNotifier) Subscribe(ctx context.Context, userID uuid.UUID) (<-chan models.Collection, func(), error) {
	ps := n.client.Subscribe(ctx, channelFor(userID))
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to changes: %w", err)
	}

	mb := newMailbox()
	subCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer mb.close()
		defer func() { _ = ps.Close() }()
		msgs := ps.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c, known := models.ParseCollection(msg.Payload)
				if !known {
					continue
				}
				mb.put(c)
			}
		}
	}()
	return mb.out, cancel, nil
}

// Close is a no-op; the shared client is owned by the caller.
func (n *RedisNotifier) Close() error {
	return nil
}
