package redis

import (
	"context"
	"encoding/json"

	"go-engage/internal/domain"
	"go-engage/internal/logging/logkeys"

	"github.com/micromdm/nanolib/log"
	"github.com/redis/go-redis/v9"
)

const EngagementFinishedChannel = "engage:events:engagement_finished"

type RedisEventBus struct {
	client          *redis.Client
	finishedChannel string
	logger          log.Logger
}

func NewRedisEventBus(client *redis.Client, logger log.Logger) *RedisEventBus {
	if logger == nil {
		logger = log.NopLogger
	}
	return &RedisEventBus{
		client:          client,
		finishedChannel: EngagementFinishedChannel,
		logger:          logger,
	}
}

// PublishEngagementFinished broadcasts an engagement that was closed by its user
func (b *RedisEventBus) PublishEngagementFinished(ctx context.Context, event domain.EngagementFinishedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, b.finishedChannel, payload).Err()
}

// SubscribeToEngagementFinished opens a continuous stream for the Coordinator.
// The channel closes when ctx is done.
func (b *RedisEventBus) SubscribeToEngagementFinished(ctx context.Context) (<-chan domain.EngagementFinishedEvent, error) {
	pubsub := b.client.Subscribe(ctx, b.finishedChannel)

	// Wait for the subscription confirmation so no event published after
	// this call returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	msgChan := make(chan domain.EngagementFinishedEvent)

	go func() {
		defer close(msgChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event domain.EngagementFinishedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Info(logkeys.Message, "dropping malformed event", "channel", msg.Channel, logkeys.Error, err)
					continue
				}
				select {
				case msgChan <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return msgChan, nil
}
