package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/constants"
	"github.com/aman-zulfiqar/evm-swap-engine/internal/models"
)

// PublishAttempt publishes to the live channel and the per-chain channel.
func (r *RedisCache) PublishAttempt(ctx context.Context, attempt *models.SwapAttempt) error {
	data, err := json.Marshal(attempt)
	if err != nil {
		return err
	}

	channels := []string{
		constants.PubSubChannelSwaps,
		fmt.Sprintf("%s:%d", constants.PubSubChannelSwaps, attempt.ChainID),
	}

	pipe := r.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// SubscribeAttempts streams attempts from the live channel until ctx is done.
// The returned channel is closed when the subscription ends.
func (r *RedisCache) SubscribeAttempts(ctx context.Context) (<-chan *models.SwapAttempt, error) {
	pubsub := r.client.Subscribe(ctx, constants.PubSubChannelSwaps)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", constants.PubSubChannelSwaps, err)
	}

	r.logger.WithField("channel", constants.PubSubChannelSwaps).Info("subscribed to swap feed")

	out := make(chan *models.SwapAttempt, 64)
	go func() {
		defer close(out)
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
				var a models.SwapAttempt
				if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
					r.logger.WithError(err).Warn("error unmarshaling attempt")
					continue
				}
				select {
				case out <- &a:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
