package realtime

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"github.com/redis/go-redis/v9"

	"warhorse/internal/observability"
)

// Telemetry channel names. Sibling backend services (matchmaking, game
// lobbies) subscribe to these to react to social-graph changes without
// holding a socket here.
const (
	ChannelPresence = "social:presence"
	ChannelGraph    = "social:graph"
)

// Telemetry event kinds.
const (
	EventUserOnline       = "user.online"
	EventUserOffline      = "user.offline"
	EventFriendshipFormed = "friendship.formed"
)

// TelemetryEvent is the JSON envelope published to the telemetry channels.
type TelemetryEvent struct {
	Kind    string `json:"kind"`
	UserID  string `json:"user_id"`
	OtherID string `json:"other_id,omitempty"`
	Time    int64  `json:"time"`
}

// Notifier publishes social telemetry into Redis pub/sub. It is never
// load-bearing: with a nil client every publish is a no-op, and publish
// failures are logged and swallowed.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUserOnline announces that a user came online.
func (n *Notifier) PublishUserOnline(ctx context.Context, userID string) {
	n.publish(ctx, ChannelPresence, TelemetryEvent{Kind: EventUserOnline, UserID: userID})
}

// PublishUserOffline announces that a user went offline.
func (n *Notifier) PublishUserOffline(ctx context.Context, userID string) {
	n.publish(ctx, ChannelPresence, TelemetryEvent{Kind: EventUserOffline, UserID: userID})
}

// PublishFriendshipFormed announces a new friendship between two users.
func (n *Notifier) PublishFriendshipFormed(ctx context.Context, userID, otherID string) {
	n.publish(ctx, ChannelGraph, TelemetryEvent{Kind: EventFriendshipFormed, UserID: userID, OtherID: otherID})
}

func (n *Notifier) publish(ctx context.Context, channel string, event TelemetryEvent) {
	if n == nil || n.rdb == nil {
		return
	}
	event.Time = time.Now().Unix()
	payload, err := json.Marshal(event)
	if err != nil {
		observability.GlobalLogger.Warn("telemetry marshal failed",
			"kind", event.Kind, "error", err.Error())
		return
	}
	if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("telemetry_publish").Inc()
		observability.GlobalLogger.Warn("telemetry publish failed",
			"channel", channel, "kind", event.Kind, "error", err.Error())
	}
}

// StartSubscriber subscribes to both telemetry channels and calls onEvent
// for each decoded message. The subscriber goroutine isolates panics in the
// callback and exits when ctx is done. Used by consumers and tests.
func (n *Notifier) StartSubscriber(ctx context.Context, onEvent func(channel string, event TelemetryEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, ChannelPresence, ChannelGraph)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event TelemetryEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					observability.GlobalLogger.Warn("telemetry decode failed",
						"channel", msg.Channel, "error", err.Error())
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in telemetry subscriber",
								"recover", r, "stack", string(debug.Stack()))
						}
					}()
					onEvent(msg.Channel, event)
				}()
			}
		}
	}()

	return nil
}
