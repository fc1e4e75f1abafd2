package service

import (
	"context"
	"errors"
	"time"

	"warhorse/internal/i18n"
	"warhorse/internal/models"
	"warhorse/internal/protocol"
	"warhorse/internal/realtime"
	"warhorse/internal/store"
)

// DeliveryPlan is a composed chat message plus the sessions it goes to. The
// dispatcher emits it after releasing the state lock.
type DeliveryPlan struct {
	Message    protocol.ChatMessage
	SessionIDs []string
}

// Chat authorizes and routes chat messages. Room messages fan out to every
// member session including the sender; whispers go to the recipient's
// session only and require friendship plus mutual non-block.
type Chat struct {
	store    store.Store
	registry *realtime.Registry
	rooms    *realtime.Rooms
	now      func() time.Time
}

// NewChat builds the chat router.
func NewChat(st store.Store, registry *realtime.Registry, rooms *realtime.Rooms) *Chat {
	return &Chat{store: st, registry: registry, rooms: rooms, now: time.Now}
}

// SetClock overrides the message timestamp source. Test hook.
func (c *Chat) SetClock(now func() time.Time) {
	c.now = now
}

// Send routes one message from the sender's session. An offline whisper
// recipient yields an empty delivery, not an error.
func (c *Chat) Send(ctx context.Context, senderID, sessionID string, req protocol.SendChatMessage) (DeliveryPlan, error) {
	sender, err := c.store.GetUser(ctx, senderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DeliveryPlan{}, models.Fail(i18n.CodeUnknownUser)
		}
		return DeliveryPlan{}, models.NewInternalError(err)
	}

	plan := DeliveryPlan{Message: protocol.ChatMessage{
		DisplayName: sender.DisplayName,
		Channel:     req.Channel,
		Message:     req.Message,
		Time:        c.now().Unix(),
	}}

	if roomID, ok := req.Channel.Room(); ok {
		if !c.rooms.IsMember(roomID, sessionID) {
			return DeliveryPlan{}, models.Fail(i18n.CodeNotInRoom)
		}
		plan.SessionIDs = c.rooms.Members(roomID)
		return plan, nil
	}

	if recipientID, ok := req.Channel.PrivateMessage(); ok {
		friends, err := c.areFriends(ctx, senderID, recipientID)
		if err != nil {
			return DeliveryPlan{}, err
		}
		if !friends {
			return DeliveryPlan{}, models.Fail(i18n.CodeNotFriends)
		}
		// Blocking tears the friendship down in the same command, so a
		// whisper after a block already failed above; this guards the
		// window where only the block exists.
		if blocked, berr := c.blockedEitherWay(ctx, senderID, recipientID); berr != nil {
			return DeliveryPlan{}, berr
		} else if blocked {
			return DeliveryPlan{}, models.Fail(i18n.CodeUserBlocked)
		}

		if recipientSession := c.registry.SessionOf(recipientID); recipientSession != "" {
			plan.SessionIDs = []string{recipientSession}
		}
		return plan, nil
	}

	return DeliveryPlan{}, models.Fail(i18n.CodeInternal)
}

func (c *Chat) areFriends(ctx context.Context, a, b string) (bool, error) {
	friends, err := c.store.Friends(ctx, a)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	for _, id := range friends {
		if id == b {
			return true, nil
		}
	}
	return false, nil
}

func (c *Chat) blockedEitherWay(ctx context.Context, a, b string) (bool, error) {
	ab, err := c.store.IsBlocked(ctx, a, b)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	if ab {
		return true, nil
	}
	ba, err := c.store.IsBlocked(ctx, b, a)
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return ba, nil
}
