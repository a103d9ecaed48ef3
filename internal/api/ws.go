package api

import (
	"context"
	"errors"

	"github.com/gofiber/websocket/v2"

	"github.com/yourorg/ephemeral-chats/internal/bus"
)

var errUnknownKind = errors.New("unknown subscription kind")

// handleSubscription streams change events for one topic over a websocket.
// The client picks the topic with query params: kind=chat|profiles|messages
// plus chat_id, or kind=invite for the caller's own invite stream. The
// authorization filter runs again on every delivered event, so a subscriber
// who loses membership mid-stream stops receiving.
func (s *Server) handleSubscription() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()
		uid, _ := conn.Locals("user_id").(string)
		if uid == "" {
			return
		}

		kind := conn.Query("kind")
		chatID := conn.Query("chat_id")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		topic, filter, err := s.resolveTopic(ctx, uid, kind, chatID)
		if err != nil {
			_ = conn.WriteJSON(map[string]string{"error": err.Error()})
			return
		}

		sub := s.bus.Subscribe(ctx, topic, filter)
		defer sub.Close()

		// drain the client side only to notice disconnects
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-sub.C:
				if !ok {
					return
				}
				if err := conn.WriteJSON(change); err != nil {
					return
				}
			}
		}
	}
}

func (s *Server) resolveTopic(ctx context.Context, uid, kind, chatID string) (string, bus.Filter, error) {
	switch kind {
	case "chat":
		if _, err := s.chats.ChatByID(ctx, uid, chatID); err != nil {
			return "", nil, err
		}
		return bus.ChatTopic(chatID), func(ctx context.Context, c bus.Change) bool {
			_, err := s.chats.ChatByID(ctx, uid, chatID)
			return err == nil
		}, nil
	case "profiles":
		if _, err := s.chats.CheckChatMembership(ctx, uid, chatID); err != nil {
			return "", nil, err
		}
		return bus.ProfilesTopic(chatID), s.membershipFilter(uid, chatID), nil
	case "messages":
		if _, err := s.chats.CheckChatMembership(ctx, uid, chatID); err != nil {
			return "", nil, err
		}
		return bus.MessagesTopic(chatID), s.membershipFilter(uid, chatID), nil
	case "invite":
		return bus.InviteTopic(uid), nil, nil
	}
	return "", nil, errUnknownKind
}

func (s *Server) membershipFilter(uid, chatID string) bus.Filter {
	return func(ctx context.Context, c bus.Change) bool {
		member, err := s.chats.CheckProfileExistence(ctx, uid, chatID)
		return err == nil && member
	}
}
