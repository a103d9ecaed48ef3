// Package api is the HTTP/websocket transport over the domain services. It
// maps domain error codes onto HTTP statuses and exposes change-bus
// subscriptions over websocket.
package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/yourorg/ephemeral-chats/internal/bus"
	"github.com/yourorg/ephemeral-chats/internal/config"
	"github.com/yourorg/ephemeral-chats/internal/service"
)

type Server struct {
	chats    *service.ChatsService
	invites  *service.InvitesService
	messages *service.MessagesService
	bus      *bus.Bus
	log      *zap.SugaredLogger
	app      *fiber.App
}

func NewServer(
	cfg *config.Config,
	chats *service.ChatsService,
	invites *service.InvitesService,
	messages *service.MessagesService,
	b *bus.Bus,
	log *zap.SugaredLogger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	s := &Server{chats: chats, invites: invites, messages: messages, bus: b, log: log, app: app}
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/v1")
	api.Use(JWTAuthMiddleware(cfg.JWT.Secret))

	api.Post("/chats", s.createChat)
	api.Get("/chats", s.filterPublicChats)
	api.Get("/chats/member", s.memberChats)
	api.Get("/chats/owned", s.userChats)
	api.Get("/chats/slug/:slug", s.chatBySlug)
	api.Get("/chats/invitation/:invitation", s.chatByInvitation)
	api.Get("/chats/:chat_id", s.chatByID)
	api.Patch("/chats/:chat_id", s.updateChat)
	api.Delete("/chats/:chat_id", s.removeChat)
	api.Post("/chats/:chat_id/leave", s.leaveChat)

	api.Post("/profiles", s.createProfile)
	api.Get("/chats/:chat_id/profiles", s.filterProfiles)
	api.Get("/chats/:chat_id/profiles/slug/:slug", s.profileBySlug)
	api.Get("/chats/:chat_id/profiles/:profile_id", s.profileByID)
	api.Patch("/chats/:chat_id/profile", s.updateOwnNickname)
	api.Patch("/chats/:chat_id/profiles/:profile_id", s.updateProfileNickname)
	api.Delete("/chats/:chat_id/profiles/:profile_id", s.removeProfile)

	api.Post("/invites", s.createInvite)
	api.Post("/invites/accept", s.acceptInvite)
	api.Post("/invites/decline", s.declineInvite)
	api.Post("/invites/reopen", s.updateRejectedInvite)
	api.Get("/invites/received", s.filterReceivedInvites)
	api.Get("/invites/sent", s.filterSentInvites)
	api.Get("/invites/sent/:invite_id", s.sentInviteByID)
	api.Get("/invites/:invite_id", s.inviteByID)
	api.Delete("/invites/:invite_id", s.deleteInvite)

	api.Post("/chats/:chat_id/messages", s.createMessage)
	api.Get("/chats/:chat_id/messages", s.filterChatMessages)
	api.Get("/chats/:chat_id/messages/:message_id", s.messageByID)
	api.Patch("/chats/:chat_id/messages/:message_id", s.updateMessage)
	api.Delete("/chats/:chat_id/messages/:message_id", s.removeMessage)

	api.Delete("/users/me", s.deleteUserData)

	api.Get("/ws", websocket.New(s.handleSubscription()))

	return app
}
