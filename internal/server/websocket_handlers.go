package server

import (
	"errors"
	"log/slog"

	"candor/internal/middleware"
	"candor/internal/models"
	"candor/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ModerationFeedHandler streams new-report and escalation events for the
// caller's company to a moderator's browser.
func (s *Server) ModerationFeedHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		actor, ok := conn.Locals(actorLocal).(models.Actor)
		if !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.moderationHub.Register(actor.CompanyID, actor.UserID, conn)
		if err != nil {
			middleware.Logger.Warn("moderation feed rejected",
				slog.String("user_id", actor.UserID), slog.String("error", err.Error()))
			msg := `{"error":"feed unavailable"}`
			if errors.Is(err, notifications.ErrFeedFull) {
				msg = `{"error":"too many feed connections"}`
			}
			_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
			_ = conn.Close()
			return
		}
		client.Serve()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
