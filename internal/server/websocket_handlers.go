package server

import (
	"log/slog"

	"foodgram/internal/featureflags"
	"foodgram/internal/middleware"
	"foodgram/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// NotificationsUpgrade admits only WebSocket upgrades for users the
// realtime flag is enabled for.
func (s *Server) NotificationsUpgrade(c *fiber.Ctx) error {
	if s.hub == nil || !s.featureFlags.Enabled(featureflags.RealtimeNotifications, currentUserID(c)) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			&models.AppError{Code: models.CodeNotFound, Message: "realtime notifications are not enabled"})
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// NotificationsHandler handles GET /api/ws
// @Summary Stream new-recipe notifications
// @Description Pushes a JSON event whenever a followed author publishes a recipe.
// @Tags notifications
// @Param ticket query string false "Single-use ticket from POST /ws/ticket"
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) NotificationsHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("notification socket rejected",
				slog.Uint64("user_id", uint64(userID)), slog.Any("error", err))
			_ = conn.WriteJSON(fiber.Map{"error": err.Error()})
			_ = conn.Close()
			return
		}
		middleware.Logger.Debug("notification socket connected", slog.Uint64("user_id", uint64(userID)))

		go client.WritePump()
		client.ReadPump()
	})
}
