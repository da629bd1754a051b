package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/common"
)

const localPlayerID = "player_id"

// requestLogger пишет в лог каждый запрос; уровень зависит от статуса.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		entry := log.WithFields(log.Fields{
			"method":   c.Method(),
			"path":     c.Path(),
			"status":   status,
			"duration": time.Since(start),
			"ip":       c.IP(),
		})
		if id, ok := c.Locals(localPlayerID).(int64); ok {
			entry = entry.WithField("player_id", id)
		}

		switch {
		case status >= 500:
			entry.Error("HTTP запрос")
		case status >= 400:
			entry.Warn("HTTP запрос")
		default:
			entry.Debug("HTTP запрос")
		}
		return err
	}
}

// authRequired проверяет Bearer access-токен и кладёт ID игрока в Locals.
func authRequired(auth AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return sendServiceError(c, common.ErrUnauthorized)
		}

		playerID, err := auth.Authenticate(strings.TrimSpace(token))
		if err != nil {
			return sendServiceError(c, err)
		}

		c.Locals(localPlayerID, playerID)
		return c.Next()
	}
}

// currentPlayerID - ID игрока, выставленный authRequired.
func currentPlayerID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(localPlayerID).(int64)
	return id
}
