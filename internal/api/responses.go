// Package api - HTTP API на fiber: каталог, регистрация, вход, профиль, инвентарь.
// responses.go переводит ошибки из common в HTTP-статусы и JSON.
package api

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/cod-inventory/internal/common"
)

// ErrorBody - тело ответа с ошибкой.
type ErrorBody struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo - код, сообщение и детали ошибки.
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// SendError отправляет JSON с ошибкой.
func SendError(c *fiber.Ctx, status int, code, message string, details map[string]string) error {
	return c.Status(status).JSON(ErrorBody{Error: ErrorInfo{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// sendServiceError выбирает статус по типу ошибки сервиса.
// Внутренние ошибки не раскрываются клиенту, только пишутся в лог.
func sendServiceError(c *fiber.Ctx, err error) error {
	var funds *common.InsufficientFundsError
	switch {
	case errors.As(err, &funds):
		return SendError(c, http.StatusBadRequest, "INSUFFICIENT_FUNDS", err.Error(), map[string]string{
			"required":  funds.Required.StringFixed(2),
			"available": funds.Available.StringFixed(2),
		})
	case errors.Is(err, common.ErrInsufficientFunds):
		return SendError(c, http.StatusBadRequest, "INSUFFICIENT_FUNDS", err.Error(), nil)
	case errors.Is(err, common.ErrNotFound):
		return SendError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, common.ErrInvalidArgument):
		return SendError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
	case errors.Is(err, common.ErrUnauthorized):
		return SendError(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
	case errors.Is(err, common.ErrForbidden):
		return SendError(c, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, common.ErrConflict):
		return SendError(c, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, common.ErrTooManyAttempts):
		return SendError(c, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", err.Error(), nil)
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Внутренняя ошибка")
		return SendError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "внутренняя ошибка сервера", nil)
	}
}

// errorHandler - обработчик ошибок fiber (404 маршрута, 405, паника после recover).
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "HTTP_ERROR"
		switch fe.Code {
		case http.StatusNotFound:
			code = "NOT_FOUND"
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case http.StatusBadRequest:
			code = "BAD_REQUEST"
		}
		return SendError(c, fe.Code, code, fe.Message, nil)
	}
	return sendServiceError(c, err)
}
