package response

import "github.com/gofiber/fiber/v3"

// Envelope is the body of every gateway answer.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

const (
	MessageOK                  = "ok"
	MessageIgnored             = "ignored"
	MessageBadRequest          = "bad request"
	MessageUnauthorized        = "unauthorized"
	MessageNotFound            = "not found"
	MessageConflict            = "conflict"
	MessageUnprocessableEntity = "unprocessable entity"
	MessageTooManyRequests     = "too many requests"
	MessageInternalServerError = "internal server error"
	MessageBadGateway          = "backend unavailable"
	MessageGatewayTimeout      = "backend timeout"
	MessageError               = "error"
)

func Success(c fiber.Ctx, status int, message string, data any) error {
	return write(c, status, message, data)
}

func Error(c fiber.Ctx, status int, message string, data any) error {
	return write(c, status, message, data)
}

// Unavailable answers 502 for screens the backend could not serve. data may
// still carry a partial payload such as a stale net list.
func Unavailable(c fiber.Ctx, message string, data any) error {
	return write(c, fiber.StatusBadGateway, message, data)
}

func write(c fiber.Ctx, status int, message string, data any) error {
	if status < 100 || status > 599 {
		status = fiber.StatusInternalServerError
	}
	if message == "" {
		message = DefaultMessage(status)
	}
	return c.Status(status).JSON(Envelope{Status: status, Message: message, Data: data})
}

func DefaultMessage(status int) string {
	switch status {
	case fiber.StatusOK:
		return MessageOK
	case fiber.StatusBadRequest:
		return MessageBadRequest
	case fiber.StatusUnauthorized:
		return MessageUnauthorized
	case fiber.StatusNotFound:
		return MessageNotFound
	case fiber.StatusConflict:
		return MessageConflict
	case fiber.StatusUnprocessableEntity:
		return MessageUnprocessableEntity
	case fiber.StatusTooManyRequests:
		return MessageTooManyRequests
	case fiber.StatusBadGateway, fiber.StatusServiceUnavailable:
		return MessageBadGateway
	case fiber.StatusGatewayTimeout:
		return MessageGatewayTimeout
	}
	if status >= 200 && status < 300 {
		return MessageOK
	}
	if status >= 500 {
		return MessageInternalServerError
	}
	return MessageError
}
