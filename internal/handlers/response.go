package handlers

import (
	"errors"

	"studentrecords/internal/apperrors"
	"studentrecords/internal/logger"
	"studentrecords/internal/models"

	"github.com/gofiber/fiber/v2"
)

const serverErrorMessage = "Server Error"

// Response is the JSON envelope of every API response.
type Response struct {
	Success    bool                   `json:"success"`
	Data       interface{}            `json:"data,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Errors     []apperrors.FieldError `json:"errors,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
}

func respond(c *fiber.Ctx, status int, data interface{}, message string) error {
	return c.Status(status).JSON(Response{Success: true, Data: data, Message: message})
}

func failWith(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Response{Success: false, Message: message})
}

// fail maps err onto a status code and client-facing message. Anything not
// recognised is logged and reported as a generic server error.
func fail(c *fiber.Ctx, err error) error {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.Status(fiber.StatusBadRequest).JSON(Response{Success: false, Errors: ve.Errors})
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrBadRequest):
		return failWith(c, fiber.StatusBadRequest, apperrors.Message(err, "Bad request"))
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return failWith(c, fiber.StatusNotFound, apperrors.Message(err, "Not found"))
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return failWith(c, fiber.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return failWith(c, fiber.StatusUnauthorized, "Not authorized, token failed")
	}

	logger.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	return failWith(c, fiber.StatusInternalServerError, serverErrorMessage)
}

// ErrorHandler is the Fiber error handler. It keeps errors raised outside the
// handlers, such as unknown routes and recovered panics, inside the envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code >= fiber.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			return failWith(c, fe.Code, serverErrorMessage)
		}
		return failWith(c, fe.Code, fe.Message)
	}
	return fail(c, err)
}

// HandleHealth reports that the process is serving requests.
func HandleHealth(c *fiber.Ctx) error {
	return respond(c, fiber.StatusOK, fiber.Map{"status": "ok"}, "")
}
