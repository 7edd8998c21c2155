package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ryanspoone/sdlc-metrics/internal/entities"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(c *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	code := "INTERNAL"
	msg := err.Error()

	switch {
	case errors.Is(err, entities.ErrConfiguration):
		status = http.StatusBadRequest
		code = "CONFIGURATION"
	case errors.Is(err, entities.ErrRetryExhausted):
		status = http.StatusBadGateway
		code = "UPSTREAM_UNAVAILABLE"
	case errors.Is(err, entities.ErrMalformedResponse):
		status = http.StatusBadGateway
		code = "UPSTREAM_MALFORMED"
	case errors.Is(err, entities.ErrRateLimited):
		status = http.StatusBadGateway
		code = "UPSTREAM_RATE_LIMITED"
	}

	return c.Status(status).JSON(errorResponse(code, msg))
}

func writeNotFound(c *fiber.Ctx, msg string) error {
	return c.Status(http.StatusNotFound).JSON(errorResponse("NOT_FOUND", msg))
}

func errorResponse(code, msg string) errorBody {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = msg
	return body
}
