package middleware

import (
	"errors"
	"net/http"

	"github.com/bilgisen/folio/internal/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// QueryKey is the Locals key holding the parsed query of ValidateQuery.
const QueryKey = "query"

var validate = validator.New()

// FieldErrors maps a struct field name to the validation tag it failed.
type FieldErrors map[string]string

// QueryErrorHandler renders a rejected query string.
type QueryErrorHandler func(c *fiber.Ctx, fields FieldErrors, err error) error

func defaultQueryError(c *fiber.Ctx, fields FieldErrors, err error) error {
	if fields == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid query parameters",
			"msg":   err.Error(),
		})
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error":  "Invalid query parameters",
		"fields": fields,
	})
}

// ValidateQuery parses the query string into a fresh T, validates it and
// stores it under QueryKey for the handler. Read it back with Query.
func ValidateQuery[T any](onError ...QueryErrorHandler) fiber.Handler {
	handle := defaultQueryError
	if len(onError) > 0 && onError[0] != nil {
		handle = onError[0]
	}

	return func(c *fiber.Ctx) error {
		q := new(T)
		if err := c.QueryParser(q); err != nil {
			return handle(c, nil, err)
		}

		if err := validate.Struct(q); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return handle(c, nil, err)
			}
			fields := make(FieldErrors, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return handle(c, fields, err)
		}

		c.Locals(QueryKey, q)
		return c.Next()
	}
}

// Query returns the value stored by ValidateQuery, or nil.
func Query[T any](c *fiber.Ctx) *T {
	q, _ := c.Locals(QueryKey).(*T)
	return q
}

// ErrorHandler is the app-wide fiber error handler. Responses are JSON with
// the fiber error message, or the status text for anything else.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := http.StatusText(code)

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	event := logger.With("http").Error()
	if code < fiber.StatusInternalServerError {
		event = logger.With("http").Warn()
	}
	event.
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", code).
		Msg("HTTP error")

	return c.Status(code).JSON(fiber.Map{
		"error": msg,
	})
}
