package sandbox

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/birbparty/birb-commerce/internal/telemetry"
	"github.com/birbparty/birb-commerce/sdk"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// HeaderDebug asks the sandbox to include console output in responses
const HeaderDebug = "X-Commerce-Debug"

const (
	localConsole = "console"
	localStart   = "start"
)

// RequireAPIKey rejects requests without a public key. When publicKey is set
// only that key is accepted.
func RequireAPIKey(publicKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(sdk.HeaderAuthorization))

		switch {
		case key == "":
			return unauthorized(c, "No API key was provided in the X-Authorization header")
		case strings.HasPrefix(strings.ToLower(key), "sk_"):
			return unauthorized(c, "Secret keys cannot be used from client code")
		case publicKey != "" && key != publicKey:
			return unauthorized(c, "The provided API key is not valid")
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).
		JSON(NewErrorResponse(fiber.StatusUnauthorized, ErrTypeAuthentication, message))
}

// Console turns on console output for requests carrying the debug header.
func Console() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.EqualFold(c.Get(HeaderDebug), "true") {
			c.Locals(localConsole, &[]string{})
			c.Locals(localStart, time.Now())
		}
		return c.Next()
	}
}

// consolef appends a line to the response console when debugging is on.
func consolef(c *fiber.Ctx, format string, args ...any) {
	lines, ok := c.Locals(localConsole).(*[]string)
	if !ok {
		return
	}
	*lines = append(*lines, fmt.Sprintf(format, args...))
}

func consoleLines(c *fiber.Ctx) ([]string, bool) {
	lines, ok := c.Locals(localConsole).(*[]string)
	if !ok {
		return nil, false
	}
	if start, ok := c.Locals(localStart).(time.Time); ok {
		*lines = append(*lines, fmt.Sprintf("%s %s took %s", c.Method(), c.Path(), time.Since(start).Round(time.Microsecond)))
	}
	return *lines, true
}

// ErrorHandler renders every handler error as an ErrorResponse.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	resp := NewErrorResponse(code, ErrTypeInternal, "Internal Server Error")

	var (
		fiberErr *fiber.Error
		fields   validation.Errors
		stockErr *StockError
	)
	switch {
	case errors.As(err, &fields):
		code = fiber.StatusUnprocessableEntity
		resp = NewErrorResponse(code, ErrTypeValidation, "The given data was invalid.")
		resp.Error.Errors = make(map[string]string, len(fields))
		for field, fieldErr := range fields {
			resp.Error.Errors[field] = fieldErr.Error()
		}
	case errors.As(err, &stockErr):
		code = fiber.StatusUnprocessableEntity
		resp = NewErrorResponse(code, ErrTypeValidation, "The given data was invalid.")
		resp.Error.Errors = map[string]string{"quantity": stockErr.Error()}
	case errors.Is(err, ErrNotFound):
		code = fiber.StatusNotFound
		resp = NewErrorResponse(code, ErrTypeNotFound, capitalize(err.Error()))
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		resp = NewErrorResponse(code, errorType(code), fiberErr.Message)
	}

	entry := telemetry.L().WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
		"status": code,
	})
	if code >= fiber.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.WithError(err).Debug("Request rejected")
	}

	return c.Status(code).JSON(resp)
}

func errorType(code int) string {
	switch code {
	case fiber.StatusNotFound:
		return ErrTypeNotFound
	case fiber.StatusUnauthorized:
		return ErrTypeAuthentication
	case fiber.StatusUnprocessableEntity:
		return ErrTypeValidation
	}
	if code >= fiber.StatusInternalServerError {
		return ErrTypeInternal
	}
	return ErrTypeInvalidRequest
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
