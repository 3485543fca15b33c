package controllers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"bizdir/internal/pkg/usercontext"
)

// Locals and session keys shared with the middleware layer.
const (
	AUTH_KEY       string = usercontext.AuthKey
	USER_ID        string = usercontext.KeyUserID
	USER_NAME      string = usercontext.KeyUsername
	USER_EMAIL     string = usercontext.KeyUserEmail
	USER_IS_ADMIN  string = usercontext.KeyIsAdmin
	FROM_PROTECTED string = usercontext.KeyFromProtected
)

const defaultPageSize = 20

func isLoggedIn(c *fiber.Ctx) bool {
	var fromProtected bool
	if protectedValue := c.Locals(FROM_PROTECTED); protectedValue != nil {
		fromProtected = protectedValue.(bool)
	}

	return fromProtected
}

// ExtractUsername gets the username from Locals (set by middleware)
func ExtractUsername(c *fiber.Ctx) string {
	if userNameValue := c.Locals(USER_NAME); userNameValue != nil {
		if userName, ok := userNameValue.(string); ok {
			return userName
		}
	}

	return ""
}

// paramUint parses a numeric path parameter, 0 when absent or malformed.
func paramUint(c *fiber.Ctx, name string) uint {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

// pagination reads page/limit query parameters and converts them to an
// offset/limit pair. Page numbering starts at 1.
func pagination(c *fiber.Ctx) (offset, limit int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", defaultPageSize)
	if limit < 1 || limit > 100 {
		limit = defaultPageSize
	}
	return (page - 1) * limit, limit
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// formInt parses an integer form field, 0 when absent or malformed.
func formInt(c *fiber.Ctx, field string) int {
	v, err := strconv.Atoi(c.FormValue(field))
	if err != nil {
		return 0
	}
	return v
}

// formInt64 parses an int64 form field, 0 when absent or malformed.
func formInt64(c *fiber.Ctx, field string) int64 {
	v, err := strconv.ParseInt(c.FormValue(field), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// validateStruct runs validator tags over any model struct.
func validateStruct(s interface{}) error {
	return validator.New().Struct(s)
}
