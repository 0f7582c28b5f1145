package middleware

import (
	"strings"

	"github.com/Sukhmangill23/E-Commerce-Microservices/pkg/token"
	"github.com/gofiber/fiber/v2"
)

func NewAuthMiddleware(verifier *token.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missed header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: Invalid header format"})
		}

		identity, err := verifier.Verify(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: Invalid token"})
		}

		c.Locals("userId", identity.SubjectID)

		// Downstream catalog calls are made on the caller's behalf and
		// need the raw credential.
		c.SetUserContext(token.WithCredential(c.UserContext(), parts[1]))

		return c.Next()
	}
}
