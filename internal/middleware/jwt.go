package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-course-api/internal/utils"
)

// Locals written by the authentication middlewares.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

// ServiceTokenHeader authenticates trusted services such as the judge.
const ServiceTokenHeader = "X-Service-Token"

var errUnsupportedSubject = errors.New("unsupported subject")

// JWTProtected validates HMAC-signed bearer tokens and exposes the subject and
// role as request locals.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if len(authorization) <= len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		token, err := jwt.Parse(strings.TrimSpace(authorization[len(bearer):]), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		if userID, ok := userIDFromClaims(claims); ok {
			c.Locals(LocalUserID, userID)
		}
		if role := roleFromClaims(claims); role != "" {
			c.Locals(LocalUserRole, role)
		}

		return c.Next()
	}
}

// JWTOrServiceToken accepts either a matching service token, which grants
// serviceRole, or a valid bearer token.
func JWTOrServiceToken(secret, serviceToken, serviceRole string) fiber.Handler {
	jwtHandler := JWTProtected(secret)
	return func(c *fiber.Ctx) error {
		presented := c.Get(ServiceTokenHeader)
		if presented == "" || serviceToken == "" {
			return jwtHandler(c)
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(serviceToken)) != 1 {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid service token")
		}
		c.Locals(LocalUserRole, strings.ToLower(serviceRole))
		return c.Next()
	}
}

func userIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		if id, err := normalizeUserID(value); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, errUnsupportedSubject
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	default:
		return 0, errUnsupportedSubject
	}
}

func roleFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			if role := strings.ToLower(strings.TrimSpace(v)); role != "" {
				return role
			}
		case []interface{}:
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					return strings.ToLower(strings.TrimSpace(s))
				}
			}
		}
	}
	return ""
}
