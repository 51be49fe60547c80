package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"foodgram/internal/cache"
	"foodgram/internal/middleware"
	"foodgram/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	wsTicketTTL       = 30 * time.Second
	wsTicketKeyPrefix = "ws_ticket:"
)

// tokenClaims is the verified content of an access token.
type tokenClaims struct {
	UserID    uint
	JTI       string
	ExpiresAt time.Time
}

// issueToken signs an access token for userID.
func (s *Server) issueToken(userID uint) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iss": s.config.JWTIssuer,
		"aud": s.config.JWTAudience,
		"exp": now.Add(time.Duration(s.config.TokenTTLHours) * time.Hour).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// parseToken verifies signature, time claims, issuer and audience, then
// rejects tokens whose jti was revoked by logout.
func (s *Server) parseToken(ctx context.Context, raw string) (*tokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.config.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.JWTIssuer))
	}
	if s.config.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(s.config.JWTAudience))
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return nil, models.NewUnauthorizedError("Invalid user ID in token")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, models.NewUnauthorizedError("Invalid expiration claim")
	}
	jti, _ := claims["jti"].(string)

	if jti != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, cache.BlacklistKey(jti)).Result()
		if err != nil {
			middleware.Logger.WarnContext(ctx, "token blacklist lookup failed", "error", err)
		} else if revoked > 0 {
			return nil, models.NewUnauthorizedError("Token has been revoked")
		}
	}

	return &tokenClaims{UserID: uint(userID), JTI: jti, ExpiresAt: exp.Time}, nil
}

// bearerToken extracts the token from "Bearer <jwt>" or "Token <jwt>".
func bearerToken(c *fiber.Ctx) (string, bool) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found {
		return "", true
	}
	switch scheme {
	case "Bearer", "Token":
		return strings.TrimSpace(token), true
	}
	return "", true
}

// setUser stores the authenticated user on the request and re-syncs the user
// context so downstream logs carry the id.
func setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(middleware.WithRequestValues(c, c.UserContext()))
}

// OptionalAuth authenticates the request when credentials are present and
// lets anonymous requests through. Bad credentials are still rejected.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, present := bearerToken(c)
		if !present {
			return c.Next()
		}
		if raw == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}
		claims, err := s.parseToken(c.UserContext(), raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		setUser(c, claims.UserID)
		c.Locals("tokenClaims", claims)
		return c.Next()
	}
}

// AuthRequired returns the authentication middleware. WebSocket routes also
// accept a single-use ticket in the query string since browsers cannot set
// headers on the upgrade request.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUserID(c) != 0 {
			return c.Next()
		}

		if ticket := c.Query("ticket"); ticket != "" && strings.HasPrefix(c.Path(), "/api/ws") {
			userID, err := s.consumeWSTicket(c.UserContext(), ticket)
			if err != nil {
				return respondServiceError(c, err)
			}
			setUser(c, userID)
			return c.Next()
		}

		raw, _ := bearerToken(c)
		if raw == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication credentials were not provided"))
		}
		claims, err := s.parseToken(c.UserContext(), raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		setUser(c, claims.UserID)
		c.Locals("tokenClaims", claims)
		return c.Next()
	}
}

// AdminRequired rejects non-admin users with 403. It must run after
// AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := s.userService.Get(ctx, 0, currentUserID(c))
		if err != nil {
			return respondServiceError(c, err)
		}
		if !view.User.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Login handles POST /api/auth/token/login
// @Summary Obtain an access token
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login credentials"
// @Success 200 {object} object{auth_token=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/token/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := s.userService.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"auth_token": token})
}

// Logout handles POST /api/auth/token/logout
// @Summary Revoke the current access token
// @Tags auth
// @Security TokenAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/token/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals("tokenClaims").(*tokenClaims)
	if !ok || claims.JTI == "" {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if s.redis == nil {
		middleware.Logger.WarnContext(c.UserContext(), "logout without redis, token stays valid until expiry")
		return c.SendStatus(fiber.StatusNoContent)
	}

	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err := s.redis.Set(c.UserContext(), cache.BlacklistKey(claims.JTI), "1", ttl).Err(); err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a single-use WebSocket ticket
// @Tags notifications
// @Security TokenAuth
// @Produce json
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewAppError("UNAVAILABLE", "realtime notifications are unavailable", nil))
	}
	ticket := uuid.NewString()
	key := wsTicketKeyPrefix + ticket
	if err := s.redis.Set(c.UserContext(), key, currentUserID(c), wsTicketTTL).Err(); err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// consumeWSTicket atomically reads and deletes ticket.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (uint, error) {
	if s.redis == nil {
		return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	raw, err := s.redis.GetDel(ctx, wsTicketKeyPrefix+ticket).Result()
	if errors.Is(err, redis.Nil) {
		return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	userID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || userID == 0 {
		return 0, models.NewUnauthorizedError("Invalid or expired WebSocket ticket")
	}
	return uint(userID), nil
}
