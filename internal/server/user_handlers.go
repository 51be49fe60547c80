package server

import (
	"foodgram/internal/media"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/users
// @Summary Register a new user
// @Tags users
// @Accept json
// @Produce json
// @Param request body registerRequest true "Account details"
// @Success 201 {object} registerResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /users [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := s.userService.Register(ctx, req.toInput())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toRegisterResponse(user))
}

// ListUsers handles GET /api/users
// @Summary List users
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} pageResponse[userResponse]
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	page := parsePagination(c)
	views, total, err := s.userService.List(ctx, currentUserID(c), page.repo())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(paginate(c, page, total, toUserResponses(views)))
}

// GetUser handles GET /api/users/:id
// @Summary Get a user profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} userResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := s.userService.Get(ctx, currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toUserResponse(view.User, view.IsSubscribed))
}

// GetMe handles GET /api/users/me
// @Summary Get the current user
// @Tags users
// @Security TokenAuth
// @Produce json
// @Success 200 {object} userResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMe(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	userID := currentUserID(c)
	view, err := s.userService.Get(ctx, userID, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toUserResponse(view.User, false))
}

// SetPassword handles POST /api/users/set_password
// @Summary Change the current user's password
// @Tags users
// @Security TokenAuth
// @Accept json
// @Param request body setPasswordRequest true "Passwords"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Router /users/set_password [post]
func (s *Server) SetPassword(c *fiber.Ctx) error {
	var req setPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := s.userService.SetPassword(ctx, currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetAvatar handles PUT /api/users/me/avatar
// @Summary Upload an avatar as a base64 data URI
// @Tags users
// @Security TokenAuth
// @Accept json
// @Produce json
// @Param request body avatarRequest true "Avatar image"
// @Success 200 {object} avatarRequest
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me/avatar [put]
func (s *Server) SetAvatar(c *fiber.Ctx) error {
	var req avatarRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	path, err := s.userService.SetAvatar(ctx, currentUserID(c), req.Avatar)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(avatarRequest{Avatar: media.URL(path)})
}

// DeleteAvatar handles DELETE /api/users/me/avatar
// @Summary Remove the current user's avatar
// @Tags users
// @Security TokenAuth
// @Success 204
// @Router /users/me/avatar [delete]
func (s *Server) DeleteAvatar(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := s.userService.DeleteAvatar(ctx, currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListSubscriptions handles GET /api/users/subscriptions
// @Summary List followed authors with a recipe preview
// @Tags subscriptions
// @Security TokenAuth
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param recipes_limit query int false "Recipes per author"
// @Success 200 {object} pageResponse[subscriptionResponse]
// @Router /users/subscriptions [get]
func (s *Server) ListSubscriptions(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	page := parsePagination(c)
	views, total, err := s.subscriptionService.List(ctx, currentUserID(c), page.repo(), recipesLimit(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(paginate(c, page, total, toSubscriptionResponses(views)))
}

// Subscribe handles POST /api/users/:id/subscribe
// @Summary Follow an author
// @Tags subscriptions
// @Security TokenAuth
// @Produce json
// @Param id path int true "Author ID"
// @Param recipes_limit query int false "Recipes in the preview"
// @Success 201 {object} subscriptionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/subscribe [post]
func (s *Server) Subscribe(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	view, err := s.subscriptionService.Subscribe(ctx, currentUserID(c), authorID, recipesLimit(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSubscriptionResponse(*view))
}

// Unsubscribe handles DELETE /api/users/:id/subscribe
// @Summary Stop following an author
// @Tags subscriptions
// @Security TokenAuth
// @Param id path int true "Author ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/subscribe [delete]
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := s.subscriptionService.Unsubscribe(ctx, currentUserID(c), authorID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// recipesLimit reads recipes_limit. Anything but a positive integer means
// no cap.
func recipesLimit(c *fiber.Ctx) int {
	limit := c.QueryInt("recipes_limit", 0)
	if limit < 0 {
		return 0
	}
	return limit
}
