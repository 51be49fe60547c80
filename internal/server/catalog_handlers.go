package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ListTags handles GET /api/tags
// @Summary List all tags
// @Tags catalog
// @Produce json
// @Success 200 {array} tagResponse
// @Router /tags [get]
func (s *Server) ListTags(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	tags, err := s.catalogService.ListTags(ctx)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toTagResponses(tags))
}

// GetTag handles GET /api/tags/:id
// @Summary Get a tag
// @Tags catalog
// @Produce json
// @Param id path int true "Tag ID"
// @Success 200 {object} tagResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /tags/{id} [get]
func (s *Server) GetTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	tag, err := s.catalogService.GetTag(ctx, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toTagResponse(*tag))
}

// ListIngredients handles GET /api/ingredients
// @Summary Search ingredients by name prefix
// @Tags catalog
// @Produce json
// @Param name query string false "Case-insensitive name prefix"
// @Success 200 {array} ingredientResponse
// @Router /ingredients [get]
func (s *Server) ListIngredients(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	ingredients, err := s.catalogService.ListIngredients(ctx, strings.TrimSpace(c.Query("name")))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toIngredientResponses(ingredients))
}

// GetIngredient handles GET /api/ingredients/:id
// @Summary Get an ingredient
// @Tags catalog
// @Produce json
// @Param id path int true "Ingredient ID"
// @Success 200 {object} ingredientResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /ingredients/{id} [get]
func (s *Server) GetIngredient(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	ingredient, err := s.catalogService.GetIngredient(ctx, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toIngredientResponse(*ingredient))
}
