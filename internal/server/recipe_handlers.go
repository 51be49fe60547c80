package server

import (
	"context"
	"fmt"
	"strconv"

	"foodgram/internal/models"
	"foodgram/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListRecipes handles GET /api/recipes
// @Summary List recipes, newest first
// @Tags recipes
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param author query int false "Author ID"
// @Param tags query []string false "Tag slugs; any match" collectionFormat(multi)
// @Param is_favorited query int false "1 to show only the viewer's favorites"
// @Param is_in_shopping_cart query int false "1 to show only the viewer's cart"
// @Success 200 {object} pageResponse[recipeResponse]
// @Failure 400 {object} models.ErrorResponse
// @Router /recipes [get]
func (s *Server) ListRecipes(c *fiber.Ctx) error {
	query, err := parseRecipeQuery(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page := parsePagination(c)
	details, total, err := s.recipeService.List(ctx, currentUserID(c), query, page.repo())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(paginate(c, page, total, toRecipeResponses(details)))
}

func parseRecipeQuery(c *fiber.Ctx) (service.RecipeQuery, error) {
	var q service.RecipeQuery
	if raw := c.Query("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return q, models.NewFieldValidationError(map[string]string{"author": "must be a user id"})
		}
		q.AuthorID = uint(id)
	}
	for _, slug := range c.Context().QueryArgs().PeekMulti("tags") {
		if len(slug) > 0 {
			q.TagSlugs = append(q.TagSlugs, string(slug))
		}
	}
	q.OnlyFavorited = c.Query("is_favorited") == "1"
	q.OnlyInCart = c.Query("is_in_shopping_cart") == "1"
	return q, nil
}

// GetRecipe handles GET /api/recipes/:id
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} recipeResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [get]
func (s *Server) GetRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	detail, err := s.recipeService.Get(ctx, currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toRecipeResponse(*detail))
}

// CreateRecipe handles POST /api/recipes
// @Summary Publish a recipe
// @Tags recipes
// @Security TokenAuth
// @Accept json
// @Produce json
// @Param request body recipeRequest true "Recipe"
// @Success 201 {object} recipeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /recipes [post]
func (s *Server) CreateRecipe(c *fiber.Ctx) error {
	var req recipeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	detail, err := s.recipeService.Create(ctx, currentUserID(c), req.toInput())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toRecipeResponse(*detail))
}

// UpdateRecipe handles PATCH /api/recipes/:id
// @Summary Replace a recipe's content
// @Description Ingredients and tags are replaced wholesale; an empty image keeps the current one.
// @Tags recipes
// @Security TokenAuth
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body recipeRequest true "Recipe"
// @Success 200 {object} recipeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [patch]
func (s *Server) UpdateRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req recipeRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	detail, err := s.recipeService.Update(ctx, currentUserID(c), id, req.toInput())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(toRecipeResponse(*detail))
}

// DeleteRecipe handles DELETE /api/recipes/:id
// @Summary Delete a recipe
// @Tags recipes
// @Security TokenAuth
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id} [delete]
func (s *Server) DeleteRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := s.recipeService.Delete(ctx, currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetRecipeLink handles GET /api/recipes/:id/get-link
// @Summary Get the short link of a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} object{short-link=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/get-link [get]
func (s *Server) GetRecipeLink(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	link, err := s.recipeService.GetLink(ctx, id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"short-link": link})
}

// AddFavorite handles POST /api/recipes/:id/favorite
// @Summary Add a recipe to favorites
// @Tags favorites
// @Security TokenAuth
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} shortRecipeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/favorite [post]
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	return s.addInteraction(c, s.interactionService.AddFavorite)
}

// RemoveFavorite handles DELETE /api/recipes/:id/favorite
// @Summary Remove a recipe from favorites
// @Tags favorites
// @Security TokenAuth
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/favorite [delete]
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	return s.removeInteraction(c, s.interactionService.RemoveFavorite)
}

// AddToShoppingCart handles POST /api/recipes/:id/shopping_cart
// @Summary Add a recipe to the shopping cart
// @Tags shopping cart
// @Security TokenAuth
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 201 {object} shortRecipeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/shopping_cart [post]
func (s *Server) AddToShoppingCart(c *fiber.Ctx) error {
	return s.addInteraction(c, s.interactionService.AddToCart)
}

// RemoveFromShoppingCart handles DELETE /api/recipes/:id/shopping_cart
// @Summary Remove a recipe from the shopping cart
// @Tags shopping cart
// @Security TokenAuth
// @Param id path int true "Recipe ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/{id}/shopping_cart [delete]
func (s *Server) RemoveFromShoppingCart(c *fiber.Ctx) error {
	return s.removeInteraction(c, s.interactionService.RemoveFromCart)
}

type addFunc func(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)

type removeFunc func(ctx context.Context, userID, recipeID uint) error

func (s *Server) addInteraction(c *fiber.Ctx, add addFunc) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	recipe, err := add(ctx, currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toShortRecipeResponse(recipe))
}

func (s *Server) removeInteraction(c *fiber.Ctx, remove removeFunc) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := remove(ctx, currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DownloadShoppingCart handles GET /api/recipes/download_shopping_cart
// @Summary Download the aggregated shopping list
// @Tags shopping cart
// @Security TokenAuth
// @Produce application/pdf
// @Produce plain
// @Param format query string false "pdf (default) or txt"
// @Success 200 {file} file
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /recipes/download_shopping_cart [get]
func (s *Server) DownloadShoppingCart(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := s.shoppingService.Download(ctx, currentUserID(c), c.Query("format"))
	if err != nil {
		return respondServiceError(c, err)
	}
	c.Set(fiber.HeaderContentType, list.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", list.Filename))
	return c.Send(list.Body)
}

// ResolveShortLink handles GET /s/:code by redirecting to the recipe page.
// @Summary Follow a recipe short link
// @Tags recipes
// @Param code path string true "Short code"
// @Success 302
// @Failure 404 {object} models.ErrorResponse
// @Router /s/{code} [get]
func (s *Server) ResolveShortLink(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := s.recipeService.Resolve(ctx, c.Params("code"))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Redirect(fmt.Sprintf("/recipes/%d/", id), fiber.StatusFound)
}
