package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"foodgram/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- humanizeParam (pure function, no HTTP) ---

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"recipeId", "recipe ID"},
		{"shoppingCartId", "shopping cart ID"},
		{"code", "code"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

// --- parsePagination ---

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c)
		return c.JSON(fiber.Map{"page": p.Page, "limit": p.Limit, "offset": p.Offset()})
	})

	tests := []struct {
		query               string
		page, limit, offset int
	}{
		{"", 1, defaultPageSize, 0},
		{"?page=3&limit=10", 3, 10, 20},
		{"?page=0&limit=-5", 1, defaultPageSize, 0},
		{"?page=abc&limit=xyz", 1, defaultPageSize, 0},
		{"?limit=1000", 1, maxPaginationLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]int
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.page, body["page"])
			assert.Equal(t, tt.limit, body["limit"])
			assert.Equal(t, tt.offset, body["offset"])
		})
	}
}

func TestPaginate_Links(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c)
		return c.JSON(paginate(c, p, 7, make([]int, min(p.Limit, 7-p.Offset()))))
	})

	get := func(query string) pageResponse[int] {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "http://foodgram.test/items"+query, nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		var body pageResponse[int]
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	first := get("?limit=3&tags=lunch")
	assert.Equal(t, int64(7), first.Count)
	assert.Nil(t, first.Previous)
	require.NotNil(t, first.Next)
	next, err := url.Parse(*first.Next)
	require.NoError(t, err)
	assert.Equal(t, "/items", next.Path)
	assert.Equal(t, "2", next.Query().Get("page"))
	assert.Equal(t, "lunch", next.Query().Get("tags"))

	last := get("?limit=3&page=3")
	assert.Nil(t, last.Next)
	require.NotNil(t, last.Previous)
	assert.Contains(t, *last.Previous, "page=2")
	assert.Len(t, last.Results, 1)
}

func TestPaginate_EmptyResultsEncodeAsArray(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		return c.JSON(paginate[int](c, parsePagination(c), 0, nil))
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []any{}, body["results"])
	assert.Nil(t, body["next"])
}

func TestParseID(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/recipes/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	for path, want := range map[string]int{
		"/recipes/5":   http.StatusOK,
		"/recipes/0":   http.StatusBadRequest,
		"/recipes/-1":  http.StatusBadRequest,
		"/recipes/abc": http.StatusBadRequest,
	} {
		t.Run(path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, want, resp.StatusCode)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("bad"), http.StatusBadRequest},
		{models.NewUnauthorizedError("who"), http.StatusUnauthorized},
		{models.NewForbiddenError("no"), http.StatusForbidden},
		{models.NewNotFoundError("Recipe", 1), http.StatusNotFound},
		{models.NewConflictError("taken", nil), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", models.NewNotFoundError("Tag", 2)), http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondServiceError_HidesInternalCause(t *testing.T) {
	app := fiber.New()
	app.Get("/fail", func(c *fiber.Ctx) error {
		return respondServiceError(c, errors.New("pq: password authentication failed"))
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, models.CodeInternal, body.Code)
	assert.NotContains(t, body.Error+body.Details, "password authentication")
}
