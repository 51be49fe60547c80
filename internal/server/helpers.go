package server

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	defaultPageSize    = 6
	maxPaginationLimit = 100

	handlerTimeout = 10 * time.Second
)

// Pagination holds the parsed page/limit query parameters. Pages start at 1.
type Pagination struct {
	Page  int
	Limit int
}

// Offset is the number of rows before the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

func (p Pagination) repo() repository.Page {
	return repository.Page{Limit: p.Limit, Offset: p.Offset()}
}

// parsePagination reads page and limit. Invalid values fall back to the
// first page and the default size; limit is capped.
func parsePagination(c *fiber.Ctx) Pagination {
	limit := c.QueryInt("limit", defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	return Pagination{Page: page, Limit: limit}
}

// paginate wraps one page of results in the list envelope. Next and previous
// links keep every other query parameter of the request.
func paginate[T any](c *fiber.Ctx, p Pagination, total int64, results []T) pageResponse[T] {
	if results == nil {
		results = []T{}
	}
	resp := pageResponse[T]{Count: total, Results: results}
	if int64(p.Offset()+len(results)) < total {
		link := pageLink(c, p.Page+1)
		resp.Next = &link
	}
	if p.Page > 1 {
		link := pageLink(c, p.Page-1)
		resp.Previous = &link
	}
	return resp
}

func pageLink(c *fiber.Ctx, page int) string {
	query, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	query.Set("page", strconv.Itoa(page))
	return c.BaseURL() + c.Path() + "?" + query.Encode()
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseBody decodes the JSON body into dst, writing a 400 on failure.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "userId" -> "user ID", "recipeId" -> "recipe ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// currentUserID returns the authenticated user, or zero for anonymous requests.
func currentUserID(c *fiber.Ctx) uint {
	userID, _ := c.Locals("userID").(uint)
	return userID
}

// requestContext bounds the work of one handler.
func requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), handlerTimeout)
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return fiber.StatusGatewayTimeout
	}
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes err with the status its code maps to. Server
// side failures are logged with their cause, which the client never sees.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	switch {
	case status == fiber.StatusGatewayTimeout:
		return models.RespondWithError(c, status, models.NewAppError("TIMEOUT", "Request timeout", nil))
	case status >= fiber.StatusInternalServerError:
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
		var appErr *models.AppError
		if !errors.As(err, &appErr) {
			err = models.NewInternalError(err)
		}
	}
	return models.RespondWithError(c, status, err)
}
