package service

import (
	"bytes"
	"context"
	"path"
	"slices"
	"strings"
	"time"

	"foodgram/internal/export"
	"foodgram/internal/models"
	"foodgram/internal/observability"
	"foodgram/internal/repository"
)

// ShoppingList is a rendered shopping list ready to be sent as an attachment.
type ShoppingList struct {
	ContentType string
	Filename    string
	Body        []byte
}

type ShoppingService struct {
	lists repository.ShoppingListRepository
	now   func() time.Time
}

func NewShoppingService(lists repository.ShoppingListRepository) *ShoppingService {
	return &ShoppingService{lists: lists, now: time.Now}
}

// Download aggregates the cart of userID and renders it in format ("pdf" or
// "txt"). An empty cart is NOT_FOUND.
func (s *ShoppingService) Download(ctx context.Context, userID uint, format string) (*ShoppingList, error) {
	ctx, span := observability.StartSpan(ctx, "service", "ShoppingService.Download")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, err
	}
	items, err := s.lists.Aggregate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		err = &models.AppError{Code: models.CodeNotFound, Message: "shopping cart is empty"}
		return nil, err
	}

	var buf bytes.Buffer
	if err = renderer.Render(&buf, slices.Values(items), s.now()); err != nil {
		err = models.NewInternalError(err)
		return nil, err
	}
	observability.ShoppingListDownloads.WithLabelValues(strings.TrimPrefix(path.Ext(renderer.Filename()), ".")).Inc()

	return &ShoppingList{
		ContentType: renderer.ContentType(),
		Filename:    renderer.Filename(),
		Body:        buf.Bytes(),
	}, nil
}
