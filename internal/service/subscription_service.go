package service

import (
	"context"
	"errors"

	"foodgram/internal/models"
	"foodgram/internal/notifications"
	"foodgram/internal/repository"
)

// AuthorView is a followed author with a preview of their recipes.
type AuthorView struct {
	User         *models.User
	IsSubscribed bool
	Recipes      []models.Recipe
	RecipesCount int64
}

type SubscriptionService struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	recipes       repository.RecipeRepository
	publisher     EventPublisher
}

func NewSubscriptionService(
	users repository.UserRepository,
	subscriptions repository.SubscriptionRepository,
	recipes repository.RecipeRepository,
	publisher EventPublisher,
) *SubscriptionService {
	return &SubscriptionService{
		users:         users,
		subscriptions: subscriptions,
		recipes:       recipes,
		publisher:     publisherOrNop(publisher),
	}
}

// Subscribe makes subscriberID follow authorID. recipesLimit caps the recipe
// preview of the returned author; zero or less means no cap.
func (s *SubscriptionService) Subscribe(ctx context.Context, subscriberID, authorID uint, recipesLimit int) (*AuthorView, error) {
	if subscriberID == authorID {
		return nil, models.NewValidationError("cannot subscribe to yourself")
	}
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	exists, err := s.subscriptions.Exists(ctx, subscriberID, authorID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewValidationError("already subscribed")
	}
	if err := s.subscriptions.Create(ctx, subscriberID, authorID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewValidationError("already subscribed")
		}
		return nil, err
	}

	publish(ctx, s.publisher, notifications.NewEvent(notifications.EventSubscriptionCreated, map[string]any{
		"subscriber_id": subscriberID,
	}), authorID)

	views, err := s.authorViews(ctx, []models.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, subscriberID, authorID uint) error {
	if _, err := s.users.GetByID(ctx, authorID); err != nil {
		return err
	}
	removed, err := s.subscriptions.Delete(ctx, subscriberID, authorID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewValidationError("not subscribed")
	}
	return nil
}

// List returns the authors subscriberID follows, most recent first.
func (s *SubscriptionService) List(ctx context.Context, subscriberID uint, page repository.Page, recipesLimit int) ([]AuthorView, int64, error) {
	authors, total, err := s.subscriptions.ListAuthors(ctx, subscriberID, page)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.authorViews(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// authorViews loads one recipe preview per author plus a batched count.
func (s *SubscriptionService) authorViews(ctx context.Context, authors []models.User, recipesLimit int) ([]AuthorView, error) {
	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}
	counts, err := s.recipes.CountByAuthor(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]AuthorView, len(authors))
	for i := range authors {
		preview, err := s.recipes.ListByAuthor(ctx, authors[i].ID, recipesLimit)
		if err != nil {
			return nil, err
		}
		out[i] = AuthorView{
			User:         &authors[i],
			IsSubscribed: true,
			Recipes:      preview,
			RecipesCount: counts[authors[i].ID],
		}
	}
	return out, nil
}
