package service

import (
	"context"
	"testing"

	"foodgram/internal/models"
	"foodgram/internal/notifications"
	"foodgram/internal/repository"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionService_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("self subscription", func(t *testing.T) {
		t.Parallel()
		subs := noopSubscriptionRepo()
		subs.createFn = func(context.Context, uint, uint) error {
			t.Fatal("create must not run for a self subscription")
			return nil
		}
		svc := NewSubscriptionService(noopUserRepo(), subs, noopRecipeRepo(), nil)

		_, err := svc.Subscribe(context.Background(), 3, 3, 0)
		assert.Equal(t, "cannot subscribe to yourself", assertValidationError(t, err).Message)
	})

	t.Run("unknown author", func(t *testing.T) {
		t.Parallel()
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		svc := NewSubscriptionService(users, noopSubscriptionRepo(), noopRecipeRepo(), nil)

		_, err := svc.Subscribe(context.Background(), 1, 2, 0)
		assertCode(t, err, models.CodeNotFound)
	})

	t.Run("already subscribed", func(t *testing.T) {
		t.Parallel()
		subs := noopSubscriptionRepo()
		subs.existsFn = func(context.Context, uint, uint) (bool, error) { return true, nil }
		svc := NewSubscriptionService(noopUserRepo(), subs, noopRecipeRepo(), nil)

		_, err := svc.Subscribe(context.Background(), 1, 2, 0)
		assert.Equal(t, "already subscribed", assertValidationError(t, err).Message)
	})

	t.Run("insert race", func(t *testing.T) {
		t.Parallel()
		subs := noopSubscriptionRepo()
		subs.createFn = func(context.Context, uint, uint) error { return repository.ErrDuplicate }
		svc := NewSubscriptionService(noopUserRepo(), subs, noopRecipeRepo(), nil)

		_, err := svc.Subscribe(context.Background(), 1, 2, 0)
		assert.Equal(t, "already subscribed", assertValidationError(t, err).Message)
	})

	t.Run("returns author preview and notifies", func(t *testing.T) {
		t.Parallel()
		recipes := noopRecipeRepo()
		recipes.listByAuthorFn = func(_ context.Context, authorID uint, limit int) ([]models.Recipe, error) {
			assert.Equal(t, 2, limit)
			return []models.Recipe{{ID: 10, AuthorID: authorID}, {ID: 9, AuthorID: authorID}}, nil
		}
		recipes.countByAuthorFn = func(_ context.Context, ids []uint) (map[uint]int64, error) {
			return map[uint]int64{ids[0]: 5}, nil
		}
		pub := &recordingPublisher{}
		svc := NewSubscriptionService(noopUserRepo(), noopSubscriptionRepo(), recipes, pub)

		view, err := svc.Subscribe(context.Background(), 1, 2, 2)
		require.NoError(t, err)
		assert.True(t, view.IsSubscribed)
		assert.Equal(t, uint(2), view.User.ID)
		assert.Len(t, view.Recipes, 2)
		assert.Equal(t, int64(5), view.RecipesCount)

		events := pub.eventsFor(2)
		require.Len(t, events, 1)
		assert.Equal(t, notifications.EventSubscriptionCreated, events[0].Type)
	})
}

func TestSubscriptionService_Unsubscribe(t *testing.T) {
	t.Parallel()

	subs := noopSubscriptionRepo()
	subs.deleteFn = func(context.Context, uint, uint) (bool, error) { return false, nil }
	svc := NewSubscriptionService(noopUserRepo(), subs, noopRecipeRepo(), nil)

	err := svc.Unsubscribe(context.Background(), 1, 2)
	assert.Equal(t, "not subscribed", assertValidationError(t, err).Message)
}

func TestSubscriptionService_Lifecycle(t *testing.T) {
	t.Parallel()
	db := testutil.OpenSQLite(t)
	a := testutil.CreateUser(t, db)
	b := testutil.CreateUser(t, db)
	c := testutil.CreateUser(t, db)
	for range 3 {
		testutil.CreateRecipe(t, db, b, nil)
	}
	testutil.CreateRecipe(t, db, c, nil)

	svc := NewSubscriptionService(
		repository.NewUserRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewRecipeRepository(db),
		nil,
	)
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, a.ID, a.ID, 0)
	assertValidationError(t, err)

	_, err = svc.Subscribe(ctx, a.ID, b.ID, 0)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, a.ID, b.ID, 0)
	assertValidationError(t, err)

	require.NoError(t, svc.Unsubscribe(ctx, a.ID, b.ID))
	assertValidationError(t, svc.Unsubscribe(ctx, a.ID, b.ID))

	_, err = svc.Subscribe(ctx, a.ID, b.ID, 0)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, a.ID, c.ID, 0)
	require.NoError(t, err)

	_, err = svc.Subscribe(ctx, a.ID, 9999, 0)
	assertCode(t, err, models.CodeNotFound)

	views, total, err := svc.List(ctx, a.ID, repository.Page{Limit: 10}, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, views, 2)

	byID := map[uint]AuthorView{}
	for _, v := range views {
		byID[v.User.ID] = v
	}
	assert.Len(t, byID[b.ID].Recipes, 2, "preview is capped by recipes_limit")
	assert.Equal(t, int64(3), byID[b.ID].RecipesCount)
	assert.Len(t, byID[c.ID].Recipes, 1)
	assert.Equal(t, int64(1), byID[c.ID].RecipesCount)
}
