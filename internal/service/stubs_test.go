package service

import (
	"context"
	"sync"
	"testing"

	"foodgram/internal/media"
	"foodgram/internal/models"
	"foodgram/internal/notifications"
	"foodgram/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recipeRepoStub struct {
	createFn          func(context.Context, *models.Recipe, []models.RecipeIngredient, []uint) error
	updateFn          func(context.Context, *models.Recipe, []models.RecipeIngredient, []uint) error
	deleteFn          func(context.Context, uint) error
	getByIDFn         func(context.Context, uint) (*models.Recipe, error)
	getMetaFn         func(context.Context, uint) (*models.Recipe, error)
	listFn            func(context.Context, repository.RecipeFilter, repository.Page) ([]models.Recipe, int64, error)
	listByAuthorFn    func(context.Context, uint, int) ([]models.Recipe, error)
	countByAuthorFn   func(context.Context, []uint) (map[uint]int64, error)
	shortCodeExistsFn func(context.Context, string) (bool, error)
	idByShortCodeFn   func(context.Context, string) (uint, error)
	setShortCodeFn    func(context.Context, uint, string) (string, error)
}

func (s *recipeRepoStub) Create(ctx context.Context, r *models.Recipe, ing []models.RecipeIngredient, tags []uint) error {
	return s.createFn(ctx, r, ing, tags)
}
func (s *recipeRepoStub) Update(ctx context.Context, r *models.Recipe, ing []models.RecipeIngredient, tags []uint) error {
	return s.updateFn(ctx, r, ing, tags)
}
func (s *recipeRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *recipeRepoStub) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	return s.getByIDFn(ctx, id)
}
func (s *recipeRepoStub) GetMeta(ctx context.Context, id uint) (*models.Recipe, error) {
	return s.getMetaFn(ctx, id)
}
func (s *recipeRepoStub) List(ctx context.Context, f repository.RecipeFilter, p repository.Page) ([]models.Recipe, int64, error) {
	return s.listFn(ctx, f, p)
}
func (s *recipeRepoStub) ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error) {
	return s.listByAuthorFn(ctx, authorID, limit)
}
func (s *recipeRepoStub) CountByAuthor(ctx context.Context, ids []uint) (map[uint]int64, error) {
	return s.countByAuthorFn(ctx, ids)
}
func (s *recipeRepoStub) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	return s.shortCodeExistsFn(ctx, code)
}
func (s *recipeRepoStub) IDByShortCode(ctx context.Context, code string) (uint, error) {
	return s.idByShortCodeFn(ctx, code)
}
func (s *recipeRepoStub) SetShortCode(ctx context.Context, id uint, code string) (string, error) {
	return s.setShortCodeFn(ctx, id, code)
}

func noopRecipeRepo() *recipeRepoStub {
	return &recipeRepoStub{
		createFn: func(_ context.Context, r *models.Recipe, _ []models.RecipeIngredient, _ []uint) error {
			r.ID = 1
			return nil
		},
		updateFn: func(context.Context, *models.Recipe, []models.RecipeIngredient, []uint) error { return nil },
		deleteFn: func(context.Context, uint) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Recipe, error) {
			return &models.Recipe{ID: id, AuthorID: 1}, nil
		},
		getMetaFn: func(_ context.Context, id uint) (*models.Recipe, error) {
			return &models.Recipe{ID: id, AuthorID: 1}, nil
		},
		listFn: func(context.Context, repository.RecipeFilter, repository.Page) ([]models.Recipe, int64, error) {
			return nil, 0, nil
		},
		listByAuthorFn:    func(context.Context, uint, int) ([]models.Recipe, error) { return nil, nil },
		countByAuthorFn:   func(context.Context, []uint) (map[uint]int64, error) { return map[uint]int64{}, nil },
		shortCodeExistsFn: func(context.Context, string) (bool, error) { return false, nil },
		idByShortCodeFn:   func(context.Context, string) (uint, error) { return 0, models.NewNotFoundError("Recipe", 0) },
		setShortCodeFn:    func(_ context.Context, _ uint, code string) (string, error) { return code, nil },
	}
}

type catalogRepoStub struct {
	listTagsFn             func(context.Context) ([]models.Tag, error)
	getTagFn               func(context.Context, uint) (*models.Tag, error)
	listIngredientsFn      func(context.Context, string) ([]models.Ingredient, error)
	getIngredientFn        func(context.Context, uint) (*models.Ingredient, error)
	missingTagIDsFn        func(context.Context, []uint) ([]uint, error)
	missingIngredientIDsFn func(context.Context, []uint) ([]uint, error)
}

func (s *catalogRepoStub) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.listTagsFn(ctx)
}
func (s *catalogRepoStub) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	return s.getTagFn(ctx, id)
}
func (s *catalogRepoStub) ListIngredients(ctx context.Context, prefix string) ([]models.Ingredient, error) {
	return s.listIngredientsFn(ctx, prefix)
}
func (s *catalogRepoStub) GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error) {
	return s.getIngredientFn(ctx, id)
}
func (s *catalogRepoStub) MissingTagIDs(ctx context.Context, ids []uint) ([]uint, error) {
	return s.missingTagIDsFn(ctx, ids)
}
func (s *catalogRepoStub) MissingIngredientIDs(ctx context.Context, ids []uint) ([]uint, error) {
	return s.missingIngredientIDsFn(ctx, ids)
}
func (s *catalogRepoStub) UpsertTag(context.Context, *models.Tag) error               { return nil }
func (s *catalogRepoStub) UpsertIngredient(context.Context, *models.Ingredient) error { return nil }

func noopCatalogRepo() *catalogRepoStub {
	return &catalogRepoStub{
		listTagsFn:             func(context.Context) ([]models.Tag, error) { return nil, nil },
		getTagFn:               func(_ context.Context, id uint) (*models.Tag, error) { return &models.Tag{ID: id}, nil },
		listIngredientsFn:      func(context.Context, string) ([]models.Ingredient, error) { return nil, nil },
		getIngredientFn:        func(_ context.Context, id uint) (*models.Ingredient, error) { return &models.Ingredient{ID: id}, nil },
		missingTagIDsFn:        func(context.Context, []uint) ([]uint, error) { return nil, nil },
		missingIngredientIDsFn: func(context.Context, []uint) ([]uint, error) { return nil, nil },
	}
}

type subscriptionRepoStub struct {
	existsFn        func(context.Context, uint, uint) (bool, error)
	createFn        func(context.Context, uint, uint) error
	deleteFn        func(context.Context, uint, uint) (bool, error)
	listAuthorsFn   func(context.Context, uint, repository.Page) ([]models.User, int64, error)
	subscribedToFn  func(context.Context, uint, []uint) (map[uint]bool, error)
	subscriberIDsFn func(context.Context, uint) ([]uint, error)
}

func (s *subscriptionRepoStub) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	return s.existsFn(ctx, userID, authorID)
}
func (s *subscriptionRepoStub) Create(ctx context.Context, userID, authorID uint) error {
	return s.createFn(ctx, userID, authorID)
}
func (s *subscriptionRepoStub) Delete(ctx context.Context, userID, authorID uint) (bool, error) {
	return s.deleteFn(ctx, userID, authorID)
}
func (s *subscriptionRepoStub) ListAuthors(ctx context.Context, userID uint, page repository.Page) ([]models.User, int64, error) {
	return s.listAuthorsFn(ctx, userID, page)
}
func (s *subscriptionRepoStub) SubscribedTo(ctx context.Context, userID uint, ids []uint) (map[uint]bool, error) {
	return s.subscribedToFn(ctx, userID, ids)
}
func (s *subscriptionRepoStub) SubscriberIDs(ctx context.Context, authorID uint) ([]uint, error) {
	return s.subscriberIDsFn(ctx, authorID)
}

func noopSubscriptionRepo() *subscriptionRepoStub {
	return &subscriptionRepoStub{
		existsFn: func(context.Context, uint, uint) (bool, error) { return false, nil },
		createFn: func(context.Context, uint, uint) error { return nil },
		deleteFn: func(context.Context, uint, uint) (bool, error) { return true, nil },
		listAuthorsFn: func(context.Context, uint, repository.Page) ([]models.User, int64, error) {
			return nil, 0, nil
		},
		subscribedToFn:  func(context.Context, uint, []uint) (map[uint]bool, error) { return map[uint]bool{}, nil },
		subscriberIDsFn: func(context.Context, uint) ([]uint, error) { return nil, nil },
	}
}

type interactionRepoStub struct {
	addFn    func(context.Context, repository.InteractionKind, uint, uint) error
	removeFn func(context.Context, repository.InteractionKind, uint, uint) (bool, error)
	existsFn func(context.Context, repository.InteractionKind, uint, uint) (bool, error)
	markedFn func(context.Context, repository.InteractionKind, uint, []uint) (map[uint]bool, error)
}

func (s *interactionRepoStub) Add(ctx context.Context, kind repository.InteractionKind, userID, recipeID uint) error {
	return s.addFn(ctx, kind, userID, recipeID)
}
func (s *interactionRepoStub) Remove(ctx context.Context, kind repository.InteractionKind, userID, recipeID uint) (bool, error) {
	return s.removeFn(ctx, kind, userID, recipeID)
}
func (s *interactionRepoStub) Exists(ctx context.Context, kind repository.InteractionKind, userID, recipeID uint) (bool, error) {
	return s.existsFn(ctx, kind, userID, recipeID)
}
func (s *interactionRepoStub) Marked(ctx context.Context, kind repository.InteractionKind, userID uint, ids []uint) (map[uint]bool, error) {
	return s.markedFn(ctx, kind, userID, ids)
}

func noopInteractionRepo() *interactionRepoStub {
	return &interactionRepoStub{
		addFn:    func(context.Context, repository.InteractionKind, uint, uint) error { return nil },
		removeFn: func(context.Context, repository.InteractionKind, uint, uint) (bool, error) { return true, nil },
		existsFn: func(context.Context, repository.InteractionKind, uint, uint) (bool, error) { return false, nil },
		markedFn: func(context.Context, repository.InteractionKind, uint, []uint) (map[uint]bool, error) {
			return map[uint]bool{}, nil
		},
	}
}

type userRepoStub struct {
	getByIDFn        func(context.Context, uint) (*models.User, error)
	getByEmailFn     func(context.Context, string) (*models.User, error)
	createFn         func(context.Context, *models.User) error
	updatePasswordFn func(context.Context, uint, string) error
	updateAvatarFn   func(context.Context, uint, string) error
	listFn           func(context.Context, repository.Page) ([]models.User, int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return s.updatePasswordFn(ctx, id, hash)
}
func (s *userRepoStub) UpdateAvatar(ctx context.Context, id uint, avatar string) error {
	return s.updateAvatarFn(ctx, id, avatar)
}
func (s *userRepoStub) List(ctx context.Context, page repository.Page) ([]models.User, int64, error) {
	return s.listFn(ctx, page)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:        func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:     func(context.Context, string) (*models.User, error) { return &models.User{}, nil },
		createFn:         func(context.Context, *models.User) error { return nil },
		updatePasswordFn: func(context.Context, uint, string) error { return nil },
		updateAvatarFn:   func(context.Context, uint, string) error { return nil },
		listFn:           func(context.Context, repository.Page) ([]models.User, int64, error) { return nil, 0, nil },
	}
}

// imageStoreStub records saved and removed paths without touching disk.
type imageStoreStub struct {
	mu      sync.Mutex
	saved   []string
	removed []string
	saveErr error
}

func (s *imageStoreStub) Save(_ context.Context, kind media.Kind, owner string, img *media.Image) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dir := "recipes/images/"
	name := "uploaded_image."
	if kind == media.Avatar {
		dir, name = "users/", "avatar."
	}
	rel := dir + owner + "/" + name + img.Ext
	s.saved = append(s.saved, rel)
	return rel, nil
}

func (s *imageStoreStub) Remove(rel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, rel)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events map[uint][]notifications.Event
}

func (p *recordingPublisher) PublishUser(_ context.Context, userID uint, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[uint][]notifications.Event{}
	}
	p.events[userID] = append(p.events[userID], ev)
	return nil
}

func (p *recordingPublisher) eventsFor(userID uint) []notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]notifications.Event(nil), p.events[userID]...)
}

func assertValidationError(t *testing.T, err error) *models.AppError {
	t.Helper()
	return assertCode(t, err, models.CodeValidation)
}

func assertCode(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code, "unexpected error: %v", err)
	return appErr
}
