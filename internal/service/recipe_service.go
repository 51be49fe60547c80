package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"foodgram/internal/cache"
	"foodgram/internal/media"
	"foodgram/internal/models"
	"foodgram/internal/notifications"
	"foodgram/internal/observability"
	"foodgram/internal/repository"
	"foodgram/internal/shortcode"
	"foodgram/internal/validation"

	"github.com/google/uuid"
)

// IngredientAmount is one requested ingredient line.
type IngredientAmount struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"gte=1"`
}

// RecipeInput is the payload for create and update. Image is a data URI and
// may be empty on update to keep the current image.
type RecipeInput struct {
	Name        string             `json:"name" validate:"required,max=256"`
	Text        string             `json:"text" validate:"required"`
	CookingTime int                `json:"cooking_time" validate:"gte=1"`
	Image       string             `json:"image"`
	Ingredients []IngredientAmount `json:"ingredients" validate:"required,min=1,unique=ID,dive"`
	Tags        []uint             `json:"tags" validate:"required,min=1,unique,dive,required"`
}

// RecipeQuery filters List. OnlyFavorited and OnlyInCart apply to the viewer
// and are ignored for anonymous viewers.
type RecipeQuery struct {
	AuthorID      uint
	TagSlugs      []string
	OnlyFavorited bool
	OnlyInCart    bool
}

// RecipeDetail is a recipe with the viewer-relative flags resolved.
type RecipeDetail struct {
	Recipe           *models.Recipe
	AuthorSubscribed bool
	Favorited        bool
	InCart           bool
}

// RecipeDeps groups the collaborators of RecipeService.
type RecipeDeps struct {
	Recipes       repository.RecipeRepository
	Catalog       repository.CatalogRepository
	Subscriptions repository.SubscriptionRepository
	Interactions  repository.InteractionRepository
	Images        ImageStore
	Codes         *shortcode.Generator
	Publisher     EventPublisher
	Validator     *validation.Validator
	Cache         *cache.Store
	// MaxImageBytes bounds decoded uploads; zero disables the check.
	MaxImageBytes int64
	// BaseURL prefixes generated short links.
	BaseURL string
}

type RecipeService struct {
	recipes       repository.RecipeRepository
	catalog       repository.CatalogRepository
	subscriptions repository.SubscriptionRepository
	interactions  repository.InteractionRepository
	images        ImageStore
	codes         *shortcode.Generator
	publisher     EventPublisher
	validator     *validation.Validator
	cache         *cache.Store
	maxImageBytes int64
	baseURL       string
}

func NewRecipeService(deps RecipeDeps) *RecipeService {
	codes := deps.Codes
	if codes == nil {
		codes = shortcode.NewGenerator()
	}
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	return &RecipeService{
		recipes:       deps.Recipes,
		catalog:       deps.Catalog,
		subscriptions: deps.Subscriptions,
		interactions:  deps.Interactions,
		images:        deps.Images,
		codes:         codes,
		publisher:     publisherOrNop(deps.Publisher),
		validator:     v,
		cache:         deps.Cache,
		maxImageBytes: deps.MaxImageBytes,
		baseURL:       strings.TrimRight(deps.BaseURL, "/"),
	}
}

// Create validates in, stores the image and inserts the recipe with a fresh
// short code in one transaction.
func (s *RecipeService) Create(ctx context.Context, authorID uint, in RecipeInput) (*RecipeDetail, error) {
	ctx, span := observability.StartSpan(ctx, "service", "RecipeService.Create")
	var err error
	defer func() { observability.EndSpan(span, err) }()

	if strings.TrimSpace(in.Image) == "" {
		err = models.NewFieldValidationError(map[string]string{"image": "this field is required"})
		return nil, err
	}
	if err = s.validate(ctx, in); err != nil {
		return nil, err
	}
	img, err := media.ParseDataURI(in.Image, s.maxImageBytes)
	if err != nil {
		return nil, err
	}
	imagePath, err := s.images.Save(ctx, media.RecipeImage, uuid.NewString(), img)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        strings.TrimSpace(in.Name),
		Text:        in.Text,
		Image:       imagePath,
		CookingTime: in.CookingTime,
	}
	if err = s.insertWithCode(ctx, recipe, ingredientRows(in.Ingredients), in.Tags); err != nil {
		removeImage(ctx, s.images, imagePath)
		return nil, err
	}
	observability.RecipesCreated.Inc()

	s.notifySubscribers(ctx, recipe)

	detail, err := s.Get(ctx, authorID, recipe.ID)
	return detail, err
}

// insertWithCode retries the create transaction when the chosen code loses a
// race on the unique index, up to the generator's attempt budget.
func (s *RecipeService) insertWithCode(ctx context.Context, recipe *models.Recipe, rows []models.RecipeIngredient, tagIDs []uint) error {
	budget := s.codes.MaxAttempts
	if budget <= 0 {
		budget = shortcode.MaxAttempts
	}
	for attempt := 0; attempt < budget; attempt++ {
		code, err := s.codes.Assign(ctx, s.recipes.ShortCodeExists)
		if err != nil {
			return shortCodeError(err)
		}
		recipe.ID = 0
		recipe.ShortCode = &code
		err = s.recipes.Create(ctx, recipe, rows, tagIDs)
		if errors.Is(err, repository.ErrShortCodeTaken) {
			observability.ShortCodeRetries.Inc()
			continue
		}
		return err
	}
	return shortCodeError(shortcode.ErrExhausted)
}

func shortCodeError(err error) error {
	if errors.Is(err, shortcode.ErrExhausted) {
		return models.NewConflictError("could not allocate a short link code, try again", err)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.NewInternalError(err)
}

func (s *RecipeService) notifySubscribers(ctx context.Context, recipe *models.Recipe) {
	ids, err := s.subscriptions.SubscriberIDs(ctx, recipe.AuthorID)
	if err != nil {
		return
	}
	ev := notifications.NewEvent(notifications.EventRecipePublished, map[string]any{
		"recipe_id": recipe.ID,
		"name":      recipe.Name,
		"author_id": recipe.AuthorID,
	})
	publish(ctx, s.publisher, ev, ids...)
}

// Update replaces the scalar fields and associations of a recipe owned by
// actorID. The previous image is removed only after the update commits.
func (s *RecipeService) Update(ctx context.Context, actorID, recipeID uint, in RecipeInput) (*RecipeDetail, error) {
	current, err := s.ownedRecipe(ctx, actorID, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	oldImage := ""
	updated := *current
	updated.Name = strings.TrimSpace(in.Name)
	updated.Text = in.Text
	updated.CookingTime = in.CookingTime
	if strings.TrimSpace(in.Image) != "" {
		img, err := media.ParseDataURI(in.Image, s.maxImageBytes)
		if err != nil {
			return nil, err
		}
		path, err := s.images.Save(ctx, media.RecipeImage, uuid.NewString(), img)
		if err != nil {
			return nil, err
		}
		oldImage, updated.Image = current.Image, path
	}

	if err := s.recipes.Update(ctx, &updated, ingredientRows(in.Ingredients), in.Tags); err != nil {
		if oldImage != "" {
			removeImage(ctx, s.images, updated.Image)
		}
		return nil, err
	}
	removeImage(ctx, s.images, oldImage)

	return s.Get(ctx, actorID, recipeID)
}

// Delete removes a recipe owned by actorID together with its favorites and
// cart entries.
func (s *RecipeService) Delete(ctx context.Context, actorID, recipeID uint) error {
	recipe, err := s.ownedRecipe(ctx, actorID, recipeID)
	if err != nil {
		return err
	}
	if err := s.recipes.Delete(ctx, recipeID); err != nil {
		return err
	}
	if recipe.HasShortCode() {
		s.cache.Invalidate(ctx, cache.ShortCodeKey(*recipe.ShortCode))
	}
	removeImage(ctx, s.images, recipe.Image)
	return nil
}

func (s *RecipeService) ownedRecipe(ctx context.Context, actorID, recipeID uint) (*models.Recipe, error) {
	recipe, err := s.recipes.GetMeta(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != actorID {
		return nil, models.NewForbiddenError("only the author can modify this recipe")
	}
	return recipe, nil
}

// validate runs struct rules, then checks that every referenced ingredient
// and tag exists.
func (s *RecipeService) validate(ctx context.Context, in RecipeInput) error {
	if err := s.validator.Validate(in); err != nil {
		return err
	}

	ingredientIDs := make([]uint, len(in.Ingredients))
	for i, line := range in.Ingredients {
		ingredientIDs[i] = line.ID
	}
	fields := map[string]string{}
	missing, err := s.catalog.MissingIngredientIDs(ctx, ingredientIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		fields["ingredients"] = "unknown ingredient ids: " + joinIDs(missing)
	}
	missing, err = s.catalog.MissingTagIDs(ctx, in.Tags)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		fields["tags"] = "unknown tag ids: " + joinIDs(missing)
	}
	if len(fields) > 0 {
		return models.NewFieldValidationError(fields)
	}
	return nil
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}

func ingredientRows(lines []IngredientAmount) []models.RecipeIngredient {
	rows := make([]models.RecipeIngredient, len(lines))
	for i, line := range lines {
		rows[i] = models.RecipeIngredient{IngredientID: line.ID, Amount: line.Amount}
	}
	return rows
}

// Get loads one recipe as seen by viewerID (zero for anonymous).
func (s *RecipeService) Get(ctx context.Context, viewerID, recipeID uint) (*RecipeDetail, error) {
	recipe, err := s.recipes.GetByID(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	details, err := s.decorate(ctx, viewerID, []models.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// List returns a page of recipes matching q, newest first.
func (s *RecipeService) List(ctx context.Context, viewerID uint, q RecipeQuery, page repository.Page) ([]RecipeDetail, int64, error) {
	filter := repository.RecipeFilter{AuthorID: q.AuthorID, TagSlugs: q.TagSlugs}
	if viewerID != 0 {
		if q.OnlyFavorited {
			filter.FavoritedBy = viewerID
		}
		if q.OnlyInCart {
			filter.InCartOf = viewerID
		}
	}
	recipes, total, err := s.recipes.List(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	details, err := s.decorate(ctx, viewerID, recipes)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

func (s *RecipeService) decorate(ctx context.Context, viewerID uint, recipes []models.Recipe) ([]RecipeDetail, error) {
	out := make([]RecipeDetail, len(recipes))
	for i := range recipes {
		out[i].Recipe = &recipes[i]
	}
	if viewerID == 0 || len(recipes) == 0 {
		return out, nil
	}

	recipeIDs := make([]uint, len(recipes))
	authorSet := map[uint]struct{}{}
	for i, r := range recipes {
		recipeIDs[i] = r.ID
		authorSet[r.AuthorID] = struct{}{}
	}
	authorIDs := make([]uint, 0, len(authorSet))
	for id := range authorSet {
		authorIDs = append(authorIDs, id)
	}
	sort.Slice(authorIDs, func(i, j int) bool { return authorIDs[i] < authorIDs[j] })

	subscribed, err := s.subscriptions.SubscribedTo(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}
	favorited, err := s.interactions.Marked(ctx, repository.Favorites, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	inCart, err := s.interactions.Marked(ctx, repository.ShoppingCart, viewerID, recipeIDs)
	if err != nil {
		return nil, err
	}
	for i := range out {
		r := out[i].Recipe
		out[i].AuthorSubscribed = subscribed[r.AuthorID]
		out[i].Favorited = favorited[r.ID]
		out[i].InCart = inCart[r.ID]
	}
	return out, nil
}
