package server

import (
	"foodgram/internal/media"
	"foodgram/internal/models"
	"foodgram/internal/service"
)

// pageResponse is the envelope of every paginated list.
type pageResponse[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type userResponse struct {
	ID           uint    `json:"id"`
	Email        string  `json:"email"`
	Username     string  `json:"username"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	IsSubscribed bool    `json:"is_subscribed"`
	Avatar       *string `json:"avatar"`
}

type tagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type ingredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
}

type recipeIngredientResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

type recipeResponse struct {
	ID               uint                       `json:"id"`
	Tags             []tagResponse              `json:"tags"`
	Author           userResponse               `json:"author"`
	Ingredients      []recipeIngredientResponse `json:"ingredients"`
	IsFavorited      bool                       `json:"is_favorited"`
	IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	Name             string                     `json:"name"`
	Image            string                     `json:"image"`
	Text             string                     `json:"text"`
	CookingTime      int                        `json:"cooking_time"`
}

// shortRecipeResponse is the compact shape used by favorites, the cart and
// subscription previews.
type shortRecipeResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

type subscriptionResponse struct {
	userResponse
	Recipes      []shortRecipeResponse `json:"recipes"`
	RecipesCount int64                 `json:"recipes_count"`
}

type registerResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type recipeIngredientRequest struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

type recipeRequest struct {
	Ingredients []recipeIngredientRequest `json:"ingredients"`
	Tags        []uint                    `json:"tags"`
	Image       string                    `json:"image"`
	Name        string                    `json:"name"`
	Text        string                    `json:"text"`
	CookingTime int                       `json:"cooking_time"`
}

type registerRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type setPasswordRequest struct {
	NewPassword     string `json:"new_password"`
	CurrentPassword string `json:"current_password"`
}

type avatarRequest struct {
	Avatar string `json:"avatar"`
}

func (r recipeRequest) toInput() service.RecipeInput {
	lines := make([]service.IngredientAmount, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		lines[i] = service.IngredientAmount{ID: ing.ID, Amount: ing.Amount}
	}
	return service.RecipeInput{
		Name:        r.Name,
		Text:        r.Text,
		CookingTime: r.CookingTime,
		Image:       r.Image,
		Ingredients: lines,
		Tags:        r.Tags,
	}
}

func (r registerRequest) toInput() service.RegisterInput {
	return service.RegisterInput{
		Email:     r.Email,
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Password:  r.Password,
	}
}

func toUserResponse(u *models.User, subscribed bool) userResponse {
	resp := userResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
	if u.Avatar != "" {
		avatar := media.URL(u.Avatar)
		resp.Avatar = &avatar
	}
	return resp
}

func toUserResponses(views []service.UserView) []userResponse {
	out := make([]userResponse, len(views))
	for i, v := range views {
		out[i] = toUserResponse(v.User, v.IsSubscribed)
	}
	return out
}

func toRegisterResponse(u *models.User) registerResponse {
	return registerResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func toTagResponse(t models.Tag) tagResponse {
	return tagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
}

func toTagResponses(tags []models.Tag) []tagResponse {
	out := make([]tagResponse, len(tags))
	for i, t := range tags {
		out[i] = toTagResponse(t)
	}
	return out
}

func toIngredientResponse(ing models.Ingredient) ingredientResponse {
	return ingredientResponse{ID: ing.ID, Name: ing.Name, MeasurementUnit: ing.MeasurementUnit}
}

func toIngredientResponses(ings []models.Ingredient) []ingredientResponse {
	out := make([]ingredientResponse, len(ings))
	for i, ing := range ings {
		out[i] = toIngredientResponse(ing)
	}
	return out
}

func toRecipeResponse(d service.RecipeDetail) recipeResponse {
	r := d.Recipe
	ingredients := make([]recipeIngredientResponse, len(r.Ingredients))
	for i, row := range r.Ingredients {
		ingredients[i] = recipeIngredientResponse{
			ID:              row.IngredientID,
			Name:            row.Ingredient.Name,
			MeasurementUnit: row.Ingredient.MeasurementUnit,
			Amount:          row.Amount,
		}
	}
	return recipeResponse{
		ID:               r.ID,
		Tags:             toTagResponses(r.Tags),
		Author:           toUserResponse(&r.Author, d.AuthorSubscribed),
		Ingredients:      ingredients,
		IsFavorited:      d.Favorited,
		IsInShoppingCart: d.InCart,
		Name:             r.Name,
		Image:            media.URL(r.Image),
		Text:             r.Text,
		CookingTime:      r.CookingTime,
	}
}

func toRecipeResponses(details []service.RecipeDetail) []recipeResponse {
	out := make([]recipeResponse, len(details))
	for i, d := range details {
		out[i] = toRecipeResponse(d)
	}
	return out
}

func toShortRecipeResponse(r *models.Recipe) shortRecipeResponse {
	return shortRecipeResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       media.URL(r.Image),
		CookingTime: r.CookingTime,
	}
}

func toSubscriptionResponse(v service.AuthorView) subscriptionResponse {
	recipes := make([]shortRecipeResponse, len(v.Recipes))
	for i := range v.Recipes {
		recipes[i] = toShortRecipeResponse(&v.Recipes[i])
	}
	return subscriptionResponse{
		userResponse: toUserResponse(v.User, v.IsSubscribed),
		Recipes:      recipes,
		RecipesCount: v.RecipesCount,
	}
}

func toSubscriptionResponses(views []service.AuthorView) []subscriptionResponse {
	out := make([]subscriptionResponse, len(views))
	for i, v := range views {
		out[i] = toSubscriptionResponse(v)
	}
	return out
}
