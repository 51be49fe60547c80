package service

import (
	"context"
	"strconv"
	"strings"

	"foodgram/internal/media"
	"foodgram/internal/models"
	"foodgram/internal/repository"
	"foodgram/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is the signup payload.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,username"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,password"`
}

// UserView is a user as seen by a viewer.
type UserView struct {
	User         *models.User
	IsSubscribed bool
}

type UserService struct {
	users         repository.UserRepository
	subscriptions repository.SubscriptionRepository
	images        ImageStore
	validator     *validation.Validator
	maxImageBytes int64
}

func NewUserService(
	users repository.UserRepository,
	subscriptions repository.SubscriptionRepository,
	images ImageStore,
	v *validation.Validator,
	maxImageBytes int64,
) *UserService {
	if v == nil {
		v = validation.New()
	}
	return &UserService{
		users:         users,
		subscriptions: subscriptions,
		images:        images,
		validator:     v,
		maxImageBytes: maxImageBytes,
	}
}

// Register creates an account with a bcrypt-hashed password. The email is
// stored lowercased.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		Email:     in.Email,
		Username:  in.Username,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Password:  string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate returns the user owning email when password matches.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("invalid credentials")
	}
	return user, nil
}

// Get loads userID as seen by viewerID (zero for anonymous).
func (s *UserService) Get(ctx context.Context, viewerID, userID uint) (*UserView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	views, err := s.decorate(ctx, viewerID, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *UserService) List(ctx context.Context, viewerID uint, page repository.Page) ([]UserView, int64, error) {
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.decorate(ctx, viewerID, users)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *UserService) decorate(ctx context.Context, viewerID uint, users []models.User) ([]UserView, error) {
	out := make([]UserView, len(users))
	ids := make([]uint, len(users))
	for i := range users {
		out[i].User = &users[i]
		ids[i] = users[i].ID
	}
	if viewerID == 0 || len(users) == 0 {
		return out, nil
	}
	subscribed, err := s.subscriptions.SubscribedTo(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IsSubscribed = subscribed[out[i].User.ID]
	}
	return out, nil
}

// SetPassword replaces the password of userID after checking current.
func (s *UserService) SetPassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return models.NewFieldValidationError(map[string]string{"current_password": "current password is incorrect"})
	}
	if err := validation.ValidatePassword(next); err != nil {
		return models.NewFieldValidationError(map[string]string{"new_password": err.Error()})
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

// SetAvatar stores the image in dataURI as the avatar of userID and returns
// its relative path.
func (s *UserService) SetAvatar(ctx context.Context, userID uint, dataURI string) (string, error) {
	if strings.TrimSpace(dataURI) == "" {
		return "", models.NewFieldValidationError(map[string]string{"avatar": "this field is required"})
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return "", err
	}
	img, err := media.ParseDataURI(dataURI, s.maxImageBytes)
	if err != nil {
		return "", err
	}
	// Save clears the owner directory, so the previous avatar goes with it.
	path, err := s.images.Save(ctx, media.Avatar, strconv.FormatUint(uint64(userID), 10), img)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateAvatar(ctx, userID, path); err != nil {
		removeImage(ctx, s.images, path)
		return "", err
	}
	return path, nil
}

func (s *UserService) DeleteAvatar(ctx context.Context, userID uint) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Avatar == "" {
		return nil
	}
	if err := s.users.UpdateAvatar(ctx, userID, ""); err != nil {
		return err
	}
	removeImage(ctx, s.images, user.Avatar)
	return nil
}
