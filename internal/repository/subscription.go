package repository

import (
	"context"

	"foodgram/internal/models"

	"gorm.io/gorm"
)

// SubscriptionRepository persists follow edges between users.
type SubscriptionRepository interface {
	Exists(ctx context.Context, userID, authorID uint) (bool, error)
	// Create returns ErrDuplicate when the edge already exists.
	Create(ctx context.Context, userID, authorID uint) error
	// Delete reports whether an edge was removed.
	Delete(ctx context.Context, userID, authorID uint) (bool, error)
	ListAuthors(ctx context.Context, userID uint, page Page) ([]models.User, int64, error)
	// SubscribedTo returns the subset of authorIDs that userID follows.
	SubscribedTo(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error)
	SubscriberIDs(ctx context.Context, authorID uint) ([]uint, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *subscriptionRepository) Create(ctx context.Context, userID, authorID uint) error {
	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := r.db.WithContext(ctx).Omit("User", "Author").Create(&sub).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if isCheckViolation(err) {
			return models.NewValidationError("cannot subscribe to yourself")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, userID, authorID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListAuthors returns the authors userID follows, most recent subscription first.
func (r *subscriptionRepository) ListAuthors(ctx context.Context, userID uint, page Page) ([]models.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var authors []models.User
	q := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.*").
		Joins("JOIN subscriptions s ON s.author_id = users.id").
		Where("s.user_id = ?", userID).
		Order("s.created_at DESC").Order("s.id DESC")
	if err := page.scope(q).Find(&authors).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return authors, total, nil
}

func (r *subscriptionRepository) SubscribedTo(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(authorIDs))
	if userID == 0 || len(authorIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *subscriptionRepository) SubscriberIDs(ctx context.Context, authorID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("author_id = ?", authorID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
