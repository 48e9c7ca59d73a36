package repository

import (
	"context"
	"errors"

	"github.com/serverwatch/notifier/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriberRepository persists filter documents keyed by subscriber id
type SubscriberRepository struct {
	db *gorm.DB
}

func NewSubscriberRepository(db *gorm.DB) *SubscriberRepository {
	return &SubscriberRepository{db: db}
}

// GetAll returns every stored subscriber document
func (r *SubscriberRepository) GetAll(ctx context.Context) ([]models.Subscriber, error) {
	var subscribers []models.Subscriber
	err := r.db.WithContext(ctx).Order("id").Find(&subscribers).Error
	return subscribers, err
}

// Get returns one subscriber document or models.ErrSubscriberNotFound
func (r *SubscriberRepository) Get(ctx context.Context, id string) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&subscriber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrSubscriberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subscriber, nil
}

// Set upserts a subscriber document. Existing rows keep their username when
// the new document carries none.
func (r *SubscriberRepository) Set(ctx context.Context, subscriber *models.Subscriber) error {
	columns := []string{"filters", "updated_at"}
	if subscriber.Username != "" {
		columns = append(columns, "username")
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(subscriber).Error
}

// Delete removes a subscriber document. Deleting a missing document is not an error.
func (r *SubscriberRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Subscriber{}).Error
}

// Count returns the number of stored subscriber documents
func (r *SubscriberRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscriber{}).Count(&count).Error
	return count, err
}
