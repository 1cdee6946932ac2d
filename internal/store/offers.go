package store

import (
	"context"
	"fmt"
	"time"

	"inventory-bot-backend/internal/model"
)

func (s *gormStore) ListOffers(ctx context.Context) ([]model.Offer, error) {
	var offers []model.Offer
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Product").
		Order("id").
		Find(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

func (s *gormStore) TouchOfferReminder(ctx context.Context, offerID int64, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ?", offerID).
		Update("last_reminded_at", at)
	if res.Error != nil {
		return fmt.Errorf("failed to record reminder for offer %d: %w", offerID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := s.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// ListAssignments returns the assignments of a product whose clients asked to be notified.
func (s *gormStore) ListAssignments(ctx context.Context, productID int64) ([]model.ClientProductAssignment, error) {
	var assignments []model.ClientProductAssignment
	err := s.db.WithContext(ctx).
		Preload("Client").
		Where("product_id = ? AND notify = ?", productID, true).
		Order("id").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for product %d: %w", productID, err)
	}
	return assignments, nil
}
