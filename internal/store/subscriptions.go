package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"inventory-bot-backend/internal/model"
)

func (s *gormStore) ListPushSubscriptions(ctx context.Context, recipient string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("recipient = ?", recipient).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions for %s: %w", recipient, err)
	}
	return subs, nil
}

// SavePushSubscription creates the subscription or replaces its keys and recipient.
func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"recipient", "p256dh", "auth"}),
	}).Create(sub).Error
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}
