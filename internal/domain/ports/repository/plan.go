package repository

import (
	"context"

	"lingua-billing/internal/domain/model"
)

type SubscriptionPlanRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.SubscriptionPlan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.SubscriptionPlan, error)
}
