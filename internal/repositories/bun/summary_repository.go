package bun

import (
	"context"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

// SummaryRepository is insert-only; the unique index on order_id makes a
// duplicate render attempt surface as a conflict.
type SummaryRepository struct {
	db *database
}

// Insert stores a rendered summary and returns it with its generated id.
func (r *SummaryRepository) Insert(ctx context.Context, summary domain.OrderSummary) (domain.OrderSummary, error) {
	model := orderSummaryModel{
		OrderID:         summary.OrderID,
		ChineseSummary:  summary.ChineseSummary,
		UserSummary:     summary.UserSummary,
		UserLanguage:    summary.UserLanguage,
		TotalAmount:     summary.TotalAmount,
		VoiceURL:        summary.VoiceURL,
		VoiceDurationMS: summary.VoiceDurationMS,
		CreatedAt:       summary.CreatedAt,
	}
	if _, err := r.db.conn(ctx).NewInsert().Model(&model).Exec(ctx); err != nil {
		return domain.OrderSummary{}, WrapError("insert order summary", err)
	}
	return model.toDomain(), nil
}

// FindByOrder returns the summary row for an order.
func (r *SummaryRepository) FindByOrder(ctx context.Context, orderID int64) (domain.OrderSummary, error) {
	var model orderSummaryModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		return domain.OrderSummary{}, WrapError("find order summary", err)
	}
	return model.toDomain(), nil
}
