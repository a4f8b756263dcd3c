package bun

import (
	"context"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

// OrderRepository persists order headers and item snapshots.
type OrderRepository struct {
	db *database
}

// Insert stores the order header and its items and returns the header with
// its generated id. Callers run this inside RunInTx so header and items
// commit together.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order, items []domain.OrderItem) (domain.Order, error) {
	header := orderFromDomain(order)
	header.ID = 0
	if _, err := r.db.conn(ctx).NewInsert().Model(&header).Exec(ctx); err != nil {
		return domain.Order{}, WrapError("insert order", err)
	}
	for _, item := range items {
		model := orderItemFromDomain(item)
		model.ID = 0
		model.OrderID = header.ID
		if _, err := r.db.conn(ctx).NewInsert().Model(&model).Exec(ctx); err != nil {
			return domain.Order{}, WrapError("insert order item", err)
		}
	}
	return header.toDomain(), nil
}

// FindByID looks an order up by primary key.
func (r *OrderRepository) FindByID(ctx context.Context, orderID int64) (domain.Order, error) {
	var model orderModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("order_id = ?", orderID).
		Scan(ctx)
	if err != nil {
		return domain.Order{}, WrapError("find order", err)
	}
	return model.toDomain(), nil
}

// ListItems returns every item snapshot of an order.
func (r *OrderRepository) ListItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	var models []orderItemModel
	err := r.db.conn(ctx).NewSelect().
		Model(&models).
		Where("order_id = ?", orderID).
		Order("order_item_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, WrapError("list order items", err)
	}
	out := make([]domain.OrderItem, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}

// CompareAndSetStatus moves the order from one status to another in a single
// conditional update. A false return with nil error means another worker won
// the claim or the order is already past the source status.
func (r *OrderRepository) CompareAndSetStatus(ctx context.Context, orderID int64, from, to domain.OrderStatus) (bool, error) {
	res, err := r.db.conn(ctx).NewUpdate().
		Model((*orderModel)(nil)).
		Set("status = ?", string(to)).
		Where("order_id = ?", orderID).
		Where("status = ?", string(from)).
		Exec(ctx)
	if err != nil {
		return false, WrapError("compare-and-set order status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, WrapError("compare-and-set order status", err)
	}
	return affected == 1, nil
}

// SetStatus forces the order status without a source-state guard. Used for
// failure marking where the source state may be pending or processing.
func (r *OrderRepository) SetStatus(ctx context.Context, orderID int64, to domain.OrderStatus) error {
	_, err := r.db.conn(ctx).NewUpdate().
		Model((*orderModel)(nil)).
		Set("status = ?", string(to)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	return WrapError("set order status", err)
}
