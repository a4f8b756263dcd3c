package bun

import (
	"context"
	"strings"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

// StoreRepository persists stores keyed by Place ID. The place_id unique
// index is the arbiter for concurrent creation; callers retry a lookup on
// conflict.
type StoreRepository struct {
	db *database
}

// Insert stores a new store row and returns it with its generated id.
func (r *StoreRepository) Insert(ctx context.Context, store domain.Store) (domain.Store, error) {
	model := storeFromDomain(store)
	model.ID = 0
	if _, err := r.db.conn(ctx).NewInsert().Model(&model).Exec(ctx); err != nil {
		return domain.Store{}, WrapError("insert store", err)
	}
	return model.toDomain(), nil
}

// FindByID looks a store up by primary key.
func (r *StoreRepository) FindByID(ctx context.Context, storeID int64) (domain.Store, error) {
	var model storeModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("store_id = ?", storeID).
		Scan(ctx)
	if err != nil {
		return domain.Store{}, WrapError("find store", err)
	}
	return model.toDomain(), nil
}

// FindByPlaceID looks a store up by its Google Place ID.
func (r *StoreRepository) FindByPlaceID(ctx context.Context, placeID string) (domain.Store, error) {
	var model storeModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("place_id = ?", strings.TrimSpace(placeID)).
		Scan(ctx)
	if err != nil {
		return domain.Store{}, WrapError("find store by place id", err)
	}
	return model.toDomain(), nil
}

// FindByName returns the first store matching the exact name.
func (r *StoreRepository) FindByName(ctx context.Context, name string) (domain.Store, error) {
	var model storeModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("store_name = ?", strings.TrimSpace(name)).
		Order("store_id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Store{}, WrapError("find store by name", err)
	}
	return model.toDomain(), nil
}

// List returns every store ordered by creation.
func (r *StoreRepository) List(ctx context.Context) ([]domain.Store, error) {
	var models []storeModel
	err := r.db.conn(ctx).NewSelect().
		Model(&models).
		Order("store_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, WrapError("list stores", err)
	}
	out := make([]domain.Store, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}
