package bun

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

// catchAllVersion marks the hidden menu that owns synthetic rows for
// non-partner orders. Real partner menus always use positive versions.
const catchAllVersion = 0

// MenuRepository owns partner menus and their items.
type MenuRepository struct {
	db *database
}

// FindActiveByStore returns the newest menu of a partner store. The hidden
// catch-all menu is never returned.
func (r *MenuRepository) FindActiveByStore(ctx context.Context, storeID int64) (domain.Menu, error) {
	var model menuModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("store_id = ?", storeID).
		Where("version > ?", catchAllVersion).
		Order("version DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Menu{}, WrapError("find active menu", err)
	}
	return model.toDomain(), nil
}

// ListItems returns every item of a menu.
func (r *MenuRepository) ListItems(ctx context.Context, menuID int64) ([]domain.MenuItem, error) {
	var models []menuItemModel
	err := r.db.conn(ctx).NewSelect().
		Model(&models).
		Where("menu_id = ?", menuID).
		Order("menu_item_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, WrapError("list menu items", err)
	}
	out := make([]domain.MenuItem, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}

// FindItem looks a menu item up by primary key.
func (r *MenuRepository) FindItem(ctx context.Context, itemID int64) (domain.MenuItem, error) {
	var model menuItemModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("menu_item_id = ?", itemID).
		Scan(ctx)
	if err != nil {
		return domain.MenuItem{}, WrapError("find menu item", err)
	}
	return model.toDomain(), nil
}

// EnsureCatchAll returns the store's catch-all menu, creating it when absent.
// Synthetic menu items for OCR orders hang off this menu so order item rows
// never carry a dangling menu_item_id.
func (r *MenuRepository) EnsureCatchAll(ctx context.Context, storeID int64, now time.Time) (domain.Menu, error) {
	var model menuModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("store_id = ?", storeID).
		Where("version = ?", catchAllVersion).
		Scan(ctx)
	if err == nil {
		return model.toDomain(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Menu{}, WrapError("find catch-all menu", err)
	}

	model = menuModel{
		StoreID:       storeID,
		Version:       catchAllVersion,
		EffectiveDate: now,
		CreatedAt:     now,
	}
	if _, err := r.db.conn(ctx).NewInsert().Model(&model).Exec(ctx); err != nil {
		return domain.Menu{}, WrapError("create catch-all menu", err)
	}
	return model.toDomain(), nil
}

// InsertItem stores a menu item and returns it with its generated id.
func (r *MenuRepository) InsertItem(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	model := menuItemFromDomain(item)
	model.ID = 0
	if _, err := r.db.conn(ctx).NewInsert().Model(&model).Exec(ctx); err != nil {
		return domain.MenuItem{}, WrapError("insert menu item", err)
	}
	return model.toDomain(), nil
}
