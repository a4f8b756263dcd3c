package bun

import (
	"context"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

// OCRMenuRepository stores OCR ingestion results.
type OCRMenuRepository struct {
	db *database
}

// Insert stores the menu header and its recognised rows in one shot and
// returns both with generated ids.
func (r *OCRMenuRepository) Insert(ctx context.Context, menu domain.OCRMenu, items []domain.OCRMenuItem) (domain.OCRMenu, []domain.OCRMenuItem, error) {
	header := ocrMenuModel{
		UserID:     menu.UserID,
		StoreID:    menu.StoreID,
		StoreName:  menu.StoreName,
		UploadTime: menu.UploadTime,
	}
	if _, err := r.db.conn(ctx).NewInsert().Model(&header).Exec(ctx); err != nil {
		return domain.OCRMenu{}, nil, WrapError("insert ocr menu", err)
	}

	saved := make([]domain.OCRMenuItem, 0, len(items))
	for _, item := range items {
		model := ocrMenuItemModel{
			OCRMenuID:      header.ID,
			ItemName:       item.ItemName,
			PriceSmall:     item.PriceSmall,
			PriceBig:       item.PriceBig,
			TranslatedDesc: item.TranslatedDesc,
		}
		if _, err := r.db.conn(ctx).NewInsert().Model(&model).Exec(ctx); err != nil {
			return domain.OCRMenu{}, nil, WrapError("insert ocr menu item", err)
		}
		saved = append(saved, model.toDomain())
	}
	return header.toDomain(), saved, nil
}

// FindByID looks an OCR menu header up by primary key.
func (r *OCRMenuRepository) FindByID(ctx context.Context, ocrMenuID int64) (domain.OCRMenu, error) {
	var model ocrMenuModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("ocr_menu_id = ?", ocrMenuID).
		Scan(ctx)
	if err != nil {
		return domain.OCRMenu{}, WrapError("find ocr menu", err)
	}
	return model.toDomain(), nil
}

// FindItem looks one recognised row up by primary key.
func (r *OCRMenuRepository) FindItem(ctx context.Context, ocrMenuItemID int64) (domain.OCRMenuItem, error) {
	var model ocrMenuItemModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("ocr_menu_item_id = ?", ocrMenuItemID).
		Scan(ctx)
	if err != nil {
		return domain.OCRMenuItem{}, WrapError("find ocr menu item", err)
	}
	return model.toDomain(), nil
}

// ListItems returns every recognised row of an OCR menu.
func (r *OCRMenuRepository) ListItems(ctx context.Context, ocrMenuID int64) ([]domain.OCRMenuItem, error) {
	var models []ocrMenuItemModel
	err := r.db.conn(ctx).NewSelect().
		Model(&models).
		Where("ocr_menu_id = ?", ocrMenuID).
		Order("ocr_menu_item_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, WrapError("list ocr menu items", err)
	}
	out := make([]domain.OCRMenuItem, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}

// InsertTranslations appends additional language renderings for OCR rows.
func (r *OCRMenuRepository) InsertTranslations(ctx context.Context, translations []domain.OCRMenuTranslation) error {
	for _, tr := range translations {
		model := ocrMenuTranslationModel{
			OCRMenuItemID:  tr.OCRMenuItemID,
			LangCode:       tr.LangCode,
			TranslatedName: tr.TranslatedName,
			TranslatedDesc: tr.TranslatedDesc,
		}
		if _, err := r.db.conn(ctx).NewInsert().Model(&model).Exec(ctx); err != nil {
			return WrapError("insert ocr translation", err)
		}
	}
	return nil
}
