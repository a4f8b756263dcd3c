package bun

import (
	"context"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

// LanguageRepository reads the static language lookup table.
type LanguageRepository struct {
	db *database
}

// List returns every supported language ordered by code.
func (r *LanguageRepository) List(ctx context.Context) ([]domain.Language, error) {
	var models []languageModel
	err := r.db.conn(ctx).NewSelect().
		Model(&models).
		Order("lang_code ASC").
		Scan(ctx)
	if err != nil {
		return nil, WrapError("list languages", err)
	}
	out := make([]domain.Language, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}
