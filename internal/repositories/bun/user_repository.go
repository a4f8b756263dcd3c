package bun

import (
	"context"
	"strings"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
)

// UserRepository persists LINE users and transient guests.
type UserRepository struct {
	db *database
}

// Insert stores a new user and returns it with its generated id.
func (r *UserRepository) Insert(ctx context.Context, user domain.User) (domain.User, error) {
	model := userFromDomain(user)
	model.ID = 0
	if _, err := r.db.conn(ctx).NewInsert().Model(&model).Exec(ctx); err != nil {
		return domain.User{}, WrapError("insert user", err)
	}
	return model.toDomain(), nil
}

// FindByID looks a user up by primary key.
func (r *UserRepository) FindByID(ctx context.Context, userID int64) (domain.User, error) {
	var model userModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return domain.User{}, WrapError("find user", err)
	}
	return model.toDomain(), nil
}

// FindByLineID looks a user up by LINE identifier.
func (r *UserRepository) FindByLineID(ctx context.Context, lineUserID string) (domain.User, error) {
	var model userModel
	err := r.db.conn(ctx).NewSelect().
		Model(&model).
		Where("line_user_id = ?", strings.TrimSpace(lineUserID)).
		Scan(ctx)
	if err != nil {
		return domain.User{}, WrapError("find user by line id", err)
	}
	return model.toDomain(), nil
}
