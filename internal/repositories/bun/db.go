package bun

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/repositories"
)

// Open connects to the configured database and returns a bun handle.
// Supported drivers are "sqlite" and "postgres".
func Open(driver, dsn string) (*bun.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		sqlDB, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db := bun.NewDB(sqlDB, sqlitedialect.New())
		// sqlite serialises writes; a single connection avoids lock errors.
		db.SetMaxOpenConns(1)
		return db, nil
	case "postgres", "pg":
		sqlDB, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqlDB, pgdialect.New()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type txContextKey struct{}

// database carries the shared handle and resolves the transactional
// connection when one is bound to the context.
type database struct {
	db *bun.DB
}

func (d *database) conn(ctx context.Context) bun.IDB {
	if tx, ok := ctx.Value(txContextKey{}).(bun.Tx); ok {
		return tx
	}
	return d.db
}

// Registry implements repositories.Registry on top of bun.
type Registry struct {
	db *database

	users     *UserRepository
	stores    *StoreRepository
	menus     *MenuRepository
	ocrMenus  *OCRMenuRepository
	orders    *OrderRepository
	summaries *SummaryRepository
	languages *LanguageRepository
	health    *HealthRepository
}

// NewRegistry wires every repository onto the given handle.
func NewRegistry(db *bun.DB) *Registry {
	shared := &database{db: db}
	return &Registry{
		db:        shared,
		users:     &UserRepository{db: shared},
		stores:    &StoreRepository{db: shared},
		menus:     &MenuRepository{db: shared},
		ocrMenus:  &OCRMenuRepository{db: shared},
		orders:    &OrderRepository{db: shared},
		summaries: &SummaryRepository{db: shared},
		languages: &LanguageRepository{db: shared},
		health:    &HealthRepository{db: shared},
	}
}

// CreateSchema creates all tables when missing and seeds the language lookup.
func (r *Registry) CreateSchema(ctx context.Context) error {
	for _, model := range schemaModels() {
		if _, err := r.db.db.NewCreateTable().
			Model(model).
			IfNotExists().
			WithForeignKeys().
			Exec(ctx); err != nil {
			return WrapError("create schema", err)
		}
	}
	return r.seedLanguages(ctx)
}

func (r *Registry) seedLanguages(ctx context.Context) error {
	for _, lang := range domain.DefaultLanguages() {
		model := languageModel{
			Code:        lang.Code,
			TranslateTo: lang.TranslateTo,
			SpeechTag:   lang.SpeechTag,
			DisplayName: lang.DisplayName,
		}
		if _, err := r.db.db.NewInsert().
			Model(&model).
			On("CONFLICT DO NOTHING").
			Exec(ctx); err != nil {
			return WrapError("seed languages", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Registry) Close(context.Context) error {
	return r.db.db.Close()
}

// RunInTx executes fn inside a transaction; repository calls made with the
// returned context join it.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := r.db.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
	return WrapError("run in tx", err)
}

func (r *Registry) Users() repositories.UserRepository           { return r.users }
func (r *Registry) Stores() repositories.StoreRepository         { return r.stores }
func (r *Registry) Menus() repositories.MenuRepository           { return r.menus }
func (r *Registry) OCRMenus() repositories.OCRMenuRepository     { return r.ocrMenus }
func (r *Registry) Orders() repositories.OrderRepository         { return r.orders }
func (r *Registry) Summaries() repositories.SummaryRepository    { return r.summaries }
func (r *Registry) Languages() repositories.LanguageRepository   { return r.languages }
func (r *Registry) Health() repositories.HealthRepository        { return r.health }

var _ repositories.Registry = (*Registry)(nil)
