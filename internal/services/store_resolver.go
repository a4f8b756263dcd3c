package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	domain "github.com/leonyu5566/ordering-helper-backend-sub000/internal/domain"
	"github.com/leonyu5566/ordering-helper-backend-sub000/internal/repositories"
)

// ErrInvalidStoreID indicates the caller supplied a store key in none of the
// accepted shapes.
var ErrInvalidStoreID = errors.New("store resolver: invalid store id")

// StoreResolverDeps bundles collaborators required to construct a store resolver.
type StoreResolverDeps struct {
	Stores     repositories.StoreRepository
	UnitOfWork repositories.UnitOfWork
	Clock      Clock
	Logger     Logger
}

// StoreResolver maps heterogeneous external store keys (internal integer,
// numeric string, Google Place ID) onto the internal store id. It is the only
// component that creates stores rows.
type StoreResolver struct {
	stores repositories.StoreRepository
	uow    repositories.UnitOfWork
	clock  Clock
	logger Logger
}

// NewStoreResolver constructs a resolver.
func NewStoreResolver(deps StoreResolverDeps) (*StoreResolver, error) {
	if deps.Stores == nil {
		return nil, errors.New("store resolver: store repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("store resolver: unit of work is required")
	}
	return &StoreResolver{
		stores: deps.Stores,
		uow:    deps.UnitOfWork,
		clock:  normalizeClock(deps.Clock),
		logger: normalizeLogger(deps.Logger),
	}, nil
}

// ValidateFormat classifies the raw key without touching the database. The
// reason string is empty when the key is acceptable.
func (s *StoreResolver) ValidateFormat(raw string) (bool, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false, "store id is empty"
	}
	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		if id <= 0 {
			return false, "store id must be positive"
		}
		return true, ""
	}
	if domain.LooksLikePlaceID(trimmed) {
		return true, ""
	}
	return false, "store id is neither numeric nor a place id"
}

// Resolve returns the internal store id for the raw key, creating a store row
// on first sight of a Place ID. Malformed keys fail with ErrInvalidStoreID.
func (s *StoreResolver) Resolve(ctx context.Context, raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if ok, reason := s.ValidateFormat(trimmed); !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStoreID, reason)
	}

	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return id, nil
	}
	return s.resolvePlaceID(ctx, trimmed, domain.DefaultStoreName, true)
}

// ResolveWithName behaves like Resolve but records the supplied display name
// when a store has to be created.
func (s *StoreResolver) ResolveWithName(ctx context.Context, raw, name string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	if ok, reason := s.ValidateFormat(trimmed); !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStoreID, reason)
	}
	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return id, nil
	}
	if strings.TrimSpace(name) == "" {
		name = domain.DefaultStoreName
	}
	return s.resolvePlaceID(ctx, trimmed, strings.TrimSpace(name), true)
}

// SafeResolve resolves the key, falling back to fallbackID on any failure.
// Intended for non-critical writes only.
func (s *StoreResolver) SafeResolve(ctx context.Context, raw string, fallbackID int64) int64 {
	id, err := s.Resolve(ctx, raw)
	if err != nil {
		s.logger(ctx, "store.resolve.fallback", map[string]any{
			"raw":      raw,
			"fallback": fallbackID,
			"error":    err.Error(),
		})
		return fallbackID
	}
	return id
}

// StrictValidate checks the key against the database. With allowCreate false
// an unseen Place ID is rejected instead of created.
func (s *StoreResolver) StrictValidate(ctx context.Context, raw string, allowCreate bool) (bool, string, error) {
	trimmed := strings.TrimSpace(raw)
	if ok, reason := s.ValidateFormat(trimmed); !ok {
		return false, reason, nil
	}
	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		if _, err := s.stores.FindByID(ctx, id); err != nil {
			if isNotFound(err) {
				return false, "store does not exist", nil
			}
			return false, "", err
		}
		return true, "", nil
	}

	if _, err := s.stores.FindByPlaceID(ctx, trimmed); err != nil {
		if !isNotFound(err) {
			return false, "", err
		}
		if !allowCreate {
			return false, "place id is unknown", nil
		}
		if _, err := s.resolvePlaceID(ctx, trimmed, domain.DefaultStoreName, true); err != nil {
			return false, "", err
		}
	}
	return true, "", nil
}

// resolvePlaceID looks the Place ID up and inserts a non-partner store on
// miss. Concurrent first-writes are collapsed by the unique index on
// place_id: an insert losing the race surfaces as a conflict and is resolved
// by re-reading.
func (s *StoreResolver) resolvePlaceID(ctx context.Context, placeID, name string, create bool) (int64, error) {
	var resolved int64
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		store, err := s.stores.FindByPlaceID(ctx, placeID)
		if err == nil {
			resolved = store.ID
			return nil
		}
		if !isNotFound(err) {
			return err
		}
		if !create {
			return fmt.Errorf("%w: unknown place id", ErrInvalidStoreID)
		}
		created, err := s.stores.Insert(ctx, domain.Store{
			Name:         name,
			PartnerLevel: domain.PartnerLevelNone,
			PlaceID:      placeID,
			CreatedAt:    s.clock(),
		})
		if err != nil {
			return err
		}
		resolved = created.ID
		return nil
	})
	if err == nil {
		return resolved, nil
	}
	if isConflict(err) {
		// Another caller created the row between our read and write.
		store, lookupErr := s.stores.FindByPlaceID(ctx, placeID)
		if lookupErr != nil {
			return 0, lookupErr
		}
		s.logger(ctx, "store.resolve.race", map[string]any{
			"place_id": placeID,
			"store_id": store.ID,
		})
		return store.ID, nil
	}
	return 0, err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
