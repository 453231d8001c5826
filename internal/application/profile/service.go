package profile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orderly/backend/internal/domain/profile"
	"github.com/orderly/backend/internal/domain/shared"
)

// dedupTTL bounds how long the cache remembers an applied key. The database
// remembers forever; the cache only short-circuits recent replays.
const dedupTTL = 24 * time.Hour

// Service handles customer rollup operations
type Service struct {
	repo  profile.Repository
	cache shared.IdempotencyStore
}

// NewService creates a new profile Service. The cache is optional; without
// it every replay check goes to the database.
func NewService(repo profile.Repository, cache shared.IdempotencyStore) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// ApplyDelta folds one delta into the customer's rollup. The apply is
// idempotent on the dedup key: replays report applied=false and change
// nothing. The database insert into applied_deltas is the authority; the
// cache is only a fast path and its failures are ignored.
func (s *Service) ApplyDelta(ctx context.Context, req ApplyDeltaRequest) (*ApplyDeltaResponse, error) {
	key := dedupCacheKey(req.DedupKey.String())

	if s.cache != nil {
		if seen, err := s.cache.IsProcessed(ctx, key); err == nil && seen {
			return &ApplyDeltaResponse{Applied: false}, nil
		}
	}

	applied, err := s.repo.Apply(ctx, req.ToDelta())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_, _ = s.cache.MarkProcessed(ctx, key, dedupTTL)
	}

	return &ApplyDeltaResponse{Applied: applied}, nil
}

// GetByCustomerID retrieves a customer's rollup. Unprivileged callers may
// only read their own.
func (s *Service) GetByCustomerID(ctx context.Context, actor shared.Actor, customerID string) (*ProfileResponse, error) {
	id, err := parseCustomerID(customerID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(id) {
		return nil, shared.ErrNotOwner
	}
	p, err := s.repo.FindByCustomerID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToProfileResponse(p)
	return &response, nil
}

// List retrieves rollups with pagination. Privileged callers only.
func (s *Service) List(ctx context.Context, actor shared.Actor, filter ProfileListFilter) ([]ProfileResponse, int64, error) {
	if !actor.Role.IsPrivileged() {
		return nil, 0, shared.ErrForbidden
	}
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	result, err := s.repo.List(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToProfileResponses(result.Items), result.Total, nil
}

func dedupCacheKey(dedupKey string) string {
	return fmt.Sprintf("delta:%s", dedupKey)
}

func parseCustomerID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Invalid customer ID %q", s))
	}
	return id, nil
}
