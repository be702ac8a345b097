package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_gateway/internal/metrics"
	"github.com/GTDGit/gtd_gateway/internal/models"
	"github.com/GTDGit/gtd_gateway/internal/repository"
	"github.com/GTDGit/gtd_gateway/internal/utils"
)

// StatusCache holds per-organization status projections. Invalidate bumps the
// organization's generation; Set must drop a projection loaded under an older
// generation.
type StatusCache interface {
	Get(ctx context.Context, orgID string) ([]models.GatewayStatus, bool, error)
	Generation(ctx context.Context, orgID string) (int64, error)
	Set(ctx context.Context, orgID string, generation int64, list []models.GatewayStatus) error
	Invalidate(ctx context.Context, orgID string) error
}

// NoopStatusCache never hits. Used when Redis is disabled.
type NoopStatusCache struct{}

func (NoopStatusCache) Get(context.Context, string) ([]models.GatewayStatus, bool, error) {
	return nil, false, nil
}

func (NoopStatusCache) Generation(context.Context, string) (int64, error) { return 0, nil }

func (NoopStatusCache) Set(context.Context, string, int64, []models.GatewayStatus) error { return nil }

func (NoopStatusCache) Invalidate(context.Context, string) error { return nil }

// StatusService serves the lightweight gateway status projection.
type StatusService struct {
	gatewayRepo *repository.GatewayRepository
	cache       StatusCache
}

// NewStatusService constructs a StatusService. cache may be nil.
func NewStatusService(gatewayRepo *repository.GatewayRepository, cache StatusCache) *StatusService {
	if cache == nil {
		cache = NoopStatusCache{}
	}
	return &StatusService{gatewayRepo: gatewayRepo, cache: cache}
}

// GetStatus returns the status of every live gateway of orgID, or of the single
// gateway named by gatewayID. An unknown gatewayID yields an empty list.
func (s *StatusService) GetStatus(ctx context.Context, orgID string, gatewayID *string) ([]models.GatewayStatus, error) {
	if err := requireOrganization(orgID); err != nil {
		return nil, err
	}
	if gatewayID != nil && !isUUID(*gatewayID) {
		return nil, utils.NewValidationError("gatewayId", "gatewayId must be a valid UUID")
	}

	if list, ok := s.cached(ctx, orgID); ok {
		if gatewayID == nil {
			return list, nil
		}
		for _, st := range list {
			if st.ID == *gatewayID {
				return []models.GatewayStatus{st}, nil
			}
		}
		return []models.GatewayStatus{}, nil
	}

	// single-gateway polls read one row and leave the cache alone
	if gatewayID != nil {
		return s.query(ctx, orgID, gatewayID)
	}

	// the generation is read before the database so a mutation committing in
	// between makes Set drop this load
	gen, genErr := s.cache.Generation(ctx, orgID)
	list, err := s.query(ctx, orgID, nil)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		log.Warn().Err(genErr).Str("organization_id", orgID).Msg("Gateway status cache generation read failed")
		return list, nil
	}
	if err := s.cache.Set(ctx, orgID, gen, list); err != nil {
		log.Warn().Err(err).Str("organization_id", orgID).Msg("Gateway status cache write failed")
	}
	return list, nil
}

func (s *StatusService) cached(ctx context.Context, orgID string) ([]models.GatewayStatus, bool) {
	list, hit, err := s.cache.Get(ctx, orgID)
	switch {
	case err != nil:
		metrics.StatusCacheLookupsTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("organization_id", orgID).Msg("Gateway status cache read failed")
		return nil, false
	case hit:
		metrics.StatusCacheLookupsTotal.WithLabelValues("hit").Inc()
		return list, true
	default:
		metrics.StatusCacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
}

func (s *StatusService) query(ctx context.Context, orgID string, gatewayID *string) ([]models.GatewayStatus, error) {
	list, err := s.gatewayRepo.ListStatus(ctx, orgID, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("list gateway status: %w", err)
	}
	if list == nil {
		list = []models.GatewayStatus{}
	}
	return list, nil
}
