package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_gateway/internal/database"
	"github.com/GTDGit/gtd_gateway/internal/metrics"
	"github.com/GTDGit/gtd_gateway/internal/models"
	"github.com/GTDGit/gtd_gateway/internal/repository"
	"github.com/GTDGit/gtd_gateway/internal/utils"
)

// OrganizationDirectory answers whether an organization exists. Organizations
// are owned by another service.
type OrganizationDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// GatewayService handles gateway registration and metadata.
type GatewayService struct {
	db          *sqlx.DB
	gatewayRepo *repository.GatewayRepository
	orgs        OrganizationDirectory
	tokens      *TokenService
	cache       StatusCache
	now         func() time.Time
}

// NewGatewayService constructs a GatewayService. cache may be nil.
func NewGatewayService(
	db *sqlx.DB,
	gatewayRepo *repository.GatewayRepository,
	orgs OrganizationDirectory,
	tokens *TokenService,
	cache StatusCache,
) *GatewayService {
	if cache == nil {
		cache = NoopStatusCache{}
	}
	return &GatewayService{
		db:          db,
		gatewayRepo: gatewayRepo,
		orgs:        orgs,
		tokens:      tokens,
		cache:       cache,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RegisterGatewayRequest represents the request to register a gateway.
type RegisterGatewayRequest struct {
	Name              string                   `json:"name" binding:"required"`
	DisplayName       string                   `json:"displayName" binding:"required"`
	Vhost             string                   `json:"vhost" binding:"required"`
	Description       *string                  `json:"description"`
	IsCritical        bool                     `json:"isCritical"`
	FunctionalityType models.FunctionalityType `json:"functionalityType"`
}

// UpdateGatewayRequest carries the mutable metadata. Nil fields are left unchanged;
// an empty description clears it.
type UpdateGatewayRequest struct {
	DisplayName *string `json:"displayName"`
	Description *string `json:"description"`
	IsCritical  *bool   `json:"isCritical"`
}

// ListResult is one page of gateways plus the total across all pages.
type ListResult struct {
	Items  []models.Gateway
	Total  int
	Limit  int
	Offset int
}

// Register creates a gateway under orgID and issues its first token in the
// same transaction. The plaintext token is only ever returned here.
func (s *GatewayService) Register(ctx context.Context, orgID string, req RegisterGatewayRequest) (*models.Gateway, *models.IssuedToken, error) {
	if err := requireOrganization(orgID); err != nil {
		return nil, nil, err
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Vhost = strings.TrimSpace(req.Vhost)
	req.FunctionalityType = defaultFunctionalityType(req.FunctionalityType)
	if err := validateRegister(&req); err != nil {
		return nil, nil, err
	}

	ok, err := s.orgs.Exists(ctx, orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("check organization: %w", err)
	}
	if !ok {
		return nil, nil, utils.ErrOrganizationNotFound
	}

	now := s.now()
	g := &models.Gateway{
		ID:                uuid.NewString(),
		OrganizationID:    orgID,
		Name:              req.Name,
		DisplayName:       req.DisplayName,
		Vhost:             req.Vhost,
		Description:       normalizeDescription(req.Description),
		IsCritical:        req.IsCritical,
		FunctionalityType: req.FunctionalityType,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var issued *models.IssuedToken
	err = database.WithTx(ctx, s.db, func(ctx context.Context) error {
		if err := s.gatewayRepo.Create(ctx, g); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return utils.ErrGatewayNameExists
			}
			return fmt.Errorf("create gateway: %w", err)
		}
		var err error
		issued, err = s.tokens.IssueInitial(ctx, g.ID)
		return err
	})
	if err != nil {
		metrics.GatewayOperationsTotal.WithLabelValues("register", metrics.ResultFailure).Inc()
		return nil, nil, err
	}

	s.invalidate(ctx, orgID)
	metrics.GatewayOperationsTotal.WithLabelValues("register", metrics.ResultSuccess).Inc()
	log.Info().
		Str("gateway_id", g.ID).
		Str("organization_id", orgID).
		Str("name", g.Name).
		Str("token_id", issued.ID).
		Msg("Gateway registered")

	return g, issued, nil
}

// Get returns a live gateway owned by orgID.
func (s *GatewayService) Get(ctx context.Context, gatewayID, orgID string) (*models.Gateway, error) {
	if !isUUID(gatewayID) {
		return nil, utils.ErrGatewayNotFound
	}
	g, err := s.gatewayRepo.GetLive(ctx, gatewayID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrGatewayNotFound
		}
		return nil, fmt.Errorf("get gateway: %w", err)
	}
	return g, nil
}

// List returns live gateways of orgID, or of every organization when orgID is nil.
func (s *GatewayService) List(ctx context.Context, orgID *string, page Page) (*ListResult, error) {
	page, err := page.normalize()
	if err != nil {
		return nil, err
	}

	total, err := s.gatewayRepo.Count(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("count gateways: %w", err)
	}
	items, err := s.gatewayRepo.List(ctx, orgID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list gateways: %w", err)
	}
	if items == nil {
		items = []models.Gateway{}
	}

	return &ListResult{Items: items, Total: total, Limit: page.Limit, Offset: page.Offset}, nil
}

// UpdateMetadata applies the non-nil fields of req and bumps updatedAt. The
// gateway row is locked between read and write so concurrent partial updates
// keep each other's fields.
func (s *GatewayService) UpdateMetadata(ctx context.Context, gatewayID, orgID string, req UpdateGatewayRequest) (*models.Gateway, error) {
	if !isUUID(gatewayID) {
		return nil, utils.ErrGatewayNotFound
	}

	var g *models.Gateway
	err := database.WithTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		g, err = s.gatewayRepo.LockLive(ctx, gatewayID, orgID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return utils.ErrGatewayNotFound
			}
			return fmt.Errorf("lock gateway: %w", err)
		}

		if req.DisplayName != nil {
			g.DisplayName = strings.TrimSpace(*req.DisplayName)
		}
		if req.Description != nil {
			g.Description = normalizeDescription(req.Description)
		}
		if req.IsCritical != nil {
			g.IsCritical = *req.IsCritical
		}

		verr := &utils.ValidationError{}
		validateDisplayName(g.DisplayName, verr)
		validateDescription(g.Description, verr)
		if err := verr.OrNil(); err != nil {
			return err
		}

		g.UpdatedAt = s.now()
		if err := s.gatewayRepo.UpdateMetadata(ctx, g); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return utils.ErrGatewayNotFound
			}
			return fmt.Errorf("update gateway: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, orgID)
	metrics.GatewayOperationsTotal.WithLabelValues("update", metrics.ResultSuccess).Inc()
	log.Info().Str("gateway_id", g.ID).Str("organization_id", orgID).Msg("Gateway metadata updated")
	return g, nil
}

// Delete tombstones a gateway. Its tokens stop verifying as soon as the
// update commits.
func (s *GatewayService) Delete(ctx context.Context, gatewayID, orgID string) error {
	if !isUUID(gatewayID) {
		return utils.ErrGatewayNotFound
	}
	if err := s.gatewayRepo.SoftDelete(ctx, gatewayID, orgID, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrGatewayNotFound
		}
		return fmt.Errorf("delete gateway: %w", err)
	}

	s.invalidate(ctx, orgID)
	metrics.GatewayOperationsTotal.WithLabelValues("delete", metrics.ResultSuccess).Inc()
	log.Info().Str("gateway_id", gatewayID).Str("organization_id", orgID).Msg("Gateway deleted")
	return nil
}

// SetActive records the connection state reported by the gateway connection
// tracker. updatedAt is not bumped.
func (s *GatewayService) SetActive(ctx context.Context, gatewayID string, isActive bool) error {
	if !isUUID(gatewayID) {
		return utils.ErrGatewayNotFound
	}
	orgID, err := s.gatewayRepo.SetActive(ctx, gatewayID, isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return utils.ErrGatewayNotFound
		}
		return fmt.Errorf("set gateway active: %w", err)
	}

	s.invalidate(ctx, orgID)
	log.Debug().Str("gateway_id", gatewayID).Bool("is_active", isActive).Msg("Gateway connection state updated")
	return nil
}

func (s *GatewayService) invalidate(ctx context.Context, orgID string) {
	if err := s.cache.Invalidate(ctx, orgID); err != nil {
		log.Warn().Err(err).Str("organization_id", orgID).Msg("Failed to invalidate gateway status cache")
	}
}
