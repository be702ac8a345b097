package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_gateway/internal/credential"
	"github.com/GTDGit/gtd_gateway/internal/database"
	"github.com/GTDGit/gtd_gateway/internal/metrics"
	"github.com/GTDGit/gtd_gateway/internal/models"
	"github.com/GTDGit/gtd_gateway/internal/repository"
	"github.com/GTDGit/gtd_gateway/internal/utils"
)

// MaxActiveTokens is the number of tokens a gateway may hold at once: the
// current one plus its replacement during a rotation.
const MaxActiveTokens = 2

// TokenService manages the lifecycle of gateway tokens.
type TokenService struct {
	db          *sqlx.DB
	gatewayRepo *repository.GatewayRepository
	tokenRepo   *repository.TokenRepository
	codec       *credential.Codec
	now         func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(
	db *sqlx.DB,
	gatewayRepo *repository.GatewayRepository,
	tokenRepo *repository.TokenRepository,
	codec *credential.Codec,
) *TokenService {
	return &TokenService{
		db:          db,
		gatewayRepo: gatewayRepo,
		tokenRepo:   tokenRepo,
		codec:       codec,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// IssueInitial mints the first token of a freshly created gateway. It joins
// the caller's transaction when ctx carries one.
func (s *TokenService) IssueInitial(ctx context.Context, gatewayID string) (*models.IssuedToken, error) {
	issued, err := s.issue(ctx, gatewayID)
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("issue", metrics.ResultFailure).Inc()
		return nil, err
	}
	metrics.TokenOperationsTotal.WithLabelValues("issue", metrics.ResultSuccess).Inc()
	return issued, nil
}

// Rotate issues an additional token for a gateway. Existing tokens stay
// active until revoked. The gateway row is locked for the duration of the
// cap check and insert so concurrent rotations cannot exceed MaxActiveTokens.
func (s *TokenService) Rotate(ctx context.Context, gatewayID, orgID string) (*models.IssuedToken, error) {
	if !isUUID(gatewayID) {
		return nil, utils.ErrGatewayNotFound
	}

	var issued *models.IssuedToken
	err := database.WithTx(ctx, s.db, func(ctx context.Context) error {
		if _, err := s.gatewayRepo.LockLive(ctx, gatewayID, orgID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return utils.ErrGatewayNotFound
			}
			return fmt.Errorf("lock gateway: %w", err)
		}

		active, err := s.tokenRepo.CountActive(ctx, gatewayID)
		if err != nil {
			return fmt.Errorf("count active tokens: %w", err)
		}
		if active >= MaxActiveTokens {
			return utils.ErrTooManyActiveTokens
		}

		issued, err = s.issue(ctx, gatewayID)
		return err
	})
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("rotate", metrics.ResultFailure).Inc()
		return nil, err
	}

	metrics.TokenOperationsTotal.WithLabelValues("rotate", metrics.ResultSuccess).Inc()
	log.Info().
		Str("gateway_id", gatewayID).
		Str("organization_id", orgID).
		Str("token_id", issued.ID).
		Msg("Gateway token rotated")
	return issued, nil
}

// Revoke moves a token to revoked. Revoking an already revoked token succeeds
// without changing it. The token as stored after the call is returned.
func (s *TokenService) Revoke(ctx context.Context, gatewayID, tokenID, orgID string) (*models.GatewayToken, error) {
	if !isUUID(gatewayID) {
		return nil, utils.ErrGatewayNotFound
	}
	if !isUUID(tokenID) {
		return nil, utils.ErrTokenNotFound
	}

	if _, err := s.gatewayRepo.GetLive(ctx, gatewayID, orgID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrGatewayNotFound
		}
		return nil, fmt.Errorf("get gateway: %w", err)
	}

	if _, err := s.tokenRepo.GetByID(ctx, tokenID, gatewayID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrTokenNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}

	changed, err := s.tokenRepo.Revoke(ctx, tokenID, gatewayID, s.now())
	if err != nil {
		metrics.TokenOperationsTotal.WithLabelValues("revoke", metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("revoke token: %w", err)
	}

	tok, err := s.tokenRepo.GetByID(ctx, tokenID, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("reload token: %w", err)
	}

	metrics.TokenOperationsTotal.WithLabelValues("revoke", metrics.ResultSuccess).Inc()
	if changed {
		log.Info().
			Str("gateway_id", gatewayID).
			Str("organization_id", orgID).
			Str("token_id", tokenID).
			Msg("Gateway token revoked")
	}
	return tok, nil
}

// CountActive returns the number of active tokens of a gateway.
func (s *TokenService) CountActive(ctx context.Context, gatewayID string) (int, error) {
	return s.tokenRepo.CountActive(ctx, gatewayID)
}

// ListActive returns the active tokens of a gateway.
func (s *TokenService) ListActive(ctx context.Context, gatewayID string) ([]models.GatewayToken, error) {
	list, err := s.tokenRepo.ListActive(ctx, gatewayID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.GatewayToken{}
	}
	return list, nil
}

// ListTokens returns the active tokens of a live gateway owned by orgID.
func (s *TokenService) ListTokens(ctx context.Context, gatewayID, orgID string) ([]models.GatewayToken, error) {
	if !isUUID(gatewayID) {
		return nil, utils.ErrGatewayNotFound
	}
	if _, err := s.gatewayRepo.GetLive(ctx, gatewayID, orgID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.ErrGatewayNotFound
		}
		return nil, fmt.Errorf("get gateway: %w", err)
	}
	return s.ListActive(ctx, gatewayID)
}

func (s *TokenService) issue(ctx context.Context, gatewayID string) (*models.IssuedToken, error) {
	cred, err := s.codec.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	tok := &models.GatewayToken{
		ID:        uuid.NewString(),
		GatewayID: gatewayID,
		TokenHash: cred.Hash,
		Salt:      cred.Salt,
		LookupID:  cred.LookupID,
		Status:    models.TokenStatusActive,
		CreatedAt: s.now(),
	}
	if err := s.tokenRepo.Create(ctx, tok); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	return &models.IssuedToken{
		ID:        tok.ID,
		Token:     cred.Plaintext,
		CreatedAt: tok.CreatedAt,
	}, nil
}
