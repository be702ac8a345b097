package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_gateway/internal/credential"
	"github.com/GTDGit/gtd_gateway/internal/metrics"
	"github.com/GTDGit/gtd_gateway/internal/models"
	"github.com/GTDGit/gtd_gateway/internal/repository"
	"github.com/GTDGit/gtd_gateway/internal/utils"
)

// Digest compared against when the lookup id is unknown, so a miss costs the
// same as a mismatch.
var (
	dummyHash = strings.Repeat("0", 64)
	dummySalt = strings.Repeat("0", 64)
)

// VerificationService authenticates gateways presenting a token.
type VerificationService struct {
	gatewayRepo *repository.GatewayRepository
	tokenRepo   *repository.TokenRepository
	codec       *credential.Codec
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(
	gatewayRepo *repository.GatewayRepository,
	tokenRepo *repository.TokenRepository,
	codec *credential.Codec,
) *VerificationService {
	return &VerificationService{
		gatewayRepo: gatewayRepo,
		tokenRepo:   tokenRepo,
		codec:       codec,
	}
}

// Verify resolves plaintext to the gateway it was issued for.
//
// The owning gateway is checked before the token status, so every token of a
// deleted gateway, revoked or not, reports ErrTokenGatewayNotFound.
func (s *VerificationService) Verify(ctx context.Context, plaintext string) (*models.Gateway, error) {
	lookupID, ok := credential.ParseLookupID(plaintext)
	if !ok {
		return nil, s.reject("malformed", "", utils.ErrInvalidToken)
	}

	tok, err := s.tokenRepo.GetByLookupID(ctx, lookupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.codec.Verify(plaintext, dummyHash, dummySalt)
			return nil, s.reject("unknown_token", lookupID, utils.ErrInvalidToken)
		}
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load token: %w", err)
	}

	if !s.codec.Verify(plaintext, tok.TokenHash, tok.Salt) {
		return nil, s.reject("hash_mismatch", lookupID, utils.ErrInvalidToken)
	}

	g, err := s.gatewayRepo.GetByID(ctx, tok.GatewayID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		metrics.VerificationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load gateway: %w", err)
	}
	if g == nil || g.IsDeleted() {
		return nil, s.reject("gateway_not_found", lookupID, utils.ErrTokenGatewayNotFound)
	}

	if !tok.IsActive() {
		return nil, s.reject("revoked", lookupID, utils.ErrTokenRevoked)
	}

	metrics.VerificationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	log.Debug().Str("gateway_id", g.ID).Str("lookup_id", lookupID).Msg("Gateway token verified")
	return g, nil
}

func (s *VerificationService) reject(reason, lookupID string, err error) error {
	metrics.VerificationsTotal.WithLabelValues(reason).Inc()
	log.Warn().Str("reason", reason).Str("lookup_id", lookupID).Msg("Gateway token verification failed")
	return err
}
