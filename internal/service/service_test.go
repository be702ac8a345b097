package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_gateway/internal/credential"
	"github.com/GTDGit/gtd_gateway/internal/database/databasetest"
	"github.com/GTDGit/gtd_gateway/internal/models"
	"github.com/GTDGit/gtd_gateway/internal/repository"
	"github.com/GTDGit/gtd_gateway/internal/utils"
)

type fixture struct {
	db       *sqlx.DB
	gateways *GatewayService
	tokens   *TokenService
	verifier *VerificationService
	status   *StatusService
	cache    *memoryStatusCache
}

// memoryStatusCache is an in-process StatusCache that records invalidations.
type memoryStatusCache struct {
	mu          sync.Mutex
	entries     map[string][]models.GatewayStatus
	generations map[string]int64
	invalidated []string
	failReads   bool
	// beforeSet runs between the database read and the cache write
	beforeSet func()
}

func newMemoryStatusCache() *memoryStatusCache {
	return &memoryStatusCache{
		entries:     make(map[string][]models.GatewayStatus),
		generations: make(map[string]int64),
	}
}

func (c *memoryStatusCache) Get(_ context.Context, orgID string) ([]models.GatewayStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failReads {
		return nil, false, errors.New("cache down")
	}
	list, ok := c.entries[orgID]
	return list, ok, nil
}

func (c *memoryStatusCache) Generation(_ context.Context, orgID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[orgID], nil
}

func (c *memoryStatusCache) Set(_ context.Context, orgID string, generation int64, list []models.GatewayStatus) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[orgID] != generation {
		return nil
	}
	c.entries[orgID] = list
	return nil
}

func (c *memoryStatusCache) Invalidate(_ context.Context, orgID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, orgID)
	c.generations[orgID]++
	c.invalidated = append(c.invalidated, orgID)
	return nil
}

func (c *memoryStatusCache) cached(orgID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[orgID]
	return ok
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := databasetest.New(t)
	databasetest.SeedOrganization(t, db, "org-A")
	databasetest.SeedOrganization(t, db, "org-B")

	gatewayRepo := repository.NewGatewayRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	codec := credential.NewCodec()
	cache := newMemoryStatusCache()

	tokens := NewTokenService(db, gatewayRepo, tokenRepo, codec)
	return &fixture{
		db:       db,
		gateways: NewGatewayService(db, gatewayRepo, repository.NewOrganizationRepository(db), tokens, cache),
		tokens:   tokens,
		verifier: NewVerificationService(gatewayRepo, tokenRepo, codec),
		status:   NewStatusService(gatewayRepo, cache),
		cache:    cache,
	}
}

func registerReq(name string) RegisterGatewayRequest {
	return RegisterGatewayRequest{
		Name:        name,
		DisplayName: "Gateway " + name,
		Vhost:       name + ".example.com",
	}
}

func (f *fixture) register(t *testing.T, orgID, name string) (*models.Gateway, *models.IssuedToken) {
	t.Helper()
	g, tok, err := f.gateways.Register(context.Background(), orgID, registerReq(name))
	require.NoError(t, err)
	return g, tok
}

func (f *fixture) countTokens(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.Get(&n, `SELECT COUNT(*) FROM gateway_tokens`))
	return n
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := registerReq("gw-1")
	req.IsCritical = true
	g, tok, err := f.gateways.Register(ctx, "org-A", req)
	require.NoError(t, err)

	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "org-A", g.OrganizationID)
	assert.Equal(t, models.FunctionalityRegular, g.FunctionalityType)
	assert.True(t, g.IsCritical)
	assert.False(t, g.IsActive)
	assert.Nil(t, g.Description)
	assert.Equal(t, g.CreatedAt, g.UpdatedAt)

	require.NotNil(t, tok)
	assert.True(t, strings.HasPrefix(tok.Token, credential.Prefix+"_"))

	n, err := f.tokens.CountActive(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	verified, err := f.verifier.Verify(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, g.ID, verified.ID)

	assert.Contains(t, f.cache.invalidated, "org-A")
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	long := strings.Repeat("d", 501)
	tests := []struct {
		name  string
		mod   func(r *RegisterGatewayRequest)
		field string
	}{
		{"name too short", func(r *RegisterGatewayRequest) { r.Name = "ab" }, "name"},
		{"name too long", func(r *RegisterGatewayRequest) { r.Name = strings.Repeat("a", 65) }, "name"},
		{"name uppercase", func(r *RegisterGatewayRequest) { r.Name = "Prod-GW" }, "name"},
		{"name underscore", func(r *RegisterGatewayRequest) { r.Name = "prod_gw" }, "name"},
		{"name leading hyphen", func(r *RegisterGatewayRequest) { r.Name = "-prod" }, "name"},
		{"name trailing hyphen", func(r *RegisterGatewayRequest) { r.Name = "prod-" }, "name"},
		{"name empty", func(r *RegisterGatewayRequest) { r.Name = "" }, "name"},
		{"display name blank", func(r *RegisterGatewayRequest) { r.DisplayName = "   " }, "displayName"},
		{"display name too long", func(r *RegisterGatewayRequest) { r.DisplayName = strings.Repeat("x", 129) }, "displayName"},
		{"vhost empty", func(r *RegisterGatewayRequest) { r.Vhost = "" }, "vhost"},
		{"vhost too long", func(r *RegisterGatewayRequest) { r.Vhost = strings.Repeat("v", 256) }, "vhost"},
		{"description too long", func(r *RegisterGatewayRequest) { r.Description = &long }, "description"},
		{"unknown functionality", func(r *RegisterGatewayRequest) { r.FunctionalityType = "batch" }, "functionalityType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := registerReq("valid-gw")
			tt.mod(&req)

			_, _, err := f.gateways.Register(context.Background(), "org-A", req)
			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrValidation)

			var verr *utils.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}

	assert.Equal(t, 0, f.countTokens(t))
}

func TestRegister_Boundaries(t *testing.T) {
	f := newFixture(t)

	desc := strings.Repeat("d", 500)
	req := registerReq(strings.Repeat("a", 64))
	req.DisplayName = strings.Repeat("x", 128)
	req.Description = &desc
	req.FunctionalityType = models.FunctionalityEvent

	g, _, err := f.gateways.Register(context.Background(), "org-A", req)
	require.NoError(t, err)
	assert.Equal(t, models.FunctionalityEvent, g.FunctionalityType)

	_, _, err = f.gateways.Register(context.Background(), "org-A", registerReq("abc"))
	assert.NoError(t, err)
}

func TestRegister_OrganizationNotFound(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.gateways.Register(context.Background(), "org-Z", registerReq("gw-1"))
	assert.ErrorIs(t, err, utils.ErrOrganizationNotFound)

	_, _, err = f.gateways.Register(context.Background(), "", registerReq("gw-1"))
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestRegister_DuplicateLeavesNoOrphanToken(t *testing.T) {
	f := newFixture(t)
	f.register(t, "org-A", "gw-1")

	_, _, err := f.gateways.Register(context.Background(), "org-A", registerReq("gw-1"))
	assert.ErrorIs(t, err, utils.ErrGatewayNameExists)
	assert.Equal(t, 1, f.countTokens(t))
}

func TestRegister_ConcurrentSameName(t *testing.T) {
	f := newFixture(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.gateways.Register(context.Background(), "org-A", registerReq("gw-race"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, utils.ErrGatewayNameExists):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, f.countTokens(t))
}

func TestGetListUpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, _ := f.register(t, "org-A", "gw-1")
	f.register(t, "org-A", "gw-2")
	f.register(t, "org-B", "gw-1")

	got, err := f.gateways.Get(ctx, g.ID, "org-A")
	require.NoError(t, err)
	assert.Equal(t, "gw-1", got.Name)

	_, err = f.gateways.Get(ctx, g.ID, "org-B")
	assert.ErrorIs(t, err, utils.ErrGatewayNotFound)
	_, err = f.gateways.Get(ctx, "not-a-uuid", "org-A")
	assert.ErrorIs(t, err, utils.ErrGatewayNotFound)

	org := "org-A"
	res, err := f.gateways.List(ctx, &org, Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, defaultPageLimit, res.Limit)

	res, err = f.gateways.List(ctx, &org, Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Items, 1)

	all, err := f.gateways.List(ctx, nil, Page{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)

	_, err = f.gateways.List(ctx, &org, Page{Limit: -1})
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = f.gateways.List(ctx, &org, Page{Offset: -5})
	assert.ErrorIs(t, err, utils.ErrValidation)

	display := "Gateway One"
	desc := "primary edge"
	critical := true
	updated, err := f.gateways.UpdateMetadata(ctx, g.ID, "org-A", UpdateGatewayRequest{
		DisplayName: &display,
		Description: &desc,
		IsCritical:  &critical,
	})
	require.NoError(t, err)
	assert.Equal(t, display, updated.DisplayName)
	require.NotNil(t, updated.Description)
	assert.Equal(t, desc, *updated.Description)
	assert.True(t, updated.IsCritical)
	assert.True(t, !updated.UpdatedAt.Before(g.UpdatedAt))
	assert.Equal(t, g.Name, updated.Name)
	assert.Equal(t, g.Vhost, updated.Vhost)

	empty := ""
	cleared, err := f.gateways.UpdateMetadata(ctx, g.ID, "org-A", UpdateGatewayRequest{Description: &empty})
	require.NoError(t, err)
	assert.Nil(t, cleared.Description)
	assert.Equal(t, display, cleared.DisplayName)

	blank := " "
	_, err = f.gateways.UpdateMetadata(ctx, g.ID, "org-A", UpdateGatewayRequest{DisplayName: &blank})
	assert.ErrorIs(t, err, utils.ErrValidation)

	require.NoError(t, f.gateways.Delete(ctx, g.ID, "org-A"))
	assert.ErrorIs(t, f.gateways.Delete(ctx, g.ID, "org-A"), utils.ErrGatewayNotFound)
	_, err = f.gateways.Get(ctx, g.ID, "org-A")
	assert.ErrorIs(t, err, utils.ErrGatewayNotFound)
	_, err = f.gateways.UpdateMetadata(ctx, g.ID, "org-A", UpdateGatewayRequest{DisplayName: &display})
	assert.ErrorIs(t, err, utils.ErrGatewayNotFound)

	// the name is free again once the old gateway is gone
	f.register(t, "org-A", "gw-1")
}

func TestUpdateMetadata_ConcurrentPartialUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, _ := f.register(t, "org-A", "gw-1")

	for round := 0; round < 20; round++ {
		reset, critical := "Original", false
		_, err := f.gateways.UpdateMetadata(ctx, g.ID, "org-A", UpdateGatewayRequest{DisplayName: &reset, IsCritical: &critical})
		require.NoError(t, err)

		renamed, on := "Renamed", true
		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = f.gateways.UpdateMetadata(ctx, g.ID, "org-A", UpdateGatewayRequest{DisplayName: &renamed})
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = f.gateways.UpdateMetadata(ctx, g.ID, "org-A", UpdateGatewayRequest{IsCritical: &on})
		}()
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		got, err := f.gateways.Get(ctx, g.ID, "org-A")
		require.NoError(t, err)
		require.Equal(t, "Renamed", got.DisplayName, "round %d", round)
		require.True(t, got.IsCritical, "round %d", round)
	}
}

func TestSetActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, _ := f.register(t, "org-A", "gw-1")
	require.NoError(t, f.gateways.SetActive(ctx, g.ID, true))

	got, err := f.gateways.Get(ctx, g.ID, "org-A")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, g.UpdatedAt.UnixNano(), got.UpdatedAt.UnixNano())

	assert.ErrorIs(t, f.gateways.SetActive(ctx, "bogus", true), utils.ErrGatewayNotFound)

	require.NoError(t, f.gateways.Delete(ctx, g.ID, "org-A"))
	assert.ErrorIs(t, f.gateways.SetActive(ctx, g.ID, false), utils.ErrGatewayNotFound)
}

func TestRotate_Cap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, t0 := f.register(t, "org-A", "gw-1")

	t1, err := f.tokens.Rotate(ctx, g.ID, "org-A")
	require.NoError(t, err)
	assert.NotEqual(t, t0.Token, t1.Token)

	_, err = f.tokens.Rotate(ctx, g.ID, "org-A")
	assert.ErrorIs(t, err, utils.ErrTooManyActiveTokens)

	n, err := f.tokens.CountActive(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, MaxActiveTokens, n)

	_, err = f.tokens.Revoke(ctx, g.ID, t0.ID, "org-A")
	require.NoError(t, err)

	_, err = f.tokens.Rotate(ctx, g.ID, "org-A")
	assert.NoError(t, err)

	_, err = f.tokens.Rotate(ctx, g.ID, "org-B")
	assert.ErrorIs(t, err, utils.ErrGatewayNotFound)
	_, err = f.tokens.Rotate(ctx, "nope", "org-A")
	assert.ErrorIs(t, err, utils.ErrGatewayNotFound)
}

func TestRotate_Concurrent(t *testing.T) {
	f := newFixture(t)
	g, _ := f.register(t, "org-A", "gw-1")

	const workers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		capped    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tokens.Rotate(context.Background(), g.ID, "org-A")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, utils.ErrTooManyActiveTokens):
				capped++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, capped)

	n, err := f.tokens.CountActive(context.Background(), g.ID)
	require.NoError(t, err)
	assert.Equal(t, MaxActiveTokens, n)
}

func TestRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, t0 := f.register(t, "org-A", "gw-1")
	other, otherTok := f.register(t, "org-A", "gw-2")

	first, err := f.tokens.Revoke(ctx, g.ID, t0.ID, "org-A")
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusRevoked, first.Status)
	require.NotNil(t, first.RevokedAt)

	second, err := f.tokens.Revoke(ctx, g.ID, t0.ID, "org-A")
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatusRevoked, second.Status)
	assert.Equal(t, first.RevokedAt.UnixNano(), second.RevokedAt.UnixNano())

	_, err = f.tokens.Revoke(ctx, g.ID, t0.ID, "org-B")
	assert.ErrorIs(t, err, utils.ErrGatewayNotFound)
	_, err = f.tokens.Revoke(ctx, g.ID, otherTok.ID, "org-A")
	assert.ErrorIs(t, err, utils.ErrTokenNotFound)
	_, err = f.tokens.Revoke(ctx, g.ID, "garbage", "org-A")
	assert.ErrorIs(t, err, utils.ErrTokenNotFound)

	active, err := f.tokens.ListTokens(ctx, other.ID, "org-A")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, otherTok.ID, active[0].ID)

	active, err = f.tokens.ListTokens(ctx, g.ID, "org-A")
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.NotNil(t, active)

	_, err = f.tokens.ListTokens(ctx, g.ID, "org-B")
	assert.ErrorIs(t, err, utils.ErrGatewayNotFound)
}

func TestRevoke_Concurrent(t *testing.T) {
	f := newFixture(t)
	g, t0 := f.register(t, "org-A", "gw-1")

	const workers = 5
	results := make([]*models.GatewayToken, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.tokens.Revoke(context.Background(), g.ID, t0.ID, "org-A")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i].RevokedAt)
		assert.Equal(t, results[0].RevokedAt.UnixNano(), results[i].RevokedAt.UnixNano())
	}
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, t0 := f.register(t, "org-A", "gw-1")

	tampered := t0.Token[:len(t0.Token)-1] + flip(t0.Token[len(t0.Token)-1])
	lookupID, _ := credential.ParseLookupID(t0.Token)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "definitely-not-a-token"},
		{"tampered secret", tampered},
		{"unknown lookup id", "gwt_ffffffffffffffff_" + t0.Token[len(t0.Token)-43:]},
		{"legacy opaque", strings.Repeat("A", 43)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.verifier.Verify(ctx, tt.token)
			assert.ErrorIs(t, err, utils.ErrInvalidToken)
		})
	}
	assert.NotEqual(t, "ffffffffffffffff", lookupID)

	got, err := f.verifier.Verify(ctx, t0.Token)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.ID)
}

func TestVerify_AfterDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g, t0 := f.register(t, "org-A", "gw-1")
	t1, err := f.tokens.Rotate(ctx, g.ID, "org-A")
	require.NoError(t, err)
	_, err = f.tokens.Revoke(ctx, g.ID, t0.ID, "org-A")
	require.NoError(t, err)

	require.NoError(t, f.gateways.Delete(ctx, g.ID, "org-A"))

	for _, tok := range []string{t0.Token, t1.Token} {
		_, err := f.verifier.Verify(ctx, tok)
		assert.ErrorIs(t, err, utils.ErrTokenGatewayNotFound)
	}
}

// The org-A / org-B walkthrough: register, rotate, revoke, name clash.
func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := RegisterGatewayRequest{
		Name:              "gw-1",
		DisplayName:       "Gateway One",
		Vhost:             "gw1.example.com",
		IsCritical:        true,
		FunctionalityType: models.FunctionalityRegular,
	}
	g, t0, err := f.gateways.Register(ctx, "org-A", req)
	require.NoError(t, err)
	assert.False(t, g.IsActive)

	t1, err := f.tokens.Rotate(ctx, g.ID, "org-A")
	require.NoError(t, err)

	for _, tok := range []string{t0.Token, t1.Token} {
		got, err := f.verifier.Verify(ctx, tok)
		require.NoError(t, err)
		assert.Equal(t, g.ID, got.ID)
	}

	_, err = f.tokens.Revoke(ctx, g.ID, t0.ID, "org-A")
	require.NoError(t, err)

	_, err = f.verifier.Verify(ctx, t0.Token)
	assert.ErrorIs(t, err, utils.ErrTokenRevoked)
	_, err = f.verifier.Verify(ctx, t1.Token)
	assert.NoError(t, err)

	_, _, err = f.gateways.Register(ctx, "org-A", req)
	assert.ErrorIs(t, err, utils.ErrGatewayNameExists)

	_, _, err = f.gateways.Register(ctx, "org-B", req)
	assert.NoError(t, err)
}

func TestNoPlaintextPersisted(t *testing.T) {
	f := newFixture(t)
	_, t0 := f.register(t, "org-A", "gw-1")

	var rows []struct {
		TokenHash string `db:"token_hash"`
		Salt      string `db:"salt"`
		LookupID  string `db:"lookup_id"`
	}
	require.NoError(t, f.db.Select(&rows, `SELECT token_hash, salt, lookup_id FROM gateway_tokens`))
	require.Len(t, rows, 1)

	secret := t0.Token[len(t0.Token)-43:]
	for _, col := range []string{rows[0].TokenHash, rows[0].Salt, rows[0].LookupID} {
		assert.NotContains(t, col, t0.Token)
		assert.NotContains(t, col, secret)
	}
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g1, _ := f.register(t, "org-A", "gw-1")
	g2, _ := f.register(t, "org-A", "gw-2")
	f.register(t, "org-B", "gw-3")

	list, err := f.status.GetStatus(ctx, "org-A", nil)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// served from cache until a mutation invalidates it
	assert.True(t, f.cache.cached("org-A"))

	require.NoError(t, f.gateways.SetActive(ctx, g2.ID, true))
	list, err = f.status.GetStatus(ctx, "org-A", &g2.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.GatewayStatus{{ID: g2.ID, Name: "gw-2", IsActive: true}}, list)

	list, err = f.status.GetStatus(ctx, "org-B", &g1.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.status.GetStatus(ctx, "", nil)
	assert.ErrorIs(t, err, utils.ErrValidation)
	bad := "x"
	_, err = f.status.GetStatus(ctx, "org-A", &bad)
	assert.ErrorIs(t, err, utils.ErrValidation)

	require.NoError(t, f.gateways.Delete(ctx, g1.ID, "org-A"))
	list, err = f.status.GetStatus(ctx, "org-A", nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, g2.ID, list[0].ID)
}

func TestGetStatus_CacheFailureFallsBack(t *testing.T) {
	f := newFixture(t)
	f.register(t, "org-A", "gw-1")
	f.cache.failReads = true

	list, err := f.status.GetStatus(context.Background(), "org-A", nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetStatus_MutationDuringLoadIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, _ := f.register(t, "org-A", "gw-1")

	var once sync.Once
	f.cache.beforeSet = func() {
		once.Do(func() { require.NoError(t, f.gateways.SetActive(ctx, g.ID, true)) })
	}

	list, err := f.status.GetStatus(ctx, "org-A", nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsActive)
	assert.False(t, f.cache.cached("org-A"))

	list, err = f.status.GetStatus(ctx, "org-A", nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsActive)
	assert.True(t, f.cache.cached("org-A"))
}

func TestGetStatus_SingleGatewayMissReadsOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g1, _ := f.register(t, "org-A", "gw-1")
	f.register(t, "org-A", "gw-2")

	list, err := f.status.GetStatus(ctx, "org-A", &g1.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.GatewayStatus{{ID: g1.ID, Name: "gw-1"}}, list)
	assert.False(t, f.cache.cached("org-A"))
}

func flip(b byte) string {
	if b == 'A' {
		return "B"
	}
	return "A"
}
