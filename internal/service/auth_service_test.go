package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/veridex/custody-api/internal/models"
	appErrors "github.com/veridex/custody-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	revokedAll    []string
	lastLogin     map[string]time.Time
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         make(map[string]models.User),
		refreshTokens: make(map[string]models.RefreshToken),
		lastLogin:     make(map[string]time.Time),
	}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin[id] = ts
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	for id, t := range m.refreshTokens {
		if t.UserID == userID {
			t.Revoked = true
			m.refreshTokens[id] = t
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.ID] = *token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	for _, t := range m.refreshTokens {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if t, ok := m.refreshTokens[id]; ok {
		t.Revoked = true
		t.RevokedAt = &revokedAt
		m.refreshTokens[id] = t
	}
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo, *mockCaseAudit) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := newMockAuthRepo()
	repo.users["user-1"] = models.User{
		ID:           "user-1",
		Email:        "dana@veridex.example",
		PasswordHash: string(hash),
		FullName:     "Dana Reyes",
		Role:         models.RoleInvestigator,
		Active:       true,
		Verified:     true,
	}
	repo.users["user-2"] = models.User{
		ID:           "user-2",
		Email:        "parked@veridex.example",
		PasswordHash: string(hash),
		FullName:     "Parked Account",
		Role:         models.RoleInvestigator,
		Active:       false,
	}

	audit := &mockCaseAudit{}
	svc := NewAuthService(repo, audit, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "unit-test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "custody-api",
		SingleSession:      true,
	})
	return svc, repo, audit
}

func TestAuthServiceLogin(t *testing.T) {
	svc, repo, audit := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "dana@veridex.example",
		Password: "correct horse",
		IP:       "10.0.0.4",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, models.RoleInvestigator, resp.User.Role)

	assert.Contains(t, repo.revokedAll, "user-1")
	assert.Contains(t, repo.lastLogin, "user-1")
	assert.Contains(t, audit.actions(), models.AuditActionLogin)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleInvestigator, claims.Role)
	assert.False(t, claims.IsSuperuser)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "dana@veridex.example",
		Password: "wrong",
	})
	assertErrCode(t, err, appErrors.ErrInvalidCredentials.Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@veridex.example",
		Password: "correct horse",
	})
	assertErrCode(t, err, appErrors.ErrInvalidCredentials.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "parked@veridex.example",
		Password: "correct horse",
	})
	assertErrCode(t, err, appErrors.ErrInactiveAccount.Code)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "dana@veridex.example",
		Password: "correct horse",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	old, err := repo.FindRefreshToken(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	assertErrCode(t, err, appErrors.ErrUnauthorized.Code)
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)
	repo.refreshTokens["stale"] = models.RefreshToken{
		ID:        "stale",
		UserID:    "user-1",
		Token:     "stale-token",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{
		RefreshToken: "stale-token",
	})
	assertErrCode(t, err, appErrors.ErrUnauthorized.Code)
}

func TestAuthServiceLogout(t *testing.T) {
	svc, repo, audit := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "dana@veridex.example",
		Password: "correct horse",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "user-1"))

	stored, err := repo.FindRefreshToken(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.True(t, stored.Revoked)
	assert.Contains(t, audit.actions(), models.AuditActionLogout)
}

func TestAuthServiceLogoutForeignToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "dana@veridex.example",
		Password: "correct horse",
	})
	require.NoError(t, err)

	err = svc.Logout(context.Background(), login.RefreshToken, "user-2")
	assertErrCode(t, err, appErrors.ErrForbidden.Code)
}

func TestAuthServiceValidateTokenRejectsForgery(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	other := NewAuthService(newMockAuthRepo(), nil, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "different-secret",
		AccessTokenExpiry: 15 * time.Minute,
	})
	forged, _, err := other.generateAccessToken(&models.User{ID: "user-1", Role: models.RoleInvestigator})
	require.NoError(t, err)

	_, err = svc.ValidateToken(forged)
	assertErrCode(t, err, appErrors.ErrUnauthorized.Code)

	_, err = svc.ValidateToken("not.a.jwt")
	assertErrCode(t, err, appErrors.ErrUnauthorized.Code)
}
