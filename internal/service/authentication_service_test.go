package service_test

import (
	"community-platform/config"
	"community-platform/internal/model"
	"community-platform/internal/security"
	"community-platform/internal/service"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	users   *MockUserRepository
	tokens  *MockRefreshTokenRepository
	resets  *MockPasswordResetRepository
	jwt     *MockJWTService
	cache   *MockCacheRepository
	tx      *fakeTransactor
	service *service.AuthenticationService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:  new(MockUserRepository),
		tokens: new(MockRefreshTokenRepository),
		resets: new(MockPasswordResetRepository),
		jwt:    new(MockJWTService),
		cache:  new(MockCacheRepository),
		tx:     &fakeTransactor{},
	}
	f.service = service.NewAuthenticationService(nil, f.tx, f.users, f.tokens, f.resets, f.jwt, f.cache)
	return f
}

func (f *authFixture) assertExpectations(t *testing.T) {
	f.users.AssertExpectations(t)
	f.tokens.AssertExpectations(t)
	f.resets.AssertExpectations(t)
	f.jwt.AssertExpectations(t)
	f.cache.AssertExpectations(t)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	return hash
}

func testUser(t *testing.T, password string) *model.User {
	return &model.User{
		ID:           1,
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: mustHash(t, password),
		Role:         model.RoleUser,
	}
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := testUser(t, "secret1")
	pair := &model.TokensPair{AccessToken: "access", RefreshToken: "refresh"}
	expiresAt := time.Now().Add(time.Hour)

	f.users.On("FindByEmail", ctx, nil, "a@x.com").Return(user, nil)
	f.jwt.On("IssueTokenPair", int64(1)).Return(pair, expiresAt, nil)
	f.users.On("LockForUpdate", ctx, nil, int64(1)).Return(nil)
	f.tokens.On("RevokeAll", ctx, nil, int64(1)).Return(true, nil)
	f.tokens.On("Save", ctx, nil, int64(1), security.HashRefreshToken("refresh"), expiresAt).
		Return(&model.RefreshToken{ID: 1, UserID: 1}, nil)

	result, err := f.service.Login(ctx, " A@X.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, pair, result.Tokens)
	assert.Equal(t, int64(1), result.User.ID)
	assert.Empty(t, result.User.PasswordHash)
	assert.Equal(t, 1, f.tx.committed)
	f.assertExpectations(t)
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("FindByEmail", ctx, nil, "nobody@x.com").Return(nil, model.ErrNotFound)
	f.users.On("FindByEmail", ctx, nil, "a@x.com").Return(testUser(t, "secret1"), nil)

	_, unknownErr := f.service.Login(ctx, "nobody@x.com", "secret1")
	_, wrongErr := f.service.Login(ctx, "a@x.com", "wrong-password")

	assert.ErrorIs(t, unknownErr, model.ErrInvalidCredentials)
	assert.Equal(t, unknownErr, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.Zero(t, f.tx.begun)
	f.jwt.AssertNotCalled(t, "IssueTokenPair", mock.Anything)
}

func TestLogin_BlockedAccount(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := testUser(t, "secret1")
	user.Blocked = true

	f.users.On("FindByEmail", ctx, nil, "a@x.com").Return(user, nil)

	_, err := f.service.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, model.ErrAccountBlocked)

	_, err = f.service.Login(ctx, "a@x.com", "wrong-password")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Zero(t, f.tx.begun)
}

func TestLogin_SaveFailureRollsBack(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	f.users.On("FindByEmail", ctx, nil, "a@x.com").Return(testUser(t, "secret1"), nil)
	f.jwt.On("IssueTokenPair", int64(1)).Return(&model.TokensPair{AccessToken: "a", RefreshToken: "r"}, expiresAt, nil)
	f.users.On("LockForUpdate", ctx, nil, int64(1)).Return(nil)
	f.tokens.On("RevokeAll", ctx, nil, int64(1)).Return(false, nil)
	f.tokens.On("Save", ctx, nil, int64(1), mock.Anything, expiresAt).Return(nil, errors.New("db down"))

	result, err := f.service.Login(ctx, "a@x.com", "secret1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Nil(t, result)
	assert.Zero(t, f.tx.committed)
	assert.Equal(t, 1, f.tx.rolledBack)
}

func TestLogin_LockFailureTouchesNoTokens(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Hour)

	f.users.On("FindByEmail", ctx, nil, "a@x.com").Return(testUser(t, "secret1"), nil)
	f.jwt.On("IssueTokenPair", int64(1)).Return(&model.TokensPair{AccessToken: "a", RefreshToken: "r"}, expiresAt, nil)
	f.users.On("LockForUpdate", ctx, nil, int64(1)).Return(errors.New("lock timeout"))

	result, err := f.service.Login(ctx, "a@x.com", "secret1")
	assert.Error(t, err)
	assert.Nil(t, result)
	f.tokens.AssertNotCalled(t, "RevokeAll", mock.Anything, mock.Anything, mock.Anything)
	f.tokens.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, f.tx.committed)
	assert.Equal(t, 1, f.tx.rolledBack)
}

func TestRefresh_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	oldToken, err := security.GenerateRefreshToken()
	require.NoError(t, err)
	pair := &model.TokensPair{AccessToken: "new-access", RefreshToken: "new-refresh"}
	expiresAt := time.Now().Add(time.Hour)

	f.tokens.On("FindValid", ctx, nil, security.HashRefreshToken(oldToken)).
		Return(&model.RefreshToken{ID: 3, UserID: 9}, nil)
	f.jwt.On("IssueTokenPair", int64(9)).Return(pair, expiresAt, nil)
	f.tokens.On("Rotate", ctx, nil, security.HashRefreshToken(oldToken), security.HashRefreshToken("new-refresh"), expiresAt).
		Return(&model.RefreshToken{ID: 4, UserID: 9}, nil)

	tokens, err := f.service.Refresh(ctx, oldToken)
	require.NoError(t, err)
	assert.Equal(t, pair, tokens)
	assert.Equal(t, 1, f.tx.committed)
	f.assertExpectations(t)
}

func TestRefresh_UnknownToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.tokens.On("FindValid", ctx, nil, mock.Anything).Return(nil, model.ErrNotFound)

	_, err := f.service.Refresh(ctx, "whatever")
	assert.ErrorIs(t, err, model.ErrInvalidToken)
	assert.Zero(t, f.tx.begun)
}

func TestRefresh_StoredButUndecodableTokenIsRevoked(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	tampered := "not a refresh token"
	hash := security.HashRefreshToken(tampered)

	f.tokens.On("FindValid", ctx, nil, hash).Return(&model.RefreshToken{ID: 5, UserID: 2}, nil)
	f.tokens.On("Revoke", ctx, nil, hash).Return(true, nil)

	_, err := f.service.Refresh(ctx, tampered)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
	f.jwt.AssertNotCalled(t, "IssueTokenPair", mock.Anything)
	f.tokens.AssertExpectations(t)
}

func TestRefresh_LostRotationRaceIsSessionError(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	oldToken, err := security.GenerateRefreshToken()
	require.NoError(t, err)
	expiresAt := time.Now().Add(time.Hour)

	f.tokens.On("FindValid", ctx, nil, mock.Anything).Return(&model.RefreshToken{ID: 3, UserID: 9}, nil)
	f.jwt.On("IssueTokenPair", int64(9)).Return(&model.TokensPair{AccessToken: "a", RefreshToken: "r"}, expiresAt, nil)
	f.tokens.On("Rotate", ctx, nil, mock.Anything, mock.Anything, expiresAt).Return(nil, model.ErrTokenNotValid)

	tokens, err := f.service.Refresh(ctx, oldToken)
	assert.ErrorIs(t, err, model.ErrSession)
	assert.Nil(t, tokens)
	assert.Zero(t, f.tx.committed)
	assert.Equal(t, 1, f.tx.rolledBack)
}

func newScenarioService(t *testing.T, store *memoryRefreshStore) (*service.AuthenticationService, *MockUserRepository) {
	t.Helper()
	jwtService, err := security.NewJWTService(&config.JWTConfig{
		SecretKey:       "test-secret-key-with-enough-length-123",
		Issuer:          "community-platform",
		AccessTokenTTL:  "15m",
		RefreshTokenTTL: "720h",
	})
	require.NoError(t, err)

	users := new(MockUserRepository)
	users.On("FindByEmail", mock.Anything, nil, "a@x.com").Return(testUser(t, "secret1"), nil)
	users.On("LockForUpdate", mock.Anything, nil, int64(1)).Return(nil)

	return service.NewAuthenticationService(nil, &fakeTransactor{}, users, store, new(MockPasswordResetRepository), jwtService, new(MockCacheRepository)), users
}

func TestScenario_ReplayOfRotatedRefreshTokenFails(t *testing.T) {
	store := newMemoryRefreshStore()
	auth, _ := newScenarioService(t, store)
	ctx := context.Background()

	login, err := auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Tokens.AccessToken)
	assert.NotEmpty(t, login.Tokens.RefreshToken)

	rotated, err := auth.Refresh(ctx, login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.Tokens.RefreshToken, rotated.RefreshToken)

	_, err = auth.Refresh(ctx, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
	assert.Equal(t, 1, store.validCount(1))
}

func TestScenario_ExpiredButNotRevokedTokenIsRejected(t *testing.T) {
	store := newMemoryRefreshStore()
	auth, _ := newScenarioService(t, store)
	ctx := context.Background()

	token, err := security.GenerateRefreshToken()
	require.NoError(t, err)
	stored := store.insert(1, security.HashRefreshToken(token), time.Now().Add(-time.Minute))

	_, err = auth.Refresh(ctx, token)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
	assert.False(t, stored.Revoked)
	assert.Zero(t, store.validCount(1))
	assert.Len(t, store.tokens, 1)
}

func TestScenario_LoginRevokesPriorSessions(t *testing.T) {
	store := newMemoryRefreshStore()
	auth, _ := newScenarioService(t, store)
	ctx := context.Background()

	first, err := auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	_, err = auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, 1, store.validCount(1))
	_, err = auth.Refresh(ctx, first.Tokens.RefreshToken)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestScenario_ConcurrentRefreshHasExactlyOneWinner(t *testing.T) {
	store := newMemoryRefreshStore()
	auth, _ := newScenarioService(t, store)
	ctx := context.Background()

	login, err := auth.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = auth.Refresh(ctx, login.Tokens.RefreshToken)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, errors.Is(err, model.ErrSession) || errors.Is(err, model.ErrInvalidToken), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, store.validCount(1))
}

func TestLogout_RevokesGivenRefreshTokenOnly(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.tokens.On("Revoke", ctx, nil, security.HashRefreshToken("refresh")).Return(true, nil)

	f.service.Logout(ctx, "refresh", "access")

	f.tokens.AssertExpectations(t)
	f.tokens.AssertNotCalled(t, "RevokeAll", mock.Anything, mock.Anything, mock.Anything)
	f.jwt.AssertNotCalled(t, "VerifyAccessToken", mock.Anything)
}

func TestLogout_AccessTokenRevokesAllSessions(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.jwt.On("VerifyAccessToken", "access").Return(&security.Claims{UserID: 7}, nil)
	f.tokens.On("RevokeAll", ctx, nil, int64(7)).Return(true, nil)

	f.service.Logout(ctx, "", "access")

	f.assertExpectations(t)
}

func TestLogout_FailuresAreSwallowed(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.tokens.On("Revoke", ctx, nil, mock.Anything).Return(false, errors.New("db down"))
	f.jwt.On("VerifyAccessToken", "expired").Return(nil, model.ErrInvalidToken)

	assert.NotPanics(t, func() {
		f.service.Logout(ctx, "refresh", "")
		f.service.Logout(ctx, "", "expired")
		f.service.Logout(ctx, "", "")
	})
	f.tokens.AssertNotCalled(t, "RevokeAll", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_ShortPasswordMutatesNothing(t *testing.T) {
	f := newAuthFixture()

	err := f.service.ChangePassword(context.Background(), 1, "a@x.com", "secret1", "12345")
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Zero(t, f.tx.begun)
	f.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_RejectsWrongEmailOrOldPassword(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("FindByID", ctx, nil, int64(1)).Return(testUser(t, "secret1"), nil)

	err := f.service.ChangePassword(ctx, 1, "other@x.com", "secret1", "newsecret")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	err = f.service.ChangePassword(ctx, 1, "a@x.com", "wrong", "newsecret")
	assert.ErrorIs(t, err, model.ErrInvalidCredentials)

	assert.Zero(t, f.tx.begun)
}

func TestChangePassword_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("FindByID", ctx, nil, int64(1)).Return(testUser(t, "secret1"), nil)
	f.users.On("UpdatePasswordHash", ctx, nil, int64(1), mock.MatchedBy(func(hash string) bool {
		return security.CheckPassword("newsecret", hash)
	})).Return(nil)
	f.cache.On("DeleteUser", ctx, int64(1)).Return(nil)

	err := f.service.ChangePassword(ctx, 1, "A@x.com", "secret1", "newsecret")
	require.NoError(t, err)
	assert.Equal(t, 1, f.tx.committed)
	f.tokens.AssertNotCalled(t, "RevokeAll", mock.Anything, mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestChangePassword_CacheFailureDoesNotFail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("FindByID", ctx, nil, int64(1)).Return(testUser(t, "secret1"), nil)
	f.users.On("UpdatePasswordHash", ctx, nil, int64(1), mock.Anything).Return(nil)
	f.cache.On("DeleteUser", ctx, int64(1)).Return(errors.New("redis down"))

	assert.NoError(t, f.service.ChangePassword(ctx, 1, "a@x.com", "secret1", "newsecret"))
}

func TestResetPassword_SuccessThenReuseFails(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	resetToken := &model.PasswordResetToken{ID: 11, UserID: 1, Token: "reset", ExpiresAt: time.Now().Add(time.Hour)}

	f.resets.On("FindValidForUpdate", ctx, nil, "reset").Return(resetToken, nil).Once()
	f.resets.On("FindValidForUpdate", ctx, nil, "reset").Return(nil, model.ErrNotFound).Once()
	f.users.On("UpdatePasswordHash", ctx, nil, int64(1), mock.MatchedBy(func(hash string) bool {
		return security.CheckPassword("brand-new", hash)
	})).Return(nil).Once()
	f.resets.On("MarkUsed", ctx, nil, int64(11)).Return(nil).Once()
	f.tokens.On("RevokeAll", ctx, nil, int64(1)).Return(true, nil).Once()
	f.cache.On("DeleteUser", ctx, int64(1)).Return(nil).Once()

	require.NoError(t, f.service.ResetPassword(ctx, "reset", "brand-new"))
	assert.Equal(t, 1, f.tx.committed)

	err := f.service.ResetPassword(ctx, "reset", "brand-new")
	assert.ErrorIs(t, err, model.ErrInvalidToken)
	assert.Equal(t, 1, f.tx.committed)
	assert.Equal(t, 1, f.tx.rolledBack)
	f.assertExpectations(t)
}

func TestResetPassword_ShortPassword(t *testing.T) {
	f := newAuthFixture()

	err := f.service.ResetPassword(context.Background(), "reset", "12345")
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Zero(t, f.tx.begun)
}

func TestResetPassword_FailureRollsBackEverything(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.resets.On("FindValidForUpdate", ctx, nil, "reset").Return(&model.PasswordResetToken{ID: 11, UserID: 1}, nil)
	f.users.On("UpdatePasswordHash", ctx, nil, int64(1), mock.Anything).Return(nil)
	f.resets.On("MarkUsed", ctx, nil, int64(11)).Return(nil)
	f.tokens.On("RevokeAll", ctx, nil, int64(1)).Return(false, errors.New("db down"))

	err := f.service.ResetPassword(ctx, "reset", "brand-new")
	assert.Error(t, err)
	assert.Zero(t, f.tx.committed)
	assert.Equal(t, 1, f.tx.rolledBack)
	f.cache.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
}

func TestVerifyResetToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.resets.On("FindOwnerUsername", ctx, nil, "reset").Return("alice", nil)
	f.resets.On("FindOwnerUsername", ctx, nil, "used").Return("", model.ErrNotFound)

	username, err := f.service.VerifyResetToken(ctx, "reset")
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	_, err = f.service.VerifyResetToken(ctx, "used")
	assert.ErrorIs(t, err, model.ErrInvalidToken)

	_, err = f.service.VerifyResetToken(ctx, "")
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}
