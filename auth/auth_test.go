package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromitra/agromitra/apperr"
	"github.com/agromitra/agromitra/storage"
)

type memUserStore struct {
	users map[string]*storage.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]*storage.User)}
}

func (s *memUserStore) SaveUser(_ context.Context, u *storage.User) error {
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *memUserStore) GetUser(_ context.Context, id string) (*storage.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *memUserStore) GetUserByPhone(_ context.Context, phone string) (*storage.User, error) {
	for _, u := range s.users {
		if u.Phone == phone {
			copied := *u
			return &copied, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memUserStore) DeleteUser(_ context.Context, id string) error {
	delete(s.users, id)
	return nil
}

func newTestService(t *testing.T, users UserStore) *Service {
	t.Helper()
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	return NewService(users, NewDevOTPSender(nil), tokens, nil)
}

func TestSignupAndLogin(t *testing.T) {
	users := newMemUserStore()
	svc := newTestService(t, users)
	ctx := context.Background()

	message, err := svc.SendOTP(ctx, "+919876543210", "Lakshmi", "ta")
	require.NoError(t, err)
	assert.Equal(t, "User created. OTP sent successfully.", message)

	token, user, err := svc.VerifyOTP(ctx, "+919876543210", "123456")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, token)
	assert.True(t, user.IsVerified)
	assert.Equal(t, storage.RoleFarmer, user.Role)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())
	assert.Equal(t, "ta", claims.Language)
	assert.False(t, claims.IsAdmin())
}

func TestSendOTPExistingUser(t *testing.T) {
	users := newMemUserStore()
	svc := newTestService(t, users)
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, "+911111111111", "Ravi", "te")
	require.NoError(t, err)

	// Login: no name or language for a known phone.
	message, err := svc.SendOTP(ctx, "+911111111111", "", "")
	require.NoError(t, err)
	assert.Equal(t, "OTP sent successfully.", message)

	// Signup against an existing phone conflicts.
	_, err = svc.SendOTP(ctx, "+911111111111", "Ravi", "te")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.From(err).Kind)
}

func TestSendOTPNewUserNeedsProfile(t *testing.T) {
	svc := newTestService(t, newMemUserStore())

	_, err := svc.SendOTP(context.Background(), "+912222222222", "", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.From(err).Kind)
}

func TestVerifyOTPRejectsWrongCode(t *testing.T) {
	users := newMemUserStore()
	svc := newTestService(t, users)
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, "+913333333333", "Anu", "kn")
	require.NoError(t, err)

	_, _, err = svc.VerifyOTP(ctx, "+913333333333", "000000")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.From(err).Kind)

	_, _, err = svc.VerifyOTP(ctx, "+914444444444", "123456")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.From(err).Kind)
}

func TestTokenExpiry(t *testing.T) {
	tokens, err := NewTokenIssuer("test-secret", -time.Hour)
	require.NoError(t, err)
	// Negative ttl falls back to the default, so build a short-lived
	// issuer explicitly.
	tokens.ttl = -time.Minute

	token, err := tokens.Issue(&storage.User{ID: "u1", Role: storage.RoleFarmer})
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	require.Error(t, err)
	assert.Equal(t, "Token has expired", apperr.From(err).Message)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer, err := NewTokenIssuer("secret-a", time.Hour)
	require.NoError(t, err)
	other, err := NewTokenIssuer("secret-b", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue(&storage.User{ID: "u1", Role: storage.RoleFarmer})
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.From(err).Kind)
}

func TestRequireAdmin(t *testing.T) {
	assert.Error(t, RequireAdmin(nil))
	assert.Error(t, RequireAdmin(&Claims{Role: storage.RoleFarmer}))
	assert.NoError(t, RequireAdmin(&Claims{Role: storage.RoleAdmin}))
}

func TestDeleteAccount(t *testing.T) {
	users := newMemUserStore()
	svc := newTestService(t, users)
	ctx := context.Background()

	_, err := svc.SendOTP(ctx, "+915555555555", "Mani", "ml")
	require.NoError(t, err)
	token, _, err := svc.VerifyOTP(ctx, "+915555555555", "123456")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, claims))
	_, err = svc.CurrentUser(ctx, claims)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.From(err).Kind)
}