package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landmark/estate-engine/auth"
	"github.com/landmark/estate-engine/commission"
	"github.com/landmark/estate-engine/commission/store"
)

type memAccounts struct {
	byEmail map[string]auth.Account
}

func (m *memAccounts) AccountByEmail(_ context.Context, email string) (auth.Account, error) {
	a, ok := m.byEmail[email]
	if !ok {
		return auth.Account{}, &commission.ReferenceNotFoundError{Kind: "account", ID: email}
	}
	return a, nil
}

func (m *memAccounts) SaveAccount(_ context.Context, a auth.Account) error {
	m.byEmail[a.Email] = a
	return nil
}

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()

	mem := store.NewMemory()
	mem.PutRole(commission.Role{ID: "pa", Level: 3, Name: "Project Associate"})
	mem.PutUser(commission.User{ID: "u-1", Name: "Asha", RoleID: "pa"})

	account := auth.Account{UserID: "u-1", Email: "asha@example.com"}
	require.NoError(t, account.SetPassword("s3cret"))

	accounts := &memAccounts{byEmail: map[string]auth.Account{account.Email: account}}
	return auth.NewService(accounts, mem, "test-secret", time.Hour)
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	svc := newAuthService(t)

	token, user, err := svc.Login(context.Background(), "asha@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, commission.UserID("u-1"), user.ID)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, commission.UserID("u-1"), claims.UserID)
	assert.Equal(t, commission.RoleID("pa"), claims.RoleID)
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	svc := newAuthService(t)

	_, _, err := svc.Login(context.Background(), "  ASHA@example.com ", "s3cret")
	require.NoError(t, err)
}

func TestLogin_WrongPassword_SameErrorAsUnknownEmail(t *testing.T) {
	svc := newAuthService(t)

	_, _, err := svc.Login(context.Background(), "asha@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "ghost@example.com", "s3cret")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestVerify_TamperedToken_Rejected(t *testing.T) {
	svc := newAuthService(t)

	token, _, err := svc.Login(context.Background(), "asha@example.com", "s3cret")
	require.NoError(t, err)

	_, err = svc.Verify(token + "x")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestCheckPassword(t *testing.T) {
	var a auth.Account
	require.NoError(t, a.SetPassword("hunter2"))

	assert.True(t, a.CheckPassword("hunter2"))
	assert.False(t, a.CheckPassword("hunter3"))
	assert.NotContains(t, a.PasswordHash, "hunter2")
}
