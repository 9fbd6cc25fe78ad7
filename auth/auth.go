/*
Package auth provides account credentials and JWT session tokens.

PURPOSE:
  Accounts pair a directory user with login credentials. Passwords are
  stored as bcrypt hashes only. Sessions are stateless JWTs carrying the
  user id and role, verified by middleware on every request.

SEE ALSO:
  api/server.go: wires RequireAuth into the router
  store/sqlite:  the production AccountStore
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/landmark/estate-engine/commission"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords.
	// Callers get one error for both so login failures don't leak which
	// emails exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers missing, malformed, and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// =============================================================================
// ACCOUNTS
// =============================================================================

// Account pairs a directory user with login credentials.
type Account struct {
	UserID       commission.UserID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// SetPassword hashes and stores the password.
func (a *Account) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	a.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares the password against the stored hash.
func (a *Account) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plain)) == nil
}

// AccountStore is the persistence surface for accounts.
type AccountStore interface {
	AccountByEmail(ctx context.Context, email string) (Account, error)
	SaveAccount(ctx context.Context, a Account) error
}

// =============================================================================
// TOKENS
// =============================================================================

// Claims is the JWT payload: standard registered claims plus the user id
// and role id the handlers need for authorization decisions.
type Claims struct {
	jwt.RegisteredClaims
	UserID commission.UserID `json:"uid"`
	RoleID commission.RoleID `json:"role"`
}

// Service issues and verifies session tokens and performs logins.
type Service struct {
	accounts AccountStore
	users    commission.UserDirectory
	secret   []byte
	ttl      time.Duration
}

func NewService(accounts AccountStore, users commission.UserDirectory, secret string, ttl time.Duration) *Service {
	return &Service{accounts: accounts, users: users, secret: []byte(secret), ttl: ttl}
}

// Login verifies the credentials and returns a signed token plus the
// authenticated user.
func (s *Service) Login(ctx context.Context, email, password string) (string, commission.User, error) {
	account, err := s.accounts.AccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", commission.User{}, ErrInvalidCredentials
	}
	if !account.CheckPassword(password) {
		return "", commission.User{}, ErrInvalidCredentials
	}

	user, err := s.users.User(ctx, account.UserID)
	if err != nil {
		return "", commission.User{}, err
	}

	token, err := s.issue(user)
	if err != nil {
		return "", commission.User{}, err
	}
	return token, user, nil
}

func (s *Service) issue(user commission.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: user.ID,
		RoleID: user.RoleID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token string.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type contextKey struct{}

// ClaimsFromContext returns the verified claims attached by RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok
}

// RequireAuth rejects requests without a valid bearer token and attaches
// the claims to the request context.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}

		claims, err := s.Verify(strings.TrimPrefix(header, prefix))
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), contextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
