package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"recipeshare/internal/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	tokenIssuer      = "recipeshare"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// Claims de los tokens emitidos por el proveedor local.
type Claims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenIssuer emite y valida pares access/refresh firmados con HS256.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshTokenStore
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration, store RefreshTokenStore) *TokenIssuer {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	if store == nil {
		store = NewMemoryRefreshTokenStore()
	}
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue firma un par nuevo y registra el jti del refresh token.
func (t *TokenIssuer) Issue(ctx context.Context, userID, email string) (domain.Session, error) {
	if len(t.secret) == 0 {
		return domain.Session{}, ErrTokenInvalid
	}
	now := t.now()
	access, err := t.sign(userID, email, tokenTypeAccess, "", now, t.accessTTL)
	if err != nil {
		return domain.Session{}, err
	}
	jti := uuid.NewString()
	refresh, err := t.sign(userID, email, tokenTypeRefresh, jti, now, t.refreshTTL)
	if err != nil {
		return domain.Session{}, err
	}
	if err := t.store.Store(ctx, jti, userID, t.refreshTTL); err != nil {
		return domain.Session{}, domain.Unavailable("store refresh token", err)
	}
	return domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(t.accessTTL.Seconds()),
		UserID:       userID,
	}, nil
}

// ParseAccess valida un access token.
func (t *TokenIssuer) ParseAccess(token string) (Claims, error) {
	claims, err := t.parse(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenTypeAccess {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

// Consume valida un refresh token vigente y lo revoca. Un refresh token sirve una sola vez.
func (t *TokenIssuer) Consume(ctx context.Context, token string) (Claims, error) {
	claims, err := t.parseRefresh(token)
	if err != nil {
		return Claims{}, err
	}
	ok, err := t.store.Exists(ctx, claims.ID)
	if err != nil {
		return Claims{}, domain.Unavailable("check refresh token", err)
	}
	if !ok {
		return Claims{}, ErrTokenInvalid
	}
	if err := t.store.Revoke(ctx, claims.ID); err != nil {
		return Claims{}, domain.Unavailable("revoke refresh token", err)
	}
	return claims, nil
}

// Revoke invalida un refresh token. Revocar uno ya revocado no es error.
func (t *TokenIssuer) Revoke(ctx context.Context, token string) error {
	claims, err := t.parseRefresh(token)
	if err != nil {
		return err
	}
	if err := t.store.Revoke(ctx, claims.ID); err != nil {
		return domain.Unavailable("revoke refresh token", err)
	}
	return nil
}

func (t *TokenIssuer) parseRefresh(token string) (Claims, error) {
	claims, err := t.parse(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenTypeRefresh || claims.ID == "" {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (t *TokenIssuer) sign(userID, email, tokenType, jti string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *TokenIssuer) parse(token string) (Claims, error) {
	if len(t.secret) == 0 || strings.TrimSpace(token) == "" {
		return Claims{}, ErrTokenInvalid
	}
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}
