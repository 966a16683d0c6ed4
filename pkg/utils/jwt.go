// Package utils 令牌签发与校验
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 令牌用途，写在 type 声明里
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// clockSkew 允许的签发方与校验方时钟偏差
const clockSkew = 30 * time.Second

// Claims 自定义声明；tier 只在 access token 中有意义
type Claims struct {
	UserID string `json:"user_id"`
	Tier   string `json:"tier"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair 登录与注册返回的一对令牌
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// JWTManager HS256 签发与校验
type JWTManager struct {
	key    []byte
	issuer string
	parser *jwt.Parser
	now    func() time.Time
}

func NewJWTManager(secret, issuer string) *JWTManager {
	return &JWTManager{
		key:    []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithLeeway(clockSkew),
			jwt.WithIssuedAt(),
		),
		now: time.Now,
	}
}

// GenerateTokenPair 同时签发 access 与 refresh
func (m *JWTManager) GenerateTokenPair(userID, tier string, accessTTL, refreshTTL time.Duration) (*TokenPair, error) {
	access, err := m.GenerateToken(userID, tier, TokenTypeAccess, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.GenerateToken(userID, tier, TokenTypeRefresh, refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *JWTManager) GenerateToken(userID, tier, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		Tier:   tier,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
}

// ParseToken 校验签名、签发方与有效期；过期返回 ErrExpiredToken，其余失败统一为 ErrInvalidToken
func (m *JWTManager) ParseToken(raw string) (*Claims, error) {
	var claims Claims
	_, err := m.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	}
	return &claims, nil
}
