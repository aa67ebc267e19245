// Package auth 用户认证：JWT 令牌签发与校验、密码哈希、请求鉴权门
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tragic-bricks/internal/shared/model"
)

// TokenTTL 令牌固定有效期
const TokenTTL = 7 * 24 * time.Hour

// bcryptCost 密码哈希强度
const bcryptCost = 12

// ErrNoSecret 未配置签名密钥
var ErrNoSecret = errors.New("auth: JWT secret is not configured")

// Identity 经过校验并与用户库核对后的调用者身份
type Identity struct {
	ID       string
	Username string
	Email    string
	Role     model.UserRole
}

// IsAdmin 是否管理员
func (i Identity) IsAdmin() bool {
	return i.Role == model.UserRoleAdmin
}

// identityOf 从最新的用户记录构造身份
func identityOf(u *model.User) Identity {
	return Identity{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ============================================================================
// JWT Token
// ============================================================================

// Claims JWT 声明；sub 为用户 ID
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TokenIssuer 签发与校验 HS256 令牌
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer 创建签发器；密钥为空时返回 ErrNoSecret
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &TokenIssuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue 为用户签发令牌
func (t *TokenIssuer) Issue(u *model.User) (string, error) {
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
		Email:    u.Email,
		Username: u.Username,
		Role:     string(u.Role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse 校验签名、过期时间与载荷完整性
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" || claims.Email == "" || claims.Username == "" || claims.Role == "" {
		return nil, fmt.Errorf("incomplete token payload")
	}
	return claims, nil
}
