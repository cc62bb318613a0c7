package security

import (
	"community-platform/config"
	"community-platform/internal/model"
	"community-platform/internal/util"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenType   = "access"
	refreshTokenBytes = 32
)

type Claims struct {
	UserID    int64  `json:"user_id"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

type JWTService struct {
	secretKey  []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewJWTService(cfg *config.JWTConfig) (*JWTService, error) {
	accessTTL, err := time.ParseDuration(cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга access_token_ttl: %w", err)
	}
	refreshTTL, err := time.ParseDuration(cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга refresh_token_ttl: %w", err)
	}

	return &JWTService{
		secretKey:  []byte(cfg.SecretKey),
		issuer:     cfg.Issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// IssueAccessToken : подписанный HS512 токен с id пользователя и коротким сроком жизни
func (s *JWTService) IssueAccessToken(userID int64) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)

	claims := Claims{
		UserID:    userID,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, util.LogError("ошибка подписи токена", err)
	}

	return signed, expiresAt, nil
}

// VerifyAccessToken : проверяет подпись, алгоритм, издателя и срок действия.
// Любая ошибка, включая истёкший срок, сводится к model.ErrInvalidToken.
func (s *JWTService) VerifyAccessToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}

	if claims.TokenType != accessTokenType || claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: неверный тип токена", model.ErrInvalidToken)
	}

	return claims, nil
}

// IssueTokenPair : новая пара токенов и срок жизни refresh токена
func (s *JWTService) IssueTokenPair(userID int64) (*model.TokensPair, time.Time, error) {
	accessToken, _, err := s.IssueAccessToken(userID)
	if err != nil {
		return nil, time.Time{}, err
	}

	refreshToken, err := GenerateRefreshToken()
	if err != nil {
		return nil, time.Time{}, err
	}

	return &model.TokensPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, s.now().Add(s.refreshTTL), nil
}

// GenerateRefreshToken : непрозрачная строка, никак не связанная с форматом JWT
func GenerateRefreshToken() (string, error) {
	raw, err := util.RandomBytes(refreshTokenBytes)
	if err != nil {
		return "", util.LogError("ошибка генерации refresh токена", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeRefreshToken : структурная проверка формата refresh токена
func DecodeRefreshToken(token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}
	if len(raw) != refreshTokenBytes {
		return fmt.Errorf("%w: неверная длина refresh токена", model.ErrInvalidToken)
	}
	return nil
}

// HashRefreshToken : в БД хранится только SHA-256 от токена
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
