package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"serotonyl.ru/cod-inventory/internal/common"
)

// Claims - содержимое наших JWT. Subject = ID игрока.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"token_type"`
}

// TokenIssuer подписывает и проверяет токены HS256.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer создаёт подписчика токенов.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// RefreshTTL - сколько живёт refresh-токен (и сессия в БД).
func (ti *TokenIssuer) RefreshTTL() time.Duration {
	return ti.refreshTTL
}

// IssuePair выпускает access- и refresh-токены для сессии.
func (ti *TokenIssuer) IssuePair(playerID int64, sessionID uuid.UUID) (*TokenPair, error) {
	access, err := ti.IssueAccess(playerID)
	if err != nil {
		return nil, err
	}
	refresh, err := ti.sign(playerID, TokenTypeRefresh, sessionID.String(), ti.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Refresh: refresh, Access: access}, nil
}

// IssueAccess выпускает только access-токен (используется при refresh).
func (ti *TokenIssuer) IssueAccess(playerID int64) (string, error) {
	return ti.sign(playerID, TokenTypeAccess, uuid.NewString(), ti.accessTTL)
}

func (ti *TokenIssuer) sign(playerID int64, tokenType, jti string, ttl time.Duration) (string, error) {
	now := ti.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(playerID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: tokenType,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return signed, nil
}

// ParseAccess проверяет access-токен и возвращает ID игрока.
func (ti *TokenIssuer) ParseAccess(token string) (int64, error) {
	claims, err := ti.parse(token, TokenTypeAccess)
	if err != nil {
		return 0, err
	}
	return subjectID(claims)
}

// ParseRefresh проверяет refresh-токен и возвращает ID игрока и ID сессии.
func (ti *TokenIssuer) ParseRefresh(token string) (int64, uuid.UUID, error) {
	claims, err := ti.parse(token, TokenTypeRefresh)
	if err != nil {
		return 0, uuid.Nil, err
	}
	playerID, err := subjectID(claims)
	if err != nil {
		return 0, uuid.Nil, err
	}
	sessionID, err := uuid.Parse(claims.ID)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("некорректный jti: %w", common.ErrUnauthorized)
	}
	return playerID, sessionID, nil
}

func (ti *TokenIssuer) parse(token, wantType string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.Parser{
		ValidMethods: []string{jwt.SigningMethodHS256.Alg()},
	}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, fmt.Errorf("токен истёк: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("некорректный токен: %w", common.ErrUnauthorized)
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("ожидался %s-токен: %w", wantType, common.ErrUnauthorized)
	}
	return claims, nil
}

func subjectID(claims *Claims) (int64, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("некорректный subject: %w", common.ErrUnauthorized)
	}
	return id, nil
}
