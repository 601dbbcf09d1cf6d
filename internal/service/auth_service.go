package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-portal/internal/config"
)

// Common auth errors.
var (
	ErrNoActiveSession    = errors.New("no active portal session")
	ErrSessionInvalidated = errors.New("portal session invalidated by a newer sign-in")
)

// TokenSetter receives the remote exam service token of the signed-in student.
type TokenSetter interface {
	SetToken(token string)
}

// Claims extends JWT standard claims with portal fields.
type Claims struct {
	jwt.RegisteredClaims
	StudentID string `json:"student_id"`
	Owner     string `json:"owner"`
}

// AuthService issues the portal's own tokens. A portal instance serves one
// snapshot owner; signing in again replaces the previous login, so only the
// latest token stays valid while Redis is available.
type AuthService struct {
	cfg    *config.Config
	rdb    *redis.Client
	remote TokenSetter
	now    func() time.Time
}

// NewAuthService creates a new AuthService. rdb may be nil, in which case
// tokens are validated by signature and expiry only.
func NewAuthService(cfg *config.Config, rdb *redis.Client, remote TokenSetter) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, remote: remote, now: time.Now}
}

// CreateSession hands the remote token to the exam client and returns a
// signed portal token for studentID.
func (s *AuthService) CreateSession(ctx context.Context, studentID, remoteToken string) (string, time.Time, error) {
	jti := uuid.New().String()
	now := s.now()
	expiresAt := now.Add(s.cfg.JWTExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   studentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		StudentID: studentID,
		Owner:     s.cfg.SnapshotOwner,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	if s.rdb != nil {
		key := config.CacheKey.PortalLoginKey(s.cfg.SnapshotOwner)
		if err := s.rdb.Set(ctx, key, jti, s.cfg.JWTExpiry).Err(); err != nil {
			return "", time.Time{}, fmt.Errorf("store login: %w", err)
		}
	}

	s.remote.SetToken(remoteToken)
	return signed, expiresAt, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Owner != s.cfg.SnapshotOwner {
		return nil, errors.New("token issued for another portal owner")
	}

	return claims, nil
}

// ValidateSession checks that jti belongs to the latest sign-in.
func (s *AuthService) ValidateSession(ctx context.Context, jti string) error {
	if s.rdb == nil {
		return nil
	}
	stored, err := s.rdb.Get(ctx, config.CacheKey.PortalLoginKey(s.cfg.SnapshotOwner)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNoActiveSession
		}
		return fmt.Errorf("check login: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}

// EndSession forgets the current login and the remote token.
func (s *AuthService) EndSession(ctx context.Context) error {
	s.remote.SetToken("")
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, config.CacheKey.PortalLoginKey(s.cfg.SnapshotOwner)).Err()
}
