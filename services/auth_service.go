package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/TomMcKenna1/nutrilytics-backend/config"
	"github.com/TomMcKenna1/nutrilytics-backend/models"
)

const (
	identityCachePrefix = "auth:token:"

	// Well below the 72h token lifetime, so a revoked token cannot outlive
	// its cache entry for long.
	identityCacheTTL = 5 * time.Minute
)

// TokenVerifier checks a bearer credential against the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// JWTVerifier validates HS256 tokens minted by the identity service and
// extracts the uid/email/name claims.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier() *JWTVerifier {
	return &JWTVerifier{secret: []byte(os.Getenv("JWT_SECRET"))}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*models.Identity, error) {
	if len(v.secret) == 0 {
		return nil, errors.New("server misconfigured: JWT_SECRET not set")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	uid, _ := claims["uid"].(string)
	if uid == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	return &models.Identity{UID: uid, Email: email, Name: name}, nil
}

// IdentityCache memoizes verified identities for a bounded time. Get returns
// ErrNotFound on a miss.
type IdentityCache interface {
	Get(ctx context.Context, key string) (*models.Identity, error)
	Set(ctx context.Context, key string, identity *models.Identity, ttl time.Duration) error
}

type RedisIdentityCache struct {
	rdb *redis.Client
}

func NewRedisIdentityCache(rdb *redis.Client) *RedisIdentityCache {
	return &RedisIdentityCache{rdb: rdb}
}

func (c *RedisIdentityCache) Get(ctx context.Context, key string) (*models.Identity, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var identity models.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (c *RedisIdentityCache) Set(ctx context.Context, key string, identity *models.Identity, ttl time.Duration) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

// AuthService resolves bearer tokens, memoizing verified identities so repeat
// requests skip the verifier. The cache is a pure optimization: on any cache
// failure resolution falls through to direct verification, and verification
// failures are never cached.
type AuthService struct {
	verifier TokenVerifier
	cache    IdentityCache
}

func NewAuthService(verifier TokenVerifier, cache IdentityCache) *AuthService {
	return &AuthService{verifier: verifier, cache: cache}
}

// identityCacheKey hashes the raw token so credentials never appear as cache
// keys.
func identityCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return identityCachePrefix + hex.EncodeToString(sum[:])
}

func (s *AuthService) Resolve(ctx context.Context, token string) (*models.Identity, error) {
	key := identityCacheKey(token)

	if s.cache != nil {
		identity, err := s.cache.Get(ctx, key)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, ErrNotFound) {
			config.Log.Warnf("identity cache read failed, verifying directly: %v", err)
		}
	}

	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, identity, identityCacheTTL); err != nil {
			config.Log.Warnf("identity cache write failed: %v", err)
		}
	}
	return identity, nil
}
