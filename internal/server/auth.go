package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gravitas-games/hexalign/internal/config"
	"github.com/gravitas-games/hexalign/pkg/errors"
	"github.com/gravitas-games/hexalign/pkg/models"
)

// JWTValidator handles JWT token validation
type JWTValidator struct {
	config    *config.Config
	publicKey *ecdsa.PublicKey
	keyMu     sync.RWMutex
	redis     *redis.Client
	client    *http.Client
	logger    *log.Logger
}

// Claims represents JWT token claims issued by the login server
type Claims struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Permissions int64  `json:"permissions"`
	Activated   int64  `json:"activated"`
	jwt.RegisteredClaims
}

// NewJWTValidator creates a new JWT validator. redisClient may be nil, in
// which case the blacklist is not consulted.
func NewJWTValidator(cfg *config.Config, redisClient *redis.Client, logger *log.Logger) (*JWTValidator, error) {
	validator := &JWTValidator{
		config: cfg,
		redis:  redisClient,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	if err := validator.RefreshPublicKey(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}

	logger.Info("JWT validator initialized")
	return validator, nil
}

// RefreshPublicKey fetches the public key from the configured URL
func (v *JWTValidator) RefreshPublicKey(ctx context.Context) error {
	v.logger.Debugf("Fetching public key from %s", v.config.Auth.PublicKeyURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.Auth.PublicKeyURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build public key request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("public key endpoint returned status %d", resp.StatusCode)
	}

	keyData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}

	key, err := parseECDSAPublicKey(keyData)
	if err != nil {
		return err
	}

	v.keyMu.Lock()
	v.publicKey = key
	v.keyMu.Unlock()

	v.logger.Debug("Public key refreshed")
	return nil
}

func parseECDSAPublicKey(keyData []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	ecdsaKey, ok := pubKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecdsaKey, nil
}

// RunKeyRefresh refreshes the public key periodically until ctx is done
func (v *JWTValidator) RunKeyRefresh(ctx context.Context) {
	refreshInterval := time.Duration(v.config.Auth.PublicKeyRefreshHrs) * time.Hour

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.RefreshPublicKey(ctx); err != nil {
				v.logger.Warnf("Failed to refresh public key: %v", err)
			}
		}
	}
}

// ValidateToken validates a JWT token and returns the editor it identifies
func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (*models.Editor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		v.keyMu.RLock()
		defer v.keyMu.RUnlock()
		return v.publicKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnauthorized, err, "failed to parse token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New(errors.ErrCodeUnauthorized, "invalid token claims")
	}

	if v.config.Auth.Issuer != "" && claims.Issuer != v.config.Auth.Issuer {
		return nil, errors.New(errors.ErrCodeUnauthorized, "invalid issuer: expected %s, got %s", v.config.Auth.Issuer, claims.Issuer)
	}

	if claims.Activated == 0 {
		return nil, errors.New(errors.ErrCodeUnauthorized, "user not activated")
	}
	if claims.Activated == -1 {
		return nil, errors.New(errors.ErrCodeUnauthorized, "user is banned")
	}

	userIDStr := strconv.FormatInt(claims.UserID, 10)

	if v.redis != nil {
		blacklistKey := v.config.Redis.BlacklistPrefix + userIDStr
		isBlacklisted, err := v.redis.Exists(ctx, blacklistKey).Result()
		if err != nil {
			// Don't fail authentication if Redis is down
			v.logger.Warnf("Failed to check blacklist: %v", err)
		} else if isBlacklisted > 0 {
			return nil, errors.New(errors.ErrCodeUnauthorized, "token is blacklisted")
		}
	}

	return &models.Editor{
		ID:          userIDStr,
		Username:    claims.Username,
		Email:       claims.Email,
		Permissions: claims.Permissions,
		Activated:   claims.Activated,
	}, nil
}

// extractToken reads the bearer token from a request: the
// Sec-WebSocket-Protocol header ("access_token, <token>"), the Authorization
// header, or the token query parameter, in that order.
func extractToken(r *http.Request) string {
	if protocols := r.Header.Get("Sec-WebSocket-Protocol"); protocols != "" {
		parts := splitAndTrim(protocols, ",")
		if len(parts) == 2 && parts[0] == "access_token" {
			return parts[1]
		}
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}

	return r.URL.Query().Get("token")
}

func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
