package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
)

// Clinic roles carried in the "roles" claim.
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// Claims is the token payload. Subject is the owner or staff user id.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey enables HS256 validation for development and tests.
	SigningKey []byte
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// KeySet caches RSA keys served by a JWKS endpoint.
type KeySet struct {
	mu        sync.RWMutex
	url       string
	ttl       time.Duration
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	client    *http.Client
}

func NewKeySet(url string, ttl time.Duration) *KeySet {
	return &KeySet{
		url:    url,
		ttl:    ttl,
		keys:   make(map[string]*rsa.PublicKey),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Key returns the key for kid, refreshing the set when kid is unknown or the
// cache has expired.
func (ks *KeySet) Key(kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	key, ok := ks.keys[kid]
	fresh := time.Since(ks.fetchedAt) <= ks.ttl
	ks.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := ks.refresh(); err != nil {
		return nil, fmt.Errorf("refreshing JWKS: %w", err)
	}
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	if key, ok = ks.keys[kid]; !ok {
		return nil, fmt.Errorf("no JWKS key with kid %q", kid)
	}
	return key, nil
}

func (ks *KeySet) refresh() error {
	resp, err := ks.client.Get(ks.url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned %d", resp.StatusCode)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decoding JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		if pub, err := k.publicKey(); err == nil {
			keys[k.Kid] = pub
		}
	}

	ks.mu.Lock()
	ks.keys = keys
	ks.fetchedAt = time.Now()
	ks.mu.Unlock()
	return nil
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}, nil
}

func keyFunc(cfg JWTConfig) jwt.Keyfunc {
	if len(cfg.SigningKey) > 0 {
		return func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	}
	ks := NewKeySet(cfg.JWKSURL, 5*time.Minute)
	return func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		return ks.Key(kid)
	}
}

// JWTMiddleware validates the bearer token and stores the subject and roles
// on the request context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	kf := keyFunc(cfg)
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"RS256", "HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, kf, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), claims.Subject, claims.Roles)))
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated requests through as a staff user.
// X-Dev-User and X-Dev-Roles override the identity for local testing.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			user := req.Header.Get("X-Dev-User")
			if user == "" {
				user = "dev-user"
			}
			roles := []string{RoleStaff}
			if r := req.Header.Get("X-Dev-Roles"); r != "" {
				roles = strings.Split(r, ",")
			}
			c.SetRequest(req.WithContext(WithIdentity(req.Context(), user, roles)))
			return next(c)
		}
	}
}

// WithIdentity returns ctx carrying the given user id and roles.
func WithIdentity(ctx context.Context, userID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRolesKey, roles)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
