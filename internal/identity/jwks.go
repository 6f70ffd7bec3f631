package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"governedchat/internal/clock"
)

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jsonWebKeySet struct {
	Keys []jsonWebKey `json:"keys"`
}

// JWKSCache is a guarded, read-through cache of a remote JSON Web Key Set
// with a TTL, matching the concurrency model's "JWKS cache:
// guarded read-through with TTL" resource discipline.
type JWKSCache struct {
	url    string
	ttl    time.Duration
	client *http.Client
	clk    clock.Clock

	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	fetchedAt  time.Time
}

func NewJWKSCache(url string, ttl time.Duration, client *http.Client, clk clock.Clock) *JWKSCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &JWKSCache{url: url, ttl: ttl, client: client, clk: clk, keys: make(map[string]*rsa.PublicKey)}
}

func (c *JWKSCache) stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt.IsZero() || c.clk.Now().Sub(c.fetchedAt) > c.ttl
}

func (c *JWKSCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	var set jsonWebKeySet
	if err := json.Unmarshal(body, &set); err != nil {
		return err
	}

	parsed := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAJWK(k)
		if err != nil {
			continue
		}
		parsed[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = parsed
	c.fetchedAt = c.clk.Now()
	c.mu.Unlock()
	return nil
}

func parseRSAJWK(k jsonWebKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// KeyFunc resolves the signing key for a token by its "kid" header,
// refreshing the cache when it is older than the TTL, and once more
// whenever the kid is not among the cached keys.
func (c *JWKSCache) KeyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)

		if c.stale() {
			if err := c.refresh(ctx); err != nil {
				return nil, err
			}
		}

		c.mu.RLock()
		key, ok := c.keys[kid]
		c.mu.RUnlock()
		if !ok {
			// one uncached refresh in case of mid-TTL rotation
			if err := c.refresh(ctx); err != nil {
				return nil, err
			}
			c.mu.RLock()
			key, ok = c.keys[kid]
			c.mu.RUnlock()
		}
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	}
}
