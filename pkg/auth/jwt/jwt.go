// Package jwt authenticates bearer JWTs issued for the IDE, either signed
// with a shared HMAC secret (HS256/384/512) by the page embedding the
// editor, or with RSA keys (RS256/384/512) published by an identity
// provider's JWKS endpoint. Both may be configured at once.
//
// Tokens must carry "sub" and "exp". Optional claims, with configurable
// names, select the history tenant and the rate limit tier.
package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/rhuss/judgeide/pkg/auth"
	"github.com/rhuss/judgeide/pkg/debug"
)

// Config configures an Authenticator. At least one of Secret and JWKSURL
// must be set.
type Config struct {
	Secret  string
	JWKSURL string

	// Issuer and Audience are checked when set.
	Issuer   string
	Audience string

	TenantClaim string        // default "tenant"
	TierClaim   string        // default "tier"
	Leeway      time.Duration // clock skew allowed on exp/nbf/iat
	CacheTTL    time.Duration // JWKS refresh interval, default 1h

	HTTPClient *http.Client
}

// Authenticator validates JWT bearer tokens.
type Authenticator struct {
	cfg     Config
	secret  []byte
	keys    *keySet
	methods []string
}

// New creates an Authenticator.
func New(cfg Config) (*Authenticator, error) {
	if cfg.Secret == "" && cfg.JWKSURL == "" {
		return nil, errors.New("jwt: a secret or a JWKS URL is required")
	}
	if cfg.TenantClaim == "" {
		cfg.TenantClaim = "tenant"
	}
	if cfg.TierClaim == "" {
		cfg.TierClaim = "tier"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	a := &Authenticator{cfg: cfg}
	if cfg.Secret != "" {
		a.secret = []byte(cfg.Secret)
		a.methods = append(a.methods, "HS256", "HS384", "HS512")
	}
	if cfg.JWKSURL != "" {
		a.keys = &keySet{url: cfg.JWKSURL, ttl: cfg.CacheTTL, client: cfg.HTTPClient}
		a.methods = append(a.methods, "RS256", "RS384", "RS512")
	}
	return a, nil
}

// Authenticate abstains without a bearer token, rejects a token that fails
// validation and accepts otherwise.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	raw, ok := auth.BearerToken(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if raw == "" {
		return auth.Result{Decision: auth.Reject, Err: errors.New("empty bearer token")}
	}

	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, a.keyFunc(ctx), a.parserOptions()...)
	if err != nil {
		debug.Log("auth", "jwt rejected", "error", err)
		return auth.Result{Decision: auth.Reject, Err: fmt.Errorf("invalid token: %w", err)}
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return auth.Result{Decision: auth.Reject, Err: errors.New("invalid token: missing sub claim")}
	}
	return auth.Result{Decision: auth.Accept, Identity: &auth.Identity{
		Subject: sub,
		Tenant:  stringClaim(claims, a.cfg.TenantClaim),
		Tier:    stringClaim(claims, a.cfg.TierClaim),
	}}
}

func (a *Authenticator) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods(a.methods),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithIssuedAt(),
	}
	if a.cfg.Leeway > 0 {
		opts = append(opts, jwtlib.WithLeeway(a.cfg.Leeway))
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(a.cfg.Audience))
	}
	return opts
}

// keyFunc selects the verification key by signing method family.
func (a *Authenticator) keyFunc(ctx context.Context) jwtlib.Keyfunc {
	return func(t *jwtlib.Token) (any, error) {
		switch t.Method.(type) {
		case *jwtlib.SigningMethodHMAC:
			if a.secret == nil {
				return nil, errors.New("HMAC tokens are not accepted")
			}
			return a.secret, nil
		case *jwtlib.SigningMethodRSA:
			if a.keys == nil {
				return nil, errors.New("RSA tokens are not accepted")
			}
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid header")
			}
			return a.keys.get(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
	}
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

// keySet caches the RSA keys of a JWKS document. Unknown key IDs and
// expired sets trigger a refresh; concurrent refreshes share one request.
type keySet struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time

	group singleflight.Group
}

func (s *keySet) get(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	fresh := time.Since(s.fetched) < s.ttl
	s.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if _, err, _ := s.group.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx)
	}); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok := s.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown key id %q", kid)
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (s *keySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("jwks: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks: %s returned %d", s.url, resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("jwks: decode: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := rsaKey(k.N, k.E)
		if err != nil {
			debug.Log("auth", "skipping jwks key", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}

	s.mu.Lock()
	s.keys = keys
	s.fetched = time.Now()
	s.mu.Unlock()
	debug.Log("auth", "jwks refreshed", "url", s.url, "keys", len(keys))
	return nil
}

// rsaKey decodes the base64url modulus and exponent of a JWK.
func rsaKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(eb)
	if !exp.IsInt64() || exp.Int64() < 2 || exp.Int64() > 1<<31-1 {
		return nil, errors.New("exponent out of range")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(exp.Int64())}, nil
}
