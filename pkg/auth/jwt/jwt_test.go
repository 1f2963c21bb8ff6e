package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/judgeide/pkg/auth"
)

const secret = "classroom-shared-secret"

func hmacToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func bearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func valid() jwtlib.MapClaims {
	return jwtlib.MapClaims{
		"sub":    "student-7",
		"iss":    "lms",
		"aud":    "judgeide",
		"exp":    time.Now().Add(time.Hour).Unix(),
		"tenant": "course-42",
		"tier":   "classroom",
	}
}

func newHMAC(t *testing.T) *Authenticator {
	t.Helper()
	a, err := New(Config{Secret: secret, Issuer: "lms", Audience: "judgeide"})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestNewRequiresKeySource(t *testing.T) {
	if _, err := New(Config{Issuer: "lms"}); err == nil {
		t.Error("expected error without secret or JWKS URL")
	}
}

func TestHMACAccept(t *testing.T) {
	res := newHMAC(t).Authenticate(context.Background(), bearer(hmacToken(t, valid())))
	if res.Decision != auth.Accept {
		t.Fatalf("decision = %v (%v), want accept", res.Decision, res.Err)
	}
	want := auth.Identity{Subject: "student-7", Tenant: "course-42", Tier: "classroom"}
	if *res.Identity != want {
		t.Errorf("identity = %+v, want %+v", *res.Identity, want)
	}
}

func TestHMACReject(t *testing.T) {
	a := newHMAC(t)
	tests := []struct {
		name   string
		mutate func(jwtlib.MapClaims)
	}{
		{"expired", func(c jwtlib.MapClaims) { c["exp"] = time.Now().Add(-time.Minute).Unix() }},
		{"no exp", func(c jwtlib.MapClaims) { delete(c, "exp") }},
		{"wrong issuer", func(c jwtlib.MapClaims) { c["iss"] = "elsewhere" }},
		{"wrong audience", func(c jwtlib.MapClaims) { c["aud"] = "other-app" }},
		{"no subject", func(c jwtlib.MapClaims) { delete(c, "sub") }},
		{"issued in the future", func(c jwtlib.MapClaims) { c["iat"] = time.Now().Add(time.Hour).Unix() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := valid()
			tt.mutate(claims)
			res := a.Authenticate(context.Background(), bearer(hmacToken(t, claims)))
			if res.Decision != auth.Reject {
				t.Errorf("decision = %v, want reject", res.Decision)
			}
		})
	}
}

func TestWrongSecret(t *testing.T) {
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, valid()).SignedString([]byte("guess"))
	if err != nil {
		t.Fatal(err)
	}
	if res := newHMAC(t).Authenticate(context.Background(), bearer(token)); res.Decision != auth.Reject {
		t.Errorf("decision = %v, want reject", res.Decision)
	}
}

func TestLeeway(t *testing.T) {
	a, err := New(Config{Secret: secret, Leeway: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	claims := valid()
	claims["exp"] = time.Now().Add(-10 * time.Second).Unix()
	if res := a.Authenticate(context.Background(), bearer(hmacToken(t, claims))); res.Decision != auth.Accept {
		t.Errorf("decision = %v (%v), want accept within leeway", res.Decision, res.Err)
	}
}

func TestCustomClaims(t *testing.T) {
	a, err := New(Config{Secret: secret, TenantClaim: "org", TierClaim: "plan"})
	if err != nil {
		t.Fatal(err)
	}
	claims := valid()
	claims["org"] = "acme"
	claims["plan"] = "pro"
	res := a.Authenticate(context.Background(), bearer(hmacToken(t, claims)))
	if res.Decision != auth.Accept {
		t.Fatalf("decision = %v (%v)", res.Decision, res.Err)
	}
	if res.Identity.Tenant != "acme" || res.Identity.Tier != "pro" {
		t.Errorf("identity = %+v", res.Identity)
	}
}

func TestAbstainWithoutBearer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	if res := newHMAC(t).Authenticate(context.Background(), r); res.Decision != auth.Abstain {
		t.Errorf("decision = %v, want abstain", res.Decision)
	}
}

// --- JWKS ---

type jwksServer struct {
	srv     *httptest.Server
	key     *rsa.PrivateKey
	fetches atomic.Int32
}

func newJWKSServer(t *testing.T) *jwksServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	s := &jwksServer{key: key}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{
			{"kty": "EC", "kid": "ignored"},
			{
				"kty": "RSA",
				"kid": "k1",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			},
		}})
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *jwksServer) sign(t *testing.T, kid string, claims jwtlib.MapClaims) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(s.key)
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestJWKS(t *testing.T) {
	js := newJWKSServer(t)
	a, err := New(Config{JWKSURL: js.srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for i := range 3 {
		res := a.Authenticate(ctx, bearer(js.sign(t, "k1", valid())))
		if res.Decision != auth.Accept {
			t.Fatalf("request %d: decision = %v (%v)", i, res.Decision, res.Err)
		}
	}
	if n := js.fetches.Load(); n != 1 {
		t.Errorf("JWKS fetched %d times, want 1", n)
	}

	if res := a.Authenticate(ctx, bearer(js.sign(t, "k2", valid()))); res.Decision != auth.Reject {
		t.Errorf("unknown kid: decision = %v, want reject", res.Decision)
	}

	// HMAC tokens are refused when no secret is configured.
	if res := a.Authenticate(ctx, bearer(hmacToken(t, valid()))); res.Decision != auth.Reject {
		t.Errorf("hmac token: decision = %v, want reject", res.Decision)
	}
}

func TestJWKSAndSecret(t *testing.T) {
	js := newJWKSServer(t)
	a, err := New(Config{JWKSURL: js.srv.URL, Secret: secret})
	if err != nil {
		t.Fatal(err)
	}
	for name, token := range map[string]string{
		"rsa":  js.sign(t, "k1", valid()),
		"hmac": hmacToken(t, valid()),
	} {
		if res := a.Authenticate(context.Background(), bearer(token)); res.Decision != auth.Accept {
			t.Errorf("%s: decision = %v (%v), want accept", name, res.Decision, res.Err)
		}
	}
}

func TestJWKSUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	js := newJWKSServer(t)
	a, err := New(Config{JWKSURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if res := a.Authenticate(context.Background(), bearer(js.sign(t, "k1", valid()))); res.Decision != auth.Reject {
		t.Errorf("decision = %v, want reject", res.Decision)
	}
}

func TestRSAKeyExponentRange(t *testing.T) {
	n := base64.RawURLEncoding.EncodeToString([]byte{0xc0, 0xff, 0xee})
	if _, err := rsaKey(n, base64.RawURLEncoding.EncodeToString([]byte{1})); err == nil {
		t.Error("exponent 1 accepted")
	}
	if _, err := rsaKey(n, "!!"); err == nil {
		t.Error("malformed exponent accepted")
	}
	if _, err := rsaKey(n, base64.RawURLEncoding.EncodeToString(big.NewInt(65537).Bytes())); err != nil {
		t.Errorf("65537 rejected: %v", err)
	}
}
