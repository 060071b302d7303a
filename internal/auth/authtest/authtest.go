// Package authtest provides a fake OIDC provider for tests.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const keyID = "test-key"

// Provider serves discovery metadata and a JWKS, and signs tokens with the
// matching key.
type Provider struct {
	*httptest.Server
	Issuer string

	key         *rsa.PrivateKey
	discoveries int64

	mu   sync.Mutex
	hold chan struct{}
	fail bool
}

// NewProvider starts a provider whose issuer is the server URL. It is
// closed when the test ends.
func NewProvider(t *testing.T) *Provider {
	t.Helper()

	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	jwks, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{
		{Key: &pk.PublicKey, KeyID: keyID, Algorithm: "RS256", Use: "sig"},
	}})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}

	p := &Provider{key: pk}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&p.discoveries, 1)

		p.mu.Lock()
		hold, fail := p.hold, p.fail
		p.mu.Unlock()
		if hold != nil {
			<-hold
		}
		if fail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"issuer":                                p.Issuer,
			"jwks_uri":                              p.Issuer + "/keys",
			"authorization_endpoint":                p.Issuer + "/auth",
			"token_endpoint":                        p.Issuer + "/token",
			"response_types_supported":              []string{"code"},
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(jwks)
	})

	p.Server = httptest.NewServer(mux)
	p.Issuer = p.Server.URL
	t.Cleanup(p.Close)
	return p
}

// Discoveries reports how many times the discovery document was requested.
func (p *Provider) Discoveries() int {
	return int(atomic.LoadInt64(&p.discoveries))
}

// Hold makes discovery requests block until the returned function is called.
func (p *Provider) Hold() (release func()) {
	ch := make(chan struct{})
	p.mu.Lock()
	p.hold = ch
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.hold = nil
			p.mu.Unlock()
			close(ch)
		})
	}
}

// FailDiscovery makes the discovery endpoint answer with an error.
func (p *Provider) FailDiscovery(fail bool) {
	p.mu.Lock()
	p.fail = fail
	p.mu.Unlock()
}

// Token signs claims with the provider key. iss, iat and exp default to the
// provider issuer, now and one hour from now.
func (p *Provider) Token(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	return Sign(t, p.key, p.Issuer, claims)
}

// Sign is like Provider.Token for an arbitrary key and issuer.
func Sign(t *testing.T, key *rsa.PrivateKey, issuer string, claims jwt.MapClaims) string {
	t.Helper()

	now := time.Now()
	all := jwt.MapClaims{
		"iss": issuer,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range claims {
		all[k] = v
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, all)
	tok.Header["kid"] = keyID
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}
