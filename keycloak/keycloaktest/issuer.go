// Package keycloaktest runs an in-process Keycloak realm for tests. It
// publishes a JWKS at the realm certs path and mints access tokens that
// verify against it.
//
//	issuer := keycloaktest.NewIssuer("demo")
//	defer issuer.Close()
//
//	resolver := keycloak.NewKeyResolver(keycloak.ResolverConfig{CertsURL: issuer.CertsURL()}, nil)
//	token := issuer.Token("user-123", nil)
package keycloaktest

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// DefaultAudience is the aud claim Keycloak puts on access tokens
const DefaultAudience = "account"

// ClientID is the azp of minted tokens
const ClientID = "realm-guard"

type publishedKey struct {
	kid    string
	alg    string
	use    string
	public crypto.PublicKey
}

// Issuer is a fake Keycloak realm.
type Issuer struct {
	server *httptest.Server
	realm  string

	mu        sync.Mutex
	published []publishedKey
	signing   *rsa.PrivateKey
	kid       string
	serial    int

	fetches     atomic.Int64
	unavailable atomic.Bool
	delay       atomic.Int64
}

// NewIssuer starts a realm with one RS256 signing key and one encryption
// key, matching a default Keycloak realm.
func NewIssuer(realm string) *Issuer {
	i := &Issuer{realm: realm}
	i.RotateKey()

	enc, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic("failed to generate encryption key: " + err.Error())
	}
	i.published = append(i.published, publishedKey{
		kid:    "enc-key",
		alg:    "RSA-OAEP",
		use:    "enc",
		public: &enc.PublicKey,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/realms/"+realm+"/protocol/openid-connect/certs", i.handleCerts)
	i.server = httptest.NewServer(mux)
	return i
}

// Close shuts down the test server.
func (i *Issuer) Close() {
	if i.server != nil {
		i.server.Close()
	}
}

// ServerURL is the Keycloak base URL.
func (i *Issuer) ServerURL() string {
	return i.server.URL
}

// Realm returns the realm name.
func (i *Issuer) Realm() string {
	return i.realm
}

// IssuerURL is the iss claim of minted tokens.
func (i *Issuer) IssuerURL() string {
	return i.server.URL + "/realms/" + i.realm
}

// CertsURL is the JWKS endpoint.
func (i *Issuer) CertsURL() string {
	return i.IssuerURL() + "/protocol/openid-connect/certs"
}

// KID returns the current signing key id.
func (i *Issuer) KID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.kid
}

// Fetches counts certs requests served, including failed ones.
func (i *Issuer) Fetches() int64 {
	return i.fetches.Load()
}

// SetUnavailable makes the certs endpoint answer 503.
func (i *Issuer) SetUnavailable(down bool) {
	i.unavailable.Store(down)
}

// SetDelay makes the certs endpoint sleep before answering.
func (i *Issuer) SetDelay(d time.Duration) {
	i.delay.Store(int64(d))
}

// RotateKey generates a new RS256 signing key, publishes it alongside the
// old ones and makes it the active key. It returns the new kid.
func (i *Issuer) RotateKey() string {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic("failed to generate signing key: " + err.Error())
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.serial++
	i.kid = fmt.Sprintf("rsa-key-%d", i.serial)
	i.signing = key
	i.published = append(i.published, publishedKey{
		kid:    i.kid,
		alg:    "RS256",
		use:    "sig",
		public: &key.PublicKey,
	})
	return i.kid
}

// Publish adds an arbitrary public key to the JWKS.
func (i *Issuer) Publish(kid, alg string, public crypto.PublicKey) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.published = append(i.published, publishedKey{kid: kid, alg: alg, use: "sig", public: public})
}

// Unpublish removes every key published under kid.
func (i *Issuer) Unpublish(kid string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	kept := i.published[:0]
	for _, k := range i.published {
		if k.kid != kid {
			kept = append(kept, k)
		}
	}
	i.published = kept
}

// Claims returns a typical Keycloak access token payload for sub, with
// overrides applied on top. An override set to nil removes the claim.
func (i *Issuer) Claims(sub string, overrides map[string]any) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":                sub,
		"iss":                i.IssuerURL(),
		"aud":                DefaultAudience,
		"exp":                now.Add(time.Hour).Unix(),
		"iat":                now.Unix(),
		"typ":                "Bearer",
		"azp":                ClientID,
		"preferred_username": sub,
		"email":              sub + "@example.com",
		"scope":              "openid profile email",
		"realm_access": map[string]any{
			"roles": []any{"user"},
		},
		"resource_access": map[string]any{},
	}
	for k, v := range overrides {
		if v == nil {
			delete(claims, k)
			continue
		}
		claims[k] = v
	}
	return claims
}

// Token mints an RS256 token signed with the active key.
func (i *Issuer) Token(sub string, overrides map[string]any) string {
	return i.Sign(i.Claims(sub, overrides))
}

// Sign signs claims with the active key.
func (i *Issuer) Sign(claims jwt.MapClaims) string {
	i.mu.Lock()
	key, kid := i.signing, i.kid
	i.mu.Unlock()
	return SignWith(jwt.SigningMethodRS256, key, kid, claims)
}

// SigningKey returns the active private key.
func (i *Issuer) SigningKey() *rsa.PrivateKey {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.signing
}

// SignWith signs claims with any method and key, setting kid when non-empty.
func SignWith(method jwt.SigningMethod, key any, kid string, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(method, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return signed
}

func (i *Issuer) handleCerts(w http.ResponseWriter, r *http.Request) {
	i.fetches.Add(1)

	if d := time.Duration(i.delay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if i.unavailable.Load() {
		http.Error(w, "realm unavailable", http.StatusServiceUnavailable)
		return
	}

	i.mu.Lock()
	published := append([]publishedKey(nil), i.published...)
	i.mu.Unlock()

	set := jwk.NewSet()
	for _, p := range published {
		key, err := jwk.FromRaw(p.public)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = key.Set(jwk.KeyIDKey, p.kid)
		_ = key.Set(jwk.KeyUsageKey, p.use)
		_ = key.Set(jwk.AlgorithmKey, p.alg)
		if err := set.AddKey(key); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}
