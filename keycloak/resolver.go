package keycloak

import (
	"context"
	"crypto"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.uber.org/zap"
)

const (
	// DefaultFetchTimeout bounds a single certs endpoint round trip
	DefaultFetchTimeout = 5 * time.Second

	maxJWKSBytes = 1 << 20
)

// SigningKeySet is an immutable snapshot of the realm's published signing keys.
type SigningKeySet struct {
	Keys      map[string]crypto.PublicKey
	Source    string
	FetchedAt time.Time
}

// Lookup returns the key published under kid.
func (s *SigningKeySet) Lookup(kid string) (crypto.PublicKey, bool) {
	if s == nil {
		return nil, false
	}
	key, ok := s.Keys[kid]
	return key, ok
}

// KIDs lists the key ids in the snapshot, sorted.
func (s *SigningKeySet) KIDs() []string {
	if s == nil {
		return nil
	}
	kids := make([]string, 0, len(s.Keys))
	for kid := range s.Keys {
		kids = append(kids, kid)
	}
	slices.Sort(kids)
	return kids
}

// ResolverConfig holds configuration for KeyResolver
type ResolverConfig struct {
	CertsURL   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    Metrics
	Now        func() time.Time
}

// KeyResolver maps a kid to the realm's public key, refetching the certs
// endpoint once when the kid is not in the current snapshot.
type KeyResolver struct {
	certsURL   string
	timeout    time.Duration
	httpClient *http.Client
	metrics    Metrics
	now        func() time.Time
	logger     *zap.Logger

	current atomic.Pointer[SigningKeySet]
}

// CertsURL builds the Keycloak certs endpoint for a realm.
func CertsURL(serverURL, realm string) string {
	return strings.TrimRight(serverURL, "/") + "/realms/" + url.PathEscape(realm) + "/protocol/openid-connect/certs"
}

// NewKeyResolver creates a resolver with an empty snapshot. The first
// Resolve call performs the cold fetch.
func NewKeyResolver(cfg ResolverConfig, logger *zap.Logger) *KeyResolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &KeyResolver{
		certsURL:   cfg.CertsURL,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		logger:     logger,
	}
}

// Snapshot returns the current key set, or nil before the first fetch.
func (r *KeyResolver) Snapshot() *SigningKeySet {
	return r.current.Load()
}

// Resolve returns the public key for kid. A kid missing from the snapshot
// triggers exactly one refetch; a failed refetch leaves the snapshot as is.
func (r *KeyResolver) Resolve(ctx context.Context, kid string) (crypto.PublicKey, error) {
	if kid == "" {
		return nil, newTokenError(KindUnknownKey, fmt.Errorf("%w: empty kid", ErrKeyNotFound))
	}

	if key, ok := r.current.Load().Lookup(kid); ok {
		return key, nil
	}

	set, err := r.Refresh(ctx)
	if err != nil {
		return nil, newTokenError(KindUnknownKey, err)
	}

	key, ok := set.Lookup(kid)
	if !ok {
		r.logger.Debug("kid not published by realm",
			zap.String("kid", kid),
			zap.Int("published_keys", len(set.Keys)),
		)
		return nil, newTokenError(KindUnknownKey, fmt.Errorf("%w: %s", ErrKeyNotFound, kid))
	}
	return key, nil
}

// Refresh fetches the certs endpoint and swaps in the new snapshot on success.
func (r *KeyResolver) Refresh(ctx context.Context) (*SigningKeySet, error) {
	set, err := r.fetch(ctx)
	if err != nil {
		r.metrics.ObserveKeyFetch(FetchResultError)
		r.logger.Warn("JWKS refresh failed",
			zap.String("certs_url", r.certsURL),
			zap.Error(err),
		)
		return nil, err
	}

	r.current.Store(set)
	r.metrics.ObserveKeyFetch(FetchResultSuccess)
	r.logger.Info("JWKS refreshed",
		zap.String("certs_url", r.certsURL),
		zap.Strings("kids", set.KIDs()),
	)
	return set, nil
}

func (r *KeyResolver) fetch(ctx context.Context) (*SigningKeySet, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.certsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}

	return ParseKeySet(body, r.certsURL, r.now())
}

// ParseKeySet decodes a JWKS document into a snapshot. Keys without a kid,
// keys published for encryption, and keys that fail to decode are skipped.
func ParseKeySet(body []byte, source string, fetchedAt time.Time) (*SigningKeySet, error) {
	parsed, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}

	keys := make(map[string]crypto.PublicKey, parsed.Len())
	for i := 0; i < parsed.Len(); i++ {
		key, ok := parsed.Key(i)
		if !ok {
			continue
		}
		kid := key.KeyID()
		if kid == "" {
			continue
		}
		if use := key.KeyUsage(); use != "" && use != string(jwk.ForSignature) {
			continue
		}

		public, err := jwk.PublicKeyOf(key)
		if err != nil {
			continue
		}
		var raw any
		if err := public.Raw(&raw); err != nil {
			continue
		}
		keys[kid] = raw
	}

	if len(keys) == 0 {
		return nil, ErrEmptyKeySet
	}

	return &SigningKeySet{
		Keys:      keys,
		Source:    source,
		FetchedAt: fetchedAt,
	}, nil
}
