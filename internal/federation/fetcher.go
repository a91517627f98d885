package federation

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

// ListTTL is how long a verified federation list stays cached before the
// next read forces a refetch.
const ListTTL = time.Hour

// signingAlg is the only accepted JWS algorithm for the list envelope.
const signingAlg = "ES256"

const listCacheKey = "federation-list"

// Fetcher downloads the signed federation list, verifies its trust chain and
// signature, and caches the parsed result. The cache is private to the
// fetcher; Fetch and Invalidate are its only operations.
type Fetcher struct {
	listURL   string
	trustBase string
	client    *http.Client
	cache     *gocache.Cache
	metrics   *Metrics
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithHTTPClient replaces the transport, typically to pin a mutually
// authenticated TLS client certificate.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// NewFetcher constructs a Fetcher for the given signed-list endpoint and
// trust material base URL.
func NewFetcher(listURL, trustBase string, opts ...Option) (*Fetcher, error) {
	if listURL == "" {
		return nil, fmt.Errorf("federation list URL is required")
	}
	if trustBase == "" {
		return nil, fmt.Errorf("trust material base URL is required")
	}
	f := &Fetcher{
		listURL:   listURL,
		trustBase: trustBase,
		client:    http.DefaultClient,
		cache:     gocache.New(ListTTL, 10*time.Minute),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// listClaims is the JWS payload. The registered claims are always empty on
// the published list but keep the envelope parsable as a standard token.
type listClaims struct {
	DomainList []Domain `json:"domainList"`
	jwt.RegisteredClaims
}

// Fetch returns the current federation list, from cache when younger than
// ListTTL. On a miss it downloads the signed payload, verifies the
// certificate chain leaf -> intermediate -> root against freshly fetched
// trust material, verifies the signature, and parses the payload.
func (f *Fetcher) Fetch(ctx context.Context) (*List, error) {
	if cached, ok := f.cache.Get(listCacheKey); ok {
		f.metrics.ObserveCache("hit")
		return cached.(*List), nil
	}
	f.metrics.ObserveCache("miss")

	list, err := f.fetchAndVerify(ctx)
	if err != nil {
		return nil, err
	}

	f.cache.Set(listCacheKey, list, ListTTL)
	f.metrics.SetListSize(list.Len())
	if f.logger != nil {
		f.logger.InfoContext(ctx, "federation list refreshed", "entries", list.Len())
	}
	return list, nil
}

// Invalidate drops the cached list unconditionally. The next Fetch will hit
// the network again.
func (f *Fetcher) Invalidate() {
	f.cache.Delete(listCacheKey)
}

func (f *Fetcher) fetchAndVerify(ctx context.Context) (*List, error) {
	raw, err := f.get(ctx, f.listURL)
	if err != nil {
		f.metrics.ObserveFetch("transport")
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingAlg}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &listClaims{}
	_, err = parser.ParseWithClaims(string(raw), claims, func(token *jwt.Token) (any, error) {
		return f.trustedLeafKey(ctx, token)
	})
	if err != nil {
		err = f.classifyVerifyError(err)
		if f.logger != nil {
			f.logger.WarnContext(ctx, "federation list verification failed", "error", err)
		}
		return nil, err
	}

	if len(claims.DomainList) == 0 {
		f.metrics.ObserveFetch("schema")
		return nil, fmt.Errorf("%w: verified payload carries no domainList entries", ErrSchema)
	}
	for _, d := range claims.DomainList {
		if d.Domain == "" || d.TelematikID == "" {
			f.metrics.ObserveFetch("schema")
			return nil, fmt.Errorf("%w: entry %q is missing a required field", ErrSchema, d.Domain)
		}
	}

	f.metrics.ObserveFetch("ok")
	return NewList(claims.DomainList), nil
}

// trustedLeafKey extracts the embedded leaf certificate from the x5c header,
// downloads the current root set and the issuer's intermediate certificate,
// and verifies the chain before handing the leaf key to the JWS layer. The
// trust material is deliberately not cached: only the verified list is.
func (f *Fetcher) trustedLeafKey(ctx context.Context, token *jwt.Token) (any, error) {
	leaf, err := leafFromHeader(token)
	if err != nil {
		return nil, err
	}

	roots, intermediates, err := f.fetchTrustMaterial(ctx, leaf.Issuer.CommonName)
	if err != nil {
		return nil, err
	}

	if _, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}); err != nil {
		return nil, fmt.Errorf("%w: certificate chain: %v", ErrTrust, err)
	}

	key, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: leaf key is %T, want ECDSA", ErrTrust, leaf.PublicKey)
	}
	return key, nil
}

func leafFromHeader(token *jwt.Token) (*x509.Certificate, error) {
	chain, ok := token.Header["x5c"].([]any)
	if !ok || len(chain) == 0 {
		return nil, fmt.Errorf("%w: signature header carries no x5c certificate", ErrTrust)
	}
	first, ok := chain[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: x5c entry is not a string", ErrTrust)
	}
	der, err := base64.StdEncoding.DecodeString(first)
	if err != nil {
		return nil, fmt.Errorf("%w: x5c entry is not base64: %v", ErrTrust, err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: x5c entry is not a certificate: %v", ErrTrust, err)
	}
	return leaf, nil
}

// fetchTrustMaterial downloads the root CA set and the intermediate
// certificate for the given issuer common name. Both requests run
// concurrently; either failure aborts the other.
func (f *Fetcher) fetchTrustMaterial(ctx context.Context, issuerCN string) (*x509.CertPool, *x509.CertPool, error) {
	if issuerCN == "" {
		return nil, nil, fmt.Errorf("%w: leaf certificate has no issuer common name", ErrTrust)
	}

	var (
		roots         = x509.NewCertPool()
		intermediates = x509.NewCertPool()
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		body, err := f.get(ctx, f.trustBase+"/roots.json")
		if err != nil {
			return err
		}
		var encoded []string
		if err := json.Unmarshal(body, &encoded); err != nil {
			return fmt.Errorf("%w: root CA document: %v", ErrTrust, err)
		}
		if len(encoded) == 0 {
			return fmt.Errorf("%w: root CA document is empty", ErrTrust)
		}
		for _, e := range encoded {
			der, err := base64.StdEncoding.DecodeString(e)
			if err != nil {
				return fmt.Errorf("%w: root CA entry is not base64: %v", ErrTrust, err)
			}
			cert, err := x509.ParseCertificate(der)
			if err != nil {
				return fmt.Errorf("%w: root CA entry is not a certificate: %v", ErrTrust, err)
			}
			roots.AddCert(cert)
		}
		return nil
	})

	g.Go(func() error {
		body, err := f.get(ctx, f.trustBase+"/intermediate/"+url.PathEscape(issuerCN))
		if err != nil {
			return err
		}
		cert, err := x509.ParseCertificate(body)
		if err != nil {
			return fmt.Errorf("%w: intermediate for %q is not a DER certificate: %v", ErrTrust, issuerCN, err)
		}
		intermediates.AddCert(cert)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return roots, intermediates, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrTransport, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrTransport, rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrTransport, rawURL, err)
	}
	return body, nil
}

// classifyVerifyError folds golang-jwt's error chain into the package
// taxonomy. Errors already tagged by the keyfunc pass through unchanged.
func (f *Fetcher) classifyVerifyError(err error) error {
	switch {
	case errors.Is(err, ErrTransport):
		f.metrics.ObserveFetch("transport")
		return err
	case errors.Is(err, ErrTrust):
		f.metrics.ObserveFetch("trust")
		return err
	case errors.Is(err, ErrSchema):
		f.metrics.ObserveFetch("schema")
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		f.metrics.ObserveFetch("schema")
		return fmt.Errorf("%w: %v", ErrSchema, err)
	default:
		// Signature mismatch, rejected algorithm, unparsable key.
		f.metrics.ObserveFetch("trust")
		return fmt.Errorf("%w: %v", ErrTrust, err)
	}
}
