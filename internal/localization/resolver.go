// Package localization asks the external directory what kind of entity a
// user identifier belongs to: an organization, a practitioner, both, or
// neither.
package localization

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Kind is the directory's classification of an identifier.
type Kind string

const (
	KindOrg      Kind = "org"
	KindPract    Kind = "pract"
	KindOrgPract Kind = "orgPract"
	KindNone     Kind = "none"
)

// ErrLookup marks a single failed directory attempt. Exhausting all attempts
// is not an error; the result is then KindNone.
var ErrLookup = errors.New("localization: directory lookup failed")

// Resolver queries the directory endpoint with the historically required
// identifier encodings. The directory's behavior has drifted from its
// published format over time, so each encoding gets its own attempt.
type Resolver struct {
	lookupURL string
	client    *http.Client
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) { r.client = client }
}

// NewResolver constructs a Resolver against the directory lookup endpoint.
func NewResolver(lookupURL string, opts ...Option) (*Resolver, error) {
	if lookupURL == "" {
		return nil, fmt.Errorf("directory lookup URL is required")
	}
	r := &Resolver{
		lookupURL: lookupURL,
		client:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve tries each identifier encoding in the fixed order and returns the
// first classification that is not "none". Individual attempt failures are
// recovered locally; only total exhaustion yields KindNone.
func (r *Resolver) Resolve(ctx context.Context, rawMXID string) (Kind, error) {
	for _, encoded := range Encodings(rawMXID) {
		kind, err := r.lookupOnce(ctx, encoded)
		if err != nil {
			if r.logger != nil {
				r.logger.DebugContext(ctx, "directory attempt failed",
					"encoding", encoded,
					"error", err,
				)
			}
			continue
		}
		if kind != KindNone {
			return kind, nil
		}
	}
	return KindNone, nil
}

// Encodings returns the five identifier representations in lookup order:
// the matrix:u and matrix:user URI forms, each with and without the colon
// percent-encoded, then the raw identifier as a last resort.
func Encodings(rawMXID string) []string {
	id := strings.TrimPrefix(rawMXID, "@")
	return []string{
		"matrix:u/" + escape(id, true),
		"matrix:u/" + escape(id, false),
		"matrix:user/" + escape(id, true),
		"matrix:user/" + escape(id, false),
		rawMXID,
	}
}

// escape percent-encodes the identifier for use inside the matrix URI.
// encodeColon selects whether the localpart/domain separator is encoded too.
func escape(id string, encodeColon bool) string {
	escaped := url.QueryEscape(id)
	if !encodeColon {
		escaped = strings.ReplaceAll(escaped, "%3A", ":")
	}
	return escaped
}

func (r *Resolver) lookupOnce(ctx context.Context, encoded string) (Kind, error) {
	u := r.lookupURL + "?mxid=" + url.QueryEscape(encoded)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return KindNone, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return KindNone, fmt.Errorf("%w: %v", ErrLookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return KindNone, fmt.Errorf("%w: status %d", ErrLookup, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return KindNone, fmt.Errorf("%w: %v", ErrLookup, err)
	}

	// The directory sometimes quotes its answer.
	answer := strings.Trim(strings.TrimSpace(string(body)), `"`)
	switch Kind(answer) {
	case KindOrg, KindPract, KindOrgPract, KindNone:
		return Kind(answer), nil
	default:
		return KindNone, fmt.Errorf("%w: unexpected answer %q", ErrLookup, answer)
	}
}

// IsPractitioner reports whether the kind is a practitioner variant.
func (k Kind) IsPractitioner() bool {
	return k == KindPract || k == KindOrgPract
}

// IsOrganization reports whether the kind is an organization variant.
func (k Kind) IsOrganization() bool {
	return k == KindOrg || k == KindOrgPract
}
