package localization

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// directoryStub records every mxid parameter it was asked about and answers
// from a scripted map.
type directoryStub struct {
	mu      sync.Mutex
	asked   []string
	answers map[string]string // encoded mxid -> body
	status  map[string]int    // encoded mxid -> http status
}

func newDirectoryStub() *directoryStub {
	return &directoryStub{
		answers: make(map[string]string),
		status:  make(map[string]int),
	}
}

func (d *directoryStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("mxid")
		d.mu.Lock()
		d.asked = append(d.asked, q)
		code, hasCode := d.status[q]
		body, hasBody := d.answers[q]
		d.mu.Unlock()

		if hasCode {
			w.WriteHeader(code)
			return
		}
		if !hasBody {
			body = "none"
		}
		_, _ = w.Write([]byte(body))
	}
}

func (d *directoryStub) askedOrder() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.asked...)
}

func newTestResolver(t *testing.T, stub *directoryStub) *Resolver {
	t.Helper()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)
	r, err := NewResolver(server.URL + "/localization")
	require.NoError(t, err)
	return r
}

func TestEncodingsOrder(t *testing.T) {
	got := Encodings("@gregor:pract.example.de")
	want := []string{
		"matrix:u/gregor%3Apract.example.de",
		"matrix:u/gregor:pract.example.de",
		"matrix:user/gregor%3Apract.example.de",
		"matrix:user/gregor:pract.example.de",
		"@gregor:pract.example.de",
	}
	assert.Equal(t, want, got)
}

func TestResolveTriesAllEncodingsInOrder(t *testing.T) {
	stub := newDirectoryStub()
	resolver := newTestResolver(t, stub)

	kind, err := resolver.Resolve(context.Background(), "@gregor:pract.example.de")
	require.NoError(t, err)
	assert.Equal(t, KindNone, kind)
	assert.Equal(t, Encodings("@gregor:pract.example.de"), stub.askedOrder(),
		"all five encodings must be tried in the documented order")
}

func TestResolveShortCircuitsOnFirstHit(t *testing.T) {
	stub := newDirectoryStub()
	encodings := Encodings("@org:hospital.example.de")
	stub.answers[encodings[1]] = "org"
	resolver := newTestResolver(t, stub)

	kind, err := resolver.Resolve(context.Background(), "@org:hospital.example.de")
	require.NoError(t, err)
	assert.Equal(t, KindOrg, kind)
	assert.Equal(t, encodings[:2], stub.askedOrder(), "no attempts after the first non-none answer")
}

func TestResolveRecoversFromHTTPErrors(t *testing.T) {
	stub := newDirectoryStub()
	encodings := Encodings("@doc:pract.example.de")
	stub.status[encodings[0]] = http.StatusNotFound
	stub.status[encodings[1]] = http.StatusBadGateway
	stub.answers[encodings[2]] = `"orgPract"`
	resolver := newTestResolver(t, stub)

	kind, err := resolver.Resolve(context.Background(), "@doc:pract.example.de")
	require.NoError(t, err)
	assert.Equal(t, KindOrgPract, kind, "a quoted answer must be accepted")
}

func TestResolveExhaustionIsNone(t *testing.T) {
	stub := newDirectoryStub()
	for _, enc := range Encodings("@nobody:unknown.example.de") {
		stub.status[enc] = http.StatusNotFound
	}
	resolver := newTestResolver(t, stub)

	kind, err := resolver.Resolve(context.Background(), "@nobody:unknown.example.de")
	require.NoError(t, err, "exhaustion is the safe default, not an error")
	assert.Equal(t, KindNone, kind)
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, KindPract.IsPractitioner())
	assert.True(t, KindOrgPract.IsPractitioner())
	assert.False(t, KindOrg.IsPractitioner())
	assert.True(t, KindOrg.IsOrganization())
	assert.True(t, KindOrgPract.IsOrganization())
	assert.False(t, KindNone.IsOrganization())
}
