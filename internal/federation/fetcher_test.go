package federation

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIntermediateCN = "TIMGATE-TEST-INTERMEDIATE-CA"

// trustFixture is a complete root -> intermediate -> leaf chain plus the
// leaf signing key, freshly generated per test.
type trustFixture struct {
	rootDER         []byte
	intermediateDER []byte
	leafDER         []byte
	leafKey         *ecdsa.PrivateKey
}

func newTrustFixture(t *testing.T) *trustFixture {
	t.Helper()

	rootKey := genKey(t)
	rootTmpl := caTemplate(t, "TIMGATE-TEST-ROOT-CA")
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTmpl, rootTmpl, &rootKey.PublicKey, rootKey)
	require.NoError(t, err)
	rootCert, err := x509.ParseCertificate(rootDER)
	require.NoError(t, err)

	interKey := genKey(t)
	interTmpl := caTemplate(t, testIntermediateCN)
	interDER, err := x509.CreateCertificate(rand.Reader, interTmpl, rootCert, &interKey.PublicKey, rootKey)
	require.NoError(t, err)
	interCert, err := x509.ParseCertificate(interDER)
	require.NoError(t, err)

	leafKey := genKey(t)
	leafTmpl := &x509.Certificate{
		SerialNumber: newSerial(t),
		Subject:      pkix.Name{CommonName: "federation-list-signer"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, interCert, &leafKey.PublicKey, interKey)
	require.NoError(t, err)

	return &trustFixture{
		rootDER:         rootDER,
		intermediateDER: interDER,
		leafDER:         leafDER,
		leafKey:         leafKey,
	}
}

func genKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func newSerial(t *testing.T) *big.Int {
	t.Helper()
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	require.NoError(t, err)
	return serial
}

func caTemplate(t *testing.T, cn string) *x509.Certificate {
	t.Helper()
	return &x509.Certificate{
		SerialNumber:          newSerial(t),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
}

// signList produces the compact JWS envelope over the given entries.
func (f *trustFixture) signList(t *testing.T, entries []Domain) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, &listClaims{DomainList: entries})
	token.Header["x5c"] = []string{base64.StdEncoding.EncodeToString(f.leafDER)}
	signed, err := token.SignedString(f.leafKey)
	require.NoError(t, err)
	return signed
}

// trustServer serves the signed list, the roots document, and the
// intermediate certificate, counting list downloads.
type trustServer struct {
	*httptest.Server
	fixture   *trustFixture
	payload   atomic.Value // string
	listGets  atomic.Int64
	listCode  atomic.Int64
	rootsBody atomic.Value // []byte, optional override
}

func newTrustServer(t *testing.T, fixture *trustFixture, entries []Domain) *trustServer {
	t.Helper()
	ts := &trustServer{fixture: fixture}
	ts.listCode.Store(http.StatusOK)
	ts.payload.Store(fixture.signList(t, entries))

	mux := http.NewServeMux()
	mux.HandleFunc("/federation", func(w http.ResponseWriter, r *http.Request) {
		ts.listGets.Add(1)
		code := int(ts.listCode.Load())
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write([]byte(ts.payload.Load().(string)))
	})
	mux.HandleFunc("/trust/roots.json", func(w http.ResponseWriter, r *http.Request) {
		if override := ts.rootsBody.Load(); override != nil {
			_, _ = w.Write(override.([]byte))
			return
		}
		body, err := json.Marshal([]string{base64.StdEncoding.EncodeToString(fixture.rootDER)})
		require.NoError(t, err)
		_, _ = w.Write(body)
	})
	mux.HandleFunc("/trust/intermediate/"+testIntermediateCN, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(fixture.intermediateDER)
	})

	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *trustServer) newFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := NewFetcher(ts.URL+"/federation", ts.URL+"/trust")
	require.NoError(t, err)
	return f
}

func testEntries() []Domain {
	operator := "ORG-0217:BT-0158"
	return []Domain{
		{Domain: "timo.staging.famedly.de", TelematikID: "1-SMC-B-Testkarte--883110000147435", TIMAnbieter: &operator, IsInsurance: false},
		{Domain: "cirosec.de", TelematikID: "5-2-KHAUS-Kornfeld01", IsInsurance: true},
		{Domain: "messenger.spilikin.dev", TelematikID: "1-SMC-B-Testkarte-883110000096089", IsInsurance: false},
	}
}

func TestFetcherVerifiesAndParses(t *testing.T) {
	fixture := newTrustFixture(t)
	server := newTrustServer(t, fixture, testEntries())
	fetcher := server.newFetcher(t)

	list, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, list.Len())
	assert.True(t, list.Allowed("timo.staging.famedly.de"))
	assert.True(t, list.IsInsurance("cirosec.de"))
	assert.False(t, list.IsInsurance("timo.staging.famedly.de"))
	assert.False(t, list.Allowed("unlisted.example.com"))
}

func TestFetcherCachesUntilInvalidated(t *testing.T) {
	fixture := newTrustFixture(t)
	server := newTrustServer(t, fixture, testEntries())
	fetcher := server.newFetcher(t)
	ctx := context.Background()

	_, err := fetcher.Fetch(ctx)
	require.NoError(t, err)
	_, err = fetcher.Fetch(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, server.listGets.Load(), "second fetch must come from cache")

	fetcher.Invalidate()
	_, err = fetcher.Fetch(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, server.listGets.Load(), "invalidate must force a refetch")
}

func TestFetcherRejectsUnchainedSigner(t *testing.T) {
	fixture := newTrustFixture(t)
	server := newTrustServer(t, fixture, testEntries())

	// Sign with a chain rooted elsewhere; the server still serves the
	// original roots, so verification must fail.
	rogue := newTrustFixture(t)
	server.payload.Store(rogue.signList(t, testEntries()))

	fetcher := server.newFetcher(t)
	_, err := fetcher.Fetch(context.Background())
	require.ErrorIs(t, err, ErrTrust)
}

func TestFetcherRejectsTamperedSignature(t *testing.T) {
	fixture := newTrustFixture(t)
	server := newTrustServer(t, fixture, testEntries())

	// Present the legitimate leaf but sign with a different key.
	tampered := jwt.NewWithClaims(jwt.SigningMethodES256, &listClaims{DomainList: testEntries()})
	tampered.Header["x5c"] = []string{base64.StdEncoding.EncodeToString(fixture.leafDER)}
	signed, err := tampered.SignedString(genKey(t))
	require.NoError(t, err)
	server.payload.Store(signed)

	fetcher := server.newFetcher(t)
	_, err = fetcher.Fetch(context.Background())
	require.ErrorIs(t, err, ErrTrust)
}

func TestFetcherRejectsEmptyPayload(t *testing.T) {
	fixture := newTrustFixture(t)
	server := newTrustServer(t, fixture, nil)

	fetcher := server.newFetcher(t)
	_, err := fetcher.Fetch(context.Background())
	require.ErrorIs(t, err, ErrSchema)
}

func TestFetcherRejectsMissingRequiredFields(t *testing.T) {
	fixture := newTrustFixture(t)
	entries := []Domain{{Domain: "incomplete.example.com"}}
	server := newTrustServer(t, fixture, entries)

	fetcher := server.newFetcher(t)
	_, err := fetcher.Fetch(context.Background())
	require.ErrorIs(t, err, ErrSchema)
}

func TestFetcherOptionalOperatorMayBeAbsent(t *testing.T) {
	fixture := newTrustFixture(t)
	server := newTrustServer(t, fixture, []Domain{
		{Domain: "messenger.spilikin.dev", TelematikID: "1-SMC-B-Testkarte-883110000096089"},
	})

	fetcher := server.newFetcher(t)
	list, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, list.Len())
	assert.Nil(t, list.Domains[0].TIMAnbieter)
}

func TestFetcherTransportFailure(t *testing.T) {
	fixture := newTrustFixture(t)
	server := newTrustServer(t, fixture, testEntries())
	server.listCode.Store(http.StatusInternalServerError)

	fetcher := server.newFetcher(t)
	_, err := fetcher.Fetch(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}

func TestFetcherRejectsEmptyRootSet(t *testing.T) {
	fixture := newTrustFixture(t)
	server := newTrustServer(t, fixture, testEntries())
	server.rootsBody.Store([]byte(`[]`))

	fetcher := server.newFetcher(t)
	_, err := fetcher.Fetch(context.Background())
	require.ErrorIs(t, err, ErrTrust)
}

func TestFetcherRejectsGarbagePayload(t *testing.T) {
	fixture := newTrustFixture(t)
	server := newTrustServer(t, fixture, testEntries())
	server.payload.Store("definitely-not-a-jws")

	fetcher := server.newFetcher(t)
	_, err := fetcher.Fetch(context.Background())
	require.ErrorIs(t, err, ErrSchema)
}
