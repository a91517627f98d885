// Package httpclient builds the outbound HTTP client, with mutual TLS when
// a client certificate is configured.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

// New returns an HTTP client. With certFile set, the client presents the
// certificate for mutual TLS.
func New(certFile, keyFile string) (*http.Client, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	if certFile == "" {
		return client, nil
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}
	return client, nil
}
