// Package mxid handles Matrix user identifiers of the form @localpart:domain.
package mxid

import (
	"fmt"
	"strings"
)

// UserID is a parsed Matrix user identifier.
type UserID struct {
	Localpart string
	Domain    string
}

// Parse splits a raw mxid into its localpart and domain.
func Parse(raw string) (UserID, error) {
	if !strings.HasPrefix(raw, "@") {
		return UserID{}, fmt.Errorf("mxid %q does not start with '@'", raw)
	}
	local, domain, found := strings.Cut(raw[1:], ":")
	if !found || local == "" || domain == "" {
		return UserID{}, fmt.Errorf("mxid %q is missing a localpart or domain", raw)
	}
	return UserID{Localpart: local, Domain: domain}, nil
}

// DomainOf returns the domain of a raw mxid, or "" if it cannot be parsed.
// Callers that need to distinguish the error case should use Parse.
func DomainOf(raw string) string {
	id, err := Parse(raw)
	if err != nil {
		return ""
	}
	return id.Domain
}

// String reassembles the canonical form.
func (u UserID) String() string {
	return "@" + u.Localpart + ":" + u.Domain
}
