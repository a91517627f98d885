// Package accountdata exposes the narrow slice of the host's account-data
// store that the permissions engine needs: global account data keyed by
// user and type.
package accountdata

import (
	"context"
	"encoding/json"
)

// Store reads and writes per-user global account data. A nil RawMessage
// with a nil error means the slot has never been written.
type Store interface {
	// GetGlobal returns the stored document for the user and type, or nil.
	GetGlobal(ctx context.Context, userID, dataType string) (json.RawMessage, error)

	// PutGlobal overwrites the stored document for the user and type.
	PutGlobal(ctx context.Context, userID, dataType string, content json.RawMessage) error
}
