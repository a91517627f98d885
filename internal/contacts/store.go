package contacts

import "context"

// Store persists per-user contact lists. Get returns nil when the contact
// does not exist.
type Store interface {
	List(ctx context.Context, owner string) (Contacts, error)
	Get(ctx context.Context, owner, mxid string) (*Contact, error)
	Upsert(ctx context.Context, owner string, contact Contact) error
	Delete(ctx context.Context, owner, mxid string) error
}
