// Package contacts implements the contact management storage behind the
// TiMessengerContactManagement API: per-user contact entries with an invite
// validity window.
package contacts

import "fmt"

// InviteSettings is the validity window of a contact's invite permission,
// in epoch seconds. End is open-ended when nil.
type InviteSettings struct {
	Start int64  `json:"start"`
	End   *int64 `json:"end,omitempty"`
}

// Contact is one entry of a user's contact list.
type Contact struct {
	DisplayName    string         `json:"displayName"`
	MXID           string         `json:"mxid"`
	InviteSettings InviteSettings `json:"inviteSettings"`
}

// Contacts is the list document returned by the API.
type Contacts struct {
	Contacts []Contact `json:"contacts"`
}

// Validate checks the required fields of an incoming contact.
func (c *Contact) Validate() error {
	if c.MXID == "" {
		return fmt.Errorf("contact is missing mxid")
	}
	if c.DisplayName == "" {
		return fmt.Errorf("contact is missing displayName")
	}
	return nil
}
