// Package permissions stores and evaluates the per-user contact policy:
// a default of allowing or blocking everyone, inverted by server-, user-,
// and group-level exceptions.
package permissions

import (
	"encoding/json"
	"fmt"

	"timgate/pkg/mxid"
)

// Default is the base disposition of a permission config.
type Default string

const (
	DefaultAllowAll Default = "allow all"
	DefaultBlockAll Default = "block all"
)

// GroupIsInsuredPerson is the one group exception the deployment defines:
// it targets every insured-person identity regardless of server or mxid.
const GroupIsInsuredPerson = "isInsuredPerson"

// GroupException names a group whose members invert the default setting.
type GroupException struct {
	GroupName string `json:"groupName"`
}

// Config is one user's contact policy as persisted in account data. Empty
// exception sets are dropped from the serialized form; DefaultSetting is
// always present after normalization.
type Config struct {
	DefaultSetting   Default             `json:"defaultSetting"`
	ServerExceptions map[string]struct{} `json:"serverExceptions,omitempty"`
	UserExceptions   map[string]struct{} `json:"userExceptions,omitempty"`
	GroupExceptions  []GroupException    `json:"groupExceptions,omitempty"`
}

// Validate reports whether the config is structurally sound.
func (c *Config) Validate() error {
	switch c.DefaultSetting {
	case DefaultAllowAll, DefaultBlockAll:
		return nil
	case "":
		return fmt.Errorf("permission config is missing defaultSetting")
	default:
		return fmt.Errorf("permission config has unknown defaultSetting %q", c.DefaultSetting)
	}
}

// Normalize drops empty exception containers so that serialize ->
// deserialize -> serialize is stable.
func (c *Config) Normalize() {
	if len(c.ServerExceptions) == 0 {
		c.ServerExceptions = nil
	}
	if len(c.UserExceptions) == 0 {
		c.UserExceptions = nil
	}
	if len(c.GroupExceptions) == 0 {
		c.GroupExceptions = nil
	}
}

// Marshal returns the normalized document.
func (c Config) Marshal() (json.RawMessage, error) {
	c.Normalize()
	return json.Marshal(c)
}

// ParseConfig decodes and validates a stored document.
func ParseConfig(raw json.RawMessage) (Config, error) {
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("decode permission config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.Normalize()
	return c, nil
}

// hasInsuredGroupException reports whether the insured-person group is
// excepted.
func (c *Config) hasInsuredGroupException() bool {
	for _, g := range c.GroupExceptions {
		if g.GroupName == GroupIsInsuredPerson {
			return true
		}
	}
	return false
}

// IsAllowedToContact evaluates the policy for a remote identity. First
// match wins, group exceptions before server and user exceptions:
//
//  1. remote is an insured person and the insured group is excepted
//  2. remote's server is excepted
//  3. remote's mxid is excepted
//  4. the default setting applies literally
func (c *Config) IsAllowedToContact(remoteMXID string, remoteIsInsured bool) bool {
	base := c.DefaultSetting == DefaultAllowAll

	if remoteIsInsured && c.hasInsuredGroupException() {
		return !base
	}
	if _, ok := c.ServerExceptions[mxid.DomainOf(remoteMXID)]; ok {
		return !base
	}
	if _, ok := c.UserExceptions[remoteMXID]; ok {
		return !base
	}
	return base
}
