package permissions

import (
	"context"
	"fmt"
	"log/slog"

	"timgate/internal/accountdata"
	"timgate/pkg/mxid"
)

// InsuranceClassifier is the slice of the domain classifier the engine
// depends on.
type InsuranceClassifier interface {
	IsInsurance(ctx context.Context, domain string) (bool, error)
}

// Engine resolves, persists, and evaluates per-user permission configs.
// Stored documents that are absent or corrupt are replaced with the
// configured default and written back, so a read always yields a usable
// config.
type Engine struct {
	store      accountdata.Store
	classifier InsuranceClassifier
	fallback   Slot
	defaults   Config
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine constructs an Engine. fallback is the statically configured
// operating mode's slot, used when the classifier cannot answer.
func NewEngine(store accountdata.Store, classifier InsuranceClassifier, fallback Slot, defaults Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("account data store is required")
	}
	if classifier == nil {
		return nil, fmt.Errorf("domain classifier is required")
	}
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("default permission config: %w", err)
	}
	e := &Engine{
		store:      store,
		classifier: classifier,
		fallback:   fallback,
		defaults:   defaults,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// slotFor classifies the user's own domain to pick the account-data slot.
// Classifier failure falls back to the configured operating mode.
func (e *Engine) slotFor(ctx context.Context, userID string) Slot {
	domain := mxid.DomainOf(userID)
	insured, err := e.classifier.IsInsurance(ctx, domain)
	if err != nil {
		if e.logger != nil {
			e.logger.WarnContext(ctx, "federation list unavailable, falling back to configured mode",
				"user_id", userID,
				"fallback", e.fallback.String(),
				"error", err,
			)
		}
		return e.fallback
	}
	if insured {
		return SlotEPA
	}
	return SlotPro
}

// Get returns the user's permission config, healing missing or corrupt
// stored data by writing the default back first.
func (e *Engine) Get(ctx context.Context, userID string) (Config, error) {
	slot := e.slotFor(ctx, userID)

	raw, err := e.store.GetGlobal(ctx, userID, slot.AccountDataType())
	if err != nil {
		return Config{}, fmt.Errorf("read permissions for %s: %w", userID, err)
	}
	if raw == nil {
		return e.reset(ctx, userID, slot, nil)
	}

	cfg, err := ParseConfig(raw)
	if err != nil {
		return e.reset(ctx, userID, slot, err)
	}
	return cfg, nil
}

func (e *Engine) reset(ctx context.Context, userID string, slot Slot, cause error) (Config, error) {
	if cause != nil && e.logger != nil {
		e.logger.WarnContext(ctx, "stored permissions broken, resetting to default",
			"user_id", userID,
			"slot", slot.String(),
			"error", cause,
		)
	}
	if err := e.put(ctx, userID, slot, e.defaults); err != nil {
		return Config{}, err
	}
	healed := e.defaults
	healed.Normalize()
	return healed, nil
}

// Update persists a new permission config for the user.
func (e *Engine) Update(ctx context.Context, userID string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return e.put(ctx, userID, e.slotFor(ctx, userID), cfg)
}

func (e *Engine) put(ctx context.Context, userID string, slot Slot, cfg Config) error {
	raw, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("encode permissions for %s: %w", userID, err)
	}
	if err := e.store.PutGlobal(ctx, userID, slot.AccountDataType(), raw); err != nil {
		return fmt.Errorf("write permissions for %s: %w", userID, err)
	}
	return nil
}

// IsAllowedToContact evaluates whether the local user's policy permits
// contact with the remote identity.
func (e *Engine) IsAllowedToContact(ctx context.Context, localUserID, remoteMXID string) (bool, error) {
	cfg, err := e.Get(ctx, localUserID)
	if err != nil {
		return false, err
	}
	remoteInsured, err := e.classifier.IsInsurance(ctx, mxid.DomainOf(remoteMXID))
	if err != nil {
		return false, err
	}
	return cfg.IsAllowedToContact(remoteMXID, remoteInsured), nil
}
