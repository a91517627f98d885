package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timgate/internal/accountdata"
)

// stubClassifier answers from a fixed insurance set, optionally failing.
type stubClassifier struct {
	insured map[string]bool
	err     error
}

func (s *stubClassifier) IsInsurance(_ context.Context, domain string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.insured[domain], nil
}

func newTestEngine(t *testing.T, store accountdata.Store, classifier InsuranceClassifier) *Engine {
	t.Helper()
	engine, err := NewEngine(store, classifier, SlotPro, Config{DefaultSetting: DefaultAllowAll})
	require.NoError(t, err)
	return engine
}

func TestGetCreatesDefaultOnFirstAccess(t *testing.T) {
	store := accountdata.NewMemoryStore()
	classifier := &stubClassifier{insured: map[string]bool{}}
	engine := newTestEngine(t, store, classifier)
	ctx := context.Background()

	cfg, err := engine.Get(ctx, "@alice:pract.example")
	require.NoError(t, err)
	assert.Equal(t, DefaultAllowAll, cfg.DefaultSetting)

	// The default must have been persisted to the practitioner slot.
	raw, err := store.GetGlobal(ctx, "@alice:pract.example", SlotPro.AccountDataType())
	require.NoError(t, err)
	require.NotNil(t, raw, "write-on-read must persist the default")
	assert.JSONEq(t, `{"defaultSetting":"allow all"}`, string(raw))
}

func TestGetPicksSlotByDomainClassification(t *testing.T) {
	store := accountdata.NewMemoryStore()
	classifier := &stubClassifier{insured: map[string]bool{"kasse.example": true}}
	engine := newTestEngine(t, store, classifier)
	ctx := context.Background()

	_, err := engine.Get(ctx, "@versichert:kasse.example")
	require.NoError(t, err)

	raw, err := store.GetGlobal(ctx, "@versichert:kasse.example", SlotEPA.AccountDataType())
	require.NoError(t, err)
	assert.NotNil(t, raw, "insured user's config must live in the EPA slot")

	raw, err = store.GetGlobal(ctx, "@versichert:kasse.example", SlotPro.AccountDataType())
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestGetFallsBackToConfiguredModeOnClassifierFailure(t *testing.T) {
	store := accountdata.NewMemoryStore()
	classifier := &stubClassifier{err: errors.New("federation list unavailable")}
	engine := newTestEngine(t, store, classifier) // fallback SlotPro
	ctx := context.Background()

	_, err := engine.Get(ctx, "@alice:wherever.example")
	require.NoError(t, err, "classifier failure must not surface from Get")

	raw, err := store.GetGlobal(ctx, "@alice:wherever.example", SlotPro.AccountDataType())
	require.NoError(t, err)
	assert.NotNil(t, raw, "fallback slot must be the configured mode")
}

func TestGetHealsCorruptStoredData(t *testing.T) {
	store := accountdata.NewMemoryStore()
	classifier := &stubClassifier{insured: map[string]bool{}}
	engine := newTestEngine(t, store, classifier)
	ctx := context.Background()

	tests := []struct {
		name   string
		stored string
	}{
		{name: "empty object", stored: `{}`},
		{name: "mangled json", stored: `{"defaultSetting":`},
		{name: "unknown default", stored: `{"defaultSetting":"sometimes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := "@broken-" + tt.name + ":pract.example"
			require.NoError(t, store.PutGlobal(ctx, userID, SlotPro.AccountDataType(), json.RawMessage(tt.stored)))

			cfg, err := engine.Get(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, DefaultAllowAll, cfg.DefaultSetting)

			raw, err := store.GetGlobal(ctx, userID, SlotPro.AccountDataType())
			require.NoError(t, err)
			assert.JSONEq(t, `{"defaultSetting":"allow all"}`, string(raw), "reset must be persisted")
		})
	}
}

func TestGetKeepsValidStoredData(t *testing.T) {
	store := accountdata.NewMemoryStore()
	classifier := &stubClassifier{insured: map[string]bool{}}
	engine := newTestEngine(t, store, classifier)
	ctx := context.Background()

	stored := `{"defaultSetting":"block all","userExceptions":{"@friend:a.example":{}}}`
	require.NoError(t, store.PutGlobal(ctx, "@alice:pract.example", SlotPro.AccountDataType(), json.RawMessage(stored)))

	cfg, err := engine.Get(ctx, "@alice:pract.example")
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockAll, cfg.DefaultSetting)
	assert.Contains(t, cfg.UserExceptions, "@friend:a.example")
}

func TestUpdateRejectsInvalidConfig(t *testing.T) {
	store := accountdata.NewMemoryStore()
	classifier := &stubClassifier{insured: map[string]bool{}}
	engine := newTestEngine(t, store, classifier)

	err := engine.Update(context.Background(), "@alice:pract.example", Config{})
	require.Error(t, err)
}

func TestIsAllowedToContact(t *testing.T) {
	store := accountdata.NewMemoryStore()
	classifier := &stubClassifier{insured: map[string]bool{"kasse.example": true}}
	engine := newTestEngine(t, store, classifier)
	ctx := context.Background()

	require.NoError(t, engine.Update(ctx, "@alice:pract.example", Config{
		DefaultSetting:  DefaultAllowAll,
		GroupExceptions: []GroupException{{GroupName: GroupIsInsuredPerson}},
	}))

	allowed, err := engine.IsAllowedToContact(ctx, "@alice:pract.example", "@bob:kasse.example")
	require.NoError(t, err)
	assert.False(t, allowed, "insured remote is blocked by the group exception")

	allowed, err = engine.IsAllowedToContact(ctx, "@alice:pract.example", "@carol:pract2.example")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestConcurrentFirstAccessWritesIdenticalDefaults(t *testing.T) {
	store := accountdata.NewMemoryStore()
	classifier := &stubClassifier{insured: map[string]bool{}}
	engine := newTestEngine(t, store, classifier)
	ctx := context.Background()

	done := make(chan error, 8)
	for range 8 {
		go func() {
			_, err := engine.Get(ctx, "@raced:pract.example")
			done <- err
		}()
	}
	for range 8 {
		require.NoError(t, <-done)
	}

	raw, err := store.GetGlobal(ctx, "@raced:pract.example", SlotPro.AccountDataType())
	require.NoError(t, err)
	assert.JSONEq(t, `{"defaultSetting":"allow all"}`, string(raw))
}
