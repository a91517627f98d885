package federation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves scripted lists and records fetch/invalidate traffic.
type fakeSource struct {
	lists       []*List
	err         error
	fetches     int
	invalidates int
}

func (s *fakeSource) Fetch(context.Context) (*List, error) {
	if s.err != nil {
		return nil, s.err
	}
	idx := s.fetches
	if idx >= len(s.lists) {
		idx = len(s.lists) - 1
	}
	s.fetches++
	return s.lists[idx], nil
}

func (s *fakeSource) Invalidate() { s.invalidates++ }

func TestClassifierHitNeedsOneFetch(t *testing.T) {
	source := &fakeSource{lists: []*List{NewList([]Domain{{Domain: "a.example"}})}}
	c := NewClassifier(source)

	ok, err := c.IsAllowed(context.Background(), "a.example")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, source.fetches)
	assert.Equal(t, 0, source.invalidates)
}

func TestClassifierMissGetsOneFreshLook(t *testing.T) {
	stale := NewList([]Domain{{Domain: "old.example"}})
	fresh := NewList([]Domain{{Domain: "old.example"}, {Domain: "new.example"}})
	source := &fakeSource{lists: []*List{stale, fresh}}
	c := NewClassifier(source)

	ok, err := c.IsAllowed(context.Background(), "new.example")
	require.NoError(t, err)
	assert.True(t, ok, "domain present on the fresh list must be admitted")
	assert.Equal(t, 2, source.fetches)
	assert.Equal(t, 1, source.invalidates)
}

func TestClassifierMissStaysNegativeAfterRetry(t *testing.T) {
	list := NewList([]Domain{{Domain: "only.example"}})
	source := &fakeSource{lists: []*List{list, list}}
	c := NewClassifier(source)

	ok, err := c.IsAllowed(context.Background(), "absent.example")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, source.fetches, "exactly one retry on a miss")
	assert.Equal(t, 1, source.invalidates)
}

func TestClassifierInsuranceRetries(t *testing.T) {
	stale := NewList([]Domain{{Domain: "kasse.example"}})
	fresh := NewList([]Domain{{Domain: "kasse.example", IsInsurance: true}})
	source := &fakeSource{lists: []*List{stale, fresh}}
	c := NewClassifier(source)

	ok, err := c.IsInsurance(context.Background(), "kasse.example")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClassifierPropagatesFetchFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("boom")}
	c := NewClassifier(source)

	_, err := c.IsAllowed(context.Background(), "a.example")
	require.Error(t, err, "the predicate must not fail open")
}
