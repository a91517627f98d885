package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewListDeduplicatesDomains(t *testing.T) {
	list := NewList([]Domain{
		{Domain: "dup.example", TelematikID: "1"},
		{Domain: "dup.example", TelematikID: "2"},
		{Domain: "kasse.example", TelematikID: "3", IsInsurance: true},
	})

	assert.Equal(t, 3, list.Len(), "raw entries keep duplicates")
	assert.True(t, list.Allowed("dup.example"))
	assert.True(t, list.Allowed("kasse.example"))
	assert.True(t, list.IsInsurance("kasse.example"))
	assert.False(t, list.IsInsurance("dup.example"))
}

func TestEmptyListDeniesEverything(t *testing.T) {
	list := NewList(nil)
	assert.False(t, list.Allowed("anything.example"))
	assert.False(t, list.IsInsurance("anything.example"))
}
