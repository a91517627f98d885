package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-secret", "timgate")

	token, err := svc.GenerateToken("@doc:pro.example", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "@doc:pro.example", claims.UserID)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewService("test-secret", "timgate")

	token, err := svc.GenerateToken("@doc:pro.example", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateRejectsWrongKey(t *testing.T) {
	svc := NewService("test-secret", "timgate")
	other := NewService("other-secret", "timgate")

	token, err := svc.GenerateToken("@doc:pro.example", time.Hour)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewService("test-secret", "timgate")

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
