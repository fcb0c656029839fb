package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRHash_RoundTrip(t *testing.T) {
	SetQRSecret("test-secret")

	hash, err := GenerateQRHash("ORD-123456-7890")
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	assert.True(t, VerifyQRHash("ORD-123456-7890", hash))
}

func TestQRHash_Deterministic(t *testing.T) {
	SetQRSecret("test-secret")

	a, err := GenerateQRHash("ORD-123456-7890")
	require.NoError(t, err)
	b, err := GenerateQRHash("ORD-123456-7890")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestQRHash_MismatchFails(t *testing.T) {
	SetQRSecret("test-secret")

	hash, err := GenerateQRHash("ORD-123456-7890")
	require.NoError(t, err)

	assert.False(t, VerifyQRHash("ORD-000000-0000", hash))
	assert.False(t, VerifyQRHash("ORD-123456-7890", "not-a-hash"))
	assert.False(t, VerifyQRHash("ORD-123456-7890", ""))
	assert.False(t, VerifyQRHash("ORD-123456-7890", hash[:63]))
}

func TestQRHash_BoundToSecret(t *testing.T) {
	SetQRSecret("secret-one")
	hash, err := GenerateQRHash("ORD-123456-7890")
	require.NoError(t, err)

	SetQRSecret("secret-two")
	assert.False(t, VerifyQRHash("ORD-123456-7890", hash))
}

func TestQRHash_NoSecretFailsClosed(t *testing.T) {
	SetQRSecret("")

	_, err := GenerateQRHash("ORD-123456-7890")
	assert.Error(t, err)
	assert.False(t, VerifyQRHash("ORD-123456-7890", "anything"))
}
