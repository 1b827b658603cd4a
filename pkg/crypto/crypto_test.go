package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adiwibawa/emailgate/pkg/crypto"
)

func TestGenerateToken(t *testing.T) {
	token, err := crypto.GenerateToken(48)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotContains(t, token, "+")
	require.NotContains(t, token, "/")
	require.NotContains(t, token, "=")

	other, err := crypto.GenerateToken(48)
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}

func TestHashToken(t *testing.T) {
	hash := crypto.HashToken("abc")
	require.Len(t, hash, 64)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", hash)
	require.Equal(t, hash, crypto.HashToken("abc"))
	require.NotEqual(t, hash, crypto.HashToken("abd"))
}

func TestSecureCompare(t *testing.T) {
	require.True(t, crypto.SecureCompare("same", "same"))
	require.False(t, crypto.SecureCompare("same", "different"))
	require.False(t, crypto.SecureCompare("same", "sam"))
	require.True(t, crypto.SecureCompare("", ""))
}
