package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		_, err := GenerateToken(0)
		require.Error(t, err)
		_, err = GenerateToken(-1)
		require.Error(t, err)
	})

	t.Run("produces url-safe tokens of expected entropy", func(t *testing.T) {
		tok, err := GenerateToken(TokenSize128)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(tok)
		require.NoError(t, err)
		require.Len(t, raw, TokenSize128)
	})

	t.Run("tokens do not repeat", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 100 {
			tok, err := GenerateToken(TokenSize128)
			require.NoError(t, err)
			_, dup := seen[tok]
			require.False(t, dup)
			seen[tok] = struct{}{}
		}
	})
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	require.Equal(t, FingerprintToken("abc"), FingerprintToken("abc"))
	require.NotEqual(t, FingerprintToken("abc"), FingerprintToken("abd"))
	require.Len(t, FingerprintToken("abc"), 43) // 32 bytes base64url, no padding
}
