package identity_test

import (
	"testing"

	"github.com/expressmart/identity/pkg/identitysdk"
	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check works before bootstrap.
func TestLivezEndpoint(t *testing.T) {
	baseURL, _, cleanup := setupIdentityContainer(t)
	defer cleanup()

	client := identitysdk.NewClient(baseURL)

	health, err := client.Livez(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)

	t.Logf("Livez endpoint is healthy")
}

// TestReadyzEndpoint verifies the readiness check works before bootstrap.
func TestReadyzEndpoint(t *testing.T) {
	baseURL, _, cleanup := setupIdentityContainer(t)
	defer cleanup()

	client := identitysdk.NewClient(baseURL)

	health, err := client.Readyz(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
	require.Equal(t, "ok", health.Checks.Keys)

	t.Logf("Readyz endpoint is healthy")
}

// TestJWKSEndpoint verifies public signing keys are served before bootstrap.
func TestJWKSEndpoint(t *testing.T) {
	baseURL, _, cleanup := setupIdentityContainer(t)
	defer cleanup()

	client := identitysdk.NewClient(baseURL)

	jwks, err := client.JWKS(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, jwks.Keys, "JWKS should contain at least one key")

	for _, key := range jwks.Keys {
		require.Equal(t, "OKP", key.Kty)
		require.Equal(t, "Ed25519", key.Crv)
		require.NotEmpty(t, key.Kid)
		t.Logf("Key ID: %s, Algorithm: %s, Use: %s", key.Kid, key.Alg, key.Use)
	}
}
