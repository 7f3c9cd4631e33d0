package identity_test

import (
	"net/http"
	"testing"

	"github.com/expressmart/identity/pkg/identitysdk"
)

// TestBootstrapSuccess verifies bootstrap creates the first admin account.
func TestBootstrapSuccess(t *testing.T) {
	baseURL, _, cleanup := setupIdentityContainer(t)
	defer cleanup()

	client := identitysdk.NewClient(baseURL)

	admin := bootstrapAdmin(t, client)

	t.Logf("Bootstrap successful, admin user ID: %s", admin.ID)
}

// TestBootstrapOnlyOnce verifies bootstrap is rejected once a user exists.
func TestBootstrapOnlyOnce(t *testing.T) {
	baseURL, _, cleanup := setupIdentityContainer(t)
	defer cleanup()

	client := identitysdk.NewClient(baseURL)

	bootstrapAdmin(t, client)

	_, err := client.Bootstrap(t.Context(), identitysdk.BootstrapRequest{
		Token:     bootstrapToken,
		Email:     "second-admin@expressmart.example",
		FirstName: "Second",
		LastName:  "Admin",
		Password:  "AnotherPassword123!",
	})
	assertAPIError(t, err, http.StatusConflict, "Second bootstrap should be rejected")

	t.Logf("Second bootstrap correctly rejected")
}

// TestBootstrapWrongToken verifies the shared secret is enforced.
func TestBootstrapWrongToken(t *testing.T) {
	baseURL, _, cleanup := setupIdentityContainer(t)
	defer cleanup()

	client := identitysdk.NewClient(baseURL)

	_, err := client.Bootstrap(t.Context(), identitysdk.BootstrapRequest{
		Token:     "not-the-configured-token",
		Email:     adminEmail,
		FirstName: adminFirstName,
		LastName:  adminLastName,
		Password:  adminPassword,
	})
	assertAPIError(t, err, http.StatusUnauthorized, "Bootstrap with wrong token should be rejected")
}
