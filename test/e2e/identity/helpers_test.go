package identity_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"testing"
	"time"

	"github.com/expressmart/identity/pkg/identitysdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for identity service end-to-end
 * tests. This includes container setup, bootstrap and token capture.
 */

const (
	testImageName = "expressmart-identity-test:latest"

	bootstrapToken = "test-bootstrap-token-12345"
	adminEmail     = "admin@expressmart.example"
	adminFirstName = "Ada"
	adminLastName  = "Admin"
	adminPassword  = "Admin123!secret"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Identity Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Identity Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/identity/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupIdentityContainer starts the identity service in a container and
// returns the base URL plus the running container for log inspection.
// Without an SMTP host the service logs notifications, which is how the
// tests capture invitation and reset links.
func setupIdentityContainer(t *testing.T) (string, testcontainers.Container, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"BOOTSTRAP_TOKEN":        bootstrapToken,
			"IDENTITY_DATABASE_FILE": "/identity.db",
			"IDENTITY_PEPPER_FILE":   "/pepper",
			"IDENTITY_ISSUER":        "expressmart-identity-test",
			"IDENTITY_BASE_URL":      "http://localhost:8080",
			"ENV":                    "test",
			"LOG_LEVEL":              "info",
			"LOG_FORMAT":             "json",
			// Relaxed rate limits so rapid test traffic does not trip the
			// strict production profiles.
			"RATELIMIT_STRICT_REQUESTS":   "1000",
			"RATELIMIT_STRICT_WINDOW_SEC": "60",
			"RATELIMIT_STRICT_BURST":      "1000",
			"RATELIMIT_MODERATE_REQUESTS": "1000",
			"RATELIMIT_MODERATE_BURST":    "1000",
		},
		WaitingFor: wait.ForHTTP("/readyz").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, container, cleanup
}

// bootstrapAdmin creates the first admin account and returns its profile.
func bootstrapAdmin(t *testing.T, client *identitysdk.Client) identitysdk.UserResponse {
	t.Helper()

	admin, err := client.Bootstrap(t.Context(), identitysdk.BootstrapRequest{
		Token:     bootstrapToken,
		Email:     adminEmail,
		FirstName: adminFirstName,
		LastName:  adminLastName,
		Password:  adminPassword,
	})
	require.NoError(t, err, "Bootstrap should succeed")
	require.NotEmpty(t, admin.ID)
	require.Equal(t, "admin", admin.Role)

	return admin
}

// adminSession bootstraps the service and logs the admin in.
func adminSession(t *testing.T, client *identitysdk.Client) identitysdk.TokenResponse {
	t.Helper()

	bootstrapAdmin(t, client)

	tokens, err := client.PasswordGrant(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err, "Admin login should succeed")
	require.NotEmpty(t, tokens.AccessToken)

	return tokens
}

// tokenFromLogs scrapes the container log for the most recent link of the
// given path and returns its token query parameter. Notifications are sent
// asynchronously after the HTTP response, so this polls briefly.
func tokenFromLogs(t *testing.T, container testcontainers.Container, linkPath string) string {
	t.Helper()
	ctx := context.Background()

	re := regexp.MustCompile(regexp.QuoteMeta(linkPath) + `\?token=([A-Za-z0-9_-]+)`)

	var token string
	require.Eventually(t, func() bool {
		rc, err := container.Logs(ctx)
		if err != nil {
			return false
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return false
		}

		matches := re.FindAllStringSubmatch(string(data), -1)
		if len(matches) == 0 {
			return false
		}
		token = matches[len(matches)-1][1]
		return true
	}, 10*time.Second, 250*time.Millisecond, "expected a %s link in the service log", linkPath)

	return token
}

// assertAPIError checks that err is an APIError with the given status code.
func assertAPIError(t *testing.T, err error, status int, context string) {
	t.Helper()
	require.Error(t, err, context)

	var apiErr *identitysdk.APIError
	require.ErrorAs(t, err, &apiErr, context)
	require.Equal(t, status, apiErr.StatusCode, context)
}
