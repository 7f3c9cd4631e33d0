package notify_test

import (
	"testing"

	"github.com/expressmart/identity/internal/identity/notify"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Run("invitation", func(t *testing.T) {
		subject, body, err := notify.Render(notify.KindInvitation, map[string]any{
			"Role":      "sales",
			"Link":      "https://dashboard.example.com/invitations/accept?token=abc",
			"ExpiresAt": "2026-01-01T10:20:00Z",
		})
		require.NoError(t, err)
		require.NotEmpty(t, subject)
		require.Contains(t, body, "sales")
		require.Contains(t, body, "token=abc")
	})

	t.Run("admin reset request", func(t *testing.T) {
		subject, body, err := notify.Render(notify.KindAdminResetRequest, map[string]any{
			"UserEmail": "bob@example.com",
			"ExpiresAt": "2026-01-01T10:20:00Z",
		})
		require.NoError(t, err)
		require.Contains(t, subject, "reset")
		require.Contains(t, body, "bob@example.com")
	})

	t.Run("reset approved", func(t *testing.T) {
		_, body, err := notify.Render(notify.KindResetApproved, map[string]any{
			"Link":      "https://dashboard.example.com/reset?token=xyz",
			"ExpiresAt": "2026-01-01T10:20:00Z",
		})
		require.NoError(t, err)
		require.Contains(t, body, "token=xyz")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, _, err := notify.Render(notify.Kind("bogus"), nil)
		require.Error(t, err)
	})

	t.Run("escapes html in data", func(t *testing.T) {
		_, body, err := notify.Render(notify.KindAdminResetRequest, map[string]any{
			"UserEmail": "<script>alert(1)</script>",
			"ExpiresAt": "2026-01-01T10:20:00Z",
		})
		require.NoError(t, err)
		require.NotContains(t, body, "<script>")
	})
}
