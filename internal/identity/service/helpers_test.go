package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/expressmart/identity/internal/identity/domain"
	"github.com/expressmart/identity/internal/identity/notify"
	"github.com/expressmart/identity/internal/identity/service"
	"github.com/expressmart/identity/internal/identity/store"
	"github.com/expressmart/identity/internal/identity/store/drivers/sqlite"
	"github.com/expressmart/identity/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a file-backed sqlite database in a temp dir. A real
// file rather than :memory: so concurrent access behaves like production.
func newTestStore(t *testing.T) store.Store {
	t.Helper()

	cryptox.SetPepperPath(t.TempDir() + "/pepper")

	s, err := sqlite.NewStore("file:" + t.TempDir() + "/identity.db?_busy_timeout=5000")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

// recordingSender captures notifications for assertions.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentNotification
}

type sentNotification struct {
	Kind       notify.Kind
	Recipients []string
	Data       map[string]any
}

func (r *recordingSender) Send(ctx context.Context, kind notify.Kind, recipients []string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{Kind: kind, Recipients: recipients, Data: data})
	return nil
}

// waitFor polls until the condition holds or the deadline passes. Used for
// the post-commit notification goroutines.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Fail(t, "condition never became true")
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recordingSender) last() sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bootstrapAdmin seeds an admin account directly through the service layer.
func bootstrapAdmin(t *testing.T, s store.Store) domain.User {
	t.Helper()

	bs := &service.BootstrapService{Store: s, Token: "bootstrap-secret"}
	admin, err := bs.Bootstrap(context.Background(), "bootstrap-secret",
		"admin@example.com", "Ada", "Admin", "correct horse battery staple")
	require.NoError(t, err)
	return admin
}
