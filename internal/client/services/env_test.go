package services

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/d-madiou/to-meet-yours/internal/client/api"
	"github.com/d-madiou/to-meet-yours/internal/client/metrics"
	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/client/storage"
	"github.com/d-madiou/to-meet-yours/internal/logging"
	"github.com/d-madiou/to-meet-yours/internal/mockapi"
	"github.com/d-madiou/to-meet-yours/internal/mockapi/config"
)

type env struct {
	mock    *mockapi.Server
	srv     *httptest.Server
	store   *storage.Store
	client  *api.Client
	metrics *metrics.Metrics

	auth      AuthService
	profile   ProfileService
	messaging MessagingService
}

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	db, err := storage.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewStore(db)
}

func newEnv(t *testing.T, opts ...MessagingOption) *env {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.InitialBalance = 0

	mock := mockapi.NewServer(cfg, logging.NewNop())
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	e := &env{mock: mock, srv: srv, store: newStore(t), metrics: metrics.New()}
	e.client = api.New(srv.URL+"/api", e.store, api.WithMetrics(e.metrics))
	e.auth = NewAuthService(e.client, logging.NewNop())
	e.profile = NewProfileService(e.client)
	opts = append([]MessagingOption{WithMessagingMetrics(e.metrics)}, opts...)
	e.messaging = NewMessagingService(e.client, logging.NewNop(), opts...)
	return e
}

// seed creates an account and returns it.
func (e *env) seed(t *testing.T, email, username string) *models.User {
	t.Helper()
	u, err := e.mock.SeedUser(email, username, "secret1")
	require.NoError(t, err)
	return u
}

// loginAs seeds an account and logs the client in as it.
func (e *env) loginAs(t *testing.T, email, username string) *models.User {
	t.Helper()
	u := e.seed(t, email, username)
	_, err := e.auth.Login(context.Background(), models.LoginRequest{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return u
}
