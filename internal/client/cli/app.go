package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/d-madiou/to-meet-yours/internal/client/api"
	"github.com/d-madiou/to-meet-yours/internal/client/authstate"
	"github.com/d-madiou/to-meet-yours/internal/client/config"
	"github.com/d-madiou/to-meet-yours/internal/client/metrics"
	"github.com/d-madiou/to-meet-yours/internal/client/navigation"
	"github.com/d-madiou/to-meet-yours/internal/client/services"
	"github.com/d-madiou/to-meet-yours/internal/client/storage"
	"github.com/d-madiou/to-meet-yours/internal/filex"
	"github.com/d-madiou/to-meet-yours/internal/logging"
)

type App struct {
	config  *config.Config
	log     logging.Logger
	metrics *metrics.Metrics
	db      *sql.DB
	client  *api.Client

	auth          services.AuthService
	profiles      services.ProfileService
	messaging     services.MessagingService
	notifications services.NotificationService

	ctrl *authstate.Controller
	gate *navigation.Gate
	nav  *screenNavigator

	reader *bufio.Reader
	out    io.Writer

	unsubscribe func()
}

// NewApp opens the session database and wires every client component from c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	path, err := filex.EnsureParentDir(c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error preparing database directory: %w", err)
	}

	db, err := storage.InitDatabase(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	log := newLogger(c, os.Stderr)
	m := metrics.New()
	store := storage.NewStore(db)
	client := api.New(c.ServerBaseURL, store,
		api.WithTimeout(c.RequestTimeout),
		api.WithLogger(log),
		api.WithMetrics(m),
		api.WithSessionTTL(c.SessionTTL),
	)

	a := newApp(ctx, c, client, store, log, m, os.Stdin, os.Stdout)
	a.db = db
	return a, nil
}

func newApp(ctx context.Context, c *config.Config, client *api.Client, tokens services.DeviceTokenSource,
	log logging.Logger, m *metrics.Metrics, in io.Reader, out io.Writer) *App {
	out = &syncWriter{w: out}

	a := &App{
		config:  c,
		log:     log,
		metrics: m,
		client:  client,
		reader:  bufio.NewReader(in),
		out:     out,
	}

	a.auth = services.NewAuthService(client, log)
	a.profiles = services.NewProfileService(client)
	a.messaging = services.NewMessagingService(client, log,
		services.WithCostCheckFailOpen(c.CostCheckFailOpen),
		services.WithMessagingMetrics(m),
	)
	a.notifications = services.NewNotificationService(client, tokens, c.DevicePlatform, log)

	a.ctrl = authstate.NewController(a.auth, a.profiles, log)
	a.nav = newScreenNavigator(out)
	a.gate = navigation.NewGate(ctx, a.ctrl, a.nav, a.notifications, log)
	a.unsubscribe = client.OnSessionCleared(a.ctrl.HandleSessionCleared)

	return a
}

// newLogger builds the configured backend writing to w. Unknown levels fall
// back to info.
func newLogger(c *config.Config, w io.Writer) logging.Logger {
	if c.LogBackend == config.LogBackendSlog {
		var level slog.Level
		if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
			level = slog.LevelInfo
		}
		return logging.NewSlogText(w, level)
	}

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logging.NewZerologConsole(w, level)
}

// Run restores the session, starts the gate and blocks in the REPL until the
// user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	stopMetrics := a.serveMetrics(ctx)
	defer stopMetrics()

	fmt.Fprintln(a.out, "Welcome to to-meet-yours CLI (type 'help' for commands)")

	a.gate.Start()
	a.ctrl.CheckAuthSession(ctx)

	runREPL(ctx, a, a.status, a.reader)
}

// Close stops the gate and releases the database.
func (a *App) Close() {
	a.gate.Close()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// serveMetrics exposes /metrics when MetricsAddr is set and returns a func
// that shuts the listener down.
func (a *App) serveMetrics(ctx context.Context) func() {
	if a.config.MetricsAddr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: a.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error(ctx, "metrics server failed", "addr", a.config.MetricsAddr, "error", err)
		}
	}()
	a.log.Info(ctx, "metrics endpoint started", "addr", a.config.MetricsAddr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

func (a *App) isLoggedIn() bool {
	return a.ctrl.State().IsAuthenticated
}

// status renders the prompt prefix: the cached username and the screen.
func (a *App) status() string {
	s := a.nav.Current().String()
	if !a.isLoggedIn() {
		return s
	}
	if u, err := a.auth.CachedUser(context.Background()); err == nil && u != nil {
		s = u.Username + " " + s
	}
	return s
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// printError shows the user-facing text of err.
func (a *App) printError(err error) {
	a.println("Error:", err.Error())
}
