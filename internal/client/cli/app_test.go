package cli

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-madiou/to-meet-yours/internal/client/api"
	"github.com/d-madiou/to-meet-yours/internal/client/config"
	"github.com/d-madiou/to-meet-yours/internal/client/metrics"
	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/client/navigation"
	"github.com/d-madiou/to-meet-yours/internal/client/storage"
	"github.com/d-madiou/to-meet-yours/internal/logging"
	"github.com/d-madiou/to-meet-yours/internal/mockapi"
	mockconfig "github.com/d-madiou/to-meet-yours/internal/mockapi/config"
)

const testPassword = "secret1"

type testApp struct {
	*App
	mock *mockapi.Server
	srv  *httptest.Server
	buf  *bytes.Buffer
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(string, io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

// newTestApp wires an App against an in-memory backend, reading user input
// from input, and boots it like Run does (without the REPL).
func newTestApp(t *testing.T, input string) *testApp {
	t.Helper()
	return newTestAppReader(t, strings.NewReader(input))
}

func newTestAppReader(t *testing.T, in io.Reader) *testApp {
	t.Helper()
	ctx := context.Background()

	mcfg := &mockconfig.Config{}
	mcfg.LoadDefaults()
	mcfg.InitialBalance = 0

	mock := mockapi.NewServer(mcfg, logging.NewNop())
	srv := httptest.NewServer(mock.Handler())
	t.Cleanup(srv.Close)

	db, err := storage.InitDatabase(ctx, filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := storage.NewStore(db)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PollInterval = 20 * time.Millisecond

	m := metrics.New()
	client := api.New(srv.URL+"/api", store, api.WithMetrics(m))

	buf := &bytes.Buffer{}
	a := newApp(ctx, cfg, client, store, logging.NewNop(), m, in, buf)
	t.Cleanup(a.Close)

	a.gate.Start()
	a.ctrl.CheckAuthSession(ctx)

	return &testApp{App: a, mock: mock, srv: srv, buf: buf}
}

func (ta *testApp) output() string {
	sw := ta.out.(*syncWriter)
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return ta.buf.String()
}

func (ta *testApp) seed(t *testing.T, email, username string) *models.User {
	t.Helper()
	u, err := ta.mock.SeedUser(email, username, testPassword)
	require.NoError(t, err)
	return u
}

func TestApp_BootsToLoginWithoutSession(t *testing.T) {
	ta := newTestApp(t, "")

	require.False(t, ta.isLoggedIn())
	require.Equal(t, navigation.LoginRoute, ta.nav.Current())
	require.Contains(t, ta.output(), "-> /(auth)/login")
}

func TestApp_RegisterMovesToProfileCompletion(t *testing.T) {
	stubPassword(t, testPassword)
	ta := newTestApp(t, "ana@example.org\nana\n")

	require.NoError(t, ta.Register(context.Background()))

	require.True(t, ta.isLoggedIn())
	require.Equal(t, navigation.CompleteProfileRoute, ta.nav.Current())
	require.Contains(t, ta.output(), "Welcome, ana!")
	require.Contains(t, ta.status(), "ana ")
}

func TestApp_RegisterShowsFieldError(t *testing.T) {
	stubPassword(t, testPassword)
	ta := newTestApp(t, "taken@example.org\nana\n")
	ta.seed(t, "taken@example.org", "someone")

	require.Error(t, ta.Register(context.Background()))
	require.False(t, ta.isLoggedIn())
	require.Contains(t, ta.output(), "Error: Email: ")
}

func TestApp_LoginFailureShowsServerMessage(t *testing.T) {
	stubPassword(t, "wrong-password")
	ta := newTestApp(t, "ana@example.org\n")
	ta.seed(t, "ana@example.org", "ana")

	require.Error(t, ta.Login(context.Background()))
	require.False(t, ta.isLoggedIn())
	require.Contains(t, ta.output(), "Error: Invalid email or password")
	require.Equal(t, navigation.LoginRoute, ta.nav.Current())
}

func TestApp_EditProfileCompletesOnboarding(t *testing.T) {
	stubPassword(t, testPassword)
	// login, then: bio, birth date, gender, city, country, goal, looking for, distance
	ta := newTestApp(t, "ana@example.org\nLoves hiking\n\nfemale\nConakry\nGuinea\n\n\n\n")
	ta.seed(t, "ana@example.org", "ana")
	ctx := context.Background()

	require.NoError(t, ta.Login(ctx))
	require.Equal(t, navigation.CompleteProfileRoute, ta.nav.Current())

	require.NoError(t, ta.EditProfile(ctx))

	require.Equal(t, navigation.MainRoute, ta.nav.Current())
	require.True(t, ta.ctrl.State().IsProfileComplete)
	require.Contains(t, ta.output(), "Completion: 70% (complete)")
}

func TestApp_SessionRestoredOnRestart(t *testing.T) {
	stubPassword(t, testPassword)
	ta := newTestApp(t, "ana@example.org\n")
	ta.seed(t, "ana@example.org", "ana")
	ctx := context.Background()
	require.NoError(t, ta.Login(ctx))

	// the stored session survives a state reset, as after a restart
	ta.ctrl.HandleSessionCleared()
	require.False(t, ta.isLoggedIn())
	ta.ctrl.CheckAuthSession(ctx)
	require.True(t, ta.isLoggedIn())
}

func TestApp_WhoAmIFallsBackToCacheWhenOffline(t *testing.T) {
	stubPassword(t, testPassword)
	ta := newTestApp(t, "ana@example.org\n")
	ta.seed(t, "ana@example.org", "ana")
	ctx := context.Background()
	require.NoError(t, ta.Login(ctx))

	require.NoError(t, ta.WhoAmI(ctx))
	require.Contains(t, ta.output(), "ana <ana@example.org> uuid=")

	ta.srv.Close()
	require.NoError(t, ta.WhoAmI(ctx))
	require.Contains(t, ta.output(), "ana <ana@example.org> (offline, cached)")
	require.True(t, ta.isLoggedIn(), "network failure must not log the user out")
}

func TestApp_RejectedTokenLogsOut(t *testing.T) {
	stubPassword(t, testPassword)
	ta := newTestApp(t, "ana@example.org\n")
	ta.seed(t, "ana@example.org", "ana")
	ctx := context.Background()
	require.NoError(t, ta.Login(ctx))

	require.NoError(t, ta.client.SetToken(ctx, "not-a-token"))
	require.Error(t, ta.WhoAmI(ctx))

	require.False(t, ta.isLoggedIn())
	token, err := ta.client.GetToken(ctx)
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestApp_ComposeStopsAtInsufficientFunds(t *testing.T) {
	stubPassword(t, testPassword)
	ta := newTestApp(t, "ana@example.org\nhi 1\nhi 2\n   \nhi 3\nhi 4\n/back\n")
	ta.seed(t, "ana@example.org", "ana")
	bob := ta.seed(t, "bob@example.org", "bob")
	ctx := context.Background()
	require.NoError(t, ta.Login(ctx))

	require.NoError(t, ta.Compose(ctx, bob.UUID))

	out := ta.output()
	assert.Contains(t, out, "Next message is free (3 of 3 free left today)")
	assert.Contains(t, out, "you: hi 1")
	assert.Contains(t, out, "you: hi 3")
	assert.Contains(t, out, insufficientFundsHint)
	assert.NotContains(t, out, "you: hi 4")
	assert.Contains(t, out, "Unsent: hi 4 (type /retry to send it again)")

	conv, err := ta.messaging.GetConversationWithUser(ctx, bob.UUID)
	require.NoError(t, err)
	require.NotNil(t, conv)
	msgs, err := ta.messaging.GetConversationMessages(ctx, conv.Key())
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	require.NotEqual(t, "chat/bob", ta.nav.Current().Screen, "/back leaves the chat screen")
}

// lineReader hands out one line per Read and runs the hook registered for a
// line just before handing it out.
type lineReader struct {
	lines  []string
	before map[int]func()
	next   int
}

func (r *lineReader) Read(p []byte) (int, error) {
	if r.next >= len(r.lines) {
		return 0, io.EOF
	}
	if fn := r.before[r.next]; fn != nil {
		fn()
	}
	n := copy(p, r.lines[r.next]+"\n")
	r.next++
	return n, nil
}

func TestApp_ServerRejectedSendShowsDraftAndRetries(t *testing.T) {
	stubPassword(t, testPassword)
	in := &lineReader{lines: []string{"ana@example.org", "hi 1", "hi 2", "hi 3", "hi 4", "/retry", "/back"}}
	ta := newTestAppReader(t, in)
	ana := ta.seed(t, "ana@example.org", "ana")
	bob := ta.seed(t, "bob@example.org", "bob")
	ctx := context.Background()

	require.NoError(t, ta.mock.SetBalance(ana.UUID, 10))
	// the thread still believes it has 10 coins when the server sees none
	in.before = map[int]func(){
		4: func() { require.NoError(t, ta.mock.SetBalance(ana.UUID, 0)) },
		5: func() { require.NoError(t, ta.mock.SetBalance(ana.UUID, 10)) },
	}
	require.NoError(t, ta.Login(ctx))

	require.NoError(t, ta.Compose(ctx, bob.UUID))

	out := ta.output()
	assert.Contains(t, out, "you: hi 4 (sending...)")
	assert.Contains(t, out, insufficientFundsHint)
	assert.Contains(t, out, "Unsent: hi 4 (type /retry to send it again)")
	assert.Contains(t, out, "you: hi 4\n")

	conv, err := ta.messaging.GetConversationWithUser(ctx, bob.UUID)
	require.NoError(t, err)
	require.NotNil(t, conv)
	msgs, err := ta.messaging.GetConversationMessages(ctx, conv.Key())
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "hi 4", msgs[0].Content)
}

func TestApp_OpenShowsIncomingMessages(t *testing.T) {
	stubPassword(t, testPassword)
	ta := newTestApp(t, "ana@example.org\n")
	ana := ta.seed(t, "ana@example.org", "ana")
	bob := ta.seed(t, "bob@example.org", "bob")
	ctx := context.Background()
	require.NoError(t, ta.Login(ctx))

	_, err := ta.mock.SendAs(bob.UUID, ana.UUID, "hey ana")
	require.NoError(t, err)

	require.NoError(t, ta.Conversations(ctx))
	require.Contains(t, ta.output(), "bob (1 unread)  hey ana")

	require.NoError(t, ta.Open(ctx, "bob"))
	require.Contains(t, ta.output(), "bob: hey ana")

	require.NoError(t, ta.Unread(ctx))
	require.Contains(t, ta.output(), "Unread messages: 0")

	require.NoError(t, ta.Open(ctx, "carol"))
	require.Contains(t, ta.output(), "No conversation with carol")
}

func TestApp_BuyAndWallet(t *testing.T) {
	stubPassword(t, testPassword)
	ta := newTestApp(t, "ana@example.org\n")
	ta.seed(t, "ana@example.org", "ana")
	ctx := context.Background()
	require.NoError(t, ta.Login(ctx))

	require.Error(t, ta.Buy(ctx, "-3"))
	require.NoError(t, ta.Buy(ctx, "25"))
	require.NoError(t, ta.Wallet(ctx))

	out := ta.output()
	require.Contains(t, out, "Amount must be a positive number")
	require.Contains(t, out, "Purchased 25 coins. Balance: 25 coins")
	require.Contains(t, out, "Balance: 25 coins (earned 0, spent 0, purchased 25)")
}

func TestApp_DeviceRegisteredAndTapRoutes(t *testing.T) {
	stubPassword(t, testPassword)
	ta := newTestApp(t, "ana@example.org\n")
	ana := ta.seed(t, "ana@example.org", "ana")
	ctx := context.Background()
	require.NoError(t, ta.Login(ctx))

	devices := ta.mock.Devices(ana.UUID)
	require.Len(t, devices, 1)
	require.Equal(t, "cli", devices[0].Platform)

	require.NoError(t, ta.Notify(ctx, "match"))
	require.Equal(t, navigation.MatchesRoute, ta.nav.Current())

	require.NoError(t, ta.Notify(ctx, "message"))
	require.Equal(t, navigation.MessagesRoute, ta.nav.Current())

	require.Error(t, ta.Notify(ctx, "poke"))
}

func TestApp_LogoutReturnsToLogin(t *testing.T) {
	stubPassword(t, testPassword)
	ta := newTestApp(t, "ana@example.org\nLoves hiking\n\nfemale\nConakry\nGuinea\n\n\n\n")
	ta.seed(t, "ana@example.org", "ana")
	ctx := context.Background()
	require.NoError(t, ta.Login(ctx))
	require.NoError(t, ta.EditProfile(ctx))
	require.Equal(t, navigation.MainRoute, ta.nav.Current())

	require.NoError(t, ta.Logout(ctx))

	require.False(t, ta.isLoggedIn())
	require.Equal(t, navigation.LoginRoute, ta.nav.Current())
}

func TestNewLogger(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()

	var buf bytes.Buffer
	_, ok := newLogger(c, &buf).(*logging.ZerologLogger)
	require.True(t, ok)

	c.LogBackend = config.LogBackendSlog
	c.LogLevel = "nonsense"
	l, ok := newLogger(c, &buf).(*logging.SlogLogger)
	require.True(t, ok)
	l.Info(context.Background(), "hello")
	require.Contains(t, buf.String(), "hello")
}

func TestNewApp_CreatesDatabaseDirectory(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "nested", "session.db")
	cfg.LogLevel = "error"

	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	_, err = os.Stat(cfg.DatabasePath)
	require.NoError(t, err)
	require.False(t, a.isLoggedIn())
}
