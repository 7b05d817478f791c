package cli

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalds/AntigravityManager/internal/accounts"
	"github.com/lalds/AntigravityManager/internal/aliases"
	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/config"
	"github.com/lalds/AntigravityManager/internal/envelope"
	"github.com/lalds/AntigravityManager/internal/googleapi"
	"github.com/lalds/AntigravityManager/internal/logging"
	"github.com/lalds/AntigravityManager/internal/statestore"
	"github.com/lalds/AntigravityManager/internal/switcher"
	"github.com/lalds/AntigravityManager/internal/tokens"
)

// ------------ helpers ------------

func readerFromLines(lines ...string) *bufio.Reader {
	if len(lines) == 0 || lines[len(lines)-1] != "" {
		lines = append(lines, "")
	}
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
}

type staticKeys struct{ key []byte }

func (s staticKeys) Resolve(ctx context.Context) ([]byte, error) { return s.key, nil }

type fakeSwitcher struct {
	result  *switcher.Result
	err     error
	pattern string
}

func (f *fakeSwitcher) Switch(ctx context.Context, pattern string) (*switcher.Result, error) {
	f.pattern = pattern
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type testApp struct {
	app *App
	db  *sql.DB
	key []byte
	out *bytes.Buffer
	sw  *fakeSwitcher
	api *googleapi.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := accounts.OpenDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	key := common.GenerateRandByteArray(32)
	log := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	store := accounts.NewStore(db, staticKeys{key: key}, log)
	api := googleapi.NewClient(time.Second, log)

	out := &bytes.Buffer{}
	sw := &fakeSwitcher{result: &switcher.Result{State: switcher.StateDone, Killed: 1}}

	cfg := &config.Config{}
	cfg.LoadDefaults()

	app := &App{
		config:    cfg,
		db:        db,
		store:     store,
		aliases:   aliases.NewStore(filepath.Join(t.TempDir(), "aliases.json")),
		api:       api,
		lifecycle: tokens.NewLifecycle(store, api, log),
		orch:      sw,
		openState: statestore.Open,
		reader:    readerFromLines(),
		out:       out,
		log:       log,
	}
	return &testApp{app: app, db: db, key: key, out: out, sw: sw, api: api}
}

func (ta *testApp) seed(t *testing.T, email, name string, tok *accounts.Token, quota *accounts.Quota) {
	t.Helper()
	rec := accounts.Record{Email: email, Name: name}
	if tok != nil {
		payload, err := json.Marshal(tok)
		require.NoError(t, err)
		rec.TokenCipher, err = envelope.Encrypt(string(payload), ta.key)
		require.NoError(t, err)
	}
	if quota != nil {
		payload, err := json.Marshal(quota)
		require.NoError(t, err)
		rec.QuotaCipher, err = envelope.Encrypt(string(payload), ta.key)
		require.NoError(t, err)
	}
	require.NoError(t, accounts.NewSQLiteRepository(ta.db).Insert(context.Background(), &rec))
}

func validToken() *accounts.Token {
	return &accounts.Token{
		AccessToken:       "ya29.at",
		RefreshToken:      "1//rt",
		ExpiryTimestampMS: time.Now().Add(time.Hour).UnixMilli(),
	}
}

// ------------ commands ------------

func TestList(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "alice@example.com", "Alice", validToken(), &accounts.Quota{
		Models: map[string]accounts.ModelQuota{"gemini-3-pro": {Percentage: 73}},
	})
	ta.seed(t, "bob@example.com", "Bob", &accounts.Token{
		AccessToken: "x", RefreshToken: "y", ExpiryTimestampMS: 1,
	}, nil)

	require.NoError(t, ta.app.List(context.Background()))

	got := ta.out.String()
	assert.Contains(t, got, "alice@example.com")
	assert.Contains(t, got, "valid")
	assert.Contains(t, got, "73%")
	assert.Contains(t, got, "bob@example.com")
	assert.Contains(t, got, "expired")
}

func TestList_Empty(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.app.List(context.Background()))
	assert.Contains(t, ta.out.String(), "No accounts")
}

func TestSwitch_UsesResolvedAliasAndReportsResult(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "alice@example.com", "Alice", validToken(), nil)
	require.NoError(t, ta.app.aliases.Set("work", "alice@example.com"))

	require.NoError(t, ta.app.Switch(context.Background(), "work"))

	assert.Equal(t, "alice@example.com", ta.sw.pattern, "the orchestrator must get the exact email")
	assert.Contains(t, ta.out.String(), "Switching to alice@example.com")
	assert.Contains(t, ta.out.String(), "host restarted")
}

func TestSwitch_LaunchFailedIsReportedNotFatal(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "alice@example.com", "Alice", validToken(), nil)
	ta.sw.result = &switcher.Result{
		State:     switcher.StateLaunchFailed,
		LaunchErr: common.ErrHostProcessNotFound,
	}

	require.NoError(t, ta.app.Switch(context.Background(), "alice"))
	assert.Contains(t, ta.out.String(), "could not be restarted")
	assert.Contains(t, ta.out.String(), "already in place")
}

func TestSwitch_MissingTokenFails(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "alice@example.com", "Alice", nil, nil)

	err := ta.app.Switch(context.Background(), "alice")
	assert.ErrorIs(t, err, common.ErrMissingCredential)
	assert.Empty(t, ta.sw.pattern, "the orchestrator must not run without a token")
}

func TestAlias_SetListRemove(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "alice@example.com", "Alice", nil, nil)
	ctx := context.Background()

	require.NoError(t, ta.app.Alias(ctx, []string{"set", "work", "alice"}))
	assert.Contains(t, ta.out.String(), "work -> alice@example.com")

	ta.out.Reset()
	require.NoError(t, ta.app.Alias(ctx, nil))
	assert.Contains(t, ta.out.String(), "work -> alice@example.com")

	require.NoError(t, ta.app.Alias(ctx, []string{"rm", "work"}))
	err := ta.app.Alias(ctx, []string{"rm", "work"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAlias_SetUnknownAccount(t *testing.T) {
	ta := newTestApp(t)
	err := ta.app.Alias(context.Background(), []string{"set", "work", "ghost"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRemove_Confirmed(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "alice@example.com", "Alice", nil, nil)
	ta.app.reader = readerFromLines("y")

	require.NoError(t, ta.app.Remove(context.Background(), "alice"))
	assert.Contains(t, ta.out.String(), "Removed alice@example.com")

	_, err := ta.app.store.Match(context.Background(), "alice")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRemove_Declined(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "alice@example.com", "Alice", nil, nil)
	ta.app.reader = readerFromLines("n")

	require.NoError(t, ta.app.Remove(context.Background(), "alice"))
	assert.Contains(t, ta.out.String(), "Kept.")

	_, err := ta.app.store.Match(context.Background(), "alice")
	assert.NoError(t, err)
}

func TestExportImport_Commands(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "alice@example.com", "Alice", validToken(), nil)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, ta.app.Export(ctx, []string{path}))
	assert.Contains(t, ta.out.String(), "Exported 1 account(s)")
	assert.Contains(t, ta.out.String(), "decrypted credentials")

	// import into the same store: nothing new
	ta.out.Reset()
	require.NoError(t, ta.app.Import(ctx, []string{path}))
	assert.Contains(t, ta.out.String(), "Imported 0 new account(s)")
}

func TestBest(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "low@example.com", "", validToken(), &accounts.Quota{
		Models: map[string]accounts.ModelQuota{"gemini-3-pro": {Percentage: 10}},
	})
	ta.seed(t, "high@example.com", "", validToken(), &accounts.Quota{
		Models: map[string]accounts.ModelQuota{"gemini-3-pro": {Percentage: 90}},
	})

	require.NoError(t, ta.app.Best(context.Background(), nil))
	assert.Contains(t, ta.out.String(), "high@example.com")
}

func TestBest_DefaultThresholdIsFifty(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "low@example.com", "", validToken(), &accounts.Quota{
		Models: map[string]accounts.ModelQuota{"gemini-3-pro": {Percentage: 49}},
	})

	err := ta.app.Best(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrNotFound)

	// an explicit threshold overrides the default
	require.NoError(t, ta.app.Best(context.Background(), []string{"0"}))
	assert.Contains(t, ta.out.String(), "low@example.com")
}

func TestBest_ThresholdMiss(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, "low@example.com", "", validToken(), &accounts.Quota{
		Models: map[string]accounts.ModelQuota{"gemini-3-pro": {Percentage: 10}},
	})

	err := ta.app.Best(context.Background(), []string{"50"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStatus_ReadsHostState(t *testing.T) {
	ta := newTestApp(t)
	statePath := filepath.Join(t.TempDir(), "state.vscdb")
	ta.app.config.StateDBCandidates = []string{statePath}

	// prime the host state database through the injection path
	st, err := statestore.Open(statePath)
	require.NoError(t, err)
	require.NoError(t, st.InjectSession(context.Background(), "", statestore.AuthStatus{
		Name: "Alice", Email: "alice@example.com", APIKey: "ya29.at",
	}))
	require.NoError(t, st.Close())

	require.NoError(t, ta.app.Status(context.Background()))
	assert.Contains(t, ta.out.String(), "Signed in as alice@example.com (Alice)")
}

func TestStatus_NoStateDatabase(t *testing.T) {
	ta := newTestApp(t)
	ta.app.config.StateDBCandidates = []string{filepath.Join(t.TempDir(), "absent.vscdb")}

	require.NoError(t, ta.app.Status(context.Background()))
	assert.Contains(t, ta.out.String(), "not found")
}

// ------------ dispatch ------------

func TestDispatch(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	assert.NoError(t, ta.app.dispatch(ctx, "list", nil))
	assert.NoError(t, ta.app.dispatch(ctx, "help", nil))

	err := ta.app.dispatch(ctx, "bogus", nil)
	assert.ErrorContains(t, err, "unknown command")

	err = ta.app.dispatch(ctx, "switch", nil)
	assert.ErrorContains(t, err, "usage")

	err = ta.app.dispatch(ctx, "remove", []string{"a", "b"})
	assert.ErrorContains(t, err, "usage")
}

func TestRoot_ReadsThroughReader(t *testing.T) {
	ta := newTestApp(t)

	var printed []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		printed = append(printed, fmt.Sprintln(a...))
		return 0, nil
	}
	defer func() { printlnFn = orig }()

	ta.app.reader = readerFromLines("list", "bogus", "exit")
	ta.app.Root(context.Background())

	assert.Contains(t, ta.out.String(), "agm> ")
	assert.Contains(t, ta.out.String(), "No accounts")
	joined := strings.Join(printed, "")
	assert.Contains(t, joined, "unknown command")
	assert.Contains(t, joined, "Bye!")
}

func TestRoot_StopsAtEOF(t *testing.T) {
	ta := newTestApp(t)

	orig := printlnFn
	printlnFn = func(a ...any) (int, error) { return 0, nil }
	defer func() { printlnFn = orig }()

	ta.app.reader = readerFromLines("list")
	ta.app.Root(context.Background())

	assert.Contains(t, ta.out.String(), "No accounts")
}

func TestRun_OneShot(t *testing.T) {
	ta := newTestApp(t)
	require.NoError(t, ta.app.Run(context.Background(), []string{"list"}))
	assert.Contains(t, ta.out.String(), "No accounts")
}
